package appcreds

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microsoftgraph/msgraph-sdk-go/applications"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	msgraphcore "github.com/microsoftgraph/msgraph-sdk-go-core"

	"entrareport/internal/graph"
)

var applicationProperties = []string{
	"id", "appId", "displayName", "passwordCredentials", "keyCredentials",
}

// GraphStore implements Store against Microsoft Graph v1.0.
type GraphStore struct {
	client *graph.Client
}

// NewGraphStore returns a credential store backed by the given Graph client.
func NewGraphStore(client *graph.Client) *GraphStore {
	return &GraphStore{client: client}
}

func (g *GraphStore) Applications(ctx context.Context, displayName string) ([]Application, error) {
	if err := g.client.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	cfg := &applications.ApplicationsRequestBuilderGetRequestConfiguration{
		QueryParameters: &applications.ApplicationsRequestBuilderGetQueryParameters{
			Select: applicationProperties,
		},
	}
	if displayName != "" {
		filter := fmt.Sprintf("displayName eq '%s'", escapeODataLiteral(displayName))
		cfg.QueryParameters.Filter = &filter
	}
	result, err := g.client.SDK.Applications().Get(ctx, cfg)
	if err != nil {
		return nil, graph.EnrichODataError(err, g.client.Logger, "list applications")
	}

	var out []Application
	iterator, err := msgraphcore.NewPageIterator[models.Applicationable](
		result, g.client.SDK.GetAdapter(), models.CreateApplicationCollectionResponseFromDiscriminatorValue)
	if err != nil {
		return nil, fmt.Errorf("creating application page iterator: %w", err)
	}
	err = iterator.Iterate(ctx, func(app models.Applicationable) bool {
		out = append(out, shapeApplication(app))
		return true
	})
	if err != nil {
		return nil, graph.EnrichODataError(err, g.client.Logger, "iterate applications")
	}
	return out, nil
}

func (g *GraphStore) RemovePassword(ctx context.Context, appObjectID string, keyID uuid.UUID) error {
	if err := g.client.Limiter.Wait(ctx); err != nil {
		return err
	}
	body := applications.NewItemRemovePasswordPostRequestBody()
	body.SetKeyId(&keyID)
	err := g.client.SDK.Applications().ByApplicationId(appObjectID).RemovePassword().Post(ctx, body, nil)
	if err != nil {
		return graph.EnrichODataError(err, g.client.Logger, "remove password credential")
	}
	return nil
}

// RemoveKey rewrites the application's keyCredentials collection without the
// target entry. The dedicated removeKey action wants a proof token signed by
// the certificate being removed, which is useless when that certificate has
// already expired; a plain update avoids it.
func (g *GraphStore) RemoveKey(ctx context.Context, appObjectID string, keyID uuid.UUID) error {
	if err := g.client.Limiter.Wait(ctx); err != nil {
		return err
	}
	cfg := &applications.ApplicationItemRequestBuilderGetRequestConfiguration{
		QueryParameters: &applications.ApplicationItemRequestBuilderGetQueryParameters{
			Select: []string{"id", "keyCredentials"},
		},
	}
	app, err := g.client.SDK.Applications().ByApplicationId(appObjectID).Get(ctx, cfg)
	if err != nil {
		return graph.EnrichODataError(err, g.client.Logger, "get application key credentials")
	}

	current := app.GetKeyCredentials()
	remaining := make([]models.KeyCredentialable, 0, len(current))
	for _, kc := range current {
		if id := kc.GetKeyId(); id != nil && *id == keyID {
			continue
		}
		remaining = append(remaining, kc)
	}
	if len(remaining) == len(current) {
		return fmt.Errorf("key credential %s not found on application %s", keyID, appObjectID)
	}

	if err := g.client.Limiter.Wait(ctx); err != nil {
		return err
	}
	patch := models.NewApplication()
	patch.SetKeyCredentials(remaining)
	_, err = g.client.SDK.Applications().ByApplicationId(appObjectID).Patch(ctx, patch, nil)
	if err != nil {
		return graph.EnrichODataError(err, g.client.Logger, "remove key credential")
	}
	return nil
}

func (g *GraphStore) AddPassword(ctx context.Context, appObjectID, displayName string, end time.Time) (*NewCredential, error) {
	if err := g.client.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	cred := models.NewPasswordCredential()
	cred.SetDisplayName(&displayName)
	cred.SetEndDateTime(&end)

	body := applications.NewItemAddPasswordPostRequestBody()
	body.SetPasswordCredential(cred)

	result, err := g.client.SDK.Applications().ByApplicationId(appObjectID).AddPassword().Post(ctx, body, nil)
	if err != nil {
		return nil, graph.EnrichODataError(err, g.client.Logger, "add password credential")
	}

	out := &NewCredential{
		DisplayName: derefStr(result.GetDisplayName()),
		SecretText:  derefStr(result.GetSecretText()),
		End:         result.GetEndDateTime(),
	}
	if id := result.GetKeyId(); id != nil {
		out.KeyID = id.String()
	}
	return out, nil
}

func shapeApplication(app models.Applicationable) Application {
	out := Application{
		ObjectID:    derefStr(app.GetId()),
		AppID:       derefStr(app.GetAppId()),
		DisplayName: derefStr(app.GetDisplayName()),
	}
	for _, pc := range app.GetPasswordCredentials() {
		raw := RawCredential{
			Type:                TypePassword,
			DisplayName:         derefStr(pc.GetDisplayName()),
			CustomKeyIdentifier: pc.GetCustomKeyIdentifier(),
			Hint:                derefStr(pc.GetHint()),
			Start:               pc.GetStartDateTime(),
			End:                 pc.GetEndDateTime(),
		}
		if id := pc.GetKeyId(); id != nil {
			raw.KeyID = *id
		}
		out.Credentials = append(out.Credentials, raw)
	}
	for _, kc := range app.GetKeyCredentials() {
		raw := RawCredential{
			Type:                TypeCertificate,
			DisplayName:         derefStr(kc.GetDisplayName()),
			CustomKeyIdentifier: kc.GetCustomKeyIdentifier(),
			Start:               kc.GetStartDateTime(),
			End:                 kc.GetEndDateTime(),
		}
		if id := kc.GetKeyId(); id != nil {
			raw.KeyID = *id
		}
		out.Credentials = append(out.Credentials, raw)
	}
	return out
}

// escapeODataLiteral doubles single quotes for use inside a $filter string
// literal.
func escapeODataLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

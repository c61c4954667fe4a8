// Package governance reports identity governance data, currently the
// terms-of-use agreement inventory.
package governance

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/microsoftgraph/msgraph-sdk-go/identitygovernance"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	msgraphcore "github.com/microsoftgraph/msgraph-sdk-go-core"

	"entrareport/internal/graph"
)

// Agreement is the flat terms-of-use record.
type Agreement struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	ViewRequired      bool   `json:"viewRequired"`
	PerDeviceRequired bool   `json:"perDeviceRequired"`
	ReacceptFrequency string `json:"reacceptFrequency,omitempty"`
	FileCount         int    `json:"fileCount"`
}

// Fetcher is the Graph-facing surface. Tests substitute a fake.
type Fetcher interface {
	Agreements(ctx context.Context) ([]Agreement, error)
}

// Agreements lists terms-of-use agreements sorted by display name.
func Agreements(ctx context.Context, f Fetcher, log *slog.Logger) ([]Agreement, error) {
	if log == nil {
		log = slog.Default()
	}
	list, err := f.Agreements(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing terms-of-use agreements: %w", err)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].DisplayName < list[j].DisplayName })
	log.Debug("agreements fetched", "count", len(list))
	return list, nil
}

// GraphFetcher implements Fetcher against Microsoft Graph v1.0.
type GraphFetcher struct {
	client *graph.Client
}

func NewGraphFetcher(client *graph.Client) *GraphFetcher {
	return &GraphFetcher{client: client}
}

func (g *GraphFetcher) Agreements(ctx context.Context) ([]Agreement, error) {
	if err := g.client.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	cfg := &identitygovernance.TermsOfUseAgreementsRequestBuilderGetRequestConfiguration{
		QueryParameters: &identitygovernance.TermsOfUseAgreementsRequestBuilderGetQueryParameters{
			Expand: []string{"files"},
		},
	}
	result, err := g.client.SDK.IdentityGovernance().TermsOfUse().Agreements().Get(ctx, cfg)
	if err != nil {
		return nil, graph.EnrichODataError(err, g.client.Logger, "list terms-of-use agreements")
	}

	var out []Agreement
	iterator, err := msgraphcore.NewPageIterator[models.Agreementable](
		result, g.client.SDK.GetAdapter(), models.CreateAgreementCollectionResponseFromDiscriminatorValue)
	if err != nil {
		return nil, fmt.Errorf("creating agreement page iterator: %w", err)
	}
	err = iterator.Iterate(ctx, func(a models.Agreementable) bool {
		out = append(out, shapeAgreement(a))
		return true
	})
	if err != nil {
		return nil, graph.EnrichODataError(err, g.client.Logger, "iterate agreements")
	}
	return out, nil
}

func shapeAgreement(a models.Agreementable) Agreement {
	out := Agreement{
		ID:        deref(a.GetId()),
		FileCount: len(a.GetFiles()),
	}
	out.DisplayName = deref(a.GetDisplayName())
	if v := a.GetIsViewingBeforeAcceptanceRequired(); v != nil {
		out.ViewRequired = *v
	}
	if v := a.GetIsPerDeviceAcceptanceRequired(); v != nil {
		out.PerDeviceRequired = *v
	}
	if d := a.GetUserReacceptRequiredFrequency(); d != nil {
		out.ReacceptFrequency = d.String()
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

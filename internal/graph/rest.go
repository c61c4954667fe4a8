package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"

	"entrareport/internal/common/version"
)

// Endpoints for the two Graph API surfaces. The SDK covers v1.0; the REST
// client is used for beta-only resources and raw report downloads.
const (
	EndpointV1   = "https://graph.microsoft.com/v1.0"
	EndpointBeta = "https://graph.microsoft.com/beta"
)

// RESTClient issues bearer-authenticated requests through an azcore pipeline.
// It exists because the typed SDK does not surface every resource this
// toolkit reads (Defender identity sensors live on beta, usage reports
// return raw CSV).
type RESTClient struct {
	pipeline runtime.Pipeline
}

// NewRESTClient builds a pipeline with the bearer token policy for the
// default Graph scope.
func NewRESTClient(cred azcore.TokenCredential) (*RESTClient, error) {
	authPolicy := runtime.NewBearerTokenPolicy(cred, []string{DefaultScope}, nil)
	pipeline := runtime.NewPipeline("entrareport", version.Version, runtime.PipelineOptions{
		PerRetry: []policy.Policy{authPolicy},
	}, &policy.ClientOptions{})

	return &RESTClient{pipeline: pipeline}, nil
}

// collectionPage mirrors the envelope of a paginated Graph collection.
type collectionPage struct {
	Value    []json.RawMessage `json:"value"`
	NextLink string            `json:"@odata.nextLink"`
}

// Get performs a GET against the given absolute URL and returns the raw body.
func (c *RESTClient) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := runtime.NewRequest(ctx, http.MethodGet, url)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}

	resp, err := c.pipeline.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !runtime.HasStatusCode(resp, http.StatusOK) {
		return nil, runtime.NewResponseError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", url, err)
	}
	return body, nil
}

// GetJSON performs a GET and decodes the JSON response into out.
func (c *RESTClient) GetJSON(ctx context.Context, url string, out any) error {
	body, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", url, err)
	}
	return nil
}

// ListAll performs a GET against a collection URL and follows
// @odata.nextLink continuation links until exhausted, returning the
// concatenated value items.
func (c *RESTClient) ListAll(ctx context.Context, url string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	next := url
	for next != "" {
		var page collectionPage
		if err := c.GetJSON(ctx, next, &page); err != nil {
			return nil, err
		}
		items = append(items, page.Value...)
		next = page.NextLink
	}
	return items, nil
}

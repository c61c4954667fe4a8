package defender

import (
	"context"
	"fmt"

	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/security"
	msgraphcore "github.com/microsoftgraph/msgraph-sdk-go-core"

	"entrareport/internal/graph"
)

// GraphFetcher implements Fetcher against Microsoft Graph v1.0.
type GraphFetcher struct {
	client *graph.Client
}

func NewGraphFetcher(client *graph.Client) *GraphFetcher {
	return &GraphFetcher{client: client}
}

func (g *GraphFetcher) SecureScores(ctx context.Context, top int32) ([]Score, error) {
	if err := g.client.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	cfg := &security.SecureScoresRequestBuilderGetRequestConfiguration{
		QueryParameters: &security.SecureScoresRequestBuilderGetQueryParameters{
			Top: &top,
		},
	}
	result, err := g.client.SDK.Security().SecureScores().Get(ctx, cfg)
	if err != nil {
		return nil, graph.EnrichODataError(err, g.client.Logger, "list secure scores")
	}

	out := make([]Score, 0, top)
	for _, s := range result.GetValue() {
		out = append(out, shapeScore(s))
		if int32(len(out)) >= top {
			break
		}
	}
	return out, nil
}

func (g *GraphFetcher) ControlProfiles(ctx context.Context) ([]ControlProfile, error) {
	if err := g.client.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	result, err := g.client.SDK.Security().SecureScoreControlProfiles().Get(ctx, nil)
	if err != nil {
		return nil, graph.EnrichODataError(err, g.client.Logger, "list secure score control profiles")
	}

	var out []ControlProfile
	iterator, err := msgraphcore.NewPageIterator[models.SecureScoreControlProfileable](
		result, g.client.SDK.GetAdapter(), models.CreateSecureScoreControlProfileCollectionResponseFromDiscriminatorValue)
	if err != nil {
		return nil, fmt.Errorf("creating control profile page iterator: %w", err)
	}
	err = iterator.Iterate(ctx, func(p models.SecureScoreControlProfileable) bool {
		out = append(out, shapeProfile(p))
		return true
	})
	if err != nil {
		return nil, graph.EnrichODataError(err, g.client.Logger, "iterate control profiles")
	}
	return out, nil
}

func shapeScore(s models.SecureScoreable) Score {
	out := Score{
		ID:      deref(s.GetId()),
		Created: s.GetCreatedDateTime(),
	}
	if v := s.GetCurrentScore(); v != nil {
		out.CurrentScore = *v
	}
	if v := s.GetMaxScore(); v != nil {
		out.MaxScore = *v
	}
	if v := s.GetActiveUserCount(); v != nil {
		out.ActiveUserCount = *v
	}
	for _, cs := range s.GetControlScores() {
		control := ControlScore{
			Name:     deref(cs.GetControlName()),
			Category: deref(cs.GetControlCategory()),
		}
		if v := cs.GetScore(); v != nil {
			control.Score = *v
		}
		out.Controls = append(out.Controls, control)
	}
	return out
}

func shapeProfile(p models.SecureScoreControlProfileable) ControlProfile {
	out := ControlProfile{
		ID:          deref(p.GetId()),
		Title:       deref(p.GetTitle()),
		Category:    deref(p.GetControlCategory()),
		ActionURL:   deref(p.GetActionUrl()),
		Remediation: deref(p.GetRemediation()),
	}
	if v := p.GetMaxScore(); v != nil {
		out.MaxScore = *v
	}
	// State lives in the most recent entry of the update history.
	for _, upd := range p.GetControlStateUpdates() {
		when := upd.GetUpdatedDateTime()
		if out.StateUpdated == nil || (when != nil && when.After(*out.StateUpdated)) {
			out.State = deref(upd.GetState())
			out.StateUpdated = when
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

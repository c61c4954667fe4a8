// Package teams inventories Microsoft Teams teams and their owners.
package teams

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	abstractions "github.com/microsoft/kiota-abstractions-go"
	"github.com/microsoftgraph/msgraph-sdk-go/groups"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	msgraphcore "github.com/microsoftgraph/msgraph-sdk-go-core"

	"entrareport/internal/graph"
)

// Team is the flat inventory record.
type Team struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description,omitempty"`
	Visibility  string   `json:"visibility"`
	Mail        string   `json:"mail,omitempty"`
	Owners      []string `json:"owners"`
}

// Fetcher is the Graph-facing surface for the inventory. Tests substitute a
// fake.
type Fetcher interface {
	Teams(ctx context.Context) ([]Team, error)
	Owners(ctx context.Context, teamID string) ([]string, error)
}

// Inventory lists all teams with their owners resolved, sorted by display
// name. An owner lookup failure is a warning; the team stays in the output
// with no owners.
func Inventory(ctx context.Context, f Fetcher, log *slog.Logger) ([]Team, error) {
	if log == nil {
		log = slog.Default()
	}

	list, err := f.Teams(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}

	for i := range list {
		owners, err := f.Owners(ctx, list[i].ID)
		if err != nil {
			log.Warn("could not resolve team owners",
				"team", list[i].DisplayName, "error", err)
			continue
		}
		list[i].Owners = owners
	}

	sort.Slice(list, func(i, j int) bool { return list[i].DisplayName < list[j].DisplayName })
	log.Debug("teams inventoried", "count", len(list))
	return list, nil
}

var teamProperties = []string{"id", "displayName", "description", "visibility", "mail"}

// GraphFetcher implements Fetcher against Microsoft Graph v1.0. Teams are
// groups carrying the Team provisioning option; there is no cheaper listing.
type GraphFetcher struct {
	client *graph.Client
}

func NewGraphFetcher(client *graph.Client) *GraphFetcher {
	return &GraphFetcher{client: client}
}

func (g *GraphFetcher) Teams(ctx context.Context) ([]Team, error) {
	if err := g.client.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	// The lambda filter is an advanced query and needs the eventual
	// consistency header plus $count.
	headers := abstractions.NewRequestHeaders()
	headers.Add("ConsistencyLevel", "eventual")
	cfg := &groups.GroupsRequestBuilderGetRequestConfiguration{
		Headers: headers,
		QueryParameters: &groups.GroupsRequestBuilderGetQueryParameters{
			Select: teamProperties,
			Filter: ptr("resourceProvisioningOptions/Any(x:x eq 'Team')"),
			Count:  ptr(true),
		},
	}
	result, err := g.client.SDK.Groups().Get(ctx, cfg)
	if err != nil {
		return nil, graph.EnrichODataError(err, g.client.Logger, "list teams")
	}

	var out []Team
	iterator, err := msgraphcore.NewPageIterator[models.Groupable](
		result, g.client.SDK.GetAdapter(), models.CreateGroupCollectionResponseFromDiscriminatorValue)
	if err != nil {
		return nil, fmt.Errorf("creating team page iterator: %w", err)
	}
	err = iterator.Iterate(ctx, func(grp models.Groupable) bool {
		out = append(out, Team{
			ID:          deref(grp.GetId()),
			DisplayName: deref(grp.GetDisplayName()),
			Description: deref(grp.GetDescription()),
			Visibility:  deref(grp.GetVisibility()),
			Mail:        deref(grp.GetMail()),
		})
		return true
	})
	if err != nil {
		return nil, graph.EnrichODataError(err, g.client.Logger, "iterate teams")
	}
	return out, nil
}

func (g *GraphFetcher) Owners(ctx context.Context, teamID string) ([]string, error) {
	if err := g.client.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	result, err := g.client.SDK.Groups().ByGroupId(teamID).Owners().Get(ctx, nil)
	if err != nil {
		return nil, graph.EnrichODataError(err, g.client.Logger, "list team owners")
	}

	var out []string
	iterator, err := msgraphcore.NewPageIterator[models.DirectoryObjectable](
		result, g.client.SDK.GetAdapter(), models.CreateDirectoryObjectCollectionResponseFromDiscriminatorValue)
	if err != nil {
		return nil, fmt.Errorf("creating owner page iterator: %w", err)
	}
	err = iterator.Iterate(ctx, func(obj models.DirectoryObjectable) bool {
		switch o := obj.(type) {
		case models.Userable:
			if name := o.GetDisplayName(); name != nil && *name != "" {
				out = append(out, *name)
				return true
			}
			if upn := o.GetUserPrincipalName(); upn != nil {
				out = append(out, *upn)
				return true
			}
		}
		if id := obj.GetId(); id != nil {
			out = append(out, *id)
		}
		return true
	})
	if err != nil {
		return nil, graph.EnrichODataError(err, g.client.Logger, "iterate team owners")
	}
	return out, nil
}

func ptr[T any](v T) *T { return &v }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

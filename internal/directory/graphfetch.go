package directory

import (
	"context"
	"fmt"
	"time"

	abstractions "github.com/microsoft/kiota-abstractions-go"
	"github.com/microsoftgraph/msgraph-sdk-go/groups"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/rolemanagement"
	"github.com/microsoftgraph/msgraph-sdk-go/serviceprincipals"
	"github.com/microsoftgraph/msgraph-sdk-go/users"
	msgraphcore "github.com/microsoftgraph/msgraph-sdk-go-core"

	"entrareport/internal/graph"
)

// Narrow property sets requested per entity type to keep payloads small.
var (
	userProperties       = []string{"id", "displayName", "accountEnabled", "mail", "userPrincipalName"}
	groupProperties      = []string{"id", "displayName", "securityEnabled", "isAssignableToRole"}
	spProperties         = []string{"id", "displayName", "accountEnabled", "appId", "servicePrincipalType"}
	roleProperties       = []string{"id", "displayName", "description", "isBuiltIn", "isEnabled", "rolePermissions"}
	assignmentProperties = []string{"id", "roleDefinitionId", "principalId", "directoryScopeId"}
)

const maxPageSize = int32(999)

// GraphFetcher implements Fetcher against Microsoft Graph v1.0.
type GraphFetcher struct {
	client *graph.Client
}

// NewGraphFetcher returns a fetch layer backed by the given Graph client.
func NewGraphFetcher(client *graph.Client) *GraphFetcher {
	return &GraphFetcher{client: client}
}

func (g *GraphFetcher) Users(ctx context.Context) ([]Principal, error) {
	if err := g.client.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	cfg := &users.UsersRequestBuilderGetRequestConfiguration{
		QueryParameters: &users.UsersRequestBuilderGetQueryParameters{
			Select: userProperties,
			Top:    ptr(maxPageSize),
		},
	}
	result, err := g.client.SDK.Users().Get(ctx, cfg)
	if err != nil {
		return nil, graph.EnrichODataError(err, g.client.Logger, "list users")
	}

	var out []Principal
	iterator, err := msgraphcore.NewPageIterator[models.Userable](
		result, g.client.SDK.GetAdapter(), models.CreateUserCollectionResponseFromDiscriminatorValue)
	if err != nil {
		return nil, fmt.Errorf("creating user page iterator: %w", err)
	}
	err = iterator.Iterate(ctx, func(u models.Userable) bool {
		out = append(out, userPrincipal(u))
		return true
	})
	if err != nil {
		return nil, graph.EnrichODataError(err, g.client.Logger, "iterate users")
	}
	return out, nil
}

func (g *GraphFetcher) RoleAssignableGroups(ctx context.Context) ([]Principal, error) {
	if err := g.client.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	// Filtering on isAssignableToRole is an advanced query: it needs the
	// eventual consistency header plus $count.
	headers := abstractions.NewRequestHeaders()
	headers.Add("ConsistencyLevel", "eventual")
	cfg := &groups.GroupsRequestBuilderGetRequestConfiguration{
		Headers: headers,
		QueryParameters: &groups.GroupsRequestBuilderGetQueryParameters{
			Select: groupProperties,
			Filter: ptr("isAssignableToRole eq true"),
			Count:  ptr(true),
			Top:    ptr(maxPageSize),
		},
	}
	result, err := g.client.SDK.Groups().Get(ctx, cfg)
	if err != nil {
		return nil, graph.EnrichODataError(err, g.client.Logger, "list role-assignable groups")
	}

	var out []Principal
	iterator, err := msgraphcore.NewPageIterator[models.Groupable](
		result, g.client.SDK.GetAdapter(), models.CreateGroupCollectionResponseFromDiscriminatorValue)
	if err != nil {
		return nil, fmt.Errorf("creating group page iterator: %w", err)
	}
	err = iterator.Iterate(ctx, func(grp models.Groupable) bool {
		out = append(out, groupPrincipal(grp))
		return true
	})
	if err != nil {
		return nil, graph.EnrichODataError(err, g.client.Logger, "iterate groups")
	}
	return out, nil
}

func (g *GraphFetcher) ServicePrincipals(ctx context.Context) ([]Principal, error) {
	if err := g.client.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	cfg := &serviceprincipals.ServicePrincipalsRequestBuilderGetRequestConfiguration{
		QueryParameters: &serviceprincipals.ServicePrincipalsRequestBuilderGetQueryParameters{
			Select: spProperties,
			Top:    ptr(maxPageSize),
		},
	}
	result, err := g.client.SDK.ServicePrincipals().Get(ctx, cfg)
	if err != nil {
		return nil, graph.EnrichODataError(err, g.client.Logger, "list service principals")
	}

	var out []Principal
	iterator, err := msgraphcore.NewPageIterator[models.ServicePrincipalable](
		result, g.client.SDK.GetAdapter(), models.CreateServicePrincipalCollectionResponseFromDiscriminatorValue)
	if err != nil {
		return nil, fmt.Errorf("creating service principal page iterator: %w", err)
	}
	err = iterator.Iterate(ctx, func(sp models.ServicePrincipalable) bool {
		out = append(out, servicePrincipal(sp))
		return true
	})
	if err != nil {
		return nil, graph.EnrichODataError(err, g.client.Logger, "iterate service principals")
	}
	return out, nil
}

func (g *GraphFetcher) RoleDefinitions(ctx context.Context) ([]RoleDefinition, error) {
	if err := g.client.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	cfg := &rolemanagement.DirectoryRoleDefinitionsRequestBuilderGetRequestConfiguration{
		QueryParameters: &rolemanagement.DirectoryRoleDefinitionsRequestBuilderGetQueryParameters{
			Select: roleProperties,
		},
	}
	response, err := g.client.SDK.RoleManagement().Directory().RoleDefinitions().Get(ctx, cfg)
	if err != nil {
		return nil, graph.EnrichODataError(err, g.client.Logger, "list role definitions")
	}

	var out []RoleDefinition
	for {
		for _, def := range response.GetValue() {
			out = append(out, roleDefinition(def))
		}
		next := response.GetOdataNextLink()
		if next == nil || *next == "" {
			break
		}
		response, err = g.client.SDK.RoleManagement().Directory().RoleDefinitions().WithUrl(*next).Get(ctx, nil)
		if err != nil {
			return nil, graph.EnrichODataError(err, g.client.Logger, "list role definitions")
		}
	}
	return out, nil
}

func (g *GraphFetcher) RoleDefinition(ctx context.Context, id string) (*RoleDefinition, error) {
	if err := g.client.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	def, err := g.client.SDK.RoleManagement().Directory().RoleDefinitions().ByUnifiedRoleDefinitionId(id).Get(ctx, nil)
	if err != nil {
		return nil, graph.EnrichODataError(err, g.client.Logger, "get role definition")
	}
	out := roleDefinition(def)
	return &out, nil
}

func (g *GraphFetcher) RoleAssignments(ctx context.Context) ([]RoleAssignment, error) {
	if err := g.client.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	cfg := &rolemanagement.DirectoryRoleAssignmentsRequestBuilderGetRequestConfiguration{
		QueryParameters: &rolemanagement.DirectoryRoleAssignmentsRequestBuilderGetQueryParameters{
			Select: assignmentProperties,
		},
	}
	response, err := g.client.SDK.RoleManagement().Directory().RoleAssignments().Get(ctx, cfg)
	if err != nil {
		return nil, graph.EnrichODataError(err, g.client.Logger, "list role assignments")
	}

	var out []RoleAssignment
	for {
		for _, a := range response.GetValue() {
			out = append(out, RoleAssignment{
				ID:               deref(a.GetId()),
				RoleDefinitionID: deref(a.GetRoleDefinitionId()),
				PrincipalID:      deref(a.GetPrincipalId()),
				DirectoryScopeID: deref(a.GetDirectoryScopeId()),
			})
		}
		next := response.GetOdataNextLink()
		if next == nil || *next == "" {
			break
		}
		response, err = g.client.SDK.RoleManagement().Directory().RoleAssignments().WithUrl(*next).Get(ctx, nil)
		if err != nil {
			return nil, graph.EnrichODataError(err, g.client.Logger, "list role assignments")
		}
	}
	return out, nil
}

func (g *GraphFetcher) EligibilitySchedules(ctx context.Context) ([]RoleAssignment, error) {
	if err := g.client.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	response, err := g.client.SDK.RoleManagement().Directory().RoleEligibilitySchedules().Get(ctx, nil)
	if err != nil {
		return nil, graph.EnrichODataError(err, g.client.Logger, "list eligibility schedules")
	}

	var out []RoleAssignment
	for {
		for _, s := range response.GetValue() {
			out = append(out, RoleAssignment{
				ID:               deref(s.GetId()),
				RoleDefinitionID: deref(s.GetRoleDefinitionId()),
				PrincipalID:      deref(s.GetPrincipalId()),
				DirectoryScopeID: deref(s.GetDirectoryScopeId()),
				Created:          s.GetCreatedDateTime(),
			})
		}
		next := response.GetOdataNextLink()
		if next == nil || *next == "" {
			break
		}
		response, err = g.client.SDK.RoleManagement().Directory().RoleEligibilitySchedules().WithUrl(*next).Get(ctx, nil)
		if err != nil {
			return nil, graph.EnrichODataError(err, g.client.Logger, "list eligibility schedules")
		}
	}
	return out, nil
}

func (g *GraphFetcher) GroupMembers(ctx context.Context, groupID string) ([]Principal, error) {
	if err := g.client.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	result, err := g.client.SDK.Groups().ByGroupId(groupID).Members().Get(ctx, nil)
	if err != nil {
		return nil, graph.EnrichODataError(err, g.client.Logger, "list group members")
	}

	var out []Principal
	iterator, err := msgraphcore.NewPageIterator[models.DirectoryObjectable](
		result, g.client.SDK.GetAdapter(), models.CreateDirectoryObjectCollectionResponseFromDiscriminatorValue)
	if err != nil {
		return nil, fmt.Errorf("creating member page iterator: %w", err)
	}
	err = iterator.Iterate(ctx, func(obj models.DirectoryObjectable) bool {
		out = append(out, directoryObjectPrincipal(obj))
		return true
	})
	if err != nil {
		return nil, graph.EnrichODataError(err, g.client.Logger, "iterate group members")
	}
	return out, nil
}

func (g *GraphFetcher) ScheduleRequests(ctx context.Context, since time.Time) (assignment, eligibility []RoleRequest, err error) {
	filter := fmt.Sprintf("createdDateTime ge %s", since.UTC().Format(time.RFC3339))

	if err := g.client.Limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}
	assignCfg := &rolemanagement.DirectoryRoleAssignmentScheduleRequestsRequestBuilderGetRequestConfiguration{
		QueryParameters: &rolemanagement.DirectoryRoleAssignmentScheduleRequestsRequestBuilderGetQueryParameters{
			Filter: ptr(filter),
		},
	}
	assignResp, err := g.client.SDK.RoleManagement().Directory().RoleAssignmentScheduleRequests().Get(ctx, assignCfg)
	if err != nil {
		return nil, nil, graph.EnrichODataError(err, g.client.Logger, "list assignment schedule requests")
	}
	for {
		for _, r := range assignResp.GetValue() {
			assignment = append(assignment, assignmentRequest(r))
		}
		next := assignResp.GetOdataNextLink()
		if next == nil || *next == "" {
			break
		}
		assignResp, err = g.client.SDK.RoleManagement().Directory().RoleAssignmentScheduleRequests().WithUrl(*next).Get(ctx, nil)
		if err != nil {
			return nil, nil, graph.EnrichODataError(err, g.client.Logger, "list assignment schedule requests")
		}
	}

	if err := g.client.Limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}
	eligCfg := &rolemanagement.DirectoryRoleEligibilityScheduleRequestsRequestBuilderGetRequestConfiguration{
		QueryParameters: &rolemanagement.DirectoryRoleEligibilityScheduleRequestsRequestBuilderGetQueryParameters{
			Filter: ptr(filter),
		},
	}
	eligResp, err := g.client.SDK.RoleManagement().Directory().RoleEligibilityScheduleRequests().Get(ctx, eligCfg)
	if err != nil {
		return nil, nil, graph.EnrichODataError(err, g.client.Logger, "list eligibility schedule requests")
	}
	for {
		for _, r := range eligResp.GetValue() {
			eligibility = append(eligibility, eligibilityRequest(r))
		}
		next := eligResp.GetOdataNextLink()
		if next == nil || *next == "" {
			break
		}
		eligResp, err = g.client.SDK.RoleManagement().Directory().RoleEligibilityScheduleRequests().WithUrl(*next).Get(ctx, nil)
		if err != nil {
			return nil, nil, graph.EnrichODataError(err, g.client.Logger, "list eligibility schedule requests")
		}
	}

	return assignment, eligibility, nil
}

package directory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher is an in-memory Fetcher with per-call counters.
type fakeFetcher struct {
	users       []Principal
	groups      []Principal
	sps         []Principal
	roles       []RoleDefinition
	assignments []RoleAssignment
	eligibles   []RoleAssignment

	extraRoles map[string]RoleDefinition // served by the fallback point-lookup
	members    map[string][]Principal    // group id -> members

	assignRequests []RoleRequest
	eligRequests   []RoleRequest

	failUsers       error
	failAssignments error

	roleLookups   map[string]int
	memberLookups map[string]int
}

func (f *fakeFetcher) Users(ctx context.Context) ([]Principal, error) {
	if f.failUsers != nil {
		return nil, f.failUsers
	}
	return f.users, nil
}

func (f *fakeFetcher) RoleAssignableGroups(ctx context.Context) ([]Principal, error) {
	return f.groups, nil
}

func (f *fakeFetcher) ServicePrincipals(ctx context.Context) ([]Principal, error) {
	return f.sps, nil
}

func (f *fakeFetcher) RoleDefinitions(ctx context.Context) ([]RoleDefinition, error) {
	return f.roles, nil
}

func (f *fakeFetcher) RoleAssignments(ctx context.Context) ([]RoleAssignment, error) {
	if f.failAssignments != nil {
		return nil, f.failAssignments
	}
	return f.assignments, nil
}

func (f *fakeFetcher) EligibilitySchedules(ctx context.Context) ([]RoleAssignment, error) {
	return f.eligibles, nil
}

func (f *fakeFetcher) RoleDefinition(ctx context.Context, id string) (*RoleDefinition, error) {
	if f.roleLookups == nil {
		f.roleLookups = make(map[string]int)
	}
	f.roleLookups[id]++
	if def, ok := f.extraRoles[id]; ok {
		return &def, nil
	}
	return nil, fmt.Errorf("role definition %s not found", id)
}

func (f *fakeFetcher) GroupMembers(ctx context.Context, groupID string) ([]Principal, error) {
	if f.memberLookups == nil {
		f.memberLookups = make(map[string]int)
	}
	f.memberLookups[groupID]++
	return f.members[groupID], nil
}

func (f *fakeFetcher) ScheduleRequests(ctx context.Context, since time.Time) ([]RoleRequest, []RoleRequest, error) {
	return f.assignRequests, f.eligRequests, nil
}

func testUser(id, name string) Principal {
	return Principal{ID: id, DisplayName: name, Type: PrincipalUser, Enabled: true}
}

func testGroup(id, name string) Principal {
	return Principal{ID: id, DisplayName: name, Type: PrincipalGroup, AssignableToRole: true}
}

func TestRoleSummariesClassifiesPrincipals(t *testing.T) {
	f := &fakeFetcher{
		users:  []Principal{testUser("u1", "Alice"), testUser("u2", "Bob")},
		groups: []Principal{testGroup("g1", "Admins")},
		sps:    []Principal{{ID: "sp1", DisplayName: "Deploy App", Type: PrincipalServicePrincipal}},
		roles: []RoleDefinition{
			{ID: "r1", DisplayName: "Global Administrator", BuiltIn: true, Enabled: true},
		},
		assignments: []RoleAssignment{
			{RoleDefinitionID: "r1", PrincipalID: "u1"},
			{RoleDefinitionID: "r1", PrincipalID: "g1"},
			{RoleDefinitionID: "r1", PrincipalID: "sp1"},
		},
		eligibles: []RoleAssignment{
			{RoleDefinitionID: "r1", PrincipalID: "u2"},
		},
		members: map[string][]Principal{
			"g1": {testUser("u3", "Carol")},
		},
	}

	summaries, err := RoleSummaries(context.Background(), f, nil, RoleReportOptions{})
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	s := summaries[0]
	assert.Equal(t, "Global Administrator", s.Name)
	assert.Equal(t, []string{"Alice"}, s.DirectUsers)
	assert.Equal(t, []string{"Admins"}, s.DirectGroups)
	assert.Equal(t, []string{"Deploy App"}, s.DirectServicePrincipals)
	assert.Equal(t, []string{"Bob"}, s.EligibleUsers)
	assert.Equal(t, []string{"Carol"}, s.GroupMembers)
	assert.Equal(t, 3, s.DirectCount)
	assert.Equal(t, 1, s.EligibleCount)
	assert.Equal(t, 1, s.GroupCount)
	assert.Equal(t, 5, s.TotalCount)
}

func TestRoleSummariesUnknownPrincipalPlaceholder(t *testing.T) {
	f := &fakeFetcher{
		roles: []RoleDefinition{{ID: "r1", DisplayName: "Helpdesk Administrator"}},
		assignments: []RoleAssignment{
			{RoleDefinitionID: "r1", PrincipalID: "ghost-id"},
		},
	}

	summaries, err := RoleSummaries(context.Background(), f, nil, RoleReportOptions{})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, []string{"Unknown (ghost-id)"}, summaries[0].DirectUnknown)
}

func TestRoleSummariesFallbackLookupOncePerMissingRole(t *testing.T) {
	f := &fakeFetcher{
		users: []Principal{testUser("u1", "Alice")},
		roles: nil, // bulk result empty, everything goes through the fallback
		extraRoles: map[string]RoleDefinition{
			"r-found": {ID: "r-found", DisplayName: "Found Role"},
		},
		assignments: []RoleAssignment{
			{RoleDefinitionID: "r-found", PrincipalID: "u1"},
			{RoleDefinitionID: "r-found", PrincipalID: "u1"},
			{RoleDefinitionID: "r-missing", PrincipalID: "u1"},
			{RoleDefinitionID: "r-missing", PrincipalID: "u1"},
		},
		eligibles: []RoleAssignment{
			{RoleDefinitionID: "r-missing", PrincipalID: "u1"},
		},
	}

	summaries, err := RoleSummaries(context.Background(), f, nil, RoleReportOptions{})
	require.NoError(t, err)

	// Exactly one lookup per distinct missing id, even across assignment and
	// eligibility references.
	assert.Equal(t, 1, f.roleLookups["r-found"])
	assert.Equal(t, 1, f.roleLookups["r-missing"])

	// The permanently missing role's records are dropped, the recovered one
	// is present.
	require.Len(t, summaries, 1)
	assert.Equal(t, "Found Role", summaries[0].Name)
	assert.Len(t, summaries[0].DirectUsers, 2)
}

func TestRoleSummariesGroupExpandedOncePerDisplayName(t *testing.T) {
	group := testGroup("g1", "Shared Admins")
	f := &fakeFetcher{
		groups: []Principal{group},
		roles: []RoleDefinition{
			{ID: "r1", DisplayName: "Role One"},
			{ID: "r2", DisplayName: "Role Two"},
			{ID: "r3", DisplayName: "Role Three"},
		},
		assignments: []RoleAssignment{
			{RoleDefinitionID: "r1", PrincipalID: "g1"},
			{RoleDefinitionID: "r2", PrincipalID: "g1"},
			{RoleDefinitionID: "r3", PrincipalID: "g1"},
		},
		members: map[string][]Principal{
			"g1": {testUser("u1", "Alice"), testUser("u2", "Bob")},
		},
	}

	summaries, err := RoleSummaries(context.Background(), f, nil, RoleReportOptions{})
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	assert.Equal(t, 1, f.memberLookups["g1"], "three roles share the group but it expands once")
	for _, s := range summaries {
		assert.ElementsMatch(t, []string{"Alice", "Bob"}, s.GroupMembers)
	}
}

func TestRoleSummariesOnlyWithMembersFilter(t *testing.T) {
	f := &fakeFetcher{
		users: []Principal{testUser("u1", "Alice")},
		roles: []RoleDefinition{
			{ID: "r1", DisplayName: "Occupied"},
			{ID: "r2", DisplayName: "Empty"},
		},
		assignments: []RoleAssignment{{RoleDefinitionID: "r1", PrincipalID: "u1"}},
	}

	all, err := RoleSummaries(context.Background(), f, nil, RoleReportOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	occupied, err := RoleSummaries(context.Background(), f, nil, RoleReportOptions{OnlyWithMembers: true})
	require.NoError(t, err)
	require.Len(t, occupied, 1)
	assert.Equal(t, "Occupied", occupied[0].Name)
}

func TestRoleSummariesAbortsWhenAnyFetchFails(t *testing.T) {
	f := &fakeFetcher{
		users:           []Principal{testUser("u1", "Alice")},
		roles:           []RoleDefinition{{ID: "r1", DisplayName: "Role"}},
		failAssignments: errors.New("throttled"),
	}

	_, err := RoleSummaries(context.Background(), f, nil, RoleReportOptions{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "role assignments")
	assert.ErrorContains(t, err, "aborting")
}

func TestRoleSummariesCollectsAllFetchErrors(t *testing.T) {
	f := &fakeFetcher{
		failUsers:       errors.New("users down"),
		failAssignments: errors.New("assignments down"),
	}

	_, err := RoleSummaries(context.Background(), f, nil, RoleReportOptions{})
	require.Error(t, err)
	// Both failures attempted and reported, not just the first.
	assert.ErrorContains(t, err, "users down")
	assert.ErrorContains(t, err, "assignments down")
	assert.ErrorContains(t, err, "2 of 6")
}

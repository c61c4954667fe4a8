package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Fetcher is the fetch layer: one paginated query per entity type. The Graph
// implementation lives in graphfetch.go; tests substitute an in-memory fake.
type Fetcher interface {
	Users(ctx context.Context) ([]Principal, error)
	RoleAssignableGroups(ctx context.Context) ([]Principal, error)
	ServicePrincipals(ctx context.Context) ([]Principal, error)
	RoleDefinitions(ctx context.Context) ([]RoleDefinition, error)
	RoleAssignments(ctx context.Context) ([]RoleAssignment, error)
	EligibilitySchedules(ctx context.Context) ([]RoleAssignment, error)

	// RoleDefinition is the fallback point-lookup for a role id missing from
	// the bulk result.
	RoleDefinition(ctx context.Context, id string) (*RoleDefinition, error)

	// GroupMembers enumerates direct members of a role-assignable group.
	GroupMembers(ctx context.Context, groupID string) ([]Principal, error)

	// ScheduleRequests returns assignment and eligibility schedule requests
	// created at or after since.
	ScheduleRequests(ctx context.Context, since time.Time) (assignment, eligibility []RoleRequest, err error)
}

// snapshot holds the results of the bulk fetch stage for the membership
// report.
type snapshot struct {
	users       []Principal
	groups      []Principal
	sps         []Principal
	roles       []RoleDefinition
	assignments []RoleAssignment
	eligibles   []RoleAssignment
}

// fetchSnapshot attempts every bulk query regardless of individual failures,
// then fails the whole stage if any of them errored. Partial data never
// reaches the join.
func fetchSnapshot(ctx context.Context, f Fetcher, log *slog.Logger) (*snapshot, error) {
	var snap snapshot
	var errs []error

	fetches := []struct {
		name string
		run  func() error
	}{
		{"users", func() (err error) { snap.users, err = f.Users(ctx); return }},
		{"role-assignable groups", func() (err error) { snap.groups, err = f.RoleAssignableGroups(ctx); return }},
		{"service principals", func() (err error) { snap.sps, err = f.ServicePrincipals(ctx); return }},
		{"role definitions", func() (err error) { snap.roles, err = f.RoleDefinitions(ctx); return }},
		{"role assignments", func() (err error) { snap.assignments, err = f.RoleAssignments(ctx); return }},
		{"eligibility schedules", func() (err error) { snap.eligibles, err = f.EligibilitySchedules(ctx); return }},
	}

	for _, fetch := range fetches {
		if err := fetch.run(); err != nil {
			log.Warn("directory fetch failed", "entity", fetch.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", fetch.name, err))
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%d of %d directory fetches failed, aborting: %w",
			len(errs), len(fetches), errors.Join(errs...))
	}
	return &snap, nil
}

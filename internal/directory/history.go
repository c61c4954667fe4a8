package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"entrareport/internal/common/validation"
)

// DefaultHistoryWindow bounds the schedule request query when no explicit
// "since" timestamp is given.
const DefaultHistoryWindow = 30 * 24 * time.Hour

// HistoryOptions controls the role history report.
type HistoryOptions struct {
	// RoleName is an optional wildcard pattern matched against role display
	// names. A pattern that matches no role yields an empty result.
	RoleName string

	// Principal is an optional wildcard pattern matched against user
	// principal names and principal display names.
	Principal string

	// Since bounds the request query; zero means DefaultHistoryWindow ago.
	Since time.Time

	// IncludeAllStatuses admits pending and failed requests that the default
	// terminal-status allow-list excludes.
	IncludeAllStatuses bool
}

// RoleHistory fetches assignment and eligibility schedule requests, resolves
// role and principal names through the lookup caches, applies name and status
// filters, and returns entries sorted newest first (stable for equal
// timestamps).
func RoleHistory(ctx context.Context, f Fetcher, log *slog.Logger, opts HistoryOptions) ([]HistoryEntry, error) {
	if log == nil {
		log = slog.Default()
	}

	since := opts.Since
	if since.IsZero() {
		since = time.Now().Add(-DefaultHistoryWindow)
	}

	var (
		users, groups, sps       []Principal
		roles                    []RoleDefinition
		assignments, eligibility []RoleRequest
		errs                     []error
	)

	fetches := []struct {
		name string
		run  func() error
	}{
		{"users", func() (err error) { users, err = f.Users(ctx); return }},
		{"role-assignable groups", func() (err error) { groups, err = f.RoleAssignableGroups(ctx); return }},
		{"service principals", func() (err error) { sps, err = f.ServicePrincipals(ctx); return }},
		{"role definitions", func() (err error) { roles, err = f.RoleDefinitions(ctx); return }},
		{"schedule requests", func() (err error) { assignments, eligibility, err = f.ScheduleRequests(ctx, since); return }},
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

	principals := principalCache(users, groups, sps)
	roleDefs := roleCache(roles)

	// Resolve optional name filters to id sets before touching the requests.
	// A supplied filter that matches nothing short-circuits to an empty
	// result; falling through to unfiltered output would be worse than
	// returning nothing.
	var roleFilter map[string]bool
	if opts.RoleName != "" {
		roleFilter = make(map[string]bool)
		for _, def := range roles {
			if validation.MatchesWildcard(opts.RoleName, def.DisplayName) {
				roleFilter[def.ID] = true
			}
		}
		if len(roleFilter) == 0 {
			log.Warn("role name filter matched no role definitions", "pattern", opts.RoleName)
			return nil, nil
		}
	}

	var principalFilter map[string]bool
	if opts.Principal != "" {
		principalFilter = make(map[string]bool)
		for id, p := range principals {
			if validation.MatchesWildcard(opts.Principal, p.UserPrincipalName) ||
				validation.MatchesWildcard(opts.Principal, p.DisplayName) {
				principalFilter[id] = true
			}
		}
		if len(principalFilter) == 0 {
			log.Warn("principal filter matched no principals", "pattern", opts.Principal)
			return nil, nil
		}
	}

	// Tag and merge the two request collections into one sequence.
	merged := make([]RoleRequest, 0, len(assignments)+len(eligibility))
	for _, r := range assignments {
		r.Type = RequestTypeAssignment
		merged = append(merged, r)
	}
	for _, r := range eligibility {
		r.Type = RequestTypeEligibility
		merged = append(merged, r)
	}

	entries := make([]HistoryEntry, 0, len(merged))
	for _, req := range merged {
		if roleFilter != nil && !roleFilter[req.RoleDefinitionID] {
			continue
		}
		if principalFilter != nil && !principalFilter[req.PrincipalID] {
			continue
		}
		if !opts.IncludeAllStatuses && !terminalStatuses[req.Status] {
			continue
		}

		roleName := ""
		if def, ok := roleDefs[req.RoleDefinitionID]; ok {
			roleName = def.DisplayName
		} else {
			roleName = fmt.Sprintf("Unknown (%s)", req.RoleDefinitionID)
		}

		principal := resolvePrincipal(principals, req.PrincipalID)

		entry := HistoryEntry{
			RequestID:     req.ID,
			Type:          req.Type,
			Action:        labelAction(req.Action),
			Status:        labelStatus(req.Status),
			RoleName:      roleName,
			PrincipalName: principal.DisplayName,
			PrincipalType: principal.Type,
			Justification: req.Justification,
			TicketNumber:  req.TicketNumber,
			TicketSystem:  req.TicketSystem,
			Created:       req.Created,
			ScheduleStart: req.ScheduleStart,
			ScheduleEnd:   req.ScheduleEnd,
		}

		if req.RequestorID != "" {
			entry.RequestorName = resolvePrincipal(principals, req.RequestorID).DisplayName
		}

		if req.ScheduleStart != nil && req.ScheduleEnd != nil {
			d := req.ScheduleEnd.Sub(*req.ScheduleStart)
			entry.Duration = &d
		}

		entries = append(entries, entry)
	}

	// Newest first; stable so records sharing a timestamp keep their input
	// order.
	sort.SliceStable(entries, func(i, j int) bool {
		ti, tj := time.Time{}, time.Time{}
		if entries[i].Created != nil {
			ti = *entries[i].Created
		}
		if entries[j].Created != nil {
			tj = *entries[j].Created
		}
		return ti.After(tj)
	})

	return entries, nil
}

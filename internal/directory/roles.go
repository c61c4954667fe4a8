package directory

import (
	"context"
	"log/slog"
	"sort"
)

// RoleReportOptions controls the role membership report.
type RoleReportOptions struct {
	// OnlyWithMembers suppresses roles that have neither direct nor eligible
	// members.
	OnlyWithMembers bool
}

// roleAccumulator collects per-role membership during the join.
type roleAccumulator struct {
	def     RoleDefinition
	summary RoleSummary

	// Group principals kept whole for the expansion pass
	directGroups []Principal
}

func (a *roleAccumulator) addDirect(p Principal) {
	switch p.Type {
	case PrincipalUser:
		a.summary.DirectUsers = append(a.summary.DirectUsers, p.DisplayName)
	case PrincipalGroup:
		a.summary.DirectGroups = append(a.summary.DirectGroups, p.DisplayName)
		a.directGroups = append(a.directGroups, p)
	case PrincipalServicePrincipal:
		a.summary.DirectServicePrincipals = append(a.summary.DirectServicePrincipals, p.DisplayName)
	default:
		a.summary.DirectUnknown = append(a.summary.DirectUnknown, p.DisplayName)
	}
}

func (a *roleAccumulator) addEligible(p Principal) {
	switch p.Type {
	case PrincipalUser:
		a.summary.EligibleUsers = append(a.summary.EligibleUsers, p.DisplayName)
	case PrincipalGroup:
		a.summary.EligibleGroups = append(a.summary.EligibleGroups, p.DisplayName)
	case PrincipalServicePrincipal:
		a.summary.EligibleServicePrincipals = append(a.summary.EligibleServicePrincipals, p.DisplayName)
	default:
		a.summary.EligibleUnknown = append(a.summary.EligibleUnknown, p.DisplayName)
	}
}

// RoleSummaries fetches the directory, joins assignments and eligibility
// schedules against the principal and role caches, expands role-assignable
// group membership, and returns one summary row per role sorted by role name.
func RoleSummaries(ctx context.Context, f Fetcher, log *slog.Logger, opts RoleReportOptions) ([]RoleSummary, error) {
	if log == nil {
		log = slog.Default()
	}

	snap, err := fetchSnapshot(ctx, f, log)
	if err != nil {
		return nil, err
	}

	principals := principalCache(snap.users, snap.groups, snap.sps)

	roles := make(map[string]*roleAccumulator, len(snap.roles))
	for _, def := range snap.roles {
		roles[def.ID] = &roleAccumulator{def: def}
	}

	// Role ids missing from the bulk result get exactly one fallback lookup;
	// a failed lookup is memoized so later references do not retry.
	failedRoles := make(map[string]bool)
	resolveRole := func(id string) *roleAccumulator {
		if acc, ok := roles[id]; ok {
			return acc
		}
		if failedRoles[id] {
			return nil
		}
		def, err := f.RoleDefinition(ctx, id)
		if err != nil || def == nil {
			log.Warn("role definition lookup failed, dropping its records", "roleId", id, "error", err)
			failedRoles[id] = true
			return nil
		}
		acc := &roleAccumulator{def: *def}
		roles[id] = acc
		return acc
	}

	for _, assignment := range snap.assignments {
		acc := resolveRole(assignment.RoleDefinitionID)
		if acc == nil {
			continue
		}
		acc.addDirect(resolvePrincipal(principals, assignment.PrincipalID))
	}

	for _, eligible := range snap.eligibles {
		acc := resolveRole(eligible.RoleDefinitionID)
		if acc == nil {
			continue
		}
		acc.addEligible(resolvePrincipal(principals, eligible.PrincipalID))
	}

	// Lazy group expansion, at most once per distinct group display name even
	// when several roles share the group. Failed expansions are memoized too.
	groupMembers := make(map[string][]Principal)
	for _, acc := range roles {
		for _, group := range acc.directGroups {
			members, expanded := groupMembers[group.DisplayName]
			if !expanded {
				members, err = f.GroupMembers(ctx, group.ID)
				if err != nil {
					log.Warn("group membership expansion failed", "group", group.DisplayName, "error", err)
					members = nil
				}
				groupMembers[group.DisplayName] = members
			}
			for _, member := range members {
				acc.summary.GroupMembers = append(acc.summary.GroupMembers, member.DisplayName)
			}
		}
	}

	summaries := make([]RoleSummary, 0, len(roles))
	for _, acc := range roles {
		s := acc.summary
		s.RoleID = acc.def.ID
		s.Name = acc.def.DisplayName
		s.Description = acc.def.Description
		s.BuiltIn = acc.def.BuiltIn
		s.Enabled = acc.def.Enabled
		s.PermissionCount = acc.def.PermissionCount

		s.DirectCount = len(s.DirectUsers) + len(s.DirectGroups) + len(s.DirectServicePrincipals) + len(s.DirectUnknown)
		s.EligibleCount = len(s.EligibleUsers) + len(s.EligibleGroups) + len(s.EligibleServicePrincipals) + len(s.EligibleUnknown)
		s.GroupCount = len(s.GroupMembers)
		s.TotalCount = s.DirectCount + s.EligibleCount + s.GroupCount

		if opts.OnlyWithMembers && s.DirectCount == 0 && s.EligibleCount == 0 {
			continue
		}
		summaries = append(summaries, s)
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries, nil
}

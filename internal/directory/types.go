// Package directory implements the role membership and role history reports
// over Microsoft Entra directory data: a fetch stage issuing independent
// paginated queries, id-keyed lookup caches, and a cross-reference join that
// resolves role assignments, eligibility schedules and schedule requests into
// flat report records.
package directory

import (
	"fmt"
	"time"
)

// PrincipalType tags a Principal with its directory object type. The tag is
// assigned once when the lookup caches are built; nothing downstream inspects
// runtime types.
type PrincipalType string

const (
	PrincipalUser             PrincipalType = "User"
	PrincipalGroup            PrincipalType = "Group"
	PrincipalServicePrincipal PrincipalType = "ServicePrincipal"
	PrincipalUnknown          PrincipalType = "Unknown"
)

// Principal is the union over users, groups and service principals, any
// identity that can hold a role. IDs are globally unique across the three
// collections by API contract.
type Principal struct {
	ID          string
	DisplayName string
	Type        PrincipalType
	Enabled     bool

	// User fields
	Mail              string
	UserPrincipalName string

	// Group fields
	SecurityEnabled  bool
	AssignableToRole bool

	// Service principal fields
	AppID                string
	ServicePrincipalType string
}

// unknownPrincipal is the placeholder substituted when an id referenced by an
// assignment, eligibility or request record is absent from the cache.
func unknownPrincipal(id string) Principal {
	return Principal{
		ID:          id,
		DisplayName: fmt.Sprintf("Unknown (%s)", id),
		Type:        PrincipalUnknown,
	}
}

// RoleDefinition describes a directory role.
type RoleDefinition struct {
	ID              string
	DisplayName     string
	Description     string
	BuiltIn         bool
	Enabled         bool
	PermissionCount int
}

// RoleAssignment is a (role, principal) grant. Direct assignments and
// eligibility schedules share this shape; the report keeps them in separate
// collections.
type RoleAssignment struct {
	ID               string
	RoleDefinitionID string
	PrincipalID      string
	DirectoryScopeID string
	Created          *time.Time
}

// RequestType discriminates merged schedule request records by origin.
type RequestType string

const (
	RequestTypeAssignment  RequestType = "Assignment"
	RequestTypeEligibility RequestType = "Eligibility"
)

// RoleRequest is a role assignment or eligibility schedule request: an
// activation, assignment, removal or extension with its approval status and
// schedule window.
type RoleRequest struct {
	ID               string
	Type             RequestType
	RoleDefinitionID string
	PrincipalID      string
	RequestorID      string
	Action           string
	Status           string
	Justification    string
	TicketNumber     string
	TicketSystem     string
	Created          *time.Time
	ScheduleStart    *time.Time
	ScheduleEnd      *time.Time
}

// RoleSummary is the flat output record of the role membership report: one
// row per role with membership broken down by principal type and source.
type RoleSummary struct {
	RoleID          string `json:"roleId"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	BuiltIn         bool   `json:"builtIn"`
	Enabled         bool   `json:"enabled"`
	PermissionCount int    `json:"permissionCount"`

	// Direct membership by principal type (display names)
	DirectUsers             []string `json:"directUsers,omitempty"`
	DirectGroups            []string `json:"directGroups,omitempty"`
	DirectServicePrincipals []string `json:"directServicePrincipals,omitempty"`
	DirectUnknown           []string `json:"directUnknown,omitempty"`

	// Eligible (PIM) membership by principal type
	EligibleUsers             []string `json:"eligibleUsers,omitempty"`
	EligibleGroups            []string `json:"eligibleGroups,omitempty"`
	EligibleServicePrincipals []string `json:"eligibleServicePrincipals,omitempty"`
	EligibleUnknown           []string `json:"eligibleUnknown,omitempty"`

	// Members inherited through role-assignable groups
	GroupMembers []string `json:"groupMembers,omitempty"`

	DirectCount   int `json:"directCount"`
	EligibleCount int `json:"eligibleCount"`
	GroupCount    int `json:"groupCount"`
	TotalCount    int `json:"totalCount"`
}

// HistoryEntry is the flat output record of the role history report.
type HistoryEntry struct {
	RequestID     string         `json:"requestId"`
	Type          RequestType    `json:"type"`
	Action        string         `json:"action"`
	Status        string         `json:"status"`
	RoleName      string         `json:"roleName"`
	PrincipalName string         `json:"principalName"`
	PrincipalType PrincipalType  `json:"principalType"`
	RequestorName string         `json:"requestorName,omitempty"`
	Justification string         `json:"justification,omitempty"`
	TicketNumber  string         `json:"ticketNumber,omitempty"`
	TicketSystem  string         `json:"ticketSystem,omitempty"`
	Created       *time.Time     `json:"created,omitempty"`
	ScheduleStart *time.Time     `json:"scheduleStart,omitempty"`
	ScheduleEnd   *time.Time     `json:"scheduleEnd,omitempty"`
	Duration      *time.Duration `json:"duration,omitempty"`
}

package directory

import (
	"time"

	"github.com/microsoftgraph/msgraph-sdk-go/models"
)

// Shaping from SDK models to report records happens here, once, at fetch
// time. Principal type tags are assigned during this conversion so nothing
// later inspects runtime types.

func userPrincipal(u models.Userable) Principal {
	return Principal{
		ID:                deref(u.GetId()),
		DisplayName:       deref(u.GetDisplayName()),
		Type:              PrincipalUser,
		Enabled:           derefBool(u.GetAccountEnabled()),
		Mail:              deref(u.GetMail()),
		UserPrincipalName: deref(u.GetUserPrincipalName()),
	}
}

func groupPrincipal(g models.Groupable) Principal {
	return Principal{
		ID:               deref(g.GetId()),
		DisplayName:      deref(g.GetDisplayName()),
		Type:             PrincipalGroup,
		Enabled:          true,
		SecurityEnabled:  derefBool(g.GetSecurityEnabled()),
		AssignableToRole: derefBool(g.GetIsAssignableToRole()),
	}
}

func servicePrincipal(sp models.ServicePrincipalable) Principal {
	return Principal{
		ID:                   deref(sp.GetId()),
		DisplayName:          deref(sp.GetDisplayName()),
		Type:                 PrincipalServicePrincipal,
		Enabled:              derefBool(sp.GetAccountEnabled()),
		AppID:                deref(sp.GetAppId()),
		ServicePrincipalType: deref(sp.GetServicePrincipalType()),
	}
}

// directoryObjectPrincipal shapes a member of a group, which the API returns
// as a directory object of any concrete type.
func directoryObjectPrincipal(obj models.DirectoryObjectable) Principal {
	switch v := obj.(type) {
	case models.Userable:
		return userPrincipal(v)
	case models.Groupable:
		return groupPrincipal(v)
	case models.ServicePrincipalable:
		return servicePrincipal(v)
	default:
		return unknownPrincipal(deref(obj.GetId()))
	}
}

func roleDefinition(def models.UnifiedRoleDefinitionable) RoleDefinition {
	return RoleDefinition{
		ID:              deref(def.GetId()),
		DisplayName:     deref(def.GetDisplayName()),
		Description:     deref(def.GetDescription()),
		BuiltIn:         derefBool(def.GetIsBuiltIn()),
		Enabled:         derefBool(def.GetIsEnabled()),
		PermissionCount: len(def.GetRolePermissions()),
	}
}

// scheduleRequestModel is the getter surface shared by assignment and
// eligibility schedule request models.
type scheduleRequestModel interface {
	GetId() *string
	GetRoleDefinitionId() *string
	GetPrincipalId() *string
	GetStatus() *string
	GetAction() *models.UnifiedRoleScheduleRequestActions
	GetJustification() *string
	GetTicketInfo() models.TicketInfoable
	GetCreatedDateTime() *time.Time
	GetCreatedBy() models.IdentitySetable
	GetScheduleInfo() models.RequestScheduleable
}

func assignmentRequest(r models.UnifiedRoleAssignmentScheduleRequestable) RoleRequest {
	return scheduleRequest(r, RequestTypeAssignment)
}

func eligibilityRequest(r models.UnifiedRoleEligibilityScheduleRequestable) RoleRequest {
	return scheduleRequest(r, RequestTypeEligibility)
}

func scheduleRequest(r scheduleRequestModel, requestType RequestType) RoleRequest {
	req := RoleRequest{
		ID:               deref(r.GetId()),
		Type:             requestType,
		RoleDefinitionID: deref(r.GetRoleDefinitionId()),
		PrincipalID:      deref(r.GetPrincipalId()),
		Status:           deref(r.GetStatus()),
		Justification:    deref(r.GetJustification()),
		Created:          r.GetCreatedDateTime(),
	}

	if action := r.GetAction(); action != nil {
		req.Action = action.String()
	}

	if ticket := r.GetTicketInfo(); ticket != nil {
		req.TicketNumber = deref(ticket.GetTicketNumber())
		req.TicketSystem = deref(ticket.GetTicketSystem())
	}

	if createdBy := r.GetCreatedBy(); createdBy != nil {
		if user := createdBy.GetUser(); user != nil {
			req.RequestorID = deref(user.GetId())
		}
	}

	if schedule := r.GetScheduleInfo(); schedule != nil {
		req.ScheduleStart = schedule.GetStartDateTime()
		if expiration := schedule.GetExpiration(); expiration != nil {
			req.ScheduleEnd = expiration.GetEndDateTime()
		}
	}

	return req
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefBool(b *bool) bool {
	if b == nil {
		return false
	}
	return *b
}

func ptr[T any](v T) *T {
	return &v
}

package directory

// actionLabels translates PIM schedule request action codes into
// human-readable labels. Unrecognized codes pass through verbatim.
var actionLabels = map[string]string{
	"adminAssign":    "Assigned by administrator",
	"adminRemove":    "Removed by administrator",
	"adminUpdate":    "Updated by administrator",
	"adminExtend":    "Extended by administrator",
	"adminRenew":     "Renewed by administrator",
	"selfActivate":   "Activated",
	"selfDeactivate": "Deactivated",
	"selfExtend":     "Extension requested",
	"selfRenew":      "Renewal requested",
}

// statusLabels translates schedule request status codes. Unrecognized codes
// pass through verbatim.
var statusLabels = map[string]string{
	"Provisioned":             "Provisioned",
	"Revoked":                 "Revoked",
	"Granted":                 "Granted",
	"Denied":                  "Denied",
	"Canceled":                "Canceled",
	"Failed":                  "Failed",
	"PendingApproval":         "Pending approval",
	"PendingAdminDecision":    "Pending admin decision",
	"PendingProvisioning":     "Pending provisioning",
	"PendingScheduleCreation": "Pending schedule creation",
	"ScheduleCreated":         "Schedule created",
}

// terminalStatuses is the default allow-list for the history report; pending
// and failed requests are excluded unless IncludeAllStatuses is set.
var terminalStatuses = map[string]bool{
	"Provisioned": true,
	"Revoked":     true,
	"Granted":     true,
	"Denied":      true,
}

func labelAction(code string) string {
	if label, ok := actionLabels[code]; ok {
		return label
	}
	return code
}

func labelStatus(code string) string {
	if label, ok := statusLabels[code]; ok {
		return label
	}
	return code
}

package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"entrareport/internal/common/validation"
	"entrareport/internal/common/version"
)

// Supported actions.
const (
	ActionRoles                = "roles"
	ActionRoleHistory          = "rolehistory"
	ActionAppCredentials       = "appcredentials"
	ActionNewAppCredential     = "newappcredential"
	ActionRemoveAppCredentials = "removeappcredentials"
	ActionSecureScore          = "securescore"
	ActionIdentitySensors      = "identitysensors"
	ActionTeams                = "teams"
	ActionAgreements           = "agreements"
	ActionUsageReport          = "usagereport"
	ActionHTMLReport           = "htmlreport"
)

var knownActions = map[string]bool{
	ActionRoles:                true,
	ActionRoleHistory:          true,
	ActionAppCredentials:       true,
	ActionNewAppCredential:     true,
	ActionRemoveAppCredentials: true,
	ActionSecureScore:          true,
	ActionIdentitySensors:      true,
	ActionTeams:                true,
	ActionAgreements:           true,
	ActionUsageReport:          true,
	ActionHTMLReport:           true,
}

// Config holds all application configuration from command-line flags and
// environment variables.
type Config struct {
	// Core configuration
	ShowVersion bool
	TenantID    string
	ClientID    string
	Action      string

	// Authentication (one of Secret or PfxPath)
	Secret  string
	PfxPath string
	PfxPass string

	// Role report and history
	OnlyWithMembers bool
	RoleName        string
	Principal       string
	SinceDays       int
	AllStatuses     bool

	// Application credentials
	AppName         string
	CredentialName  string
	LessThanDays    int // -1 = unset
	GreaterThanDays int // -1 = unset
	ExpiredOnly     bool
	ValidityMonths  int
	WhatIf          bool
	Force           bool

	// Secure score and usage reports
	Top    int
	Report string
	Period string
	Date   string

	// HTML report
	OutputFile  string
	ReportTitle string

	// Runtime configuration
	RequestsPerSecond int
	VerboseMode       bool
	LogLevel          string
	OutputFormat      string
}

// parseAndConfigureFlags defines all command-line flags, parses them, applies
// environment variables, and returns a populated Config. Command-line flags
// take precedence over environment variables.
func parseAndConfigureFlags() *Config {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Entra ID Reporting Toolkit - Version %s\n\n", version.Get())
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(flag.CommandLine.Output(), "\nEnvironment Variables:\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  All string flags can be set via environment variables with the ENTRAREPORT prefix\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  Example: ENTRAREPORTTENANTID, ENTRAREPORTCLIENTID, ENTRAREPORTSECRET\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Examples:\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  %s -tenantid \"...\" -clientid \"...\" -secret \"...\" -action roles\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "  %s -tenantid \"...\" -clientid \"...\" -pfx cert.pfx -action appcredentials -lessthandays 30\n\n", os.Args[0])
	}

	showVersion := flag.Bool("version", false, "Show version information")
	tenantID := flag.String("tenantid", "", "The Entra tenant ID (env: ENTRAREPORTTENANTID)")
	clientID := flag.String("clientid", "", "The application (client) ID (env: ENTRAREPORTCLIENTID)")
	secret := flag.String("secret", "", "The client secret (env: ENTRAREPORTSECRET)")
	pfxPath := flag.String("pfx", "", "Path to the .pfx certificate file (env: ENTRAREPORTPFX)")
	pfxPass := flag.String("pfxpass", "", "Password for the .pfx file (env: ENTRAREPORTPFXPASS)")

	action := flag.String("action", ActionRoles,
		"Action to perform: roles, rolehistory, appcredentials, newappcredential, removeappcredentials, securescore, identitysensors, teams, agreements, usagereport, htmlreport (env: ENTRAREPORTACTION)")

	onlyWithMembers := flag.Bool("onlywithmembers", false, "roles: hide roles without any member")
	roleName := flag.String("rolename", "", "rolehistory: wildcard filter on role display names (env: ENTRAREPORTROLENAME)")
	principal := flag.String("principal", "", "rolehistory: wildcard filter on principal names or UPNs (env: ENTRAREPORTPRINCIPAL)")
	sinceDays := flag.Int("sincedays", 30, "rolehistory: how many days of history to fetch")
	allStatuses := flag.Bool("allstatuses", false, "rolehistory: include pending and failed requests")

	appName := flag.String("appname", "", "appcredentials: exact application display name (env: ENTRAREPORTAPPNAME)")
	credName := flag.String("credentialname", "", "appcredentials: wildcard filter on credential display names (env: ENTRAREPORTCREDENTIALNAME)")
	lessThanDays := flag.Int("lessthandays", -1, "appcredentials: only credentials expiring in at most N days")
	greaterThanDays := flag.Int("greaterthandays", -1, "appcredentials: only credentials expiring in at least N days")
	expiredOnly := flag.Bool("expired", false, "appcredentials: only credentials that are already expired")
	validityMonths := flag.Int("validitymonths", 6, "newappcredential: validity of the new secret in months")
	whatIf := flag.Bool("whatif", false, "removeappcredentials: dry run, report what would be removed without removing")
	force := flag.Bool("force", false, "removeappcredentials: skip per-credential confirmation prompts")

	top := flag.Int("top", 5, "securescore: number of score snapshots to fetch")
	report := flag.String("report", "", "usagereport: report name, e.g. getTeamsUserActivityUserDetail (env: ENTRAREPORTREPORT)")
	period := flag.String("period", "", "usagereport: period D7, D30, D90 or D180 (env: ENTRAREPORTPERIOD)")
	date := flag.String("date", "", "usagereport: single day in YYYY-MM-DD format (env: ENTRAREPORTDATE)")

	outputFile := flag.String("outfile", "entrareport.html", "htmlreport: output file path (env: ENTRAREPORTOUTFILE)")
	reportTitle := flag.String("title", "Entra ID Tenant Report", "htmlreport: document title (env: ENTRAREPORTTITLE)")

	rps := flag.Int("rps", 0, "Outbound Graph requests per second, 0 = default")
	verbose := flag.Bool("verbose", false, "Enable verbose output (shows configuration, token details)")
	logLevel := flag.String("loglevel", "INFO", "Logging level: DEBUG, INFO, WARN, ERROR")
	outputFormat := flag.String("output", "text", "Output format: text, json (env: ENTRAREPORTOUTPUT)")

	flag.Parse()

	applyEnvVars(map[string]envBinding{
		"tenantid":       {"ENTRAREPORTTENANTID", tenantID},
		"clientid":       {"ENTRAREPORTCLIENTID", clientID},
		"secret":         {"ENTRAREPORTSECRET", secret},
		"pfx":            {"ENTRAREPORTPFX", pfxPath},
		"pfxpass":        {"ENTRAREPORTPFXPASS", pfxPass},
		"action":         {"ENTRAREPORTACTION", action},
		"rolename":       {"ENTRAREPORTROLENAME", roleName},
		"principal":      {"ENTRAREPORTPRINCIPAL", principal},
		"appname":        {"ENTRAREPORTAPPNAME", appName},
		"credentialname": {"ENTRAREPORTCREDENTIALNAME", credName},
		"report":         {"ENTRAREPORTREPORT", report},
		"period":         {"ENTRAREPORTPERIOD", period},
		"date":           {"ENTRAREPORTDATE", date},
		"outfile":        {"ENTRAREPORTOUTFILE", outputFile},
		"title":          {"ENTRAREPORTTITLE", reportTitle},
		"output":         {"ENTRAREPORTOUTPUT", outputFormat},
	})
	applyEnvInt("sincedays", sinceDays, "ENTRAREPORTSINCEDAYS")
	applyEnvInt("top", top, "ENTRAREPORTTOP")

	return &Config{
		ShowVersion:       *showVersion,
		TenantID:          *tenantID,
		ClientID:          *clientID,
		Action:            strings.ToLower(*action),
		Secret:            *secret,
		PfxPath:           *pfxPath,
		PfxPass:           *pfxPass,
		OnlyWithMembers:   *onlyWithMembers,
		RoleName:          *roleName,
		Principal:         *principal,
		SinceDays:         *sinceDays,
		AllStatuses:       *allStatuses,
		AppName:           *appName,
		CredentialName:    *credName,
		LessThanDays:      *lessThanDays,
		GreaterThanDays:   *greaterThanDays,
		ExpiredOnly:       *expiredOnly,
		ValidityMonths:    *validityMonths,
		WhatIf:            *whatIf,
		Force:             *force,
		Top:               *top,
		Report:            *report,
		Period:            *period,
		Date:              *date,
		OutputFile:        *outputFile,
		ReportTitle:       *reportTitle,
		RequestsPerSecond: *rps,
		VerboseMode:       *verbose,
		LogLevel:          *logLevel,
		OutputFormat:      strings.ToLower(*outputFormat),
	}
}

type envBinding struct {
	env    string
	target *string
}

// applyEnvVars fills string flags from environment variables unless the flag
// was given on the command line.
func applyEnvVars(bindings map[string]envBinding) {
	provided := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { provided[f.Name] = true })

	for flagName, b := range bindings {
		if provided[flagName] {
			continue
		}
		if value := os.Getenv(b.env); value != "" {
			*b.target = value
		}
	}
}

// applyEnvInt fills an int flag from an environment variable unless the flag
// was given on the command line.
func applyEnvInt(flagName string, target *int, env string) {
	provided := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == flagName {
			provided = true
		}
	})
	if provided {
		return
	}
	if value := os.Getenv(env); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			*target = parsed
		}
	}
}

// validateConfiguration checks that the configuration is complete enough for
// the requested action before any network call is made.
func validateConfiguration(config *Config) error {
	if err := validation.ValidateGUID(config.TenantID, "tenantid"); err != nil {
		return err
	}
	if err := validation.ValidateGUID(config.ClientID, "clientid"); err != nil {
		return err
	}

	if config.Secret == "" && config.PfxPath == "" {
		return fmt.Errorf("no authentication method provided (use -secret or -pfx)")
	}
	if config.Secret != "" && config.PfxPath != "" {
		return fmt.Errorf("-secret and -pfx are mutually exclusive")
	}

	if !knownActions[config.Action] {
		return fmt.Errorf("unknown action: %s", config.Action)
	}

	if config.OutputFormat != "text" && config.OutputFormat != "json" {
		return fmt.Errorf("invalid output format %q, expected text or json", config.OutputFormat)
	}

	switch config.Action {
	case ActionNewAppCredential:
		if config.AppName == "" {
			return fmt.Errorf("-appname is required for %s", ActionNewAppCredential)
		}
		if config.CredentialName == "" {
			return fmt.Errorf("-credentialname is required for %s", ActionNewAppCredential)
		}
		if config.ValidityMonths <= 0 {
			return fmt.Errorf("-validitymonths must be positive")
		}
	case ActionRemoveAppCredentials:
		if config.AppName == "" && config.CredentialName == "" &&
			config.LessThanDays < 0 && config.GreaterThanDays < 0 && !config.ExpiredOnly {
			return fmt.Errorf("%s needs at least one filter (-appname, -credentialname, -lessthandays, -greaterthandays or -expired)", ActionRemoveAppCredentials)
		}
	case ActionUsageReport:
		if config.Report == "" {
			return fmt.Errorf("-report is required for %s", ActionUsageReport)
		}
	case ActionRoleHistory:
		if config.SinceDays <= 0 {
			return fmt.Errorf("-sincedays must be positive")
		}
	}

	return nil
}

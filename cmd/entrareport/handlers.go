package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"

	"entrareport/internal/appcreds"
	"entrareport/internal/common/logger"
	"entrareport/internal/common/security"
	"entrareport/internal/common/version"
	"entrareport/internal/defender"
	"entrareport/internal/directory"
	"entrareport/internal/governance"
	"entrareport/internal/graph"
	"entrareport/internal/htmlreport"
	"entrareport/internal/reports"
	"entrareport/internal/teams"
)

// executeAction dispatches to the handler for config.Action. Every handler
// writes audit rows to the CSV logger when one is available.
func executeAction(ctx context.Context, client *graph.Client, config *Config, log *slog.Logger, csvLogger *logger.CSVLogger) error {
	switch config.Action {
	case ActionRoles:
		return handleRoles(ctx, client, config, log, csvLogger)
	case ActionRoleHistory:
		return handleRoleHistory(ctx, client, config, log, csvLogger)
	case ActionAppCredentials:
		return handleAppCredentials(ctx, client, config, log, csvLogger)
	case ActionNewAppCredential:
		return handleNewAppCredential(ctx, client, config, log, csvLogger)
	case ActionRemoveAppCredentials:
		return handleRemoveAppCredentials(ctx, client, config, log, csvLogger)
	case ActionSecureScore:
		return handleSecureScore(ctx, client, config, log, csvLogger)
	case ActionIdentitySensors:
		return handleIdentitySensors(ctx, client, config, log, csvLogger)
	case ActionTeams:
		return handleTeams(ctx, client, config, log, csvLogger)
	case ActionAgreements:
		return handleAgreements(ctx, client, config, log, csvLogger)
	case ActionUsageReport:
		return handleUsageReport(ctx, client, config, log, csvLogger)
	case ActionHTMLReport:
		return handleHTMLReport(ctx, client, config, log)
	default:
		return fmt.Errorf("unknown action: %s", config.Action)
	}
}

func handleRoles(ctx context.Context, client *graph.Client, config *Config, log *slog.Logger, csvLogger *logger.CSVLogger) error {
	summaries, err := directory.RoleSummaries(ctx, directory.NewGraphFetcher(client), log,
		directory.RoleReportOptions{OnlyWithMembers: config.OnlyWithMembers})
	if err != nil {
		return fmt.Errorf("failed to build role report: %w", err)
	}

	if csvLogger != nil {
		csvLogger.WriteHeader([]string{"Role", "DirectCount", "EligibleCount", "GroupCount", "TotalCount"})
		for _, s := range summaries {
			csvLogger.WriteRow([]string{
				s.Name,
				strconv.Itoa(s.DirectCount),
				strconv.Itoa(s.EligibleCount),
				strconv.Itoa(s.GroupCount),
				strconv.Itoa(s.TotalCount),
			})
		}
	}

	if config.OutputFormat == "json" {
		return printJSON(summaries)
	}

	bold := color.New(color.Bold)
	fmt.Printf("Directory roles (%d):\n\n", len(summaries))
	for _, s := range summaries {
		bold.Printf("%s", s.Name)
		fmt.Printf("  [direct %d, eligible %d, via groups %d]\n", s.DirectCount, s.EligibleCount, s.GroupCount)
		if len(s.DirectUsers) > 0 {
			fmt.Printf("  Direct users:       %s\n", joinNames(s.DirectUsers))
		}
		if len(s.DirectGroups) > 0 {
			fmt.Printf("  Direct groups:      %s\n", joinNames(s.DirectGroups))
		}
		if len(s.DirectServicePrincipals) > 0 {
			fmt.Printf("  Service principals: %s\n", joinNames(s.DirectServicePrincipals))
		}
		if len(s.DirectUnknown) > 0 {
			fmt.Printf("  Unresolved:         %s\n", joinNames(s.DirectUnknown))
		}
		if len(s.EligibleUsers) > 0 {
			fmt.Printf("  Eligible users:     %s\n", joinNames(s.EligibleUsers))
		}
		if len(s.GroupMembers) > 0 {
			fmt.Printf("  Via group:          %s\n", joinNames(s.GroupMembers))
		}
		fmt.Println()
	}
	return nil
}

func handleRoleHistory(ctx context.Context, client *graph.Client, config *Config, log *slog.Logger, csvLogger *logger.CSVLogger) error {
	entries, err := directory.RoleHistory(ctx, directory.NewGraphFetcher(client), log, directory.HistoryOptions{
		RoleName:           config.RoleName,
		Principal:          config.Principal,
		Since:              time.Now().AddDate(0, 0, -config.SinceDays),
		IncludeAllStatuses: config.AllStatuses,
	})
	if err != nil {
		return fmt.Errorf("failed to build role history: %w", err)
	}

	if csvLogger != nil {
		csvLogger.WriteHeader([]string{"Created", "Role", "Principal", "Kind", "Action", "Status"})
		for _, e := range entries {
			csvLogger.WriteRow([]string{
				formatTimePtr(e.Created, time.RFC3339),
				e.RoleName, e.PrincipalName, string(e.Type), e.Action, e.Status,
			})
		}
	}

	if config.OutputFormat == "json" {
		return printJSON(entries)
	}

	fmt.Printf("Role history, last %d days (%d entries):\n\n", config.SinceDays, len(entries))
	for _, e := range entries {
		duration := ""
		if e.Duration != nil {
			duration = fmt.Sprintf(" for %s", e.Duration)
		}
		fmt.Printf("%s  %-22s %-30s %s (%s)%s\n",
			formatTimePtr(e.Created, "2006-01-02 15:04"),
			e.Action, e.RoleName, e.PrincipalName, e.Status, duration)
	}
	return nil
}

func credentialFilter(config *Config) appcreds.FilterOptions {
	opts := appcreds.FilterOptions{
		ApplicationName: config.AppName,
		DisplayName:     config.CredentialName,
		ExpiredOnly:     config.ExpiredOnly,
	}
	if config.LessThanDays >= 0 {
		opts.LessThanDaysToExpire = &config.LessThanDays
	}
	if config.GreaterThanDays >= 0 {
		opts.GreaterThanDaysToExpire = &config.GreaterThanDays
	}
	return opts
}

func handleAppCredentials(ctx context.Context, client *graph.Client, config *Config, log *slog.Logger, csvLogger *logger.CSVLogger) error {
	creds, err := appcreds.Inspect(ctx, appcreds.NewGraphStore(client), log, credentialFilter(config))
	if err != nil {
		return fmt.Errorf("failed to inspect application credentials: %w", err)
	}

	if csvLogger != nil {
		csvLogger.WriteHeader([]string{"Application", "Credential", "Type", "KeyID", "End", "DaysToExpire"})
		for _, c := range creds {
			days := ""
			if c.DaysToExpire != nil {
				days = strconv.Itoa(*c.DaysToExpire)
			}
			csvLogger.WriteRow([]string{
				c.ApplicationName, c.DisplayName, string(c.Type), c.KeyID,
				formatTimePtr(c.End, time.RFC3339), days,
			})
		}
	}

	if config.OutputFormat == "json" {
		return printJSON(creds)
	}

	red := color.New(color.FgRed)
	fmt.Printf("Application credentials (%d):\n\n", len(creds))
	for _, c := range creds {
		line := fmt.Sprintf("%-30s %-25s %-11s ends %s", c.ApplicationName, c.DisplayName, c.Type,
			formatTimePtr(c.End, "2006-01-02"))
		if c.DaysToExpire != nil {
			line += fmt.Sprintf(" (%d days)", *c.DaysToExpire)
		}
		if c.Expired != nil && *c.Expired {
			red.Printf("%s EXPIRED\n", line)
		} else {
			fmt.Println(line)
		}
	}
	return nil
}

func handleNewAppCredential(ctx context.Context, client *graph.Client, config *Config, log *slog.Logger, csvLogger *logger.CSVLogger) error {
	cred, err := appcreds.CreatePassword(ctx, appcreds.NewGraphStore(client), log, appcreds.CreateOptions{
		ApplicationName: config.AppName,
		DisplayName:     config.CredentialName,
		ValidityMonths:  config.ValidityMonths,
	})
	if err != nil {
		log.Warn("credential creation failed", "application", config.AppName, "error", err)
		return err
	}

	if csvLogger != nil {
		csvLogger.WriteHeader([]string{"Application", "Credential", "KeyID", "End"})
		csvLogger.WriteRow([]string{config.AppName, cred.DisplayName, cred.KeyID, formatTimePtr(cred.End, time.RFC3339)})
	}
	log.Info("password credential created",
		"application", config.AppName, "keyId", cred.KeyID, "secret", security.MaskSecret(cred.SecretText))

	if config.OutputFormat == "json" {
		return printJSON(cred)
	}

	fmt.Printf("Created password credential %q on %q\n", cred.DisplayName, config.AppName)
	fmt.Printf("Key ID: %s\n", cred.KeyID)
	fmt.Printf("Expires: %s\n", formatTimePtr(cred.End, "2006-01-02"))
	color.New(color.FgYellow).Println("\nStore the secret now, it cannot be retrieved again:")
	fmt.Println(cred.SecretText)
	return nil
}

func handleRemoveAppCredentials(ctx context.Context, client *graph.Client, config *Config, log *slog.Logger, csvLogger *logger.CSVLogger) error {
	opts := appcreds.RemoveOptions{
		Filter: credentialFilter(config),
		WhatIf: config.WhatIf,
	}
	if !config.Force && !config.WhatIf {
		opts.Confirm = func(cred appcreds.Credential) bool {
			return confirmPrompt(fmt.Sprintf("Remove %s credential %q (key %s) from %q?",
				cred.Type, cred.DisplayName, cred.KeyID, cred.ApplicationName))
		}
	}

	results, err := appcreds.Remove(ctx, appcreds.NewGraphStore(client), log, opts)
	if err != nil {
		return fmt.Errorf("failed to remove application credentials: %w", err)
	}

	if csvLogger != nil {
		csvLogger.WriteHeader([]string{"Application", "Credential", "KeyID", "Status", "Error"})
		for _, r := range results {
			csvLogger.WriteRow([]string{
				r.Credential.ApplicationName, r.Credential.DisplayName, r.Credential.KeyID,
				string(r.Status), r.Error,
			})
		}
	}

	if config.OutputFormat == "json" {
		return printJSON(results)
	}

	for _, r := range results {
		suffix := ""
		if r.Error != "" {
			suffix = ": " + r.Error
		}
		fmt.Printf("%-9s %s / %s (key %s)%s\n",
			r.Status, r.Credential.ApplicationName, r.Credential.DisplayName, r.Credential.KeyID, suffix)
	}
	if config.WhatIf {
		fmt.Printf("\nDry run: %d credential(s) would be removed. Re-run without -whatif to remove them.\n", len(results))
	}
	return nil
}

func handleSecureScore(ctx context.Context, client *graph.Client, config *Config, log *slog.Logger, csvLogger *logger.CSVLogger) error {
	fetcher := defender.NewGraphFetcher(client)
	scores, err := defender.SecureScores(ctx, fetcher, log, int32(config.Top))
	if err != nil {
		return fmt.Errorf("failed to fetch secure scores: %w", err)
	}
	controls, err := defender.ControlStatuses(ctx, fetcher, log)
	if err != nil {
		return fmt.Errorf("failed to fetch secure score controls: %w", err)
	}

	if csvLogger != nil {
		csvLogger.WriteHeader([]string{"Date", "CurrentScore", "MaxScore"})
		for _, s := range scores {
			csvLogger.WriteRow([]string{
				formatTimePtr(s.Created, "2006-01-02"),
				fmt.Sprintf("%.2f", s.CurrentScore),
				fmt.Sprintf("%.2f", s.MaxScore),
			})
		}
	}

	if config.OutputFormat == "json" {
		return printJSON(struct {
			Scores   []defender.Score         `json:"scores"`
			Controls []defender.ControlStatus `json:"controls"`
		}{scores, controls})
	}

	fmt.Printf("Secure score history (%d snapshots):\n", len(scores))
	for _, s := range scores {
		percent := 0.0
		if s.MaxScore > 0 {
			percent = 100 * s.CurrentScore / s.MaxScore
		}
		fmt.Printf("  %s  %.1f / %.1f (%.1f%%)\n",
			formatTimePtr(s.Created, "2006-01-02"), s.CurrentScore, s.MaxScore, percent)
	}

	fmt.Printf("\nControls (%d):\n", len(controls))
	for _, c := range controls {
		fmt.Printf("  %-12s %-50s %.1f/%.1f %s\n", c.Category, c.Title, c.Score, c.MaxScore, c.State)
	}
	return nil
}

func handleIdentitySensors(ctx context.Context, client *graph.Client, config *Config, log *slog.Logger, csvLogger *logger.CSVLogger) error {
	sensors, err := defender.Sensors(ctx, client.REST, log)
	if err != nil {
		return fmt.Errorf("failed to fetch identity sensors: %w", err)
	}
	deployment, err := defender.Deployment(ctx, client.REST, log)
	if err != nil {
		return fmt.Errorf("failed to fetch sensor deployment info: %w", err)
	}

	if csvLogger != nil {
		csvLogger.WriteHeader([]string{"Sensor", "Type", "Version", "Health", "Domain"})
		for _, s := range sensors {
			csvLogger.WriteRow([]string{s.DisplayName, s.SensorType, s.Version, s.HealthStatus, s.DomainName})
		}
	}

	if config.OutputFormat == "json" {
		return printJSON(struct {
			Sensors    []defender.Sensor        `json:"sensors"`
			Deployment *defender.DeploymentInfo `json:"deployment"`
		}{sensors, deployment})
	}

	fmt.Printf("Defender for Identity sensors (%d):\n", len(sensors))
	for _, s := range sensors {
		fmt.Printf("  %-25s %-30s v%-12s %s\n", s.DisplayName, s.SensorType, s.Version, s.HealthStatus)
	}
	fmt.Println("\nDeployment:")
	fmt.Printf("  Package URI: %s\n", deployment.PackageURI)
	fmt.Printf("  Access key (masked): %s\n", security.MaskSecret(deployment.AccessKey))
	fmt.Println("  Use -output json to obtain the full access key.")
	return nil
}

func handleTeams(ctx context.Context, client *graph.Client, config *Config, log *slog.Logger, csvLogger *logger.CSVLogger) error {
	list, err := teams.Inventory(ctx, teams.NewGraphFetcher(client), log)
	if err != nil {
		return fmt.Errorf("failed to inventory teams: %w", err)
	}

	if csvLogger != nil {
		csvLogger.WriteHeader([]string{"Team", "Visibility", "Owners"})
		for _, t := range list {
			csvLogger.WriteRow([]string{t.DisplayName, t.Visibility, joinNames(t.Owners)})
		}
	}

	if config.OutputFormat == "json" {
		return printJSON(list)
	}

	fmt.Printf("Teams (%d):\n\n", len(list))
	for _, t := range list {
		fmt.Printf("%-40s %-8s owners: %s\n", t.DisplayName, t.Visibility, joinNames(t.Owners))
	}
	return nil
}

func handleAgreements(ctx context.Context, client *graph.Client, config *Config, log *slog.Logger, csvLogger *logger.CSVLogger) error {
	list, err := governance.Agreements(ctx, governance.NewGraphFetcher(client), log)
	if err != nil {
		return fmt.Errorf("failed to fetch agreements: %w", err)
	}

	if csvLogger != nil {
		csvLogger.WriteHeader([]string{"Agreement", "ViewRequired", "Files"})
		for _, a := range list {
			csvLogger.WriteRow([]string{a.DisplayName, strconv.FormatBool(a.ViewRequired), strconv.Itoa(a.FileCount)})
		}
	}

	if config.OutputFormat == "json" {
		return printJSON(list)
	}

	fmt.Printf("Terms-of-use agreements (%d):\n\n", len(list))
	for _, a := range list {
		fmt.Printf("%-40s view required: %-5t files: %d\n", a.DisplayName, a.ViewRequired, a.FileCount)
	}
	return nil
}

func handleUsageReport(ctx context.Context, client *graph.Client, config *Config, log *slog.Logger, csvLogger *logger.CSVLogger) error {
	opts := reports.Options{Report: config.Report, Period: config.Period}
	if config.Date != "" {
		parsed, err := time.Parse("2006-01-02", config.Date)
		if err != nil {
			return fmt.Errorf("invalid -date %q, expected YYYY-MM-DD: %w", config.Date, err)
		}
		opts.Date = parsed
	}

	report, err := reports.Fetch(ctx, client.REST, log, opts)
	if err != nil {
		return fmt.Errorf("failed to download usage report: %w", err)
	}

	if csvLogger != nil {
		csvLogger.WriteHeader(report.Columns)
		for _, row := range report.Rows {
			record := make([]string, len(report.Columns))
			for i, col := range report.Columns {
				record[i] = row[col]
			}
			csvLogger.WriteRow(record)
		}
	}

	if config.OutputFormat == "json" {
		return printJSON(report)
	}

	fmt.Printf("Usage report %s: %d rows\n", report.Name, len(report.Rows))
	if csvLogger != nil {
		fmt.Printf("Full data written to %s\n", csvLogger.Path())
	}
	return nil
}

// handleHTMLReport collects the main data sets and renders them into one
// static document. A failed section is skipped with a warning so the report
// still covers what could be fetched.
func handleHTMLReport(ctx context.Context, client *graph.Client, config *Config, log *slog.Logger) error {
	var sections []htmlreport.Section

	dirFetcher := directory.NewGraphFetcher(client)

	summaries, err := directory.RoleSummaries(ctx, dirFetcher, log,
		directory.RoleReportOptions{OnlyWithMembers: config.OnlyWithMembers})
	if err != nil {
		log.Warn("skipping role section", "error", err)
	} else {
		sections = append(sections, htmlreport.RoleSection(summaries))
	}

	history, err := directory.RoleHistory(ctx, dirFetcher, log, directory.HistoryOptions{
		Since:              time.Now().AddDate(0, 0, -config.SinceDays),
		IncludeAllStatuses: config.AllStatuses,
	})
	if err != nil {
		log.Warn("skipping history section", "error", err)
	} else {
		sections = append(sections, htmlreport.HistorySection(history))
	}

	creds, err := appcreds.Inspect(ctx, appcreds.NewGraphStore(client), log, appcreds.FilterOptions{})
	if err != nil {
		log.Warn("skipping credential section", "error", err)
	} else {
		sections = append(sections, htmlreport.CredentialSection(creds))
	}

	scores, err := defender.SecureScores(ctx, defender.NewGraphFetcher(client), log, int32(config.Top))
	if err != nil {
		log.Warn("skipping secure score section", "error", err)
	} else {
		sections = append(sections, htmlreport.SecureScoreSection(scores))
	}

	if len(sections) == 0 {
		return fmt.Errorf("no report section could be built")
	}

	file, err := os.Create(config.OutputFile)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	rc := htmlreport.ReportContext{
		Title:     config.ReportTitle,
		Version:   version.Get(),
		Generated: time.Now(),
	}
	if err := htmlreport.Render(file, rc, sections...); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	fmt.Printf("Report with %d section(s) written to %s\n", len(sections), config.OutputFile)
	return nil
}

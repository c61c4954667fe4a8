package main

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		TenantID:        "11111111-1111-1111-1111-111111111111",
		ClientID:        "22222222-2222-2222-2222-222222222222",
		Secret:          "s3cret",
		Action:          ActionRoles,
		SinceDays:       30,
		ValidityMonths:  6,
		LessThanDays:    -1,
		GreaterThanDays: -1,
		OutputFormat:    "text",
	}
}

func TestValidateConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad tenant guid", func(c *Config) { c.TenantID = "not-a-guid" }, "tenantid"},
		{"missing auth", func(c *Config) { c.Secret = "" }, "authentication"},
		{"both auth methods", func(c *Config) { c.PfxPath = "cert.pfx" }, "mutually exclusive"},
		{"unknown action", func(c *Config) { c.Action = "frobnicate" }, "unknown action"},
		{"bad output format", func(c *Config) { c.OutputFormat = "yaml" }, "output format"},
		{"new credential without app", func(c *Config) {
			c.Action = ActionNewAppCredential
			c.CredentialName = "rotation"
		}, "-appname"},
		{"new credential without name", func(c *Config) {
			c.Action = ActionNewAppCredential
			c.AppName = "Billing API"
		}, "-credentialname"},
		{"removal without any filter", func(c *Config) {
			c.Action = ActionRemoveAppCredentials
		}, "at least one filter"},
		{"removal with expiry filter ok", func(c *Config) {
			c.Action = ActionRemoveAppCredentials
			c.ExpiredOnly = true
		}, ""},
		{"usage report without name", func(c *Config) {
			c.Action = ActionUsageReport
		}, "-report"},
		{"history with zero window", func(c *Config) {
			c.Action = ActionRoleHistory
			c.SinceDays = 0
		}, "-sincedays"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(config)

			err := validateConfiguration(config)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestCredentialFilterSentinels(t *testing.T) {
	config := validConfig()
	opts := credentialFilter(config)
	if opts.LessThanDaysToExpire != nil || opts.GreaterThanDaysToExpire != nil {
		t.Fatal("sentinel -1 must map to unset filters")
	}

	config.LessThanDays = 0
	opts = credentialFilter(config)
	if opts.LessThanDaysToExpire == nil || *opts.LessThanDaysToExpire != 0 {
		t.Fatal("zero is a valid lessthandays value and must be kept")
	}
}

package htmlreport

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entrareport/internal/appcreds"
	"entrareport/internal/directory"
)

func testContext() ReportContext {
	return ReportContext{
		Title:     "Tenant Report",
		Version:   "1.0.0",
		Generated: time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
	}
}

func TestRenderUsesContextNotProcessState(t *testing.T) {
	var buf strings.Builder
	err := Render(&buf, testContext(),
		RoleSection([]directory.RoleSummary{
			{Name: "Global Administrator", DirectUsers: []string{"Alice", "Bob"}, TotalCount: 2},
		}),
	)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "<!doctype html>")
	assert.Contains(t, out, "<title>Tenant Report</title>")
	assert.Contains(t, out, "entrareport 1.0.0")
	assert.Contains(t, out, "2026-08-25")
	assert.Contains(t, out, "Global Administrator")
	assert.Contains(t, out, "Alice, Bob")
}

func TestRenderEscapesRecordValues(t *testing.T) {
	var buf strings.Builder
	err := Render(&buf, testContext(),
		RoleSection([]directory.RoleSummary{
			{Name: `<script>alert("x")</script>`},
		}),
	)
	require.NoError(t, err)

	out := buf.String()
	assert.NotContains(t, out, `<script>alert`)
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestCredentialSectionFormatsOptionalFields(t *testing.T) {
	end := time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC)
	expired := false
	days := 10

	sec := CredentialSection([]appcreds.Credential{
		{
			ApplicationName: "Billing API",
			DisplayName:     "rotated secret",
			Type:            appcreds.TypePassword,
			KeyID:           "22222222-2222-2222-2222-222222222222",
			End:             &end,
			Expired:         &expired,
			DaysToExpire:    &days,
		},
		{ApplicationName: "No Expiry App", Type: appcreds.TypeCertificate},
	})

	var buf strings.Builder
	require.NoError(t, Render(&buf, testContext(), sec))

	out := buf.String()
	assert.Contains(t, out, "2026-09-04")
	assert.Contains(t, out, "<td>10</td>")
	assert.Contains(t, out, "<td>false</td>")
	// The credential without an end date renders empty cells, not zeros.
	assert.NotContains(t, out, "0001-01-01")
}

func TestEmptySectionRendersPlaceholder(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, Render(&buf, testContext(), HistorySection(nil)))

	out := buf.String()
	assert.Contains(t, out, "No records.")
	assert.NotContains(t, out, "<table>")
}

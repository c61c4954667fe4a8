// Package reports downloads Microsoft 365 usage reports. The report
// endpoints return raw CSV rather than an OData collection, so they go
// through the plain REST client.
package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"entrareport/internal/graph"
)

// Periods accepted by the period-style report endpoints.
var validPeriods = map[string]bool{
	"D7":   true,
	"D30":  true,
	"D90":  true,
	"D180": true,
}

// reportNames is the allow-list of report functions this tool will call.
// Anything else is rejected before a request is built.
var reportNames = map[string]bool{
	"getEmailActivityUserDetail":       true,
	"getEmailAppUsageUserDetail":       true,
	"getMailboxUsageDetail":            true,
	"getOffice365ActiveUserDetail":     true,
	"getOffice365GroupsActivityDetail": true,
	"getOneDriveActivityUserDetail":    true,
	"getOneDriveUsageAccountDetail":    true,
	"getSharePointActivityUserDetail":  true,
	"getSharePointSiteUsageDetail":     true,
	"getTeamsDeviceUsageUserDetail":    true,
	"getTeamsUserActivityUserDetail":   true,
	"getYammerActivityUserDetail":      true,
}

// Options selects a report. Exactly one of Period and Date must be set.
type Options struct {
	Report string
	Period string
	Date   time.Time
}

// Report is a parsed usage report: the CSV header plus one header-keyed map
// per data row.
type Report struct {
	Name    string              `json:"name"`
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
}

type restGetter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// KnownReports returns the allow-listed report names, sorted.
func KnownReports() []string {
	out := make([]string, 0, len(reportNames))
	for name := range reportNames {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (o Options) validate() error {
	if !reportNames[o.Report] {
		return fmt.Errorf("unknown report %q, known reports: %s", o.Report, strings.Join(KnownReports(), ", "))
	}
	hasPeriod := o.Period != ""
	hasDate := !o.Date.IsZero()
	switch {
	case hasPeriod && hasDate:
		return fmt.Errorf("period and date are mutually exclusive")
	case !hasPeriod && !hasDate:
		return fmt.Errorf("either a period or a date is required")
	case hasPeriod && !validPeriods[o.Period]:
		return fmt.Errorf("invalid period %q, expected one of D7, D30, D90, D180", o.Period)
	}
	return nil
}

func (o Options) url() string {
	if o.Period != "" {
		return fmt.Sprintf("%s/reports/%s(period='%s')", graph.EndpointV1, o.Report, o.Period)
	}
	return fmt.Sprintf("%s/reports/%s(date=%s)", graph.EndpointV1, o.Report, o.Date.Format("2006-01-02"))
}

// Fetch downloads and parses one usage report.
func Fetch(ctx context.Context, rest restGetter, log *slog.Logger, opts Options) (*Report, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	body, err := rest.Get(ctx, opts.url())
	if err != nil {
		return nil, fmt.Errorf("downloading report %s: %w", opts.Report, err)
	}

	report, err := parseCSV(opts.Report, body)
	if err != nil {
		return nil, err
	}
	log.Debug("usage report downloaded", "report", opts.Report, "rows", len(report.Rows))
	return report, nil
}

// parseCSV turns the report body into header-keyed rows. Report downloads
// start with a UTF-8 byte-order marker, which is stripped first.
func parseCSV(name string, body []byte) (*Report, error) {
	body = bytes.TrimPrefix(body, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("report %s is empty", name)
	}

	header := records[0]
	report := &Report{Name: name, Columns: header}
	for _, record := range records[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}

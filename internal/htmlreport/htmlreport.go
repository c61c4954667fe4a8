// Package htmlreport renders collected records into a single static HTML
// document. Rendering is pure: everything a page needs arrives through
// ReportContext and the section values, nothing is read from process state.
package htmlreport

import (
	"fmt"
	"io"
	"strings"
	"time"

	. "maragu.dev/gomponents"
	"maragu.dev/gomponents/html"

	"entrareport/internal/appcreds"
	"entrareport/internal/defender"
	"entrareport/internal/directory"
)

// ReportContext carries the page-level metadata every render call needs.
type ReportContext struct {
	Title     string
	Version   string
	Generated time.Time
}

// Section is one titled block of the report.
type Section struct {
	Title string
	Body  Node
}

// Render writes the full document for the given sections.
func Render(w io.Writer, rc ReportContext, sections ...Section) error {
	blocks := make([]Node, 0, len(sections))
	for _, s := range sections {
		blocks = append(blocks, html.Div(html.Class("section"),
			html.H2(Text(s.Title)),
			s.Body,
		))
	}

	page := html.Doctype(html.HTML(
		html.Lang("en"),
		html.Head(
			html.Meta(html.Charset("utf-8")),
			html.TitleEl(Text(rc.Title)),
			html.StyleEl(Text(pageCSS)),
		),
		html.Body(
			html.Header(
				html.H1(Text(rc.Title)),
				html.P(html.Class("meta"), Text(fmt.Sprintf("Generated %s by entrareport %s",
					rc.Generated.Format("2006-01-02 15:04:05 MST"), rc.Version))),
			),
			html.Main(Group(blocks)),
		),
	))
	return page.Render(w)
}

// RoleSection renders the role membership summaries.
func RoleSection(summaries []directory.RoleSummary) Section {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.Name,
			joined(s.DirectUsers),
			joined(s.DirectGroups),
			joined(s.DirectServicePrincipals),
			joined(s.EligibleUsers),
			joined(s.GroupMembers),
			fmt.Sprint(s.TotalCount),
		})
	}
	return Section{
		Title: "Directory roles",
		Body: dataTable(
			[]string{"Role", "Direct users", "Direct groups", "Service principals", "Eligible users", "Via group", "Total"},
			rows),
	}
}

// HistorySection renders the role activation and assignment history.
func HistorySection(entries []directory.HistoryEntry) Section {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		created := ""
		if e.Created != nil {
			created = e.Created.Format("2006-01-02 15:04")
		}
		duration := ""
		if e.Duration != nil {
			duration = e.Duration.String()
		}
		rows = append(rows, []string{
			created, e.RoleName, e.PrincipalName, string(e.Type), e.Action, e.Status, duration,
		})
	}
	return Section{
		Title: "Role history",
		Body: dataTable(
			[]string{"Created", "Role", "Principal", "Kind", "Action", "Status", "Duration"},
			rows),
	}
}

// CredentialSection renders the application credential report.
func CredentialSection(creds []appcreds.Credential) Section {
	rows := make([][]string, 0, len(creds))
	for _, c := range creds {
		end := ""
		if c.End != nil {
			end = c.End.Format("2006-01-02")
		}
		days := ""
		if c.DaysToExpire != nil {
			days = fmt.Sprint(*c.DaysToExpire)
		}
		expired := ""
		if c.Expired != nil {
			expired = fmt.Sprint(*c.Expired)
		}
		rows = append(rows, []string{
			c.ApplicationName, c.DisplayName, string(c.Type), c.KeyID, end, days, expired,
		})
	}
	return Section{
		Title: "Application credentials",
		Body: dataTable(
			[]string{"Application", "Credential", "Type", "Key ID", "End", "Days left", "Expired"},
			rows),
	}
}

// SecureScoreSection renders secure score snapshots.
func SecureScoreSection(scores []defender.Score) Section {
	rows := make([][]string, 0, len(scores))
	for _, s := range scores {
		created := ""
		if s.Created != nil {
			created = s.Created.Format("2006-01-02")
		}
		percent := ""
		if s.MaxScore > 0 {
			percent = fmt.Sprintf("%.1f%%", 100*s.CurrentScore/s.MaxScore)
		}
		rows = append(rows, []string{
			created,
			fmt.Sprintf("%.1f", s.CurrentScore),
			fmt.Sprintf("%.1f", s.MaxScore),
			percent,
			fmt.Sprint(s.ActiveUserCount),
		})
	}
	return Section{
		Title: "Secure score",
		Body: dataTable(
			[]string{"Date", "Current", "Max", "Percent", "Active users"},
			rows),
	}
}

func dataTable(headers []string, rows [][]string) Node {
	if len(rows) == 0 {
		return html.P(html.Class("empty"), Text("No records."))
	}

	head := make([]Node, 0, len(headers))
	for _, h := range headers {
		head = append(head, html.Th(Text(h)))
	}

	body := make([]Node, 0, len(rows))
	for _, row := range rows {
		cells := make([]Node, 0, len(row))
		for _, cell := range row {
			cells = append(cells, html.Td(Text(cell)))
		}
		body = append(body, html.Tr(Group(cells)))
	}

	return html.Table(html.THead(html.Tr(Group(head))), html.TBody(Group(body)))
}

func joined(names []string) string {
	return strings.Join(names, ", ")
}

const pageCSS = `
body { font-family: "Segoe UI", sans-serif; margin: 2rem; color: #1b1b1b; }
header h1 { margin-bottom: 0.2rem; }
.meta { color: #666; font-size: 0.85rem; }
.section { margin-top: 2rem; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 0.35rem 0.6rem; text-align: left; font-size: 0.9rem; }
th { background: #f0f0f0; }
tr:nth-child(even) { background: #fafafa; }
.empty { color: #888; font-style: italic; }
`

package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeREST struct {
	body      []byte
	err       error
	lastURL   string
	callCount int
}

func (f *fakeREST) Get(ctx context.Context, url string) ([]byte, error) {
	f.callCount++
	f.lastURL = url
	return f.body, f.err
}

const sampleCSV = "\xEF\xBB\xBF" + `Report Refresh Date,User Principal Name,Last Activity Date
2026-08-24,alice@contoso.com,2026-08-23
2026-08-24,bob@contoso.com,
`

func TestFetchParsesHeaderKeyedRows(t *testing.T) {
	rest := &fakeREST{body: []byte(sampleCSV)}

	report, err := Fetch(context.Background(), rest, nil, Options{
		Report: "getTeamsUserActivityUserDetail",
		Period: "D7",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://graph.microsoft.com/v1.0/reports/getTeamsUserActivityUserDetail(period='D7')", rest.lastURL)
	assert.Equal(t, []string{"Report Refresh Date", "User Principal Name", "Last Activity Date"}, report.Columns)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, "alice@contoso.com", report.Rows[0]["User Principal Name"])
	assert.Equal(t, "", report.Rows[1]["Last Activity Date"])
}

func TestFetchDateVariantURL(t *testing.T) {
	rest := &fakeREST{body: []byte(sampleCSV)}

	_, err := Fetch(context.Background(), rest, nil, Options{
		Report: "getMailboxUsageDetail",
		Date:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://graph.microsoft.com/v1.0/reports/getMailboxUsageDetail(date=2026-08-01)", rest.lastURL)
}

func TestFetchRejectsBeforeAnyNetworkCall(t *testing.T) {
	rest := &fakeREST{body: []byte(sampleCSV)}

	_, err := Fetch(context.Background(), rest, nil, Options{Report: "dropAllTables", Period: "D7"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "unknown report")

	_, err = Fetch(context.Background(), rest, nil, Options{Report: "getMailboxUsageDetail"})
	require.Error(t, err, "missing period and date")

	_, err = Fetch(context.Background(), rest, nil, Options{
		Report: "getMailboxUsageDetail", Period: "D7", Date: time.Now(),
	})
	require.Error(t, err, "period and date together")

	_, err = Fetch(context.Background(), rest, nil, Options{Report: "getMailboxUsageDetail", Period: "D13"})
	require.Error(t, err, "period outside the known set")

	assert.Zero(t, rest.callCount, "validation failures must not reach the network")
}

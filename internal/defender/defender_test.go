package defender

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	scores   []Score
	profiles []ControlProfile
}

func (f *fakeFetcher) SecureScores(ctx context.Context, top int32) ([]Score, error) {
	if int(top) < len(f.scores) {
		return f.scores[:top], nil
	}
	return f.scores, nil
}

func (f *fakeFetcher) ControlProfiles(ctx context.Context) ([]ControlProfile, error) {
	return f.profiles, nil
}

func scoreAt(day int) *time.Time {
	t := time.Date(2026, 8, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestSecureScoresNewestFirst(t *testing.T) {
	f := &fakeFetcher{
		scores: []Score{
			{ID: "old", Created: scoreAt(1), CurrentScore: 40},
			{ID: "new", Created: scoreAt(20), CurrentScore: 45},
			{ID: "mid", Created: scoreAt(10), CurrentScore: 42},
		},
	}

	scores, err := SecureScores(context.Background(), f, nil, 10)
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.Equal(t, "new", scores[0].ID)
	assert.Equal(t, "mid", scores[1].ID)
	assert.Equal(t, "old", scores[2].ID)
}

func TestControlStatusesJoinsNewestSnapshot(t *testing.T) {
	f := &fakeFetcher{
		scores: []Score{
			{ID: "new", Created: scoreAt(20), Controls: []ControlScore{
				{Name: "MFARegistrationV2", Category: "Identity", Score: 9},
			}},
			{ID: "old", Created: scoreAt(1), Controls: []ControlScore{
				{Name: "MFARegistrationV2", Category: "Identity", Score: 2},
			}},
		},
		profiles: []ControlProfile{
			{ID: "MFARegistrationV2", Title: "Require MFA", Category: "Identity", MaxScore: 10, State: "Default"},
			{ID: "BlockLegacyAuth", Title: "Block legacy auth", Category: "Identity", MaxScore: 8, State: "Ignored"},
		},
	}

	statuses, err := ControlStatuses(context.Background(), f, nil)
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	byName := map[string]ControlStatus{}
	for _, s := range statuses {
		byName[s.Name] = s
	}

	// Score comes from the newest snapshot, not the older one.
	assert.Equal(t, float64(9), byName["MFARegistrationV2"].Score)
	assert.Equal(t, "Default", byName["MFARegistrationV2"].State)

	// Controls missing from the snapshot keep a zero score.
	assert.Equal(t, float64(0), byName["BlockLegacyAuth"].Score)
	assert.Equal(t, "Ignored", byName["BlockLegacyAuth"].State)
}

type fakeREST struct {
	sensors  []json.RawMessage
	byURL    map[string]string
	listErr  error
	jsonErrs map[string]error
}

func (f *fakeREST) ListAll(ctx context.Context, url string) ([]json.RawMessage, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.sensors, nil
}

func (f *fakeREST) GetJSON(ctx context.Context, url string, out any) error {
	if err := f.jsonErrs[url]; err != nil {
		return err
	}
	body, ok := f.byURL[url]
	if !ok {
		return fmt.Errorf("unexpected url %s", url)
	}
	return json.Unmarshal([]byte(body), out)
}

func TestSensorsSkipsUndecodableRecords(t *testing.T) {
	f := &fakeREST{
		sensors: []json.RawMessage{
			json.RawMessage(`{"id":"s1","displayName":"DC01","healthStatus":"healthy","sensorType":"domainControllerIntegrated"}`),
			json.RawMessage(`"not an object"`),
			json.RawMessage(`{"id":"s2","displayName":"ADFS01","healthStatus":"notHealthyMedium"}`),
		},
	}

	sensors, err := Sensors(context.Background(), f, nil)
	require.NoError(t, err)
	require.Len(t, sensors, 2)
	assert.Equal(t, "DC01", sensors[0].DisplayName)
	assert.Equal(t, "notHealthyMedium", sensors[1].HealthStatus)
}

func TestDeploymentReadsKeyAndPackageURI(t *testing.T) {
	f := &fakeREST{
		byURL: map[string]string{
			"https://graph.microsoft.com/beta/security/identities/sensors/deploymentAccessKey": `{"value":"super-secret-key"}`,
			"https://graph.microsoft.com/beta/security/identities/sensors/deploymentPackageUri": `{"value":"https://example.com/sensor.zip"}`,
		},
	}

	info, err := Deployment(context.Background(), f, nil)
	require.NoError(t, err)
	assert.Equal(t, "super-secret-key", info.AccessKey)
	assert.Equal(t, "https://example.com/sensor.zip", info.PackageURI)
}

package appcreds

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

// fakeStore is an in-memory Store with mutation counters.
type fakeStore struct {
	apps []Application

	removedPasswords []uuid.UUID
	removedKeys      []uuid.UUID
	addedPasswords   int

	failRemove map[uuid.UUID]error
}

func (f *fakeStore) Applications(ctx context.Context, displayName string) ([]Application, error) {
	if displayName == "" {
		return f.apps, nil
	}
	var out []Application
	for _, a := range f.apps {
		if a.DisplayName == displayName {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) RemovePassword(ctx context.Context, appObjectID string, keyID uuid.UUID) error {
	if err := f.failRemove[keyID]; err != nil {
		return err
	}
	f.removedPasswords = append(f.removedPasswords, keyID)
	return nil
}

func (f *fakeStore) RemoveKey(ctx context.Context, appObjectID string, keyID uuid.UUID) error {
	if err := f.failRemove[keyID]; err != nil {
		return err
	}
	f.removedKeys = append(f.removedKeys, keyID)
	return nil
}

func (f *fakeStore) AddPassword(ctx context.Context, appObjectID, displayName string, end time.Time) (*NewCredential, error) {
	f.addedPasswords++
	return &NewCredential{
		KeyID:       uuid.NewString(),
		DisplayName: displayName,
		SecretText:  "generated-secret",
		End:         &end,
	}, nil
}

func mustUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

var (
	keyExpired = mustUUID("11111111-1111-1111-1111-111111111111")
	keyFresh   = mustUUID("22222222-2222-2222-2222-222222222222")
	keyCert    = mustUUID("33333333-3333-3333-3333-333333333333")
)

func days(n int) *time.Time {
	t := testNow.AddDate(0, 0, n)
	return &t
}

func testStore() *fakeStore {
	return &fakeStore{
		apps: []Application{
			{
				ObjectID:    "obj-1",
				AppID:       "app-1",
				DisplayName: "Billing API",
				Credentials: []RawCredential{
					{KeyID: keyExpired, Type: TypePassword, DisplayName: "old secret", End: days(-1)},
					{KeyID: keyFresh, Type: TypePassword, DisplayName: "rotated secret", End: days(10)},
				},
			},
			{
				ObjectID:    "obj-2",
				AppID:       "app-2",
				DisplayName: "Deploy Agent",
				Credentials: []RawCredential{
					{KeyID: keyCert, Type: TypeCertificate, CustomKeyIdentifier: []byte("CN=deploy"), End: days(400)},
				},
			},
		},
	}
}

func TestInspectExpiryArithmetic(t *testing.T) {
	creds, err := inspectAt(context.Background(), testStore(), nil, FilterOptions{ApplicationName: "Billing API"}, testNow)
	require.NoError(t, err)
	require.Len(t, creds, 2)

	byKey := map[string]Credential{}
	for _, c := range creds {
		byKey[c.KeyID] = c
	}

	expired := byKey[keyExpired.String()]
	require.NotNil(t, expired.Expired)
	assert.True(t, *expired.Expired)
	assert.Equal(t, -1, *expired.DaysToExpire)

	fresh := byKey[keyFresh.String()]
	assert.False(t, *fresh.Expired)
	assert.Equal(t, 10, *fresh.DaysToExpire)
}

func TestInspectDisplayNameFromKeyIdentifier(t *testing.T) {
	creds, err := inspectAt(context.Background(), testStore(), nil, FilterOptions{ApplicationName: "Deploy Agent"}, testNow)
	require.NoError(t, err)
	require.Len(t, creds, 1)

	// No explicit display name, so the decoded identifier bytes serve.
	assert.Equal(t, "CN=deploy", creds[0].DisplayName)
	assert.Equal(t, TypeCertificate, creds[0].Type)
}

func TestInspectExpiryFilters(t *testing.T) {
	store := testStore()

	lt := 15
	soon, err := inspectAt(context.Background(), store, nil, FilterOptions{LessThanDaysToExpire: &lt}, testNow)
	require.NoError(t, err)
	require.Len(t, soon, 2) // expired (-1) and fresh (10), not the cert (400)

	gt := 100
	far, err := inspectAt(context.Background(), store, nil, FilterOptions{GreaterThanDaysToExpire: &gt}, testNow)
	require.NoError(t, err)
	require.Len(t, far, 1)
	assert.Equal(t, keyCert.String(), far[0].KeyID)

	expired, err := inspectAt(context.Background(), store, nil, FilterOptions{ExpiredOnly: true}, testNow)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, keyExpired.String(), expired[0].KeyID)
}

func TestInspectDisplayNameFilterAppliesFirst(t *testing.T) {
	lt := 15
	creds, err := inspectAt(context.Background(), testStore(), nil,
		FilterOptions{DisplayName: "*secret*", LessThanDaysToExpire: &lt}, testNow)
	require.NoError(t, err)
	require.Len(t, creds, 2)
	for _, c := range creds {
		assert.Contains(t, c.DisplayName, "secret")
	}
}

func TestFilterOptionsExclusive(t *testing.T) {
	n := 5
	err := FilterOptions{LessThanDaysToExpire: &n, ExpiredOnly: true}.Validate()
	require.Error(t, err)

	err = FilterOptions{LessThanDaysToExpire: &n, GreaterThanDaysToExpire: &n}.Validate()
	require.Error(t, err)

	require.NoError(t, FilterOptions{ExpiredOnly: true}.Validate())

	// Inspect surfaces the validation error before touching the store.
	_, err = inspectAt(context.Background(), testStore(), nil,
		FilterOptions{ExpiredOnly: true, GreaterThanDaysToExpire: &n}, testNow)
	require.Error(t, err)
}

func TestRemoveWhatIfMakesNoMutatingCalls(t *testing.T) {
	store := testStore()

	results, err := removeAt(context.Background(), store, nil, RemoveOptions{
		Filter: FilterOptions{ExpiredOnly: true},
		WhatIf: true,
	}, testNow)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, StatusWhatIf, results[0].Status)
	assert.Empty(t, store.removedPasswords)
	assert.Empty(t, store.removedKeys)
}

func TestRemoveDispatchesByCredentialType(t *testing.T) {
	store := testStore()

	results, err := removeAt(context.Background(), store, nil, RemoveOptions{Filter: FilterOptions{}}, testNow)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.ElementsMatch(t, []uuid.UUID{keyExpired, keyFresh}, store.removedPasswords)
	assert.ElementsMatch(t, []uuid.UUID{keyCert}, store.removedKeys)
}

func TestRemoveContinuesAfterFailure(t *testing.T) {
	store := testStore()
	store.failRemove = map[uuid.UUID]error{keyExpired: errors.New("insufficient privileges")}

	results, err := removeAt(context.Background(), store, nil, RemoveOptions{Filter: FilterOptions{}}, testNow)
	require.NoError(t, err)
	require.Len(t, results, 3)

	var failed, removed int
	for _, r := range results {
		switch r.Status {
		case StatusFailed:
			failed++
			assert.Contains(t, r.Error, "insufficient privileges")
		case StatusRemoved:
			removed++
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 2, removed, "one failure must not stop the remaining removals")
}

func TestRemoveDeclinedByConfirmer(t *testing.T) {
	store := testStore()

	results, err := removeAt(context.Background(), store, nil, RemoveOptions{
		Filter:  FilterOptions{},
		Confirm: func(cred Credential) bool { return cred.Type == TypePassword },
	}, testNow)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Empty(t, store.removedKeys)
	assert.Len(t, store.removedPasswords, 2)
	for _, r := range results {
		if r.Credential.Type == TypeCertificate {
			assert.Equal(t, StatusDeclined, r.Status)
		}
	}
}

func TestCreatePasswordDefaults(t *testing.T) {
	store := testStore()

	cred, err := createPasswordAt(context.Background(), store, nil, CreateOptions{
		ApplicationName: "Billing API",
		DisplayName:     "ci rotation",
	}, testNow)
	require.NoError(t, err)

	assert.Equal(t, 1, store.addedPasswords)
	assert.Equal(t, "ci rotation", cred.DisplayName)
	assert.Equal(t, "generated-secret", cred.SecretText)
	require.NotNil(t, cred.End)
	assert.Equal(t, testNow.AddDate(0, defaultValidityMonths, 0), *cred.End)
}

func TestCreatePasswordRequiresUniqueMatch(t *testing.T) {
	store := testStore()
	store.apps = append(store.apps, Application{ObjectID: "obj-3", DisplayName: "Billing API"})

	_, err := createPasswordAt(context.Background(), store, nil, CreateOptions{
		ApplicationName: "Billing API",
		DisplayName:     "dup",
	}, testNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to pick one")
	assert.Zero(t, store.addedPasswords)

	_, err = createPasswordAt(context.Background(), store, nil, CreateOptions{
		ApplicationName: "No Such App",
		DisplayName:     "x",
	}, testNow)
	require.Error(t, err)
}

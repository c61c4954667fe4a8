// Package appcreds inspects and mutates application password and certificate
// credentials: expiry reporting, filtered listing, guarded removal and
// password creation.
package appcreds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CredentialType distinguishes password secrets from certificate (key)
// credentials. It decides which removal endpoint applies.
type CredentialType string

const (
	TypePassword    CredentialType = "Password"
	TypeCertificate CredentialType = "Certificate"
)

// RawCredential is a credential as returned by the API, before shaping.
type RawCredential struct {
	KeyID               uuid.UUID
	Type                CredentialType
	DisplayName         string
	CustomKeyIdentifier []byte
	Hint                string
	Start               *time.Time
	End                 *time.Time
}

// Application is an app registration with its credential collections.
type Application struct {
	ObjectID    string
	AppID       string
	DisplayName string
	Credentials []RawCredential
}

// Credential is the flat output record of the inspection report.
type Credential struct {
	ApplicationName     string         `json:"applicationName"`
	ApplicationObjectID string         `json:"applicationObjectId"`
	AppID               string         `json:"appId"`
	KeyID               string         `json:"keyId"`
	Type                CredentialType `json:"type"`
	DisplayName         string         `json:"displayName"`
	Start               *time.Time     `json:"start,omitempty"`
	End                 *time.Time     `json:"end,omitempty"`
	Expired             *bool          `json:"expired,omitempty"`
	DaysToExpire        *int           `json:"daysToExpire,omitempty"`
}

// NewCredential is the result of adding a password credential. SecretText is
// only available in this response and never again.
type NewCredential struct {
	KeyID       string
	DisplayName string
	SecretText  string
	End         *time.Time
}

// Store is the Graph-facing surface the package needs. The real
// implementation lives in graphstore.go; tests substitute a fake.
type Store interface {
	// Applications lists app registrations, optionally filtered to an exact
	// display name match (empty means all).
	Applications(ctx context.Context, displayName string) ([]Application, error)

	RemovePassword(ctx context.Context, appObjectID string, keyID uuid.UUID) error
	RemoveKey(ctx context.Context, appObjectID string, keyID uuid.UUID) error
	AddPassword(ctx context.Context, appObjectID, displayName string, end time.Time) (*NewCredential, error)
}

// FilterOptions selects credentials for inspection and removal. The display
// name filter always applies first; the three expiry filters are mutually
// exclusive.
type FilterOptions struct {
	// ApplicationName filters applications by exact display name (server
	// side). Empty means all applications.
	ApplicationName string

	// DisplayName is a wildcard pattern matched against the resolved
	// credential display name.
	DisplayName string

	// At most one of the following may be set.
	LessThanDaysToExpire    *int
	GreaterThanDaysToExpire *int
	ExpiredOnly             bool
}

// Validate rejects combinations of expiry filters. The filters were
// historically applied first-match-wins, which silently ignored the others;
// making them exclusive keeps the behavior deterministic and visible.
func (o FilterOptions) Validate() error {
	set := 0
	if o.LessThanDaysToExpire != nil {
		set++
	}
	if o.GreaterThanDaysToExpire != nil {
		set++
	}
	if o.ExpiredOnly {
		set++
	}
	if set > 1 {
		return fmt.Errorf("at most one of -lessthandays, -greaterthandays and -expired may be used")
	}
	return nil
}

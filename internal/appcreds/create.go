package appcreds

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// CreateOptions describes the password credential to add.
type CreateOptions struct {
	// ApplicationName selects the target app registration by exact display
	// name. The match must be unique.
	ApplicationName string

	// DisplayName becomes the credential's display name.
	DisplayName string

	// ValidityMonths sets the expiry, counted from now. Zero means the
	// default of six months.
	ValidityMonths int
}

const defaultValidityMonths = 6

// CreatePassword adds a password credential to the named application and
// returns the generated secret. The secret text is only present in this one
// response.
func CreatePassword(ctx context.Context, store Store, log *slog.Logger, opts CreateOptions) (*NewCredential, error) {
	return createPasswordAt(ctx, store, log, opts, time.Now())
}

func createPasswordAt(ctx context.Context, store Store, log *slog.Logger, opts CreateOptions, now time.Time) (*NewCredential, error) {
	if log == nil {
		log = slog.Default()
	}
	if opts.ApplicationName == "" {
		return nil, fmt.Errorf("application name is required")
	}
	if opts.DisplayName == "" {
		return nil, fmt.Errorf("credential display name is required")
	}
	months := opts.ValidityMonths
	if months == 0 {
		months = defaultValidityMonths
	}
	if months < 0 {
		return nil, fmt.Errorf("validity months must be positive, got %d", months)
	}

	apps, err := store.Applications(ctx, opts.ApplicationName)
	if err != nil {
		return nil, err
	}
	switch len(apps) {
	case 0:
		return nil, fmt.Errorf("no application named %q", opts.ApplicationName)
	case 1:
	default:
		return nil, fmt.Errorf("%d applications named %q, refusing to pick one", len(apps), opts.ApplicationName)
	}

	end := now.AddDate(0, months, 0)
	cred, err := store.AddPassword(ctx, apps[0].ObjectID, opts.DisplayName, end)
	if err != nil {
		return nil, fmt.Errorf("adding password to %q: %w", opts.ApplicationName, err)
	}

	log.Info("password credential created",
		"application", opts.ApplicationName,
		"keyId", cred.KeyID,
		"end", end.Format(time.RFC3339))
	return cred, nil
}

func parseKeyID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("key id %q is not a GUID: %w", s, err)
	}
	return id, nil
}

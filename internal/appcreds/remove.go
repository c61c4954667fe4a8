package appcreds

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RemovalStatus is the per-credential outcome of a removal run.
type RemovalStatus string

const (
	StatusRemoved  RemovalStatus = "Removed"
	StatusWhatIf   RemovalStatus = "WhatIf"
	StatusSkipped  RemovalStatus = "Skipped"
	StatusFailed   RemovalStatus = "Failed"
	StatusDeclined RemovalStatus = "Declined"
)

// RemovalResult records what happened to one matched credential.
type RemovalResult struct {
	Credential Credential    `json:"credential"`
	Status     RemovalStatus `json:"status"`
	Error      string        `json:"error,omitempty"`
}

// Confirmer is asked once per credential before a destructive call. A nil
// Confirmer approves everything.
type Confirmer func(cred Credential) bool

// RemoveOptions controls the removal run. Filters select the targets the same
// way Inspect does.
type RemoveOptions struct {
	Filter FilterOptions

	// WhatIf reports what would be removed without calling any mutating
	// endpoint.
	WhatIf bool

	// Confirm is consulted per credential. Declined credentials are reported
	// but left untouched.
	Confirm Confirmer
}

// Remove deletes the credentials selected by the filter, one at a time. A
// failure on one credential is recorded and the run continues; the returned
// error is non-nil only when the target list itself could not be built.
func Remove(ctx context.Context, store Store, log *slog.Logger, opts RemoveOptions) ([]RemovalResult, error) {
	return removeAt(ctx, store, log, opts, time.Now())
}

func removeAt(ctx context.Context, store Store, log *slog.Logger, opts RemoveOptions, now time.Time) ([]RemovalResult, error) {
	if log == nil {
		log = slog.Default()
	}

	targets, err := inspectAt(ctx, store, log, opts.Filter, now)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		log.Info("no credentials matched the removal filters")
		return nil, nil
	}

	results := make([]RemovalResult, 0, len(targets))
	for _, cred := range targets {
		results = append(results, removeOne(ctx, store, log, opts, cred))
	}
	return results, nil
}

func removeOne(ctx context.Context, store Store, log *slog.Logger, opts RemoveOptions, cred Credential) RemovalResult {
	res := RemovalResult{Credential: cred}

	if opts.WhatIf {
		log.Info("would remove credential",
			"application", cred.ApplicationName,
			"keyId", cred.KeyID,
			"type", cred.Type,
			"displayName", cred.DisplayName)
		res.Status = StatusWhatIf
		return res
	}

	if opts.Confirm != nil && !opts.Confirm(cred) {
		log.Info("removal declined",
			"application", cred.ApplicationName, "keyId", cred.KeyID)
		res.Status = StatusDeclined
		return res
	}

	keyID, err := parseKeyID(cred.KeyID)
	if err != nil {
		res.Status = StatusSkipped
		res.Error = err.Error()
		log.Warn("skipping credential with unusable key id",
			"application", cred.ApplicationName, "keyId", cred.KeyID, "error", err)
		return res
	}

	switch cred.Type {
	case TypePassword:
		err = store.RemovePassword(ctx, cred.ApplicationObjectID, keyID)
	case TypeCertificate:
		err = store.RemoveKey(ctx, cred.ApplicationObjectID, keyID)
	default:
		res.Status = StatusSkipped
		res.Error = fmt.Sprintf("unhandled credential type %q", cred.Type)
		return res
	}

	if err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
		log.Error("credential removal failed",
			"application", cred.ApplicationName, "keyId", cred.KeyID, "error", err)
		return res
	}

	log.Info("credential removed",
		"application", cred.ApplicationName,
		"keyId", cred.KeyID,
		"type", cred.Type)
	res.Status = StatusRemoved
	return res
}

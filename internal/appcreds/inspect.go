package appcreds

import (
	"context"
	"log/slog"
	"time"

	"entrareport/internal/common/validation"
)

// Inspect lists application credentials shaped into flat records, applying
// the display-name and expiry filters. Credentials without an end timestamp
// carry no expiry fields and pass every expiry filter check negatively.
func Inspect(ctx context.Context, store Store, log *slog.Logger, opts FilterOptions) ([]Credential, error) {
	return inspectAt(ctx, store, log, opts, time.Now())
}

func inspectAt(ctx context.Context, store Store, log *slog.Logger, opts FilterOptions, now time.Time) ([]Credential, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	apps, err := store.Applications(ctx, opts.ApplicationName)
	if err != nil {
		return nil, err
	}
	if opts.ApplicationName != "" && len(apps) == 0 {
		log.Warn("no application matched the requested name", "name", opts.ApplicationName)
		return nil, nil
	}

	var out []Credential
	for _, app := range apps {
		for _, raw := range app.Credentials {
			cred := shapeCredential(app, raw, now)

			// Display name filter always applies first.
			if opts.DisplayName != "" && !validation.MatchesWildcard(opts.DisplayName, cred.DisplayName) {
				continue
			}

			switch {
			case opts.LessThanDaysToExpire != nil:
				if cred.DaysToExpire == nil || *cred.DaysToExpire > *opts.LessThanDaysToExpire {
					continue
				}
			case opts.ExpiredOnly:
				if cred.Expired == nil || !*cred.Expired {
					continue
				}
			case opts.GreaterThanDaysToExpire != nil:
				if cred.DaysToExpire == nil || *cred.DaysToExpire < *opts.GreaterThanDaysToExpire {
					continue
				}
			}

			out = append(out, cred)
		}
	}
	return out, nil
}

// shapeCredential produces the flat record for one credential. The display
// name resolution order is: explicit field, decoded identifier bytes, empty.
func shapeCredential(app Application, raw RawCredential, now time.Time) Credential {
	name := raw.DisplayName
	if name == "" {
		name = decodeKeyIdentifier(raw.CustomKeyIdentifier)
	}

	cred := Credential{
		ApplicationName:     app.DisplayName,
		ApplicationObjectID: app.ObjectID,
		AppID:               app.AppID,
		KeyID:               raw.KeyID.String(),
		Type:                raw.Type,
		DisplayName:         name,
		Start:               raw.Start,
		End:                 raw.End,
	}

	if raw.End != nil {
		expired := raw.End.Before(now)
		days := int(raw.End.Sub(now).Hours() / 24)
		cred.Expired = &expired
		cred.DaysToExpire = &days
	}

	return cred
}

package defender

import (
	"context"
	"log/slog"
	"sort"
)

// DefaultScoreCount bounds the secure score history when the caller does not
// ask for a specific depth.
const DefaultScoreCount = int32(5)

// SecureScores returns the most recent score snapshots, newest first.
func SecureScores(ctx context.Context, f Fetcher, log *slog.Logger, top int32) ([]Score, error) {
	if log == nil {
		log = slog.Default()
	}
	if top <= 0 {
		top = DefaultScoreCount
	}

	scores, err := f.SecureScores(ctx, top)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(scores, func(i, j int) bool {
		ti, tj := scores[i].Created, scores[j].Created
		switch {
		case ti == nil:
			return false
		case tj == nil:
			return true
		default:
			return ti.After(*tj)
		}
	})

	log.Debug("secure scores fetched", "count", len(scores))
	return scores, nil
}

// ControlStatuses joins control profiles with the newest score snapshot's
// control breakdown. Controls absent from the snapshot keep a zero score.
func ControlStatuses(ctx context.Context, f Fetcher, log *slog.Logger) ([]ControlStatus, error) {
	if log == nil {
		log = slog.Default()
	}

	scores, err := SecureScores(ctx, f, log, 1)
	if err != nil {
		return nil, err
	}
	profiles, err := f.ControlProfiles(ctx)
	if err != nil {
		return nil, err
	}

	currentByName := make(map[string]ControlScore)
	if len(scores) > 0 {
		for _, cs := range scores[0].Controls {
			currentByName[cs.Name] = cs
		}
	} else {
		log.Warn("no secure score snapshot available, control scores will be zero")
	}

	out := make([]ControlStatus, 0, len(profiles))
	for _, p := range profiles {
		status := ControlStatus{
			Name:     p.ID,
			Title:    p.Title,
			Category: p.Category,
			State:    p.State,
			MaxScore: p.MaxScore,
		}
		if cs, ok := currentByName[p.ID]; ok {
			status.Score = cs.Score
			if status.Category == "" {
				status.Category = cs.Category
			}
		}
		out = append(out, status)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Package defender reports Microsoft Defender posture data: secure scores
// with their control breakdown, and Defender for Identity sensor inventory.
package defender

import (
	"context"
	"time"
)

// Score is one secure score snapshot.
type Score struct {
	ID              string         `json:"id"`
	Created         *time.Time     `json:"created,omitempty"`
	CurrentScore    float64        `json:"currentScore"`
	MaxScore        float64        `json:"maxScore"`
	ActiveUserCount int32          `json:"activeUserCount"`
	Controls        []ControlScore `json:"-"`
}

// ControlScore is a per-control line inside a score snapshot.
type ControlScore struct {
	Name     string
	Category string
	Score    float64
}

// ControlProfile describes one secure score control and its tenant state.
type ControlProfile struct {
	ID           string
	Title        string
	Category     string
	MaxScore     float64
	State        string
	StateUpdated *time.Time
	ActionURL    string
	Remediation  string
}

// ControlStatus is the joined output record: profile metadata plus the
// current score taken from the newest secure score snapshot.
type ControlStatus struct {
	Name     string  `json:"name"`
	Title    string  `json:"title"`
	Category string  `json:"category"`
	State    string  `json:"state"`
	Score    float64 `json:"score"`
	MaxScore float64 `json:"maxScore"`
}

// Fetcher is the Graph-facing surface for secure score data. The real
// implementation lives in graphfetch.go; tests substitute a fake.
type Fetcher interface {
	SecureScores(ctx context.Context, top int32) ([]Score, error)
	ControlProfiles(ctx context.Context) ([]ControlProfile, error)
}

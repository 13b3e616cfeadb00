// Package sink declares the challenge-outcome notification capability
// and the fan-out that keeps sink failures isolated from each other and
// from the resolution path.
package sink

import (
	"context"
	"log/slog"
)

// Event describes one resolved challenge for external observers.
type Event struct {
	UserID             int64  `json:"user_id"`
	UserName           string `json:"user_name"`
	GroupID            int64  `json:"group_id"`
	GroupName          string `json:"group_name"`
	ChallengeCompleted bool   `json:"challenge_completed"`
	Banned             bool   `json:"banned"`
}

// Interface is one notification destination.
type Interface interface {
	// Name identifies the sink in logs.
	Name() string

	Notify(ctx context.Context, ev Event) error
}

// FanOut delivers ev to every sink. A failing sink is logged and
// skipped; it never blocks another sink or the caller's resolution.
func FanOut(ctx context.Context, sinks []Interface, ev Event) {
	for _, s := range sinks {
		if err := s.Notify(ctx, ev); err != nil {
			slog.Error("can't deliver challenge event", "sink", s.Name(), "user_id", ev.UserID, "group_id", ev.GroupID, "err", err)
		}
	}
}

package notify

import (
	"context"
	"log/slog"
)

const (
	KindLowStock   = "low_stock"
	KindSuggestion = "suggestion"
)

// Event is a best-effort mail notification. The mail relay consumes these;
// the shop only emits them and never waits on delivery.
type Event struct {
	Kind    string         `json:"kind"`
	To      string         `json:"to,omitempty"`
	Subject string         `json:"subject"`
	Payload map[string]any `json:"payload,omitempty"`
}

type Notifier interface {
	Publish(ctx context.Context, event Event) error
}

// LogNotifier just logs events. Used in tests and when no broker is
// configured.
type LogNotifier struct {
	Log *slog.Logger
}

func (n *LogNotifier) Publish(_ context.Context, event Event) error {
	l := n.Log
	if l == nil {
		l = slog.Default()
	}
	l.Info("notify", "kind", event.Kind, "to", event.To, "subject", event.Subject)
	return nil
}

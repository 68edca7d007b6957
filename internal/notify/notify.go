// Package notify posts short reports to chat webhooks (Slack, Discord).
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Sidebar colors.
const (
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
	ColorSuccess = "#36a64f"
)

// Message is a platform-neutral chat post.
type Message struct {
	Title  string
	Body   string
	Color  string
	Fields []Field
}

// Field is a key-value pair shown under the message body.
type Field struct {
	Name  string
	Value string
	Short bool
}

// Notifier delivers a Message to one chat platform.
type Notifier interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Broadcast sends msg through every notifier. A failing notifier does not
// stop the others; all failures are returned joined.
func Broadcast(ctx context.Context, log *slog.Logger, notifiers []Notifier, msg Message) error {
	var errs []error
	for _, n := range notifiers {
		if err := n.Send(ctx, msg); err != nil {
			log.Error("notify: send failed", "notifier", n.Name(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		log.Info("notify: sent", "notifier", n.Name(), "title", msg.Title)
	}
	return errors.Join(errs...)
}

// Package notify alerts operators about liquidity actions over Telegram and
// Discord. Partial successes always need a human, so they are the default
// event; successes and failures can be enabled per deployment.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/lpbot/internal/domain"
)

// Event types understood by Notify.
const (
	EventPartialSuccess = "partial_success"
	EventFailed         = "failed"
	EventSuccess        = "success"
	EventStartup        = "startup"
)

// DefaultEvents is used when the configuration names none.
var DefaultEvents = []string{EventPartialSuccess}

// Sender is the interface that each notification channel must implement.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier dispatches notifications to one or more Senders, forwarding only
// allowed event types.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier for senders. An empty events list means
// DefaultEvents.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	if len(events) == 0 {
		events = DefaultEvents
	}
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether event would be forwarded.
func (n *Notifier) Enabled(event string) bool {
	return len(n.senders) > 0 && n.events[event]
}

// Notify sends to all senders if event is allowed.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// NotifyAction alerts about a journaled liquidity action. The event is the
// action's outcome status.
func (n *Notifier) NotifyAction(ctx context.Context, rec domain.ActionRecord) error {
	return n.Notify(ctx, string(rec.Status), ActionTitle(rec), ActionMessage(rec))
}

// ActionTitle is a one-line summary such as "PARTIAL add BTC.BTC (symmetric)".
func ActionTitle(rec domain.ActionRecord) string {
	label := strings.ToUpper(string(rec.Status))
	if rec.Status == domain.OutcomePartialSuccess {
		label = "PARTIAL"
	}
	return fmt.Sprintf("%s %s %s (%s)", label, rec.Action, rec.Pool, rec.Mode)
}

// ActionMessage lists every leg with its tx id or error.
func ActionMessage(rec domain.ActionRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "action %s, stopped at %s\n", rec.ID, rec.Stage)
	for _, l := range rec.Legs {
		switch {
		case l.TxID != "":
			fmt.Fprintf(&b, "%s leg on %s: %s tx %s\n", l.Role, l.Chain, l.Amount, l.TxID)
		case l.Error != "":
			fmt.Fprintf(&b, "%s leg on %s: %s FAILED: %s\n", l.Role, l.Chain, l.Amount, l.Error)
		default:
			fmt.Fprintf(&b, "%s leg on %s: %s not sent\n", l.Role, l.Chain, l.Amount)
		}
	}
	if rec.Status == domain.OutcomePartialSuccess {
		b.WriteString("one side is committed without its pair; reconcile manually\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// dispatch sends to every sender; one failure does not stop the rest.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("notify: %d sender(s) failed: %w", len(errs), err)
	}
	return nil
}

package canvas

import (
	"context"
	"errors"
	"log/slog"
)

// Level is the lifecycle stage a notification reports.
type Level int

const (
	Pending Level = iota
	Success
	Failure
)

func (l Level) String() string {
	switch l {
	case Pending:
		return "pending"
	case Success:
		return "success"
	case Failure:
		return "failure"
	}
	return "unknown"
}

// Notification is one user-facing status update for a store operation.
type Notification struct {
	Level   Level
	Op      string
	NodeID  string
	Message string
	Err     error
}

// Notifier receives every pending, success and failure update. Notify must
// not block; it may be called from several goroutines at once.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// LogNotifier writes notifications to a slog logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notification) {
	attrs := []any{"op", n.Op, "status", n.Level.String()}
	if n.NodeID != "" {
		attrs = append(attrs, "node", n.NodeID)
	}
	if n.Level == Failure {
		l.Logger.WarnContext(ctx, n.Message, append(attrs, "err", n.Err)...)
		return
	}
	l.Logger.DebugContext(ctx, n.Message, attrs...)
}

// apiMessager is implemented by remote errors that carry user-facing text.
type apiMessager interface {
	APIMessage() string
}

// failureMessage prefers the server's message over the raw error.
func failureMessage(op string, err error) string {
	var m apiMessager
	if errors.As(err, &m) && m.APIMessage() != "" {
		return op + " failed: " + m.APIMessage()
	}
	return op + " failed: " + err.Error()
}

package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Level classifies a user-facing notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier is the explicit notification channel the orchestrator emits
// user-facing messages through. Injecting it (instead of a process-wide
// event bus) lets tests assert exactly which messages a transition produced.
type Notifier interface {
	Notify(ctx context.Context, level Level, message string)
}

// SlogNotifier logs notifications through a structured logger. It is the
// default sink when no UI bridge is attached.
type SlogNotifier struct {
	logger *slog.Logger
}

// NewSlog creates a logger-backed notifier.
func NewSlog(logger *slog.Logger) *SlogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *SlogNotifier) Notify(ctx context.Context, level Level, message string) {
	switch level {
	case LevelError:
		n.logger.ErrorContext(ctx, "user notification", "level", level, "message", message)
	case LevelWarning:
		n.logger.WarnContext(ctx, "user notification", "level", level, "message", message)
	default:
		n.logger.InfoContext(ctx, "user notification", "level", level, "message", message)
	}
}

// Notification is one recorded message.
type Notification struct {
	Level   Level
	Message string
}

// Recorder captures notifications for assertions in tests.
type Recorder struct {
	mu       sync.Mutex
	messages []Notification
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify implements Notifier.
func (r *Recorder) Notify(_ context.Context, level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Notification{Level: level, Message: message})
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.messages))
	copy(out, r.messages)
	return out
}

var (
	_ Notifier = (*SlogNotifier)(nil)
	_ Notifier = (*Recorder)(nil)
)

// Package notify carries the short user-facing notices (toasts) raised by
// stores, the suggestion flow and cooking mode.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Variant selects how a notice is rendered.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notice is a single toast.
type Notice struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Variant     Variant   `json:"variant"`
	At          time.Time `json:"at"`
}

// Notifier delivers notices to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Info builds a default notice.
func Info(title, description string) Notice {
	return Notice{Title: title, Description: description, Variant: VariantDefault}
}

// Destructive builds an error notice.
func Destructive(title, description string) Notice {
	return Notice{Title: title, Description: description, Variant: VariantDestructive}
}

// Compile-time interface checks.
var (
	_ Notifier = (*Inbox)(nil)
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = Multi(nil)
	_ Notifier = Discard{}
)

// DefaultInboxSize is the number of notices kept before the oldest are dropped.
const DefaultInboxSize = 64

// Inbox buffers notices until the UI drains them. Safe for concurrent use.
type Inbox struct {
	mu      sync.Mutex
	size    int
	notices []Notice
	now     func() time.Time
}

// NewInbox creates an inbox holding at most size notices.
func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &Inbox{size: size, now: time.Now}
}

// Notify appends a notice, dropping the oldest one when full.
func (i *Inbox) Notify(ctx context.Context, n Notice) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if n.At.IsZero() {
		n.At = i.now()
	}
	if n.Variant == "" {
		n.Variant = VariantDefault
	}
	if len(i.notices) == i.size {
		i.notices = i.notices[1:]
	}
	i.notices = append(i.notices, n)
}

// Drain returns all pending notices in arrival order and empties the inbox.
func (i *Inbox) Drain() []Notice {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := i.notices
	i.notices = nil
	if out == nil {
		out = []Notice{}
	}
	return out
}

// Len reports the number of pending notices.
func (i *Inbox) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.notices)
}

// LogNotifier writes notices to the log.
type LogNotifier struct {
	log *zap.Logger
}

// NewLogNotifier creates a notifier that logs every notice.
func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Notify logs the notice, at warn level for destructive ones.
func (l *LogNotifier) Notify(ctx context.Context, n Notice) {
	fields := []zap.Field{zap.String("title", n.Title), zap.String("description", n.Description)}
	if n.Variant == VariantDestructive {
		l.log.Warn("notice", fields...)
		return
	}
	l.log.Debug("notice", fields...)
}

// Multi fans a notice out to several notifiers.
type Multi []Notifier

// Notify delivers n to every notifier in order.
func (m Multi) Notify(ctx context.Context, n Notice) {
	for _, target := range m {
		target.Notify(ctx, n)
	}
}

// Discard drops every notice.
type Discard struct{}

func (Discard) Notify(context.Context, Notice) {}

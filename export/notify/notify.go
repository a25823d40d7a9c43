package notify

import (
	"context"
	"errors"
	"sync"
)

// Severity is the visual variant of a notification.
type Severity string

const (
	SeverityDefault     Severity = "default"
	SeverityDestructive Severity = "destructive"
)

// IsError reports whether the severity marks a failure.
func (s Severity) IsError() bool {
	return s == SeverityDestructive
}

// Key identifies a notification message.
type Key string

const (
	KeyRowAdded        Key = "row_added"
	KeyRowRemoved      Key = "row_removed"
	KeyColumnAdded     Key = "column_added"
	KeyColumnRemoved   Key = "column_removed"
	KeyExportStarted   Key = "export_started"
	KeyExportSucceeded Key = "export_succeeded"
	KeyExportFailed    Key = "export_failed"
)

// Notification is a transient user-facing message.
type Notification struct {
	Key         Key      `json:"key"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// Notifier delivers transient notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to a Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	if f == nil {
		return nil
	}
	return f(ctx, n)
}

// Nop drops every notification.
type Nop struct{}

func (Nop) Notify(context.Context, Notification) error { return nil }

// Queue buffers notifications until drained.
type Queue struct {
	mu      sync.Mutex
	pending []Notification
	limit   int
}

// DefaultQueueLimit bounds how many undrained notifications a queue keeps.
const DefaultQueueLimit = 64

// NewQueue creates a queue that keeps at most limit notifications, dropping the oldest.
func NewQueue(limit int) *Queue {
	if limit <= 0 {
		limit = DefaultQueueLimit
	}
	return &Queue{limit: limit}
}

func (q *Queue) Notify(ctx context.Context, n Notification) error {
	_ = ctx
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.limit <= 0 {
		q.limit = DefaultQueueLimit
	}
	q.pending = append(q.pending, n)
	if over := len(q.pending) - q.limit; over > 0 {
		q.pending = append([]Notification(nil), q.pending[over:]...)
	}
	return nil
}

// Drain returns and clears the pending notifications.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	if out == nil {
		return []Notification{}
	}
	return out
}

// Len returns the number of pending notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, target := range m {
		if target == nil {
			continue
		}
		if err := target.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

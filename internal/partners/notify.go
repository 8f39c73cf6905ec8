package partners

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultNotificationTTL is how long a notification stays visible.
const DefaultNotificationTTL = 5 * time.Second

// NotificationKind distinguishes success and error messages.
type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
)

// Notification is a transient message for the list screen.
type Notification struct {
	ID      uuid.UUID
	Text    string
	Kind    NotificationKind
	Expires time.Time
}

// Timer is the cancellable handle returned by AfterFunc.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func systemAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// NotifierConfig configures a Notifier. Zero values use the defaults.
type NotifierConfig struct {
	TTL       time.Duration
	AfterFunc AfterFunc
	Now       func() time.Time
	// OnChange runs after a notification is posted, dismissed or expired.
	// It is called without the notifier lock held, possibly from a timer
	// goroutine.
	OnChange func(current *Notification)
}

// Notifier holds at most one notification and expires it after the TTL.
// Posting a new notification cancels the pending expiry of the previous one.
type Notifier struct {
	mu        sync.Mutex
	ttl       time.Duration
	afterFunc AfterFunc
	now       func() time.Time
	onChange  func(current *Notification)
	current   *Notification
	timer     Timer
}

// NewNotifier constructs a Notifier.
func NewNotifier(cfg NotifierConfig) *Notifier {
	n := &Notifier{
		ttl:       cfg.TTL,
		afterFunc: cfg.AfterFunc,
		now:       cfg.Now,
		onChange:  cfg.OnChange,
	}
	if n.ttl <= 0 {
		n.ttl = DefaultNotificationTTL
	}
	if n.afterFunc == nil {
		n.afterFunc = systemAfterFunc
	}
	if n.now == nil {
		n.now = time.Now
	}
	return n
}

// Post replaces the current notification.
func (n *Notifier) Post(kind NotificationKind, text string) Notification {
	note := Notification{
		ID:      uuid.New(),
		Text:    text,
		Kind:    kind,
		Expires: n.now().Add(n.ttl),
	}

	n.mu.Lock()
	n.stopLocked()
	n.current = &note
	id := note.ID
	n.timer = n.afterFunc(n.ttl, func() { n.expire(id) })
	n.mu.Unlock()

	n.changed(&note)
	return note
}

// Dismiss clears the current notification and cancels its expiry.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	had := n.current != nil
	n.stopLocked()
	n.current = nil
	n.mu.Unlock()

	if had {
		n.changed(nil)
	}
}

// Current returns the active notification, if any.
func (n *Notifier) Current() (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return Notification{}, false
	}
	return *n.current, true
}

func (n *Notifier) expire(id uuid.UUID) {
	n.mu.Lock()
	if n.current == nil || n.current.ID != id {
		n.mu.Unlock()
		return
	}
	n.current = nil
	n.timer = nil
	n.mu.Unlock()

	n.changed(nil)
}

func (n *Notifier) stopLocked() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

func (n *Notifier) changed(current *Notification) {
	if n.onChange != nil {
		n.onChange(current)
	}
}

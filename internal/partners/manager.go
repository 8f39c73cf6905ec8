package partners

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Mode is the selection state of a manager.
type Mode int

const (
	ModeIdle Mode = iota
	ModeCreating
	ModeEditing
)

func (m Mode) String() string {
	switch m {
	case ModeCreating:
		return "creating"
	case ModeEditing:
		return "editing"
	default:
		return "idle"
	}
}

// SyncMode selects how saves and deletes reach the remote collection.
type SyncMode string

const (
	// SyncRemote writes through the gateway and stores the server's answer.
	SyncRemote SyncMode = "remote"
	// SyncLocal only mutates the local collection.
	SyncLocal SyncMode = "local"
)

// ParseSyncMode accepts "remote" or "local"; empty means remote.
func ParseSyncMode(s string) (SyncMode, error) {
	switch SyncMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", SyncRemote:
		return SyncRemote, nil
	case SyncLocal:
		return SyncLocal, nil
	default:
		return "", fmt.Errorf("partners: unknown sync mode %q", s)
	}
}

// Confirmer answers yes/no questions before destructive actions.
type Confirmer interface {
	Confirm(message string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(message string) bool

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(message string) bool {
	return f(message)
}

// ManagerConfig collects the dependencies of a Manager.
type ManagerConfig struct {
	Schema          Schema
	Gateway         Gateway
	Confirmer       Confirmer
	Sync            SyncMode
	Logger          *slog.Logger
	Notifier        *Notifier
	NotificationTTL time.Duration
}

// Manager owns the local state of one entity kind and turns user intents
// into store mutations and gateway calls. Intents are expected to arrive one
// at a time; the lock only protects readers such as a notification hook.
type Manager struct {
	schema    Schema
	gateway   Gateway
	confirmer Confirmer
	sync      SyncMode
	logger    *slog.Logger
	validator *Validator
	notifier  *Notifier

	mu        sync.Mutex
	store     *Store
	mode      Mode
	selection *Record
	fieldErr  *ValidationError
}

// NewManager constructs a Manager with an empty collection.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Gateway == nil {
		return nil, errors.New("partners: gateway required")
	}
	if cfg.Schema.Kind == "" {
		return nil, errors.New("partners: schema required")
	}
	syncMode := cfg.Sync
	if syncMode == "" {
		syncMode = SyncRemote
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NewNotifier(NotifierConfig{TTL: cfg.NotificationTTL})
	}
	return &Manager{
		schema:    cfg.Schema,
		gateway:   cfg.Gateway,
		confirmer: cfg.Confirmer,
		sync:      syncMode,
		logger:    logger.With(slog.String("kind", string(cfg.Schema.Kind))),
		validator: NewValidator(cfg.Schema),
		notifier:  notifier,
		store:     NewStore(),
	}, nil
}

// Schema returns the managed kind's schema.
func (m *Manager) Schema() Schema {
	return m.schema
}

// Load fetches the collection. On failure the previous collection is kept
// and an error notification is posted.
func (m *Manager) Load(ctx context.Context) error {
	records, err := m.gateway.List(ctx)
	if err != nil {
		m.logger.Warn("load collection", slog.Any("error", err))
		m.notifier.Post(NotifyError, fmt.Sprintf("Failed to load %s.", m.schema.Plural))
		return err
	}

	m.mu.Lock()
	m.store.Load(records)
	n := m.store.Len()
	m.mu.Unlock()

	m.logger.Debug("collection loaded", slog.Int("records", n))
	return nil
}

// SetSearch replaces both search predicates.
func (m *Manager) SetSearch(name, taxID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store.SetFilter(Filter{Name: name, TaxID: taxID})
}

// RequestCreate enters create mode with a blank record.
func (m *Manager) RequestCreate() Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selection = &Record{}
	m.mode = ModeCreating
	m.fieldErr = nil
	return *m.selection
}

// RequestEdit enters edit mode with a copy of the record. Unknown ids are
// ignored and report false.
func (m *Manager) RequestEdit(id int64) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.store.Get(id)
	if !ok {
		m.logger.Debug("edit target missing", slog.Int64("id", id))
		return Record{}, false
	}
	m.selection = &r
	m.mode = ModeEditing
	m.fieldErr = nil
	return r, true
}

// Cancel leaves create or edit mode without saving.
func (m *Manager) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearSelectionLocked()
}

// Save validates draft as the new content of the selected record and
// persists it. Validation failures set the field error and leave every other
// piece of state untouched.
func (m *Manager) Save(ctx context.Context, draft Draft) error {
	m.mu.Lock()
	if m.selection == nil {
		m.mu.Unlock()
		return ErrNoSelection
	}
	candidate := draft.Record(m.selection.ID)
	if err := m.validator.Validate(candidate, m.store.All()); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			m.fieldErr = verr
		}
		m.mu.Unlock()
		m.logger.Debug("candidate rejected", slog.Any("error", err))
		return err
	}
	m.fieldErr = nil
	creating := candidate.IsNew()

	if m.sync == SyncLocal {
		_, ok := m.store.Upsert(candidate)
		if !ok {
			m.clearSelectionLocked()
			m.mu.Unlock()
			return ErrNotFound
		}
		m.clearSelectionLocked()
		m.mu.Unlock()
		m.notifySaved(creating)
		return nil
	}
	m.mu.Unlock()

	var (
		saved Record
		err   error
	)
	if creating {
		saved, err = m.gateway.Create(ctx, draft)
	} else {
		saved, err = m.gateway.Update(ctx, candidate)
	}
	if err != nil {
		m.logger.Warn("save record", slog.Int64("id", candidate.ID), slog.Any("error", err))
		m.notifier.Post(NotifyError, fmt.Sprintf("Failed to save %s.", strings.ToLower(m.schema.Label)))
		return err
	}

	m.mu.Lock()
	m.store.Put(saved)
	m.clearSelectionLocked()
	m.mu.Unlock()

	m.notifySaved(creating)
	return nil
}

// RequestDelete removes a record after the confirmer agrees. It reports
// whether the record was deleted; unknown ids and declined confirmations are
// silent no-ops.
func (m *Manager) RequestDelete(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	_, ok := m.store.Get(id)
	m.mu.Unlock()
	if !ok {
		m.logger.Debug("delete target missing", slog.Int64("id", id))
		return false, nil
	}

	question := fmt.Sprintf("Are you sure you want to delete this %s?", strings.ToLower(m.schema.Label))
	if m.confirmer == nil || !m.confirmer.Confirm(question) {
		return false, nil
	}

	if m.sync == SyncRemote {
		if err := m.gateway.Delete(ctx, id); err != nil {
			m.logger.Warn("delete record", slog.Int64("id", id), slog.Any("error", err))
			m.notifier.Post(NotifyError, fmt.Sprintf("Failed to delete %s.", strings.ToLower(m.schema.Label)))
			return false, err
		}
	}

	m.mu.Lock()
	m.store.Remove(id)
	if m.selection != nil && m.selection.ID == id {
		m.clearSelectionLocked()
	}
	m.mu.Unlock()

	m.notifier.Post(NotifySuccess, fmt.Sprintf("%s deleted successfully.", m.schema.Label))
	return true, nil
}

// DismissNotification clears the current notification.
func (m *Manager) DismissNotification() {
	m.notifier.Dismiss()
}

// View returns the filtered view of the collection.
func (m *Manager) View() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.FilteredView()
}

// Records returns the whole collection.
func (m *Manager) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.All()
}

// Filter returns the active search predicates.
func (m *Manager) Filter() Filter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Filter()
}

// Notification returns the active notification, if any.
func (m *Manager) Notification() (Notification, bool) {
	return m.notifier.Current()
}

// FieldError returns the pending validation error for the editing surface.
func (m *Manager) FieldError() *ValidationError {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fieldErr
}

// Selection returns the record being created or edited.
func (m *Manager) Selection() (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selection == nil {
		return Record{}, false
	}
	return *m.selection, true
}

// Mode returns the selection state.
func (m *Manager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

func (m *Manager) clearSelectionLocked() {
	m.selection = nil
	m.mode = ModeIdle
	m.fieldErr = nil
}

func (m *Manager) notifySaved(created bool) {
	verb := "updated"
	if created {
		verb = "added"
	}
	m.notifier.Post(NotifySuccess, fmt.Sprintf("%s %s successfully.", m.schema.Label, verb))
}

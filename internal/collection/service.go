package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/partnerdesk/internal/observability"
	"github.com/odyssey-erp/partnerdesk/internal/partners"
	"github.com/odyssey-erp/partnerdesk/internal/platform/httpx"
)

// Change actions carried by ChangeEvent.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ChangeEvent describes a committed mutation.
type ChangeEvent struct {
	Kind   partners.Kind `json:"kind"`
	Action string        `json:"action"`
	ID     int64         `json:"id"`
	At     time.Time     `json:"at"`
}

// Publisher forwards change events, typically onto the job queue.
type Publisher interface {
	PublishChange(ctx context.Context, event ChangeEvent) error
}

// ListCache is the versioned cache used for list reads.
type ListCache interface {
	BuildKey(ctx context.Context, parts ...string) (string, error)
	FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error
	Bump(ctx context.Context) error
}

// recordInput is the server-side shape check for create and update bodies.
type recordInput struct {
	Name    string `json:"nome" validate:"notblank,max=200"`
	TaxID   string `json:"tax_id" validate:"notblank,max=32"`
	Contact string `json:"contato" validate:"notblank,max=200"`
	Address string `json:"endereco" validate:"max=300"`
}

// ServiceConfig collects the dependencies of a Service. Cache, Publisher,
// Metrics and Logger are optional.
type ServiceConfig struct {
	Schema    partners.Schema
	Repo      Repository
	Cache     ListCache
	Publisher Publisher
	Metrics   *observability.Metrics
	Logger    *slog.Logger
	Now       func() time.Time
}

// Service applies the collection rules for one kind.
type Service struct {
	schema    partners.Schema
	repo      Repository
	cache     ListCache
	publisher Publisher
	metrics   *observability.Metrics
	logger    *slog.Logger
	now       func() time.Time
	validate  *validator.Validate
	lists     singleflight.Group
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Repo == nil {
		return nil, errors.New("collection: repository required")
	}
	if cfg.Schema.Kind == "" {
		return nil, errors.New("collection: schema required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		schema:    cfg.Schema,
		repo:      cfg.Repo,
		cache:     cfg.Cache,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		logger:    logger.With(slog.String("kind", string(cfg.Schema.Kind))),
		now:       now,
		validate:  partners.NewValidate(),
	}, nil
}

// Schema returns the served kind's schema.
func (s *Service) Schema() partners.Schema {
	return s.schema
}

// List returns every record in id order. Concurrent calls share one load.
func (s *Service) List(ctx context.Context) ([]partners.Record, error) {
	key := "list"
	if s.cache != nil {
		built, err := s.cache.BuildKey(ctx, "list")
		if err != nil {
			s.logger.Warn("build list cache key", slog.Any("error", err))
		} else {
			key = built
		}
	}

	ch := s.lists.DoChan(key, func() (any, error) {
		return s.loadList(ctx, key)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return append([]partners.Record(nil), res.Val.([]partners.Record)...), nil
	}
}

func (s *Service) loadList(ctx context.Context, key string) ([]partners.Record, error) {
	if s.cache == nil {
		return s.repo.List(ctx)
	}
	var records []partners.Record
	err := s.cache.FetchJSON(ctx, key, &records, func(ctx context.Context) (any, error) {
		return s.repo.List(ctx)
	})
	if err != nil {
		s.logger.Warn("list cache unavailable", slog.Any("error", err))
		return s.repo.List(ctx)
	}
	if records == nil {
		records = []partners.Record{}
	}
	return records, nil
}

// Get returns one record.
func (s *Service) Get(ctx context.Context, id int64) (partners.Record, error) {
	if id <= 0 {
		return partners.Record{}, s.notFound(id)
	}
	rec, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return partners.Record{}, s.notFound(id)
	}
	return rec, err
}

// Create validates draft, checks tax id uniqueness and stores it.
func (s *Service) Create(ctx context.Context, draft partners.Draft) (partners.Record, error) {
	if err := s.check(draft); err != nil {
		return partners.Record{}, err
	}
	if _, taken, err := s.repo.FindByTaxID(ctx, draft.TaxID); err != nil {
		return partners.Record{}, err
	} else if taken {
		return partners.Record{}, s.duplicate()
	}
	created, err := s.repo.Create(ctx, draft)
	if err != nil {
		return partners.Record{}, s.translate(err, 0)
	}
	s.committed(ctx, ActionCreated, created.ID)
	return created, nil
}

// Update replaces the record with id.
func (s *Service) Update(ctx context.Context, id int64, draft partners.Draft) (partners.Record, error) {
	if err := s.check(draft); err != nil {
		return partners.Record{}, err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return partners.Record{}, err
	}
	if other, taken, err := s.repo.FindByTaxID(ctx, draft.TaxID); err != nil {
		return partners.Record{}, err
	} else if taken && other.ID != id {
		return partners.Record{}, s.duplicate()
	}
	updated, err := s.repo.Update(ctx, draft.Record(id))
	if err != nil {
		return partners.Record{}, s.translate(err, id)
	}
	s.committed(ctx, ActionUpdated, id)
	return updated, nil
}

// Delete removes the record with id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return s.notFound(id)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.translate(err, id)
	}
	s.committed(ctx, ActionDeleted, id)
	return nil
}

func (s *Service) check(d partners.Draft) error {
	err := s.validate.Struct(recordInput{Name: d.Name, TaxID: d.TaxID, Contact: d.Contact, Address: d.Address})
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Field()
		if field == "tax_id" {
			field = s.schema.TaxKey
		}
		if fe.Tag() == "notblank" {
			parts = append(parts, field+" is required")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s exceeds %s characters", field, fe.Param()))
	}
	return fmt.Errorf("%w: %s", httpx.ErrValidation, strings.Join(parts, "; "))
}

func (s *Service) translate(err error, id int64) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return s.notFound(id)
	case errors.Is(err, ErrDuplicateTaxID):
		return s.duplicate()
	default:
		return err
	}
}

func (s *Service) notFound(id int64) error {
	return fmt.Errorf("%s %d: %w", strings.ToLower(s.schema.Label), id, ErrNotFound)
}

func (s *Service) duplicate() error {
	return fmt.Errorf("%s: %w", s.schema.TaxLabel, ErrDuplicateTaxID)
}

// committed runs the side effects of a mutation. Failures are logged only:
// the mutation itself already succeeded.
func (s *Service) committed(ctx context.Context, action string, id int64) {
	s.metrics.RecordMutation(string(s.schema.Kind), action)
	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.Warn("bump list cache", slog.Any("error", err))
		}
	}
	if s.publisher != nil {
		event := ChangeEvent{Kind: s.schema.Kind, Action: action, ID: id, At: s.now().UTC()}
		if err := s.publisher.PublishChange(ctx, event); err != nil {
			s.logger.Warn("publish change", slog.String("action", action), slog.Int64("id", id), slog.Any("error", err))
		}
	}
	s.logger.Info("record "+action, slog.Int64("id", id))
}

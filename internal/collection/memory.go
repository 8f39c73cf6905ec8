package collection

import (
	"context"
	"sort"
	"sync"

	"github.com/odyssey-erp/partnerdesk/internal/partners"
)

// MemoryRepository keeps records in process. Ids are never reused.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[int64]partners.Record
	lastID  int64
}

// NewMemoryRepository returns a repository seeded with records.
func NewMemoryRepository(seed ...partners.Record) *MemoryRepository {
	r := &MemoryRepository{records: make(map[int64]partners.Record, len(seed))}
	for _, rec := range seed {
		if rec.IsNew() {
			continue
		}
		r.records[rec.ID] = rec
		if rec.ID > r.lastID {
			r.lastID = rec.ID
		}
	}
	return r
}

func (r *MemoryRepository) List(ctx context.Context) ([]partners.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]partners.Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id int64) (partners.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return partners.Record{}, ErrNotFound
	}
	return rec, nil
}

func (r *MemoryRepository) Create(ctx context.Context, draft partners.Draft) (partners.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.taxIDTakenLocked(draft.TaxID, 0) {
		return partners.Record{}, ErrDuplicateTaxID
	}
	r.lastID++
	rec := draft.Record(r.lastID)
	r.records[rec.ID] = rec
	return rec, nil
}

func (r *MemoryRepository) Update(ctx context.Context, record partners.Record) (partners.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[record.ID]; !ok {
		return partners.Record{}, ErrNotFound
	}
	if r.taxIDTakenLocked(record.TaxID, record.ID) {
		return partners.Record{}, ErrDuplicateTaxID
	}
	r.records[record.ID] = record
	return record, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return ErrNotFound
	}
	delete(r.records, id)
	return nil
}

func (r *MemoryRepository) FindByTaxID(ctx context.Context, taxID string) (partners.Record, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if rec.TaxID == taxID {
			return rec, true, nil
		}
	}
	return partners.Record{}, false, nil
}

func (r *MemoryRepository) taxIDTakenLocked(taxID string, except int64) bool {
	for id, rec := range r.records {
		if id != except && rec.TaxID == taxID {
			return true
		}
	}
	return false
}

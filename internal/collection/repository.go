// Package collection serves the /api/v1/{segment} remote collection for
// customers and suppliers.
package collection

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/partnerdesk/internal/partners"
	"github.com/odyssey-erp/partnerdesk/internal/platform/httpx"
)

var (
	// ErrNotFound is returned when no record carries the requested id.
	ErrNotFound = httpx.ErrNotFound
	// ErrDuplicateTaxID is returned when the tax id is already taken.
	ErrDuplicateTaxID = fmt.Errorf("tax id already registered: %w", httpx.ErrDuplicate)
)

// Repository persists the records of one kind. Records are listed in id order.
type Repository interface {
	List(ctx context.Context) ([]partners.Record, error)
	Get(ctx context.Context, id int64) (partners.Record, error)
	Create(ctx context.Context, draft partners.Draft) (partners.Record, error)
	Update(ctx context.Context, record partners.Record) (partners.Record, error)
	Delete(ctx context.Context, id int64) error
	FindByTaxID(ctx context.Context, taxID string) (partners.Record, bool, error)
}

// Table returns the table that stores kind.
func Table(kind partners.Kind) string {
	switch kind {
	case partners.KindSupplier:
		return "suppliers"
	default:
		return "customers"
	}
}

var recordColumns = []string{"id", "name", "tax_id", "contact", "address"}

func createTableSQL(table, idColumn string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id %s,
	name TEXT NOT NULL,
	tax_id TEXT NOT NULL,
	contact TEXT NOT NULL,
	address TEXT NOT NULL DEFAULT '',
	CONSTRAINT %s_tax_id_key UNIQUE (tax_id)
)`, table, idColumn, table)
}

package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/odyssey-erp/partnerdesk/internal/partners"
	"github.com/odyssey-erp/partnerdesk/internal/platform/db"
)

// Querier is the subset of *pgxpool.Pool the postgres repository needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EnsurePostgresSchema creates the customers and suppliers tables.
func EnsurePostgresSchema(ctx context.Context, conn db.TxBeginner) error {
	return db.WithTx(ctx, conn, func(tx pgx.Tx) error {
		for _, schema := range partners.Schemas() {
			if _, err := tx.Exec(ctx, createTableSQL(Table(schema.Kind), "BIGSERIAL PRIMARY KEY")); err != nil {
				return fmt.Errorf("collection: create %s: %w", Table(schema.Kind), err)
			}
		}
		return nil
	})
}

// PostgresRepository stores one kind in its postgres table.
type PostgresRepository struct {
	db    Querier
	table string
}

// NewPostgresRepository constructs the repository for schema's table.
func NewPostgresRepository(q Querier, schema partners.Schema) *PostgresRepository {
	return &PostgresRepository{db: q, table: Table(schema.Kind)}
}

func (r *PostgresRepository) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *PostgresRepository) List(ctx context.Context) ([]partners.Record, error) {
	query, args, err := r.builder().Select(recordColumns...).From(r.table).OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.table, err)
	}
	defer rows.Close()

	records := make([]partners.Record, 0)
	for rows.Next() {
		var rec partners.Record
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.TaxID, &rec.Contact, &rec.Address); err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.table, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (partners.Record, error) {
	query, args, err := r.builder().Select(recordColumns...).From(r.table).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return partners.Record{}, fmt.Errorf("build get: %w", err)
	}
	return r.scanOne(r.db.QueryRow(ctx, query, args...))
}

func (r *PostgresRepository) FindByTaxID(ctx context.Context, taxID string) (partners.Record, bool, error) {
	query, args, err := r.builder().Select(recordColumns...).From(r.table).Where(squirrel.Eq{"tax_id": taxID}).ToSql()
	if err != nil {
		return partners.Record{}, false, fmt.Errorf("build find: %w", err)
	}
	rec, err := r.scanOne(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, ErrNotFound) {
		return partners.Record{}, false, nil
	}
	if err != nil {
		return partners.Record{}, false, err
	}
	return rec, true, nil
}

func (r *PostgresRepository) Create(ctx context.Context, draft partners.Draft) (partners.Record, error) {
	query, args, err := r.builder().
		Insert(r.table).
		Columns("name", "tax_id", "contact", "address").
		Values(draft.Name, draft.TaxID, draft.Contact, draft.Address).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return partners.Record{}, fmt.Errorf("build insert: %w", err)
	}
	var id int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if db.IsUniqueViolation(err, r.table+"_tax_id_key") {
			return partners.Record{}, ErrDuplicateTaxID
		}
		return partners.Record{}, fmt.Errorf("insert %s: %w", r.table, err)
	}
	return draft.Record(id), nil
}

func (r *PostgresRepository) Update(ctx context.Context, record partners.Record) (partners.Record, error) {
	query, args, err := r.builder().
		Update(r.table).
		Set("name", record.Name).
		Set("tax_id", record.TaxID).
		Set("contact", record.Contact).
		Set("address", record.Address).
		Where(squirrel.Eq{"id": record.ID}).
		ToSql()
	if err != nil {
		return partners.Record{}, fmt.Errorf("build update: %w", err)
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if db.IsUniqueViolation(err, r.table+"_tax_id_key") {
			return partners.Record{}, ErrDuplicateTaxID
		}
		return partners.Record{}, fmt.Errorf("update %s: %w", r.table, err)
	}
	if tag.RowsAffected() == 0 {
		return partners.Record{}, ErrNotFound
	}
	return record, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := r.builder().Delete(r.table).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.table, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) scanOne(row pgx.Row) (partners.Record, error) {
	var rec partners.Record
	if err := row.Scan(&rec.ID, &rec.Name, &rec.TaxID, &rec.Contact, &rec.Address); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return partners.Record{}, ErrNotFound
		}
		return partners.Record{}, fmt.Errorf("scan %s: %w", r.table, err)
	}
	return rec, nil
}

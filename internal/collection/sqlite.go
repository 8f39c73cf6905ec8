package collection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/odyssey-erp/partnerdesk/internal/partners"
)

// OpenSQLite opens (creating when needed) the database file and its tables.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		path = "partnerdesk.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite serialises writers
	conn.SetMaxOpenConns(1)
	for _, schema := range partners.Schemas() {
		table := Table(schema.Kind)
		if _, err := conn.ExecContext(ctx, createTableSQL(table, "INTEGER PRIMARY KEY AUTOINCREMENT")); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("create %s: %w", table, err)
		}
	}
	return conn, nil
}

// SQLiteRepository stores one kind in its sqlite table.
type SQLiteRepository struct {
	db    *sql.DB
	table string
}

// NewSQLiteRepository constructs the repository for schema's table.
func NewSQLiteRepository(conn *sql.DB, schema partners.Schema) *SQLiteRepository {
	return &SQLiteRepository{db: conn, table: Table(schema.Kind)}
}

func (r *SQLiteRepository) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
}

func (r *SQLiteRepository) List(ctx context.Context) ([]partners.Record, error) {
	query, args, err := r.builder().Select(recordColumns...).From(r.table).OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.table, err)
	}
	defer func() { _ = rows.Close() }()

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

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (partners.Record, error) {
	return r.selectOne(ctx, squirrel.Eq{"id": id})
}

func (r *SQLiteRepository) FindByTaxID(ctx context.Context, taxID string) (partners.Record, bool, error) {
	rec, err := r.selectOne(ctx, squirrel.Eq{"tax_id": taxID})
	if errors.Is(err, ErrNotFound) {
		return partners.Record{}, false, nil
	}
	if err != nil {
		return partners.Record{}, false, err
	}
	return rec, true, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, draft partners.Draft) (partners.Record, error) {
	query, args, err := r.builder().
		Insert(r.table).
		Columns("name", "tax_id", "contact", "address").
		Values(draft.Name, draft.TaxID, draft.Contact, draft.Address).
		ToSql()
	if err != nil {
		return partners.Record{}, fmt.Errorf("build insert: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isSQLiteUnique(err) {
			return partners.Record{}, ErrDuplicateTaxID
		}
		return partners.Record{}, fmt.Errorf("insert %s: %w", r.table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return partners.Record{}, fmt.Errorf("insert %s: %w", r.table, err)
	}
	return draft.Record(id), nil
}

func (r *SQLiteRepository) Update(ctx context.Context, record partners.Record) (partners.Record, error) {
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
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isSQLiteUnique(err) {
			return partners.Record{}, ErrDuplicateTaxID
		}
		return partners.Record{}, fmt.Errorf("update %s: %w", r.table, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return partners.Record{}, ErrNotFound
	}
	return record, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := r.builder().Delete(r.table).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.table, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) selectOne(ctx context.Context, where squirrel.Eq) (partners.Record, error) {
	query, args, err := r.builder().Select(recordColumns...).From(r.table).Where(where).ToSql()
	if err != nil {
		return partners.Record{}, fmt.Errorf("build select: %w", err)
	}
	var rec partners.Record
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&rec.ID, &rec.Name, &rec.TaxID, &rec.Contact, &rec.Address)
	if errors.Is(err, sql.ErrNoRows) {
		return partners.Record{}, ErrNotFound
	}
	if err != nil {
		return partners.Record{}, fmt.Errorf("select %s: %w", r.table, err)
	}
	return rec, nil
}

func isSQLiteUnique(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	// primary result code when extended codes are off
	return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), "UNIQUE")
}

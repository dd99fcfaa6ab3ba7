package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"billdash/internal/core"

	_ "modernc.org/sqlite"
)

const filterKey = "filter_category"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Add implements ports.BillWriter
func (r *SQLiteRepository) Add(ctx context.Context, b core.Bill) error {
	if b.ID == "" {
		return core.ErrMissingID
	}
	if err := b.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bills (id, name, amount_cents, category, bill_date) VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.Amount.Cents, string(b.Category), b.Date.String())
	if err != nil {
		return fmt.Errorf("insert bill: %w", err)
	}

	slog.DebugContext(ctx, "Bill saved to SQLite",
		"id", b.ID,
		"amount_cents", b.Amount.Cents,
		"category", b.Category)
	return nil
}

// Edit implements ports.BillEditor
func (r *SQLiteRepository) Edit(ctx context.Context, b core.Bill) error {
	if err := b.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE bills SET name = ?, amount_cents = ?, category = ?, bill_date = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		b.Name, b.Amount.Cents, string(b.Category), b.Date.String(), b.ID)
	if err != nil {
		return fmt.Errorf("update bill %s: %w", b.ID, err)
	}
	return expectOneRow(res, b.ID)
}

// Delete implements ports.BillDeleter
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bills WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bill %s: %w", id, err)
	}
	return expectOneRow(res, id)
}

// ListBills implements ports.BillLister
func (r *SQLiteRepository) ListBills(ctx context.Context) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, amount_cents, category, bill_date FROM bills ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return scanBills(rows)
}

// ListMonth implements ports.BillLister
func (r *SQLiteRepository) ListMonth(ctx context.Context, year int, month int) ([]core.Bill, error) {
	from := core.NewDate(year, month, 1)
	to := core.Date{Time: from.AddDate(0, 1, 0)}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, amount_cents, category, bill_date FROM bills
		 WHERE bill_date >= ? AND bill_date < ? ORDER BY seq`,
		from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list bills for %d-%02d: %w", year, month, err)
	}
	return scanBills(rows)
}

// Filter implements ports.FilterStore
func (r *SQLiteRepository) Filter(ctx context.Context) (core.CategoryFilter, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, filterKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FilterAll, nil
	}
	if err != nil {
		return "", fmt.Errorf("read filter: %w", err)
	}
	f, err := core.ParseFilter(value)
	if err != nil {
		slog.WarnContext(ctx, "Stored filter is invalid, falling back to All", "value", value)
		return core.FilterAll, nil
	}
	return f, nil
}

// SetFilter implements ports.FilterStore
func (r *SQLiteRepository) SetFilter(ctx context.Context, f core.CategoryFilter) error {
	pf, err := core.ParseFilter(string(f))
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		filterKey, pf.String())
	if err != nil {
		return fmt.Errorf("save filter: %w", err)
	}
	return nil
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for bill %s: %w", id, err)
	}
	if n == 0 {
		return core.ErrBillNotFound
	}
	return nil
}

func scanBills(rows *sql.Rows) ([]core.Bill, error) {
	defer rows.Close()

	var bills []core.Bill
	for rows.Next() {
		var (
			b        core.Bill
			category string
			date     string
		)
		if err := rows.Scan(&b.ID, &b.Name, &b.Amount.Cents, &category, &date); err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		b.Category = core.Category(category)
		t, err := time.Parse(time.DateOnly, date)
		if err != nil {
			return nil, fmt.Errorf("parse date of bill %s: %w", b.ID, err)
		}
		b.Date = core.Date{Time: t}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bills: %w", err)
	}
	return bills, nil
}

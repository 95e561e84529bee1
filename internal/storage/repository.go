package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"budget/internal/core"
	"budget/internal/store"
)

// Dialect selects the SQL flavour of a Repository.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	return string(d)
}

// Repository is a database/sql implementation of store.TransactionStore.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	newID   func() string
}

// NewSQLiteRepository opens (and creates if needed) the database file at dbPath.
func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(DialectSQLite, dbPath)
}

// NewPostgresRepository connects to the server at dsn.
func NewPostgresRepository(dsn string) (*Repository, error) {
	return open(DialectPostgres, dsn)
}

func open(dialect Dialect, dsn string) (*Repository, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, dialect: dialect, newID: uuid.NewString}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// rebind rewrites "?" placeholders to "$n" for PostgreSQL.
func (r *Repository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// Create implements store.TransactionStore.
func (r *Repository) Create(ctx context.Context, owner string, t core.Transaction) (string, error) {
	if owner == "" {
		return "", core.ErrNotAuthenticated
	}
	if err := t.Validate(); err != nil {
		return "", err
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	id := r.newID()

	_, err := r.db.ExecContext(ctx, r.rebind(
		`INSERT INTO transactions (id, owner, text, amount_cents, category, period, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		id, owner, t.Text, t.Amount.Cents, t.Category, t.Period, t.CreatedAt.UnixNano())
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"dialect", r.dialect,
		"transaction_id", id,
		"owner", owner,
		"amount_cents", t.Amount.Cents,
		"category", t.Category,
		"period", t.Period)

	return id, nil
}

// ListByOwner implements store.TransactionStore. Rows come back newest first.
func (r *Repository) ListByOwner(ctx context.Context, owner string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(
		`SELECT id, owner, text, amount_cents, category, period, created_at
		 FROM transactions WHERE owner = ? ORDER BY created_at DESC`), owner)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		var (
			t       core.Transaction
			created int64
		)
		if err := rows.Scan(&t.ID, &t.Owner, &t.Text, &t.Amount.Cents, &t.Category, &t.Period, &created); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// Update implements store.TransactionStore.
func (r *Repository) Update(ctx context.Context, id string, patch core.TransactionPatch) error {
	patch, err := patch.Normalize()
	if err != nil {
		return err
	}

	var (
		sets []string
		args []any
	)
	if patch.Text != nil {
		sets = append(sets, "text = ?")
		args = append(args, *patch.Text)
	}
	if patch.Amount != nil {
		sets = append(sets, "amount_cents = ?")
		args = append(args, patch.Amount.Cents)
	}
	if patch.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *patch.Category)
	}
	if patch.Period != nil {
		sets = append(sets, "period = ?")
		args = append(args, *patch.Period)
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, r.rebind("UPDATE transactions SET "+strings.Join(sets, ", ")+" WHERE id = ?"), args...)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return expectOneRow(res, id)
}

// Delete implements store.TransactionStore.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.rebind("DELETE FROM transactions WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if err := expectOneRow(res, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction deleted", "dialect", r.dialect, "transaction_id", id)
	return nil
}

// ListOwners implements store.OwnerLister.
func (r *Repository) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT owner FROM transactions ORDER BY owner")
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// Package storage implements the SQLite-backed repository. The schema carries
// the two uniqueness constraints the domain depends on: one category name per
// user (at-most-once default seeding) and one external_id per user (import
// deduplication under concurrent syncs).
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"budget/internal/core"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

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

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ListCategories returns the user's categories in creation order.
func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, budget_limit_cents, color, created_at
		FROM categories
		WHERE user_id = ?
		ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, &core.StorageError{Operation: "list categories", Err: err}
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, &core.StorageError{Operation: "scan category", Err: err}
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Operation: "list categories", Err: err}
	}
	return categories, nil
}

// GetCategory fetches one category owned by the user.
func (r *SQLiteRepository) GetCategory(ctx context.Context, userID, id string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, budget_limit_cents, color, created_at
		FROM categories
		WHERE user_id = ? AND id = ?`, userID, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, &core.StorageError{Operation: "get category", Err: err}
	}
	return c, nil
}

// GetCategoryByName fetches one category owned by the user by its exact name.
func (r *SQLiteRepository) GetCategoryByName(ctx context.Context, userID, name string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, budget_limit_cents, color, created_at
		FROM categories
		WHERE user_id = ? AND name = ?`, userID, name)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, &core.StorageError{Operation: "get category by name", Err: err}
	}
	return c, nil
}

// CreateCategory inserts a category and returns it with id and timestamp set.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name, budget_limit_cents, color, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.BudgetLimit.Cents, c.Color, c.CreatedAt.Format(timeLayout))
	if err != nil {
		return core.Category{}, &core.StorageError{Operation: "create category", Err: err}
	}

	slog.InfoContext(ctx, "Category saved", "id", c.ID, "name", c.Name, "budget_limit_cents", c.BudgetLimit.Cents)
	return c, nil
}

// SeedDefaultCategories inserts the seed set with INSERT OR IGNORE per row, so
// a racing seeding attempt converges on a single set. Returns how many rows
// this call actually inserted.
func (r *SQLiteRepository) SeedDefaultCategories(ctx context.Context, userID string, seeds []core.CategorySeed) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &core.StorageError{Operation: "seed categories", Err: err}
	}
	defer tx.Rollback()

	inserted := 0
	now := time.Now().UTC()
	for i, seed := range seeds {
		// Staggered timestamps keep the seeded set in a stable list order.
		createdAt := now.Add(time.Duration(i) * time.Millisecond)
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO categories (id, user_id, name, budget_limit_cents, color, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), userID, seed.Name, seed.BudgetLimit.Cents, seed.Color, createdAt.Format(timeLayout))
		if err != nil {
			return 0, &core.StorageError{Operation: "seed categories", Err: err}
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &core.StorageError{Operation: "seed categories", Err: err}
	}

	if inserted > 0 {
		slog.InfoContext(ctx, "Default categories seeded", "user_id", userID, "count", inserted)
	}
	return inserted, nil
}

// ListTransactions returns the user's transactions, newest date first, ties
// broken by creation order (newest created first).
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, category_id, amount_cents, description, date, created_at, external_id, external_category_hint
		FROM transactions
		WHERE user_id = ?
		ORDER BY date DESC, created_at DESC`, userID)
	if err != nil {
		return nil, &core.StorageError{Operation: "list transactions", Err: err}
	}
	defer rows.Close()

	var transactions []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, &core.StorageError{Operation: "scan transaction", Err: err}
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Operation: "list transactions", Err: err}
	}
	return transactions, nil
}

// CreateTransaction inserts a transaction and returns it with id and timestamp set.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, category_id, amount_cents, description, date, created_at, external_id, external_category_hint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.CategoryID, t.Amount.Cents, t.Description, t.Date.String(),
		t.CreatedAt.Format(timeLayout), nullable(t.ExternalID), nullable(t.ExternalCategoryHint))
	if err != nil {
		return core.Transaction{}, &core.StorageError{Operation: "create transaction", Err: err}
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"category_id", t.CategoryID,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.String())
	return t, nil
}

// BulkImport inserts externally-sourced transactions one at a time. Records
// already present (same user_id + external_id) come back as duplicates, other
// per-record failures do not block the rest of the batch.
func (r *SQLiteRepository) BulkImport(ctx context.Context, transactions []core.Transaction) ([]core.ImportResult, error) {
	results := make([]core.ImportResult, 0, len(transactions))
	for _, t := range transactions {
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO transactions (id, user_id, category_id, amount_cents, description, date, created_at, external_id, external_category_hint)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.UserID, t.CategoryID, t.Amount.Cents, t.Description, t.Date.String(),
			t.CreatedAt.Format(timeLayout), nullable(t.ExternalID), nullable(t.ExternalCategoryHint))
		switch {
		case err == nil:
			results = append(results, core.ImportResult{ExternalID: t.ExternalID, Status: core.ImportInserted, Transaction: t})
		case isUniqueViolation(err):
			results = append(results, core.ImportResult{ExternalID: t.ExternalID, Status: core.ImportDuplicate})
		default:
			slog.WarnContext(ctx, "Import record failed", "external_id", t.ExternalID, "error", err)
			results = append(results, core.ImportResult{
				ExternalID: t.ExternalID,
				Status:     core.ImportFailed,
				Err:        &core.StorageError{Operation: "import transaction", Err: err},
			})
		}
	}
	return results, nil
}

// SaveAccessToken upserts the durable aggregator token for a user.
func (r *SQLiteRepository) SaveAccessToken(ctx context.Context, link core.BankLink) error {
	if link.LinkedAt.IsZero() {
		link.LinkedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bank_access_tokens (user_id, access_token, item_id, linked_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			access_token = excluded.access_token,
			item_id = excluded.item_id,
			linked_at = excluded.linked_at`,
		link.UserID, link.AccessToken, link.ItemID, link.LinkedAt.Format(timeLayout))
	if err != nil {
		return &core.StorageError{Operation: "save access token", Err: err}
	}
	slog.InfoContext(ctx, "Bank access token stored", "user_id", link.UserID)
	return nil
}

// GetAccessToken returns the stored bank link, or core.ErrNoBankLink.
func (r *SQLiteRepository) GetAccessToken(ctx context.Context, userID string) (core.BankLink, error) {
	var link core.BankLink
	var linkedAt string
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, access_token, item_id, linked_at
		FROM bank_access_tokens
		WHERE user_id = ?`, userID).Scan(&link.UserID, &link.AccessToken, &link.ItemID, &linkedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BankLink{}, core.ErrNoBankLink
	}
	if err != nil {
		return core.BankLink{}, &core.StorageError{Operation: "get access token", Err: err}
	}
	link.LinkedAt, _ = time.Parse(timeLayout, linkedAt)
	return link, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (core.Category, error) {
	var c core.Category
	var createdAt string
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.BudgetLimit.Cents, &c.Color, &createdAt); err != nil {
		return core.Category{}, err
	}
	c.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return c, nil
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var date, createdAt string
	var externalID, hint sql.NullString
	if err := row.Scan(&t.ID, &t.UserID, &t.CategoryID, &t.Amount.Cents, &t.Description, &date, &createdAt, &externalID, &hint); err != nil {
		return core.Transaction{}, err
	}
	if d, err := core.ParseDate(date); err == nil {
		t.Date = d
	}
	t.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	t.ExternalID = externalID.String
	t.ExternalCategoryHint = hint.String
	return t, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

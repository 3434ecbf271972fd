// Package supabase implements the repository against a hosted Supabase
// (PostgREST) project, mirroring the schema the SQLite backend carries
// locally. Uniqueness on (user_id, name) and (user_id, external_id) is
// enforced by the hosted Postgres constraints.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/supabase-community/supabase-go"

	"budget/internal/core"
)

type Repository struct {
	client *supabase.Client
}

func NewRepository(url, key string) (*Repository, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &Repository{client: client}, nil
}

type categoryRow struct {
	ID               string    `json:"id,omitempty"`
	UserID           string    `json:"user_id"`
	Name             string    `json:"name"`
	BudgetLimitCents int64     `json:"budget_limit_cents"`
	Color            string    `json:"color"`
	CreatedAt        time.Time `json:"created_at,omitempty"`
}

type transactionRow struct {
	ID                   string    `json:"id,omitempty"`
	UserID               string    `json:"user_id"`
	CategoryID           string    `json:"category_id"`
	AmountCents          int64     `json:"amount_cents"`
	Description          string    `json:"description"`
	Date                 string    `json:"date"`
	CreatedAt            time.Time `json:"created_at,omitempty"`
	ExternalID           *string   `json:"external_id,omitempty"`
	ExternalCategoryHint *string   `json:"external_category_hint,omitempty"`
}

type bankLinkRow struct {
	UserID      string    `json:"user_id"`
	AccessToken string    `json:"access_token"`
	ItemID      string    `json:"item_id"`
	LinkedAt    time.Time `json:"linked_at"`
}

func (r categoryRow) toDomain() core.Category {
	return core.Category{
		ID:          r.ID,
		UserID:      r.UserID,
		Name:        r.Name,
		BudgetLimit: core.Money{Cents: r.BudgetLimitCents},
		Color:       r.Color,
		CreatedAt:   r.CreatedAt,
	}
}

func (r transactionRow) toDomain() core.Transaction {
	t := core.Transaction{
		ID:          r.ID,
		UserID:      r.UserID,
		CategoryID:  r.CategoryID,
		Amount:      core.Money{Cents: r.AmountCents},
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
	}
	if d, err := core.ParseDate(r.Date); err == nil {
		t.Date = d
	}
	if r.ExternalID != nil {
		t.ExternalID = *r.ExternalID
	}
	if r.ExternalCategoryHint != nil {
		t.ExternalCategoryHint = *r.ExternalCategoryHint
	}
	return t
}

func transactionToRow(t core.Transaction) transactionRow {
	row := transactionRow{
		UserID:      t.UserID,
		CategoryID:  t.CategoryID,
		AmountCents: t.Amount.Cents,
		Description: t.Description,
		Date:        t.Date.String(),
	}
	if t.ExternalID != "" {
		row.ExternalID = &t.ExternalID
	}
	if t.ExternalCategoryHint != "" {
		row.ExternalCategoryHint = &t.ExternalCategoryHint
	}
	return row
}

func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate key")
}

func (r *Repository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	data, _, err := r.client.From("categories").
		Select("*", "", false).
		Eq("user_id", userID).
		Order("created_at.asc", nil).
		Execute()
	if err != nil {
		return nil, &core.StorageError{Operation: "list categories", Err: err}
	}

	var rows []categoryRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, &core.StorageError{Operation: "parse categories", Err: err}
	}
	categories := make([]core.Category, len(rows))
	for i, row := range rows {
		categories[i] = row.toDomain()
	}
	return categories, nil
}

func (r *Repository) GetCategory(ctx context.Context, userID, id string) (core.Category, error) {
	data, _, err := r.client.From("categories").
		Select("*", "", false).
		Eq("user_id", userID).
		Eq("id", id).
		Execute()
	if err != nil {
		return core.Category{}, &core.StorageError{Operation: "get category", Err: err}
	}
	var rows []categoryRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return core.Category{}, &core.StorageError{Operation: "parse category", Err: err}
	}
	if len(rows) == 0 {
		return core.Category{}, core.ErrNotFound
	}
	return rows[0].toDomain(), nil
}

func (r *Repository) GetCategoryByName(ctx context.Context, userID, name string) (core.Category, error) {
	data, _, err := r.client.From("categories").
		Select("*", "", false).
		Eq("user_id", userID).
		Eq("name", name).
		Execute()
	if err != nil {
		return core.Category{}, &core.StorageError{Operation: "get category by name", Err: err}
	}
	var rows []categoryRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return core.Category{}, &core.StorageError{Operation: "parse category", Err: err}
	}
	if len(rows) == 0 {
		return core.Category{}, core.ErrNotFound
	}
	return rows[0].toDomain(), nil
}

func (r *Repository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	row := categoryRow{
		UserID:           c.UserID,
		Name:             c.Name,
		BudgetLimitCents: c.BudgetLimit.Cents,
		Color:            c.Color,
	}
	data, _, err := r.client.From("categories").Insert(row, false, "", "representation", "").Execute()
	if err != nil {
		return core.Category{}, &core.StorageError{Operation: "create category", Err: err}
	}

	var created []categoryRow
	if err := json.Unmarshal(data, &created); err != nil {
		return core.Category{}, &core.StorageError{Operation: "parse created category", Err: err}
	}
	if len(created) == 0 {
		return core.Category{}, &core.StorageError{Operation: "create category", Err: fmt.Errorf("no row returned")}
	}
	return created[0].toDomain(), nil
}

// SeedDefaultCategories upserts the seed set keyed on (user_id, name), so a
// racing seeding attempt converges on a single set.
func (r *Repository) SeedDefaultCategories(ctx context.Context, userID string, seeds []core.CategorySeed) (int, error) {
	rows := make([]categoryRow, len(seeds))
	for i, seed := range seeds {
		rows[i] = categoryRow{
			UserID:           userID,
			Name:             seed.Name,
			BudgetLimitCents: seed.BudgetLimit.Cents,
			Color:            seed.Color,
		}
	}
	data, _, err := r.client.From("categories").Insert(rows, true, "user_id,name", "representation", "").Execute()
	if err != nil {
		return 0, &core.StorageError{Operation: "seed categories", Err: err}
	}
	var upserted []categoryRow
	if err := json.Unmarshal(data, &upserted); err != nil {
		return 0, &core.StorageError{Operation: "parse seeded categories", Err: err}
	}
	return len(upserted), nil
}

func (r *Repository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	data, _, err := r.client.From("transactions").
		Select("*", "", false).
		Eq("user_id", userID).
		Order("date.desc", nil).
		Order("created_at.desc", nil).
		Execute()
	if err != nil {
		return nil, &core.StorageError{Operation: "list transactions", Err: err}
	}

	var rows []transactionRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, &core.StorageError{Operation: "parse transactions", Err: err}
	}
	transactions := make([]core.Transaction, len(rows))
	for i, row := range rows {
		transactions[i] = row.toDomain()
	}
	return transactions, nil
}

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	data, _, err := r.client.From("transactions").Insert(transactionToRow(t), false, "", "representation", "").Execute()
	if err != nil {
		return core.Transaction{}, &core.StorageError{Operation: "create transaction", Err: err}
	}

	var created []transactionRow
	if err := json.Unmarshal(data, &created); err != nil {
		return core.Transaction{}, &core.StorageError{Operation: "parse created transaction", Err: err}
	}
	if len(created) == 0 {
		return core.Transaction{}, &core.StorageError{Operation: "create transaction", Err: fmt.Errorf("no row returned")}
	}
	return created[0].toDomain(), nil
}

// BulkImport inserts records one at a time so a rejected row (duplicate
// external_id, constraint violation) never blocks the rest of the batch.
func (r *Repository) BulkImport(ctx context.Context, transactions []core.Transaction) ([]core.ImportResult, error) {
	results := make([]core.ImportResult, 0, len(transactions))
	for _, t := range transactions {
		data, _, err := r.client.From("transactions").Insert(transactionToRow(t), false, "", "representation", "").Execute()
		switch {
		case err == nil:
			var created []transactionRow
			if err := json.Unmarshal(data, &created); err == nil && len(created) > 0 {
				t = created[0].toDomain()
			}
			results = append(results, core.ImportResult{ExternalID: t.ExternalID, Status: core.ImportInserted, Transaction: t})
		case isDuplicateKey(err):
			results = append(results, core.ImportResult{ExternalID: t.ExternalID, Status: core.ImportDuplicate})
		default:
			results = append(results, core.ImportResult{
				ExternalID: t.ExternalID,
				Status:     core.ImportFailed,
				Err:        &core.StorageError{Operation: "import transaction", Err: err},
			})
		}
	}
	return results, nil
}

func (r *Repository) SaveAccessToken(ctx context.Context, link core.BankLink) error {
	if link.LinkedAt.IsZero() {
		link.LinkedAt = time.Now().UTC()
	}
	row := bankLinkRow{
		UserID:      link.UserID,
		AccessToken: link.AccessToken,
		ItemID:      link.ItemID,
		LinkedAt:    link.LinkedAt,
	}
	_, _, err := r.client.From("bank_access_tokens").Insert(row, true, "user_id", "", "").Execute()
	if err != nil {
		return &core.StorageError{Operation: "save access token", Err: err}
	}
	return nil
}

func (r *Repository) GetAccessToken(ctx context.Context, userID string) (core.BankLink, error) {
	data, _, err := r.client.From("bank_access_tokens").
		Select("*", "", false).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return core.BankLink{}, &core.StorageError{Operation: "get access token", Err: err}
	}
	var rows []bankLinkRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return core.BankLink{}, &core.StorageError{Operation: "parse access token", Err: err}
	}
	if len(rows) == 0 {
		return core.BankLink{}, core.ErrNoBankLink
	}
	row := rows[0]
	return core.BankLink{
		UserID:      row.UserID,
		AccessToken: row.AccessToken,
		ItemID:      row.ItemID,
		LinkedAt:    row.LinkedAt,
	}, nil
}

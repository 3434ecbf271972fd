package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"budget/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "budget.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestCreateAndListCategories(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateCategory(ctx, core.Category{
		UserID:      "u1",
		Name:        "Groceries",
		BudgetLimit: core.Money{Cents: 80000},
		Color:       "#45B7D1",
	})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}

	cats, err := repo.ListCategories(ctx, "u1")
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(cats) != 1 || cats[0].Name != "Groceries" {
		t.Fatalf("unexpected categories: %+v", cats)
	}

	// Another user sees nothing
	other, err := repo.ListCategories(ctx, "u2")
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no categories for u2, got %d", len(other))
	}
}

func TestDuplicateCategoryNameRejected(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.CreateCategory(ctx, core.Category{UserID: "u1", Name: "Rent"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := repo.CreateCategory(ctx, core.Category{UserID: "u1", Name: "Rent"})
	if err == nil {
		t.Fatal("expected unique violation for duplicate name")
	}
	var se *core.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %T", err)
	}

	// Same name for a different user is fine
	if _, err := repo.CreateCategory(ctx, core.Category{UserID: "u2", Name: "Rent"}); err != nil {
		t.Fatalf("create for second user: %v", err)
	}
}

func TestSeedDefaultCategoriesIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seeds := core.DefaultCategorySeeds()

	n, err := repo.SeedDefaultCategories(ctx, "u1", seeds)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n != len(seeds) {
		t.Fatalf("expected %d inserted, got %d", len(seeds), n)
	}

	// Second seeding inserts nothing
	n, err = repo.SeedDefaultCategories(ctx, "u1", seeds)
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 inserted on re-seed, got %d", n)
	}

	cats, err := repo.ListCategories(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cats) != len(seeds) {
		t.Fatalf("expected %d categories, got %d", len(seeds), len(cats))
	}
	// Seed order preserved
	if cats[0].Name != "Housing" || cats[len(cats)-1].Name != core.FallbackCategoryName {
		t.Fatalf("unexpected order: first=%q last=%q", cats[0].Name, cats[len(cats)-1].Name)
	}
}

func TestListTransactionsOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat, err := repo.CreateCategory(ctx, core.Category{UserID: "u1", Name: "Misc"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	dates := []core.Date{
		core.NewDate(2024, 3, 1),
		core.NewDate(2024, 3, 15),
		core.NewDate(2024, 2, 28),
	}
	for i, d := range dates {
		_, err := repo.CreateTransaction(ctx, core.Transaction{
			UserID:      "u1",
			CategoryID:  cat.ID,
			Amount:      core.Money{Cents: int64(100 * (i + 1))},
			Description: "tx",
			Date:        d,
		})
		if err != nil {
			t.Fatalf("create transaction %d: %v", i, err)
		}
	}

	txs, err := repo.ListTransactions(ctx, "u1")
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txs))
	}
	want := []string{"2024-03-15", "2024-03-01", "2024-02-28"}
	for i, w := range want {
		if txs[i].Date.String() != w {
			t.Fatalf("position %d: expected %s, got %s", i, w, txs[i].Date.String())
		}
	}
}

func TestBulkImportDeduplicates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat, err := repo.CreateCategory(ctx, core.Category{UserID: "u1", Name: "Misc"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	batch := []core.Transaction{
		{UserID: "u1", CategoryID: cat.ID, Amount: core.Money{Cents: 1250}, Description: "Coffee", Date: core.NewDate(2024, 3, 1), ExternalID: "ext-1"},
		{UserID: "u1", CategoryID: cat.ID, Amount: core.Money{Cents: 4200}, Description: "Gas", Date: core.NewDate(2024, 3, 2), ExternalID: "ext-2"},
	}
	results, err := repo.BulkImport(ctx, batch)
	if err != nil {
		t.Fatalf("bulk import: %v", err)
	}
	summary := core.Summarize(results)
	if summary.Inserted != 2 || summary.Duplicates != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	// Re-importing the same batch yields only duplicates
	results, err = repo.BulkImport(ctx, batch)
	if err != nil {
		t.Fatalf("second bulk import: %v", err)
	}
	summary = core.Summarize(results)
	if summary.Inserted != 0 || summary.Duplicates != 2 {
		t.Fatalf("expected all duplicates, got %+v", summary)
	}

	txs, err := repo.ListTransactions(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 stored transactions, got %d", len(txs))
	}
}

func TestBulkImportPartialFailure(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat, err := repo.CreateCategory(ctx, core.Category{UserID: "u1", Name: "Misc"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	// Duplicate external id inside one batch: second record is skipped,
	// third still lands.
	batch := []core.Transaction{
		{UserID: "u1", CategoryID: cat.ID, Amount: core.Money{Cents: 100}, Date: core.NewDate(2024, 3, 1), ExternalID: "ext-1"},
		{UserID: "u1", CategoryID: cat.ID, Amount: core.Money{Cents: 200}, Date: core.NewDate(2024, 3, 1), ExternalID: "ext-1"},
		{UserID: "u1", CategoryID: cat.ID, Amount: core.Money{Cents: 300}, Date: core.NewDate(2024, 3, 2), ExternalID: "ext-3"},
	}
	results, err := repo.BulkImport(ctx, batch)
	if err != nil {
		t.Fatalf("bulk import: %v", err)
	}
	summary := core.Summarize(results)
	if summary.Inserted != 2 || summary.Duplicates != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.GetAccessToken(ctx, "u1"); !errors.Is(err, core.ErrNoBankLink) {
		t.Fatalf("expected ErrNoBankLink, got %v", err)
	}

	if err := repo.SaveAccessToken(ctx, core.BankLink{UserID: "u1", AccessToken: "access-1", ItemID: "item-1"}); err != nil {
		t.Fatalf("save token: %v", err)
	}
	link, err := repo.GetAccessToken(ctx, "u1")
	if err != nil {
		t.Fatalf("get token: %v", err)
	}
	if link.AccessToken != "access-1" || link.ItemID != "item-1" {
		t.Fatalf("unexpected link: %+v", link)
	}

	// Re-linking replaces the token
	if err := repo.SaveAccessToken(ctx, core.BankLink{UserID: "u1", AccessToken: "access-2", ItemID: "item-2"}); err != nil {
		t.Fatalf("re-save token: %v", err)
	}
	link, err = repo.GetAccessToken(ctx, "u1")
	if err != nil {
		t.Fatalf("get token: %v", err)
	}
	if link.AccessToken != "access-2" {
		t.Fatalf("expected replaced token, got %+v", link)
	}
}

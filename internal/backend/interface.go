package backend

import (
	"context"

	"budget/internal/core"
)

// Repository is the unified persistence interface behind the category ledger,
// the transaction store and the bank link table. Both backends implement it.
type Repository interface {
	ListCategories(ctx context.Context, userID string) ([]core.Category, error)
	GetCategory(ctx context.Context, userID, id string) (core.Category, error)
	GetCategoryByName(ctx context.Context, userID, name string) (core.Category, error)
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	SeedDefaultCategories(ctx context.Context, userID string, seeds []core.CategorySeed) (int, error)

	ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	BulkImport(ctx context.Context, transactions []core.Transaction) ([]core.ImportResult, error)

	SaveAccessToken(ctx context.Context, link core.BankLink) error
	GetAccessToken(ctx context.Context, userID string) (core.BankLink, error)
}

// CleanupFunc releases backend resources on shutdown.
type CleanupFunc func() error

// Result contains the repository instance and optional cleanup function.
type Result struct {
	Repository Repository
	Cleanup    CleanupFunc
}

// Config holds configuration for backend creation
type Config struct {
	Type Type

	// SQLite specific
	SQLiteDBPath string

	// Supabase specific
	SupabaseURL string
	SupabaseKey string
}

// Type represents the kind of backend
type Type string

const (
	SQLiteBackend   Type = "sqlite"
	SupabaseBackend Type = "supabase"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, SupabaseBackend:
		return true
	default:
		return false
	}
}

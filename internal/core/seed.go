package core

// FallbackCategoryName is the catch-all bucket for imported transactions whose
// aggregator label has no configured mapping.
const FallbackCategoryName = "Miscellaneous"

// CategorySeed is a name/limit/color triple used to seed a new user's ledger.
type CategorySeed struct {
	Name        string
	BudgetLimit Money
	Color       string
}

// DefaultCategorySeeds is the fixed set inserted when a user has zero
// categories. It always includes the fallback category.
func DefaultCategorySeeds() []CategorySeed {
	return []CategorySeed{
		{Name: "Housing", BudgetLimit: Money{Cents: 200000}, Color: "#FF6B6B"},
		{Name: "Utilities", BudgetLimit: Money{Cents: 30000}, Color: "#4ECDC4"},
		{Name: "Groceries", BudgetLimit: Money{Cents: 80000}, Color: "#45B7D1"},
		{Name: "Transportation", BudgetLimit: Money{Cents: 40000}, Color: "#96CEB4"},
		{Name: "Healthcare", BudgetLimit: Money{Cents: 30000}, Color: "#FFEEAD"},
		{Name: "Entertainment", BudgetLimit: Money{Cents: 20000}, Color: "#D4A5A5"},
		{Name: "Education", BudgetLimit: Money{Cents: 20000}, Color: "#9B5DE5"},
		{Name: "Savings", BudgetLimit: Money{Cents: 50000}, Color: "#00BBF9"},
		{Name: "Debt Payment", BudgetLimit: Money{Cents: 50000}, Color: "#00F5D4"},
		{Name: FallbackCategoryName, BudgetLimit: Money{Cents: 20000}, Color: "#738290"},
	}
}

package core

type (
	// Totals is the derived spend-vs-budget view across all categories.
	Totals struct {
		Budget    Money
		Spent     Money
		Remaining Money
	}

	// CategorySummary is the per-category derived view. Remaining may be
	// negative when a category is over budget.
	CategorySummary struct {
		Category  Category
		Spent     Money
		Remaining Money
	}
)

// ComputeTotals derives the overall budget figures: total budget is the sum of
// all category limits, total spent the sum of all transaction amounts.
func ComputeTotals(categories []Category, transactions []Transaction) Totals {
	var t Totals
	for _, c := range categories {
		t.Budget.Cents += c.BudgetLimit.Cents
	}
	for _, tx := range transactions {
		t.Spent.Cents += tx.Amount.Cents
	}
	t.Remaining.Cents = t.Budget.Cents - t.Spent.Cents
	return t
}

// CategorySpend sums the amounts of all transactions attributed to the given
// category. Returns zero cents when none exist.
func CategorySpend(transactions []Transaction, categoryID string) Money {
	var sum int64
	for _, tx := range transactions {
		if tx.CategoryID == categoryID {
			sum += tx.Amount.Cents
		}
	}
	return Money{Cents: sum}
}

// CategorySummaries derives the per-category breakdown, preserving the order
// of the categories slice.
func CategorySummaries(categories []Category, transactions []Transaction) []CategorySummary {
	spent := make(map[string]int64, len(categories))
	for _, tx := range transactions {
		spent[tx.CategoryID] += tx.Amount.Cents
	}
	out := make([]CategorySummary, len(categories))
	for i, c := range categories {
		s := spent[c.ID]
		out[i] = CategorySummary{
			Category:  c,
			Spent:     Money{Cents: s},
			Remaining: Money{Cents: c.BudgetLimit.Cents - s},
		}
	}
	return out
}

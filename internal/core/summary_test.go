package core

import "testing"

func fixtureLedger() ([]Category, []Transaction) {
	cats := []Category{
		{ID: "c-housing", Name: "Housing", BudgetLimit: Money{Cents: 200000}},
		{ID: "c-groceries", Name: "Groceries", BudgetLimit: Money{Cents: 80000}},
	}
	txs := []Transaction{
		{ID: "t1", CategoryID: "c-housing", Amount: Money{Cents: 150000}},
		{ID: "t2", CategoryID: "c-groceries", Amount: Money{Cents: 20000}},
	}
	return cats, txs
}

func TestComputeTotals(t *testing.T) {
	cats, txs := fixtureLedger()
	got := ComputeTotals(cats, txs)
	if got.Budget.Cents != 280000 {
		t.Fatalf("budget expected 280000, got %d", got.Budget.Cents)
	}
	if got.Spent.Cents != 170000 {
		t.Fatalf("spent expected 170000, got %d", got.Spent.Cents)
	}
	if got.Remaining.Cents != 110000 {
		t.Fatalf("remaining expected 110000, got %d", got.Remaining.Cents)
	}
}

func TestComputeTotalsEmpty(t *testing.T) {
	got := ComputeTotals(nil, nil)
	if got.Budget.Cents != 0 || got.Spent.Cents != 0 || got.Remaining.Cents != 0 {
		t.Fatalf("expected all-zero totals, got %+v", got)
	}
}

func TestCategorySpend(t *testing.T) {
	_, txs := fixtureLedger()
	if got := CategorySpend(txs, "c-housing"); got.Cents != 150000 {
		t.Fatalf("housing expected 150000, got %d", got.Cents)
	}
	if got := CategorySpend(txs, "c-missing"); got.Cents != 0 {
		t.Fatalf("unknown category expected 0, got %d", got.Cents)
	}
}

func TestCategorySpendRefunds(t *testing.T) {
	txs := []Transaction{
		{CategoryID: "c1", Amount: Money{Cents: 5000}},
		{CategoryID: "c1", Amount: Money{Cents: -1000}},
	}
	if got := CategorySpend(txs, "c1"); got.Cents != 4000 {
		t.Fatalf("expected 4000 after refund, got %d", got.Cents)
	}
}

func TestCategorySummaries(t *testing.T) {
	cats, txs := fixtureLedger()
	got := CategorySummaries(cats, txs)
	if len(got) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(got))
	}
	if got[0].Category.Name != "Housing" || got[0].Remaining.Cents != 50000 {
		t.Fatalf("housing remaining expected 50000, got %+v", got[0])
	}
	if got[1].Category.Name != "Groceries" || got[1].Remaining.Cents != 60000 {
		t.Fatalf("groceries remaining expected 60000, got %+v", got[1])
	}
}

func TestCategorySummariesOverBudget(t *testing.T) {
	cats := []Category{{ID: "c1", Name: "Dining", BudgetLimit: Money{Cents: 10000}}}
	txs := []Transaction{{CategoryID: "c1", Amount: Money{Cents: 15000}}}
	got := CategorySummaries(cats, txs)
	if got[0].Remaining.Cents != -5000 {
		t.Fatalf("expected negative remaining -5000, got %d", got[0].Remaining.Cents)
	}
}

func TestDefaultCategorySeedsIncludeFallback(t *testing.T) {
	seeds := DefaultCategorySeeds()
	found := false
	for _, s := range seeds {
		if s.Name == FallbackCategoryName {
			found = true
		}
		if s.BudgetLimit.Cents < 0 {
			t.Fatalf("seed %q has negative limit", s.Name)
		}
	}
	if !found {
		t.Fatalf("seed set missing fallback category %q", FallbackCategoryName)
	}
}

package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func tx(typ TransactionType, amount string, date Date) Transaction {
	return Transaction{
		Description: "t",
		Amount:      decimal.RequireFromString(amount),
		Type:        typ,
		Date:        date,
	}
}

func TestFilterMonth(t *testing.T) {
	list := []Transaction{
		tx(Expense, "300", NewDate(2024, 1, 10)),
		tx(Income, "1000", NewDate(2024, 1, 15)),
		tx(Expense, "50", NewDate(2024, 2, 1)),
		tx(Expense, "70", NewDate(2023, 1, 10)),
	}

	january := FilterMonth(list, 1, 2024)
	if len(january) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(january))
	}

	income := SumByType(january, Income)
	expense := SumByType(january, Expense)
	if !income.Equal(decimal.NewFromInt(1000)) || !expense.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("income=%s expense=%s, want 1000/300", income, expense)
	}
	if balance := income.Sub(expense); !balance.Equal(decimal.NewFromInt(700)) {
		t.Fatalf("balance=%s, want 700", balance)
	}

	if got := FilterMonth(list, 6, 2024); len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
}

func TestBurnRate(t *testing.T) {
	list := []Transaction{
		tx(Expense, "150", NewDate(2024, 3, 2)),
		tx(Expense, "150", NewDate(2024, 3, 8)),
		tx(Income, "900", NewDate(2024, 3, 5)),
		tx(Expense, "999", NewDate(2024, 2, 5)), // other month, ignored
	}

	got := BurnRate(list, 3, 2024, 10)
	if !got.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("burn rate %s, want 30", got)
	}

	if got := BurnRate(list, 3, 2024, 0); !got.IsZero() {
		t.Fatalf("burn rate with zero days elapsed should be 0, got %s", got)
	}
	if got := BurnRate(nil, 3, 2024, 10); !got.IsZero() {
		t.Fatalf("burn rate with no expenses should be 0, got %s", got)
	}
}

func TestSavingsRate(t *testing.T) {
	cases := []struct {
		income  string
		expense string
		want    float64
	}{
		{"1000", "300", 70},
		{"1000", "1000", 0},
		{"0", "300", 0}, // no income: 0, not NaN
		{"500", "750", -50},
	}
	for _, tc := range cases {
		got := SavingsRate(decimal.RequireFromString(tc.income), decimal.RequireFromString(tc.expense))
		if got != tc.want {
			t.Fatalf("savings rate income=%s expense=%s: got %f, want %f", tc.income, tc.expense, got, tc.want)
		}
	}
}

func TestMoMChange(t *testing.T) {
	list := []Transaction{
		tx(Expense, "200", NewDate(2024, 1, 10)),
		tx(Expense, "300", NewDate(2024, 2, 10)),
	}

	if got := MoMChange(list, 2, 2024); got != 50 {
		t.Fatalf("expected +50%%, got %f", got)
	}
	// Previous month empty: 0, not infinite.
	if got := MoMChange(list, 4, 2024); got != 0 {
		t.Fatalf("expected 0 with empty previous month, got %f", got)
	}
	// January compares against December of the prior year.
	wrap := []Transaction{
		tx(Expense, "100", NewDate(2023, 12, 20)),
		tx(Expense, "50", NewDate(2024, 1, 5)),
	}
	if got := MoMChange(wrap, 1, 2024); got != -50 {
		t.Fatalf("expected -50%% across year boundary, got %f", got)
	}
}

func TestMonthlyTrend(t *testing.T) {
	list := []Transaction{
		tx(Income, "1000", NewDate(2024, 6, 1)),
		tx(Expense, "400", NewDate(2024, 6, 15)),
		tx(Expense, "100", NewDate(2024, 3, 10)),
		tx(Expense, "999", NewDate(2023, 12, 10)), // outside window
	}

	buckets := MonthlyTrend(list, 6, 6, 2024)
	if len(buckets) != 6 {
		t.Fatalf("expected 6 buckets, got %d", len(buckets))
	}
	if buckets[0].Month != 1 || buckets[0].Year != 2024 {
		t.Fatalf("first bucket %d/%d, want 1/2024", buckets[0].Month, buckets[0].Year)
	}
	if buckets[5].Month != 6 || buckets[5].Year != 2024 {
		t.Fatalf("last bucket %d/%d, want 6/2024", buckets[5].Month, buckets[5].Year)
	}
	for _, b := range buckets {
		switch b.Month {
		case 3:
			if !b.Expense.Equal(decimal.NewFromInt(100)) {
				t.Errorf("march expense %s, want 100", b.Expense)
			}
		case 6:
			if !b.Income.Equal(decimal.NewFromInt(1000)) || !b.Expense.Equal(decimal.NewFromInt(400)) {
				t.Errorf("june income=%s expense=%s", b.Income, b.Expense)
			}
		default:
			if !b.Income.IsZero() || !b.Expense.IsZero() {
				t.Errorf("bucket %d/%d should be zero", b.Month, b.Year)
			}
		}
	}
}

func TestMonthlyTrendCrossesYear(t *testing.T) {
	buckets := MonthlyTrend(nil, 6, 2, 2024)
	if buckets[0].Month != 9 || buckets[0].Year != 2023 {
		t.Fatalf("first bucket %d/%d, want 9/2023", buckets[0].Month, buckets[0].Year)
	}
	if buckets[5].Month != 2 || buckets[5].Year != 2024 {
		t.Fatalf("last bucket %d/%d, want 2/2024", buckets[5].Month, buckets[5].Year)
	}
}

func TestMonthlyComparison(t *testing.T) {
	buckets := MonthlyComparison(nil, 2024)
	if len(buckets) != 12 {
		t.Fatalf("expected 12 buckets, got %d", len(buckets))
	}
	for i, b := range buckets {
		if b.Month != i+1 || b.Year != 2024 {
			t.Fatalf("bucket %d is %d/%d", i, b.Month, b.Year)
		}
	}
}

func TestCategoryDistribution(t *testing.T) {
	withCat := func(typ TransactionType, amount, cat string, date Date) Transaction {
		r := tx(typ, amount, date)
		r.Category = cat
		return r
	}
	list := []Transaction{
		withCat(Expense, "200", "Transporte", NewDate(2024, 1, 5)),
		withCat(Expense, "500", "Alimentação", NewDate(2024, 2, 5)),
		withCat(Expense, "100", "Transporte", NewDate(2024, 3, 5)),
		tx(Expense, "50", NewDate(2024, 4, 5)), // uncategorized
		withCat(Income, "900", "Salário", NewDate(2024, 1, 5)),
		withCat(Expense, "999", "Transporte", NewDate(2023, 1, 5)), // other year
	}

	got := CategoryDistribution(list, Expense, 2024)
	want := []struct {
		name  string
		total string
	}{
		{"Alimentação", "500"},
		{"Transporte", "300"},
		{FallbackCategory, "50"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d categories, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].Name != w.name || !got[i].Total.Equal(decimal.RequireFromString(w.total)) {
			t.Fatalf("position %d: got %s=%s, want %s=%s", i, got[i].Name, got[i].Total, w.name, w.total)
		}
	}
}

func TestCashFlow(t *testing.T) {
	list := []Transaction{
		tx(Income, "1000", NewDate(2024, 2, 1)),
		tx(Expense, "300", NewDate(2024, 2, 15)),
		tx(Expense, "200", NewDate(2024, 5, 10)),
	}

	points := CashFlow(list, 2024)
	if len(points) != 12 {
		t.Fatalf("expected 12 points, got %d", len(points))
	}

	wantBalances := []string{
		"0",   // jan: before any activity
		"700", // feb: +1000 -300
		"700", // mar: forward-filled
		"700", // apr: forward-filled
		"500", // may: -200
		"500", "500", "500", "500", "500", "500", "500", // forward-filled
	}
	for i, w := range wantBalances {
		if !points[i].Balance.Equal(decimal.RequireFromString(w)) {
			t.Fatalf("month %d balance %s, want %s", i+1, points[i].Balance, w)
		}
	}
	if !points[1].Income.Equal(decimal.NewFromInt(1000)) || !points[1].Expense.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("february sums income=%s expense=%s", points[1].Income, points[1].Expense)
	}
}

func TestCashFlowNegativeBalanceCarries(t *testing.T) {
	list := []Transaction{
		tx(Expense, "100", NewDate(2024, 1, 10)),
	}
	points := CashFlow(list, 2024)
	for i := 0; i < 12; i++ {
		if !points[i].Balance.Equal(decimal.NewFromInt(-100)) {
			t.Fatalf("month %d balance %s, want -100", i+1, points[i].Balance)
		}
	}
}

func TestTopExpenses(t *testing.T) {
	list := []Transaction{
		tx(Expense, "50", NewDate(2024, 1, 1)),
		tx(Expense, "300", NewDate(2024, 2, 1)),
		tx(Expense, "120", NewDate(2024, 3, 1)),
		tx(Income, "5000", NewDate(2024, 3, 2)),
		tx(Expense, "120", NewDate(2024, 4, 1)),
		tx(Expense, "80", NewDate(2024, 5, 1)),
		tx(Expense, "10", NewDate(2024, 6, 1)),
	}

	got := TopExpenses(list, 2024, 5)
	if len(got) != 5 {
		t.Fatalf("expected 5 expenses, got %d", len(got))
	}
	wantAmounts := []string{"300", "120", "120", "80", "50"}
	for i, w := range wantAmounts {
		if !got[i].Amount.Equal(decimal.RequireFromString(w)) {
			t.Fatalf("position %d amount %s, want %s", i, got[i].Amount, w)
		}
	}
	// Stable sort: the March 120 comes before the April 120.
	if got[1].Date.Month() != 3 || got[2].Date.Month() != 4 {
		t.Fatalf("tie broken out of original order: %s then %s", got[1].Date, got[2].Date)
	}

	if got := TopExpenses(list, 2024, 10); len(got) != 6 {
		t.Fatalf("n larger than list: expected 6, got %d", len(got))
	}
}

func TestRecurringVsOneTime(t *testing.T) {
	recurring := tx(Expense, "90", NewDate(2024, 1, 1))
	recurring.IsRecurring = true
	list := []Transaction{
		recurring,
		tx(Expense, "210", NewDate(2024, 2, 1)),
		tx(Income, "1000", NewDate(2024, 2, 2)),
	}

	got := RecurringVsOneTime(list, 2024)
	if len(got) != 2 {
		t.Fatalf("expected 2 slices, got %d", len(got))
	}
	if got[0].Name != RecurringLabel || !got[0].Total.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("recurring slice %s=%s", got[0].Name, got[0].Total)
	}
	if got[1].Name != OneTimeLabel || !got[1].Total.Equal(decimal.NewFromInt(210)) {
		t.Fatalf("one-time slice %s=%s", got[1].Name, got[1].Total)
	}

	// Zero-sum slices are omitted.
	got = RecurringVsOneTime([]Transaction{recurring}, 2024)
	if len(got) != 1 || got[0].Name != RecurringLabel {
		t.Fatalf("expected only the recurring slice, got %+v", got)
	}
	if got := RecurringVsOneTime(nil, 2024); len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestMetricsDoNotMutateInput(t *testing.T) {
	list := []Transaction{
		tx(Expense, "300", NewDate(2024, 5, 1)),
		tx(Expense, "100", NewDate(2024, 1, 1)),
		tx(Income, "50", NewDate(2024, 3, 1)),
	}
	CashFlow(list, 2024)
	TopExpenses(list, 2024, 5)

	if list[0].Date.Month() != 5 || list[1].Date.Month() != 1 || list[2].Date.Month() != 3 {
		t.Fatalf("input list order mutated: %+v", list)
	}
}

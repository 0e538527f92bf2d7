package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"grana/internal/core"
)

type dashboardResponse struct {
	Year        int    `json:"year"`
	Month       int    `json:"month"`
	Income      string `json:"income"`
	Expense     string `json:"expense"`
	Balance     string `json:"balance"`
	BurnRate    string `json:"burn_rate"`
	SavingsRate string `json:"savings_rate"`
	MoMChange   string `json:"mom_change"`
}

type monthBucketDTO struct {
	Month   int    `json:"month"`
	Year    int    `json:"year"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
}

type cashFlowDTO struct {
	Month   int    `json:"month"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Balance string `json:"balance"`
}

type categorySumDTO struct {
	Name  string `json:"name"`
	Total string `json:"total"`
}

type chartsResponse struct {
	Year               int                   `json:"year"`
	MonthlyComparison  []monthBucketDTO      `json:"monthly_comparison"`
	CategoryBreakdown  []categorySumDTO      `json:"category_breakdown"`
	CashFlow           []cashFlowDTO         `json:"cash_flow"`
	TopExpenses        []transactionResponse `json:"top_expenses"`
	RecurringVsOneTime []categorySumDTO      `json:"recurring_vs_one_time"`
}

const topExpensesCount = 5

// parseYearMonth extracts year and month query parameters, defaulting to the
// current month.
func parseYearMonth(r *http.Request) (year, month int) {
	now := time.Now()
	year = now.Year()
	month = int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			month = m
		}
	}
	return year, month
}

// handleDashboard returns the month's headline numbers.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	if month < 1 || month > 12 {
		writeValidationErrors(w, validationErrors{"month": "month must be between 1 and 12"})
		return
	}

	user := userID(r)
	key := fmt.Sprintf("%s:dashboard:%d-%d", user, year, month)
	if cached, ok := s.dashCache.Get(key); ok {
		slog.DebugContext(r.Context(), "Dashboard cache hit", "year", year, "month", month)
		writeJSON(w, http.StatusOK, cached)
		return
	}

	list, err := s.transactions.List(r.Context(), user)
	if err != nil {
		slog.ErrorContext(r.Context(), "Dashboard load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load dashboard")
		return
	}

	monthTxs := core.FilterMonth(list, month, year)
	income := core.SumByType(monthTxs, core.Income)
	expense := core.SumByType(monthTxs, core.Expense)

	// Burn rate uses today's day for the current month and the full month
	// for past ones.
	now := time.Now()
	day := daysIn(month, year)
	if year == now.Year() && month == int(now.Month()) {
		day = now.Day()
	}

	resp := dashboardResponse{
		Year:        year,
		Month:       month,
		Income:      income.StringFixed(2),
		Expense:     expense.StringFixed(2),
		Balance:     income.Sub(expense).StringFixed(2),
		BurnRate:    core.BurnRate(list, month, year, day).StringFixed(2),
		SavingsRate: strconv.FormatFloat(core.SavingsRate(income, expense), 'f', 2, 64),
		MoMChange:   strconv.FormatFloat(core.MoMChange(list, month, year), 'f', 2, 64),
	}

	s.dashCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

// handleCharts returns the year's aggregated series. The aggregations are
// independent, so they run concurrently over the same snapshot.
func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	year, _ := parseYearMonth(r)

	user := userID(r)
	key := fmt.Sprintf("%s:charts:%d", user, year)
	if cached, ok := s.chartCache.Get(key); ok {
		slog.DebugContext(r.Context(), "Charts cache hit", "year", year)
		writeJSON(w, http.StatusOK, cached)
		return
	}

	list, err := s.transactions.List(r.Context(), user)
	if err != nil {
		slog.ErrorContext(r.Context(), "Charts load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load charts")
		return
	}

	resp := chartsResponse{Year: year}
	g, _ := errgroup.WithContext(r.Context())
	g.Go(func() error {
		resp.MonthlyComparison = toMonthBuckets(core.MonthlyComparison(list, year))
		return nil
	})
	g.Go(func() error {
		resp.CategoryBreakdown = toCategorySums(core.CategoryDistribution(list, core.Expense, year))
		return nil
	})
	g.Go(func() error {
		resp.CashFlow = toCashFlow(core.CashFlow(list, year))
		return nil
	})
	g.Go(func() error {
		resp.TopExpenses = toTransactionResponses(core.TopExpenses(list, year, topExpensesCount))
		return nil
	})
	g.Go(func() error {
		resp.RecurringVsOneTime = toCategorySums(core.RecurringVsOneTime(list, year))
		return nil
	})
	_ = g.Wait()

	s.chartCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

func daysIn(month, year int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func toMonthBuckets(buckets []core.MonthBucket) []monthBucketDTO {
	out := make([]monthBucketDTO, len(buckets))
	for i, b := range buckets {
		out[i] = monthBucketDTO{
			Month:   b.Month,
			Year:    b.Year,
			Income:  b.Income.StringFixed(2),
			Expense: b.Expense.StringFixed(2),
		}
	}
	return out
}

func toCashFlow(points []core.CashFlowPoint) []cashFlowDTO {
	out := make([]cashFlowDTO, len(points))
	for i, p := range points {
		out[i] = cashFlowDTO{
			Month:   p.Month,
			Income:  p.Income.StringFixed(2),
			Expense: p.Expense.StringFixed(2),
			Balance: p.Balance.StringFixed(2),
		}
	}
	return out
}

func toCategorySums(sums []core.CategorySum) []categorySumDTO {
	out := make([]categorySumDTO, len(sums))
	for i, s := range sums {
		out[i] = categorySumDTO{Name: s.Name, Total: s.Total.StringFixed(2)}
	}
	return out
}

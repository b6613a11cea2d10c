// Package reports computes business summaries over the refill, expense,
// and inventory tables, and renders the CSV exports. Every export is
// itself recorded in the audit ledger.
package reports

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hydrohub/hydrohub/internal/station/model"
)

// Period describes the date range a report covers.
type Period struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Days      int    `json:"days"`
}

// SalesTotals aggregates the refill transactions of a period.
type SalesTotals struct {
	TotalCount               int64   `json:"total_count"`
	TotalGallons             int64   `json:"total_gallons"`
	TotalRevenue             float64 `json:"total_revenue"`
	AvgGallonsPerTransaction float64 `json:"avg_gallons_per_transaction"`
	AvgRevenuePerTransaction float64 `json:"avg_revenue_per_transaction"`
	AvgPricePerGallon        float64 `json:"avg_price_per_gallon"`
}

// SalesSummary is the sales report for a period.
type SalesSummary struct {
	Period           Period            `json:"period"`
	Transactions     SalesTotals       `json:"transactions"`
	PaymentBreakdown map[string]Bucket `json:"payment_breakdown"`
}

// ExpenseTotals aggregates the expenses of a period.
type ExpenseTotals struct {
	TotalCount          int64   `json:"total_count"`
	TotalAmount         float64 `json:"total_amount"`
	AvgAmountPerExpense float64 `json:"avg_amount_per_expense"`
}

// ExpenseSummary is the expense report for a period.
type ExpenseSummary struct {
	Period            Period            `json:"period"`
	Expenses          ExpenseTotals     `json:"expenses"`
	CategoryBreakdown map[string]Bucket `json:"category_breakdown"`
}

// ProfitLoss is the profit and loss statement for a period.
type ProfitLoss struct {
	Period             Period          `json:"period"`
	Revenue            float64         `json:"revenue"`
	Expenses           float64         `json:"expenses"`
	GrossProfit        float64         `json:"gross_profit"`
	GrossMarginPercent float64         `json:"gross_margin_percent"`
	SalesSummary       *SalesSummary   `json:"sales_summary"`
	ExpenseSummary     *ExpenseSummary `json:"expense_summary"`
}

// InventoryBucket is one category slice of the inventory report.
type InventoryBucket struct {
	Count    int     `json:"count"`
	Quantity int     `json:"quantity"`
	Value    float64 `json:"value"`
}

// InventorySummary carries the headline inventory numbers.
type InventorySummary struct {
	TotalItems    int     `json:"total_items"`
	TotalValue    float64 `json:"total_value"`
	LowStockCount int     `json:"low_stock_count"`
}

// InventoryReport is the current stock valuation report.
type InventoryReport struct {
	Summary           InventorySummary           `json:"summary"`
	CategoryBreakdown map[string]InventoryBucket `json:"category_breakdown"`
	LowStockItems     []model.InventoryItem      `json:"low_stock_items"`
}

// StaffTxTotals aggregates one staff member's sales.
type StaffTxTotals struct {
	Count        int64   `json:"count"`
	TotalGallons int64   `json:"total_gallons"`
	TotalRevenue float64 `json:"total_revenue"`
}

// StaffStats is one staff member's row in the performance report.
type StaffStats struct {
	UserID       int64         `json:"user_id"`
	Username     string        `json:"username"`
	Role         string        `json:"role"`
	Transactions StaffTxTotals `json:"transactions"`
	Expenses     Bucket        `json:"expenses"`
}

// StaffPerformance is the per-staff activity report for a period.
type StaffPerformance struct {
	Period Period       `json:"period"`
	Staff  []StaffStats `json:"staff_performance"`
}

// DailySalesPoint is one day in the daily sales series.
type DailySalesPoint struct {
	Date         string  `json:"date"`
	Revenue      float64 `json:"revenue"`
	Expenses     float64 `json:"expenses"`
	Profit       float64 `json:"profit"`
	Gallons      int64   `json:"gallons"`
	Transactions int64   `json:"transactions"`
}

// reportRepo is the query surface ReportService needs, satisfied by
// *ReportRepository.
type reportRepo interface {
	SalesTotals(ctx context.Context, start, end time.Time) (count, gallons int64, revenue float64, err error)
	PaymentBreakdown(ctx context.Context, start, end time.Time) (map[string]Bucket, error)
	ExpenseTotals(ctx context.Context, start, end time.Time) (count int64, total float64, err error)
	CategoryBreakdown(ctx context.Context, start, end time.Time) (map[string]Bucket, error)
	InventoryItems(ctx context.Context) ([]model.InventoryItem, error)
	StaffSales(ctx context.Context, start, end time.Time) ([]StaffStats, error)
	StaffExpenses(ctx context.Context, start, end time.Time) (map[int64]Bucket, error)
	DailyRefills(ctx context.Context, start, end time.Time) (map[string]DayTotals, error)
	DailyExpenses(ctx context.Context, start, end time.Time) (map[string]float64, error)
}

// ReportService computes the business reports.
type ReportService struct {
	repo   reportRepo
	clock  func() time.Time
	logger *zap.Logger
}

// NewReportService creates a ReportService.
func NewReportService(repo reportRepo, logger *zap.Logger) *ReportService {
	return &ReportService{repo: repo, clock: time.Now, logger: logger}
}

// WithClock overrides the time source. Tests use this to pin "today".
func (s *ReportService) WithClock(clock func() time.Time) *ReportService {
	s.clock = clock
	return s
}

// Sales returns the sales summary for [start, end], bounds inclusive.
func (s *ReportService) Sales(ctx context.Context, start, end time.Time) (*SalesSummary, error) {
	count, gallons, revenue, err := s.repo.SalesTotals(ctx, start, end)
	if err != nil {
		return nil, err
	}
	breakdown, err := s.repo.PaymentBreakdown(ctx, start, end)
	if err != nil {
		return nil, err
	}

	totals := SalesTotals{
		TotalCount:   count,
		TotalGallons: gallons,
		TotalRevenue: revenue,
	}
	if count > 0 {
		totals.AvgGallonsPerTransaction = float64(gallons) / float64(count)
		totals.AvgRevenuePerTransaction = revenue / float64(count)
	}
	if gallons > 0 {
		totals.AvgPricePerGallon = revenue / float64(gallons)
	}

	return &SalesSummary{
		Period:           periodOf(start, end),
		Transactions:     totals,
		PaymentBreakdown: breakdown,
	}, nil
}

// ExpenseReport returns the expense summary for [start, end].
func (s *ReportService) ExpenseReport(ctx context.Context, start, end time.Time) (*ExpenseSummary, error) {
	count, total, err := s.repo.ExpenseTotals(ctx, start, end)
	if err != nil {
		return nil, err
	}
	breakdown, err := s.repo.CategoryBreakdown(ctx, start, end)
	if err != nil {
		return nil, err
	}

	totals := ExpenseTotals{TotalCount: count, TotalAmount: total}
	if count > 0 {
		totals.AvgAmountPerExpense = total / float64(count)
	}

	return &ExpenseSummary{
		Period:            periodOf(start, end),
		Expenses:          totals,
		CategoryBreakdown: breakdown,
	}, nil
}

// ProfitLossReport combines the sales and expense summaries into a P&L
// statement.
func (s *ReportService) ProfitLossReport(ctx context.Context, start, end time.Time) (*ProfitLoss, error) {
	sales, err := s.Sales(ctx, start, end)
	if err != nil {
		return nil, err
	}
	expenses, err := s.ExpenseReport(ctx, start, end)
	if err != nil {
		return nil, err
	}

	revenue := sales.Transactions.TotalRevenue
	spent := expenses.Expenses.TotalAmount
	pl := &ProfitLoss{
		Period:         sales.Period,
		Revenue:        revenue,
		Expenses:       spent,
		GrossProfit:    revenue - spent,
		SalesSummary:   sales,
		ExpenseSummary: expenses,
	}
	if revenue > 0 {
		pl.GrossMarginPercent = pl.GrossProfit / revenue * 100
	}
	return pl, nil
}

// Inventory returns the current stock valuation report.
func (s *ReportService) Inventory(ctx context.Context) (*InventoryReport, error) {
	items, err := s.repo.InventoryItems(ctx)
	if err != nil {
		return nil, err
	}

	report := &InventoryReport{
		CategoryBreakdown: make(map[string]InventoryBucket),
		LowStockItems:     []model.InventoryItem{},
	}
	for _, item := range items {
		value := float64(item.Quantity) * item.UnitCost
		report.Summary.TotalItems++
		report.Summary.TotalValue += value

		b := report.CategoryBreakdown[item.Category]
		b.Count++
		b.Quantity += item.Quantity
		b.Value += value
		report.CategoryBreakdown[item.Category] = b

		if item.Quantity <= model.LowStockThreshold {
			report.LowStockItems = append(report.LowStockItems, item)
		}
	}
	report.Summary.LowStockCount = len(report.LowStockItems)
	return report, nil
}

// StaffReport returns per-staff sales and expense totals for [start, end].
func (s *ReportService) StaffReport(ctx context.Context, start, end time.Time) (*StaffPerformance, error) {
	staff, err := s.repo.StaffSales(ctx, start, end)
	if err != nil {
		return nil, err
	}
	spent, err := s.repo.StaffExpenses(ctx, start, end)
	if err != nil {
		return nil, err
	}

	for i := range staff {
		staff[i].Expenses = spent[staff[i].UserID]
	}
	if staff == nil {
		staff = []StaffStats{}
	}

	return &StaffPerformance{Period: periodOf(start, end), Staff: staff}, nil
}

// DailySales returns one point per day for the trailing series ending
// today. Days without activity appear with zero values.
func (s *ReportService) DailySales(ctx context.Context, days int) ([]DailySalesPoint, error) {
	if days < 1 {
		days = 7
	}
	if days > 90 {
		days = 90
	}

	now := s.clock()
	endDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startDay := endDay.AddDate(0, 0, -(days - 1))
	end := endDay.Add(24*time.Hour - time.Nanosecond)

	refills, err := s.repo.DailyRefills(ctx, startDay, end)
	if err != nil {
		return nil, err
	}
	expenses, err := s.repo.DailyExpenses(ctx, startDay, end)
	if err != nil {
		return nil, err
	}

	series := make([]DailySalesPoint, 0, days)
	for i := 0; i < days; i++ {
		day := startDay.AddDate(0, 0, i)
		key := day.Format("2006-01-02")
		r := refills[key]
		e := expenses[key]
		series = append(series, DailySalesPoint{
			Date:         key,
			Revenue:      r.Revenue,
			Expenses:     e,
			Profit:       r.Revenue - e,
			Gallons:      r.Gallons,
			Transactions: r.Transactions,
		})
	}
	return series, nil
}

func periodOf(start, end time.Time) Period {
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	days := int(endDay.Sub(startDay).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	return Period{
		StartDate: start.Format("2006-01-02"),
		EndDate:   end.Format("2006-01-02"),
		Days:      days,
	}
}

// String renders the period as "start to end" for CSV preambles and audit
// messages.
func (p Period) String() string {
	return fmt.Sprintf("%s to %s", p.StartDate, p.EndDate)
}

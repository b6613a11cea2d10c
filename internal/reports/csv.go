package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hydrohub/hydrohub/internal/ledger"
)

// DefaultBusinessName labels CSV exports when no name is configured.
const DefaultBusinessName = "HydroHub Cantilan"

// exportRepo is the row-level query surface the CSV exporter needs,
// satisfied by *ReportRepository.
type exportRepo interface {
	reportRepo
	TransactionRows(ctx context.Context, start, end time.Time) ([]TransactionRow, error)
	ExpenseRows(ctx context.Context, start, end time.Time) ([]ExpenseRow, error)
}

// Exporter renders reports as CSV documents. Every export appends its own
// entry to the audit chain, so the ledger also records who pulled data out.
type Exporter struct {
	repo     exportRepo
	reports  *ReportService
	chain    ledger.Ledger
	business string
	clock    func() time.Time
	logger   *zap.Logger
}

// NewExporter creates an Exporter. business may be empty to use the
// default name.
func NewExporter(repo exportRepo, reports *ReportService, chain ledger.Ledger, business string, logger *zap.Logger) *Exporter {
	if business == "" {
		business = DefaultBusinessName
	}
	return &Exporter{
		repo:     repo,
		reports:  reports,
		chain:    chain,
		business: business,
		clock:    time.Now,
		logger:   logger,
	}
}

// WithClock overrides the time source used for the "Generated:" line.
func (e *Exporter) WithClock(clock func() time.Time) *Exporter {
	e.clock = clock
	return e
}

// Transactions exports the refills of [start, end] as CSV and records the
// export in the audit chain.
func (e *Exporter) Transactions(ctx context.Context, actorRef *int64, start, end time.Time) ([]byte, error) {
	rows, err := e.repo.TransactionRows(ctx, start, end)
	if err != nil {
		return nil, err
	}
	period := periodOf(start, end)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	e.writePreamble(w, "Transaction Report", period.String())

	w.Write([]string{"ID", "Date", "Customer", "Gallons", "Price per Gallon",
		"Total Amount", "Payment Type", "Staff", "Receipt"})

	var gallons int64
	var revenue float64
	for _, row := range rows {
		customer := row.CustomerName
		if customer == "" {
			customer = "Walk-in"
		}
		w.Write([]string{
			strconv.FormatInt(row.ID, 10),
			row.CreatedAt.Format("2006-01-02 15:04:05"),
			customer,
			strconv.Itoa(row.GallonsCount),
			formatAmount(row.PricePerGallon),
			formatAmount(row.TotalAmount),
			row.PaymentType,
			row.StaffUsername,
			yesNo(row.HasReceipt),
		})
		gallons += int64(row.GallonsCount)
		revenue += row.TotalAmount
	}

	w.Write(nil)
	w.Write([]string{"SUMMARY"})
	w.Write([]string{"Total Transactions", strconv.Itoa(len(rows))})
	w.Write([]string{"Total Gallons", strconv.FormatInt(gallons, 10)})
	w.Write([]string{"Total Revenue", formatAmount(revenue)})
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write transactions csv: %w", err)
	}

	e.recordExport(ctx, actorRef, "export_transactions",
		fmt.Sprintf("Exported %d transactions to CSV for period %s", len(rows), period),
		map[string]any{
			"start_date":        period.StartDate,
			"end_date":          period.EndDate,
			"transaction_count": len(rows),
			"format":            "CSV",
		})
	return buf.Bytes(), nil
}

// Expenses exports the expenses of [start, end] as CSV.
func (e *Exporter) Expenses(ctx context.Context, actorRef *int64, start, end time.Time) ([]byte, error) {
	rows, err := e.repo.ExpenseRows(ctx, start, end)
	if err != nil {
		return nil, err
	}
	period := periodOf(start, end)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	e.writePreamble(w, "Expense Report", period.String())

	w.Write([]string{"ID", "Date", "Category", "Amount", "Vendor", "Note", "Staff", "Receipt"})

	var total float64
	for _, row := range rows {
		w.Write([]string{
			strconv.FormatInt(row.ID, 10),
			row.CreatedAt.Format("2006-01-02 15:04:05"),
			row.Category,
			formatAmount(row.Amount),
			row.Vendor,
			row.Note,
			row.StaffUsername,
			yesNo(row.HasReceipt),
		})
		total += row.Amount
	}

	w.Write(nil)
	w.Write([]string{"SUMMARY"})
	w.Write([]string{"Total Expenses", strconv.Itoa(len(rows))})
	w.Write([]string{"Total Amount", formatAmount(total)})
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write expenses csv: %w", err)
	}

	e.recordExport(ctx, actorRef, "export_expenses",
		fmt.Sprintf("Exported %d expenses to CSV for period %s", len(rows), period),
		map[string]any{
			"start_date":    period.StartDate,
			"end_date":      period.EndDate,
			"expense_count": len(rows),
			"format":        "CSV",
		})
	return buf.Bytes(), nil
}

// ProfitLoss exports the P&L statement for [start, end] as CSV.
func (e *Exporter) ProfitLoss(ctx context.Context, actorRef *int64, start, end time.Time) ([]byte, error) {
	pl, err := e.reports.ProfitLossReport(ctx, start, end)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	e.writePreamble(w, "Profit & Loss Report", pl.Period.String())

	w.Write([]string{"PROFIT & LOSS STATEMENT"})
	w.Write(nil)
	w.Write([]string{"Revenue", formatAmount(pl.Revenue)})
	w.Write([]string{"Expenses", formatAmount(pl.Expenses)})
	w.Write([]string{"Gross Profit", formatAmount(pl.GrossProfit)})
	w.Write([]string{"Gross Margin %", fmt.Sprintf("%.2f%%", pl.GrossMarginPercent)})
	w.Write(nil)

	w.Write([]string{"SALES BREAKDOWN"})
	sales := pl.SalesSummary.Transactions
	w.Write([]string{"Total Transactions", strconv.FormatInt(sales.TotalCount, 10)})
	w.Write([]string{"Total Gallons Sold", strconv.FormatInt(sales.TotalGallons, 10)})
	w.Write([]string{"Average Price per Gallon", formatAmount(sales.AvgPricePerGallon)})
	w.Write(nil)

	w.Write([]string{"EXPENSE BREAKDOWN"})
	for _, category := range sortedKeys(pl.ExpenseSummary.CategoryBreakdown) {
		b := pl.ExpenseSummary.CategoryBreakdown[category]
		w.Write([]string{category + " Expenses", formatAmount(b.Amount)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write profit loss csv: %w", err)
	}

	e.recordExport(ctx, actorRef, "export_profit_loss",
		fmt.Sprintf("Exported P&L report to CSV for period %s", pl.Period),
		map[string]any{
			"start_date": pl.Period.StartDate,
			"end_date":   pl.Period.EndDate,
			"revenue":    pl.Revenue,
			"expenses":   pl.Expenses,
			"profit":     pl.GrossProfit,
			"format":     "CSV",
		})
	return buf.Bytes(), nil
}

// Inventory exports the current stock list as CSV.
func (e *Exporter) Inventory(ctx context.Context, actorRef *int64) ([]byte, error) {
	items, err := e.repo.InventoryItems(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	e.writePreamble(w, "Inventory Report", "")

	w.Write([]string{"ID", "Name", "Category", "Quantity", "Unit Cost", "Total Value", "Location", "Last Updated"})

	var totalValue float64
	for _, item := range items {
		value := float64(item.Quantity) * item.UnitCost
		w.Write([]string{
			strconv.FormatInt(item.ID, 10),
			item.Name,
			item.Category,
			strconv.Itoa(item.Quantity),
			formatAmount(item.UnitCost),
			formatAmount(value),
			item.Location,
			item.LastUpdated.Format("2006-01-02 15:04:05"),
		})
		totalValue += value
	}

	w.Write(nil)
	w.Write([]string{"SUMMARY"})
	w.Write([]string{"Total Items", strconv.Itoa(len(items))})
	w.Write([]string{"Total Value", formatAmount(totalValue)})
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write inventory csv: %w", err)
	}

	e.recordExport(ctx, actorRef, "export_inventory",
		fmt.Sprintf("Exported inventory report to CSV (%d items)", len(items)),
		map[string]any{
			"item_count":  len(items),
			"total_value": totalValue,
			"format":      "CSV",
		})
	return buf.Bytes(), nil
}

// Ledger exports the audit chain as CSV, preceded by the proof hash of the
// exported range so the file itself is verifiable. Zero start/end times
// leave that bound open.
func (e *Exporter) Ledger(ctx context.Context, actorRef *int64, start, end time.Time) ([]byte, error) {
	var startBound, endBound string
	if !start.IsZero() {
		startBound = ledger.FormatTimestamp(start)
	}
	if !end.IsZero() {
		endBound = ledger.FormatTimestamp(end)
	}

	proof, err := e.chain.ExportProof(ctx, startBound, endBound)
	if err != nil {
		return nil, err
	}

	periodLabel := fmt.Sprintf("%s to %s", dateOrAll(start), dateOrAll(end))

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{fmt.Sprintf("%s - Ledger Export", e.business)})
	w.Write([]string{fmt.Sprintf("Period: %s", periodLabel)})
	w.Write([]string{fmt.Sprintf("Generated: %s", e.clock().Format("2006-01-02 15:04:05"))})
	w.Write([]string{fmt.Sprintf("Proof Hash: %s", proof.ProofHash)})
	w.Write(nil)

	w.Write([]string{"ID", "Timestamp", "Previous Hash", "Data Hash", "Actor ID", "Action Type", "Data"})
	for _, entry := range proof.Entries {
		actor := ""
		if entry.ActorRef != nil {
			actor = strconv.FormatInt(*entry.ActorRef, 10)
		}
		w.Write([]string{
			strconv.FormatInt(entry.Sequence, 10),
			entry.Timestamp,
			entry.PrevDigest,
			entry.Digest,
			actor,
			entry.ActionTag,
			entry.PayloadEnvelope,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write ledger csv: %w", err)
	}

	e.recordExport(ctx, actorRef, "export_ledger",
		fmt.Sprintf("Exported ledger to CSV (%d entries)", len(proof.Entries)),
		map[string]any{
			"start_date":  nilOrDate(start),
			"end_date":    nilOrDate(end),
			"entry_count": len(proof.Entries),
			"proof_hash":  proof.ProofHash,
			"format":      "CSV",
		})
	return buf.Bytes(), nil
}

// writePreamble writes the business name, period, and generation lines
// every export starts with.
func (e *Exporter) writePreamble(w *csv.Writer, title, period string) {
	w.Write([]string{fmt.Sprintf("%s - %s", e.business, title)})
	if period != "" {
		w.Write([]string{fmt.Sprintf("Period: %s", period)})
	}
	w.Write([]string{fmt.Sprintf("Generated: %s", e.clock().Format("2006-01-02 15:04:05"))})
	w.Write(nil)
}

// recordExport appends the export's own audit entry. A failed append is
// logged but does not fail the export: the document has already been
// produced from committed data.
func (e *Exporter) recordExport(ctx context.Context, actorRef *int64, tag, message string, summary map[string]any) {
	if _, err := e.chain.Append(ctx, ledger.Export(actorRef, tag, message, summary)); err != nil {
		e.logger.Error("record export in ledger", zap.String("action_tag", tag), zap.Error(err))
	}
}

func sortedKeys(m map[string]Bucket) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func dateOrAll(t time.Time) string {
	if t.IsZero() {
		return "All"
	}
	return t.Format("2006-01-02")
}

func nilOrDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format("2006-01-02")
}

// Package client provides the HydroHub Go SDK for calling the station
// API: authentication, refills, expenses, inventory, reports, and the
// hash-chained audit ledger.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrInvalidCredentials is returned by Login when the username or password
// is wrong.
var ErrInvalidCredentials = errors.New("invalid username or password")

// User is a staff or admin account as returned by the API. Password hashes
// never appear in responses.
type User struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Role      string     `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// Permissions is the capability set derived from a user's role.
type Permissions struct {
	CanManageUsers        bool `json:"can_manage_users"`
	CanViewLedger         bool `json:"can_view_ledger"`
	CanExportData         bool `json:"can_export_data"`
	CanManageInventory    bool `json:"can_manage_inventory"`
	CanRecordTransactions bool `json:"can_record_transactions"`
	CanManageExpenses     bool `json:"can_manage_expenses"`
	CanViewReports        bool `json:"can_view_reports"`
	CanManageSettings     bool `json:"can_manage_settings"`
}

// Session is the authenticated identity returned by Login and Me. Token is
// only set by Login; Me reports the identity behind the token already in use.
type Session struct {
	Token       string      `json:"token,omitempty"`
	User        User        `json:"user"`
	Permissions Permissions `json:"permissions"`
}

// LedgerEntry is one link of the audit chain. PayloadEnvelope is the exact
// canonical JSON string whose digest the chain binds; DecodeEnvelope parses it.
type LedgerEntry struct {
	Sequence        int64  `json:"sequence"`
	Timestamp       string `json:"timestamp"`
	PrevDigest      string `json:"prev_digest"`
	Digest          string `json:"digest"`
	ActorRef        *int64 `json:"actor_ref"`
	ActionTag       string `json:"action_tag"`
	PayloadEnvelope string `json:"payload_envelope"`
}

// Envelope is the parsed form of a ledger entry's payload envelope.
type Envelope struct {
	ActionTag    string          `json:"action_tag"`
	Payload      json.RawMessage `json:"payload"`
	HumanMessage string          `json:"human_message"`
	Timestamp    string          `json:"timestamp"`
}

// DecodeEnvelope parses the entry's payload envelope.
func (e *LedgerEntry) DecodeEnvelope() (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(e.PayloadEnvelope), &env); err != nil {
		return nil, fmt.Errorf("decode payload envelope of entry %d: %w", e.Sequence, err)
	}
	return &env, nil
}

// EntryFilter narrows ListLedgerEntries. Start and End compare against the
// stored timestamp strings, both bounds inclusive. The server caps Limit
// at 200 and defaults it to 50.
type EntryFilter struct {
	ActionTag string
	ActorRef  *int64
	Start     string
	End       string
	Limit     int
	Offset    int
}

// Discrepancy is one verification finding: a spot where the stored chain
// no longer matches what recomputation produces.
type Discrepancy struct {
	Sequence int64  `json:"sequence"`
	Kind     string `json:"kind"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
	Data     string `json:"data,omitempty"`
}

// VerifyResult is the outcome of a full-chain verification.
type VerifyResult struct {
	Intact         bool          `json:"intact"`
	EntriesChecked int64         `json:"entries_checked"`
	Discrepancies  []Discrepancy `json:"discrepancies"`
}

// ChainStats summarizes the ledger: totals, per-action counts, and the
// current head digest.
type ChainStats struct {
	TotalEntries   int64            `json:"total_entries"`
	ActionCounts   map[string]int64 `json:"action_counts"`
	FirstEntryTime string           `json:"first_entry_time,omitempty"`
	LastEntryTime  string           `json:"last_entry_time,omitempty"`
	LastDigest     string           `json:"last_hash"`
}

// VerificationInfo names the hash algorithm and field-concatenation format
// used by a proof, so the proof can be rechecked without the server.
type VerificationInfo struct {
	HashAlgorithm string `json:"hash_algorithm"`
	PayloadFormat string `json:"payload_format"`
}

// Proof is an exported, independently verifiable slice of the audit chain.
type Proof struct {
	ExportTimestamp  string           `json:"export_timestamp"`
	FilterStart      *string          `json:"filter_start"`
	FilterEnd        *string          `json:"filter_end"`
	TotalEntries     int              `json:"total_entries"`
	Entries          []LedgerEntry    `json:"entries"`
	VerificationInfo VerificationInfo `json:"verification_info"`
	ProofHash        string           `json:"proof_hash"`
}

// Transaction is one water refill sale.
type Transaction struct {
	ID             int64     `json:"id"`
	CustomerName   string    `json:"customer_name"`
	GallonsCount   int       `json:"gallons_count"`
	PricePerGallon float64   `json:"price_per_gallon"`
	TotalAmount    float64   `json:"total_amount"`
	PaymentType    string    `json:"payment_type"`
	StaffID        int64     `json:"staff_id"`
	CreatedAt      time.Time `json:"created_at"`
	ReceiptPath    string    `json:"receipt_path,omitempty"`
}

// CreateRefillRequest is the payload for CreateRefill. CustomerName may be
// empty for walk-ins; PaymentType defaults to Cash on the server.
type CreateRefillRequest struct {
	CustomerName   string  `json:"customer_name,omitempty"`
	GallonsCount   int     `json:"gallons_count"`
	PricePerGallon float64 `json:"price_per_gallon"`
	PaymentType    string  `json:"payment_type,omitempty"`
}

// RefillFilter narrows ListRefills. Start and End accept "2006-01-02"
// dates (end inclusive) or RFC 3339 timestamps.
type RefillFilter struct {
	Start   string
	End     string
	StaffID *int64
	Limit   int
	Offset  int
}

// TodayStats is the running total of today's sales.
type TodayStats struct {
	Transactions int64   `json:"transactions"`
	Gallons      int64   `json:"gallons"`
	Revenue      float64 `json:"revenue"`
}

// ReceiptResult reports where an uploaded receipt was stored and its
// SHA-256, which is also recorded in the audit chain.
type ReceiptResult struct {
	ReceiptPath string `json:"receipt_path"`
	ReceiptHash string `json:"receipt_hash"`
}

// Expense is one recorded business expense.
type Expense struct {
	ID          int64     `json:"id"`
	Category    string    `json:"category"`
	Amount      float64   `json:"amount"`
	Vendor      string    `json:"vendor,omitempty"`
	Note        string    `json:"note,omitempty"`
	StaffID     int64     `json:"staff_id"`
	CreatedAt   time.Time `json:"created_at"`
	ReceiptPath string    `json:"receipt_path,omitempty"`
}

// CreateExpenseRequest is the payload for CreateExpense. Category must be
// one of the values returned by ExpenseCategories.
type CreateExpenseRequest struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Vendor   string  `json:"vendor,omitempty"`
	Note     string  `json:"note,omitempty"`
}

// ExpenseFilter narrows ListExpenses.
type ExpenseFilter struct {
	Start    string
	End      string
	Category string
	Limit    int
	Offset   int
}

// InventoryItem is one stocked item.
type InventoryItem struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Quantity    int       `json:"quantity"`
	UnitCost    float64   `json:"unit_cost"`
	Location    string    `json:"location,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// CreateItemRequest is the payload for CreateItem.
type CreateItemRequest struct {
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Quantity int     `json:"quantity"`
	UnitCost float64 `json:"unit_cost"`
	Location string  `json:"location,omitempty"`
}

// Period describes the date range a report covers.
type Period struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Days      int    `json:"days"`
}

// Bucket is a count with its summed amount, used in report breakdowns.
type Bucket struct {
	Count  int64   `json:"count"`
	Amount float64 `json:"amount"`
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
	LowStockItems     []InventoryItem            `json:"low_stock_items"`
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

// Client is the HydroHub SDK entry point.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string

	// token state, guarded by mu: Login replaces the token while other
	// goroutines may be issuing requests
	mu    sync.Mutex
	token string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client, overriding any TLS options.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithToken attaches a previously obtained session token to every request,
// e.g. one saved to disk by a prior Login.
func WithToken(token string) Option {
	return func(c *Client) error {
		c.token = strings.TrimSpace(token)
		return nil
	}
}

// WithUserAgent overrides the User-Agent header sent with every request.
// Integrations running unattended should set one so their traffic is
// recognizable in the station's request logs.
func WithUserAgent(ua string) Option {
	return func(c *Client) error {
		c.userAgent = strings.TrimSpace(ua)
		return nil
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
// Only use this in development against a self-signed certificate.
func WithInsecureSkipVerify() Option {
	return func(c *Client) error {
		c.httpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
			},
			Timeout: 10 * time.Second,
		}
		return nil
	}
}

// New creates an SDK Client for the station at baseURL.
//
//	c, err := client.New("http://localhost:8080")
//	if err != nil { ... }
//	sess, err := c.Login(ctx, "admin", password)
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		userAgent:  "hydrohub-go-client/1.0",
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(baseURL string, opts ...Option) *Client {
	c, err := New(baseURL, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Token returns the session token currently attached to requests. Empty
// until Login succeeds or WithToken is used.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Login authenticates with a username and password, stores the returned
// session token on the client, and returns the session. Returns
// ErrInvalidCredentials when the credentials are rejected.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	payload, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/auth/login", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	status, body, err := c.doStatusBody(req)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusUnauthorized:
		return nil, ErrInvalidCredentials
	case status >= 300:
		return nil, fmt.Errorf("server error %d: %s", status, string(body))
	}

	var sess Session
	if err := json.Unmarshal(body, &sess); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}

	c.mu.Lock()
	c.token = sess.Token
	c.mu.Unlock()
	return &sess, nil
}

// Me returns the account and permissions behind the current token.
func (c *Client) Me(ctx context.Context) (*Session, error) {
	var sess Session
	if err := c.getJSON(ctx, "/api/v1/auth/me", nil, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// ListUsers returns all accounts. Admin only.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var out struct {
		Users []User `json:"users"`
	}
	if err := c.getJSON(ctx, "/api/v1/users", nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// CreateUser creates an account with the given role (admin, staff, or
// public). Admin only.
func (c *Client) CreateUser(ctx context.Context, username, password, role string) (*User, error) {
	in := map[string]string{"username": username, "password": password, "role": role}
	var out struct {
		User User `json:"user"`
	}
	if err := c.postJSON(ctx, "/api/v1/users", in, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// DeleteUser removes an account. Accounts referenced by recorded
// transactions cannot be deleted; the server refuses with a conflict.
// Admin only.
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/api/v1/users/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	_, err = c.do(req)
	return err
}

// UpdatePassword sets a new password for the given account. Staff can
// change their own; admins can change anyone's.
func (c *Client) UpdatePassword(ctx context.Context, userID int64, newPassword string) error {
	in := map[string]string{"password": newPassword}
	path := "/api/v1/users/" + strconv.FormatInt(userID, 10) + "/password"
	return c.postJSON(ctx, path, in, nil)
}

// ListLedgerEntries returns audit chain entries newest first, narrowed by
// the filter.
func (c *Client) ListLedgerEntries(ctx context.Context, f EntryFilter) ([]LedgerEntry, error) {
	q := url.Values{}
	if f.ActionTag != "" {
		q.Set("action_tag", f.ActionTag)
	}
	if f.ActorRef != nil {
		q.Set("actor_ref", strconv.FormatInt(*f.ActorRef, 10))
	}
	if f.Start != "" {
		q.Set("start", f.Start)
	}
	if f.End != "" {
		q.Set("end", f.End)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}

	var out struct {
		Entries []LedgerEntry `json:"entries"`
	}
	if err := c.getJSON(ctx, "/api/v1/ledger", q, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// GetLedgerEntry returns the audit chain entry at the given sequence.
func (c *Client) GetLedgerEntry(ctx context.Context, sequence int64) (*LedgerEntry, error) {
	var entry LedgerEntry
	path := "/api/v1/ledger/entries/" + strconv.FormatInt(sequence, 10)
	if err := c.getJSON(ctx, path, nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// VerifyLedger asks the server to recompute every digest in the chain.
// A nil error with Intact=false means the check ran and found tampering.
func (c *Client) VerifyLedger(ctx context.Context) (*VerifyResult, error) {
	var res VerifyResult
	if err := c.getJSON(ctx, "/api/v1/ledger/verify", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// LedgerStats returns entry totals, per-action counts, and the head digest.
func (c *Client) LedgerStats(ctx context.Context) (*ChainStats, error) {
	var stats ChainStats
	if err := c.getJSON(ctx, "/api/v1/ledger/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ExportProof returns the verifiable proof document for the optional
// start/end timestamp range. Empty strings leave the range unbounded.
func (c *Client) ExportProof(ctx context.Context, start, end string) (*Proof, error) {
	q := url.Values{}
	if start != "" {
		q.Set("start", start)
	}
	if end != "" {
		q.Set("end", end)
	}

	var proof Proof
	if err := c.getJSON(ctx, "/api/v1/ledger/proof", q, &proof); err != nil {
		return nil, err
	}
	return &proof, nil
}

// CreateRefill records a water refill sale under the logged-in account.
func (c *Client) CreateRefill(ctx context.Context, reqBody CreateRefillRequest) (*Transaction, error) {
	var out struct {
		Transaction Transaction `json:"transaction"`
	}
	if err := c.postJSON(ctx, "/api/v1/refills", reqBody, &out); err != nil {
		return nil, err
	}
	return &out.Transaction, nil
}

// ListRefills returns refill transactions newest first, narrowed by the
// filter.
func (c *Client) ListRefills(ctx context.Context, f RefillFilter) ([]Transaction, error) {
	q := url.Values{}
	if f.Start != "" {
		q.Set("start", f.Start)
	}
	if f.End != "" {
		q.Set("end", f.End)
	}
	if f.StaffID != nil {
		q.Set("staff_id", strconv.FormatInt(*f.StaffID, 10))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}

	var out struct {
		Transactions []Transaction `json:"transactions"`
	}
	if err := c.getJSON(ctx, "/api/v1/refills", q, &out); err != nil {
		return nil, err
	}
	return out.Transactions, nil
}

// GetRefill returns one refill transaction by ID.
func (c *Client) GetRefill(ctx context.Context, id int64) (*Transaction, error) {
	var out struct {
		Transaction Transaction `json:"transaction"`
	}
	if err := c.getJSON(ctx, "/api/v1/refills/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out.Transaction, nil
}

// Today returns the running totals of today's sales.
func (c *Client) Today(ctx context.Context) (*TodayStats, error) {
	var stats TodayStats
	if err := c.getJSON(ctx, "/api/v1/refills/today", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// AttachRefillReceipt uploads a receipt image for a refill transaction.
// filename decides the stored extension; the content is read from file.
func (c *Client) AttachRefillReceipt(ctx context.Context, id int64, filename string, file io.Reader) (*ReceiptResult, error) {
	path := "/api/v1/refills/" + strconv.FormatInt(id, 10) + "/receipt"
	return c.attachReceipt(ctx, path, filename, file)
}

// CreateExpense records a business expense under the logged-in account.
func (c *Client) CreateExpense(ctx context.Context, reqBody CreateExpenseRequest) (*Expense, error) {
	var out struct {
		Expense Expense `json:"expense"`
	}
	if err := c.postJSON(ctx, "/api/v1/expenses", reqBody, &out); err != nil {
		return nil, err
	}
	return &out.Expense, nil
}

// ListExpenses returns expenses newest first, narrowed by the filter.
func (c *Client) ListExpenses(ctx context.Context, f ExpenseFilter) ([]Expense, error) {
	q := url.Values{}
	if f.Start != "" {
		q.Set("start", f.Start)
	}
	if f.End != "" {
		q.Set("end", f.End)
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}

	var out struct {
		Expenses []Expense `json:"expenses"`
	}
	if err := c.getJSON(ctx, "/api/v1/expenses", q, &out); err != nil {
		return nil, err
	}
	return out.Expenses, nil
}

// GetExpense returns one expense by ID.
func (c *Client) GetExpense(ctx context.Context, id int64) (*Expense, error) {
	var out struct {
		Expense Expense `json:"expense"`
	}
	if err := c.getJSON(ctx, "/api/v1/expenses/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out.Expense, nil
}

// ExpenseCategories returns the accepted expense categories.
func (c *Client) ExpenseCategories(ctx context.Context) ([]string, error) {
	var out struct {
		Categories []string `json:"categories"`
	}
	if err := c.getJSON(ctx, "/api/v1/expenses/categories", nil, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// AttachExpenseReceipt uploads a receipt image for an expense.
func (c *Client) AttachExpenseReceipt(ctx context.Context, id int64, filename string, file io.Reader) (*ReceiptResult, error) {
	path := "/api/v1/expenses/" + strconv.FormatInt(id, 10) + "/receipt"
	return c.attachReceipt(ctx, path, filename, file)
}

// CreateItem adds an inventory item.
func (c *Client) CreateItem(ctx context.Context, reqBody CreateItemRequest) (*InventoryItem, error) {
	var out struct {
		Item InventoryItem `json:"item"`
	}
	if err := c.postJSON(ctx, "/api/v1/inventory", reqBody, &out); err != nil {
		return nil, err
	}
	return &out.Item, nil
}

// ListItems returns all inventory items.
func (c *Client) ListItems(ctx context.Context) ([]InventoryItem, error) {
	var out struct {
		Items []InventoryItem `json:"items"`
	}
	if err := c.getJSON(ctx, "/api/v1/inventory", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// GetItem returns one inventory item by ID.
func (c *Client) GetItem(ctx context.Context, id int64) (*InventoryItem, error) {
	var out struct {
		Item InventoryItem `json:"item"`
	}
	if err := c.getJSON(ctx, "/api/v1/inventory/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out.Item, nil
}

// LowStock returns the items at or below the low-stock threshold, and the
// threshold itself.
func (c *Client) LowStock(ctx context.Context) (items []InventoryItem, threshold int, err error) {
	var out struct {
		Items     []InventoryItem `json:"items"`
		Threshold int             `json:"threshold"`
	}
	if err := c.getJSON(ctx, "/api/v1/inventory/low-stock", nil, &out); err != nil {
		return nil, 0, err
	}
	return out.Items, out.Threshold, nil
}

// AdjustStock applies a stock adjustment to an item. change is one of
// add_stock, remove_stock, set_quantity, or mark_damaged; reason is
// recorded verbatim in the audit chain.
func (c *Client) AdjustStock(ctx context.Context, itemID int64, change string, amount int, reason string) (*InventoryItem, error) {
	in := map[string]any{"change_type": change, "amount": amount, "reason": reason}
	path := "/api/v1/inventory/" + strconv.FormatInt(itemID, 10) + "/adjust"

	var out struct {
		Item InventoryItem `json:"item"`
	}
	if err := c.postJSON(ctx, path, in, &out); err != nil {
		return nil, err
	}
	return &out.Item, nil
}

// SalesReport returns the sales summary for the period. start and end are
// "2006-01-02" dates (end inclusive); empty strings default to the last
// 30 days.
func (c *Client) SalesReport(ctx context.Context, start, end string) (*SalesSummary, error) {
	var out SalesSummary
	if err := c.getJSON(ctx, "/api/v1/reports/sales", dateRange(start, end), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExpenseReport returns the expense summary for the period.
func (c *Client) ExpenseReport(ctx context.Context, start, end string) (*ExpenseSummary, error) {
	var out ExpenseSummary
	if err := c.getJSON(ctx, "/api/v1/reports/expenses", dateRange(start, end), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProfitLossReport returns the profit and loss statement for the period.
func (c *Client) ProfitLossReport(ctx context.Context, start, end string) (*ProfitLoss, error) {
	var out ProfitLoss
	if err := c.getJSON(ctx, "/api/v1/reports/profit-loss", dateRange(start, end), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InventoryReport returns the current stock valuation report.
func (c *Client) InventoryReport(ctx context.Context) (*InventoryReport, error) {
	var out InventoryReport
	if err := c.getJSON(ctx, "/api/v1/reports/inventory", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StaffReport returns the per-staff activity report for the period.
// Admin only.
func (c *Client) StaffReport(ctx context.Context, start, end string) (*StaffPerformance, error) {
	var out StaffPerformance
	if err := c.getJSON(ctx, "/api/v1/reports/staff", dateRange(start, end), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DailySales returns the trailing daily revenue/expense series. days
// defaults to 7 on the server.
func (c *Client) DailySales(ctx context.Context, days int) ([]DailySalesPoint, error) {
	q := url.Values{}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}

	var out struct {
		Days []DailySalesPoint `json:"days"`
	}
	if err := c.getJSON(ctx, "/api/v1/reports/daily", q, &out); err != nil {
		return nil, err
	}
	return out.Days, nil
}

// ExportCSV downloads one of the CSV exports. kind is transactions,
// expenses, inventory, profit-loss, or ledger; start and end are
// "2006-01-02" dates, both optional. The export itself is recorded in the
// audit chain. Admin only.
func (c *Client) ExportCSV(ctx context.Context, kind, start, end string) ([]byte, error) {
	u := c.baseURL + "/api/v1/exports/" + url.PathEscape(kind)
	if q := dateRange(start, end); len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	return c.do(req)
}

// dateRange builds the start/end query used by reports and exports.
func dateRange(start, end string) url.Values {
	q := url.Values{}
	if start != "" {
		q.Set("start", start)
	}
	if end != "" {
		q.Set("end", end)
	}
	return q
}

// getJSON performs a GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// postJSON performs a POST with a JSON body and decodes the response into
// out. Pass nil out to discard the response.
func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return err
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// attachReceipt uploads a multipart receipt to path with the file in the
// "file" field.
func (c *Client) attachReceipt(ctx context.Context, path, filename string, file io.Reader) (*ReceiptResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := io.Copy(fw, file); err != nil {
		return nil, fmt.Errorf("read receipt content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var res ReceiptResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode receipt response: %w", err)
	}
	return &res, nil
}

// do executes an HTTP request, attaching the session token if present.
func (c *Client) do(req *http.Request) ([]byte, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("not found: %s", req.URL.Path)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("unauthorized: %s", apiError(body))
	}
	if resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("forbidden: %s", apiError(body))
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, apiError(body))
	}
	return body, nil
}

// doStatusBody is a lower-level HTTP call that returns (statusCode, body,
// error) without failing on 4xx responses. The caller interprets the status.
func (c *Client) doStatusBody(req *http.Request) (int, []byte, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// apiError extracts the "error" field from an error response body, falling
// back to the raw body when it is not the usual JSON shape.
func apiError(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return string(bytes.TrimSpace(body))
}

package model

import (
	"fmt"
	"strings"
	"time"
)

// ExpenseCategories is the closed set of expense categories. Reports break
// spending down by these, so free-text categories are rejected.
var ExpenseCategories = []string{
	"Water Supply", "Filters", "Containers", "Equipment Maintenance",
	"Transportation", "Supplies", "Other",
}

// ValidExpenseCategory reports whether c is a known expense category.
func ValidExpenseCategory(c string) bool {
	for _, cat := range ExpenseCategories {
		if c == cat {
			return true
		}
	}
	return false
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

// CreateExpenseRequest is the payload for recording a new expense.
type CreateExpenseRequest struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Vendor   string  `json:"vendor"`
	Note     string  `json:"note"`
}

// Validate checks the request and returns the validated expense (without
// ID/StaffID/CreatedAt) or an *ErrValidation.
func (r *CreateExpenseRequest) Validate() (*Expense, error) {
	if strings.TrimSpace(r.Category) == "" {
		return nil, validationErrorf("category is required")
	}
	if !ValidExpenseCategory(r.Category) {
		return nil, validationErrorf(fmt.Sprintf("category must be one of: %s", strings.Join(ExpenseCategories, ", ")))
	}
	if r.Amount < 0.01 {
		return nil, validationErrorf("amount must be at least 0.01")
	}
	vendor := strings.TrimSpace(r.Vendor)
	if len(vendor) > 100 {
		return nil, validationErrorf("vendor name must be no more than 100 characters")
	}
	note := strings.TrimSpace(r.Note)
	if len(note) > 500 {
		return nil, validationErrorf("note must be no more than 500 characters")
	}

	return &Expense{
		Category: r.Category,
		Amount:   r.Amount,
		Vendor:   vendor,
		Note:     note,
	}, nil
}

// ExpenseFilter restricts List queries. Zero values mean "no restriction".
type ExpenseFilter struct {
	Start    time.Time
	End      time.Time
	Category string
	Limit    int
	Offset   int
}

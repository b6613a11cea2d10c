package model

import (
	"fmt"
	"strings"
	"time"
)

// Payment types accepted at the counter. The selection mirrors how the
// station actually gets paid: cash over the counter, the two mobile wallets,
// bank transfer, and informal credit for regulars.
const (
	PaymentCash         = "Cash"
	PaymentGCash        = "GCash"
	PaymentPayMaya      = "PayMaya"
	PaymentBankTransfer = "Bank Transfer"
	PaymentOnAccount    = "On-account"
)

// PaymentTypes lists the accepted payment types in display order.
var PaymentTypes = []string{
	PaymentCash, PaymentGCash, PaymentPayMaya, PaymentBankTransfer, PaymentOnAccount,
}

// ValidPaymentType reports whether pt is an accepted payment type.
func ValidPaymentType(pt string) bool {
	for _, t := range PaymentTypes {
		if pt == t {
			return true
		}
	}
	return false
}

// RefillTransaction is one water refill sale. CustomerName is empty for
// walk-in customers. TotalAmount is always GallonsCount * PricePerGallon,
// computed server-side.
type RefillTransaction struct {
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

// CreateRefillRequest is the payload for recording a new refill sale.
type CreateRefillRequest struct {
	CustomerName   string  `json:"customer_name"`
	GallonsCount   int     `json:"gallons_count"`
	PricePerGallon float64 `json:"price_per_gallon"`
	PaymentType    string  `json:"payment_type"`
}

// Validate normalizes and checks the request, returning the validated
// transaction (without ID/StaffID/CreatedAt) or an *ErrValidation.
func (r *CreateRefillRequest) Validate() (*RefillTransaction, error) {
	name := strings.TrimSpace(r.CustomerName)
	if len(name) > 100 {
		return nil, validationErrorf("customer name must be no more than 100 characters")
	}
	if r.GallonsCount < 1 {
		return nil, validationErrorf("gallons count must be at least 1")
	}
	if r.PricePerGallon < 0.01 {
		return nil, validationErrorf("price per gallon must be at least 0.01")
	}
	pt := r.PaymentType
	if pt == "" {
		pt = PaymentCash
	}
	if !ValidPaymentType(pt) {
		return nil, validationErrorf(fmt.Sprintf("payment type must be one of: %s", strings.Join(PaymentTypes, ", ")))
	}

	return &RefillTransaction{
		CustomerName:   name,
		GallonsCount:   r.GallonsCount,
		PricePerGallon: r.PricePerGallon,
		TotalAmount:    float64(r.GallonsCount) * r.PricePerGallon,
		PaymentType:    pt,
	}, nil
}

// RefillFilter restricts List queries. Zero values mean "no restriction".
// Start and End bound CreatedAt inclusively.
type RefillFilter struct {
	Start   time.Time
	End     time.Time
	StaffID *int64
	Limit   int
	Offset  int
}

// Package retail models Online Retail transaction records and computes the
// aggregations behind the analyze command: revenue views, rankings, weekday
// breakdowns, and cancellation metrics.
package retail

import (
	"strings"
	"time"
)

// Transaction is a single retail transaction line.
// Description and CustomerID are optional; an empty string means the source
// row had no value. Quantity is negative for returns in some datasets.
type Transaction struct {
	InvoiceNo   string    `json:"invoice_no" yaml:"invoice_no"`
	StockCode   string    `json:"stock_code" yaml:"stock_code"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Quantity    int       `json:"quantity" yaml:"quantity"`
	InvoiceDate time.Time `json:"invoice_date" yaml:"invoice_date"`
	UnitPrice   float64   `json:"unit_price" yaml:"unit_price"`
	CustomerID  string    `json:"customer_id,omitempty" yaml:"customer_id,omitempty"`
	Country     string    `json:"country" yaml:"country"`
}

// LineTotal returns the monetary total for this line, quantity times unit
// price. Negative for returns.
func (t Transaction) LineTotal() float64 {
	return float64(t.Quantity) * t.UnitPrice
}

// IsCancellation reports whether the invoice number marks a cancellation.
// Cancellation invoices start with "C" (case-insensitive).
func (t Transaction) IsCancellation() bool {
	return strings.HasPrefix(strings.ToUpper(t.InvoiceNo), "C")
}

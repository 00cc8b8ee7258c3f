package retail

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Weekdays is the display order for weekday aggregations.
var Weekdays = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// ValidSales returns the transactions that count as clean sales: not a
// cancellation, positive quantity, positive unit price.
func ValidSales(records []Transaction) []Transaction {
	var out []Transaction
	for _, t := range records {
		if !t.IsCancellation() && t.Quantity > 0 && t.UnitPrice > 0 {
			out = append(out, t)
		}
	}
	return out
}

// Returns yields the transactions that count as returns or cancellations:
// the invoice is a cancellation, or the quantity is non-positive (many
// datasets encode returns that way).
func Returns(records []Transaction) []Transaction {
	var out []Transaction
	for _, t := range records {
		if t.IsCancellation() || t.Quantity <= 0 {
			out = append(out, t)
		}
	}
	return out
}

// TotalRevenue sums the line totals of all valid sales.
func TotalRevenue(records []Transaction) float64 {
	var total float64
	for _, t := range ValidSales(records) {
		total += t.LineTotal()
	}
	return total
}

// RevenueByCountry aggregates valid-sale revenue per country, rounded to two
// decimals.
func RevenueByCountry(records []Transaction) map[string]float64 {
	agg := make(map[string]float64)
	for _, t := range ValidSales(records) {
		agg[t.Country] += t.LineTotal()
	}
	return roundValues(agg)
}

// MonthlyRevenue aggregates valid-sale revenue per month, keyed "YYYY-MM",
// rounded to two decimals.
func MonthlyRevenue(records []Transaction) map[string]float64 {
	agg := make(map[string]float64)
	for _, t := range ValidSales(records) {
		key := fmt.Sprintf("%04d-%02d", t.InvoiceDate.Year(), int(t.InvoiceDate.Month()))
		agg[key] += t.LineTotal()
	}
	return roundValues(agg)
}

// RankedEntry pairs a ranked name with its aggregated amount.
type RankedEntry struct {
	Name   string  `json:"name" yaml:"name"`
	Amount float64 `json:"amount" yaml:"amount"`
}

// TopProductsByRevenue ranks products by valid-sale revenue, descending, and
// returns at most n entries. Products are keyed by description, falling back
// to stock code; ties rank by name so the result is deterministic.
func TopProductsByRevenue(records []Transaction, n int) []RankedEntry {
	if n <= 0 {
		return nil
	}
	agg := make(map[string]float64)
	for _, t := range ValidSales(records) {
		agg[productKey(t)] += t.LineTotal()
	}
	return rank(agg, n)
}

// TopCustomersByRevenue ranks customers by valid-sale revenue, descending,
// and returns at most n entries. Rows without a customer id are ignored.
func TopCustomersByRevenue(records []Transaction, n int) []RankedEntry {
	if n <= 0 {
		return nil
	}
	agg := make(map[string]float64)
	for _, t := range ValidSales(records) {
		if t.CustomerID != "" {
			agg[t.CustomerID] += t.LineTotal()
		}
	}
	return rank(agg, n)
}

// SalesByWeekday aggregates valid-sale revenue per weekday, rounded to two
// decimals. All seven days are always present.
func SalesByWeekday(records []Transaction) map[string]float64 {
	agg := make(map[string]float64, len(Weekdays))
	for _, day := range Weekdays {
		agg[day] = 0
	}
	for _, t := range ValidSales(records) {
		agg[t.InvoiceDate.Weekday().String()] += t.LineTotal()
	}
	return roundValues(agg)
}

// AvgOrderValue is the mean of per-invoice revenue across valid sales, or
// zero when there are none.
func AvgOrderValue(records []Transaction) float64 {
	perInvoice := make(map[string]float64)
	for _, t := range ValidSales(records) {
		perInvoice[t.InvoiceNo] += t.LineTotal()
	}
	if len(perInvoice) == 0 {
		return 0
	}

	var total float64
	for _, v := range perInvoice {
		total += v
	}
	return total / float64(len(perInvoice))
}

// UnitsSoldPerProduct counts units sold per product across valid sales,
// keyed by description with a fallback to stock code.
func UnitsSoldPerProduct(records []Transaction) map[string]int {
	out := make(map[string]int)
	for _, t := range ValidSales(records) {
		out[productKey(t)] += t.Quantity
	}
	return out
}

// CancellationSummary holds invoice-level cancellation metrics computed over
// every record, not just the sales view.
type CancellationSummary struct {
	// TotalCancellations is the number of cancelled or returned invoices
	TotalCancellations int `json:"total_cancellations" yaml:"total_cancellations"`

	// CancellationRate is the percentage of invoices cancelled
	CancellationRate float64 `json:"cancellation_rate" yaml:"cancellation_rate"`

	// CancelledNetAmount is the signed sum of cancelled line totals
	CancelledNetAmount float64 `json:"cancelled_net_amount" yaml:"cancelled_net_amount"`

	// CancelledAbsAmount is the absolute value of CancelledNetAmount
	CancelledAbsAmount float64 `json:"cancelled_abs_amount" yaml:"cancelled_abs_amount"`
}

// SummarizeCancellations computes invoice-level cancellation metrics over
// all records. Amounts and the rate are rounded to two decimals.
func SummarizeCancellations(records []Transaction) CancellationSummary {
	allInvoices := make(map[string]struct{})
	cancelledInvoices := make(map[string]struct{})
	var netAmount float64

	for _, t := range records {
		allInvoices[t.InvoiceNo] = struct{}{}
		if t.IsCancellation() || t.Quantity <= 0 {
			cancelledInvoices[t.InvoiceNo] = struct{}{}
			netAmount += t.LineTotal()
		}
	}

	var rate float64
	if len(allInvoices) > 0 {
		rate = float64(len(cancelledInvoices)) / float64(len(allInvoices)) * 100
	}

	return CancellationSummary{
		TotalCancellations: len(cancelledInvoices),
		CancellationRate:   round2(rate),
		CancelledNetAmount: round2(netAmount),
		CancelledAbsAmount: round2(math.Abs(netAmount)),
	}
}

// CancellationRate is the percentage of absolute cancelled value over gross
// absolute value across all records, or zero when there is no gross value.
// Unlike SummarizeCancellations this weighs by money, not by invoice count.
func CancellationRate(records []Transaction) float64 {
	var gross, cancelled float64
	for _, t := range records {
		abs := math.Abs(t.LineTotal())
		gross += abs
		if t.IsCancellation() || t.Quantity <= 0 {
			cancelled += abs
		}
	}
	if gross == 0 {
		return 0
	}
	return cancelled / gross * 100
}

// productKey is the grouping key for product aggregations: the description
// when present, the stock code otherwise.
func productKey(t Transaction) string {
	if d := strings.TrimSpace(t.Description); d != "" {
		return d
	}
	return strings.TrimSpace(t.StockCode)
}

// rank turns an aggregation map into a descending top-n slice with rounded
// amounts. Ties order by name.
func rank(agg map[string]float64, n int) []RankedEntry {
	entries := make([]RankedEntry, 0, len(agg))
	for name, amount := range agg {
		entries = append(entries, RankedEntry{Name: name, Amount: round2(amount)})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Amount != entries[j].Amount {
			return entries[i].Amount > entries[j].Amount
		}
		return entries[i].Name < entries[j].Name
	})

	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// roundValues rounds every value of the map to two decimals.
func roundValues(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = round2(v)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

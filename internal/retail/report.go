package retail

// Report bundles every analysis section for a transaction dataset into one
// serializable value.
type Report struct {
	// TotalTransactions is the number of rows analyzed
	TotalTransactions int `json:"total_transactions" yaml:"total_transactions"`

	// ValidSales is the number of rows counted as clean sales
	ValidSales int `json:"valid_sales" yaml:"valid_sales"`

	// Returns is the number of rows counted as returns or cancellations
	Returns int `json:"returns" yaml:"returns"`

	// TotalRevenue is the gross revenue across valid sales
	TotalRevenue float64 `json:"total_revenue" yaml:"total_revenue"`

	// AvgOrderValue is the mean per-invoice revenue across valid sales
	AvgOrderValue float64 `json:"avg_order_value" yaml:"avg_order_value"`

	// RevenueByCountry maps country name to revenue
	RevenueByCountry map[string]float64 `json:"revenue_by_country" yaml:"revenue_by_country"`

	// MonthlyRevenue maps "YYYY-MM" to revenue
	MonthlyRevenue map[string]float64 `json:"monthly_revenue" yaml:"monthly_revenue"`

	// SalesByWeekday maps weekday name to revenue
	SalesByWeekday map[string]float64 `json:"sales_by_weekday" yaml:"sales_by_weekday"`

	// TopProducts ranks products by revenue, highest first
	TopProducts []RankedEntry `json:"top_products" yaml:"top_products"`

	// UnitsSold maps product to units sold across valid sales
	UnitsSold map[string]int `json:"units_sold" yaml:"units_sold"`

	// TopCustomers ranks customers by revenue, highest first
	TopCustomers []RankedEntry `json:"top_customers" yaml:"top_customers"`

	// Cancellations holds the invoice-level cancellation metrics
	Cancellations CancellationSummary `json:"cancellations" yaml:"cancellations"`

	// CancelledValueRate is the percentage of absolute value cancelled
	CancelledValueRate float64 `json:"cancelled_value_rate" yaml:"cancelled_value_rate"`
}

// BuildReport runs every analysis over the records and returns the combined
// report. topN bounds the product and customer rankings.
func BuildReport(records []Transaction, topN int) Report {
	return Report{
		TotalTransactions:  len(records),
		ValidSales:         len(ValidSales(records)),
		Returns:            len(Returns(records)),
		TotalRevenue:       round2(TotalRevenue(records)),
		AvgOrderValue:      round2(AvgOrderValue(records)),
		RevenueByCountry:   RevenueByCountry(records),
		MonthlyRevenue:     MonthlyRevenue(records),
		SalesByWeekday:     SalesByWeekday(records),
		TopProducts:        TopProductsByRevenue(records, topN),
		UnitsSold:          UnitsSoldPerProduct(records),
		TopCustomers:       TopCustomersByRevenue(records, topN),
		Cancellations:      SummarizeCancellations(records),
		CancelledValueRate: round2(CancellationRate(records)),
	}
}

package retail

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
)

// headerMap normalizes the messy CSV header variants seen across Online
// Retail exports to canonical column names.
var headerMap = map[string]string{
	"invoice":     "InvoiceNo",
	"invoiceno":   "InvoiceNo",
	"stockcode":   "StockCode",
	"description": "Description",
	"quantity":    "Quantity",
	"invoicedate": "InvoiceDate",
	"price":       "UnitPrice",
	"unitprice":   "UnitPrice",
	"customer id": "CustomerID",
	"customerid":  "CustomerID",
	"country":     "Country",
}

// dateFormats lists the date layouts observed in the Online Retail datasets,
// tried in order. US month-first layouts come before day-first ones.
var dateFormats = []string{
	"1/2/06 15:04",
	"1/2/2006 15:04",
	"2/1/2006 15:04",
	"2-1-2006 15:04",
	"2006-01-02 15:04:05",
}

// LoadTransactions reads every well-formed transaction from the CSV file at
// path. Online Retail exports ship as ISO-8859-1, not UTF-8, so the file is
// decoded accordingly.
func LoadTransactions(path string) ([]Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transactions file: %w", err)
	}
	defer f.Close()

	txs, err := ReadTransactions(charmap.ISO8859_1.NewDecoder().Reader(f))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return txs, nil
}

// ReadTransactions parses transactions from CSV data. Headers are
// normalized, dates are tried against every known layout, and rows with bad
// numerics, unparseable dates, or missing required fields (invoice, stock
// code, country) are skipped rather than failing the whole load.
func ReadTransactions(r io.Reader) ([]Transaction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[normHeader(h)] = i
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var txs []Transaction
	skipped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		quantity, err := strconv.Atoi(strings.TrimSpace(field(row, "Quantity")))
		if err != nil {
			skipped++
			continue
		}

		unitPrice, err := strconv.ParseFloat(strings.TrimSpace(field(row, "UnitPrice")), 64)
		if err != nil {
			skipped++
			continue
		}

		invoiceDate, ok := parseDate(field(row, "InvoiceDate"))
		if !ok {
			skipped++
			continue
		}

		invoiceNo := strings.TrimSpace(field(row, "InvoiceNo"))
		stockCode := strings.TrimSpace(field(row, "StockCode"))
		country := strings.TrimSpace(field(row, "Country"))
		if invoiceNo == "" || stockCode == "" || country == "" {
			skipped++
			continue
		}

		txs = append(txs, Transaction{
			InvoiceNo:   invoiceNo,
			StockCode:   stockCode,
			Description: strings.TrimSpace(field(row, "Description")),
			Quantity:    quantity,
			InvoiceDate: invoiceDate,
			UnitPrice:   unitPrice,
			CustomerID:  strings.TrimSpace(field(row, "CustomerID")),
			Country:     country,
		})
	}

	if skipped > 0 {
		slog.Debug("skipped malformed transaction rows", "skipped", skipped, "loaded", len(txs))
	}

	return txs, nil
}

// parseDate tries raw against every known date layout.
func parseDate(raw string) (time.Time, bool) {
	v := strings.TrimSpace(raw)
	for _, layout := range dateFormats {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// normHeader maps a raw CSV column header to its canonical name, or returns
// the trimmed original when unknown.
func normHeader(name string) string {
	if canonical, ok := headerMap[strings.ToLower(strings.TrimSpace(name))]; ok {
		return canonical
	}
	return strings.TrimSpace(name)
}

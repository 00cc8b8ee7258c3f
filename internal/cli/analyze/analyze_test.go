package analyze

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aryankumar/conveyor/internal/config"
	"github.com/aryankumar/conveyor/internal/pipeline"
	"github.com/aryankumar/conveyor/internal/retail"
	"github.com/aryankumar/conveyor/internal/util"
)

func TestNewAnalyzeCmd(t *testing.T) {
	cmd := NewAnalyzeCmd()

	if cmd.Use != "analyze" {
		t.Errorf("expected Use to be 'analyze', got %s", cmd.Use)
	}

	if cmd.Short == "" {
		t.Error("expected non-empty Short description")
	}

	flags := []string{"file", "top"}
	for _, flag := range flags {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("expected flag --%s to be defined", flag)
		}
	}

	fileFlag := cmd.Flags().Lookup("file")
	if fileFlag.Shorthand != "f" {
		t.Errorf("expected --file shorthand to be 'f', got %s", fileFlag.Shorthand)
	}

	topFlag := cmd.Flags().Lookup("top")
	if topFlag.DefValue != "5" {
		t.Errorf("expected --top default to be 5, got %s", topFlag.DefValue)
	}
}

func TestAnalyzeCmdRequiresFile(t *testing.T) {
	cmd := NewAnalyzeCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected an error when --file is omitted")
	}
	if !strings.Contains(err.Error(), "file") {
		t.Errorf("expected error to mention the file flag, got %v", err)
	}
}

func TestRunAnalyzeMissingFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	err := runAnalyze(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), 5)
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if !strings.Contains(err.Error(), "failed to open") {
		t.Errorf("expected an open failure, got %v", err)
	}
}

func TestPartition(t *testing.T) {
	tests := []struct {
		name      string
		records   int
		producers int
		wantSizes []int
	}{
		{
			name:      "even split",
			records:   6,
			producers: 2,
			wantSizes: []int{3, 3},
		},
		{
			name:      "uneven split leaves short tail",
			records:   10,
			producers: 3,
			wantSizes: []int{4, 4, 2},
		},
		{
			name:      "more producers than records",
			records:   3,
			producers: 5,
			wantSizes: []int{1, 1, 1},
		},
		{
			name:      "single producer takes everything",
			records:   4,
			producers: 1,
			wantSizes: []int{4},
		},
		{
			name:      "non-positive producer count is clamped",
			records:   5,
			producers: 0,
			wantSizes: []int{5},
		},
		{
			name:      "no records",
			records:   0,
			producers: 3,
			wantSizes: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := make([]retail.Transaction, tt.records)
			for i := range records {
				records[i].InvoiceNo = strconv.Itoa(i)
			}

			chunks := partition(records, tt.producers)

			if len(chunks) != len(tt.wantSizes) {
				t.Fatalf("expected %d chunks, got %d", len(tt.wantSizes), len(chunks))
			}

			next := 0
			for i, chunk := range chunks {
				if len(chunk) != tt.wantSizes[i] {
					t.Errorf("chunk %d: expected size %d, got %d", i, tt.wantSizes[i], len(chunk))
				}
				for _, rec := range chunk {
					if rec.InvoiceNo != strconv.Itoa(next) {
						t.Errorf("chunk %d: expected record %d, got %s", i, next, rec.InvoiceNo)
					}
					next++
				}
			}
			if next != tt.records {
				t.Errorf("expected chunks to cover %d records, got %d", tt.records, next)
			}
		})
	}
}

func TestKeysByValueDesc(t *testing.T) {
	tests := []struct {
		name string
		m    map[string]float64
		want []string
	}{
		{
			name: "descending by value",
			m:    map[string]float64{"France": 25.50, "United Kingdom": 28.86, "Germany": 3.20},
			want: []string{"United Kingdom", "France", "Germany"},
		},
		{
			name: "ties break by key",
			m:    map[string]float64{"b": 1.0, "a": 1.0, "c": 2.0},
			want: []string{"c", "a", "b"},
		},
		{
			name: "empty map",
			m:    map[string]float64{},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := keysByValueDesc(tt.m)

			if len(got) != len(tt.want) {
				t.Fatalf("expected %d keys, got %d", len(tt.want), len(got))
			}
			for i, key := range tt.want {
				if got[i] != key {
					t.Errorf("position %d: expected %s, got %s", i, key, got[i])
				}
			}
		})
	}
}

// sampleTransactions mirrors a few rows of an Online Retail export: two
// invoices from the UK, one from France, and one cancellation.
func sampleTransactions() []retail.Transaction {
	monday := time.Date(2011, time.March, 7, 10, 30, 0, 0, time.UTC)
	return []retail.Transaction{
		{InvoiceNo: "536365", StockCode: "85123A", Description: "VINTAGE MUG", Quantity: 6, InvoiceDate: monday, UnitPrice: 2.55, CustomerID: "17850", Country: "United Kingdom"},
		{InvoiceNo: "536365", StockCode: "71053", Description: "METAL LANTERN", Quantity: 4, InvoiceDate: monday, UnitPrice: 3.39, CustomerID: "17850", Country: "United Kingdom"},
		{InvoiceNo: "536366", StockCode: "22423", Description: "CAKE STAND", Quantity: 2, InvoiceDate: monday.AddDate(0, 0, 1), UnitPrice: 12.75, CustomerID: "13047", Country: "France"},
		{InvoiceNo: "C536367", StockCode: "85123A", Description: "VINTAGE MUG", Quantity: -2, InvoiceDate: monday.AddDate(0, 0, 1), UnitPrice: 2.55, CustomerID: "17850", Country: "United Kingdom"},
	}
}

func TestRenderReportTable(t *testing.T) {
	report := retail.BuildReport(sampleTransactions(), 3)

	var buf bytes.Buffer
	if err := renderReportTable(&buf, report, true); err != nil {
		t.Fatalf("renderReportTable failed: %v", err)
	}
	got := buf.String()

	sections := []string{
		"OVERVIEW",
		"REVENUE BY COUNTRY",
		"MONTHLY REVENUE",
		"TOP PRODUCTS",
		"TOP CUSTOMERS",
		"SALES BY WEEKDAY",
		"CANCELLATIONS",
	}
	for _, section := range sections {
		if !strings.Contains(got, section) {
			t.Errorf("expected output to contain section %q", section)
		}
	}

	values := []string{
		"Total Transactions",
		"VINTAGE MUG",
		"United Kingdom",
		"France",
		"6 units",
		"Monday",
		"Cancelled Invoices",
	}
	for _, value := range values {
		if !strings.Contains(got, value) {
			t.Errorf("expected output to contain %q", value)
		}
	}

	// UK revenue (28.86) outranks France (25.50)
	if strings.Index(got, "United Kingdom") > strings.Index(got, "France") {
		t.Error("expected countries ordered by revenue descending")
	}
}

func TestStreamTransactions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping pipeline test in short mode")
	}

	records := make([]retail.Transaction, 40)
	for i := range records {
		records[i].InvoiceNo = strconv.Itoa(536365 + i)
		records[i].Quantity = 1
		records[i].UnitPrice = 1.0
		records[i].Country = "United Kingdom"
	}

	topo := config.PresetConfig{Capacity: 4, Producers: 3, Consumers: 2}
	defaults := config.DefaultsConfig{
		PutTimeout: pipeline.DefaultPutTimeout,
		GetTimeout: pipeline.DefaultGetTimeout,
		JoinBudget: pipeline.DefaultJoinBudget,
	}

	collected, stats, err := streamTransactions(context.Background(), records, topo, defaults)
	if err != nil {
		t.Fatalf("streamTransactions failed: %v", err)
	}

	if len(collected) != len(records) {
		t.Errorf("expected %d collected transactions, got %d", len(records), len(collected))
	}
	if stats.TotalProduced != len(records) {
		t.Errorf("expected %d produced, got %d", len(records), stats.TotalProduced)
	}
	if stats.TotalConsumed != len(records) {
		t.Errorf("expected %d consumed, got %d", len(records), stats.TotalConsumed)
	}

	// Every invoice arrives exactly once
	seen := make(map[string]int)
	for _, tx := range collected {
		seen[tx.InvoiceNo]++
	}
	for _, rec := range records {
		if seen[rec.InvoiceNo] != 1 {
			t.Errorf("expected invoice %s delivered once, got %d", rec.InvoiceNo, seen[rec.InvoiceNo])
		}
	}
}

func TestStreamTransactionsCancelled(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping pipeline test in short mode")
	}

	records := make([]retail.Transaction, 5000)
	for i := range records {
		records[i].InvoiceNo = strconv.Itoa(i)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	topo := config.PresetConfig{Capacity: 1, Producers: 1, Consumers: 1}
	defaults := config.DefaultsConfig{
		PutTimeout: pipeline.DefaultPutTimeout,
		GetTimeout: pipeline.DefaultGetTimeout,
		JoinBudget: pipeline.DefaultJoinBudget,
	}

	_, _, err := streamTransactions(ctx, records, topo, defaults)
	if err == nil {
		// The run can still drain before the cancellation is observed
		t.Skip("run finished before the cancellation was observed")
	}
	if !errors.Is(err, util.ErrCancelled) {
		t.Errorf("expected a cancellation error, got %v", err)
	}
}

func TestRunAnalyzeEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end test in short mode")
	}

	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	path := filepath.Join(dir, "transactions.csv")
	csv := `InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country
536365,85123A,VINTAGE MUG,6,12/1/2010 8:26,2.55,17850,United Kingdom
536365,71053,METAL LANTERN,4,12/1/2010 8:26,3.39,17850,United Kingdom
536366,22423,CAKE STAND,2,12/2/2010 9:01,12.75,13047,France
C536367,85123A,VINTAGE MUG,-2,12/2/2010 10:03,2.55,17850,United Kingdom
`
	if err := os.WriteFile(path, []byte(csv), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	if err := runAnalyze(context.Background(), path, 3); err != nil {
		t.Fatalf("runAnalyze failed: %v", err)
	}
}

func TestRunAnalyzeEmptyFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	path := filepath.Join(dir, "empty.csv")
	header := "InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country\n"
	if err := os.WriteFile(path, []byte(header), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	err := runAnalyze(context.Background(), path, 5)
	if err == nil {
		t.Fatal("expected an error for a file with no transactions")
	}
	if !strings.Contains(err.Error(), "no transactions") {
		t.Errorf("expected a no-transactions error, got %v", err)
	}
}

func BenchmarkPartition(b *testing.B) {
	records := make([]retail.Transaction, 10000)
	for i := range records {
		records[i].InvoiceNo = strconv.Itoa(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		partition(records, 8)
	}
}

func BenchmarkKeysByValueDesc(b *testing.B) {
	m := make(map[string]float64, 100)
	for i := 0; i < 100; i++ {
		m[fmt.Sprintf("country-%d", i)] = float64(i % 17)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		keysByValueDesc(m)
	}
}

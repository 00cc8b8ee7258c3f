package analyze

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aryankumar/conveyor/internal/config"
	"github.com/aryankumar/conveyor/internal/output"
	"github.com/aryankumar/conveyor/internal/pipeline"
	"github.com/aryankumar/conveyor/internal/retail"
	"github.com/aryankumar/conveyor/internal/util"
)

// analysisOutput is the single document emitted for json/yaml output
type analysisOutput struct {
	Report retail.Report  `json:"report" yaml:"report"`
	Stats  pipeline.Stats `json:"pipeline" yaml:"pipeline"`
}

// NewAnalyzeCmd creates the analyze command
func NewAnalyzeCmd() *cobra.Command {
	var filename string
	var topN int

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a retail transactions CSV",
		Long: `Analyze a retail transactions CSV file.

The file is loaded, partitioned across producers, and streamed through a
bounded pipeline into a collected destination. The collected transactions
are then summarized: total revenue, revenue by country and month, top
products and customers, weekday sales, average order value, units sold,
and cancellation metrics.

The CSV must carry the Online Retail column layout (InvoiceNo, StockCode,
Description, Quantity, InvoiceDate, UnitPrice, CustomerID, Country).
Malformed rows are skipped.`,
		Example: `  # Analyze a transactions file
  conveyor analyze -f data.csv

  # Show the ten best-selling products and customers
  conveyor analyze -f data.csv --top 10

  # Emit the report as JSON
  conveyor analyze -f data.csv -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if filename == "" {
				return fmt.Errorf("filename is required (-f flag)")
			}

			ctx := cmd.Context()
			return runAnalyze(ctx, filename, topN)
		},
	}

	cmd.Flags().StringVarP(&filename, "file", "f", "", "Path to transactions CSV file (required)")
	cmd.Flags().IntVar(&topN, "top", 5, "Number of entries in the product and customer rankings")

	cmd.MarkFlagRequired("file")

	return cmd
}

func runAnalyze(ctx context.Context, filename string, topN int) error {
	logger := slog.Default()

	logger.Debug("analyzing transactions", "file", filename, "top", topN)

	records, err := retail.LoadTransactions(filename)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		return fmt.Errorf("no transactions found in %s", filename)
	}

	logger.Info("loaded transactions", "count", len(records))

	// Topology comes from the configured defaults or default preset
	manager := config.NewManager(viper.GetString("config"))
	cfg, err := manager.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	topo, err := manager.ResolvePreset("")
	if err != nil {
		return err
	}

	collected, stats, err := streamTransactions(ctx, records, topo, cfg.Defaults)
	if err != nil {
		return err
	}

	report := retail.BuildReport(collected, topN)

	return renderReport(report, stats)
}

// streamTransactions pushes the records through a bounded pipeline and
// returns the collected destination along with the final stats
func streamTransactions(
	ctx context.Context,
	records []retail.Transaction,
	topo config.PresetConfig,
	defaults config.DefaultsConfig,
) ([]retail.Transaction, pipeline.Stats, error) {
	logger := slog.Default()

	p, err := pipeline.New[retail.Transaction](topo.Capacity,
		pipeline.WithLogger(logger),
		pipeline.WithPutTimeout(defaults.PutTimeout),
		pipeline.WithGetTimeout(defaults.GetTimeout),
		pipeline.WithJoinBudget(defaults.JoinBudget),
	)
	if err != nil {
		return nil, pipeline.Stats{}, fmt.Errorf("failed to create pipeline: %w", err)
	}

	for _, chunk := range partition(records, topo.Producers) {
		if _, err := p.AddProducer("", chunk, 0); err != nil {
			return nil, pipeline.Stats{}, fmt.Errorf("failed to add producer: %w", err)
		}
	}

	var collected []retail.Transaction
	for i := 0; i < topo.Consumers; i++ {
		if _, err := p.AddConsumer("", &collected, 0); err != nil {
			return nil, pipeline.Stats{}, fmt.Errorf("failed to add consumer: %w", err)
		}
	}

	if err := p.Start(); err != nil {
		return nil, pipeline.Stats{}, fmt.Errorf("failed to start pipeline: %w", err)
	}

	logger.Debug("pipeline started", "run_id", p.RunID(), "records", len(records))

	done := make(chan error, 1)
	go func() {
		done <- p.ShutdownGracefully()
	}()

	// A non-positive timeout means no deadline
	execCtx := ctx
	if timeout := viper.GetDuration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var shutdownErr error
	select {
	case shutdownErr = <-done:
	case <-execCtx.Done():
		if err := p.ShutdownForcefully(); err != nil && errors.Is(err, pipeline.ErrNotRunning) {
			// The graceful shutdown won the race
			shutdownErr = <-done
		} else {
			return nil, pipeline.Stats{}, util.WrapErrorf(util.ErrCancelled, "analysis interrupted")
		}
	}
	if shutdownErr != nil {
		return nil, pipeline.Stats{}, util.WrapErrorf(shutdownErr, "streaming transactions")
	}

	return collected, p.Stats(), nil
}

// partition splits records into up to n contiguous chunks
func partition(records []retail.Transaction, n int) [][]retail.Transaction {
	if n < 1 {
		n = 1
	}

	size := (len(records) + n - 1) / n
	chunks := make([][]retail.Transaction, 0, n)

	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		chunks = append(chunks, records[start:end])
	}

	return chunks
}

// renderReport writes the report in the configured output format
func renderReport(report retail.Report, stats pipeline.Stats) error {
	outputFormat := viper.GetString("output")
	noColor := viper.GetBool("no-color")

	switch outputFormat {
	case "json":
		formatter := output.NewFormatter(output.FormatJSON)
		return formatter.Format(os.Stdout, analysisOutput{Report: report, Stats: stats})
	case "yaml":
		formatter := output.NewFormatter(output.FormatYAML)
		return formatter.Format(os.Stdout, analysisOutput{Report: report, Stats: stats})
	default:
		if err := renderReportTable(os.Stdout, report, noColor); err != nil {
			return err
		}
		formatter := output.NewFormatter(output.FormatTable, output.WithNoColor(noColor))
		return formatter.FormatStats(os.Stdout, stats)
	}
}

// renderReportTable writes the report as titled table sections
func renderReportTable(w io.Writer, report retail.Report, noColor bool) error {
	colors := output.NewColorScheme(w, noColor)

	fmt.Fprintf(w, "%s\n", colors.Header("OVERVIEW"))
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "Total Transactions\t%d\n", report.TotalTransactions)
	fmt.Fprintf(tw, "Valid Sales\t%d\n", report.ValidSales)
	fmt.Fprintf(tw, "Returns\t%d\n", report.Returns)
	fmt.Fprintf(tw, "Total Revenue\t%s\n", colors.Value("%.2f", report.TotalRevenue))
	fmt.Fprintf(tw, "Avg Order Value\t%s\n", colors.Value("%.2f", report.AvgOrderValue))
	tw.Flush()

	fmt.Fprintf(w, "\n%s\n", colors.Header("REVENUE BY COUNTRY"))
	tw = tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	for _, country := range keysByValueDesc(report.RevenueByCountry) {
		fmt.Fprintf(tw, "%s\t%.2f\n", country, report.RevenueByCountry[country])
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%s\n", colors.Header("MONTHLY REVENUE"))
	tw = tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	months := make([]string, 0, len(report.MonthlyRevenue))
	for month := range report.MonthlyRevenue {
		months = append(months, month)
	}
	sort.Strings(months)
	for _, month := range months {
		fmt.Fprintf(tw, "%s\t%.2f\n", month, report.MonthlyRevenue[month])
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%s\n", colors.Header("TOP PRODUCTS"))
	renderRanking(w, colors, report.TopProducts, report.UnitsSold)

	fmt.Fprintf(w, "\n%s\n", colors.Header("TOP CUSTOMERS"))
	renderRanking(w, colors, report.TopCustomers, nil)

	fmt.Fprintf(w, "\n%s\n", colors.Header("SALES BY WEEKDAY"))
	tw = tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	for _, day := range retail.Weekdays {
		fmt.Fprintf(tw, "%s\t%.2f\n", day, report.SalesByWeekday[day])
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%s\n", colors.Header("CANCELLATIONS"))
	tw = tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "Cancelled Invoices\t%d\n", report.Cancellations.TotalCancellations)
	fmt.Fprintf(tw, "Invoice Rate\t%.2f%%\n", report.Cancellations.CancellationRate)
	fmt.Fprintf(tw, "Cancelled Value Rate\t%.2f%%\n", report.CancelledValueRate)
	fmt.Fprintf(tw, "Cancelled Net Amount\t%.2f\n", report.Cancellations.CancelledNetAmount)
	tw.Flush()

	fmt.Fprintln(w)
	return nil
}

// renderRanking writes a ranked name/amount table, with units appended when
// a units map is provided
func renderRanking(w io.Writer, colors *output.ColorScheme, entries []retail.RankedEntry, units map[string]int) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)

	for i, entry := range entries {
		name := util.TruncateString(entry.Name, 40)
		if units != nil {
			fmt.Fprintf(tw, "%d\t%s\t%.2f\t%d units\n", i+1, colors.Label("%s", name), entry.Amount, units[entry.Name])
		} else {
			fmt.Fprintf(tw, "%d\t%s\t%.2f\n", i+1, colors.Label("%s", name), entry.Amount)
		}
	}

	tw.Flush()
}

// keysByValueDesc returns the map keys ordered by value descending, breaking
// ties by key
func keysByValueDesc(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})

	return keys
}

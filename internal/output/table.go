package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/aryankumar/conveyor/internal/pipeline"
)

// TableFormatter formats output as a borderless, tab-separated table
type TableFormatter struct {
	options *Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(opts *Options) *TableFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &TableFormatter{
		options: opts,
	}
}

// Format outputs a single data item as a table
func (f *TableFormatter) Format(w io.Writer, data interface{}) error {
	table := f.createTable(w)

	// Handle different data types
	switch v := data.(type) {
	case map[string]interface{}:
		return f.formatMap(table, v)
	case []map[string]interface{}:
		return f.formatMapSlice(table, v)
	case string:
		fmt.Fprintln(w, v)
		return nil
	default:
		// Fallback to simple string representation
		fmt.Fprintln(w, v)
		return nil
	}
}

// FormatStats outputs a pipeline statistics snapshot as a table
func (f *TableFormatter) FormatStats(w io.Writer, stats pipeline.Stats) error {
	// Create color scheme
	colors := NewColorScheme(w, f.options.NoColor)

	table := f.createTable(w)

	// Set headers
	headers := []string{"METRIC", "VALUE"}

	if !f.options.NoHeaders {
		if colors.Disabled {
			table.SetHeader(headers)
		} else {
			coloredHeaders := make([]string, len(headers))
			for i, h := range headers {
				coloredHeaders[i] = colors.Header(h)
			}
			table.SetHeader(coloredHeaders)
		}
	}

	// Add a row per metric
	for _, row := range f.statRows(stats, colors) {
		table.Append(row)
	}

	table.Render()

	// Print summary
	f.printSummary(w, stats, colors)

	return nil
}

// statRows formats the stats snapshot as metric/value table rows
func (f *TableFormatter) statRows(stats pipeline.Stats, colors *ColorScheme) [][]string {
	value := func(v int) string {
		s := fmt.Sprintf("%d", v)
		if !colors.Disabled {
			s = colors.Value(s)
		}
		return s
	}

	return [][]string{
		{"Producers", value(stats.NumProducers)},
		{"Consumers", value(stats.NumConsumers)},
		{"Total Produced", value(stats.TotalProduced)},
		{"Total Consumed", value(stats.TotalConsumed)},
		{"In Transit", value(stats.ItemsInTransit)},
		{"Buffered", value(stats.BufferSize)},
	}
}

// formatMap formats a map as a two-column table (key-value pairs)
func (f *TableFormatter) formatMap(table *tablewriter.Table, data map[string]interface{}) error {
	if !f.options.NoHeaders {
		table.SetHeader([]string{"KEY", "VALUE"})
	}

	for k, v := range data {
		table.Append([]string{k, fmt.Sprintf("%v", v)})
	}

	table.Render()
	return nil
}

// formatMapSlice formats a slice of maps as a table
func (f *TableFormatter) formatMapSlice(table *tablewriter.Table, data []map[string]interface{}) error {
	if len(data) == 0 {
		return nil
	}

	// Extract headers from the first map
	var headers []string
	for k := range data[0] {
		headers = append(headers, strings.ToUpper(k))
	}

	if !f.options.NoHeaders {
		table.SetHeader(headers)
	}

	// Add rows
	for _, item := range data {
		var row []string
		for _, h := range headers {
			key := strings.ToLower(h)
			row = append(row, fmt.Sprintf("%v", item[key]))
		}
		table.Append(row)
	}

	table.Render()
	return nil
}

// createTable creates a new table with kubectl-style configuration
func (f *TableFormatter) createTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	return table
}

// printSummary prints a one-line summary of the stats snapshot
func (f *TableFormatter) printSummary(w io.Writer, stats pipeline.Stats, colors *ColorScheme) {
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Summary: ")

	producedText := fmt.Sprintf("%d produced", stats.TotalProduced)
	if !colors.Disabled {
		producedText = colors.Success(producedText)
	}

	consumedText := fmt.Sprintf("%d consumed", stats.TotalConsumed)
	if !colors.Disabled {
		consumedText = colors.Success(consumedText)
	}

	transitText := fmt.Sprintf("%d in transit", stats.ItemsInTransit)
	if !colors.Disabled {
		transitText = colors.StatusColor(stats.ItemsInTransit != 0)(transitText)
	}

	fmt.Fprintf(w, "%s, %s, %s\n", producedText, consumedText, transitText)
}

// Package output provides formatters for displaying Conveyor CLI command results.
//
// The package supports multiple output formats (table, JSON, YAML) and provides
// a unified interface for formatting both generic data and pipeline statistics.
//
// # Features
//
//   - Multiple output formats: table, JSON, and YAML
//   - Color support with automatic TTY detection
//   - Configurable options (no-color, no-headers, wide mode)
//   - Pipeline statistics rendering with a summary line
//   - Automatic indentation and formatting
//
// # Basic Usage
//
//	// Create a table formatter
//	formatter := output.NewFormatter(output.FormatTable)
//
//	// Format single data item
//	data := map[string]interface{}{"key": "value"}
//	formatter.Format(os.Stdout, data)
//
//	// Format pipeline statistics
//	stats := p.Stats()
//	formatter.FormatStats(os.Stdout, stats)
//
// # Options
//
// Formatters can be configured with functional options:
//
//	formatter := output.NewFormatter(
//	    output.FormatTable,
//	    output.WithNoColor(true),
//	    output.WithWide(true),
//	)
//
// # Formatters
//
// Table Formatter:
//   - Borderless tables with tab-separated columns
//   - Optional color highlighting for metrics, status, and labels
//   - Summary line after pipeline statistics
//   - Wide mode for additional columns in listings
//
// JSON Formatter:
//   - Clean, indented JSON output
//   - Suitable for scripting and automation
//   - Stats encode with stable snake_case keys
//
// YAML Formatter:
//   - Human-readable YAML output
//   - Proper indentation and formatting
//
// # Color Support
//
// Colors are automatically enabled for TTY outputs and can be disabled with:
//   - WithNoColor(true) option
//   - Non-TTY output (pipes, redirects)
//
// Color scheme:
//   - Labels (preset names, worker ids): Cyan, Bold
//   - Success status: Green
//   - Error messages: Red, Bold
//   - Warnings: Yellow
//   - Headers: White, Bold
//   - Metric values: Blue
package output

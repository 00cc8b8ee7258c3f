package preset

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/aryankumar/conveyor/internal/config"
	"github.com/aryankumar/conveyor/internal/util"
)

// presetView is the serializable row for list output
type presetView struct {
	Name         string            `json:"name" yaml:"name"`
	Default      bool              `json:"default" yaml:"default"`
	Description  string            `json:"description,omitempty" yaml:"description,omitempty"`
	Capacity     int               `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	Producers    int               `json:"producers,omitempty" yaml:"producers,omitempty"`
	Consumers    int               `json:"consumers,omitempty" yaml:"consumers,omitempty"`
	Items        int               `json:"items,omitempty" yaml:"items,omitempty"`
	ProduceDelay time.Duration     `json:"produceDelay,omitempty" yaml:"produceDelay,omitempty"`
	ConsumeDelay time.Duration     `json:"consumeDelay,omitempty" yaml:"consumeDelay,omitempty"`
	Labels       map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// newListCmd creates the preset list command
func newListCmd() *cobra.Command {
	var (
		showLabels   bool
		selector     string
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured pipeline presets",
		Long: `List all pipeline topology presets from the conveyor config file.

The default preset is marked and sorted first. Presets can be filtered
by label selector.`,
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, showLabels, selector, outputFormat)
		},
	}

	cmd.Flags().BoolVar(&showLabels, "show-labels", false, "show preset labels")
	cmd.Flags().StringVarP(&selector, "selector", "l", "", "label selector to filter presets (key=value,...)")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "output format (table, json, yaml)")

	return cmd
}

func runList(cmd *cobra.Command, showLabels bool, selector string, outputFormat string) error {
	logger := slog.Default()

	cfgPath := viper.GetString("config")
	manager := config.NewManager(cfgPath)

	cfg, err := manager.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Debug("loaded config", "presets", len(cfg.Presets))

	// Default-first, then alphabetical
	names := manager.PresetNames()

	// Apply label selector if given
	if selector != "" {
		labels, err := parseSelector(selector)
		if err != nil {
			return err
		}

		matched := make(map[string]bool)
		for _, name := range manager.PresetsByLabel(labels) {
			matched[name] = true
		}

		filtered := names[:0]
		for _, name := range names {
			if matched[name] {
				filtered = append(filtered, name)
			}
		}
		names = filtered
	}

	if len(names) == 0 {
		fmt.Fprintf(os.Stderr, "No presets configured\n")
		return nil
	}

	// Build the view rows
	views := make([]presetView, 0, len(names))
	for _, name := range names {
		preset, ok := manager.GetPreset(name)
		if !ok {
			continue
		}

		views = append(views, presetView{
			Name:         name,
			Default:      name == cfg.DefaultPreset,
			Description:  preset.Description,
			Capacity:     preset.Capacity,
			Producers:    preset.Producers,
			Consumers:    preset.Consumers,
			Items:        preset.Items,
			ProduceDelay: preset.ProduceDelay,
			ConsumeDelay: preset.ConsumeDelay,
			Labels:       preset.Labels,
		})
	}

	// Determine output format
	if outputFormat == "" {
		outputFormat = viper.GetString("output")
	}
	if outputFormat == "" {
		outputFormat = "table"
	}

	// Generate output based on format
	switch outputFormat {
	case "json":
		return outputJSON(views)
	case "yaml":
		return outputYAML(views)
	case "table":
		return outputTable(views, showLabels, viper.GetBool("no-color"))
	default:
		return fmt.Errorf("unsupported output format: %s (supported: table, json, yaml)", outputFormat)
	}
}

func outputTable(views []presetView, showLabels bool, noColor bool) error {
	table := tablewriter.NewWriter(os.Stdout)

	// Set up headers
	headers := []string{"Default", "Name", "Capacity", "Producers", "Consumers", "Items", "Description"}
	if showLabels {
		headers = append(headers, "Labels")
	}
	table.SetHeader(headers)

	// Configure table style
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

	// Color setup
	var (
		defaultMarker = "*"
		greenBold     = color.New(color.FgGreen, color.Bold)
		yellow        = color.New(color.FgYellow)
	)

	if noColor {
		color.NoColor = true
	}

	// Add rows
	for _, view := range views {
		row := make([]string, 0, len(headers))

		// Default indicator
		current := ""
		if view.Default {
			current = defaultMarker
		}
		row = append(row, current)

		// Name (bold green if default)
		name := view.Name
		if view.Default && !noColor {
			name = greenBold.Sprint(name)
		}
		row = append(row, name)

		row = append(row, formatCount(view.Capacity))
		row = append(row, formatCount(view.Producers))
		row = append(row, formatCount(view.Consumers))
		row = append(row, formatCount(view.Items))

		// Description (truncate if too long)
		row = append(row, util.TruncateString(view.Description, 50))

		// Labels
		if showLabels {
			labelStr := formatLabels(view.Labels)
			if !noColor && labelStr != "" {
				labelStr = yellow.Sprint(labelStr)
			}
			row = append(row, labelStr)
		}

		table.Append(row)
	}

	table.Render()

	// Print summary
	fmt.Fprintf(os.Stdout, "\nTotal presets: %d\n", len(views))

	return nil
}

func outputJSON(views []presetView) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(views)
}

func outputYAML(views []presetView) error {
	encoder := yaml.NewEncoder(os.Stdout)
	defer encoder.Close()
	return encoder.Encode(views)
}

// formatCount renders a topology field, showing a dash for inherited zeros
func formatCount(n int) string {
	if n == 0 {
		return "-"
	}
	return strconv.Itoa(n)
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}

	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

// parseSelector parses a comma-separated key=value label selector
func parseSelector(selector string) (map[string]string, error) {
	labels := make(map[string]string)

	for _, pair := range strings.Split(selector, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 || kv[0] == "" {
			return nil, fmt.Errorf("invalid label selector %q (expected key=value)", pair)
		}
		labels[kv[0]] = kv[1]
	}

	return labels, nil
}

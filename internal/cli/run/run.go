package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aryankumar/conveyor/internal/config"
	"github.com/aryankumar/conveyor/internal/output"
	"github.com/aryankumar/conveyor/internal/pipeline"
	"github.com/aryankumar/conveyor/internal/util"
)

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	var (
		presetName    string
		capacity      int
		producers     int
		consumers     int
		items         int
		produceDelay  time.Duration
		consumeDelay  time.Duration
		forcefulAfter time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a producer/consumer pipeline",
		Long: `Run a bounded producer/consumer pipeline.

Producers feed sequential integer items through a fixed-capacity queue into
consumers that collect them in a shared destination. The run ends with a
graceful shutdown that drains every queued item; a cancelled context
(Ctrl+C) or the --forceful-after deadline switches to a forceful shutdown
that may abandon in-flight items.

Topology comes from flags, from a named preset (--preset), or from the
configured default preset, in that order of precedence.`,
		Example: `  # Run with defaults (3 producers, 2 consumers, capacity 10)
  conveyor run

  # Run a named preset topology
  conveyor run --preset burst

  # Run with explicit topology
  conveyor run -c 5 -p 4 --consumers 3 -n 100

  # Slow consumers down to watch backpressure
  conveyor run --produce-delay 10ms --consume-delay 200ms

  # Force shutdown two seconds in
  conveyor run --forceful-after 2s

  # Render statistics as JSON
  conveyor run -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts := runOptions{
				preset:        presetName,
				capacity:      capacity,
				producers:     producers,
				consumers:     consumers,
				items:         items,
				produceDelay:  produceDelay,
				consumeDelay:  consumeDelay,
				forcefulAfter: forcefulAfter,
			}
			return runPipeline(ctx, cmd, opts)
		},
	}

	cmd.Flags().StringVar(&presetName, "preset", "", "named topology preset from the config file")
	cmd.Flags().IntVarP(&capacity, "capacity", "c", 0, "queue capacity (0 means preset or config default)")
	cmd.Flags().IntVarP(&producers, "producers", "p", 0, "number of producers (0 means preset or config default)")
	cmd.Flags().IntVar(&consumers, "consumers", 0, "number of consumers (0 means preset or config default)")
	cmd.Flags().IntVarP(&items, "items", "n", 20, "items produced by each producer")
	cmd.Flags().DurationVar(&produceDelay, "produce-delay", 0, "pause before each produced item")
	cmd.Flags().DurationVar(&consumeDelay, "consume-delay", 0, "pause before each consumed item")
	cmd.Flags().DurationVar(&forcefulAfter, "forceful-after", 0, "switch to forceful shutdown after this duration (0 disables)")

	return cmd
}

// runOptions carries the raw flag values into runPipeline
type runOptions struct {
	preset        string
	capacity      int
	producers     int
	consumers     int
	items         int
	produceDelay  time.Duration
	consumeDelay  time.Duration
	forcefulAfter time.Duration
}

func runPipeline(ctx context.Context, cmd *cobra.Command, opts runOptions) error {
	logger := slog.Default()

	// Load config and resolve the topology preset
	manager := config.NewManager(viper.GetString("config"))
	cfg, err := manager.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	resolved, err := manager.ResolvePreset(opts.preset)
	if err != nil {
		return err
	}

	topo := resolveTopology(cmd, opts, resolved)

	if err := validateTopology(topo); err != nil {
		return err
	}

	logger.Debug("running pipeline",
		"preset", opts.preset,
		"capacity", topo.capacity,
		"producers", topo.producers,
		"consumers", topo.consumers,
		"items", topo.items,
		"produce_delay", topo.produceDelay,
		"consume_delay", topo.consumeDelay)

	// Build the pipeline
	p, err := pipeline.New[int](topo.capacity,
		pipeline.WithLogger(logger),
		pipeline.WithPutTimeout(cfg.Defaults.PutTimeout),
		pipeline.WithGetTimeout(cfg.Defaults.GetTimeout),
		pipeline.WithJoinBudget(cfg.Defaults.JoinBudget),
	)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	// Each producer feeds a disjoint range so delivery can be verified
	sources := make([][]int, topo.producers)
	for i := range sources {
		source := make([]int, topo.items)
		for j := range source {
			source[j] = i*topo.items + j
		}
		sources[i] = source

		if _, err := p.AddProducer("", source, topo.produceDelay); err != nil {
			return fmt.Errorf("failed to add producer: %w", err)
		}
	}

	// All consumers share one destination
	var dest []int
	for i := 0; i < topo.consumers; i++ {
		if _, err := p.AddConsumer("", &dest, topo.consumeDelay); err != nil {
			return fmt.Errorf("failed to add consumer: %w", err)
		}
	}

	if err := p.Start(); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	logger.Info("pipeline started", "run_id", p.RunID())

	// Overall run deadline from the persistent --timeout flag; a non-positive
	// timeout means no deadline
	execCtx := ctx
	if timeout := viper.GetDuration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	forceful, err := awaitShutdown(execCtx, p, topo.forcefulAfter, logger)
	if err != nil {
		// Render whatever stats we have before reporting the failure
		renderStats(p.Stats())
		return err
	}

	stats := p.Stats()
	if err := renderStats(stats); err != nil {
		return err
	}

	return reportDelivery(stats, sources, dest, forceful)
}

// topology is the effective run configuration after merging flags and preset
type topology struct {
	capacity      int
	producers     int
	consumers     int
	items         int
	produceDelay  time.Duration
	consumeDelay  time.Duration
	forcefulAfter time.Duration
}

// resolveTopology merges explicit flags over the resolved preset
// A changed flag always wins; otherwise a non-zero preset value applies,
// and the flag default covers the rest
func resolveTopology(cmd *cobra.Command, opts runOptions, preset config.PresetConfig) topology {
	topo := topology{
		capacity:      preset.Capacity,
		producers:     preset.Producers,
		consumers:     preset.Consumers,
		items:         opts.items,
		produceDelay:  opts.produceDelay,
		consumeDelay:  opts.consumeDelay,
		forcefulAfter: opts.forcefulAfter,
	}

	if cmd.Flags().Changed("capacity") {
		topo.capacity = opts.capacity
	}
	if cmd.Flags().Changed("producers") {
		topo.producers = opts.producers
	}
	if cmd.Flags().Changed("consumers") {
		topo.consumers = opts.consumers
	}
	if !cmd.Flags().Changed("items") && preset.Items > 0 {
		topo.items = preset.Items
	}
	if !cmd.Flags().Changed("produce-delay") && preset.ProduceDelay > 0 {
		topo.produceDelay = preset.ProduceDelay
	}
	if !cmd.Flags().Changed("consume-delay") && preset.ConsumeDelay > 0 {
		topo.consumeDelay = preset.ConsumeDelay
	}

	return topo
}

func validateTopology(topo topology) error {
	if topo.capacity < 1 {
		return util.NewValidationError("capacity", topo.capacity, "must be at least 1")
	}
	if topo.producers < 1 {
		return util.NewValidationError("producers", topo.producers, "must be at least 1")
	}
	if topo.consumers < 1 {
		return util.NewValidationError("consumers", topo.consumers, "must be at least 1")
	}
	if topo.items < 0 {
		return util.NewValidationError("items", topo.items, "must not be negative")
	}
	if topo.produceDelay < 0 {
		return util.NewValidationError("produce-delay", topo.produceDelay, "must not be negative")
	}
	if topo.consumeDelay < 0 {
		return util.NewValidationError("consume-delay", topo.consumeDelay, "must not be negative")
	}
	return nil
}

// awaitShutdown drives the pipeline to a stop. The happy path is a graceful
// shutdown; context cancellation or the forceful-after deadline switches to a
// forceful one. Returns whether the shutdown was forceful.
func awaitShutdown(ctx context.Context, p *pipeline.Pipeline[int], forcefulAfter time.Duration, logger *slog.Logger) (bool, error) {
	done := make(chan error, 1)
	go func() {
		done <- p.ShutdownGracefully()
	}()

	var forceCh <-chan time.Time
	if forcefulAfter > 0 {
		timer := time.NewTimer(forcefulAfter)
		defer timer.Stop()
		forceCh = timer.C
	}

	select {
	case err := <-done:
		return false, err
	case <-ctx.Done():
		logger.Warn("run cancelled, shutting down forcefully")
	case <-forceCh:
		logger.Warn("forceful-after deadline reached, shutting down forcefully")
	}

	if err := p.ShutdownForcefully(); err != nil {
		if errors.Is(err, pipeline.ErrNotRunning) {
			// The graceful shutdown won the race
			return false, <-done
		}
		return true, err
	}

	return true, nil
}

// renderStats writes the stats snapshot in the configured output format
func renderStats(stats pipeline.Stats) error {
	outputFormat := viper.GetString("output")
	noColor := viper.GetBool("no-color")

	var format output.Format
	switch outputFormat {
	case "json":
		format = output.FormatJSON
	case "yaml":
		format = output.FormatYAML
	default:
		format = output.FormatTable
	}

	formatter := output.NewFormatter(format, output.WithNoColor(noColor))
	return formatter.FormatStats(os.Stdout, stats)
}

// reportDelivery checks the destination against the sources after a graceful
// run, or reports how many items were lost after a forceful one
func reportDelivery(stats pipeline.Stats, sources [][]int, dest []int, forceful bool) error {
	colors := output.NewColorScheme(os.Stdout, viper.GetBool("no-color"))

	if forceful {
		lost := stats.TotalProduced - stats.TotalConsumed
		if lost > 0 {
			fmt.Fprintf(os.Stdout, "%s\n", colors.Warning("✗ forceful shutdown lost %d in-flight item(s)", lost))
		} else {
			fmt.Fprintf(os.Stdout, "%s\n", colors.Success("✓ forceful shutdown lost no items"))
		}
		return nil
	}

	if err := verifyDelivery(sources, dest); err != nil {
		fmt.Fprintf(os.Stdout, "%s\n", colors.Error("✗ delivery verification failed"))
		return err
	}

	fmt.Fprintf(os.Stdout, "%s\n", colors.Success("✓ verified: destination matches sources (%d items)", len(dest)))
	return nil
}

// verifyDelivery confirms the destination holds exactly the union of the
// sources, in any order
func verifyDelivery(sources [][]int, dest []int) error {
	var want []int
	for _, source := range sources {
		want = append(want, source...)
	}

	if len(dest) != len(want) {
		return fmt.Errorf("destination has %d items, want %d", len(dest), len(want))
	}

	got := make([]int, len(dest))
	copy(got, dest)
	sort.Ints(got)
	sort.Ints(want)

	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("destination mismatch at index %d: got %d, want %d", i, got[i], want[i])
		}
	}

	return nil
}

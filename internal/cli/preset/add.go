package preset

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aryankumar/conveyor/internal/config"
	"github.com/aryankumar/conveyor/internal/util"
)

// newAddCmd creates the preset add command
func newAddCmd() *cobra.Command {
	var (
		description  string
		capacity     int
		producers    int
		consumers    int
		items        int
		produceDelay time.Duration
		consumeDelay time.Duration
		labels       map[string]string
	)

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a pipeline preset to the config file",
		Long: `Add a named pipeline topology preset to the conveyor config file.

Topology fields left at zero inherit the configured defaults when the
preset is resolved. Adding a preset with an existing name fails; remove
the old one first.`,
		Example: `  # Add a preset with an explicit topology
  conveyor preset add burst -c 50 -p 8 --consumers 2 -n 200

  # Add a preset with labels and a description
  conveyor preset add soak --description "long slow run" \
    --consume-delay 250ms --labels env=test,mode=slow`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			preset := config.PresetConfig{
				Description:  description,
				Capacity:     capacity,
				Producers:    producers,
				Consumers:    consumers,
				Items:        items,
				ProduceDelay: produceDelay,
				ConsumeDelay: consumeDelay,
				Labels:       labels,
			}
			return runAdd(args[0], preset)
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "human-readable preset description")
	cmd.Flags().IntVarP(&capacity, "capacity", "c", 0, "queue capacity (0 inherits the default)")
	cmd.Flags().IntVarP(&producers, "producers", "p", 0, "number of producers (0 inherits the default)")
	cmd.Flags().IntVar(&consumers, "consumers", 0, "number of consumers (0 inherits the default)")
	cmd.Flags().IntVarP(&items, "items", "n", 0, "items per producer (0 inherits the run flag default)")
	cmd.Flags().DurationVar(&produceDelay, "produce-delay", 0, "pause before each produced item")
	cmd.Flags().DurationVar(&consumeDelay, "consume-delay", 0, "pause before each consumed item")
	cmd.Flags().StringToStringVar(&labels, "labels", nil, "preset labels (key=value,...)")

	return cmd
}

func runAdd(name string, preset config.PresetConfig) error {
	logger := slog.Default()

	manager := config.NewManager(viper.GetString("config"))
	if _, err := manager.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if _, ok := manager.GetPreset(name); ok {
		return util.WrapErrorf(util.ErrAlreadyExists, "preset %q", name)
	}

	manager.SetPreset(name, preset)

	if err := manager.Validate(); err != nil {
		return err
	}

	if err := manager.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	logger.Debug("preset added", "name", name)
	fmt.Printf("Added preset %q\n", name)

	return nil
}

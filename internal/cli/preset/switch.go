package preset

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aryankumar/conveyor/internal/config"
)

// newSwitchCmd creates the preset switch command
func newSwitchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "switch NAME",
		Short: "Set the default pipeline preset",
		Long: `Set the default pipeline topology preset.

The default preset is used by run and analyze when no --preset flag is
given. The preset must already exist in the config file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSwitch(args[0])
		},
	}

	return cmd
}

func runSwitch(name string) error {
	logger := slog.Default()

	manager := config.NewManager(viper.GetString("config"))
	if _, err := manager.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := manager.SetDefaultPreset(name); err != nil {
		return err
	}

	if err := manager.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	logger.Debug("default preset switched", "name", name)
	fmt.Printf("Switched default preset to %q\n", name)

	return nil
}

package preset

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aryankumar/conveyor/internal/config"
	"github.com/aryankumar/conveyor/internal/util"
)

// newRemoveCmd creates the preset remove command
func newRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove NAME",
		Short: "Remove a pipeline preset from the config file",
		Long: `Remove a named pipeline topology preset from the conveyor config file.

Removing the default preset also clears the default, so run and analyze
fall back to the configured defaults.`,
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(args[0])
		},
	}

	return cmd
}

func runRemove(name string) error {
	logger := slog.Default()

	manager := config.NewManager(viper.GetString("config"))
	cfg, err := manager.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if _, ok := manager.GetPreset(name); !ok {
		return util.WrapErrorf(util.ErrPresetNotFound, "preset %q", name)
	}

	wasDefault := cfg.DefaultPreset == name

	manager.RemovePreset(name)

	if err := manager.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	logger.Debug("preset removed", "name", name, "was_default", wasDefault)

	fmt.Printf("Removed preset %q\n", name)
	if wasDefault {
		fmt.Println("Default preset cleared")
	}

	return nil
}

package preset

import (
	"github.com/spf13/cobra"
)

// NewPresetCmd creates the preset management command
func NewPresetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage pipeline topology presets",
		Long: `Manage named pipeline topology presets in the conveyor config file.

This command provides subcommands for listing, adding, removing,
and switching between presets. The default preset is used by run and
analyze when no explicit topology is given.`,
	}

	// Add subcommands
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newSwitchCmd())

	return cmd
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	robloxbridge "github.com/opengovern/roblox-bridge"
)

var (
	universeID   int64
	placeID      int64
	instanceID   string
	scriptFile   string
	instanceType string
)

var updateCmd = &cobra.Command{
	Use:   "update-script",
	Short: "Update a script instance and wait for the operation",
	Long: `Write a Lua file into a script instance of a place and poll the resulting
Open Cloud operation until it completes.

Example:
  roblox-bridge update-script --universe 123 --place 456 --instance abc --file main.lua`,
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().Int64Var(&universeID, "universe", 0, "Universe ID")
	updateCmd.Flags().Int64Var(&placeID, "place", 0, "Place ID within the universe")
	updateCmd.Flags().StringVar(&instanceID, "instance", "", "Script instance ID")
	updateCmd.Flags().StringVarP(&scriptFile, "file", "f", "", "Path to the Lua source to upload")
	updateCmd.Flags().StringVar(&instanceType, "type", string(robloxbridge.InstanceTypeScript), "Instance type")
	for _, name := range []string{"universe", "place", "instance", "file"} {
		_ = updateCmd.MarkFlagRequired(name)
	}
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	source, err := os.ReadFile(scriptFile)
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	_, _, bridge, err := setup()
	if err != nil {
		return err
	}

	outcome := bridge.UpdateScriptOutcome(cmd.Context(), robloxbridge.ScriptUpdate{
		UniverseID:   universeID,
		PlaceID:      placeID,
		InstanceID:   instanceID,
		Source:       string(source),
		InstanceType: robloxbridge.InstanceType(instanceType),
	})
	fmt.Fprintln(cmd.OutOrStdout(), outcome.Message)
	if outcome.Kind != robloxbridge.OutcomeSucceeded {
		return fmt.Errorf("update %s", outcome.Kind)
	}
	return nil
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vendlabs/vmhistory/cli/pkg/output"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the machine history",
	Long:  "Reset both the history document and the text transcript. This cannot be undone.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("refusing to clear history of %s without --yes", serverURL(cmd))
		}

		resp, err := newClient(cmd).Clear(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}

		output.Success("%s", resp.Message)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
	clearCmd.Flags().BoolP("yes", "y", false, "confirm clearing the history")
}

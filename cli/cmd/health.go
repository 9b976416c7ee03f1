package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vendlabs/vmhistory/cli/pkg/output"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the history service",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}

		resp, err := newClient(cmd).Health(cmd.Context())
		if err != nil {
			return fmt.Errorf("history service at %s is unreachable: %w", serverURL(cmd), err)
		}

		switch format {
		case "json":
			return output.JSON(resp)
		case "yaml":
			return output.YAML(resp)
		}
		output.Success("%s is %s (%s)", serverURL(cmd), resp.Status, resp.Timestamp)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vendlabs/vmhistory/cli/internal/client"
	"github.com/vendlabs/vmhistory/cli/internal/seeder"
	"github.com/vendlabs/vmhistory/cli/pkg/output"
)

var (
	seederCfgFile  string
	seederSessions int
	seederSeed     int64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Demo data commands",
	Long:  "Generate and send plausible vending sessions for testing and demos",
}

var seedRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the seeder",
	Long: `Generate vending sessions and send them to the history service.

Configuration cascade (priority order):
  1. Command-line flags
  2. ./seeder.yaml (project directory)
  3. ~/.vmhist/seeder.yaml (user directory)
  4. Built-in defaults`,
	Example: `  vmhist seed run
  vmhist seed run --sessions 50 --seed 42
  vmhist seed run --seeder-config ./demo-seeder.yaml`,
	RunE: runSeed,
}

var seedValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate seeder configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := seeder.LoadConfig(seederCfgFile)
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		output.Success("Configuration is valid")
		output.Info("  Server URL: %s", config.Defaults.ServerURL)
		output.Info("  Sessions: %d", config.Defaults.Sessions)
		output.Info("  Interval: %v", config.Defaults.Interval)
		output.Info("  Error rate: %.2f", config.Defaults.ErrorRate)

		table := output.NewTable([]string{"SLOT", "PRODUCT", "PRICE"})
		for _, p := range config.Products {
			table.AddRow([]string{p.Slot, p.Name, fmt.Sprintf("%.2f", p.Price)})
		}
		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.AddCommand(seedRunCmd)
	seedCmd.AddCommand(seedValidateCmd)

	seedCmd.PersistentFlags().StringVar(&seederCfgFile, "seeder-config", "", "seeder config file (default: ./seeder.yaml or ~/.vmhist/seeder.yaml)")

	seedRunCmd.Flags().IntVarP(&seederSessions, "sessions", "s", 0, "number of customer sessions to generate")
	seedRunCmd.Flags().Int64Var(&seederSeed, "seed", 0, "random seed for reproducible data (0 = random)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	config, err := seeder.LoadConfig(seederCfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("sessions") {
		config.Defaults.Sessions = seederSessions
	}
	if cmd.Flags().Changed("seed") {
		config.Defaults.Seed = seederSeed
	}
	// An explicit --server or profile wins over the seeder file.
	if cmd.Flags().Changed("server") || cmd.Flags().Changed("profile") {
		config.Defaults.ServerURL = serverURL(cmd)
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	runner := seeder.NewRunner(config, client.New(config.Defaults.ServerURL, timeout))

	result, err := runner.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("seeder failed: %w", err)
	}

	if result.Failed > 0 {
		output.Warn("%d of %d events failed", result.Failed, result.Failed+result.Sent)
	}
	output.Success("Seeded %d sessions (%d events)", result.Sessions, result.Sent)
	return nil
}

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vendlabs/vmhistory/cli/internal/client"
	"github.com/vendlabs/vmhistory/cli/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "vmhist",
	Short: "Vending machine history CLI",
	Long: `vmhist is the command-line interface for the vending machine history service.

Send transactions, state transitions and log events, read back the
history document or its text transcript, clear it, and seed demo data.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.vmhist/config.yaml)")
	rootCmd.PersistentFlags().String("profile", "", "profile to use (default: current profile)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "output format: table, json, yaml")
	rootCmd.PersistentFlags().String("server", "", "history service URL (overrides profile)")
	rootCmd.PersistentFlags().Duration("timeout", 10*time.Second, "request timeout")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.Default()
	}

	if noColor, _ := rootCmd.PersistentFlags().GetBool("no-color"); noColor {
		color.NoColor = true
	}
}

// serverURL resolves --server, then the profile, then config defaults.
func serverURL(cmd *cobra.Command) string {
	if server, _ := cmd.Flags().GetString("server"); server != "" {
		return server
	}
	profile, _ := cmd.Flags().GetString("profile")
	return cfg.ServerURL(profile)
}

func newClient(cmd *cobra.Command) *client.Client {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return client.New(serverURL(cmd), timeout)
}

func outputFormat(cmd *cobra.Command) (string, error) {
	format, _ := cmd.Flags().GetString("output")
	switch format {
	case "table", "json", "yaml":
		return format, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use table, json or yaml)", format)
	}
}

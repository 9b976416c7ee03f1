package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/vendlabs/vmhistory/cli/pkg/output"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage server profiles",
	Long:  "Save the history service URL of each machine under a profile name",
}

var profileSetCmd = &cobra.Command{
	Use:     "set <name>",
	Short:   "Create or update a profile and make it current",
	Example: `  vmhist profile set lobby --url http://vm-lobby.local:3000 --machine "Lobby snacks"`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		machine, _ := cmd.Flags().GetString("machine")

		if err := cfg.SaveProfile(args[0], url, machine); err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}

		output.Success("Profile '%s' now points at %s", args[0], url)
		output.Info("Saved to %s", cfg.Path())
		return nil
	},
}

var profileUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Switch the current profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := cfg.GetProfile(args[0]); err != nil {
			return err
		}
		cfg.CurrentProfile = args[0]
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		output.Success("Using profile '%s'", args[0])
		return nil
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		switch format {
		case "json":
			return output.JSON(cfg.Profiles)
		case "yaml":
			return output.YAML(cfg.Profiles)
		}

		if len(cfg.Profiles) == 0 {
			output.Info("No profiles; using %s", cfg.Defaults.ServerURL)
			return nil
		}

		names := make([]string, 0, len(cfg.Profiles))
		for name := range cfg.Profiles {
			names = append(names, name)
		}
		sort.Strings(names)

		table := output.NewTable([]string{"", "NAME", "SERVER", "MACHINE"})
		for _, name := range names {
			marker := ""
			if name == cfg.CurrentProfile {
				marker = "*"
			}
			p := cfg.Profiles[name]
			table.AddRow([]string{marker, name, p.ServerURL, p.Machine})
		}
		table.Render()
		return nil
	},
}

var profileRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RemoveProfile(args[0]); err != nil {
			return err
		}
		output.Success("Removed profile '%s'", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileUseCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileRemoveCmd)

	profileSetCmd.Flags().String("url", "", "history service URL")
	profileSetCmd.Flags().String("machine", "", "label for the machine")
	_ = profileSetCmd.MarkFlagRequired("url")
}

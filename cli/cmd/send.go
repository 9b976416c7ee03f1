package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vendlabs/vmhistory/cli/pkg/output"
	"github.com/vendlabs/vmhistory/internal/models"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send events",
	Long:  "Send transactions, state transitions and log events to the history service",
}

var sendTransactionCmd = &cobra.Command{
	Use:   "transaction",
	Short: "Record a transaction",
	Long:  "Send an arbitrary JSON object as a transaction. The object is stored as-is plus a server timestamp.",
	Example: `  vmhist send transaction --json '{"item":"Cola","slot":"A1","price":25,"paid":30,"change":5}'
  vmhist send transaction --file purchase.json
  cat purchase.json | vmhist send transaction --file -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := jsonInput(cmd)
		if err != nil {
			return err
		}
		if body == nil {
			return fmt.Errorf("either --json or --file is required")
		}

		resp, err := newClient(cmd).SendRaw(cmd.Context(), "/api/transaction", body)
		if err != nil {
			return fmt.Errorf("failed to send transaction: %w", err)
		}
		return printIngest(cmd, resp)
	},
}

var sendStateCmd = &cobra.Command{
	Use:   "state",
	Short: "Record a state transition",
	Example: `  vmhist send state --from IDLE --to VENDING --balance 12.5
  vmhist send state --json '{"previousState":"IDLE","currentState":"VENDING","balance":12.5,"door":"closed"}'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := jsonInput(cmd)
		if err != nil {
			return err
		}

		c := newClient(cmd)
		var resp *models.IngestResponse
		if body != nil {
			resp, err = c.SendRaw(cmd.Context(), "/api/state", body)
		} else {
			if !cmd.Flags().Changed("balance") {
				return fmt.Errorf("--balance is required (or use --json)")
			}
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			balance, _ := cmd.Flags().GetFloat64("balance")
			resp, err = c.SendState(cmd.Context(), models.StateTransition{
				PreviousState: from,
				CurrentState:  to,
				Balance:       balance,
			})
		}
		if err != nil {
			return fmt.Errorf("failed to send state: %w", err)
		}
		return printIngest(cmd, resp)
	},
}

var sendLogCmd = &cobra.Command{
	Use:   "log [message]",
	Short: "Record a log event",
	Example: `  vmhist send log "door opened"
  vmhist send log --json '{"message":"coin rejected","level":"warn"}'`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := jsonInput(cmd)
		if err != nil {
			return err
		}

		c := newClient(cmd)
		var resp *models.IngestResponse
		switch {
		case body != nil:
			resp, err = c.SendRaw(cmd.Context(), "/api/log", body)
		case len(args) == 1:
			resp, err = c.SendLog(cmd.Context(), args[0])
		default:
			return fmt.Errorf("a message argument or --json is required")
		}
		if err != nil {
			return fmt.Errorf("failed to send log: %w", err)
		}
		return printIngest(cmd, resp)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.AddCommand(sendTransactionCmd)
	sendCmd.AddCommand(sendStateCmd)
	sendCmd.AddCommand(sendLogCmd)

	for _, c := range []*cobra.Command{sendTransactionCmd, sendStateCmd, sendLogCmd} {
		c.Flags().String("json", "", "JSON object to send")
		c.Flags().StringP("file", "f", "", "read the JSON object from a file (- for stdin)")
	}

	sendStateCmd.Flags().String("from", "", "previous state")
	sendStateCmd.Flags().String("to", "", "current state")
	sendStateCmd.Flags().Float64("balance", 0, "balance after the transition")
}

// jsonInput returns the --json or --file body, or nil when neither is set.
// The body must be a JSON object.
func jsonInput(cmd *cobra.Command) ([]byte, error) {
	raw, _ := cmd.Flags().GetString("json")
	file, _ := cmd.Flags().GetString("file")

	var body []byte
	switch {
	case raw != "" && file != "":
		return nil, fmt.Errorf("--json and --file are mutually exclusive")
	case raw != "":
		body = []byte(raw)
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		body = data
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		body = data
	default:
		return nil, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
		return nil, fmt.Errorf("input must be a JSON object")
	}
	return []byte(strings.TrimSpace(string(body))), nil
}

func printIngest(cmd *cobra.Command, resp *models.IngestResponse) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	switch format {
	case "json":
		return output.JSON(resp)
	case "yaml":
		return output.YAML(resp)
	}
	output.Success("%s at %s", resp.Message, resp.Timestamp)
	return nil
}

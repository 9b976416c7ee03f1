package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vendlabs/vmhistory/cli/pkg/output"
	"github.com/vendlabs/vmhistory/internal/models"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the machine history",
	Long: `Fetch the history document and print it as a table, JSON or YAML.
With --text the plain-text transcript is printed verbatim instead.`,
	Example: `  vmhist history
  vmhist history --last 20
  vmhist history -o json
  vmhist history --text`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient(cmd)

		if text, _ := cmd.Flags().GetBool("text"); text {
			transcript, err := c.HistoryText(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch text history: %w", err)
			}
			output.Text(transcript)
			return nil
		}

		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}

		doc, err := c.History(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to fetch history: %w", err)
		}

		if last, _ := cmd.Flags().GetInt("last"); last > 0 && last < len(doc.Transactions) {
			doc.Transactions = doc.Transactions[len(doc.Transactions)-last:]
		}

		switch format {
		case "json":
			return output.JSON(doc)
		case "yaml":
			return output.YAML(doc)
		}

		output.Info("History started %s (%d events)", doc.StartTime, len(doc.Transactions))
		if len(doc.Transactions) == 0 {
			return nil
		}

		table := output.NewTable([]string{"TIMESTAMP", "TYPE", "DETAILS"})
		for _, rec := range doc.Transactions {
			table.AddRow(describeRecord(rec))
		}
		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().Bool("text", false, "print the plain-text transcript")
	historyCmd.Flags().IntP("last", "n", 0, "only show the last N events")
}

// describeRecord renders one history entry as a table row.
func describeRecord(rec models.Record) []string {
	ts, _ := rec.String(models.FieldTimestamp)
	kind, _ := rec.String(models.FieldType)

	switch models.EventKind(kind) {
	case models.KindStateTransition:
		prev, _ := rec.String("previousState")
		cur, _ := rec.String("currentState")
		var balance float64
		_, _ = rec.Get("balance", &balance)
		return []string{ts, "STATE", prev + " → " + cur + " | " + strconv.FormatFloat(balance, 'f', 2, 64)}
	case models.KindLog:
		msg, _ := rec.String("message")
		return []string{ts, "LOG", msg}
	}

	// Transactions carry no type; show everything but the timestamp.
	details := rec.Clone()
	details.Delete(models.FieldTimestamp)
	data, err := json.Marshal(details)
	if err != nil {
		return []string{ts, "TRANSACTION", ""}
	}
	return []string{ts, "TRANSACTION", string(data)}
}

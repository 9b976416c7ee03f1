package mirror

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/vendlabs/vmhistory/internal/models"
)

// DefaultCurrencySymbol prefixes balances in state lines.
const DefaultCurrencySymbol = "₱"

// Formatter derives transcript lines from stamped events.
type Formatter struct {
	CurrencySymbol string
}

// Line renders ev as a single transcript line.
func (f Formatter) Line(ev models.Event) (string, error) {
	switch ev.Kind {
	case models.KindTransaction:
		return TransactionLine(ev.Timestamp, ev.Record)
	case models.KindStateTransition:
		if ev.State == nil {
			return "", fmt.Errorf("state event without state payload")
		}
		return StateLine(ev.Timestamp, *ev.State, f.symbol()), nil
	case models.KindLog:
		if ev.Log == nil {
			return "", fmt.Errorf("log event without log payload")
		}
		return LogLine(ev.Timestamp, ev.Log.Message), nil
	default:
		return "", fmt.Errorf("unknown event kind %q", ev.Kind)
	}
}

func (f Formatter) symbol() string {
	if f.CurrencySymbol == "" {
		return DefaultCurrencySymbol
	}
	return f.CurrencySymbol
}

// TransactionLine is "[ts] <compact JSON of the full record>". Characters
// such as < > & are written literally.
func TransactionLine(ts string, rec models.Record) (string, error) {
	raw, err := rec.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("encode transaction: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", fmt.Errorf("encode transaction: %w", err)
	}
	return "[" + ts + "] " + buf.String(), nil
}

// StateLine is "[ts] [STATE] prev → cur | Balance: <symbol><balance>".
func StateLine(ts string, st models.StateTransition, symbol string) string {
	return "[" + ts + "] [STATE] " + st.PreviousState + " → " + st.CurrentState +
		" | Balance: " + symbol + strconv.FormatFloat(st.Balance, 'f', 2, 64)
}

// LogLine is "[ts] [LOG] message".
func LogLine(ts, message string) string {
	return "[" + ts + "] [LOG] " + message
}

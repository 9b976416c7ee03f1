package mirror

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendlabs/vmhistory/internal/models"
)

const ts = "2025-05-10T09:15:30.250Z"

func TestStateLine(t *testing.T) {
	st := models.StateTransition{PreviousState: "IDLE", CurrentState: "VENDING", Balance: 12.5}

	assert.Equal(t, "[2025-05-10T09:15:30.250Z] [STATE] IDLE → VENDING | Balance: ₱12.50",
		StateLine(ts, st, DefaultCurrencySymbol))
}

func TestStateLine_Rounding(t *testing.T) {
	tests := []struct {
		balance float64
		want    string
	}{
		{balance: 0, want: "0.00"},
		{balance: 5, want: "5.00"},
		{balance: 1.005, want: "1.00"},
		{balance: 99.999, want: "100.00"},
		{balance: -3.5, want: "-3.50"},
	}
	for _, tt := range tests {
		line := StateLine(ts, models.StateTransition{PreviousState: "A", CurrentState: "B", Balance: tt.balance}, "$")
		assert.Contains(t, line, "| Balance: $"+tt.want)
	}
}

func TestLogLine(t *testing.T) {
	assert.Equal(t, "[2025-05-10T09:15:30.250Z] [LOG] door opened", LogLine(ts, "door opened"))
}

func TestTransactionLine(t *testing.T) {
	rec, err := models.ParseRecord([]byte(`{"item": "cola", "price": 25, "timestamp": "` + ts + `"}`))
	require.NoError(t, err)

	line, err := TransactionLine(ts, rec)
	require.NoError(t, err)
	assert.Equal(t, `[2025-05-10T09:15:30.250Z] {"item":"cola","price":25,"timestamp":"2025-05-10T09:15:30.250Z"}`, line)
}

func TestTransactionLine_HTMLCharacters(t *testing.T) {
	rec, err := models.ParseRecord([]byte(`{"item":"M&M <Large>", "price": 1.50, "a<b": {"x": [1, 2]}}`))
	require.NoError(t, err)

	line, err := TransactionLine(ts, rec)
	require.NoError(t, err)
	assert.Equal(t, `[2025-05-10T09:15:30.250Z] {"item":"M&M <Large>","price":1.50,"a<b":{"x":[1,2]}}`, line)
}

func TestFormatter_Line(t *testing.T) {
	rec, err := models.ParseRecord([]byte(`{"a":1}`))
	require.NoError(t, err)

	tests := []struct {
		name    string
		ev      models.Event
		want    string
		wantErr bool
	}{
		{
			name: "transaction",
			ev:   models.Event{Kind: models.KindTransaction, Timestamp: ts, Record: rec},
			want: `[` + ts + `] {"a":1}`,
		},
		{
			name: "state",
			ev: models.Event{
				Kind:      models.KindStateTransition,
				Timestamp: ts,
				State:     &models.StateTransition{PreviousState: "VENDING", CurrentState: "IDLE", Balance: 0},
			},
			want: `[` + ts + `] [STATE] VENDING → IDLE | Balance: ₱0.00`,
		},
		{
			name: "log",
			ev:   models.Event{Kind: models.KindLog, Timestamp: ts, Log: &models.LogEvent{Message: "coin jam"}},
			want: `[` + ts + `] [LOG] coin jam`,
		},
		{
			name:    "state without payload",
			ev:      models.Event{Kind: models.KindStateTransition, Timestamp: ts},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			ev:      models.Event{Kind: "BOGUS", Timestamp: ts},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, err := Formatter{}.Line(tt.ev)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, line)
		})
	}
}

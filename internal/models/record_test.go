package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecord_PreservesKeyOrder(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"zeta":1,"alpha":"a","mid":{"b":2,"a":1}}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, rec.Keys())

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":"a","mid":{"b":2,"a":1}}`, string(out))
}

func TestParseRecord_DuplicateKeyKeepsFirstPosition(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"a":1,"b":2,"a":3}`))
	require.NoError(t, err)

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"a":3,"b":2}`, string(out))
}

func TestParseRecord_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "array", input: `[1,2]`},
		{name: "string", input: `"hello"`},
		{name: "null", input: `null`},
		{name: "number", input: `42`},
		{name: "truncated", input: `{"a":`},
		{name: "trailing data", input: `{"a":1} {"b":2}`},
		{name: "empty", input: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecord([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestRecord_SetOverwritesInPlace(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"timestamp":"client","item":"cola"}`))
	require.NoError(t, err)

	require.NoError(t, rec.Set(FieldTimestamp, "2025-01-02T03:04:05.000Z"))
	require.NoError(t, rec.Set(FieldType, string(KindLog)))

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"timestamp":"2025-01-02T03:04:05.000Z","item":"cola","type":"LOG_EVENT"}`, string(out))
}

func TestRecord_Accessors(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"message":"door opened","count":3}`))
	require.NoError(t, err)

	msg, ok := rec.String("message")
	assert.True(t, ok)
	assert.Equal(t, "door opened", msg)

	_, ok = rec.String("count")
	assert.False(t, ok, "non-string value is not a string")

	_, ok = rec.String("missing")
	assert.False(t, ok)

	var count int
	found, err := rec.Get("count", &count)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3, count)

	found, err = rec.Get("missing", &count)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRecord_CloneIsIndependent(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"a":1}`))
	require.NoError(t, err)

	clone := rec.Clone()
	require.NoError(t, clone.Set("a", 2))
	require.NoError(t, clone.Set("b", true))

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(out))
	assert.Equal(t, 2, clone.Len())
}

func TestDocument_RoundTripKeepsOrder(t *testing.T) {
	doc := NewDocument(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC))
	rec, err := ParseRecord([]byte(`{"item":"chips","price":15}`))
	require.NoError(t, err)
	doc.Transactions = append(doc.Transactions, rec)

	data, err := json.MarshalIndent(doc, "", "  ")
	require.NoError(t, err)

	var decoded Document
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "2025-03-01T08:00:00.000Z", decoded.StartTime)
	require.Len(t, decoded.Transactions, 1)
	assert.Equal(t, []string{"item", "price"}, decoded.Transactions[0].Keys())
}

func TestDocument_EmptySerializesAsArray(t *testing.T) {
	var doc Document
	doc.Normalize()

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"transactions":[],"startTime":""}`, string(data))
}

func TestFormatTimestamp(t *testing.T) {
	loc := time.FixedZone("PHT", 8*60*60)
	ts := time.Date(2025, 6, 1, 8, 30, 15, 123456789, loc)

	assert.Equal(t, "2025-06-01T00:30:15.123Z", FormatTimestamp(ts))

	parsed, err := ParseTimestamp("2025-06-01T00:30:15.123Z")
	require.NoError(t, err)
	assert.True(t, parsed.Equal(time.Date(2025, 6, 1, 0, 30, 15, 123000000, time.UTC)))
}

func TestRecord_NullValues(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"message":null,"balance": null ,"state":"IDLE"}`))
	require.NoError(t, err)

	_, ok := rec.String("message")
	assert.False(t, ok, "null is not a string")

	assert.True(t, rec.IsNull("balance"))
	assert.False(t, rec.IsNull("state"))
	assert.False(t, rec.IsNull("missing"))
}

func TestRecord_Delete(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"a":1,"timestamp":"x","b":2}`))
	require.NoError(t, err)

	clone := rec.Clone()
	assert.True(t, clone.Delete("timestamp"))
	assert.False(t, clone.Delete("timestamp"))
	assert.Equal(t, []string{"a", "b"}, clone.Keys())
	assert.Equal(t, []string{"a", "timestamp", "b"}, rec.Keys(), "clone is independent")
}

func TestDocument_NullEntrySurvivesRoundTrip(t *testing.T) {
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(`{"transactions":[{"a":1},null],"startTime":"2025-05-10T09:00:00.000Z"}`), &doc))
	require.Len(t, doc.Transactions, 2)
	assert.Equal(t, 0, doc.Transactions[1].Len())

	out, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"transactions":[{"a":1},null],"startTime":"2025-05-10T09:00:00.000Z"}`, string(out))
}

func TestRecord_MarshalKeepsHTMLCharacters(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"a<b&c":"x"}`))
	require.NoError(t, err)

	out, err := rec.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"a<b&c":"x"}`, string(out))
}

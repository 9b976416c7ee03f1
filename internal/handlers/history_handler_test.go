package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendlabs/vmhistory/internal/httputil"
	"github.com/vendlabs/vmhistory/internal/logging"
	"github.com/vendlabs/vmhistory/internal/mirror"
	"github.com/vendlabs/vmhistory/internal/models"
	"github.com/vendlabs/vmhistory/internal/service"
	"github.com/vendlabs/vmhistory/internal/store"
)

// Mock service for testing
type mockHistoryService struct {
	ingestTS  string
	ingestErr error
	lastBody  []byte
	doc       models.Document
	text      string
	textErr   error
	clearErr  error
	clears    int
}

func (m *mockHistoryService) IngestTransaction(ctx context.Context, body []byte) (string, error) {
	m.lastBody = body
	return m.ingestTS, m.ingestErr
}

func (m *mockHistoryService) IngestState(ctx context.Context, body []byte) (string, error) {
	m.lastBody = body
	return m.ingestTS, m.ingestErr
}

func (m *mockHistoryService) IngestLog(ctx context.Context, body []byte) (string, error) {
	m.lastBody = body
	return m.ingestTS, m.ingestErr
}

func (m *mockHistoryService) History(ctx context.Context) models.Document {
	return m.doc
}

func (m *mockHistoryService) HistoryText(ctx context.Context) (string, error) {
	return m.text, m.textErr
}

func (m *mockHistoryService) Clear(ctx context.Context) error {
	m.clears++
	return m.clearErr
}

func (m *mockHistoryService) Health() models.HealthResponse {
	return models.HealthResponse{Status: "ok", Timestamp: "2025-05-10T09:00:00.000Z"}
}

type stubLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (s *stubLimiter) Allow(ctx context.Context, key string) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.err
}

func (s *stubLimiter) Close() error { return nil }

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}

func TestIngestEndpoints_Success(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		handle  func(h *HistoryHandler) http.HandlerFunc
		message string
	}{
		{"transaction", "/api/transaction", func(h *HistoryHandler) http.HandlerFunc { return h.Transaction }, "Transaction saved"},
		{"state", "/api/state", func(h *HistoryHandler) http.HandlerFunc { return h.State }, "State saved"},
		{"log", "/api/log", func(h *HistoryHandler) http.HandlerFunc { return h.Log }, "Log saved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockHistoryService{ingestTS: "2025-05-10T09:00:00.123Z"}
			h := NewHistoryHandler(svc, WithHandlerLogger(logging.Discard()))

			body := `{"message":"door opened"}`
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(body))
			rr := httptest.NewRecorder()
			tt.handle(h)(rr, req)

			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			resp := decode[models.IngestResponse](t, rr)
			assert.True(t, resp.Success)
			assert.Equal(t, tt.message, resp.Message)
			assert.Equal(t, "2025-05-10T09:00:00.123Z", resp.Timestamp)
			assert.Equal(t, body, string(svc.lastBody))
		})
	}
}

func TestIngest_ErrorMapping(t *testing.T) {
	dir := t.TempDir()
	realSvc := service.NewHistoryService(
		store.New(filepath.Join(dir, "h.json"), store.WithLogger(logging.Discard())),
		mirror.New(filepath.Join(dir, "h.txt")),
		service.WithLogger(logging.Discard()),
	)
	require.NoError(t, realSvc.Initialize(context.Background()))
	h := NewHistoryHandler(realSvc, WithHandlerLogger(logging.Discard()))

	req := httptest.NewRequest(http.MethodPost, "/api/log", strings.NewReader(`{"message":""}`))
	rr := httptest.NewRecorder()
	h.Log(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	resp := decode[httputil.ErrorResponse](t, rr)
	assert.Equal(t, "No log message provided", resp.Error)
	assert.Empty(t, resp.Details)

	assert.Empty(t, realSvc.History(context.Background()).Transactions)
}

func TestIngest_InternalErrorCarriesDetails(t *testing.T) {
	svc := &mockHistoryService{ingestErr: &service.Error{
		Kind:    service.KindInternal,
		Message: "Failed to save transaction",
		Err:     errors.New("no space left on device"),
	}}
	h := NewHistoryHandler(svc, WithHandlerLogger(logging.Discard()))

	req := httptest.NewRequest(http.MethodPost, "/api/transaction", strings.NewReader(`{"item":"Cola"}`))
	rr := httptest.NewRecorder()
	h.Transaction(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	resp := decode[httputil.ErrorResponse](t, rr)
	assert.Equal(t, "Failed to save transaction", resp.Error)
	assert.Equal(t, "no space left on device", resp.Details)
}

func TestIngest_UnclassifiedErrorIsInternal(t *testing.T) {
	svc := &mockHistoryService{ingestErr: fmt.Errorf("boom")}
	h := NewHistoryHandler(svc, WithHandlerLogger(logging.Discard()))

	rr := httptest.NewRecorder()
	h.State(rr, httptest.NewRequest(http.MethodPost, "/api/state", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	resp := decode[httputil.ErrorResponse](t, rr)
	assert.Equal(t, "boom", resp.Details)
}

func TestIngest_BodyTooLarge(t *testing.T) {
	svc := &mockHistoryService{ingestTS: "ts"}
	h := NewHistoryHandler(svc, WithMaxBodySize(16), WithHandlerLogger(logging.Discard()))

	body := bytes.Repeat([]byte("x"), 64)
	rr := httptest.NewRecorder()
	h.Transaction(rr, httptest.NewRequest(http.MethodPost, "/api/transaction", bytes.NewReader(body)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Nil(t, svc.lastBody, "service never called")
}

func TestIngest_RateLimited(t *testing.T) {
	svc := &mockHistoryService{ingestTS: "ts"}
	limiter := &stubLimiter{allowed: false}
	h := NewHistoryHandler(svc, WithRateLimiter(limiter), WithHandlerLogger(logging.Discard()))

	req := httptest.NewRequest(http.MethodPost, "/api/log", strings.NewReader(`{"message":"x"}`))
	req.RemoteAddr = "10.0.0.7:51234"
	rr := httptest.NewRecorder()
	h.Log(rr, req)

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, []string{"10.0.0.7"}, limiter.keys)
	assert.Nil(t, svc.lastBody)
}

func TestIngest_RateLimiterErrorFailsOpen(t *testing.T) {
	svc := &mockHistoryService{ingestTS: "ts"}
	limiter := &stubLimiter{err: errors.New("redis: connection refused")}
	h := NewHistoryHandler(svc, WithRateLimiter(limiter), WithHandlerLogger(logging.Discard()))

	rr := httptest.NewRecorder()
	h.Log(rr, httptest.NewRequest(http.MethodPost, "/api/log", strings.NewReader(`{"message":"x"}`)))

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHistory(t *testing.T) {
	rec, err := models.ParseRecord([]byte(`{"item":"Cola","timestamp":"2025-05-10T09:00:00.000Z"}`))
	require.NoError(t, err)
	svc := &mockHistoryService{doc: models.Document{
		Transactions: []models.Record{rec},
		StartTime:    "2025-05-10T08:00:00.000Z",
	}}
	h := NewHistoryHandler(svc)

	rr := httptest.NewRecorder()
	h.History(rr, httptest.NewRequest(http.MethodGet, "/api/history", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t,
		`{"transactions":[{"item":"Cola","timestamp":"2025-05-10T09:00:00.000Z"}],"startTime":"2025-05-10T08:00:00.000Z"}`,
		rr.Body.String())
}

func TestHistoryText(t *testing.T) {
	svc := &mockHistoryService{text: mirror.Header(time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC))}
	h := NewHistoryHandler(svc)

	rr := httptest.NewRecorder()
	h.HistoryText(rr, httptest.NewRequest(http.MethodGet, "/api/history/text", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, svc.text, rr.Body.String())
}

func TestHistoryText_NotFound(t *testing.T) {
	svc := &mockHistoryService{textErr: &service.Error{
		Kind:    service.KindNotFound,
		Message: "Text history file not found",
		Err:     mirror.ErrNotFound,
	}}
	h := NewHistoryHandler(svc)

	rr := httptest.NewRecorder()
	h.HistoryText(rr, httptest.NewRequest(http.MethodGet, "/api/history/text", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	resp := decode[httputil.ErrorResponse](t, rr)
	assert.Equal(t, "Text history file not found", resp.Error)
}

func TestClear(t *testing.T) {
	svc := &mockHistoryService{}
	h := NewHistoryHandler(svc)

	rr := httptest.NewRecorder()
	h.Clear(rr, httptest.NewRequest(http.MethodPost, "/api/history/clear", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[models.ClearResponse](t, rr)
	assert.True(t, resp.Success)
	assert.Equal(t, "History cleared", resp.Message)
	assert.Equal(t, 1, svc.clears)
}

func TestClear_Failure(t *testing.T) {
	svc := &mockHistoryService{clearErr: &service.Error{
		Kind:    service.KindInternal,
		Message: "Failed to clear history",
		Err:     errors.New("read-only file system"),
	}}
	h := NewHistoryHandler(svc)

	rr := httptest.NewRecorder()
	h.Clear(rr, httptest.NewRequest(http.MethodPost, "/api/history/clear", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	resp := decode[httputil.ErrorResponse](t, rr)
	assert.Equal(t, "Failed to clear history", resp.Error)
	assert.Equal(t, "read-only file system", resp.Details)
}

func TestHealth(t *testing.T) {
	h := NewHistoryHandler(&mockHistoryService{})

	rr := httptest.NewRecorder()
	h.Health(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[models.HealthResponse](t, rr)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.Timestamp)
}

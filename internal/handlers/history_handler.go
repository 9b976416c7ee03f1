package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/vendlabs/vmhistory/internal/httputil"
	"github.com/vendlabs/vmhistory/internal/logging"
	"github.com/vendlabs/vmhistory/internal/models"
	"github.com/vendlabs/vmhistory/internal/ratelimit"
	"github.com/vendlabs/vmhistory/internal/service"
)

// DefaultMaxBodySize caps ingestion request bodies when no limit is configured.
const DefaultMaxBodySize int64 = 1 << 20

// HistoryService defines the interface for the history service operations.
type HistoryService interface {
	IngestTransaction(ctx context.Context, body []byte) (string, error)
	IngestState(ctx context.Context, body []byte) (string, error)
	IngestLog(ctx context.Context, body []byte) (string, error)
	History(ctx context.Context) models.Document
	HistoryText(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
	Health() models.HealthResponse
}

type HistoryHandler struct {
	service     HistoryService
	limiter     ratelimit.RateLimiter
	maxBodySize int64
	logger      *logging.Logger
}

// HandlerOption configures a HistoryHandler.
type HandlerOption func(*HistoryHandler)

// WithRateLimiter throttles the ingestion endpoints per client IP.
func WithRateLimiter(l ratelimit.RateLimiter) HandlerOption {
	return func(h *HistoryHandler) {
		if l != nil {
			h.limiter = l
		}
	}
}

// WithMaxBodySize rejects ingestion bodies larger than n bytes with 413.
func WithMaxBodySize(n int64) HandlerOption {
	return func(h *HistoryHandler) {
		if n > 0 {
			h.maxBodySize = n
		}
	}
}

func WithHandlerLogger(l *logging.Logger) HandlerOption {
	return func(h *HistoryHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewHistoryHandler(svc HistoryService, opts ...HandlerOption) *HistoryHandler {
	h := &HistoryHandler{
		service:     svc,
		limiter:     &ratelimit.NoOpRateLimiter{},
		maxBodySize: DefaultMaxBodySize,
		logger:      logging.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Transaction handles POST /api/transaction.
func (h *HistoryHandler) Transaction(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, h.service.IngestTransaction, "Transaction saved")
}

// State handles POST /api/state.
func (h *HistoryHandler) State(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, h.service.IngestState, "State saved")
}

// Log handles POST /api/log.
func (h *HistoryHandler) Log(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, h.service.IngestLog, "Log saved")
}

func (h *HistoryHandler) ingest(w http.ResponseWriter, r *http.Request, fn func(context.Context, []byte) (string, error), saved string) {
	ctx := r.Context()

	if !h.allow(ctx, httputil.GetClientIP(r)) {
		httputil.WriteError(w, http.StatusTooManyRequests, "Too many requests")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		httputil.WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	ts, err := fn(ctx, body)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.IngestResponse{
		Success:   true,
		Message:   saved,
		Timestamp: ts,
	})
}

// allow fails open: a limiter outage must not block ingestion.
func (h *HistoryHandler) allow(ctx context.Context, clientIP string) bool {
	ok, err := h.limiter.Allow(ctx, clientIP)
	if err != nil {
		h.logger.WarnContext(ctx, "rate limiter unavailable", logging.IP(clientIP), logging.Error(err))
		return true
	}
	return ok
}

// History handles GET /api/history.
func (h *HistoryHandler) History(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.service.History(r.Context()))
}

// HistoryText handles GET /api/history/text.
func (h *HistoryHandler) HistoryText(w http.ResponseWriter, r *http.Request) {
	text, err := h.service.HistoryText(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteText(w, http.StatusOK, text)
}

// Clear handles POST /api/history/clear.
func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context()); err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ClearResponse{
		Success: true,
		Message: "History cleared",
	})
}

// Health handles GET /api/health.
func (h *HistoryHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.service.Health())
}

func (h *HistoryHandler) writeServiceError(w http.ResponseWriter, err error) {
	msg := "Internal server error"
	details := err.Error()
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		msg = svcErr.Message
		details = svcErr.Details()
	}

	switch service.KindOf(err) {
	case service.KindValidation:
		httputil.WriteError(w, http.StatusBadRequest, msg)
	case service.KindNotFound:
		httputil.WriteError(w, http.StatusNotFound, msg)
	default:
		httputil.WriteErrorDetails(w, http.StatusInternalServerError, msg, details)
	}
}

package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vendlabs/vmhistory/internal/logging"
	"github.com/vendlabs/vmhistory/internal/metrics"
	"github.com/vendlabs/vmhistory/internal/mirror"
	"github.com/vendlabs/vmhistory/internal/models"
	"github.com/vendlabs/vmhistory/internal/notify"
)

// DocumentStore is the durable, fully rewritten history document.
type DocumentStore interface {
	Initialize(startTime time.Time) error
	Reset(startTime time.Time) error
	Load(ctx context.Context) models.Document
	Append(ctx context.Context, rec models.Record) (models.Document, error)
}

// Transcript is the append-only text mirror of the document.
type Transcript interface {
	Initialize(startTime time.Time) error
	Reset(startTime time.Time) error
	AppendLine(text string) error
	ReadAll() (string, error)
}

// HistoryService writes every event to the document and then the transcript.
// Ingestion and clear run one at a time, so timestamps, document order and
// transcript order always agree.
type HistoryService struct {
	store      DocumentStore
	transcript Transcript
	formatter  mirror.Formatter
	publisher  notify.Publisher
	logger     *logging.Logger
	now        func() time.Time

	mu   sync.Mutex
	last time.Time
}

// Option configures a HistoryService.
type Option func(*HistoryService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *HistoryService) {
		s.now = now
	}
}

// WithPublisher fans stored events out to a message bus.
func WithPublisher(p notify.Publisher) Option {
	return func(s *HistoryService) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *HistoryService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCurrencySymbol sets the symbol printed before balances in the transcript.
func WithCurrencySymbol(symbol string) Option {
	return func(s *HistoryService) {
		s.formatter.CurrencySymbol = symbol
	}
}

func NewHistoryService(store DocumentStore, transcript Transcript, opts ...Option) *HistoryService {
	s := &HistoryService{
		store:      store,
		transcript: transcript,
		formatter:  mirror.Formatter{CurrencySymbol: mirror.DefaultCurrencySymbol},
		publisher:  notify.NoOpPublisher{},
		logger:     logging.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize creates both stores if they are missing, with one shared start
// time. Existing history is kept.
func (s *HistoryService) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.stampLocked()
	if err := s.store.Initialize(start); err != nil {
		return internalError("Failed to initialize history document", err)
	}
	if err := s.transcript.Initialize(start); err != nil {
		return internalError("Failed to initialize text history", err)
	}
	s.logger.InfoContext(ctx, "history stores ready", logging.EventTimestamp(models.FormatTimestamp(start)))
	return nil
}

// IngestTransaction stores an arbitrary JSON object with a server timestamp.
func (s *HistoryService) IngestTransaction(ctx context.Context, body []byte) (string, error) {
	rec, err := parsePayload(body, "No transaction data provided", "Invalid transaction data")
	if err != nil {
		s.countInvalid(models.KindTransaction)
		return "", err
	}

	ev := models.Event{Kind: models.KindTransaction}
	return s.ingest(ctx, ev, rec, len(body), "Failed to save transaction")
}

// IngestState stores a state transition. balance must be a number;
// previousState and currentState, when present, must be strings.
func (s *HistoryService) IngestState(ctx context.Context, body []byte) (string, error) {
	rec, err := parsePayload(body, "No state data provided", "Invalid state data")
	if err != nil {
		s.countInvalid(models.KindStateTransition)
		return "", err
	}

	st, err := stateFromRecord(rec)
	if err != nil {
		s.countInvalid(models.KindStateTransition)
		return "", err
	}

	ev := models.Event{Kind: models.KindStateTransition, State: &st}
	return s.ingest(ctx, ev, rec, len(body), "Failed to save state")
}

// IngestLog stores a log event. message must be a non-empty string.
func (s *HistoryService) IngestLog(ctx context.Context, body []byte) (string, error) {
	rec, err := parsePayload(body, "No log message provided", "Invalid log data")
	if err != nil {
		s.countInvalid(models.KindLog)
		return "", err
	}

	msg, ok := rec.String("message")
	if !ok || msg == "" {
		s.countInvalid(models.KindLog)
		return "", validationError("No log message provided")
	}

	ev := models.Event{Kind: models.KindLog, Log: &models.LogEvent{Message: msg}}
	return s.ingest(ctx, ev, rec, len(body), "Failed to save log")
}

func (s *HistoryService) ingest(ctx context.Context, ev models.Event, rec models.Record, size int, failure string) (string, error) {
	metrics.EventBytesTotal.Add(float64(size))
	ctx = logging.WithEventKind(ctx, string(ev.Kind))

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := models.FormatTimestamp(s.stampLocked())
	if err := rec.Set(models.FieldTimestamp, ts); err != nil {
		return "", s.fail(ctx, ev.Kind, failure, err)
	}
	if ev.Kind != models.KindTransaction {
		if err := rec.Set(models.FieldType, string(ev.Kind)); err != nil {
			return "", s.fail(ctx, ev.Kind, failure, err)
		}
	}
	ev.Timestamp = ts
	ev.Record = rec

	line, err := s.formatter.Line(ev)
	if err != nil {
		return "", s.fail(ctx, ev.Kind, failure, err)
	}

	if _, err := s.store.Append(ctx, rec); err != nil {
		return "", s.fail(ctx, ev.Kind, failure, err)
	}

	// The document is already saved; a transcript failure is reported but
	// not rolled back.
	if err := s.transcript.AppendLine(line); err != nil {
		metrics.MirrorErrors.Inc()
		return "", s.fail(ctx, ev.Kind, failure, err)
	}

	metrics.EventsTotal.WithLabelValues(string(ev.Kind), "success").Inc()
	s.logger.DebugContext(ctx, "event stored", logging.EventTimestamp(ts))

	if err := s.publisher.PublishEvent(ctx, ev); err != nil {
		metrics.PublishErrors.WithLabelValues(notify.SubjectFor(ev.Kind)).Inc()
		s.logger.WarnContext(ctx, "failed to publish event", logging.Error(err))
	}

	return ts, nil
}

// History returns the full document. Unreadable storage yields an empty one.
func (s *HistoryService) History(ctx context.Context) models.Document {
	return s.store.Load(ctx)
}

// HistoryText returns the transcript verbatim.
func (s *HistoryService) HistoryText(ctx context.Context) (string, error) {
	text, err := s.transcript.ReadAll()
	if err != nil {
		if errors.Is(err, mirror.ErrNotFound) {
			return "", notFoundError("Text history file not found", err)
		}
		s.logger.ErrorContext(ctx, "failed to read text history", logging.Error(err))
		return "", internalError("Failed to retrieve text history", err)
	}
	return text, nil
}

// Clear discards all history and restarts both stores.
func (s *HistoryService) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.stampLocked()
	if err := s.store.Reset(start); err != nil {
		s.logger.ErrorContext(ctx, "failed to reset history document", logging.Error(err))
		return internalError("Failed to clear history", err)
	}
	if err := s.transcript.Reset(start); err != nil {
		metrics.MirrorErrors.Inc()
		s.logger.ErrorContext(ctx, "failed to reset text history", logging.Error(err))
		return internalError("Failed to clear history", err)
	}

	metrics.HistoryClears.Inc()
	s.logger.InfoContext(ctx, "history cleared", logging.EventTimestamp(models.FormatTimestamp(start)))

	if err := s.publisher.PublishCleared(ctx, start); err != nil {
		metrics.PublishErrors.WithLabelValues(notify.SubjectCleared).Inc()
		s.logger.WarnContext(ctx, "failed to publish history reset", logging.Error(err))
	}
	return nil
}

// Health reports liveness. It does not touch storage.
func (s *HistoryService) Health() models.HealthResponse {
	return models.HealthResponse{
		Status:    "ok",
		Timestamp: models.FormatTimestamp(s.now()),
	}
}

// stampLocked returns the current time, never earlier than the previous stamp.
func (s *HistoryService) stampLocked() time.Time {
	t := s.now().UTC()
	if t.Before(s.last) {
		t = s.last
	}
	s.last = t
	return t
}

func (s *HistoryService) fail(ctx context.Context, kind models.EventKind, msg string, err error) error {
	metrics.EventsTotal.WithLabelValues(string(kind), "error").Inc()
	s.logger.ErrorContext(ctx, msg, logging.Error(err))
	return internalError(msg, err)
}

func (s *HistoryService) countInvalid(kind models.EventKind) {
	metrics.EventsTotal.WithLabelValues(string(kind), "invalid").Inc()
}

func parsePayload(body []byte, missing, invalid string) (models.Record, error) {
	if len(bytes.TrimSpace(body)) == 0 || bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return models.Record{}, validationError(missing)
	}
	rec, err := models.ParseRecord(body)
	if err != nil {
		return models.Record{}, validationError(invalid)
	}
	return rec, nil
}

func stateFromRecord(rec models.Record) (models.StateTransition, error) {
	var st models.StateTransition

	for _, f := range []struct {
		key string
		dst *string
	}{
		{key: "previousState", dst: &st.PreviousState},
		{key: "currentState", dst: &st.CurrentState},
	} {
		if _, present := rec.Raw(f.key); !present {
			continue
		}
		v, ok := rec.String(f.key)
		if !ok {
			return st, validationError(f.key + " must be a string")
		}
		*f.dst = v
	}

	found, err := rec.Get("balance", &st.Balance)
	if !found {
		return st, validationError("balance is required")
	}
	if err != nil || rec.IsNull("balance") {
		return st, validationError("balance must be a number")
	}
	return st, nil
}

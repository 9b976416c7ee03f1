// Package store persists the history document as a single JSON file that is
// rewritten in full on every append.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vendlabs/vmhistory/internal/logging"
	"github.com/vendlabs/vmhistory/internal/metrics"
	"github.com/vendlabs/vmhistory/internal/models"
)

// DocumentStore owns the history document file. All writes go through one
// mutex so a load-append-save cycle can never interleave with another.
type DocumentStore struct {
	path   string
	mu     sync.RWMutex
	now    func() time.Time
	logger *logging.Logger
}

// Option configures a DocumentStore.
type Option func(*DocumentStore)

// WithClock overrides the time source used for fresh documents.
func WithClock(now func() time.Time) Option {
	return func(s *DocumentStore) {
		s.now = now
	}
}

// WithLogger sets the logger used to report load fallbacks.
func WithLogger(l *logging.Logger) Option {
	return func(s *DocumentStore) {
		s.logger = l
	}
}

// New returns a store backed by the file at path. The file is not touched
// until Initialize or a write.
func New(path string, opts ...Option) *DocumentStore {
	s := &DocumentStore{
		path:   path,
		now:    time.Now,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the document location.
func (s *DocumentStore) Path() string {
	return s.path
}

// Initialize writes an empty document started at startTime if none exists
// yet. Existing data is left alone.
func (s *DocumentStore) Initialize(startTime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat history document: %w", err)
	}

	return s.saveLocked(models.NewDocument(startTime))
}

// Reset overwrites the document with an empty one started at startTime.
func (s *DocumentStore) Reset(startTime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveLocked(models.NewDocument(startTime))
}

// Load returns the persisted document. Unreadable or unparsable files yield
// a fresh empty document instead of an error.
func (s *DocumentStore) Load(ctx context.Context) models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadLocked(ctx)
}

// Save replaces the persisted document with doc.
func (s *DocumentStore) Save(doc models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveLocked(doc)
}

// Append adds rec to the end of the document and rewrites the file. It
// returns the document as written.
func (s *DocumentStore) Append(ctx context.Context, rec models.Record) (models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.loadLocked(ctx)
	doc.Transactions = append(doc.Transactions, rec)
	if err := s.saveLocked(doc); err != nil {
		return models.Document{}, err
	}
	return doc, nil
}

func (s *DocumentStore) loadLocked(ctx context.Context) models.Document {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return s.fallback(ctx, "read", err)
	}

	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return s.fallback(ctx, "parse", err)
	}
	doc.Normalize()
	return doc
}

func (s *DocumentStore) fallback(ctx context.Context, stage string, err error) models.Document {
	metrics.StoreLoadFallbacks.WithLabelValues(stage).Inc()
	s.logger.WarnContext(ctx, "history document unavailable, using empty document",
		logging.File(s.path),
		logging.Error(err),
	)
	return models.NewDocument(s.now())
}

// saveLocked writes to a sibling temp file and renames it over the target so
// readers see either the old or the new document, never a partial one.
func (s *DocumentStore) saveLocked(doc models.Document) error {
	start := time.Now()
	defer func() {
		metrics.StoreWriteDuration.Observe(time.Since(start).Seconds())
	}()

	doc.Normalize()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode history document: %w", err)
	}
	data := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write history document: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace history document: %w", err)
	}
	return nil
}

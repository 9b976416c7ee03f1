// Package mirror keeps the human-readable transcript that shadows the
// history document.
package mirror

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vendlabs/vmhistory/internal/models"
)

// ErrNotFound is returned by ReadAll when the transcript has never been created.
var ErrNotFound = errors.New("transcript not found")

const (
	headerTitle = "=== VENDING MACHINE HISTORY ==="
	separator   = "=================================================="
)

// Header returns the block written at the top of a fresh transcript.
func Header(startTime time.Time) string {
	return headerTitle + "\n" +
		"Started: " + models.FormatTimestamp(startTime) + "\n" +
		separator + "\n\n"
}

// Transcript is an append-only text file. Lines are only ever added at the
// end, except by Reset.
type Transcript struct {
	path string
	mu   sync.Mutex
}

func New(path string) *Transcript {
	return &Transcript{path: path}
}

// Path returns the transcript location.
func (t *Transcript) Path() string {
	return t.path
}

// Initialize creates the transcript with a header if it does not exist.
func (t *Transcript) Initialize(startTime time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := os.Stat(t.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat transcript: %w", err)
	}
	return t.writeHeaderLocked(startTime)
}

// Reset truncates the transcript and writes a new header.
func (t *Transcript) Reset(startTime time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.writeHeaderLocked(startTime)
}

// AppendLine adds text and a newline to the end of the transcript.
func (t *Transcript) AppendLine(text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}

	if _, err := f.WriteString(text + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("append transcript line: %w", err)
	}
	return f.Close()
}

// ReadAll returns the whole transcript.
func (t *Transcript) ReadAll() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read transcript: %w", err)
	}
	return string(data), nil
}

func (t *Transcript) writeHeaderLocked(startTime time.Time) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(t.path, []byte(Header(startTime)), 0o644); err != nil {
		return fmt.Errorf("write transcript header: %w", err)
	}
	return nil
}

// EventLines returns the non-empty lines that follow the header block.
func EventLines(transcript string) []string {
	_, body, found := strings.Cut(transcript, separator+"\n\n")
	if !found {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

package completion

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// ErrorHistoryTitle names the log of responses that failed validation.
const ErrorHistoryTitle = "error"

const (
	defaultFlushEvery = 10
	historyDirPerm    = 0o750
	historyFilePerm   = 0o600
)

// Record is one logged exchange with the completion service.
type Record struct {
	Model    string `json:"model"`
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
	Message  string `json:"message"`
}

type historyKey struct {
	model  string
	prompt string
}

// historyIndex keeps the first response seen for each key.
type historyIndex map[historyKey]string

func (ix historyIndex) insert(r Record) {
	k := historyKey{model: r.Model, prompt: r.Prompt}
	if _, ok := ix[k]; !ok {
		ix[k] = r.Response
	}
}

// History is an append-only log of completions keyed by (model, prompt).
// It is loaded once, indexed in memory, and written back every few records
// and on Close. A nil *History is valid and records nothing.
//
// Lookups and appends are safe for concurrent use. Two workers racing on
// the same prompt may both miss and both call the service.
type History struct {
	mu         sync.Mutex
	path       string
	records    []Record
	index      historyIndex
	pending    int
	flushEvery int
	logger     zerolog.Logger
}

// HistoryOption configures a History.
type HistoryOption func(*History)

// WithFlushEvery sets how many appended records trigger a write.
func WithFlushEvery(n int) HistoryOption {
	return func(h *History) {
		if n > 0 {
			h.flushEvery = n
		}
	}
}

// WithHistoryLogger sets the logger.
func WithHistoryLogger(l zerolog.Logger) HistoryOption {
	return func(h *History) {
		h.logger = l
	}
}

// OpenHistory loads <dir>/<title>.json, or starts empty if it does not exist.
func OpenHistory(dir, title string, opts ...HistoryOption) (*History, error) {
	if title == "" {
		title = "default"
	}
	h := &History{
		path:       filepath.Join(dir, title+".json"),
		index:      make(historyIndex),
		flushEvery: defaultFlushEvery,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}

	data, err := os.ReadFile(h.path) // #nosec G304 -- path built from configured history dir
	if errors.Is(err, fs.ErrNotExist) {
		return h, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &h.records); err != nil {
			return nil, fmt.Errorf("parse history %s: %w", h.path, err)
		}
	}
	for _, r := range h.records {
		h.index.insert(r)
	}

	h.logger.Debug().Str("path", h.path).Int("records", len(h.records)).Msg("history loaded")
	return h, nil
}

// Path returns the backing file path.
func (h *History) Path() string {
	if h == nil {
		return ""
	}
	return h.path
}

// Len returns the number of records, flushed or not.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

// Lookup returns the first response logged for (model, prompt).
func (h *History) Lookup(model, prompt string) (string, bool) {
	if h == nil {
		return "", false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	resp, ok := h.index[historyKey{model: model, prompt: prompt}]
	return resp, ok
}

// Record appends r, writing the log once enough records are pending.
func (h *History) Record(r Record) error {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, r)
	h.index.insert(r)
	h.pending++
	if h.pending >= h.flushEvery {
		return h.flushLocked()
	}
	return nil
}

// Flush writes pending records to disk.
func (h *History) Flush() error {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.flushLocked()
}

// Close flushes pending records.
func (h *History) Close() error {
	return h.Flush()
}

// flushLocked replaces the file through a temp file and rename, so a crash
// leaves either the old or the new log. Caller must hold h.mu.
func (h *History) flushLocked() error {
	if h.pending == 0 {
		return nil
	}

	data, err := json.MarshalIndent(h.records, "", "    ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	dir := filepath.Dir(h.path)
	if err := os.MkdirAll(dir, historyDirPerm); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(h.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create history temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Chmod(historyFilePerm); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close history: %w", err)
	}
	if err := os.Rename(tmpName, h.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace history: %w", err)
	}

	h.logger.Debug().Str("path", h.path).Int("written", h.pending).Msg("history flushed")
	h.pending = 0
	return nil
}

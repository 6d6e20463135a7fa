// Package transcript writes an append-only NDJSON record of every draft and
// feedback item, one file per session.
package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Event types.
const (
	EventDraft     = "draft"
	EventFeedback  = "feedback"
	EventCompleted = "completed"
	EventDeleted   = "deleted"
	EventSwept     = "swept"
)

// Event is one transcript line.
type Event struct {
	Timestamp time.Time      `json:"ts"`
	SessionID string         `json:"session_id"`
	Type      string         `json:"event_type"`
	Iteration int            `json:"iteration,omitempty"`
	Content   string         `json:"content,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// Logger records transcript events. Log never blocks.
type Logger interface {
	Log(Event)
	Close() error
}

// Config controls transcript logging.
type Config struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

type noopLogger struct{}

func (noopLogger) Log(Event)    {}
func (noopLogger) Close() error { return nil }

// Noop returns a logger that discards everything.
func Noop() Logger { return noopLogger{} }

type fileLogger struct {
	dir    string
	log    *slog.Logger
	queue  chan Event
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// New starts the background writer. A disabled config yields Noop.
func New(cfg Config, log *slog.Logger) (Logger, error) {
	if !cfg.Enabled {
		return Noop(), nil
	}
	if cfg.Dir == "" {
		return nil, errors.New("transcript dir is required")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create transcript directory: %w", err)
	}

	l := &fileLogger{
		dir:   cfg.Dir,
		log:   log,
		queue: make(chan Event, cfg.QueueSize),
	}
	l.wg.Add(1)
	go l.run()
	return l, nil
}

func (l *fileLogger) Log(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}

	select {
	case l.queue <- ev:
	default:
		l.log.Warn("Transcript queue full, dropping event",
			"session_id", ev.SessionID,
			"event_type", ev.Type)
	}
}

func (l *fileLogger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	l.wg.Wait()
	return nil
}

func (l *fileLogger) run() {
	defer l.wg.Done()
	for ev := range l.queue {
		if err := l.write(ev); err != nil {
			l.log.Warn("Failed to write transcript event",
				"session_id", ev.SessionID,
				"event_type", ev.Type,
				"error", err)
		}
	}
}

func (l *fileLogger) write(ev Event) error {
	name, err := fileName(ev.SessionID)
	if err != nil {
		return err
	}
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(l.dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append transcript: %w", err)
	}
	return nil
}

func fileName(sessionID string) (string, error) {
	if sessionID == "" || sessionID == "." || sessionID == ".." ||
		strings.ContainsAny(sessionID, `/\`) {
		return "", fmt.Errorf("unsafe session id %q", sessionID)
	}
	return sessionID + ".ndjson", nil
}

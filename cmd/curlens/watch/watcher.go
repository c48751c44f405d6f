package watchcmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/curlens/pkg/chatstore"
	"github.com/papercomputeco/curlens/pkg/pipeline"
)

const defaultDebounce = 3 * time.Second

// Finder locates a session on disk by id.
type Finder interface {
	Find(ctx context.Context, id string) (chatstore.Session, error)
}

// Processor brings one session's catalog entry up to date.
type Processor interface {
	Process(ctx context.Context, session chatstore.Session) (*pipeline.Result, error)
}

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	ChatsDir  string
	Sessions  Finder
	Processor Processor

	// Rescan runs a full pass over every session. It is called on Schedule.
	Rescan func(ctx context.Context) error

	// Schedule is an optional cron expression.
	Schedule string

	// Debounce is how long a session must stay quiet before it is processed.
	Debounce time.Duration

	Logger *slog.Logger
}

// Watcher processes sessions whose store.db changes, once writes settle.
// Sessions are processed one at a time from the run loop.
type Watcher struct {
	config WatcherConfig
	fsw    *fsnotify.Watcher
	logger *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	ready  map[string]struct{}
	kick   chan struct{}
}

// NewWatcher validates the schedule and prepares an fsnotify watcher.
func NewWatcher(c WatcherConfig) (*Watcher, error) {
	if c.Schedule != "" && !gronx.New().IsValid(c.Schedule) {
		return nil, fmt.Errorf("invalid cron expression: %s", c.Schedule)
	}
	if c.Debounce <= 0 {
		c.Debounce = defaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	return &Watcher{
		config:  c,
		fsw:     fsw,
		logger:  c.Logger.With("component", "watch"),
		timers:  map[string]*time.Timer{},
		ready:   map[string]struct{}{},
		kick:    make(chan struct{}, 1),
	}, nil
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()

	if err := os.MkdirAll(w.config.ChatsDir, 0o755); err != nil {
		return fmt.Errorf("creating chats directory: %w", err)
	}
	w.watchTree(w.config.ChatsDir, false)
	w.logger.Info("watching sessions", "dir", w.config.ChatsDir, "schedule", w.config.Schedule)

	var tick <-chan time.Time
	var ticker *time.Timer
	if w.config.Schedule != "" {
		ticker = w.nextTick()
		if ticker != nil {
			tick = ticker.C
		}
	}

	for {
		select {
		case <-ctx.Done():
			if ticker != nil {
				ticker.Stop()
			}
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)

		case <-w.kick:
			w.flush(ctx)

		case <-tick:
			w.rescan(ctx)
			tick = nil
			if ticker = w.nextTick(); ticker != nil {
				tick = ticker.C
			}
		}
	}
}

func (w *Watcher) stop() {
	w.mu.Lock()
	for id, t := range w.timers {
		t.Stop()
		delete(w.timers, id)
	}
	w.mu.Unlock()
	_ = w.fsw.Close()
}

func (w *Watcher) nextTick() *time.Timer {
	now := time.Now()
	next, err := gronx.NextTickAfter(w.config.Schedule, now, false)
	if err != nil {
		w.logger.Error("failed to compute next rescan", "schedule", w.config.Schedule, "error", err)
		return nil
	}
	w.logger.Debug("next rescan", "at", next)
	return time.NewTimer(next.Sub(now))
}

func (w *Watcher) rescan(ctx context.Context) {
	if w.config.Rescan == nil {
		return
	}
	w.logger.Info("scheduled rescan")
	if err := w.config.Rescan(ctx); err != nil {
		w.logger.Error("rescan failed", "error", err)
	}
}

// watchTree adds dir and the hash and session directories below it. When
// enqueue is set, session directories found are queued, since their writes
// may have happened before the watch existed.
func (w *Watcher) watchTree(dir string, enqueue bool) {
	if err := w.fsw.Add(dir); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.logger.Warn("cannot watch directory", "path", dir, "error", err)
		}
		return
	}

	if id, depth := w.locate(dir); depth == 2 {
		if enqueue {
			w.enqueue(id)
		}
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			w.watchTree(filepath.Join(dir, e.Name()), enqueue)
		}
	}
}

// locate returns the session id a path belongs to and the path's depth
// below the chats directory: 1 for a workspace hash directory, 2 for a
// session directory, 3 for a file inside one.
func (w *Watcher) locate(path string) (string, int) {
	rel, err := filepath.Rel(w.config.ChatsDir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", 0
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return "", len(parts)
	}
	return parts[1], len(parts)
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.watchTree(event.Name, true)
			return
		}
	}

	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	id, depth := w.locate(event.Name)
	if depth != 3 || !isStoreFile(filepath.Base(event.Name)) {
		return
	}
	w.enqueue(id)
}

// isStoreFile matches the database and its write-ahead log. The shared
// memory file is touched by readers, including our own.
func isStoreFile(name string) bool {
	return name == "store.db" || name == "store.db-wal"
}

// enqueue restarts id's quiet-period timer. Each session has its own, so a
// chat that keeps writing never holds back another.
func (w *Watcher) enqueue(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[id]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(w.config.Debounce, func() {
		w.mu.Lock()
		if w.timers[id] != t {
			w.mu.Unlock()
			return
		}
		delete(w.timers, id)
		w.ready[id] = struct{}{}
		w.mu.Unlock()

		select {
		case w.kick <- struct{}{}:
		default:
		}
	})
	w.timers[id] = t
}

// flush processes every session whose quiet period has elapsed.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	ids := make([]string, 0, len(w.ready))
	for id := range w.ready {
		ids = append(ids, id)
	}
	w.ready = map[string]struct{}{}
	w.mu.Unlock()

	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		w.process(ctx, id)
	}
}

func (w *Watcher) process(ctx context.Context, id string) {
	log := w.logger.With("session", id)

	session, err := w.config.Sessions.Find(ctx, id)
	if err != nil {
		log.Debug("session not readable yet", "error", err)
		return
	}

	result, err := w.config.Processor.Process(ctx, session)
	var skipped *pipeline.SkipError
	switch {
	case errors.As(err, &skipped):
		log.Debug("session skipped", "reason", skipped.Reason)
	case err != nil:
		log.Warn("session not indexed", "error", err)
	case result.Status == pipeline.StatusSummarized:
		log.Info("session summarized", "title", result.Entry.Title, "new_messages", result.NewMessages)
	default:
		log.Debug("session unchanged")
	}
}

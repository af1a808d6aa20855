package indexing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/standardbeagle/i18nsync/internal/autosync"
	"github.com/standardbeagle/i18nsync/internal/config"
	"github.com/standardbeagle/i18nsync/internal/debug"
	"github.com/standardbeagle/i18nsync/internal/events"
	"github.com/standardbeagle/i18nsync/internal/index"
	"github.com/standardbeagle/i18nsync/internal/keypath"
	"github.com/standardbeagle/i18nsync/internal/metrics"
	"github.com/standardbeagle/i18nsync/internal/watcher"
)

// Manager owns the process-wide translation state: the index, its event bus,
// the file watcher and the auto-sync writer. Components are created by
// NewManager and started by Init, so the index is usable (empty) even when
// Init fails.
type Manager struct {
	cfg     *config.Config
	log     *log.Logger
	metrics *metrics.Collector

	index    *index.Index
	watcher  *watcher.Watcher
	autosync *autosync.Writer

	// Configuration and lifecycle
	mu          sync.Mutex
	initialized atomic.Bool
	startedAt   time.Time
	initErr     error
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	refresh   singleflight.Group
	refreshes atomic.Int64
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger handed to the watcher and the auto-sync writer
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithMetrics replaces the collector created by NewManager
func WithMetrics(c *metrics.Collector) Option {
	return func(m *Manager) {
		m.metrics = c
	}
}

// NewManager builds the components described by cfg without touching disk
func NewManager(cfg *config.Config, opts ...Option) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("manager requires a config")
	}

	m := &Manager{
		cfg:     cfg,
		log:     log.New(io.Discard, "", 0),
		metrics: metrics.New(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if cfg.Cache.KeyPathCacheSize > 0 {
		keypath.SetCacheSize(cfg.Cache.KeyPathCacheSize)
	}

	ix, err := index.New(index.Options{
		CacheSize:        cfg.Cache.MaxEntries,
		MaxResults:       cfg.Search.MaxResults,
		SuggestThreshold: cfg.Search.SuggestThreshold,
		MaxSuggestions:   cfg.Search.MaxSuggestions,
		Metrics:          m.metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	m.index = ix

	dir := cfg.TranslationsPath()
	ignore, err := cfg.IgnorePatternsFor(dir)
	if err != nil {
		m.log.Printf("indexing: %v", err)
		ignore = cfg.Watch.IgnorePatterns
	}
	ignore = append(ignore, cfg.Translations.Exclude...)

	m.watcher, err = watcher.New(ix, watcher.Options{
		Dir:         dir,
		MaxDepth:    cfg.Translations.MaxDepth,
		Include:     cfg.Translations.Include,
		Ignore:      ignore,
		Debounce:    time.Duration(cfg.Watch.DebounceMs) * time.Millisecond,
		MaxFileSize: cfg.Watch.MaxFileSize,
		Metrics:     m.metrics,
		Logger:      m.log,
	})
	if err != nil {
		return nil, err
	}

	m.autosync, err = autosync.New(ix, autosync.Options{
		Dir:        dir,
		Debounce:   time.Duration(cfg.AutoSync.DebounceMs) * time.Millisecond,
		IndentSize: cfg.AutoSync.IndentSize,
		UseTabs:    cfg.AutoSync.UseTabs,
		Metrics:    m.metrics,
		Logger:     m.log,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Init loads the translation directory and starts watching and auto-sync as
// configured. A second call returns nil without scanning again.
func (m *Manager) Init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized.Load() {
		return nil
	}

	start := time.Now()
	var err error
	if m.cfg.Watch.Enabled {
		err = m.watcher.Start(ctx)
	} else {
		var res watcher.ScanResult
		res, err = m.watcher.Scan(ctx)
		if err == nil {
			m.index.Bus().Publish(events.Ready{Files: res.Files, Keys: m.index.Len()})
		}
	}
	if err != nil {
		m.initErr = err
		return err
	}

	if m.cfg.AutoSync.Enabled {
		m.autosync.Start()
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	if addr := m.cfg.Metrics.Addr; addr != "" {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := m.metrics.Serve(runCtx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				m.log.Printf("metrics: %v", err)
			}
		}()
	}

	m.initErr = nil
	m.startedAt = time.Now()
	m.initialized.Store(true)
	debug.LogIndex("manager initialized for %s in %v (%d keys)\n",
		m.watcher.Dir(), time.Since(start), m.index.Len())
	return nil
}

// Teardown stops watching, drops a pending auto-sync write and stops the
// metrics endpoint. It is safe to call more than once; Init may be called again
// afterwards.
func (m *Manager) Teardown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized.Load() {
		return nil
	}

	m.autosync.Stop()
	err := m.watcher.Stop()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.wg.Wait()

	m.initialized.Store(false)
	debug.LogIndex("manager torn down for %s\n", m.watcher.Dir())
	return err
}

// Initialized reports whether Init completed and Teardown has not run since
func (m *Manager) Initialized() bool {
	return m.initialized.Load()
}

// InitError returns the error of the last failed Init, if any
func (m *Manager) InitError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initErr
}

func (m *Manager) Config() *config.Config { return m.cfg }
func (m *Manager) Index() *index.Index { return m.index }
func (m *Manager) Bus() *events.Bus { return m.index.Bus() }
func (m *Manager) Watcher() *watcher.Watcher { return m.watcher }
func (m *Manager) AutoSync() *autosync.Writer { return m.autosync }
func (m *Manager) Metrics() *metrics.Collector { return m.metrics }
func (m *Manager) TranslationsDir() string { return m.watcher.Dir() }
func (m *Manager) FilePathFor(lang string) string { return m.autosync.FilePathFor(lang) }

// RefreshResult describes one refresh
type RefreshResult struct {
	watcher.ScanResult
	// Shared is true when the caller joined a refresh that was already running
	Shared   bool          `json:"shared"`
	Duration time.Duration `json:"duration"`
}

// Refresh re-reads the translation directory and applies it to the index.
// Concurrent callers share the refresh in flight rather than starting another.
// The shared scan is not cancelled when one caller's ctx is; that caller just
// stops waiting.
func (m *Manager) Refresh(ctx context.Context) (RefreshResult, error) {
	start := time.Now()
	ch := m.refresh.DoChan("refresh", func() (interface{}, error) {
		m.refreshes.Add(1)
		return m.watcher.Scan(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return RefreshResult{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return RefreshResult{Shared: r.Shared}, r.Err
		}
		res := RefreshResult{
			ScanResult: r.Val.(watcher.ScanResult),
			Shared:     r.Shared,
			Duration:   time.Since(start),
		}
		debug.LogIndex("refresh: %d files, %d keys, %d removed (shared=%v)\n",
			res.Files, res.Keys, res.Removed, res.Shared)
		return res, nil
	}
}

// Stats is a snapshot of every component
type Stats struct {
	Initialized bool           `json:"initialized"`
	Dir         string         `json:"dir"`
	StartedAt   time.Time      `json:"startedAt,omitempty"`
	Refreshes   int64          `json:"refreshes"`
	Index       index.Stats    `json:"index"`
	Watcher     watcher.Stats  `json:"watcher"`
	AutoSync    autosync.Stats `json:"autoSync"`
}

// Stats returns a snapshot of every component
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	started := m.startedAt
	m.mu.Unlock()

	return Stats{
		Initialized: m.initialized.Load(),
		Dir:         m.watcher.Dir(),
		StartedAt:   started,
		Refreshes:   m.refreshes.Load(),
		Index:       m.index.Stats(),
		Watcher:     m.watcher.Stats(),
		AutoSync:    m.autosync.Stats(),
	}
}

// Close tears down and releases the auto-sync timer for good
func (m *Manager) Close() error {
	err := m.Teardown()
	m.autosync.Close()
	return err
}

// Package backup keeps a rolling set of history database snapshots.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultInterval = 6 * time.Hour
	defaultKeepLast = 24

	filePrefix = "wasp-history-"
	fileSuffix = ".duckdb"
	stampFmt   = "20060102-150405.000"
)

// ErrNoDir is returned when snapshots are requested without a directory.
var ErrNoDir = errors.New("backup: dir is required")

// Manager takes a snapshot on start and then once per interval, pruning
// anything beyond KeepLast.
type Manager struct {
	src Snapshotter
	cfg Config
	log *zap.Logger
	now func() time.Time

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func newManager(src Snapshotter, cfg Config) (*Manager, error) {
	if src == nil {
		return nil, errors.New("backup: nil snapshotter")
	}
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, ErrNoDir
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.KeepLast <= 0 {
		cfg.KeepLast = defaultKeepLast
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("backup: create dir: %w", err)
	}
	return &Manager{
		src:  src,
		cfg:  cfg,
		log:  cfg.Logger,
		now:  time.Now,
		done: make(chan struct{}),
	}, nil
}

// Once takes a single snapshot and prunes, without starting the loop.
func Once(ctx context.Context, src Snapshotter, cfg Config) (string, error) {
	m, err := newManager(src, cfg)
	if err != nil {
		return "", err
	}
	return m.RunOnce(ctx)
}

// Start returns a running Manager. It returns nil, nil when cfg.Dir is empty.
func Start(src Snapshotter, cfg Config) (*Manager, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, nil
	}
	m, err := newManager(src, cfg)
	if err != nil {
		return nil, err
	}

	if _, err := m.RunOnce(context.Background()); err != nil {
		m.log.Warn("backup: startup snapshot failed", zap.Error(err))
	}

	m.wg.Add(1)
	go m.loop()
	return m, nil
}

func (m *Manager) loop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := m.RunOnce(context.Background()); err != nil {
				m.log.Warn("backup: periodic snapshot failed", zap.Error(err))
			}
		case <-m.done:
			return
		}
	}
}

// RunOnce writes one snapshot and prunes old ones. It returns the new path.
func (m *Manager) RunOnce(ctx context.Context) (string, error) {
	name := filePrefix + m.now().UTC().Format(stampFmt) + fileSuffix
	path := filepath.Join(m.cfg.Dir, name)

	if err := m.src.Snapshot(ctx, path); err != nil {
		return "", fmt.Errorf("backup: snapshot: %w", err)
	}
	m.log.Info("backup: created snapshot", zap.String("path", path))

	if err := prune(m.cfg.Dir, m.cfg.KeepLast); err != nil {
		return path, fmt.Errorf("backup: prune: %w", err)
	}
	return path, nil
}

// Stop ends the loop. Safe to call more than once.
func (m *Manager) Stop() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
	})
}

// List returns snapshot paths in dir, newest first.
func List(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return nil, err
	}
	// the stamp sorts lexically in time order
	slices.Sort(matches)
	slices.Reverse(matches)
	return matches, nil
}

func prune(dir string, keepLast int) error {
	matches, err := List(dir)
	if err != nil {
		return err
	}
	if len(matches) <= keepLast {
		return nil
	}
	for _, old := range matches[keepLast:] {
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			return err
		}
		// DuckDB may leave a write-ahead log beside the file.
		_ = os.Remove(old + ".wal")
	}
	return nil
}

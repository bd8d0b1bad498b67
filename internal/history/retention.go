package history

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RetentionConfig holds configuration for the retention cleaner.
type RetentionConfig struct {
	RetentionDays int
	Interval      time.Duration
	Logger        *zap.Logger
}

// RetentionCleaner periodically deletes requests older than the retention
// period.
type RetentionCleaner struct {
	store    *Store
	maxAge   time.Duration
	interval time.Duration
	log      *zap.Logger
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewRetentionCleaner runs one cleanup immediately and then one per interval
// (default one hour). It returns nil when RetentionDays is 0 or less.
func NewRetentionCleaner(store *Store, conf RetentionConfig) *RetentionCleaner {
	if conf.RetentionDays <= 0 {
		return nil
	}
	if conf.Interval <= 0 {
		conf.Interval = time.Hour
	}
	if conf.Logger == nil {
		conf.Logger = zap.NewNop()
	}

	rc := &RetentionCleaner{
		store:    store,
		maxAge:   time.Duration(conf.RetentionDays) * 24 * time.Hour,
		interval: conf.Interval,
		log:      conf.Logger,
		done:     make(chan struct{}),
	}

	rc.cleanup()

	rc.wg.Add(1)
	go rc.tickLoop()
	return rc
}

func (rc *RetentionCleaner) tickLoop() {
	defer rc.wg.Done()
	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rc.cleanup()
		case <-rc.done:
			return
		}
	}
}

func (rc *RetentionCleaner) cleanup() {
	cutoff := time.Now().Add(-rc.maxAge)
	rows, err := rc.store.DeleteBefore(context.Background(), cutoff)
	if err != nil {
		rc.log.Warn("history: retention cleanup", zap.Error(err))
		return
	}
	if rows > 0 {
		rc.log.Info("history: retention cleanup", zap.Int64("deleted", rows), zap.Time("cutoff", cutoff))
	}
}

// Stop signals the cleaner to stop and waits for it to finish.
func (rc *RetentionCleaner) Stop() {
	rc.stopOnce.Do(func() {
		close(rc.done)
		rc.wg.Wait()
	})
}

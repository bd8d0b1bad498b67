package backup

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Config controls periodic history snapshots.
type Config struct {
	Dir      string
	Interval time.Duration
	KeepLast int
	Logger   *zap.Logger
}

// Snapshotter writes a complete copy of its database to dst.
type Snapshotter interface {
	Snapshot(ctx context.Context, dst string) error
}

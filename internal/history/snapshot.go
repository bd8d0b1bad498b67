package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrSnapshotExists is returned when the snapshot target is already present.
var ErrSnapshotExists = errors.New("history: snapshot target exists")

// Snapshot copies the whole history database into a new DuckDB file at dst.
// It works for in-memory stores too.
func (s *Store) Snapshot(ctx context.Context, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%w: %s", ErrSnapshotExists, dst)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("history: snapshot mkdir: %w", err)
	}

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	// ATTACH is scoped to the connection that runs it.
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("history: snapshot conn: %w", err)
	}
	defer conn.Close()

	var source string
	if err := conn.QueryRowContext(ctx, "SELECT current_database()").Scan(&source); err != nil {
		return fmt.Errorf("history: snapshot source: %w", err)
	}

	quoted := "'" + strings.ReplaceAll(dst, "'", "''") + "'"
	if _, err := conn.ExecContext(ctx, "ATTACH "+quoted+" AS wasp_snapshot"); err != nil {
		return fmt.Errorf("history: snapshot attach: %w", err)
	}
	_, copyErr := conn.ExecContext(ctx, `COPY FROM DATABASE "`+source+`" TO wasp_snapshot`)
	_, detachErr := conn.ExecContext(context.Background(), "DETACH wasp_snapshot")
	if copyErr != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("history: snapshot copy: %w", copyErr)
	}
	if detachErr != nil {
		return fmt.Errorf("history: snapshot detach: %w", detachErr)
	}
	return nil
}

package history

import (
	"context"
	"fmt"
	"time"

	"github.com/tinytelemetry/wasp/internal/model"
)

// InsertRequest stores one finished request. A request ID that is already
// present is ignored.
func (s *Store) InsertRequest(ctx context.Context, rec model.RequestRecord) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO requests
			(request_id, url, operation, status, did_error, error, started_at, finished_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (request_id) DO NOTHING`,
		rec.RequestID, rec.URL, rec.Operation, rec.Status, rec.DidError, rec.Error,
		rec.StartedAt, rec.FinishedAt, rec.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("history: insert request: %w", err)
	}
	return nil
}

// Recent returns up to limit requests, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]model.RequestRecord, error) {
	if limit <= 0 {
		limit = model.DefaultHistoryLimit
	}
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT request_id, url, operation, status, did_error, error, started_at, finished_at, duration_ms
		FROM requests
		ORDER BY finished_at DESC, request_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()

	var out []model.RequestRecord
	for rows.Next() {
		var r model.RequestRecord
		if err := rows.Scan(&r.RequestID, &r.URL, &r.Operation, &r.Status, &r.DidError, &r.Error,
			&r.StartedAt, &r.FinishedAt, &r.DurationMs); err != nil {
			return nil, fmt.Errorf("history: scan request: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: recent rows: %w", err)
	}
	return out, nil
}

// Summary aggregates every stored request.
func (s *Store) Summary(ctx context.Context) (model.RequestSummary, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum model.RequestSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE did_error),
		       COALESCE(AVG(duration_ms), 0)::DOUBLE,
		       COALESCE(arg_max(status, finished_at), 0)::INTEGER
		FROM requests`).Scan(&sum.Total, &sum.Errors, &sum.AvgMs, &sum.LastStatus)
	if err != nil {
		return model.RequestSummary{}, fmt.Errorf("history: summary: %w", err)
	}
	return sum, nil
}

// DeleteBefore removes requests that finished before cutoff and returns how
// many were removed.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM requests WHERE finished_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("history: delete before: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("history: rows affected: %w", err)
	}
	return n, nil
}

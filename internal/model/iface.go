package model

import "context"

// HistoryWriter persists finished requests.
type HistoryWriter interface {
	InsertRequest(ctx context.Context, rec RequestRecord) error
}

// HistoryReader provides read-only queries on request history.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]RequestRecord, error)
	Summary(ctx context.Context) (RequestSummary, error)
}

// History is the unified history contract.
type History interface {
	HistoryWriter
	HistoryReader
}

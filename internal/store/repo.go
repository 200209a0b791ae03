package store

import (
	"context"
	"time"
)

// QueryOpts filters and paginates oracle call queries.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	Purpose string    // exact match when set
	BatchID string    // exact match when set
	From    time.Time // created_at >= From
	To      time.Time // created_at <= To
}

// OracleCallEventData captures a single model call made while judging an
// answer.
type OracleCallEventData struct {
	BatchID      string
	Purpose      string
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// OracleCall is a stored OracleCallEventData row.
type OracleCall struct {
	ID        int64
	Timestamp time.Time
	OracleCallEventData
}

// PurposeUsage aggregates token usage for one purpose label.
type PurposeUsage struct {
	Purpose      string
	Calls        int
	Failures     int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// EventRepo records and reads back oracle calls.
type EventRepo interface {
	AppendOracleCall(ctx context.Context, data OracleCallEventData) error

	// QueryOracleCalls returns calls newest first.
	QueryOracleCalls(ctx context.Context, opts QueryOpts) ([]OracleCall, error)

	// GetOracleCall returns nil, nil when id is unknown.
	GetOracleCall(ctx context.Context, id int64) (*OracleCall, error)

	UsageByPurpose(ctx context.Context) ([]PurposeUsage, error)
}

// NopEventRepo discards everything. It is used when no store is configured.
type NopEventRepo struct{}

func (NopEventRepo) AppendOracleCall(context.Context, OracleCallEventData) error { return nil }

func (NopEventRepo) QueryOracleCalls(context.Context, QueryOpts) ([]OracleCall, error) {
	return nil, nil
}

func (NopEventRepo) GetOracleCall(context.Context, int64) (*OracleCall, error) { return nil, nil }

func (NopEventRepo) UsageByPurpose(context.Context) ([]PurposeUsage, error) { return nil, nil }

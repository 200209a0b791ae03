package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// eventRepo implements EventRepo with plain SQL that runs on both
// sqlite and postgres.
type eventRepo struct {
	db     *sql.DB
	driver Driver
}

const oracleCallColumns = `id, created_at, batch_id, purpose, provider, model,
input_tokens, output_tokens, latency_ms, success, error_message,
request_body, response_body`

func (r *eventRepo) AppendOracleCall(ctx context.Context, data OracleCallEventData) error {
	q := rebind(r.driver, `INSERT INTO oracle_calls
(created_at, batch_id, purpose, provider, model, input_tokens, output_tokens,
 latency_ms, success, error_message, request_body, response_body)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, q,
		time.Now().UTC().UnixMilli(),
		data.BatchID,
		data.Purpose,
		data.Provider,
		data.Model,
		data.InputTokens,
		data.OutputTokens,
		data.LatencyMs,
		data.Success,
		data.ErrorMessage,
		data.RequestBody,
		data.ResponseBody,
	)
	if err != nil {
		return fmt.Errorf("save oracle call: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryOracleCalls(ctx context.Context, opts QueryOpts) ([]OracleCall, error) {
	var (
		where []string
		args  []any
	)
	if opts.Purpose != "" {
		where = append(where, "purpose = ?")
		args = append(args, opts.Purpose)
	}
	if opts.BatchID != "" {
		where = append(where, "batch_id = ?")
		args = append(args, opts.BatchID)
	}
	if !opts.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, opts.From.UTC().UnixMilli())
	}
	if !opts.To.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, opts.To.UTC().UnixMilli())
	}

	q := "SELECT " + oracleCallColumns + " FROM oracle_calls"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id DESC"
	if opts.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, rebind(r.driver, q), args...)
	if err != nil {
		return nil, fmt.Errorf("query oracle calls: %w", err)
	}
	defer rows.Close()

	var out []OracleCall
	for rows.Next() {
		c, err := scanOracleCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *eventRepo) GetOracleCall(ctx context.Context, id int64) (*OracleCall, error) {
	q := rebind(r.driver, "SELECT "+oracleCallColumns+" FROM oracle_calls WHERE id = ?")
	c, err := scanOracleCall(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (r *eventRepo) UsageByPurpose(ctx context.Context) ([]PurposeUsage, error) {
	failed := "SUM(CASE WHEN success THEN 0 ELSE 1 END)"
	if r.driver == DriverSQLite {
		failed = "SUM(CASE WHEN success = 1 THEN 0 ELSE 1 END)"
	}
	q := `SELECT purpose, COUNT(*), ` + failed + `,
COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0),
COALESCE(AVG(latency_ms), 0)
FROM oracle_calls GROUP BY purpose ORDER BY purpose`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	var out []PurposeUsage
	for rows.Next() {
		var (
			u   PurposeUsage
			avg float64
		)
		if err := rows.Scan(&u.Purpose, &u.Calls, &u.Failures, &u.InputTokens, &u.OutputTokens, &avg); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		u.AvgLatencyMs = int64(avg)
		out = append(out, u)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOracleCall(row rowScanner) (*OracleCall, error) {
	var (
		c       OracleCall
		created int64
	)
	err := row.Scan(
		&c.ID,
		&created,
		&c.BatchID,
		&c.Purpose,
		&c.Provider,
		&c.Model,
		&c.InputTokens,
		&c.OutputTokens,
		&c.LatencyMs,
		&c.Success,
		&c.ErrorMessage,
		&c.RequestBody,
		&c.ResponseBody,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan oracle call: %w", err)
	}
	c.Timestamp = time.UnixMilli(created).UTC()
	return &c, nil
}

package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresRecorder aggregates attempts into one row per model per day,
// mirroring the assistant's model_usage accounting table.
type PostgresRecorder struct {
	db *sql.DB
}

func NewPostgresRecorder(databaseURL string) (*PostgresRecorder, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresRecorder{db: db}, nil
}

func NewPostgresRecorderWithDB(db *sql.DB) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

func (r *PostgresRecorder) Record(ctx context.Context, attempt Attempt) error {
	errCount := 0
	if attempt.IsError {
		errCount = 1
	}

	query := `
		INSERT INTO model_usage (model_key, date, request_count, total_input_tokens, total_output_tokens, total_latency_ms, error_count)
		VALUES ($1, $2, 1, $3, $4, $5, $6)
		ON CONFLICT (model_key, date) DO UPDATE SET
			request_count = model_usage.request_count + 1,
			total_input_tokens = model_usage.total_input_tokens + EXCLUDED.total_input_tokens,
			total_output_tokens = model_usage.total_output_tokens + EXCLUDED.total_output_tokens,
			total_latency_ms = model_usage.total_latency_ms + EXCLUDED.total_latency_ms,
			error_count = model_usage.error_count + EXCLUDED.error_count
	`

	date := attempt.Timestamp
	if date.IsZero() {
		date = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		attempt.ModelKey,
		date.Format("2006-01-02"),
		attempt.InputTokens,
		attempt.OutputTokens,
		attempt.LatencyMs,
		errCount,
	)
	if err != nil {
		return fmt.Errorf("upsert usage record: %w", err)
	}

	return nil
}

func (r *PostgresRecorder) Stats(ctx context.Context, days int) ([]ModelStats, error) {
	query := `
		SELECT model_key,
		       SUM(request_count) AS total_requests,
		       SUM(total_input_tokens) AS total_input,
		       SUM(total_output_tokens) AS total_output,
		       AVG(total_latency_ms::float / GREATEST(request_count, 1)) AS avg_latency,
		       SUM(error_count) AS errors
		FROM model_usage
		WHERE date >= $1
		GROUP BY model_key
		ORDER BY total_requests DESC
	`

	since := time.Now().AddDate(0, 0, -days).Format("2006-01-02")

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("query usage stats: %w", err)
	}
	defer rows.Close()

	var stats []ModelStats
	for rows.Next() {
		var s ModelStats
		if err := rows.Scan(&s.ModelKey, &s.Requests, &s.InputTokens, &s.OutputTokens, &s.AvgLatencyMs, &s.Errors); err != nil {
			return nil, fmt.Errorf("scan usage stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// DB exposes the underlying handle for readiness probes.
func (r *PostgresRecorder) DB() *sql.DB {
	return r.db
}

func (r *PostgresRecorder) Close() error {
	return r.db.Close()
}

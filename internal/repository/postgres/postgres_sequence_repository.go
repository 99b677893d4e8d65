package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
)

const defaultSequenceRetries = 2

type PostgresSequenceRepository struct {
	db         *sql.DB
	base       int64
	maxRetries uint64
}

func NewPostgresSequenceRepository(db *sql.DB, base int64) *PostgresSequenceRepository {
	return &PostgresSequenceRepository{db: db, base: base, maxRetries: defaultSequenceRetries}
}

// WithMaxRetries sets how many times a failed increment is retried.
func (r *PostgresSequenceRepository) WithMaxRetries(n uint64) *PostgresSequenceRepository {
	r.maxRetries = n
	return r
}

// Next increments the named counter and returns the new value in a single
// statement, creating the counter at base on first use. The increment has no
// partial effect, so it is retried on failure.
func (r *PostgresSequenceRepository) Next(ctx context.Context, key string) (seq int64, err error) {
	ctx, span, finish := startCall(ctx, "sequence-repository", "NextSequence")
	defer finish(&err)
	span.SetAttributes(attribute.String("counter", key))

	query := `
		INSERT INTO counters (name, seq) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET seq = counters.seq + 1
		RETURNING seq`

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond

	attempt := 0
	seq, err = backoff.RetryWithData(func() (int64, error) {
		attempt++
		var v int64
		if err := r.db.QueryRowContext(ctx, query, key, r.base+1).Scan(&v); err != nil {
			slog.Warn("sequence increment failed", "method", "Next", "counter", key, "attempt", attempt, "error", err)
			return 0, err
		}
		return v, nil
	}, backoff.WithContext(backoff.WithMaxRetries(b, r.maxRetries), ctx))
	if err != nil {
		slog.Error("failed to increment sequence", "method", "Next", "counter", key, "attempts", attempt, "error", err)
		return 0, fmt.Errorf("failed to increment sequence %s: %w", key, err)
	}

	slog.Debug("sequence incremented", "method", "Next", "counter", key, "seq", seq)
	return seq, nil
}

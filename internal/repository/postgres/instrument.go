package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/honeynil/PaymentLedgerService/internal/infrastructure/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// startCall opens a span and returns a finisher that records the call in the
// repository metrics. The finisher takes the method's named error.
func startCall(ctx context.Context, tracerName, op string) (context.Context, trace.Span, func(*error)) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, op)
	start := time.Now()
	return ctx, span, func(errp *error) {
		status := "success"
		if errp != nil && *errp != nil {
			status = "error"
			span.RecordError(*errp)
			span.SetStatus(codes.Error, (*errp).Error())
		}
		observability.RepositoryCalls.WithLabelValues(op, status).Inc()
		observability.RepositoryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		span.End()
	}
}

// rollback aborts dbTx and folds a failed rollback into the original error.
func rollback(dbTx *sql.Tx, method string, err error) error {
	if rbErr := dbTx.Rollback(); rbErr != nil {
		slog.Error("rollback failed", "method", method, "error", rbErr)
		return fmt.Errorf("rollback failed: %v; original error: %w", rbErr, err)
	}
	return err
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/honeynil/PaymentLedgerService/internal/ledger"
	"github.com/honeynil/PaymentLedgerService/internal/models"
	irepo "github.com/honeynil/PaymentLedgerService/internal/repository"
	pkgerrors "github.com/honeynil/PaymentLedgerService/pkg/errors"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const transactionColumns = `id, trn_id, user_id, amount, account_holder, transaction_type, account_number, bank_name, ifsc, upi, status, remarks, image, total_amount, pending_amount, declined_amount, approved_amount, created_at, updated_at`

// Status buckets match case-insensitively so rows written before statuses
// were canonicalised still land in the right bucket.
const summarySelect = `
	SELECT
		COALESCE(SUM(amount) FILTER (WHERE lower(status) = 'pending'), 0),
		COUNT(*) FILTER (WHERE lower(status) = 'pending'),
		COALESCE(SUM(amount) FILTER (WHERE lower(status) = 'approved'), 0),
		COUNT(*) FILTER (WHERE lower(status) = 'approved'),
		COALESCE(SUM(amount) FILTER (WHERE lower(status) IN ('declined', 'decline')), 0),
		COUNT(*) FILTER (WHERE lower(status) IN ('declined', 'decline')),
		COALESCE(SUM(amount), 0),
		COUNT(*)
	FROM transactions`

type PostgresTransactionRepository struct {
	db  *sql.DB
	seq irepo.SequenceRepository
}

func NewPostgresTransactionRepository(db *sql.DB, seq irepo.SequenceRepository) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db, seq: seq}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var tx models.Transaction
	err := row.Scan(
		&tx.ID, &tx.TrnID, &tx.UserID, &tx.Amount, &tx.AccountHolder, &tx.TransactionType,
		&tx.AccountNumber, &tx.BankName, &tx.IFSC, &tx.UPI, &tx.Status, &tx.Remarks, &tx.Image,
		&tx.TotalAmount, &tx.PendingAmount, &tx.DeclinedAmount, &tx.ApprovedAmount,
		&tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	tx.PaymentLogs = []models.PaymentLog{}
	return &tx, nil
}

// Create stamps a fresh reference number on tx and inserts it. The number is
// drawn before the row exists, so a stored transaction always has one; a
// failed insert burns the number rather than reusing it.
func (r *PostgresTransactionRepository) Create(ctx context.Context, tx *models.Transaction) (err error) {
	ctx, span, finish := startCall(ctx, "transaction-repository", "CreateTransaction")
	defer finish(&err)

	if tx == nil {
		err = pkgerrors.ErrNilTransaction
		slog.Error("failed to create transaction", "method", "Create", "error", err)
		return err
	}

	seq, err := r.seq.Next(ctx, ledger.PaymentCounter)
	if err != nil {
		slog.Error("failed to allocate reference number", "method", "Create", "user_id", tx.UserID, "error", err)
		return fmt.Errorf("failed to allocate reference number: %w", err)
	}
	tx.ID = uuid.New()
	tx.TrnID = ledger.FormatTrnID(seq)

	span.SetAttributes(
		attribute.String("transaction_id", tx.ID.String()),
		attribute.String("trn_id", tx.TrnID),
		attribute.String("user_id", tx.UserID.String()),
		attribute.String("amount", tx.Amount.String()),
		attribute.String("type", string(tx.TransactionType)),
		attribute.String("status", tx.Status),
	)

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", "Create", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `
		INSERT INTO transactions (id, trn_id, user_id, amount, account_holder, transaction_type, account_number, bank_name, ifsc, upi, status, remarks, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`
	err = dbTx.QueryRowContext(ctx, query,
		tx.ID, tx.TrnID, tx.UserID, tx.Amount, tx.AccountHolder, tx.TransactionType,
		tx.AccountNumber, tx.BankName, tx.IFSC, tx.UPI, tx.Status, tx.Remarks, tx.Image,
	).Scan(&tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		slog.Error("failed to create transaction", "method", "Create", "trn_id", tx.TrnID, "user_id", tx.UserID, "error", err)
		return rollback(dbTx, "Create", fmt.Errorf("failed to create transaction: %w", err))
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "method", "Create", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	tx.PaymentLogs = []models.PaymentLog{}
	slog.Info("transaction created", "method", "Create", "id", tx.ID, "trn_id", tx.TrnID, "user_id", tx.UserID, "status", tx.Status)
	return nil
}

func (r *PostgresTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (tx *models.Transaction, err error) {
	ctx, span, finish := startCall(ctx, "transaction-repository", "GetTransactionByID")
	defer finish(&err)
	span.SetAttributes(attribute.String("transaction_id", id.String()))

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	tx, err = scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		slog.Error("transaction not found", "method", "GetByID", "transaction_id", id)
		err = pkgerrors.ErrTransactionNotFound
		return nil, err
	}
	if err != nil {
		slog.Error("failed to get transaction by id", "method", "GetByID", "transaction_id", id, "error", err)
		return nil, fmt.Errorf("failed to get transaction by id: %w", err)
	}

	logs, err := r.loadLogs(ctx, r.db, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	tx.PaymentLogs = logs[id]
	if tx.PaymentLogs == nil {
		tx.PaymentLogs = []models.PaymentLog{}
	}

	slog.Info("transaction retrieved", "method", "GetByID", "transaction_id", id, "trn_id", tx.TrnID)
	return tx, nil
}

// List returns one page of transactions, newest first, and the number of
// rows matching the filter across all pages.
func (r *PostgresTransactionRepository) List(ctx context.Context, filter models.ListFilter) (items []models.Transaction, total int, err error) {
	ctx, span, finish := startCall(ctx, "transaction-repository", "ListTransactions")
	defer finish(&err)

	var (
		conds []string
		args  []any
	)
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
		span.SetAttributes(attribute.String("user_id", filter.UserID.String()))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	if err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&total); err != nil {
		slog.Error("failed to count transactions", "method", "List", "error", err)
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	pageArgs := append(append([]any{}, args...), filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM transactions%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		slog.Error("failed to list transactions", "method", "List", "error", err)
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	items = []models.Transaction{}
	for rows.Next() {
		tx, scanErr := scanTransaction(rows)
		if scanErr != nil {
			err = fmt.Errorf("failed to scan transaction: %w", scanErr)
			slog.Error("failed to scan transaction", "method", "List", "error", scanErr)
			return nil, 0, err
		}
		items = append(items, *tx)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	if err = r.attachLogs(ctx, r.db, items); err != nil {
		return nil, 0, err
	}

	slog.Info("transactions listed", "method", "List", "count", len(items), "total", total)
	return items, total, nil
}

// Transition moves a transaction to status and applies the wallet delta of
// that move in one database transaction. Both rows are locked for the
// duration, so concurrent transitions for the same user serialise and the
// wallet always matches the stored statuses. A log entry is appended on
// every call, including no-op transitions.
func (r *PostgresTransactionRepository) Transition(ctx context.Context, id uuid.UUID, status ledger.Status, remarks string, at time.Time) (res *models.TransitionResult, err error) {
	ctx, span, finish := startCall(ctx, "transaction-repository", "TransitionTransaction")
	defer finish(&err)
	span.SetAttributes(
		attribute.String("transaction_id", id.String()),
		attribute.String("status", status.String()),
	)

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", "Transition", "error", err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	tx, err := scanTransaction(dbTx.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		slog.Error("transaction not found", "method", "Transition", "transaction_id", id)
		err = rollback(dbTx, "Transition", pkgerrors.ErrTransactionNotFound)
		return nil, err
	}
	if err != nil {
		slog.Error("failed to lock transaction", "method", "Transition", "transaction_id", id, "error", err)
		return nil, rollback(dbTx, "Transition", fmt.Errorf("failed to lock transaction: %w", err))
	}

	var wallet decimal.Decimal
	err = dbTx.QueryRowContext(ctx, `SELECT wallet FROM users WHERE id = $1 FOR UPDATE`, tx.UserID).Scan(&wallet)
	if stderrors.Is(err, sql.ErrNoRows) {
		slog.Error("owner of transaction not found", "method", "Transition", "transaction_id", id, "user_id", tx.UserID)
		err = rollback(dbTx, "Transition", pkgerrors.ErrUserNotFound)
		return nil, err
	}
	if err != nil {
		slog.Error("failed to lock user", "method", "Transition", "user_id", tx.UserID, "error", err)
		return nil, rollback(dbTx, "Transition", fmt.Errorf("failed to lock user: %w", err))
	}

	previous := tx.Status
	delta := ledger.Delta(ledger.Normalize(previous), status, tx.Amount)

	_, err = dbTx.ExecContext(ctx,
		`UPDATE transactions SET status = $1, remarks = $2, updated_at = $3 WHERE id = $4`,
		status.String(), remarks, at, id)
	if err != nil {
		slog.Error("failed to update transaction status", "method", "Transition", "transaction_id", id, "error", err)
		return nil, rollback(dbTx, "Transition", fmt.Errorf("failed to update transaction status: %w", err))
	}

	if !delta.IsZero() {
		err = dbTx.QueryRowContext(ctx,
			`UPDATE users SET wallet = wallet + $1, updated_at = $2 WHERE id = $3 RETURNING wallet`,
			delta, at, tx.UserID).Scan(&wallet)
		if err != nil {
			slog.Error("failed to adjust wallet", "method", "Transition", "user_id", tx.UserID, "delta", delta.String(), "error", err)
			return nil, rollback(dbTx, "Transition", fmt.Errorf("failed to adjust wallet: %w", err))
		}
	}

	_, err = dbTx.ExecContext(ctx,
		`INSERT INTO payment_logs (transaction_id, status, date, remarks) VALUES ($1, $2, $3, $4)`,
		id, status.String(), at, remarks)
	if err != nil {
		slog.Error("failed to append payment log", "method", "Transition", "transaction_id", id, "error", err)
		return nil, rollback(dbTx, "Transition", fmt.Errorf("failed to append payment log: %w", err))
	}

	logs, err := r.loadLogs(ctx, dbTx, []uuid.UUID{id})
	if err != nil {
		return nil, rollback(dbTx, "Transition", err)
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "method", "Transition", "error", err)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	tx.Status = status.String()
	tx.Remarks = remarks
	tx.UpdatedAt = at
	if l, ok := logs[id]; ok {
		tx.PaymentLogs = l
	}

	slog.Info("transaction status changed",
		"method", "Transition",
		"transaction_id", id,
		"user_id", tx.UserID,
		"from", previous,
		"to", status,
		"delta", delta.String(),
		"wallet", wallet.String())
	return &models.TransitionResult{
		Transaction:    tx,
		PreviousStatus: previous,
		Delta:          delta,
		Wallet:         wallet,
	}, nil
}

// Summary aggregates amounts and counts per status bucket, over one user's
// transactions when userID is set and over all transactions otherwise.
func (r *PostgresTransactionRepository) Summary(ctx context.Context, userID *uuid.UUID) (s *models.Summary, err error) {
	ctx, span, finish := startCall(ctx, "transaction-repository", "SummarizeTransactions")
	defer finish(&err)
	if userID != nil {
		span.SetAttributes(attribute.String("user_id", userID.String()))
	}

	s, err = summarize(ctx, r.db, userID)
	if err != nil {
		slog.Error("failed to summarize transactions", "method", "Summary", "user_id", userID, "error", err)
		return nil, err
	}
	return s, nil
}

func summarize(ctx context.Context, q queryer, userID *uuid.UUID) (*models.Summary, error) {
	query := summarySelect
	var args []any
	if userID != nil {
		query += ` WHERE user_id = $1`
		args = append(args, *userID)
	}

	var s models.Summary
	err := q.QueryRowContext(ctx, query, args...).Scan(
		&s.PendingAmount, &s.PendingCount,
		&s.ApprovedAmount, &s.ApprovedCount,
		&s.DeclinedAmount, &s.DeclinedCount,
		&s.TotalAmount, &s.TotalCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize transactions: %w", err)
	}
	return &s, nil
}

// Recompute overwrites the user's wallet with the sum of their approved
// transactions and stamps the user's totals onto every one of their
// transactions. This rewrites all n rows of the user on each call; the user
// row is locked for the duration so transitions cannot interleave.
func (r *PostgresTransactionRepository) Recompute(ctx context.Context, userID uuid.UUID, at time.Time) (items []models.Transaction, err error) {
	ctx, span, finish := startCall(ctx, "transaction-repository", "RecomputeWallet")
	defer finish(&err)
	span.SetAttributes(attribute.String("user_id", userID.String()))

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", "Recompute", "error", err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	var locked uuid.UUID
	err = dbTx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&locked)
	if stderrors.Is(err, sql.ErrNoRows) {
		slog.Error("user not found", "method", "Recompute", "user_id", userID)
		err = rollback(dbTx, "Recompute", pkgerrors.ErrUserNotFound)
		return nil, err
	}
	if err != nil {
		slog.Error("failed to lock user", "method", "Recompute", "user_id", userID, "error", err)
		return nil, rollback(dbTx, "Recompute", fmt.Errorf("failed to lock user: %w", err))
	}

	totals, err := summarize(ctx, dbTx, &userID)
	if err != nil {
		slog.Error("failed to compute totals", "method", "Recompute", "user_id", userID, "error", err)
		return nil, rollback(dbTx, "Recompute", err)
	}

	_, err = dbTx.ExecContext(ctx, `UPDATE users SET wallet = $1, updated_at = $2 WHERE id = $3`,
		totals.ApprovedAmount, at, userID)
	if err != nil {
		slog.Error("failed to overwrite wallet", "method", "Recompute", "user_id", userID, "error", err)
		return nil, rollback(dbTx, "Recompute", fmt.Errorf("failed to overwrite wallet: %w", err))
	}

	rows, err := dbTx.QueryContext(ctx, `
		UPDATE transactions
		SET total_amount = $1, pending_amount = $2, declined_amount = $3, approved_amount = $4, updated_at = $5
		WHERE user_id = $6
		RETURNING `+transactionColumns,
		totals.TotalAmount, totals.PendingAmount, totals.DeclinedAmount, totals.ApprovedAmount, at, userID)
	if err != nil {
		slog.Error("failed to stamp totals", "method", "Recompute", "user_id", userID, "error", err)
		return nil, rollback(dbTx, "Recompute", fmt.Errorf("failed to stamp totals: %w", err))
	}
	items = []models.Transaction{}
	for rows.Next() {
		tx, scanErr := scanTransaction(rows)
		if scanErr != nil {
			rows.Close()
			return nil, rollback(dbTx, "Recompute", fmt.Errorf("failed to scan transaction: %w", scanErr))
		}
		items = append(items, *tx)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return nil, rollback(dbTx, "Recompute", fmt.Errorf("failed to iterate transactions: %w", err))
	}
	rows.Close()

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "method", "Recompute", "error", err)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	if err = r.attachLogs(ctx, r.db, items); err != nil {
		return nil, err
	}

	slog.Info("wallet recomputed",
		"method", "Recompute",
		"user_id", userID,
		"wallet", totals.ApprovedAmount.String(),
		"total", totals.TotalAmount.String(),
		"rows", len(items))
	return items, nil
}

func (r *PostgresTransactionRepository) attachLogs(ctx context.Context, q queryer, items []models.Transaction) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	logs, err := r.loadLogs(ctx, q, ids)
	if err != nil {
		return err
	}
	for i := range items {
		if l, ok := logs[items[i].ID]; ok {
			items[i].PaymentLogs = l
		}
	}
	return nil
}

func (r *PostgresTransactionRepository) loadLogs(ctx context.Context, q queryer, ids []uuid.UUID) (map[uuid.UUID][]models.PaymentLog, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	rows, err := q.QueryContext(ctx,
		`SELECT transaction_id, status, date, remarks FROM payment_logs WHERE transaction_id = ANY($1::uuid[]) ORDER BY id`,
		pq.Array(keys))
	if err != nil {
		slog.Error("failed to load payment logs", "method", "loadLogs", "error", err)
		return nil, fmt.Errorf("failed to load payment logs: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]models.PaymentLog, len(ids))
	for rows.Next() {
		var (
			txID uuid.UUID
			l    models.PaymentLog
		)
		if err := rows.Scan(&txID, &l.Status, &l.Date, &l.Remarks); err != nil {
			return nil, fmt.Errorf("failed to scan payment log: %w", err)
		}
		out[txID] = append(out[txID], l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payment logs: %w", err)
	}
	return out, nil
}

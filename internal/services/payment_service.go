package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	stderrors "errors"

	"github.com/google/uuid"
	"github.com/honeynil/PaymentLedgerService/internal/infrastructure/blob"
	"github.com/honeynil/PaymentLedgerService/internal/infrastructure/ifsc"
	"github.com/honeynil/PaymentLedgerService/internal/infrastructure/kafka"
	"github.com/honeynil/PaymentLedgerService/internal/infrastructure/observability"
	"github.com/honeynil/PaymentLedgerService/internal/infrastructure/redis"
	"github.com/honeynil/PaymentLedgerService/internal/ledger"
	"github.com/honeynil/PaymentLedgerService/internal/models"
	"github.com/honeynil/PaymentLedgerService/internal/repository"
	pkgerrors "github.com/honeynil/PaymentLedgerService/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	PageLimit = 10

	// amountScale matches the NUMERIC(20,2) amount column.
	amountScale = 2

	lockTTL          = 5 * time.Second
	summaryTTL       = 30 * time.Second
	systemSummaryKey = "summary:system"
)

func userSummaryKey(userID uuid.UUID) string {
	return fmt.Sprintf("summary:user:%s", userID)
}

func userLockKey(userID uuid.UUID) string {
	return fmt.Sprintf("user:%s:lock", userID)
}

//go:generate mockgen -source=payment_service.go -destination=mocks/mock_payment_service.go -package=mocks

type PaymentService interface {
	CreateTransaction(ctx context.Context, in models.CreateTransactionInput) (*models.Transaction, error)
	ListTransactions(ctx context.Context, q models.ListQuery) (*models.Page, error)
	ListUserTransactions(ctx context.Context, userID string, q models.ListQuery) (*models.Page, error)
	TransitionStatus(ctx context.Context, id, status, remarks string) (*models.Transaction, error)
	SystemSummary(ctx context.Context) (*models.Summary, error)
	UserSummary(ctx context.Context, userID string) (*models.Summary, error)
	RecomputeUserWallet(ctx context.Context, userID string) ([]models.Transaction, error)
	ValidateIFSC(ctx context.Context, code string) (*ifsc.BankDetails, error)
}

type paymentService struct {
	transactionRepo repository.TransactionRepository
	userRepo        repository.UserRepository
	redisClient     redis.RedisClient
	events          *eventPublisher
	evidence        blob.Store
	ifsc            ifsc.Validator
	loc             *time.Location
	now             func() time.Time
}

func NewPaymentService(
	transactionRepo repository.TransactionRepository,
	userRepo repository.UserRepository,
	redisClient redis.RedisClient,
	producer kafka.KafkaProducer,
	eventsTopic string,
	evidence blob.Store,
	validator ifsc.Validator,
	loc *time.Location,
) *paymentService {
	if loc == nil {
		loc = time.UTC
	}
	return &paymentService{
		transactionRepo: transactionRepo,
		userRepo:        userRepo,
		redisClient:     redisClient,
		events:          newEventPublisher(producer, eventsTopic),
		evidence:        evidence,
		ifsc:            validator,
		loc:             loc,
		now:             time.Now,
	}
}

// CreateTransaction validates the request, checks bank codes against the
// IFSC directory, stores the evidence and persists a new transaction with a
// fresh reference number.
func (s *paymentService) CreateTransaction(ctx context.Context, in models.CreateTransactionInput) (*models.Transaction, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "CreateTransaction")
	defer span.End()

	if len(in.Evidence) == 0 {
		span.SetStatus(codes.Error, "evidence missing")
		return nil, pkgerrors.ErrEvidenceRequired
	}
	if err := checkInput(in); err != nil {
		span.SetStatus(codes.Error, "invalid input")
		slog.Warn("invalid create request", "error", err)
		return nil, err
	}
	if !in.Amount.IsPositive() {
		span.SetStatus(codes.Error, "invalid amount")
		return nil, fmt.Errorf("%w: amount must be positive", pkgerrors.ErrInvalidInput)
	}
	if in.Amount.Exponent() < -amountScale && !in.Amount.Equal(in.Amount.Round(amountScale)) {
		span.SetStatus(codes.Error, "invalid amount")
		return nil, fmt.Errorf("%w: amount has more than %d decimal places", pkgerrors.ErrInvalidInput, amountScale)
	}
	status, err := ledger.ParseStatus(in.Status)
	if err != nil {
		span.SetStatus(codes.Error, "invalid status")
		return nil, err
	}
	// The wallet is only credited by a transition into Approved, so every
	// transaction has to start out Pending.
	if status != ledger.StatusPending {
		span.SetStatus(codes.Error, "invalid initial status")
		return nil, fmt.Errorf("%w: new transactions must be %s, got %q", pkgerrors.ErrInvalidInput, ledger.StatusPending, in.Status)
	}
	userID, err := uuid.Parse(in.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed userId", pkgerrors.ErrInvalidInput)
	}
	span.SetAttributes(attribute.String("user_id", userID.String()), attribute.String("type", string(in.TransactionType)))

	bankName := in.BankName
	if in.TransactionType == models.TypeBank {
		details, err := s.ifsc.Validate(ctx, in.IFSC)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "IFSC validation failed")
			slog.Warn("IFSC validation failed", "ifsc", in.IFSC, "user_id", userID, "error", err)
			return nil, err
		}
		if bankName == "" {
			bankName = details.Bank
		}
	}

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user lookup failed")
		slog.Error("failed to find owner", "user_id", userID, "error", err)
		return nil, err
	}

	ref, err := s.evidence.Save(ctx, in.EvidenceName, in.Evidence)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evidence upload failed")
		return nil, fmt.Errorf("%w: failed to store evidence", pkgerrors.ErrInternal)
	}

	tx := &models.Transaction{
		UserID:          userID,
		Amount:          in.Amount.Round(amountScale),
		AccountHolder:   strings.TrimSpace(in.AccountHolder),
		TransactionType: in.TransactionType,
		AccountNumber:   in.AccountNumber,
		BankName:        bankName,
		IFSC:            strings.ToUpper(strings.TrimSpace(in.IFSC)),
		UPI:             in.UPI,
		Status:          status.String(),
		Image:           ref,
	}
	if err := s.transactionRepo.Create(ctx, tx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction creation failed")
		slog.Error("failed to create transaction", "user_id", userID, "error", err)
		return nil, err
	}

	s.invalidateSummaries(ctx, userID)
	s.events.publish(ctx, tx.ID.String(), models.PaymentEvent{
		EventType:     models.EventTransactionCreated,
		TransactionID: &tx.ID,
		TrnID:         tx.TrnID,
		UserID:        tx.UserID,
		Amount:        &tx.Amount,
		Status:        tx.Status,
		OccurredAt:    s.now().UTC(),
	})

	slog.Info("transaction created", "id", tx.ID, "trn_id", tx.TrnID, "user_id", userID, "amount", tx.Amount.String())
	return tx, nil
}

func (s *paymentService) ListTransactions(ctx context.Context, q models.ListQuery) (*models.Page, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "ListTransactions")
	defer span.End()

	return s.list(ctx, nil, q)
}

func (s *paymentService) ListUserTransactions(ctx context.Context, userID string, q models.ListQuery) (*models.Page, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "ListUserTransactions")
	defer span.End()

	id, err := parseUserID(userID)
	if err != nil {
		span.SetStatus(codes.Error, "invalid user id")
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user lookup failed")
		slog.Error("failed to find user", "user_id", id, "error", err)
		return nil, err
	}
	return s.list(ctx, &id, q)
}

func (s *paymentService) list(ctx context.Context, userID *uuid.UUID, q models.ListQuery) (*models.Page, error) {
	from, to, err := ledger.DayRange(strings.TrimSpace(q.StartDate), strings.TrimSpace(q.EndDate), s.loc)
	if err != nil {
		return nil, err
	}
	page := q.Page
	if page < 1 {
		page = 1
	}

	var status string
	if strings.TrimSpace(q.Status) != "" {
		parsed, err := ledger.ParseStatus(q.Status)
		if err != nil {
			return nil, err
		}
		status = parsed.String()
	}

	items, total, err := s.transactionRepo.List(ctx, models.ListFilter{
		UserID: userID,
		Status: status,
		From:   from,
		To:     to,
		Limit:  PageLimit,
		Offset: (page - 1) * PageLimit,
	})
	if err != nil {
		slog.Error("failed to list transactions", "user_id", userID, "error", err)
		return nil, err
	}

	return &models.Page{
		Items: items,
		Total: total,
		Page:  page,
		Limit: PageLimit,
		Pages: ledger.Pages(total, PageLimit),
	}, nil
}

// TransitionStatus moves a transaction to a new status and applies the wallet
// side effect of that move. Only one admin operation per user runs at a time;
// a concurrent one fails with ErrBalanceLocked.
func (s *paymentService) TransitionStatus(ctx context.Context, id, status, remarks string) (*models.Transaction, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "TransitionStatus")
	defer span.End()

	if strings.TrimSpace(id) == "" {
		span.SetStatus(codes.Error, "id missing")
		return nil, fmt.Errorf("%w: transaction id is required", pkgerrors.ErrInvalidInput)
	}
	txID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		span.SetStatus(codes.Error, "invalid id")
		return nil, fmt.Errorf("%w: malformed transaction id", pkgerrors.ErrInvalidInput)
	}
	next, err := ledger.ParseStatus(status)
	if err != nil {
		span.SetStatus(codes.Error, "invalid status")
		return nil, err
	}
	span.SetAttributes(attribute.String("transaction_id", txID.String()), attribute.String("status", next.String()))

	current, err := s.transactionRepo.GetByID(ctx, txID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction lookup failed")
		return nil, err
	}

	unlock, err := s.lockUser(ctx, current.UserID)
	if err != nil {
		span.SetStatus(codes.Error, "wallet locked")
		return nil, err
	}
	defer unlock()

	res, err := s.transactionRepo.Transition(ctx, txID, next, remarks, s.now().UTC())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition failed")
		slog.Error("failed to transition transaction", "transaction_id", txID, "status", next, "error", err)
		return nil, err
	}

	observability.StatusTransitions.WithLabelValues(statusLabel(next)).Inc()
	switch {
	case res.Delta.IsPositive():
		observability.WalletAdjustments.WithLabelValues("credit").Inc()
	case res.Delta.IsNegative():
		observability.WalletAdjustments.WithLabelValues("debit").Inc()
	}

	s.invalidateSummaries(ctx, res.Transaction.UserID)
	s.events.publish(ctx, txID.String(), models.PaymentEvent{
		EventType:      models.EventStatusChanged,
		TransactionID:  &res.Transaction.ID,
		TrnID:          res.Transaction.TrnID,
		UserID:         res.Transaction.UserID,
		Amount:         &res.Transaction.Amount,
		Status:         res.Transaction.Status,
		PreviousStatus: res.PreviousStatus,
		Delta:          &res.Delta,
		Wallet:         &res.Wallet,
		OccurredAt:     s.now().UTC(),
	})

	slog.Info("transaction status updated",
		"transaction_id", txID,
		"from", res.PreviousStatus,
		"to", res.Transaction.Status,
		"delta", res.Delta.String(),
		"wallet", res.Wallet.String())
	return res.Transaction, nil
}

func (s *paymentService) SystemSummary(ctx context.Context) (*models.Summary, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "SystemSummary")
	defer span.End()

	return s.cachedSummary(ctx, systemSummaryKey, nil)
}

func (s *paymentService) UserSummary(ctx context.Context, userID string) (*models.Summary, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "UserSummary")
	defer span.End()

	id, err := parseUserID(userID)
	if err != nil {
		span.SetStatus(codes.Error, "invalid user id")
		return nil, err
	}
	return s.cachedSummary(ctx, userSummaryKey(id), &id)
}

func (s *paymentService) cachedSummary(ctx context.Context, key string, userID *uuid.UUID) (*models.Summary, error) {
	cached, err := s.redisClient.Get(ctx, key)
	if err == nil {
		var summary models.Summary
		if err := json.Unmarshal([]byte(cached), &summary); err == nil {
			slog.Debug("summary fetched from Redis", "key", key)
			return &summary, nil
		}
		slog.Error("failed to unmarshal cached summary", "key", key)
	} else if !stderrors.Is(err, redis.ErrKeyNotFound) {
		slog.Warn("failed to read summary cache", "key", key, "error", err)
	}

	summary, err := s.transactionRepo.Summary(ctx, userID)
	if err != nil {
		slog.Error("failed to summarize transactions", "key", key, "error", err)
		return nil, err
	}

	if payload, err := json.Marshal(summary); err == nil {
		if err := s.redisClient.Set(ctx, key, string(payload), summaryTTL); err != nil {
			slog.Error("failed to cache summary", "key", key, "error", err)
		}
	}
	return summary, nil
}

// RecomputeUserWallet is an administrative resync: it overwrites the wallet
// with the sum of the user's approved transactions and stamps the user's
// totals on each of their transactions. Every row of the user is rewritten.
func (s *paymentService) RecomputeUserWallet(ctx context.Context, userID string) ([]models.Transaction, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "RecomputeUserWallet")
	defer span.End()

	id, err := parseUserID(userID)
	if err != nil {
		span.SetStatus(codes.Error, "invalid user id")
		return nil, err
	}
	span.SetAttributes(attribute.String("user_id", id.String()))

	if _, err := s.userRepo.GetByID(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user lookup failed")
		slog.Error("failed to find user", "user_id", id, "error", err)
		return nil, err
	}

	unlock, err := s.lockUser(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, "wallet locked")
		return nil, err
	}
	defer unlock()

	items, err := s.transactionRepo.Recompute(ctx, id, s.now().UTC())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "recompute failed")
		slog.Error("failed to recompute wallet", "user_id", id, "error", err)
		return nil, err
	}
	observability.WalletRecomputes.Inc()

	s.invalidateSummaries(ctx, id)
	event := models.PaymentEvent{
		EventType:  models.EventWalletRecomputed,
		UserID:     id,
		OccurredAt: s.now().UTC(),
	}
	if len(items) > 0 {
		event.Wallet = &items[0].ApprovedAmount
	}
	s.events.publish(ctx, id.String(), event)

	slog.Info("wallet recomputed", "user_id", id, "transactions", len(items))
	return items, nil
}

func (s *paymentService) ValidateIFSC(ctx context.Context, code string) (*ifsc.BankDetails, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "ValidateIFSC")
	defer span.End()

	details, err := s.ifsc.Validate(ctx, code)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "IFSC validation failed")
		return nil, err
	}
	return details, nil
}

func (s *paymentService) lockUser(ctx context.Context, userID uuid.UUID) (func(), error) {
	key := userLockKey(userID)
	ok, err := s.redisClient.SetNX(ctx, key, "locked", lockTTL)
	if err != nil {
		slog.Error("failed to acquire lock", "user_id", userID, "error", err)
		return nil, pkgerrors.ErrBalanceLocked
	}
	if !ok {
		slog.Warn("wallet is locked", "user_id", userID)
		return nil, pkgerrors.ErrBalanceLocked
	}
	return func() {
		if err := s.redisClient.Del(context.WithoutCancel(ctx), key); err != nil {
			slog.Error("failed to release lock", "user_id", userID, "error", err)
		}
	}, nil
}

func (s *paymentService) invalidateSummaries(ctx context.Context, userID uuid.UUID) {
	if err := s.redisClient.Del(ctx, systemSummaryKey, userSummaryKey(userID)); err != nil {
		slog.Error("failed to invalidate summaries", "user_id", userID, "error", err)
	}
}

func parseUserID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.ErrInvalidUserID
	}
	return id, nil
}

// statusLabel keeps free-text statuses out of metric label values.
func statusLabel(s ledger.Status) string {
	switch s {
	case ledger.StatusPending, ledger.StatusApproved, ledger.StatusDeclined:
		return strings.ToLower(s.String())
	default:
		return "other"
	}
}

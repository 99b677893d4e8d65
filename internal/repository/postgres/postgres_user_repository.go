package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/honeynil/PaymentLedgerService/internal/models"
	pkgerrors "github.com/honeynil/PaymentLedgerService/pkg/errors"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
)

const uniqueViolation = "23505"

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// Create inserts an account with an empty wallet. Wallets only move through
// status transitions and recomputes afterwards.
func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) (err error) {
	ctx, span, finish := startCall(ctx, "user-repository", "CreateUser")
	defer finish(&err)

	if user == nil {
		err = pkgerrors.ErrNilUser
		return err
	}
	if user.Email == "" {
		err = fmt.Errorf("%w: email is required", pkgerrors.ErrInvalidInput)
		return err
	}
	if user.PasswordHash == "" {
		err = fmt.Errorf("%w: password_hash is required", pkgerrors.ErrInvalidInput)
		return err
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	user.ID = uuid.New()
	span.SetAttributes(attribute.String("user_id", user.ID.String()), attribute.String("role", string(user.Role)))

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `
		INSERT INTO users (id, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING wallet, created_at, updated_at`
	err = dbTx.QueryRowContext(ctx, query, user.ID, user.Name, strings.ToLower(user.Email), user.PasswordHash, user.Role).
		Scan(&user.Wallet, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			slog.Warn("user already exists", "method", "Create", "email", user.Email, "role", user.Role)
			err = rollback(dbTx, "Create", pkgerrors.ErrUserAlreadyExists)
			return err
		}
		slog.Error("failed to create user", "method", "Create", "email", user.Email, "error", err)
		return rollback(dbTx, "Create", fmt.Errorf("failed to create user: %w", err))
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "method", "Create", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("user created", "method", "Create", "user_id", user.ID, "role", user.Role)
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id uuid.UUID) (user *models.User, err error) {
	ctx, span, finish := startCall(ctx, "user-repository", "GetUserByID")
	defer finish(&err)
	span.SetAttributes(attribute.String("user_id", id.String()))

	query := `SELECT id, name, email, password_hash, role, wallet, created_at, updated_at FROM users WHERE id = $1`
	user, err = scanUser(r.db.QueryRowContext(ctx, query, id))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = pkgerrors.ErrUserNotFound
		return nil, err
	case err != nil:
		slog.Error("failed to get user by id", "method", "GetByID", "user_id", id, "error", err)
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string, role models.Role) (user *models.User, err error) {
	ctx, _, finish := startCall(ctx, "user-repository", "GetUserByEmail")
	defer finish(&err)

	if email == "" {
		err = fmt.Errorf("%w: email cannot be empty", pkgerrors.ErrInvalidInput)
		return nil, err
	}

	query := `SELECT id, name, email, password_hash, role, wallet, created_at, updated_at FROM users WHERE email = $1 AND role = $2`
	user, err = scanUser(r.db.QueryRowContext(ctx, query, strings.ToLower(email), role))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = pkgerrors.ErrUserNotFound
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Wallet, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

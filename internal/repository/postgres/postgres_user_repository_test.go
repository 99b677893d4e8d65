package repository_test

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/honeynil/PaymentLedgerService/internal/models"
	repository "github.com/honeynil/PaymentLedgerService/internal/repository/postgres"
	pkgerrors "github.com/honeynil/PaymentLedgerService/pkg/errors"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var userColumns = []string{"id", "name", "email", "password_hash", "role", "wallet", "created_at", "updated_at"}

func TestPostgresUserRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresUserRepository(db)
	ctx := context.Background()

	newUser := func() *models.User {
		return &models.User{Name: "Asha", Email: "Asha@Example.com", PasswordHash: "hash"}
	}

	t.Run("NilUser", func(t *testing.T) {
		err := repo.Create(ctx, nil)
		assert.ErrorIs(t, err, pkgerrors.ErrNilUser)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("EmptyPasswordHash", func(t *testing.T) {
		user := newUser()
		user.PasswordHash = ""
		err := repo.Create(ctx, user)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
		assert.Contains(t, err.Error(), "password_hash is required")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success", func(t *testing.T) {
		user := newUser()
		now := time.Now().UTC()
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (id, name, email, password_hash, role)`)).
			WithArgs(sqlmock.AnyArg(), "Asha", "asha@example.com", "hash", models.RoleUser).
			WillReturnRows(sqlmock.NewRows([]string{"wallet", "created_at", "updated_at"}).AddRow("0", now, now))
		mock.ExpectCommit()

		err := repo.Create(ctx, user)
		assert.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, user.ID)
		assert.Equal(t, models.RoleUser, user.Role)
		assert.True(t, user.Wallet.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UserAlreadyExists", func(t *testing.T) {
		user := newUser()
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
			WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		err := repo.Create(ctx, user)
		assert.ErrorIs(t, err, pkgerrors.ErrUserAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollbackError", func(t *testing.T) {
		user := newUser()
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
			WillReturnError(fmt.Errorf("database error"))
		mock.ExpectRollback().WillReturnError(fmt.Errorf("rollback error"))

		err := repo.Create(ctx, user)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "rollback failed")
		assert.Contains(t, err.Error(), "database error")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CommitError", func(t *testing.T) {
		user := newUser()
		now := time.Now().UTC()
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
			WillReturnRows(sqlmock.NewRows([]string{"wallet", "created_at", "updated_at"}).AddRow("0", now, now))
		mock.ExpectCommit().WillReturnError(fmt.Errorf("commit error"))

		err := repo.Create(ctx, user)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to commit transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresUserRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresUserRepository(db)
	ctx := context.Background()
	query := regexp.QuoteMeta(`SELECT id, name, email, password_hash, role, wallet, created_at, updated_at FROM users WHERE id = $1`)

	t.Run("Success", func(t *testing.T) {
		userID := uuid.New()
		now := time.Now().UTC()
		mock.ExpectQuery(query).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows(userColumns).
				AddRow(userID.String(), "Asha", "asha@example.com", "hash", "user", "250.50", now, now))

		user, err := repo.GetByID(ctx, userID)
		assert.NoError(t, err)
		assert.Equal(t, userID, user.ID)
		assert.Equal(t, models.RoleUser, user.Role)
		assert.True(t, decimal.RequireFromString("250.50").Equal(user.Wallet))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UserNotFound", func(t *testing.T) {
		userID := uuid.New()
		mock.ExpectQuery(query).WithArgs(userID).WillReturnError(sql.ErrNoRows)

		user, err := repo.GetByID(ctx, userID)
		assert.Nil(t, user)
		assert.ErrorIs(t, err, pkgerrors.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DatabaseError", func(t *testing.T) {
		userID := uuid.New()
		mock.ExpectQuery(query).WithArgs(userID).WillReturnError(fmt.Errorf("database error"))

		user, err := repo.GetByID(ctx, userID)
		assert.Nil(t, user)
		assert.Contains(t, err.Error(), "failed to get user by id")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresUserRepository_GetByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresUserRepository(db)
	ctx := context.Background()
	query := regexp.QuoteMeta(`FROM users WHERE email = $1 AND role = $2`)

	t.Run("Success", func(t *testing.T) {
		userID := uuid.New()
		now := time.Now().UTC()
		mock.ExpectQuery(query).
			WithArgs("root@example.com", models.RoleAdmin).
			WillReturnRows(sqlmock.NewRows(userColumns).
				AddRow(userID.String(), "Root", "root@example.com", "hash", "admin", "0", now, now))

		user, err := repo.GetByEmail(ctx, "ROOT@example.com", models.RoleAdmin)
		assert.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, user.Role)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("EmptyEmail", func(t *testing.T) {
		user, err := repo.GetByEmail(ctx, "", models.RoleUser)
		assert.Nil(t, user)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UserNotFound", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs("ghost@example.com", models.RoleUser).
			WillReturnError(sql.ErrNoRows)

		user, err := repo.GetByEmail(ctx, "ghost@example.com", models.RoleUser)
		assert.Nil(t, user)
		assert.ErrorIs(t, err, pkgerrors.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

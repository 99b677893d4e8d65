package repository_test

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	repository "github.com/honeynil/PaymentLedgerService/internal/repository/postgres"
	"github.com/stretchr/testify/assert"
)

const upsertCounter = `INSERT INTO counters (name, seq) VALUES ($1, $2)`

func TestPostgresSequenceRepository_Next(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresSequenceRepository(db, 1000)
	ctx := context.Background()

	t.Run("FirstValueStartsAfterBase", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(upsertCounter)).
			WithArgs("payment", int64(1001)).
			WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(int64(1001)))

		seq, err := repo.Next(ctx, "payment")
		assert.NoError(t, err)
		assert.Equal(t, int64(1001), seq)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("IncrementsInOneStatement", func(t *testing.T) {
		// No BeginTx is expected: read and increment happen in a single upsert,
		// so concurrent callers serialise on the counter row.
		atomicUpsert := `INSERT INTO counters \(name, seq\) VALUES \(\$1, \$2\)\s+` +
			`ON CONFLICT \(name\) DO UPDATE SET seq = counters\.seq \+ 1\s+RETURNING seq`
		for _, want := range []int64{1002, 1003} {
			mock.ExpectQuery(atomicUpsert).
				WithArgs("payment", int64(1001)).
				WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(want))
		}

		first, err := repo.Next(ctx, "payment")
		assert.NoError(t, err)
		second, err := repo.Next(ctx, "payment")
		assert.NoError(t, err)
		assert.Equal(t, int64(1002), first)
		assert.Equal(t, int64(1003), second)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RetriesTransientFailure", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(upsertCounter)).
			WithArgs("payment", int64(1001)).
			WillReturnError(fmt.Errorf("connection reset"))
		mock.ExpectQuery(regexp.QuoteMeta(upsertCounter)).
			WithArgs("payment", int64(1001)).
			WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(int64(1042)))

		seq, err := repo.Next(ctx, "payment")
		assert.NoError(t, err)
		assert.Equal(t, int64(1042), seq)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("GivesUpAfterRetries", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			mock.ExpectQuery(regexp.QuoteMeta(upsertCounter)).
				WithArgs("payment", int64(1001)).
				WillReturnError(fmt.Errorf("database down"))
		}

		seq, err := repo.Next(ctx, "payment")
		assert.Equal(t, int64(0), seq)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to increment sequence payment")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresSequenceRepository_NoRetryConfigured(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresSequenceRepository(db, 1000).WithMaxRetries(0)

	mock.ExpectQuery(regexp.QuoteMeta(upsertCounter)).
		WithArgs("payment", int64(1001)).
		WillReturnError(fmt.Errorf("database down"))

	_, err = repo.Next(context.Background(), "payment")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

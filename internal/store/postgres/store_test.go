package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/forumvac/forumvac/internal/store"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *Store) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewWithPool(mock, zap.NewNop())
}

// anyArgs builds n pgxmock.AnyArg placeholders; pgxmock matches argument
// count strictly, so expectations must declare the query's arity.
func anyArgs(n int) []interface{} {
	args := make([]interface{}, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func sampleThread() store.Thread {
	return store.Thread{
		ThreadID:      "t1",
		ThreadSubject: "subject",
		ThreadViews:   "3",
		ThreadType:    "normal",
		ThreadStatus:  "open",
		ForumID:       "f1",
		CategoryID:    "c1",
	}
}

func TestUpsertThreadInsertPath(t *testing.T) {
	mock, s := newMockStore(t)

	mock.ExpectExec("INSERT INTO forum_threads").
		WithArgs(anyArgs(8)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.UpsertThread(context.Background(), sampleThread()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertThreadConflictFallsBackToUpdate(t *testing.T) {
	mock, s := newMockStore(t)

	mock.ExpectExec("INSERT INTO forum_threads").
		WithArgs(anyArgs(8)...).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})
	mock.ExpectExec("UPDATE forum_threads").
		WithArgs(anyArgs(8)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.UpsertThread(context.Background(), sampleThread()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertThreadUpdateMatchedNothingIsSwallowed(t *testing.T) {
	mock, s := newMockStore(t)

	mock.ExpectExec("INSERT INTO forum_threads").
		WithArgs(anyArgs(8)...).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})
	mock.ExpectExec("UPDATE forum_threads").
		WithArgs(anyArgs(8)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, s.UpsertThread(context.Background(), sampleThread()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertThreadNonConflictErrorIsFatal(t *testing.T) {
	mock, s := newMockStore(t)

	mock.ExpectExec("INSERT INTO forum_threads").
		WithArgs(anyArgs(8)...).
		WillReturnError(errors.New("relation does not exist"))

	err := s.UpsertThread(context.Background(), sampleThread())
	require.Error(t, err)
	require.Contains(t, err.Error(), "insert thread t1")
}

func TestUpsertThreadUpdateErrorIsFatal(t *testing.T) {
	mock, s := newMockStore(t)

	mock.ExpectExec("INSERT INTO forum_threads").
		WithArgs(anyArgs(8)...).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})
	mock.ExpectExec("UPDATE forum_threads").
		WithArgs(anyArgs(8)...).
		WillReturnError(errors.New("connection reset"))

	err := s.UpsertThread(context.Background(), sampleThread())
	require.Error(t, err)
	require.Contains(t, err.Error(), "update thread t1")
}

func TestHasImage(t *testing.T) {
	mock, s := newMockStore(t)

	mock.ExpectQuery("SELECT 1 FROM images").
		WithArgs("http://x/a.png").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery("SELECT 1 FROM images").
		WithArgs("http://x/b.png").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}))

	ok, err := s.HasImage(context.Background(), "http://x/a.png")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.HasImage(context.Background(), "http://x/b.png")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertApplication(t *testing.T) {
	mock, s := newMockStore(t)

	mock.ExpectExec("INSERT INTO applications").
		WithArgs(anyArgs(9)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	app := store.Application{ApplicationID: "a1", Title: "join us", UserData: []byte(`{"q":"a"}`)}
	require.NoError(t, s.UpsertApplication(context.Background(), app))
	require.NoError(t, mock.ExpectationsWereMet())
}

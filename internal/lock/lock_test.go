package redlock

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_Lock(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "job-key", "owner-1")

	mock.ExpectSetNX("job-key", "owner-1", 5*time.Second).SetVal(true)
	assert.NoError(t, locker.Lock(context.Background(), 5*time.Second))

	mock.ExpectSetNX("job-key", "owner-1", 5*time.Second).SetVal(false)
	err := locker.Lock(context.Background(), 5*time.Second)
	assert.True(t, errors.Is(err, ErrLockHeld))

	mock.ExpectSetNX("job-key", "owner-1", 5*time.Second).SetErr(errors.New("connection refused"))
	err = locker.Lock(context.Background(), 5*time.Second)
	assert.EqualError(t, err, "connection refused")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_Unlock(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "job-key", "owner-1")

	mock.ExpectEval(unlockScript, []string{"job-key"}, "owner-1").SetVal(int64(1))
	assert.NoError(t, locker.Unlock(context.Background()))

	mock.ExpectEval(unlockScript, []string{"job-key"}, "owner-1").SetVal(int64(0))
	assert.True(t, errors.Is(locker.Unlock(context.Background()), ErrNotHolder))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_ExtendLock(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "job-key", "owner-1")

	mock.ExpectEval(extendScript, []string{"job-key"}, "owner-1", int64(2000)).SetVal(int64(1))
	assert.NoError(t, locker.ExtendLock(context.Background(), 2*time.Second))

	mock.ExpectEval(extendScript, []string{"job-key"}, "owner-1", int64(2000)).SetVal(int64(0))
	assert.True(t, errors.Is(locker.ExtendLock(context.Background(), 2*time.Second), ErrNotHolder))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_WaitLock(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "job-key", "owner-1")

	mock.ExpectSetNX("job-key", "owner-1", time.Second).SetVal(false)
	mock.ExpectSetNX("job-key", "owner-1", time.Second).SetVal(true)

	err := locker.WaitLock(context.Background(), time.Second, time.Second)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_WaitLockGivesUp(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.MatchExpectationsInOrder(false)
	locker := NewLocker(db, "job-key", "owner-1")

	for i := 0; i < 50; i++ {
		mock.ExpectSetNX("job-key", "owner-1", time.Second).SetVal(false)
	}

	err := locker.WaitLock(context.Background(), time.Second, 10*time.Millisecond)
	assert.True(t, errors.Is(err, ErrLockHeld))
}

func TestLocker_WithLock(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "job-key", "owner-1")

	mock.ExpectSetNX("job-key", "owner-1", time.Minute).SetVal(true)
	mock.ExpectEval(unlockScript, []string{"job-key"}, "owner-1").SetVal(int64(1))

	ran := false
	err := locker.WithLock(context.Background(), time.Minute, func(ctx context.Context) error {
		ran = true
		return errors.New("commit failed")
	})
	assert.EqualError(t, err, "commit failed")
	assert.True(t, ran)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_WithLockSkipsWhenHeld(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "job-key", "owner-1")

	mock.ExpectSetNX("job-key", "owner-1", time.Minute).SetVal(false)

	err := locker.WithLock(context.Background(), time.Minute, func(ctx context.Context) error {
		t.Fatal("fn must not run without the lock")
		return nil
	})
	assert.True(t, errors.Is(err, ErrLockHeld))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewCommitLocker(t *testing.T) {
	db, _ := redismock.NewClientMock()

	a := NewCommitLocker(db, "job_1")
	b := NewCommitLocker(db, "job_1")
	require.Equal(t, a.Key(), b.Key())
	assert.True(t, strings.HasSuffix(a.Key(), "job_1"))
	assert.NotEqual(t, a.value, b.value)
}

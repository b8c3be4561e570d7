// Package redlock serializes work across processes with a single-key Redis lock.
package redlock

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockHeld  = errors.New("lock is held by another owner")
	ErrNotHolder = errors.New("lock expired or is held by another owner")
)

const (
	unlockScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"
	extendScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('pexpire', KEYS[1], ARGV[2]) else return 0 end"

	maxRetryJitter = 100 * time.Millisecond
)

// Locker owns one lock key. The value identifies the owner so that only the
// holder can release or extend the lock.
type Locker struct {
	client redis.UniversalClient
	key    string
	value  string
}

func NewLocker(client redis.UniversalClient, key, value string) *Locker {
	return &Locker{client: client, key: key, value: value}
}

// CommitKey is the lock key that guards the commit of one job.
func CommitKey(jobID string) string {
	return fmt.Sprintf("passbook:lock:commit:%s", jobID)
}

// NewCommitLocker returns a locker for jobID owned by a fresh random value.
func NewCommitLocker(client redis.UniversalClient, jobID string) *Locker {
	return NewLocker(client, CommitKey(jobID), uuid.NewString())
}

func (l *Locker) Key() string {
	return l.key
}

func (l *Locker) Lock(ctx context.Context, ttl time.Duration) error {
	ok, err := l.client.SetNX(ctx, l.key, l.value, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLockHeld, l.key)
	}
	return nil
}

func (l *Locker) Unlock(ctx context.Context) error {
	res, err := l.client.Eval(ctx, unlockScript, []string{l.key}, l.value).Result()
	if err != nil {
		return err
	}
	if res == int64(0) {
		return fmt.Errorf("%w: %s", ErrNotHolder, l.key)
	}
	return nil
}

func (l *Locker) ExtendLock(ctx context.Context, extension time.Duration) error {
	res, err := l.client.Eval(ctx, extendScript, []string{l.key}, l.value, extension.Milliseconds()).Result()
	if err != nil {
		return err
	}
	if res == int64(0) {
		return fmt.Errorf("%w: %s", ErrNotHolder, l.key)
	}
	return nil
}

// WaitLock retries Lock with jitter until it succeeds, ctx ends or wait elapses.
func (l *Locker) WaitLock(ctx context.Context, ttl, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	for {
		err := l.Lock(ctx, ttl)
		if err == nil || !errors.Is(err, ErrLockHeld) {
			return err
		}
		if !time.Now().Before(deadline) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(rand.Int63n(int64(maxRetryJitter)))):
		}
	}
}

// WithLock runs fn while holding the lock. The lock is released when fn returns.
func (l *Locker) WithLock(ctx context.Context, ttl time.Duration, fn func(ctx context.Context) error) error {
	if err := l.Lock(ctx, ttl); err != nil {
		return err
	}
	defer func() {
		_ = l.Unlock(context.WithoutCancel(ctx))
	}()
	return fn(ctx)
}

package redis_db

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		skipTLS  bool
		addr     string
		password string
		db       int
		tls      bool
		wantErr  bool
	}{
		{name: "docker style", url: "redis:6379", addr: "redis:6379"},
		{name: "password with colon", url: "redis://:password123@localhost:6379", addr: "localhost:6379", password: "password123"},
		{name: "password without colon", url: "redis://password123@localhost:6379", addr: "localhost:6379", password: "password123"},
		{name: "no scheme with password", url: "password123@localhost:6379", addr: "localhost:6379", password: "password123"},
		{name: "database index", url: "redis://localhost:6379/2", addr: "localhost:6379", db: 2},
		{name: "tls", url: "rediss://:secret@cache.example.com:6380", skipTLS: true, addr: "cache.example.com:6380", password: "secret", tls: true},
		{name: "empty", url: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRedisURL(tt.url, tt.skipTLS)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.addr, got.Addr)
			assert.Equal(t, tt.password, got.Password)
			assert.Equal(t, tt.db, got.DB)
			if tt.tls {
				require.NotNil(t, got.TLSConfig)
				assert.True(t, got.TLSConfig.InsecureSkipVerify)
			} else {
				assert.Nil(t, got.TLSConfig)
			}
		})
	}
}

func TestSplitAddresses(t *testing.T) {
	assert.Equal(t, []string{"a:6379", "b:6379"}, SplitAddresses(" a:6379, ,b:6379 "))
	assert.Nil(t, SplitAddresses(""))
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	r, err := NewRedisClient([]string{mr.Addr()}, false)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Client().Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	opt, ok := r.AsynqConnOpt().(asynq.RedisClientOpt)
	require.True(t, ok)
	assert.Equal(t, mr.Addr(), opt.Addr)
}

func TestNewRedisClient_Errors(t *testing.T) {
	_, err := NewRedisClient(nil, false)
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisClient([]string{addr}, false)
	assert.Error(t, err)
}

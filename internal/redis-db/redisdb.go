/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package redis_db

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const pingTimeout = 500 * time.Millisecond

// Redis wraps a client for either a single instance or a cluster, and
// remembers how it was built so the task queue can connect the same way.
type Redis struct {
	addresses []string
	options   *redis.Options
	cluster   *redis.UniversalOptions
	client    redis.UniversalClient
}

// SplitAddresses turns a comma separated DNS setting into addresses.
func SplitAddresses(dns string) []string {
	var out []string
	for _, part := range strings.Split(dns, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseRedisURL accepts either a bare host:port or a redis:// / rediss:// URL.
// A URL carrying only a password before the @ is read as password, not user.
func ParseRedisURL(rawURL string, skipTLSVerify bool) (*redis.Options, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, errors.New("redis address is empty")
	}
	if !strings.Contains(rawURL, "://") {
		if strings.Contains(rawURL, "@") {
			rawURL = "redis://" + rawURL
		} else {
			return &redis.Options{Addr: rawURL}, nil
		}
	}

	scheme, rest, _ := strings.Cut(rawURL, "://")
	if auth, host, ok := strings.Cut(rest, "@"); ok && !strings.Contains(auth, ":") {
		rawURL = scheme + "://:" + auth + "@" + host
	}

	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	if opts.TLSConfig != nil && skipTLSVerify {
		opts.TLSConfig.InsecureSkipVerify = true
	}
	return opts, nil
}

// NewRedisClient connects to addresses and pings the server. One address
// gives a standalone client, several give a cluster client.
func NewRedisClient(addresses []string, skipTLSVerify bool) (*Redis, error) {
	if len(addresses) == 0 {
		return nil, errors.New("redis addresses list cannot be empty")
	}

	r := &Redis{addresses: addresses}
	if len(addresses) == 1 {
		opts, err := ParseRedisURL(addresses[0], skipTLSVerify)
		if err != nil {
			return nil, err
		}
		r.options = opts
		r.client = redis.NewClient(opts)
	} else {
		cluster, err := clusterOptions(addresses, skipTLSVerify)
		if err != nil {
			return nil, err
		}
		r.cluster = cluster
		r.client = redis.NewUniversalClient(cluster)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		_ = r.client.Close()
		return nil, err
	}
	return r, nil
}

func clusterOptions(addresses []string, skipTLSVerify bool) (*redis.UniversalOptions, error) {
	opts := &redis.UniversalOptions{}
	for _, addr := range addresses {
		o, err := ParseRedisURL(addr, skipTLSVerify)
		if err != nil {
			return nil, err
		}
		opts.Addrs = append(opts.Addrs, o.Addr)
		if opts.Password == "" {
			opts.Password = o.Password
		}
		if o.TLSConfig != nil && opts.TLSConfig == nil {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: skipTLSVerify}
		}
	}
	return opts, nil
}

func (r *Redis) Client() redis.UniversalClient {
	return r.client
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// AsynqConnOpt returns connection options for the task queue.
func (r *Redis) AsynqConnOpt() asynq.RedisConnOpt {
	if r.cluster != nil {
		return asynq.RedisClusterClientOpt{Addrs: r.cluster.Addrs, Password: r.cluster.Password, TLSConfig: r.cluster.TLSConfig}
	}
	return AsynqClientOpt(r.options)
}

// AsynqClientOpt maps standalone client options to the task queue's form.
func AsynqClientOpt(opts *redis.Options) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:      opts.Addr,
		Username:  opts.Username,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	}
}

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Fixed-window counter: returns {allowed, remaining, ttl seconds}.
var joinLimitScript = redis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])

	local current = tonumber(redis.call('GET', key) or '0')
	local ttl = redis.call('TTL', key)
	if ttl < 0 then
		ttl = window
	end

	if current < limit then
		redis.call('INCR', key)
		if ttl == window then
			redis.call('EXPIRE', key, window)
		end
		return {1, limit - current - 1, ttl}
	end
	return {0, 0, ttl}
`)

type LimitsConfig struct {
	JoinLimit  int
	JoinWindow time.Duration
}

type LimitResult struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
	Limit     int
}

// LimitsStorage counts private room join attempts per user in Redis.
type LimitsStorage struct {
	client *redis.Client
	cfg    LimitsConfig
}

func NewLimitsStorage(client *redis.Client, cfg LimitsConfig) *LimitsStorage {
	return &LimitsStorage{
		client: client,
		cfg:    cfg,
	}
}

func joinAttemptsKey(userId string) string {
	return fmt.Sprintf("ratelimit:%s:private_join", userId)
}

func (s *LimitsStorage) AllowJoinAttempt(ctx context.Context, userId string) (*LimitResult, error) {
	res, err := joinLimitScript.Run(
		ctx, s.client,
		[]string{joinAttemptsKey(userId)},
		s.cfg.JoinLimit, int(s.cfg.JoinWindow.Seconds()),
	).Int64Slice()

	if err != nil {
		return nil, fmt.Errorf("join limit check failed: %w", err)
	}

	if len(res) < 3 {
		return nil, fmt.Errorf("unexpected join limit result: %v", res)
	}

	return &LimitResult{
		Allowed:   res[0] == 1,
		Remaining: int(res[1]),
		ResetIn:   time.Duration(res[2]) * time.Second,
		Limit:     s.cfg.JoinLimit,
	}, nil
}

func (s *LimitsStorage) ResetJoinAttempts(ctx context.Context, userId string) error {
	return s.client.Del(ctx, joinAttemptsKey(userId)).Err()
}

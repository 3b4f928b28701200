package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript trims the window, then admits the request if there is room.
// It returns {allowed, retry_after_ms}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', ARGV[5])
local count = redis.call('ZCARD', key)
if count >= limit then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  local retry = window
  if oldest[2] then
    retry = tonumber(oldest[2]) + window - now
  end
  return {0, retry}
end
redis.call('ZADD', key, ARGV[1], ARGV[4])
redis.call('PEXPIRE', key, ARGV[2])
return {1, 0}
`)

// RedisWindow is a sliding window shared by every API replica through Redis.
type RedisWindow struct {
	client redis.Scripter
	prefix string
	now    func() time.Time
}

func NewRedisWindow(client redis.Scripter, prefix string, now func() time.Time) *RedisWindow {
	if now == nil {
		now = time.Now
	}
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &RedisWindow{client: client, prefix: prefix, now: now}
}

func (w *RedisWindow) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	nowMs := w.now().UnixMilli()
	member := fmt.Sprintf("%d:%s", nowMs, uuid.NewString())
	cutoff := nowMs - window.Milliseconds()
	res, err := slidingWindowScript.Run(ctx, w.client, []string{w.prefix + key},
		strconv.FormatInt(nowMs, 10),
		strconv.FormatInt(window.Milliseconds(), 10),
		strconv.Itoa(limit),
		member,
		strconv.FormatInt(cutoff, 10),
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}
	return res[0] == 1, time.Duration(res[1]) * time.Millisecond, nil
}

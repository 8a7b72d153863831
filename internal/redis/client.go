package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"tweeter/internal/auth"
)

// Client wraps a Redis connection for session and rate-limiting operations.
type Client struct {
	rdb *goredis.Client
}

// NewClient creates a Redis client from a URL and verifies the connection.
func NewClient(redisURL string) (*Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

const (
	sessionPrefix      = "session:"
	userSessionsPrefix = "user_sessions:"
)

// createSessionScript stores the session and adds it to the user's set. The
// set only ever gets a longer TTL so it outlives every session it lists.
var createSessionScript = goredis.NewScript(`
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
redis.call("SADD", KEYS[2], ARGV[3])
local ttl = tonumber(ARGV[2])
local current = redis.call("PTTL", KEYS[2])
if current < ttl then
    redis.call("PEXPIRE", KEYS[2], ttl)
end
return 1
`)

// CreateSession maps a session id to its user until ttl elapses. The id is
// also added to the user's session set so all of them can be revoked at once.
func (c *Client) CreateSession(ctx context.Context, sessionID string, userID int64, ttl time.Duration) error {
	setKey := userSessionsPrefix + strconv.FormatInt(userID, 10)

	keys := []string{sessionPrefix + sessionID, setKey}
	if err := createSessionScript.Run(ctx, c.rdb, keys, userID, ttl.Milliseconds(), sessionID).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// SessionUserID returns the owner of a live session.
func (c *Client) SessionUserID(ctx context.Context, sessionID string) (int64, error) {
	val, err := c.rdb.Get(ctx, sessionPrefix+sessionID).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, auth.ErrSessionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get session: %w", err)
	}

	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse session user id: %w", err)
	}
	return userID, nil
}

func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	if err := c.rdb.Del(ctx, sessionPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteUserSessions revokes every session the user still holds.
func (c *Client) DeleteUserSessions(ctx context.Context, userID int64) error {
	setKey := userSessionsPrefix + strconv.FormatInt(userID, 10)

	ids, err := c.rdb.SMembers(ctx, setKey).Result()
	if err != nil {
		return fmt.Errorf("list user sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionPrefix+id)
	}
	keys = append(keys, setKey)

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}

// rateLimitScript atomically increments a counter and sets its TTL on first use.
var rateLimitScript = goredis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`)

// CheckRateLimit counts a hit against key in a fixed window. It reports
// whether the hit is within limit, the hit count and the window remainder.
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, int64, time.Duration, error) {
	res, err := rateLimitScript.Run(ctx, c.rdb, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, 0, fmt.Errorf("check rate limit: %w", err)
	}
	if len(res) != 2 {
		return false, 0, 0, fmt.Errorf("check rate limit: unexpected reply %v", res)
	}
	count, ttl := res[0], time.Duration(res[1])*time.Millisecond
	return count <= int64(limit), count, ttl, nil
}

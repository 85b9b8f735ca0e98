package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/learnloop-backend/internal/config"
	"github.com/yungbote/learnloop-backend/internal/domain/learning"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
)

// ProblemCache stores generated problems by video ID so repeat visits skip the model call.
type ProblemCache struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewProblemCache connects and pings; callers fall back to the in-process cache on error.
func NewProblemCache(log *logger.Logger, cfg config.CacheConfig) (*ProblemCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &ProblemCache{
		log:    log.With("service", "RedisProblemCache"),
		rdb:    rdb,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.TTL.Duration,
	}, nil
}

func (c *ProblemCache) Get(ctx context.Context, videoID string) (learning.GeneratedProblem, bool, error) {
	if c == nil || c.rdb == nil {
		return learning.GeneratedProblem{}, false, fmt.Errorf("redis problem cache not initialized")
	}
	raw, err := c.rdb.Get(ctx, c.key(videoID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return learning.GeneratedProblem{}, false, nil
	}
	if err != nil {
		return learning.GeneratedProblem{}, false, err
	}
	var p learning.GeneratedProblem
	if err := json.Unmarshal(raw, &p); err != nil {
		// A corrupt entry is a miss; the next Set overwrites it.
		c.log.Warn("dropping undecodable cache entry", "video_id", videoID, "error", err)
		return learning.GeneratedProblem{}, false, nil
	}
	return p, true, nil
}

func (c *ProblemCache) Set(ctx context.Context, p learning.GeneratedProblem) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis problem cache not initialized")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(p.VideoID), raw, c.ttl).Err()
}

// Client exposes the connection for health collectors.
func (c *ProblemCache) Client() *goredis.Client {
	if c == nil {
		return nil
	}
	return c.rdb
}

func (c *ProblemCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func (c *ProblemCache) key(videoID string) string {
	return c.prefix + videoID
}

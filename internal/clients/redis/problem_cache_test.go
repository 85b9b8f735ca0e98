package redis

import (
	"context"
	"testing"

	"github.com/yungbote/learnloop-backend/internal/config"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
)

func TestNewProblemCacheRequiresAddr(t *testing.T) {
	if _, err := NewProblemCache(logger.Nop(), config.CacheConfig{}); err == nil {
		t.Fatalf("expected error without REDIS_ADDR")
	}
	if _, err := NewProblemCache(nil, config.CacheConfig{RedisAddr: "127.0.0.1:1"}); err == nil {
		t.Fatalf("expected error without logger")
	}
}

func TestNewProblemCacheFailsOnUnreachableServer(t *testing.T) {
	// Port 1 is reserved and never has a redis listening.
	if _, err := NewProblemCache(logger.Nop(), config.CacheConfig{RedisAddr: "127.0.0.1:1"}); err == nil {
		t.Fatalf("expected ping error")
	}
}

func TestNilCacheReportsError(t *testing.T) {
	var c *ProblemCache
	if _, _, err := c.Get(context.Background(), "abc"); err == nil {
		t.Fatalf("expected error")
	}
	if c.Close() != nil {
		t.Fatalf("nil Close should be a no-op")
	}
}

func TestKeyUsesPrefix(t *testing.T) {
	c := &ProblemCache{prefix: "learnloop:problem:"}
	if got := c.key("dQw4w9WgXcQ"); got != "learnloop:problem:dQw4w9WgXcQ" {
		t.Fatalf("key=%q", got)
	}
}

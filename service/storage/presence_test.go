package storage

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// 集成测试：需要本地 Redis，REDIS_ADDR 未设置时跳过。
func newTestPresence(t *testing.T) *RedisPresence {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Fatalf("redis ping: %v", err)
	}
	return NewRedisPresence(rdb, PresenceConfig{TTL: 30 * time.Second})
}

func TestHeartbeatRoundTrip(t *testing.T) {
	p := newTestPresence(t)
	ctx := context.Background()
	const uid = 900001

	now := time.Now().Unix()
	if err := p.SetHeartbeat(ctx, uid, now); err != nil {
		t.Fatalf("SetHeartbeat: %v", err)
	}
	ts, ok, err := p.GetHeartbeat(ctx, uid)
	if err != nil || !ok || ts != now {
		t.Fatalf("GetHeartbeat = %d, %v, %v; want %d", ts, ok, err, now)
	}

	if err := p.ClearHeartbeat(ctx, uid); err != nil {
		t.Fatalf("ClearHeartbeat: %v", err)
	}
	if _, ok, _ := p.GetHeartbeat(ctx, uid); ok {
		t.Fatal("heartbeat should be absent after clear")
	}
}

func TestHeartbeatLastWriteWins(t *testing.T) {
	p := newTestPresence(t)
	ctx := context.Background()
	const uid = 900002

	_ = p.SetHeartbeat(ctx, uid, 100)
	_ = p.SetHeartbeat(ctx, uid, 200)
	ts, ok, err := p.GetHeartbeat(ctx, uid)
	if err != nil || !ok || ts != 200 {
		t.Fatalf("GetHeartbeat = %d, %v, %v; want 200", ts, ok, err)
	}
	_ = p.ClearHeartbeat(ctx, uid)
}

func TestInitializingFlagRoundTrip(t *testing.T) {
	p := newTestPresence(t)
	ctx := context.Background()
	const uid = 900003

	if err := p.SetInitializing(ctx, uid); err != nil {
		t.Fatalf("SetInitializing: %v", err)
	}
	ok, err := p.GetInitializing(ctx, uid)
	if err != nil || !ok {
		t.Fatalf("GetInitializing = %v, %v; want true", ok, err)
	}

	if err := p.ClearInitializing(ctx, uid); err != nil {
		t.Fatalf("ClearInitializing: %v", err)
	}
	if ok, _ := p.GetInitializing(ctx, uid); ok {
		t.Fatal("flag should be absent after clear")
	}
}

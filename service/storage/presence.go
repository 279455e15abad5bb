package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

// PresenceStorer 在线状态存储契约。所有失败都作为可重试错误返回给调用方，
// 绝不静默退化成"在线"或"离线"——两种默认值都会造成误投。
type PresenceStorer interface {
	SetHeartbeat(ctx context.Context, uid int64, ts int64) error
	GetHeartbeat(ctx context.Context, uid int64) (ts int64, ok bool, err error)
	ClearHeartbeat(ctx context.Context, uid int64) error

	SetInitializing(ctx context.Context, uid int64) error
	GetInitializing(ctx context.Context, uid int64) (bool, error)
	ClearInitializing(ctx context.Context, uid int64) error
}

func activityKey(uid int64) string {
	return fmt.Sprintf("user_activity_%d", uid)
}

func initializingKey(uid int64) string {
	return fmt.Sprintf("user_initializing_%d", uid)
}

// ===== Redis 实现 =====

type PresenceConfig struct {
	TTL     time.Duration // 心跳记录 TTL
	InitTTL time.Duration // 登录握手宽限期
}

func (c *PresenceConfig) norm() {
	if c.TTL <= 0 {
		c.TTL = 300 * time.Second
	}
	if c.InitTTL <= 0 {
		c.InitTTL = 30 * time.Second
	}
}

type RedisPresence struct {
	rdb  *goredis.Client
	conf PresenceConfig
}

func NewRedisPresence(rdb *goredis.Client, conf PresenceConfig) *RedisPresence {
	conf.norm()
	return &RedisPresence{rdb: rdb, conf: conf}
}

func (p *RedisPresence) SetHeartbeat(ctx context.Context, uid int64, ts int64) error {
	// last-write-wins，天然幂等
	if err := p.rdb.Set(ctx, activityKey(uid), ts, p.conf.TTL).Err(); err != nil {
		return errors.Wrap(err, "failed to set heartbeat")
	}
	return nil
}

func (p *RedisPresence) GetHeartbeat(ctx context.Context, uid int64) (int64, bool, error) {
	ts, err := p.rdb.Get(ctx, activityKey(uid)).Int64()
	if err == goredis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "failed to get heartbeat")
	}
	return ts, true, nil
}

func (p *RedisPresence) ClearHeartbeat(ctx context.Context, uid int64) error {
	if err := p.rdb.Del(ctx, activityKey(uid)).Err(); err != nil {
		return errors.Wrap(err, "failed to clear heartbeat")
	}
	return nil
}

func (p *RedisPresence) SetInitializing(ctx context.Context, uid int64) error {
	if err := p.rdb.Set(ctx, initializingKey(uid), true, p.conf.InitTTL).Err(); err != nil {
		return errors.Wrap(err, "failed to set initializing flag")
	}
	return nil
}

func (p *RedisPresence) GetInitializing(ctx context.Context, uid int64) (bool, error) {
	n, err := p.rdb.Exists(ctx, initializingKey(uid)).Result()
	if err != nil {
		return false, errors.Wrap(err, "failed to get initializing flag")
	}
	return n > 0, nil
}

func (p *RedisPresence) ClearInitializing(ctx context.Context, uid int64) error {
	if err := p.rdb.Del(ctx, initializingKey(uid)).Err(); err != nil {
		return errors.Wrap(err, "failed to clear initializing flag")
	}
	return nil
}

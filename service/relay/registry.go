package relay

import (
	"sync"
)

// Registry uid -> 当前服务该 uid 的 Session。按 uid 分片，避免一把全局锁
// 把不相关用户串行化。条目不持有 Session 的生命周期，只记录路由；
// Session 关闭时必须清掉自己的条目，否则就是悬空路由。
const registryShards = 32

type Registry struct {
	shards [registryShards]registryShard
}

type registryShard struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i].sessions = make(map[int64]*Session)
	}
	return r
}

func (r *Registry) shard(uid int64) *registryShard {
	return &r.shards[uint64(uid)%registryShards]
}

// Register 把 sess 装为 uid 的当前会话，返回被顶掉的旧会话（没有则 nil）。
// 同一分片锁内完成换入，保证同 uid 并发登录线性化：后完成者胜出。
func (r *Registry) Register(uid int64, sess *Session) (prev *Session) {
	sh := r.shard(uid)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	prev = sh.sessions[uid]
	if prev == sess {
		return nil
	}
	sh.sessions[uid] = sess
	return prev
}

// Lookup 返回 uid 当前在线的会话。
func (r *Registry) Lookup(uid int64) (*Session, bool) {
	sh := r.shard(uid)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	sess, ok := sh.sessions[uid]
	return sess, ok
}

// Unregister 仅当当前条目正是 sess 时才移除。过期的 unregister 与更新的
// login 赛跑时是 no-op，不会误删新会话的路由。
func (r *Registry) Unregister(uid int64, sess *Session) bool {
	sh := r.shard(uid)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if cur, ok := sh.sessions[uid]; ok && cur == sess {
		delete(sh.sessions, uid)
		return true
	}
	return false
}

// Len 当前注册的会话数，仅用于监控与测试。
func (r *Registry) Len() int {
	n := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}

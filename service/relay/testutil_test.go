package relay

import (
	"context"
	"sync"

	"PRelay/service/message"
)

// ===== 测试替身：假连接 + 假 presence + 假消息存储 =====

type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (c *fakeConn) WriteText(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	c.frames = append(c.frames, cp)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) Frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.frames))
	copy(out, c.frames)
	return out
}

func (c *fakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakePresence struct {
	mu         sync.Mutex
	heartbeats map[int64]int64
	inits      map[int64]bool

	failSetHeartbeat    error
	failSetInitializing error
}

func newFakePresence() *fakePresence {
	return &fakePresence{
		heartbeats: make(map[int64]int64),
		inits:      make(map[int64]bool),
	}
}

func (p *fakePresence) SetHeartbeat(_ context.Context, uid, ts int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failSetHeartbeat != nil {
		return p.failSetHeartbeat
	}
	p.heartbeats[uid] = ts
	return nil
}

func (p *fakePresence) GetHeartbeat(_ context.Context, uid int64) (int64, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ts, ok := p.heartbeats[uid]
	return ts, ok, nil
}

func (p *fakePresence) ClearHeartbeat(_ context.Context, uid int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.heartbeats, uid)
	return nil
}

func (p *fakePresence) SetInitializing(_ context.Context, uid int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failSetInitializing != nil {
		return p.failSetInitializing
	}
	p.inits[uid] = true
	return nil
}

func (p *fakePresence) GetInitializing(_ context.Context, uid int64) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inits[uid], nil
}

func (p *fakePresence) ClearInitializing(_ context.Context, uid int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inits, uid)
	return nil
}

type fakeStore struct {
	mu   sync.Mutex
	msgs []*message.Message

	failAppend error
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

func (s *fakeStore) Append(_ context.Context, msg *message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAppend != nil {
		return s.failAppend
	}
	cp := *msg
	s.msgs = append(s.msgs, &cp)
	return nil
}

func (s *fakeStore) LoadBacklog(_ context.Context, uid int64) ([]*message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*message.Message
	for _, m := range s.msgs {
		if m.UID == uid && !m.Acked {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) MarkAcked(_ context.Context, msgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.msgs {
		if m.MsgID == msgID {
			m.Acked = true
		}
	}
	return nil
}

func (s *fakeStore) acked(msgID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.msgs {
		if m.MsgID == msgID {
			return m.Acked
		}
	}
	return false
}

func newTestServer() (*Server, *fakePresence, *fakeStore) {
	presence := newFakePresence()
	store := newFakeStore()
	return NewServer("test_node", presence, store), presence, store
}

func newTestSession(srv *Server) (*Session, *fakeConn) {
	conn := &fakeConn{}
	return srv.NewSession(conn), conn
}

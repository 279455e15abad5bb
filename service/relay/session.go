package relay

import (
	"context"
	"sync"
	"time"

	"PRelay/logger"
	errs "PRelay/tools/errs"
)

// Conn 会话底下的传输连接。只暴露会话需要的两个动作，单测里可以
// 直接注入假连接。
type Conn interface {
	WriteText(data []byte) error
	Close() error
}

type SessionState int32

const (
	StateUnauthenticated SessionState = iota
	StateInitializing
	StateActive
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session 每连接一个，持有唯一一条传输连接，跑命令状态机。
// 所有对 socket 的写都从 Push 走，wmu 串行化；除会话自己没人写这条连接。
type Session struct {
	id   string
	srv  *Server
	conn Conn

	wmu sync.Mutex // socket 写互斥

	mu    sync.Mutex // 保护 state/uid
	state SessionState
	uid   int64

	cleanupOnce sync.Once
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) UID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uid
}

// Push 向客户端写一帧。会话已关闭时拒绝，防止向死连接写。
func (s *Session) Push(data []byte) error {
	s.mu.Lock()
	closed := s.state == StateClosed
	s.mu.Unlock()
	if closed {
		return errs.New("session closed")
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.conn.WriteText(data)
}

// HandleFrame 处理一条入站帧。解码失败回裸文本 "invalid command"，
// 不关连接、不动状态；命令执行失败回 Error 帧，连接同样保持。
func (s *Session) HandleFrame(ctx context.Context, raw []byte) {
	cmd, err := DecodeCommand(raw)
	if err != nil {
		logger.Infof("[session] bad frame id=%s err=%v", s.id, err)
		if perr := s.Push([]byte(invalidCommandText)); perr != nil {
			logger.Warnf("[session] push invalid-command notice failed id=%s err=%v", s.id, perr)
		}
		return
	}

	switch c := cmd.(type) {
	case HeartBeat:
		s.handleHeartBeat(ctx, c)
	case Login:
		s.handleLogin(ctx, c)
	case Logout:
		s.handleLogout(ctx, c)
	case Send:
		s.handleSend(ctx, c)
	case Acknowledge:
		s.handleAcknowledge(ctx, c)
	}
}

func (s *Session) handleHeartBeat(ctx context.Context, c HeartBeat) {
	if err := s.srv.presence.SetHeartbeat(ctx, c.UID, time.Now().Unix()); err != nil {
		logger.Errorf("[session] heartbeat failed id=%s uid=%d err=%v", s.id, c.UID, err)
		s.pushQuiet(BuildError(errs.ErrStoreFailed))
		return
	}
}

// handleLogin: Unauthenticated -> Initializing -> Active。
// Initializing 阶段：置 initializing 标记、记临时身份、刷 backlog；
// 刷完转 Active：装入 Registry（原子顶掉旧会话并关闭之）、清标记。
func (s *Session) handleLogin(ctx context.Context, c Login) {
	s.mu.Lock()
	if s.state != StateUnauthenticated {
		st := s.state
		s.mu.Unlock()
		logger.Infof("[session] login rejected id=%s state=%s", s.id, st)
		s.pushQuiet(BuildError(errs.ErrAlreadyLoggedIn))
		return
	}
	s.state = StateInitializing
	s.uid = c.UID
	s.mu.Unlock()

	fail := func(err error) {
		logger.Errorf("[session] login failed id=%s uid=%d err=%v", s.id, c.UID, err)
		_ = s.srv.presence.ClearInitializing(ctx, c.UID)
		s.mu.Lock()
		s.state = StateUnauthenticated
		s.uid = 0
		s.mu.Unlock()
		s.pushQuiet(BuildError(err))
	}

	if err := s.srv.presence.SetInitializing(ctx, c.UID); err != nil {
		fail(errs.ErrStoreFailed.WrapMsg("set initializing: %v", err))
		return
	}

	n, err := s.srv.delivery.FlushBacklog(ctx, c.UID, s)
	if err != nil {
		fail(err)
		return
	}

	if err := s.srv.presence.SetHeartbeat(ctx, c.UID, time.Now().Unix()); err != nil {
		fail(errs.ErrStoreFailed.WrapMsg("set heartbeat: %v", err))
		return
	}

	s.mu.Lock()
	s.state = StateActive
	s.mu.Unlock()

	// 同 uid 只能有一个注册条目：换入自己，旧会话被顶下线
	prev := s.srv.reg.Register(c.UID, s)
	if err := s.srv.presence.ClearInitializing(ctx, c.UID); err != nil {
		logger.Warnf("[session] clear initializing failed uid=%d err=%v", c.UID, err)
	}
	if prev != nil {
		prev.Kick("superseded by new login")
	}
	s.srv.publishOnline(c.UID)

	logger.Infof("[session] login ok id=%s uid=%d backlog=%d", s.id, c.UID, n)
}

func (s *Session) handleLogout(ctx context.Context, c Logout) {
	// 显式登出按帧里的 uid 清心跳；存储失败则命令失败，连接保持
	if err := s.srv.presence.ClearHeartbeat(ctx, c.UID); err != nil {
		logger.Errorf("[session] logout failed id=%s uid=%d err=%v", s.id, c.UID, err)
		s.pushQuiet(BuildError(errs.ErrStoreFailed))
		return
	}
	s.Close("logout")
}

func (s *Session) handleSend(ctx context.Context, c Send) {
	s.mu.Lock()
	st, uid := s.state, s.uid
	s.mu.Unlock()
	if st != StateActive {
		s.pushQuiet(BuildError(errs.ErrNotLoggedIn))
		return
	}

	msg, err := s.srv.delivery.Send(ctx, uid, c.Target, c.Content)
	if err != nil {
		s.pushQuiet(BuildError(err))
		return
	}
	s.pushQuiet(BuildSendAck(msg.MsgID))
}

func (s *Session) handleAcknowledge(ctx context.Context, c Acknowledge) {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	if st != StateActive {
		s.pushQuiet(BuildError(errs.ErrNotLoggedIn))
		return
	}

	if err := s.srv.delivery.Ack(ctx, c.MsgID); err != nil {
		logger.Errorf("[session] ack failed id=%s msg_id=%s err=%v", s.id, c.MsgID, err)
		s.pushQuiet(BuildError(err))
	}
}

// Kick 被新登录顶掉时调用：尽力通知后关闭。
func (s *Session) Kick(reason string) {
	s.pushQuiet(BuildKicked(reason))
	s.Close(reason)
}

// Close 关闭连接并执行清理。任何退出路径（正常登出、出错、对端掉线）
// 都会走到 teardown，且只执行一次。
func (s *Session) Close(reason string) {
	s.teardown(reason)
}

func (s *Session) teardown(reason string) {
	s.cleanupOnce.Do(func() {
		s.mu.Lock()
		uid := s.uid
		hadIdentity := s.state == StateActive || s.state == StateInitializing
		s.state = StateClosed
		s.mu.Unlock()

		_ = s.conn.Close()

		if hadIdentity {
			// 连接可能已死，清理用独立的限时 ctx
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			// 只有自己仍是 uid 的当前路由时才清 presence；
			// 被新登录顶掉时这些记录已属于新会话
			if s.srv.reg.Unregister(uid, s) {
				if err := s.srv.presence.ClearHeartbeat(ctx, uid); err != nil {
					logger.Warnf("[session] clear heartbeat failed uid=%d err=%v", uid, err)
				}
				if err := s.srv.presence.ClearInitializing(ctx, uid); err != nil {
					logger.Warnf("[session] clear initializing failed uid=%d err=%v", uid, err)
				}
				s.srv.publishOffline(uid)
			}
		}
		logger.Infof("[session] closed id=%s uid=%d reason=%s", s.id, uid, reason)
	})
}

func (s *Session) pushQuiet(data []byte) {
	if err := s.Push(data); err != nil {
		logger.Warnf("[session] push failed id=%s err=%v", s.id, err)
	}
}

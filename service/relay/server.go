package relay

import (
	"PRelay/service/message"
	"PRelay/service/storage"
	"PRelay/tools/ids"
)

// Server 网关进程内的共享部件：注册表、presence、投递协调、事件总线。
// 每条新连接从这里领一个 Session。
type Server struct {
	nodeID   string
	reg      *Registry
	presence storage.PresenceStorer
	delivery *Delivery
	events   *Events // 可为 nil（单节点部署）
}

func NewServer(nodeID string, presence storage.PresenceStorer, store message.Storer) *Server {
	reg := NewRegistry()
	return &Server{
		nodeID:   nodeID,
		reg:      reg,
		presence: presence,
		delivery: NewDelivery(reg, store),
	}
}

func (s *Server) NodeID() string      { return s.nodeID }
func (s *Server) Registry() *Registry { return s.reg }
func (s *Server) Delivery() *Delivery { return s.delivery }

// SetEvents 挂上跨节点事件总线；不挂则单节点运行。
func (s *Server) SetEvents(ev *Events) { s.events = ev }

// NewSession 为一条新连接建会话，初始态 Unauthenticated。
func (s *Server) NewSession(conn Conn) *Session {
	return &Session{
		id:    ids.GenerateString(),
		srv:   s,
		conn:  conn,
		state: StateUnauthenticated,
	}
}

func (s *Server) publishOnline(uid int64) {
	if s.events != nil {
		s.events.PublishOnline(uid)
	}
}

func (s *Server) publishOffline(uid int64) {
	if s.events != nil {
		s.events.PublishOffline(uid)
	}
}

package relay

import (
	"encoding/json"
	"time"

	"PRelay/logger"
	"PRelay/service/natsx"
)

// 跨节点 presence 事件。其他网关节点收到某 uid 在别处上线后，
// 把本地同 uid 的旧会话顶下线，保证全集群同 uid 单活。
// 单节点正确性不依赖这条链路：事件发布全部尽力而为。

const subjectPresence = "relay.presence"

type PresenceEvent struct {
	Event  string `json:"event"` // online | offline
	UID    int64  `json:"uid"`
	NodeID string `json:"node_id"`
	Ts     int64  `json:"ts"`
}

type Events struct {
	nc     *natsx.Client
	nodeID string
}

func NewEvents(nc *natsx.Client, nodeID string) *Events {
	return &Events{nc: nc, nodeID: nodeID}
}

func (e *Events) PublishOnline(uid int64)  { e.publish("online", uid) }
func (e *Events) PublishOffline(uid int64) { e.publish("offline", uid) }

func (e *Events) publish(event string, uid int64) {
	data, _ := json.Marshal(PresenceEvent{
		Event:  event,
		UID:    uid,
		NodeID: e.nodeID,
		Ts:     time.Now().UnixMilli(),
	})
	if err := e.nc.Publish(subjectPresence, data); err != nil {
		logger.Warnf("[events] publish %s uid=%d failed: %v", event, uid, err)
	}
}

// SubscribeKicks 监听其他节点的上线事件，顶掉本地的旧会话。
func (e *Events) SubscribeKicks(reg *Registry) error {
	return e.nc.Subscribe(subjectPresence, func(data []byte) {
		var ev PresenceEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			logger.Warnf("[events] bad presence event: %v", err)
			return
		}
		applyRemotePresence(reg, e.nodeID, ev)
	})
}

// applyRemotePresence: uid 在别的节点上线，本地旧会话只断连接。
// 先摘注册条目再 Kick：presence 记录已属于远端新会话，teardown 的
// compare-and-delete 守卫看到条目不是自己，就不会去清共享存储。
func applyRemotePresence(reg *Registry, localNode string, ev PresenceEvent) {
	if ev.NodeID == localNode || ev.Event != "online" {
		return
	}
	sess, ok := reg.Lookup(ev.UID)
	if !ok {
		return
	}
	logger.Infof("[events] uid=%d logged in on node=%s, kicking local session=%s",
		ev.UID, ev.NodeID, sess.ID())
	reg.Unregister(ev.UID, sess)
	sess.Kick("superseded by login on " + ev.NodeID)
}

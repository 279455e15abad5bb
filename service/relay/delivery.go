package relay

import (
	"context"

	"PRelay/logger"
	"PRelay/service/message"
	errs "PRelay/tools/errs"
)

// Delivery 投递协调：先落库，再尽力直推在线接收方。
// 落库是唯一的耐久点，append 失败则整条命令失败，绝不在未落库时推送。
type Delivery struct {
	reg   *Registry
	store message.Storer
}

func NewDelivery(reg *Registry, store message.Storer) *Delivery {
	return &Delivery{reg: reg, store: store}
}

// Send 处理一条 Send{target, content}。返回成功只代表"已耐久入队"，
// 不代表对方已收到；接收方仍要 Acknowledge。
func (d *Delivery) Send(ctx context.Context, sender, target int64, content string) (*message.Message, error) {
	msg := message.New(sender, target, content)

	if err := d.store.Append(ctx, msg); err != nil {
		logger.Errorf("[delivery] append failed sender=%d target=%d err=%v", sender, target, err)
		return nil, errs.ErrSendRejected.WrapMsg("append: %v", err)
	}

	// 在线则直推；失败或离线都静默走 backlog，下次 Login 补投
	if sess, ok := d.reg.Lookup(target); ok {
		if err := sess.Push(BuildDeliver(msg)); err != nil {
			logger.Warnf("[delivery] push failed target=%d msg_id=%s err=%v", target, msg.MsgID, err)
		}
	}
	return msg, nil
}

// FlushBacklog 把 uid 的未确认消息按写入顺序推到 sess，登录时调用。
func (d *Delivery) FlushBacklog(ctx context.Context, uid int64, sess *Session) (int, error) {
	backlog, err := d.store.LoadBacklog(ctx, uid)
	if err != nil {
		return 0, errs.ErrStoreFailed.WrapMsg("load backlog: %v", err)
	}
	for i, m := range backlog {
		if err := sess.Push(BuildDeliver(m)); err != nil {
			// 连接半路挂了，剩余消息还在 backlog 里，下次登录继续
			return i, err
		}
	}
	return len(backlog), nil
}

// Ack 确认一条消息。重复/未知 msg_id 由存储层幂等吞掉。
func (d *Delivery) Ack(ctx context.Context, msgID string) error {
	if err := d.store.MarkAcked(ctx, msgID); err != nil {
		return errs.ErrStoreFailed.WrapMsg("mark acked: %v", err)
	}
	return nil
}

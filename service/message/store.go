package message

import (
	"context"
	"time"

	"PRelay/tools/ids"
)

// Message 一条落库的消息。uid 是接收者，列名沿用老表结构。
type Message struct {
	MsgID     string `json:"msg_id" bson:"msg_id"`
	UID       int64  `json:"uid" bson:"uid"`
	Sender    int64  `json:"sender" bson:"sender"`
	Content   string `json:"content" bson:"content"`
	CreatedAt int64  `json:"created_at" bson:"created_at"` // unix 毫秒
	Acked     bool   `json:"acknowledged" bson:"acknowledged"`
}

// New 组装一条新消息并分配 msg_id。
func New(sender, recipient int64, content string) *Message {
	return &Message{
		MsgID:     ids.GenerateString(),
		UID:       recipient,
		Sender:    sender,
		Content:   content,
		CreatedAt: time.Now().UnixMilli(),
	}
}

// Storer 消息持久化契约。
//
// Append 是投递的耐久点：返回 nil 之前必须已经落库，绝不能先报成功再写。
// LoadBacklog 返回某接收者所有未确认消息，按写入顺序。
// MarkAcked 幂等：重复确认或未知 msg_id 都是 no-op。
type Storer interface {
	Append(ctx context.Context, msg *Message) error
	LoadBacklog(ctx context.Context, uid int64) ([]*Message, error)
	MarkAcked(ctx context.Context, msgID string) error
}

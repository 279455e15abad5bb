package relay

import (
	"encoding/json"
	"errors"
	"time"

	"PRelay/service/message"
	errs "PRelay/tools/errs"
)

// 回给客户端的帧，形状与入站命令一致：平铺 JSON + type 字段。
// 解码失败的应答是裸文本 "invalid command"，不是 JSON 帧。

const invalidCommandText = "invalid command"

type DeliverFrame struct {
	Type    string `json:"type"` // "Deliver"
	MsgID   string `json:"msg_id"`
	Sender  int64  `json:"sender"`
	Content string `json:"content"`
	Ts      int64  `json:"ts"`
}

type SendAckFrame struct {
	Type  string `json:"type"` // "SendAck"
	MsgID string `json:"msg_id"`
	Ts    int64  `json:"ts"`
}

type ErrorFrame struct {
	Type string `json:"type"` // "Error"
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

type KickedFrame struct {
	Type   string `json:"type"` // "Kicked"
	Reason string `json:"reason"`
}

func BuildDeliver(m *message.Message) []byte {
	return mustMarshal(DeliverFrame{
		Type:    "Deliver",
		MsgID:   m.MsgID,
		Sender:  m.Sender,
		Content: m.Content,
		Ts:      m.CreatedAt,
	})
}

func BuildSendAck(msgID string) []byte {
	return mustMarshal(SendAckFrame{
		Type:  "SendAck",
		MsgID: msgID,
		Ts:    time.Now().UnixMilli(),
	})
}

func BuildError(err error) []byte {
	code := errs.Code(err)
	msg := err.Error()
	var ce *errs.CodeError
	if errors.As(err, &ce) {
		// 不把 detail 里的内部错误串透给客户端
		msg = ce.Msg
	}
	return mustMarshal(ErrorFrame{Type: "Error", Code: code, Msg: msg})
}

func BuildKicked(reason string) []byte {
	return mustMarshal(KickedFrame{Type: "Kicked", Reason: reason})
}

// 这些帧都是本地字面量组装，Marshal 不会失败
func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

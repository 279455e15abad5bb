package relay

import (
	"encoding/json"
	"fmt"

	decode "PRelay/tools/decode"
)

// 命令帧集合是封闭的：HeartBeat / Login / Logout / Send / Acknowledge。
// 解码失败不是某种命令，而是独立的结果，由会话回 "invalid command"。

type Command interface {
	isCommand()
}

type HeartBeat struct {
	UID int64 `json:"uid"`
}

type Login struct {
	UID int64 `json:"uid"`
}

type Logout struct {
	UID int64 `json:"uid"`
}

type Send struct {
	Target  int64  `json:"target"`
	Content string `json:"content"`
}

type Acknowledge struct {
	MsgID string `json:"msg_id"`
}

func (HeartBeat) isCommand()   {}
func (Login) isCommand()       {}
func (Logout) isCommand()      {}
func (Send) isCommand()        {}
func (Acknowledge) isCommand() {}

// DecodeCommand 解析一条入站文本帧。形状不符返回错误，由调用方回
// "invalid command"，连接保持打开。
func DecodeCommand(raw []byte) (Command, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("frame is not a json object: %w", err)
	}

	typ, ok := m["type"].(string)
	if !ok {
		return nil, fmt.Errorf("frame has no type field")
	}

	strict := decode.Options{WeaklyTypedInput: false}
	switch typ {
	case "HeartBeat":
		if err := requireKeys(m, "uid"); err != nil {
			return nil, err
		}
		c, err := decode.DecodeMap[HeartBeat](m, strict)
		if err != nil {
			return nil, err
		}
		return *c, nil
	case "Login":
		if err := requireKeys(m, "uid"); err != nil {
			return nil, err
		}
		c, err := decode.DecodeMap[Login](m, strict)
		if err != nil {
			return nil, err
		}
		return *c, nil
	case "Logout":
		if err := requireKeys(m, "uid"); err != nil {
			return nil, err
		}
		c, err := decode.DecodeMap[Logout](m, strict)
		if err != nil {
			return nil, err
		}
		return *c, nil
	case "Send":
		if err := requireKeys(m, "target", "content"); err != nil {
			return nil, err
		}
		c, err := decode.DecodeMap[Send](m, strict)
		if err != nil {
			return nil, err
		}
		return *c, nil
	case "Acknowledge":
		if err := requireKeys(m, "msg_id"); err != nil {
			return nil, err
		}
		c, err := decode.DecodeMap[Acknowledge](m, strict)
		if err != nil {
			return nil, err
		}
		return *c, nil
	default:
		return nil, fmt.Errorf("unknown command type %q", typ)
	}
}

func requireKeys(m map[string]any, keys ...string) error {
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			return fmt.Errorf("missing field %q", k)
		}
	}
	return nil
}

package relay

import (
	"testing"
)

func TestDecodeCommandValid(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		check func(t *testing.T, cmd Command)
	}{
		{
			name: "heartbeat",
			raw:  `{"type":"HeartBeat","uid":7}`,
			check: func(t *testing.T, cmd Command) {
				c, ok := cmd.(HeartBeat)
				if !ok {
					t.Fatalf("expected HeartBeat, got %T", cmd)
				}
				if c.UID != 7 {
					t.Fatalf("uid = %d, want 7", c.UID)
				}
			},
		},
		{
			name: "login",
			raw:  `{"type":"Login","uid":42}`,
			check: func(t *testing.T, cmd Command) {
				c, ok := cmd.(Login)
				if !ok {
					t.Fatalf("expected Login, got %T", cmd)
				}
				if c.UID != 42 {
					t.Fatalf("uid = %d, want 42", c.UID)
				}
			},
		},
		{
			name: "logout",
			raw:  `{"type":"Logout","uid":42}`,
			check: func(t *testing.T, cmd Command) {
				if _, ok := cmd.(Logout); !ok {
					t.Fatalf("expected Logout, got %T", cmd)
				}
			},
		},
		{
			name: "send",
			raw:  `{"type":"Send","target":2,"content":"hi"}`,
			check: func(t *testing.T, cmd Command) {
				c, ok := cmd.(Send)
				if !ok {
					t.Fatalf("expected Send, got %T", cmd)
				}
				if c.Target != 2 || c.Content != "hi" {
					t.Fatalf("got %+v", c)
				}
			},
		},
		{
			name: "acknowledge",
			raw:  `{"type":"Acknowledge","msg_id":"m-1"}`,
			check: func(t *testing.T, cmd Command) {
				c, ok := cmd.(Acknowledge)
				if !ok {
					t.Fatalf("expected Acknowledge, got %T", cmd)
				}
				if c.MsgID != "m-1" {
					t.Fatalf("msg_id = %q, want m-1", c.MsgID)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, err := DecodeCommand([]byte(tc.raw))
			if err != nil {
				t.Fatalf("DecodeCommand(%s) error: %v", tc.raw, err)
			}
			tc.check(t, cmd)
		})
	}
}

func TestDecodeCommandInvalid(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `not a frame`},
		{"json array", `[1,2,3]`},
		{"no type", `{"uid":1}`},
		{"type not string", `{"type":1,"uid":1}`},
		{"unknown type", `{"type":"Unknown"}`},
		{"heartbeat missing uid", `{"type":"HeartBeat"}`},
		{"login uid as string", `{"type":"Login","uid":"5"}`},
		{"login uid fractional", `{"type":"Login","uid":1.5}`},
		{"send missing content", `{"type":"Send","target":2}`},
		{"send content not string", `{"type":"Send","target":2,"content":3}`},
		{"ack missing msg_id", `{"type":"Acknowledge"}`},
		{"ack msg_id not string", `{"type":"Acknowledge","msg_id":9}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if cmd, err := DecodeCommand([]byte(tc.raw)); err == nil {
				t.Fatalf("DecodeCommand(%s) = %#v, want error", tc.raw, cmd)
			}
		})
	}
}

func TestDecodeCommandIgnoresExtraFields(t *testing.T) {
	cmd, err := DecodeCommand([]byte(`{"type":"HeartBeat","uid":7,"extra":"x"}`))
	if err != nil {
		t.Fatalf("DecodeCommand error: %v", err)
	}
	if c := cmd.(HeartBeat); c.UID != 7 {
		t.Fatalf("uid = %d, want 7", c.UID)
	}
}

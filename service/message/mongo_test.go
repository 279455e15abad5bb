package message

import (
	"context"
	"os"
	"testing"
	"time"

	"PRelay/data/database/mgo/mongoutil"
)

// 集成测试：需要本地 MongoDB，MONGO_URI 未设置时跳过。
func newTestMongoStorer(t *testing.T) *MongoStorer {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cli, err := mongoutil.NewMongoDB(ctx, &mongoutil.Config{
		Uri:      uri,
		Database: "relay_test",
	})
	if err != nil {
		t.Fatalf("connect mongo: %v", err)
	}
	st := NewMongoStorer(cli)
	if err := st.EnsureIndexes(ctx); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
	return st
}

func TestMongoAppendAndBacklogOrder(t *testing.T) {
	st := newTestMongoStorer(t)
	ctx := context.Background()
	uid := time.Now().UnixNano()

	for _, content := range []string{"a", "b"} {
		if err := st.Append(ctx, New(1, uid, content)); err != nil {
			t.Fatalf("Append(%s): %v", content, err)
		}
	}

	backlog, err := st.LoadBacklog(ctx, uid)
	if err != nil {
		t.Fatalf("LoadBacklog: %v", err)
	}
	if len(backlog) != 2 || backlog[0].Content != "a" || backlog[1].Content != "b" {
		t.Fatalf("backlog = %+v, want [a b]", backlog)
	}
}

func TestMongoMarkAckedIdempotent(t *testing.T) {
	st := newTestMongoStorer(t)
	ctx := context.Background()
	uid := time.Now().UnixNano()

	msg := New(1, uid, "hi")
	if err := st.Append(ctx, msg); err != nil {
		t.Fatalf("Append: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := st.MarkAcked(ctx, msg.MsgID); err != nil {
			t.Fatalf("MarkAcked #%d: %v", i+1, err)
		}
	}
	if err := st.MarkAcked(ctx, "no-such-id"); err != nil {
		t.Fatalf("MarkAcked unknown id: %v", err)
	}

	backlog, err := st.LoadBacklog(ctx, uid)
	if err != nil {
		t.Fatalf("LoadBacklog: %v", err)
	}
	if len(backlog) != 0 {
		t.Fatalf("acked message still in backlog: %+v", backlog)
	}
}

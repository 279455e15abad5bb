package message

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// PgStorer 基于 Postgres 的消息存储。
type PgStorer struct {
	pool *pgxpool.Pool
}

func NewPgStorer(pool *pgxpool.Pool) *PgStorer {
	return &PgStorer{pool: pool}
}

// EnsureSchema 建表（幂等），启动时调用一次。
func (s *PgStorer) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS messages (
	msg_id       TEXT PRIMARY KEY,
	uid          BIGINT NOT NULL,
	sender       BIGINT NOT NULL,
	content      TEXT NOT NULL,
	created_at   BIGINT NOT NULL,
	acknowledged BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_messages_uid_unacked
	ON messages (uid, created_at) WHERE NOT acknowledged;`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return errors.Wrap(err, "failed to ensure messages schema")
	}
	return nil
}

func (s *PgStorer) Append(ctx context.Context, msg *Message) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO messages (msg_id, uid, sender, content, created_at, acknowledged)
		 VALUES ($1, $2, $3, $4, $5, FALSE)`,
		msg.MsgID, msg.UID, msg.Sender, msg.Content, msg.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to append message")
	}
	return nil
}

func (s *PgStorer) LoadBacklog(ctx context.Context, uid int64) ([]*Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT msg_id, uid, sender, content, created_at, acknowledged
		 FROM messages
		 WHERE uid = $1 AND NOT acknowledged
		 ORDER BY created_at, msg_id`, uid)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load backlog")
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		m := &Message{}
		if err := rows.Scan(&m.MsgID, &m.UID, &m.Sender, &m.Content, &m.CreatedAt, &m.Acked); err != nil {
			return nil, errors.Wrap(err, "failed to scan message row")
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read backlog rows")
	}
	return out, nil
}

func (s *PgStorer) MarkAcked(ctx context.Context, msgID string) error {
	// 未知/已确认的 msg_id 更新 0 行，幂等
	_, err := s.pool.Exec(ctx,
		`UPDATE messages SET acknowledged = TRUE WHERE msg_id = $1`, msgID)
	if err != nil {
		return errors.Wrap(err, "failed to mark message acknowledged")
	}
	return nil
}

package message

import (
	"context"

	"PRelay/data/database/mgo/mongoutil"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collMessages = "messages"

// MongoStorer 基于 MongoDB 的消息存储。
type MongoStorer struct {
	coll *mongo.Collection
}

func NewMongoStorer(cli *mongoutil.Client) *MongoStorer {
	return &MongoStorer{coll: cli.GetDB().Collection(collMessages)}
}

// EnsureIndexes 建索引（幂等），启动时调用一次。
func (s *MongoStorer) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "msg_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "uid", Value: 1}, {Key: "acknowledged", Value: 1}, {Key: "created_at", Value: 1}},
		},
	})
	if err != nil {
		return errors.Wrap(err, "failed to ensure message indexes")
	}
	return nil
}

func (s *MongoStorer) Append(ctx context.Context, msg *Message) error {
	if _, err := s.coll.InsertOne(ctx, msg); err != nil {
		return errors.Wrap(err, "failed to append message")
	}
	return nil
}

func (s *MongoStorer) LoadBacklog(ctx context.Context, uid int64) ([]*Message, error) {
	filter := bson.M{"uid": uid, "acknowledged": false}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "msg_id", Value: 1}})
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load backlog")
	}
	defer func() { _ = cur.Close(ctx) }()

	var out []*Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "failed to decode backlog")
	}
	return out, nil
}

func (s *MongoStorer) MarkAcked(ctx context.Context, msgID string) error {
	// MatchedCount 为 0 说明 msg_id 未知或已确认，幂等处理
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"msg_id": msgID},
		bson.M{"$set": bson.M{"acknowledged": true}})
	if err != nil {
		return errors.Wrap(err, "failed to mark message acknowledged")
	}
	return nil
}

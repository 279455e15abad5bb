package main

import (
	"context"
	"fmt"
	"time"

	"PRelay/data/database/mgo/mongoutil"
	"PRelay/global/config"
	"PRelay/logger"
	"PRelay/service/message"
	"PRelay/service/natsx"
	"PRelay/service/relay"
	"PRelay/service/storage"
	redisstore "PRelay/service/storage/redis"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	config.ConfigAll()
	cfg := config.Global

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	presence := storage.NewRedisPresence(redisstore.GetRedis(), storage.PresenceConfig{
		TTL: cfg.PresenceTTL,
	})

	store, err := buildMessageStore(ctx, cfg)
	if err != nil {
		logger.Errorf("init message store failed: %v", err)
		return
	}

	srv := relay.NewServer(cfg.NodeId, presence, store)

	if len(cfg.NatsServers) > 0 {
		nc, err := natsx.NewClient(natsx.Config{
			Servers: cfg.NatsServers,
			Name:    "relay-" + cfg.NodeId,
		})
		if err != nil {
			logger.Errorf("connect nats failed: %v", err)
			return
		}
		events := relay.NewEvents(nc, cfg.NodeId)
		if err := events.SubscribeKicks(srv.Registry()); err != nil {
			logger.Errorf("subscribe presence events failed: %v", err)
			return
		}
		srv.SetEvents(events)
	}

	r := gin.Default()
	r.GET("/ws", srv.HandleWS)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Infof("relay gateway node=%s listening on %s store=%s", cfg.NodeId, addr, cfg.StoreDriver)
	if err := r.Run(addr); err != nil {
		logger.Errorf("http server exited: %v", err)
	}
}

func buildMessageStore(ctx context.Context, cfg config.AppConfig) (message.Storer, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		st := message.NewPgStorer(pool)
		if err := st.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return st, nil
	case config.StoreDriverMongo:
		cli, err := mongoutil.NewMongoDB(ctx, &mongoutil.Config{
			Uri:      cfg.MongoURI,
			Database: cfg.MongoDB,
		})
		if err != nil {
			return nil, err
		}
		st := message.NewMongoStorer(cli)
		if err := st.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

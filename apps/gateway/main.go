package main

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haidervirk/hatch-chat/pkg/auth"
	"github.com/haidervirk/hatch-chat/pkg/config"
	"github.com/haidervirk/hatch-chat/pkg/db"
	"github.com/haidervirk/hatch-chat/pkg/fanout"
	"github.com/haidervirk/hatch-chat/pkg/logger"
	"github.com/haidervirk/hatch-chat/pkg/notify"
	"github.com/haidervirk/hatch-chat/pkg/presence"
	"github.com/haidervirk/hatch-chat/pkg/registry"
	"github.com/haidervirk/hatch-chat/pkg/snowflake"
	"github.com/haidervirk/hatch-chat/pkg/store"
)

func main() {
	cfg := config.Load()
	log := logger.Named("gateway")
	defer logger.Sync()

	session, err := db.NewSession(cfg.ScyllaHosts, cfg.Keyspace)
	if err != nil {
		logger.Fatalf("connect to ScyllaDB: %v", err)
	}
	defer session.Close()

	ids, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		logger.Fatalf("init snowflake node: %v", err)
	}

	gwStore := store.NewScylla(session, ids)
	mirror := presence.NewRedisMirror(cfg.RedisAddr, log)
	defer mirror.Close()

	dispatcher := notify.NewKafkaDispatcher(cfg.KafkaBrokers, config.PushTopic)
	defer dispatcher.Close()

	instanceID := uuid.NewString()
	relay := NewRelay(cfg.KafkaBrokers, config.MessageTopic, instanceID, log)
	defer relay.Close()

	reg := registry.New(gwStore)
	router := fanout.New(gwStore, reg, dispatcher, relay, mirror, log)
	defer router.Close()

	go relay.Consume(context.Background(), router)

	gw := &Gateway{
		auth:     auth.NewVerifier(cfg.JWTSecret),
		store:    gwStore,
		registry: reg,
		presence: presence.New(mirror),
		mirror:   mirror,
		router:   router,
		log:      log,
	}

	http.HandleFunc("/ws", gw.ServeWS)

	log.Info("gateway listening",
		zap.String("addr", cfg.GatewayAddr), zap.String("instance_id", instanceID))
	if err := http.ListenAndServe(cfg.GatewayAddr, nil); err != nil {
		logger.Fatalf("gateway server: %v", err)
	}
}

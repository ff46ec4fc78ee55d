package main

import (
	"context"

	"github.com/haidervirk/hatch-chat/pkg/config"
	"github.com/haidervirk/hatch-chat/pkg/db"
	"github.com/haidervirk/hatch-chat/pkg/logger"
	"github.com/haidervirk/hatch-chat/pkg/notify"
	"github.com/haidervirk/hatch-chat/pkg/snowflake"
	"github.com/haidervirk/hatch-chat/pkg/store"
)

func main() {
	cfg := config.Load()
	log := logger.Named("notifier")
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
	nStore := store.NewScylla(session, ids)

	var provider notify.Provider
	if cfg.PushWebhookURL != "" {
		provider = notify.NewWebhookProvider(cfg.PushWebhookURL)
	} else {
		provider = &notify.LogProvider{Log: log}
	}

	consumer := NewConsumer(cfg.KafkaBrokers, config.PushTopic, "notifier-group", nStore, provider, log)
	defer consumer.Close()

	log.Info("notifier consuming push jobs")
	consumer.Consume(context.Background())
}

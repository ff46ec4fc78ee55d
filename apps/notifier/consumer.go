package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/haidervirk/hatch-chat/pkg/model"
	"github.com/haidervirk/hatch-chat/pkg/notify"
	"github.com/haidervirk/hatch-chat/pkg/store"
)

// Consumer drains push jobs from Kafka, invokes the opaque push provider
// and bumps unread counters. Provider failures are logged and dropped; the
// router already made its single attempt per (message, member).
type Consumer struct {
	reader   *kafka.Reader
	store    store.Gateway
	provider notify.Provider
	log      *zap.Logger
}

func NewConsumer(brokers []string, topic, groupID string, s store.Gateway, provider notify.Provider, log *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: r, store: s, provider: provider, log: log}
}

func (c *Consumer) Consume(ctx context.Context) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("read push job failed, retrying", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		var job model.PushJob
		if err := json.Unmarshal(m.Value, &job); err != nil {
			c.log.Warn("push job unmarshal failed", zap.Error(err))
			continue
		}
		c.handle(ctx, job)
	}
}

func (c *Consumer) handle(ctx context.Context, job model.PushJob) {
	if err := c.provider.Send(ctx, job.UserID, job.Preview); err != nil {
		c.log.Warn("push provider failed",
			zap.String("user_id", job.UserID), zap.Int64("message_id", job.MessageID), zap.Error(err))
	}

	if err := c.store.BumpUnread(ctx, job.UserID, job.ChannelID); err != nil {
		c.log.Warn("unread bump failed",
			zap.String("user_id", job.UserID), zap.String("channel_id", job.ChannelID), zap.Error(err))
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

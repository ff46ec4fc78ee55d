package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/haidervirk/hatch-chat/pkg/fanout"
	"github.com/haidervirk/hatch-chat/pkg/model"
)

// Relay fans events out across gateway instances through Kafka. Every
// instance publishes what it delivered locally and consumes with a unique
// group id so each instance sees every envelope; its own envelopes are
// skipped to keep local delivery exactly once.
type Relay struct {
	origin string
	writer *kafka.Writer
	reader *kafka.Reader
	log    *zap.Logger
}

func NewRelay(brokers []string, topic, origin string, log *zap.Logger) *Relay {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     "gateway-" + origin,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return &Relay{origin: origin, writer: writer, reader: reader, log: log}
}

// Publish implements fanout.Relay. Keyed by channel id so one channel's
// events stay in one partition, preserving order for remote subscribers.
func (r *Relay) Publish(ctx context.Context, channelID string, payload []byte) error {
	env := model.RelayEnvelope{Origin: r.origin, ChannelID: channelID, Payload: payload}
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(channelID),
		Value: value,
		Time:  time.Now(),
	})
}

// Consume feeds remote envelopes into the local router until ctx ends.
func (r *Relay) Consume(ctx context.Context, router *fanout.Router) {
	for {
		m, err := r.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.log.Warn("relay consumer error", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		var env model.RelayEnvelope
		if err := json.Unmarshal(m.Value, &env); err != nil {
			r.log.Warn("relay envelope unmarshal failed", zap.Error(err))
			continue
		}
		if env.Origin == r.origin {
			continue
		}
		router.RouteRelayed(env.ChannelID, env.Payload)
	}
}

func (r *Relay) Close() {
	r.writer.Close()
	r.reader.Close()
}

package presence

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const onlineSet = "presence:online"

func channelSetKey(channelID string) string {
	return "channel:" + channelID + ":users"
}

// RedisMirror keeps the cross-process presence view in Redis sets: one
// global online set plus a per-channel live-user set read by the API
// presence endpoint.
type RedisMirror struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewRedisMirror(addr string, log *zap.Logger) *RedisMirror {
	return &RedisMirror{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
		log: log,
	}
}

func (m *RedisMirror) SetOnline(ctx context.Context, userID string) error {
	err := m.rdb.SAdd(ctx, onlineSet, userID).Err()
	if err != nil {
		m.log.Warn("presence mirror set online failed", zap.String("user_id", userID), zap.Error(err))
	}
	return err
}

func (m *RedisMirror) SetOffline(ctx context.Context, userID string) error {
	err := m.rdb.SRem(ctx, onlineSet, userID).Err()
	if err != nil {
		m.log.Warn("presence mirror set offline failed", zap.String("user_id", userID), zap.Error(err))
	}
	return err
}

// JoinChannel records the user in the channel's live-user set.
func (m *RedisMirror) JoinChannel(ctx context.Context, channelID, userID string) {
	if err := m.rdb.SAdd(ctx, channelSetKey(channelID), userID).Err(); err != nil {
		m.log.Warn("presence mirror join failed",
			zap.String("channel_id", channelID), zap.String("user_id", userID), zap.Error(err))
	}
}

// LeaveChannel removes the user from the channel's live-user set.
func (m *RedisMirror) LeaveChannel(ctx context.Context, channelID, userID string) {
	if err := m.rdb.SRem(ctx, channelSetKey(channelID), userID).Err(); err != nil {
		m.log.Warn("presence mirror leave failed",
			zap.String("channel_id", channelID), zap.String("user_id", userID), zap.Error(err))
	}
}

// ChannelUsers lists the user ids currently live in a channel across all
// gateway instances.
func (m *RedisMirror) ChannelUsers(ctx context.Context, channelID string) ([]string, error) {
	return m.rdb.SMembers(ctx, channelSetKey(channelID)).Result()
}

func (m *RedisMirror) Close() error { return m.rdb.Close() }

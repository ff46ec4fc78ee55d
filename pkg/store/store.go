// Package store is the durable boundary of the fan-out core. The core never
// routes a message that was not first persisted here, and message ids and
// timestamps are assigned here, never by a client session.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/haidervirk/hatch-chat/pkg/model"
)

// ErrUnavailable is returned when the durable store cannot take the write.
// The caller must not fan out and must reply with an error to the sender
// only; no partial delivery ever occurs.
var ErrUnavailable = errors.New("store: unavailable")

// Gateway is the full durable contract consumed across the services.
// Core packages accept the narrow slices they need (registry.Checker,
// fanout.MemberSource) so tests can fake them independently.
type Gateway interface {
	// PersistMessage durably appends a message and returns the record with
	// its assigned id and timestamp.
	PersistMessage(ctx context.Context, channelID, senderID, text, fileRef string) (*model.Message, error)

	// IsAcceptedMember reports whether the user is a channel member with
	// invite_accepted set. Re-checked on every subscribe because membership
	// can change while a connection is open.
	IsAcceptedMember(ctx context.Context, channelID, userID string) (bool, error)

	// ChannelMembers returns the accepted member user ids of a channel.
	ChannelMembers(ctx context.Context, channelID string) ([]string, error)

	// UserName returns the cached display name for rendering delivery
	// events; falls back to the raw id when unknown.
	UserName(ctx context.Context, userID string) (string, error)

	// History returns up to limit most recent messages of a channel.
	History(ctx context.Context, channelID string, limit int) ([]model.Message, error)

	// UpsertReaction writes the user's reaction to a message; unique per
	// (message, user), latest write wins.
	UpsertReaction(ctx context.Context, messageID int64, userID, reaction string) error

	// Reactions returns all reactions on a message.
	Reactions(ctx context.Context, messageID int64) ([]model.Reaction, error)

	// MarkSeen records a read receipt; idempotent per (message, user).
	MarkSeen(ctx context.Context, messageID int64, userID string, at time.Time) error

	// BumpUnread increments the user's unread counter for a channel.
	BumpUnread(ctx context.Context, userID, channelID string) error

	// ResetUnread clears the user's unread counter for a channel.
	ResetUnread(ctx context.Context, userID, channelID string) error

	// UnreadCounts lists the user's per-channel unread counters.
	UnreadCounts(ctx context.Context, userID string) (map[string]int64, error)
}

package model

import "time"

type ChannelType string

const (
	ChannelDirect    ChannelType = "direct"
	ChannelGroup     ChannelType = "group"
	ChannelCommunity ChannelType = "community"
)

// EventType tags outbound websocket events.
type EventType string

const (
	EventChatMessage EventType = "chat.message"
	EventPresence    EventType = "presence"
)

// UserRef is the immutable slice of a user the core needs for rendering
// delivery events. The full record lives in the external user store.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Channel struct {
	ID       string      `json:"id"`
	BucketID string      `json:"bucket_id"`
	Name     string      `json:"name"`
	Type     ChannelType `json:"channel_type"`
}

// Membership is one (channel, user) row. A user only receives fan-out
// once InviteAccepted is true.
type Membership struct {
	ChannelID      string `json:"channel_id"`
	UserID         string `json:"user_id"`
	InviteAccepted bool   `json:"invite_accepted"`
}

// Message is a persisted chat message. ID is assigned by the store at
// persist time and is monotonically increasing per channel; it is the
// authoritative ordering key. Messages are immutable once persisted.
type Message struct {
	ID        int64     `json:"id"`
	ChannelID string    `json:"channel_id"`
	SenderID  string    `json:"sender_id"`
	Text      string    `json:"text"`
	FileRef   string    `json:"file_ref,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Reaction is a mutable side record on a message, unique per
// (message, user); the latest write wins.
type Reaction struct {
	MessageID int64     `json:"message_id"`
	UserID    string    `json:"user_id"`
	Reaction  string    `json:"reaction"`
	CreatedAt time.Time `json:"created_at"`
}

// ReactionGroup is the aggregated view of one reaction value on a message.
type ReactionGroup struct {
	Reaction string   `json:"reaction"`
	Count    int      `json:"count"`
	Users    []string `json:"users"`
}

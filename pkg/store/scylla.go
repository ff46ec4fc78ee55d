package store

import (
	"context"
	"time"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"

	"github.com/haidervirk/hatch-chat/pkg/db"
	"github.com/haidervirk/hatch-chat/pkg/model"
	"github.com/haidervirk/hatch-chat/pkg/snowflake"
)

// Scylla implements Gateway on a ScyllaDB keyspace.
type Scylla struct {
	session *db.Session
	ids     *snowflake.Node
}

func NewScylla(session *db.Session, ids *snowflake.Node) *Scylla {
	return &Scylla{session: session, ids: ids}
}

func (s *Scylla) PersistMessage(ctx context.Context, channelID, senderID, text, fileRef string) (*model.Message, error) {
	id := s.ids.Generate()
	// created_at is derived from the id so the timestamp order can never
	// disagree with the id order.
	created := id.Time().UTC()

	err := s.session.Query(
		`INSERT INTO messages (channel_id, id, sender_id, text, file_ref, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		channelID, id.Int64(), senderID, text, fileRef, created,
	).WithContext(ctx).Exec()
	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "persist message on %s: %v", channelID, err)
	}

	return &model.Message{
		ID:        id.Int64(),
		ChannelID: channelID,
		SenderID:  senderID,
		Text:      text,
		FileRef:   fileRef,
		CreatedAt: created,
	}, nil
}

func (s *Scylla) IsAcceptedMember(ctx context.Context, channelID, userID string) (bool, error) {
	var accepted bool
	err := s.session.Query(
		`SELECT invite_accepted FROM channel_members WHERE channel_id = ? AND user_id = ?`,
		channelID, userID,
	).WithContext(ctx).Scan(&accepted)
	if err == gocql.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(ErrUnavailable, "membership check %s/%s: %v", channelID, userID, err)
	}
	return accepted, nil
}

func (s *Scylla) ChannelMembers(ctx context.Context, channelID string) ([]string, error) {
	iter := s.session.Query(
		`SELECT user_id, invite_accepted FROM channel_members WHERE channel_id = ?`,
		channelID,
	).WithContext(ctx).Iter()

	var members []string
	var userID string
	var accepted bool
	for iter.Scan(&userID, &accepted) {
		if accepted {
			members = append(members, userID)
		}
	}
	if err := iter.Close(); err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "list members of %s: %v", channelID, err)
	}
	return members, nil
}

func (s *Scylla) UserName(ctx context.Context, userID string) (string, error) {
	var name string
	err := s.session.Query(`SELECT name FROM users WHERE id = ?`, userID).
		WithContext(ctx).Scan(&name)
	return resolveUserName(userID, name, err)
}

// resolveUserName falls back to the user id when no profile row exists or
// the stored name is blank. A failed query surfaces as ErrUnavailable; an
// empty scan value must not mask it.
func resolveUserName(userID, name string, err error) (string, error) {
	if err == gocql.ErrNotFound {
		return userID, nil
	}
	if err != nil {
		return "", errors.Wrapf(ErrUnavailable, "user name %s: %v", userID, err)
	}
	if name == "" {
		return userID, nil
	}
	return name, nil
}

func (s *Scylla) History(ctx context.Context, channelID string, limit int) ([]model.Message, error) {
	iter := s.session.Query(
		`SELECT channel_id, id, sender_id, text, file_ref, created_at FROM messages WHERE channel_id = ? LIMIT ?`,
		channelID, limit,
	).WithContext(ctx).Iter()

	var messages []model.Message
	var m model.Message
	for iter.Scan(&m.ChannelID, &m.ID, &m.SenderID, &m.Text, &m.FileRef, &m.CreatedAt) {
		messages = append(messages, m)
	}
	if err := iter.Close(); err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "history of %s: %v", channelID, err)
	}
	return messages, nil
}

func (s *Scylla) UpsertReaction(ctx context.Context, messageID int64, userID, reaction string) error {
	// INSERT on the (message_id, user_id) key is a native upsert.
	err := s.session.Query(
		`INSERT INTO message_reactions (message_id, user_id, reaction, created_at) VALUES (?, ?, ?, ?)`,
		messageID, userID, reaction, time.Now().UTC(),
	).WithContext(ctx).Exec()
	if err != nil {
		return errors.Wrapf(ErrUnavailable, "react to %d: %v", messageID, err)
	}
	return nil
}

func (s *Scylla) Reactions(ctx context.Context, messageID int64) ([]model.Reaction, error) {
	iter := s.session.Query(
		`SELECT message_id, user_id, reaction, created_at FROM message_reactions WHERE message_id = ?`,
		messageID,
	).WithContext(ctx).Iter()

	var reactions []model.Reaction
	var r model.Reaction
	for iter.Scan(&r.MessageID, &r.UserID, &r.Reaction, &r.CreatedAt) {
		reactions = append(reactions, r)
	}
	if err := iter.Close(); err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "reactions of %d: %v", messageID, err)
	}
	return reactions, nil
}

func (s *Scylla) MarkSeen(ctx context.Context, messageID int64, userID string, at time.Time) error {
	err := s.session.Query(
		`INSERT INTO message_seen (message_id, user_id, seen_at) VALUES (?, ?, ?)`,
		messageID, userID, at.UTC(),
	).WithContext(ctx).Exec()
	if err != nil {
		return errors.Wrapf(ErrUnavailable, "mark seen %d/%s: %v", messageID, userID, err)
	}
	return nil
}

func (s *Scylla) BumpUnread(ctx context.Context, userID, channelID string) error {
	err := s.session.Query(
		`UPDATE channel_counters SET unread_count = unread_count + 1 WHERE user_id = ? AND channel_id = ?`,
		userID, channelID,
	).WithContext(ctx).Exec()
	if err != nil {
		return errors.Wrapf(ErrUnavailable, "bump unread %s/%s: %v", userID, channelID, err)
	}
	return nil
}

func (s *Scylla) ResetUnread(ctx context.Context, userID, channelID string) error {
	// Deleting the counter row is the reset for Scylla counters.
	err := s.session.Query(
		`DELETE FROM channel_counters WHERE user_id = ? AND channel_id = ?`,
		userID, channelID,
	).WithContext(ctx).Exec()
	if err != nil {
		return errors.Wrapf(ErrUnavailable, "reset unread %s/%s: %v", userID, channelID, err)
	}
	return nil
}

func (s *Scylla) UnreadCounts(ctx context.Context, userID string) (map[string]int64, error) {
	iter := s.session.Query(
		`SELECT channel_id, unread_count FROM channel_counters WHERE user_id = ?`,
		userID,
	).WithContext(ctx).Iter()

	counts := make(map[string]int64)
	var channelID string
	var n int64
	for iter.Scan(&channelID, &n) {
		counts[channelID] = n
	}
	if err := iter.Close(); err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "unread counts %s: %v", userID, err)
	}
	return counts, nil
}

package main

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/haidervirk/hatch-chat/pkg/fanout"
	"github.com/haidervirk/hatch-chat/pkg/model"
	"github.com/haidervirk/hatch-chat/pkg/registry"
	"github.com/haidervirk/hatch-chat/pkg/store"
)

type fakeStore struct {
	store.Gateway

	mu         sync.Mutex
	persisted  []model.Message
	persistErr error
	nextID     int64
	members    map[string][]string
}

func (f *fakeStore) PersistMessage(ctx context.Context, channelID, senderID, text, fileRef string) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.persistErr != nil {
		return nil, f.persistErr
	}
	f.nextID++
	m := model.Message{
		ID:        100 + f.nextID,
		ChannelID: channelID,
		SenderID:  senderID,
		Text:      text,
		FileRef:   fileRef,
		CreatedAt: time.Now().UTC(),
	}
	f.persisted = append(f.persisted, m)
	return &m, nil
}

func (f *fakeStore) ChannelMembers(ctx context.Context, channelID string) ([]string, error) {
	return f.members[channelID], nil
}

func (f *fakeStore) persistCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.persisted)
}

type fakeRecipient struct {
	userID string
	mu     sync.Mutex
	got    [][]byte
}

func (c *fakeRecipient) UserID() string { return c.userID }

func (c *fakeRecipient) Send(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, payload)
	return true
}

type fixedLive struct {
	conns []registry.Conn
}

func (l *fixedLive) LiveMembers(channelID string) []registry.Conn { return l.conns }

type nopPusher struct{}

func (nopPusher) Push(ctx context.Context, job model.PushJob) error { return nil }

func newTestSession(t *testing.T, fs *fakeStore, recipients ...registry.Conn) (*Client, *fanout.Router) {
	t.Helper()
	router := fanout.New(fs, &fixedLive{conns: recipients}, nopPusher{}, nil, nil, zap.NewNop())
	gw := &Gateway{store: fs, router: router, log: zap.NewNop()}
	c := newClient(gw, nil, "u1", "User One", "42")
	c.open()
	return c, router
}

func readReply(t *testing.T, c *Client) model.ErrorReply {
	t.Helper()
	select {
	case payload := <-c.send:
		var reply model.ErrorReply
		require.NoError(t, json.Unmarshal(payload, &reply))
		return reply
	case <-time.After(time.Second):
		t.Fatal("no reply queued")
		return model.ErrorReply{}
	}
}

func TestHandleFrameDeliversToSubscribers(t *testing.T) {
	fs := &fakeStore{members: map[string][]string{"42": {"u1", "u2"}}}
	recipient := &fakeRecipient{userID: "u2"}
	c, router := newTestSession(t, fs, recipient)

	err := c.handleFrame([]byte(`{"message_text": "hi", "sender_id": "u1"}`))
	require.NoError(t, err)
	router.Close()

	require.Equal(t, 1, fs.persistCount())
	require.Len(t, recipient.got, 1)
	var ev model.Event
	require.NoError(t, json.Unmarshal(recipient.got[0], &ev))
	assert.Equal(t, model.EventChatMessage, ev.Type)
	assert.Equal(t, "hi", ev.Message)
	assert.Equal(t, "u1", ev.SenderID)
	assert.Equal(t, "User One", ev.Sender)

	select {
	case payload := <-c.send:
		t.Fatalf("unexpected reply to sender: %s", payload)
	default:
	}
}

func TestHandleFrameSenderMismatch(t *testing.T) {
	fs := &fakeStore{members: map[string][]string{}}
	c, router := newTestSession(t, fs)
	defer router.Close()

	err := c.handleFrame([]byte(`{"message_text": "hi", "sender_id": "someone_else"}`))
	require.NoError(t, err, "wrong sender is recoverable, connection stays open")

	reply := readReply(t, c)
	assert.Contains(t, reply.Error, "sender_id")
	assert.Zero(t, fs.persistCount(), "nothing persisted, nothing routed")
}

func TestHandleFrameEmptyText(t *testing.T) {
	fs := &fakeStore{members: map[string][]string{}}
	c, router := newTestSession(t, fs)
	defer router.Close()

	for _, raw := range []string{`{"message_text": ""}`, `{"message_text": "   "}`, `{}`} {
		err := c.handleFrame([]byte(raw))
		require.NoError(t, err, raw)
		reply := readReply(t, c)
		assert.Contains(t, reply.Error, "message_text")
	}
	assert.Zero(t, fs.persistCount())
}

func TestHandleFrameUndecodableIsFatal(t *testing.T) {
	fs := &fakeStore{members: map[string][]string{}}
	c, router := newTestSession(t, fs)
	defer router.Close()

	err := c.handleFrame([]byte(`{not json`))
	assert.Error(t, err, "decode failure closes the connection")
	assert.Zero(t, fs.persistCount())
}

func TestHandleFrameStoreFailure(t *testing.T) {
	fs := &fakeStore{persistErr: store.ErrUnavailable, members: map[string][]string{"42": {"u1", "u2"}}}
	recipient := &fakeRecipient{userID: "u2"}
	c, router := newTestSession(t, fs, recipient)

	err := c.handleFrame([]byte(`{"message_text": "hi"}`))
	require.NoError(t, err, "store failure is recoverable for the connection")
	router.Close()

	reply := readReply(t, c)
	assert.Contains(t, reply.Error, "stored")
	assert.Empty(t, recipient.got, "no partial fan-out on persist failure")
}

func TestSendDropsWhenBufferFull(t *testing.T) {
	fs := &fakeStore{members: map[string][]string{}}
	c, router := newTestSession(t, fs)
	defer router.Close()

	payload := []byte(`{}`)
	for i := 0; i < cap(c.send); i++ {
		require.True(t, c.Send(payload))
	}
	assert.False(t, c.Send(payload), "saturated connection must not block the router")
}

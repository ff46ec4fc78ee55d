package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/haidervirk/hatch-chat/pkg/auth"
	"github.com/haidervirk/hatch-chat/pkg/model"
	"github.com/haidervirk/hatch-chat/pkg/store"
)

type fakeAPIStore struct {
	store.Gateway

	mu        sync.Mutex
	reactions map[int64]map[string]model.Reaction
	seen      map[string]time.Time
	unread    map[string]map[string]int64
	members   map[string]map[string]bool
	history   map[string][]model.Message
}

func newFakeAPIStore() *fakeAPIStore {
	return &fakeAPIStore{
		reactions: make(map[int64]map[string]model.Reaction),
		seen:      make(map[string]time.Time),
		unread:    make(map[string]map[string]int64),
		members:   make(map[string]map[string]bool),
		history:   make(map[string][]model.Message),
	}
}

func (f *fakeAPIStore) UpsertReaction(ctx context.Context, messageID int64, userID, reaction string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reactions[messageID] == nil {
		f.reactions[messageID] = make(map[string]model.Reaction)
	}
	// Keyed by user: a second write replaces the first.
	f.reactions[messageID][userID] = model.Reaction{
		MessageID: messageID, UserID: userID, Reaction: reaction, CreatedAt: time.Now(),
	}
	return nil
}

func (f *fakeAPIStore) Reactions(ctx context.Context, messageID int64) ([]model.Reaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Reaction
	for _, r := range f.reactions[messageID] {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeAPIStore) MarkSeen(ctx context.Context, messageID int64, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen[fmt.Sprintf("%d/%s", messageID, userID)] = at
	return nil
}

func (f *fakeAPIStore) ResetUnread(ctx context.Context, userID, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.unread[userID], channelID)
	return nil
}

func (f *fakeAPIStore) UnreadCounts(ctx context.Context, userID string) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int64)
	for channelID, n := range f.unread[userID] {
		out[channelID] = n
	}
	return out, nil
}

func (f *fakeAPIStore) IsAcceptedMember(ctx context.Context, channelID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[channelID][userID], nil
}

func (f *fakeAPIStore) History(ctx context.Context, channelID string, limit int) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.history[channelID]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func authedRequest(t *testing.T, v *auth.Verifier, userID, method, target string, body any) *http.Request {
	t.Helper()
	token, err := v.Mint(userID)
	require.NoError(t, err)

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func TestReactionUpsertLatestWins(t *testing.T) {
	fs := newFakeAPIStore()
	v := auth.NewVerifier("test_secret")
	handler := v.Middleware(ReactionsHandler(fs, zap.NewNop()))

	for _, reaction := range []string{"👍", "🔥"} {
		w := httptest.NewRecorder()
		r := authedRequest(t, v, "u1", http.MethodPost, "/reactions",
			ReactRequest{MessageID: 101, Reaction: reaction})
		handler.ServeHTTP(w, r)
		require.Equal(t, http.StatusOK, w.Code)
	}

	// One record per (message, user), holding the latest value.
	require.Len(t, fs.reactions[101], 1)
	assert.Equal(t, "🔥", fs.reactions[101]["u1"].Reaction)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, authedRequest(t, v, "u1", http.MethodGet, "/reactions?message_id=101", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var groups []model.ReactionGroup
	require.NoError(t, json.NewDecoder(w.Body).Decode(&groups))
	require.Len(t, groups, 1)
	assert.Equal(t, "🔥", groups[0].Reaction)
	assert.Equal(t, 1, groups[0].Count)
	assert.Equal(t, []string{"u1"}, groups[0].Users)
}

func TestReactionsRejectAnonymous(t *testing.T) {
	v := auth.NewVerifier("test_secret")
	handler := v.Middleware(ReactionsHandler(newFakeAPIStore(), zap.NewNop()))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reactions", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHistoryMembersOnly(t *testing.T) {
	fs := newFakeAPIStore()
	fs.members["42"] = map[string]bool{"u1": true}
	fs.history["42"] = []model.Message{{ID: 101, ChannelID: "42", SenderID: "u1", Text: "hi"}}

	v := auth.NewVerifier("test_secret")
	handler := v.Middleware(HistoryHandler(fs, zap.NewNop()))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, authedRequest(t, v, "u1", http.MethodGet, "/history?channel_id=42", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var msgs []model.Message
	require.NoError(t, json.NewDecoder(w.Body).Decode(&msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Text)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, authedRequest(t, v, "u4", http.MethodGet, "/history?channel_id=42", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReadReceiptResetsUnread(t *testing.T) {
	fs := newFakeAPIStore()
	fs.unread["u1"] = map[string]int64{"42": 3}

	v := auth.NewVerifier("test_secret")
	readHandler := v.Middleware(ReadHandler(fs, zap.NewNop()))
	unreadHandler := v.Middleware(UnreadHandler(fs, zap.NewNop()))

	w := httptest.NewRecorder()
	readHandler.ServeHTTP(w, authedRequest(t, v, "u1", http.MethodPost, "/channels/read",
		ReadRequest{ChannelID: "42", MessageID: 101}))
	require.Equal(t, http.StatusOK, w.Code)

	_, ok := fs.seen["101/u1"]
	assert.True(t, ok, "read receipt recorded")

	w = httptest.NewRecorder()
	unreadHandler.ServeHTTP(w, authedRequest(t, v, "u1", http.MethodGet, "/channels/unread", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var counts map[string]int64
	require.NoError(t, json.NewDecoder(w.Body).Decode(&counts))
	assert.Empty(t, counts)
}

func TestReadRejectsGet(t *testing.T) {
	v := auth.NewVerifier("test_secret")
	handler := v.Middleware(ReadHandler(newFakeAPIStore(), zap.NewNop()))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, authedRequest(t, v, "u1", http.MethodGet, "/channels/read", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/haidervirk/hatch-chat/pkg/auth"
	"github.com/haidervirk/hatch-chat/pkg/fanout"
	"github.com/haidervirk/hatch-chat/pkg/presence"
	"github.com/haidervirk/hatch-chat/pkg/registry"
	"github.com/haidervirk/hatch-chat/pkg/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// Gateway bundles the per-instance wiring shared by all sessions.
type Gateway struct {
	auth     *auth.Verifier
	store    store.Gateway
	registry *registry.Registry
	presence *presence.Tracker
	mirror   *presence.RedisMirror
	router   *fanout.Router
	log      *zap.Logger
}

// ServeWS handles a websocket handshake. Identity is verified before the
// upgrade; membership is re-validated by the registry on subscribe. A
// non-member never gets a registry entry and nobody else sees any event.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, err := g.auth.IdentifyConnection(r)
	if err != nil {
		g.log.Warn("handshake rejected", zap.Error(err))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	channelID := r.URL.Query().Get("channel")
	if channelID == "" {
		http.Error(w, "channel is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	userName, err := g.store.UserName(ctx, userID)
	if err != nil {
		userName = userID
	}

	client := newClient(g, conn, userID, userName, channelID)

	if err := g.registry.Subscribe(ctx, channelID, client); err != nil {
		reason := "subscribe failed"
		if errors.Is(err, registry.ErrNotAMember) {
			reason = "not a channel member"
		}
		deadline := time.Now().Add(writeWait)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), deadline)
		conn.Close()
		g.log.Warn("subscribe rejected",
			zap.String("user_id", userID), zap.String("channel_id", channelID), zap.Error(err))
		return
	}

	client.open()
	g.presence.MarkOnline(ctx, userID)
	if g.mirror != nil {
		g.mirror.JoinChannel(ctx, channelID, userID)
	}

	go client.writePump()
	go client.readPump()

	if err := g.router.Announce(ctx, client.presenceEvent("joined")); err != nil {
		g.log.Warn("join announce failed", zap.Error(err))
	}
	g.log.Info("session open",
		zap.String("user_id", userID), zap.String("channel_id", channelID), zap.String("session_id", client.id))
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/haidervirk/hatch-chat/pkg/model"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	persistTimeout = 5 * time.Second
)

// Connection session states. Transitions only move forward:
// connecting -> open -> closed.
const (
	stateConnecting int32 = iota
	stateOpen
	stateClosed
)

// Client is one connection session: exactly one (user, channel) pair bound
// to one websocket. A user open in N channels holds N independent clients.
type Client struct {
	id        string
	userID    string
	userName  string
	channelID string

	gw   *Gateway
	conn *websocket.Conn

	state int32

	send     chan []byte
	sendMu   sync.RWMutex
	sendShut bool

	closeOnce sync.Once
}

func newClient(gw *Gateway, conn *websocket.Conn, userID, userName, channelID string) *Client {
	return &Client{
		id:        uuid.NewString(),
		userID:    userID,
		userName:  userName,
		channelID: channelID,
		gw:        gw,
		conn:      conn,
		state:     stateConnecting,
		send:      make(chan []byte, 256),
	}
}

// UserID implements registry.Conn.
func (c *Client) UserID() string { return c.userID }

// Send implements registry.Conn. It never blocks: a full buffer means the
// peer cannot keep up and the event is dropped along with the connection.
func (c *Client) Send(payload []byte) bool {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()
	if c.sendShut {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) open() {
	atomic.StoreInt32(&c.state, stateOpen)
}

// close is the terminal transition. Idempotent: the second and any later
// call is a no-op. Cancels only this connection's pending deliveries; a
// message this client persisted still fans out to everyone else.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		wasOpen := atomic.SwapInt32(&c.state, stateClosed) == stateOpen

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		c.gw.registry.Unsubscribe(c.channelID, c)

		c.sendMu.Lock()
		c.sendShut = true
		close(c.send)
		c.sendMu.Unlock()
		c.conn.Close()

		if wasOpen {
			c.gw.presence.MarkOffline(ctx, c.userID)
			if c.gw.mirror != nil {
				c.gw.mirror.LeaveChannel(ctx, c.channelID, c.userID)
			}
			if err := c.gw.router.Announce(ctx, c.presenceEvent("left")); err != nil {
				c.gw.log.Warn("leave announce failed", zap.Error(err))
			}
			c.gw.log.Info("session closed",
				zap.String("user_id", c.userID), zap.String("channel_id", c.channelID))
		}
	})
}

func (c *Client) presenceEvent(what string) model.Event {
	return model.Event{
		Type:      model.EventPresence,
		Message:   what,
		Sender:    c.userName,
		SenderID:  c.userID,
		ChannelID: c.channelID,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// readPump pumps frames from the websocket into persist-then-route.
func (c *Client) readPump() {
	defer c.close()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.gw.log.Warn("read error", zap.String("user_id", c.userID), zap.Error(err))
			}
			return
		}
		if err := c.handleFrame(data); err != nil {
			// Undecodable frame: fatal for this connection only.
			c.replyError("malformed frame")
			return
		}
	}
}

// handleFrame validates one inbound frame and runs persist-then-route. A
// non-nil return is a protocol-level decode failure and closes the
// connection; validation failures reply to this connection and keep it
// open.
func (c *Client) handleFrame(data []byte) error {
	var frame model.InboundFrame
	if err := json.Unmarshal(bytes.TrimSpace(data), &frame); err != nil {
		return err
	}

	if frame.SenderID != "" && frame.SenderID != c.userID {
		c.replyError("sender_id does not match authenticated user")
		return nil
	}
	if strings.TrimSpace(frame.MessageText) == "" {
		c.replyError("message_text must not be empty")
		return nil
	}

	// Background-scoped: the sender disconnecting mid-send must not drop
	// the message for the other recipients.
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	msg, err := c.gw.store.PersistMessage(ctx, c.channelID, c.userID, frame.MessageText, frame.FileRef)
	if err != nil {
		// Not persisted means not routed: no partial fan-out.
		c.gw.log.Error("persist failed",
			zap.String("channel_id", c.channelID), zap.String("user_id", c.userID), zap.Error(err))
		c.replyError("message could not be stored")
		return nil
	}

	if err := c.gw.router.Route(ctx, msg, c.userName); err != nil {
		c.gw.log.Error("route failed", zap.Int64("message_id", msg.ID), zap.Error(err))
	}
	return nil
}

// replyError reports a failure to this connection only.
func (c *Client) replyError(text string) {
	payload, err := json.Marshal(model.ErrorReply{Error: text})
	if err != nil {
		return
	}
	c.Send(payload)
}

// writePump pumps queued events to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(payload)
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

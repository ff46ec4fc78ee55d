// Package fanout turns one persisted message into delivery attempts: live
// connections first, push-notification jobs for the accepted members that
// are not connected anywhere.
package fanout

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/haidervirk/hatch-chat/pkg/model"
	"github.com/haidervirk/hatch-chat/pkg/notify"
	"github.com/haidervirk/hatch-chat/pkg/registry"
)

// MemberSource returns the full accepted member set of a channel from
// durable membership. The live registry alone is not enough: offline
// members still get a push.
type MemberSource interface {
	ChannelMembers(ctx context.Context, channelID string) ([]string, error)
}

// LiveSource is the registry view the router reads.
type LiveSource interface {
	LiveMembers(channelID string) []registry.Conn
}

// Relay publishes delivered events to the other gateway instances. May be
// nil in single-instance deployments.
type Relay interface {
	Publish(ctx context.Context, channelID string, payload []byte) error
}

// ChannelPresence reports which user ids are live on a channel across all
// gateway instances. A member connected only to another instance gets the
// message through the relay, so it must not be counted as offline here.
// May be nil in single-instance deployments.
type ChannelPresence interface {
	ChannelUsers(ctx context.Context, channelID string) ([]string, error)
}

const (
	queueDepth   = 256
	pushDeadline = 10 * time.Second
)

type item struct {
	channelID string
	payload   []byte

	// msg is set only for origin chat messages; nil for relayed events and
	// ephemeral presence announcements, which get live delivery only.
	msg *model.Message
}

// Router owns one dispatcher goroutine per channel. All deliveries for a
// channel pass through its queue in persistence order, so every live
// connection sees messages in the store's order and a second message can
// never overtake the first mid-broadcast.
type Router struct {
	members  MemberSource
	live     LiveSource
	pusher   notify.Dispatcher
	relay    Relay
	presence ChannelPresence
	log      *zap.Logger

	mu     sync.Mutex
	queues map[string]chan item
	closed bool
	stop   chan struct{}
	wg     sync.WaitGroup
}

func New(members MemberSource, live LiveSource, pusher notify.Dispatcher, relay Relay, presence ChannelPresence, log *zap.Logger) *Router {
	return &Router{
		members:  members,
		live:     live,
		pusher:   pusher,
		relay:    relay,
		presence: presence,
		log:      log,
		queues:   make(map[string]chan item),
		stop:     make(chan struct{}),
	}
}

// Route fans out a message that the store has already persisted. It must
// never be called for a message that failed to persist. The call only
// enqueues; delivery happens on the channel's dispatcher goroutine.
func (r *Router) Route(ctx context.Context, msg *model.Message, senderName string) error {
	payload, err := json.Marshal(model.NewChatEvent(msg, senderName))
	if err != nil {
		return err
	}
	r.enqueue(item{channelID: msg.ChannelID, payload: payload, msg: msg})
	return nil
}

// RouteRelayed delivers an event published by another gateway instance to
// the local live subscribers only. The origin instance already handled
// offline dispatch and relaying.
func (r *Router) RouteRelayed(channelID string, payload []byte) {
	r.enqueue(item{channelID: channelID, payload: payload})
}

// Announce broadcasts an ephemeral event (join/leave presence) to the
// channel's live subscribers, local and remote. Never persisted, never
// pushed.
func (r *Router) Announce(ctx context.Context, ev model.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	r.enqueue(item{channelID: ev.ChannelID, payload: payload})
	if r.relay != nil {
		if err := r.relay.Publish(ctx, ev.ChannelID, payload); err != nil {
			r.log.Warn("announce relay failed", zap.String("channel_id", ev.ChannelID), zap.Error(err))
		}
	}
	return nil
}

// Close stops every channel dispatcher after draining its queue and waits
// for in-flight offline dispatch. The queue channels are never closed: a
// session blocked on a full queue mid-shutdown completes its send and the
// dispatcher drains it, instead of panicking the process.
func (r *Router) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()
	close(r.stop)
	r.wg.Wait()
}

func (r *Router) enqueue(it item) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.log.Warn("router closed, dropping event", zap.String("channel_id", it.channelID))
		return
	}
	q, ok := r.queues[it.channelID]
	if !ok {
		q = make(chan item, queueDepth)
		r.queues[it.channelID] = q
		r.wg.Add(1)
		go r.dispatch(it.channelID, q)
	}
	r.mu.Unlock()

	// Blocks when the channel queue is full; backpressure lands on the
	// sending session, not on other channels.
	q <- it
}

func (r *Router) dispatch(channelID string, q chan item) {
	defer r.wg.Done()
	for {
		select {
		case it := <-q:
			r.deliver(it)
		case <-r.stop:
			// Drain whatever made it into the queue before shutdown,
			// including a send that was parked on a full queue.
			for {
				select {
				case it := <-q:
					r.deliver(it)
				default:
					return
				}
			}
		}
	}
}

func (r *Router) deliver(it item) {
	conns := r.live.LiveMembers(it.channelID)

	for _, c := range conns {
		// Send never blocks; a dead or saturated connection reports false
		// and is torn down by its own session, so one broken pipe cannot
		// stall delivery to anyone else.
		if !c.Send(it.payload) {
			r.log.Warn("dropped delivery to slow connection",
				zap.String("channel_id", it.channelID), zap.String("user_id", c.UserID()))
		}
	}

	if it.msg == nil {
		return
	}

	if r.relay != nil {
		// Relay in queue order so remote instances see the same sequence.
		ctx, cancel := context.WithTimeout(context.Background(), pushDeadline)
		if err := r.relay.Publish(ctx, it.channelID, it.payload); err != nil {
			r.log.Warn("relay publish failed",
				zap.String("channel_id", it.channelID), zap.Int64("message_id", it.msg.ID), zap.Error(err))
		}
		cancel()
	}

	// A connection that failed Send above was still live at snapshot time;
	// it gets no push either, its session is already closing.
	liveUsers := make(map[string]struct{}, len(conns))
	for _, c := range conns {
		liveUsers[c.UserID()] = struct{}{}
	}

	// Offline dispatch runs detached so provider or broker latency never
	// delays the next message on this channel.
	r.wg.Add(1)
	go r.pushOffline(it.msg, liveUsers)
}

func (r *Router) pushOffline(msg *model.Message, liveUsers map[string]struct{}) {
	defer r.wg.Done()
	ctx, cancel := context.WithTimeout(context.Background(), pushDeadline)
	defer cancel()

	members, err := r.members.ChannelMembers(ctx, msg.ChannelID)
	if err != nil {
		r.log.Error("offline dispatch: member lookup failed",
			zap.String("channel_id", msg.ChannelID), zap.Int64("message_id", msg.ID), zap.Error(err))
		return
	}

	// Members live on another gateway instance receive the message through
	// the relay; they are not offline. On lookup failure fall back to the
	// local view, a duplicate push beats a dropped one.
	if r.presence != nil {
		remote, err := r.presence.ChannelUsers(ctx, msg.ChannelID)
		if err != nil {
			r.log.Warn("offline dispatch: channel presence lookup failed",
				zap.String("channel_id", msg.ChannelID), zap.Error(err))
		}
		for _, userID := range remote {
			liveUsers[userID] = struct{}{}
		}
	}

	preview := notify.Preview(msg.Text)
	for _, userID := range members {
		if _, ok := liveUsers[userID]; ok {
			continue
		}
		if userID == msg.SenderID {
			// A sender that disconnected mid-send still authored the
			// message; no self notification.
			continue
		}
		job := model.PushJob{
			UserID:    userID,
			ChannelID: msg.ChannelID,
			MessageID: msg.ID,
			Preview:   preview,
		}
		if err := r.pusher.Push(ctx, job); err != nil {
			// At most one attempt per (message, member); failures are
			// invisible to the sender.
			r.log.Warn("push dispatch failed",
				zap.String("user_id", userID), zap.Int64("message_id", msg.ID), zap.Error(err))
		}
	}
}

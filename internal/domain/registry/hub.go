/*
Package registry implements the store-and-forward relay core on the Actor Model.

Key Architectural Concepts:
  - Single Owner: one goroutine (the Hub loop) owns presence, pending queues, the
    dedup cache, groups and the key directory. Every public method submits a closure
    to the mailbox and waits for it, so all state transitions are serialized.
  - Fire-and-forget delivery: pushing to a connection never blocks. A handle that
    refuses an event (full or closed) is evicted and closed; the message and every
    later one for that user are queued and replayed in order on the next register.
  - Janitor: the TTL sweep runs on a ticker inside the same loop, so it can never
    interleave with a drain.
  - Marshal once: a group message is a single event shared by every present member;
    the transport caches its wire encoding on the event.
*/
package registry

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid"
	"github.com/webitel/im-relay-service/internal/domain/model"
)

// ErrHubClosed is returned by every operation after Shutdown.
var ErrHubClosed = errors.New("registry: hub is closed")

// Observer receives activity records. Implementations must not block.
type Observer interface {
	Observe(a *model.Activity)
}

// Hubber defines the gateway for presence, routing and group management.
type Hubber interface {
	Register(conn model.Connector, req RegisterRequest) (RegisterResult, error)
	Unregister(userID string, conn model.Connector) (bool, error)
	Send(msg model.DirectMessage) (Outcome, error)
	SendGroup(msg model.GroupMessage) (GroupOutcome, error)
	CreateGroup(groupID string, members []string) error
	JoinGroup(groupID, userID string) error
	LeaveGroup(groupID, userID string) error
	Members(groupID string) ([]string, error)
	LookupKey(userID string) (string, bool, error)
	IsConnected(userID string) bool
	Sweep() (int, error)
	Stats() (model.HubStats, error)
	Shutdown()
}

// RegisterRequest carries a validated `register` event.
type RegisterRequest struct {
	UserID    string
	PublicKey string
	Groups    []string
}

// RegisterResult reports what a registration did.
type RegisterResult struct {
	Previous model.Connector // replaced handle, left open
	Replayed int             // pending messages pushed to the new handle
	Requeued int             // pending messages the handle refused
}

// Outcome is the fate of one direct message.
type Outcome int

const (
	Delivered Outcome = iota + 1
	Queued
	Duplicate
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Queued:
		return "queued"
	case Duplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// GroupOutcome summarizes a group fan-out.
type GroupOutcome struct {
	Delivered    int
	Queued       int
	Duplicate    bool
	UnknownGroup bool
}

type hubConfig struct {
	sweepInterval time.Duration
	pendingTTL    time.Duration
	mailboxSize   int
	dedupCapacity int
	keyCacheSize  int
	now           func() time.Time
	logger        *slog.Logger
	observers     []Observer
}

// Hub implements the relay dispatcher.
type Hub struct {
	config hubConfig

	presence *Presence
	pending  *Pending
	dedup    *Dedup
	groups   *Groups
	keys     *Keys

	// [MAILBOX] closures executed by the loop goroutine, in order
	mailbox chan func()
	doneCh  chan struct{}
	stopped chan struct{}
	once    sync.Once

	entropy   io.Reader
	startedAt time.Time
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		config: hubConfig{
			sweepInterval: time.Hour,
			pendingTTL:    24 * time.Hour,
			mailboxSize:   1024,
			dedupCapacity: DefaultDedupCapacity,
			keyCacheSize:  DefaultKeyCacheSize,
			now:           time.Now,
			logger:        slog.Default(),
		},
	}
	for _, opt := range opts {
		opt(h)
	}

	h.presence = NewPresence()
	h.pending = NewPending()
	h.dedup = NewDedup(h.config.dedupCapacity)
	h.groups = NewGroups()
	h.keys = NewKeys(h.config.keyCacheSize)
	h.mailbox = make(chan func(), h.config.mailboxSize)
	h.doneCh = make(chan struct{})
	h.stopped = make(chan struct{})
	h.entropy = ulid.Monotonic(rand.Reader, 0)
	h.startedAt = h.config.now()

	go h.loop()
	return h
}

func (h *Hub) loop() {
	defer close(h.stopped)

	ticker := time.NewTicker(h.config.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.doneCh:
			return
		case fn := <-h.mailbox:
			h.run(fn)
		case <-ticker.C:
			h.run(func() { h.sweep() })
		}
	}
}

// run executes fn and keeps the loop alive if it panics.
func (h *Hub) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.config.logger.Error("RELAY_PANIC_RECOVERED",
				"err", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}

// do submits fn to the loop and waits until it has run.
func (h *Hub) do(fn func()) error {
	done := make(chan struct{})
	task := func() {
		defer close(done)
		fn()
	}

	select {
	case <-h.doneCh:
		return ErrHubClosed
	case h.mailbox <- task:
	}

	select {
	case <-done:
		return nil
	case <-h.stopped:
		// The loop may have finished our task right before stopping.
		select {
		case <-done:
			return nil
		default:
			return ErrHubClosed
		}
	}
}

// Shutdown stops the loop. Queued state is dropped.
func (h *Hub) Shutdown() {
	h.once.Do(func() {
		close(h.doneCh)
		<-h.stopped
	})
}

// Register records presence, rejoins declared groups and replays pending messages.
func (h *Hub) Register(conn model.Connector, req RegisterRequest) (RegisterResult, error) {
	var res RegisterResult
	if conn == nil || req.UserID == "" {
		return res, fmt.Errorf("registry: register requires a connection and a user id")
	}

	err := h.do(func() {
		res.Previous, _ = h.presence.Register(req.UserID, conn)

		for _, groupID := range req.Groups {
			if groupID != "" {
				h.groups.ReconcileOnRegister(groupID, req.UserID)
			}
		}
		h.keys.Put(req.UserID, req.PublicKey)

		live := h.drainLive(req.UserID)

		ack := model.NewRelayEvent("", model.Registered, &model.RegisteredPayload{
			Ok:            true,
			UserID:        req.UserID,
			ConnectionID:  conn.GetID().String(),
			ServerVersion: model.ServerVersion,
			Pending:       len(live),
		})
		if !conn.Send(ack) {
			h.requeue(req.UserID, live)
			res.Requeued = len(live)
			h.evict(req.UserID, conn, "")
			return
		}

		for i, m := range live {
			if !conn.Send(eventFor(m)) {
				// [ORDER] keep the refused tail in its original order
				h.requeue(req.UserID, live[i:])
				res.Requeued = len(live) - i
				h.evict(req.UserID, conn, m.ID)
				break
			}
			res.Replayed++
		}

		a := model.NewActivity(model.ActivityRegistered)
		a.UserID = req.UserID
		h.observe(a)
		if res.Replayed > 0 {
			a := model.NewActivity(model.ActivityReplayed)
			a.UserID = req.UserID
			a.Count = res.Replayed
			h.observe(a)
		}
	})

	return res, err
}

func (h *Hub) requeue(userID string, batch []*model.PendingMessage) {
	for _, m := range batch {
		h.pending.Enqueue(userID, m)
	}
}

// evict drops a handle whose buffer refused a push and closes it. The client
// reconnects and the backlog is replayed in order on its next register.
func (h *Hub) evict(userID string, conn model.Connector, msgID string) {
	h.presence.RemoveIfCurrent(userID, conn)
	conn.Close()
	h.config.logger.Warn("RELAY_PUSH_REFUSED",
		"user_id", userID,
		"conn_id", conn.GetID(),
		"msg_id", msgID,
		"dropped", conn.Dropped(),
	)
}

// drainLive empties the recipient's queue, dropping anything past the TTL.
func (h *Hub) drainLive(userID string) []*model.PendingMessage {
	batch := h.pending.DrainAndClear(userID)
	if len(batch) == 0 {
		return nil
	}

	now := h.config.now()
	live := batch[:0]
	for _, m := range batch {
		if m.ExpiredAt(now, h.config.pendingTTL) {
			h.observeMessage(model.ActivityExpired, m)
			continue
		}
		live = append(live, m)
	}
	return live
}

// Unregister removes presence only if conn is still the registered handle.
func (h *Hub) Unregister(userID string, conn model.Connector) (bool, error) {
	var removed bool
	err := h.do(func() {
		removed = h.presence.RemoveIfCurrent(userID, conn)
	})
	return removed, err
}

// Send delivers a direct message or queues it for an absent recipient.
func (h *Hub) Send(msg model.DirectMessage) (Outcome, error) {
	var out Outcome
	err := h.do(func() {
		id := msg.ID
		if id == "" {
			id = h.newID()
		}
		if h.dedup.SeenOrMark(id) {
			h.observeDuplicate(id, msg.From, "")
			out = Duplicate
			return
		}

		out = h.deliverOrEnqueue(&model.PendingMessage{
			ID:        id,
			From:      msg.From,
			To:        msg.To,
			Payload:   msg.Encrypted,
			Timestamp: h.config.now().UnixMilli(),
		}, nil)
	})
	return out, err
}

// SendGroup fans a group message out to every member except the sender.
// Messages for unknown or empty groups are dropped.
func (h *Hub) SendGroup(msg model.GroupMessage) (GroupOutcome, error) {
	var out GroupOutcome
	err := h.do(func() {
		id := msg.ID
		if id == "" {
			id = h.newID()
		}
		// Ids are marked only for groups that fan out.
		members := h.groups.Members(msg.GroupID)
		if len(members) == 0 {
			out.UnknownGroup = true
			h.config.logger.Debug("RELAY_GROUP_UNKNOWN", "group_id", msg.GroupID, "msg_id", id)
			a := model.NewActivity(model.ActivityDropped)
			a.MessageID = id
			a.From = msg.From
			a.GroupID = msg.GroupID
			h.observe(a)
			return
		}

		if h.dedup.SeenOrMark(id) {
			h.observeDuplicate(id, msg.From, msg.GroupID)
			out.Duplicate = true
			return
		}

		ts := h.config.now().UnixMilli()
		// [MARSHAL_ONCE] one event shared by all present members
		shared := model.NewGroupMessageEvent(&model.PendingMessage{
			ID:        id,
			From:      msg.From,
			Payload:   msg.Encrypted,
			Content:   msg.Content,
			Timestamp: ts,
			GroupID:   msg.GroupID,
		})

		for _, member := range members {
			if member == msg.From {
				continue
			}
			res := h.deliverOrEnqueue(&model.PendingMessage{
				ID:        id,
				From:      msg.From,
				To:        member,
				Payload:   msg.Encrypted,
				Content:   msg.Content,
				Timestamp: ts,
				GroupID:   msg.GroupID,
			}, shared)
			if res == Delivered {
				out.Delivered++
			} else {
				out.Queued++
			}
		}
	})
	return out, err
}

// deliverOrEnqueue pushes msg to the recipient's current handle, falling back
// to the pending queue when the recipient is absent, already has a backlog, or
// the push is refused. A refused handle is evicted.
// ev, when set, is the prebuilt event to push.
func (h *Hub) deliverOrEnqueue(msg *model.PendingMessage, ev model.Eventer) Outcome {
	conn, ok := h.presence.Lookup(msg.To)
	// [ORDER] nothing may overtake a queued message for the same recipient
	if ok && h.pending.Queued(msg.To) == 0 {
		if ev == nil {
			ev = eventFor(msg)
		}
		if conn.Send(ev) {
			h.observeMessage(model.ActivityDelivered, msg)
			return Delivered
		}
		h.evict(msg.To, conn, msg.ID)
	}

	h.pending.Enqueue(msg.To, msg)
	h.observeMessage(model.ActivityQueued, msg)
	return Queued
}

func (h *Hub) CreateGroup(groupID string, members []string) error {
	return h.do(func() { h.groups.Create(groupID, members) })
}

func (h *Hub) JoinGroup(groupID, userID string) error {
	return h.do(func() { h.groups.Join(groupID, userID) })
}

func (h *Hub) LeaveGroup(groupID, userID string) error {
	return h.do(func() { h.groups.Leave(groupID, userID) })
}

func (h *Hub) Members(groupID string) ([]string, error) {
	var members []string
	err := h.do(func() { members = h.groups.Members(groupID) })
	return members, err
}

// LookupKey returns the public key userID announced at its last registration.
func (h *Hub) LookupKey(userID string) (string, bool, error) {
	var (
		key   string
		found bool
	)
	err := h.do(func() { key, found = h.keys.Get(userID) })
	return key, found, err
}

func (h *Hub) IsConnected(userID string) bool {
	var ok bool
	if err := h.do(func() { _, ok = h.presence.Lookup(userID) }); err != nil {
		return false
	}
	return ok
}

// Sweep runs the TTL janitor immediately and returns the number of evicted messages.
func (h *Hub) Sweep() (int, error) {
	var n int
	err := h.do(func() { n = h.sweep() })
	return n, err
}

func (h *Hub) sweep() int {
	expired := h.pending.Sweep(h.config.now(), h.config.pendingTTL)
	for _, m := range expired {
		h.observeMessage(model.ActivityExpired, m)
	}
	if len(expired) > 0 {
		h.config.logger.Info("RELAY_PENDING_SWEPT",
			"expired", len(expired),
			"remaining", h.pending.Len(),
		)
	}
	return len(expired)
}

func (h *Hub) Stats() (model.HubStats, error) {
	var st model.HubStats
	err := h.do(func() {
		st = model.HubStats{
			ConnectedUsers:  h.presence.Len(),
			QueuedMessages:  h.pending.Len(),
			QueuedReceivers: h.pending.Recipients(),
			Groups:          h.groups.Len(),
			DedupEntries:    h.dedup.Len(),
			DedupResets:     h.dedup.Resets(),
			KnownKeys:       h.keys.Len(),
			Uptime:          h.config.now().Sub(h.startedAt),
		}
	})
	return st, err
}

// newID generates a relay-side message id. Only called from the loop.
func (h *Hub) newID() string {
	id, err := ulid.New(ulid.Timestamp(h.config.now()), h.entropy)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (h *Hub) observe(a *model.Activity) {
	for _, o := range h.config.observers {
		o.Observe(a)
	}
}

func (h *Hub) observeMessage(kind model.ActivityKind, m *model.PendingMessage) {
	if len(h.config.observers) == 0 {
		return
	}
	a := model.NewActivity(kind)
	a.MessageID = m.ID
	a.UserID = m.To
	a.From = m.From
	a.GroupID = m.GroupID
	h.observe(a)
}

func (h *Hub) observeDuplicate(id, from, groupID string) {
	h.config.logger.Debug("RELAY_DUPLICATE_ABSORBED", "msg_id", id, "from", from)
	a := model.NewActivity(model.ActivityDuplicate)
	a.MessageID = id
	a.From = from
	a.GroupID = groupID
	h.observe(a)
}

func eventFor(m *model.PendingMessage) model.Eventer {
	if m.IsGroup() {
		return model.NewGroupMessageEvent(m)
	}
	return model.NewMessageEvent(m)
}

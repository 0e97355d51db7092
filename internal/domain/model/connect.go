package model

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Interface guard
var _ Connector = (*connect)(nil)

// [CONNECTOR] The connection handle held by the relay.
// Identity is the connection UUID; two handles are the same only if their IDs match.
type Connector interface {
	GetID() uuid.UUID
	Metadata() ConnectMetadata
	Send(ev Eventer) bool // Non-blocking; false means the event was not accepted
	Recv() <-chan Eventer
	Done() <-chan struct{}
	// Dropped counts events refused because the buffer was full.
	Dropped() uint64
	Close() // Terminate connection and release resources
}

// [METADATA] EXPORTED FOR TRANSPORT AND ANALYTICS LAYERS
type ConnectMetadata struct {
	RemoteIP  string
	UserAgent string
}

type connect struct {
	id        uuid.UUID
	metadata  ConnectMetadata
	createdAt time.Time

	ctx      context.Context
	cancelFn context.CancelFunc

	// sendCh is never closed; readers select on Done as well.
	// Closing it would race with a concurrent Send from the hub loop.
	sendCh    chan Eventer
	closeOnce sync.Once

	droppedCount uint64 // [ATOMIC_FIELD]
}

// NewConnector creates a handle with a bounded outbound buffer.
func NewConnector(ctx context.Context, meta ConnectMetadata, bufferSize int) Connector {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	childCtx, cancel := context.WithCancel(ctx)

	return &connect{
		id:        uuid.New(),
		metadata:  meta,
		createdAt: time.Now(),
		ctx:       childCtx,
		cancelFn:  cancel,
		sendCh:    make(chan Eventer, bufferSize),
	}
}

func (c *connect) GetID() uuid.UUID          { return c.id }
func (c *connect) Metadata() ConnectMetadata { return c.metadata }
func (c *connect) Recv() <-chan Eventer      { return c.sendCh }
func (c *connect) Done() <-chan struct{}     { return c.ctx.Done() }
func (c *connect) Dropped() uint64           { return atomic.LoadUint64(&c.droppedCount) }

// Send pushes an event without blocking. A full buffer refuses the event;
// queued events are never evicted or reordered.
func (c *connect) Send(ev Eventer) bool {
	// [LIFECYCLE_GATE] Immediately abort if the underlying transport is already dead.
	select {
	case <-c.ctx.Done():
		return false
	default:
	}

	select {
	case c.sendCh <- ev:
		return true
	default:
		atomic.AddUint64(&c.droppedCount, 1)
		return false
	}
}

// Close cancels the handle. It is idempotent.
func (c *connect) Close() {
	c.closeOnce.Do(c.cancelFn)
}

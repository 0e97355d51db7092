package registry

import (
	"time"

	"github.com/webitel/im-relay-service/internal/domain/model"
)

// Pending holds a FIFO of undelivered messages per recipient.
// Not safe for concurrent use; the Hub loop owns it, which also makes
// DrainAndClear and Sweep atomic with respect to Enqueue.
type Pending struct {
	queues map[string][]*model.PendingMessage
	total  int
}

func NewPending() *Pending {
	return &Pending{queues: make(map[string][]*model.PendingMessage)}
}

// Enqueue appends msg to the tail of the recipient's queue.
func (p *Pending) Enqueue(to string, msg *model.PendingMessage) {
	p.queues[to] = append(p.queues[to], msg)
	p.total++
}

// DrainAndClear removes and returns everything queued for the recipient in arrival order.
func (p *Pending) DrainAndClear(to string) []*model.PendingMessage {
	q, ok := p.queues[to]
	if !ok {
		return nil
	}
	delete(p.queues, to)
	p.total -= len(q)
	return q
}

// Sweep evicts every message older than ttl and drops queues left empty.
// It returns the evicted messages so callers can report them.
func (p *Pending) Sweep(now time.Time, ttl time.Duration) []*model.PendingMessage {
	var expired []*model.PendingMessage
	for to, q := range p.queues {
		kept := q[:0]
		for _, m := range q {
			if m.ExpiredAt(now, ttl) {
				expired = append(expired, m)
				continue
			}
			kept = append(kept, m)
		}
		if len(kept) == 0 {
			delete(p.queues, to)
			continue
		}
		// [MEMORY] clear the tail so evicted payloads can be collected
		clear(q[len(kept):])
		p.queues[to] = kept
	}
	p.total -= len(expired)
	return expired
}

// Queued returns the number of messages waiting for a recipient.
func (p *Pending) Queued(to string) int { return len(p.queues[to]) }

// Len is the total number of queued messages.
func (p *Pending) Len() int { return p.total }

// Recipients is the number of non-empty queues.
func (p *Pending) Recipients() int { return len(p.queues) }

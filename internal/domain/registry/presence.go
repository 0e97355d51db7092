package registry

import "github.com/webitel/im-relay-service/internal/domain/model"

// Presence maps a user identifier to exactly one live connection handle.
// Not safe for concurrent use; the Hub loop owns it.
type Presence struct {
	entries map[string]model.Connector
}

func NewPresence() *Presence {
	return &Presence{entries: make(map[string]model.Connector)}
}

// Register overwrites any existing entry and returns the handle it replaced.
// The previous transport is not closed; it simply stops being addressable.
func (p *Presence) Register(userID string, conn model.Connector) (model.Connector, bool) {
	prev, ok := p.entries[userID]
	p.entries[userID] = conn
	return prev, ok
}

func (p *Presence) Lookup(userID string) (model.Connector, bool) {
	conn, ok := p.entries[userID]
	return conn, ok
}

// RemoveIfCurrent deletes the entry only when it still points at conn.
// A stale disconnect must not erase a newer registration.
func (p *Presence) RemoveIfCurrent(userID string, conn model.Connector) bool {
	cur, ok := p.entries[userID]
	if !ok || conn == nil || cur.GetID() != conn.GetID() {
		return false
	}
	delete(p.entries, userID)
	return true
}

func (p *Presence) Len() int { return len(p.entries) }

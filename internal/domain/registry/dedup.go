package registry

// DefaultDedupCapacity bounds the number of remembered message ids.
const DefaultDedupCapacity = 100_000

// Dedup is a bounded set of message ids already processed.
//
// When full it is cleared entirely instead of evicting the oldest id.
// Duplicate suppression is therefore best-effort: absence from the set
// does not prove a message was never delivered.
type Dedup struct {
	ids      map[string]struct{}
	capacity int
	resets   uint64
}

func NewDedup(capacity int) *Dedup {
	if capacity <= 0 {
		capacity = DefaultDedupCapacity
	}
	return &Dedup{
		ids:      make(map[string]struct{}),
		capacity: capacity,
	}
}

// SeenOrMark reports whether id was already present; otherwise it records id.
func (d *Dedup) SeenOrMark(id string) bool {
	if _, ok := d.ids[id]; ok {
		return true
	}
	if len(d.ids) >= d.capacity {
		d.ids = make(map[string]struct{})
		d.resets++
	}
	d.ids[id] = struct{}{}
	return false
}

func (d *Dedup) Len() int { return len(d.ids) }

// Resets counts how many times the set was wiped for capacity.
func (d *Dedup) Resets() uint64 { return d.resets }

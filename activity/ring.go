package activity

// ring is a fixed-capacity append-only buffer. When full, the oldest entry
// is dropped. Not safe for concurrent use; the Broadcaster serializes
// access under its own lock.
type ring struct {
	entries []*Record
	start   int
	size    int
}

func newRing(capacity int) *ring {
	return &ring{entries: make([]*Record, capacity)}
}

func (r *ring) append(rec *Record) {
	if len(r.entries) == 0 {
		return
	}
	idx := (r.start + r.size) % len(r.entries)
	if r.size == len(r.entries) {
		// Full: overwrite the oldest.
		r.entries[r.start] = rec
		r.start = (r.start + 1) % len(r.entries)
		return
	}
	r.entries[idx] = rec
	r.size++
}

// snapshot returns up to n records, newest first.
func (r *ring) snapshot(n int) []*Record {
	if n <= 0 || n > r.size {
		n = r.size
	}
	out := make([]*Record, 0, n)
	for i := 0; i < n; i++ {
		idx := (r.start + r.size - 1 - i + len(r.entries)) % len(r.entries)
		out = append(out, r.entries[idx])
	}
	return out
}

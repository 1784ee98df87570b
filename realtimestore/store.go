package realtimestore

import "sync/atomic"

// bufferTag identifies which of the two buffer slots is currently
// live. NONE means no snapshot is live: the store has never been
// populated (no realtime feed configured, or first refresh hasn't
// completed) or Invalidate has been called since the last Publish.
type bufferTag int8

const (
	tagNone bufferTag = iota
	tagA
	tagB
)

// Store is a double-buffered holder for the current realtime
// Snapshot. Readers call Current() and get back whichever Snapshot
// was live at the time of the call, with no lock and no risk of
// seeing a half-written Snapshot: Publish always builds the new
// Snapshot completely off to the side before swapping the pointer.
type Store struct {
	tag atomic.Int32
	a   atomic.Pointer[Snapshot]
	b   atomic.Pointer[Snapshot]
	gen atomic.Uint64
}

func NewStore() *Store {
	s := &Store{}
	s.tag.Store(int32(tagNone))
	return s
}

// Current returns the live snapshot, or nil if none has been
// published yet or the store has been invalidated since.
func (s *Store) Current() *Snapshot {
	switch bufferTag(s.tag.Load()) {
	case tagA:
		return s.a.Load()
	case tagB:
		return s.b.Load()
	default:
		return nil
	}
}

// Publish writes snap into the idle buffer slot and flips the live
// tag to point at it. The previously-live slot becomes idle and is
// safe to overwrite on the next Publish call; in-flight readers that
// grabbed the old Snapshot pointer via Current keep a valid,
// unmodified value since Snapshots are never mutated after Parse
// returns them.
func (s *Store) Publish(snap *Snapshot) {
	switch bufferTag(s.tag.Load()) {
	case tagA, tagNone:
		s.b.Store(snap)
		s.tag.Store(int32(tagB))
	case tagB:
		s.a.Store(snap)
		s.tag.Store(int32(tagA))
	}
	s.gen.Add(1)
}

// Generation increments on every Publish. Callers that cache results
// derived from the current Snapshot (e.g. the connection-search
// cache) use it as a cheap invalidation key: unchanged generation
// means unchanged realtime data.
func (s *Store) Generation() uint64 {
	return s.gen.Load()
}

// Invalidate reverts the active side to NONE, so Current returns nil
// until the next successful Publish. Called on a refresh failure
// (download or parse error) so a stale Snapshot is never served as if
// it were fresh; local-file feeds are the stated exception and should
// keep their last-good slot instead of calling this.
func (s *Store) Invalidate() {
	s.tag.Store(int32(tagNone))
	s.gen.Add(1)
}

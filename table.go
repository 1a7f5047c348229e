package eavesdrop

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// entry is one registered callback in a table.
type entry[F any] struct {
	id   uuid.UUID
	fn   F
	once bool

	// taken guards fire-once entries so concurrent dispatch passes cannot
	// invoke the same entry twice. A failed invocation releases the claim.
	taken atomic.Bool
}

// claim reserves a fire-once entry for invocation. Entries without the
// fire-once flag are always claimable.
func (e *entry[F]) claim() bool {
	return !e.once || e.taken.CompareAndSwap(false, true)
}

// release returns a claimed fire-once entry to the table after a failed
// invocation.
func (e *entry[F]) release() {
	if e.once {
		e.taken.Store(false)
	}
}

// table stores ordered callback entries per event identifier. It is safe
// for concurrent use; dispatch works on snapshots so callbacks run outside
// the lock.
type table[F any] struct {
	mu      sync.RWMutex
	kind    string
	entries map[ID][]*entry[F]
	log     *zap.Logger
}

func newTable[F any](kind string, log *zap.Logger) *table[F] {
	return &table[F]{
		kind:    kind,
		entries: make(map[ID][]*entry[F]),
		log:     log,
	}
}

// add appends fn to the entry list for eventID, preserving registration
// order, and returns the new entry's id.
func (t *table[F]) add(eventID ID, fn F, once bool) uuid.UUID {
	ent := &entry[F]{id: uuid.New(), fn: fn, once: once}

	t.mu.Lock()
	t.entries[eventID] = append(t.entries[eventID], ent)
	t.mu.Unlock()

	t.log.Debug("callback registered",
		zap.String("kind", t.kind),
		zap.Stringer("event", eventID),
		zap.Stringer("entry", ent.id),
		zap.Bool("once", once))
	return ent.id
}

// remove deletes the entry with entryID under eventID. Removing an entry
// that is already gone is a no-op.
func (t *table[F]) remove(eventID ID, entryID uuid.UUID) bool {
	t.mu.Lock()
	ents := t.entries[eventID]
	for i, ent := range ents {
		if ent.id != entryID {
			continue
		}
		t.entries[eventID] = append(ents[:i], ents[i+1:]...)
		if len(t.entries[eventID]) == 0 {
			delete(t.entries, eventID)
		}
		t.mu.Unlock()

		t.log.Debug("callback removed",
			zap.String("kind", t.kind),
			zap.Stringer("event", eventID),
			zap.Stringer("entry", entryID))
		return true
	}
	t.mu.Unlock()

	t.log.Debug("remove for unknown entry",
		zap.String("kind", t.kind),
		zap.Stringer("event", eventID),
		zap.Stringer("entry", entryID))
	return false
}

// snapshot returns a copy of the entry list for eventID so callers can
// invoke callbacks without holding the lock.
func (t *table[F]) snapshot(eventID ID) []*entry[F] {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ents := t.entries[eventID]
	if len(ents) == 0 {
		return nil
	}
	out := make([]*entry[F], len(ents))
	copy(out, ents)
	return out
}

// count returns the number of registered entries across all events.
func (t *table[F]) count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, ents := range t.entries {
		n += len(ents)
	}
	return n
}

// events returns the identifiers that currently have entries.
func (t *table[F]) events() []ID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.entries) == 0 {
		return nil
	}
	ids := make([]ID, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	return ids
}

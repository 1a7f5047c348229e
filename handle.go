package eavesdrop

import "github.com/google/uuid"

// remover is the table surface a Handle needs to cancel itself.
type remover interface {
	remove(eventID ID, entryID uuid.UUID) bool
}

// Handle cancels one registration. Every Listen and Eavesdrop variant
// returns one.
type Handle struct {
	event ID
	entry uuid.UUID
	tbl   remover
}

// Event returns the identifier the registration is keyed under.
func (h *Handle) Event() ID { return h.event }

// StopListening removes the registration from its table. Calling it again,
// or after a fire-once callback has already consumed the registration, is
// a no-op.
func (h *Handle) StopListening() {
	h.tbl.remove(h.event, h.entry)
}

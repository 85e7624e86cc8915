// Package hotel holds the room inventory and booking registries and the
// rules that tie them together.
package hotel

import "strings"

// Hotel is the session context owning both registries. Room removal is only
// reachable through Hotel, which checks the room lifecycle first.
type Hotel struct {
	Rooms    *Inventory
	Bookings *Bookings
}

func New() *Hotel {
	inv := NewInventory()
	return &Hotel{Rooms: inv, Bookings: NewBookings(inv)}
}

func (h *Hotel) Register(id, category string, rate float64, amenities []string) (Room, error) {
	return h.Rooms.Register(id, category, rate, amenities)
}

func (h *Hotel) Remove(id string) error {
	if err := h.transition(id, StateDeleted); err != nil {
		return err
	}
	return h.Rooms.remove(id)
}

// Book assigns guest to a vacant room. Booking an occupied room is not an
// error: the outcome reports the guest already holding it.
func (h *Hotel) Book(roomID, guest string) (BookOutcome, error) {
	if roomID == "" {
		return BookOutcome{}, Errorf(KindValidation, "Room ID cannot be empty.")
	}
	if strings.TrimSpace(guest) == "" {
		return BookOutcome{}, Errorf(KindValidation, "Guest name cannot be empty.")
	}
	if existing, ok := h.Bookings.GuestOf(roomID); ok {
		return BookOutcome{Booked: false, Guest: existing}, nil
	}
	if err := h.transition(roomID, StateOccupied); err != nil {
		return BookOutcome{}, err
	}
	return h.Bookings.Book(roomID, guest)
}

func (h *Hotel) Release(roomID string) (Invoice, error) {
	if err := h.transition(roomID, StateVacant); err != nil {
		return Invoice{}, err
	}
	return h.Bookings.ReleaseAndBill(roomID)
}

// State reports where roomID sits in the room lifecycle.
func (h *Hotel) State(roomID string) RoomState {
	if h.Bookings.IsBooked(roomID) {
		return StateOccupied
	}
	if _, err := h.Rooms.Get(roomID); err != nil {
		return StateDeleted
	}
	return StateVacant
}

// transition reports why roomID cannot move to the target state, or nil.
func (h *Hotel) transition(roomID string, to RoomState) error {
	if roomID == "" {
		return Errorf(KindValidation, "Room ID cannot be empty.")
	}
	from := h.State(roomID)
	if CanTransition(from, to) {
		return nil
	}
	switch {
	case to == StateVacant:
		return Errorf(KindNotFound, "Room %s is not currently booked.", roomID)
	case from == StateDeleted:
		return Errorf(KindNotFound, "Room %s does not exist.", roomID)
	case from == StateOccupied && to == StateDeleted:
		return Errorf(KindConflict, "Room %s is currently booked and cannot be deleted.", roomID)
	default:
		return Errorf(KindConflict, "Room %s cannot go from %s to %s.", roomID, from, to)
	}
}

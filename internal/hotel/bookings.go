package hotel

import "strings"

// Bookings maps occupied rooms to guest names. It reads rates from the
// inventory it was created with.
type Bookings struct {
	inv    *Inventory
	guests map[string]string
	order  []string
}

func NewBookings(inv *Inventory) *Bookings {
	return &Bookings{inv: inv, guests: map[string]string{}}
}

func (b *Bookings) Book(roomID, guest string) (BookOutcome, error) {
	if roomID == "" {
		return BookOutcome{}, Errorf(KindValidation, "Room ID cannot be empty.")
	}
	guest = strings.TrimSpace(guest)
	if guest == "" {
		return BookOutcome{}, Errorf(KindValidation, "Guest name cannot be empty.")
	}
	if _, err := b.inv.Get(roomID); err != nil {
		return BookOutcome{}, err
	}
	if existing, ok := b.guests[roomID]; ok {
		return BookOutcome{Booked: false, Guest: existing}, nil
	}

	b.guests[roomID] = guest
	b.order = append(b.order, roomID)
	return BookOutcome{Booked: true, Guest: guest}, nil
}

// ReleaseAndBill removes the booking for roomID and bills one night at the
// room rate. The rate is read before the booking is dropped so a failed
// lookup leaves the booking in place.
func (b *Bookings) ReleaseAndBill(roomID string) (Invoice, error) {
	if roomID == "" {
		return Invoice{}, Errorf(KindValidation, "Room ID cannot be empty.")
	}
	guest, ok := b.guests[roomID]
	if !ok {
		return Invoice{}, Errorf(KindNotFound, "Room %s is not currently booked.", roomID)
	}
	room, err := b.inv.Get(roomID)
	if err != nil {
		return Invoice{}, Wrap(KindDataIntegrity, "room details could not be found for booked room "+roomID, err)
	}

	delete(b.guests, roomID)
	for i, rid := range b.order {
		if rid == roomID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return Invoice{RoomID: roomID, Guest: guest, Total: room.Rate}, nil
}

func (b *Bookings) IsBooked(roomID string) bool {
	_, ok := b.guests[roomID]
	return ok
}

func (b *Bookings) GuestOf(roomID string) (string, bool) {
	g, ok := b.guests[roomID]
	return g, ok
}

// Status returns a snapshot of active bookings in booking order.
func (b *Bookings) Status() []Booking {
	out := make([]Booking, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, Booking{RoomID: id, Guest: b.guests[id]})
	}
	return out
}

func (b *Bookings) Len() int { return len(b.guests) }

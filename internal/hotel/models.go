package hotel

type Room struct {
	ID        string   `json:"room_id"`
	Category  string   `json:"category"`
	Rate      float64  `json:"rate"` // per night
	Amenities []string `json:"amenities"`
}

func (r Room) clone() Room {
	r.Amenities = append([]string(nil), r.Amenities...)
	if r.Amenities == nil {
		r.Amenities = []string{}
	}
	return r
}

type Booking struct {
	RoomID string `json:"room_id"`
	Guest  string `json:"guest_name"`
}

// Invoice is the flat single-night charge produced when a room is released.
type Invoice struct {
	RoomID string  `json:"room_id"`
	Guest  string  `json:"guest_name"`
	Total  float64 `json:"total_amount"`
}

// BookOutcome reports whether Book created a booking. When the room was
// already occupied Booked is false and Guest holds the existing guest.
type BookOutcome struct {
	Booked bool   `json:"booked"`
	Guest  string `json:"guest_name"`
}

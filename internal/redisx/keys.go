package redisx

import "time"

const (
	// Room definitions: hash hotel:rooms {room_id -> room JSON}
	KeyRooms = "hotel:rooms"

	// Active bookings: hash hotel:bookings {room_id -> guest name}
	KeyBookings = "hotel:bookings"

	// Last invoice per room: hotel:invoice:{room_id} -> invoice JSON
	KeyLastInvoice = "hotel:invoice:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLDedup   = 48 * time.Hour
	TTLInvoice = 7 * 24 * time.Hour
)

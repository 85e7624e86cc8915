package hotel

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventRoomRegistered   = "RoomRegistered"
	EventRoomRemoved      = "RoomRemoved"
	EventRoomBooked       = "RoomBooked"
	EventRoomReleased     = "RoomReleased"
	EventBookingsSaved    = "BookingsSaved"
	EventBookingsBackedUp = "BookingsBackedUp"
)

const EventVersion = 1

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // room id for room events
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps payload in a fresh envelope stamped with the current UTC time.
func NewEnvelope(eventType, producer, correlationID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  EventVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

// ---- payloads ----

type RoomRegisteredPayload struct {
	Room Room `json:"room"`
}

type RoomRemovedPayload struct {
	RoomID string `json:"room_id"`
}

type RoomBookedPayload struct {
	RoomID string `json:"room_id"`
	Guest  string `json:"guest_name"`
}

type RoomReleasedPayload struct {
	Invoice Invoice `json:"invoice"`
}

type BookingsSavedPayload struct {
	Target   string `json:"target"`
	Bookings int    `json:"bookings"`
}

type BookingsBackedUpPayload struct {
	Target string `json:"target"`
	Backup string `json:"backup"`
}

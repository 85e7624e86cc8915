// Package frontdesk runs desk operations against the room and booking
// registries, persists the booking snapshot and announces every change.
package frontdesk

import (
	"context"

	"github.com/ariefcatur/go-hotel-desk/internal/hotel"
	kafkax "github.com/ariefcatur/go-hotel-desk/internal/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Store persists the booking snapshot.
type Store interface {
	Save(ctx context.Context, bookings []hotel.Booking) (saved bool, err error)
	Load(ctx context.Context) ([]hotel.Booking, error)
	BackupAndClear(ctx context.Context) (backup string, err error)
	Target() string
}

// Publisher queues an event and reports whether it was accepted.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header) bool
}

type Service struct {
	Hotel       *hotel.Hotel
	Store       Store
	Producer    Publisher // optional
	ServiceName string
	Log         *zap.Logger
}

func New(h *hotel.Hotel, store Store, producer Publisher, serviceName string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Hotel: h, Store: store, Producer: producer, ServiceName: serviceName, Log: log}
}

func (s *Service) RegisterRoom(id, category string, rate float64, amenities []string) (hotel.Room, error) {
	room, err := s.Hotel.Register(id, category, rate, amenities)
	if err != nil {
		s.Log.Warn("register room rejected", zap.String("room_id", id), zap.Error(err))
		return hotel.Room{}, err
	}
	s.Log.Info("room registered", zap.String("room_id", id), zap.String("category", room.Category), zap.Float64("rate", room.Rate))
	s.publish(hotel.EventRoomRegistered, id, hotel.RoomRegisteredPayload{Room: room})
	return room, nil
}

func (s *Service) RemoveRoom(id string) error {
	if err := s.Hotel.Remove(id); err != nil {
		s.Log.Warn("remove room rejected", zap.String("room_id", id), zap.Error(err))
		return err
	}
	s.Log.Info("room removed", zap.String("room_id", id))
	s.publish(hotel.EventRoomRemoved, id, hotel.RoomRemovedPayload{RoomID: id})
	return nil
}

func (s *Service) Rooms() []hotel.Room { return s.Hotel.Rooms.List() }

func (s *Service) Room(id string) (hotel.Room, error) { return s.Hotel.Rooms.Get(id) }

// GuestOf reports the guest currently occupying roomID.
func (s *Service) GuestOf(roomID string) (string, bool) { return s.Hotel.Bookings.GuestOf(roomID) }

func (s *Service) BookRoom(roomID, guest string) (hotel.BookOutcome, error) {
	out, err := s.Hotel.Book(roomID, guest)
	if err != nil {
		s.Log.Warn("booking rejected", zap.String("room_id", roomID), zap.Error(err))
		return out, err
	}
	if !out.Booked {
		s.Log.Info("room already booked", zap.String("room_id", roomID), zap.String("guest", out.Guest))
		return out, nil
	}
	s.Log.Info("room booked", zap.String("room_id", roomID), zap.String("guest", out.Guest))
	s.publish(hotel.EventRoomBooked, roomID, hotel.RoomBookedPayload{RoomID: roomID, Guest: out.Guest})
	return out, nil
}

func (s *Service) ReleaseRoom(roomID string) (hotel.Invoice, error) {
	inv, err := s.Hotel.Release(roomID)
	if err != nil {
		if hotel.KindOf(err) == hotel.KindDataIntegrity {
			s.Log.Error("booked room missing from inventory", zap.String("room_id", roomID), zap.Error(err))
		} else {
			s.Log.Warn("release rejected", zap.String("room_id", roomID), zap.Error(err))
		}
		return hotel.Invoice{}, err
	}
	s.Log.Info("room released", zap.String("room_id", roomID), zap.String("guest", inv.Guest), zap.Float64("total", inv.Total))
	s.publish(hotel.EventRoomReleased, roomID, hotel.RoomReleasedPayload{Invoice: inv})
	return inv, nil
}

func (s *Service) Status() []hotel.Booking { return s.Hotel.Bookings.Status() }

// Save writes the current booking snapshot. saved is false when there was
// nothing to save.
func (s *Service) Save(ctx context.Context) (saved bool, err error) {
	snapshot := s.Hotel.Bookings.Status()
	saved, err = s.Store.Save(ctx, snapshot)
	if err != nil {
		s.Log.Error("save bookings failed", zap.String("target", s.Store.Target()), zap.Error(err))
		return false, err
	}
	if saved {
		s.Log.Info("bookings saved", zap.String("target", s.Store.Target()), zap.Int("bookings", len(snapshot)))
		s.publish(hotel.EventBookingsSaved, "", hotel.BookingsSavedPayload{Target: s.Store.Target(), Bookings: len(snapshot)})
	}
	return saved, nil
}

// Load reads the persisted booking snapshot without touching the registries.
func (s *Service) Load(ctx context.Context) ([]hotel.Booking, error) {
	out, err := s.Store.Load(ctx)
	if err != nil {
		s.Log.Error("load bookings failed", zap.String("target", s.Store.Target()), zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (s *Service) BackupAndClear(ctx context.Context) (string, error) {
	backup, err := s.Store.BackupAndClear(ctx)
	if err != nil {
		s.Log.Error("backup failed", zap.String("target", s.Store.Target()), zap.Error(err))
		return "", err
	}
	if backup != "" {
		s.Log.Info("bookings backed up", zap.String("target", s.Store.Target()), zap.String("backup", backup))
		s.publish(hotel.EventBookingsBackedUp, "", hotel.BookingsBackedUpPayload{Target: s.Store.Target(), Backup: backup})
	}
	return backup, nil
}

func (s *Service) Target() string { return s.Store.Target() }

func (s *Service) publish(eventType, roomID string, payload any) {
	if s.Producer == nil {
		return
	}
	env, err := hotel.NewEnvelope(eventType, s.ServiceName, roomID, payload)
	if err != nil {
		s.Log.Warn("event not published", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	if !s.Producer.Publish(hotel.PartitionKey(roomID), kafkax.MustMarshal(env), kafkax.EventHeaders(eventType, env.EventVersion)...) {
		s.Log.Warn("event not published", zap.String("event_type", eventType), zap.String("event_id", env.EventID))
	}
}

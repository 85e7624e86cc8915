// Package projector keeps a Redis view of rooms and bookings up to date from
// the desk's room events.
package projector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ariefcatur/go-hotel-desk/internal/hotel"
	kafkax "github.com/ariefcatur/go-hotel-desk/internal/kafka"
	"github.com/ariefcatur/go-hotel-desk/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Service struct {
	Redis       *redis.Client
	ServiceName string
	Log         *zap.Logger
}

// HandleRoomEvent is installed as the consumer handler.
func (s *Service) HandleRoomEvent(ctx context.Context, m kafkago.Message) error {
	var env hotel.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return kafkax.Permanent(fmt.Errorf("decode envelope: %w", err))
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	first, err := redisx.MarkOnce(ctx, s.Redis, dkey, redisx.TTLDedup)
	if err != nil {
		return fmt.Errorf("dedup: %w", err)
	}
	if !first {
		return nil
	}

	if err := s.apply(ctx, env); err != nil {
		// the consumer retries the same message, so it must not look seen
		_ = s.Redis.Del(ctx, dkey).Err()
		return err
	}
	return nil
}

func (s *Service) apply(ctx context.Context, env hotel.Envelope) error {
	switch env.EventType {
	case hotel.EventRoomRegistered:
		p, err := kafkax.UnwrapPayload[hotel.RoomRegisteredPayload](env.Payload)
		if err != nil {
			return kafkax.Permanent(err)
		}
		return s.Redis.HSet(ctx, redisx.KeyRooms, p.Room.ID, kafkax.MustMarshal(p.Room)).Err()

	case hotel.EventRoomRemoved:
		p, err := kafkax.UnwrapPayload[hotel.RoomRemovedPayload](env.Payload)
		if err != nil {
			return kafkax.Permanent(err)
		}
		return s.Redis.HDel(ctx, redisx.KeyRooms, p.RoomID).Err()

	case hotel.EventRoomBooked:
		p, err := kafkax.UnwrapPayload[hotel.RoomBookedPayload](env.Payload)
		if err != nil {
			return kafkax.Permanent(err)
		}
		return s.Redis.HSet(ctx, redisx.KeyBookings, p.RoomID, p.Guest).Err()

	case hotel.EventRoomReleased:
		p, err := kafkax.UnwrapPayload[hotel.RoomReleasedPayload](env.Payload)
		if err != nil {
			return kafkax.Permanent(err)
		}
		_, err = s.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, redisx.KeyBookings, p.Invoice.RoomID)
			pipe.Set(ctx, fmt.Sprintf(redisx.KeyLastInvoice, p.Invoice.RoomID),
				kafkax.MustMarshal(p.Invoice), redisx.TTLInvoice)
			return nil
		})
		return err

	default:
		s.logger().Debug("event ignored", zap.String("event_type", env.EventType))
		return nil
	}
}

// Bookings reads the projected booking view.
func (s *Service) Bookings(ctx context.Context) (map[string]string, error) {
	return s.Redis.HGetAll(ctx, redisx.KeyBookings).Result()
}

// LastInvoice returns the most recent invoice projected for roomID.
func (s *Service) LastInvoice(ctx context.Context, roomID string) (hotel.Invoice, error) {
	var inv hotel.Invoice
	b, err := s.Redis.Get(ctx, fmt.Sprintf(redisx.KeyLastInvoice, roomID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return inv, hotel.Errorf(hotel.KindNotFound, "No invoice recorded for room %s.", roomID)
		}
		return inv, err
	}
	err = json.Unmarshal(b, &inv)
	return inv, err
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

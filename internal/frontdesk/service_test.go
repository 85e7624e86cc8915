package frontdesk

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ariefcatur/go-hotel-desk/internal/hotel"
	kafkax "github.com/ariefcatur/go-hotel-desk/internal/kafka"
	"github.com/ariefcatur/go-hotel-desk/internal/store"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	msgs []kafkago.Message
}

func (p *recordingPublisher) Publish(key, value []byte, headers ...kafkago.Header) bool {
	p.msgs = append(p.msgs, kafkago.Message{Key: key, Value: value, Headers: headers})
	return true
}

func (p *recordingPublisher) types() []string {
	out := make([]string, 0, len(p.msgs))
	for _, m := range p.msgs {
		out = append(out, kafkax.Header(m, "x-event-type"))
	}
	return out
}

func newTestService(t *testing.T) (*Service, *store.FileStore, *recordingPublisher) {
	t.Helper()
	fs := store.NewFileStore(filepath.Join(t.TempDir(), "bookings.txt"))
	pub := &recordingPublisher{}
	return New(hotel.New(), fs, pub, "hotel-desk", zap.NewNop()), fs, pub
}

func TestService_EndToEnd(t *testing.T) {
	svc, _, pub := newTestService(t)

	_, err := svc.RegisterRoom("101", "Standard", 100.0, []string{"WiFi", "TV"})
	require.NoError(t, err)

	out, err := svc.BookRoom("101", "Alice")
	require.NoError(t, err)
	assert.True(t, out.Booked)

	assert.ErrorIs(t, svc.RemoveRoom("101"), hotel.ErrConflict)

	inv, err := svc.ReleaseRoom("101")
	require.NoError(t, err)
	assert.Equal(t, hotel.Invoice{RoomID: "101", Guest: "Alice", Total: 100.0}, inv)

	require.NoError(t, svc.RemoveRoom("101"))
	assert.Empty(t, svc.Rooms())

	assert.Equal(t, []string{
		hotel.EventRoomRegistered,
		hotel.EventRoomBooked,
		hotel.EventRoomReleased,
		hotel.EventRoomRemoved,
	}, pub.types())

	var env hotel.Envelope
	require.NoError(t, json.Unmarshal(pub.msgs[2].Value, &env))
	assert.Equal(t, "hotel-desk", env.Producer)
	assert.Equal(t, "101", env.CorrelationID)
	assert.Equal(t, "101", string(pub.msgs[2].Key))
	p, err := kafkax.UnwrapPayload[hotel.RoomReleasedPayload](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, inv, p.Invoice)
}

func TestService_RejectedOperationsPublishNothing(t *testing.T) {
	svc, _, pub := newTestService(t)

	_, err := svc.RegisterRoom("", "Standard", 100, nil)
	assert.ErrorIs(t, err, hotel.ErrValidation)
	_, err = svc.BookRoom("999", "Alice")
	assert.ErrorIs(t, err, hotel.ErrNotFound)
	_, err = svc.ReleaseRoom("999")
	assert.ErrorIs(t, err, hotel.ErrNotFound)
	assert.ErrorIs(t, svc.RemoveRoom("999"), hotel.ErrNotFound)

	_, err = svc.RegisterRoom("1", "Suite", 300, nil)
	require.NoError(t, err)
	_, err = svc.BookRoom("1", "Alice")
	require.NoError(t, err)
	out, err := svc.BookRoom("1", "Bob")
	require.NoError(t, err)
	assert.False(t, out.Booked)
	assert.Equal(t, "Alice", out.Guest)

	assert.Equal(t, []string{hotel.EventRoomRegistered, hotel.EventRoomBooked}, pub.types())
}

func TestService_SaveLoadBackup(t *testing.T) {
	svc, fs, pub := newTestService(t)
	ctx := context.Background()

	saved, err := svc.Save(ctx)
	require.NoError(t, err)
	assert.False(t, saved)

	for _, id := range []string{"101", "102"} {
		_, err := svc.RegisterRoom(id, "Standard", 90, nil)
		require.NoError(t, err)
	}
	_, err = svc.BookRoom("102", "Bob")
	require.NoError(t, err)
	_, err = svc.BookRoom("101", "Alice")
	require.NoError(t, err)

	saved, err = svc.Save(ctx)
	require.NoError(t, err)
	assert.True(t, saved)

	loaded, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, svc.Status(), loaded)

	backup, err := svc.BackupAndClear(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, backup)
	assert.Equal(t, filepath.Dir(fs.Path), filepath.Dir(backup))

	loaded, err = svc.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	backup, err = svc.BackupAndClear(ctx)
	require.NoError(t, err)
	assert.Empty(t, backup)

	types := pub.types()
	assert.Equal(t, []string{hotel.EventBookingsSaved, hotel.EventBookingsBackedUp}, types[len(types)-2:])
}

type failingStore struct{ *store.FileStore }

func (failingStore) Save(context.Context, []hotel.Booking) (bool, error) {
	return false, hotel.Wrap(hotel.KindIO, "unable to write booking file", errors.New("read-only file system"))
}

func TestService_SaveFailureIsReported(t *testing.T) {
	fs := store.NewFileStore(filepath.Join(t.TempDir(), "bookings.txt"))
	svc := New(hotel.New(), failingStore{fs}, nil, "hotel-desk", nil)
	_, err := svc.RegisterRoom("1", "Standard", 50, nil)
	require.NoError(t, err)
	_, err = svc.BookRoom("1", "Ann")
	require.NoError(t, err)

	saved, err := svc.Save(context.Background())
	assert.False(t, saved)
	assert.ErrorIs(t, err, hotel.ErrIO)
	assert.Len(t, svc.Status(), 1)
}

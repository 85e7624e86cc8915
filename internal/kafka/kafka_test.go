package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	failOn string
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, m := range msgs {
		if string(m.Key) == w.failOn {
			return errors.New("broker unavailable")
		}
		w.msgs = append(w.msgs, m)
	}
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestProducer_FlushesOnClose(t *testing.T) {
	w := &fakeWriter{failOn: "bad"}
	p := NewProducerWithWriter(w, 8, zap.NewNop())
	p.Start(context.Background())

	p.Publish([]byte("101"), []byte(`{"a":1}`), EventHeaders("RoomBooked", 1)...)
	p.Publish([]byte("bad"), []byte(`{}`))
	p.Publish([]byte("202"), []byte(`{"a":2}`))
	p.Close()
	p.WaitClosed()

	w.mu.Lock()
	defer w.mu.Unlock()
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "101", string(w.msgs[0].Key))
	assert.Equal(t, "RoomBooked", Header(w.msgs[0], "x-event-type"))
	assert.Equal(t, "1", Header(w.msgs[0], "x-event-version"))
	assert.Equal(t, "202", string(w.msgs[1].Key))
	assert.True(t, w.closed)
}

type blockingWriter struct {
	release chan struct{}
}

func (w *blockingWriter) WriteMessages(ctx context.Context, _ ...kafka.Message) error {
	select {
	case <-w.release:
	case <-ctx.Done():
	}
	return nil
}

func (w *blockingWriter) Close() error { return nil }

func TestProducer_PublishDropsWhenInboxFull(t *testing.T) {
	w := &blockingWriter{release: make(chan struct{})}
	p := NewProducerWithWriter(w, 1, zap.NewNop())

	assert.True(t, p.Publish([]byte("101"), []byte(`{}`)))
	assert.False(t, p.Publish([]byte("102"), []byte(`{}`)), "inbox holds one message and nothing drains it")

	p.Start(context.Background())
	close(w.release)
	p.Close()
	p.WaitClosed()
}

func TestProducer_PublishAfterCloseIsDropped(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, 4, zap.NewNop())
	p.Start(context.Background())
	p.Close()
	p.Close()
	p.WaitClosed()

	assert.NotPanics(t, func() {
		assert.False(t, p.Publish([]byte("101"), []byte(`{}`)))
	})
	assert.Empty(t, w.msgs)
}

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		m := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) committedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func newTestConsumer(r Reader, workers int) *Consumer {
	c := NewConsumerWithReader(r, workers, zap.NewNop())
	c.Backoff = time.Millisecond
	c.MaxBackoff = 5 * time.Millisecond
	return c
}

func runConsumer(t *testing.T, c *Consumer, h Handler) (cancel func(), done <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan error, 1)
	go func() { ch <- c.Start(ctx, h) }()
	return cancel, ch
}

func (r *fakeReader) committedOffsets() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func TestConsumer_SameKeyStaysOrdered(t *testing.T) {
	r := &fakeReader{pending: []kafka.Message{
		{Offset: 1, Key: []byte("101"), Value: []byte("RoomBooked")},
		{Offset: 2, Key: []byte("101"), Value: []byte("RoomReleased")},
	}}
	c := newTestConsumer(r, 2)

	var (
		mu      sync.Mutex
		applied []string
	)
	cancel, done := runConsumer(t, c, func(_ context.Context, m kafka.Message) error {
		if m.Offset == 1 {
			time.Sleep(50 * time.Millisecond)
		}
		mu.Lock()
		applied = append(applied, string(m.Value))
		mu.Unlock()
		return nil
	})

	assert.Eventually(t, func() bool { return r.committedCount() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"RoomBooked", "RoomReleased"}, applied)
	assert.Equal(t, []int64{1, 2}, r.committedOffsets())
	assert.True(t, r.closed)
}

func TestConsumer_RetriesFailedMessage(t *testing.T) {
	r := &fakeReader{pending: []kafka.Message{
		{Offset: 1, Key: []byte("101")},
		{Offset: 2, Key: []byte("101")},
	}}
	c := newTestConsumer(r, 2)

	var (
		mu    sync.Mutex
		calls = map[int64]int{}
	)
	cancel, done := runConsumer(t, c, func(_ context.Context, m kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		calls[m.Offset]++
		if m.Offset == 1 && calls[m.Offset] < 3 {
			return errors.New("redis unavailable")
		}
		return nil
	})

	assert.Eventually(t, func() bool { return r.committedCount() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, calls[1])
	assert.Equal(t, 1, calls[2])
	assert.Equal(t, []int64{1, 2}, r.committedOffsets())
}

func TestConsumer_StopsWithoutCommittingPastFailure(t *testing.T) {
	r := &fakeReader{pending: []kafka.Message{
		{Offset: 1, Key: []byte("101")},
		{Offset: 2, Key: []byte("101")},
	}}
	c := newTestConsumer(r, 2)
	c.MaxAttempts = 3

	var handled2 bool
	cancel, done := runConsumer(t, c, func(_ context.Context, m kafka.Message) error {
		if m.Offset == 1 {
			return errors.New("boom")
		}
		handled2 = true
		return nil
	})
	defer cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorContains(t, err, "offset 1")
		assert.ErrorContains(t, err, "boom")
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.False(t, handled2)
	assert.Empty(t, r.committedOffsets())
	assert.True(t, r.closed)
}

func TestConsumer_PermanentErrorIsCommitted(t *testing.T) {
	r := &fakeReader{pending: []kafka.Message{
		{Offset: 1, Key: []byte("101"), Value: []byte("{")},
		{Offset: 2, Key: []byte("101"), Value: []byte("ok")},
	}}
	c := newTestConsumer(r, 1)

	var calls int
	cancel, done := runConsumer(t, c, func(_ context.Context, m kafka.Message) error {
		calls++
		if string(m.Value) == "{" {
			return Permanent(errors.New("decode envelope"))
		}
		return nil
	})

	assert.Eventually(t, func() bool { return r.committedCount() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []int64{1, 2}, r.committedOffsets())
}

func TestOffsetTracker_CommitsContiguousPrefix(t *testing.T) {
	tr := newOffsetTracker()
	msg := func(p int, off int64) kafka.Message {
		return kafka.Message{Topic: "hotel.room.events", Partition: p, Offset: off}
	}
	for _, off := range []int64{1, 2, 3} {
		tr.fetched(msg(0, off))
	}
	tr.fetched(msg(1, 7))

	_, ok := tr.handled(msg(0, 2))
	assert.False(t, ok, "offset 1 still in flight")

	upTo, ok := tr.handled(msg(0, 1))
	require.True(t, ok)
	assert.Equal(t, int64(2), upTo.Offset)

	upTo, ok = tr.handled(msg(1, 7))
	require.True(t, ok)
	assert.Equal(t, 1, upTo.Partition)
	assert.Equal(t, int64(7), upTo.Offset)

	upTo, ok = tr.handled(msg(0, 3))
	require.True(t, ok)
	assert.Equal(t, int64(3), upTo.Offset)
}

func TestPermanent(t *testing.T) {
	assert.Nil(t, Permanent(nil))
	base := errors.New("bad payload")
	err := fmt.Errorf("projector: %w", Permanent(base))
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsPermanent(base))
}

type brokenReader struct{ fakeReader }

func (r *brokenReader) FetchMessage(context.Context) (kafka.Message, error) {
	return kafka.Message{}, io.ErrUnexpectedEOF
}

func TestConsumer_ReturnsReaderError(t *testing.T) {
	c := NewConsumerWithReader(&brokenReader{}, 1, nil)

	err := c.Start(context.Background(), func(context.Context, kafka.Message) error { return nil })
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestUnwrapPayload(t *testing.T) {
	type payload struct {
		RoomID string `json:"room_id"`
	}
	p, err := UnwrapPayload[payload]([]byte(`{"room_id":"101"}`))
	require.NoError(t, err)
	assert.Equal(t, "101", p.RoomID)

	_, err = UnwrapPayload[payload]([]byte(`{`))
	assert.ErrorContains(t, err, "decode payload")
}

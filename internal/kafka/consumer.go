package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler must return nil only when the message was processed and its
// offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

// Reader is the subset of *kafka.Reader the consumer needs.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks a handler error that no retry can fix. The consumer logs
// it and commits the message instead of retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Consumer fans messages out to a fixed set of lanes. A message always goes
// to the lane picked by its key, so messages sharing a key are handled one
// at a time in fetch order.
type Consumer struct {
	r       Reader
	workers int
	log     *zap.Logger

	MaxAttempts int           // handler calls per message before Start gives up
	Backoff     time.Duration // first retry delay, doubled per attempt
	MaxBackoff  time.Duration
}

func NewConsumer(brokers []string, group, topic string, workers int, log *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	return NewConsumerWithReader(r, workers, log)
}

func NewConsumerWithReader(r Reader, workers int, log *zap.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{
		r:           r,
		workers:     workers,
		log:         log,
		MaxAttempts: 5,
		Backoff:     200 * time.Millisecond,
		MaxBackoff:  5 * time.Second,
	}
}

// Start dispatches fetched messages to the lanes until ctx is done or the
// reader fails. It returns nil on cancellation. A message whose handler
// still fails after MaxAttempts stops the consumer with that error; its
// offset and every later offset of the partition stay uncommitted.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		failOnce sync.Once
		failErr  error
	)
	fail := func(err error) {
		failOnce.Do(func() {
			failErr = err
			cancel()
		})
	}

	offsets := newOffsetTracker()
	lanes := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan kafka.Message, 4)
		wg.Add(1)
		go func(id int, jobs <-chan kafka.Message) {
			defer wg.Done()
			for m := range jobs {
				if ctx.Err() != nil {
					continue
				}
				if err := c.handle(ctx, id, h, m); err != nil {
					if ctx.Err() == nil {
						fail(err)
					}
					continue
				}
				c.commit(ctx, offsets, m)
			}
		}(i, lanes[i])
	}

	err := c.dispatch(ctx, lanes, offsets)
	for _, l := range lanes {
		close(l)
	}
	wg.Wait()
	if failErr != nil {
		return failErr
	}
	return err
}

func (c *Consumer) dispatch(ctx context.Context, lanes []chan kafka.Message, offsets *offsetTracker) error {
	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		offsets.fetched(m)
		select {
		case lanes[laneOf(m.Key, len(lanes))] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

func laneOf(key []byte, n int) int {
	return int(xxhash.Sum64(key) % uint64(n))
}

func (c *Consumer) handle(ctx context.Context, worker int, h Handler, m kafka.Message) error {
	wait := c.Backoff
	for attempt := 1; ; attempt++ {
		err := h(ctx, m)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			c.log.Error("handler rejected message, skipping",
				zap.Int("worker", worker), zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset), zap.Error(err))
			return nil
		}
		if attempt >= c.MaxAttempts {
			return fmt.Errorf("partition %d offset %d: %w", m.Partition, m.Offset, err)
		}
		c.log.Warn("handler failed, retrying",
			zap.Int("worker", worker), zap.Int64("offset", m.Offset),
			zap.Int("attempt", attempt), zap.Duration("backoff", wait), zap.Error(err))

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		wait *= 2
		if c.MaxBackoff > 0 && wait > c.MaxBackoff {
			wait = c.MaxBackoff
		}
	}
}

// commit marks m handled and commits the highest offset below which every
// fetched message of the partition has been handled.
func (c *Consumer) commit(ctx context.Context, offsets *offsetTracker, m kafka.Message) {
	offsets.mu.Lock()
	defer offsets.mu.Unlock()
	upTo, ok := offsets.handledLocked(m)
	if !ok {
		return
	}
	if err := c.r.CommitMessages(context.WithoutCancel(ctx), upTo); err != nil {
		c.log.Warn("commit failed", zap.Int64("offset", upTo.Offset), zap.Error(err))
	}
}

type partitionKey struct {
	topic     string
	partition int
}

// offsetTracker keeps, per partition, the fetched messages that have not
// been committed yet in fetch order.
type offsetTracker struct {
	mu      sync.Mutex
	pending map[partitionKey][]kafka.Message
	done    map[partitionKey]map[int64]bool
}

func newOffsetTracker() *offsetTracker {
	return &offsetTracker{
		pending: map[partitionKey][]kafka.Message{},
		done:    map[partitionKey]map[int64]bool{},
	}
}

func (t *offsetTracker) fetched(m kafka.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := partitionKey{m.Topic, m.Partition}
	t.pending[k] = append(t.pending[k], m)
}

func (t *offsetTracker) handled(m kafka.Message) (kafka.Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handledLocked(m)
}

// handledLocked returns the last message of the handled prefix, or false
// when the oldest pending message is still in flight.
func (t *offsetTracker) handledLocked(m kafka.Message) (kafka.Message, bool) {
	k := partitionKey{m.Topic, m.Partition}
	if t.done[k] == nil {
		t.done[k] = map[int64]bool{}
	}
	t.done[k][m.Offset] = true

	var (
		last kafka.Message
		ok   bool
	)
	q := t.pending[k]
	for len(q) > 0 && t.done[k][q[0].Offset] {
		last, ok = q[0], true
		delete(t.done[k], q[0].Offset)
		q = q[1:]
	}
	t.pending[k] = q
	return last, ok
}

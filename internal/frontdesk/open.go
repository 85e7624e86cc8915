package frontdesk

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-hotel-desk/internal/config"
	"github.com/ariefcatur/go-hotel-desk/internal/hotel"
	kafkax "github.com/ariefcatur/go-hotel-desk/internal/kafka"
	"github.com/ariefcatur/go-hotel-desk/internal/postgres"
	"github.com/ariefcatur/go-hotel-desk/internal/store"
	"go.uber.org/zap"
)

// Open wires a desk service from cfg: the booking store selected by
// HOTEL_STORE and, when brokers are configured, a Kafka event producer.
// The returned close func releases everything Open acquired.
func Open(ctx context.Context, cfg config.Config, log *zap.Logger) (*Service, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var st Store
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		closers = append(closers, pool.Close)
		bs := postgres.OpenBookingStore(pool)
		closers = append(closers, func() { _ = bs.DB.Close() })
		if err := bs.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, nil, err
		}
		st = bs
	default:
		fs := store.NewFileStore(cfg.DataFile)
		if err := fs.Ensure(); err != nil {
			return nil, nil, err
		}
		st = fs
	}

	var pub Publisher
	if cfg.PublishEvents() {
		prod := kafkax.NewProducer(cfg.KafkaBrokers, hotel.TopicRoomEvents, 1024, log)
		prod.Start(ctx)
		closers = append(closers, func() {
			prod.Close()
			prod.WaitClosed()
		})
		pub = prod
	}

	log.Info("desk ready",
		zap.String("store", cfg.Store),
		zap.String("target", st.Target()),
		zap.Bool("events", pub != nil))
	return New(hotel.New(), st, pub, cfg.ServiceName, log), closeAll, nil
}

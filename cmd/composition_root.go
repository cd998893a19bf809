package cmd

import (
	"log/slog"
	"time"

	amqpout "orderflow/internal/adapters/out/amqp"
	"orderflow/internal/adapters/out/postgres"
	"orderflow/internal/adapters/out/postgres/accessrepo"
	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/application/usecases/queries"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/keylock"
	"orderflow/internal/realtime"

	amqp "github.com/rabbitmq/amqp091-go"
	"gorm.io/gorm"
)

const (
	defaultLockWaitTimeout     = 2 * time.Second
	defaultStaleOrderThreshold = 15 * time.Minute
)

// CompositionRoot wires adapters to use cases. All handlers created from the
// same root share one KeyedMutex and one event pipeline, which is what the
// per-order serialization and ordering guarantees rely on.
type CompositionRoot struct {
	gormDB     *gorm.DB
	uowFactory postgres.GormUnitOfWorkFactory

	locks      *keylock.KeyedMutex
	registry   *realtime.Registry
	gatekeeper *realtime.Gatekeeper
	hub        *realtime.Hub

	publisher     ports.EventPublisher
	amqpPublisher *amqpout.Publisher

	staleOrderThreshold time.Duration
}

// NewCompositionRoot builds the object graph. The amqpConn may be nil, in
// which case events only reach in-process stream subscribers.
func NewCompositionRoot(
	config Config,
	gormDB *gorm.DB,
	amqpConn *amqp.Connection,
	logger *slog.Logger,
) (CompositionRoot, error) {
	registry := realtime.NewRegistry()
	hub := realtime.NewHub(registry, logger, realtime.DefaultQueueSize, realtime.DefaultSubscriberBuffer)

	publishers := []ports.EventPublisher{hub}
	var amqpPublisher *amqpout.Publisher
	if amqpConn != nil {
		var err error
		amqpPublisher, err = amqpout.NewPublisher(amqpConn, logger, amqpout.DefaultQueueSize)
		if err != nil {
			return CompositionRoot{}, err
		}
		publishers = append(publishers, amqpPublisher)
	}

	return CompositionRoot{
		gormDB:              gormDB,
		uowFactory:          *postgres.NewGormUnitOfWorkFactory(gormDB),
		locks:               keylock.NewKeyedMutex(parseDuration(config.LockWaitTimeout, defaultLockWaitTimeout)),
		registry:            registry,
		gatekeeper:          realtime.NewGatekeeper(accessrepo.NewGormAccessReader(gormDB)),
		hub:                 hub,
		publisher:           realtime.NewFanout(publishers...),
		amqpPublisher:       amqpPublisher,
		staleOrderThreshold: parseDuration(config.StaleOrderThreshold, defaultStaleOrderThreshold),
	}, nil
}

// Start launches the event dispatch loop.
func (c *CompositionRoot) Start() {
	c.hub.Start()
}

// Stop shuts the event pipeline down. Events still queued in the hub are
// discarded; stream clients reconcile through the order version on reconnect.
func (c *CompositionRoot) Stop() {
	c.hub.Stop()
	if c.amqpPublisher != nil {
		c.amqpPublisher.Close()
	}
}

func (c *CompositionRoot) Registry() *realtime.Registry {
	return c.registry
}

func (c *CompositionRoot) Gatekeeper() *realtime.Gatekeeper {
	return c.gatekeeper
}

func (c *CompositionRoot) Hub() *realtime.Hub {
	return c.hub
}

func (c *CompositionRoot) StaleOrderThreshold() time.Duration {
	return c.staleOrderThreshold
}

func (c *CompositionRoot) CreateCreateOrderCommandHandler() commands.CreateOrderCommandHandler {
	var f commands.OrderUoWFactory = FuncOrderUoWFactory(func() commands.OrderUoW {
		return c.uowFactory.Create()
	})
	return commands.NewCreateOrderCommandHandler(f, c.publisher)
}

func (c *CompositionRoot) CreateUpdateOrderStatusCommandHandler() commands.UpdateOrderStatusCommandHandler {
	var f commands.OrderUoWFactory = FuncOrderUoWFactory(func() commands.OrderUoW {
		return c.uowFactory.Create()
	})
	return commands.NewUpdateOrderStatusCommandHandler(c.locks, f, c.publisher)
}

func (c *CompositionRoot) CreateAssignPartnerCommandHandler() commands.AssignPartnerCommandHandler {
	var f commands.OrderUoWFactory = FuncOrderUoWFactory(func() commands.OrderUoW {
		return c.uowFactory.Create()
	})
	return commands.NewAssignPartnerCommandHandler(c.locks, f)
}

func (c *CompositionRoot) CreateGetOrderQueryHandler() queries.GetOrderQueryHandler {
	return queries.NewGetOrderQueryHandler(c.gormDB)
}

func (c *CompositionRoot) CreateGetActiveOrdersQueryHandler() queries.GetActiveOrdersQueryHandler {
	return queries.NewGetActiveOrdersQueryHandler(c.gormDB)
}

func (c *CompositionRoot) CreateGetStaleProcessingOrdersQueryHandler() queries.GetStaleProcessingOrdersQueryHandler {
	return queries.NewGetStaleProcessingOrdersQueryHandler(c.gormDB)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

type FuncOrderUoWFactory func() commands.OrderUoW

func (f FuncOrderUoWFactory) Create() commands.OrderUoW {
	return f()
}

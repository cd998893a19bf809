package commands_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOrderRepository struct{ mock.Mock }

func (m *MockOrderRepository) Add(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Update(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

type MockOrderUoW struct{ mock.Mock }

func (m *MockOrderUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) OrderRepository() ports.OrderRepository {
	args := m.Called()
	return args.Get(0).(ports.OrderRepository)
}

type MockOrderUoWFactory struct{ mock.Mock }

func (m *MockOrderUoWFactory) Create() commands.OrderUoW {
	args := m.Called()
	return args.Get(0).(commands.OrderUoW)
}

// RecordingPublisher captures published events for assertions.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []ports.StatusEvent
}

func (p *RecordingPublisher) Publish(event ports.StatusEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *RecordingPublisher) Events() []ports.StatusEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ports.StatusEvent(nil), p.events...)
}

// restoreTestOrder rebuilds an order at the given status with a consistent
// history chain, as the repository would.
func restoreTestOrder(t *testing.T, id kernel.UUID, status order.Status, partnerID *kernel.UUID) *order.Order {
	t.Helper()

	chains := map[order.Status][]struct {
		status order.Status
		role   actor.Role
	}{
		order.Processing: {{order.Processing, actor.Customer}},
		order.Accepted:   {{order.Processing, actor.Customer}, {order.Accepted, actor.RestaurantOwner}},
		order.Ready: {
			{order.Processing, actor.Customer},
			{order.Accepted, actor.RestaurantOwner},
			{order.Ready, actor.RestaurantOwner},
		},
	}

	chain, ok := chains[status]
	require.True(t, ok, "no test history chain for status %s", status)

	at := time.Now().UTC().Add(-time.Hour)
	history := make([]order.StatusChange, 0, len(chain))
	for i, step := range chain {
		entry, err := order.RestoreStatusChange(step.status, step.role, at.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		history = append(history, entry)
	}

	o, err := order.RestoreOrder(id, kernel.NewUUID(), kernel.NewUUID(), partnerID, status, history)
	require.NoError(t, err)
	return o
}

func TestCreateOrderCommandHandler_Handle_Success(t *testing.T) {
	ctx := t.Context()
	cmd, err := commands.NewCreateOrderCommand(kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID())
	require.NoError(t, err)

	repo := new(MockOrderRepository)
	uow := new(MockOrderUoW)
	mock.InOrder(
		uow.On("Begin", ctx).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Add", mock.Anything, mock.AnythingOfType("*order.Order")).Return(nil).Once(),
		uow.On("Commit", ctx).Return(nil).Once(),
		uow.On("Rollback", ctx).Return(nil).Once(),
	)

	factory := new(MockOrderUoWFactory)
	factory.On("Create").Return(uow).Once()
	publisher := new(RecordingPublisher)

	h := commands.NewCreateOrderCommandHandler(factory, publisher)
	err = h.Handle(ctx, cmd)

	require.NoError(t, err)
	repo.AssertExpectations(t)
	uow.AssertExpectations(t)
	factory.AssertExpectations(t)

	events := publisher.Events()
	require.Len(t, events, 1)
	assert.True(t, events[0].OrderID.IsEqual(cmd.OrderID()))
	assert.Equal(t, order.Unknown, events[0].Previous)
	assert.Equal(t, order.Processing, events[0].New)
	assert.Equal(t, actor.Customer, events[0].ActorRole)
	assert.Equal(t, 1, events[0].Version)
}

func TestCreateOrderCommandHandler_Handle_ValidationError(t *testing.T) {
	ctx := t.Context()
	cmd := commands.CreateOrderCommand{} // not constructed properly
	factory := new(MockOrderUoWFactory)

	h := commands.NewCreateOrderCommandHandler(factory, new(RecordingPublisher))
	err := h.Handle(ctx, cmd)
	require.Error(t, err)
}

func TestCreateOrderCommandHandler_Handle_AddError(t *testing.T) {
	ctx := t.Context()
	cmd, err := commands.NewCreateOrderCommand(kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID())
	require.NoError(t, err)

	repo := new(MockOrderRepository)
	uow := new(MockOrderUoW)
	mock.InOrder(
		uow.On("Begin", ctx).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Add", mock.Anything, mock.AnythingOfType("*order.Order")).
			Return(errors.New("add error")).Once(),
		uow.On("Rollback", ctx).Return(nil).Once(),
	)

	factory := new(MockOrderUoWFactory)
	factory.On("Create").Return(uow).Once()
	publisher := new(RecordingPublisher)

	h := commands.NewCreateOrderCommandHandler(factory, publisher)
	err = h.Handle(ctx, cmd)

	require.Error(t, err)
	assert.Empty(t, publisher.Events(), "failed creation must not publish")
	repo.AssertExpectations(t)
	uow.AssertExpectations(t)
}

func TestCreateOrderCommandHandler_Handle_CommitError(t *testing.T) {
	ctx := t.Context()
	cmd, err := commands.NewCreateOrderCommand(kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID())
	require.NoError(t, err)

	repo := new(MockOrderRepository)
	uow := new(MockOrderUoW)
	mock.InOrder(
		uow.On("Begin", ctx).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Add", mock.Anything, mock.AnythingOfType("*order.Order")).Return(nil).Once(),
		uow.On("Commit", ctx).Return(errors.New("commit error")).Once(),
		uow.On("Rollback", ctx).Return(nil).Once(),
	)

	factory := new(MockOrderUoWFactory)
	factory.On("Create").Return(uow).Once()
	publisher := new(RecordingPublisher)

	h := commands.NewCreateOrderCommandHandler(factory, publisher)
	err = h.Handle(ctx, cmd)

	require.Error(t, err)
	assert.Empty(t, publisher.Events(), "failed commit must not publish")
}

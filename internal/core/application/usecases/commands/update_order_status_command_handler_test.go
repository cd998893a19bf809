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
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/keylock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUpdateOrderStatusCommandHandler_Handle_Success(t *testing.T) {
	ctx := t.Context()
	orderID := kernel.NewUUID()
	existing := restoreTestOrder(t, orderID, order.Processing, nil)
	cmd, err := commands.NewUpdateOrderStatusCommand(orderID, order.Accepted, actor.RestaurantOwner, nil)
	require.NoError(t, err)

	repo := new(MockOrderRepository)
	uow := new(MockOrderUoW)
	mock.InOrder(
		uow.On("Begin", mock.Anything).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Get", mock.Anything, orderID).Return(existing, nil).Once(),
		repo.On("Update", mock.Anything, existing).Return(nil).Once(),
		uow.On("Commit", mock.Anything).Return(nil).Once(),
		uow.On("Rollback", mock.Anything).Return(nil).Once(),
	)

	factory := new(MockOrderUoWFactory)
	factory.On("Create").Return(uow).Once()
	publisher := new(RecordingPublisher)

	h := commands.NewUpdateOrderStatusCommandHandler(keylock.NewKeyedMutex(0), factory, publisher)
	result, err := h.Handle(ctx, cmd)

	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, order.Accepted, result.Status)
	assert.Equal(t, 2, result.Version)
	repo.AssertExpectations(t)
	uow.AssertExpectations(t)

	events := publisher.Events()
	require.Len(t, events, 1)
	assert.True(t, events[0].OrderID.IsEqual(orderID))
	assert.Equal(t, order.Processing, events[0].Previous)
	assert.Equal(t, order.Accepted, events[0].New)
	assert.Equal(t, actor.RestaurantOwner, events[0].ActorRole)
	assert.Equal(t, 2, events[0].Version)
}

func TestUpdateOrderStatusCommandHandler_Handle_IdempotentReplay(t *testing.T) {
	ctx := t.Context()
	orderID := kernel.NewUUID()
	existing := restoreTestOrder(t, orderID, order.Accepted, nil)
	cmd, err := commands.NewUpdateOrderStatusCommand(orderID, order.Accepted, actor.RestaurantOwner, nil)
	require.NoError(t, err)

	repo := new(MockOrderRepository)
	uow := new(MockOrderUoW)
	// No Update, no Commit: the replay is absorbed without a write.
	mock.InOrder(
		uow.On("Begin", mock.Anything).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Get", mock.Anything, orderID).Return(existing, nil).Once(),
		uow.On("Rollback", mock.Anything).Return(nil).Once(),
	)

	factory := new(MockOrderUoWFactory)
	factory.On("Create").Return(uow).Once()
	publisher := new(RecordingPublisher)

	h := commands.NewUpdateOrderStatusCommandHandler(keylock.NewKeyedMutex(0), factory, publisher)
	result, err := h.Handle(ctx, cmd)

	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Equal(t, order.Accepted, result.Status)
	assert.Equal(t, 2, result.Version)
	assert.Empty(t, publisher.Events(), "replay must not publish")
	repo.AssertExpectations(t)
	uow.AssertExpectations(t)
}

func TestUpdateOrderStatusCommandHandler_Handle_VersionConflict(t *testing.T) {
	ctx := t.Context()
	orderID := kernel.NewUUID()
	existing := restoreTestOrder(t, orderID, order.Accepted, nil) // version 2
	stale := 1
	cmd, err := commands.NewUpdateOrderStatusCommand(orderID, order.Ready, actor.RestaurantOwner, &stale)
	require.NoError(t, err)

	repo := new(MockOrderRepository)
	uow := new(MockOrderUoW)
	mock.InOrder(
		uow.On("Begin", mock.Anything).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Get", mock.Anything, orderID).Return(existing, nil).Once(),
		uow.On("Rollback", mock.Anything).Return(nil).Once(),
	)

	factory := new(MockOrderUoWFactory)
	factory.On("Create").Return(uow).Once()
	publisher := new(RecordingPublisher)

	h := commands.NewUpdateOrderStatusCommandHandler(keylock.NewKeyedMutex(0), factory, publisher)
	_, err = h.Handle(ctx, cmd)

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrVersionConflict)
	assert.Empty(t, publisher.Events())
	repo.AssertExpectations(t)
	uow.AssertExpectations(t)
}

func TestUpdateOrderStatusCommandHandler_Handle_ConflictBeforeTransitionCheck(t *testing.T) {
	// A stale writer whose requested edge is also illegal learns it lost the
	// race, not that its edge is illegal.
	ctx := t.Context()
	orderID := kernel.NewUUID()
	existing := restoreTestOrder(t, orderID, order.Accepted, nil)
	stale := 1
	cmd, err := commands.NewUpdateOrderStatusCommand(orderID, order.OutForDelivery, actor.DeliveryPartner, &stale)
	require.NoError(t, err)

	repo := new(MockOrderRepository)
	uow := new(MockOrderUoW)
	mock.InOrder(
		uow.On("Begin", mock.Anything).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Get", mock.Anything, orderID).Return(existing, nil).Once(),
		uow.On("Rollback", mock.Anything).Return(nil).Once(),
	)

	factory := new(MockOrderUoWFactory)
	factory.On("Create").Return(uow).Once()

	h := commands.NewUpdateOrderStatusCommandHandler(
		keylock.NewKeyedMutex(0), factory, new(RecordingPublisher))
	_, err = h.Handle(ctx, cmd)

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrVersionConflict)
	assert.NotErrorIs(t, err, errs.ErrInvalidTransition)
}

func TestUpdateOrderStatusCommandHandler_Handle_InvalidTransition(t *testing.T) {
	ctx := t.Context()
	orderID := kernel.NewUUID()
	existing := restoreTestOrder(t, orderID, order.Processing, nil)
	cmd, err := commands.NewUpdateOrderStatusCommand(orderID, order.Delivered, actor.Admin, nil)
	require.NoError(t, err)

	repo := new(MockOrderRepository)
	uow := new(MockOrderUoW)
	mock.InOrder(
		uow.On("Begin", mock.Anything).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Get", mock.Anything, orderID).Return(existing, nil).Once(),
		uow.On("Rollback", mock.Anything).Return(nil).Once(),
	)

	factory := new(MockOrderUoWFactory)
	factory.On("Create").Return(uow).Once()
	publisher := new(RecordingPublisher)

	h := commands.NewUpdateOrderStatusCommandHandler(keylock.NewKeyedMutex(0), factory, publisher)
	_, err = h.Handle(ctx, cmd)

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
	assert.Empty(t, publisher.Events())
	assert.Equal(t, order.Processing, existing.Status(), "rejected mutation must not change the order")
}

func TestUpdateOrderStatusCommandHandler_Handle_NotFound(t *testing.T) {
	ctx := t.Context()
	orderID := kernel.NewUUID()
	cmd, err := commands.NewUpdateOrderStatusCommand(orderID, order.Accepted, actor.RestaurantOwner, nil)
	require.NoError(t, err)

	repo := new(MockOrderRepository)
	uow := new(MockOrderUoW)
	mock.InOrder(
		uow.On("Begin", mock.Anything).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Get", mock.Anything, orderID).
			Return(nil, errs.NewObjectNotFoundError("orderId", orderID)).Once(),
		uow.On("Rollback", mock.Anything).Return(nil).Once(),
	)

	factory := new(MockOrderUoWFactory)
	factory.On("Create").Return(uow).Once()

	h := commands.NewUpdateOrderStatusCommandHandler(
		keylock.NewKeyedMutex(0), factory, new(RecordingPublisher))
	_, err = h.Handle(ctx, cmd)

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrObjectNotFound)
}

func TestUpdateOrderStatusCommandHandler_Handle_BusyOnContention(t *testing.T) {
	ctx := t.Context()
	orderID := kernel.NewUUID()
	cmd, err := commands.NewUpdateOrderStatusCommand(orderID, order.Accepted, actor.RestaurantOwner, nil)
	require.NoError(t, err)

	locks := keylock.NewKeyedMutex(20 * time.Millisecond)
	release, err := locks.Acquire(ctx, orderID.String())
	require.NoError(t, err)
	defer release()

	factory := new(MockOrderUoWFactory) // never reached

	h := commands.NewUpdateOrderStatusCommandHandler(locks, factory, new(RecordingPublisher))
	_, err = h.Handle(ctx, cmd)

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrResourceBusy)
	factory.AssertNotCalled(t, "Create")
}

// memoryOrderStore is a stateful repository for concurrency tests: Get
// restores a fresh aggregate from the stored history and Update applies the
// same optimistic version guard the real repository does.
type memoryOrderStore struct {
	mu           sync.Mutex
	id           kernel.UUID
	customerID   kernel.UUID
	restaurantID kernel.UUID
	partnerID    *kernel.UUID
	status       order.Status
	history      []order.StatusChange
}

func newMemoryOrderStore(seed *order.Order) *memoryOrderStore {
	return &memoryOrderStore{
		id:           seed.ID(),
		customerID:   seed.CustomerID(),
		restaurantID: seed.RestaurantID(),
		partnerID:    seed.DeliveryPartner(),
		status:       seed.Status(),
		history:      append([]order.StatusChange(nil), seed.History()...),
	}
}

func (s *memoryOrderStore) Add(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = o.Status()
	s.history = append([]order.StatusChange(nil), o.History()...)
	return nil
}

func (s *memoryOrderStore) Update(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.BaseVersion() != len(s.history) {
		return errs.NewVersionConflictError("order", o.BaseVersion(), len(s.history))
	}
	s.status = o.Status()
	s.partnerID = o.DeliveryPartner()
	s.history = append([]order.StatusChange(nil), o.History()...)
	return nil
}

func (s *memoryOrderStore) Get(_ context.Context, _ kernel.UUID) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := append([]order.StatusChange(nil), s.history...)
	return order.RestoreOrder(s.id, s.customerID, s.restaurantID, s.partnerID, s.status, history)
}

type memoryOrderUoW struct{ store *memoryOrderStore }

func (u memoryOrderUoW) Begin(context.Context) error    { return nil }
func (u memoryOrderUoW) Commit(context.Context) error   { return nil }
func (u memoryOrderUoW) Rollback(context.Context) error { return nil }
func (u memoryOrderUoW) OrderRepository() ports.OrderRepository {
	return u.store
}

type memoryOrderUoWFactory struct{ store *memoryOrderStore }

func (f memoryOrderUoWFactory) Create() commands.OrderUoW {
	return memoryOrderUoW{store: f.store}
}

func TestUpdateOrderStatusCommandHandler_Handle_ConcurrentConflictingMutations(t *testing.T) {
	// Two writers race on the same accepted order: the owner readying it and
	// the owner cancelling it. The per-order lock serializes them, so exactly
	// one edge applies and the loser fails against the re-read state, never
	// against a torn write.
	ctx := t.Context()

	for iteration := 0; iteration < 25; iteration++ {
		orderID := kernel.NewUUID()
		store := newMemoryOrderStore(restoreTestOrder(t, orderID, order.Accepted, nil))
		publisher := new(RecordingPublisher)
		h := commands.NewUpdateOrderStatusCommandHandler(
			keylock.NewKeyedMutex(time.Second), memoryOrderUoWFactory{store: store}, publisher)

		readyCmd, err := commands.NewUpdateOrderStatusCommand(orderID, order.Ready, actor.RestaurantOwner, nil)
		require.NoError(t, err)
		cancelCmd, err := commands.NewUpdateOrderStatusCommand(orderID, order.Cancelled, actor.RestaurantOwner, nil)
		require.NoError(t, err)

		start := make(chan struct{})
		results := make(chan error, 2)
		for _, cmd := range []commands.UpdateOrderStatusCommand{readyCmd, cancelCmd} {
			go func(cmd commands.UpdateOrderStatusCommand) {
				<-start
				_, handleErr := h.Handle(ctx, cmd)
				results <- handleErr
			}(cmd)
		}
		close(start)

		successes := 0
		var rejections []error
		for i := 0; i < 2; i++ {
			if handleErr := <-results; handleErr != nil {
				rejections = append(rejections, handleErr)
			} else {
				successes++
			}
		}

		require.Equal(t, 1, successes, "exactly one of two conflicting mutations may win")
		require.Len(t, rejections, 1)
		rejected := errors.Is(rejections[0], errs.ErrInvalidTransition) ||
			errors.Is(rejections[0], errs.ErrUnauthorizedRole)
		assert.True(t, rejected, "loser must be rejected by the re-read state, got: %v", rejections[0])

		final, err := store.Get(ctx, orderID)
		require.NoError(t, err)
		assert.Equal(t, 3, final.Version(), "only the winning edge may append history")

		events := publisher.Events()
		require.Len(t, events, 1, "only the winning mutation may publish")
		assert.Equal(t, 3, events[0].Version)
		assert.Equal(t, final.Status(), events[0].New)
	}
}

func TestUpdateOrderStatusCommandHandler_Handle_BeginError(t *testing.T) {
	ctx := t.Context()
	orderID := kernel.NewUUID()
	cmd, err := commands.NewUpdateOrderStatusCommand(orderID, order.Accepted, actor.RestaurantOwner, nil)
	require.NoError(t, err)

	uow := new(MockOrderUoW)
	factory := new(MockOrderUoWFactory)
	mock.InOrder(
		factory.On("Create").Return(uow).Once(),
		uow.On("Begin", mock.Anything).Return(errors.New("begin error")).Once(),
	)

	h := commands.NewUpdateOrderStatusCommandHandler(
		keylock.NewKeyedMutex(0), factory, new(RecordingPublisher))
	_, err = h.Handle(ctx, cmd)
	require.Error(t, err)
}

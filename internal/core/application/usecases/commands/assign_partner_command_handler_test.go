package commands_test

import (
	"testing"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/keylock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAssignPartnerCommandHandler_Handle_Success(t *testing.T) {
	ctx := t.Context()
	orderID, partnerID := kernel.NewUUID(), kernel.NewUUID()
	existing := restoreTestOrder(t, orderID, order.Ready, nil)
	cmd, err := commands.NewAssignPartnerCommand(orderID, partnerID)
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

	h := commands.NewAssignPartnerCommandHandler(keylock.NewKeyedMutex(0), factory)
	err = h.Handle(ctx, cmd)

	require.NoError(t, err)
	require.NotNil(t, existing.DeliveryPartner())
	assert.True(t, existing.DeliveryPartner().IsEqual(partnerID))
	assert.Equal(t, 3, existing.Version(), "assignment must not advance the version")
	repo.AssertExpectations(t)
	uow.AssertExpectations(t)
}

func TestAssignPartnerCommandHandler_Handle_AlreadyAssigned(t *testing.T) {
	ctx := t.Context()
	orderID := kernel.NewUUID()
	assigned := kernel.NewUUID()
	existing := restoreTestOrder(t, orderID, order.Ready, &assigned)
	cmd, err := commands.NewAssignPartnerCommand(orderID, kernel.NewUUID())
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

	h := commands.NewAssignPartnerCommandHandler(keylock.NewKeyedMutex(0), factory)
	err = h.Handle(ctx, cmd)

	require.ErrorIs(t, err, order.ErrPartnerAlreadyAssigned)
	assert.True(t, existing.DeliveryPartner().IsEqual(assigned))
	repo.AssertExpectations(t)
	uow.AssertExpectations(t)
}

func TestAssignPartnerCommandHandler_Handle_ValidationError(t *testing.T) {
	ctx := t.Context()
	cmd := commands.AssignPartnerCommand{} // not constructed properly

	h := commands.NewAssignPartnerCommandHandler(keylock.NewKeyedMutex(0), new(MockOrderUoWFactory))
	err := h.Handle(ctx, cmd)
	require.Error(t, err)
}

package commands_test

import (
	"testing"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/kernel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreateOrderCommand(t *testing.T) {
	t.Run("should create command with valid parameters", func(t *testing.T) {
		orderID, customerID, restaurantID := kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID()

		cmd, err := commands.NewCreateOrderCommand(orderID, customerID, restaurantID)

		require.NoError(t, err)
		assert.True(t, cmd.OrderID().IsEqual(orderID))
		assert.True(t, cmd.CustomerID().IsEqual(customerID))
		assert.True(t, cmd.RestaurantID().IsEqual(restaurantID))
		require.NoError(t, cmd.Validate())
	})

	t.Run("should reject invalid identifiers", func(t *testing.T) {
		valid := kernel.NewUUID()

		_, err := commands.NewCreateOrderCommand(kernel.UUID{}, valid, valid)
		require.Error(t, err)

		_, err = commands.NewCreateOrderCommand(valid, kernel.UUID{}, valid)
		require.Error(t, err)

		_, err = commands.NewCreateOrderCommand(valid, valid, kernel.UUID{})
		require.Error(t, err)
	})
}

func TestCreateOrderCommand_Validate(t *testing.T) {
	t.Run("should reject command bypassing the constructor", func(t *testing.T) {
		var cmd commands.CreateOrderCommand
		require.ErrorIs(t, cmd.Validate(), commands.ErrCreateOrderCommandIsNotConstructed)
	})
}

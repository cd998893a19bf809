package commands_test

import (
	"testing"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/kernel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAssignPartnerCommand(t *testing.T) {
	t.Run("should create command with valid parameters", func(t *testing.T) {
		orderID, partnerID := kernel.NewUUID(), kernel.NewUUID()

		cmd, err := commands.NewAssignPartnerCommand(orderID, partnerID)

		require.NoError(t, err)
		assert.True(t, cmd.OrderID().IsEqual(orderID))
		assert.True(t, cmd.PartnerID().IsEqual(partnerID))
	})

	t.Run("should reject invalid identifiers", func(t *testing.T) {
		_, err := commands.NewAssignPartnerCommand(kernel.UUID{}, kernel.NewUUID())
		require.Error(t, err)

		_, err = commands.NewAssignPartnerCommand(kernel.NewUUID(), kernel.UUID{})
		require.Error(t, err)
	})
}

func TestAssignPartnerCommand_Validate(t *testing.T) {
	t.Run("should reject command bypassing the constructor", func(t *testing.T) {
		var cmd commands.AssignPartnerCommand
		require.ErrorIs(t, cmd.Validate(), commands.ErrAssignPartnerCommandIsNotConstructed)
	})
}

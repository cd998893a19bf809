package actor_test

import (
	"fmt"
	"testing"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole_Validate(t *testing.T) {
	t.Run("should validate valid roles", func(t *testing.T) {
		validRoles := []actor.Role{
			actor.Customer,
			actor.RestaurantOwner,
			actor.DeliveryPartner,
			actor.Admin,
		}

		for _, role := range validRoles {
			t.Run(fmt.Sprintf("should validate %s role", role.String()), func(t *testing.T) {
				require.NoError(t, role.Validate())
			})
		}
	})

	t.Run("should reject invalid role values", func(t *testing.T) {
		invalidRoles := []actor.Role{
			actor.RoleUnknown,
			actor.Role(-1),
			actor.Role(5),
			actor.Role(100),
		}

		for _, role := range invalidRoles {
			t.Run(fmt.Sprintf("should reject role value %d", int(role)), func(t *testing.T) {
				err := role.Validate()

				require.Error(t, err)
				assert.IsType(t, &errs.ValueIsInvalidError{}, err)
			})
		}
	})
}

func TestRole_String(t *testing.T) {
	testCases := []struct {
		role     actor.Role
		expected string
	}{
		{actor.Customer, "customer"},
		{actor.RestaurantOwner, "restaurant_owner"},
		{actor.DeliveryPartner, "delivery_partner"},
		{actor.Admin, "admin"},
		{actor.RoleUnknown, "unknown"},
		{actor.Role(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("should return %s for %d", tc.expected, int(tc.role)), func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.role.String())
		})
	}
}

func TestRoleFromString(t *testing.T) {
	t.Run("should round trip all valid roles", func(t *testing.T) {
		for _, role := range []actor.Role{
			actor.Customer,
			actor.RestaurantOwner,
			actor.DeliveryPartner,
			actor.Admin,
		} {
			parsed, err := actor.RoleFromString(role.String())

			require.NoError(t, err)
			assert.Equal(t, role, parsed)
		}
	})

	t.Run("should reject unknown names", func(t *testing.T) {
		for _, raw := range []string{"", "unknown", "superuser", "RESTAURANT_OWNER"} {
			_, err := actor.RoleFromString(raw)
			require.Error(t, err, "expected %q to be rejected", raw)
		}
	})
}

func TestRole_CanMutate(t *testing.T) {
	t.Run("should allow mutating roles", func(t *testing.T) {
		assert.True(t, actor.RestaurantOwner.CanMutate())
		assert.True(t, actor.DeliveryPartner.CanMutate())
		assert.True(t, actor.Admin.CanMutate())
	})

	t.Run("should deny customers and invalid roles", func(t *testing.T) {
		assert.False(t, actor.Customer.CanMutate())
		assert.False(t, actor.RoleUnknown.CanMutate())
		assert.False(t, actor.Role(9).CanMutate())
	})
}

package queries_test

import (
	"testing"
	"time"

	"orderflow/internal/core/application/usecases/queries"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGetStaleProcessingOrdersQuery(t *testing.T) {
	t.Run("should create query with positive threshold", func(t *testing.T) {
		query, err := queries.NewGetStaleProcessingOrdersQuery(15 * time.Minute)

		require.NoError(t, err)
		assert.Equal(t, 15*time.Minute, query.OlderThan())
		require.NoError(t, query.Validate())
	})

	t.Run("should reject non-positive thresholds", func(t *testing.T) {
		_, err := queries.NewGetStaleProcessingOrdersQuery(0)
		require.ErrorIs(t, err, errs.ErrValueIsInvalid)

		_, err = queries.NewGetStaleProcessingOrdersQuery(-time.Minute)
		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("should reject query bypassing the constructor", func(t *testing.T) {
		var query queries.GetStaleProcessingOrdersQuery
		require.ErrorIs(t, query.Validate(), queries.ErrGetStaleProcessingOrdersQueryIsNotConstructed)
	})
}

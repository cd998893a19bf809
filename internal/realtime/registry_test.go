package realtime_test

import (
	"fmt"
	"sync"
	"testing"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderScope(t *testing.T) realtime.Scope {
	t.Helper()
	scope, err := realtime.NewScope(realtime.ScopeKindOrder, kernel.NewUUID())
	require.NoError(t, err)
	return scope
}

func TestRegistry_JoinLeave(t *testing.T) {
	t.Run("should track membership per scope", func(t *testing.T) {
		registry := realtime.NewRegistry()
		scope := orderScope(t)

		registry.Join(scope, "a")
		registry.Join(scope, "b")

		assert.ElementsMatch(t, []string{"a", "b"}, registry.SubscribersOf(scope))

		registry.Leave(scope, "a")
		assert.ElementsMatch(t, []string{"b"}, registry.SubscribersOf(scope))
	})

	t.Run("should absorb repeated joins and leaves", func(t *testing.T) {
		registry := realtime.NewRegistry()
		scope := orderScope(t)

		registry.Join(scope, "a")
		registry.Join(scope, "a")
		assert.ElementsMatch(t, []string{"a"}, registry.SubscribersOf(scope))

		registry.Leave(scope, "a")
		registry.Leave(scope, "a")
		assert.Empty(t, registry.SubscribersOf(scope))

		// Leaving a scope never joined is also a no-op.
		registry.Leave(orderScope(t), "ghost")
	})

	t.Run("should keep scopes independent", func(t *testing.T) {
		registry := realtime.NewRegistry()
		first, second := orderScope(t), orderScope(t)

		registry.Join(first, "a")
		registry.Join(second, "b")

		assert.ElementsMatch(t, []string{"a"}, registry.SubscribersOf(first))
		assert.ElementsMatch(t, []string{"b"}, registry.SubscribersOf(second))
	})
}

func TestRegistry_ConcurrentChurn(t *testing.T) {
	t.Run("should keep unrelated scopes consistent under parallel churn", func(t *testing.T) {
		registry := realtime.NewRegistry()

		const workers = 8
		scopes := make([]realtime.Scope, workers)
		ids := make([]string, workers)
		for i := range scopes {
			scopes[i] = orderScope(t)
			ids[i] = fmt.Sprintf("sub-%d", i)
		}

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(scope realtime.Scope, id string) {
				defer wg.Done()
				for n := 0; n < 200; n++ {
					registry.Join(scope, id)
					registry.SubscribersOf(scope)
					registry.Leave(scope, id)
				}
				registry.Join(scope, id)
			}(scopes[i], ids[i])
		}
		wg.Wait()

		for i := range scopes {
			assert.ElementsMatch(t, []string{ids[i]}, registry.SubscribersOf(scopes[i]))
			assert.ElementsMatch(t, []realtime.Scope{scopes[i]}, registry.ScopesOf(ids[i]))
		}
	})

	t.Run("should survive join, leave and drop racing on one scope", func(t *testing.T) {
		registry := realtime.NewRegistry()
		scope := orderScope(t)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				for n := 0; n < 200; n++ {
					registry.Join(scope, id)
					registry.SubscribersOf(scope)
					registry.Drop(id)
				}
			}(fmt.Sprintf("sub-%d", i))
		}
		wg.Wait()

		assert.Empty(t, registry.SubscribersOf(scope))
	})
}

func TestRegistry_Drop(t *testing.T) {
	t.Run("should remove the subscriber from every scope", func(t *testing.T) {
		registry := realtime.NewRegistry()
		first, second := orderScope(t), orderScope(t)

		registry.Join(first, "a")
		registry.Join(second, "a")
		registry.Join(second, "b")
		require.Len(t, registry.ScopesOf("a"), 2)

		registry.Drop("a")

		assert.Empty(t, registry.SubscribersOf(first))
		assert.ElementsMatch(t, []string{"b"}, registry.SubscribersOf(second))
		assert.Empty(t, registry.ScopesOf("a"))
	})
}

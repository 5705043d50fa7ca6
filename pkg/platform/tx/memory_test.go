package tx

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRunner(t *testing.T) {
	t.Run("compensations run in reverse order on failure", func(t *testing.T) {
		r := NewMemoryRunner()
		var order []int

		err := r.RunInTx(context.Background(), func(ctx context.Context) error {
			OnRollback(ctx, func() { order = append(order, 1) })
			OnRollback(ctx, func() { order = append(order, 2) })
			return errors.New("boom")
		})

		require.Error(t, err)
		assert.Equal(t, []int{2, 1}, order)
	})

	t.Run("compensations are discarded on success", func(t *testing.T) {
		r := NewMemoryRunner()
		called := false

		err := r.RunInTx(context.Background(), func(ctx context.Context) error {
			OnRollback(ctx, func() { called = true })
			return nil
		})

		require.NoError(t, err)
		assert.False(t, called)
	})

	t.Run("nested call joins the outer transaction", func(t *testing.T) {
		r := NewMemoryRunner()
		undone := 0

		err := r.RunInTx(context.Background(), func(ctx context.Context) error {
			innerErr := r.RunInTx(ctx, func(ctx context.Context) error {
				OnRollback(ctx, func() { undone++ })
				return nil
			})
			require.NoError(t, innerErr)
			return errors.New("outer fails")
		})

		require.Error(t, err)
		assert.Equal(t, 1, undone)
	})

	t.Run("panics roll back", func(t *testing.T) {
		r := NewMemoryRunner()
		undone := false

		assert.Panics(t, func() {
			_ = r.RunInTx(context.Background(), func(ctx context.Context) error {
				OnRollback(ctx, func() { undone = true })
				panic("store exploded")
			})
		})
		assert.True(t, undone)
	})

	t.Run("transactions are serialized", func(t *testing.T) {
		r := NewMemoryRunner()
		counter := 0
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = r.RunInTx(context.Background(), func(ctx context.Context) error {
					v := counter
					counter = v + 1
					return nil
				})
			}()
		}
		wg.Wait()
		assert.Equal(t, 50, counter)
	})

	t.Run("OnRollback outside a transaction is a no-op", func(t *testing.T) {
		assert.NotPanics(t, func() {
			OnRollback(context.Background(), func() {})
		})
	})
}

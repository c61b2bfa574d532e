package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscountRegistry(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addDiscount(1, "SAVE10", "10", true)
	store.addDiscount(2, "OFF", "5", false)
	store.addDiscount(3, "BROKEN", "150", true)
	registry := NewDiscountRegistry(store)

	d, ok, err := registry.Lookup(ctx, "SAVE10")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), d.ID)

	_, ok, err = registry.Lookup(ctx, "OFF")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = registry.Lookup(ctx, "MISSING")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = registry.Lookup(ctx, "BROKEN")
	assert.Error(t, err)
	assert.False(t, ok)

	active, err := registry.Active(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, active)

	active, err = registry.Active(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "SAVE10", active.Code)
}

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTermServiceDefault(t *testing.T) {
	terms := NewTermService("FA25", zap.NewNop())
	assert.Equal(t, "fa25", terms.Current())
}

func TestTermServiceInvalidDefaultFallsBack(t *testing.T) {
	terms := NewTermService("autumn-2025", zap.NewNop())
	assert.Equal(t, "fa25", terms.Current())
}

func TestTermServiceSet(t *testing.T) {
	terms := NewTermService("fa25", zap.NewNop())

	require.NoError(t, terms.Set("SP26"))
	assert.Equal(t, "sp26", terms.Current())

	require.NoError(t, terms.Set(" fa26 "))
	assert.Equal(t, "fa26", terms.Current())
}

func TestTermServiceSetRejectsMalformed(t *testing.T) {
	terms := NewTermService("fa25", zap.NewNop())

	var fired []string
	terms.OnChange(func(term string) { fired = append(fired, term) })

	for _, candidate := range []string{"fall2025", "FA2", "sp999", "", "wi25"} {
		err := terms.Set(candidate)
		require.Error(t, err, candidate)
		assert.Equal(t, "fa25", terms.Current(), candidate)
	}
	assert.Empty(t, fired)
}

func TestTermServiceListenersFireInOrder(t *testing.T) {
	terms := NewTermService("fa25", zap.NewNop())

	var order []string
	terms.OnChange(func(term string) { order = append(order, "first:"+term) })
	terms.OnChange(func(term string) { order = append(order, "second:"+term) })

	require.NoError(t, terms.Set("sp26"))
	assert.Equal(t, []string{"first:sp26", "second:sp26"}, order)
}

func TestTermServicePanickingListenerIsolated(t *testing.T) {
	terms := NewTermService("fa25", zap.NewNop())

	var fired bool
	terms.OnChange(func(term string) { panic("listener blew up") })
	terms.OnChange(func(term string) { fired = true })

	require.NoError(t, terms.Set("sp26"))
	assert.True(t, fired)
	assert.Equal(t, "sp26", terms.Current())
}

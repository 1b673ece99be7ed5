// internal/models/common_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusNext(t *testing.T) {
	next, ok := OrderStatusPendente.Next()
	assert.True(t, ok)
	assert.Equal(t, OrderStatusPreparo, next)

	next, ok = OrderStatusPreparo.Next()
	assert.True(t, ok)
	assert.Equal(t, OrderStatusEntregue, next)

	_, ok = OrderStatusEntregue.Next()
	assert.False(t, ok)

	_, ok = OrderStatusCancelado.Next()
	assert.False(t, ok)
}

func TestOrderStatusTerminalAndCancellable(t *testing.T) {
	assert.False(t, OrderStatusPendente.Terminal())
	assert.False(t, OrderStatusPreparo.Terminal())
	assert.True(t, OrderStatusEntregue.Terminal())
	assert.True(t, OrderStatusCancelado.Terminal())

	assert.True(t, OrderStatusPendente.Cancellable())
	assert.True(t, OrderStatusPreparo.Cancellable())
	assert.False(t, OrderStatusEntregue.Cancellable())
	assert.False(t, OrderStatusCancelado.Cancellable())
}

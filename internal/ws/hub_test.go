package ws

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_BroadcastToUser_AfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(ctx)
	userID := uuid.New()

	// Заполняем буфер рассылки без запущенного цикла Run.
	for i := 0; i < cap(hub.broadcast); i++ {
		require.NoError(t, hub.BroadcastToUser(userID, "escrow.signed", nil))
	}

	// После остановки хаба отправка в полный буфер не зависает.
	cancel()
	err := hub.BroadcastToUser(userID, "escrow.signed", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

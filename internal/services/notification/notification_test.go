package notification

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafe-pos/internal/logger"
	"cafe-pos/internal/messaging"
	"cafe-pos/internal/models"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHubBroadcastsToEveryClient(t *testing.T) {
	hub := NewHub(logger.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	a, b := dial(t, srv), dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, 2, hub.Broadcast([]byte(`{"order_id":3}`)))

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, `{"order_id":3}`, string(msg))
	}
}

func TestHubForgetsClosedClients(t *testing.T) {
	hub := NewHub(logger.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, hub.Broadcast([]byte("x")))
}

type fakeHub struct {
	payloads []string
}

func (f *fakeHub) Broadcast(payload []byte) int {
	f.payloads = append(f.payloads, string(payload))
	return 1
}

func TestHandleNotificationPushesReadyOnly(t *testing.T) {
	hub := &fakeHub{}
	s := NewSubscriber(nil, hub, logger.Nop())

	for _, status := range []models.OrderStatus{models.StatusReady, models.StatusDone} {
		body, err := json.Marshal(models.NewStatusUpdateMessage(12, models.StatusProcessing, status, "bar-1"))
		require.NoError(t, err)
		require.NoError(t, s.handleNotification(context.Background(), body))
	}

	assert.Equal(t, []string{`{"order_id":12}`}, hub.payloads)
}

func TestHandleNotificationDiscardsGarbage(t *testing.T) {
	s := NewSubscriber(nil, &fakeHub{}, logger.Nop())

	err := s.handleNotification(context.Background(), []byte("{"))
	require.ErrorIs(t, err, messaging.ErrDiscard)
}

package events

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gem-backend/internal/models"
)

func dial(t *testing.T, hub *Hub, ownerID uuid.UUID) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, ownerID)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.ClientCount(ownerID) > 0 }, time.Second, 10*time.Millisecond)
	return conn
}

func TestHubDeliversToOwnerOnly(t *testing.T) {
	hub := NewHub()
	owner, other := uuid.New(), uuid.New()
	mine := dial(t, hub, owner)
	theirs := dial(t, hub, other)

	itemID := uuid.New()
	hub.Publish(models.Event{Type: models.EventSaleCreated, OwnerID: owner, EntityID: itemID, At: time.Now()})

	var got models.Event
	require.NoError(t, mine.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, mine.ReadJSON(&got))
	assert.Equal(t, models.EventSaleCreated, got.Type)
	assert.Equal(t, itemID, got.EntityID)

	require.NoError(t, theirs.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := theirs.ReadMessage()
	assert.Error(t, err, "other tenants receive nothing")
}

func TestHubForgetsClosedClients(t *testing.T) {
	hub := NewHub()
	owner := uuid.New()
	conn := dial(t, hub, owner)
	require.Equal(t, 1, hub.ClientCount(owner))

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount(owner) == 0 }, 2*time.Second, 10*time.Millisecond)

	// publishing to a tenant without clients is a no-op
	hub.Publish(models.Event{Type: models.EventInventoryCreated, OwnerID: owner})
}

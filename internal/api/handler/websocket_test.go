package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/khip_server/internal/pkg/jwt"
	"github.com/qs3c/khip_server/internal/pkg/tokenstore"
	"github.com/qs3c/khip_server/internal/pkg/ws"
	"github.com/qs3c/khip_server/internal/testutil"
)

func TestWebSocketHandler(t *testing.T) {
	rdb, _, cleanup := testutil.SetupTestRedis(t)
	defer cleanup()

	tokens := tokenstore.NewStore(rdb)
	hub := ws.NewHub(nil)
	h := NewWebSocketHandler(hub, testJWTSecret, tokens, nil)

	router := gin.New()
	router.GET("/ws", h.Handle)
	server := httptest.NewServer(router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	t.Run("missing token", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.Error(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("revoked token", func(t *testing.T) {
		token, err := jwt.GenerateToken("u2", "lee@example.com", testJWTSecret, 1)
		require.NoError(t, err)
		claims, err := jwt.ParseToken(token, testJWTSecret)
		require.NoError(t, err)
		require.NoError(t, tokens.Revoke(context.Background(), claims.ID, time.Hour))

		_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token, nil)
		require.Error(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("receives purchase updates", func(t *testing.T) {
		token, err := jwt.GenerateToken("u1", "kim@example.com", testJWTSecret, 1)
		require.NoError(t, err)

		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token, nil)
		require.NoError(t, err)
		defer conn.Close()

		require.Eventually(t, func() bool { return hub.IsOnline("u1") }, time.Second, 10*time.Millisecond)

		require.NoError(t, hub.SendToUser("u1", &ws.Message{
			Type: "purchase_status",
			Data: map[string]string{"status": "delivered"},
		}))

		var msg ws.Message
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "purchase_status", msg.Type)

		conn.Close()
		assert.Eventually(t, func() bool { return !hub.IsOnline("u1") }, time.Second, 10*time.Millisecond)
	})
}

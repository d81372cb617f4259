package ws

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// newTestServer 每个连接按 userFor 的结果注册，断开时注销
func newTestServer(t *testing.T, hub *Hub, userFor func() string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		client := &Client{UserID: userFor(), Conn: conn}
		hub.Register(client)
		defer hub.Unregister(client)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func TestHub_Empty(t *testing.T) {
	hub := NewHub(nil)

	assert.Equal(t, 0, hub.ConnectionCount())
	assert.False(t, hub.IsOnline("u1"))

	// 离线用户不报错
	err := hub.SendToUser("u1", &Message{Type: "test"})
	assert.NoError(t, err)
}

func TestHub_SendToUser_WithConnection(t *testing.T) {
	hub := NewHub(nil)
	server := newTestServer(t, hub, func() string { return "u200" })
	defer server.Close()

	conn := dial(t, server)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.IsOnline("u200") }, time.Second, 10*time.Millisecond)

	err := hub.SendToUser("u200", &Message{
		Type: "purchase_status",
		Data: map[string]string{"status": "delivered"},
	})
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, received, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(received), "purchase_status")
	assert.Contains(t, string(received), "delivered")
}

func TestHub_MultipleConnectionsSameUser(t *testing.T) {
	hub := NewHub(nil)
	server := newTestServer(t, hub, func() string { return "u300" })
	defer server.Close()

	conn1 := dial(t, server)
	defer conn1.Close()
	conn2 := dial(t, server)
	defer conn2.Close()

	require.Eventually(t, func() bool { return hub.ConnectionCount() == 2 }, time.Second, 10*time.Millisecond)
	assert.True(t, hub.IsOnline("u300"))

	require.NoError(t, hub.SendToUser("u300", &Message{Type: "ping"}))
	for _, c := range []*websocket.Conn{conn1, conn2} {
		c.SetReadDeadline(time.Now().Add(time.Second))
		_, received, err := c.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(received), "ping")
	}
}

func TestHub_MultipleUsersAndUnregister(t *testing.T) {
	hub := NewHub(nil)

	var n int32
	server := newTestServer(t, hub, func() string {
		return fmt.Sprintf("u%d", atomic.AddInt32(&n, 1))
	})
	defer server.Close()

	var conns []*websocket.Conn
	for i := 0; i < 3; i++ {
		conns = append(conns, dial(t, server))
	}

	require.Eventually(t, func() bool { return hub.ConnectionCount() == 3 }, time.Second, 10*time.Millisecond)
	assert.True(t, hub.IsOnline("u1"))
	assert.True(t, hub.IsOnline("u2"))
	assert.True(t, hub.IsOnline("u3"))
	assert.False(t, hub.IsOnline("u4"))

	for _, c := range conns {
		c.Close()
	}
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 0 }, time.Second, 10*time.Millisecond)
}

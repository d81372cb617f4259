package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr, func() {
		client.Close()
		mr.Close()
	}
}

func TestStatusMessages(t *testing.T) {
	for _, status := range []string{"pending", "under_review", "delivered", "failed", "completed"} {
		assert.NotEmpty(t, StatusMessages[status], "status %s should have message", status)
	}
}

func TestPurchaseEvent_JSON(t *testing.T) {
	event := &PurchaseEvent{
		Type:       EventPurchaseStatus,
		UserID:     "u1",
		PurchaseID: "purchase_1",
		Status:     "delivered",
		ReportURL:  "https://cdn.example.com/r.pdf",
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Contains(t, raw, "user_id")
	assert.Contains(t, raw, "purchase_id")
	assert.Contains(t, raw, "report_url")
	assert.NotContains(t, raw, "end_date")
	assert.NotContains(t, raw, "message")
}

func TestPublisher_PublishFillsDefaults(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	publisher := NewPublisher(client)
	event := &PurchaseEvent{UserID: "u1", PurchaseID: "p1", Status: "under_review"}

	require.NoError(t, publisher.Publish(context.Background(), event))
	assert.Equal(t, EventPurchaseStatus, event.Type)
	assert.Equal(t, StatusMessages["under_review"], event.Message)
}

func TestPublisherSubscriber(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	publisher := NewPublisher(client)
	subscriber := NewSubscriber(client)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan *PurchaseEvent, 1)
	done := make(chan error, 1)
	go func() {
		done <- subscriber.Subscribe(ctx, func(event *PurchaseEvent) {
			received <- event
		})
	}()

	// 等订阅建立
	require.Eventually(t, func() bool {
		n, err := client.PubSubNumSub(ctx, ChannelPurchaseStatus).Result()
		return err == nil && n[ChannelPurchaseStatus] > 0
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, publisher.Publish(ctx, &PurchaseEvent{
		Type:       EventEntitlementExpiring,
		UserID:     "u1",
		PurchaseID: "p1",
		Status:     "pending",
		EndDate:    "2025-07-01T00:00:00Z",
	}))

	select {
	case event := <-received:
		assert.Equal(t, EventEntitlementExpiring, event.Type)
		assert.Equal(t, "u1", event.UserID)
		assert.Equal(t, "2025-07-01T00:00:00Z", event.EndDate)
		assert.Empty(t, event.Message)
	case <-ctx.Done():
		t.Fatal("Timeout waiting for event")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

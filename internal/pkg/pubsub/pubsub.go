package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelPurchaseStatus = "purchase_status"
)

// 事件类型
const (
	EventPurchaseStatus      = "purchase_status"
	EventEntitlementExpiring = "entitlement_expiring"
)

// PurchaseEvent 购买状态变化或权益即将到期
type PurchaseEvent struct {
	Type         string `json:"type"`
	UserID       string `json:"user_id"`
	PurchaseID   string `json:"purchase_id"`
	PurchaseType string `json:"purchase_type,omitempty"`
	CompanyID    string `json:"company_id,omitempty"`
	Status       string `json:"status"`
	ReportURL    string `json:"report_url,omitempty"`
	EndDate      string `json:"end_date,omitempty"`
	Message      string `json:"message,omitempty"`
}

// 状态对应的消息
var StatusMessages = map[string]string{
	"pending":      "Order received",
	"under_review": "Report is being prepared",
	"delivered":    "Report delivered",
	"failed":       "Report generation failed",
	"completed":    "Activated",
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish 发布事件，未指定类型时视为状态变化
func (p *Publisher) Publish(ctx context.Context, event *PurchaseEvent) error {
	if event.Type == "" {
		event.Type = EventPurchaseStatus
	}
	if event.Message == "" && event.Type == EventPurchaseStatus {
		event.Message = StatusMessages[event.Status]
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal purchase event: %w", err)
	}

	return p.client.Publish(ctx, ChannelPurchaseStatus, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅购买事件，直到 ctx 结束
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*PurchaseEvent)) error {
	pubsub := s.client.Subscribe(ctx, ChannelPurchaseStatus)
	defer pubsub.Close()

	// 等待订阅确认，避免之后的发布丢失
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event PurchaseEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue // 忽略解析错误
			}

			handler(&event)
		}
	}
}

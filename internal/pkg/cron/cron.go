package cron

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/qs3c/khip_server/internal/model"
	"github.com/qs3c/khip_server/internal/pkg/pubsub"
)

const noticeKeyPrefix = "notice:expiring:"

type PurchaseLister interface {
	GetAll() []*model.Purchase
}

type EventPublisher interface {
	Publish(ctx context.Context, event *pubsub.PurchaseEvent) error
}

// Service 定时检查即将到期的订阅和试用
type Service struct {
	purchases PurchaseLister
	publisher EventPublisher
	rdb       *redis.Client
	window    time.Duration
	interval  time.Duration
	logger    *zap.Logger
	now       func() time.Time
	stopChan  chan struct{}
}

func NewService(
	purchases PurchaseLister,
	publisher EventPublisher,
	rdb *redis.Client,
	noticeHours int,
	logger *zap.Logger,
) *Service {
	if noticeHours <= 0 {
		noticeHours = 24
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		purchases: purchases,
		publisher: publisher,
		rdb:       rdb,
		window:    time.Duration(noticeHours) * time.Hour,
		interval:  time.Hour,
		logger:    logger,
		now:       time.Now,
		stopChan:  make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runExpiryNotice()
	s.logger.Info("cron service started", zap.Duration("notice_window", s.window))
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	s.logger.Info("cron service stopped")
}

// runExpiryNotice 每小时执行一次
func (s *Service) runExpiryNotice() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if _, err := s.RunNow(ctx); err != nil {
				s.logger.Error("expiry notice failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// RunNow 立即检查一次，返回本次发出的通知数
func (s *Service) RunNow(ctx context.Context) (int, error) {
	now := s.now()
	sent := 0

	for _, p := range s.purchases.GetAll() {
		end := expiringEnd(p)
		if end == nil || !end.After(now) || end.Sub(now) > s.window {
			continue
		}

		// 每个购买记录只通知一次，key 保留到到期之后
		ttl := end.Sub(now) + time.Hour
		ok, err := s.rdb.SetNX(ctx, noticeKeyPrefix+p.ID, now.Unix(), ttl).Result()
		if err != nil {
			return sent, err
		}
		if !ok {
			continue
		}

		event := &pubsub.PurchaseEvent{
			Type:         pubsub.EventEntitlementExpiring,
			UserID:       p.UserID,
			PurchaseID:   p.ID,
			PurchaseType: string(p.Type),
			CompanyID:    p.CompanyID,
			Status:       string(p.Status),
			EndDate:      end.UTC().Format(time.RFC3339),
			Message:      expiringMessage(p.Type),
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("publish expiry notice failed", zap.String("purchase_id", p.ID), zap.Error(err))
			// 释放去重 key，下次检查重试
			if err := s.rdb.Del(ctx, noticeKeyPrefix+p.ID).Err(); err != nil {
				s.logger.Warn("failed to release notice key", zap.String("purchase_id", p.ID), zap.Error(err))
			}
			continue
		}
		sent++
	}

	if sent > 0 {
		s.logger.Info("expiry notices sent", zap.Int("count", sent))
	}
	return sent, nil
}

// expiringEnd 仍然有效的订阅或试用的到期时间
func expiringEnd(p *model.Purchase) *time.Time {
	switch p.Type {
	case model.PurchaseTypeSnapshotPlan:
		if p.Status.GrantsAccess() {
			return p.SubscriptionEndDate
		}
	case model.PurchaseTypeTrial:
		if p.Status == model.PurchaseStatusCompleted {
			return p.TrialEndDate
		}
	}
	return nil
}

func expiringMessage(t model.PurchaseType) string {
	if t == model.PurchaseTypeTrial {
		return "Your free trial ends soon"
	}
	return "Your snapshot plan ends soon"
}

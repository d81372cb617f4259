package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/khip_server/config"
	"github.com/qs3c/khip_server/internal/model"
	"github.com/qs3c/khip_server/internal/pkg/pubsub"
	"github.com/qs3c/khip_server/internal/pkg/queue"
)

var (
	ErrTrialAlreadyUsed   = errors.New("free trial already used")
	ErrAlreadySubscribed  = errors.New("snapshot plan already active")
	ErrPurchaseNotFound   = errors.New("purchase not found")
	ErrInvalidStatus      = errors.New("invalid purchase status")
	ErrPurchaseNotOpen    = errors.New("purchase is not awaiting a report")
	ErrReportURLRequired  = errors.New("report url is required")
	ErrQueueUnavailable   = errors.New("report queue not configured")
	ErrStorageUnavailable = errors.New("report storage not configured")
)

const (
	SnapshotPlanCompanyID   = "snapshot-plan"
	SnapshotPlanCompanyName = "Snapshot Plan - Monthly Subscription"
	TrialCompanyID          = "trial-access"
	TrialCompanyName        = "7-Day Free Trial - Unlimited Snapshots"
)

// PurchaseStore 订单服务对购买记录的读写
type PurchaseStore interface {
	PurchaseReader
	Add(ctx context.Context, in model.NewPurchase) (*model.Purchase, error)
	UpdateStatus(ctx context.Context, id string, status model.PurchaseStatus, reportURL string) (*model.Purchase, error)
	GetByID(id string) (*model.Purchase, bool)
	GetAll() []*model.Purchase
	GetPending() []*model.Purchase
}

type EventPublisher interface {
	Publish(ctx context.Context, event *pubsub.PurchaseEvent) error
}

type JobQueue interface {
	Push(ctx context.Context, job *queue.ReportJob) error
}

type ReportUploader interface {
	UploadReport(purchaseID, filename string, data []byte) (string, error)
}

type OrderService struct {
	store       PurchaseStore
	entitlement *EntitlementService
	publisher   EventPublisher
	jobs        JobQueue
	uploader    ReportUploader
	pricing     config.PricingConfig
	logger      *zap.Logger
}

// NewOrderService publisher、jobs、uploader 可以为 nil
func NewOrderService(
	store PurchaseStore,
	entitlement *EntitlementService,
	publisher EventPublisher,
	jobs JobQueue,
	uploader ReportUploader,
	pricing config.PricingConfig,
	logger *zap.Logger,
) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		store:       store,
		entitlement: entitlement,
		publisher:   publisher,
		jobs:        jobs,
		uploader:    uploader,
		pricing:     pricing,
		logger:      logger,
	}
}

// OrderSingleReport 购买单个公司报告
func (s *OrderService) OrderSingleReport(ctx context.Context, userID, companyID, companyName string) (*model.Purchase, error) {
	return s.create(ctx, model.NewPurchase{
		UserID:      userID,
		Type:        model.PurchaseTypeSingleReport,
		CompanyID:   companyID,
		CompanyName: companyName,
		Status:      model.PurchaseStatusPending,
		Amount:      s.pricing.SingleReport,
	})
}

// SubscribeSnapshotPlan 订阅快照计划，已有有效订阅时拒绝
func (s *OrderService) SubscribeSnapshotPlan(ctx context.Context, userID string) (*model.Purchase, error) {
	if s.entitlement.HasSnapshotPlan(userID) {
		return nil, ErrAlreadySubscribed
	}

	return s.create(ctx, model.NewPurchase{
		UserID:      userID,
		Type:        model.PurchaseTypeSnapshotPlan,
		CompanyID:   SnapshotPlanCompanyID,
		CompanyName: SnapshotPlanCompanyName,
		Status:      model.PurchaseStatusPending,
		Amount:      s.pricing.SnapshotPlan,
	})
}

// RequestCustomReport 申请定制报告
func (s *OrderService) RequestCustomReport(ctx context.Context, userID, companyID, companyName string) (*model.Purchase, error) {
	return s.create(ctx, model.NewPurchase{
		UserID:      userID,
		Type:        model.PurchaseTypeCustomReport,
		CompanyID:   companyID,
		CompanyName: companyName,
		Status:      model.PurchaseStatusPending,
		Amount:      s.pricing.CustomReport,
	})
}

// StartTrial 开通免费试用，每个用户只能一次
func (s *OrderService) StartTrial(ctx context.Context, userID string) (*model.Purchase, error) {
	if s.entitlement.HasUsedTrial(userID) {
		return nil, ErrTrialAlreadyUsed
	}

	return s.create(ctx, model.NewPurchase{
		UserID:      userID,
		Type:        model.PurchaseTypeTrial,
		CompanyID:   TrialCompanyID,
		CompanyName: TrialCompanyName,
		Status:      model.PurchaseStatusCompleted,
		Amount:      0,
	})
}

func (s *OrderService) create(ctx context.Context, in model.NewPurchase) (*model.Purchase, error) {
	p, err := s.store.Add(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("save purchase: %w", err)
	}

	s.publish(ctx, p)
	return p, nil
}

// ListByUser 用户自己的购买记录
func (s *OrderService) ListByUser(userID string) []*model.Purchase {
	return s.store.GetByUser(userID)
}

// GetForUser 只能读取自己的购买记录
func (s *OrderService) GetForUser(userID, purchaseID string) (*model.Purchase, error) {
	p, ok := s.store.GetByID(purchaseID)
	if !ok || p.UserID != userID {
		return nil, ErrPurchaseNotFound
	}
	return p, nil
}

func (s *OrderService) ListAll() []*model.Purchase {
	return s.store.GetAll()
}

func (s *OrderService) ListPending() []*model.Purchase {
	return s.store.GetPending()
}

// UpdateStatus 管理员修改状态
func (s *OrderService) UpdateStatus(ctx context.Context, id string, status model.PurchaseStatus, reportURL string) (*model.Purchase, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}

	p, err := s.store.UpdateStatus(ctx, id, status, reportURL)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPurchaseNotFound
	}

	s.logger.Info("purchase status updated",
		zap.String("purchase_id", p.ID),
		zap.String("user_id", p.UserID),
		zap.String("status", string(p.Status)),
	)
	s.publish(ctx, p)
	return p, nil
}

// RequestGeneration 把报告生成任务放入队列
func (s *OrderService) RequestGeneration(ctx context.Context, id, requestedBy string) error {
	if s.jobs == nil {
		return ErrQueueUnavailable
	}

	p, ok := s.store.GetByID(id)
	if !ok {
		return ErrPurchaseNotFound
	}
	if !p.Status.IsOpen() {
		return ErrPurchaseNotOpen
	}

	err := s.jobs.Push(ctx, &queue.ReportJob{
		PurchaseID:  p.ID,
		UserID:      p.UserID,
		CompanyID:   p.CompanyID,
		CompanyName: p.CompanyName,
		Type:        string(p.Type),
		RequestedBy: requestedBy,
		EnqueuedAt:  time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("enqueue report job: %w", err)
	}

	s.logger.Info("report generation queued", zap.String("purchase_id", p.ID), zap.String("requested_by", requestedBy))
	return nil
}

// Deliver 标记报告已交付
func (s *OrderService) Deliver(ctx context.Context, id, reportURL string) (*model.Purchase, error) {
	if reportURL == "" {
		return nil, ErrReportURLRequired
	}
	return s.UpdateStatus(ctx, id, model.PurchaseStatusDelivered, reportURL)
}

// DeliverUpload 上传报告文件后交付
func (s *OrderService) DeliverUpload(ctx context.Context, id, filename string, data []byte) (*model.Purchase, error) {
	if s.uploader == nil {
		return nil, ErrStorageUnavailable
	}
	if _, ok := s.store.GetByID(id); !ok {
		return nil, ErrPurchaseNotFound
	}

	url, err := s.uploader.UploadReport(id, filename, data)
	if err != nil {
		return nil, err
	}

	return s.Deliver(ctx, id, url)
}

// publish 通知失败不影响订单本身
func (s *OrderService) publish(ctx context.Context, p *model.Purchase) {
	if s.publisher == nil {
		return
	}

	event := &pubsub.PurchaseEvent{
		Type:         pubsub.EventPurchaseStatus,
		UserID:       p.UserID,
		PurchaseID:   p.ID,
		PurchaseType: string(p.Type),
		CompanyID:    p.CompanyID,
		Status:       string(p.Status),
		ReportURL:    p.ReportURL,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish purchase event failed", zap.String("purchase_id", p.ID), zap.Error(err))
	}
}

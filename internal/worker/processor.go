package worker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/qs3c/khip_server/internal/model"
	"github.com/qs3c/khip_server/internal/pkg/queue"
	"github.com/qs3c/khip_server/internal/service"
)

// ErrJobPurchaseMissing 任务对应的购买记录不存在或不属于该用户
var ErrJobPurchaseMissing = errors.New("purchase for report job not found")

// PurchaseClaimer 处理报告任务需要的订单操作，由 *service.OrderService 实现
type PurchaseClaimer interface {
	GetForUser(userID, purchaseID string) (*model.Purchase, error)
	UpdateStatus(ctx context.Context, id string, status model.PurchaseStatus, reportURL string) (*model.Purchase, error)
}

// Processor 认领报告生成任务：把仍在等待的购买标记为 under_review，
// 报告文件由运营上传后再交付
type Processor struct {
	orders PurchaseClaimer
	logger *zap.Logger
}

func NewProcessor(orders PurchaseClaimer, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{orders: orders, logger: logger}
}

// Process 处理单个任务。重复投递的任务不会重复修改状态
func (p *Processor) Process(ctx context.Context, job *queue.ReportJob) error {
	logger := p.logger.With(
		zap.String("purchase_id", job.PurchaseID),
		zap.String("user_id", job.UserID),
	)

	purchase, err := p.orders.GetForUser(job.UserID, job.PurchaseID)
	if err != nil {
		if errors.Is(err, service.ErrPurchaseNotFound) {
			return fmt.Errorf("%w: %s", ErrJobPurchaseMissing, job.PurchaseID)
		}
		return err
	}

	switch purchase.Status {
	case model.PurchaseStatusUnderReview:
		logger.Debug("report job already claimed")
		return nil
	case model.PurchaseStatusPending:
	default:
		logger.Info("skip report job for closed purchase", zap.String("status", string(purchase.Status)))
		return nil
	}

	if _, err := p.orders.UpdateStatus(ctx, purchase.ID, model.PurchaseStatusUnderReview, ""); err != nil {
		return fmt.Errorf("claim purchase %s: %w", purchase.ID, err)
	}

	logger.Info("report job claimed",
		zap.String("company_id", job.CompanyID),
		zap.String("type", job.Type),
		zap.String("requested_by", job.RequestedBy),
	)
	return nil
}

package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/khip_server/internal/pkg/queue"
)

const defaultPopTimeout = 5 * time.Second

// JobSource 报告任务来源，由 *queue.Queue 实现
type JobSource interface {
	Pop(ctx context.Context, timeout time.Duration) (*queue.ReportJob, error)
}

// JobHandler 处理单个任务
type JobHandler interface {
	Process(ctx context.Context, job *queue.ReportJob) error
}

// Pool 固定数量的 worker 从队列取任务
type Pool struct {
	source     JobSource
	handler    JobHandler
	workers    int
	popTimeout time.Duration
	logger     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPool(source JobSource, handler JobHandler, workers int, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		source:     source,
		handler:    handler,
		workers:    workers,
		popTimeout: defaultPopTimeout,
		logger:     logger,
	}
}

// Start 启动 worker，重复调用无效
func (p *Pool) Start(ctx context.Context) {
	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	p.logger.Info("report workers started", zap.Int("workers", p.workers))
}

// Stop 取消并等待所有 worker 退出
func (p *Pool) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.wg.Wait()
	p.cancel = nil
	p.logger.Info("report workers stopped")
}

func (p *Pool) run(ctx context.Context, workerID int) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.source.Pop(ctx, p.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("failed to pop report job", zap.Int("worker", workerID), zap.Error(err))
			// 队列不可用时避免空转
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if job == nil {
			continue // 超时，继续等待
		}

		if err := p.handler.Process(ctx, job); err != nil {
			p.logger.Error("report job failed",
				zap.Int("worker", workerID),
				zap.String("purchase_id", job.PurchaseID),
				zap.Error(err),
			)
		}
	}
}

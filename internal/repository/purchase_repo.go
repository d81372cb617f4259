package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qs3c/khip_server/internal/model"
)

var ErrIllegalTransition = errors.New("illegal purchase status transition")

const maxIDAttempts = 5

// PurchaseRepository 购买记录仓库。
// 内存中保存完整集合，每次变更后整体写回后端；同一进程内由读写锁保证只有一个写者。
type PurchaseRepository struct {
	backend PurchaseBackend
	logger  *zap.Logger
	now     func() time.Time
	newID   func(now time.Time) string
	strict  bool

	mu        sync.RWMutex
	purchases []*model.Purchase
	index     map[string]int
}

type PurchaseRepositoryOption func(*PurchaseRepository)

// WithClock 替换时钟（测试用）
func WithClock(now func() time.Time) PurchaseRepositoryOption {
	return func(r *PurchaseRepository) {
		r.now = now
	}
}

// WithIDGenerator 替换 ID 生成器
func WithIDGenerator(gen func(now time.Time) string) PurchaseRepositoryOption {
	return func(r *PurchaseRepository) {
		r.newID = gen
	}
}

// WithStrictTransitions 开启状态流转校验
func WithStrictTransitions(strict bool) PurchaseRepositoryOption {
	return func(r *PurchaseRepository) {
		r.strict = strict
	}
}

// NewPurchaseRepository 创建仓库并立即从后端加载。
// 数据损坏时记录日志并从空集合开始；其它加载错误直接返回，避免空集合覆盖后端已有数据。
func NewPurchaseRepository(ctx context.Context, backend PurchaseBackend, logger *zap.Logger, opts ...PurchaseRepositoryOption) (*PurchaseRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &PurchaseRepository{
		backend: backend,
		logger:  logger,
		now:     time.Now,
		newID:   generatePurchaseID,
		index:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.load(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func generatePurchaseID(now time.Time) string {
	return fmt.Sprintf("purchase_%d_%s", now.UnixMilli(), uuid.NewString())
}

func (r *PurchaseRepository) load(ctx context.Context) error {
	purchases, err := r.backend.Load(ctx)
	switch {
	case errors.Is(err, ErrCorruptState):
		r.logger.Error("persisted purchases are corrupt, starting empty", zap.Error(err))
		purchases = nil
	case err != nil:
		r.logger.Error("failed to load purchases", zap.Error(err))
		return fmt.Errorf("failed to load purchases: %w", err)
	}

	r.purchases = make([]*model.Purchase, 0, len(purchases))
	for _, p := range purchases {
		if _, dup := r.index[p.ID]; !dup {
			r.index[p.ID] = len(r.purchases)
		}
		r.purchases = append(r.purchases, p)
	}
	r.logger.Info("purchases loaded", zap.Int("count", len(r.purchases)))
	return nil
}

// persist 调用方需持有写锁
func (r *PurchaseRepository) persist(ctx context.Context) error {
	if err := r.backend.Save(ctx, r.purchases); err != nil {
		r.logger.Error("failed to save purchases", zap.Error(err))
		return fmt.Errorf("failed to persist purchases: %w", err)
	}
	return nil
}

// Add 新增购买记录。
// 分配 ID 和购买时间；快照订阅设置 30 天订阅到期日，试用设置 7 天试用到期日。
// 只有持久化失败会返回 error，此时记录仍保留在内存中。
func (r *PurchaseRepository) Add(ctx context.Context, in model.NewPurchase) (*model.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()

	status := in.Status
	if status == "" {
		status = model.PurchaseStatusPending
	}

	p := &model.Purchase{
		ID:           r.uniqueID(now),
		UserID:       in.UserID,
		Type:         in.Type,
		CompanyID:    in.CompanyID,
		CompanyName:  in.CompanyName,
		Status:       status,
		PurchaseDate: now,
		ReportURL:    in.ReportURL,
		Amount:       in.Amount,
	}

	switch in.Type {
	case model.PurchaseTypeSnapshotPlan:
		end := now.AddDate(0, 0, model.SnapshotPlanDays)
		p.SubscriptionEndDate = &end
	case model.PurchaseTypeTrial:
		end := now.AddDate(0, 0, model.TrialDays)
		p.TrialEndDate = &end
	}

	r.index[p.ID] = len(r.purchases)
	r.purchases = append(r.purchases, p)

	r.logger.Info("purchase added",
		zap.String("purchase_id", p.ID),
		zap.String("user_id", p.UserID),
		zap.String("type", string(p.Type)),
		zap.String("status", string(p.Status)),
	)

	if err := r.persist(ctx); err != nil {
		return p.Clone(), err
	}
	return p.Clone(), nil
}

func (r *PurchaseRepository) uniqueID(now time.Time) string {
	var id string
	for i := 0; i < maxIDAttempts; i++ {
		id = r.newID(now)
		if _, exists := r.index[id]; id != "" && !exists {
			return id
		}
	}
	// 生成器持续冲突时追加序号
	for n := len(r.purchases); ; n++ {
		candidate := fmt.Sprintf("%s_%d", id, n)
		if _, exists := r.index[candidate]; !exists {
			return candidate
		}
	}
}

// UpdateStatus 更新状态。
// ID 不存在时静默返回 nil, nil，不写后端；reportURL 为空时保留原值；
// 仅当新状态为 delivered 时记录交付时间。
func (r *PurchaseRepository) UpdateStatus(ctx context.Context, id string, status model.PurchaseStatus, reportURL string) (*model.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[id]
	if !ok {
		r.logger.Debug("update status on unknown purchase ignored", zap.String("purchase_id", id))
		return nil, nil
	}
	p := r.purchases[i]

	if r.strict && !p.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, p.Status, status)
	}

	prev := p.Status
	p.Status = status
	if reportURL != "" {
		p.ReportURL = reportURL
	}
	if status == model.PurchaseStatusDelivered {
		now := r.now().UTC()
		p.DeliveryDate = &now
	}

	r.logger.Info("purchase status updated",
		zap.String("purchase_id", p.ID),
		zap.String("from", string(prev)),
		zap.String("to", string(status)),
	)

	if err := r.persist(ctx); err != nil {
		return p.Clone(), err
	}
	return p.Clone(), nil
}

// GetByID 按 ID 查询
func (r *PurchaseRepository) GetByID(id string) (*model.Purchase, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return r.purchases[i].Clone(), true
}

// GetByUser 获取用户的全部购买记录，按写入顺序
func (r *PurchaseRepository) GetByUser(userID string) []*model.Purchase {
	return r.filter(func(p *model.Purchase) bool {
		return p.UserID == userID
	})
}

// GetAll 获取全部购买记录
func (r *PurchaseRepository) GetAll() []*model.Purchase {
	return r.filter(func(*model.Purchase) bool { return true })
}

// GetPending 获取待处理（pending / under_review）的记录
func (r *PurchaseRepository) GetPending() []*model.Purchase {
	return r.filter(func(p *model.Purchase) bool {
		return p.Status.IsOpen()
	})
}

func (r *PurchaseRepository) filter(keep func(*model.Purchase) bool) []*model.Purchase {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Purchase, 0)
	for _, p := range r.purchases {
		if keep(p) {
			result = append(result, p.Clone())
		}
	}
	return result
}

package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/khip_server/internal/model"
	"github.com/qs3c/khip_server/internal/model/dto"
)

// PurchaseReader 权益判定只需要按用户读取购买记录
type PurchaseReader interface {
	GetByUser(userID string) []*model.Purchase
}

// AccessType 打开公司报告页所依据的权益
type AccessType string

const (
	AccessNone         AccessType = ""
	AccessSnapshotPlan AccessType = "snapshot-plan"
	AccessTrial        AccessType = "trial"
	AccessSingleReport AccessType = "single-report"
	AccessCustomReport AccessType = "custom-report"
)

type EntitlementService struct {
	purchases PurchaseReader
	logger    *zap.Logger
	now       func() time.Time
}

func NewEntitlementService(purchases PurchaseReader, logger *zap.Logger, now func() time.Time) *EntitlementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &EntitlementService{
		purchases: purchases,
		logger:    logger,
		now:       now,
	}
}

func (s *EntitlementService) exists(userID string, match func(p *model.Purchase) bool) bool {
	return s.first(userID, match) != nil
}

func (s *EntitlementService) first(userID string, match func(p *model.Purchase) bool) *model.Purchase {
	for _, p := range s.purchases.GetByUser(userID) {
		if match(p) {
			return p
		}
	}
	return nil
}

func (s *EntitlementService) snapshotPlanValid(p *model.Purchase, now time.Time) bool {
	return p.Type == model.PurchaseTypeSnapshotPlan &&
		p.Status.GrantsAccess() &&
		(p.SubscriptionEndDate == nil || p.SubscriptionEndDate.After(now))
}

func (s *EntitlementService) trialActive(p *model.Purchase, now time.Time) bool {
	return p.Type == model.PurchaseTypeTrial &&
		p.Status == model.PurchaseStatusCompleted &&
		p.TrialEndDate != nil &&
		p.TrialEndDate.After(now)
}

// HasAccessToCompany 是否可以查看某公司的报告
func (s *EntitlementService) HasAccessToCompany(userID, companyID string) bool {
	universal := s.exists(userID, func(p *model.Purchase) bool {
		return p.Type.GrantsUniversalAccess() && p.Status.GrantsAccess()
	})
	trial := s.HasActiveTrial(userID)
	specific := s.exists(userID, func(p *model.Purchase) bool {
		return p.CompanyID == companyID && p.Status.GrantsAccess()
	})

	hasAccess := universal || trial || specific
	s.logger.Debug("check company access",
		zap.String("user_id", userID),
		zap.String("company_id", companyID),
		zap.Bool("universal", universal),
		zap.Bool("trial", trial),
		zap.Bool("specific", specific),
		zap.Bool("has_access", hasAccess),
	)
	return hasAccess
}

// HasSnapshotPlan 快照订阅是否有效；没有到期日的旧记录视为不过期
func (s *EntitlementService) HasSnapshotPlan(userID string) bool {
	now := s.now()
	return s.exists(userID, func(p *model.Purchase) bool {
		return s.snapshotPlanValid(p, now)
	})
}

// HasActiveTrial 试用必须是 completed 状态且未过期
func (s *EntitlementService) HasActiveTrial(userID string) bool {
	now := s.now()
	return s.exists(userID, func(p *model.Purchase) bool {
		return s.trialActive(p, now)
	})
}

// HasUsedTrial 只要有过试用记录就算用过
func (s *EntitlementService) HasUsedTrial(userID string) bool {
	return s.exists(userID, func(p *model.Purchase) bool {
		return p.Type == model.PurchaseTypeTrial
	})
}

func (s *EntitlementService) HasCustomReportAccess(userID string) bool {
	return s.exists(userID, func(p *model.Purchase) bool {
		return p.Type == model.PurchaseTypeCustomReport && p.Status.GrantsAccess()
	})
}

// GetSubscriptionEndDate 第一条有效快照订阅的到期日
func (s *EntitlementService) GetSubscriptionEndDate(userID string) *time.Time {
	now := s.now()
	p := s.first(userID, func(p *model.Purchase) bool {
		return s.snapshotPlanValid(p, now)
	})
	if p == nil {
		return nil
	}
	return p.SubscriptionEndDate
}

// GetTrialEndDate 第一条有效试用的到期日
func (s *EntitlementService) GetTrialEndDate(userID string) *time.Time {
	now := s.now()
	p := s.first(userID, func(p *model.Purchase) bool {
		return s.trialActive(p, now)
	})
	if p == nil {
		return nil
	}
	return p.TrialEndDate
}

// AccessType 按 快照订阅 > 试用 > 单份/定制报告 的顺序判定
func (s *EntitlementService) AccessType(userID, companyID string) AccessType {
	if s.HasSnapshotPlan(userID) {
		return AccessSnapshotPlan
	}
	if s.HasActiveTrial(userID) {
		return AccessTrial
	}
	if !s.HasAccessToCompany(userID, companyID) {
		return AccessNone
	}

	specific := s.exists(userID, func(p *model.Purchase) bool {
		return p.CompanyID == companyID && p.Status.GrantsAccess()
	})
	if !specific && s.HasCustomReportAccess(userID) {
		return AccessCustomReport
	}
	return AccessSingleReport
}

// Summary 汇总用户权益
func (s *EntitlementService) Summary(userID string) dto.EntitlementSummary {
	summary := dto.EntitlementSummary{
		HasSnapshotPlan:       s.HasSnapshotPlan(userID),
		HasActiveTrial:        s.HasActiveTrial(userID),
		HasUsedTrial:          s.HasUsedTrial(userID),
		HasCustomReportAccess: s.HasCustomReportAccess(userID),
		SubscriptionEndDate:   s.GetSubscriptionEndDate(userID),
		TrialEndDate:          s.GetTrialEndDate(userID),
		CompanyIDs:            []string{},
	}

	seen := make(map[string]bool)
	for _, p := range s.purchases.GetByUser(userID) {
		if p.Type != model.PurchaseTypeSingleReport || !p.Status.GrantsAccess() || seen[p.CompanyID] {
			continue
		}
		seen[p.CompanyID] = true
		summary.CompanyIDs = append(summary.CompanyIDs, p.CompanyID)
	}

	return summary
}

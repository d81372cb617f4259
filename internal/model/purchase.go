package model

import (
	"time"
)

type PurchaseType string

const (
	PurchaseTypeSingleReport PurchaseType = "single-report"
	PurchaseTypeSnapshotPlan PurchaseType = "snapshot-plan"
	PurchaseTypeCustomReport PurchaseType = "custom-report"
	PurchaseTypeTrial        PurchaseType = "trial"
)

func (t PurchaseType) IsValid() bool {
	switch t {
	case PurchaseTypeSingleReport, PurchaseTypeSnapshotPlan, PurchaseTypeCustomReport, PurchaseTypeTrial:
		return true
	}
	return false
}

// GrantsUniversalAccess 快照订阅和定制报告可以查看所有公司
func (t PurchaseType) GrantsUniversalAccess() bool {
	return t == PurchaseTypeSnapshotPlan || t == PurchaseTypeCustomReport
}

type PurchaseStatus string

const (
	PurchaseStatusPending     PurchaseStatus = "pending"
	PurchaseStatusUnderReview PurchaseStatus = "under_review"
	PurchaseStatusDelivered   PurchaseStatus = "delivered"
	PurchaseStatusFailed      PurchaseStatus = "failed"
	PurchaseStatusCompleted   PurchaseStatus = "completed"
)

func (s PurchaseStatus) IsValid() bool {
	switch s {
	case PurchaseStatusPending, PurchaseStatusUnderReview, PurchaseStatusDelivered,
		PurchaseStatusFailed, PurchaseStatusCompleted:
		return true
	}
	return false
}

// GrantsAccess pending 和 delivered 都视为有效
func (s PurchaseStatus) GrantsAccess() bool {
	return s == PurchaseStatusPending || s == PurchaseStatusDelivered
}

// IsOpen 仍在等待运营处理
func (s PurchaseStatus) IsOpen() bool {
	return s == PurchaseStatusPending || s == PurchaseStatusUnderReview
}

func (s PurchaseStatus) IsTerminal() bool {
	return s == PurchaseStatusDelivered || s == PurchaseStatusFailed || s == PurchaseStatusCompleted
}

// 严格模式下允许的状态流转
var statusTransitions = map[PurchaseStatus][]PurchaseStatus{
	PurchaseStatusPending: {
		PurchaseStatusUnderReview,
		PurchaseStatusDelivered,
		PurchaseStatusFailed,
		PurchaseStatusCompleted,
	},
	PurchaseStatusUnderReview: {
		PurchaseStatusDelivered,
		PurchaseStatusFailed,
	},
}

// CanTransitionTo 按流转表判断；终态没有出边
func (s PurchaseStatus) CanTransitionTo(next PurchaseStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

const (
	SnapshotPlanDays = 30
	TrialDays        = 7
)

// Purchase 购买记录，JSON 字段名与前端本地存储保持一致
type Purchase struct {
	ID                  string         `json:"id"`
	UserID              string         `json:"userId"`
	Type                PurchaseType   `json:"type"`
	CompanyID           string         `json:"companyId"`
	CompanyName         string         `json:"companyName"`
	Status              PurchaseStatus `json:"status"`
	PurchaseDate        time.Time      `json:"purchaseDate"`
	DeliveryDate        *time.Time     `json:"deliveryDate,omitempty"`
	ReportURL           string         `json:"reportUrl,omitempty"`
	Amount              float64        `json:"amount"`
	SubscriptionEndDate *time.Time     `json:"subscriptionEndDate,omitempty"`
	TrialEndDate        *time.Time     `json:"trialEndDate,omitempty"`
}

// NewPurchase 创建购买时由调用方提供的字段（不含 ID 和购买时间）
type NewPurchase struct {
	UserID      string
	Type        PurchaseType
	CompanyID   string
	CompanyName string
	Status      PurchaseStatus
	Amount      float64
	ReportURL   string
}

// Clone 深拷贝，避免调用方改动仓库内部状态
func (p *Purchase) Clone() *Purchase {
	if p == nil {
		return nil
	}
	c := *p
	c.DeliveryDate = cloneTime(p.DeliveryDate)
	c.SubscriptionEndDate = cloneTime(p.SubscriptionEndDate)
	c.TrialEndDate = cloneTime(p.TrialEndDate)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

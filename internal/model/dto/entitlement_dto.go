package dto

import "time"

// EntitlementSummary 用户当前的全部权益
type EntitlementSummary struct {
	HasSnapshotPlan       bool       `json:"hasSnapshotPlan"`
	HasActiveTrial        bool       `json:"hasActiveTrial"`
	HasUsedTrial          bool       `json:"hasUsedTrial"`
	HasCustomReportAccess bool       `json:"hasCustomReportAccess"`
	SubscriptionEndDate   *time.Time `json:"subscriptionEndDate,omitempty"`
	TrialEndDate          *time.Time `json:"trialEndDate,omitempty"`
	CompanyIDs            []string   `json:"companyIds"`
}

// CompanyAccessResponse 单个公司的访问判定
type CompanyAccessResponse struct {
	CompanyID  string `json:"companyId"`
	HasAccess  bool   `json:"hasAccess"`
	AccessType string `json:"accessType,omitempty"`
}

// CompanyReportResponse 公司报告页数据
type CompanyReportResponse struct {
	CompanyID  string   `json:"companyId"`
	AccessType string   `json:"accessType"`
	ReportURLs []string `json:"reportUrls"`
}

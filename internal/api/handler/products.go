package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/khip_server/config"
	"github.com/qs3c/khip_server/internal/model"
	"github.com/qs3c/khip_server/internal/pkg/response"
)

type ProductsHandler struct {
	pricing config.PricingConfig
}

func NewProductsHandler(pricing config.PricingConfig) *ProductsHandler {
	return &ProductsHandler{pricing: pricing}
}

// List 可购买的产品和价格
// GET /api/v1/products
func (h *ProductsHandler) List(c *gin.Context) {
	products := []map[string]interface{}{
		{
			"type":        model.PurchaseTypeSingleReport,
			"name":        "Single Company Report",
			"price":       h.pricing.SingleReport,
			"description": "One-time in-depth report for a single company",
		},
		{
			"type":          model.PurchaseTypeSnapshotPlan,
			"name":          "Snapshot Plan",
			"price":         h.pricing.SnapshotPlan,
			"billingPeriod": "monthly",
			"durationDays":  model.SnapshotPlanDays,
			"description":   "Unlimited company snapshots",
		},
		{
			"type":        model.PurchaseTypeCustomReport,
			"name":        "Custom Report",
			"price":       h.pricing.CustomReport,
			"description": "Tailored research on request",
		},
		{
			"type":         model.PurchaseTypeTrial,
			"name":         "Free Trial",
			"price":        0,
			"durationDays": model.TrialDays,
			"description":  "Unlimited snapshots, once per account",
		},
	}

	response.Success(c, gin.H{
		"products": products,
	})
}

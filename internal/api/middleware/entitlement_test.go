package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/khip_server/internal/model"
	"github.com/qs3c/khip_server/internal/pkg/response"
	"github.com/qs3c/khip_server/internal/repository"
	"github.com/qs3c/khip_server/internal/service"
	"github.com/qs3c/khip_server/internal/testutil"
)

func setupEntitlement(t *testing.T) (*service.EntitlementService, *repository.PurchaseRepository) {
	t.Helper()

	repo, err := repository.NewPurchaseRepository(context.Background(), repository.NewMemoryBackend(nil), nil)
	require.NoError(t, err)
	return service.NewEntitlementService(repo, nil, nil), repo
}

func companyRouter(entitlement *service.EntitlementService, userID string) *gin.Engine {
	router := gin.New()
	router.Use(mockAuth(userID, ""))
	router.GET("/reports/companies/:companyId", CompanyAccess(entitlement, "companyId"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	return router
}

func TestCompanyAccess_SingleReport(t *testing.T) {
	entitlement, repo := setupEntitlement(t)

	_, err := repo.Add(context.Background(),
		testutil.NewPurchase("u1", model.PurchaseTypeSingleReport, "005930", model.PurchaseStatusPending))
	require.NoError(t, err)

	router := companyRouter(entitlement, "u1")

	req := httptest.NewRequest("GET", "/reports/companies/005930", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")

	req = httptest.NewRequest("GET", "/reports/companies/000660", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, response.CodeEntitlementRequired, parseResponse(t, w).Code)
}

func TestCompanyAccess_SnapshotPlanCoversAll(t *testing.T) {
	tests := []struct {
		name    string
		status  model.PurchaseStatus
		allowed bool
	}{
		{"pending plan", model.PurchaseStatusPending, true},
		{"delivered plan", model.PurchaseStatusDelivered, true},
		{"completed plan", model.PurchaseStatusCompleted, false},
		{"failed plan", model.PurchaseStatusFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entitlement, repo := setupEntitlement(t)

			_, err := repo.Add(context.Background(),
				testutil.NewPurchase("u1", model.PurchaseTypeSnapshotPlan, "snapshot-plan", tt.status))
			require.NoError(t, err)

			req := httptest.NewRequest("GET", "/reports/companies/000660", nil)
			w := httptest.NewRecorder()
			companyRouter(entitlement, "u1").ServeHTTP(w, req)

			if tt.allowed {
				assert.Contains(t, w.Body.String(), "ok")
			} else {
				assert.Equal(t, response.CodeEntitlementRequired, parseResponse(t, w).Code)
			}
		})
	}
}

func TestCompanyAccess_Unauthenticated(t *testing.T) {
	entitlement, _ := setupEntitlement(t)

	req := httptest.NewRequest("GET", "/reports/companies/005930", nil)
	w := httptest.NewRecorder()
	companyRouter(entitlement, "").ServeHTTP(w, req)
	assert.Equal(t, response.CodeAuthFailed, parseResponse(t, w).Code)
}

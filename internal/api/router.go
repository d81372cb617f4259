package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qs3c/khip_server/config"
	"github.com/qs3c/khip_server/internal/api/handler"
	"github.com/qs3c/khip_server/internal/api/middleware"
)

type Router struct {
	authHandler        *handler.AuthHandler
	userHandler        *handler.UserHandler
	purchaseHandler    *handler.PurchaseHandler
	entitlementHandler *handler.EntitlementHandler
	reportHandler      *handler.ReportHandler
	adminHandler       *handler.AdminHandler
	newsHandler        *handler.NewsHandler
	productsHandler    *handler.ProductsHandler
	websocketHandler   *handler.WebSocketHandler
	companyAccess      middleware.CompanyAccessChecker
	revoked            middleware.RevocationChecker
	logger             *zap.Logger
	cfg                *config.Config
}

type Handlers struct {
	Auth        *handler.AuthHandler
	User        *handler.UserHandler
	Purchase    *handler.PurchaseHandler
	Entitlement *handler.EntitlementHandler
	Report      *handler.ReportHandler
	Admin       *handler.AdminHandler
	News        *handler.NewsHandler
	Products    *handler.ProductsHandler
	WebSocket   *handler.WebSocketHandler
}

func NewRouter(
	handlers Handlers,
	companyAccess middleware.CompanyAccessChecker,
	revoked middleware.RevocationChecker,
	logger *zap.Logger,
	cfg *config.Config,
) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		authHandler:        handlers.Auth,
		userHandler:        handlers.User,
		purchaseHandler:    handlers.Purchase,
		entitlementHandler: handlers.Entitlement,
		reportHandler:      handlers.Report,
		adminHandler:       handlers.Admin,
		newsHandler:        handlers.News,
		productsHandler:    handlers.Products,
		websocketHandler:   handlers.WebSocket,
		companyAccess:      companyAccess,
		revoked:            revoked,
		logger:             logger,
		cfg:                cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(r.logger))
	engine.Use(middleware.CORS(r.cfg.CORS))

	authRequired := middleware.Auth(r.cfg.JWT.Secret, r.revoked)

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口
		api.GET("/news", r.newsHandler.Search)
		api.GET("/products", r.productsHandler.List)

		auth := api.Group("/auth")
		{
			auth.POST("/signup", r.authHandler.Signup)
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/google", r.authHandler.Google)
			auth.POST("/password-reset", r.authHandler.RequestPasswordReset)
			auth.POST("/password-reset/confirm", r.authHandler.ConfirmPasswordReset)
			auth.GET("/me", authRequired, r.authHandler.Me)
			auth.POST("/logout", authRequired, r.authHandler.Logout)
		}

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(authRequired)
		{
			authenticated.GET("/user/profile", r.userHandler.GetProfile)
			authenticated.PUT("/user/profile", r.userHandler.UpdateProfile)

			purchases := authenticated.Group("/purchases")
			{
				purchases.GET("", r.purchaseHandler.List)
				purchases.POST("/single-report", r.purchaseHandler.OrderSingleReport)
				purchases.POST("/snapshot-plan", r.purchaseHandler.SubscribeSnapshotPlan)
				purchases.POST("/custom-report", r.purchaseHandler.RequestCustomReport)
				purchases.POST("/trial", r.purchaseHandler.StartTrial)
			}

			entitlements := authenticated.Group("/entitlements")
			{
				entitlements.GET("", r.entitlementHandler.Summary)
				entitlements.GET("/companies/:companyId", r.entitlementHandler.CompanyAccess)
			}

			reports := authenticated.Group("/reports")
			{
				reports.GET("/companies/:companyId",
					middleware.CompanyAccess(r.companyAccess, "companyId"),
					r.reportHandler.Company)
				reports.GET("/:purchaseId", r.reportHandler.Get)
			}
		}

		// 管理员
		admin := api.Group("/admin")
		admin.Use(authRequired, middleware.AdminOnly(r.cfg.Admin))
		{
			admin.GET("/purchases", r.adminHandler.List)
			admin.GET("/purchases/pending", r.adminHandler.ListPending)
			admin.PATCH("/purchases/:id/status", r.adminHandler.UpdateStatus)
			admin.POST("/purchases/:id/generate", r.adminHandler.Generate)
			admin.POST("/purchases/:id/report", r.adminHandler.UploadReport)
		}
	}

	return engine
}

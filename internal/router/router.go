package router

import (
	"time"

	"tillledger/internal/config"
	"tillledger/internal/handler"
	"tillledger/internal/infra"
	"tillledger/internal/middleware"
	"tillledger/internal/model"
	"tillledger/internal/repository"
	"tillledger/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis.
// The report enqueuer comes from the composition root (main) so that the
// router stays decoupled from the worker pool.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, enqueuer service.ReportEnqueuer) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Infrastructure ───────────────────────────────────────────────────────
	locker := infra.NewRedisLocker(rdb, time.Duration(cfg.LockTTLSeconds)*time.Second)

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	reportRepo := repository.NewReportRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, cfg)
	sessionSvc := service.NewSessionService(sessionRepo, auditRepo, locker)
	movementSvc := service.NewMovementService(sessionRepo, auditRepo, locker)
	reconSvc := service.NewReconciliationService(sessionRepo, auditRepo, locker, enqueuer)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usersH := handler.NewUsersHandler(authSvc)
	sessionsH := handler.NewSessionHandler(sessionSvc, reconSvc)
	movementsH := handler.NewMovementHandler(movementSvc)
	reportsH := handler.NewReportHandler(reportRepo, auditRepo)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	anyOperator := middleware.RequireRole(model.RoleCashier, model.RoleSupervisor, model.RoleAdmin)
	supervisorUp := middleware.RequireRole(model.RoleSupervisor, model.RoleAdmin)

	v1 := r.Group("/v1", jwtMW)
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("/open", anyOperator, sessionsH.Open)
			sessions.GET("/active", anyOperator, sessionsH.GetActive)
			sessions.GET("", supervisorUp, sessionsH.List)
			sessions.GET("/:id", anyOperator, sessionsH.Get)
			sessions.GET("/:id/summary", anyOperator, sessionsH.Summary)
			sessions.POST("/:id/movements", anyOperator, movementsH.Record)
			sessions.POST("/:id/close", anyOperator, sessionsH.Close)
			sessions.GET("/:id/report", supervisorUp, reportsH.Download)
			sessions.GET("/:id/audit", supervisorUp, reportsH.AuditTrail)
		}

		// System-originated cash transactions (order/payment flow)
		v1.POST("/events/cash-transactions", anyOperator, movementsH.RecordTransaction)

		users := v1.Group("/users", middleware.RequireRole(model.RoleAdmin))
		{
			users.POST("", usersH.Create)
			users.GET("", usersH.List)
			users.PUT("/:id", usersH.Update)
			users.DELETE("/:id", usersH.Deactivate)
			users.PATCH("/:id/reactivate", usersH.Reactivate)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}

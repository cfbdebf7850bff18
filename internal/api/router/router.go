package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dom-study/backend/config"
	"dom-study/backend/internal/api/handler"
	"dom-study/backend/internal/api/middleware"
	"dom-study/backend/internal/model"
	"dom-study/backend/pkg/jwt"
	"dom-study/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 可为 nil：黑名单检查与限流降级放行
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	bodyLimit := middleware.BodyLimit(cfg.Server.BodyLimitBytes)
	authLimit := middleware.RateLimit(rdb, cfg.Server.AuthRateLimit, cfg.Server.AuthRateWindow)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth", bodyLimit, authLimit)
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb, logger))
		{
			authorized.POST("/auth/logout", bodyLimit, h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 学习计划
			plans := authorized.Group("/plans")
			{
				plans.GET("", h.Plan.ListPlans)
				plans.POST("", bodyLimit, h.Plan.CreatePlan)
				plans.GET("/:id", h.Plan.GetPlan)
				plans.PUT("/:id", bodyLimit, h.Plan.UpdatePlan)
				plans.DELETE("/:id", h.Plan.FinishPlan)
				plans.POST("/:id/pause", h.Plan.PausePlan)
				plans.POST("/:id/resume", h.Plan.ResumePlan)

				// 排期
				plans.POST("/:id/redistribute", h.Scheduling.Redistribute)
				plans.GET("/:id/capacity", h.Scheduling.GetCapacity)
				plans.GET("/:id/fixed-check", h.Scheduling.CheckFixedGoals)

				// 目标
				plans.GET("/:id/goals", h.Goal.ListGoals)
				plans.POST("/:id/goals", bodyLimit, h.Goal.CreateGoal)

				// 导入 / 导出
				plans.POST("/:id/import", middleware.BodyLimit(cfg.Server.ImportBodyLimitBytes), h.Import.ImportGoals)
				plans.GET("/:id/export.xlsx", h.Export.ExportSchedule)
				plans.GET("/:id/calendar.ics", h.Export.ExportCalendar)
			}

			// 目标操作
			goals := authorized.Group("/goals", bodyLimit)
			{
				goals.GET("/:id", h.Goal.GetGoal)
				goals.DELETE("/:id", h.Goal.DeleteGoal)
				goals.POST("/:id/start", h.Goal.StartGoal)
				goals.POST("/:id/complete", h.Goal.CompleteGoal)
				goals.POST("/:id/needs-more-time", h.Goal.NeedsMoreTime)
				goals.POST("/:id/omit", h.Goal.OmitGoal)
				goals.POST("/:id/restore", h.Goal.RestoreGoal)
				goals.PUT("/:id/move", h.Goal.MoveGoal)
			}

			// 学科字典（写操作仅管理员）
			taxonomy := authorized.Group("/taxonomy", bodyLimit)
			{
				taxonomy.GET("/subjects", h.Taxonomy.ListSubjects)
				taxonomy.GET("/subjects/:id/topics", h.Taxonomy.ListTopics)
				taxonomy.POST("/subjects", middleware.RoleAuth(model.RoleAdmin), h.Taxonomy.CreateSubject)
				taxonomy.POST("/topics", middleware.RoleAuth(model.RoleAdmin), h.Taxonomy.CreateTopic)
			}

			// 通知
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.ListNotifications)
				notifications.GET("/unread-count", h.Notification.UnreadCount)
				notifications.PUT("/read-all", h.Notification.MarkAllRead)
				notifications.PUT("/:id/read", h.Notification.MarkRead)
			}
		}
	}

	return r
}

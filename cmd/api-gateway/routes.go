package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/handler"
	internalmiddleware "github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/middleware"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/models"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/service"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/config"
)

type routeDeps struct {
	tokens        *service.TokenService
	workflow      *handler.WorkflowHandler
	locks         *handler.LockHandler
	notifications *handler.NotificationHandler
	ops           *handler.MetricsHandler
}

func registerRoutes(r *gin.Engine, cfg *config.Config, deps routeDeps) {
	r.GET("/health", deps.ops.Health)
	r.GET("/ready", deps.ops.Ready)
	r.GET("/metrics", deps.ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(deps.tokens))

	projects := api.Group("/projects")
	projects.POST("", internalmiddleware.RequireRoles(models.RoleCoordinator), deps.workflow.Create)
	projects.GET("/:id", deps.workflow.Get)
	projects.GET("/:id/transitions", deps.workflow.AllowedTransitions)
	projects.POST("/:id/transitions", deps.workflow.Transition)
	projects.GET("/:id/history", deps.workflow.History)
	projects.PUT("/:id/document", internalmiddleware.RequireRoles(models.RoleStudent), deps.workflow.AttachDocument)

	projects.GET("/:id/lock", deps.locks.Status)
	projects.POST("/:id/lock", internalmiddleware.RequireRoles(models.RoleStudent), deps.locks.Acquire)
	projects.DELETE("/:id/lock", internalmiddleware.RequireRoles(models.RoleStudent, models.RoleCoordinator), deps.locks.Release)
	projects.POST("/:id/lock/requests", internalmiddleware.RequireRoles(models.RoleStudent), deps.locks.RequestUnlock)
	projects.POST("/:id/lock/requests/deny", internalmiddleware.RequireRoles(models.RoleStudent), deps.locks.DenyUnlock)
	projects.POST("/:id/lock/override", internalmiddleware.RequireRoles(models.RoleCoordinator), deps.locks.Override)

	notifications := api.Group("/notifications")
	notifications.GET("", deps.notifications.List)
	notifications.POST("/:id/read", deps.notifications.MarkRead)
}

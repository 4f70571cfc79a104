package handler

import (
	"github.com/bitfantasy/lineplan/internal/middleware"
	"github.com/gin-gonic/gin"
)

// 排产角色
const (
	RolePlanner = "planner"
)

// RegisterRoutes 注册 /api/v1 下的业务路由；api 需已挂载 JWT 中间件
func RegisterRoutes(api *gin.RouterGroup, h *Handlers) {
	// SSE
	api.GET("/sse/events", h.SSE.Stream)

	lines := api.Group("/lines")
	{
		lines.GET("/availability", h.Line.Availability)
		lines.GET("/stats", h.Line.Stats)
	}

	factory := api.Group("/factory")
	{
		factory.GET("/settings", h.Factory.GetSettings)
		factory.PUT("/settings", middleware.RequireRole(middleware.RoleAdmin), h.Factory.UpdateSettings)
	}

	orders := api.Group("/orders")
	{
		orders.GET("/:id/plans", h.Planning.ListPlans)
		orders.POST("/:id/plan-sessions", middleware.RequireRole(RolePlanner), h.Planning.StartSession)
	}

	sessions := api.Group("/plan-sessions")
	{
		sessions.GET("/:sid", h.Planning.GetSession)
		sessions.GET("/:sid/export", h.Planning.Export)

		edit := sessions.Group("", middleware.RequireRole(RolePlanner))
		edit.PUT("/:sid/quantity", h.Planning.SetQuantity)
		edit.PUT("/:sid/manpower", h.Planning.SetManpower)
		edit.POST("/:sid/undo", h.Planning.Undo)
		edit.POST("/:sid/save", h.Planning.Save)
		edit.DELETE("/:sid", h.Planning.Cancel)
	}
}

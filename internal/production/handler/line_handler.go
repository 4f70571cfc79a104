package handler

import (
	"github.com/bitfantasy/lineplan/internal/production/service"
	"github.com/gin-gonic/gin"
)

// LineHandler 产线查询接口
type LineHandler struct {
	svc *service.PlanningService
}

func NewLineHandler(svc *service.PlanningService) *LineHandler {
	return &LineHandler{svc: svc}
}

// Availability GET /lines/availability?line_ids=a,b&exclude_order=
func (h *LineHandler) Availability(c *gin.Context) {
	items, err := h.svc.LineAvailability(c.Request.Context(), splitIDs(c.Query("line_ids")), c.Query("exclude_order"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

// Stats GET /lines/stats?style_id=&line_ids=
func (h *LineHandler) Stats(c *gin.Context) {
	items, err := h.svc.LineStats(c.Request.Context(), splitIDs(c.Query("line_ids")), c.Query("style_id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

// FactoryHandler 工厂参数接口
type FactoryHandler struct {
	svc *service.PlanningService
}

func NewFactoryHandler(svc *service.PlanningService) *FactoryHandler {
	return &FactoryHandler{svc: svc}
}

// GetSettings GET /factory/settings
func (h *FactoryHandler) GetSettings(c *gin.Context) {
	fs, err := h.svc.Settings(c.Request.Context())
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, fs)
}

// UpdateSettings PUT /factory/settings
func (h *FactoryHandler) UpdateSettings(c *gin.Context) {
	var req map[string]string
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if len(req) == 0 {
		BadRequest(c, "没有需要更新的参数")
		return
	}
	fs, err := h.svc.UpdateSettings(c.Request.Context(), req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, fs)
}

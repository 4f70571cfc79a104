package handler

import (
	"strconv"

	"github.com/bitfantasy/lineplan/internal/production/service"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PlanningHandler 排产会话接口
type PlanningHandler struct {
	svc *service.PlanningService
}

func NewPlanningHandler(svc *service.PlanningService) *PlanningHandler {
	return &PlanningHandler{svc: svc}
}

// ListPlans GET /orders/:id/plans
func (h *PlanningHandler) ListPlans(c *gin.Context) {
	plans, err := h.svc.ListPlans(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{"items": plans})
}

// StartSession POST /orders/:id/plan-sessions
// mode: manual | assisted | existing
func (h *PlanningHandler) StartSession(c *gin.Context) {
	var req service.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	view, err := h.svc.StartSession(c.Request.Context(), c.Param("id"), GetUserID(c), req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, view)
}

// GetSession GET /plan-sessions/:sid
func (h *PlanningHandler) GetSession(c *gin.Context) {
	view, err := h.svc.GetSession(c.Param("sid"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, view)
}

// SetQuantity PUT /plan-sessions/:sid/quantity
func (h *PlanningHandler) SetQuantity(c *gin.Context) {
	var req service.QuantityEdit
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	view, err := h.svc.SetQuantity(c.Param("sid"), req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, view)
}

// SetManpower PUT /plan-sessions/:sid/manpower
func (h *PlanningHandler) SetManpower(c *gin.Context) {
	var req service.ManpowerEdit
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	view, err := h.svc.SetManpower(c.Param("sid"), req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, view)
}

// Undo POST /plan-sessions/:sid/undo
func (h *PlanningHandler) Undo(c *gin.Context) {
	view, err := h.svc.Undo(c.Param("sid"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, view)
}

// Save POST /plan-sessions/:sid/save
func (h *PlanningHandler) Save(c *gin.Context) {
	result, err := h.svc.Save(c.Request.Context(), c.Param("sid"), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, result)
}

// Cancel DELETE /plan-sessions/:sid
func (h *PlanningHandler) Cancel(c *gin.Context) {
	if err := h.svc.Cancel(c.Param("sid")); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}

// Export GET /plan-sessions/:sid/export?archive=true
func (h *PlanningHandler) Export(c *gin.Context) {
	archive, _ := strconv.ParseBool(c.DefaultQuery("archive", "false"))
	result, err := h.svc.Export(c.Request.Context(), c.Param("sid"), archive)
	if err != nil {
		ServiceError(c, err)
		return
	}

	if result.ObjectKey != "" {
		c.Header("X-Archive-Object", result.ObjectKey)
	}
	c.Header("Content-Disposition", "attachment; filename=\""+result.Filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")
	c.Data(200, xlsxContentType, result.Data)
}

package handler

import (
	"errors"
	"strings"

	"github.com/bitfantasy/lineplan/internal/planning"
	"github.com/bitfantasy/lineplan/internal/production/service"
	"github.com/bitfantasy/lineplan/internal/production/sse"
	"github.com/gin-gonic/gin"
)

// Handlers 处理器集合
type Handlers struct {
	Planning *PlanningHandler
	Line     *LineHandler
	Factory  *FactoryHandler
	SSE      *SSEHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, hub *sse.Hub) *Handlers {
	return &Handlers{
		Planning: NewPlanningHandler(svc.Planning),
		Line:     NewLineHandler(svc.Planning),
		Factory:  NewFactoryHandler(svc.Planning),
		SSE:      NewSSEHandler(hub),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// Unprocessable 输入无法排产
func Unprocessable(c *gin.Context, message string) {
	Error(c, 42200, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// ServiceError 将业务错误映射为响应
func ServiceError(c *gin.Context, err error) {
	switch {
	case planning.IsDegenerate(err):
		Unprocessable(c, err.Error())
	case errors.Is(err, service.ErrSessionNotFound):
		Error(c, 40401, err.Error())
	case errors.Is(err, service.ErrOrderNotFound):
		Error(c, 40402, err.Error())
	case errors.Is(err, service.ErrStyleNotFound):
		Error(c, 40403, err.Error())
	case errors.Is(err, service.ErrLineNotFound):
		Error(c, 40404, err.Error())
	case errors.Is(err, service.ErrInvalidMode),
		errors.Is(err, service.ErrInvalidEdit),
		errors.Is(err, service.ErrInvalidSetting):
		BadRequest(c, err.Error())
	case errors.Is(err, service.ErrNothingToUndo):
		Error(c, 40900, err.Error())
	case errors.Is(err, service.ErrArchiveDisabled):
		Error(c, 50300, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

// splitIDs 解析逗号分隔的ID列表
func splitIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

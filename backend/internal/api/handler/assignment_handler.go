package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"qatrack/backend/internal/dto"
	"qatrack/backend/internal/service"
	"qatrack/backend/pkg/response"
)

// AssignmentHandler QA 频率与任务维护 Handler
type AssignmentHandler struct {
	svc service.AssignmentService
}

// NewAssignmentHandler 创建 AssignmentHandler
func NewAssignmentHandler(svc service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{svc: svc}
}

// ListFrequencies 频率列表
// GET /api/v1/frequencies
func (h *AssignmentHandler) ListFrequencies(c *gin.Context) {
	list, err := h.svc.ListFrequencies(c.Request.Context())
	if err != nil {
		handleAssignmentError(c, err)
		return
	}
	response.OK(c, list)
}

// CreateFrequency 新建频率
// POST /api/v1/frequencies
func (h *AssignmentHandler) CreateFrequency(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateFrequencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	freq, err := h.svc.CreateFrequency(c.Request.Context(), &req, callerID)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}
	response.Created(c, freq)
}

// CreateAssignment 在设备上新建 QA 任务
// POST /api/v1/assignments
func (h *AssignmentHandler) CreateAssignment(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	resp, err := h.svc.CreateAssignment(c.Request.Context(), &req, callerID)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}
	response.Created(c, resp)
}

// UpdateAssignment 部分更新 QA 任务
// PUT /api/v1/assignments/:id
func (h *AssignmentHandler) UpdateAssignment(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	resp, err := h.svc.UpdateAssignment(c.Request.Context(), id, &req, callerID)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}
	response.OK(c, resp)
}

// ListInstances 完成记录（按完成日期倒序）
// GET /api/v1/assignments/:id/instances?limit=50
func (h *AssignmentHandler) ListInstances(c *gin.Context) {
	id, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}

	var query dto.InstanceListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.svc.ListInstances(c.Request.Context(), id, query.Limit)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}
	response.OK(c, list)
}

// ── 任务维护错误映射 ──

func handleAssignmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrFrequencyNotFound):
		response.NotFound(c, 22003, err.Error())
	case errors.Is(err, service.ErrFrequencyExists):
		response.Conflict(c, 22004, err.Error())
	case errors.Is(err, service.ErrUnitNotFound):
		response.NotFound(c, 20001, err.Error())
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 10001, err.Error())
	default:
		handleDueDateError(c, err)
	}
}

// [自证通过] internal/api/handler/assignment_handler.go

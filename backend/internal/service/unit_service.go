package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"qatrack/backend/internal/dto"
	"qatrack/backend/internal/model"
	"qatrack/backend/internal/repository"
)

// UnitService 设备信息查询接口
type UnitService interface {
	// GetUnitInfo 返回 unitID → 模态/治疗技术名称
	// unitIDs 为 nil 表示全部设备，非 nil 空切片表示不查询任何设备；被过滤掉的设备不出现在结果中
	GetUnitInfo(ctx context.Context, unitIDs []string, activeOnly, serviceableOnly bool) (map[string]dto.UnitInfoResponse, error)
	List(ctx context.Context, activeOnly bool) ([]model.Unit, error)
	// CreateUnit 新建设备并返回；设备编号全局唯一
	CreateUnit(ctx context.Context, req *dto.CreateUnitRequest, callerID string) (*model.Unit, error)
}

type unitService struct {
	repo     *repository.Repository
	validate *validator.Validate
	logger   *zap.Logger
}

// NewUnitService 创建 UnitService 实例
func NewUnitService(repo *repository.Repository, logger *zap.Logger) UnitService {
	return &unitService{repo: repo, validate: newValidator(), logger: logger}
}

func (s *unitService) GetUnitInfo(ctx context.Context, unitIDs []string, activeOnly, serviceableOnly bool) (map[string]dto.UnitInfoResponse, error) {
	units, err := s.repo.Unit.ListWithTechniques(ctx, repository.UnitFilter{
		IDs:             unitIDs,
		ActiveOnly:      activeOnly,
		ServiceableOnly: serviceableOnly,
	})
	if err != nil {
		s.logger.Error("查询设备信息失败", zap.Error(err))
		return nil, err
	}

	result := make(map[string]dto.UnitInfoResponse, len(units))
	for _, u := range units {
		modalities := make([]string, 0, len(u.Modalities))
		for _, m := range u.Modalities {
			modalities = append(modalities, m.Name)
		}
		techniques := make([]string, 0, len(u.TreatmentTechniques))
		for _, t := range u.TreatmentTechniques {
			techniques = append(techniques, t.Name)
		}
		result[u.UnitID] = dto.UnitInfoResponse{
			Modalities:          sortedUnique(modalities),
			TreatmentTechniques: sortedUnique(techniques),
		}
	}
	return result, nil
}

func (s *unitService) List(ctx context.Context, activeOnly bool) ([]model.Unit, error) {
	units, err := s.repo.Unit.List(ctx, repository.UnitFilter{ActiveOnly: activeOnly})
	if err != nil {
		s.logger.Error("查询设备列表失败", zap.Error(err))
		return nil, err
	}
	return units, nil
}

func (s *unitService) CreateUnit(ctx context.Context, req *dto.CreateUnitRequest, callerID string) (*model.Unit, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	accepted, err := time.Parse(dateLayout, req.DateAcceptance)
	if err != nil {
		return nil, ErrInvalidDate
	}

	existing, err := s.repo.Unit.List(ctx, repository.UnitFilter{})
	if err != nil {
		s.logger.Error("查询设备列表失败", zap.Error(err))
		return nil, err
	}
	for _, u := range existing {
		if u.Number == req.Number {
			return nil, ErrUnitNumberTaken
		}
	}

	unit := &model.Unit{
		Number:         req.Number,
		Name:           strings.TrimSpace(req.Name),
		SerialNumber:   strings.TrimSpace(req.SerialNumber),
		DateAcceptance: accepted,
		Active:         true,
		IsServiceable:  req.IsServiceable == nil || *req.IsServiceable,
	}
	unit.CreatedBy = &callerID
	unit.UpdatedBy = &callerID

	if err := s.repo.Unit.Create(ctx, unit); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUnitNumberTaken
		}
		s.logger.Error("创建设备失败", zap.Int("number", req.Number), zap.Error(err))
		return nil, err
	}

	s.logger.Info("设备已创建", zap.String("unit_id", unit.UnitID), zap.Int("number", unit.Number), zap.String("caller", callerID))
	return unit, nil
}

// sortedUnique 原地排序去重，返回非 nil 切片
func sortedUnique(names []string) []string {
	sort.Strings(names)
	out := names[:0]
	for _, n := range names {
		if len(out) > 0 && out[len(out)-1] == n {
			continue
		}
		out = append(out, n)
	}
	return out
}

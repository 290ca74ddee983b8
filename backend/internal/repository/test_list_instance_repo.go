package repository

import (
	"context"

	"gorm.io/gorm"

	"qatrack/backend/internal/model"
)

// TestListInstanceRepository QA 完成记录数据访问接口
type TestListInstanceRepository interface {
	Create(ctx context.Context, inst *model.TestListInstance) error
	ListByAssignment(ctx context.Context, assignmentID string, limit int) ([]model.TestListInstance, error)
}

type testListInstanceRepo struct {
	db *gorm.DB
}

// NewTestListInstanceRepo 创建 TestListInstanceRepository 实例
func NewTestListInstanceRepo(db *gorm.DB) TestListInstanceRepository {
	return &testListInstanceRepo{db: db}
}

func (r *testListInstanceRepo) Create(ctx context.Context, inst *model.TestListInstance) error {
	return r.db.WithContext(ctx).Create(inst).Error
}

func (r *testListInstanceRepo) ListByAssignment(ctx context.Context, assignmentID string, limit int) ([]model.TestListInstance, error) {
	var list []model.TestListInstance
	db := r.db.WithContext(ctx).
		Where("unit_test_collection_id = ?", assignmentID).
		Order("work_completed DESC, created_at DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	err := db.Find(&list).Error
	return list, err
}

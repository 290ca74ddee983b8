package repository

import (
	"context"

	"gorm.io/gorm"

	"qatrack/backend/internal/model"
)

// FrequencyRepository QA 频率数据访问接口
type FrequencyRepository interface {
	Create(ctx context.Context, freq *model.Frequency) error
	GetByID(ctx context.Context, id string) (*model.Frequency, error)
	GetBySlug(ctx context.Context, slug string) (*model.Frequency, error)
	List(ctx context.Context) ([]model.Frequency, error)
}

type frequencyRepo struct {
	db *gorm.DB
}

// NewFrequencyRepo 创建 FrequencyRepository 实例
func NewFrequencyRepo(db *gorm.DB) FrequencyRepository {
	return &frequencyRepo{db: db}
}

func (r *frequencyRepo) Create(ctx context.Context, freq *model.Frequency) error {
	return r.db.WithContext(ctx).Create(freq).Error
}

func (r *frequencyRepo) GetByID(ctx context.Context, id string) (*model.Frequency, error) {
	var freq model.Frequency
	if err := r.db.WithContext(ctx).Where("frequency_id = ?", id).First(&freq).Error; err != nil {
		return nil, err
	}
	return &freq, nil
}

func (r *frequencyRepo) GetBySlug(ctx context.Context, slug string) (*model.Frequency, error) {
	var freq model.Frequency
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&freq).Error; err != nil {
		return nil, err
	}
	return &freq, nil
}

func (r *frequencyRepo) List(ctx context.Context) ([]model.Frequency, error) {
	var freqs []model.Frequency
	err := r.db.WithContext(ctx).Order("nominal_interval ASC, name ASC").Find(&freqs).Error
	return freqs, err
}

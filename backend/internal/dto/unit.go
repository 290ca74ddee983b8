package dto

// ── 设备模块 DTO ──

// UnitInfoQuery 设备信息查询参数
type UnitInfoQuery struct {
	IDs             []string `form:"id"`
	ActiveOnly      bool     `form:"active_only"`
	ServiceableOnly bool     `form:"serviceable_only"`
}

// UnitInfoResponse 设备的模态与治疗技术名称（均已排序去重）
type UnitInfoResponse struct {
	Modalities          []string `json:"modalities"`
	TreatmentTechniques []string `json:"treatment_techniques"`
}

// PotentialTimeResponse 设备可用小时数
type PotentialTimeResponse struct {
	UnitID   string  `json:"unit_id"`
	DateFrom string  `json:"date_from,omitempty"` // 未指定时为空，表示自验收日起算
	DateTo   string  `json:"date_to"`
	Hours    float64 `json:"hours"`
}

// UnitListRequest 设备列表查询参数
type UnitListRequest struct {
	IncludeInactive bool `form:"include_inactive"`
}

// UnitResponse 设备基本信息
type UnitResponse struct {
	ID             string `json:"id"`
	Number         int    `json:"number"`
	Name           string `json:"name"`
	SerialNumber   string `json:"serial_number,omitempty"`
	DateAcceptance string `json:"date_acceptance"`
	Active         bool   `json:"active"`
	IsServiceable  bool   `json:"is_serviceable"`
}

// CreateUnitRequest 新建设备
type CreateUnitRequest struct {
	Number         int    `json:"number"          binding:"required,gt=0"`
	Name           string `json:"name"            binding:"required,max=256"`
	SerialNumber   string `json:"serial_number"   binding:"max=256"`
	DateAcceptance string `json:"date_acceptance" binding:"required,datetime=2006-01-02"`
	IsServiceable  *bool  `json:"is_serviceable"`
}

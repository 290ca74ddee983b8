package model

import "time"

// Unit 设备表 — 对应 units（直线加速器、CT/MR 等被 QA 的设备）
type Unit struct {
	UnitID         string    `gorm:"type:char(36);primaryKey" json:"unit_id"`
	Number         int       `gorm:"not null;uniqueIndex"                           json:"number"`
	Name           string    `gorm:"type:varchar(256);not null"                     json:"name"`
	SerialNumber   string    `gorm:"type:varchar(256)"                              json:"serial_number,omitempty"`
	DateAcceptance time.Time `gorm:"type:date;not null"                             json:"date_acceptance"` // 可用时间计算的最早日期
	Active         bool      `gorm:"not null;default:true"                          json:"active"`
	IsServiceable  bool      `gorm:"not null;default:true"                          json:"is_serviceable"`
	BaseModel

	// 关联
	Modalities          []Modality           `gorm:"many2many:unit_modalities;joinForeignKey:UnitID;joinReferences:ModalityID"                     json:"modalities,omitempty"`
	TreatmentTechniques []TreatmentTechnique `gorm:"many2many:unit_treatment_techniques;joinForeignKey:UnitID;joinReferences:TreatmentTechniqueID" json:"treatment_techniques,omitempty"`
}

// TableName 指定表名
func (Unit) TableName() string { return "units" }

// Modality 成像/治疗模态 — 对应 modalities
type Modality struct {
	ModalityID string    `gorm:"type:char(36);primaryKey" json:"modality_id"`
	Name       string    `gorm:"type:varchar(100);not null;uniqueIndex"         json:"name"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

func (Modality) TableName() string { return "modalities" }

// TreatmentTechnique 治疗技术 — 对应 treatment_techniques
type TreatmentTechnique struct {
	TreatmentTechniqueID string    `gorm:"type:char(36);primaryKey" json:"treatment_technique_id"`
	Name                 string    `gorm:"type:varchar(100);not null;uniqueIndex"         json:"name"`
	CreatedAt            time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt            time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

func (TreatmentTechnique) TableName() string { return "treatment_techniques" }

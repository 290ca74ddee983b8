package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 主键在应用侧生成，postgres 与 mysql 行为一致

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func (m *Modality) BeforeCreate(*gorm.DB) error { ensureID(&m.ModalityID); return nil }

func (t *TreatmentTechnique) BeforeCreate(*gorm.DB) error {
	ensureID(&t.TreatmentTechniqueID)
	return nil
}

func (u *Unit) BeforeCreate(*gorm.DB) error { ensureID(&u.UnitID); return nil }

func (u *UnitAvailableTime) BeforeCreate(*gorm.DB) error {
	ensureID(&u.UnitAvailableTimeID)
	return nil
}

func (e *UnitAvailableTimeEdit) BeforeCreate(*gorm.DB) error {
	ensureID(&e.UnitAvailableTimeEditID)
	return nil
}

func (f *Frequency) BeforeCreate(*gorm.DB) error { ensureID(&f.FrequencyID); return nil }

func (u *UnitTestCollection) BeforeCreate(*gorm.DB) error {
	ensureID(&u.UnitTestCollectionID)
	return nil
}

func (i *TestListInstance) BeforeCreate(*gorm.DB) error {
	ensureID(&i.TestListInstanceID)
	return nil
}

func (n *Notification) BeforeCreate(*gorm.DB) error { ensureID(&n.NotificationID); return nil }

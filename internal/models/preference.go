package models

import (
	"time"

	"gorm.io/datatypes"
)

// Preference is one user-preference row in the local store. Values are
// opaque JSON; the dashboard decides their shape.
type Preference struct {
	Key       string         `gorm:"primaryKey;size:128" json:"key"`
	Value     datatypes.JSON `gorm:"type:json" json:"value"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (Preference) TableName() string { return "preferences" }

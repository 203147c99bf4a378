package models

import (
	"time"

	"gorm.io/datatypes"
)

// Document is one keyed JSON value in a shared-store collection.
type Document struct {
	Collection string         `gorm:"primaryKey;size:64" json:"collection"`
	DocKey     string         `gorm:"primaryKey;size:191;column:doc_key" json:"key"`
	Seq        int64          `gorm:"index" json:"seq"`
	Value      datatypes.JSON `json:"value"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

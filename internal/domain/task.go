package domain

import (
	"time"

	"gorm.io/gorm"
)

// Task is a single work item under a todo. Due is optional; Important is the
// starred flag that splits a list's view into two groups.
//
// The foreign key column is named title_id for compatibility with the
// existing schema.
type Task struct {
	gorm.Model
	Info      string     `gorm:"not null"`
	Due       *time.Time `gorm:"type:date"`
	TodoID    uint       `gorm:"column:title_id;not null;index"`
	Important bool       `gorm:"not null;default:false"`
}

package domain

import "gorm.io/gorm"

// Todo is a named task list owned by exactly one user. A todo is never
// created without at least one task.
type Todo struct {
	gorm.Model
	Title  string `gorm:"not null"`
	UserID uint   `gorm:"not null;index"`

	Tasks []Task `gorm:"foreignKey:TodoID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

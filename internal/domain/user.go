package domain

import "gorm.io/gorm"

// User is a registered account. Email is the login identity and must be
// unique; the stored credential is a bcrypt hash, never the raw password.
type User struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`

	Todos []Todo `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

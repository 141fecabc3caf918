package models

import "gorm.io/gorm"

// Role determines which operations a user may perform and which bugs they
// can see. It is embedded in the JWT at login, so a role change only takes
// effect once the user logs in again.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleDev   Role = "dev"
	RoleQA    Role = "qa"
	RoleUser  Role = "user"
)

// IsValid reports whether r is one of the four known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleDev, RoleQA, RoleUser:
		return true
	}
	return false
}

type User struct {
	gorm.Model
	Username string `gorm:"unique;not null"`
	Password string `gorm:"not null" json:"-"` // bcrypt hash, never serialized
	Email    string `gorm:"unique;not null"`
	Role     Role   `gorm:"type:varchar(16);not null;default:user"`
}

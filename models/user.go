package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleUser   UserRole = "user"
	RoleEditor UserRole = "editor"
	RoleAdmin  UserRole = "admin"
)

type User struct {
	ID           uint           `json:"id" gorm:"primarykey"`
	Name         string         `json:"name" gorm:"size:255;not null"`
	Email        string         `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Password     string         `json:"-" gorm:"not null"`
	Role         UserRole       `json:"role" gorm:"size:16;default:'user'"`
	Position     string         `json:"position,omitempty" gorm:"size:255"`
	DivisionID   *uint          `json:"division_id" gorm:"index"`
	Division     *OrgUnit       `json:"division,omitempty" gorm:"foreignKey:DivisionID"`
	DepartmentID *uint          `json:"department_id" gorm:"index"`
	Department   *OrgUnit       `json:"department,omitempty" gorm:"foreignKey:DepartmentID"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

func ValidRole(r UserRole) bool {
	switch r {
	case RoleUser, RoleEditor, RoleAdmin:
		return true
	}
	return false
}

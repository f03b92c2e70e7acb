package models

import (
	"time"

	"gorm.io/gorm"
)

type OrgUnitType string

const (
	OrgUnitDivision   OrgUnitType = "division"
	OrgUnitDepartment OrgUnitType = "department"
)

// OrgUnit is a division or a department; both live in one table and are
// told apart by Type. Names are unique per type.
type OrgUnit struct {
	ID          uint           `json:"id" gorm:"primarykey"`
	Name        string         `json:"name" gorm:"size:255;not null;uniqueIndex:idx_org_unit_type_name"`
	Type        OrgUnitType    `json:"type" gorm:"size:16;not null;uniqueIndex:idx_org_unit_type_name"`
	Description string         `json:"description" gorm:"size:500"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

func ValidOrgUnitType(t OrgUnitType) bool {
	return t == OrgUnitDivision || t == OrgUnitDepartment
}

func OrgUnitNames(units []OrgUnit) []string {
	names := make([]string, 0, len(units))
	for _, u := range units {
		names = append(names, u.Name)
	}
	return names
}

func OrgUnitIDs(units []OrgUnit) []uint {
	ids := make([]uint, 0, len(units))
	for _, u := range units {
		ids = append(ids, u.ID)
	}
	return ids
}

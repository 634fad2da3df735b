package models

import "time"

// Institution represents an admitting institution.
type Institution struct {
	InstitutionID   int        `gorm:"primaryKey;column:institution_id" json:"institution_id"`
	InstitutionName string     `gorm:"column:institution_name" json:"institution_name"`
	City            *string    `gorm:"column:city" json:"city,omitempty"`
	Website         *string    `gorm:"column:website" json:"website,omitempty"`
	Status          string     `gorm:"column:status" json:"status"` // active|inactive
	CreateAt        *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt        *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt        *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// Course represents a course offered by an institution.
type Course struct {
	CourseID      int        `gorm:"primaryKey;column:course_id" json:"course_id"`
	InstitutionID int        `gorm:"column:institution_id" json:"institution_id"`
	CourseName    string     `gorm:"column:course_name" json:"course_name"`
	Capacity      int        `gorm:"column:capacity" json:"capacity"`
	Status        string     `gorm:"column:status" json:"status"` // active|inactive
	CreateAt      *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt      *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt      *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	// Relations
	Institution Institution `gorm:"foreignKey:InstitutionID" json:"institution,omitempty"`
}

// TableName overrides
func (Institution) TableName() string {
	return "institutions"
}

func (Course) TableName() string {
	return "courses"
}

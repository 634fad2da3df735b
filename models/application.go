package models

import "time"

// Application statuses. An application is created as pending, moves to
// admitted/rejected/waiting by institution review, and is resolved to
// confirmed/declined/withdrawn by the student side.
const (
	StatusPending   = "pending"
	StatusWaiting   = "waiting"
	StatusAdmitted  = "admitted"
	StatusConfirmed = "confirmed"
	StatusRejected  = "rejected"
	StatusDeclined  = "declined"
	StatusWithdrawn = "withdrawn"
)

// MaxApplicationsPerInstitution caps how many applications one student may
// hold at a single institution; enforced at creation.
const MaxApplicationsPerInstitution = 2

// InFlightStatuses are the statuses an offer resolution still has to settle.
var InFlightStatuses = []string{StatusAdmitted, StatusPending, StatusWaiting}

// allowedTransitions is the full application state machine. Terminal
// statuses have no outgoing edges.
var allowedTransitions = map[string][]string{
	StatusPending:  {StatusAdmitted, StatusRejected, StatusWaiting, StatusWithdrawn},
	StatusWaiting:  {StatusAdmitted, StatusWithdrawn},
	StatusAdmitted: {StatusConfirmed, StatusDeclined},
}

// IsTerminalStatus reports whether no further transition is defined for status.
func IsTerminalStatus(status string) bool {
	switch status {
	case StatusConfirmed, StatusRejected, StatusDeclined, StatusWithdrawn:
		return true
	}
	return false
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StatusTimestampColumn returns the write-once timestamp column stamped when
// an application enters status, or "" when the status has none.
func StatusTimestampColumn(status string) string {
	switch status {
	case StatusAdmitted:
		return "admitted_at"
	case StatusConfirmed:
		return "confirmed_at"
	case StatusDeclined:
		return "declined_at"
	case StatusWithdrawn:
		return "withdrawn_at"
	}
	return ""
}

// Application represents one student's candidacy for one course.
//
// CourseName, InstitutionName, StudentName and StudentEmail are copied from
// the source records at creation time for read efficiency and are not kept
// in sync with later edits.
type Application struct {
	ApplicationID     int        `gorm:"primaryKey;column:application_id" json:"application_id"`
	ApplicationNumber string     `gorm:"column:application_number;unique" json:"application_number"`
	StudentID         int        `gorm:"column:student_id" json:"student_id"`
	InstitutionID     int        `gorm:"column:institution_id" json:"institution_id"`
	CourseID          int        `gorm:"column:course_id" json:"course_id"`
	Status            string     `gorm:"column:status" json:"status"`
	CourseName        string     `gorm:"column:course_name" json:"course_name"`
	InstitutionName   string     `gorm:"column:institution_name" json:"institution_name"`
	StudentName       string     `gorm:"column:student_name" json:"student_name"`
	StudentEmail      string     `gorm:"column:student_email" json:"student_email"`
	AppliedAt         time.Time  `gorm:"column:applied_at" json:"applied_at"`
	AdmittedAt        *time.Time `gorm:"column:admitted_at" json:"admitted_at,omitempty"`
	ConfirmedAt       *time.Time `gorm:"column:confirmed_at" json:"confirmed_at,omitempty"`
	DeclinedAt        *time.Time `gorm:"column:declined_at" json:"declined_at,omitempty"`
	WithdrawnAt       *time.Time `gorm:"column:withdrawn_at" json:"withdrawn_at,omitempty"`
	CreateAt          *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt          *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt          *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	// Relations
	Student     User        `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Institution Institution `gorm:"foreignKey:InstitutionID" json:"institution,omitempty"`
	Course      Course      `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

// IsInFlight reports whether the application still awaits resolution.
func (a *Application) IsInFlight() bool {
	return !IsTerminalStatus(a.Status)
}

// TableName overrides
func (Application) TableName() string {
	return "applications"
}

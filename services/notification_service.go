package services

import (
	"time"

	"admissions-platform-api/config"
	"admissions-platform-api/models"

	"gorm.io/gorm"
)

// NotificationSink appends notification records for a user. Notifications are
// consumed fire-and-forget: callers log failures and never let them fail the
// operation that produced them.
type NotificationSink interface {
	Notify(n *models.Notification) error
}

// DBNotificationSink persists notifications to the notifications table.
type DBNotificationSink struct {
	db *gorm.DB
}

func NewDBNotificationSink(db *gorm.DB) *DBNotificationSink {
	if db == nil {
		db = config.DB
	}
	return &DBNotificationSink{db: db}
}

func (s *DBNotificationSink) Notify(n *models.Notification) error {
	if n.CreateAt.IsZero() {
		n.CreateAt = time.Now()
	}
	return s.db.Create(n).Error
}

// EmailMessage is a best-effort email copy of a notification.
type EmailMessage struct {
	To      []string
	Subject string
	Body    string
}

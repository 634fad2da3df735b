package controllers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"admissions-platform-api/config"
	"admissions-platform-api/models"
	"admissions-platform-api/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Institution review moves a pending application to admitted, waiting or
// rejected. The student-side resolution engine takes over from admitted.

type reviewDecisionRequest struct {
	Reason string `json:"reason"`
}

// AdmitApplication handles POST /review/applications/:id/admit
func AdmitApplication(c *gin.Context) {
	decideApplication(c, models.StatusAdmitted)
}

// WaitlistApplication handles POST /review/applications/:id/waitlist
func WaitlistApplication(c *gin.Context) {
	decideApplication(c, models.StatusWaiting)
}

// RejectApplication handles POST /review/applications/:id/reject
func RejectApplication(c *gin.Context) {
	decideApplication(c, models.StatusRejected)
}

func decideApplication(c *gin.Context, newStatus string) {
	applicationID, err := strconv.Atoi(c.Param("id"))
	if err != nil || applicationID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application ID"})
		return
	}

	var req reviewDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}
	reason := strings.TrimSpace(req.Reason)

	userID, _ := c.Get("userID")
	roleID, _ := c.Get("roleID")

	var application models.Application
	query := config.DB.Where("application_id = ? AND delete_at IS NULL", applicationID)
	if roleID.(int) == models.RoleInstitution {
		institutionID, exists := c.Get("institutionID")
		if !exists {
			c.JSON(http.StatusForbidden, gin.H{"error": "No institution assigned"})
			return
		}
		query = query.Where("institution_id = ?", institutionID)
	}
	if err := query.First(&application).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
		return
	}

	if !models.CanTransition(application.Status, newStatus) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Application already processed"})
		return
	}

	now := time.Now()
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":    newStatus,
			"update_at": now,
		}
		if col := models.StatusTimestampColumn(newStatus); col != "" {
			updates[col] = now
		}

		res := tx.Model(&models.Application{}).
			Where("application_id = ? AND status = ?", application.ApplicationID, application.Status).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		history := models.ApplicationStatusHistory{
			ApplicationID: application.ApplicationID,
			OldStatus:     application.Status,
			NewStatus:     newStatus,
			ChangedBy:     userID.(int),
		}
		if reason != "" {
			history.Reason = &reason
		}
		return tx.Create(&history).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update application"})
		return
	}

	oldStatus := application.Status
	application.Status = newStatus
	if newStatus == models.StatusAdmitted {
		application.AdmittedAt = &now
	}

	notifyReviewDecision(&application, newStatus, reason)
	log.Printf("application %d reviewed: %s -> %s by user %v", application.ApplicationID, oldStatus, newStatus, userID)

	c.JSON(http.StatusOK, gin.H{
		"message":     "Application updated",
		"application": application,
	})
}

func notifyReviewDecision(application *models.Application, newStatus, reason string) {
	var title, message, typ string
	switch newStatus {
	case models.StatusAdmitted:
		title = "You received an offer"
		message = "You have been admitted to " + application.CourseName + " at " + application.InstitutionName + ". Accept the offer to confirm your place."
		typ = "success"
	case models.StatusWaiting:
		title = "You are on the waitlist"
		message = "Your application to " + application.CourseName + " at " + application.InstitutionName + " has been waitlisted."
		typ = "info"
	case models.StatusRejected:
		title = "Application decision"
		message = "Your application to " + application.CourseName + " at " + application.InstitutionName + " was not successful."
		typ = "warning"
	default:
		title = "Application updated"
		message = "Your application to " + application.CourseName + " has been updated."
		typ = "info"
	}

	if reason != "" {
		message = message + "\nNote: " + reason
	}

	appID := uint(application.ApplicationID)
	link := "/applications/" + strconv.Itoa(application.ApplicationID)
	notification := models.Notification{
		UserID:               uint(application.StudentID),
		Title:                title,
		Message:              message,
		Type:                 typ,
		Link:                 &link,
		RelatedApplicationID: &appID,
		CreateAt:             time.Now(),
	}

	go func() {
		sink := services.NewDBNotificationSink(config.DB)
		if err := sink.Notify(&notification); err != nil {
			log.Printf("notifyReviewDecision: failed to create notification: %v", err)
		}
		if application.StudentEmail != "" {
			if err := config.SendMail([]string{application.StudentEmail}, title, "<p>"+message+"</p>"); err != nil {
				log.Printf("notifyReviewDecision: failed to send email: %v", err)
			}
		}
	}()
}

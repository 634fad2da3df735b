package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"admissions-platform-api/config"
	"admissions-platform-api/models"
	"admissions-platform-api/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetApplications returns list of applications visible to the caller
func GetApplications(c *gin.Context) {
	userID, _ := c.Get("userID")
	roleID, _ := c.Get("roleID")

	var applications []models.Application
	query := config.DB.Where("applications.delete_at IS NULL")

	// Students see their own applications, institution staff their
	// institution's, admins everything.
	switch roleID.(int) {
	case models.RoleStudent:
		query = query.Where("student_id = ?", userID)
	case models.RoleInstitution:
		institutionID, exists := c.Get("institutionID")
		if !exists {
			c.JSON(http.StatusForbidden, gin.H{"error": "No institution assigned"})
			return
		}
		query = query.Where("institution_id = ?", institutionID)
	}

	// Apply filters from query params
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	if courseID := c.Query("course_id"); courseID != "" {
		query = query.Where("course_id = ?", courseID)
	}

	if err := query.Order("applied_at DESC").Find(&applications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch applications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"applications": applications,
		"total":        len(applications),
	})
}

// GetApplication returns single application by ID
func GetApplication(c *gin.Context) {
	id := c.Param("id")
	userID, _ := c.Get("userID")
	roleID, _ := c.Get("roleID")

	var application models.Application
	query := config.DB.Where("application_id = ? AND applications.delete_at IS NULL", id)

	switch roleID.(int) {
	case models.RoleStudent:
		query = query.Where("student_id = ?", userID)
	case models.RoleInstitution:
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

	c.JSON(http.StatusOK, gin.H{
		"application": application,
	})
}

// CreateApplication submits a new application in pending status
func CreateApplication(c *gin.Context) {
	type CreateApplicationRequest struct {
		CourseID int `json:"course_id" binding:"required"`
	}

	var req CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := c.Get("userID")

	// Check the course exists and is open
	var course models.Course
	if err := config.DB.Preload("Institution").
		Where("course_id = ? AND status = 'active' AND delete_at IS NULL", req.CourseID).
		First(&course).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course"})
		return
	}

	var student models.User
	if err := config.DB.Where("user_id = ? AND delete_at IS NULL", userID).First(&student).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load student"})
		return
	}

	// At most MaxApplicationsPerInstitution applications per institution
	var count int64
	if err := config.DB.Model(&models.Application{}).
		Where("student_id = ? AND institution_id = ? AND delete_at IS NULL", userID, course.InstitutionID).
		Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check existing applications"})
		return
	}
	if count >= models.MaxApplicationsPerInstitution {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Limit of %d applications per institution reached", models.MaxApplicationsPerInstitution),
		})
		return
	}

	// Display fields are copied here once and intentionally not kept in
	// sync with later edits to the source records.
	now := time.Now()
	application := models.Application{
		ApplicationNumber: generateApplicationNumber(),
		StudentID:         userID.(int),
		InstitutionID:     course.InstitutionID,
		CourseID:          course.CourseID,
		Status:            models.StatusPending,
		CourseName:        course.CourseName,
		InstitutionName:   course.Institution.InstitutionName,
		StudentName:       student.FullName(),
		StudentEmail:      student.Email,
		AppliedAt:         now,
		CreateAt:          &now,
		UpdateAt:          &now,
	}

	if err := config.DB.Create(&application).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create application"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Application submitted successfully",
		"application": application,
	})
}

// AcceptOffer confirms an admitted application and resolves every other
// in-flight application of the student
func AcceptOffer(c *gin.Context) {
	applicationID, err := strconv.Atoi(c.Param("id"))
	if err != nil || applicationID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application ID"})
		return
	}

	userID, _ := c.Get("userID")

	engine := services.NewAdmissionService(config.DB, nil)
	result, err := engine.AcceptOffer(c.Request.Context(), userID.(int), applicationID)
	if err != nil {
		var partial *services.PartialResolutionError
		switch {
		case errors.Is(err, services.ErrApplicationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
		case errors.Is(err, services.ErrNotApplicationOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "Application belongs to another student"})
		case errors.Is(err, services.ErrInvalidApplicationState):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Only admitted offers can be accepted"})
		case errors.Is(err, services.ErrResolutionBusy):
			c.JSON(http.StatusConflict, gin.H{"error": "Another resolution is in progress, try again"})
		case errors.As(err, &partial):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Offer resolution failed and was rolled back"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to accept offer"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Offer accepted successfully",
		"result":  result,
	})
}

// WithdrawApplication lets a student abandon a pending or waiting application
func WithdrawApplication(c *gin.Context) {
	id := c.Param("id")
	userID, _ := c.Get("userID")

	var application models.Application
	if err := config.DB.Where("application_id = ? AND student_id = ? AND delete_at IS NULL", id, userID).
		First(&application).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
		return
	}

	if !models.CanTransition(application.Status, models.StatusWithdrawn) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Application can no longer be withdrawn"})
		return
	}

	now := time.Now()
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Application{}).
			Where("application_id = ? AND status = ?", application.ApplicationID, application.Status).
			Updates(map[string]interface{}{
				"status":       models.StatusWithdrawn,
				"withdrawn_at": now,
				"update_at":    now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		history := models.ApplicationStatusHistory{
			ApplicationID: application.ApplicationID,
			OldStatus:     application.Status,
			NewStatus:     models.StatusWithdrawn,
			ChangedBy:     userID.(int),
		}
		return tx.Create(&history).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to withdraw application"})
		return
	}

	application.Status = models.StatusWithdrawn
	application.WithdrawnAt = &now

	c.JSON(http.StatusOK, gin.H{
		"message":     "Application withdrawn",
		"application": application,
	})
}

// Helper function to generate application number
func generateApplicationNumber() string {
	// Format: APP-YYYYMMDD-XXXXXXXX
	dateStr := time.Now().Format("20060102")
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("APP-%s-%s", dateStr, suffix)
}

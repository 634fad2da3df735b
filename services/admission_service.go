package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"admissions-platform-api/config"
	"admissions-platform-api/models"

	"gorm.io/gorm"
)

var (
	ErrApplicationNotFound     = errors.New("application not found")
	ErrNotApplicationOwner     = errors.New("application does not belong to this student")
	ErrInvalidApplicationState = errors.New("application status does not allow this operation")
	ErrResolutionBusy          = errors.New("another offer resolution is in progress for this student")
)

// PartialResolutionError reports a resolution batch that failed after some
// writes were already issued. The transaction is rolled back, so no partial
// state persists, but the condition is surfaced loudly with the affected
// application IDs for reconciliation instead of being retried silently.
type PartialResolutionError struct {
	ApplicationIDs []int
	Err            error
}

func (e *PartialResolutionError) Error() string {
	return fmt.Sprintf("offer resolution failed after %d write(s) (applications %v): %v",
		len(e.ApplicationIDs), e.ApplicationIDs, e.Err)
}

func (e *PartialResolutionError) Unwrap() error { return e.Err }

// AcceptOfferResult summarizes a successful offer resolution.
type AcceptOfferResult struct {
	ConfirmedApplicationID int    `json:"confirmed_application_id"`
	ConfirmedCourseName    string `json:"confirmed_course_name"`
	InstitutionName        string `json:"institution_name"`
	DeclinedCount          int    `json:"declined_count"`
	WithdrawnCount         int    `json:"withdrawn_count"`
	PromotedApplicationIDs []int  `json:"promoted_application_ids"`
}

// AdmissionService resolves a student's decision to accept one admitted
// offer: the accepted application becomes the student's sole active
// admission, every competing application is declined or withdrawn, and each
// course that lost an admitted candidate promotes its earliest waitlisted
// applicant.
type AdmissionService struct {
	db       *gorm.DB
	sink     NotificationSink
	sendMail func(to []string, subject, html string) error
}

func NewAdmissionService(db *gorm.DB, sink NotificationSink) *AdmissionService {
	if db == nil {
		db = config.DB
	}
	if sink == nil {
		sink = NewDBNotificationSink(db)
	}
	return &AdmissionService{
		db:       db,
		sink:     sink,
		sendMail: config.SendMail,
	}
}

// lockWaitSeconds controls how long a second resolution for the same student
// waits on the per-student lock before giving up with ErrResolutionBusy.
func lockWaitSeconds() int {
	if v, err := strconv.Atoi(os.Getenv("RESOLUTION_LOCK_WAIT_SECONDS")); err == nil && v >= 0 {
		return v
	}
	return 10
}

// AcceptOffer confirms the admitted application identified by applicationID
// on behalf of studentID. Precondition failures return a sentinel error and
// perform no mutation; the cascade itself runs as one transaction.
func (s *AdmissionService) AcceptOffer(ctx context.Context, studentID, applicationID int) (*AcceptOfferResult, error) {
	release, err := s.acquireStudentLock(ctx, studentID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if relErr := release(); relErr != nil {
			log.Printf("failed to release resolution lock for student %d: %v", studentID, relErr)
		}
	}()

	var target models.Application
	if err := s.db.WithContext(ctx).
		Where("application_id = ? AND delete_at IS NULL", applicationID).
		First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("failed to load application %d: %w", applicationID, err)
	}

	if target.StudentID != studentID {
		return nil, ErrNotApplicationOwner
	}
	if target.Status != models.StatusAdmitted {
		return nil, ErrInvalidApplicationState
	}

	now := time.Now()
	result := &AcceptOfferResult{
		ConfirmedApplicationID: target.ApplicationID,
		ConfirmedCourseName:    target.CourseName,
		InstitutionName:        target.InstitutionName,
		PromotedApplicationIDs: []int{},
	}
	var promoted []models.Application

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		applied := make([]int, 0, 4)

		// Confirm the target conditionally on its pre-read status. Losing
		// this check means an institution-side change slipped in after the
		// precondition read; the whole resolution aborts untouched.
		if err := s.transition(tx, &target, models.StatusConfirmed, studentID, now); err != nil {
			if errors.Is(err, errStateDrift) {
				return ErrInvalidApplicationState
			}
			return err
		}
		applied = append(applied, target.ApplicationID)

		var others []models.Application
		if err := tx.
			Where("student_id = ? AND application_id <> ? AND status IN ? AND delete_at IS NULL",
				studentID, target.ApplicationID, models.InFlightStatuses).
			Order("application_id ASC").
			Find(&others).Error; err != nil {
			return &PartialResolutionError{ApplicationIDs: applied, Err: err}
		}

		freedCourses := make([]int, 0, len(others))
		seenCourse := make(map[int]bool)
		for i := range others {
			other := &others[i]
			next := models.StatusWithdrawn
			if other.Status == models.StatusAdmitted {
				next = models.StatusDeclined
			}
			if err := s.transition(tx, other, next, studentID, now); err != nil {
				return &PartialResolutionError{ApplicationIDs: applied, Err: err}
			}
			applied = append(applied, other.ApplicationID)
			if next == models.StatusDeclined {
				result.DeclinedCount++
				if !seenCourse[other.CourseID] {
					seenCourse[other.CourseID] = true
					freedCourses = append(freedCourses, other.CourseID)
				}
			} else {
				result.WithdrawnCount++
			}
		}

		// Each course that lost an admitted candidate promotes its earliest
		// waiting application. Promotion is conditional on the candidate
		// still being waiting at write time, and candidates consumed earlier
		// in this batch are excluded, so one applicant is never promoted
		// twice by racing or repeated declines.
		consumed := make([]int, 0, len(freedCourses))
		for _, courseID := range freedCourses {
			candidate, err := s.nextWaitlisted(tx, courseID, consumed)
			if err != nil {
				return &PartialResolutionError{ApplicationIDs: applied, Err: err}
			}
			if candidate == nil {
				continue // empty waitlist, the seat stays open
			}
			if err := s.transition(tx, candidate, models.StatusAdmitted, studentID, now); err != nil {
				if errors.Is(err, errStateDrift) {
					continue // candidate settled elsewhere, seat stays open
				}
				return &PartialResolutionError{ApplicationIDs: applied, Err: err}
			}
			applied = append(applied, candidate.ApplicationID)
			consumed = append(consumed, candidate.ApplicationID)
			promoted = append(promoted, *candidate)
			result.PromotedApplicationIDs = append(result.PromotedApplicationIDs, candidate.ApplicationID)
		}

		return nil
	})
	if txErr != nil {
		var partial *PartialResolutionError
		if errors.As(txErr, &partial) {
			log.Printf("partial offer resolution rolled back: student=%d target=%d written=%v cause=%v",
				studentID, applicationID, partial.ApplicationIDs, partial.Err)
		}
		return nil, txErr
	}

	go s.dispatchResolutionNotifications(&target, promoted)

	return result, nil
}

// errStateDrift marks a conditional update that matched zero rows because
// the application left its pre-read status mid-batch.
var errStateDrift = errors.New("application status changed during resolution")

// transition applies app -> next as a conditional update keyed on the
// pre-read status, stamps the matching write-once timestamp, and records a
// status history row. app is updated in place on success.
func (s *AdmissionService) transition(tx *gorm.DB, app *models.Application, next string, changedBy int, now time.Time) error {
	updates := map[string]interface{}{
		"status":    next,
		"update_at": now,
	}
	if col := models.StatusTimestampColumn(next); col != "" {
		updates[col] = now
	}

	res := tx.Model(&models.Application{}).
		Where("application_id = ? AND status = ?", app.ApplicationID, app.Status).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update application %d: %w", app.ApplicationID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("application %d no longer %s: %w", app.ApplicationID, app.Status, errStateDrift)
	}

	history := models.ApplicationStatusHistory{
		ApplicationID: app.ApplicationID,
		OldStatus:     app.Status,
		NewStatus:     next,
		ChangedBy:     changedBy,
	}
	if err := tx.Create(&history).Error; err != nil {
		return fmt.Errorf("failed to record status history for application %d: %w", app.ApplicationID, err)
	}

	app.Status = next
	switch next {
	case models.StatusAdmitted:
		app.AdmittedAt = &now
	case models.StatusConfirmed:
		app.ConfirmedAt = &now
	case models.StatusDeclined:
		app.DeclinedAt = &now
	case models.StatusWithdrawn:
		app.WithdrawnAt = &now
	}
	return nil
}

// nextWaitlisted returns the earliest waiting application for the course,
// first-applied first-promoted with the application id as deterministic
// tie-break, skipping candidates already consumed in this batch. A nil
// application with nil error means the waitlist is empty.
func (s *AdmissionService) nextWaitlisted(tx *gorm.DB, courseID int, consumed []int) (*models.Application, error) {
	var candidate models.Application
	query := tx.Where("course_id = ? AND status = ? AND delete_at IS NULL", courseID, models.StatusWaiting)
	if len(consumed) > 0 {
		query = query.Where("application_id NOT IN ?", consumed)
	}
	err := query.Order("applied_at ASC, application_id ASC").First(&candidate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query waitlist for course %d: %w", courseID, err)
	}
	return &candidate, nil
}

func (s *AdmissionService) acquireStudentLock(ctx context.Context, studentID int) (func() error, error) {
	lockName := fmt.Sprintf("offer_resolution_student_%d", studentID)

	var ok int
	if err := s.db.WithContext(ctx).Raw("SELECT GET_LOCK(?, ?)", lockName, lockWaitSeconds()).Scan(&ok).Error; err != nil {
		return nil, err
	}
	if ok != 1 {
		return nil, ErrResolutionBusy
	}

	return func() error {
		var released int
		if err := s.db.WithContext(ctx).Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&released).Error; err != nil {
			return err
		}
		return nil
	}, nil
}

// dispatchResolutionNotifications delivers the post-commit side effects of a
// resolution: a confirmation to the accepting student and a waitlist
// admission notice to each promoted applicant. Every failure is logged and
// swallowed.
func (s *AdmissionService) dispatchResolutionNotifications(confirmed *models.Application, promoted []models.Application) {
	appID := uint(confirmed.ApplicationID)
	link := fmt.Sprintf("/applications/%d", confirmed.ApplicationID)
	s.deliver(&models.Notification{
		UserID:               uint(confirmed.StudentID),
		Title:                "Offer confirmed",
		Message:              fmt.Sprintf("Your place in %s at %s is confirmed.", confirmed.CourseName, confirmed.InstitutionName),
		Type:                 "success",
		Link:                 &link,
		RelatedApplicationID: &appID,
	}, confirmed.StudentEmail)

	for i := range promoted {
		p := &promoted[i]
		pID := uint(p.ApplicationID)
		pLink := fmt.Sprintf("/applications/%d", p.ApplicationID)
		s.deliver(&models.Notification{
			UserID:               uint(p.StudentID),
			Title:                "Admitted from waitlist",
			Message:              fmt.Sprintf("A place opened up: you have been admitted to %s at %s.", p.CourseName, p.InstitutionName),
			Type:                 "success",
			Link:                 &pLink,
			RelatedApplicationID: &pID,
		}, p.StudentEmail)
	}
}

func (s *AdmissionService) deliver(n *models.Notification, email string) {
	if err := s.sink.Notify(n); err != nil {
		log.Printf("failed to store notification for user %d: %v", n.UserID, err)
	}
	if email == "" || s.sendMail == nil {
		return
	}
	body := fmt.Sprintf("<p>%s</p>", n.Message)
	if err := s.sendMail([]string{email}, n.Title, body); err != nil {
		log.Printf("failed to email notification to %s: %v", email, err)
	}
}

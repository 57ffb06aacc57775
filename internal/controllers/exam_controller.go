package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zaqqye/examcenter_backend_v1/internal/exam"
	"github.com/zaqqye/examcenter_backend_v1/internal/models"
)

// ExamController owns the assignment lifecycle: agent-triggered starts and
// the scan-driven auto-login promotion the kiosks poll for.
type ExamController struct {
	DB *gorm.DB
}

// errStartRaced aborts the start-exam transaction when the conditional
// update finds the assignment already started.
var errStartRaced = errors.New("exam already started")

type startExamRequest struct {
	StudentID  uint   `json:"studentId" binding:"required"`
	MACAddress string `json:"macAddress" binding:"required"`
}

// StartExam binds a PC to today's assignment for the student and marks the
// exam started. This is the agent path: it does not consult the login
// window, only the student-facing login does. PC binding and the exam flag
// commit in one transaction so a failure cannot leave them split.
func (e *ExamController) StartExam(c *gin.Context) {
	var req startExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "studentId and macAddress are required"})
		return
	}

	var registration models.Registration
	if err := e.DB.Where("mac_address = ? AND status = ?", req.MACAddress, "active").First(&registration).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "PC not found"})
		return
	}

	now := time.Now().UTC()
	today, tomorrow := exam.UTCDayRange(now)

	var assignment models.ExamAssignment
	err := e.DB.Where("student_id_ref = ? AND exam_date >= ? AND exam_date < ? AND exam_started = ?",
		req.StudentID, today, tomorrow, false).
		First(&assignment).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No exam is scheduled for this student today. Please check the exam assignments and ensure the student has a valid assignment.",
		})
		return
	}

	err = e.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ExamAssignment{}).
			Where("id = ? AND version = ? AND exam_started = ?", assignment.ID, assignment.Version, false).
			Updates(map[string]interface{}{
				"pc_id_ref":    registration.ID,
				"exam_started": true,
				"started_at":   now,
				"version":      gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errStartRaced
		}
		return tx.Model(&models.Registration{}).
			Where("id = ?", registration.ID).
			Update("student_id_ref", req.StudentID).Error
	})
	if err != nil {
		if errors.Is(err, errStartRaced) {
			c.JSON(http.StatusConflict, gin.H{"error": "Exam was already started"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := e.DB.First(&assignment, assignment.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Exam started successfully", "assignment": assignmentJSON(assignment)})
}

// CheckExamStatus reports whether an exam is running for the (student, PC)
// pair. Any assignment whose auto-login instant has passed is promoted first,
// so kiosks see the start without an agent action.
func (e *ExamController) CheckExamStatus(c *gin.Context) {
	macAddress := c.Query("macAddress")
	studentIDStr := c.Query("studentId")
	if macAddress == "" || studentIDStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "macAddress and studentId are required"})
		return
	}
	studentID, err := strconv.ParseUint(studentIDStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid studentId"})
		return
	}

	var registration models.Registration
	if err := e.DB.Where("mac_address = ?", macAddress).First(&registration).Error; err != nil {
		c.JSON(http.StatusOK, gin.H{"examStarted": false, "hasAssignment": false})
		return
	}

	now := time.Now().UTC()
	today, tomorrow := exam.UTCDayRange(now)

	var todayCount int64
	if err := e.DB.Model(&models.ExamAssignment{}).
		Where("student_id_ref = ? AND exam_date >= ? AND exam_date < ?", studentID, today, tomorrow).
		Count(&todayCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	e.promoteDueAssignment(uint(studentID), registration.ID, now)

	var assignment models.ExamAssignment
	err = e.DB.Where("student_id_ref = ? AND pc_id_ref = ? AND exam_started = ?", studentID, registration.ID, true).
		First(&assignment).Error
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"examStarted": false, "hasAssignment": todayCount > 0})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"examStarted":   true,
		"hasAssignment": true,
		"assignment":    assignmentJSON(assignment),
	})
}

// promoteDueAssignment flips exam_started on the first assignment whose
// scheduled auto-login instant has passed. The update is conditional on the
// version read, so a concurrent poll promotes at most once.
func (e *ExamController) promoteDueAssignment(studentID, pcID uint, now time.Time) {
	var due models.ExamAssignment
	err := e.DB.Where(
		"student_id_ref = ? AND pc_id_ref = ? AND auto_login_time IS NOT NULL AND auto_login_time <= ? AND status <> ? AND exam_started = ?",
		studentID, pcID, now, models.AssignmentCompleted, false).
		First(&due).Error
	if err != nil {
		return
	}
	e.DB.Model(&models.ExamAssignment{}).
		Where("id = ? AND version = ? AND exam_started = ?", due.ID, due.Version, false).
		Updates(map[string]interface{}{
			"exam_started": true,
			"started_at":   now,
			"version":      gorm.Expr("version + 1"),
		})
}

// CheckAutoLogin scans the PC's scheduled login sessions for today and
// promotes the first one whose trigger condition holds: either its auto-login
// instant passed, or it has none and an agent started the exam. At most one
// session is promoted per call; promotion is a conditional update, and losing
// a race just moves the scan to the next candidate.
func (e *ExamController) CheckAutoLogin(c *gin.Context) {
	macAddress := c.Query("macAddress")
	if macAddress == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "macAddress is required"})
		return
	}

	var registration models.Registration
	if err := e.DB.Where("mac_address = ?", macAddress).First(&registration).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "PC not found"})
		return
	}

	now := time.Now().UTC()
	today, tomorrow := exam.UTCDayRange(now)

	var sessions []models.LoginSession
	if err := e.DB.Where("pc_id_ref = ? AND status = ?", registration.ID, models.SessionScheduled).
		Order("created_at ASC, id ASC").
		Find(&sessions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	candidates, err := e.candidatesForToday(sessions, today, tomorrow)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if len(candidates) == 0 {
		c.JSON(http.StatusOK, gin.H{"eligible": false, "reason": "No scheduled sessions"})
		return
	}

	loggedIn, err := e.loggedInStudents(registration.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	for len(candidates) > 0 {
		next, ok := exam.NextAutoLogin(candidates, loggedIn, now)
		if !ok {
			break
		}

		// The no-existing-logged-in check is part of the update's WHERE, not
		// a separate read, so two scans promoting different sessions for the
		// same (student, pc) cannot both commit.
		res := e.DB.Model(&models.LoginSession{}).
			Where("id = ? AND status = ? AND version = ?", next.Session.ID, models.SessionScheduled, next.Session.Version).
			Where("NOT EXISTS (SELECT 1 FROM login_sessions WHERE student_id_ref = ? AND pc_id_ref = ? AND status = ?)",
				next.Session.StudentIDRef, registration.ID, models.SessionLoggedIn).
			Updates(map[string]interface{}{
				"status":     models.SessionLoggedIn,
				"login_time": now,
				"version":    gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if res.RowsAffected == 0 {
			// Lost the race; whoever won holds the logged_in slot now.
			loggedIn[next.Session.StudentIDRef] = true
			candidates = withoutSession(candidates, next.Session.ID)
			continue
		}

		var student models.Student
		if err := e.DB.First(&student, next.Session.StudentIDRef).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"eligible": true,
			"session": gin.H{
				"id":         next.Session.ID,
				"student":    studentJSON(student),
				"assignment": assignmentJSON(next.Assignment),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"eligible": false, "reason": "No eligible sessions"})
}

// candidatesForToday pairs sessions with their assignments, keeping only
// assignments scheduled within the day range and preserving session order.
func (e *ExamController) candidatesForToday(sessions []models.LoginSession, today, tomorrow time.Time) ([]exam.AutoLoginCandidate, error) {
	if len(sessions) == 0 {
		return nil, nil
	}
	ids := make([]uint, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.AssignmentIDRef)
	}
	var assignments []models.ExamAssignment
	if err := e.DB.Where("id IN ? AND exam_date >= ? AND exam_date < ?", ids, today, tomorrow).
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.ExamAssignment, len(assignments))
	for _, a := range assignments {
		byID[a.ID] = a
	}

	var candidates []exam.AutoLoginCandidate
	for _, s := range sessions {
		if a, ok := byID[s.AssignmentIDRef]; ok {
			candidates = append(candidates, exam.AutoLoginCandidate{Session: s, Assignment: a})
		}
	}
	return candidates, nil
}

func (e *ExamController) loggedInStudents(pcID uint) (map[uint]bool, error) {
	var active []models.LoginSession
	if err := e.DB.Where("pc_id_ref = ? AND status = ?", pcID, models.SessionLoggedIn).Find(&active).Error; err != nil {
		return nil, err
	}
	loggedIn := make(map[uint]bool, len(active))
	for _, s := range active {
		loggedIn[s.StudentIDRef] = true
	}
	return loggedIn, nil
}

func withoutSession(candidates []exam.AutoLoginCandidate, sessionID uint) []exam.AutoLoginCandidate {
	out := candidates[:0]
	for _, c := range candidates {
		if c.Session.ID != sessionID {
			out = append(out, c)
		}
	}
	return out
}

func assignmentJSON(a models.ExamAssignment) gin.H {
	return gin.H{
		"id":              a.ID,
		"student":         a.StudentIDRef,
		"agent":           a.AgentIDRef,
		"pc":              a.PCIDRef,
		"exam_type":       a.ExamTypes,
		"exam_paper":      a.ExamPapers,
		"exam_date":       a.ExamDate,
		"exam_time":       a.ExamTime,
		"scheduled_start": a.ScheduledStart,
		"duration":        a.DurationMinutes,
		"status":          a.Status,
		"is_visible":      a.IsVisible,
		"exam_title":      a.ExamTitle,
		"exam_bio":        a.ExamBio,
		"examStarted":     a.ExamStarted,
		"startedAt":       a.StartedAt,
		"auto_login_time": a.AutoLoginTime,
	}
}

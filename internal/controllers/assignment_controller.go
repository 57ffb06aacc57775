package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zaqqye/examcenter_backend_v1/internal/exam"
	"github.com/zaqqye/examcenter_backend_v1/internal/models"
)

type AssignmentController struct {
	DB *gorm.DB
}

type createAssignmentRequest struct {
	Student       uint            `json:"student" binding:"required"`
	Agent         *uint           `json:"agent"`
	ExamType      []string        `json:"exam_type" binding:"required"`
	ExamPaper     map[string]uint `json:"exam_paper" binding:"required"`
	ExamDate      string          `json:"exam_date" binding:"required"` // YYYY-MM-DD
	ExamTime      string          `json:"exam_time" binding:"required"` // HH:MM
	Duration      int             `json:"duration"`
	ExamTitle     string          `json:"exam_title" binding:"required"`
	ExamBio       string          `json:"exam_bio" binding:"required"`
	AutoLoginTime *time.Time      `json:"auto_login_time"`
	IsVisible     *bool           `json:"is_visible"`
}

// Create validates the skill set and paper references once, computes the
// scheduled start instant, and stores the assignment. Paper references are
// never re-validated after creation.
func (ac *AssignmentController) Create(c *gin.Context) {
	var req createAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
		return
	}

	if len(req.ExamType) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exam_type must be a non-empty array"})
		return
	}
	skills := make([]exam.Skill, 0, len(req.ExamType))
	for _, raw := range req.ExamType {
		skill, ok := exam.ParseSkill(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid exam type in array"})
			return
		}
		skills = append(skills, skill)
	}
	for _, skill := range skills {
		if _, ok := req.ExamPaper[string(skill)]; !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Missing exam paper for %s", skill)})
			return
		}
	}

	var student models.Student
	if err := ac.DB.First(&student, req.Student).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}

	for _, skill := range skills {
		exists, err := paperExists(ac.DB, skill, req.ExamPaper[string(skill)])
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if !exists {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Exam paper not found for %s", skill)})
			return
		}
	}

	examDate, err := time.ParseInLocation("2006-01-02", req.ExamDate, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam_date, expected YYYY-MM-DD"})
		return
	}
	scheduledStart, err := exam.CombineDateTime(examDate, req.ExamTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam_time, expected HH:MM"})
		return
	}

	duration := req.Duration
	if duration <= 0 {
		duration = 60
	}
	visible := true
	if req.IsVisible != nil {
		visible = *req.IsVisible
	}

	papers := make(map[string]uint, len(skills))
	for _, skill := range skills {
		papers[string(skill)] = req.ExamPaper[string(skill)]
	}

	assignment := models.ExamAssignment{
		StudentIDRef:    student.ID,
		AgentIDRef:      req.Agent,
		ExamTypes:       req.ExamType,
		ExamPapers:      papers,
		ExamDate:        examDate,
		ExamTime:        req.ExamTime,
		ScheduledStart:  scheduledStart,
		DurationMinutes: duration,
		Status:          models.AssignmentAssigned,
		IsVisible:       visible,
		ExamTitle:       req.ExamTitle,
		ExamBio:         req.ExamBio,
		AutoLoginTime:   req.AutoLoginTime,
	}
	if err := ac.DB.Create(&assignment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Exam assignment created successfully", "assignment": assignmentJSON(assignment)})
}

// List returns visible, still-active assignments, optionally narrowed to one
// student by external student id.
func (ac *AssignmentController) List(c *gin.Context) {
	q := ac.DB.Model(&models.ExamAssignment{}).
		Where("is_visible = ? AND status IN ?", true, []string{models.AssignmentAssigned, models.AssignmentInProgress})

	if studentID := strings.TrimSpace(c.Query("student_id")); studentID != "" {
		var student models.Student
		if err := ac.DB.Where("student_id = ?", studentID).First(&student).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
			return
		}
		q = q.Where("student_id_ref = ?", student.ID)
	}

	limit := 20
	page := 1
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var assignments []models.ExamAssignment
	if err := q.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&assignments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	out := make([]gin.H, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, assignmentJSON(a))
	}
	c.JSON(http.StatusOK, gin.H{
		"assignments": out,
		"meta":        gin.H{"total": total, "limit": limit, "page": page},
	})
}

func (ac *AssignmentController) Get(c *gin.Context) {
	assignment, ok := ac.find(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignment": assignmentJSON(assignment)})
}

type updateAssignmentRequest struct {
	Agent         *uint      `json:"agent"`
	ExamDate      *string    `json:"exam_date"`
	ExamTime      *string    `json:"exam_time"`
	Duration      *int       `json:"duration"`
	ExamTitle     *string    `json:"exam_title"`
	ExamBio       *string    `json:"exam_bio"`
	AutoLoginTime *time.Time `json:"auto_login_time"`
}

// Update edits schedule and metadata. A date or time change recomputes the
// stored start instant so the window engine never re-derives it.
func (ac *AssignmentController) Update(c *gin.Context) {
	assignment, ok := ac.find(c)
	if !ok {
		return
	}
	var req updateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Agent != nil {
		assignment.AgentIDRef = req.Agent
	}
	if req.ExamDate != nil {
		examDate, err := time.ParseInLocation("2006-01-02", *req.ExamDate, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam_date, expected YYYY-MM-DD"})
			return
		}
		assignment.ExamDate = examDate
	}
	if req.ExamTime != nil {
		assignment.ExamTime = *req.ExamTime
	}
	if req.ExamDate != nil || req.ExamTime != nil {
		scheduledStart, err := exam.CombineDateTime(assignment.ExamDate, assignment.ExamTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam_time, expected HH:MM"})
			return
		}
		assignment.ScheduledStart = scheduledStart
	}
	if req.Duration != nil {
		if *req.Duration <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "duration must be positive"})
			return
		}
		assignment.DurationMinutes = *req.Duration
	}
	if req.ExamTitle != nil {
		assignment.ExamTitle = *req.ExamTitle
	}
	if req.ExamBio != nil {
		assignment.ExamBio = *req.ExamBio
	}
	if req.AutoLoginTime != nil {
		assignment.AutoLoginTime = req.AutoLoginTime
	}

	if !ac.saveVersioned(c, &assignment, map[string]interface{}{
		"agent_id_ref":     assignment.AgentIDRef,
		"exam_date":        assignment.ExamDate,
		"exam_time":        assignment.ExamTime,
		"scheduled_start":  assignment.ScheduledStart,
		"duration_minutes": assignment.DurationMinutes,
		"exam_title":       assignment.ExamTitle,
		"exam_bio":         assignment.ExamBio,
		"auto_login_time":  assignment.AutoLoginTime,
	}) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Exam assignment updated successfully", "assignment": assignmentJSON(assignment)})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus advances the progress facet. Transitions are monotonic
// forward; cancellation is the only sideways move.
func (ac *AssignmentController) UpdateStatus(c *gin.Context) {
	assignment, ok := ac.find(c)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	if !models.IsAssignmentStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}
	if !models.ValidStatusTransition(assignment.Status, req.Status) {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("cannot move assignment from %s to %s", assignment.Status, req.Status)})
		return
	}

	assignment.Status = req.Status
	if !ac.saveVersioned(c, &assignment, map[string]interface{}{"status": req.Status}) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Status updated", "assignment": assignmentJSON(assignment)})
}

type updateVisibilityRequest struct {
	IsVisible *bool `json:"is_visible" binding:"required"`
}

func (ac *AssignmentController) UpdateVisibility(c *gin.Context) {
	assignment, ok := ac.find(c)
	if !ok {
		return
	}
	var req updateVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "is_visible is required"})
		return
	}

	assignment.IsVisible = *req.IsVisible
	if !ac.saveVersioned(c, &assignment, map[string]interface{}{"is_visible": *req.IsVisible}) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Visibility updated", "assignment": assignmentJSON(assignment)})
}

// Delete removes the assignment. Login sessions referencing it become
// orphans; the auto-login scan tolerates them by joining on the assignment.
func (ac *AssignmentController) Delete(c *gin.Context) {
	assignment, ok := ac.find(c)
	if !ok {
		return
	}
	if err := ac.DB.Delete(&models.ExamAssignment{}, assignment.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Exam assignment deleted"})
}

func (ac *AssignmentController) find(c *gin.Context) (models.ExamAssignment, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return models.ExamAssignment{}, false
	}
	var assignment models.ExamAssignment
	if err := ac.DB.First(&assignment, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Exam assignment not found"})
		return models.ExamAssignment{}, false
	}
	return assignment, true
}

// saveVersioned applies updates conditionally on the version the handler
// read, the compare-and-set all assignment transitions go through. Writes
// false and a 409 when another writer got there first.
func (ac *AssignmentController) saveVersioned(c *gin.Context, assignment *models.ExamAssignment, updates map[string]interface{}) bool {
	updates["version"] = gorm.Expr("version + 1")
	res := ac.DB.Model(&models.ExamAssignment{}).
		Where("id = ? AND version = ?", assignment.ID, assignment.Version).
		Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return false
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Exam assignment was modified concurrently, retry"})
		return false
	}
	assignment.Version++
	return true
}

package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zaqqye/examcenter_backend_v1/internal/models"
)

type SessionController struct {
	DB *gorm.DB
}

// errLoginSlotTaken aborts an immediate-login create when the (student, pc)
// pair already holds a logged_in session.
var errLoginSlotTaken = errors.New("logged in session already exists")

type createSessionRequest struct {
	Student       uint       `json:"student" binding:"required"`
	PC            uint       `json:"pc" binding:"required"`
	Assignment    uint       `json:"assignment" binding:"required"`
	AutoLoginTime *time.Time `json:"autoLoginTime"`
}

// Create records a login intent. With an auto-login instant the session
// waits as scheduled for the promotion scan; without one it is an immediate
// login, which must not collide with an existing logged_in session on the
// same (student, pc).
func (sc *SessionController) Create(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Student, PC, and assignment are required"})
		return
	}

	session := models.LoginSession{
		StudentIDRef:    req.Student,
		PCIDRef:         req.PC,
		AssignmentIDRef: req.Assignment,
		AutoLoginTime:   req.AutoLoginTime,
		Status:          models.SessionScheduled,
	}
	if req.AutoLoginTime == nil {
		// Immediate login. The row is inserted as scheduled and promoted by
		// a conditional update whose WHERE carries the no-existing-logged-in
		// check, so a concurrent create or scan cannot yield two logged_in
		// rows for the (student, pc) pair. Both steps roll back together.
		now := time.Now().UTC()
		err := sc.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&session).Error; err != nil {
				return err
			}
			res := tx.Model(&models.LoginSession{}).
				Where("id = ? AND status = ?", session.ID, models.SessionScheduled).
				Where("NOT EXISTS (SELECT 1 FROM login_sessions WHERE student_id_ref = ? AND pc_id_ref = ? AND status = ? AND id <> ?)",
					req.Student, req.PC, models.SessionLoggedIn, session.ID).
				Updates(map[string]interface{}{
					"status":     models.SessionLoggedIn,
					"login_time": now,
					"version":    gorm.Expr("version + 1"),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errLoginSlotTaken
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, errLoginSlotTaken) {
				c.JSON(http.StatusConflict, gin.H{"error": "Student already has a logged in session on this PC"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		session.Status = models.SessionLoggedIn
		session.LoginTime = &now
		session.Version++
	} else {
		if err := sc.DB.Create(&session).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Login session created", "session": sessionJSON(session)})
}

func (sc *SessionController) List(c *gin.Context) {
	var sessions []models.LoginSession
	if err := sc.DB.Order("created_at DESC").Find(&sessions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	out := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionJSON(s))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

type updateSessionRequest struct {
	Status string `json:"status" binding:"required"`
}

// Update moves a session between states administratively. The write is
// conditional on the version read, like every session transition.
func (sc *SessionController) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req updateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || !models.IsSessionStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	var session models.LoginSession
	if err := sc.DB.First(&session, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	updates := map[string]interface{}{
		"status":  req.Status,
		"version": gorm.Expr("version + 1"),
	}
	if req.Status == models.SessionLoggedIn && session.LoginTime == nil {
		updates["login_time"] = time.Now().UTC()
	}
	res := sc.DB.Model(&models.LoginSession{}).
		Where("id = ? AND version = ?", session.ID, session.Version).
		Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Session was modified concurrently, retry"})
		return
	}

	if err := sc.DB.First(&session, session.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session updated", "session": sessionJSON(session)})
}

func sessionJSON(s models.LoginSession) gin.H {
	return gin.H{
		"id":            s.ID,
		"student":       s.StudentIDRef,
		"pc":            s.PCIDRef,
		"assignment":    s.AssignmentIDRef,
		"loginTime":     s.LoginTime,
		"autoLoginTime": s.AutoLoginTime,
		"status":        s.Status,
		"created_at":    s.CreatedAt,
	}
}

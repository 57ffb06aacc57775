package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgconn"
	"gorm.io/gorm"

	"github.com/zaqqye/examcenter_backend_v1/internal/models"
	"github.com/zaqqye/examcenter_backend_v1/internal/utils"
	"github.com/zaqqye/examcenter_backend_v1/internal/ws"
)

type AgentController struct {
	DB        *gorm.DB
	JWTSecret string
	ExpiresIn time.Duration
	Signal    *ws.SignalHub
}

func (ag *AgentController) List(c *gin.Context) {
	var agents []models.Agent
	if err := ag.DB.Order("created_at DESC").Find(&agents).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	out := make([]gin.H, 0, len(agents))
	for _, a := range agents {
		out = append(out, agentJSON(a))
	}
	c.JSON(http.StatusOK, gin.H{"agents": out})
}

type createAgentRequest struct {
	Name     string `json:"name" binding:"required"`
	AgentID  string `json:"agent_id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (ag *AgentController) Create(c *gin.Context) {
	var req createAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name, agent ID, and password are required"})
		return
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	agent := models.Agent{
		Name:     req.Name,
		AgentID:  strings.ToUpper(strings.TrimSpace(req.AgentID)),
		Password: hashed,
		Role:     "agent",
		Status:   "active",
	}
	if err := ag.DB.Create(&agent).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			c.JSON(http.StatusConflict, gin.H{"error": "Agent ID already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Agent created successfully", "agent": agentJSON(agent)})
}

type updateAgentRequest struct {
	Name   *string `json:"name"`
	Status *string `json:"status"`
}

func (ag *AgentController) Update(c *gin.Context) {
	agent, ok := ag.find(c)
	if !ok {
		return
	}
	// Password changes go through a dedicated flow, not this route.
	var req updateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name != nil {
		agent.Name = *req.Name
	}
	if req.Status != nil {
		if *req.Status != "active" && *req.Status != "inactive" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		agent.Status = *req.Status
	}
	if err := ag.DB.Save(&agent).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Agent updated successfully", "agent": agentJSON(agent)})
}

func (ag *AgentController) Delete(c *gin.Context) {
	agent, ok := ag.find(c)
	if !ok {
		return
	}

	var assigned int64
	if err := ag.DB.Model(&models.ExamAssignment{}).Where("agent_id_ref = ?", agent.ID).Count(&assigned).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if assigned > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete agent with assigned exams. Please reassign exams first."})
		return
	}

	if err := ag.DB.Delete(&models.Agent{}, agent.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Agent deleted successfully"})
}

type agentLoginRequest struct {
	AgentID  string `json:"agent_id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (ag *AgentController) Login(c *gin.Context) {
	var req agentLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Agent ID and password are required"})
		return
	}

	var agent models.Agent
	err := ag.DB.Where("agent_id = ?", strings.ToUpper(strings.TrimSpace(req.AgentID))).First(&agent).Error
	if err != nil || !utils.CheckPassword(agent.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid agent ID or password"})
		return
	}
	if agent.Status != "active" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Agent account is inactive"})
		return
	}

	token, err := issueToken(ag.JWTSecret, ag.ExpiresIn, "agent", agent.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	assigned, err := ag.assignedExams(agent.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "Login successful",
		"agent":         agentJSON(agent),
		"token":         token,
		"assignedExams": assigned,
	})
}

func (ag *AgentController) AssignedExams(c *gin.Context) {
	agent, ok := ag.find(c)
	if !ok {
		return
	}
	assigned, err := ag.assignedExams(agent.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignedExams": assigned})
}

// StartMonitoring appends an entry to the agent's monitoring log and, when
// the transition is legal, advances the assignment to in_progress. Any
// still-open entry for the agent is closed first so the log never holds two
// open rows per agent.
func (ag *AgentController) StartMonitoring(c *gin.Context) {
	agent, examID, ok := ag.findMonitorPair(c)
	if !ok {
		return
	}

	var assignment models.ExamAssignment
	if err := ag.DB.First(&assignment, examID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Exam assignment not found"})
		return
	}

	now := time.Now().UTC()
	err := ag.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.MonitorSession{}).
			Where("agent_id_ref = ? AND ended_at IS NULL", agent.ID).
			Update("ended_at", now).Error; err != nil {
			return err
		}
		return tx.Create(&models.MonitorSession{
			AgentIDRef:      agent.ID,
			AssignmentIDRef: assignment.ID,
			StartedAt:       now,
		}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if models.ValidStatusTransition(assignment.Status, models.AssignmentInProgress) {
		ag.DB.Model(&models.ExamAssignment{}).
			Where("id = ? AND version = ? AND status = ?", assignment.ID, assignment.Version, assignment.Status).
			Updates(map[string]interface{}{
				"status":  models.AssignmentInProgress,
				"version": gorm.Expr("version + 1"),
			})
	}

	c.JSON(http.StatusOK, gin.H{"message": "Monitoring session started"})
}

// EndMonitoring closes the agent's open log entry for the exam and tells the
// exam room, best-effort, that the session is over.
func (ag *AgentController) EndMonitoring(c *gin.Context) {
	agent, examID, ok := ag.findMonitorPair(c)
	if !ok {
		return
	}

	now := time.Now().UTC()
	res := ag.DB.Model(&models.MonitorSession{}).
		Where("agent_id_ref = ? AND assignment_id_ref = ? AND ended_at IS NULL", agent.ID, examID).
		Update("ended_at", now)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ag.Signal.Emit(strconv.FormatUint(uint64(examID), 10), "end-exam")
	c.JSON(http.StatusOK, gin.H{"message": "Monitoring session ended"})
}

// CurrentSession reports the agent's newest open monitoring entry, if any.
func (ag *AgentController) CurrentSession(c *gin.Context) {
	agent, ok := ag.find(c)
	if !ok {
		return
	}
	var session models.MonitorSession
	res := ag.DB.Where("agent_id_ref = ? AND ended_at IS NULL", agent.ID).
		Order("started_at DESC").
		Limit(1).
		Find(&session)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusOK, gin.H{"active": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"active": true,
		"session": gin.H{
			"id":         session.ID,
			"assignment": session.AssignmentIDRef,
			"startTime":  session.StartedAt,
		},
	})
}

func (ag *AgentController) assignedExams(agentID uint) ([]gin.H, error) {
	var assignments []models.ExamAssignment
	err := ag.DB.Where("agent_id_ref = ?", agentID).
		Order("exam_date ASC, exam_time ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	out := make([]gin.H, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, assignmentJSON(a))
	}
	return out, nil
}

func (ag *AgentController) find(c *gin.Context) (models.Agent, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid agent id"})
		return models.Agent{}, false
	}
	var agent models.Agent
	if err := ag.DB.First(&agent, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Agent not found"})
		return models.Agent{}, false
	}
	return agent, true
}

func (ag *AgentController) findMonitorPair(c *gin.Context) (models.Agent, uint, bool) {
	agent, ok := ag.find(c)
	if !ok {
		return models.Agent{}, 0, false
	}
	examID, err := strconv.ParseUint(c.Param("examId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam id"})
		return models.Agent{}, 0, false
	}
	return agent, uint(examID), true
}

func agentJSON(a models.Agent) gin.H {
	return gin.H{
		"id":         a.ID,
		"name":       a.Name,
		"agent_id":   a.AgentID,
		"role":       a.Role,
		"status":     a.Status,
		"created_at": a.CreatedAt,
	}
}

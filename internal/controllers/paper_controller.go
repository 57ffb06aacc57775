package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zaqqye/examcenter_backend_v1/internal/exam"
	"github.com/zaqqye/examcenter_backend_v1/internal/models"
)

// PaperController serves the four per-skill paper collections. Every lookup
// dispatches through exam.Skill; there is no runtime table-name mapping.
type PaperController struct {
	DB *gorm.DB
}

func paperModel(skill exam.Skill) interface{} {
	switch skill {
	case exam.SkillListening:
		return &models.ListeningPaper{}
	case exam.SkillReading:
		return &models.ReadingPaper{}
	case exam.SkillWriting:
		return &models.WritingPaper{}
	case exam.SkillSpeaking:
		return &models.SpeakingPaper{}
	}
	return nil
}

func paperExists(db *gorm.DB, skill exam.Skill, id uint) (bool, error) {
	var count int64
	if err := db.Model(paperModel(skill)).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// paperView is the shared row shape of all four paper tables.
type paperView struct {
	ID            uint            `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Content       json.RawMessage `json:"content,omitempty"`
	Status        string          `json:"status"`
	CreatedBy     string          `json:"created_by"`
	EstimatedTime int             `json:"estimated_time"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (pc *PaperController) skill(c *gin.Context) (exam.Skill, bool) {
	skill, ok := exam.ParseSkill(c.Param("type"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam type"})
		return "", false
	}
	return skill, true
}

func (pc *PaperController) List(c *gin.Context) {
	skill, ok := pc.skill(c)
	if !ok {
		return
	}
	var papers []paperView
	if err := pc.DB.Model(paperModel(skill)).Order("created_at DESC").Find(&papers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"papers": papers})
}

// Summaries lists published papers without content, for the assignment
// creation picker.
func (pc *PaperController) Summaries(c *gin.Context) {
	skill, ok := pc.skill(c)
	if !ok {
		return
	}
	type summary struct {
		ID          uint   `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	var papers []summary
	if err := pc.DB.Model(paperModel(skill)).
		Where("status = ?", models.PaperPublished).
		Order("title ASC").
		Find(&papers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"papers": papers})
}

func (pc *PaperController) Get(c *gin.Context) {
	skill, ok := pc.skill(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var paper paperView
	res := pc.DB.Model(paperModel(skill)).Where("id = ?", uint(id)).Limit(1).Find(&paper)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Paper not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"paper": paper})
}

type paperRequest struct {
	Title         string          `json:"title" binding:"required"`
	Description   string          `json:"description"`
	Content       json.RawMessage `json:"content"`
	Status        string          `json:"status"`
	CreatedBy     string          `json:"created_by" binding:"required"`
	EstimatedTime int             `json:"estimated_time"`
}

func (pc *PaperController) Create(c *gin.Context) {
	skill, ok := pc.skill(c)
	if !ok {
		return
	}
	var req paperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status := req.Status
	if status == "" {
		status = models.PaperDraft
	}
	if status != models.PaperDraft && status != models.PaperPublished {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	estimated := req.EstimatedTime
	if estimated <= 0 {
		estimated = 60
	}

	paper := newPaper(skill, req.Title, req.Description, req.Content, status, req.CreatedBy, estimated)
	if err := pc.DB.Create(paper).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Paper created", "id": paperID(paper)})
}

func (pc *PaperController) Update(c *gin.Context) {
	skill, ok := pc.skill(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	type updatePaperRequest struct {
		Title         *string         `json:"title"`
		Description   *string         `json:"description"`
		Content       json.RawMessage `json:"content"`
		Status        *string         `json:"status"`
		EstimatedTime *int            `json:"estimated_time"`
	}
	var req updatePaperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Content != nil {
		updates["content"] = []byte(req.Content)
	}
	if req.Status != nil {
		if *req.Status != models.PaperDraft && *req.Status != models.PaperPublished {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		updates["status"] = *req.Status
	}
	if req.EstimatedTime != nil {
		updates["estimated_time"] = *req.EstimatedTime
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	res := pc.DB.Model(paperModel(skill)).Where("id = ?", uint(id)).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Paper not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Paper updated"})
}

func (pc *PaperController) Delete(c *gin.Context) {
	skill, ok := pc.skill(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	res := pc.DB.Where("id = ?", uint(id)).Delete(paperModel(skill))
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Paper not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Paper deleted"})
}

func newPaper(skill exam.Skill, title, description string, content json.RawMessage, status, createdBy string, estimated int) interface{} {
	switch skill {
	case exam.SkillListening:
		return &models.ListeningPaper{Title: title, Description: description, Content: content, Status: status, CreatedBy: createdBy, EstimatedTime: estimated}
	case exam.SkillReading:
		return &models.ReadingPaper{Title: title, Description: description, Content: content, Status: status, CreatedBy: createdBy, EstimatedTime: estimated}
	case exam.SkillWriting:
		return &models.WritingPaper{Title: title, Description: description, Content: content, Status: status, CreatedBy: createdBy, EstimatedTime: estimated}
	case exam.SkillSpeaking:
		return &models.SpeakingPaper{Title: title, Description: description, Content: content, Status: status, CreatedBy: createdBy, EstimatedTime: estimated}
	}
	return nil
}

func paperID(paper interface{}) uint {
	switch p := paper.(type) {
	case *models.ListeningPaper:
		return p.ID
	case *models.ReadingPaper:
		return p.ID
	case *models.WritingPaper:
		return p.ID
	case *models.SpeakingPaper:
		return p.ID
	}
	return 0
}

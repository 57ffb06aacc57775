package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"gorm.io/gorm"

	"github.com/zaqqye/examcenter_backend_v1/internal/exam"
	"github.com/zaqqye/examcenter_backend_v1/internal/middleware"
	"github.com/zaqqye/examcenter_backend_v1/internal/models"
	"github.com/zaqqye/examcenter_backend_v1/internal/utils"
)

type AuthController struct {
	DB        *gorm.DB
	JWTSecret string
	ExpiresIn time.Duration
}

type registerPCRequest struct {
	CenterName    string `json:"centerName" binding:"required"`
	CenterAddress string `json:"centerAddress" binding:"required"`
	PCName        string `json:"pcName" binding:"required"`
	MACAddress    string `json:"macAddress" binding:"required"`
	UUID          string `json:"uuid" binding:"required"`
	Hostname      string `json:"hostname" binding:"required"`
	Platform      string `json:"platform" binding:"required"`
}

// RegisterPC enrolls a lab PC. The UUID is the PC's stable identity; a
// duplicate means the machine is already enrolled.
func (a *AuthController) RegisterPC(c *gin.Context) {
	var req registerPCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
		return
	}
	if _, err := uuid.Parse(req.UUID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
		return
	}

	registration := models.Registration{
		CenterName:    req.CenterName,
		CenterAddress: req.CenterAddress,
		PCName:        req.PCName,
		MACAddress:    req.MACAddress,
		UUID:          req.UUID,
		Hostname:      req.Hostname,
		Platform:      req.Platform,
		Status:        "active",
		RegisteredAt:  time.Now().UTC(),
	}
	if err := a.DB.Create(&registration).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			c.JSON(http.StatusConflict, gin.H{"error": "PC already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Registration successful", "data": registrationJSON(registration)})
}

type studentLoginRequest struct {
	StudentID  string `json:"student_id" binding:"required"`
	Password   string `json:"password" binding:"required"`
	MACAddress string `json:"macAddress" binding:"required"`
	UUID       string `json:"uuid" binding:"required"`
	Hostname   string `json:"hostname" binding:"required"`
	Platform   string `json:"platform" binding:"required"`
}

// Login authenticates a student at a kiosk PC and returns the assignments
// whose login window is open right now. When none is open, a single
// best-effort reason explains why.
func (a *AuthController) Login(c *gin.Context) {
	var req studentLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
		return
	}

	var registration models.Registration
	err := a.DB.Where("mac_address = ? AND hostname = ? AND platform = ?", req.MACAddress, req.Hostname, req.Platform).
		First(&registration).Error
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "PC not registered. Please register this PC first."})
		return
	}
	if registration.Status != "active" {
		c.JSON(http.StatusForbidden, gin.H{"error": "Your device is not verified."})
		return
	}

	var student models.Student
	if err := a.DB.Where("student_id = ?", req.StudentID).First(&student).Error; err != nil ||
		!utils.CheckPassword(student.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid student ID or password"})
		return
	}

	var assignments []models.ExamAssignment
	err = a.DB.Where("student_id_ref = ? AND is_visible = ? AND status IN ?",
		student.ID, true, []string{models.AssignmentAssigned, models.AssignmentInProgress}).
		Find(&assignments).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	eligible, reason := exam.FilterEligible(assignments, time.Now().UTC())
	if len(eligible) == 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": reason})
		return
	}

	out := make([]gin.H, 0, len(eligible))
	for _, asg := range eligible {
		out = append(out, gin.H{
			"id":         asg.ID,
			"exam_type":  asg.ExamTypes,
			"exam_paper": asg.ExamPapers,
			"exam_date":  asg.ExamDate,
			"exam_time":  asg.ExamTime,
			"exam_title": asg.ExamTitle,
			"exam_bio":   asg.ExamBio,
			"duration":   asg.DurationMinutes,
			"status":     asg.Status,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "Login successful",
		"student":      studentJSON(student),
		"registration": registrationJSON(registration),
		"assignments":  out,
	})
}

type autoLoginRequest struct {
	MACAddress string `json:"macAddress" binding:"required"`
	UUID       string `json:"uuid" binding:"required"`
}

// AutoLogin resolves the student bound to a PC, for kiosks that restore a
// session without credentials after a start-exam binding.
func (a *AuthController) AutoLogin(c *gin.Context) {
	var req autoLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "macAddress and uuid are required"})
		return
	}

	var registration models.Registration
	if err := a.DB.Where("mac_address = ? AND uuid = ?", req.MACAddress, req.UUID).First(&registration).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "PC not registered"})
		return
	}
	if registration.Status != "active" {
		c.JSON(http.StatusForbidden, gin.H{"error": "PC is not active"})
		return
	}
	if registration.StudentIDRef == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}

	var student models.Student
	if err := a.DB.First(&student, *registration.StudentIDRef).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Auto-login successful", "student": studentJSON(student)})
}

type adminLoginRequest struct {
	Admin    string `json:"admin" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (a *AuthController) AdminLogin(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
		return
	}

	var admin models.Admin
	if err := a.DB.Where("username = ?", req.Admin).First(&admin).Error; err != nil ||
		!utils.CheckPassword(admin.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid admin username or password"})
		return
	}

	token, err := issueToken(a.JWTSecret, a.ExpiresIn, "admin", admin.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Admin login successful",
		"admin":   gin.H{"admin": admin.Username},
		"token":   token,
	})
}

func issueToken(secret string, ttl time.Duration, role string, id uint) (string, error) {
	now := time.Now().UTC()
	claims := middleware.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "examcenter_backend_v1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   strconv.FormatUint(uint64(id), 10),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func studentJSON(s models.Student) gin.H {
	return gin.H{
		"id":            s.ID,
		"name":          s.Name,
		"student_id":    s.StudentID,
		"dob":           s.DOB,
		"student_photo": s.StudentPhoto,
		"unr":           s.UNR,
		"email":         s.Email,
		"phone":         s.Phone,
		"address":       s.Address,
		"nationality":   s.Nationality,
		"roll_no":       s.RollNo,
		"test_date":     s.TestDate,
		"role":          s.Role,
	}
}

func registrationJSON(r models.Registration) gin.H {
	return gin.H{
		"id":            r.ID,
		"centerName":    r.CenterName,
		"centerAddress": r.CenterAddress,
		"pcName":        r.PCName,
		"macAddress":    r.MACAddress,
		"uuid":          r.UUID,
		"hostname":      r.Hostname,
		"platform":      r.Platform,
		"status":        r.Status,
		"registeredAt":  r.RegisteredAt,
	}
}

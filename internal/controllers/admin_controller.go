package controllers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zaqqye/examcenter_backend_v1/internal/models"
	"github.com/zaqqye/examcenter_backend_v1/internal/utils"
)

type AdminController struct {
	DB *gorm.DB
}

func (a *AdminController) ListRegistrations(c *gin.Context) {
	limit := 50
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

	base := a.DB.Model(&models.Registration{})
	if status := strings.TrimSpace(strings.ToLower(c.Query("status"))); status != "" {
		if status != "active" && status != "inactive" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		base = base.Where("status = ?", status)
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		like := "%" + q + "%"
		base = base.Where("pc_name ILIKE ? OR center_name ILIKE ? OR mac_address ILIKE ?", like, like, like)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var registrations []models.Registration
	if err := base.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&registrations).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	out := make([]gin.H, 0, len(registrations))
	for _, r := range registrations {
		entry := registrationJSON(r)
		entry["studentId"] = r.StudentIDRef
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, gin.H{
		"registrations": out,
		"meta":          gin.H{"total": total, "limit": limit, "page": page},
	})
}

func (a *AdminController) UpdateRegistrationStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid registration id"})
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status is required"})
		return
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status != "active" && status != "inactive" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	var registration models.Registration
	if err := a.DB.First(&registration, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Registration not found"})
		return
	}
	registration.Status = status
	if err := a.DB.Save(&registration).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Status updated successfully", "registration": registrationJSON(registration)})
}

func (a *AdminController) ListStudents(c *gin.Context) {
	limit := 50
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

	base := a.DB.Model(&models.Student{})
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		like := "%" + q + "%"
		base = base.Where("name ILIKE ? OR email ILIKE ? OR student_id ILIKE ?", like, like, like)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var students []models.Student
	if err := base.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&students).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	out := make([]gin.H, 0, len(students))
	for _, s := range students {
		out = append(out, studentJSON(s))
	}
	c.JSON(http.StatusOK, gin.H{
		"students": out,
		"meta":     gin.H{"total": total, "limit": limit, "page": page},
	})
}

func (a *AdminController) GetStudent(c *gin.Context) {
	student, ok := a.findStudent(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": studentJSON(student)})
}

type createStudentRequest struct {
	Name         string `json:"name" binding:"required"`
	DOB          string `json:"dob" binding:"required"`
	StudentPhoto string `json:"student_photo" binding:"required"`
	Email        string `json:"email" binding:"required"`
	Phone        string `json:"phone"`
	Address      string `json:"address" binding:"required"`
	Nationality  string `json:"nationality" binding:"required"`
	RollNo       string `json:"roll_no"`
	TestDate     string `json:"test_date"`
}

func (a *AdminController) CreateStudent(c *gin.Context) {
	var req createStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name, DOB, student photo, email, address, and nationality are required"})
		return
	}

	dob, err := time.Parse("2006-01-02", strings.TrimSpace(req.DOB))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dob, expected YYYY-MM-DD"})
		return
	}
	var testDate *time.Time
	if strings.TrimSpace(req.TestDate) != "" {
		td, err := time.Parse("2006-01-02", strings.TrimSpace(req.TestDate))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid test_date, expected YYYY-MM-DD"})
			return
		}
		testDate = &td
	}

	var student models.Student
	err = a.DB.Transaction(func(tx *gorm.DB) error {
		studentID, err := nextStudentID(tx)
		if err != nil {
			return err
		}
		hashed, err := utils.HashPassword(dobPassword(dob))
		if err != nil {
			return err
		}
		rollNo := strings.TrimSpace(req.RollNo)
		if rollNo == "" {
			rollNo, err = utils.GenerateCode(8)
			if err != nil {
				return err
			}
		}
		unr, err := generateUNR(dob)
		if err != nil {
			return err
		}
		student = models.Student{
			StudentID:    studentID,
			Name:         req.Name,
			Password:     hashed,
			DOB:          dob,
			StudentPhoto: req.StudentPhoto,
			UNR:          unr,
			Email:        strings.ToLower(strings.TrimSpace(req.Email)),
			Phone:        req.Phone,
			Address:      req.Address,
			Nationality:  req.Nationality,
			RollNo:       rollNo,
			TestDate:     testDate,
			Role:         "student",
		}
		return tx.Create(&student).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Student created successfully", "student": studentJSON(student)})
}

type updateStudentRequest struct {
	Name         *string `json:"name"`
	DOB          *string `json:"dob"`
	StudentPhoto *string `json:"student_photo"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	Address      *string `json:"address"`
	Nationality  *string `json:"nationality"`
	RollNo       *string `json:"roll_no"`
	TestDate     *string `json:"test_date"`
	Password     *string `json:"password"`
}

func (a *AdminController) UpdateStudent(c *gin.Context) {
	student, ok := a.findStudent(c)
	if !ok {
		return
	}
	var req updateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != nil {
		student.Name = *req.Name
	}
	if req.DOB != nil {
		dob, err := time.Parse("2006-01-02", strings.TrimSpace(*req.DOB))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dob, expected YYYY-MM-DD"})
			return
		}
		student.DOB = dob
	}
	if req.StudentPhoto != nil {
		student.StudentPhoto = *req.StudentPhoto
	}
	if req.Email != nil {
		student.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Phone != nil {
		student.Phone = *req.Phone
	}
	if req.Address != nil {
		student.Address = *req.Address
	}
	if req.Nationality != nil {
		student.Nationality = *req.Nationality
	}
	if req.RollNo != nil {
		student.RollNo = *req.RollNo
	}
	if req.TestDate != nil {
		if strings.TrimSpace(*req.TestDate) == "" {
			student.TestDate = nil
		} else {
			td, err := time.Parse("2006-01-02", strings.TrimSpace(*req.TestDate))
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid test_date, expected YYYY-MM-DD"})
				return
			}
			student.TestDate = &td
		}
	}
	if req.Password != nil && strings.TrimSpace(*req.Password) != "" {
		hashed, err := utils.HashPassword(strings.TrimSpace(*req.Password))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
			return
		}
		student.Password = hashed
	}

	if err := a.DB.Save(&student).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student updated successfully", "student": studentJSON(student)})
}

func (a *AdminController) UpdateStudentRole(c *gin.Context) {
	student, ok := a.findStudent(c)
	if !ok {
		return
	}
	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Role is required"})
		return
	}

	student.Role = strings.ToLower(strings.TrimSpace(req.Role))
	if err := a.DB.Save(&student).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Role updated successfully", "student": studentJSON(student)})
}

func (a *AdminController) DeleteStudent(c *gin.Context) {
	student, ok := a.findStudent(c)
	if !ok {
		return
	}
	err := a.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("student_id_ref = ?", student.ID).Delete(&models.LoginSession{}).Error; err != nil {
			return err
		}
		if err := tx.Where("student_id_ref = ?", student.ID).Delete(&models.ExamAssignment{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Registration{}).
			Where("student_id_ref = ?", student.ID).
			Update("student_id_ref", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Student{}, student.ID).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student deleted successfully"})
}

type studentImportError struct {
	Row   int    `json:"row"`
	Email string `json:"email,omitempty"`
	Error string `json:"error"`
}

// ImportStudents bulk-creates students from a CSV upload.
// Expected header columns (case-insensitive):
// name, dob, email, student_photo (optional), phone (optional),
// address (optional), nationality (optional), roll_no (optional),
// test_date (optional)
func (a *AdminController) ImportStudents(c *gin.Context) {
	// Limit max upload size (10MB) to avoid accidental huge files.
	if err := c.Request.ParseMultipartForm(10 << 20); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse form"})
		return
	}
	file, fileHeader, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer file.Close()

	if fileHeader == nil || fileHeader.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file name"})
		return
	}
	filename := strings.ToLower(strings.TrimSpace(fileHeader.Filename))
	if !strings.HasSuffix(filename, ".csv") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only .csv files are allowed"})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	if len(bytes.TrimSpace(data)) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is empty"})
		return
	}

	// Normalise line endings so files saved with only CR or CRLF behave consistently.
	data = bytes.ReplaceAll(data, []byte{'\r', '\n'}, []byte{'\n'})
	data = bytes.ReplaceAll(data, []byte{'\r'}, []byte{'\n'})

	delimiter := ','
	firstLineEnd := bytes.IndexByte(data, '\n')
	if firstLineEnd == -1 {
		firstLineEnd = len(data)
	}
	firstLine := data[:firstLineEnd]
	firstLine = bytes.TrimPrefix(firstLine, []byte{0xEF, 0xBB, 0xBF})
	if bytes.Contains(firstLine, []byte{';'}) && !bytes.Contains(firstLine, []byte{','}) {
		delimiter = ';'
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	if delimiter != ',' {
		reader.Comma = delimiter
	}

	header, err := reader.Read()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read header"})
		return
	}
	cleanHeader := func(val string) string {
		v := strings.TrimSpace(val)
		for strings.HasPrefix(v, "\uFEFF") {
			v = strings.TrimPrefix(v, "\uFEFF")
		}
		v = strings.Trim(v, "\"'")
		return v
	}
	headerIdx := make(map[string]int, len(header))
	for idx, col := range header {
		key := strings.ToLower(cleanHeader(col))
		if key != "" {
			headerIdx[key] = idx
		}
	}
	log.Printf("import csv headers: %+v", header)

	for _, key := range []string{"name", "dob", "email"} {
		if _, ok := headerIdx[key]; !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("missing header column: %s", key)})
			return
		}
	}

	getVal := func(record []string, key string) string {
		idx, ok := headerIdx[key]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var (
		totalRows   int
		createdRows int
		failures    []studentImportError
	)

	rowNum := 1 // already consumed header line
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			failures = append(failures, studentImportError{
				Row:   rowNum + 1,
				Error: fmt.Sprintf("failed to read row: %v", err),
			})
			continue
		}
		rowNum++
		totalRows++

		name := getVal(row, "name")
		dobStr := getVal(row, "dob")
		email := strings.ToLower(getVal(row, "email"))

		if name == "" || dobStr == "" || email == "" {
			failures = append(failures, studentImportError{
				Row:   rowNum,
				Email: email,
				Error: "name, dob, and email are required",
			})
			continue
		}

		dob, err := time.Parse("2006-01-02", dobStr)
		if err != nil {
			failures = append(failures, studentImportError{
				Row:   rowNum,
				Email: email,
				Error: "invalid dob, expected YYYY-MM-DD",
			})
			continue
		}
		var testDate *time.Time
		if td := getVal(row, "test_date"); td != "" {
			parsed, err := time.Parse("2006-01-02", td)
			if err != nil {
				failures = append(failures, studentImportError{
					Row:   rowNum,
					Email: email,
					Error: "invalid test_date, expected YYYY-MM-DD",
				})
				continue
			}
			testDate = &parsed
		}

		if existingErr := a.DB.Where("email = ?", email).First(&models.Student{}).Error; existingErr == nil {
			failures = append(failures, studentImportError{
				Row:   rowNum,
				Email: email,
				Error: "email already exists",
			})
			continue
		} else if !errors.Is(existingErr, gorm.ErrRecordNotFound) {
			failures = append(failures, studentImportError{
				Row:   rowNum,
				Email: email,
				Error: fmt.Sprintf("failed to check existing student: %v", existingErr),
			})
			continue
		}

		if err := a.DB.Transaction(func(tx *gorm.DB) error {
			studentID, err := nextStudentID(tx)
			if err != nil {
				return err
			}
			hashed, err := utils.HashPassword(dobPassword(dob))
			if err != nil {
				return err
			}
			rollNo := getVal(row, "roll_no")
			if rollNo == "" {
				rollNo, err = utils.GenerateCode(8)
				if err != nil {
					return err
				}
			}
			unr, err := generateUNR(dob)
			if err != nil {
				return err
			}
			return tx.Create(&models.Student{
				StudentID:    studentID,
				Name:         name,
				Password:     hashed,
				DOB:          dob,
				StudentPhoto: getVal(row, "student_photo"),
				UNR:          unr,
				Email:        email,
				Phone:        getVal(row, "phone"),
				Address:      getVal(row, "address"),
				Nationality:  getVal(row, "nationality"),
				RollNo:       rollNo,
				TestDate:     testDate,
				Role:         "student",
			}).Error
		}); err != nil {
			failures = append(failures, studentImportError{
				Row:   rowNum,
				Email: email,
				Error: fmt.Sprintf("failed to insert student: %v", err),
			})
			continue
		}

		createdRows++
	}

	c.JSON(http.StatusOK, gin.H{
		"summary": gin.H{
			"total_rows": totalRows,
			"inserted":   createdRows,
			"failed":     len(failures),
		},
		"errors": failures,
	})
}

func (a *AdminController) findStudent(c *gin.Context) (models.Student, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student id"})
		return models.Student{}, false
	}
	var student models.Student
	if err := a.DB.First(&student, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return models.Student{}, false
	}
	return student, true
}

// nextStudentID allocates the next sequential external code, STU000001 and up.
func nextStudentID(tx *gorm.DB) (string, error) {
	var last models.Student
	res := tx.Order("created_at DESC").Limit(1).Find(&last)
	if res.Error != nil {
		return "", res.Error
	}
	next := 1
	if res.RowsAffected > 0 && strings.HasPrefix(last.StudentID, "STU") {
		if n, err := strconv.Atoi(last.StudentID[3:]); err == nil {
			next = n + 1
		}
	}
	return fmt.Sprintf("STU%06d", next), nil
}

// dobPassword derives the initial password from the date of birth, DDMMYY.
func dobPassword(dob time.Time) string {
	return dob.Format("020106")
}

func generateUNR(dob time.Time) (string, error) {
	suffix, err := utils.GenerateCode(10)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("LCA/%s/%s", dob.Format("020106"), suffix), nil
}

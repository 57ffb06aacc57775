package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zaqqye/examcenter_backend_v1/internal/config"
	"github.com/zaqqye/examcenter_backend_v1/internal/controllers"
	"github.com/zaqqye/examcenter_backend_v1/internal/middleware"
	"github.com/zaqqye/examcenter_backend_v1/internal/ws"
)

func Register(r *gin.Engine, db *gorm.DB, cfg *config.Config, hubs *ws.Hubs) {
	expiresMins, err := time.ParseDuration(cfg.JWTExpiresIn + "m")
	if err != nil || expiresMins == 0 {
		expiresMins = 480 * time.Minute
	}

	authCtrl := &controllers.AuthController{DB: db, JWTSecret: cfg.JWTSecret, ExpiresIn: expiresMins}
	examCtrl := &controllers.ExamController{DB: db}
	adminCtrl := &controllers.AdminController{DB: db}
	assignCtrl := &controllers.AssignmentController{DB: db}
	paperCtrl := &controllers.PaperController{DB: db}
	sessionCtrl := &controllers.SessionController{DB: db}
	agentCtrl := &controllers.AgentController{DB: db, JWTSecret: cfg.JWTSecret, ExpiresIn: expiresMins, Signal: hubs.Signal}

	// Public. The exam client on each lab PC calls these before anyone is
	// logged in, so they carry no token.
	auth := r.Group("/auth")
	{
		auth.POST("/register", authCtrl.RegisterPC)
		auth.POST("/login", authCtrl.Login)
		auth.POST("/auto-login", authCtrl.AutoLogin)
		auth.POST("/admin-login", authCtrl.AdminLogin)
	}

	// Kiosk lifecycle endpoints, also unauthenticated for the same reason.
	r.POST("/admin/start-exam", examCtrl.StartExam)
	r.GET("/admin/check-exam-status", examCtrl.CheckExamStatus)
	r.GET("/admin/check-auto-login", examCtrl.CheckAutoLogin)

	r.POST("/agents/login", agentCtrl.Login)

	// WebRTC signaling relay for proctor and student peers.
	r.GET("/ws/signal", ws.SignalHandler(hubs))

	authMW := middleware.AuthMiddleware(db, middleware.AuthConfig{JWTSecret: cfg.JWTSecret})

	admin := r.Group("/admin", authMW, middleware.RequireRoles("admin"))
	{
		admin.GET("/registrations", adminCtrl.ListRegistrations)
		admin.PUT("/registrations/:id/status", adminCtrl.UpdateRegistrationStatus)

		admin.GET("/students", adminCtrl.ListStudents)
		admin.POST("/students", adminCtrl.CreateStudent)
		admin.POST("/students/import", adminCtrl.ImportStudents)
		admin.GET("/students/:id", adminCtrl.GetStudent)
		admin.PUT("/students/:id", adminCtrl.UpdateStudent)
		admin.PUT("/students/:id/role", adminCtrl.UpdateStudentRole)
		admin.DELETE("/students/:id", adminCtrl.DeleteStudent)

		admin.GET("/agents", agentCtrl.List)
		admin.POST("/agents", agentCtrl.Create)
		admin.PUT("/agents/:id", agentCtrl.Update)
		admin.DELETE("/agents/:id", agentCtrl.Delete)

		admin.POST("/exam-assignments", assignCtrl.Create)
		admin.GET("/exam-assignments", assignCtrl.List)
		admin.GET("/exam-assignments/:id", assignCtrl.Get)
		admin.PUT("/exam-assignments/:id", assignCtrl.Update)
		admin.PUT("/exam-assignments/:id/status", assignCtrl.UpdateStatus)
		admin.PUT("/exam-assignments/:id/visibility", assignCtrl.UpdateVisibility)
		admin.DELETE("/exam-assignments/:id", assignCtrl.Delete)

		admin.GET("/exam-papers/:type", paperCtrl.Summaries)

		admin.GET("/papers/:type", paperCtrl.List)
		admin.POST("/papers/:type", paperCtrl.Create)
		admin.GET("/papers/:type/:id", paperCtrl.Get)
		admin.PUT("/papers/:type/:id", paperCtrl.Update)
		admin.DELETE("/papers/:type/:id", paperCtrl.Delete)

		admin.POST("/login-sessions", sessionCtrl.Create)
		admin.GET("/login-sessions", sessionCtrl.List)
		admin.PUT("/login-sessions/:id", sessionCtrl.Update)
	}

	agents := r.Group("/agents", authMW, middleware.RequireRoles("agent"))
	{
		agents.GET("/:id/assigned-exams", agentCtrl.AssignedExams)
		agents.GET("/:id/current-session", agentCtrl.CurrentSession)
		agents.POST("/:id/start-monitoring/:examId", agentCtrl.StartMonitoring)
		agents.POST("/:id/end-monitoring/:examId", agentCtrl.EndMonitoring)
	}
}

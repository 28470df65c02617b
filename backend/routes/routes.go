package routes

import (
	"strings"
	"time"
	"vidyasetu/backend/config"
	"vidyasetu/backend/controllers"
	"vidyasetu/backend/middleware"
	"vidyasetu/backend/models"
	"vidyasetu/backend/services"
	"vidyasetu/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"
)

// Deps are the long-lived collaborators shared by every handler.
type Deps struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Log      *utils.Logger
	Scorer   services.Scorer
	Calendar services.CalendarClient
	Store    services.FileStore
	Metrics  *middleware.Metrics
}

// NewApp builds the Fiber application with the global middleware stack and
// every route registered.
func NewApp(d Deps) *fiber.App {
	if d.Metrics == nil {
		d.Metrics = middleware.NewMetrics()
	}
	bodyLimit := 4 << 20
	if mb := d.Cfg.UploadMaxMB; mb > 0 && mb<<20+1<<20 > bodyLimit {
		bodyLimit = mb<<20 + 1<<20
	}

	app := fiber.New(fiber.Config{
		AppName:      "VidyaSetu API",
		ErrorHandler: utils.ErrorHandler,
		BodyLimit:    bodyLimit,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(d.Metrics.Middleware())
	app.Use(middleware.LoggingMiddleware(d.Log))
	app.Use(cors.New(cors.Config{
		AllowOrigins: d.Cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	SetupRoutes(app, d)
	return app
}

func SetupRoutes(app *fiber.App, d Deps) {
	db, cfg := d.DB, d.Cfg

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", d.Metrics.Handler())

	authMiddleware := middleware.AuthMiddleware(db, cfg)
	studentOnly := middleware.RequireRole(models.RoleStudent)
	teacherOnly := middleware.RequireRole(models.RoleTeacher)
	loginLimiter := loginRateLimiter(cfg)

	// Student accounts
	authController := controllers.NewAuthController(db, cfg, d.Log)
	auth := app.Group("/api/auth")
	auth.Post("/signup", authController.Signup)
	auth.Post("/login", loginLimiter, authController.Login)
	auth.Post("/verify-token", authMiddleware, authController.VerifyToken)
	auth.Get("/profile", authMiddleware, studentOnly, authController.Profile)
	auth.Get("/certificates", authMiddleware, studentOnly, authController.Certificates)
	auth.Put("/:id", authMiddleware, studentOnly, authController.Update)
	auth.Delete("/:id", authMiddleware, studentOnly, authController.Delete)

	// Teacher accounts
	teacherController := controllers.NewTeacherController(db, cfg, d.Log)
	teacher := app.Group("/api/teacher")
	teacher.Post("/signup", teacherController.Signup)
	teacher.Post("/login", loginLimiter, teacherController.Login)
	teacher.Get("/profile", authMiddleware, teacherOnly, teacherController.Profile)
	teacher.Put("/:id", authMiddleware, teacherOnly, teacherController.Update)
	teacher.Delete("/:id", authMiddleware, teacherOnly, teacherController.Delete)

	// Courses
	coursesController := controllers.NewCoursesController(db, cfg, d.Log, d.Store)
	overviewController := controllers.NewOverviewController(db, cfg)
	course := app.Group("/api/course", authMiddleware)
	course.Post("/create", teacherOnly, coursesController.Create)
	course.Get("/all", coursesController.All)
	course.Get("/search", overviewController.SearchCourses)
	course.Post("/upload", teacherOnly, coursesController.Upload)
	course.Get("/notes", studentOnly, coursesController.Notes)
	course.Get("/courses", teacherOnly, coursesController.TeacherCourses)
	course.Get("/:id", coursesController.Get)
	course.Post("/:id/enroll", studentOnly, coursesController.Enroll)
	course.Post("/:id/lessons", teacherOnly, coursesController.AddLesson)
	course.Post("/:id/meetings", teacherOnly, coursesController.AddMeeting)

	// SAQ tests
	testsController := controllers.NewTestsController(db, cfg, d.Log, d.Scorer, d.Metrics)
	analyticsController := controllers.NewAnalyticsController(db, cfg)
	saq := app.Group("/api/saq", authMiddleware)
	saq.Post("/create", teacherOnly, testsController.Create)
	saq.Get("/student/available-tests", studentOnly, testsController.AvailableTests)
	saq.Get("/student/submissions", studentOnly, testsController.StudentSubmissions)
	saq.Post("/submit", studentOnly, testsController.Submit)
	saq.Post("/evaluate", testsController.Evaluate)
	saq.Get("/scores/:saqTestId", teacherOnly, analyticsController.Scores)
	saq.Get("/teacher/tests", teacherOnly, testsController.TeacherTests)
	saq.Get("/teacher/analytics", teacherOnly, analyticsController.TeacherAnalytics)
	saq.Get("/teacher/saq/:saqId/submissions", teacherOnly, analyticsController.Submissions)
	saq.Get("/teacher/saq/:saqId/analytics", teacherOnly, analyticsController.TestAnalytics)
	saq.Get("/:saqId", testsController.Get)

	// Feedback forms
	feedbackController := controllers.NewFeedbackController(db, cfg)
	feedback := app.Group("/api/feedback", authMiddleware)
	feedback.Post("/", teacherOnly, feedbackController.Create)
	feedback.Get("/", feedbackController.Active)
	feedback.Get("/latest", feedbackController.Latest)
	feedback.Get("/teacher", teacherOnly, feedbackController.Mine)

	// Calendar meetings
	meetController := controllers.NewMeetController(db, cfg, d.Log, d.Calendar)
	meet := app.Group("/api/meet")
	meet.Get("/auth", authMiddleware, teacherOnly, meetController.AuthURL)
	meet.Get("/auth/callback", meetController.AuthCallback)
	meet.Post("/create-meet", authMiddleware, teacherOnly, meetController.CreateMeet)
	meet.Get("/meetings", authMiddleware, meetController.Meetings)

	// Chat
	chatController := controllers.NewChatController(db, cfg)
	chat := app.Group("/api/chat", authMiddleware, studentOnly)
	chat.Get("/:studentId", chatController.History)
	chat.Post("/", chatController.Post)

	// Progress and attendance
	progressController := controllers.NewProgressController(db, cfg)
	progress := app.Group("/api/progress", authMiddleware)
	progress.Post("/attendance", teacherOnly, progressController.MarkAttendance)
	progress.Get("/attendance", studentOnly, progressController.Attendance)
	progress.Get("/overview", studentOnly, overviewController.Overview)
}

func loginRateLimiter(cfg *config.Config) fiber.Handler {
	if cfg.LoginRateLimit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        cfg.LoginRateLimit,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|" + strings.TrimPrefix(c.Path(), "/api/")
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.Error(c, fiber.StatusTooManyRequests, "Too many login attempts, try again later")
		},
	})
}

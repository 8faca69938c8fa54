package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"rainforest/backend/authz"
	"rainforest/backend/config"
	"rainforest/backend/controllers"
	"rainforest/backend/middleware"
	"rainforest/backend/notify"
	"rainforest/backend/stats"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, log *logrus.Logger, dispatcher *notify.Dispatcher) {
	engine := authz.NewEngine(db)
	statsService := stats.NewService(db)

	// Auth routes
	authController := controllers.NewAuthController(db, cfg)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(db, cfg)
	adminMiddleware := middleware.AdminMiddleware()
	teacherMiddleware := middleware.TeacherMiddleware()

	// User routes
	userController := controllers.NewUserController(db, cfg)
	app.Get("/api/user/profile", authMiddleware, userController.GetProfile)
	app.Put("/api/user/profile", authMiddleware, userController.UpdateProfile)
	app.Get("/api/users/:id", authMiddleware, userController.GetUser)

	// Admin routes for users
	adminUsers := app.Group("/api/admin/users", authMiddleware, adminMiddleware)
	adminUsers.Get("/", userController.ListUsers)
	adminUsers.Put("/:id", userController.UpdateUser)
	adminUsers.Delete("/:id", userController.DeleteUser)

	// Classes routes
	classesController := controllers.NewClassesController(db, cfg, engine, dispatcher, log)
	classes := app.Group("/api/classes", authMiddleware)
	classes.Post("/", teacherMiddleware, classesController.CreateClass)
	classes.Get("/", classesController.ListClasses)
	classes.Get("/:id", classesController.GetClass)
	classes.Put("/:id", classesController.UpdateClass)
	classes.Delete("/:id", classesController.DeleteClass)
	classes.Post("/:id/members", classesController.AddMember)
	classes.Get("/:id/members", classesController.ListMembers)
	classes.Delete("/:id/members/:userId", classesController.RemoveMember)
	classes.Post("/:id/invite", classesController.Invite)

	// Courses routes
	coursesController := controllers.NewCoursesController(db, cfg, engine)
	courses := app.Group("/api/courses", authMiddleware)
	courses.Post("/", teacherMiddleware, coursesController.CreateCourse)
	courses.Get("/", coursesController.ListCourses)
	courses.Get("/:id", coursesController.GetCourse)
	courses.Put("/:id", coursesController.UpdateCourse)
	courses.Delete("/:id", coursesController.DeleteCourse)

	// Assignments routes
	assignmentsController := controllers.NewAssignmentsController(db, cfg, engine, dispatcher, log)
	assignments := app.Group("/api/assignments", authMiddleware)
	assignments.Post("/", teacherMiddleware, assignmentsController.CreateAssignment)
	assignments.Post("/upload", teacherMiddleware, assignmentsController.CreateAssignmentWithAttachment)
	assignments.Get("/", assignmentsController.ListAssignments)
	assignments.Get("/:id", assignmentsController.GetAssignment)
	assignments.Put("/:id", assignmentsController.UpdateAssignment)
	assignments.Delete("/:id", assignmentsController.DeleteAssignment)

	// Submissions routes
	submissionsController := controllers.NewSubmissionsController(db, cfg, engine, log)
	submissions := app.Group("/api/submissions", authMiddleware)
	submissions.Post("/", submissionsController.CreateSubmission)
	submissions.Get("/", submissionsController.ListSubmissions)
	submissions.Get("/:id", submissionsController.GetSubmission)
	submissions.Delete("/:id", submissionsController.DeleteSubmission)

	// Gradings routes
	gradingsController := controllers.NewGradingsController(db, cfg, engine, dispatcher, log)
	gradings := app.Group("/api/gradings", authMiddleware)
	gradings.Post("/", teacherMiddleware, gradingsController.CreateGrading)
	gradings.Get("/:id", gradingsController.GetGrading)
	gradings.Put("/:id", teacherMiddleware, gradingsController.UpdateGrading)

	// Nested reads
	app.Get("/api/classes/:classId/courses", authMiddleware, coursesController.GetClassCourses)
	app.Get("/api/courses/:courseId/assignments", authMiddleware, assignmentsController.GetCourseAssignments)
	app.Get("/api/submissions/:submissionId/grading", authMiddleware, gradingsController.GetSubmissionGrading)

	// Notifications routes
	notificationsController := controllers.NewNotificationsController(db, cfg)
	notifications := app.Group("/api/notifications", authMiddleware)
	notifications.Get("/", notificationsController.ListNotifications)
	notifications.Put("/read-all", notificationsController.MarkAllRead)
	notifications.Get("/:id", notificationsController.GetNotification)
	notifications.Put("/:id/read", notificationsController.MarkRead)
	notifications.Delete("/:id", notificationsController.DeleteNotification)

	// Statistics routes
	statisticsController := controllers.NewStatisticsController(db, cfg, engine, statsService)
	statistics := app.Group("/api/statistics", authMiddleware)
	statistics.Get("/assignments/:id", statisticsController.GetAssignmentStatistics)
	statistics.Get("/courses/:id", statisticsController.GetCourseStatistics)
	statistics.Get("/classes/:id", statisticsController.GetClassStatistics)
	statistics.Get("/users/:id", statisticsController.GetUserStatistics)
}

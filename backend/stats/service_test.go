package stats

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rainforest/backend/errs"
	"rainforest/backend/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	return db
}

type fixture struct {
	db  *gorm.DB
	svc *Service

	teacher    models.User
	studentA   models.User
	studentB   models.User
	class      models.Class
	course     models.Course
	assignment models.Assignment
}

// newFixture: класс с двумя студентами, курс и задание. Первый студент
// сдал работу, и она оценена на 85; второй не сдавал.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testDB(t)
	f := &fixture{db: db, svc: NewService(db)}

	users := []*models.User{&f.teacher, &f.studentA, &f.studentB}
	roles := []string{models.RoleTeacher, models.RoleStudent, models.RoleStudent}
	names := []string{"teacher", "studentA", "studentB"}
	for i, u := range users {
		*u = models.User{Username: names[i], Email: names[i] + "@example.com", PasswordHash: "x", Role: roles[i], IsActive: true}
		require.NoError(t, db.Create(u).Error)
	}

	f.class = models.Class{Name: "7B", CreatedBy: f.teacher.ID}
	require.NoError(t, db.Create(&f.class).Error)
	for _, m := range []models.ClassMember{
		{ClassID: f.class.ID, UserID: f.teacher.ID, Role: models.ClassRoleTeacher},
		{ClassID: f.class.ID, UserID: f.studentA.ID, Role: models.ClassRoleStudent},
		{ClassID: f.class.ID, UserID: f.studentB.ID, Role: models.ClassRoleStudent},
	} {
		require.NoError(t, db.Create(&m).Error)
	}

	f.course = models.Course{Name: "Algebra", ClassID: f.class.ID, TeacherID: f.teacher.ID}
	require.NoError(t, db.Create(&f.course).Error)

	f.assignment = models.Assignment{
		Title:       "Homework 1",
		CourseID:    f.course.ID,
		DueDate:     time.Now().AddDate(0, 0, 7),
		TotalPoints: 100,
	}
	require.NoError(t, db.Create(&f.assignment).Error)

	submission := models.Submission{
		AssignmentID: f.assignment.ID,
		StudentID:    f.studentA.ID,
		FileURL:      "/uploads/a.pdf",
		Status:       models.SubmissionGraded,
	}
	require.NoError(t, db.Create(&submission).Error)
	grading := models.Grading{SubmissionID: submission.ID, TeacherID: f.teacher.ID, Score: 85, GradedAt: time.Now()}
	require.NoError(t, db.Create(&grading).Error)

	return f
}

func TestAssignmentReport(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.Assignment(f.assignment.ID)
	require.NoError(t, err)

	assert.EqualValues(t, 2, report.TotalStudents)
	assert.EqualValues(t, 1, report.TotalSubmissions)
	assert.Equal(t, 0.5, report.SubmissionRate)
	assert.EqualValues(t, 1, report.GradedSubmissions)
	assert.Equal(t, 1.0, report.GradingRate)
	assert.Equal(t, 85.0, report.AverageScore)
	assert.Equal(t, 85.0, report.HighestScore)
	assert.Equal(t, 85.0, report.LowestScore)
	assert.Equal(t, 1, report.ScoreDistribution.Counts[8]) // 85 в корзине 81-90
}

func TestAssignmentReportEmpty(t *testing.T) {
	f := newFixture(t)

	empty := models.Assignment{Title: "Untouched", CourseID: f.course.ID, DueDate: time.Now(), TotalPoints: 100}
	require.NoError(t, f.db.Create(&empty).Error)

	report, err := f.svc.Assignment(empty.ID)
	require.NoError(t, err)

	assert.Zero(t, report.TotalSubmissions)
	assert.Zero(t, report.SubmissionRate)
	assert.Zero(t, report.GradingRate)
	assert.Zero(t, report.AverageScore)
}

func TestAssignmentReportNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Assignment(9999)
	assert.True(t, errs.IsNotFound(err))
}

func TestCourseReport(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.Course(f.course.ID)
	require.NoError(t, err)

	assert.EqualValues(t, 2, report.TotalStudents)
	assert.EqualValues(t, 1, report.TotalAssignments)
	assert.Equal(t, 0.5, report.AverageSubmissionRate)
	assert.Equal(t, 85.0, report.AverageCourseScore)
	require.Len(t, report.Assignments, 1)
	assert.Equal(t, "Homework 1", report.Assignments[0].Title)
}

func TestCourseReportWithoutAssignments(t *testing.T) {
	f := newFixture(t)

	bare := models.Course{Name: "Geometry", ClassID: f.class.ID, TeacherID: f.teacher.ID}
	require.NoError(t, f.db.Create(&bare).Error)

	report, err := f.svc.Course(bare.ID)
	require.NoError(t, err)

	assert.Zero(t, report.TotalAssignments)
	assert.Zero(t, report.AverageSubmissionRate)
	assert.Zero(t, report.AverageCourseScore)
	assert.Empty(t, report.Assignments)
}

func TestClassReport(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.Class(f.class.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalStudents)
	assert.Equal(t, 1, report.TotalCourses)
	require.Len(t, report.Students, 2)

	byID := map[uint]ClassStudentReport{}
	for _, s := range report.Students {
		byID[s.StudentID] = s
	}
	assert.EqualValues(t, 1, byID[f.studentA.ID].TotalSubmissions)
	assert.Equal(t, 85.0, byID[f.studentA.ID].AverageScore)
	assert.Zero(t, byID[f.studentB.ID].TotalSubmissions)
	assert.Zero(t, byID[f.studentB.ID].AverageScore)
}

func TestUserReportStudent(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.User(f.studentA.ID)
	require.NoError(t, err)
	require.Len(t, report.Courses, 1)

	course := report.Courses[0]
	assert.Equal(t, 1, course.CompletedAssignments)
	assert.Equal(t, 1, course.GradedAssignments)
	require.NotNil(t, course.AverageScore)
	assert.Equal(t, 85.0, *course.AverageScore)
	require.Len(t, course.Assignments, 1)
	assert.Equal(t, StatusGraded, course.Assignments[0].Status)
	require.NotNil(t, course.Assignments[0].Score)
	assert.Equal(t, 85.0, *course.Assignments[0].Score)
}

// Средний балл остаётся null, пока нет ни одной проверенной работы.
func TestUserReportStudentWithoutGradedWork(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.User(f.studentB.ID)
	require.NoError(t, err)
	require.Len(t, report.Courses, 1)

	course := report.Courses[0]
	assert.Zero(t, course.CompletedAssignments)
	assert.Nil(t, course.AverageScore)
	require.Len(t, course.Assignments, 1)
	assert.Equal(t, StatusNotSubmitted, course.Assignments[0].Status)
	assert.Nil(t, course.Assignments[0].Score)
}

func TestUserReportTeacher(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.User(f.teacher.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, report.TotalCourses)
	require.Len(t, report.TaughtCourses, 1)
	assert.EqualValues(t, 1, report.TaughtCourses[0].TotalAssignments)
	assert.EqualValues(t, 2, report.TaughtCourses[0].TotalStudents)
}

func TestUserReportAdmin(t *testing.T) {
	f := newFixture(t)

	admin := models.User{Username: "admin", Email: "admin@example.com", PasswordHash: "x", Role: models.RoleAdmin, IsActive: true}
	require.NoError(t, f.db.Create(&admin).Error)

	report, err := f.svc.User(admin.ID)
	require.NoError(t, err)

	assert.EqualValues(t, 4, report.TotalUsers)
	assert.EqualValues(t, 1, report.TotalClasses)
	assert.EqualValues(t, 1, report.TotalCoursesAll)
	assert.EqualValues(t, 1, report.TotalAssignments)
}

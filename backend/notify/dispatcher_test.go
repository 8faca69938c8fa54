package notify

import (
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rainforest/backend/authz"
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

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fixture struct {
	db         *gorm.DB
	dispatcher *Dispatcher

	teacher    models.User
	studentA   models.User
	studentB   models.User
	class      models.Class
	course     models.Course
	assignment models.Assignment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testDB(t)
	f := &fixture{
		db:         db,
		dispatcher: NewDispatcher(db, authz.NewEngine(db), quietLogger()),
	}

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
		DueDate:     time.Now().AddDate(0, 0, 2),
		TotalPoints: 100,
	}
	require.NoError(t, db.Create(&f.assignment).Error)

	return f
}

func (f *fixture) notifications(t *testing.T, userID uint) []models.Notification {
	t.Helper()
	var ns []models.Notification
	require.NoError(t, f.db.Where("user_id = ?", userID).Find(&ns).Error)
	return ns
}

func TestAssignmentCreatedNotifiesAllStudents(t *testing.T) {
	f := newFixture(t)

	count, err := f.dispatcher.Dispatch(AssignmentCreated{AssignmentID: f.assignment.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	for _, student := range []models.User{f.studentA, f.studentB} {
		ns := f.notifications(t, student.ID)
		require.Len(t, ns, 1)
		assert.Equal(t, models.NotificationAssignment, ns[0].Type)
		assert.Contains(t, ns[0].Title, "Homework 1")
		assert.False(t, ns[0].IsRead)
	}

	// Учитель в аудиторию не входит.
	assert.Empty(t, f.notifications(t, f.teacher.ID))

	// Студент, добавленный позже, задним числом ничего не получает.
	late := models.User{Username: "late", Email: "late@example.com", PasswordHash: "x", Role: models.RoleStudent, IsActive: true}
	require.NoError(t, f.db.Create(&late).Error)
	member := models.ClassMember{ClassID: f.class.ID, UserID: late.ID, Role: models.ClassRoleStudent}
	require.NoError(t, f.db.Create(&member).Error)
	assert.Empty(t, f.notifications(t, late.ID))
}

func TestGradingCompletedNotifiesStudentWithScore(t *testing.T) {
	f := newFixture(t)

	submission := models.Submission{
		AssignmentID: f.assignment.ID,
		StudentID:    f.studentA.ID,
		FileURL:      "/uploads/a.pdf",
		Status:       models.SubmissionGraded,
	}
	require.NoError(t, f.db.Create(&submission).Error)
	grading := models.Grading{SubmissionID: submission.ID, TeacherID: f.teacher.ID, Score: 85, GradedAt: time.Now()}
	require.NoError(t, f.db.Create(&grading).Error)

	count, err := f.dispatcher.Dispatch(GradingCompleted{SubmissionID: submission.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	ns := f.notifications(t, f.studentA.ID)
	require.Len(t, ns, 1)
	assert.Equal(t, models.NotificationFeedback, ns[0].Type)
	assert.Contains(t, ns[0].Content, "85/100")

	assert.Empty(t, f.notifications(t, f.studentB.ID))
}

func TestDueSoonSkipsStudentsWhoSubmitted(t *testing.T) {
	f := newFixture(t)

	submission := models.Submission{AssignmentID: f.assignment.ID, StudentID: f.studentA.ID, FileURL: "/uploads/a.pdf"}
	require.NoError(t, f.db.Create(&submission).Error)

	count, err := f.dispatcher.Dispatch(AssignmentDueSoon{AssignmentID: f.assignment.ID, DaysRemaining: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.Empty(t, f.notifications(t, f.studentA.ID))

	ns := f.notifications(t, f.studentB.ID)
	require.Len(t, ns, 1)
	assert.Equal(t, models.NotificationReminder, ns[0].Type)
	assert.Contains(t, ns[0].Content, "2 day(s)")
}

func TestMemberAddedNotifiesInvitee(t *testing.T) {
	f := newFixture(t)

	count, err := f.dispatcher.Dispatch(MemberAdded{ClassID: f.class.ID, UserID: f.studentA.ID, Role: models.ClassRoleStudent})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	ns := f.notifications(t, f.studentA.ID)
	require.Len(t, ns, 1)
	assert.Contains(t, ns[0].Title, f.class.Name)
	assert.Contains(t, ns[0].Content, "student")
}

func TestEmptyAudienceIsNotAnError(t *testing.T) {
	f := newFixture(t)

	// Все студенты уже сдали: напоминать некому.
	for _, s := range []models.User{f.studentA, f.studentB} {
		sub := models.Submission{AssignmentID: f.assignment.ID, StudentID: s.ID, FileURL: "/uploads/x.pdf"}
		require.NoError(t, f.db.Create(&sub).Error)
	}

	count, err := f.dispatcher.Dispatch(AssignmentDueSoon{AssignmentID: f.assignment.ID, DaysRemaining: 2})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDispatchUnknownAssignment(t *testing.T) {
	f := newFixture(t)

	_, err := f.dispatcher.Dispatch(AssignmentCreated{AssignmentID: 9999})
	assert.Error(t, err)
}

func TestReminderSweepHonorsDueWindow(t *testing.T) {
	f := newFixture(t)

	// Второе задание далеко за окном напоминаний.
	far := models.Assignment{Title: "Far away", CourseID: f.course.ID, DueDate: time.Now().AddDate(0, 0, 30), TotalPoints: 100}
	require.NoError(t, f.db.Create(&far).Error)

	reminder := NewReminder(f.db, f.dispatcher, quietLogger(), 3)
	reminder.Run()

	var reminders int64
	require.NoError(t, f.db.Model(&models.Notification{}).
		Where("type = ?", models.NotificationReminder).
		Count(&reminders).Error)
	// Два студента, одно задание в окне.
	assert.EqualValues(t, 2, reminders)

	var farReminders int64
	require.NoError(t, f.db.Model(&models.Notification{}).
		Where("type = ? AND title LIKE ?", models.NotificationReminder, "%Far away%").
		Count(&farReminders).Error)
	assert.Zero(t, farReminders)
}

package authz

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

// fixture — класс с учителем и двумя студентами, курс, задание и сдача
// первого студента. Рядом живут посторонние: учитель и студент не из
// класса.
type fixture struct {
	engine *Engine

	admin    models.User
	teacher  models.User
	teacher2 models.User
	studentA models.User
	studentB models.User
	outsider models.User

	class      models.Class
	course     models.Course
	assignment models.Assignment
	submission models.Submission
	grading    models.Grading
}

func newFixture(t *testing.T) (*gorm.DB, *fixture) {
	t.Helper()
	db := testDB(t)
	f := &fixture{engine: NewEngine(db)}

	users := []*models.User{&f.admin, &f.teacher, &f.teacher2, &f.studentA, &f.studentB, &f.outsider}
	roles := []string{models.RoleAdmin, models.RoleTeacher, models.RoleTeacher, models.RoleStudent, models.RoleStudent, models.RoleStudent}
	names := []string{"admin", "teacher", "teacher2", "studentA", "studentB", "outsider"}
	for i, u := range users {
		*u = models.User{
			Username:     names[i],
			Email:        names[i] + "@example.com",
			PasswordHash: "x",
			Role:         roles[i],
			IsActive:     true,
		}
		require.NoError(t, db.Create(u).Error)
	}

	f.class = models.Class{Name: "7B", CreatedBy: f.teacher.ID}
	require.NoError(t, db.Create(&f.class).Error)
	for _, m := range []models.ClassMember{
		{ClassID: f.class.ID, UserID: f.teacher.ID, Role: models.ClassRoleTeacher, JoinedAt: time.Now()},
		{ClassID: f.class.ID, UserID: f.studentA.ID, Role: models.ClassRoleStudent, JoinedAt: time.Now()},
		{ClassID: f.class.ID, UserID: f.studentB.ID, Role: models.ClassRoleStudent, JoinedAt: time.Now()},
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

	f.submission = models.Submission{
		AssignmentID:   f.assignment.ID,
		StudentID:      f.studentA.ID,
		FileURL:        "/uploads/assignments/1/a.pdf",
		SubmissionTime: time.Now(),
		Status:         models.SubmissionSubmitted,
	}
	require.NoError(t, db.Create(&f.submission).Error)

	f.grading = models.Grading{
		SubmissionID: f.submission.ID,
		TeacherID:    f.teacher.ID,
		Score:        85,
		GradedAt:     time.Now(),
	}
	require.NoError(t, db.Create(&f.grading).Error)

	return db, f
}

func denyReason(t *testing.T, err error) errs.DenyReason {
	t.Helper()
	var pe *errs.PermissionError
	require.ErrorAs(t, err, &pe)
	return pe.Reason
}

func TestAdminBypassesAllChecks(t *testing.T) {
	_, f := newFixture(t)

	assert.NoError(t, f.engine.Evaluate(&f.admin, ActionUpdate, KindClass, f.class.ID))
	assert.NoError(t, f.engine.Evaluate(&f.admin, ActionDelete, KindCourse, f.course.ID))
	assert.NoError(t, f.engine.Evaluate(&f.admin, ActionRead, KindSubmission, f.submission.ID))
	assert.NoError(t, f.engine.Evaluate(&f.admin, ActionStats, KindClass, f.class.ID))
}

func TestCreateCourseRequiresClassTeacher(t *testing.T) {
	_, f := newFixture(t)

	assert.NoError(t, f.engine.Evaluate(&f.teacher, ActionCreate, KindCourse, f.class.ID))

	err := f.engine.Evaluate(&f.teacher2, ActionCreate, KindCourse, f.class.ID)
	assert.Equal(t, errs.InsufficientRole, denyReason(t, err))

	// Студент класса всё равно получает отказ по глобальной роли.
	err = f.engine.Evaluate(&f.studentA, ActionCreate, KindCourse, f.class.ID)
	assert.Equal(t, errs.InsufficientRole, denyReason(t, err))
}

func TestCreateAssignmentUnderCourse(t *testing.T) {
	_, f := newFixture(t)

	assert.NoError(t, f.engine.Evaluate(&f.teacher, ActionCreate, KindAssignment, f.course.ID))

	err := f.engine.Evaluate(&f.teacher2, ActionCreate, KindAssignment, f.course.ID)
	assert.Equal(t, errs.InsufficientRole, denyReason(t, err))

	err = f.engine.Evaluate(&f.teacher, ActionCreate, KindAssignment, 9999)
	assert.True(t, errs.IsNotFound(err))
}

func TestSubmitRequiresStudentMembership(t *testing.T) {
	_, f := newFixture(t)

	assert.NoError(t, f.engine.Evaluate(&f.studentA, ActionSubmit, KindAssignment, f.assignment.ID))

	err := f.engine.Evaluate(&f.outsider, ActionSubmit, KindAssignment, f.assignment.ID)
	assert.Equal(t, errs.NotAMember, denyReason(t, err))

	err = f.engine.Evaluate(&f.teacher, ActionSubmit, KindAssignment, f.assignment.ID)
	assert.Equal(t, errs.InsufficientRole, denyReason(t, err))
}

func TestGradeIsTeacherOnlyAction(t *testing.T) {
	_, f := newFixture(t)

	assert.NoError(t, f.engine.Evaluate(&f.teacher, ActionGrade, KindSubmission, f.submission.ID))

	// Членство студента в классе не компенсирует глобальную роль.
	err := f.engine.Evaluate(&f.studentB, ActionGrade, KindSubmission, f.submission.ID)
	assert.Equal(t, errs.InsufficientRole, denyReason(t, err))

	err = f.engine.Evaluate(&f.teacher2, ActionGrade, KindSubmission, f.submission.ID)
	assert.Equal(t, errs.InsufficientRole, denyReason(t, err))
}

func TestMutateRequiresRecordedOwner(t *testing.T) {
	db, f := newFixture(t)

	assert.NoError(t, f.engine.Evaluate(&f.teacher, ActionUpdate, KindCourse, f.course.ID))

	// Второй учитель того же класса владельцем от этого не становится.
	member := models.ClassMember{ClassID: f.class.ID, UserID: f.teacher2.ID, Role: models.ClassRoleTeacher}
	require.NoError(t, db.Create(&member).Error)

	err := f.engine.Evaluate(&f.teacher2, ActionUpdate, KindCourse, f.course.ID)
	assert.Equal(t, errs.NotOwner, denyReason(t, err))

	err = f.engine.Evaluate(&f.teacher2, ActionDelete, KindClass, f.class.ID)
	assert.Equal(t, errs.NotOwner, denyReason(t, err))
}

func TestReadRequiresMembership(t *testing.T) {
	_, f := newFixture(t)

	assert.NoError(t, f.engine.Evaluate(&f.studentA, ActionRead, KindCourse, f.course.ID))
	assert.NoError(t, f.engine.Evaluate(&f.studentB, ActionRead, KindAssignment, f.assignment.ID))

	err := f.engine.Evaluate(&f.outsider, ActionRead, KindCourse, f.course.ID)
	assert.Equal(t, errs.NotAMember, denyReason(t, err))
}

func TestSubmissionVisibilityIsolation(t *testing.T) {
	_, f := newFixture(t)

	assert.NoError(t, f.engine.Evaluate(&f.studentA, ActionRead, KindSubmission, f.submission.ID))
	assert.NoError(t, f.engine.Evaluate(&f.teacher, ActionRead, KindSubmission, f.submission.ID))

	// Одноклассник чужую работу не видит.
	err := f.engine.Evaluate(&f.studentB, ActionRead, KindSubmission, f.submission.ID)
	assert.Equal(t, errs.NotAMember, denyReason(t, err))

	assert.NoError(t, f.engine.Evaluate(&f.studentA, ActionRead, KindGrading, f.grading.ID))
	err = f.engine.Evaluate(&f.studentB, ActionRead, KindGrading, f.grading.ID)
	assert.Equal(t, errs.NotAMember, denyReason(t, err))
}

func TestBrokenOwnershipChainIsNotFound(t *testing.T) {
	db, f := newFixture(t)

	// Курс пропал, задание осталось: любой проход по цепочке должен
	// упереться в NotFound, а не подставить значение по умолчанию.
	require.NoError(t, db.Unscoped().Delete(&models.Course{}, f.course.ID).Error)

	err := f.engine.Evaluate(&f.studentA, ActionRead, KindAssignment, f.assignment.ID)
	assert.True(t, errs.IsNotFound(err))

	err = f.engine.Evaluate(&f.teacher, ActionGrade, KindSubmission, f.submission.ID)
	assert.True(t, errs.IsNotFound(err))
}

func TestStatsAccess(t *testing.T) {
	_, f := newFixture(t)

	assert.NoError(t, f.engine.Evaluate(&f.teacher, ActionStats, KindAssignment, f.assignment.ID))
	assert.NoError(t, f.engine.Evaluate(&f.teacher, ActionStats, KindClass, f.class.ID))

	err := f.engine.Evaluate(&f.studentA, ActionStats, KindClass, f.class.ID)
	assert.Equal(t, errs.InsufficientRole, denyReason(t, err))

	err = f.engine.Evaluate(&f.teacher2, ActionStats, KindCourse, f.course.ID)
	assert.Equal(t, errs.NotOwner, denyReason(t, err))

	// Свою сводку студент видит, чужую — нет.
	assert.NoError(t, f.engine.Evaluate(&f.studentA, ActionStats, KindUser, f.studentA.ID))
	err = f.engine.Evaluate(&f.studentA, ActionStats, KindUser, f.studentB.ID)
	assert.Equal(t, errs.InsufficientRole, denyReason(t, err))
}

func TestManageMembers(t *testing.T) {
	_, f := newFixture(t)

	assert.NoError(t, f.engine.Evaluate(&f.teacher, ActionManageMembers, KindClass, f.class.ID))

	err := f.engine.Evaluate(&f.studentA, ActionManageMembers, KindClass, f.class.ID)
	assert.Equal(t, errs.InsufficientRole, denyReason(t, err))

	err = f.engine.Evaluate(&f.teacher2, ActionManageMembers, KindClass, f.class.ID)
	assert.Equal(t, errs.InsufficientRole, denyReason(t, err))
}

func TestResolverWalksChainToClass(t *testing.T) {
	_, f := newFixture(t)

	classID, err := f.engine.Resolver.OwnerClass(KindGrading, f.grading.ID)
	require.NoError(t, err)
	assert.Equal(t, f.class.ID, classID)

	classID, err = f.engine.Resolver.OwnerClass(KindClass, f.class.ID)
	require.NoError(t, err)
	assert.Equal(t, f.class.ID, classID)

	_, err = f.engine.Resolver.OwnerClass(KindSubmission, 9999)
	assert.True(t, errs.IsNotFound(err))
}

func TestRoleInClassWithoutMembership(t *testing.T) {
	_, f := newFixture(t)

	role, err := f.engine.Members.RoleInClass(f.class.ID, f.outsider.ID)
	require.NoError(t, err)
	assert.Empty(t, role)

	role, err = f.engine.Members.RoleInClass(f.class.ID, f.teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClassRoleTeacher, role)
}

package stats

import (
	"errors"

	"gorm.io/gorm"

	"rainforest/backend/errs"
	"rainforest/backend/models"
)

// Service собирает отчёты по заданию, курсу, классу и пользователю.
// Состояния не держит; авторизацию выполняет вызывающий контроллер.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type ScoreDistribution struct {
	Ranges []string `json:"ranges"`
	Counts []int    `json:"counts"`
}

type AssignmentReport struct {
	AssignmentID      uint              `json:"assignment_id"`
	AssignmentTitle   string            `json:"assignment_title"`
	TotalStudents     int64             `json:"total_students"`
	TotalSubmissions  int64             `json:"total_submissions"`
	SubmissionRate    float64           `json:"submission_rate"`
	GradedSubmissions int64             `json:"graded_submissions"`
	GradingRate       float64           `json:"grading_rate"`
	AverageScore      float64           `json:"average_score"`
	HighestScore      float64           `json:"highest_score"`
	LowestScore       float64           `json:"lowest_score"`
	ScoreDistribution ScoreDistribution `json:"score_distribution"`
}

func (s *Service) Assignment(assignmentID uint) (*AssignmentReport, error) {
	var assignment models.Assignment
	if err := s.db.First(&assignment, assignmentID).Error; err != nil {
		return nil, asNotFound(err, "assignment")
	}

	var course models.Course
	if err := s.db.First(&course, assignment.CourseID).Error; err != nil {
		return nil, asNotFound(err, "course")
	}

	students, err := s.classStudentCount(course.ClassID)
	if err != nil {
		return nil, err
	}

	var submissions int64
	err = s.db.Model(&models.Submission{}).
		Where("assignment_id = ?", assignmentID).
		Count(&submissions).Error
	if err != nil {
		return nil, err
	}

	scores, err := s.assignmentScores(assignmentID)
	if err != nil {
		return nil, err
	}
	graded := int64(len(scores))

	return &AssignmentReport{
		AssignmentID:      assignmentID,
		AssignmentTitle:   assignment.Title,
		TotalStudents:     students,
		TotalSubmissions:  submissions,
		SubmissionRate:    Rate(submissions, students),
		GradedSubmissions: graded,
		GradingRate:       Rate(graded, submissions),
		AverageScore:      Mean(scores),
		HighestScore:      Max(scores),
		LowestScore:       Min(scores),
		ScoreDistribution: ScoreDistribution{
			Ranges: ScoreRanges,
			Counts: Distribution(scores),
		},
	}, nil
}

type CourseAssignmentReport struct {
	AssignmentID     uint    `json:"assignment_id"`
	Title            string  `json:"title"`
	SubmissionsCount int64   `json:"submissions_count"`
	SubmissionRate   float64 `json:"submission_rate"`
	AverageScore     float64 `json:"average_score"`
}

type CourseReport struct {
	CourseID              uint                     `json:"course_id"`
	CourseName            string                   `json:"course_name"`
	TotalStudents         int64                    `json:"total_students"`
	TotalAssignments      int64                    `json:"total_assignments"`
	AverageSubmissionRate float64                  `json:"average_submission_rate"`
	AverageCourseScore    float64                  `json:"average_course_score"`
	Assignments           []CourseAssignmentReport `json:"assignments"`
}

func (s *Service) Course(courseID uint) (*CourseReport, error) {
	var course models.Course
	if err := s.db.First(&course, courseID).Error; err != nil {
		return nil, asNotFound(err, "course")
	}

	students, err := s.classStudentCount(course.ClassID)
	if err != nil {
		return nil, err
	}

	var assignments []models.Assignment
	if err := s.db.Where("course_id = ?", courseID).Find(&assignments).Error; err != nil {
		return nil, err
	}

	report := &CourseReport{
		CourseID:         courseID,
		CourseName:       course.Name,
		TotalStudents:    students,
		TotalAssignments: int64(len(assignments)),
		Assignments:      make([]CourseAssignmentReport, 0, len(assignments)),
	}

	var rateSum, scoreSum float64
	for _, a := range assignments {
		var submissions int64
		err := s.db.Model(&models.Submission{}).
			Where("assignment_id = ?", a.ID).
			Count(&submissions).Error
		if err != nil {
			return nil, err
		}

		scores, err := s.assignmentScores(a.ID)
		if err != nil {
			return nil, err
		}

		ar := CourseAssignmentReport{
			AssignmentID:     a.ID,
			Title:            a.Title,
			SubmissionsCount: submissions,
			SubmissionRate:   Rate(submissions, students),
			AverageScore:     Mean(scores),
		}
		report.Assignments = append(report.Assignments, ar)
		rateSum += ar.SubmissionRate
		scoreSum += ar.AverageScore
	}

	if n := len(assignments); n > 0 {
		report.AverageSubmissionRate = rateSum / float64(n)
		report.AverageCourseScore = scoreSum / float64(n)
	}
	return report, nil
}

type ClassStudentReport struct {
	StudentID         uint    `json:"student_id"`
	Username          string  `json:"username"`
	Email             string  `json:"email"`
	TotalSubmissions  int64   `json:"total_submissions"`
	GradedSubmissions int64   `json:"graded_submissions"`
	AverageScore      float64 `json:"average_score"`
}

type ClassCourseReport struct {
	CourseID         uint   `json:"course_id"`
	CourseName       string `json:"course_name"`
	TeacherID        uint   `json:"teacher_id"`
	TotalAssignments int64  `json:"total_assignments"`
}

type ClassReport struct {
	ClassID       uint                 `json:"class_id"`
	ClassName     string               `json:"class_name"`
	TotalStudents int                  `json:"total_students"`
	TotalCourses  int                  `json:"total_courses"`
	Students      []ClassStudentReport `json:"students"`
	Courses       []ClassCourseReport  `json:"courses"`
}

func (s *Service) Class(classID uint) (*ClassReport, error) {
	var class models.Class
	if err := s.db.First(&class, classID).Error; err != nil {
		return nil, asNotFound(err, "class")
	}

	var students []models.User
	err := s.db.
		Joins("JOIN class_members ON class_members.user_id = users.id").
		Where("class_members.class_id = ? AND class_members.role = ? AND class_members.deleted_at IS NULL",
			classID, models.ClassRoleStudent).
		Find(&students).Error
	if err != nil {
		return nil, err
	}

	var courses []models.Course
	if err := s.db.Where("class_id = ?", classID).Find(&courses).Error; err != nil {
		return nil, err
	}

	report := &ClassReport{
		ClassID:       classID,
		ClassName:     class.Name,
		TotalStudents: len(students),
		TotalCourses:  len(courses),
		Students:      make([]ClassStudentReport, 0, len(students)),
		Courses:       make([]ClassCourseReport, 0, len(courses)),
	}

	for _, student := range students {
		var submissions int64
		err := s.db.Model(&models.Submission{}).
			Where("student_id = ?", student.ID).
			Count(&submissions).Error
		if err != nil {
			return nil, err
		}

		var scores []float64
		err = s.db.Model(&models.Grading{}).
			Joins("JOIN submissions ON submissions.id = gradings.submission_id").
			Where("submissions.student_id = ?", student.ID).
			Pluck("gradings.score", &scores).Error
		if err != nil {
			return nil, err
		}

		report.Students = append(report.Students, ClassStudentReport{
			StudentID:         student.ID,
			Username:          student.Username,
			Email:             student.Email,
			TotalSubmissions:  submissions,
			GradedSubmissions: int64(len(scores)),
			AverageScore:      Mean(scores),
		})
	}

	for _, course := range courses {
		var assignments int64
		err := s.db.Model(&models.Assignment{}).
			Where("course_id = ?", course.ID).
			Count(&assignments).Error
		if err != nil {
			return nil, err
		}

		report.Courses = append(report.Courses, ClassCourseReport{
			CourseID:         course.ID,
			CourseName:       course.Name,
			TeacherID:        course.TeacherID,
			TotalAssignments: assignments,
		})
	}

	return report, nil
}

// Статусы задания в разрезе студента.
const (
	StatusNotSubmitted = "not_submitted"
	StatusSubmitted    = "submitted"
	StatusGraded       = "graded"
)

type UserAssignmentReport struct {
	AssignmentID uint     `json:"assignment_id"`
	Title        string   `json:"title"`
	Status       string   `json:"status"`
	Score        *float64 `json:"score"`
	DueDate      string   `json:"due_date"`
}

type UserCourseReport struct {
	CourseID             uint                   `json:"course_id"`
	CourseName           string                 `json:"course_name"`
	TotalAssignments     int                    `json:"total_assignments"`
	CompletedAssignments int                    `json:"completed_assignments"`
	GradedAssignments    int                    `json:"graded_assignments"`
	AverageScore         *float64               `json:"average_score"`
	Assignments          []UserAssignmentReport `json:"assignments"`
}

type TeacherCourseReport struct {
	CourseID         uint   `json:"course_id"`
	CourseName       string `json:"course_name"`
	TotalAssignments int64  `json:"total_assignments"`
	TotalStudents    int64  `json:"total_students"`
}

// UserReport — сводка по пользователю; заполненные поля зависят от его
// глобальной роли.
type UserReport struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`

	// student
	Courses []UserCourseReport `json:"courses,omitempty"`

	// teacher
	TotalCourses  int                   `json:"total_courses,omitempty"`
	TaughtCourses []TeacherCourseReport `json:"taught_courses,omitempty"`

	// admin
	TotalUsers       int64 `json:"total_users,omitempty"`
	TotalClasses     int64 `json:"total_classes,omitempty"`
	TotalCoursesAll  int64 `json:"total_courses_all,omitempty"`
	TotalAssignments int64 `json:"total_assignments,omitempty"`
}

func (s *Service) User(userID uint) (*UserReport, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, asNotFound(err, "user")
	}

	report := &UserReport{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	}

	switch user.Role {
	case models.RoleStudent:
		return s.studentReport(report, user.ID)
	case models.RoleTeacher:
		return s.teacherReport(report, user.ID)
	default:
		return s.adminReport(report)
	}
}

func (s *Service) studentReport(report *UserReport, userID uint) (*UserReport, error) {
	var classIDs []uint
	err := s.db.Model(&models.ClassMember{}).
		Where("user_id = ?", userID).
		Pluck("class_id", &classIDs).Error
	if err != nil {
		return nil, err
	}

	var courses []models.Course
	if len(classIDs) > 0 {
		if err := s.db.Where("class_id IN ?", classIDs).Find(&courses).Error; err != nil {
			return nil, err
		}
	}

	report.Courses = make([]UserCourseReport, 0, len(courses))
	for _, course := range courses {
		var assignments []models.Assignment
		if err := s.db.Where("course_id = ?", course.ID).Find(&assignments).Error; err != nil {
			return nil, err
		}

		cr := UserCourseReport{
			CourseID:         course.ID,
			CourseName:       course.Name,
			TotalAssignments: len(assignments),
			Assignments:      make([]UserAssignmentReport, 0, len(assignments)),
		}

		var totalScore float64
		for _, a := range assignments {
			ar := UserAssignmentReport{
				AssignmentID: a.ID,
				Title:        a.Title,
				Status:       StatusNotSubmitted,
				DueDate:      a.DueDate.Format("2006-01-02T15:04:05Z07:00"),
			}

			var submission models.Submission
			err := s.db.Where("assignment_id = ? AND student_id = ?", a.ID, userID).
				Order("id DESC").
				First(&submission).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				// не сдано
			case err != nil:
				return nil, err
			default:
				ar.Status = StatusSubmitted
				cr.CompletedAssignments++

				var grading models.Grading
				err := s.db.Where("submission_id = ?", submission.ID).First(&grading).Error
				switch {
				case errors.Is(err, gorm.ErrRecordNotFound):
					// сдано, не проверено
				case err != nil:
					return nil, err
				default:
					score := grading.Score
					ar.Status = StatusGraded
					ar.Score = &score
					totalScore += score
					cr.GradedAssignments++
				}
			}

			cr.Assignments = append(cr.Assignments, ar)
		}

		// null, когда проверенных работ ещё нет.
		if cr.GradedAssignments > 0 {
			avg := totalScore / float64(cr.GradedAssignments)
			cr.AverageScore = &avg
		}
		report.Courses = append(report.Courses, cr)
	}

	return report, nil
}

func (s *Service) teacherReport(report *UserReport, userID uint) (*UserReport, error) {
	var courses []models.Course
	if err := s.db.Where("teacher_id = ?", userID).Find(&courses).Error; err != nil {
		return nil, err
	}

	report.TotalCourses = len(courses)
	report.TaughtCourses = make([]TeacherCourseReport, 0, len(courses))
	for _, course := range courses {
		var assignments int64
		err := s.db.Model(&models.Assignment{}).
			Where("course_id = ?", course.ID).
			Count(&assignments).Error
		if err != nil {
			return nil, err
		}

		students, err := s.classStudentCount(course.ClassID)
		if err != nil {
			return nil, err
		}

		report.TaughtCourses = append(report.TaughtCourses, TeacherCourseReport{
			CourseID:         course.ID,
			CourseName:       course.Name,
			TotalAssignments: assignments,
			TotalStudents:    students,
		})
	}
	return report, nil
}

func (s *Service) adminReport(report *UserReport) (*UserReport, error) {
	counts := []struct {
		model interface{}
		dst   *int64
	}{
		{&models.User{}, &report.TotalUsers},
		{&models.Class{}, &report.TotalClasses},
		{&models.Course{}, &report.TotalCoursesAll},
		{&models.Assignment{}, &report.TotalAssignments},
	}
	for _, c := range counts {
		if err := s.db.Model(c.model).Count(c.dst).Error; err != nil {
			return nil, err
		}
	}
	return report, nil
}

func (s *Service) classStudentCount(classID uint) (int64, error) {
	var count int64
	err := s.db.Model(&models.ClassMember{}).
		Where("class_id = ? AND role = ?", classID, models.ClassRoleStudent).
		Count(&count).Error
	return count, err
}

// assignmentScores возвращает баллы всех оценок по заданию.
func (s *Service) assignmentScores(assignmentID uint) ([]float64, error) {
	var scores []float64
	err := s.db.Model(&models.Grading{}).
		Joins("JOIN submissions ON submissions.id = gradings.submission_id").
		Where("submissions.assignment_id = ? AND submissions.deleted_at IS NULL", assignmentID).
		Pluck("gradings.score", &scores).Error
	return scores, err
}

func asNotFound(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFound(resource)
	}
	return err
}

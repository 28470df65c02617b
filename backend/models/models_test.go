package models_test

import (
	"testing"
	"time"
	"vidyasetu/backend/models"
	"vidyasetu/backend/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, utils.Migrate(db))
	return db
}

func TestCourseDefaults(t *testing.T) {
	db := openDB(t)

	course := models.Course{Subject: "Math"}
	require.NoError(t, db.Create(&course).Error)

	assert.Equal(t, models.DefaultCourseName, course.Name)
	assert.Equal(t, models.DefaultCourseDescription, course.Description)
	assert.Equal(t, models.DefaultCourseGrade, course.Grade)
}

func TestCourseMeetingEndTimeDerived(t *testing.T) {
	db := openDB(t)
	course := models.Course{Subject: "Math"}
	require.NoError(t, db.Create(&course).Error)

	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	derived := models.CourseMeeting{CourseID: course.ID, StartTime: start, Duration: 45, HostName: "Ms. Rao"}
	require.NoError(t, db.Create(&derived).Error)
	assert.True(t, derived.EndTime.Equal(start.Add(45*time.Minute)))

	explicit := start.Add(2 * time.Hour)
	kept := models.CourseMeeting{CourseID: course.ID, StartTime: start, Duration: 45, EndTime: explicit, HostName: "Ms. Rao"}
	require.NoError(t, db.Create(&kept).Error)
	assert.True(t, kept.EndTime.Equal(explicit))
}

func TestTeacherCertificateRejectsFutureDate(t *testing.T) {
	db := openDB(t)

	teacher := models.Teacher{
		Name:              "T",
		Email:             "T@Example.com ",
		Password:          "x",
		SubjectSpeciality: datatypes.JSONSlice[string]{"Math"},
		Certificates: []models.TeacherCertificate{
			{Name: "B.Ed", IssuedBy: "Uni", IssueDate: time.Now().AddDate(1, 0, 0)},
		},
	}
	err := db.Create(&teacher).Error
	assert.ErrorIs(t, err, models.ErrCertificateFutureDate)
}

func TestTeacherRoleAndSpecialities(t *testing.T) {
	db := openDB(t)

	teacher := models.Teacher{
		Name:              "T",
		Email:             "T@Example.com ",
		Password:          "x",
		Role:              models.RoleStudent,
		SubjectSpeciality: datatypes.JSONSlice[string]{"Math", "Physics"},
	}
	require.NoError(t, db.Create(&teacher).Error)

	var loaded models.Teacher
	require.NoError(t, db.First(&loaded, teacher.ID).Error)
	assert.Equal(t, models.RoleTeacher, loaded.Role)
	assert.Equal(t, "t@example.com", loaded.Email)
	assert.True(t, loaded.Specializes("Physics"))
	assert.False(t, loaded.Specializes("History"))
}

// seedTest creates a student and a two-question test they can submit to.
func seedTest(t *testing.T, db *gorm.DB) (models.Student, models.SAQTest) {
	t.Helper()
	student := models.Student{Name: "S", Email: "s@example.com", Password: "x"}
	require.NoError(t, db.Create(&student).Error)
	teacher := models.Teacher{Name: "T", Email: "t@example.com", Password: "x", SubjectSpeciality: datatypes.JSONSlice[string]{"Math"}}
	require.NoError(t, db.Create(&teacher).Error)
	course := models.Course{Subject: "Math"}
	require.NoError(t, db.Create(&course).Error)
	test := models.SAQTest{
		Title:           "Quiz",
		CourseID:        course.ID,
		TeacherID:       teacher.ID,
		AttemptsAllowed: 1,
		Questions: []models.SAQQuestion{
			{Position: 1, QuestionText: "2+2?"},
			{Position: 2, QuestionText: "3*3?"},
		},
	}
	require.NoError(t, db.Create(&test).Error)
	return student, test
}

func TestSubmissionUniquePerStudentAndTest(t *testing.T) {
	db := openDB(t)
	student, test := seedTest(t, db)

	first := models.SAQSubmission{SAQTestID: test.ID, StudentID: student.ID, Attempts: 1}
	require.NoError(t, db.Create(&first).Error)

	dup := models.SAQSubmission{SAQTestID: test.ID, StudentID: student.ID, Attempts: 1}
	assert.ErrorIs(t, db.Create(&dup).Error, gorm.ErrDuplicatedKey)
}

func TestAnswerScoreNullRoundTrip(t *testing.T) {
	db := openDB(t)
	student, test := seedTest(t, db)

	sub := models.SAQSubmission{
		SAQTestID: test.ID,
		StudentID: student.ID,
		Attempts:  1,
		Answers: []models.SAQAnswer{
			{QuestionID: test.Questions[0].ID, AnswerText: "4"},
			{QuestionID: test.Questions[1].ID, AnswerText: "9", Score: null.IntFrom(0), Feedback: null.StringFrom("wrong")},
		},
	}
	require.NoError(t, db.Create(&sub).Error)

	var loaded models.SAQSubmission
	require.NoError(t, db.Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("question_id") }).First(&loaded, sub.ID).Error)
	require.Len(t, loaded.Answers, 2)
	assert.False(t, loaded.Answers[0].Evaluated())
	assert.True(t, loaded.Answers[1].Evaluated())
	assert.Equal(t, 0, loaded.Answers[1].Score.Int)
}

func TestFeedbackFormOpen(t *testing.T) {
	now := time.Now()
	form := models.FeedbackForm{ExpiryDate: now.Add(time.Hour)}
	assert.True(t, form.Open(now))
	assert.False(t, form.Open(now.Add(2*time.Hour)))
}

func TestAttendanceStatusValid(t *testing.T) {
	assert.True(t, models.AttendanceLate.Valid())
	assert.False(t, models.AttendanceStatus("Sick").Valid())
}

package controllers

import (
	"errors"
	"vidyasetu/backend/config"
	"vidyasetu/backend/middleware"
	"vidyasetu/backend/models"
	"vidyasetu/backend/services"
	"vidyasetu/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// PassRatio is the share of the maximum score a submission needs to count
// as a passed quiz.
const PassRatio = 0.5

type ProgressController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewProgressController(db *gorm.DB, cfg *config.Config) *ProgressController {
	return &ProgressController{DB: db, Cfg: cfg}
}

type attendanceInput struct {
	StudentID uint   `json:"studentId" validate:"required"`
	CourseID  *uint  `json:"courseId"`
	Date      string `json:"date" validate:"required"`
	Status    string `json:"status" validate:"required,oneof=Present Absent Late"`
}

// MarkAttendance godoc
// @Summary Record a student's attendance
// @Tags progress
// @Accept json
// @Produce json
// @Success 201 {object} models.AttendanceEntry
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /progress/attendance [post]
func (pc *ProgressController) MarkAttendance(c *fiber.Ctx) error {
	teacher, _ := middleware.CurrentTeacher(c)

	var input attendanceInput
	if ok, err := utils.BindAndValidate(c, &input); !ok {
		return err
	}
	date, err := parseDate(input.Date)
	if err != nil || date == nil {
		return utils.ValidationError(c, map[string]string{"date": "date"})
	}

	var student models.Student
	if err := pc.DB.First(&student, input.StudentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Student not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}
	if err := pc.canMarkAttendance(teacher.ID, student.ID, input.CourseID); err != nil {
		return err
	}

	entry := models.AttendanceEntry{
		StudentID: student.ID,
		CourseID:  input.CourseID,
		Date:      *date,
		Status:    models.AttendanceStatus(input.Status),
		MarkedBy:  teacher.ID,
	}
	if err := pc.DB.Create(&entry).Error; err != nil {
		return utils.InternalServerError(c, "Could not record attendance")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    "Attendance recorded",
		"attendance": entry,
	})
}

// canMarkAttendance limits a teacher to students enrolled in a course they
// teach. With a course given, that course must be one of them.
func (pc *ProgressController) canMarkAttendance(teacherID, studentID uint, courseID *uint) error {
	enrollments := pc.DB.Table("course_enrollments").
		Joins("JOIN course_teachers ON course_teachers.course_id = course_enrollments.course_id").
		Where("course_enrollments.student_id = ? AND course_teachers.teacher_id = ?", studentID, teacherID)

	if courseID != nil {
		var course models.Course
		if err := pc.DB.Preload("Teachers").First(&course, *courseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Course not found")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Could not query database")
		}
		if !course.HasTeacher(teacherID) {
			return fiber.NewError(fiber.StatusForbidden, "You do not teach this course")
		}
		enrollments = enrollments.Where("course_enrollments.course_id = ?", course.ID)
	}

	var count int64
	if err := enrollments.Count(&count).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Could not query database")
	}
	if count == 0 {
		return fiber.NewError(fiber.StatusForbidden, "Student is not enrolled in a course you teach")
	}
	return nil
}

func (pc *ProgressController) Attendance(c *fiber.Ctx) error {
	student, _ := middleware.CurrentStudent(c)

	entries := []models.AttendanceEntry{}
	if err := pc.DB.Where("student_id = ?", student.ID).Order("date DESC").Find(&entries).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	return c.JSON(fiber.Map{"attendance": entries})
}

// refreshCourseProgress recomputes a student's quiz progress in one course
// from their SAQ submissions.
func refreshCourseProgress(tx *gorm.DB, studentID, courseID uint) error {
	var subs []models.SAQSubmission
	err := tx.Preload("Answers").Preload("SAQTest.Questions").
		Joins("JOIN saq_tests ON saq_tests.id = saq_submissions.saq_test_id").
		Where("saq_submissions.student_id = ? AND saq_tests.course_id = ?", studentID, courseID).
		Find(&subs).Error
	if err != nil {
		return err
	}

	progress := models.CourseProgress{StudentID: studentID, CourseID: courseID}
	if err := tx.Where("student_id = ? AND course_id = ?", studentID, courseID).FirstOrInit(&progress).Error; err != nil {
		return err
	}

	progress.QuizzesAttempted = len(subs)
	progress.QuizzesPassed = 0
	pct := 0.0
	for _, s := range subs {
		maxPoints := 0
		if s.SAQTest != nil {
			maxPoints = len(s.SAQTest.Questions) * services.PointsPerQuestion
		}
		if maxPoints == 0 {
			continue
		}
		ratio := float64(services.SubmissionTotal(s)) / float64(maxPoints)
		if ratio >= PassRatio {
			progress.QuizzesPassed++
		}
		pct += ratio * 100
	}
	progress.OverallScore = 0
	if len(subs) > 0 {
		progress.OverallScore = float64(int(pct/float64(len(subs))*100+0.5)) / 100
	}
	return tx.Save(&progress).Error
}

package controllers

import (
	"strings"
	"vidyasetu/backend/config"
	"vidyasetu/backend/middleware"
	"vidyasetu/backend/models"
	"vidyasetu/backend/services"
	"vidyasetu/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type OverviewController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewOverviewController(db *gorm.DB, cfg *config.Config) *OverviewController {
	return &OverviewController{DB: db, Cfg: cfg}
}

// SearchCourses filters the catalogue by free text, subject and grade.
func (oc *OverviewController) SearchCourses(c *fiber.Ctx) error {
	query := oc.DB.Model(&models.Course{}).Preload("Teachers.Teacher")

	if q := strings.TrimSpace(c.Query("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(subject) LIKE ?", like, like, like)
	}
	if subject := c.Query("subject"); subject != "" {
		query = query.Where("subject = ?", subject)
	}
	if grade := c.Query("grade"); grade != "" {
		query = query.Where("grade = ?", grade)
	}

	courses := []models.Course{}
	if err := query.Order("created_at DESC").Find(&courses).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	return c.JSON(fiber.Map{"courses": courses})
}

// Overview godoc
// @Summary Student dashboard overview
// @Tags progress
// @Produce json
// @Success 200 {object} models.ProgressOverview
// @Security ApiKeyAuth
// @Router /progress/overview [get]
func (oc *OverviewController) Overview(c *fiber.Ctx) error {
	student, _ := middleware.CurrentStudent(c)

	out := models.ProgressOverview{
		CoursesCompleted: student.CoursesCompleted,
		Attendance: map[models.AttendanceStatus]int{
			models.AttendancePresent: 0,
			models.AttendanceAbsent:  0,
			models.AttendanceLate:    0,
		},
		Courses: []models.CourseProgress{},
	}

	var enrolled int64
	if err := oc.DB.Table("course_enrollments").Where("student_id = ?", student.ID).Count(&enrolled).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	out.EnrolledCourses = int(enrolled)

	var counts []struct {
		Status models.AttendanceStatus
		Total  int
	}
	if err := oc.DB.Model(&models.AttendanceEntry{}).
		Select("status, COUNT(*) AS total").
		Where("student_id = ?", student.ID).
		Group("status").
		Scan(&counts).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	for _, row := range counts {
		out.Attendance[row.Status] = row.Total
	}

	var subs []models.SAQSubmission
	if err := oc.DB.Preload("Answers").Where("student_id = ?", student.ID).Find(&subs).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	out.SAQSubmissions = len(subs)
	if len(subs) > 0 {
		sum := 0
		for _, s := range subs {
			sum += services.SubmissionTotal(s)
		}
		out.AverageSAQScore = float64(int(float64(sum)/float64(len(subs))*100+0.5)) / 100
	}

	if err := oc.DB.Where("student_id = ?", student.ID).Order("course_id").Find(&out.Courses).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	return c.JSON(out)
}

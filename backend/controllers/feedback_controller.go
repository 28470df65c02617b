package controllers

import (
	"errors"
	"time"
	"vidyasetu/backend/config"
	"vidyasetu/backend/middleware"
	"vidyasetu/backend/models"
	"vidyasetu/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type FeedbackController struct {
	DB  *gorm.DB
	Cfg *config.Config
	Now func() time.Time
}

func NewFeedbackController(db *gorm.DB, cfg *config.Config) *FeedbackController {
	return &FeedbackController{DB: db, Cfg: cfg, Now: time.Now}
}

type feedbackInput struct {
	FormLink string `json:"formLink" validate:"required,url"`
	CourseID uint   `json:"courseId" validate:"required"`
}

func (fc *FeedbackController) ttl() time.Duration {
	days := fc.Cfg.FeedbackTTLDays
	if days <= 0 {
		days = 15
	}
	return time.Duration(days) * 24 * time.Hour
}

// Create posts a feedback form for a course the teacher teaches.
func (fc *FeedbackController) Create(c *fiber.Ctx) error {
	teacher, _ := middleware.CurrentTeacher(c)

	var input feedbackInput
	if ok, err := utils.BindAndValidate(c, &input); !ok {
		return err
	}

	var course models.Course
	if err := fc.DB.Preload("Teachers").First(&course, input.CourseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}
	if !course.HasTeacher(teacher.ID) {
		return utils.Forbidden(c, "You do not teach this course")
	}

	now := fc.Now()
	form := models.FeedbackForm{
		FormLink:   input.FormLink,
		CourseID:   course.ID,
		TeacherID:  teacher.ID,
		PostDate:   now,
		ExpiryDate: now.Add(fc.ttl()),
	}
	if err := fc.DB.Create(&form).Error; err != nil {
		return utils.InternalServerError(c, "Could not save feedback form")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Feedback form posted successfully",
		"feedback": form,
	})
}

// Active lists forms that have not expired yet, newest first.
func (fc *FeedbackController) Active(c *fiber.Ctx) error {
	var forms []models.FeedbackForm
	if err := fc.DB.Preload("Course").
		Where("expiry_date > ?", fc.Now()).
		Order("post_date DESC").
		Find(&forms).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	if len(forms) == 0 {
		return utils.NotFound(c, "No active feedback forms")
	}
	return c.JSON(forms)
}

func (fc *FeedbackController) Latest(c *fiber.Ctx) error {
	var form models.FeedbackForm
	err := fc.DB.Preload("Course").
		Where("expiry_date > ?", fc.Now()).
		Order("post_date DESC").
		First(&form).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "No active feedback form")
		}
		return utils.InternalServerError(c, "Could not query database")
	}
	return c.JSON(form)
}

// Mine lists every form the calling teacher posted, expired ones included.
func (fc *FeedbackController) Mine(c *fiber.Ctx) error {
	teacher, _ := middleware.CurrentTeacher(c)

	forms := []models.FeedbackForm{}
	if err := fc.DB.Preload("Course").
		Where("teacher_id = ?", teacher.ID).
		Order("post_date DESC").
		Find(&forms).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	now := fc.Now()
	out := make([]fiber.Map, 0, len(forms))
	for i := range forms {
		out = append(out, fiber.Map{
			"feedback": forms[i],
			"active":   forms[i].Open(now),
		})
	}
	return c.JSON(out)
}

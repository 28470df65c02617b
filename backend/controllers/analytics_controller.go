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

// AnalyticsController serves teacher-side SAQ results and aggregates.
type AnalyticsController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewAnalyticsController(db *gorm.DB, cfg *config.Config) *AnalyticsController {
	return &AnalyticsController{DB: db, Cfg: cfg}
}

// ownTest loads a test owned by the calling teacher.
func (ac *AnalyticsController) ownTest(c *fiber.Ctx, param string) (*models.SAQTest, error) {
	teacher, _ := middleware.CurrentTeacher(c)
	id, ok := paramID(c, param)
	if !ok {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid SAQ ID")
	}

	var saq models.SAQTest
	if err := ac.DB.Preload("Questions", orderByPosition).First(&saq, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "SAQ not found")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Could not query database")
	}
	if saq.TeacherID != teacher.ID {
		return nil, fiber.NewError(fiber.StatusForbidden, "You can only view results for your own SAQ tests.")
	}
	return &saq, nil
}

func (ac *AnalyticsController) submissionsFor(saqIDs ...uint) ([]models.SAQSubmission, error) {
	var subs []models.SAQSubmission
	err := ac.DB.Preload("Answers").Preload("Student").
		Where("saq_test_id IN ?", saqIDs).
		Order("created_at").
		Find(&subs).Error
	return subs, err
}

func formatSubmission(s models.SAQSubmission) fiber.Map {
	item := fiber.Map{
		"submissionId": s.ID,
		"studentId":    s.StudentID,
		"submittedAt":  s.CreatedAt,
		"attempts":     s.Attempts,
		"answers":      s.Answers,
		"totalScore":   services.SubmissionTotal(s),
	}
	if s.Student != nil {
		item["studentName"] = s.Student.Name
		item["studentEmail"] = s.Student.Email
	}
	return item
}

// Scores returns every submission's scores for one test, 404 when nobody
// has submitted yet.
func (ac *AnalyticsController) Scores(c *fiber.Ctx) error {
	saq, err := ac.ownTest(c, "saqTestId")
	if err != nil {
		return err
	}

	subs, err := ac.submissionsFor(saq.ID)
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	if len(subs) == 0 {
		return utils.NotFound(c, "No scores found for this SAQ test.")
	}

	scores := make([]fiber.Map, 0, len(subs))
	for _, s := range subs {
		scores = append(scores, formatSubmission(s))
	}
	return c.JSON(fiber.Map{
		"saqId":           saq.ID,
		"title":           saq.Title,
		"submissionCount": len(subs),
		"scores":          scores,
	})
}

func (ac *AnalyticsController) Submissions(c *fiber.Ctx) error {
	saq, err := ac.ownTest(c, "saqId")
	if err != nil {
		return err
	}

	subs, err := ac.submissionsFor(saq.ID)
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	out := make([]fiber.Map, 0, len(subs))
	for _, s := range subs {
		out = append(out, formatSubmission(s))
	}
	return c.JSON(fiber.Map{
		"saqId":           saq.ID,
		"title":           saq.Title,
		"questions":       saq.Questions,
		"submissionCount": len(subs),
		"submissions":     out,
	})
}

// TestAnalytics godoc
// @Summary Aggregate scores of one SAQ test
// @Tags saq
// @Produce json
// @Param saqId path int true "SAQ ID"
// @Success 200 {object} models.TestStats
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /saq/teacher/saq/{saqId}/analytics [get]
func (ac *AnalyticsController) TestAnalytics(c *fiber.Ctx) error {
	saq, err := ac.ownTest(c, "saqId")
	if err != nil {
		return err
	}

	subs, err := ac.submissionsFor(saq.ID)
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	return c.JSON(services.ComputeTestStats(*saq, subs))
}

func (ac *AnalyticsController) TeacherAnalytics(c *fiber.Ctx) error {
	teacher, _ := middleware.CurrentTeacher(c)

	var tests []models.SAQTest
	if err := ac.DB.Preload("Questions", orderByPosition).Where("teacher_id = ?", teacher.ID).Find(&tests).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	var subs []models.SAQSubmission
	if len(tests) > 0 {
		ids := make([]uint, 0, len(tests))
		for _, t := range tests {
			ids = append(ids, t.ID)
		}
		var err error
		if subs, err = ac.submissionsFor(ids...); err != nil {
			return utils.InternalServerError(c, "Could not query database")
		}
	}

	return c.JSON(services.ComputeTeacherAnalytics(tests, subs, ac.Cfg.ScoreThreshold))
}

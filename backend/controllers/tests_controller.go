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

// TestsController runs the SAQ test lifecycle: creation, attempt-limited
// submission and AI evaluation.
type TestsController struct {
	DB      *gorm.DB
	Cfg     *config.Config
	Log     *utils.Logger
	Scorer  services.Scorer
	Metrics services.OutcomeRecorder
}

func NewTestsController(db *gorm.DB, cfg *config.Config, log *utils.Logger, scorer services.Scorer, metrics services.OutcomeRecorder) *TestsController {
	return &TestsController{DB: db, Cfg: cfg, Log: log, Scorer: scorer, Metrics: metrics}
}

type questionInput struct {
	QuestionText string `json:"questionText" validate:"required"`
}

type createSAQInput struct {
	Title           string          `json:"title" validate:"required"`
	CourseID        uint            `json:"courseId" validate:"required"`
	Questions       []questionInput `json:"questions" validate:"required,min=1,dive"`
	AttemptsAllowed int             `json:"attemptsAllowed" validate:"omitempty,min=1"`
}

type answerInput struct {
	QuestionID uint   `json:"questionId" validate:"required"`
	AnswerText string `json:"answerText"`
}

type submitSAQInput struct {
	SAQID   uint          `json:"saqId" validate:"required"`
	Answers []answerInput `json:"answers" validate:"required,min=1,dive"`
}

type evaluateInput struct {
	SubmissionID uint `json:"submissionId" validate:"required"`
}

// Create godoc
// @Summary Create an SAQ test
// @Tags saq
// @Accept json
// @Produce json
// @Success 201 {object} models.SAQTest
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /saq/create [post]
func (tc *TestsController) Create(c *fiber.Ctx) error {
	teacher, _ := middleware.CurrentTeacher(c)

	var input createSAQInput
	if ok, err := utils.BindAndValidate(c, &input); !ok {
		return err
	}

	var course models.Course
	if err := tc.DB.First(&course, input.CourseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}
	if !teacher.Specializes(course.Subject) {
		return utils.Forbidden(c, "You can only create SAQs for your assigned subjects.")
	}

	attempts := input.AttemptsAllowed
	if attempts == 0 {
		attempts = 1
	}
	saq := models.SAQTest{
		Title:           input.Title,
		CourseID:        course.ID,
		TeacherID:       teacher.ID,
		AttemptsAllowed: attempts,
	}
	for i, q := range input.Questions {
		saq.Questions = append(saq.Questions, models.SAQQuestion{Position: i + 1, QuestionText: q.QuestionText})
	}

	if err := tc.DB.Create(&saq).Error; err != nil {
		tc.Log.Error("Could not create SAQ", "course_id", course.ID, "error", err)
		return utils.InternalServerError(c, "Could not create SAQ")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "SAQ created successfully!",
		"saq":     saq,
	})
}

// AvailableTests lists the tests of the student's enrolled courses with the
// remaining attempt count.
func (tc *TestsController) AvailableTests(c *fiber.Ctx) error {
	student, _ := middleware.CurrentStudent(c)

	var tests []models.SAQTest
	err := tc.DB.Preload("Questions", orderByPosition).Preload("Course").Preload("Teacher").
		Where("course_id IN (?)", tc.DB.Table("course_enrollments").Select("course_id").Where("student_id = ?", student.ID)).
		Order("created_at DESC").
		Find(&tests).Error
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	var subs []models.SAQSubmission
	if err := tc.DB.Where("student_id = ?", student.ID).Find(&subs).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	used := make(map[uint]int, len(subs))
	for _, s := range subs {
		used[s.SAQTestID] = s.Attempts
	}

	result := make([]fiber.Map, 0, len(tests))
	for _, t := range tests {
		remaining, canAttempt := services.AttemptStatus(t.AttemptsAllowed, used[t.ID])
		item := fiber.Map{
			"id":                t.ID,
			"title":             t.Title,
			"questions":         t.Questions,
			"attemptsAllowed":   t.AttemptsAllowed,
			"attemptsUsed":      used[t.ID],
			"attemptsRemaining": remaining,
			"canAttempt":        canAttempt,
			"createdAt":         t.CreatedAt,
		}
		if t.Course != nil {
			item["course"] = fiber.Map{"id": t.Course.ID, "name": t.Course.Name, "subject": t.Course.Subject}
		}
		if t.Teacher != nil {
			item["teacher"] = t.Teacher.Name
		}
		result = append(result, item)
	}

	return c.JSON(fiber.Map{"tests": result})
}

// Submit records a student's answers. The first submission creates the
// record; a later one replaces every answer and bumps the attempt count,
// until attemptsAllowed is reached.
func (tc *TestsController) Submit(c *fiber.Ctx) error {
	student, _ := middleware.CurrentStudent(c)

	var input submitSAQInput
	if ok, err := utils.BindAndValidate(c, &input); !ok {
		return err
	}

	var saq models.SAQTest
	if err := tc.DB.Preload("Questions").First(&saq, input.SAQID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "SAQ not found.")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	var enrolled int64
	if err := tc.DB.Table("course_enrollments").Where("course_id = ? AND student_id = ?", saq.CourseID, student.ID).Count(&enrolled).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	if enrolled == 0 {
		return utils.Forbidden(c, "You are not enrolled in this course")
	}

	if msg := checkCoverage(&saq, input.Answers); msg != "" {
		return utils.BadRequest(c, msg)
	}

	answers := make([]models.SAQAnswer, 0, len(input.Answers))
	for _, a := range input.Answers {
		answers = append(answers, models.SAQAnswer{QuestionID: a.QuestionID, AnswerText: a.AnswerText})
	}

	var submission models.SAQSubmission
	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("saq_test_id = ? AND student_id = ?", saq.ID, student.ID).First(&submission).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			submission = models.SAQSubmission{
				SAQTestID: saq.ID,
				StudentID: student.ID,
				Answers:   answers,
				Attempts:  1,
			}
			if err := tx.Create(&submission).Error; err != nil {
				return err
			}
			return refreshCourseProgress(tx, student.ID, saq.CourseID)
		}
		if err != nil {
			return err
		}

		if submission.Attempts >= saq.AttemptsAllowed {
			return models.ErrMaxAttempts
		}
		res := tx.Model(&models.SAQSubmission{}).
			Where("id = ? AND attempts < ?", submission.ID, saq.AttemptsAllowed).
			Update("attempts", gorm.Expr("attempts + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrMaxAttempts
		}

		if err := tx.Where("submission_id = ?", submission.ID).Delete(&models.SAQAnswer{}).Error; err != nil {
			return err
		}
		for i := range answers {
			answers[i].SubmissionID = submission.ID
		}
		if err := tx.Create(&answers).Error; err != nil {
			return err
		}
		submission.Attempts++
		submission.Answers = answers
		return refreshCourseProgress(tx, student.ID, saq.CourseID)
	})
	switch {
	case errors.Is(err, models.ErrMaxAttempts):
		return utils.Forbidden(c, models.ErrMaxAttempts.Error())
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return utils.Error(c, fiber.StatusConflict, "A submission for this SAQ is already being recorded, try again")
	case err != nil:
		tc.Log.Error("Could not save SAQ submission", "saq_id", saq.ID, "error", err)
		return utils.InternalServerError(c, "Could not save submission")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    "SAQ submitted successfully!",
		"submission": submission,
	})
}

// checkCoverage requires exactly one answer per question of the test.
func checkCoverage(saq *models.SAQTest, answers []answerInput) string {
	seen := make(map[uint]bool, len(answers))
	for _, a := range answers {
		if saq.Question(a.QuestionID) == nil {
			return "Answer references a question that is not part of this SAQ"
		}
		if seen[a.QuestionID] {
			return "Each question may only be answered once"
		}
		seen[a.QuestionID] = true
	}
	if len(seen) != len(saq.Questions) {
		return "Every question must be answered"
	}
	return ""
}

// Evaluate scores every answer of a submission. Only the submitting student
// or the teacher who owns the test may trigger it.
func (tc *TestsController) Evaluate(c *fiber.Ctx) error {
	var input evaluateInput
	if ok, err := utils.BindAndValidate(c, &input); !ok {
		return err
	}

	var submission models.SAQSubmission
	err := tc.DB.Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("SAQTest.Questions").
		First(&submission, input.SubmissionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Submission not found.")
		}
		return utils.InternalServerError(c, "Could not query database")
	}
	if submission.SAQTest == nil {
		return utils.NotFound(c, "SAQ not found.")
	}

	account := middleware.CurrentAccount(c)
	switch account.AccountRole() {
	case models.RoleStudent:
		if submission.StudentID != account.AccountID() {
			return utils.Forbidden(c, "You can only evaluate your own submissions")
		}
	case models.RoleTeacher:
		if submission.SAQTest.TeacherID != account.AccountID() {
			return utils.Forbidden(c, "You can only evaluate submissions for your own SAQ tests")
		}
	}
	if tc.Scorer == nil {
		return utils.InternalServerError(c, "Scorer is not configured")
	}

	scored := services.EvaluateAnswers(c.UserContext(), tc.Scorer, submission.SAQTest, submission.Answers, tc.Metrics, tc.Log)

	err = tc.DB.Transaction(func(tx *gorm.DB) error {
		// Every resubmission bumps attempts, so an unchanged count means the
		// scored answers are still the stored ones. The no-op update also
		// locks the row until commit.
		res := tx.Model(&models.SAQSubmission{}).
			Where("id = ? AND attempts = ?", submission.ID, submission.Attempts).
			UpdateColumn("attempts", gorm.Expr("attempts"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrSubmissionChanged
		}

		if err := tx.Where("submission_id = ?", submission.ID).Delete(&models.SAQAnswer{}).Error; err != nil {
			return err
		}
		for i := range scored {
			scored[i].SubmissionID = submission.ID
		}
		if len(scored) > 0 {
			if err := tx.Create(&scored).Error; err != nil {
				return err
			}
		}
		return refreshCourseProgress(tx, submission.StudentID, submission.SAQTest.CourseID)
	})
	switch {
	case errors.Is(err, models.ErrSubmissionChanged):
		return utils.Error(c, fiber.StatusConflict, models.ErrSubmissionChanged.Error())
	case err != nil:
		tc.Log.Error("Could not save evaluation", "submission_id", submission.ID, "error", err)
		return utils.InternalServerError(c, "Could not save evaluation")
	}
	submission.Answers = scored

	return c.JSON(fiber.Map{
		"message":    "Evaluation completed!",
		"submission": submission,
		"totalScore": services.SubmissionTotal(submission),
	})
}

func (tc *TestsController) Get(c *fiber.Ctx) error {
	id, ok := paramID(c, "saqId")
	if !ok {
		return utils.BadRequest(c, "Invalid SAQ ID")
	}

	var saq models.SAQTest
	err := tc.DB.Preload("Questions", orderByPosition).Preload("Course").Preload("Teacher").First(&saq, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "SAQ not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}
	return c.JSON(saq)
}

func (tc *TestsController) TeacherTests(c *fiber.Ctx) error {
	teacher, _ := middleware.CurrentTeacher(c)

	tests := []models.SAQTest{}
	if err := tc.DB.Preload("Course").Preload("Questions", orderByPosition).
		Where("teacher_id = ?", teacher.ID).
		Order("created_at DESC").
		Find(&tests).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	return c.JSON(tests)
}

// StudentSubmissions lists the caller's submissions with totals.
func (tc *TestsController) StudentSubmissions(c *fiber.Ctx) error {
	student, _ := middleware.CurrentStudent(c)

	var subs []models.SAQSubmission
	if err := tc.DB.Preload("Answers").Preload("SAQTest.Course").
		Where("student_id = ?", student.ID).
		Order("updated_at DESC").
		Find(&subs).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	result := make([]fiber.Map, 0, len(subs))
	for _, s := range subs {
		item := fiber.Map{
			"submissionId": s.ID,
			"saqId":        s.SAQTestID,
			"attemptsUsed": s.Attempts,
			"submittedAt":  s.UpdatedAt,
			"answers":      s.Answers,
			"totalScore":   services.SubmissionTotal(s),
		}
		if s.SAQTest != nil {
			item["title"] = s.SAQTest.Title
			item["attemptsAllowed"] = s.SAQTest.AttemptsAllowed
			if s.SAQTest.Course != nil {
				item["course"] = fiber.Map{"name": s.SAQTest.Course.Name, "subject": s.SAQTest.Course.Subject}
			}
		}
		result = append(result, item)
	}

	resp := fiber.Map{"submissions": result}
	if len(result) == 0 {
		resp["message"] = "No submissions found."
	}
	return c.JSON(resp)
}

func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}

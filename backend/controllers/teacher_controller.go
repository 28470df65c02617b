package controllers

import (
	"errors"
	"time"
	"vidyasetu/backend/config"
	"vidyasetu/backend/middleware"
	"vidyasetu/backend/models"
	"vidyasetu/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TeacherController mirrors AuthController for teacher accounts.
type TeacherController struct {
	DB  *gorm.DB
	Cfg *config.Config
	Log *utils.Logger
}

func NewTeacherController(db *gorm.DB, cfg *config.Config, log *utils.Logger) *TeacherController {
	return &TeacherController{DB: db, Cfg: cfg, Log: log}
}

type certificateInput struct {
	Name            string `json:"name" validate:"required"`
	IssuedBy        string `json:"issuedBy" validate:"required"`
	IssueDate       string `json:"issueDate" validate:"required"`
	CertificateFile string `json:"certificateFile"`
}

type teacherSignupInput struct {
	Name              string             `json:"name" validate:"required"`
	Email             string             `json:"email" validate:"required,email"`
	Password          string             `json:"password" validate:"required,min=6"`
	Phone             string             `json:"phone"`
	Address           string             `json:"address"`
	DateOfBirth       string             `json:"dob"`
	School            string             `json:"school"`
	ProfilePicture    string             `json:"profilePicture"`
	SubjectSpeciality []string           `json:"subjectSpeciality" validate:"required,min=1,dive,required"`
	Certificates      []certificateInput `json:"certificates" validate:"omitempty,dive"`
}

type teacherUpdateInput struct {
	Name              *string            `json:"name" validate:"omitempty,min=1"`
	Email             *string            `json:"email" validate:"omitempty,email"`
	Password          *string            `json:"password" validate:"omitempty,min=6"`
	Phone             *string            `json:"phone"`
	Address           *string            `json:"address"`
	DateOfBirth       *string            `json:"dob"`
	School            *string            `json:"school"`
	ProfilePicture    *string            `json:"profilePicture"`
	SubjectSpeciality []string           `json:"subjectSpeciality" validate:"omitempty,min=1,dive,required"`
	Certificates      []certificateInput `json:"certificates" validate:"omitempty,dive"`
}

func buildCertificates(in []certificateInput) ([]models.TeacherCertificate, map[string]string) {
	out := make([]models.TeacherCertificate, 0, len(in))
	now := time.Now()
	for _, ci := range in {
		issued, err := parseDate(ci.IssueDate)
		if err != nil || issued == nil {
			return nil, map[string]string{"certificates.issueDate": "date"}
		}
		if issued.After(now) {
			return nil, map[string]string{"certificates.issueDate": "not in the future"}
		}
		out = append(out, models.TeacherCertificate{
			Name:            ci.Name,
			IssuedBy:        ci.IssuedBy,
			IssueDate:       *issued,
			CertificateFile: ci.CertificateFile,
		})
	}
	return out, nil
}

// Signup godoc
// @Summary Register a teacher
// @Tags teacher
// @Accept json
// @Produce json
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Router /teacher/signup [post]
func (tc *TeacherController) Signup(c *fiber.Ctx) error {
	var input teacherSignupInput
	if ok, err := utils.BindAndValidate(c, &input); !ok {
		return err
	}

	email := normalizeEmail(input.Email)
	var count int64
	if err := tc.DB.Model(&models.Teacher{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	if count > 0 {
		return utils.BadRequest(c, "Teacher already exists")
	}

	dob, err := parseDate(input.DateOfBirth)
	if err != nil {
		return utils.ValidationError(c, map[string]string{"dob": "date"})
	}
	certificates, verrs := buildCertificates(input.Certificates)
	if verrs != nil {
		return utils.ValidationError(c, verrs)
	}

	hashed, err := hashPassword(input.Password)
	if err != nil {
		return utils.InternalServerError(c, "Could not hash password")
	}

	teacher := models.Teacher{
		Name:              input.Name,
		Email:             email,
		Password:          hashed,
		Phone:             input.Phone,
		Address:           input.Address,
		DateOfBirth:       dob,
		School:            input.School,
		ProfilePicture:    input.ProfilePicture,
		SubjectSpeciality: datatypes.JSONSlice[string](input.SubjectSpeciality),
		Certificates:      certificates,
	}
	if err := tc.DB.Create(&teacher).Error; err != nil {
		tc.Log.Error("Could not create teacher", "error", err)
		return utils.InternalServerError(c, "Could not create teacher")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Teacher registered successfully",
		"teacher": teacher,
	})
}

func (tc *TeacherController) Login(c *fiber.Ctx) error {
	var input loginInput
	if ok, err := utils.BindAndValidate(c, &input); !ok {
		return err
	}

	var teacher models.Teacher
	if err := tc.DB.Where("email = ?", normalizeEmail(input.Email)).First(&teacher).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.BadRequest(c, "Invalid email or password")
		}
		return utils.InternalServerError(c, "Could not query database")
	}
	if !passwordMatches(teacher.Password, input.Password) {
		return utils.BadRequest(c, "Invalid email or password")
	}

	token, err := utils.GenerateJWTToken(teacher.ID, models.RoleTeacher, tc.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"role":    models.RoleTeacher,
		"teacher": teacher,
	})
}

func (tc *TeacherController) Profile(c *fiber.Ctx) error {
	teacher, _ := middleware.CurrentTeacher(c)

	var full models.Teacher
	if err := tc.DB.Preload("Certificates").First(&full, teacher.ID).Error; err != nil {
		return utils.NotFound(c, "Teacher not found")
	}
	return c.JSON(full)
}

func (tc *TeacherController) Update(c *fiber.Ctx) error {
	teacher, _ := middleware.CurrentTeacher(c)
	id, ok := paramID(c, "id")
	if !ok {
		return utils.BadRequest(c, "Invalid teacher ID")
	}
	if id != teacher.ID {
		return utils.Forbidden(c, "You can only update your own profile")
	}

	var input teacherUpdateInput
	if ok, err := utils.BindAndValidate(c, &input); !ok {
		return err
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if email != teacher.Email {
			var count int64
			if err := tc.DB.Model(&models.Teacher{}).Where("email = ? AND id <> ?", email, teacher.ID).Count(&count).Error; err != nil {
				return utils.InternalServerError(c, "Could not query database")
			}
			if count > 0 {
				return utils.BadRequest(c, "Email already in use")
			}
		}
		updates["email"] = email
	}
	if input.Password != nil {
		hashed, err := hashPassword(*input.Password)
		if err != nil {
			return utils.InternalServerError(c, "Could not hash password")
		}
		updates["password"] = hashed
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}
	if input.Address != nil {
		updates["address"] = *input.Address
	}
	if input.DateOfBirth != nil {
		dob, err := parseDate(*input.DateOfBirth)
		if err != nil {
			return utils.ValidationError(c, map[string]string{"dob": "date"})
		}
		updates["date_of_birth"] = dob
	}
	if input.School != nil {
		updates["school"] = *input.School
	}
	if input.ProfilePicture != nil {
		updates["profile_picture"] = *input.ProfilePicture
	}
	if input.SubjectSpeciality != nil {
		updates["subject_speciality"] = datatypes.JSONSlice[string](input.SubjectSpeciality)
	}

	var certificates []models.TeacherCertificate
	if input.Certificates != nil {
		var verrs map[string]string
		certificates, verrs = buildCertificates(input.Certificates)
		if verrs != nil {
			return utils.ValidationError(c, verrs)
		}
	}

	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(teacher).Updates(updates).Error; err != nil {
				return err
			}
		}
		if input.Certificates != nil {
			if err := tx.Unscoped().Where("teacher_id = ?", teacher.ID).Delete(&models.TeacherCertificate{}).Error; err != nil {
				return err
			}
			for i := range certificates {
				certificates[i].TeacherID = teacher.ID
			}
			if len(certificates) > 0 {
				if err := tx.Create(&certificates).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return utils.InternalServerError(c, "Could not update teacher")
	}

	var updated models.Teacher
	if err := tc.DB.Preload("Certificates").First(&updated, teacher.ID).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	return c.JSON(fiber.Map{
		"message": "Profile updated successfully",
		"teacher": updated,
	})
}

func (tc *TeacherController) Delete(c *fiber.Ctx) error {
	teacher, _ := middleware.CurrentTeacher(c)
	id, ok := paramID(c, "id")
	if !ok {
		return utils.BadRequest(c, "Invalid teacher ID")
	}
	if id != teacher.ID {
		return utils.Forbidden(c, "You can only delete your own account")
	}

	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := deleteOwnedTests(tx, id); err != nil {
			return err
		}
		if err := tx.Unscoped().Where("teacher_id = ?", id).Delete(&models.TeacherCertificate{}).Error; err != nil {
			return err
		}
		if err := tx.Where("teacher_id = ?", id).Delete(&models.CourseTeacher{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Teacher{}, id).Error
	})
	if err != nil {
		tc.Log.Error("Could not delete teacher", "teacher_id", id, "error", err)
		return utils.InternalServerError(c, "Could not delete teacher")
	}
	return c.JSON(fiber.Map{"message": "Teacher deleted successfully"})
}

// deleteOwnedTests removes every SAQ test of a teacher together with its
// questions, submissions and answers, then recomputes the progress of the
// students who had submitted to them.
func deleteOwnedTests(tx *gorm.DB, teacherID uint) error {
	var testIDs []uint
	if err := tx.Unscoped().Model(&models.SAQTest{}).Where("teacher_id = ?", teacherID).Pluck("id", &testIDs).Error; err != nil {
		return err
	}
	if len(testIDs) == 0 {
		return nil
	}

	var affected []struct {
		StudentID uint
		CourseID  uint
	}
	if err := tx.Unscoped().Model(&models.SAQSubmission{}).
		Select("DISTINCT saq_submissions.student_id, saq_tests.course_id").
		Joins("JOIN saq_tests ON saq_tests.id = saq_submissions.saq_test_id").
		Where("saq_submissions.saq_test_id IN ?", testIDs).
		Scan(&affected).Error; err != nil {
		return err
	}

	var subIDs []uint
	if err := tx.Unscoped().Model(&models.SAQSubmission{}).Where("saq_test_id IN ?", testIDs).Pluck("id", &subIDs).Error; err != nil {
		return err
	}
	if len(subIDs) > 0 {
		if err := tx.Where("submission_id IN ?", subIDs).Delete(&models.SAQAnswer{}).Error; err != nil {
			return err
		}
	}
	if err := tx.Unscoped().Where("saq_test_id IN ?", testIDs).Delete(&models.SAQSubmission{}).Error; err != nil {
		return err
	}
	if err := tx.Where("saq_test_id IN ?", testIDs).Delete(&models.SAQQuestion{}).Error; err != nil {
		return err
	}
	if err := tx.Unscoped().Where("id IN ?", testIDs).Delete(&models.SAQTest{}).Error; err != nil {
		return err
	}

	for _, a := range affected {
		if err := refreshCourseProgress(tx, a.StudentID, a.CourseID); err != nil {
			return err
		}
	}
	return nil
}

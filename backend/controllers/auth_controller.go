package controllers

import (
	"errors"
	"vidyasetu/backend/config"
	"vidyasetu/backend/middleware"
	"vidyasetu/backend/models"
	"vidyasetu/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AuthController serves the student account lifecycle under /api/auth.
type AuthController struct {
	DB  *gorm.DB
	Cfg *config.Config
	Log *utils.Logger
}

func NewAuthController(db *gorm.DB, cfg *config.Config, log *utils.Logger) *AuthController {
	return &AuthController{DB: db, Cfg: cfg, Log: log}
}

type studentSignupInput struct {
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=6"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	DateOfBirth    string `json:"dob"`
	School         string `json:"school"`
	ProfilePicture string `json:"profilePicture"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type studentUpdateInput struct {
	Name           *string `json:"name" validate:"omitempty,min=1"`
	Email          *string `json:"email" validate:"omitempty,email"`
	Password       *string `json:"password" validate:"omitempty,min=6"`
	Phone          *string `json:"phone"`
	Address        *string `json:"address"`
	DateOfBirth    *string `json:"dob"`
	School         *string `json:"school"`
	ProfilePicture *string `json:"profilePicture"`
}

// Signup godoc
// @Summary Register a student
// @Tags auth
// @Accept json
// @Produce json
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Router /auth/signup [post]
func (ac *AuthController) Signup(c *fiber.Ctx) error {
	var input studentSignupInput
	if ok, err := utils.BindAndValidate(c, &input); !ok {
		return err
	}

	email := normalizeEmail(input.Email)
	var count int64
	if err := ac.DB.Model(&models.Student{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	if count > 0 {
		return utils.BadRequest(c, "Student already exists")
	}

	dob, err := parseDate(input.DateOfBirth)
	if err != nil {
		return utils.ValidationError(c, map[string]string{"dob": "date"})
	}

	hashed, err := hashPassword(input.Password)
	if err != nil {
		return utils.InternalServerError(c, "Could not hash password")
	}

	student := models.Student{
		Name:           input.Name,
		Email:          email,
		Password:       hashed,
		Phone:          input.Phone,
		Address:        input.Address,
		DateOfBirth:    dob,
		School:         input.School,
		ProfilePicture: input.ProfilePicture,
	}
	if err := ac.DB.Create(&student).Error; err != nil {
		ac.Log.Error("Could not create student", "error", err)
		return utils.InternalServerError(c, "Could not create student")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Student registered successfully",
		"student": student,
	})
}

// Login godoc
// @Summary Student login
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Router /auth/login [post]
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var input loginInput
	if ok, err := utils.BindAndValidate(c, &input); !ok {
		return err
	}

	var student models.Student
	if err := ac.DB.Where("email = ?", normalizeEmail(input.Email)).First(&student).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.BadRequest(c, "Invalid email or password")
		}
		return utils.InternalServerError(c, "Could not query database")
	}
	if !passwordMatches(student.Password, input.Password) {
		return utils.BadRequest(c, "Invalid email or password")
	}

	token, err := utils.GenerateJWTToken(student.ID, models.RoleStudent, ac.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"role":    models.RoleStudent,
		"student": student,
	})
}

func (ac *AuthController) Profile(c *fiber.Ctx) error {
	student, _ := middleware.CurrentStudent(c)

	var full models.Student
	if err := ac.DB.Preload("EnrolledCourses").Preload("Certificates").First(&full, student.ID).Error; err != nil {
		return utils.NotFound(c, "Student not found")
	}
	return c.JSON(full)
}

func (ac *AuthController) Update(c *fiber.Ctx) error {
	student, _ := middleware.CurrentStudent(c)
	id, ok := paramID(c, "id")
	if !ok {
		return utils.BadRequest(c, "Invalid student ID")
	}
	if id != student.ID {
		return utils.Forbidden(c, "You can only update your own profile")
	}

	var input studentUpdateInput
	if ok, err := utils.BindAndValidate(c, &input); !ok {
		return err
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if email != student.Email {
			var count int64
			if err := ac.DB.Model(&models.Student{}).Where("email = ? AND id <> ?", email, student.ID).Count(&count).Error; err != nil {
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

	if len(updates) > 0 {
		if err := ac.DB.Model(student).Updates(updates).Error; err != nil {
			return utils.InternalServerError(c, "Could not update student")
		}
	}

	var updated models.Student
	if err := ac.DB.First(&updated, student.ID).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	return c.JSON(fiber.Map{
		"message": "Profile updated successfully",
		"student": updated,
	})
}

func (ac *AuthController) Delete(c *fiber.Ctx) error {
	student, _ := middleware.CurrentStudent(c)
	id, ok := paramID(c, "id")
	if !ok {
		return utils.BadRequest(c, "Invalid student ID")
	}
	if id != student.ID {
		return utils.Forbidden(c, "You can only delete your own account")
	}

	err := ac.DB.Transaction(func(tx *gorm.DB) error {
		var subIDs []uint
		if err := tx.Model(&models.SAQSubmission{}).Where("student_id = ?", id).Pluck("id", &subIDs).Error; err != nil {
			return err
		}
		if len(subIDs) > 0 {
			if err := tx.Where("submission_id IN ?", subIDs).Delete(&models.SAQAnswer{}).Error; err != nil {
				return err
			}
		}
		for _, m := range []interface{}{
			&models.SAQSubmission{},
			&models.ChatMessage{},
			&models.AttendanceEntry{},
			&models.Certificate{},
			&models.CourseProgress{},
		} {
			if err := tx.Unscoped().Where("student_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(student).Association("EnrolledCourses").Clear(); err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Student{}, id).Error
	})
	if err != nil {
		ac.Log.Error("Could not delete student", "student_id", id, "error", err)
		return utils.InternalServerError(c, "Could not delete student")
	}
	return c.JSON(fiber.Map{"message": "Student deleted successfully"})
}

// VerifyToken reports the identity behind an already verified token.
func (ac *AuthController) VerifyToken(c *fiber.Ctx) error {
	account := middleware.CurrentAccount(c)
	return c.JSON(fiber.Map{
		"valid": true,
		"id":    account.AccountID(),
		"role":  account.AccountRole(),
		"name":  account.DisplayName(),
	})
}

func (ac *AuthController) Certificates(c *fiber.Ctx) error {
	student, _ := middleware.CurrentStudent(c)

	var certificates []models.Certificate
	if err := ac.DB.Where("student_id = ?", student.ID).Order("issue_date DESC").Find(&certificates).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	return c.JSON(fiber.Map{"certificates": certificates})
}

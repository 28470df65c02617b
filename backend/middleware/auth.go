package middleware

import (
	"errors"
	"vidyasetu/backend/config"
	"vidyasetu/backend/models"
	"vidyasetu/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	localAccount = "account"
	localRole    = "role"
)

var errUserNotFound = errors.New("user not found")

// AuthMiddleware verifies the bearer token and attaches the resolved account
// and role to the request.
func AuthMiddleware(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := utils.ParseToken(c.Get(fiber.HeaderAuthorization), cfg)
		if err != nil {
			return utils.Unauthorized(c, err.Error())
		}

		account, err := LoadAccount(db, claims.UserID, claims.Role)
		if err != nil {
			if errors.Is(err, errUserNotFound) {
				return utils.Unauthorized(c, "Unauthorized: user not found")
			}
			return utils.InternalServerError(c, "Could not load account")
		}

		c.Locals(localAccount, account)
		c.Locals(localRole, account.AccountRole())
		return c.Next()
	}
}

// LoadAccount looks the id up in the table named by role. Without a role the
// student table is tried first, then the teacher table.
func LoadAccount(db *gorm.DB, id uint, role models.Role) (models.Account, error) {
	switch role {
	case models.RoleStudent:
		return findStudent(db, id)
	case models.RoleTeacher:
		return findTeacher(db, id)
	}
	student, err := findStudent(db, id)
	if err == nil {
		return student, nil
	}
	if !errors.Is(err, errUserNotFound) {
		return nil, err
	}
	return findTeacher(db, id)
}

func findStudent(db *gorm.DB, id uint) (*models.Student, error) {
	var student models.Student
	if err := db.First(&student, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errUserNotFound
		}
		return nil, err
	}
	return &student, nil
}

func findTeacher(db *gorm.DB, id uint) (*models.Teacher, error) {
	var teacher models.Teacher
	if err := db.First(&teacher, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errUserNotFound
		}
		return nil, err
	}
	return &teacher, nil
}

// RequireRole rejects accounts whose role is not listed.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(localRole).(models.Role)
		for _, r := range roles {
			if r == role {
				return c.Next()
			}
		}
		return utils.Forbidden(c, "Forbidden: "+string(role)+" accounts cannot access this resource")
	}
}

func CurrentAccount(c *fiber.Ctx) models.Account {
	account, _ := c.Locals(localAccount).(models.Account)
	return account
}

func CurrentStudent(c *fiber.Ctx) (*models.Student, bool) {
	s, ok := c.Locals(localAccount).(*models.Student)
	return s, ok
}

func CurrentTeacher(c *fiber.Ctx) (*models.Teacher, bool) {
	t, ok := c.Locals(localAccount).(*models.Teacher)
	return t, ok
}

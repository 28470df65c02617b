package controllers

import (
	"vidyasetu/backend/config"
	"vidyasetu/backend/middleware"
	"vidyasetu/backend/models"
	"vidyasetu/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ChatController stores the student's conversation with the assistant.
// Replies are generated client-side and posted back with sender "bot".
type ChatController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewChatController(db *gorm.DB, cfg *config.Config) *ChatController {
	return &ChatController{DB: db, Cfg: cfg}
}

type chatInput struct {
	Text   string `json:"text" validate:"required"`
	Sender string `json:"sender" validate:"required,oneof=user bot"`
	Image  string `json:"image"`
	Audio  string `json:"audio"`
}

func (cc *ChatController) History(c *fiber.Ctx) error {
	student, _ := middleware.CurrentStudent(c)
	id, ok := paramID(c, "studentId")
	if !ok {
		return utils.BadRequest(c, "Invalid student ID")
	}
	if id != student.ID {
		return utils.Forbidden(c, "You can only read your own chat history")
	}

	messages := []models.ChatMessage{}
	if err := cc.DB.Where("student_id = ?", id).Order("time ASC, id ASC").Find(&messages).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	return c.JSON(messages)
}

func (cc *ChatController) Post(c *fiber.Ctx) error {
	student, _ := middleware.CurrentStudent(c)

	var input chatInput
	if ok, err := utils.BindAndValidate(c, &input); !ok {
		return err
	}

	msg := models.ChatMessage{
		StudentID: student.ID,
		Text:      input.Text,
		Sender:    models.ChatSender(input.Sender),
		Image:     input.Image,
		Audio:     input.Audio,
	}
	if err := cc.DB.Create(&msg).Error; err != nil {
		return utils.InternalServerError(c, "Could not save message")
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

package controllers

import (
	"errors"
	"sync"
	"time"
	"vidyasetu/backend/config"
	"vidyasetu/backend/middleware"
	"vidyasetu/backend/models"
	"vidyasetu/backend/services"
	"vidyasetu/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OAuthStateTTL bounds how long a consent URL stays usable.
const OAuthStateTTL = 10 * time.Minute

type MeetController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Log      *utils.Logger
	Calendar services.CalendarClient
	states   *oauthStates
}

func NewMeetController(db *gorm.DB, cfg *config.Config, log *utils.Logger, cal services.CalendarClient) *MeetController {
	return &MeetController{
		DB:       db,
		Cfg:      cfg,
		Log:      log,
		Calendar: cal,
		states:   newOAuthStates(OAuthStateTTL, time.Now),
	}
}

type pendingState struct {
	teacherID uint
	expires   time.Time
}

// oauthStates holds the OAuth state values handed out by AuthURL. Each one
// belongs to the teacher who requested it and is accepted once.
type oauthStates struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	pending map[string]pendingState
}

func newOAuthStates(ttl time.Duration, now func() time.Time) *oauthStates {
	return &oauthStates{ttl: ttl, now: now, pending: map[string]pendingState{}}
}

func (s *oauthStates) issue(teacherID uint) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for state, p := range s.pending {
		if !now.Before(p.expires) {
			delete(s.pending, state)
		}
	}
	state := uuid.NewString()
	s.pending[state] = pendingState{teacherID: teacherID, expires: now.Add(s.ttl)}
	return state
}

// consume returns the teacher a state was issued to. Unknown, reused and
// expired states are rejected.
func (s *oauthStates) consume(state string) (uint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[state]
	if !ok {
		return 0, false
	}
	delete(s.pending, state)
	if !s.now().Before(p.expires) {
		return 0, false
	}
	return p.teacherID, true
}

type createMeetInput struct {
	Summary     string    `json:"summary" validate:"required"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"startTime" validate:"required"`
	EndTime     time.Time `json:"endTime" validate:"required"`
	CourseID    *uint     `json:"courseId"`
}

func (mc *MeetController) AuthURL(c *fiber.Ctx) error {
	teacher, _ := middleware.CurrentTeacher(c)
	return c.JSON(fiber.Map{"url": mc.Calendar.AuthURL(mc.states.issue(teacher.ID))})
}

// AuthCallback is reached by the browser redirect from Google, so it carries
// no bearer token. The state issued by AuthURL authenticates it.
func (mc *MeetController) AuthCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return utils.BadRequest(c, "Missing authorization code")
	}
	teacherID, ok := mc.states.consume(c.Query("state"))
	if !ok {
		return utils.BadRequest(c, "Invalid or expired OAuth state")
	}
	if err := mc.Calendar.Exchange(c.UserContext(), code); err != nil {
		mc.Log.Error("Calendar authorization failed", "teacher_id", teacherID, "error", err)
		return utils.InternalServerError(c, "Could not authorize calendar access")
	}
	mc.Log.Info("Calendar access authorized", "teacher_id", teacherID)
	return c.JSON(fiber.Map{"message": "Calendar access authorized"})
}

// CreateMeet godoc
// @Summary Schedule an online class with a Meet link
// @Tags meet
// @Accept json
// @Produce json
// @Success 201 {object} models.Meeting
// @Failure 400 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /meet/create-meet [post]
func (mc *MeetController) CreateMeet(c *fiber.Ctx) error {
	teacher, _ := middleware.CurrentTeacher(c)

	var input createMeetInput
	if ok, err := utils.BindAndValidate(c, &input); !ok {
		return err
	}
	if !input.EndTime.After(input.StartTime) {
		return utils.BadRequest(c, "endTime must be after startTime")
	}

	if input.CourseID != nil {
		var course models.Course
		if err := mc.DB.Preload("Teachers").First(&course, *input.CourseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NotFound(c, "Course not found")
			}
			return utils.InternalServerError(c, "Could not query database")
		}
		if !course.HasTeacher(teacher.ID) {
			return utils.Forbidden(c, "You do not teach this course")
		}
	}

	event, err := mc.Calendar.CreateMeet(c.UserContext(), services.MeetRequest{
		Summary:     input.Summary,
		Description: input.Description,
		Start:       input.StartTime,
		End:         input.EndTime,
	})
	if err != nil {
		mc.Log.Error("Calendar event creation failed", "teacher_id", teacher.ID, "error", err)
		if errors.Is(err, services.ErrCalendarNotAuthorized) {
			return utils.InternalServerError(c, err.Error())
		}
		return utils.InternalServerError(c, "Could not create meeting")
	}

	duration := int(input.EndTime.Sub(input.StartTime) / time.Minute)
	meeting := models.Meeting{
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
		Duration:  duration,
		HostName:  teacher.Name,
		MeetLink:  event.MeetLink,
		TeacherID: teacher.ID,
		CourseID:  input.CourseID,
	}
	err = mc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&meeting).Error; err != nil {
			return err
		}
		if input.CourseID == nil {
			return nil
		}
		return tx.Create(&models.CourseMeeting{
			CourseID:  *input.CourseID,
			StartTime: input.StartTime,
			Duration:  duration,
			EndTime:   input.EndTime,
			HostName:  teacher.Name,
		}).Error
	})
	if err != nil {
		mc.Log.Error("Could not save meeting", "event_id", event.EventID, "error", err)
		return utils.InternalServerError(c, "Could not save meeting")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Meeting created successfully",
		"meetLink": event.MeetLink,
		"meeting":  meeting,
	})
}

func (mc *MeetController) Meetings(c *fiber.Ctx) error {
	meetings := []models.Meeting{}
	if err := mc.DB.Order("start_time DESC").Find(&meetings).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	return c.JSON(meetings)
}

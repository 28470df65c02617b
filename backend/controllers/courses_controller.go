package controllers

import (
	"errors"
	"fmt"
	"strconv"
	"time"
	"vidyasetu/backend/config"
	"vidyasetu/backend/middleware"
	"vidyasetu/backend/models"
	"vidyasetu/backend/services"
	"vidyasetu/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CoursesController struct {
	DB    *gorm.DB
	Cfg   *config.Config
	Log   *utils.Logger
	Store services.FileStore
}

func NewCoursesController(db *gorm.DB, cfg *config.Config, log *utils.Logger, store services.FileStore) *CoursesController {
	return &CoursesController{DB: db, Cfg: cfg, Log: log, Store: store}
}

type courseTeacherInput struct {
	TeacherID uint   `json:"teacherId" validate:"required"`
	Subject   string `json:"subject" validate:"required"`
}

type lessonInput struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description" validate:"required"`
	VideoURL    string   `json:"videoUrl" validate:"omitempty,url"`
	Resources   []string `json:"resources" validate:"omitempty,dive,url"`
	Duration    int      `json:"duration" validate:"required,min=1"`
}

type courseMeetingInput struct {
	StartTime time.Time  `json:"startTime" validate:"required"`
	Duration  int        `json:"duration" validate:"required,min=1"`
	EndTime   *time.Time `json:"endTime"`
	HostName  string     `json:"hostName" validate:"required"`
}

type createCourseInput struct {
	Subject     string               `json:"subject" validate:"required"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Grade       string               `json:"grade"`
	Teachers    []courseTeacherInput `json:"teacher" validate:"omitempty,dive"`
	Lessons     []lessonInput        `json:"lessons" validate:"omitempty,dive"`
	Meetings    []courseMeetingInput `json:"meetings" validate:"omitempty,dive"`
	Price       float64              `json:"price" validate:"min=0"`
	Thumbnail   string               `json:"thumbnail"`
}

type noteInput struct {
	CourseID uint   `json:"courseId" validate:"required"`
	FileURL  string `json:"fileUrl" validate:"required,url"`
	FileName string `json:"fileName" validate:"required"`
}

func (in lessonInput) model(courseID uint) models.Lesson {
	return models.Lesson{
		CourseID:    courseID,
		Title:       in.Title,
		Description: in.Description,
		VideoURL:    in.VideoURL,
		Resources:   datatypes.JSONSlice[string](in.Resources),
		Duration:    in.Duration,
	}
}

func (in courseMeetingInput) model(courseID uint) models.CourseMeeting {
	m := models.CourseMeeting{
		CourseID:  courseID,
		StartTime: in.StartTime,
		Duration:  in.Duration,
		HostName:  in.HostName,
	}
	if in.EndTime != nil {
		m.EndTime = *in.EndTime
	}
	return m
}

// validateCourseTeachers checks every (teacher, subject) pair against the
// teacher's specialities.
func (cc *CoursesController) validateCourseTeachers(pairs []courseTeacherInput) ([]models.CourseTeacher, error) {
	out := make([]models.CourseTeacher, 0, len(pairs))
	for _, p := range pairs {
		var teacher models.Teacher
		if err := cc.DB.First(&teacher, p.TeacherID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: %d", models.ErrTeacherNotFound, p.TeacherID)
			}
			return nil, err
		}
		if !teacher.Specializes(p.Subject) {
			return nil, fmt.Errorf("%w: teacher %s does not specialize in %s", models.ErrSpecialityMismatch, teacher.Name, p.Subject)
		}
		out = append(out, models.CourseTeacher{TeacherID: teacher.ID, Subject: p.Subject})
	}
	return out, nil
}

// Create godoc
// @Summary Create a course
// @Tags course
// @Accept json
// @Produce json
// @Success 201 {object} models.Course
// @Failure 400 {object} utils.ErrorResponse
// @Router /course/create [post]
func (cc *CoursesController) Create(c *fiber.Ctx) error {
	teacher, _ := middleware.CurrentTeacher(c)

	var input createCourseInput
	if ok, err := utils.BindAndValidate(c, &input); !ok {
		return err
	}
	if len(input.Teachers) == 0 {
		input.Teachers = []courseTeacherInput{{TeacherID: teacher.ID, Subject: input.Subject}}
	}

	pairs, err := cc.validateCourseTeachers(input.Teachers)
	if err != nil {
		if errors.Is(err, models.ErrSpecialityMismatch) || errors.Is(err, models.ErrTeacherNotFound) {
			return utils.BadRequest(c, err.Error())
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	course := models.Course{
		Subject:     input.Subject,
		Name:        input.Name,
		Description: input.Description,
		Grade:       input.Grade,
		Teachers:    pairs,
		Price:       input.Price,
		Thumbnail:   input.Thumbnail,
	}
	for _, l := range input.Lessons {
		course.Lessons = append(course.Lessons, l.model(0))
	}
	for _, m := range input.Meetings {
		course.Meetings = append(course.Meetings, m.model(0))
	}

	if err := cc.DB.Create(&course).Error; err != nil {
		cc.Log.Error("Could not create course", "error", err)
		return utils.InternalServerError(c, "Could not create course")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Course created successfully",
		"course":  course,
	})
}

func (cc *CoursesController) All(c *fiber.Ctx) error {
	var courses []models.Course
	if err := cc.DB.Preload("Teachers.Teacher").Order("created_at DESC").Find(&courses).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	return c.JSON(fiber.Map{"courses": courses})
}

func (cc *CoursesController) Get(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var course models.Course
	err := cc.DB.Preload("Teachers.Teacher").Preload("Lessons").Preload("Meetings").First(&course, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}
	return c.JSON(course)
}

// Enroll adds the calling student to the course. Enrolling twice is a no-op.
func (cc *CoursesController) Enroll(c *fiber.Ctx) error {
	student, _ := middleware.CurrentStudent(c)
	course, err := cc.findCourse(c)
	if err != nil {
		return err
	}

	var count int64
	if err := cc.DB.Table("course_enrollments").Where("course_id = ? AND student_id = ?", course.ID, student.ID).Count(&count).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	if count == 0 {
		if err := cc.DB.Model(student).Association("EnrolledCourses").Append(course); err != nil {
			return utils.InternalServerError(c, "Could not enroll in course")
		}
	}

	return c.JSON(fiber.Map{
		"message":  "Enrolled successfully",
		"courseId": course.ID,
	})
}

func (cc *CoursesController) AddLesson(c *fiber.Ctx) error {
	course, err := cc.findOwnCourse(c)
	if err != nil {
		return err
	}

	var input lessonInput
	if ok, err := utils.BindAndValidate(c, &input); !ok {
		return err
	}

	lesson := input.model(course.ID)
	if err := cc.DB.Create(&lesson).Error; err != nil {
		return utils.InternalServerError(c, "Could not add lesson")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Lesson added successfully",
		"lesson":  lesson,
	})
}

func (cc *CoursesController) AddMeeting(c *fiber.Ctx) error {
	course, err := cc.findOwnCourse(c)
	if err != nil {
		return err
	}

	var input courseMeetingInput
	if ok, err := utils.BindAndValidate(c, &input); !ok {
		return err
	}

	meeting := input.model(course.ID)
	if err := cc.DB.Create(&meeting).Error; err != nil {
		return utils.InternalServerError(c, "Could not add meeting")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Meeting added successfully",
		"meeting": meeting,
	})
}

// Upload stores a note for a course. Multipart requests carry the file
// itself; JSON requests reference a file that is already hosted.
func (cc *CoursesController) Upload(c *fiber.Ctx) error {
	teacher, _ := middleware.CurrentTeacher(c)

	var note models.Note
	var uploadedKey string
	if fh, err := c.FormFile("file"); err == nil {
		courseID, err := strconv.ParseUint(c.FormValue("courseId"), 10, 64)
		if err != nil || courseID == 0 {
			return utils.ValidationError(c, map[string]string{"courseId": "required"})
		}
		if limit := int64(cc.Cfg.UploadMaxMB) << 20; limit > 0 && fh.Size > limit {
			return utils.BadRequest(c, fmt.Sprintf("File exceeds %d MB limit", cc.Cfg.UploadMaxMB))
		}
		if _, err := cc.courseTaughtBy(uint(courseID), teacher.ID); err != nil {
			return err
		}
		if cc.Store == nil {
			return utils.InternalServerError(c, "File storage is not configured")
		}

		f, err := fh.Open()
		if err != nil {
			return utils.BadRequest(c, "Could not read uploaded file")
		}
		defer f.Close()

		uploadedKey = services.NoteKey(uint(courseID), fh.Filename)
		url, err := cc.Store.Upload(c.UserContext(), uploadedKey, fh.Header.Get("Content-Type"), f)
		if err != nil {
			cc.Log.Error("Note upload failed", "course_id", courseID, "key", uploadedKey, "error", err)
			return utils.InternalServerError(c, "Could not upload file")
		}
		note = models.Note{CourseID: uint(courseID), TeacherID: teacher.ID, FileURL: url, FileName: fh.Filename}
	} else {
		var input noteInput
		if ok, err := utils.BindAndValidate(c, &input); !ok {
			return err
		}
		if _, err := cc.courseTaughtBy(input.CourseID, teacher.ID); err != nil {
			return err
		}
		note = models.Note{CourseID: input.CourseID, TeacherID: teacher.ID, FileURL: input.FileURL, FileName: input.FileName}
	}

	if err := cc.DB.Create(&note).Error; err != nil {
		cc.Log.Error("Could not save note", "course_id", note.CourseID, "error", err)
		if uploadedKey != "" {
			if derr := cc.Store.Delete(c.UserContext(), uploadedKey); derr != nil {
				cc.Log.Warn("Could not remove orphaned upload", "key", uploadedKey, "error", derr)
			}
		}
		return utils.InternalServerError(c, "Could not save note")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "File uploaded successfully",
		"note":    note,
	})
}

// Notes lists notes of the student's enrolled courses, newest first.
func (cc *CoursesController) Notes(c *fiber.Ctx) error {
	student, _ := middleware.CurrentStudent(c)

	var courseIDs []uint
	if err := cc.DB.Table("course_enrollments").Where("student_id = ?", student.ID).Pluck("course_id", &courseIDs).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	notes := []models.Note{}
	if len(courseIDs) > 0 {
		if err := cc.DB.Where("course_id IN ?", courseIDs).Order("uploaded_at DESC").Find(&notes).Error; err != nil {
			return utils.InternalServerError(c, "Could not query database")
		}
	}
	return c.JSON(fiber.Map{"notes": notes})
}

// TeacherCourses lists the courses the calling teacher is attached to.
func (cc *CoursesController) TeacherCourses(c *fiber.Ctx) error {
	teacher, _ := middleware.CurrentTeacher(c)

	courses := []models.Course{}
	err := cc.DB.Preload("Teachers.Teacher").Preload("Lessons").Preload("Meetings").
		Where("id IN (?)", cc.DB.Model(&models.CourseTeacher{}).Select("course_id").Where("teacher_id = ?", teacher.ID)).
		Order("created_at DESC").
		Find(&courses).Error
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	return c.JSON(fiber.Map{"courses": courses})
}

func (cc *CoursesController) findCourse(c *fiber.Ctx) (*models.Course, error) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid course ID")
	}
	var course models.Course
	if err := cc.DB.Preload("Teachers").First(&course, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Course not found")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Could not query database")
	}
	return &course, nil
}

func (cc *CoursesController) findOwnCourse(c *fiber.Ctx) (*models.Course, error) {
	teacher, _ := middleware.CurrentTeacher(c)
	id, ok := paramID(c, "id")
	if !ok {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid course ID")
	}
	return cc.courseTaughtBy(id, teacher.ID)
}

func (cc *CoursesController) courseTaughtBy(courseID, teacherID uint) (*models.Course, error) {
	var course models.Course
	if err := cc.DB.Preload("Teachers").First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Course not found")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Could not query database")
	}
	if !course.HasTeacher(teacherID) {
		return nil, fiber.NewError(fiber.StatusForbidden, "You do not teach this course")
	}
	return &course, nil
}

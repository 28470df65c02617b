package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultCourseName        = "Unnamed Course"
	DefaultCourseDescription = "Course description coming soon."
	DefaultCourseGrade       = "All Levels"
)

type Course struct {
	Model
	Subject          string          `gorm:"not null;index" json:"subject"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Grade            string          `json:"grade"`
	Teachers         []CourseTeacher `gorm:"constraint:OnDelete:CASCADE" json:"teacher"`
	Lessons          []Lesson        `gorm:"constraint:OnDelete:CASCADE" json:"lessons"`
	Meetings         []CourseMeeting `gorm:"constraint:OnDelete:CASCADE" json:"meetings"`
	EnrolledStudents []Student       `gorm:"many2many:course_enrollments;" json:"enrolledStudents,omitempty"`
	Price            float64         `gorm:"default:0" json:"price"`
	Thumbnail        string          `json:"thumbnail"`
	Notes            []Note          `gorm:"constraint:OnDelete:CASCADE" json:"notes,omitempty"`
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.Name == "" {
		c.Name = DefaultCourseName
	}
	if c.Description == "" {
		c.Description = DefaultCourseDescription
	}
	if c.Grade == "" {
		c.Grade = DefaultCourseGrade
	}
	return nil
}

// HasTeacher reports whether teacherID appears in the course's teacher list.
func (c *Course) HasTeacher(teacherID uint) bool {
	for _, t := range c.Teachers {
		if t.TeacherID == teacherID {
			return true
		}
	}
	return false
}

// CourseTeacher pairs a teacher with the subject they teach in a course.
type CourseTeacher struct {
	ID        uint     `gorm:"primarykey" json:"-"`
	CourseID  uint     `gorm:"index;not null" json:"-"`
	TeacherID uint     `gorm:"index;not null" json:"teacherId"`
	Subject   string   `gorm:"not null" json:"subject"`
	Teacher   *Teacher `json:"teacher,omitempty"`
}

type Lesson struct {
	Model
	CourseID    uint                        `gorm:"index;not null" json:"courseId"`
	Title       string                      `gorm:"not null" json:"title"`
	Description string                      `gorm:"not null" json:"description"`
	VideoURL    string                      `json:"videoUrl,omitempty"`
	Resources   datatypes.JSONSlice[string] `json:"resources"`
	Duration    int                         `gorm:"not null" json:"duration"` // minutes
}

type CourseMeeting struct {
	Model
	CourseID  uint      `gorm:"index;not null" json:"courseId"`
	StartTime time.Time `gorm:"not null" json:"startTime"`
	Duration  int       `gorm:"not null" json:"duration"` // minutes
	EndTime   time.Time `json:"endTime"`
	HostName  string    `gorm:"not null" json:"hostName"`
}

func (m *CourseMeeting) BeforeSave(tx *gorm.DB) error {
	if m.EndTime.IsZero() {
		m.EndTime = m.StartTime.Add(time.Duration(m.Duration) * time.Minute)
	}
	return nil
}

// Note is the metadata of a file uploaded to object storage.
type Note struct {
	Model
	CourseID   uint      `gorm:"index;not null" json:"courseId"`
	TeacherID  uint      `gorm:"index;not null" json:"teacherId"`
	FileURL    string    `gorm:"not null" json:"fileUrl"`
	FileName   string    `gorm:"not null" json:"fileName"`
	UploadedAt time.Time `json:"uploadedAt"`
}

func (n *Note) BeforeCreate(tx *gorm.DB) error {
	if n.UploadedAt.IsZero() {
		n.UploadedAt = time.Now()
	}
	return nil
}

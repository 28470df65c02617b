package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

// Model mirrors gorm.Model with JSON tags for the REST surface.
type Model struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Account is implemented by Student and Teacher. The role is fixed at signup
// and travels inside the token, so lookups go straight to the right table.
type Account interface {
	AccountID() uint
	AccountRole() Role
	DisplayName() string
	AccountEmail() string
	PasswordHash() string
}

type Student struct {
	Model
	Name             string            `gorm:"not null" json:"name"`
	Email            string            `gorm:"uniqueIndex;not null" json:"email"`
	Password         string            `gorm:"not null" json:"-"`
	Phone            string            `json:"phone"`
	Address          string            `json:"address"`
	DateOfBirth      *time.Time        `json:"dateOfBirth,omitempty"`
	School           string            `json:"school"`
	JoinedDate       time.Time         `json:"joinedDate"`
	ProfilePicture   string            `json:"profilePicture"`
	Role             Role              `gorm:"type:varchar(16);not null;default:student" json:"role"`
	EnrolledCourses  []Course          `gorm:"many2many:course_enrollments;" json:"enrolledCourses,omitempty"`
	Certificates     []Certificate     `json:"certificates,omitempty"`
	Attendance       []AttendanceEntry `json:"attendance,omitempty"`
	CoursesCompleted int               `gorm:"default:0" json:"coursesCompleted"`
	Progress         []CourseProgress  `json:"progress,omitempty"`
}

func (s *Student) AccountID() uint      { return s.ID }
func (s *Student) AccountRole() Role    { return RoleStudent }
func (s *Student) DisplayName() string  { return s.Name }
func (s *Student) AccountEmail() string { return s.Email }
func (s *Student) PasswordHash() string { return s.Password }

func (s *Student) BeforeCreate(tx *gorm.DB) error {
	s.Role = RoleStudent
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))
	if s.JoinedDate.IsZero() {
		s.JoinedDate = time.Now()
	}
	return nil
}

type Teacher struct {
	Model
	Name              string                      `gorm:"not null" json:"name"`
	Email             string                      `gorm:"uniqueIndex;not null" json:"email"`
	Password          string                      `gorm:"not null" json:"-"`
	Phone             string                      `json:"phone"`
	Address           string                      `json:"address"`
	DateOfBirth       *time.Time                  `json:"dateOfBirth,omitempty"`
	School            string                      `json:"school"`
	ProfilePicture    string                      `json:"profilePicture"`
	SubjectSpeciality datatypes.JSONSlice[string] `gorm:"not null" json:"subjectSpeciality"`
	Role              Role                        `gorm:"type:varchar(16);not null;default:teacher" json:"role"`
	Certificates      []TeacherCertificate        `gorm:"constraint:OnDelete:CASCADE" json:"certificates,omitempty"`
}

func (t *Teacher) AccountID() uint      { return t.ID }
func (t *Teacher) AccountRole() Role    { return RoleTeacher }
func (t *Teacher) DisplayName() string  { return t.Name }
func (t *Teacher) AccountEmail() string { return t.Email }
func (t *Teacher) PasswordHash() string { return t.Password }

func (t *Teacher) BeforeCreate(tx *gorm.DB) error {
	t.Role = RoleTeacher
	t.Email = strings.ToLower(strings.TrimSpace(t.Email))
	return nil
}

// Specializes reports whether subject is one of the teacher's specialities.
func (t *Teacher) Specializes(subject string) bool {
	for _, s := range t.SubjectSpeciality {
		if s == subject {
			return true
		}
	}
	return false
}

type TeacherCertificate struct {
	Model
	TeacherID       uint      `gorm:"index;not null" json:"-"`
	Name            string    `gorm:"not null" json:"name"`
	IssuedBy        string    `gorm:"not null" json:"issuedBy"`
	IssueDate       time.Time `gorm:"not null" json:"issueDate"`
	CertificateFile string    `json:"certificateFile,omitempty"`
}

func (tc *TeacherCertificate) BeforeSave(tx *gorm.DB) error {
	if tc.IssueDate.After(time.Now()) {
		return ErrCertificateFutureDate
	}
	return nil
}

// Certificate is a course completion certificate awarded to a student.
type Certificate struct {
	Model
	Name           string    `gorm:"not null" json:"name"`
	Description    string    `json:"description"`
	CourseID       uint      `gorm:"index;not null" json:"courseId"`
	StudentID      uint      `gorm:"index;not null" json:"studentId"`
	IssueDate      time.Time `json:"issueDate"`
	Issuer         string    `gorm:"default:VidyaSetu" json:"issuer"`
	CertificateURL string    `json:"certificateUrl,omitempty"`
}

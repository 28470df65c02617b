package models

import (
	"time"

	"gorm.io/gorm"
)

type FeedbackForm struct {
	Model
	FormLink   string    `gorm:"not null" json:"formLink"`
	CourseID   uint      `gorm:"index;not null" json:"courseId"`
	Course     *Course   `json:"course,omitempty"`
	TeacherID  uint      `gorm:"index;not null" json:"teacherId"`
	ExpiryDate time.Time `gorm:"not null;index" json:"expiryDate"`
	PostDate   time.Time `gorm:"index" json:"postDate"`
}

func (f *FeedbackForm) BeforeCreate(tx *gorm.DB) error {
	if f.PostDate.IsZero() {
		f.PostDate = time.Now()
	}
	return nil
}

// Open reports whether students may still see the form.
func (f *FeedbackForm) Open(now time.Time) bool {
	return now.Before(f.ExpiryDate)
}

type ChatSender string

const (
	ChatSenderUser ChatSender = "user"
	ChatSenderBot  ChatSender = "bot"
)

type ChatMessage struct {
	Model
	StudentID uint       `gorm:"index;not null" json:"studentId"`
	Text      string     `gorm:"not null" json:"text"`
	Sender    ChatSender `gorm:"type:varchar(8);not null" json:"sender"`
	Time      time.Time  `gorm:"index" json:"time"`
	Image     string     `json:"image,omitempty"`
	Audio     string     `json:"audio,omitempty"`
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.Time.IsZero() {
		m.Time = time.Now()
	}
	return nil
}

// Meeting is a calendar-backed online class.
type Meeting struct {
	Model
	StartTime time.Time `gorm:"not null" json:"startTime"`
	EndTime   time.Time `gorm:"not null" json:"endTime"`
	Duration  int       `gorm:"not null" json:"duration"` // minutes
	HostName  string    `gorm:"not null" json:"hostName"`
	MeetLink  string    `gorm:"not null" json:"meetLink"`
	TeacherID uint      `gorm:"index" json:"teacherId"`
	CourseID  *uint     `gorm:"index" json:"courseId,omitempty"`
}

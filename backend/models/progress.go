package models

import "time"

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "Present"
	AttendanceAbsent  AttendanceStatus = "Absent"
	AttendanceLate    AttendanceStatus = "Late"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate:
		return true
	}
	return false
}

type AttendanceEntry struct {
	Model
	StudentID uint             `gorm:"index;not null" json:"studentId"`
	CourseID  *uint            `gorm:"index" json:"courseId,omitempty"`
	Date      time.Time        `gorm:"not null" json:"date"`
	Status    AttendanceStatus `gorm:"type:varchar(16);not null" json:"status"`
	MarkedBy  uint             `json:"markedBy"`
}

type CourseProgress struct {
	Model
	StudentID        uint    `gorm:"index;not null" json:"studentId"`
	CourseID         uint    `gorm:"index;not null" json:"courseId"`
	QuizzesAttempted int     `json:"quizzesAttempted"`
	QuizzesPassed    int     `json:"quizzesPassed"`
	OverallScore     float64 `json:"overallScore"`
}

type ProgressOverview struct {
	EnrolledCourses  int                      `json:"enrolledCourses"`
	CoursesCompleted int                      `json:"coursesCompleted"`
	Attendance       map[AttendanceStatus]int `json:"attendance"`
	SAQSubmissions   int                      `json:"saqSubmissions"`
	AverageSAQScore  float64                  `json:"averageSaqScore"`
	Courses          []CourseProgress         `json:"courses"`
}

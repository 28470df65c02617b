package models

import (
	"encoding/json"

	"github.com/volatiletech/null/v8"
)

type SAQTest struct {
	Model
	Title           string        `gorm:"not null" json:"title"`
	CourseID        uint          `gorm:"index;not null" json:"courseId"`
	Course          *Course       `json:"course,omitempty"`
	TeacherID       uint          `gorm:"index;not null" json:"teacherId"`
	Teacher         *Teacher      `json:"teacher,omitempty"`
	Questions       []SAQQuestion `gorm:"constraint:OnDelete:CASCADE" json:"questions"`
	AttemptsAllowed int           `gorm:"not null;default:1" json:"attemptsAllowed"`
}

// Question returns the question with the given id, or nil.
func (t *SAQTest) Question(id uint) *SAQQuestion {
	for i := range t.Questions {
		if t.Questions[i].ID == id {
			return &t.Questions[i]
		}
	}
	return nil
}

type SAQQuestion struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	SAQTestID    uint   `gorm:"index;not null" json:"-"`
	Position     int    `gorm:"not null" json:"position"`
	QuestionText string `gorm:"not null" json:"questionText"`
}

// SAQSubmission is unique per (test, student). A resubmission replaces
// Answers and bumps Attempts.
type SAQSubmission struct {
	Model
	SAQTestID uint        `gorm:"not null;uniqueIndex:idx_saq_submission_test_student" json:"saqId"`
	SAQTest   *SAQTest    `json:"-"`
	StudentID uint        `gorm:"not null;uniqueIndex:idx_saq_submission_test_student" json:"studentId"`
	Student   *Student    `json:"-"`
	Answers   []SAQAnswer `gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE" json:"answers"`
	Attempts  int         `gorm:"not null;default:1" json:"attempts"`
}

// SAQAnswer keeps a null score until the answer has been evaluated; a valid
// zero is a real grade.
type SAQAnswer struct {
	ID           uint        `gorm:"primarykey" json:"-"`
	SubmissionID uint        `gorm:"index;not null" json:"-"`
	QuestionID   uint        `gorm:"not null" json:"questionId"`
	AnswerText   string      `gorm:"not null" json:"answerText"`
	Score        null.Int    `gorm:"type:integer" json:"score"`
	Feedback     null.String `gorm:"type:text" json:"feedback"`
}

func (a SAQAnswer) Evaluated() bool {
	return a.Score.Valid
}

func (a SAQAnswer) MarshalJSON() ([]byte, error) {
	type answer SAQAnswer
	return json.Marshal(struct {
		answer
		Evaluated bool `json:"evaluated"`
	}{answer(a), a.Evaluated()})
}

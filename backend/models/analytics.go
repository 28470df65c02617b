package models

import "time"

// ScoreBucket is one fixed-width histogram bucket, inclusive on both ends.
type ScoreBucket struct {
	Range string `json:"range"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Count int    `json:"count"`
}

type TestStats struct {
	SAQID             uint          `json:"saqId"`
	Title             string        `json:"title"`
	TotalSubmissions  int           `json:"totalSubmissions"`
	AverageScore      float64       `json:"averageScore"`
	HighestScore      int           `json:"highestScore"`
	LowestScore       int           `json:"lowestScore"`
	MaxPossibleScore  int           `json:"maxPossibleScore"`
	ScoreDistribution []ScoreBucket `json:"scoreDistribution"`
}

type TopStudent struct {
	StudentID    uint    `json:"studentId"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	AverageScore float64 `json:"averageScore"`
	Submissions  int     `json:"submissions"`
}

type ImprovementArea struct {
	QuestionID   uint    `json:"questionId"`
	SAQID        uint    `json:"saqId"`
	QuestionText string  `json:"questionText"`
	AverageScore float64 `json:"averageScore"`
	Responses    int     `json:"responses"`
}

type TeacherAnalytics struct {
	Tests            []TestStats       `json:"tests"`
	TopStudents      []TopStudent      `json:"topStudents"`
	ImprovementAreas []ImprovementArea `json:"improvementAreas"`
	GeneratedAt      time.Time         `json:"generatedAt"`
}

package services

import (
	"fmt"
	"math"
	"sort"
	"time"
	"vidyasetu/backend/models"
)

const (
	PointsPerQuestion = 10
	BucketWidth       = 5
	TopStudentLimit   = 5
)

// AnswerPoints is the single null-treatment rule for sums: an answer that has
// not been evaluated contributes 0 points. It still counts as a response.
func AnswerPoints(a models.SAQAnswer) int {
	if !a.Score.Valid {
		return 0
	}
	return a.Score.Int
}

func SubmissionTotal(sub models.SAQSubmission) int {
	total := 0
	for _, a := range sub.Answers {
		total += AnswerPoints(a)
	}
	return total
}

// AttemptStatus returns attemptsRemaining = max(0, allowed-used) and whether
// another attempt is permitted.
func AttemptStatus(allowed, used int) (remaining int, canAttempt bool) {
	remaining = allowed - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, remaining > 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ScoreBuckets builds the fixed-width histogram over [0, questions*10].
func ScoreBuckets(questionCount int, totals []int) []models.ScoreBucket {
	maxScore := questionCount * PointsPerQuestion
	buckets := make([]models.ScoreBucket, 0, maxScore/BucketWidth+1)
	for lo := 0; lo <= maxScore; lo += BucketWidth {
		hi := lo + BucketWidth - 1
		b := models.ScoreBucket{Range: fmt.Sprintf("%d-%d", lo, hi), Min: lo, Max: hi}
		for _, t := range totals {
			if t >= lo && t <= hi {
				b.Count++
			}
		}
		buckets = append(buckets, b)
	}
	return buckets
}

// ComputeTestStats aggregates one test. With no submissions every number is
// zero and every bucket is empty.
func ComputeTestStats(test models.SAQTest, subs []models.SAQSubmission) models.TestStats {
	stats := models.TestStats{
		SAQID:            test.ID,
		Title:            test.Title,
		TotalSubmissions: len(subs),
		MaxPossibleScore: len(test.Questions) * PointsPerQuestion,
	}

	totals := make([]int, 0, len(subs))
	sum := 0
	for i, sub := range subs {
		t := SubmissionTotal(sub)
		totals = append(totals, t)
		sum += t
		if i == 0 || t > stats.HighestScore {
			stats.HighestScore = t
		}
		if i == 0 || t < stats.LowestScore {
			stats.LowestScore = t
		}
	}
	if len(subs) > 0 {
		stats.AverageScore = round2(float64(sum) / float64(len(subs)))
	}
	stats.ScoreDistribution = ScoreBuckets(len(test.Questions), totals)
	return stats
}

// ComputeTeacherAnalytics aggregates across a teacher's tests. subs must
// have Student loaded for the top-student list to carry names.
func ComputeTeacherAnalytics(tests []models.SAQTest, subs []models.SAQSubmission, threshold float64) models.TeacherAnalytics {
	out := models.TeacherAnalytics{
		Tests:            make([]models.TestStats, 0, len(tests)),
		TopStudents:      []models.TopStudent{},
		ImprovementAreas: []models.ImprovementArea{},
		GeneratedAt:      time.Now(),
	}

	byTest := make(map[uint][]models.SAQSubmission, len(tests))
	for _, sub := range subs {
		byTest[sub.SAQTestID] = append(byTest[sub.SAQTestID], sub)
	}
	type questionMeta struct {
		saqID uint
		text  string
	}
	questions := make(map[uint]questionMeta)
	for _, t := range tests {
		out.Tests = append(out.Tests, ComputeTestStats(t, byTest[t.ID]))
		for _, q := range t.Questions {
			questions[q.ID] = questionMeta{saqID: t.ID, text: q.QuestionText}
		}
	}

	type acc struct {
		total int
		count int
	}

	students := make(map[uint]*acc)
	names := make(map[uint]models.TopStudent)
	perQuestion := make(map[uint]*acc)
	for _, sub := range subs {
		if _, ok := byTest[sub.SAQTestID]; !ok {
			continue
		}
		s, ok := students[sub.StudentID]
		if !ok {
			s = &acc{}
			students[sub.StudentID] = s
			ts := models.TopStudent{StudentID: sub.StudentID}
			if sub.Student != nil {
				ts.Name = sub.Student.Name
				ts.Email = sub.Student.Email
			}
			names[sub.StudentID] = ts
		}
		s.total += SubmissionTotal(sub)
		s.count++

		for _, a := range sub.Answers {
			q, ok := perQuestion[a.QuestionID]
			if !ok {
				q = &acc{}
				perQuestion[a.QuestionID] = q
			}
			q.total += AnswerPoints(a)
			q.count++
		}
	}

	for id, s := range students {
		ts := names[id]
		ts.AverageScore = round2(float64(s.total) / float64(s.count))
		ts.Submissions = s.count
		out.TopStudents = append(out.TopStudents, ts)
	}
	sort.Slice(out.TopStudents, func(i, j int) bool {
		a, b := out.TopStudents[i], out.TopStudents[j]
		if a.AverageScore != b.AverageScore {
			return a.AverageScore > b.AverageScore
		}
		return a.StudentID < b.StudentID
	})
	if len(out.TopStudents) > TopStudentLimit {
		out.TopStudents = out.TopStudents[:TopStudentLimit]
	}

	for id, q := range perQuestion {
		avg := round2(float64(q.total) / float64(q.count))
		if avg >= threshold {
			continue
		}
		meta := questions[id]
		out.ImprovementAreas = append(out.ImprovementAreas, models.ImprovementArea{
			QuestionID:   id,
			SAQID:        meta.saqID,
			QuestionText: meta.text,
			AverageScore: avg,
			Responses:    q.count,
		})
	}
	sort.Slice(out.ImprovementAreas, func(i, j int) bool {
		a, b := out.ImprovementAreas[i], out.ImprovementAreas[j]
		if a.AverageScore != b.AverageScore {
			return a.AverageScore < b.AverageScore
		}
		return a.QuestionID < b.QuestionID
	})
	return out
}

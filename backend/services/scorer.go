package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"vidyasetu/backend/config"
	"vidyasetu/backend/models"
	"vidyasetu/backend/utils"

	"github.com/volatiletech/null/v8"
)

const (
	FeedbackNotFound   = "Feedback not found"
	FeedbackEvalFailed = "Error in evaluation"

	OutcomeOK          = "ok"
	OutcomeUnparseable = "unparseable"
	OutcomeError       = "error"

	maxScore = 10
)

// Evaluation is one scored answer. Score is null when the reply could not be
// parsed.
type Evaluation struct {
	Score    null.Int
	Feedback string
}

type Scorer interface {
	Evaluate(ctx context.Context, question, answer string) (Evaluation, error)
}

// OutcomeRecorder receives one of the Outcome* labels per evaluated answer.
type OutcomeRecorder interface {
	ScorerOutcome(outcome string)
}

var evaluationPattern = regexp.MustCompile(`(?s)Score:\s*(\d+)\s*/\s*10\s*Feedback:\s*(.*)`)

// ParseEvaluation extracts "Score: N/10 Feedback: ..." from a model reply.
// Scores above 10 are clamped.
func ParseEvaluation(text string) (Evaluation, bool) {
	m := evaluationPattern.FindStringSubmatch(text)
	if m == nil {
		return Evaluation{Score: null.Int{}, Feedback: FeedbackNotFound}, false
	}
	score, err := strconv.Atoi(m[1])
	if err != nil {
		return Evaluation{Score: null.Int{}, Feedback: FeedbackNotFound}, false
	}
	if score > maxScore {
		score = maxScore
	}
	feedback := strings.TrimSpace(m[2])
	if feedback == "" {
		feedback = FeedbackNotFound
	}
	return Evaluation{Score: null.IntFrom(score), Feedback: feedback}, true
}

func scoringPrompt(question, answer string) string {
	return fmt.Sprintf(`You are grading a student's short answer.

Question: %s
Student Answer: %s

Give a score out of 10 and one or two sentences of feedback.
Respond exactly in this format:
Score: <score>/10
Feedback: <feedback>`, question, answer)
}

type GeminiScorer struct {
	log        *utils.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewGeminiScorer(cfg *config.Config, log *utils.Logger) *GeminiScorer {
	timeout := time.Duration(cfg.ScorerTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GeminiScorer{
		log:        log.With("service", "GeminiScorer"),
		baseURL:    strings.TrimRight(cfg.GeminiBaseURL, "/"),
		apiKey:     cfg.GeminiAPIKey,
		model:      cfg.GeminiModel,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (g *GeminiScorer) Evaluate(ctx context.Context, question, answer string) (Evaluation, error) {
	text, err := g.generate(ctx, scoringPrompt(question, answer))
	if err != nil {
		return Evaluation{}, err
	}
	eval, _ := ParseEvaluation(text)
	return eval, nil
}

func (g *GeminiScorer) generate(ctx context.Context, prompt string) (string, error) {
	if g.apiKey == "" {
		return "", errors.New("gemini: missing API key")
	}
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, url.PathEscape(g.model), url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("gemini: read body: %w", err)
	}

	var out geminiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("gemini: decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return "", fmt.Errorf("gemini: status %d: %s", resp.StatusCode, msg)
	}

	var sb strings.Builder
	for _, cand := range out.Candidates {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}
	return sb.String(), nil
}

// EvaluateAnswers scores every answer in order, one call at a time. A failed
// call scores that answer 0 with FeedbackEvalFailed and the rest continue.
// Answers whose question is not on the test are kept but marked unparseable.
func EvaluateAnswers(ctx context.Context, scorer Scorer, test *models.SAQTest, answers []models.SAQAnswer, rec OutcomeRecorder, log *utils.Logger) []models.SAQAnswer {
	out := make([]models.SAQAnswer, len(answers))
	for i, ans := range answers {
		out[i] = models.SAQAnswer{QuestionID: ans.QuestionID, AnswerText: ans.AnswerText}

		q := test.Question(ans.QuestionID)
		if q == nil {
			out[i].Feedback = null.StringFrom(FeedbackNotFound)
			record(rec, OutcomeUnparseable)
			continue
		}

		eval, err := scorer.Evaluate(ctx, q.QuestionText, ans.AnswerText)
		if err != nil {
			log.Warn("SAQ answer evaluation failed", "saq_id", test.ID, "question_id", q.ID, "error", err)
			out[i].Score = null.IntFrom(0)
			out[i].Feedback = null.StringFrom(FeedbackEvalFailed)
			record(rec, OutcomeError)
			continue
		}

		out[i].Score = eval.Score
		out[i].Feedback = null.StringFrom(eval.Feedback)
		if eval.Score.Valid {
			record(rec, OutcomeOK)
		} else {
			record(rec, OutcomeUnparseable)
		}
	}
	return out
}

func record(rec OutcomeRecorder, outcome string) {
	if rec != nil {
		rec.ScorerOutcome(outcome)
	}
}

package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"vidyasetu/backend/config"
	"vidyasetu/backend/routes"
	"vidyasetu/backend/services"
	"vidyasetu/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type scriptedScorer struct {
	mu     sync.Mutex
	scores map[string]int
	calls  int
	// onCall runs once, on the next Evaluate, while a request is mid-scoring.
	onCall func()
}

func (s *scriptedScorer) Evaluate(ctx context.Context, question, answer string) (services.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if hook := s.onCall; hook != nil {
		s.onCall = nil
		hook()
	}
	score, ok := s.scores[question]
	if !ok {
		return services.Evaluation{}, errors.New("no scripted score")
	}
	return services.Evaluation{Score: null.IntFrom(score), Feedback: fmt.Sprintf("scored %d", score)}, nil
}

type fakeCalendar struct {
	authorized bool
	requests   []services.MeetRequest
	exchanged  []string
}

func (f *fakeCalendar) AuthURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (f *fakeCalendar) Exchange(ctx context.Context, code string) error {
	f.exchanged = append(f.exchanged, strings.Clone(code))
	f.authorized = true
	return nil
}

func (f *fakeCalendar) CreateMeet(ctx context.Context, req services.MeetRequest) (*services.MeetEvent, error) {
	if !f.authorized {
		return nil, services.ErrCalendarNotAuthorized
	}
	f.requests = append(f.requests, req)
	return &services.MeetEvent{
		EventID:  fmt.Sprintf("evt-%d", len(f.requests)),
		MeetLink: "https://meet.google.com/abc-defg-hij",
	}, nil
}

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryStore) Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return m.PublicURL(key), nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

type testEnv struct {
	t        *testing.T
	app      *fiber.App
	db       *gorm.DB
	cfg      *config.Config
	scorer   *scriptedScorer
	calendar *fakeCalendar
	store    *memoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, utils.Migrate(db))

	cfg := &config.Config{
		JWTSecret:       "testsecret",
		JWTTTL:          60,
		CORSOrigins:     "*",
		ScoreThreshold:  5,
		UploadMaxMB:     1,
		FeedbackTTLDays: 15,
	}
	env := &testEnv{
		t:        t,
		db:       db,
		cfg:      cfg,
		scorer:   &scriptedScorer{scores: map[string]int{}},
		calendar: &fakeCalendar{},
		store:    &memoryStore{objects: map[string][]byte{}},
	}
	env.app = routes.NewApp(routes.Deps{
		DB:       db,
		Cfg:      cfg,
		Log:      utils.NopLogger(),
		Scorer:   env.scorer,
		Calendar: env.calendar,
		Store:    env.store,
	})
	return env
}

// request sends a JSON body (or none when body is nil) and returns the
// status and raw response body.
func (e *testEnv) request(method, path, token string, body interface{}) (int, []byte) {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(req, token)
}

func (e *testEnv) send(req *http.Request, token string) (int, []byte) {
	e.t.Helper()

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp.StatusCode, raw
}

func (e *testEnv) object(method, path, token string, body interface{}) (int, map[string]interface{}) {
	e.t.Helper()
	status, raw := e.request(method, path, token, body)
	var out map[string]interface{}
	require.NoError(e.t, json.Unmarshal(raw, &out), string(raw))
	return status, out
}

func (e *testEnv) list(method, path, token string) (int, []interface{}) {
	e.t.Helper()
	status, raw := e.request(method, path, token, nil)
	var out []interface{}
	if status < 300 {
		require.NoError(e.t, json.Unmarshal(raw, &out), string(raw))
	}
	return status, out
}

type account struct {
	ID    uint
	Token string
}

func (e *testEnv) signupStudent(name string) account {
	e.t.Helper()
	email := strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@student.example.com"

	status, body := e.object("POST", "/api/auth/signup", "", map[string]interface{}{
		"name":     name,
		"email":    email,
		"password": "secret123",
	})
	require.Equal(e.t, fiber.StatusCreated, status, body)

	status, body = e.object("POST", "/api/auth/login", "", map[string]interface{}{
		"email":    email,
		"password": "secret123",
	})
	require.Equal(e.t, fiber.StatusOK, status, body)
	student := body["student"].(map[string]interface{})
	return account{ID: uint(student["id"].(float64)), Token: body["token"].(string)}
}

func (e *testEnv) signupTeacher(name string, specialities ...string) account {
	e.t.Helper()
	email := strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@teacher.example.com"

	status, body := e.object("POST", "/api/teacher/signup", "", map[string]interface{}{
		"name":              name,
		"email":             email,
		"password":          "secret123",
		"subjectSpeciality": specialities,
	})
	require.Equal(e.t, fiber.StatusCreated, status, body)

	status, body = e.object("POST", "/api/teacher/login", "", map[string]interface{}{
		"email":    email,
		"password": "secret123",
	})
	require.Equal(e.t, fiber.StatusOK, status, body)
	teacher := body["teacher"].(map[string]interface{})
	return account{ID: uint(teacher["id"].(float64)), Token: body["token"].(string)}
}

func (e *testEnv) createCourse(teacher account, subject, name string) uint {
	e.t.Helper()
	status, body := e.object("POST", "/api/course/create", teacher.Token, map[string]interface{}{
		"subject": subject,
		"name":    name,
	})
	require.Equal(e.t, fiber.StatusCreated, status, body)
	return uint(body["course"].(map[string]interface{})["id"].(float64))
}

func (e *testEnv) enroll(student account, courseID uint) {
	e.t.Helper()
	status, body := e.object("POST", fmt.Sprintf("/api/course/%d/enroll", courseID), student.Token, nil)
	require.Equal(e.t, fiber.StatusOK, status, body)
}

type createdSAQ struct {
	ID          uint
	QuestionIDs []uint
}

func (e *testEnv) createSAQ(teacher account, courseID uint, attempts int, questions ...string) createdSAQ {
	e.t.Helper()
	qs := make([]map[string]string, 0, len(questions))
	for _, q := range questions {
		qs = append(qs, map[string]string{"questionText": q})
	}
	status, body := e.object("POST", "/api/saq/create", teacher.Token, map[string]interface{}{
		"title":           "Quiz",
		"courseId":        courseID,
		"questions":       qs,
		"attemptsAllowed": attempts,
	})
	require.Equal(e.t, fiber.StatusCreated, status, body)

	saq := body["saq"].(map[string]interface{})
	out := createdSAQ{ID: uint(saq["id"].(float64))}
	for _, q := range saq["questions"].([]interface{}) {
		out.QuestionIDs = append(out.QuestionIDs, uint(q.(map[string]interface{})["id"].(float64)))
	}
	return out
}

func answersFor(saq createdSAQ, texts ...string) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(texts))
	for i, text := range texts {
		out = append(out, map[string]interface{}{"questionId": saq.QuestionIDs[i], "answerText": text})
	}
	return out
}

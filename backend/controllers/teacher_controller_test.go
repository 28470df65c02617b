package controllers_test

import (
	"fmt"
	"testing"
	"time"
	"vidyasetu/backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeacherUpdateReplacesCertificates(t *testing.T) {
	env := newTestEnv(t)
	rao := env.signupTeacher("Ms Rao", "Math")
	iyer := env.signupTeacher("Mr Iyer", "Physics")
	path := fmt.Sprintf("/api/teacher/%d", rao.ID)

	status, _ := env.object("PUT", fmt.Sprintf("/api/teacher/%d", iyer.ID), rao.Token, map[string]interface{}{"name": "Hacked"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body := env.object("PUT", path, rao.Token, map[string]interface{}{
		"school": "Kendriya Vidyalaya",
		"certificates": []map[string]string{
			{"name": "B.Ed", "issuedBy": "Delhi University", "issueDate": "2015-06-01"},
			{"name": "M.Sc", "issuedBy": "IIT Madras", "issueDate": "2013-05-20"},
		},
	})
	require.Equal(t, fiber.StatusOK, status, body)
	updated := body["teacher"].(map[string]interface{})
	assert.Equal(t, "Kendriya Vidyalaya", updated["school"])
	assert.Len(t, updated["certificates"], 2)

	status, body = env.object("PUT", path, rao.Token, map[string]interface{}{
		"certificates": []map[string]string{
			{"name": "PhD", "issuedBy": "IISc", "issueDate": "2020-01-15"},
		},
	})
	require.Equal(t, fiber.StatusOK, status, body)

	var certs []models.TeacherCertificate
	require.NoError(t, env.db.Unscoped().Where("teacher_id = ?", rao.ID).Find(&certs).Error)
	require.Len(t, certs, 1)
	assert.Equal(t, "PhD", certs[0].Name)

	future := time.Now().AddDate(1, 0, 0).Format("2006-01-02")
	status, body = env.object("PUT", path, rao.Token, map[string]interface{}{
		"name": "Dr Rao",
		"certificates": []map[string]string{
			{"name": "Postdoc", "issuedBy": "IISc", "issueDate": future},
		},
	})
	assert.Equal(t, fiber.StatusBadRequest, status, body)
	assert.Equal(t, "Validation failed", body["message"])

	status, body = env.object("GET", "/api/teacher/profile", rao.Token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Ms Rao", body["name"])
	certList := body["certificates"].([]interface{})
	require.Len(t, certList, 1)
	assert.Equal(t, "PhD", certList[0].(map[string]interface{})["name"])
}

func TestTeacherDeleteRemovesOwnedTests(t *testing.T) {
	env := newTestEnv(t)
	env.scorer.scores[questionSum] = 8

	rao := env.signupTeacher("Ms Rao", "Math")
	iyer := env.signupTeacher("Mr Iyer", "Math")
	student := env.signupStudent("Asha")
	courseID := env.createCourse(rao, "Math", "Algebra I")
	env.enroll(student, courseID)
	saq := env.createSAQ(rao, courseID, 1, questionSum)

	status, body := env.object("POST", "/api/saq/submit", student.Token, map[string]interface{}{
		"saqId":   saq.ID,
		"answers": answersFor(saq, "4"),
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	submissionID := body["submission"].(map[string]interface{})["id"]
	status, _ = env.object("POST", "/api/saq/evaluate", student.Token, map[string]interface{}{"submissionId": submissionID})
	require.Equal(t, fiber.StatusOK, status)

	status, _ = env.object("DELETE", fmt.Sprintf("/api/teacher/%d", rao.ID), iyer.Token, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body = env.object("DELETE", fmt.Sprintf("/api/teacher/%d", rao.ID), rao.Token, nil)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "Teacher deleted successfully", body["message"])

	status, _ = env.object("GET", "/api/teacher/profile", rao.Token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	for _, m := range []interface{}{&models.SAQTest{}, &models.SAQQuestion{}, &models.SAQSubmission{}, &models.SAQAnswer{}, &models.CourseTeacher{}} {
		var count int64
		require.NoError(t, env.db.Unscoped().Model(m).Count(&count).Error)
		assert.Zero(t, count, "%T", m)
	}

	status, body = env.object("GET", "/api/progress/overview", student.Token, nil)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, float64(0), body["saqSubmissions"])
	courses := body["courses"].([]interface{})
	require.Len(t, courses, 1)
	progress := courses[0].(map[string]interface{})
	assert.Equal(t, float64(0), progress["quizzesAttempted"])
	assert.Equal(t, float64(0), progress["overallScore"])

	status, body = env.object("GET", fmt.Sprintf("/api/course/%d", courseID), student.Token, nil)
	require.Equal(t, fiber.StatusOK, status, body)
}

func TestStudentDeleteWithSubmissions(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.signupTeacher("Ms Rao", "Math")
	student := env.signupStudent("Asha")
	courseID := env.createCourse(teacher, "Math", "Algebra I")
	env.enroll(student, courseID)
	saq := env.createSAQ(teacher, courseID, 1, questionSum)

	status, body := env.object("POST", "/api/saq/submit", student.Token, map[string]interface{}{
		"saqId":   saq.ID,
		"answers": answersFor(saq, "4"),
	})
	require.Equal(t, fiber.StatusCreated, status, body)

	status, body = env.object("DELETE", fmt.Sprintf("/api/auth/%d", student.ID), student.Token, nil)
	require.Equal(t, fiber.StatusOK, status, body)

	var enrolled int64
	require.NoError(t, env.db.Table("course_enrollments").Where("student_id = ?", student.ID).Count(&enrolled).Error)
	assert.Zero(t, enrolled)

	status, body = env.object("GET", fmt.Sprintf("/api/saq/teacher/saq/%d/analytics", saq.ID), teacher.Token, nil)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, float64(0), body["totalSubmissions"])
}

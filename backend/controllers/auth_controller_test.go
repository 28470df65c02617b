package controllers_test

import (
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentSignupAndLogin(t *testing.T) {
	env := newTestEnv(t)

	signup := map[string]interface{}{
		"name":     "Asha",
		"email":    "Asha@Example.com",
		"password": "secret123",
		"dob":      "2008-04-12",
	}
	status, body := env.object("POST", "/api/auth/signup", "", signup)
	require.Equal(t, fiber.StatusCreated, status, body)
	student := body["student"].(map[string]interface{})
	assert.Equal(t, "asha@example.com", student["email"])
	assert.Equal(t, "student", student["role"])
	assert.NotContains(t, student, "password")

	status, body = env.object("POST", "/api/auth/signup", "", signup)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Student already exists", body["message"])

	status, body = env.object("POST", "/api/auth/login", "", map[string]interface{}{
		"email":    "asha@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Invalid email or password", body["message"])

	status, body = env.object("POST", "/api/auth/login", "", map[string]interface{}{
		"email":    "nobody@example.com",
		"password": "secret123",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Invalid email or password", body["message"])

	status, body = env.object("POST", "/api/auth/login", "", map[string]interface{}{
		"email":    "ASHA@example.com",
		"password": "secret123",
	})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "student", body["role"])
	token := body["token"].(string)

	status, body = env.object("POST", "/api/auth/verify-token", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "Asha", body["name"])
}

func TestStudentSignupValidation(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.object("POST", "/api/auth/signup", "", map[string]interface{}{
		"name":     "Asha",
		"email":    "not-an-email",
		"password": "123",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Validation failed", body["message"])
	details := body["details"].(map[string]interface{})
	assert.Equal(t, "email", details["email"])
	assert.Equal(t, "min=6", details["password"])
}

func TestStudentUpdateAndDeleteOnlySelf(t *testing.T) {
	env := newTestEnv(t)
	asha := env.signupStudent("Asha")
	ravi := env.signupStudent("Ravi")

	status, _ := env.object("PUT", fmt.Sprintf("/api/auth/%d", ravi.ID), asha.Token, map[string]interface{}{"name": "Hacked"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body := env.object("PUT", fmt.Sprintf("/api/auth/%d", asha.ID), asha.Token, map[string]interface{}{
		"school":   "Kendriya Vidyalaya",
		"password": "newsecret",
	})
	require.Equal(t, fiber.StatusOK, status, body)

	status, _ = env.object("POST", "/api/auth/login", "", map[string]interface{}{
		"email":    "asha@student.example.com",
		"password": "newsecret",
	})
	assert.Equal(t, fiber.StatusOK, status)

	status, body = env.object("GET", "/api/auth/profile", asha.Token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Kendriya Vidyalaya", body["school"])

	status, _ = env.object("DELETE", fmt.Sprintf("/api/auth/%d", ravi.ID), asha.Token, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = env.object("DELETE", fmt.Sprintf("/api/auth/%d", asha.ID), asha.Token, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, body = env.object("GET", "/api/auth/profile", asha.Token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Unauthorized: user not found", body["message"])
}

func TestTeacherSignupRequiresSpeciality(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.object("POST", "/api/teacher/signup", "", map[string]interface{}{
		"name":              "Ms Rao",
		"email":             "rao@example.com",
		"password":          "secret123",
		"subjectSpeciality": []string{},
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Validation failed", body["message"])

	status, body = env.object("POST", "/api/teacher/signup", "", map[string]interface{}{
		"name":              "Ms Rao",
		"email":             "rao@example.com",
		"password":          "secret123",
		"subjectSpeciality": []string{"Math"},
		"certificates": []map[string]string{
			{"name": "B.Ed", "issuedBy": "Delhi University", "issueDate": "2999-01-01"},
		},
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Validation failed", body["message"])

	status, body = env.object("POST", "/api/teacher/signup", "", map[string]interface{}{
		"name":              "Ms Rao",
		"email":             "rao@example.com",
		"password":          "secret123",
		"subjectSpeciality": []string{"Math", "Physics"},
		"certificates": []map[string]string{
			{"name": "B.Ed", "issuedBy": "Delhi University", "issueDate": "2015-06-30"},
		},
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	teacher := body["teacher"].(map[string]interface{})
	assert.Equal(t, "teacher", teacher["role"])
	assert.ElementsMatch(t, []interface{}{"Math", "Physics"}, teacher["subjectSpeciality"])
	assert.Len(t, teacher["certificates"], 1)
}

func TestRoleGuards(t *testing.T) {
	env := newTestEnv(t)
	student := env.signupStudent("Asha")
	teacher := env.signupTeacher("Ms Rao", "Math")

	status, _ := env.object("POST", "/api/course/create", student.Token, map[string]interface{}{"subject": "Math"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = env.object("GET", "/api/auth/profile", teacher.Token, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body := env.object("GET", "/api/teacher/profile", teacher.Token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Ms Rao", body["name"])

	status, body = env.object("GET", "/api/course/all", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Unauthorized: no token provided", body["message"])
}

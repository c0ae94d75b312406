package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyp-lab/mentor/dao/model"
	"github.com/fyp-lab/mentor/dao/store"
	"github.com/fyp-lab/mentor/internal"
	"github.com/fyp-lab/mentor/internal/handler"
	"github.com/fyp-lab/mentor/internal/resputil"
	"github.com/fyp-lab/mentor/internal/supervision"
	"github.com/fyp-lab/mentor/internal/util"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "mentor-test")
	if err != nil {
		panic(err)
	}

	cfg := []byte(`
frontendURL: http://localhost:5173
auth:
  accessTokenSecret: test-access-secret
  refreshTokenSecret: test-refresh-secret
`)
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, cfg, 0o600); err != nil {
		panic(err)
	}
	os.Setenv("MENTOR_DEBUG_CONFIG_PATH", cfgPath)

	gin.SetMode(gin.DebugMode)
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func setupBackend() (*gin.Engine, store.Stores) {
	stores := store.NewInMemStores()
	conf := &handler.RegisterConfig{
		Stores:   stores,
		Workflow: supervision.NewWorkflow(stores, nil),
	}
	return internal.Register(conf).R, stores
}

type envelope struct {
	Code resputil.ErrorCode `json:"code"`
	Data json.RawMessage    `json:"data"`
	Msg  string             `json:"msg"`
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	}
	return w, env
}

func seedUserWithToken(t *testing.T, s store.Stores, name string, role model.Role) (*model.User, string) {
	t.Helper()
	u := &model.User{Name: name, Email: name + "@example.edu", Role: role, MaxStudents: 10}
	require.NoError(t, s.Users().Create(context.Background(), u))
	access, _, err := util.GetTokenMgr().CreateTokens(&util.JWTMessage{
		UserID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role,
	})
	require.NoError(t, err)
	return u, access
}

func TestRegisterLoginMe(t *testing.T) {
	r, _ := setupBackend()

	w, env := doJSON(t, r, http.MethodPost, "/v1/register", "", gin.H{
		"name": "alice", "email": "alice@example.edu", "password": "secret1", "role": "Student",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(t, login.AccessToken)

	// duplicate email
	w, _ = doJSON(t, r, http.MethodPost, "/v1/register", "", gin.H{
		"name": "alice2", "email": "alice@example.edu", "password": "secret1", "role": "Student",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// wrong password
	w, _ = doJSON(t, r, http.MethodPost, "/v1/login", "", gin.H{
		"email": "alice@example.edu", "password": "wrong", "role": "Student",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// the account does not exist under the Teacher role
	w, _ = doJSON(t, r, http.MethodPost, "/v1/login", "", gin.H{
		"email": "alice@example.edu", "password": "secret1", "role": "Teacher",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// role is part of the credentials
	w, _ = doJSON(t, r, http.MethodPost, "/v1/login", "", gin.H{
		"email": "alice@example.edu", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// right password and role
	w, _ = doJSON(t, r, http.MethodPost, "/v1/login", "", gin.H{
		"email": "alice@example.edu", "password": "secret1", "role": "Student",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// me requires a token
	w, _ = doJSON(t, r, http.MethodGet, "/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = doJSON(t, r, http.MethodGet, "/v1/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		Name string     `json:"name"`
		Role model.Role `json:"role"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "alice", me.Name)
	assert.Equal(t, model.RoleStudent, me.Role)
}

func TestRoleGates(t *testing.T) {
	r, s := setupBackend()
	_, studentToken := seedUserWithToken(t, s, "bob", model.RoleStudent)
	_, teacherToken := seedUserWithToken(t, s, "prof", model.RoleTeacher)

	w, _ := doJSON(t, r, http.MethodGet, "/v1/teacher/requests", studentToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = doJSON(t, r, http.MethodGet, "/v1/admin/users", teacherToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = doJSON(t, r, http.MethodGet, "/v1/teacher/requests", teacherToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProposalLifecycle(t *testing.T) {
	r, s := setupBackend()
	_, studentToken := seedUserWithToken(t, s, "carol", model.RoleStudent)
	_, adminToken := seedUserWithToken(t, s, "root", model.RoleAdmin)

	// no project yet
	w, _ := doJSON(t, r, http.MethodGet, "/v1/student/project", studentToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env := doJSON(t, r, http.MethodPost, "/v1/student/project", studentToken, gin.H{
		"title": "Search engine", "description": "A vertical search engine",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var project struct {
		ID     uint
		Status model.ProjectStatus
	}
	require.NoError(t, json.Unmarshal(env.Data, &project))
	assert.Equal(t, model.ProjectPending, project.Status)

	// a second proposal conflicts while the first is active
	w, _ = doJSON(t, r, http.MethodPost, "/v1/student/project", studentToken, gin.H{
		"title": "Another", "description": "x",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// admin reviews the single project before approving
	w, env = doJSON(t, r, http.MethodGet,
		fmt.Sprintf("/v1/admin/projects/%d", project.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &project))
	assert.Equal(t, model.ProjectPending, project.Status)

	w, _ = doJSON(t, r, http.MethodGet, "/v1/admin/projects/9999", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// admin approves
	w, _ = doJSON(t, r, http.MethodPut,
		fmt.Sprintf("/v1/admin/projects/%d/approve", project.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// approving twice conflicts
	w, _ = doJSON(t, r, http.MethodPut,
		fmt.Sprintf("/v1/admin/projects/%d/approve", project.ID), adminToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = doJSON(t, r, http.MethodGet, "/v1/student/project", studentToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &project))
	assert.Equal(t, model.ProjectApproved, project.Status)
}

func TestRejectedProposalResubmission(t *testing.T) {
	r, s := setupBackend()
	_, studentToken := seedUserWithToken(t, s, "dave", model.RoleStudent)
	_, adminToken := seedUserWithToken(t, s, "root", model.RoleAdmin)

	_, env := doJSON(t, r, http.MethodPost, "/v1/student/project", studentToken, gin.H{
		"title": "First try", "description": "x",
	})
	var project struct {
		ID uint
	}
	require.NoError(t, json.Unmarshal(env.Data, &project))

	w, _ := doJSON(t, r, http.MethodPut,
		fmt.Sprintf("/v1/admin/projects/%d/reject", project.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// resubmission replaces the rejected project
	w, env = doJSON(t, r, http.MethodPost, "/v1/student/project", studentToken, gin.H{
		"title": "Second try", "description": "y",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resubmitted struct {
		Title  string
		Status model.ProjectStatus
	}
	require.NoError(t, json.Unmarshal(env.Data, &resubmitted))
	assert.Equal(t, "Second try", resubmitted.Title)
	assert.Equal(t, model.ProjectPending, resubmitted.Status)
}

func TestSupervisionRequestFlow(t *testing.T) {
	r, s := setupBackend()
	student, studentToken := seedUserWithToken(t, s, "erin", model.RoleStudent)
	teacher, teacherToken := seedUserWithToken(t, s, "prof", model.RoleTeacher)

	w, env := doJSON(t, r, http.MethodPost, "/v1/student/requests", studentToken, gin.H{
		"supervisorId": teacher.ID, "message": "please supervise me",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var req struct {
		ID uint
	}
	require.NoError(t, json.Unmarshal(env.Data, &req))

	// duplicate pending request conflicts
	w, _ = doJSON(t, r, http.MethodPost, "/v1/student/requests", studentToken, gin.H{
		"supervisorId": teacher.ID,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// teacher sees the request
	w, env = doJSON(t, r, http.MethodGet, "/v1/teacher/requests", teacherToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var reqs []struct {
		ID uint
	}
	require.NoError(t, json.Unmarshal(env.Data, &reqs))
	require.Len(t, reqs, 1)

	// accept establishes the supervision
	w, _ = doJSON(t, r, http.MethodPut,
		fmt.Sprintf("/v1/teacher/requests/%d/accept", req.ID), teacherToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// accepting twice conflicts
	w, _ = doJSON(t, r, http.MethodPut,
		fmt.Sprintf("/v1/teacher/requests/%d/accept", req.ID), teacherToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	got, err := s.Users().GetByID(context.Background(), student.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SupervisorID)
	assert.Equal(t, teacher.ID, *got.SupervisorID)

	// teacher student list includes erin
	w, env = doJSON(t, r, http.MethodGet, "/v1/teacher/students", teacherToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var students []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &students))
	require.Len(t, students, 1)
	assert.Equal(t, "erin", students[0].Name)
}

func TestNotificationOwnership(t *testing.T) {
	r, s := setupBackend()
	alice, aliceToken := seedUserWithToken(t, s, "alice", model.RoleStudent)
	_, bobToken := seedUserWithToken(t, s, "bob", model.RoleStudent)

	n := &model.Notification{UserID: alice.ID, Message: "hi", Type: model.NotifyGeneral, Priority: model.PriorityLow}
	require.NoError(t, s.Notifications().Create(context.Background(), n))

	// cross-user access answers NotFound, not Forbidden
	w, _ := doJSON(t, r, http.MethodPut,
		fmt.Sprintf("/v1/notifications/%d/read", n.ID), bobToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = doJSON(t, r, http.MethodPut,
		fmt.Sprintf("/v1/notifications/%d/read", n.ID), aliceToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := doJSON(t, r, http.MethodGet, "/v1/notifications", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Notifications []struct {
			IsRead bool
		} `json:"notifications"`
		Unread int `json:"unread"`
		Read   int `json:"read"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Notifications, 1)
	assert.True(t, list.Notifications[0].IsRead)
	assert.Equal(t, 1, list.Read)
	assert.Equal(t, 0, list.Unread)
}

func TestAdminAssignAndDashboard(t *testing.T) {
	r, s := setupBackend()
	student, studentToken := seedUserWithToken(t, s, "frank", model.RoleStudent)
	teacher, _ := seedUserWithToken(t, s, "prof", model.RoleTeacher)
	_, adminToken := seedUserWithToken(t, s, "root", model.RoleAdmin)

	// no approved project yet, assignment refused
	w, _ := doJSON(t, r, http.MethodPost, "/v1/admin/assign", adminToken, gin.H{
		"studentId": student.ID, "supervisorId": teacher.ID,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, env := doJSON(t, r, http.MethodPost, "/v1/student/project", studentToken, gin.H{
		"title": "FYP", "description": "x",
	})
	var project struct {
		ID uint
	}
	require.NoError(t, json.Unmarshal(env.Data, &project))
	w, _ = doJSON(t, r, http.MethodPut,
		fmt.Sprintf("/v1/admin/projects/%d/approve", project.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/v1/admin/assign", adminToken, gin.H{
		"studentId": student.ID, "supervisorId": teacher.ID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// assigning twice conflicts
	w, _ = doJSON(t, r, http.MethodPost, "/v1/admin/assign", adminToken, gin.H{
		"studentId": student.ID, "supervisorId": teacher.ID,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = doJSON(t, r, http.MethodGet, "/v1/admin/dashboard", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var dash struct {
		Students int64 `json:"students"`
		Teachers int64 `json:"teachers"`
		Projects int64 `json:"projects"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &dash))
	assert.EqualValues(t, 1, dash.Students)
	assert.EqualValues(t, 1, dash.Teachers)
	assert.EqualValues(t, 1, dash.Projects)
}

func TestResponsesOmitCredentialFields(t *testing.T) {
	r, s := setupBackend()
	student, studentToken := seedUserWithToken(t, s, "gina", model.RoleStudent)
	teacher, teacherToken := seedUserWithToken(t, s, "prof", model.RoleTeacher)

	hash := "$2a$10$bcryptbcryptbcryptbcrypt"
	reset := "deadbeefcafe0123"
	student.Password = &hash
	student.ResetPasswordToken = &reset
	require.NoError(t, s.Users().Update(context.Background(), student))

	w, _ := doJSON(t, r, http.MethodPost, "/v1/student/project", studentToken, gin.H{
		"title": "Crawler", "description": "x",
	})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = doJSON(t, r, http.MethodPost, "/v1/student/requests", studentToken, gin.H{
		"supervisorId": teacher.ID,
	})
	require.Equal(t, http.StatusOK, w.Code)

	// preloaded users ride along in these payloads; credentials must not
	for _, tc := range []struct {
		path  string
		token string
	}{
		{"/v1/student/project", studentToken},
		{"/v1/teacher/requests", teacherToken},
		{"/v1/me", studentToken},
	} {
		w, _ := doJSON(t, r, http.MethodGet, tc.path, tc.token, nil)
		require.Equal(t, http.StatusOK, w.Code, tc.path)
		body := w.Body.String()
		assert.NotContains(t, body, hash, tc.path)
		assert.NotContains(t, body, reset, tc.path)
		assert.NotContains(t, body, "Password", tc.path)
	}
}

func TestStudentSupervisorEndpoint(t *testing.T) {
	r, s := setupBackend()
	_, studentToken := seedUserWithToken(t, s, "ivan", model.RoleStudent)
	teacher, teacherToken := seedUserWithToken(t, s, "prof", model.RoleTeacher)

	w, _ := doJSON(t, r, http.MethodGet, "/v1/student/supervisor", studentToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, env := doJSON(t, r, http.MethodPost, "/v1/student/requests", studentToken, gin.H{
		"supervisorId": teacher.ID,
	})
	var req struct {
		ID uint
	}
	require.NoError(t, json.Unmarshal(env.Data, &req))
	w, _ = doJSON(t, r, http.MethodPut,
		fmt.Sprintf("/v1/teacher/requests/%d/accept", req.ID), teacherToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = doJSON(t, r, http.MethodGet, "/v1/student/supervisor", studentToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sup struct {
		Name             string `json:"name"`
		AssignedStudents int64  `json:"assignedStudents"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sup))
	assert.Equal(t, "prof", sup.Name)
	assert.EqualValues(t, 1, sup.AssignedStudents)
}

func TestTeacherFileListing(t *testing.T) {
	r, s := setupBackend()
	student, studentToken := seedUserWithToken(t, s, "jill", model.RoleStudent)
	teacher, teacherToken := seedUserWithToken(t, s, "prof", model.RoleTeacher)
	_, adminToken := seedUserWithToken(t, s, "root", model.RoleAdmin)

	_, env := doJSON(t, r, http.MethodPost, "/v1/student/project", studentToken, gin.H{
		"title": "Thesis", "description": "x",
	})
	var project struct {
		ID uint
	}
	require.NoError(t, json.Unmarshal(env.Data, &project))
	w, _ := doJSON(t, r, http.MethodPut,
		fmt.Sprintf("/v1/admin/projects/%d/approve", project.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = doJSON(t, r, http.MethodPost, "/v1/admin/assign", adminToken, gin.H{
		"studentId": student.ID, "supervisorId": teacher.ID,
	})
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, s.Projects().AddFiles(context.Background(), project.ID, []model.ProjectFile{{
		ProjectID:    project.ID,
		FileType:     "report",
		FileURL:      "https://files.example.edu/report.pdf",
		StorageID:    "fid-1",
		OriginalName: "report.pdf",
		UploadedAt:   time.Now(),
	}}))

	w, env = doJSON(t, r, http.MethodGet, "/v1/teacher/files", teacherToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var files []struct {
		OriginalName string
		ProjectTitle string `json:"projectTitle"`
		StudentName  string `json:"studentName"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &files))
	require.Len(t, files, 1)
	assert.Equal(t, "report.pdf", files[0].OriginalName)
	assert.Equal(t, "Thesis", files[0].ProjectTitle)
	assert.Equal(t, "jill", files[0].StudentName)
}

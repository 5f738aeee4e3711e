package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"github.com/vaps-tech/vaps-server/internal/api"
	"github.com/vaps-tech/vaps-server/internal/api/handlers"
	"github.com/vaps-tech/vaps-server/internal/auth"
	"github.com/vaps-tech/vaps-server/internal/models"
	"github.com/vaps-tech/vaps-server/internal/repositories"
	"gorm.io/gorm"
)

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (f *fakeMailer) Send(to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("smtp: connection refused")
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (f *fakeMailer) last(t *testing.T) sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "expected at least one email to have been sent")
	return f.sent[len(f.sent)-1]
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeAvatarStore struct {
	uploads int
	fail    bool
}

func (f *fakeAvatarStore) Upload(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	if f.fail {
		return "", errors.New("storage unavailable")
	}
	f.uploads++
	return "https://cdn.vaps.test/avatars/" + filename, nil
}

type testEnv struct {
	router  http.Handler
	mail    *fakeMailer
	avatars *fakeAvatarStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A pooled connection would get its own empty in-memory database.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.ContactUs{}))
	repositories.DB = db

	mail := &fakeMailer{}
	avatars := &fakeAvatarStore{}
	handlers.Mail = mail
	handlers.Avatars = avatars

	return &testEnv{
		router:  api.SetupRouter(),
		mail:    mail,
		avatars: avatars,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postJSON(t *testing.T, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return e.jsonRequest(t, http.MethodPost, path, body, cookies...)
}

func (e *testEnv) patchJSON(t *testing.T, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return e.jsonRequest(t, http.MethodPatch, path, body, cookies...)
}

func (e *testEnv) jsonRequest(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return e.do(req)
}

// multipartForm builds a registration/avatar form body.
func multipartForm(t *testing.T, fields map[string]string, includeAvatar bool) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if includeAvatar {
		part, err := w.CreateFormFile("avatar", "avatar.png")
		require.NoError(t, err)
		_, err = part.Write([]byte("fake png bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

// createUser inserts a user directly, bypassing the register endpoint.
func createUser(t *testing.T, username, email, password string, mutate ...func(*models.User)) models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	user := models.User{
		Username:   username,
		Email:      email,
		Fullname:   "Test User",
		Password:   hash,
		Avatar:     "https://cdn.vaps.test/avatars/default.png",
		OTP:        123456,
		IsVerified: true,
	}
	for _, m := range mutate {
		m(&user)
	}
	require.NoError(t, repositories.DB.Create(&user).Error)
	return user
}

func accessCookie(t *testing.T, user *models.User) *http.Cookie {
	t.Helper()
	token, err := auth.GenerateAccessToken(user)
	require.NoError(t, err)
	return &http.Cookie{Name: "accessToken", Value: token}
}

func reloadUser(t *testing.T, id string) models.User {
	t.Helper()
	var user models.User
	require.NoError(t, repositories.DB.First(&user, "id = ?", id).Error)
	return user
}

func countUsers(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, repositories.DB.Model(&models.User{}).Count(&n).Error)
	return n
}

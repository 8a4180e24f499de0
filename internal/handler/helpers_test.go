package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/msomdec/userdesk/internal/domain"
	"github.com/msomdec/userdesk/internal/handler"
	"github.com/msomdec/userdesk/internal/repository/sqlite"
	"github.com/msomdec/userdesk/internal/service"
	"github.com/msomdec/userdesk/internal/storage"
)

const (
	testJWTSecret = "test-secret-for-handler-tests-0123456789"
	testMaxUpload = 1_000_000
	adminEmail    = "admin@example.com"
	adminPassword = "adminpass"
)

type testEnv struct {
	srv        *httptest.Server
	h          http.Handler
	users      *service.UserService
	auth       *service.AuthService
	uploadDir  string
	adminToken string
}

type envOption func(*handler.Deps)

func withLoginLimit(rate, burst float64) envOption {
	return func(d *handler.Deps) {
		d.LoginLimiter = service.NewTokenBucket(rate, burst, 0)
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { db.Close() })

	uploadDir := filepath.Join(t.TempDir(), "uploads")
	users := service.NewUserService(db.Users(), storage.NewDisk(uploadDir), 4, testMaxUpload)
	auth := service.NewAuthService(db.Users(), testJWTSecret, time.Hour)

	_, err = users.EnsureAdmin(context.Background(), "Admin", adminEmail, adminPassword)
	require.NoError(t, err)
	adminToken, _, err := auth.Login(context.Background(), adminEmail, adminPassword)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	deps := handler.Deps{
		Users:         users,
		Auth:          auth,
		Gatherer:      reg,
		UploadDir:     uploadDir,
		MaxFileUpload: testMaxUpload,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	if deps.LoginLimiter != nil {
		t.Cleanup(deps.LoginLimiter.Close)
	}

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, deps)
	h := handler.Wrap(mux, handler.NewMetrics(reg))
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return &testEnv{
		srv:        srv,
		h:          h,
		users:      users,
		auth:       auth,
		uploadDir:  uploadDir,
		adminToken: adminToken,
	}
}

// tokenFor creates a user with role and returns a token for it.
func (e *testEnv) tokenFor(t *testing.T, email, role string) (string, *domain.User) {
	t.Helper()
	u, err := e.users.Create(context.Background(), service.CreateUserInput{
		Name: "Test User", Email: email, Role: role, Password: "password123",
	})
	require.NoError(t, err)
	token, err := e.auth.IssueToken(u)
	require.NoError(t, err)
	return token, u
}

type response struct {
	status int
	header http.Header
	body   map[string]any
	raw    []byte
}

func (e *testEnv) do(t *testing.T, method, path, token, contentType string, body io.Reader) response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := response{status: resp.StatusCode, header: resp.Header, raw: raw}
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(raw, &out.body), "body: %s", raw)
	}
	return out
}

// direct serves the request in-process, for cases where the server answers
// before reading the whole body.
func (e *testEnv) direct(t *testing.T, method, path, token, contentType string, body *bytes.Buffer) response {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.ContentLength = int64(body.Len())
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)

	out := response{status: rec.Code, header: rec.Header(), raw: rec.Body.Bytes()}
	require.NoError(t, json.Unmarshal(out.raw, &out.body), "body: %s", out.raw)
	return out
}

func (e *testEnv) doJSON(t *testing.T, method, path, token string, payload any) response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	return e.do(t, method, path, token, "application/json", body)
}

// multipartFile builds a form with a single "file" part carrying the given
// declared content type.
func multipartFile(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func dataMap(t *testing.T, r response) map[string]any {
	t.Helper()
	m, ok := r.body["data"].(map[string]any)
	require.True(t, ok, "data is not an object: %s", r.raw)
	return m
}

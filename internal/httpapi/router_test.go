package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"cityfix/internal/auth"
	"cityfix/internal/blob"
	"cityfix/internal/service"
	"cityfix/internal/testutil"
	"cityfix/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	router  *gin.Engine
	uploads string
}

func newTestAPI(t *testing.T, maxUpload int64) *testAPI {
	t.Helper()
	d := testutil.OpenInMemoryDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	hasher, err := auth.NewHasherCost(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService("http-secret", 0)
	require.NoError(t, err)
	uploads := filepath.Join(t.TempDir(), "uploads")
	blobs, err := blob.NewDiskStore(uploads, maxUpload)
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(d)
	r := NewRouter(Deps{
		Users:      service.NewUsers(userRepo, hasher, tokens, logger),
		Reports:    service.NewReports(repository.NewReportRepository(d), userRepo, blobs, logger),
		Gate:       auth.NewGate(tokens),
		UploadsDir: uploads,
		MaxUpload:  maxUpload,
		Logger:     logger,
	}, nil)
	return &testAPI{router: r, uploads: uploads}
}

func (a *testAPI) do(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	var body map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w.Code, body
}

func jsonRequest(method, path, token string, body any) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func (a *testAPI) register(t *testing.T, name, email, password string) string {
	t.Helper()
	code, body := a.do(t, jsonRequest(http.MethodPost, "/api/register", "", map[string]string{"name": name, "email": email, "password": password}))
	require.Equal(t, http.StatusOK, code, body)
	return body["token"].(string)
}

func multipartRequest(t *testing.T, token string, fields map[string]string, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="photo"; filename="`+filename+`"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/reports", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, 0)

	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "CityFix API running")

	code, body := api.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", body["status"])
}

func TestAnnReportsPothole(t *testing.T) {
	api := newTestAPI(t, 0)

	code, body := api.do(t, jsonRequest(http.MethodPost, "/api/register", "", map[string]string{
		"name": "Ann", "email": "ann@x.com", "password": "secret1",
	}))
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, map[string]any{"id": float64(1), "name": "Ann", "email": "ann@x.com", "role": "citizen"}, body["user"])

	code, body = api.do(t, jsonRequest(http.MethodPost, "/api/login", "", map[string]string{"email": "ann@x.com", "password": "secret1"}))
	require.Equal(t, http.StatusOK, code)
	token := body["token"].(string)

	code, body = api.do(t, multipartRequest(t, token, map[string]string{"category": "pothole", "description": "deep hole"}, "", "", nil))
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, map[string]any{"reportId": float64(1)}, body)
}

func TestRegister_Errors(t *testing.T) {
	api := newTestAPI(t, 0)
	api.register(t, "Ann", "ann@x.com", "secret1")

	code, body := api.do(t, jsonRequest(http.MethodPost, "/api/register", "", map[string]string{"name": "Ann", "email": "ann@x.com", "password": "x"}))
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, "duplicate_email", body["code"])
	require.Equal(t, "email already exists", body["error"])

	code, body = api.do(t, jsonRequest(http.MethodPost, "/api/register", "", map[string]string{"name": "Bob", "email": "bob@x.com"}))
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "validation_error", body["code"])

	req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	code, _ = api.do(t, req)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t, 0)
	api.register(t, "Ann", "ann@x.com", "secret1")

	for _, creds := range []map[string]string{
		{"email": "ann@x.com", "password": "wrong"},
		{"email": "nobody@x.com", "password": "secret1"},
	} {
		code, body := api.do(t, jsonRequest(http.MethodPost, "/api/login", "", creds))
		require.Equal(t, http.StatusUnauthorized, code)
		require.Equal(t, "invalid credentials", body["error"])
	}
}

func TestReports_AccessGate(t *testing.T) {
	api := newTestAPI(t, 0)
	payload := map[string]string{"category": "pothole"}

	code, body := api.do(t, jsonRequest(http.MethodPost, "/api/reports", "", payload))
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, "token required", body["error"])

	code, body = api.do(t, jsonRequest(http.MethodPost, "/api/reports", "not.a.jwt", payload))
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, "invalid token", body["error"])

	req := jsonRequest(http.MethodPost, "/api/reports", "", payload)
	req.Header.Set("Authorization", "Basic abc")
	code, _ = api.do(t, req)
	require.Equal(t, http.StatusForbidden, code)
}

func TestReports_JSONBody(t *testing.T) {
	api := newTestAPI(t, 0)
	token := api.register(t, "Ann", "ann@x.com", "secret1")

	code, body := api.do(t, jsonRequest(http.MethodPost, "/api/reports", token, map[string]any{
		"category": "graffiti", "latitude": 40.7, "longitude": "-74.0",
	}))
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, float64(1), body["reportId"])

	code, body = api.do(t, jsonRequest(http.MethodPost, "/api/reports", token, map[string]any{"category": ""}))
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "validation_error", body["code"])

	code, _ = api.do(t, jsonRequest(http.MethodPost, "/api/reports", token, map[string]any{"category": "x", "latitude": true}))
	require.Equal(t, http.StatusBadRequest, code)
}

func TestReports_PhotoUpload(t *testing.T) {
	api := newTestAPI(t, 1024)
	token := api.register(t, "Ann", "ann@x.com", "secret1")

	code, body := api.do(t, multipartRequest(t, token, map[string]string{"category": "pothole", "latitude": "40.7", "longitude": "-74"}, "hole.PNG", "image/png", []byte("png-bytes")))
	require.Equal(t, http.StatusOK, code, body)

	entries, err := os.ReadDir(api.uploads)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	name := entries[0].Name()
	require.True(t, strings.HasSuffix(name, ".png"), name)

	// Stored photos are served back under /uploads.
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/"+name, nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "png-bytes", w.Body.String())

	code, body = api.do(t, multipartRequest(t, token, map[string]string{"category": "pothole"}, "notes.txt", "text/plain", []byte("hi")))
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "only image files allowed", body["error"])

	code, _ = api.do(t, multipartRequest(t, token, map[string]string{"category": "pothole"}, "big.jpg", "image/jpeg", bytes.Repeat([]byte("x"), 2048)))
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = api.do(t, multipartRequest(t, token, map[string]string{"category": "pothole", "latitude": "north"}, "", "", nil))
	require.Equal(t, http.StatusBadRequest, code)

	entries, err = os.ReadDir(api.uploads)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestReports_RejectsSecondPhoto(t *testing.T) {
	api := newTestAPI(t, 0)
	token := api.register(t, "Ann", "ann@x.com", "secret1")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("category", "pothole"))
	for _, name := range []string{"a.png", "b.png"} {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="photo"; filename="`+name+`"`)
		h.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("png"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/reports", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	code, body := api.do(t, req)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "only one photo allowed", body["error"])

	entries, err := os.ReadDir(api.uploads)
	require.NoError(t, err)
	require.Empty(t, entries)
}

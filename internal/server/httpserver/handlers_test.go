package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/adb/usermgmt/internal/common"
	"github.com/adb/usermgmt/internal/logging"
	"github.com/adb/usermgmt/internal/ratelimit"
	"github.com/adb/usermgmt/internal/server/auth"
	"github.com/adb/usermgmt/internal/server/models"
	"github.com/adb/usermgmt/internal/server/services"
)

type fakeUserService struct {
	registerOut *models.User
	registerErr error

	getOut *models.User
	getErr error

	updateOut *models.User
	updateErr error

	listOut []*models.User
	listErr error

	changePasswordErr error
	deleteErr         error
}

func (f *fakeUserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return f.registerOut, nil
}

func (f *fakeUserService) Update(ctx context.Context, id int64, username, email string) (*models.User, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.updateOut, nil
}

func (f *fakeUserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeUserService) List(ctx context.Context, page, size int) ([]*models.User, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listOut, nil
}

func (f *fakeUserService) ChangePassword(ctx context.Context, id int64, current, newPassword string) error {
	return f.changePasswordErr
}

func (f *fakeUserService) Delete(ctx context.Context, id int64) error { return f.deleteErr }

type fakeLoginService struct {
	out *services.LoginResult
	err error
}

func (f *fakeLoginService) Login(ctx context.Context, email, password string) (*services.LoginResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

const testSecret = "test-secret"

func newTestServer(us UserService, ls LoginService) *HTTPServer {
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewHTTPServer(":0", log, us, ls, testSecret, ratelimit.NewKeyedLimiter(100, 100))
}

func doRequest(t *testing.T, s *HTTPServer, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleRegister_Created(t *testing.T) {
	user := &models.User{ID: 1, Username: "alice", Email: "alice@example.com", CreatedAt: time.Now()}
	s := newTestServer(&fakeUserService{registerOut: user}, &fakeLoginService{})

	rec := doRequest(t, s, http.MethodPost, "/api/users",
		`{"username":"alice","email":"alice@example.com","password":"longenough"}`, nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if resp.ID != 1 || resp.Username != "alice" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHandleRegister_Validation(t *testing.T) {
	s := newTestServer(&fakeUserService{}, &fakeLoginService{})

	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"missing username", `{"email":"a@b.c","password":"longenough"}`},
		{"bad email", `{"username":"alice","email":"nope","password":"longenough"}`},
		{"short password", `{"username":"alice","email":"a@b.c","password":"short"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/api/users", tt.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("want 400, got %d", rec.Code)
			}
		})
	}
}

func TestHandleRegister_Duplicate(t *testing.T) {
	s := newTestServer(&fakeUserService{registerErr: common.ErrorDuplicate}, &fakeLoginService{})

	rec := doRequest(t, s, http.MethodPost, "/api/users",
		`{"username":"alice","email":"alice@example.com","password":"longenough"}`, nil)

	if rec.Code != http.StatusConflict {
		t.Fatalf("want 409, got %d", rec.Code)
	}
}

func TestHandleGet_NotFound(t *testing.T) {
	s := newTestServer(&fakeUserService{getErr: common.ErrorNotFound}, &fakeLoginService{})

	rec := doRequest(t, s, http.MethodGet, "/api/users/99", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", rec.Code)
	}
}

func TestHandleGet_BadID(t *testing.T) {
	s := newTestServer(&fakeUserService{}, &fakeLoginService{})

	rec := doRequest(t, s, http.MethodGet, "/api/users/abc", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
}

func TestHandleChangePassword_Mismatch(t *testing.T) {
	s := newTestServer(&fakeUserService{changePasswordErr: common.ErrorInvalidCurrentPassword}, &fakeLoginService{})

	rec := doRequest(t, s, http.MethodPut, "/api/users/1/password",
		`{"current_password":"wrong","new_password":"longenough"}`, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
}

func TestHandleDelete_NoContent(t *testing.T) {
	s := newTestServer(&fakeUserService{}, &fakeLoginService{})

	rec := doRequest(t, s, http.MethodDelete, "/api/users/1", "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("want 204, got %d", rec.Code)
	}
}

func TestHandleLogin_Success(t *testing.T) {
	result := &services.LoginResult{
		User:        &models.User{ID: 7, Username: "alice", Email: "alice@example.com"},
		AccessToken: "tok",
	}
	s := newTestServer(&fakeUserService{}, &fakeLoginService{out: result})

	rec := doRequest(t, s, http.MethodPost, "/api/login",
		`{"email":"alice@example.com","password":"correct123"}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if resp.ID != 7 || resp.AccessToken != "tok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	s := newTestServer(&fakeUserService{},
		&fakeLoginService{err: &common.InvalidCredentialsError{RemainingAttempts: 2}})

	rec := doRequest(t, s, http.MethodPost, "/api/login",
		`{"email":"alice@example.com","password":"wrong"}`, nil)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if resp["remaining_attempts"] != float64(2) {
		t.Fatalf("want remaining_attempts 2, got %v", resp)
	}
}

func TestHandleLogin_Locked(t *testing.T) {
	s := newTestServer(&fakeUserService{}, &fakeLoginService{err: common.ErrorAccountLocked})

	rec := doRequest(t, s, http.MethodPost, "/api/login",
		`{"email":"alice@example.com","password":"any"}`, nil)

	if rec.Code != http.StatusLocked {
		t.Fatalf("want 423, got %d", rec.Code)
	}
}

func TestHandleLogin_UnknownEmail(t *testing.T) {
	s := newTestServer(&fakeUserService{}, &fakeLoginService{err: common.ErrorNotFound})

	rec := doRequest(t, s, http.MethodPost, "/api/login",
		`{"email":"ghost@example.com","password":"any"}`, nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", rec.Code)
	}
}

func TestHandleLogin_RateLimited(t *testing.T) {
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s := NewHTTPServer(":0", log, &fakeUserService{},
		&fakeLoginService{err: common.ErrorNotFound}, testSecret, ratelimit.NewKeyedLimiter(0.1, 1))

	body := `{"email":"a@b.c","password":"x"}`
	first := doRequest(t, s, http.MethodPost, "/api/login", body, nil)
	if first.Code != http.StatusNotFound {
		t.Fatalf("first request should reach the handler, got %d", first.Code)
	}

	second := doRequest(t, s, http.MethodPost, "/api/login", body, nil)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("want 429, got %d", second.Code)
	}
}

func TestHandleMe_RequiresToken(t *testing.T) {
	s := newTestServer(&fakeUserService{}, &fakeLoginService{})

	rec := doRequest(t, s, http.MethodGet, "/api/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", rec.Code)
	}

	h := http.Header{}
	h.Set("Authorization", "Bearer garbage")
	rec = doRequest(t, s, http.MethodGet, "/api/me", "", h)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 for bad token, got %d", rec.Code)
	}
}

func TestHandleMe_ReturnsAccount(t *testing.T) {
	user := &models.User{ID: 7, Username: "alice", Email: "alice@example.com"}
	s := newTestServer(&fakeUserService{getOut: user}, &fakeLoginService{})

	token, err := auth.GenerateToken(7, []byte(testSecret), time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	rec := doRequest(t, s, http.MethodGet, "/api/me", "", h)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if resp.ID != 7 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHandlePing(t *testing.T) {
	s := newTestServer(&fakeUserService{}, &fakeLoginService{})

	rec := doRequest(t, s, http.MethodGet, "/api/ping", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
}

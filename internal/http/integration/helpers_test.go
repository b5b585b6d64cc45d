package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/waktsa/elearning/internal/account"
	"github.com/waktsa/elearning/internal/auth"
	"github.com/waktsa/elearning/internal/cache"
	"github.com/waktsa/elearning/internal/domain/course"
	"github.com/waktsa/elearning/internal/domain/user"
	"github.com/waktsa/elearning/internal/guard"
	apphttp "github.com/waktsa/elearning/internal/http"
	"github.com/waktsa/elearning/internal/security"
	"github.com/waktsa/elearning/internal/subscription"
)

type userStore interface {
	Create(ctx context.Context, in user.NewUser) (user.User, error)
	FindByEmail(ctx context.Context, email string) (user.User, error)
	FindByID(ctx context.Context, id int64) (user.User, error)
	Save(ctx context.Context, u user.User) error
	List(ctx context.Context, role *user.Role) ([]user.User, error)
	AdminExists(ctx context.Context) (bool, error)
}

type courseStore interface {
	Create(ctx context.Context, req course.CourseRequest) (course.Course, error)
	List(ctx context.Context, f course.Filter) ([]course.Course, error)
	Update(ctx context.Context, id int64, req course.CourseRequest) (course.Course, error)
	Delete(ctx context.Context, id int64) error
}

func newTestRouter(t *testing.T, users userStore, courses courseStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	settings, err := auth.NewSettings("integration-secret", "HS256", 30*time.Minute)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	tokens := auth.NewManager(settings)
	policy := subscription.NewPolicy(users)

	hasher := security.NewHasher(security.Argon2Params{
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})

	accounts, err := account.NewService(users, hasher, tokens)
	if err != nil {
		t.Fatalf("account service: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	return apphttp.NewRouter(apphttp.Deps{
		Log:                logger,
		Env:                "test",
		Guard:              guard.New(tokens, users, policy),
		Accounts:           accounts,
		Users:              users,
		Courses:            courses,
		Policy:             policy,
		CourseCache:        cache.NewMemoryCourseLists(time.Minute),
		LoginRatePerMinute: 100,
	})
}

// function that runs a request and returns a recorder and parsed response for cookies

func doRequest(router http.Handler, method, path string, body string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, *http.Response) {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w, w.Result()
}

func mustReadJSON[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()
	err := json.Unmarshal(w.Body.Bytes(), out)
	if err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, want, w.Body.String())
	}
}

type errorEnvelope struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) errorEnvelope {
	t.Helper()
	expectStatus(t, w, status)

	var env errorEnvelope
	mustReadJSON(t, w, &env)
	if env.Error.Code != code {
		t.Fatalf("got error code %q, want %q, body=%s", env.Error.Code, code, w.Body.String())
	}
	return env
}

func accessCookie(t *testing.T, response *http.Response) *http.Cookie {
	t.Helper()

	for _, c := range response.Cookies() {
		if c.Name == auth.AccessTokenCookie {
			return c
		}
	}

	t.Fatalf("%s cookie not found in response", auth.AccessTokenCookie)

	return nil
}

func login(t *testing.T, router http.Handler, email, password string) *http.Cookie {
	t.Helper()

	w, resp := doRequest(router, http.MethodPost, "/user/login", `{"email":"`+email+`","password":"`+password+`"}`)
	expectStatus(t, w, http.StatusOK)

	return accessCookie(t, resp)
}

func doRequestWithType(router http.Handler, path, body, contentType string) (*httptest.ResponseRecorder, *http.Response) {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w, w.Result()
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

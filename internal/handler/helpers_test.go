package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/medisupply/field-app/internal/auth"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/middleware"
	"github.com/medisupply/field-app/internal/model"
	"github.com/medisupply/field-app/internal/store"
	"github.com/sirupsen/logrus"
)

const testSecret = "test-secret"

// Seeded identities (see store/seed.yaml).
var (
	manager = auth.User{ID: "17", Email: "ana.gerente@medisupply.co", Roles: []string{enum.RoleAccountManager}}
	admin   = auth.User{ID: "1", Email: "admin@medisupply.co", Roles: []string{enum.RoleAdmin}}
	clinic  = auth.User{
		ID:        "42",
		Email:     "compras@clinicanorte.co",
		Roles:     []string{enum.RoleInstitutional},
		NIT:       "900123456",
		ClienteID: 1,
	}
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	f, err := store.DefaultFixture()
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	s, err := store.New(f)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func tokenFor(t *testing.T, u auth.User) string {
	t.Helper()
	tok, err := auth.GenerateToken(testSecret, u)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return tok
}

// mount serves routes under prefix behind bearer authentication.
func mount(prefix string, routes func(chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testSecret, nil))
	r.Route(prefix, routes)
	return r
}

// do sends a JSON request. body may be nil; token may be empty.
func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeResponse[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return v
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, want, rr.Body.String())
	}
}

func expectErrorCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) model.ErrorBody {
	t.Helper()
	expectStatus(t, rr, status)
	body := decodeResponse[model.ErrorBody](t, rr)
	if body.Error != code {
		t.Fatalf("error code: got %q, want %q", body.Error, code)
	}
	return body
}

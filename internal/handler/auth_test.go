package handler_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/medisupply/field-app/internal/auth"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/handler"
	"github.com/medisupply/field-app/internal/middleware"
	"github.com/medisupply/field-app/internal/model"
	"github.com/medisupply/field-app/internal/store"
)

func authRouter(st *store.Store) http.Handler {
	h := handler.NewAuthHandler(st, testSecret, quietLogger())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testSecret, st))
		h.RegisterProtectedRoutes(r)
	})
	return r
}

func TestLogin_Success(t *testing.T) {
	router := authRouter(newStore(t))

	rr := do(t, router, "POST", "/auth/login", "", model.LoginRequest{
		Email:    "Ana.Gerente@medisupply.co",
		Password: "Gerente#2025",
	})
	expectStatus(t, rr, http.StatusOK)

	resp := decodeResponse[model.LoginResponse](t, rr)
	if resp.TokenType != "bearer" {
		t.Errorf("token type: got %q", resp.TokenType)
	}
	if resp.User.ID != "17" || !resp.User.HasRole(enum.RoleAccountManager) {
		t.Errorf("user: got %+v", resp.User)
	}

	claims, err := auth.ValidateToken(testSecret, resp.AccessToken)
	if err != nil {
		t.Fatalf("issued token invalid: %v", err)
	}
	if claims.UserID != "17" {
		t.Errorf("claims user: got %q", claims.UserID)
	}
}

func TestLogin_Failures(t *testing.T) {
	router := authRouter(newStore(t))

	tests := []struct {
		name string
		body model.LoginRequest
		want int
	}{
		{"wrong password", model.LoginRequest{Email: "ana.gerente@medisupply.co", Password: "nope"}, http.StatusUnauthorized},
		{"unknown user", model.LoginRequest{Email: "nadie@medisupply.co", Password: "Gerente#2025"}, http.StatusUnauthorized},
		{"missing password", model.LoginRequest{Email: "ana.gerente@medisupply.co"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, router, "POST", "/auth/login", "", tt.body)
			expectStatus(t, rr, tt.want)
		})
	}
}

func TestVerifyToken(t *testing.T) {
	router := authRouter(newStore(t))
	token := tokenFor(t, clinic)

	rr := do(t, router, "GET", "/auth/verify-token?token="+token, "", nil)
	expectStatus(t, rr, http.StatusOK)
	resp := decodeResponse[model.VerifyResponse](t, rr)
	if !resp.Valid || resp.User == nil || resp.User.NIT != "900123456" {
		t.Errorf("verify: got %+v", resp)
	}

	rr = do(t, router, "GET", "/auth/verify-token?token=garbage", "", nil)
	expectStatus(t, rr, http.StatusUnauthorized)
}

func TestLogout_RevokesToken(t *testing.T) {
	router := authRouter(newStore(t))
	token := tokenFor(t, manager)

	rr := do(t, router, "POST", "/auth/logout", token, nil)
	expectStatus(t, rr, http.StatusOK)

	rr = do(t, router, "GET", "/auth/verify-token?token="+token, "", nil)
	expectStatus(t, rr, http.StatusUnauthorized)

	rr = do(t, router, "POST", "/auth/logout", token, nil)
	expectStatus(t, rr, http.StatusUnauthorized)
}

func TestRegister(t *testing.T) {
	st := newStore(t)
	router := authRouter(st)

	req := model.RegisterRequest{
		Email:    " Nuevo@ClinicaNorte.co ",
		Password: "Segura#2025x",
		FullName: "Laura  Gómez",
		NIT:      "900 123 456",
	}
	rr := do(t, router, "POST", "/users/register", "", req)
	expectStatus(t, rr, http.StatusCreated)

	user := decodeResponse[auth.User](t, rr)
	if user.NIT != "900123456" {
		t.Errorf("nit: got %q", user.NIT)
	}
	if user.FullName != "Laura Gómez" {
		t.Errorf("full name: got %q", user.FullName)
	}
	if user.ClienteID != 1 {
		t.Errorf("cliente id: got %d, want 1 (active site)", user.ClienteID)
	}
	if !user.HasRole(enum.RoleInstitutional) {
		t.Errorf("roles: got %v", user.Roles)
	}

	// The new account can log in.
	rr = do(t, router, "POST", "/auth/login", "", model.LoginRequest{Email: "nuevo@clinicanorte.co", Password: "Segura#2025x"})
	expectStatus(t, rr, http.StatusOK)

	// Same email again.
	rr = do(t, router, "POST", "/users/register", "", req)
	expectStatus(t, rr, http.StatusConflict)
}

func TestRegister_Validation(t *testing.T) {
	router := authRouter(newStore(t))

	rr := do(t, router, "POST", "/users/register", "", model.RegisterRequest{
		Email:    "bad-email",
		Password: "short",
		FullName: "Laura",
		NIT:      "123",
	})
	body := expectErrorCode(t, rr, http.StatusUnprocessableEntity, enum.ErrorCodeValidation)
	for _, field := range []string{"email", "password", "full_name", "nit"} {
		if !strings.Contains(body.Message, field) {
			t.Errorf("message %q does not mention %s", body.Message, field)
		}
	}
}

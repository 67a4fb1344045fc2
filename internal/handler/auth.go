package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/medisupply/field-app/internal/auth"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/middleware"
	"github.com/medisupply/field-app/internal/model"
	"github.com/medisupply/field-app/internal/store"
	"github.com/medisupply/field-app/internal/validation"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AuthStore defines the store methods needed by auth handlers.
// Satisfied by *store.Store; narrow interface for testability.
type AuthStore interface {
	Authenticate(email, password string) (auth.User, error)
	CreateUser(u auth.User, passwordHash string) (auth.User, error)
	CustomersByNIT(nit string) []model.Customer
	RevokeToken(token string)
	IsRevoked(token string) bool
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	store     AuthStore
	jwtSecret string
	log       logrus.FieldLogger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store AuthStore, jwtSecret string, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{store: store, jwtSecret: jwtSecret, log: log}
}

// RegisterRoutes registers the public auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
	r.Get("/auth/verify-token", h.VerifyToken)
	r.Post("/users/register", h.Register)
}

// RegisterProtectedRoutes registers endpoints that need a bearer token.
func (h *AuthHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Post("/auth/logout", h.Logout)
}

// --- Handlers ---

// Login handles email + password authentication.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, enum.ErrorCodeValidation, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, enum.ErrorCodeValidation, "email and password are required")
		return
	}

	user, err := h.store.Authenticate(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, enum.ErrorCodeUnauthorized, "Credenciales inválidas")
			return
		}
		writeInternal(w, err)
		return
	}

	token, err := auth.GenerateToken(h.jwtSecret, user)
	if err != nil {
		writeInternal(w, err)
		return
	}

	h.log.WithFields(logrus.Fields{"user_id": user.ID, "roles": user.Roles}).Info("login")
	writeJSON(w, http.StatusOK, model.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	})
}

// VerifyToken reports whether the token in ?token= is still usable.
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, enum.ErrorCodeValidation, "token is required")
		return
	}

	claims, err := auth.ValidateToken(h.jwtSecret, token)
	if err != nil || h.store.IsRevoked(token) {
		writeJSON(w, http.StatusUnauthorized, model.VerifyResponse{Valid: false})
		return
	}

	user := claims.User()
	writeJSON(w, http.StatusOK, model.VerifyResponse{Valid: true, User: &user})
}

// Logout revokes the bearer token used for the request.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.store.RevokeToken(middleware.TokenFromContext(r.Context()))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Sesión cerrada"})
}

// Register creates an institutional account. The account is linked to the
// first active customer site registered under the same NIT.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, enum.ErrorCodeValidation, "invalid request body")
		return
	}

	form := validation.Registration{
		FullName: req.FullName,
		Email:    req.Email,
		NIT:      req.NIT,
		Password: req.Password,
	}
	if err := form.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, enum.ErrorCodeValidation, err.Error())
		return
	}
	clean := form.Request()

	hash, err := bcrypt.GenerateFromPassword([]byte(clean.Password), bcrypt.DefaultCost)
	if err != nil {
		writeInternal(w, err)
		return
	}

	user := auth.User{
		Email:    clean.Email,
		FullName: clean.FullName,
		Roles:    []string{enum.RoleInstitutional},
		NIT:      clean.NIT,
	}
	for _, c := range h.store.CustomersByNIT(clean.NIT) {
		if c.Active {
			user.ClienteID = c.ID
			break
		}
	}

	created, err := h.store.CreateUser(user, string(hash))
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			writeError(w, http.StatusConflict, enum.ErrorCodeValidation, "El correo ya está registrado")
			return
		}
		writeInternal(w, err)
		return
	}

	h.log.WithFields(logrus.Fields{"user_id": created.ID, "nit": created.NIT}).Info("user registered")
	writeJSON(w, http.StatusCreated, created)
}


// Package handler implements the mock gateway's HTTP endpoints.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/medisupply/field-app/internal/auth"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/middleware"
	"github.com/medisupply/field-app/internal/model"
	"github.com/sirupsen/logrus"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, model.ErrorBody{Error: code, Message: message})
}

func writeInternal(w http.ResponseWriter, err error) {
	logrus.WithError(err).Error("request failed")
	writeError(w, http.StatusInternalServerError, enum.ErrorCodeInternal, "internal server error")
}

// queryInt reads a positive integer query parameter, falling back to def.
func queryInt(r *http.Request, name string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(name)); err == nil && v > 0 {
		return v
	}
	return def
}

// caller returns the authenticated user. Routes using it sit behind
// middleware.Authenticate.
func caller(r *http.Request) auth.User {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		return auth.User{}
	}
	return claims.User()
}

// isStaff reports whether u may act on any institution.
func isStaff(u auth.User) bool {
	return u.HasRole(enum.RoleAdmin) || u.HasRole(enum.RoleAccountManager)
}

// absoluteURL prefixes path with the scheme and host the request came in on.
func absoluteURL(r *http.Request, path string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + path
}

package app_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/medisupply/field-app/internal/app"
	"github.com/medisupply/field-app/internal/auth"
	"github.com/medisupply/field-app/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, url string) *config.Config {
	cfg := config.Default()
	cfg.GatewayURL = url
	cfg.SessionFile = filepath.Join(t.TempDir(), "session.yaml")
	return cfg
}

func TestNewLogger(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, logrus.WarnLevel, app.NewLogger(cfg, io.Discard).GetLevel())
	cfg.Debug = true
	assert.Equal(t, logrus.DebugLevel, app.NewLogger(cfg, io.Discard).GetLevel())
}

func TestRequireLogin_NoSession(t *testing.T) {
	a := app.New(testConfig(t, "http://127.0.0.1:1"), io.Discard)
	_, err := a.RequireLogin(context.Background())
	assert.ErrorIs(t, err, app.ErrLoginRequired)
}

func TestRequireLogin_RestoresSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"valid":true}`))
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	store := auth.FileStore{Path: cfg.SessionFile}
	user := auth.User{ID: "17", Email: "ana@medisupply.co", Roles: []string{"gerente_cuenta"}}
	require.NoError(t, store.Save(auth.Saved{Token: "tok", User: user}))

	a := app.New(cfg, io.Discard)
	got, err := a.RequireLogin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "17", got.ID)
	assert.Equal(t, "tok", a.Session.Token())
	assert.Equal(t, auth.HomeCustomers, a.Session.HomeRoute())
}

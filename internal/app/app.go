// Package app wires configuration, logging, the session and the gateway
// client together for the field CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/medisupply/field-app/internal/api"
	"github.com/medisupply/field-app/internal/auth"
	"github.com/medisupply/field-app/internal/config"
	"github.com/medisupply/field-app/internal/money"
	"github.com/medisupply/field-app/internal/order"
	"github.com/medisupply/field-app/internal/tracking"
	"github.com/medisupply/field-app/internal/visits"
	"github.com/sirupsen/logrus"
)

// ErrLoginRequired is returned by RequireLogin when no valid session exists.
var ErrLoginRequired = errors.New("not logged in, run `medisupply login` first")

type App struct {
	Config  *config.Config
	Log     *logrus.Logger
	Session *auth.Session
	Client  *api.Client
	Money   *money.Formatter
}

// NewLogger builds the logger for cfg. Debug mode logs every gateway
// request.
func NewLogger(cfg *config.Config, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetLevel(logrus.WarnLevel)
	if cfg.Debug {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// New creates the application context. The session is restored from the
// configured session file.
func New(cfg *config.Config, logOut io.Writer) *App {
	log := NewLogger(cfg, logOut)
	base := api.New(cfg.BaseURL(), cfg.Timeout, nil, api.WithLogger(log))
	session := auth.NewSession(base.Auth(), auth.FileStore{Path: cfg.SessionFile})
	return &App{
		Config:  cfg,
		Log:     log,
		Session: session,
		Client:  base.WithIdentity(session),
		Money:   money.NewFormatter(cfg.Locale),
	}
}

// RequireLogin restores and verifies the stored session.
func (a *App) RequireLogin(ctx context.Context) (*auth.User, error) {
	status, err := a.Session.CheckStatus(ctx)
	switch {
	case status == auth.StatusAuthenticated:
		return a.Session.User(), nil
	case err != nil:
		return nil, fmt.Errorf("%w (%v)", ErrLoginRequired, err)
	}
	return nil, ErrLoginRequired
}

// Wizard opens an order wizard for the logged-in user.
func (a *App) Wizard(user auth.User, onCreated order.CreatedFunc) *order.Wizard {
	return order.NewWizard(user,
		order.APICatalog{Products: a.Client.Products()},
		a.Client.Orders(),
		order.WithOnOrderCreated(onCreated),
		order.WithLogger(a.Log),
	)
}

func (a *App) Visits() *visits.Service {
	return visits.NewService(a.Client.Visits(), time.Local, a.Log)
}

func (a *App) Watcher() *tracking.Watcher {
	return &tracking.Watcher{Log: a.Log}
}

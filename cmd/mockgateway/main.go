// Command mockgateway serves the MediSupply gateway API from an in-memory
// store so the field client can be developed and demoed offline.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medisupply/field-app/internal/config"
	"github.com/medisupply/field-app/internal/router"
	"github.com/medisupply/field-app/internal/service"
	"github.com/medisupply/field-app/internal/store"
	"github.com/medisupply/field-app/internal/ws"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := run(log); err != nil {
		log.WithError(err).Fatal("mock gateway stopped")
	}
}

func run(log *logrus.Logger) error {
	cfg, err := config.LoadGateway()
	if err != nil {
		return err
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	log.SetLevel(level)

	fixture, err := loadFixture(cfg.SeedFile)
	if err != nil {
		return err
	}
	st, err := store.New(fixture)
	if err != nil {
		return fmt.Errorf("seed store: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub(log.WithField("component", "ws"))
	deliveries := service.NewDeliveryService(st, hub, log.WithField("component", "deliveries"))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg, st, hub, deliveries, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})
	if cfg.SimulateEvery > 0 {
		log.WithField("every", cfg.SimulateEvery).Info("simulating delivery progress")
		g.Go(func() error {
			deliveries.Simulate(ctx, cfg.SimulateEvery)
			return nil
		})
	}
	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("starting mock gateway")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func loadFixture(path string) (*store.Fixture, error) {
	if path == "" {
		return store.DefaultFixture()
	}
	return store.LoadFixture(path)
}

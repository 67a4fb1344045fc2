// Command medisupply is the field client for MediSupply account managers and
// institutional customers: catalog, customers, orders, deliveries, routes
// and visits against the MediSupply gateway.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medisupply/field-app/internal/app"
	"github.com/medisupply/field-app/internal/auth"
	"github.com/medisupply/field-app/internal/config"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// env is what every command shares once the Before hook has run.
type env struct {
	app    *app.App
	out    io.Writer
	logOut io.Writer
	now    func() time.Time
}

func newApp(out, logOut io.Writer) *cli.App {
	e := &env{out: out, logOut: logOut, now: time.Now}

	return &cli.App{
		Name:      "medisupply",
		Usage:     "MediSupply field client",
		Writer:    out,
		ErrWriter: logOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "profile",
				Aliases: []string{"p"},
				Usage:   "YAML profile with client settings",
				EnvVars: []string{config.EnvPrefix + "_PROFILE"},
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "log every gateway request",
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("profile"))
			if err != nil {
				return err
			}
			if c.Bool("debug") {
				cfg.Debug = true
			}
			e.app = app.New(cfg, e.logOut)
			return nil
		},
		// Errors are printed by main; never exit from inside the library.
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			e.loginCommand(),
			e.logoutCommand(),
			e.whoamiCommand(),
			e.registerCommand(),
			e.productsCommand(),
			e.customersCommand(),
			e.orderCommand(),
			e.ordersCommand(),
			e.deliveriesCommand(),
			e.routeCommand(),
			e.visitsCommand(),
		},
	}
}

func (e *env) user(c *cli.Context) (*auth.User, error) {
	return e.app.RequireLogin(c.Context)
}

func (e *env) printf(format string, args ...any) {
	fmt.Fprintf(e.out, format, args...)
}

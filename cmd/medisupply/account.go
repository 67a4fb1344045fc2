package main

import (
	"fmt"
	"strings"

	"github.com/medisupply/field-app/internal/auth"
	"github.com/medisupply/field-app/internal/validation"
	"github.com/urfave/cli/v2"
)

func (e *env) loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "sign in and keep the session for later commands",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true},
			&cli.StringFlag{Name: "password", EnvVars: []string{"MEDISUPPLY_PASSWORD"}, Required: true},
		},
		Action: func(c *cli.Context) error {
			s := e.app.Session
			if err := s.Login(c.Context, c.String("email"), c.String("password")); err != nil {
				return fmt.Errorf("login: %w", err)
			}
			u := s.User()
			e.printf("Signed in as %s <%s> (%s)\n", u.FullName, u.Email, u.PrimaryRole())
			e.printf("Start with: medisupply %s\n", homeCommand(s.HomeRoute()))
			return nil
		},
	}
}

// homeCommand maps the session's landing screen onto a CLI command.
func homeCommand(home string) string {
	switch home {
	case auth.HomeCustomers:
		return "customers"
	case auth.HomeDeliveries:
		return "deliveries"
	}
	return "products"
}

func (e *env) logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "end the session",
		Action: func(c *cli.Context) error {
			// Restore the token so the gateway can revoke it.
			if _, err := e.app.Session.CheckStatus(c.Context); err != nil {
				e.app.Log.WithError(err).Debug("restore session before logout")
			}
			err := e.app.Session.Logout(c.Context)
			e.printf("Signed out\n")
			if err != nil {
				e.app.Log.WithError(err).Warn("gateway logout failed; local session cleared")
			}
			return nil
		},
	}
}

func (e *env) whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "show the signed-in user",
		Action: func(c *cli.Context) error {
			u, err := e.user(c)
			if err != nil {
				return err
			}
			e.printf("%s <%s>\n", u.FullName, u.Email)
			e.printf("id:    %s\n", u.ID)
			e.printf("roles: %s\n", strings.Join(u.Roles, ", "))
			if u.NIT != "" {
				e.printf("nit:   %s (customer %d)\n", u.NIT, u.ClienteID)
			}
			return nil
		},
	}
}

func (e *env) registerCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "create an institutional account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Required: true, Usage: "full name, at least two words"},
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "nit", Required: true, Usage: "institution NIT, 9 or 10 digits"},
			&cli.StringFlag{Name: "password", EnvVars: []string{"MEDISUPPLY_PASSWORD"}, Required: true},
		},
		Action: func(c *cli.Context) error {
			form := validation.Registration{
				FullName: c.String("name"),
				Email:    c.String("email"),
				NIT:      c.String("nit"),
				Password: c.String("password"),
			}
			if err := form.Validate(); err != nil {
				return fmt.Errorf("registration form: %w", err)
			}
			strength, _ := validation.Password(form.Password)

			u, err := e.app.Client.Auth().Register(c.Context, form.Request())
			if err != nil {
				return fmt.Errorf("register: %w", err)
			}
			e.printf("Account created for %s <%s> (password strength: %s)\n", u.FullName, u.Email, strength)
			e.printf("Sign in with: medisupply login --email %s\n", u.Email)
			return nil
		},
	}
}

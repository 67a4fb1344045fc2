// Command seed writes a mock gateway fixture: the demo data with every
// password bcrypt-hashed, plus an admin account from flags or environment.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/store"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

func main() {
	// CLI flags
	in := flag.String("in", "", "Base fixture (default: embedded demo data)")
	out := flag.String("out", "", "Output file (default: stdout)")
	email := flag.String("email", "", "Admin email address")
	password := flag.String("password", "", "Admin password")
	name := flag.String("name", "", "Admin full name")
	flag.Parse()

	// Fall back to environment variables
	if *email == "" {
		*email = os.Getenv("SEED_EMAIL")
	}
	if *password == "" {
		*password = os.Getenv("SEED_PASSWORD")
	}
	if *name == "" {
		*name = os.Getenv("SEED_NAME")
	}

	// Fall back to defaults
	if *email == "" {
		*email = "admin@medisupply.co"
	}
	if *password == "" {
		*password = "Admin#2025"
		logrus.Warn("using default admin password 'Admin#2025'; change it outside local demos")
	}
	if *name == "" {
		*name = "Administrador MediSupply"
	}

	fixture, err := store.LoadFixture(*in)
	if err != nil {
		logrus.WithError(err).Fatal("load base fixture")
	}

	upsertAdmin(fixture, *email, *password, *name)
	if err := hashPasswords(fixture); err != nil {
		logrus.WithError(err).Fatal("hash passwords")
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			logrus.WithError(err).Fatal("create output")
		}
		defer f.Close()
		w = f
	}
	if err := write(w, fixture); err != nil {
		logrus.WithError(err).Fatal("write fixture")
	}

	logrus.WithFields(logrus.Fields{
		"users":     len(fixture.Users),
		"products":  len(fixture.Products),
		"customers": len(fixture.Customers),
	}).Info("seed completed successfully")
}

// upsertAdmin replaces the account with the same email or appends a new one.
func upsertAdmin(f *store.Fixture, email, password, name string) {
	email = strings.ToLower(strings.TrimSpace(email))
	for i := range f.Users {
		u := &f.Users[i]
		if strings.EqualFold(u.Email, email) {
			u.FullName = name
			u.Password = password
			u.PasswordHash = ""
			u.IsActive = true
			if !u.HasRole(enum.RoleAdmin) {
				u.Roles = append(u.Roles, enum.RoleAdmin)
			}
			logrus.WithField("email", email).Info("admin exists, resetting password")
			return
		}
	}

	var rec store.UserRecord
	rec.ID = strconv.Itoa(len(f.Users) + 1)
	rec.Email = email
	rec.FullName = name
	rec.IsActive = true
	rec.Roles = []string{enum.RoleAdmin}
	rec.Password = password
	f.Users = append(f.Users, rec)
}

// hashPasswords replaces every plaintext password with a bcrypt hash.
func hashPasswords(f *store.Fixture) error {
	for i := range f.Users {
		u := &f.Users[i]
		if u.Password == "" {
			continue
		}
		h, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("%s: %w", u.Email, err)
		}
		u.PasswordHash = string(h)
		u.Password = ""
	}
	return nil
}

func write(w io.Writer, f *store.Fixture) error {
	if _, err := io.WriteString(w, "# Generated by cmd/seed. Passwords are bcrypt hashes.\n"); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return err
	}
	return enc.Close()
}

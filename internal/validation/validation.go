// Package validation checks registration form input before it reaches the
// gateway. NIT rules follow Colombian institutional identifiers.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/medisupply/field-app/internal/model"
)

var (
	ErrRequired      = errors.New("is required")
	ErrEmailFormat   = errors.New("must be a valid email address")
	ErrNITDigits     = errors.New("must contain only digits")
	ErrNITLength     = errors.New("must have 9 or 10 digits")
	ErrPasswordShort = errors.New("must have at least 8 characters")
	ErrNameShort     = errors.New("must have at least 3 characters")
	ErrNameWords     = errors.New("must include first and last name")
	ErrNameLetters   = errors.New("may contain only letters")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func Email(email string) error {
	if email == "" {
		return ErrRequired
	}
	if !emailPattern.MatchString(email) {
		return ErrEmailFormat
	}
	return nil
}

// CleanNIT strips spaces and dashes.
func CleanNIT(nit string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' {
			return -1
		}
		return r
	}, nit)
}

func NIT(nit string) error {
	if nit == "" {
		return ErrRequired
	}
	clean := CleanNIT(nit)
	for _, r := range clean {
		if r < '0' || r > '9' {
			return ErrNITDigits
		}
	}
	if len(clean) < 9 || len(clean) > 10 {
		return ErrNITLength
	}
	return nil
}

type Strength int

const (
	StrengthWeak Strength = iota
	StrengthMedium
	StrengthStrong
)

func (s Strength) String() string {
	switch s {
	case StrengthMedium:
		return "medium"
	case StrengthStrong:
		return "strong"
	}
	return "weak"
}

// MissingCriteriaError lists the character classes a password lacks.
type MissingCriteriaError struct {
	Missing []string
}

func (e *MissingCriteriaError) Error() string {
	return "must include " + strings.Join(e.Missing, ", ")
}

const passwordSymbols = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

// Password requires 8+ characters with upper and lower case letters, a digit
// and a symbol. Strength is reported even when the password is rejected.
func Password(pw string) (Strength, error) {
	if pw == "" {
		return StrengthWeak, ErrRequired
	}
	if len(pw) < 8 {
		return StrengthWeak, ErrPasswordShort
	}

	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}

	var missing []string
	for _, c := range []struct {
		ok   bool
		name string
	}{{upper, "uppercase"}, {lower, "lowercase"}, {digit, "digits"}, {symbol, "symbols"}} {
		if !c.ok {
			missing = append(missing, c.name)
		}
	}
	met := 4 - len(missing)
	switch {
	case len(missing) == 0:
		return StrengthStrong, nil
	case met < 2:
		return StrengthWeak, &MissingCriteriaError{Missing: missing}
	}
	return StrengthMedium, &MissingCriteriaError{Missing: missing}
}

func FullName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrRequired
	}
	if len([]rune(trimmed)) < 3 {
		return ErrNameShort
	}
	if len(strings.Fields(trimmed)) < 2 {
		return ErrNameWords
	}
	for _, r := range trimmed {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) {
			return ErrNameLetters
		}
	}
	return nil
}

// FieldErrors maps form field names to their validation failure.
type FieldErrors map[string]error

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%s %v", f, fe[f])
	}
	return strings.Join(parts, "; ")
}

type Registration struct {
	FullName string
	Email    string
	NIT      string
	Password string
}

// Validate checks every field; the result is nil when the form is valid.
func (r Registration) Validate() error {
	fe := FieldErrors{}
	if err := FullName(r.FullName); err != nil {
		fe["full_name"] = err
	}
	if err := Email(strings.TrimSpace(r.Email)); err != nil {
		fe["email"] = err
	}
	if err := NIT(r.NIT); err != nil {
		fe["nit"] = err
	}
	if _, err := Password(r.Password); err != nil {
		fe["password"] = err
	}
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// Request builds the gateway payload from a validated form.
func (r Registration) Request() model.RegisterRequest {
	return model.RegisterRequest{
		Email:    strings.ToLower(strings.TrimSpace(r.Email)),
		Password: r.Password,
		FullName: strings.Join(strings.Fields(r.FullName), " "),
		NIT:      CleanNIT(r.NIT),
	}
}

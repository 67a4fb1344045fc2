// Package store is the in-memory database behind the mock gateway. It is
// seeded from a YAML fixture and safe for concurrent use.
package store

import (
	"cmp"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/medisupply/field-app/internal/auth"
	"github.com/medisupply/field-app/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
)

//go:embed seed.yaml
var defaultSeed []byte

// UserRecord is a gateway account. Fixtures may carry a plaintext password
// instead of a hash; it is hashed on load.
type UserRecord struct {
	auth.User    `yaml:",inline"`
	Password     string `yaml:"password,omitempty"`
	PasswordHash string `yaml:"password_hash,omitempty"`
}

// DeliveryRecord is a delivery with its tracking timeline.
type DeliveryRecord struct {
	model.Delivery `yaml:",inline"`
	Events         []model.TrackingEvent `yaml:"eventos,omitempty"`
}

// Fixture is the seed file layout.
type Fixture struct {
	Users      []UserRecord     `yaml:"users"`
	Products   []model.Product  `yaml:"products"`
	Customers  []model.Customer `yaml:"customers"`
	Deliveries []DeliveryRecord `yaml:"deliveries"`
	Routes     []model.Route    `yaml:"routes"`
}

// DefaultFixture returns the embedded demo data.
func DefaultFixture() (*Fixture, error) {
	return ParseFixture(defaultSeed)
}

func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &f, nil
}

// LoadFixture reads a fixture file, or the embedded one when path is empty.
func LoadFixture(path string) (*Fixture, error) {
	if path == "" {
		return DefaultFixture()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

type Store struct {
	mu sync.RWMutex

	users    map[string]*UserRecord // by lower-cased email
	revoked  map[string]bool
	nextUser int

	products  map[uuid.UUID]*model.Product
	customers map[int64]*model.Customer

	orders   map[string]*model.Order
	history  map[string][]model.StatusChange
	orderSeq int

	deliveries map[string]*DeliveryRecord
	routes     []model.Route

	visits      map[int64]*model.Visit
	blobs       map[int64][]byte
	visitSeq    int64
	evidenceSeq int64
}

// New builds a store from f. Plaintext fixture passwords are hashed with
// bcrypt.MinCost.
func New(f *Fixture) (*Store, error) {
	s := &Store{
		users:      make(map[string]*UserRecord),
		revoked:    make(map[string]bool),
		products:   make(map[uuid.UUID]*model.Product),
		customers:  make(map[int64]*model.Customer),
		orders:     make(map[string]*model.Order),
		history:    make(map[string][]model.StatusChange),
		deliveries: make(map[string]*DeliveryRecord),
		visits:     make(map[int64]*model.Visit),
		blobs:      make(map[int64][]byte),
	}

	for _, u := range f.Users {
		if u.PasswordHash == "" {
			h, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.MinCost)
			if err != nil {
				return nil, fmt.Errorf("hash password of %s: %w", u.Email, err)
			}
			u.PasswordHash = string(h)
		}
		u.Password = ""
		u.Email = strings.ToLower(u.Email)
		s.users[u.Email] = &u
		s.nextUser++
	}
	for _, p := range f.Products {
		if p.ProductID == uuid.Nil {
			p.ProductID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(p.SKU))
		}
		s.products[p.ProductID] = &p
	}
	for _, c := range f.Customers {
		s.customers[c.ID] = &c
	}
	for _, d := range f.Deliveries {
		s.deliveries[d.ID] = &d
	}
	s.routes = slices.Clone(f.Routes)
	return s, nil
}

// --- Users ---

// Authenticate checks email and password and returns the account.
func (s *Store) Authenticate(email, password string) (auth.User, error) {
	s.mu.RLock()
	u, ok := s.users[strings.ToLower(email)]
	s.mu.RUnlock()
	if !ok {
		return auth.User{}, ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return auth.User{}, ErrNotFound
	}
	return u.User, nil
}

// CreateUser registers an institutional account.
func (s *Store) CreateUser(u auth.User, passwordHash string) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, ok := s.users[email]; ok {
		return auth.User{}, ErrEmailTaken
	}
	s.nextUser++
	u.ID = fmt.Sprintf("%d", 1000+s.nextUser)
	u.Email = email
	u.IsActive = true
	s.users[email] = &UserRecord{User: u, PasswordHash: passwordHash}
	return u, nil
}

func (s *Store) RevokeToken(token string) {
	s.mu.Lock()
	s.revoked[token] = true
	s.mu.Unlock()
}

func (s *Store) IsRevoked(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revoked[token]
}

// --- Products ---

// Products lists the catalog by name, optionally narrowed to one SKU.
func (s *Store) Products(sku string) []model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Product, 0, len(s.products))
	for _, p := range s.products {
		if sku != "" && !strings.EqualFold(p.SKU, sku) {
			continue
		}
		out = append(out, *p)
	}
	slices.SortFunc(out, func(a, b model.Product) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.SKU, b.SKU))
	})
	return out
}

func (s *Store) Product(id uuid.UUID) (model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return model.Product{}, ErrNotFound
	}
	return *p, nil
}

// --- Customers ---

type CustomerFilter struct {
	ManagerID       string
	Country         string
	InstitutionType string
	Search          string
	Active          *bool
}

func (f CustomerFilter) match(c *model.Customer) bool {
	switch {
	case f.ManagerID != "" && c.ManagerID != f.ManagerID:
		return false
	case f.Country != "" && !strings.EqualFold(c.Country, f.Country):
		return false
	case f.InstitutionType != "" && c.InstitutionType != f.InstitutionType:
		return false
	case f.Active != nil && c.Active != *f.Active:
		return false
	}
	if f.Search == "" {
		return true
	}
	term := strings.ToLower(f.Search)
	for _, field := range []string{c.TradeName, c.LegalName, c.NIT, c.City} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// Customers lists matching customers ordered by trade name.
func (s *Store) Customers(f CustomerFilter) []model.Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Customer
	for _, c := range s.customers {
		if f.match(c) {
			out = append(out, *c)
		}
	}
	slices.SortFunc(out, func(a, b model.Customer) int {
		return cmp.Or(cmp.Compare(a.TradeName, b.TradeName), cmp.Compare(a.ID, b.ID))
	})
	return out
}

func (s *Store) Customer(id int64) (model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	if !ok {
		return model.Customer{}, ErrNotFound
	}
	return *c, nil
}

// CustomersByNIT returns every site registered under nit.
func (s *Store) CustomersByNIT(nit string) []model.Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Customer
	for _, c := range s.customers {
		if c.NIT == nit {
			out = append(out, *c)
		}
	}
	slices.SortFunc(out, func(a, b model.Customer) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Package accounts gathers what an account manager sees about a customer.
package accounts

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/medisupply/field-app/internal/api"
	"github.com/medisupply/field-app/internal/model"
	"golang.org/x/sync/errgroup"
)

type Customers interface {
	Mine(ctx context.Context, f api.CustomerFilter) (*model.CustomerPage, error)
	Get(ctx context.Context, id int64) (*model.Customer, error)
	ByNIT(ctx context.Context, nit string) ([]model.Customer, error)
}

type Visits interface {
	ByClient(ctx context.Context, clientID int64) (*model.VisitList, error)
}

var (
	_ Customers = (*api.CustomersAPI)(nil)
	_ Visits    = (*api.VisitsAPI)(nil)
)

// Profile is a customer with its visit history, newest visit first.
type Profile struct {
	Customer model.Customer
	Visits   []model.Visit
}

// LastVisit is the most recent visit, or nil.
func (p *Profile) LastVisit() *model.Visit {
	if len(p.Visits) == 0 {
		return nil
	}
	return &p.Visits[0]
}

// LoadProfile fetches customer detail and visit history concurrently.
func LoadProfile(ctx context.Context, cs Customers, vs Visits, id int64) (*Profile, error) {
	var (
		c    *model.Customer
		list *model.VisitList
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		c, err = cs.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("customer %d: %w", id, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		list, err = vs.ByClient(ctx, id)
		if err != nil {
			return fmt.Errorf("visits of customer %d: %w", id, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	visits := slices.Clone(list.Items)
	slices.SortStableFunc(visits, func(a, b model.Visit) int {
		return b.VisitDatetime.Compare(a.VisitDatetime)
	})
	return &Profile{Customer: *c, Visits: visits}, nil
}

// Find looks a customer up by NIT when the term looks like one, and falls
// back to the manager's assigned list filtered by name otherwise.
func Find(ctx context.Context, cs Customers, managerID, term string) ([]model.Customer, error) {
	term = strings.TrimSpace(term)
	if looksLikeNIT(term) {
		found, err := cs.ByNIT(ctx, term)
		if err != nil {
			return nil, fmt.Errorf("find customer: %w", err)
		}
		return found, nil
	}
	page, err := cs.Mine(ctx, api.CustomerFilter{ManagerID: managerID, Search: term})
	if err != nil {
		return nil, fmt.Errorf("find customer: %w", err)
	}
	return page.Customers, nil
}

func looksLikeNIT(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '-' || r == ' ' || r == '.':
		default:
			return false
		}
	}
	return digits >= 6
}

package api

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/medisupply/field-app/internal/model"
)

type CustomersAPI struct{ c *Client }

type CustomerFilter struct {
	ManagerID       string
	Country         string
	InstitutionType string
	Search          string
	Page            int
	Limit           int
	Active          *bool
}

func (f CustomerFilter) values() url.Values {
	v := url.Values{}
	if f.ManagerID != "" {
		v.Set("gerente_id", f.ManagerID)
	}
	if f.Country != "" {
		v.Set("pais", f.Country)
	}
	if f.InstitutionType != "" {
		v.Set("tipo_institucion", f.InstitutionType)
	}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Active != nil {
		v.Set("activo", strconv.FormatBool(*f.Active))
	}
	return v
}

// Mine lists the customers assigned to the account manager in the filter.
func (a *CustomersAPI) Mine(ctx context.Context, f CustomerFilter) (*model.CustomerPage, error) {
	var page model.CustomerPage
	err := a.c.do(ctx, request{
		op:      "list customers",
		method:  http.MethodGet,
		path:    "/api/v1/clientes/mis-clientes",
		query:   f.values(),
		headers: headersOrders,
	}, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (a *CustomersAPI) Get(ctx context.Context, id int64) (*model.Customer, error) {
	var c model.Customer
	err := a.c.do(ctx, request{
		op:      "get customer",
		method:  http.MethodGet,
		path:    "/api/v1/clientes/" + strconv.FormatInt(id, 10),
		headers: headersOrders,
	}, &c)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

var nitJunk = regexp.MustCompile(`[^0-9A-Za-z-]`)

// NITCandidates lists the spellings of nit worth trying, in order, without
// duplicates: as given, trimmed, without whitespace, without stray
// characters, and without the check digit.
func NITCandidates(nit string) []string {
	raw := []string{
		nit,
		strings.TrimSpace(nit),
		strings.Join(strings.Fields(nit), ""),
		nitJunk.ReplaceAllString(nit, ""),
	}
	if base, _, ok := strings.Cut(nit, "-"); ok {
		raw = append(raw, base)
	}

	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// ByNIT returns the customer sites registered under nit. Spellings the
// gateway rejects as invalid (400/422) are retried with the next candidate;
// when every candidate is rejected the result is empty so callers can fall
// back to a search.
func (a *CustomersAPI) ByNIT(ctx context.Context, nit string) ([]model.Customer, error) {
	var lastErr error
	for _, candidate := range NITCandidates(nit) {
		var page model.CustomerPage
		err := a.c.do(ctx, request{
			op:      "customers by nit",
			method:  http.MethodGet,
			path:    "/api/v1/clientes/por-nit",
			query:   url.Values{"nit": {candidate}},
			headers: headersOrders,
		}, &page)
		if err == nil {
			return page.Customers, nil
		}
		if !IsStatus(err, http.StatusBadRequest, http.StatusUnprocessableEntity) {
			return nil, err
		}
		lastErr = err
	}
	if lastErr != nil {
		a.c.log.WithError(lastErr).WithField("nit", nit).Debug("no valid nit spelling")
	}
	return nil, nil
}

func (a *CustomersAPI) InstitutionTypes(ctx context.Context) ([]string, error) {
	var resp model.InstitutionTypes
	err := a.c.do(ctx, request{
		op:     "institution types",
		method: http.MethodGet,
		path:   "/api/v1/clientes/tipos-institucion",
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Types, nil
}

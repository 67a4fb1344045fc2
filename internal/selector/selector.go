// Package selector narrows customer and product lists by a search term.
// Matching is case and accent insensitive: "clinica" finds "Clínica".
package selector

import (
	"strings"
	"unicode"

	"github.com/medisupply/field-app/internal/model"
	"github.com/medisupply/field-app/internal/order"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds s for comparison: accents removed, lower case, trimmed.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// Filter keeps the items with a field containing term. A blank term keeps
// everything. The input order is preserved.
func Filter[T any](items []T, term string, fields func(T) []string) []T {
	q := Normalize(term)
	if q == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		for _, f := range fields(it) {
			if f != "" && strings.Contains(Normalize(f), q) {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

// Products matches name, SKU and category.
func Products(ps []order.Product, term string) []order.Product {
	return Filter(ps, term, func(p order.Product) []string {
		return []string{p.Name, p.SKU, p.Category}
	})
}

// Customers matches trade and legal name, NIT, city and main contact.
func Customers(cs []model.Customer, term string) []model.Customer {
	return Filter(cs, term, func(c model.Customer) []string {
		return []string{c.TradeName, c.LegalName, c.NIT, c.City, c.MainContact}
	})
}

// InStock keeps products with local stock left to add.
func InStock(ps []order.Product) []order.Product {
	out := make([]order.Product, 0, len(ps))
	for _, p := range ps {
		if p.LocalStock > 0 {
			out = append(out, p)
		}
	}
	return out
}

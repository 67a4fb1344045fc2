// Package routes presents an account manager's daily visit route.
package routes

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/model"
)

const dateLayout = "2006-01-02"

// Source fetches routes. *api.RoutesAPI satisfies it.
type Source interface {
	ForDay(ctx context.Context, managerID, date string) (*model.Route, error)
}

type DayPlan struct {
	Route  model.Route
	Visits []model.RouteVisit
}

// Load fetches the route of managerID for day with visits in route order.
func Load(ctx context.Context, src Source, managerID string, day time.Time) (*DayPlan, error) {
	if managerID == "" {
		return nil, errors.New("load route: manager id is required")
	}
	r, err := src.ForDay(ctx, managerID, day.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("load route: %w", err)
	}
	return &DayPlan{Route: *r, Visits: Sorted(r.Visits)}, nil
}

// Sorted returns visits ordered by orden_en_ruta; ties keep input order.
func Sorted(visits []model.RouteVisit) []model.RouteVisit {
	out := slices.Clone(visits)
	slices.SortStableFunc(out, func(a, b model.RouteVisit) int {
		return a.Order - b.Order
	})
	return out
}

// CountByPriority tallies visits per priority level.
func (p *DayPlan) CountByPriority() map[string]int {
	counts := map[string]int{
		enum.VisitPriorityHigh:   0,
		enum.VisitPriorityMedium: 0,
		enum.VisitPriorityLow:    0,
	}
	for _, v := range p.Visits {
		counts[v.Priority]++
	}
	return counts
}

// FormatDuration renders minutes as "2h 30min" (short) or
// "2 hours 30 minutes" (long).
func FormatDuration(minutes int, short bool) string {
	if minutes <= 0 {
		if short {
			return "0min"
		}
		return "0 minutes"
	}
	h, m := minutes/60, minutes%60
	if short {
		switch {
		case h == 0:
			return fmt.Sprintf("%dmin", m)
		case m == 0:
			return fmt.Sprintf("%dh", h)
		}
		return fmt.Sprintf("%dh %dmin", h, m)
	}

	hours := plural(h, "hour")
	mins := plural(m, "minute")
	switch {
	case h == 0:
		return mins
	case m == 0:
		return hours
	}
	return hours + " " + mins
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// FormatHour turns "HH:MM[:SS]" into a 12-hour clock, "8:00 AM". Unparseable
// input is returned as is.
func FormatHour(hhmmss string) string {
	if hhmmss == "" {
		return "N/A"
	}
	parts := strings.Split(hhmmss, ":")
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return hhmmss
	}
	minute := "00"
	if len(parts) > 1 && parts[1] != "" {
		minute = parts[1]
	}
	period := "AM"
	if hour >= 12 {
		period = "PM"
	}
	h12 := hour % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%s %s", h12, minute, period)
}

// ParseDay reads a YYYY-MM-DD date in now's location. An empty string is
// now.
func ParseDay(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	return t, nil
}

// Package schedule implements the two arrival query paths over the static
// timetable: the rolling-window merge that spans a service-day boundary, and
// the reconciliation of live estimates against scheduled arrivals.
package schedule

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/carlosgalves/porto-transport-api/internal/domain"
)

// ArrivalSource supplies scheduled arrivals joined with their trips.
// Implemented by store.ScheduleStore.
type ArrivalSource interface {
	ArrivalsForStop(ctx context.Context, stopID, routeID string, serviceIDs []string) ([]domain.StopArrival, error)
	ArrivalPage(ctx context.Context, stopID, routeID, serviceID string, offset, limit int) ([]domain.StopArrival, int, error)
}

// CalendarResolver maps a date to its service day.
type CalendarResolver interface {
	CurrentServiceID(ctx context.Context, date time.Time) (string, error)
}

type Merger struct {
	resolver CalendarResolver
	arrivals ArrivalSource
}

func NewMerger(resolver CalendarResolver, arrivals ArrivalSource) *Merger {
	return &Merger{resolver: resolver, arrivals: arrivals}
}

// ListWindowed returns arrivals at a stop whose absolute timestamp falls
// within [windowStart, windowEnd], time-ordered and paginated in memory.
//
// The window normally spans two calendar dates, each resolving to its own
// service day. Every schedule row is expanded once per date its service day
// covers inside the window, so a row near the boundary can legitimately
// appear twice (e.g. a 00:30 arrival inside a 23:00-to-23:00 window).
// Pagination must therefore happen after expansion, never by database row
// offset; total counts the expanded sequence.
//
// Fails with domain.ErrNoServiceDay when the window's start date resolves to
// no service day. An unresolvable end date only narrows the result.
func (m *Merger) ListWindowed(ctx context.Context, stopID, routeID, serviceID string, windowStart, windowEnd time.Time, page, size int) ([]domain.StopArrival, int, error) {
	todayID, err := m.resolver.CurrentServiceID(ctx, windowStart)
	if err != nil {
		return nil, 0, err
	}

	serviceDates := map[string][]time.Time{todayID: {windowStart}}
	tomorrowID, err := m.resolver.CurrentServiceID(ctx, windowEnd)
	if err != nil && !errors.Is(err, domain.ErrNoServiceDay) {
		return nil, 0, err
	}
	if err == nil {
		serviceDates[tomorrowID] = append(serviceDates[tomorrowID], windowEnd)
	}

	// An explicit service filter narrows the resolved set; a service not
	// running inside the window yields an empty result, not an error.
	if serviceID != "" {
		dates, ok := serviceDates[serviceID]
		serviceDates = map[string][]time.Time{}
		if ok {
			serviceDates[serviceID] = dates
		}
	}

	serviceIDs := make([]string, 0, len(serviceDates))
	for id := range serviceDates {
		serviceIDs = append(serviceIDs, id)
	}
	sort.Strings(serviceIDs)

	arrivals, err := m.arrivals.ArrivalsForStop(ctx, stopID, routeID, serviceIDs)
	if err != nil {
		return nil, 0, err
	}

	type candidate struct {
		at      time.Time
		arrival domain.StopArrival
	}
	var candidates []candidate
	for _, a := range arrivals {
		for _, d := range serviceDates[a.Trip.ServiceID] {
			at := a.ArrivalTime.On(d)
			if at.Before(windowStart) || at.After(windowEnd) {
				continue
			}
			candidates = append(candidates, candidate{at: at, arrival: a})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].at.Before(candidates[j].at)
	})

	total := len(candidates)
	start := page * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	result := make([]domain.StopArrival, 0, end-start)
	for _, c := range candidates[start:end] {
		result = append(result, c.arrival)
	}
	return result, total, nil
}

// ListAll is the non-windowed mode: filtered, schedule-time-ordered arrivals
// paged by database offset/limit, with no cross-date duplication. It never
// consults the calendar and so never fails on calendar grounds.
func (m *Merger) ListAll(ctx context.Context, stopID, routeID, serviceID string, page, size int) ([]domain.StopArrival, int, error) {
	return m.arrivals.ArrivalPage(ctx, stopID, routeID, serviceID, page*size, size)
}

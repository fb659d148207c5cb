// Package calendar decides which static service day applies on a given
// calendar date.
package calendar

import (
	"context"
	"time"

	"github.com/carlosgalves/porto-transport-api/internal/domain"
)

// ServiceDaySource supplies the full service day set. Implemented by
// store.ScheduleStore.
type ServiceDaySource interface {
	ServiceDays(ctx context.Context) ([]domain.ServiceDay, error)
}

type Resolver struct {
	src ServiceDaySource
}

func NewResolver(src ServiceDaySource) *Resolver {
	return &Resolver{src: src}
}

// CurrentServiceID resolves the service day applying on the given date.
//
// A service day is a candidate iff its day map flags the date's weekday
// (Monday=0..Sunday=6). The start_date/end_date validity range is
// intentionally ignored: only the weekday map is consulted, mirroring how the
// upstream feed is actually published (see DESIGN.md, flagged for product
// review). Among candidates the one with the latest start_date wins; a tie on
// start_date is broken by the smaller service_id so resolution stays
// deterministic across runs.
//
// Returns domain.ErrNoServiceDay when no day map covers the weekday.
func (r *Resolver) CurrentServiceID(ctx context.Context, date time.Time) (string, error) {
	days, err := r.src.ServiceDays(ctx)
	if err != nil {
		return "", err
	}

	weekday := domain.MondayWeekday(date)

	var best *domain.ServiceDay
	for i := range days {
		sd := &days[i]
		if !sd.DayMap.On(weekday) {
			continue
		}
		if best == nil || sd.StartDate.After(best.StartDate) ||
			(sd.StartDate.Equal(best.StartDate) && sd.ServiceID < best.ServiceID) {
			best = sd
		}
	}
	if best == nil {
		return "", domain.ErrNoServiceDay
	}
	return best.ServiceID, nil
}

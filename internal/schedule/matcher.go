package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/carlosgalves/porto-transport-api/internal/domain"
)

// matchToleranceSeconds is the widest schedule deviation still accepted as
// the same trip. Anything further apart stays unmatched rather than being
// forced onto the nearest trip.
const matchToleranceSeconds = 60

// CandidateSource supplies the arrivals a live estimate can be matched
// against. Implemented by store.ScheduleStore.
type CandidateSource interface {
	MatchCandidates(ctx context.Context, stopID, routeID string, directionID int, serviceID string) ([]domain.StopArrival, error)
}

// Matcher recovers the trip number and stop sequence the realtime feed
// omits, by nearest-time matching against the static schedule.
type Matcher struct {
	candidates CandidateSource
	logger     *slog.Logger
}

func NewMatcher(candidates CandidateSource, logger *slog.Logger) *Matcher {
	return &Matcher{candidates: candidates, logger: logger.With("component", "matcher")}
}

// Match is the recovered trip identity.
type Match struct {
	TripNumber   string
	StopSequence int
}

// Reconcile finds the scheduled arrival closest in time to the estimate's
// back-computed schedule slot (realtime arrival minus reported delay, clock
// arithmetic wrapping within the day). A match is only accepted within
// matchToleranceSeconds; ok is false when the inputs are incomplete or no
// candidate is close enough.
//
// Estimates are matched one at a time. Two simultaneous estimates can claim
// the same scheduled trip; that is a known limitation of the upstream data,
// kept as-is.
func (m *Matcher) Reconcile(ctx context.Context, est domain.RealtimeEstimate) (Match, bool, error) {
	if est.ArrivalTime == nil || est.DelayMinutes == nil {
		return Match{}, false, nil
	}
	scheduled := est.ArrivalTime.SubMinutes(*est.DelayMinutes)

	candidates, err := m.candidates.MatchCandidates(ctx, est.StopID, est.RouteID, est.DirectionID, est.ServiceID)
	if err != nil {
		return Match{}, false, err
	}

	best := Match{}
	found := false
	minDiff := matchToleranceSeconds + 1
	for _, c := range candidates {
		diff := c.ArrivalTime.DiffSeconds(scheduled)
		if diff <= matchToleranceSeconds && diff < minDiff {
			minDiff = diff
			best = Match{TripNumber: c.Trip.Number, StopSequence: *c.Stop.Sequence}
			found = true
		}
	}
	return best, found, nil
}

// ReconcileAll builds the caller-facing arrival list for one stop: each
// estimate annotated with whatever identity reconciliation recovered, sorted
// by minutes-to-arrival then estimated time, unknowns last.
func (m *Matcher) ReconcileAll(ctx context.Context, ests []domain.RealtimeEstimate) ([]domain.RealtimeArrival, error) {
	arrivals := make([]domain.RealtimeArrival, 0, len(ests))
	for _, est := range ests {
		var scheduledTime *domain.TimeOfDay
		if est.ArrivalTime != nil && est.DelayMinutes != nil {
			t := est.ArrivalTime.SubMinutes(*est.DelayMinutes)
			scheduledTime = &t
		}

		tripNumber := ""
		var stopSequence *int
		match, ok, err := m.Reconcile(ctx, est)
		if err != nil {
			return nil, fmt.Errorf("reconcile stop %s: %w", est.StopID, err)
		}
		if ok {
			tripNumber = match.TripNumber
			seq := match.StopSequence
			stopSequence = &seq
		} else if scheduledTime != nil {
			m.logger.DebugContext(ctx, "no schedule match for estimate",
				"stop_id", est.StopID, "route_id", est.RouteID, "vehicle_id", est.VehicleID)
		}

		arrivals = append(arrivals, domain.RealtimeArrival{
			VehicleID: est.VehicleID,
			Trip: domain.TripRef{
				ID:          fmt.Sprintf("%s_%d_%s_%s", est.RouteID, est.DirectionID, est.ServiceID, tripNumber),
				RouteID:     est.RouteID,
				DirectionID: est.DirectionID,
				ServiceID:   est.ServiceID,
				Number:      tripNumber,
				Headsign:    est.TripHeadsign,
			},
			Stop:                 domain.StopRef{ID: est.StopID, Sequence: stopSequence},
			RealtimeArrivalTime:  est.ArrivalTime,
			ScheduledArrivalTime: scheduledTime,
			ArrivalMinutes:       est.ArrivalMinutes,
			DelayMinutes:         est.DelayMinutes,
			Status:               est.Status,
			LastUpdated:          est.LastUpdated,
		})
	}

	sort.SliceStable(arrivals, func(i, j int) bool {
		mi, mj := arrivals[i].ArrivalMinutes, arrivals[j].ArrivalMinutes
		switch {
		case mi != nil && mj != nil && *mi != *mj:
			return *mi < *mj
		case mi != nil && mj == nil:
			return true
		case mi == nil && mj != nil:
			return false
		}
		ti, tj := arrivals[i].RealtimeArrivalTime, arrivals[j].RealtimeArrivalTime
		switch {
		case ti != nil && tj != nil:
			return *ti < *tj
		case ti != nil:
			return true
		default:
			return false
		}
	})
	return arrivals, nil
}

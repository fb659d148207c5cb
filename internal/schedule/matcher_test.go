package schedule

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carlosgalves/porto-transport-api/internal/domain"
)

type fakeCandidates struct {
	candidates []domain.StopArrival
	err        error
	calls      int
}

func (f *fakeCandidates) MatchCandidates(ctx context.Context, stopID, routeID string, directionID int, serviceID string) ([]domain.StopArrival, error) {
	f.calls++
	return f.candidates, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func candidate(number string, seq int, at domain.TimeOfDay) domain.StopArrival {
	return domain.StopArrival{
		Trip:        domain.TripRef{Number: number},
		Stop:        domain.StopRef{ID: "STOP1", Sequence: &seq},
		ArrivalTime: at,
	}
}

func estimate(arrival domain.TimeOfDay, delayMinutes float64) domain.RealtimeEstimate {
	at := arrival
	return domain.RealtimeEstimate{
		VehicleID:   "3001",
		StopID:      "STOP1",
		RouteID:     "600",
		DirectionID: 0,
		ServiceID:   "U",
		ArrivalTime: &at,
		DelayMinutes: func() *float64 {
			d := delayMinutes
			return &d
		}(),
	}
}

func TestReconcileWithinTolerance(t *testing.T) {
	// Realtime 10:05 with 5 minutes delay back-computes to a 10:00:00
	// schedule slot. 50 seconds away matches, 65 seconds does not.
	src := &fakeCandidates{candidates: []domain.StopArrival{
		candidate("T7", 12, domain.NewTimeOfDay(10, 0, 50)),
	}}
	m := NewMatcher(src, testLogger())

	match, ok, err := m.Reconcile(context.Background(), estimate(domain.NewTimeOfDay(10, 5, 0), 5))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "T7", match.TripNumber)
	assert.Equal(t, 12, match.StopSequence)

	src.candidates = []domain.StopArrival{
		candidate("T8", 3, domain.NewTimeOfDay(10, 1, 5)),
	}
	_, ok, err = m.Reconcile(context.Background(), estimate(domain.NewTimeOfDay(10, 5, 0), 5))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReconcilePicksClosestCandidate(t *testing.T) {
	src := &fakeCandidates{candidates: []domain.StopArrival{
		candidate("FAR", 1, domain.NewTimeOfDay(10, 0, 45)),
		candidate("NEAR", 2, domain.NewTimeOfDay(10, 0, 30)),
	}}
	m := NewMatcher(src, testLogger())

	match, ok, err := m.Reconcile(context.Background(), estimate(domain.NewTimeOfDay(10, 5, 0), 5))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "NEAR", match.TripNumber)
}

func TestReconcileSkipsIncompleteEstimates(t *testing.T) {
	src := &fakeCandidates{}
	m := NewMatcher(src, testLogger())

	est := estimate(domain.NewTimeOfDay(10, 5, 0), 5)
	est.ArrivalTime = nil
	_, ok, err := m.Reconcile(context.Background(), est)
	require.NoError(t, err)
	assert.False(t, ok)

	est = estimate(domain.NewTimeOfDay(10, 5, 0), 5)
	est.DelayMinutes = nil
	_, ok, err = m.Reconcile(context.Background(), est)
	require.NoError(t, err)
	assert.False(t, ok)

	// Incomplete estimates never hit the store.
	assert.Zero(t, src.calls)
}

func TestReconcileWrapsAroundMidnight(t *testing.T) {
	// 00:02 with 10 minutes delay back-computes to 23:52 the previous day.
	src := &fakeCandidates{candidates: []domain.StopArrival{
		candidate("LATE", 4, domain.NewTimeOfDay(23, 52, 30)),
	}}
	m := NewMatcher(src, testLogger())

	match, ok, err := m.Reconcile(context.Background(), estimate(domain.NewTimeOfDay(0, 2, 0), 10))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "LATE", match.TripNumber)
}

func TestReconcileAll(t *testing.T) {
	src := &fakeCandidates{candidates: []domain.StopArrival{
		candidate("T7", 12, domain.NewTimeOfDay(10, 0, 0)),
	}}
	m := NewMatcher(src, testLogger())

	matched := estimate(domain.NewTimeOfDay(10, 5, 0), 5)
	five := 5.0
	matched.ArrivalMinutes = &five

	unmatched := estimate(domain.NewTimeOfDay(14, 0, 0), 0)
	one := 1.0
	unmatched.ArrivalMinutes = &one
	unmatched.VehicleID = "3002"

	noData := domain.RealtimeEstimate{VehicleID: "3003", StopID: "STOP1", RouteID: "600", ServiceID: "U"}

	arrivals, err := m.ReconcileAll(context.Background(), []domain.RealtimeEstimate{matched, noData, unmatched})
	require.NoError(t, err)
	require.Len(t, arrivals, 3)

	// Sorted by minutes to arrival, estimates without one last.
	assert.Equal(t, "3002", arrivals[0].VehicleID)
	assert.Equal(t, "3001", arrivals[1].VehicleID)
	assert.Equal(t, "3003", arrivals[2].VehicleID)

	// The matched estimate carries the recovered trip number in its id.
	assert.Equal(t, "600_0_U_T7", arrivals[1].Trip.ID)
	assert.Equal(t, "T7", arrivals[1].Trip.Number)
	require.NotNil(t, arrivals[1].Stop.Sequence)
	assert.Equal(t, 12, *arrivals[1].Stop.Sequence)

	// The unmatched one keeps an empty trip number slot.
	assert.Equal(t, "600_0_U_", arrivals[0].Trip.ID)
	assert.Empty(t, arrivals[0].Trip.Number)
	assert.Nil(t, arrivals[0].Stop.Sequence)
}

func TestReconcileAllPropagatesStoreError(t *testing.T) {
	srcErr := errors.New("db down")
	m := NewMatcher(&fakeCandidates{err: srcErr}, testLogger())

	_, err := m.ReconcileAll(context.Background(), []domain.RealtimeEstimate{
		estimate(domain.NewTimeOfDay(10, 0, 0), 1),
	})
	assert.ErrorIs(t, err, srcErr)
}

package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carlosgalves/porto-transport-api/internal/domain"
)

type fakeResolver struct {
	byDate map[string]string
	err    error
}

func (f *fakeResolver) CurrentServiceID(ctx context.Context, date time.Time) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	id, ok := f.byDate[date.Format("2006-01-02")]
	if !ok {
		return "", domain.ErrNoServiceDay
	}
	return id, nil
}

type fakeArrivals struct {
	arrivals       []domain.StopArrival
	err            error
	gotServiceIDs  []string
	pageOffset     int
	pageLimit      int
	pageTotal      int
	pageArrivals   []domain.StopArrival
	pageCalledWith string
}

func (f *fakeArrivals) ArrivalsForStop(ctx context.Context, stopID, routeID string, serviceIDs []string) ([]domain.StopArrival, error) {
	f.gotServiceIDs = serviceIDs
	return f.arrivals, f.err
}

func (f *fakeArrivals) ArrivalPage(ctx context.Context, stopID, routeID, serviceID string, offset, limit int) ([]domain.StopArrival, int, error) {
	f.pageCalledWith = serviceID
	f.pageOffset = offset
	f.pageLimit = limit
	return f.pageArrivals, f.pageTotal, f.err
}

func arrival(serviceID string, at domain.TimeOfDay) domain.StopArrival {
	return domain.StopArrival{
		Trip:        domain.TripRef{ID: "600_0_" + serviceID + "_T1", ServiceID: serviceID},
		ArrivalTime: at,
	}
}

var (
	day1 = time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)
)

func TestListWindowedOrdersAcrossMidnight(t *testing.T) {
	resolver := &fakeResolver{byDate: map[string]string{
		"2025-03-12": "U",
		"2025-03-13": "S",
	}}
	src := &fakeArrivals{arrivals: []domain.StopArrival{
		arrival("S", domain.NewTimeOfDay(0, 30, 0)),
		arrival("U", domain.NewTimeOfDay(23, 30, 0)),
	}}
	m := NewMerger(resolver, src)

	windowStart := day1.Add(23 * time.Hour)
	windowEnd := day2.Add(23 * time.Hour)

	got, total, err := m.ListWindowed(context.Background(), "STOP1", "", "", windowStart, windowEnd, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, got, 2)

	// 23:30 on day1 sorts before 00:30 on day2 even though its clock time
	// is later.
	assert.Equal(t, "U", got[0].Trip.ServiceID)
	assert.Equal(t, "S", got[1].Trip.ServiceID)

	assert.ElementsMatch(t, []string{"S", "U"}, src.gotServiceIDs)
}

func TestListWindowedDuplicatesAcrossBoundary(t *testing.T) {
	// Same service id resolves on both dates, so a row qualifying under
	// each date appears twice.
	resolver := &fakeResolver{byDate: map[string]string{
		"2025-03-12": "U",
		"2025-03-13": "U",
	}}
	src := &fakeArrivals{arrivals: []domain.StopArrival{
		arrival("U", domain.NewTimeOfDay(0, 30, 0)),
	}}
	m := NewMerger(resolver, src)

	got, total, err := m.ListWindowed(context.Background(), "STOP1", "", "", day1, day2.Add(23*time.Hour), 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, got, 2)
	assert.Equal(t, got[0].Trip.ID, got[1].Trip.ID)
}

func TestListWindowedBoundsInclusive(t *testing.T) {
	resolver := &fakeResolver{byDate: map[string]string{
		"2025-03-12": "U",
		"2025-03-13": "S",
	}}
	src := &fakeArrivals{arrivals: []domain.StopArrival{
		arrival("U", domain.NewTimeOfDay(23, 0, 0)),
		arrival("U", domain.NewTimeOfDay(22, 59, 59)),
		arrival("S", domain.NewTimeOfDay(23, 0, 0)),
		arrival("S", domain.NewTimeOfDay(23, 0, 1)),
	}}
	m := NewMerger(resolver, src)

	windowStart := day1.Add(23 * time.Hour)
	windowEnd := day2.Add(23 * time.Hour)

	got, total, err := m.ListWindowed(context.Background(), "STOP1", "", "", windowStart, windowEnd, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, got, 2)
	assert.Equal(t, domain.NewTimeOfDay(23, 0, 0), got[0].ArrivalTime)
	assert.Equal(t, "U", got[0].Trip.ServiceID)
	assert.Equal(t, "S", got[1].Trip.ServiceID)
}

func TestListWindowedPagination(t *testing.T) {
	resolver := &fakeResolver{byDate: map[string]string{
		"2025-03-12": "U",
	}}
	src := &fakeArrivals{arrivals: []domain.StopArrival{
		arrival("U", domain.NewTimeOfDay(10, 0, 0)),
		arrival("U", domain.NewTimeOfDay(11, 0, 0)),
		arrival("U", domain.NewTimeOfDay(12, 0, 0)),
	}}
	m := NewMerger(resolver, src)

	got, total, err := m.ListWindowed(context.Background(), "STOP1", "", "", day1, day1.Add(23*time.Hour), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, got, 1)
	assert.Equal(t, domain.NewTimeOfDay(12, 0, 0), got[0].ArrivalTime)

	// A page past the end is empty but keeps the total.
	got, total, err = m.ListWindowed(context.Background(), "STOP1", "", "", day1, day1.Add(23*time.Hour), 5, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Empty(t, got)
}

func TestListWindowedServiceFilter(t *testing.T) {
	resolver := &fakeResolver{byDate: map[string]string{
		"2025-03-12": "U",
		"2025-03-13": "S",
	}}
	src := &fakeArrivals{arrivals: []domain.StopArrival{
		arrival("S", domain.NewTimeOfDay(0, 30, 0)),
	}}
	m := NewMerger(resolver, src)

	windowStart := day1.Add(23 * time.Hour)
	windowEnd := day2.Add(23 * time.Hour)

	got, total, err := m.ListWindowed(context.Background(), "STOP1", "", "S", windowStart, windowEnd, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, got, 1)
	assert.Equal(t, []string{"S"}, src.gotServiceIDs)

	// A service not running inside the window yields an empty result.
	src.arrivals = nil
	got, total, err = m.ListWindowed(context.Background(), "STOP1", "", "D", windowStart, windowEnd, 0, 100)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, got)
}

func TestListWindowedNoServiceToday(t *testing.T) {
	resolver := &fakeResolver{byDate: map[string]string{
		"2025-03-13": "S",
	}}
	m := NewMerger(resolver, &fakeArrivals{})

	_, _, err := m.ListWindowed(context.Background(), "STOP1", "", "", day1, day2, 0, 100)
	assert.ErrorIs(t, err, domain.ErrNoServiceDay)
}

func TestListWindowedToleratesNoServiceTomorrow(t *testing.T) {
	resolver := &fakeResolver{byDate: map[string]string{
		"2025-03-12": "U",
	}}
	src := &fakeArrivals{arrivals: []domain.StopArrival{
		arrival("U", domain.NewTimeOfDay(10, 0, 0)),
	}}
	m := NewMerger(resolver, src)

	got, total, err := m.ListWindowed(context.Background(), "STOP1", "", "", day1, day2, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, got, 1)
	assert.Equal(t, []string{"U"}, src.gotServiceIDs)
}

func TestListWindowedResolverError(t *testing.T) {
	srcErr := errors.New("db down")
	m := NewMerger(&fakeResolver{err: srcErr}, &fakeArrivals{})

	_, _, err := m.ListWindowed(context.Background(), "STOP1", "", "", day1, day2, 0, 100)
	assert.ErrorIs(t, err, srcErr)
}

func TestListAllUsesDatabasePaging(t *testing.T) {
	src := &fakeArrivals{pageTotal: 42}
	m := NewMerger(&fakeResolver{}, src)

	_, total, err := m.ListAll(context.Background(), "STOP1", "600", "U", 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 42, total)
	assert.Equal(t, 20, src.pageOffset)
	assert.Equal(t, 10, src.pageLimit)
	assert.Equal(t, "U", src.pageCalledWith)
}

package stcp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carlosgalves/porto-transport-api/internal/domain"
)

func TestParseTripID(t *testing.T) {
	tests := []struct {
		name    string
		tripID  string
		want    TripIdentity
		wantErr string
	}{
		{
			name:   "outbound weekday",
			tripID: "600_0_1|194|D1|T13|N6",
			want:   TripIdentity{RouteID: "600", DirectionID: 0, ServiceID: "U"},
		},
		{
			name:   "return saturday",
			tripID: "205_0_2|88|D2|T4",
			want:   TripIdentity{RouteID: "205", DirectionID: 1, ServiceID: "S"},
		},
		{
			name:   "sunday",
			tripID: "901_0_1|12|D3",
			want:   TripIdentity{RouteID: "901", DirectionID: 0, ServiceID: "D"},
		},
		{
			name:   "unmapped D token is skipped, later one counts",
			tripID: "600_0_1|D9|D2",
			want:   TripIdentity{RouteID: "600", DirectionID: 0, ServiceID: "S"},
		},
		{
			name:    "invalid direction code",
			tripID:  "600_0_3|194|D1",
			wantErr: "invalid direction code",
		},
		{
			name:    "too few underscore fields",
			tripID:  "600_0|D1",
			wantErr: "invalid trip_id format",
		},
		{
			name:    "no service token",
			tripID:  "600_0_1|194|T13",
			wantErr: "no service code",
		},
		{
			name:    "empty",
			tripID:  "",
			wantErr: "invalid trip_id format",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTripID(tt.tripID)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseArrival(t *testing.T) {
	updated := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	minutes := 4.5
	delay := 2.0

	got, err := parseArrival(apiArrival{
		TripID:               "600_0_1|194|D1|T13",
		VehicleID:            "3001",
		TripHeadsign:         "ALIADOS",
		EstimatedArrivalTime: "2025-03-12T10:04:30Z",
		ArrivalMinutes:       &minutes,
		DelayMinutes:         &delay,
		Status:               "ON_ROUTE",
	}, "STOP1", updated)
	require.NoError(t, err)

	assert.Equal(t, "3001", got.VehicleID)
	assert.Equal(t, "STOP1", got.StopID)
	assert.Equal(t, "600", got.RouteID)
	assert.Equal(t, 0, got.DirectionID)
	assert.Equal(t, "U", got.ServiceID)
	assert.Equal(t, "ALIADOS", got.TripHeadsign)
	require.NotNil(t, got.ArrivalTime)
	assert.Equal(t, domain.NewTimeOfDay(10, 4, 30), *got.ArrivalTime)
	assert.Equal(t, &minutes, got.ArrivalMinutes)
	assert.Equal(t, &delay, got.DelayMinutes)
	assert.Equal(t, updated, got.LastUpdated)
}

func TestParseArrivalMissingFields(t *testing.T) {
	_, err := parseArrival(apiArrival{}, "STOP1", time.Now())
	assert.ErrorContains(t, err, "missing trip_id")

	// An unparsable estimated time leaves the arrival time unset rather
	// than failing the record.
	got, err := parseArrival(apiArrival{
		TripID:               "600_0_1|D1",
		EstimatedArrivalTime: "in five minutes",
	}, "STOP1", time.Now())
	require.NoError(t, err)
	assert.Nil(t, got.ArrivalTime)
}

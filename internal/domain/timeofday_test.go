package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    TimeOfDay
		wantErr bool
	}{
		{name: "full", input: "10:05:30", want: NewTimeOfDay(10, 5, 30)},
		{name: "no seconds", input: "10:05", want: NewTimeOfDay(10, 5, 0)},
		{name: "single digit hour", input: "9:15:00", want: NewTimeOfDay(9, 15, 0)},
		{name: "midnight", input: "00:00:00", want: 0},
		{name: "after midnight trip wraps", input: "25:30:00", want: NewTimeOfDay(1, 30, 0)},
		{name: "24 wraps to zero", input: "24:00:00", want: 0},
		{name: "minutes out of range", input: "10:63:00", wantErr: true},
		{name: "garbage", input: "abc", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeOfDayString(t *testing.T) {
	assert.Equal(t, "09:05:07", NewTimeOfDay(9, 5, 7).String())
	assert.Equal(t, "00:00:00", TimeOfDay(0).String())
}

func TestTimeOfDayOn(t *testing.T) {
	d := time.Date(2025, 3, 10, 18, 44, 1, 0, time.UTC)
	got := NewTimeOfDay(7, 30, 0).On(d)
	assert.Equal(t, time.Date(2025, 3, 10, 7, 30, 0, 0, time.UTC), got)
}

func TestTimeOfDaySubMinutes(t *testing.T) {
	tests := []struct {
		name    string
		start   TimeOfDay
		minutes float64
		want    TimeOfDay
	}{
		{name: "whole minutes", start: NewTimeOfDay(10, 5, 0), minutes: 5, want: NewTimeOfDay(10, 0, 0)},
		{name: "fractional minutes round to seconds", start: NewTimeOfDay(10, 0, 0), minutes: 0.5, want: NewTimeOfDay(9, 59, 30)},
		{name: "wraps below midnight", start: NewTimeOfDay(0, 2, 0), minutes: 10, want: NewTimeOfDay(23, 54, 0)},
		{name: "negative delay adds", start: NewTimeOfDay(10, 0, 0), minutes: -3, want: NewTimeOfDay(10, 3, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.start.SubMinutes(tt.minutes))
		})
	}
}

func TestTimeOfDayDiffSeconds(t *testing.T) {
	a := NewTimeOfDay(10, 0, 10)
	b := NewTimeOfDay(10, 0, 0)
	assert.Equal(t, 10, a.DiffSeconds(b))
	assert.Equal(t, 10, b.DiffSeconds(a))

	// No wrap around midnight: 23:59 and 00:01 are almost a day apart.
	late := NewTimeOfDay(23, 59, 0)
	early := NewTimeOfDay(0, 1, 0)
	assert.Equal(t, 86280, late.DiffSeconds(early))
}

func TestTimeOfDayJSON(t *testing.T) {
	data, err := json.Marshal(NewTimeOfDay(8, 45, 0))
	require.NoError(t, err)
	assert.Equal(t, `"08:45:00"`, string(data))

	var parsed TimeOfDay
	require.NoError(t, json.Unmarshal([]byte(`"23:10:05"`), &parsed))
	assert.Equal(t, NewTimeOfDay(23, 10, 5), parsed)

	assert.Error(t, json.Unmarshal([]byte(`"nope"`), &parsed))
}

func TestMondayWeekday(t *testing.T) {
	// 2025-03-10 is a Monday.
	monday := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, MondayWeekday(monday))
	assert.Equal(t, 6, MondayWeekday(monday.AddDate(0, 0, 6)))
}

func TestServiceCodeForType(t *testing.T) {
	code, ok := ServiceCodeForType(1)
	assert.True(t, ok)
	assert.Equal(t, "U", code)

	_, ok = ServiceCodeForType(9)
	assert.False(t, ok)
}

package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventPurchasable(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	price := int64(1500)

	futureDate, err := ParseEventDate("15-09-2026")
	require.NoError(t, err)
	pastDate, err := ParseEventDate("01-08-2026")
	require.NoError(t, err)
	sameDay, err := ParseEventDate("30-08-2026")
	require.NoError(t, err)

	tests := []struct {
		name     string
		event    *Event
		expected bool
	}{
		{
			name:     "nil event",
			event:    nil,
			expected: false,
		},
		{
			name:     "active future event with price",
			event:    &Event{Price: &price, Active: true, Date: futureDate},
			expected: true,
		},
		{
			name:     "no price",
			event:    &Event{Active: true, Date: futureDate},
			expected: false,
		},
		{
			name:     "inactive",
			event:    &Event{Price: &price, Active: false, Date: futureDate},
			expected: false,
		},
		{
			name:     "past date",
			event:    &Event{Price: &price, Active: true, Date: pastDate},
			expected: false,
		},
		{
			name:     "event day itself still sells",
			event:    &Event{Price: &price, Active: true, Date: sameDay},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.event.Purchasable(now))
		})
	}
}

func TestEventDateRoundTrip(t *testing.T) {
	d, err := ParseEventDate("02-01-2006")
	require.NoError(t, err)
	assert.Equal(t, "02-01-2006", d.String())

	_, err = ParseEventDate("2006-01-02")
	assert.Error(t, err)
}

package services

import (
	"testing"
	"time"

	"subsidy-crm/crm-service/models"

	"github.com/stretchr/testify/assert"
)

func TestTemperature(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	hotDays, warmDays := 3, 10

	cases := []struct {
		name string
		last time.Time
		want models.LeadTemperature
	}{
		{"activity just now", now, models.LeadHot},
		{"inside hot window", now.Add(-2 * 24 * time.Hour), models.LeadHot},
		{"exactly on hot boundary", now.Add(-3 * 24 * time.Hour), models.LeadHot},
		{"inside warm window", now.Add(-5 * 24 * time.Hour), models.LeadWarm},
		{"exactly on warm boundary", now.Add(-10 * 24 * time.Hour), models.LeadWarm},
		{"past warm window", now.Add(-11 * 24 * time.Hour), models.LeadCold},
		{"very stale", now.Add(-90 * 24 * time.Hour), models.LeadCold},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Temperature(tc.last, now, hotDays, warmDays))
		})
	}
}

func TestTemperatureHonorsConfiguredThresholds(t *testing.T) {
	now := time.Now()
	last := now.Add(-4 * 24 * time.Hour)

	assert.Equal(t, models.LeadWarm, Temperature(last, now, 3, 10))
	assert.Equal(t, models.LeadHot, Temperature(last, now, 7, 14))
	assert.Equal(t, models.LeadCold, Temperature(last, now, 1, 2))
}

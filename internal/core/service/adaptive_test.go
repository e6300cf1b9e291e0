package service

import (
	"testing"
	"time"

	"lumen2mqtt/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func adaptiveTestConfig() config.AdaptiveConfig {
	return config.AdaptiveConfig{
		Enable:    true,
		Latitude:  52.52,
		Longitude: 13.405,

		SunriseMin: "06:00",
		SunriseMax: "08:00",
		SunsetMin:  "17:00",
		SunsetMax:  "22:00",

		Default: config.AdaptiveStepConfig{Time: "00:00", Kelvin: 2200, BrightnessPct: 30},
		DayPattern: []config.AdaptiveStepConfig{
			{Time: "sunrise", Kelvin: 3000, BrightnessPct: 60},
			{Time: "12:00", Kelvin: 5500, BrightnessPct: 100},
			{Time: "sunset", Kelvin: 3000, BrightnessPct: 60},
			{Time: "23:00", Kelvin: 2200, BrightnessPct: 30},
		},
	}
}

func mustPlan(t *testing.T, cfg config.AdaptiveConfig, day time.Time) *AdaptivePlan {
	t.Helper()
	plan, err := BuildAdaptivePlan(cfg, day, zap.NewNop())
	require.NoError(t, err)
	return plan
}

func TestPlanAnchorsClamped(t *testing.T) {
	day := time.Date(2024, 6, 21, 10, 0, 0, 0, time.UTC)
	plan := mustPlan(t, adaptiveTestConfig(), day)

	// midsummer Berlin sunrise is before 06:00 local, sunset after 22:00;
	// both must be pulled inside the configured window
	assert.False(t, plan.Sunrise.Before(clockOn(day, 6, 0)))
	assert.False(t, plan.Sunrise.After(clockOn(day, 8, 0)))
	assert.False(t, plan.Sunset.Before(clockOn(day, 17, 0)))
	assert.False(t, plan.Sunset.After(clockOn(day, 22, 0)))
}

func TestTargetInterpolation(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	plan := mustPlan(t, adaptiveTestConfig(), day)

	// before the first step the default target holds
	early := plan.TargetAt(clockOn(day, 0, 0))
	assert.Equal(t, 2200, early.Kelvin)
	assert.Equal(t, 30, early.BrightnessPct)

	// noon step is hit exactly
	noon := plan.TargetAt(clockOn(day, 12, 0))
	assert.Equal(t, 5500, noon.Kelvin)
	assert.Equal(t, 100, noon.BrightnessPct)

	// after the last step the final target holds
	late := plan.TargetAt(clockOn(day, 23, 30))
	assert.Equal(t, 2200, late.Kelvin)
	assert.Equal(t, 30, late.BrightnessPct)

	// between sunrise and noon the target moves monotonically
	mid := plan.TargetAt(plan.Sunrise.Add(clockOn(day, 12, 0).Sub(plan.Sunrise) / 2))
	assert.Greater(t, mid.Kelvin, 3000)
	assert.Less(t, mid.Kelvin, 5500)
	assert.Greater(t, mid.BrightnessPct, 60)
	assert.LessOrEqual(t, mid.BrightnessPct, 100)
}

func TestTargetMidpointValue(t *testing.T) {
	cfg := config.AdaptiveConfig{
		Latitude:  0,
		Longitude: 0,
		Default:   config.AdaptiveStepConfig{Time: "00:00", Kelvin: 2000, BrightnessPct: 0},
		DayPattern: []config.AdaptiveStepConfig{
			{Time: "10:00", Kelvin: 2000, BrightnessPct: 0},
			{Time: "12:00", Kelvin: 4000, BrightnessPct: 100},
		},
	}
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	plan := mustPlan(t, cfg, day)

	mid := plan.TargetAt(clockOn(day, 11, 0))
	assert.Equal(t, 3000, mid.Kelvin)
	assert.Equal(t, 50, mid.BrightnessPct)
}

func TestStepTimeExpressions(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rise := clockOn(day, 7, 0)
	set := clockOn(day, 18, 0)

	at, err := resolveStepTime("sunrise", rise, set, day)
	require.NoError(t, err)
	assert.Equal(t, rise, at)

	at, err = resolveStepTime("sunset-1h", rise, set, day)
	require.NoError(t, err)
	assert.Equal(t, set.Add(-time.Hour), at)

	at, err = resolveStepTime("sunrise+30m", rise, set, day)
	require.NoError(t, err)
	assert.Equal(t, rise.Add(30*time.Minute), at)

	at, err = resolveStepTime("13:45", rise, set, day)
	require.NoError(t, err)
	assert.Equal(t, clockOn(day, 13, 45), at)

	_, err = resolveStepTime("whenever", rise, set, day)
	assert.Error(t, err)
}

func clockOn(day time.Time, h, m int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, day.Location())
}

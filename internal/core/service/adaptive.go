package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"lumen2mqtt/internal/config"

	"github.com/nathan-osman/go-sunrise"
	"go.uber.org/zap"
)

// AdaptiveTarget is the light state adaptive lighting wants at an instant.
type AdaptiveTarget struct {
	Kelvin        int
	BrightnessPct int
}

type planStep struct {
	at     time.Time
	target AdaptiveTarget
}

// AdaptivePlan resolves a configured day pattern against one calendar day:
// the sunrise/sunset anchors are computed for the configured location,
// clamped to their min/max times, and every step becomes a concrete
// timestamp. Targets between steps are linearly interpolated.
type AdaptivePlan struct {
	day     time.Time
	Sunrise time.Time
	Sunset  time.Time
	steps   []planStep
}

// BuildAdaptivePlan computes the plan for the day containing `day`
// (interpreted in local time).
func BuildAdaptivePlan(cfg config.AdaptiveConfig, day time.Time, logger *zap.Logger) (*AdaptivePlan, error) {
	base := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())

	rise, set := sunrise.SunriseSunset(cfg.Latitude, cfg.Longitude, base.Year(), base.Month(), base.Day())
	rise = rise.In(base.Location())
	set = set.In(base.Location())

	rise = clampTime(rise, cfg.SunriseMin, cfg.SunriseMax, base)
	set = clampTime(set, cfg.SunsetMin, cfg.SunsetMax, base)

	logger.Debug("adaptive plan anchors",
		zap.String("sunrise", rise.Format("15:04")),
		zap.String("sunset", set.Format("15:04")))

	plan := &AdaptivePlan{day: base, Sunrise: rise, Sunset: set}

	// default step anchors both ends of the day
	def := cfg.Default
	if def.Time == "" {
		def.Time = "00:00"
	}
	defAt, err := resolveStepTime(def.Time, rise, set, base)
	if err != nil {
		return nil, fmt.Errorf("adaptive default step: %w", err)
	}
	plan.steps = append(plan.steps, planStep{
		at:     defAt,
		target: AdaptiveTarget{Kelvin: def.Kelvin, BrightnessPct: def.BrightnessPct},
	})

	for i, sc := range cfg.DayPattern {
		at, err := resolveStepTime(sc.Time, rise, set, base)
		if err != nil {
			return nil, fmt.Errorf("adaptive day_pattern step %d: %w", i, err)
		}
		plan.steps = append(plan.steps, planStep{
			at:     at,
			target: AdaptiveTarget{Kelvin: sc.Kelvin, BrightnessPct: sc.BrightnessPct},
		})
	}

	sort.Slice(plan.steps, func(i, j int) bool {
		return plan.steps[i].at.Before(plan.steps[j].at)
	})
	return plan, nil
}

// Day returns the calendar day the plan was built for.
func (p *AdaptivePlan) Day() time.Time {
	return p.day
}

// TargetAt interpolates the target state for an instant. Before the first
// step the first target applies; after the last step the last target holds
// until midnight.
func (p *AdaptivePlan) TargetAt(t time.Time) AdaptiveTarget {
	if len(p.steps) == 0 {
		return AdaptiveTarget{}
	}
	if !t.After(p.steps[0].at) {
		return p.steps[0].target
	}
	last := p.steps[len(p.steps)-1]
	if !t.Before(last.at) {
		return last.target
	}

	for i := 1; i < len(p.steps); i++ {
		if t.Before(p.steps[i].at) {
			return interpolate(p.steps[i-1], p.steps[i], t)
		}
	}
	return last.target
}

func interpolate(a, b planStep, t time.Time) AdaptiveTarget {
	span := b.at.Sub(a.at).Seconds()
	if span <= 0 {
		return b.target
	}
	progress := t.Sub(a.at).Seconds() / span

	kelvin := float64(a.target.Kelvin) + float64(b.target.Kelvin-a.target.Kelvin)*progress
	bri := float64(a.target.BrightnessPct) + float64(b.target.BrightnessPct-a.target.BrightnessPct)*progress
	return AdaptiveTarget{
		Kelvin:        int(kelvin + 0.5),
		BrightnessPct: int(bri + 0.5),
	}
}

// resolveStepTime turns a step time expression into a timestamp on the
// plan's day. Accepted forms: "HH:MM", "sunrise", "sunset", and
// "sunrise+30m" / "sunset-1h" style offsets.
func resolveStepTime(expr string, rise, set, base time.Time) (time.Time, error) {
	expr = strings.TrimSpace(strings.ToLower(expr))
	switch {
	case strings.HasPrefix(expr, "sunrise"):
		return applyOffset(rise, strings.TrimPrefix(expr, "sunrise"))
	case strings.HasPrefix(expr, "sunset"):
		return applyOffset(set, strings.TrimPrefix(expr, "sunset"))
	default:
		return clockTime(expr, base)
	}
}

func applyOffset(anchor time.Time, offset string) (time.Time, error) {
	if offset == "" {
		return anchor, nil
	}
	d, err := time.ParseDuration(offset)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid offset %q: %w", offset, err)
	}
	return anchor.Add(d), nil
}

func clockTime(expr string, base time.Time) (time.Time, error) {
	parsed, err := time.Parse("15:04", expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", expr, err)
	}
	return time.Date(base.Year(), base.Month(), base.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, base.Location()), nil
}

func clampTime(t time.Time, minExpr, maxExpr string, base time.Time) time.Time {
	if minExpr != "" {
		if min, err := clockTime(minExpr, base); err == nil && t.Before(min) {
			t = min
		}
	}
	if maxExpr != "" {
		if max, err := clockTime(maxExpr, base); err == nil && t.After(max) {
			t = max
		}
	}
	return t
}

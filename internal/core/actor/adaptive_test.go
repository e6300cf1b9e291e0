package actor

import (
	"testing"
	"time"

	"lumen2mqtt/internal/config"
	"lumen2mqtt/internal/core/domain"
	"lumen2mqtt/internal/util"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAdaptiveActorCommandsAndHonorsOverride(t *testing.T) {
	logger := zap.NewNop()
	cfg := util.LoadTestConfig()
	cfg.Adaptive.Enable = true
	cfg.Adaptive.IntervalMillis = 100
	cfg.Adaptive.DayPattern = []config.AdaptiveStepConfig{
		{Time: "00:00", Kelvin: 2700, BrightnessPct: 40},
		{Time: "23:59", Kelvin: 2700, BrightnessPct: 40},
	}

	as := actor.NewActorSystem()
	var es eventstream.EventStream

	commands := make(chan domain.LightTurnOnRequest, 16)
	lightPID, err := as.Root.SpawnNamed(actor.PropsFromFunc(func(ctx actor.Context) {
		if msg, ok := ctx.Message().(domain.LightTurnOnRequest); ok {
			commands <- msg
			ctx.Respond(domain.LightCommandResponse{})
		}
	}), "fake_lamp")
	require.NoError(t, err)

	adaptivePID, err := as.Root.SpawnNamed(actor.PropsFromProducer(func() actor.Actor {
		return NewAdaptiveLightingActor(&cfg, map[string]*actor.PID{"lamp": lightPID}, &es, logger)
	}), "adaptive_test")
	require.NoError(t, err)
	defer as.Root.Stop(adaptivePID)

	// an off light is never touched
	select {
	case <-commands:
		t.Fatal("adaptive commanded a light with unknown state")
	case <-time.After(300 * time.Millisecond):
	}

	es.Publish(domain.LightStateUpdateEvent{
		LightUpdateEventMixIn: domain.LightUpdateEventMixIn{LightId: "lamp"},
		State:                 domain.LightState{On: true, Brightness: 102, ColorMode: domain.ColorModeBrightness},
	})

	var cmd domain.LightTurnOnRequest
	select {
	case cmd = <-commands:
	case <-time.After(2 * time.Second):
		t.Fatal("adaptive never commanded the enrolled light")
	}
	require.NotNil(t, cmd.Command.BrightnessPct)
	assert.Equal(t, 40, *cmd.Command.BrightnessPct)
	require.NotNil(t, cmd.Command.ColorTempKelvin)
	assert.Equal(t, 2700, *cmd.Command.ColorTempKelvin)

	// someone dials the lamp to full: that is a manual override, ticks stop
	es.Publish(domain.LightStateUpdateEvent{
		LightUpdateEventMixIn: domain.LightUpdateEventMixIn{LightId: "lamp"},
		State:                 domain.LightState{On: true, Brightness: 255, ColorMode: domain.ColorModeBrightness},
	})
	deadline := time.After(300 * time.Millisecond)
drain:
	for {
		select {
		case <-commands:
		case <-deadline:
			break drain
		}
	}
	select {
	case <-commands:
		t.Fatal("adaptive kept commanding an overridden light")
	case <-time.After(400 * time.Millisecond):
	}
}

func TestAdaptiveActorIgnoresInFlightTransition(t *testing.T) {
	logger := zap.NewNop()
	cfg := util.LoadTestConfig()
	cfg.Adaptive.Enable = true
	cfg.Adaptive.IntervalMillis = 100
	cfg.Adaptive.DayPattern = []config.AdaptiveStepConfig{
		{Time: "00:00", Kelvin: 2700, BrightnessPct: 40},
		{Time: "23:59", Kelvin: 2700, BrightnessPct: 40},
	}

	as := actor.NewActorSystem()
	var es eventstream.EventStream

	commands := make(chan domain.LightTurnOnRequest, 16)
	lightPID, err := as.Root.SpawnNamed(actor.PropsFromFunc(func(ctx actor.Context) {
		if msg, ok := ctx.Message().(domain.LightTurnOnRequest); ok {
			commands <- msg
			ctx.Respond(domain.LightCommandResponse{})
		}
	}), "fading_lamp")
	require.NoError(t, err)

	adaptivePID, err := as.Root.SpawnNamed(actor.PropsFromProducer(func() actor.Actor {
		return NewAdaptiveLightingActor(&cfg, map[string]*actor.PID{"lamp": lightPID}, &es, logger)
	}), "adaptive_transition_test")
	require.NoError(t, err)
	defer as.Root.Stop(adaptivePID)

	// let the actor's Started handler subscribe before publishing, as the
	// sibling test above does with its initial silence window
	time.Sleep(300 * time.Millisecond)

	// lamp is at full brightness, the 40% target (102) is commanded with a fade
	es.Publish(domain.LightStateUpdateEvent{
		LightUpdateEventMixIn: domain.LightUpdateEventMixIn{LightId: "lamp"},
		State:                 domain.LightState{On: true, Brightness: 255, ColorMode: domain.ColorModeBrightness},
	})
	select {
	case <-commands:
	case <-time.After(2 * time.Second):
		t.Fatal("adaptive never commanded the enrolled light")
	}

	// a state snapshot taken mid-fade sits between start and target; it is
	// the fade itself, not a manual override
	es.Publish(domain.LightStateUpdateEvent{
		LightUpdateEventMixIn: domain.LightUpdateEventMixIn{LightId: "lamp"},
		State:                 domain.LightState{On: true, Brightness: 180, ColorMode: domain.ColorModeBrightness},
	})

	drainDeadline := time.After(300 * time.Millisecond)
drain:
	for {
		select {
		case <-commands:
		case <-drainDeadline:
			break drain
		}
	}
	select {
	case <-commands:
	case <-time.After(2 * time.Second):
		t.Fatal("light was treated as manually overridden by its own fade")
	}
}

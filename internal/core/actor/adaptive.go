package actor

import (
	"fmt"
	"time"

	"lumen2mqtt/internal/config"
	"lumen2mqtt/internal/core/domain"
	"lumen2mqtt/internal/core/service"
	"lumen2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// Tolerances for attributing a state change to our own commands. A change
// beyond these is treated as a manual override.
const (
	overrideBrightnessTolerance = 12
	overrideMiredTolerance      = 25
)

// AdaptiveLightingActor nudges the enrolled lights along the day's
// brightness and color temperature curve. Lights that are off are left
// alone, and a light the user adjusted by hand is skipped until it is
// turned off again.
type AdaptiveLightingActor struct {
	config   *config.Config
	behavior actor.Behavior
	stash    *actorutil.Stash

	scheduler      *scheduler.TimerScheduler
	eventStream    *eventstream.EventStream
	eventStreamSub *eventstream.Subscription
	lightActors    map[string]*actor.PID

	plan       *service.AdaptivePlan
	states     map[string]domain.LightState
	overridden map[string]bool
	lastSent   map[string]service.AdaptiveTarget

	logger *zap.Logger
}

type adaptiveTick struct {
}

func NewAdaptiveLightingActor(config *config.Config, lightActors map[string]*actor.PID,
	eventStream *eventstream.EventStream, logger *zap.Logger) *AdaptiveLightingActor {
	act := &AdaptiveLightingActor{
		config:      config,
		lightActors: lightActors,
		eventStream: eventStream,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		states:      map[string]domain.LightState{},
		overridden:  map[string]bool{},
		lastSent:    map[string]service.AdaptiveTarget{},
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_ADAPTIVE, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *AdaptiveLightingActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *AdaptiveLightingActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("adaptive@starting started")

		plan, err := service.BuildAdaptivePlan(state.config.Adaptive, time.Now(), state.logger)
		if err != nil {
			panic(err)
		}
		state.plan = plan

		state.eventStreamSub = state.eventStream.Subscribe(func(value any) {
			if ev, ok := value.(domain.LightStateUpdateEvent); ok {
				ctx.Send(ctx.Self(), ev)
			}
		})

		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.scheduler.RequestOnce(state.interval(), ctx.Self(), adaptiveTick{})

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.unsubscribe()
	default:
		state.logger.Debug("adaptive@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *AdaptiveLightingActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("adaptive@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_ADAPTIVE,
			Healthy: true,
			State:   "idle",
		})
	case adaptiveTick:
		state.logger.Debug("adaptive@default tick")
		state.applyTargets(ctx, time.Now())
		state.scheduler.RequestOnce(state.interval(), ctx.Self(), adaptiveTick{})
	case domain.LightStateUpdateEvent:
		state.observeState(msg)
	case domain.LightCommandResponse:
		// replies to our own turn_on requests
		if msg.HasResponseError() {
			state.logger.Warn("adaptive@default command failed", zap.Error(msg.GetResponseError()))
		}
	case *actor.Stopping:
		state.unsubscribe()
	default:
		state.logger.Debug("adaptive@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *AdaptiveLightingActor) applyTargets(ctx actor.Context, now time.Time) {
	if state.plan.Day().YearDay() != now.YearDay() || state.plan.Day().Year() != now.Year() {
		plan, err := service.BuildAdaptivePlan(state.config.Adaptive, now, state.logger)
		if err != nil {
			state.logger.Error("adaptive: could not rebuild plan", zap.Error(err))
			return
		}
		state.plan = plan
	}
	target := state.plan.TargetAt(now)
	for id, pid := range state.lightActors {
		lightState, known := state.states[id]
		if !known || !lightState.On {
			continue
		}
		if state.overridden[id] {
			continue
		}
		state.lastSent[id] = target
		pct := target.BrightnessPct
		kelvin := target.Kelvin
		transition := uint32(state.interval().Milliseconds() / 2)
		ctx.Request(pid, domain.LightTurnOnRequest{
			Command: domain.LightCommand{
				BrightnessPct:   &pct,
				ColorTempKelvin: &kelvin,
				TransitionMs:    &transition,
			},
		})
	}
}

// observeState updates the tracked state and flags manual overrides: a
// state change that lands away from the last target we sent means someone
// else is steering this light.
func (state *AdaptiveLightingActor) observeState(ev domain.LightStateUpdateEvent) {
	id := ev.EventLightId()
	if _, managed := state.lightActors[id]; !managed {
		return
	}
	previous, hadPrevious := state.states[id]
	state.states[id] = ev.State

	if !ev.State.On {
		// turning a light off re-enrolls it
		if state.overridden[id] {
			state.logger.Info("adaptive: light re-enrolled", zap.String("light", id))
			delete(state.overridden, id)
		}
		return
	}
	sent, everSent := state.lastSent[id]
	if !everSent {
		return
	}
	if hadPrevious && previous.On && !state.matchesTarget(ev.State, sent) {
		if state.transitional(previous, ev.State, sent) {
			return
		}
		if !state.overridden[id] {
			state.logger.Info("adaptive: manual override detected", zap.String("light", id))
			state.overridden[id] = true
		}
	}
}

// transitional reports whether a state looks like a snapshot of the fade
// toward the last commanded target: every attribute sits between the
// previously observed value and the target. Commands are sent with a
// transition, so the bridge sees intermediate values that must not count
// as manual overrides.
func (state *AdaptiveLightingActor) transitional(previous, current domain.LightState, target service.AdaptiveTarget) bool {
	wantBrightness := int(float64(target.BrightnessPct) * 255 / 100)
	if !between(int(current.Brightness), int(previous.Brightness), wantBrightness, overrideBrightnessTolerance) {
		return false
	}
	if current.ColorMode == domain.ColorModeColorTemp && target.Kelvin > 0 &&
		current.ColorTempMired > 0 && previous.ColorTempMired > 0 {
		wantMired := 1000000 / target.Kelvin
		if !between(current.ColorTempMired, previous.ColorTempMired, wantMired, overrideMiredTolerance) {
			return false
		}
	}
	return true
}

// between reports whether v lies in the closed interval spanned by a and b,
// widened by tol on both ends.
func between(v, a, b, tol int) bool {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	return v >= lo-tol && v <= hi+tol
}

func (state *AdaptiveLightingActor) matchesTarget(lightState domain.LightState, target service.AdaptiveTarget) bool {
	wantBrightness := int(float64(target.BrightnessPct) * 255 / 100)
	if abs(int(lightState.Brightness)-wantBrightness) > overrideBrightnessTolerance {
		return false
	}
	if lightState.ColorMode == domain.ColorModeColorTemp && target.Kelvin > 0 && lightState.ColorTempMired > 0 {
		wantMired := 1000000 / target.Kelvin
		if abs(lightState.ColorTempMired-wantMired) > overrideMiredTolerance {
			return false
		}
	}
	return true
}

func (state *AdaptiveLightingActor) interval() time.Duration {
	return time.Duration(state.config.Adaptive.IntervalMillis) * time.Millisecond
}

func (state *AdaptiveLightingActor) unsubscribe() {
	if state.eventStreamSub != nil {
		state.eventStream.Unsubscribe(state.eventStreamSub)
		state.eventStreamSub = nil
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

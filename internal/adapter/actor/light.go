package actor

import (
	"context"
	"fmt"
	"time"

	"lumen2mqtt/internal/config"
	"lumen2mqtt/internal/core/domain"
	"lumen2mqtt/internal/core/port"
	"lumen2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

const driverCallTimeout = 10 * time.Second

// LightActor owns one driver and serializes every device call through it.
// Driver calls run as background tasks so the actor keeps absorbing
// messages; while a call is in flight new requests are stashed.
type LightActor struct {
	behavior  actor.Behavior
	stash     *actorutil.Stash
	scheduler *scheduler.TimerScheduler

	cfg          config.LightConfig
	driver       port.LightDriver
	pollInterval time.Duration
	eventStream  *eventstream.EventStream

	info        *domain.LightInfo
	state       *domain.LightState
	available   bool
	watchCancel context.CancelFunc

	logger *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

type lightPollTick struct {
}

type lightOpenResult struct {
	info  *domain.LightInfo
	state *domain.LightState
}

type lightPushedState struct {
	state domain.LightState
}

func NewLightActor(cfg config.LightConfig, driver port.LightDriver, pollInterval time.Duration,
	eventStream *eventstream.EventStream, logger *zap.Logger) *LightActor {
	act := &LightActor{
		cfg:          cfg,
		driver:       driver,
		pollInterval: pollInterval,
		eventStream:  eventStream,
		behavior:     actor.NewBehavior(),
		stash:        &actorutil.Stash{},
		logger:       actorutil.ActorLogger(domain.LightActorId(cfg.Id), logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *LightActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *LightActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("light@starting started")
		actorutil.NewBackgroundTask(ctx, state.openDriver).
			WithTimeout(30 * time.Second).
			OnError(func(err error) {
				state.logger.Error("light@starting open failed", zap.Error(err))
				ctx.Send(ctx.Self(), backgroundTaskResult{message: err})
			}).PipeTo(ctx.Self())
		state.behavior.Become(state.WaitingOpenReceive)
	case *actor.Restarting:
		state.stopWatch()
		state.driver.Close()
	default:
		state.logger.Debug("light@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *LightActor) WaitingOpenReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case lightOpenResult:
		state.logger.Debug("light@waitingOpen open done")
		state.info = msg.info
		state.handleNewState(msg.state)
		state.startWatch(ctx)
		if state.pollInterval > 0 {
			state.scheduler = scheduler.NewTimerScheduler(ctx)
			state.scheduler.RequestOnce(state.pollInterval, ctx.Self(), lightPollTick{})
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case backgroundTaskResult:
		// open failed, panic so supervision restarts us with backoff
		if err, ok := msg.message.(error); ok {
			panic(err)
		}
	case *actor.Restarting:
		state.stopWatch()
		state.driver.Close()
	default:
		state.logger.Debug("light@waitingOpen: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *LightActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("light@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.LightActorId(state.cfg.Id),
			Healthy: state.available,
			State:   "idle",
		})
	case domain.GetLightInfoRequest:
		state.logger.Debug("light@default: GetLightInfoRequest")
		actorutil.ForRequest(msg).Respond(ctx, domain.GetLightInfoResponse{
			Info: state.info,
		})
	case domain.GetLightStateRequest:
		state.logger.Debug("light@default: GetLightStateRequest")
		actorutil.ForRequest(msg).Respond(ctx, domain.GetLightStateResponse{
			Info:  state.info,
			State: state.state,
		})
	case domain.LightTurnOnRequest:
		state.logger.Debug("light@default: LightTurnOnRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		command := msg.Command
		if state.info != nil {
			command = command.Restrict(*state.info)
		}
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.LightCommandResponse, error) {
			return state.turnOn(command)
		}), mapTaskResult[domain.LightCommandResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.LightCommandResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(driverCallTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDriverReceive)
	case domain.LightTurnOffRequest:
		state.logger.Debug("light@default: LightTurnOffRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		transition := msg.TransitionMs
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.LightCommandResponse, error) {
			return state.turnOff(transition)
		}), mapTaskResult[domain.LightCommandResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.LightCommandResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(driverCallTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDriverReceive)
	case lightPollTick:
		state.logger.Debug("light@default tick")
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.readState),
			mapTaskResult[domain.GetLightStateResponse](nil)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetLightStateResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
			}
		}).WithTimeout(driverCallTimeout).PipeTo(ctx.Self())
		state.scheduler.RequestOnce(state.pollInterval, ctx.Self(), lightPollTick{})
		state.behavior.BecomeStacked(state.WaitingDriverReceive)
	case lightPushedState:
		state.logger.Debug("light@default pushed state")
		pushed := msg.state
		state.handleNewState(&pushed)
	case *actor.Stopping:
		state.stopWatch()
		state.driver.Close()
	default:
		state.logger.Debug("light@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *LightActor) WaitingDriverReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("light@waitingDriver backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		switch resp := msg.message.(type) {
		case domain.LightCommandResponse:
			if resp.HasResponseError() {
				state.markUnavailable(resp.GetResponseError())
			} else {
				state.handleNewState(resp.State)
			}
		case domain.GetLightStateResponse:
			if resp.HasResponseError() {
				state.markUnavailable(resp.GetResponseError())
			} else {
				state.handleNewState(resp.State)
			}
		}
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.message)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case lightPushedState:
		pushed := msg.state
		state.handleNewState(&pushed)
	case *actor.Stopping:
		state.stopWatch()
		state.driver.Close()
	default:
		state.logger.Debug("light@waitingDriver stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (a *LightActor) openDriver() (*lightOpenResult, error) {
	bg := context.Background()
	if err := a.driver.Open(bg); err != nil {
		return nil, err
	}
	info, err := a.driver.Info(bg)
	if err != nil {
		return nil, err
	}
	st, err := a.driver.State(bg)
	if err != nil {
		return nil, err
	}
	return &lightOpenResult{info: info, state: st}, nil
}

func (a *LightActor) readState() (*domain.GetLightStateResponse, error) {
	st, err := a.driver.State(context.Background())
	if err != nil {
		return nil, err
	}
	return &domain.GetLightStateResponse{
		Info:  a.info,
		State: st,
	}, nil
}

func (a *LightActor) turnOn(cmd domain.LightCommand) (*domain.LightCommandResponse, error) {
	bg := context.Background()
	if err := a.driver.TurnOn(bg, cmd); err != nil {
		return nil, err
	}
	st, err := a.driver.State(bg)
	if err != nil {
		return nil, err
	}
	return &domain.LightCommandResponse{State: st}, nil
}

func (a *LightActor) turnOff(transitionMs *uint32) (*domain.LightCommandResponse, error) {
	bg := context.Background()
	var transition uint32
	if transitionMs != nil {
		transition = *transitionMs
	}
	if err := a.driver.TurnOff(bg, transition); err != nil {
		return nil, err
	}
	st, err := a.driver.State(bg)
	if err != nil {
		return nil, err
	}
	return &domain.LightCommandResponse{State: st}, nil
}

// startWatch hooks up the driver's push channel when it has one. Pushed
// states re-enter the actor as messages so all state handling stays on the
// actor goroutine.
func (state *LightActor) startWatch(ctx actor.Context) {
	push, ok := state.driver.(port.PushDriver)
	if !ok {
		return
	}
	watchCtx, cancel := context.WithCancel(context.Background())
	state.watchCancel = cancel
	system := ctx.ActorSystem()
	self := ctx.Self()
	if err := push.Watch(watchCtx, func(s domain.LightState) {
		system.Root.Send(self, lightPushedState{state: s})
	}); err != nil {
		state.logger.Warn("light push watch failed, relying on polling", zap.Error(err))
		cancel()
		state.watchCancel = nil
	}
}

func (state *LightActor) stopWatch() {
	if state.watchCancel != nil {
		state.watchCancel()
		state.watchCancel = nil
	}
}

func (state *LightActor) handleNewState(newState *domain.LightState) {
	if newState == nil {
		return
	}
	if !state.available {
		state.available = true
		state.eventStream.Publish(domain.LightAvailabilityUpdateEvent{
			LightUpdateEventMixIn: domain.LightUpdateEventMixIn{LightId: state.cfg.Id},
			Available:             true,
		})
	}
	newState.Available = true
	if state.state == nil || *state.state != *newState {
		state.state = newState
		state.eventStream.Publish(domain.LightStateUpdateEvent{
			LightUpdateEventMixIn: domain.LightUpdateEventMixIn{LightId: state.cfg.Id},
			State:                 *newState,
		})
	} else {
		state.state = newState
	}
}

func (state *LightActor) markUnavailable(err error) {
	state.logger.Error("light driver call failed", zap.Error(err))
	if state.available {
		state.available = false
		state.eventStream.Publish(domain.LightAvailabilityUpdateEvent{
			LightUpdateEventMixIn: domain.LightUpdateEventMixIn{LightId: state.cfg.Id},
			Available:             false,
		})
	}
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}

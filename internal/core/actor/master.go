package actor

import (
	"fmt"
	"log"
	"time"

	adactor "lumen2mqtt/internal/adapter/actor"
	"lumen2mqtt/internal/config"
	"lumen2mqtt/internal/core/domain"
	"lumen2mqtt/internal/core/port"
	"lumen2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

type RecorderActorProvider func(*eventstream.EventStream) *adactor.RecorderActor

type LightDriverProvider func(config.LightConfig) (port.LightDriver, error)

// MasterOfPuppetsActor supervises the whole actor tree: one MQTT actor, one
// actor per configured light, and the optional discovery, adaptive and
// recorder actors. It routes by light id and aggregates health checks.
type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *actorutil.Stash

	currentHealthCheck healthCheckResult
	currentListLights  listLightsCollect
	eventStream        *eventstream.EventStream
	mqttActor          *actor.PID
	recorderActor      *actor.PID
	lightActors        map[string]*actor.PID

	mqttActorProvider     MQTTActorProvider
	recorderActorProvider RecorderActorProvider
	driverProvider        LightDriverProvider

	logger *zap.Logger
}

type healthCheckResult struct {
	mqttActorHealthy bool
	lightsHealthy    int
	checksReceived   int
	checksExpected   int
	respondTo        *actor.PID
}

type listLightsCollect struct {
	snapshots map[string]domain.LightSnapshot
	received  int
	expected  int
	respondTo *actor.PID
}

func NewMasterOfPuppetsActor(config config.Config, driverProvider LightDriverProvider,
	mqttActorProvider MQTTActorProvider, recorderActorProvider RecorderActorProvider,
	logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:                config,
		behavior:              actor.NewBehavior(),
		stash:                 &actorutil.Stash{},
		logger:                actorutil.ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:           &eventstream.EventStream{},
		lightActors:           map[string]*actor.PID{},
		driverProvider:        driverProvider,
		mqttActorProvider:     mqttActorProvider,
		recorderActorProvider: recorderActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

// EventStream exposes the bridge-wide event stream to the composition root.
func (state *MasterOfPuppetsActor) EventStream() *eventstream.EventStream {
	return state.eventStream
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		state.currentHealthCheck = healthCheckResult{}

		// start MQTT child
		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		// one child per configured light
		for _, lightCfg := range state.config.Lights {
			pid, err := state.startLightActor(ctx, lightCfg)
			if err != nil {
				panic(err)
			}
			state.lightActors[lightCfg.Id] = pid
		}

		if state.config.MQTT.HADiscoveryEnable {
			if _, err := state.startHADiscoveryActor(ctx); err != nil {
				panic(err)
			}
		}

		if state.config.Adaptive.Enable {
			if _, err := state.startAdaptiveActor(ctx); err != nil {
				panic(err)
			}
		}

		if state.config.Recorder.Enable {
			recorderPID, err := state.startRecorderActor(ctx)
			if err != nil {
				panic(err)
			}
			state.recorderActor = recorderPID
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck = healthCheckResult{
			checksExpected: 1 + len(state.lightActors),
			respondTo:      ctx.Sender(),
		}
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		for id, pid := range state.lightActors {
			lightId := id
			actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
				return domain.ActorHealthResponse{
					Id:      domain.LightActorId(lightId),
					Healthy: false,
				}
			})
		}

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case domain.ListLightsRequest:
		state.logger.Debug("master@default ListLightsRequest")
		respondTo := actorutil.ForRequest(msg).ReplyTo(ctx)
		if len(state.lightActors) == 0 {
			ctx.Send(respondTo, domain.ListLightsResponse{Lights: []domain.LightSnapshot{}})
			return
		}
		state.currentListLights = listLightsCollect{
			snapshots: map[string]domain.LightSnapshot{},
			expected:  len(state.lightActors),
			respondTo: respondTo,
		}
		for _, pid := range state.lightActors {
			actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.GetLightStateRequest{}, 2*time.Second), func(err error) any {
				return domain.GetLightStateResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
				}
			})
		}

		ctx.SetReceiveTimeout(3 * time.Second)

		state.behavior.BecomeStacked(state.ListLightsReceive)
	case domain.GetLightStateRequest:
		state.routeToLight(ctx, msg.LightId, msg, func(err error) any {
			return domain.GetLightStateResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			}
		})
	case domain.LightTurnOnRequest:
		state.logger.Debug("master@default LightTurnOnRequest", zap.String("light", msg.LightId))
		state.routeToLight(ctx, msg.LightId, msg, func(err error) any {
			return domain.LightCommandResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			}
		})
	case domain.LightTurnOffRequest:
		state.logger.Debug("master@default LightTurnOffRequest", zap.String("light", msg.LightId))
		state.routeToLight(ctx, msg.LightId, msg, func(err error) any {
			return domain.LightCommandResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			}
		})
	case domain.GetLightHistoryRequest:
		state.routeToRecorder(ctx, msg, func(err error) any {
			return domain.GetLightHistoryResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
				LightId:            msg.LightId,
			}
		})
	case domain.GetLastRecordedStatesRequest:
		state.routeToRecorder(ctx, msg, func(err error) any {
			return domain.GetLastRecordedStatesResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			}
		})
	case adactor.ParsedCommand:
		// redirect MQTT set command to the target light actor
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command == nil {
			return
		}
		req, err := actorutil.ParsedMQTTCommandToRequest(*msg.Command)
		if err != nil {
			state.logger.Warn("master@default invalid light command",
				zap.String("light", msg.Command.LightId), zap.Error(err))
			return
		}
		pid, ok := state.lightActors[msg.Command.LightId]
		if !ok {
			state.logger.Warn("master@default command for unknown light",
				zap.String("light", msg.Command.LightId))
			return
		}
		ctx.Send(pid, req)
	case *actor.Terminated:
		// if the MQTT actor gives up, the bridge is useless
		if msg.Who.Id == fmt.Sprintf("%s/%s", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_MQTT) {
			state.logger.Error("master@default mqtt terminated")
			panic(fmt.Errorf("mqtt actor terminated"))
		}
		state.logger.Warn("master@default child terminated", zap.String("who", msg.Who.Id))
	default:
		state.logger.Debug("master@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		state.currentHealthCheck.respond(ctx, len(state.lightActors))
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		if msg.Healthy {
			if msg.Id == domain.ACTOR_ID_MQTT {
				state.currentHealthCheck.mqttActorHealthy = true
			} else {
				state.currentHealthCheck.lightsHealthy++
			}
		}
		if state.currentHealthCheck.allReceived() {
			state.currentHealthCheck.respond(ctx, len(state.lightActors))

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) ListLightsReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		state.respondListLights(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.GetLightStateResponse:
		state.currentListLights.received++
		if !msg.HasResponseError() && msg.Info != nil && msg.State != nil {
			state.currentListLights.snapshots[msg.Info.Id] = domain.LightSnapshot{
				Info:  *msg.Info,
				State: *msg.State,
			}
		}
		if state.currentListLights.received >= state.currentListLights.expected {
			state.respondListLights(ctx)
			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(3 * time.Second)
		}
	default:
		state.logger.Debug("master@listlights stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// respondListLights replies with the collected snapshots in config order.
func (state *MasterOfPuppetsActor) respondListLights(ctx actor.Context) {
	lights := make([]domain.LightSnapshot, 0, len(state.currentListLights.snapshots))
	for _, lightCfg := range state.config.Lights {
		if snap, ok := state.currentListLights.snapshots[lightCfg.Id]; ok {
			lights = append(lights, snap)
		}
	}
	if state.currentListLights.respondTo != nil {
		ctx.Send(state.currentListLights.respondTo, domain.ListLightsResponse{Lights: lights})
	}
	state.currentListLights = listLightsCollect{}
}

// routeToLight forwards a request to the light actor owning the id. The
// reply goes straight back to the original requester.
func (state *MasterOfPuppetsActor) routeToLight(ctx actor.Context, lightId string, msg any, onError func(error) any) {
	pid, ok := state.lightActors[lightId]
	if !ok {
		resp := onError(fmt.Errorf("unknown light %q", lightId))
		if ctx.Sender() != nil {
			ctx.Respond(resp)
		}
		return
	}
	ctx.Forward(pid)
}

func (state *MasterOfPuppetsActor) routeToRecorder(ctx actor.Context, msg any, onError func(error) any) {
	if state.recorderActor == nil {
		resp := onError(fmt.Errorf("recorder is not enabled"))
		if ctx.Sender() != nil {
			ctx.Respond(resp)
		}
		return
	}
	ctx.Forward(state.recorderActor)
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	mqttActorPID, err := ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
	if err != nil {
		return nil, err
	}

	return mqttActorPID, nil
}

func (state *MasterOfPuppetsActor) startLightActor(ctx actor.Context, lightCfg config.LightConfig) (*actor.PID, error) {

	driver, err := state.driverProvider(lightCfg)
	if err != nil {
		return nil, err
	}

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	pollInterval := time.Duration(state.config.Monitor.PollIntervalMillis) * time.Millisecond
	lightProps := actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewLightActor(lightCfg, driver, pollInterval, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	lightActorPID, err := ctx.SpawnNamed(lightProps, domain.LightActorId(lightCfg.Id))
	if err != nil {
		return nil, err
	}

	return lightActorPID, nil
}

func (state *MasterOfPuppetsActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, state.lightActors, state.mqttActor, state.logger)
	}, actor.WithSupervisor(supervisor))
	haDiscPID, err := ctx.SpawnNamed(haDiscProps, domain.ACTOR_ID_HA_DISCOVERY)
	if err != nil {
		return nil, err
	}

	return haDiscPID, nil
}

func (state *MasterOfPuppetsActor) startAdaptiveActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	adaptiveLights := map[string]*actor.PID{}
	for _, lightCfg := range state.config.Lights {
		if lightCfg.Adaptive {
			if pid, ok := state.lightActors[lightCfg.Id]; ok {
				adaptiveLights[lightCfg.Id] = pid
			}
		}
	}

	adaptiveProps := actor.PropsFromProducer(func() actor.Actor {
		return NewAdaptiveLightingActor(&state.config, adaptiveLights, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	adaptivePID, err := ctx.SpawnNamed(adaptiveProps, domain.ACTOR_ID_ADAPTIVE)
	if err != nil {
		return nil, err
	}

	return adaptivePID, nil
}

func (state *MasterOfPuppetsActor) startRecorderActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	recorderProps := actor.PropsFromProducer(func() actor.Actor {
		return state.recorderActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	recorderPID, err := ctx.SpawnNamed(recorderProps, domain.ACTOR_ID_RECORDER)
	if err != nil {
		return nil, err
	}

	return recorderPID, nil
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived >= state.checksExpected
}

// respond reports bridge health. MQTT is required; unavailable lights are
// reported but do not fail the whole bridge.
func (state *healthCheckResult) respond(ctx actor.Context, totalLights int) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.mqttActorHealthy,
		State:   fmt.Sprintf("lights %d/%d available", state.lightsHealthy, totalLights),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}

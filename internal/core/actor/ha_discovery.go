package actor

import (
	"errors"
	"fmt"
	"time"

	"lumen2mqtt/internal/config"
	"lumen2mqtt/internal/core/domain"
	"lumen2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// HADiscoveryActor runs once at boot: it waits for the MQTT actor to be
// healthy, collects the capabilities of every light actor and publishes the
// discovery documents.
type HADiscoveryActor struct {
	config      *config.Config
	behavior    actor.Behavior
	stash       *actorutil.Stash
	lightActors map[string]*actor.PID
	mqttActor   *actor.PID

	mqttActorHealthy bool
	infosRecv        int
	infos            []domain.LightInfo

	logger *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, lightActors map[string]*actor.PID, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:      config,
		lightActors: lightActors,
		mqttActor:   mqttActor,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		state.mqttActorHealthy = false
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		if msg.Id == domain.ACTOR_ID_MQTT && msg.Healthy {
			state.mqttActorHealthy = true
		}
		if !state.mqttActorHealthy {
			panic(errors.New("MQTT actor is not healthy"))
		}
		if len(state.lightActors) == 0 {
			state.publishDiscovery(ctx)
			state.behavior.Become(state.Done)
			state.stash.UnstashAll(ctx)
			return
		}
		// ask every light actor for its capabilities
		state.infosRecv = 0
		state.infos = nil
		for id := range state.lightActors {
			pid := state.lightActors[id]
			actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.GetLightInfoRequest{}, 30*time.Second), func(err error) any {
				return domain.GetLightInfoResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				}
			})
		}
		state.behavior.Become(state.WaitingInfoReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) Done(ctx actor.Context) {

}

func (state *HADiscoveryActor) WaitingInfoReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetLightInfoResponse:
		state.infosRecv++
		if msg.HasResponseError() {
			state.logger.Warn("hadiscovery@info: light info request failed, light left out of discovery",
				zap.Error(msg.GetResponseError()))
		} else if msg.Info != nil {
			state.infos = append(state.infos, *msg.Info)
		}
		if state.infosRecv < len(state.lightActors) {
			return
		}

		state.publishDiscovery(ctx)
		state.behavior.Become(state.Done)

	default:
		state.logger.Debug("hadiscovery@info: default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HADiscoveryActor) publishDiscovery(ctx actor.Context) {
	bridgeDevice := domain.BridgeDevice(state.config.MQTT.BaseTopic)
	sensors := domain.BridgeSensors(bridgeDevice)

	var lights []domain.GenericLight
	for i := range state.infos {
		lightDevice := domain.LightDevice(state.infos[i])
		lightDevice.ViaDevice = bridgeDevice.Id
		lights = append(lights, domain.LightEntity(lightDevice, state.infos[i]))
	}

	state.logger.Info("hadiscovery: publishing discovery", zap.Int("lights", len(lights)))
	ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
		Lights:  lights,
		Sensors: sensors,
	})
}

package actor

import (
	"context"
	"fmt"
	"testing"
	"time"

	adactor "lumen2mqtt/internal/adapter/actor"
	"lumen2mqtt/internal/config"
	"lumen2mqtt/internal/core/domain"
	"lumen2mqtt/internal/core/port"
	"lumen2mqtt/internal/recorder"
	"lumen2mqtt/internal/util"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryDriver is an in-memory light driver used to boot the full actor
// tree without devices on the network.
type memoryDriver struct {
	id    string
	state domain.LightState
}

func (d *memoryDriver) Open(context.Context) error { return nil }
func (d *memoryDriver) Close() error               { return nil }

func (d *memoryDriver) Info(context.Context) (*domain.LightInfo, error) {
	return &domain.LightInfo{
		Id:         d.id,
		Name:       d.id,
		UniqueId:   "memory_" + d.id,
		ColorModes: []domain.ColorMode{domain.ColorModeBrightness},
	}, nil
}

func (d *memoryDriver) State(context.Context) (*domain.LightState, error) {
	s := d.state
	return &s, nil
}

func (d *memoryDriver) TurnOn(_ context.Context, cmd domain.LightCommand) error {
	d.state.On = true
	if b, ok := cmd.TargetBrightness(); ok {
		d.state.Brightness = b
	}
	return nil
}

func (d *memoryDriver) TurnOff(context.Context, uint32) error {
	d.state.On = false
	return nil
}

func spawnTestMaster(t *testing.T, cfg config.Config, logger *zap.Logger) (*actor.ActorSystem, *actor.PID) {
	t.Helper()

	as := actor.NewActorSystem()

	store, err := recorder.NewStore(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, func(lightCfg config.LightConfig) (port.LightDriver, error) {
			return &memoryDriver{
				id: lightCfg.Id,
				state: domain.LightState{
					Brightness: 128,
					ColorMode:  domain.ColorModeBrightness,
					Available:  true,
				},
			}, nil
		}, func(es *eventstream.EventStream) *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, es, logger)
		}, func(es *eventstream.EventStream) *adactor.RecorderActor {
			return adactor.NewRecorderActor(&cfg, store, es, logger)
		}, logger)
	})
	pid, err := as.Root.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	require.NoError(t, err)
	return as, pid
}

func TestMasterActorHealthCheck(t *testing.T) {

	cfg := util.LoadTestConfig()
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	as, pid := spawnTestMaster(t, cfg, logger)
	context := as.Root

	time.Sleep(2 * time.Second)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	require.NoError(t, err)
	healthResp, ok := res.(domain.ActorHealthResponse)
	require.True(t, ok)
	fmt.Printf("Health response: %+v\n", healthResp)

	assert.True(t, healthResp.Healthy, "healthy is true")

	context.Stop(pid)

	as.Shutdown()
}

func TestMasterActorListAndRoute(t *testing.T) {

	cfg := util.LoadTestConfig()
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	as, pid := spawnTestMaster(t, cfg, logger)
	context := as.Root

	time.Sleep(2 * time.Second)

	// snapshot of every configured light
	res, err := context.RequestFuture(pid, domain.ListLightsRequest{}, 10*time.Second).Result()
	require.NoError(t, err)
	listResp, ok := res.(domain.ListLightsResponse)
	require.True(t, ok)
	require.Len(t, listResp.Lights, len(cfg.Lights))
	assert.Equal(t, cfg.Lights[0].Id, listResp.Lights[0].Info.Id)
	assert.False(t, listResp.Lights[0].State.On)

	// turn on routed by light id
	brightness := uint8(220)
	res, err = context.RequestFuture(pid, domain.LightTurnOnRequest{
		LightId: cfg.Lights[0].Id,
		Command: domain.LightCommand{Brightness: &brightness},
	}, 10*time.Second).Result()
	require.NoError(t, err)
	cmdResp, ok := res.(domain.LightCommandResponse)
	require.True(t, ok)
	require.False(t, cmdResp.HasResponseError())
	assert.True(t, cmdResp.State.On)
	assert.Equal(t, uint8(220), cmdResp.State.Brightness)

	// unknown light id fails fast
	res, err = context.RequestFuture(pid, domain.GetLightStateRequest{LightId: "no_such_lamp"}, 10*time.Second).Result()
	require.NoError(t, err)
	stateResp, ok := res.(domain.GetLightStateResponse)
	require.True(t, ok)
	assert.True(t, stateResp.HasResponseError())

	context.Stop(pid)

	as.Shutdown()
}

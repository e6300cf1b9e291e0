package actor

import (
	"context"
	"sync"
	"testing"
	"time"

	"lumen2mqtt/internal/core/domain"
	"lumen2mqtt/internal/util"
	"lumen2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeDriver is an in-memory light used to exercise the actor without a
// device on the network.
type fakeDriver struct {
	mu    sync.Mutex
	state domain.LightState
	fail  bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		state: domain.LightState{
			On:         false,
			Brightness: 128,
			ColorMode:  domain.ColorModeBrightness,
			Available:  true,
		},
	}
}

func (d *fakeDriver) Open(context.Context) error { return nil }
func (d *fakeDriver) Close() error               { return nil }

func (d *fakeDriver) Info(context.Context) (*domain.LightInfo, error) {
	return &domain.LightInfo{
		Id:         "test_lamp",
		Name:       "Test lamp",
		UniqueId:   "fake_test_lamp",
		ColorModes: []domain.ColorMode{domain.ColorModeBrightness},
	}, nil
}

func (d *fakeDriver) State(context.Context) (*domain.LightState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return nil, assert.AnError
	}
	s := d.state
	return &s, nil
}

func (d *fakeDriver) TurnOn(_ context.Context, cmd domain.LightCommand) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return assert.AnError
	}
	d.state.On = true
	if b, ok := cmd.TargetBrightness(); ok {
		d.state.Brightness = b
	}
	return nil
}

func (d *fakeDriver) TurnOff(context.Context, uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return assert.AnError
	}
	d.state.On = false
	return nil
}

func (d *fakeDriver) setFail(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail = fail
}

func TestLightActorTurnOnOff(t *testing.T) {

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	root := as.Root

	es := eventstream.EventStream{}
	driver := newFakeDriver()

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewLightActor(cfg.Lights[0], driver, 0, &es, logger)
	})
	pid := root.Spawn(props)

	time.Sleep(500 * time.Millisecond)

	// initial state
	result, err := root.RequestFuture(pid, domain.GetLightStateRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	stateResp, ok := result.(domain.GetLightStateResponse)
	require.True(t, ok)
	assert.False(t, stateResp.State.On)

	// turn on with brightness
	brightness := uint8(200)
	result, err = root.RequestFuture(pid, domain.LightTurnOnRequest{
		Command: domain.LightCommand{Brightness: &brightness},
	}, 2*time.Second).Result()
	require.NoError(t, err)
	cmdResp, ok := result.(domain.LightCommandResponse)
	require.True(t, ok)
	require.False(t, cmdResp.HasResponseError())
	assert.True(t, cmdResp.State.On)
	assert.Equal(t, uint8(200), cmdResp.State.Brightness)

	// turn off
	result, err = root.RequestFuture(pid, domain.LightTurnOffRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	cmdResp, ok = result.(domain.LightCommandResponse)
	require.True(t, ok)
	assert.False(t, cmdResp.State.On)

	root.Stop(pid)
	as.Shutdown()
}

func TestLightActorPublishesStateEvents(t *testing.T) {

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	root := as.Root

	es := eventstream.EventStream{}
	var mu sync.Mutex
	var stateEvents []domain.LightStateUpdateEvent
	sub := es.Subscribe(func(evt any) {
		if ev, ok := evt.(domain.LightStateUpdateEvent); ok {
			mu.Lock()
			stateEvents = append(stateEvents, ev)
			mu.Unlock()
		}
	})
	defer es.Unsubscribe(sub)

	driver := newFakeDriver()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewLightActor(cfg.Lights[0], driver, 0, &es, logger)
	})
	pid := root.Spawn(props)

	time.Sleep(500 * time.Millisecond)

	_, err := root.RequestFuture(pid, domain.LightTurnOnRequest{}, 2*time.Second).Result()
	require.NoError(t, err)

	time.Sleep(500 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, stateEvents)
	last := stateEvents[len(stateEvents)-1]
	assert.Equal(t, "test_lamp", last.EventLightId())
	assert.True(t, last.State.On)

	root.Stop(pid)
	as.Shutdown()
}

func TestLightActorReportsUnavailable(t *testing.T) {

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	root := as.Root

	es := eventstream.EventStream{}
	var mu sync.Mutex
	var availEvents []domain.LightAvailabilityUpdateEvent
	sub := es.Subscribe(func(evt any) {
		if ev, ok := evt.(domain.LightAvailabilityUpdateEvent); ok {
			mu.Lock()
			availEvents = append(availEvents, ev)
			mu.Unlock()
		}
	})
	defer es.Unsubscribe(sub)

	driver := newFakeDriver()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewLightActor(cfg.Lights[0], driver, 0, &es, logger)
	})
	pid := root.Spawn(props)

	time.Sleep(500 * time.Millisecond)

	driver.setFail(true)
	result, err := root.RequestFuture(pid, domain.LightTurnOnRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	cmdResp, ok := result.(domain.LightCommandResponse)
	require.True(t, ok)
	assert.True(t, cmdResp.HasResponseError())

	time.Sleep(500 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, availEvents)
	assert.False(t, availEvents[len(availEvents)-1].Available)

	root.Stop(pid)
	as.Shutdown()
}

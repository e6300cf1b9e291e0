package port

import (
	"context"

	"lumen2mqtt/internal/core/domain"
)

// LightDriver is the light entity contract every vendor adapter implements.
// Drivers are not required to be safe for concurrent use: the owning light
// actor serializes all calls to a device.
type LightDriver interface {
	// Open establishes the device connection. Called once before any other
	// method and again after the owning actor restarts.
	Open(ctx context.Context) error
	Close() error

	// Info reports identity and capabilities. Stable across calls.
	Info(ctx context.Context) (*domain.LightInfo, error)

	// State reads the device's current state.
	State(ctx context.Context) (*domain.LightState, error)

	// TurnOn applies a turn_on command, converting any color attribute to
	// the device's native representation.
	TurnOn(ctx context.Context, cmd domain.LightCommand) error

	// TurnOff switches the device off, honoring the optional transition.
	TurnOff(ctx context.Context, transitionMs uint32) error
}

// PushDriver is implemented by drivers whose device can push state changes
// (e.g. the Hue bridge event stream). The callback may be invoked from any
// goroutine until ctx is done.
type PushDriver interface {
	LightDriver
	Watch(ctx context.Context, onState func(domain.LightState)) error
}

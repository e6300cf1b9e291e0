package domain

import "fmt"

type LightUpdateEventMixIn struct {
	LightId string
}

type LightUpdateEvent interface {
	LightUpdateEvent() string
	EventLightId() string
}

func (e LightUpdateEventMixIn) LightUpdateEvent() string {
	return fmt.Sprintf("%T", e)
}

func (e LightUpdateEventMixIn) EventLightId() string {
	return e.LightId
}

// LightStateUpdateEvent is published on the event stream whenever a light
// actor observes a state change, either from a poll, a push event or an
// optimistic update after a command.
type LightStateUpdateEvent struct {
	LightUpdateEventMixIn
	State LightState
}

// LightAvailabilityUpdateEvent tracks per-light reachability. Emitted when
// a driver call fails (offline) and when the next call succeeds (online).
type LightAvailabilityUpdateEvent struct {
	LightUpdateEventMixIn
	Available bool
}

// BridgeStateUpdateEvent mirrors the bridge availability topic.
type BridgeStateUpdateEvent struct {
	Value bool
}

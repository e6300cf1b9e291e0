package domain

import "time"

// Recorder actor protocol.

type RecordedState struct {
	LightId string
	Time    time.Time
	State   LightState
}

type GetLightHistoryRequest struct {
	ActorRequestMixIn
	LightId string
	Since   time.Time
	Limit   int
}

type GetLightHistoryResponse struct {
	ActorResponseMixIn
	LightId string
	Samples []RecordedState
}

type GetLastRecordedStatesRequest struct {
	ActorRequestMixIn
}

type GetLastRecordedStatesResponse struct {
	ActorResponseMixIn
	States map[string]RecordedState
}

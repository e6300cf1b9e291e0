package actor

import (
	"context"
	"fmt"
	"time"

	"lumen2mqtt/internal/config"
	"lumen2mqtt/internal/core/domain"
	"lumen2mqtt/internal/recorder"
	"lumen2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

// RecorderActor persists every light state and availability change. The
// retention window is enforced by a cron-scheduled prune job.
type RecorderActor struct {
	config   *config.Config
	behavior actor.Behavior
	stash    *actorutil.Stash

	store          *recorder.Store
	eventStream    *eventstream.EventStream
	eventStreamSub *eventstream.Subscription
	cronScheduler  quartz.Scheduler
	cronCancel     context.CancelFunc

	logger *zap.Logger
}

type pruneTick struct {
}

func NewRecorderActor(config *config.Config, store *recorder.Store, eventStream *eventstream.EventStream, logger *zap.Logger) *RecorderActor {
	act := &RecorderActor{
		config:      config,
		store:       store,
		eventStream: eventStream,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_RECORDER, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *RecorderActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *RecorderActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("recorder@starting started")

		state.eventStreamSub = state.eventStream.Subscribe(func(value any) {
			switch value.(type) {
			case domain.LightStateUpdateEvent, domain.LightAvailabilityUpdateEvent:
				ctx.Send(ctx.Self(), value)
			}
		})

		if err := state.startPruneJob(ctx); err != nil {
			panic(err)
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.stop()
	default:
		state.logger.Debug("recorder@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *RecorderActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("recorder@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_RECORDER,
			Healthy: true,
			State:   "idle",
		})
	case domain.LightStateUpdateEvent:
		if err := state.store.InsertState(msg.EventLightId(), time.Now(), msg.State); err != nil {
			state.logger.Error("recorder@default could not record state", zap.Error(err))
		}
	case domain.LightAvailabilityUpdateEvent:
		if err := state.store.InsertAvailability(msg.EventLightId(), time.Now(), msg.Available); err != nil {
			state.logger.Error("recorder@default could not record availability", zap.Error(err))
		}
	case domain.GetLightHistoryRequest:
		state.logger.Debug("recorder@default GetLightHistoryRequest", zap.String("light", msg.LightId))
		samples, err := state.store.History(msg.LightId, msg.Since, msg.Limit)
		if err != nil {
			actorutil.ForRequest(msg).Respond(ctx, domain.GetLightHistoryResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
				LightId:            msg.LightId,
			})
			return
		}
		result := make([]domain.RecordedState, 0, len(samples))
		for _, s := range samples {
			result = append(result, domain.RecordedState{LightId: s.LightId, Time: s.Time, State: s.State})
		}
		actorutil.ForRequest(msg).Respond(ctx, domain.GetLightHistoryResponse{
			LightId: msg.LightId,
			Samples: result,
		})
	case domain.GetLastRecordedStatesRequest:
		state.logger.Debug("recorder@default GetLastRecordedStatesRequest")
		last, err := state.store.LastStates()
		if err != nil {
			actorutil.ForRequest(msg).Respond(ctx, domain.GetLastRecordedStatesResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			})
			return
		}
		result := make(map[string]domain.RecordedState, len(last))
		for id, s := range last {
			result[id] = domain.RecordedState{LightId: s.LightId, Time: s.Time, State: s.State}
		}
		actorutil.ForRequest(msg).Respond(ctx, domain.GetLastRecordedStatesResponse{
			States: result,
		})
	case pruneTick:
		cutoff := time.Now().AddDate(0, 0, -int(state.config.Recorder.RetentionDays))
		removed, err := state.store.Prune(cutoff)
		if err != nil {
			state.logger.Error("recorder@default prune failed", zap.Error(err))
			return
		}
		state.logger.Info("recorder: pruned history", zap.Int64("removed", removed),
			zap.Time("cutoff", cutoff))
	case *actor.Stopping:
		state.stop()
	default:
		state.logger.Debug("recorder@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *RecorderActor) startPruneJob(ctx actor.Context) error {
	cron := state.config.Recorder.PruneCron
	if cron == "" {
		cron = "0 0 4 * * *"
	}
	trigger, err := quartz.NewCronTrigger(cron)
	if err != nil {
		return fmt.Errorf("recorder: invalid prune cron %q: %w", cron, err)
	}
	cronCtx, cancel := context.WithCancel(context.Background())
	state.cronCancel = cancel
	state.cronScheduler = quartz.NewStdScheduler()
	state.cronScheduler.Start(cronCtx)

	system := ctx.ActorSystem()
	self := ctx.Self()
	pruneJob := job.NewFunctionJob(func(context.Context) (bool, error) {
		system.Root.Send(self, pruneTick{})
		return true, nil
	})
	return state.cronScheduler.ScheduleJob(quartz.NewJobDetail(pruneJob, quartz.NewJobKey("prune_history")), trigger)
}

func (state *RecorderActor) stop() {
	if state.eventStreamSub != nil {
		state.eventStream.Unsubscribe(state.eventStreamSub)
		state.eventStreamSub = nil
	}
	if state.cronCancel != nil {
		state.cronCancel()
		state.cronCancel = nil
	}
	if state.cronScheduler != nil {
		state.cronScheduler.Stop()
		state.cronScheduler = nil
	}
}

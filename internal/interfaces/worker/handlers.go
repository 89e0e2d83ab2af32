// Package worker routes consumed Kafka messages to the docket services.
package worker

import (
	"context"

	app "github.com/turtacn/KeyIP-Docket/internal/application/docket"
	domain "github.com/turtacn/KeyIP-Docket/internal/domain/docket"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-Docket/pkg/errors"
	"github.com/turtacn/KeyIP-Docket/pkg/types/common"
)

// Handler processes the messages of one topic.  Errors go through the
// consumer's retry and dead-letter policy.
type Handler interface {
	Topic() string
	Handle(ctx context.Context, msg *common.Message) error
}

// Subscriber is the part of the Kafka consumer handlers are registered on.
type Subscriber interface {
	Subscribe(topic string, handler common.MessageHandler)
}

// Register subscribes every handler on its topic.
func Register(s Subscriber, handlers ...Handler) {
	for _, h := range handlers {
		s.Subscribe(h.Topic(), h.Handle)
	}
}

// Topics lists the topics the handlers consume.
func Topics(handlers ...Handler) []string {
	out := make([]string, 0, len(handlers))
	for _, h := range handlers {
		out = append(out, h.Topic())
	}
	return out
}

func decode(msg *common.Message, eventType string, target interface{}) (*kafka.EventEnvelope, error) {
	env, err := kafka.MessageToEventEnvelope(msg)
	if err != nil {
		return nil, err
	}
	if env.EventType != eventType {
		return nil, errors.New(errors.ErrCodeValidation, "unexpected event type").
			WithDetailf("topic=%s event_type=%s want=%s", msg.Topic, env.EventType, eventType)
	}
	if err := env.DecodePayload(target); err != nil {
		return nil, err
	}
	return env, nil
}

// EventRecordedHandler saves events recorded by other systems and runs their
// rules.
type EventRecordedHandler struct {
	events app.EventService
	logger logging.Logger
}

func NewEventRecordedHandler(events app.EventService, logger logging.Logger) *EventRecordedHandler {
	return &EventRecordedHandler{events: events, logger: logger.Named("event-recorded")}
}

func (h *EventRecordedHandler) Topic() string { return kafka.TopicEventRecorded }

func (h *EventRecordedHandler) Handle(ctx context.Context, msg *common.Message) error {
	var p kafka.EventRecordedPayload
	env, err := decode(msg, kafka.EventTypeEventRecorded, &p)
	if err != nil {
		return err
	}
	actor := domain.UserActor(common.UserID(p.UserID))

	if p.Reevaluate {
		res, err := h.events.Reevaluate(ctx, actor, p.EventID)
		if err != nil {
			return err
		}
		h.done(env, res)
		return nil
	}

	req := &app.SaveEventRequest{
		ID:          p.EventID,
		MatterID:    p.MatterID,
		Code:        p.Code,
		AltMatterID: p.AltMatterID,
		Detail:      p.Detail,
		Notes:       p.Notes,
	}
	if p.EventDate != "" {
		d, err := domain.ParseDate(p.EventDate)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeValidation, "malformed event date").
				WithDetailf("envelope_id=%s event_date=%q", env.EventID, p.EventDate)
		}
		req.EventDate = d
	}

	res, err := h.events.Save(ctx, actor, req)
	if errors.IsCode(err, errors.CodeEventDuplicate) {
		// Redelivery of an event that was already stored.
		h.logger.Info("duplicate event ignored",
			logging.String("envelope_id", env.EventID),
			logging.Int64("matter_id", p.MatterID),
			logging.String("code", p.Code))
		return nil
	}
	if err != nil {
		return err
	}
	h.done(env, res)
	return nil
}

func (h *EventRecordedHandler) done(env *kafka.EventEnvelope, res *app.EventResult) {
	h.logger.Debug("event handled",
		logging.String("envelope_id", env.EventID),
		logging.Int64("event_id", res.Event.ID),
		logging.Int("scheduled", len(res.Scheduled)),
		logging.Int("created", len(res.Created)))
}

// RenewalBatchHandler runs queued renewal transitions as the job actor.
type RenewalBatchHandler struct {
	renewals app.RenewalService
	logger   logging.Logger
}

func NewRenewalBatchHandler(renewals app.RenewalService, logger logging.Logger) *RenewalBatchHandler {
	return &RenewalBatchHandler{renewals: renewals, logger: logger.Named("renewal-batch")}
}

func (h *RenewalBatchHandler) Topic() string { return kafka.TopicRenewalBatch }

func (h *RenewalBatchHandler) Handle(ctx context.Context, msg *common.Message) error {
	var p kafka.RenewalBatchPayload
	if _, err := decode(msg, kafka.EventTypeRenewalBatch, &p); err != nil {
		return err
	}
	if p.JobID == "" {
		return errors.New(errors.ErrCodeValidation, "renewal batch has no job id")
	}

	actor := domain.JobActor(common.UserID(p.UserID), common.JobID(p.JobID))
	out, err := h.renewals.Transition(ctx, actor, p.Transition, p.TaskIDs)
	if err != nil {
		return err
	}
	h.logger.Info("renewal batch done",
		logging.String("job_id", p.JobID),
		logging.String("transition", p.Transition),
		logging.Int("requested", out.Requested),
		logging.Int("affected", out.Affected),
		logging.Int("skipped", len(out.Skipped)))
	return nil
}

var (
	_ Handler = (*EventRecordedHandler)(nil)
	_ Handler = (*RenewalBatchHandler)(nil)
)

//Personal.AI order the ending

package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/FJNU-NISA/WelcomeSystem/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	subject string
	data    []byte
}

// fakeMessageBus records published messages and replays subscriptions
type fakeMessageBus struct {
	sent       []sentMessage
	publishErr error
	handlers   map[string]func([]byte) error
}

func newFakeMessageBus() *fakeMessageBus {
	return &fakeMessageBus{handlers: make(map[string]func([]byte) error)}
}

func (b *fakeMessageBus) Publish(ctx context.Context, subject string, data []byte) error {
	if b.publishErr != nil {
		return b.publishErr
	}
	b.sent = append(b.sent, sentMessage{subject: subject, data: data})
	return nil
}

func (b *fakeMessageBus) Subscribe(subject string, handler func([]byte) error) error {
	b.handlers[subject] = handler
	return nil
}

func (b *fakeMessageBus) deliver(subject string, data []byte) error {
	return b.handlers[subject](data)
}

func TestNATSEventPublisher_PublishesEnvelope(t *testing.T) {
	bus := newFakeMessageBus()
	publisher := NewNATSEventPublisher(bus, NewEventSubjectMapper("levels.completed"))

	event := events.PrizeDrawnEvent{UserID: "2023001", PrizeID: 4, PrizeName: "Mug", Cost: 1}
	require.NoError(t, publisher.Publish(event))

	require.Len(t, bus.sent, 1)
	assert.Equal(t, "lottery.prize_drawn", bus.sent[0].subject)

	var envelope EventEnvelope
	require.NoError(t, json.Unmarshal(bus.sent[0].data, &envelope))
	assert.Equal(t, string(events.EventTypePrizeDrawn), envelope.EventType)
	assert.Equal(t, sourceService, envelope.SourceService)
	assert.NotEmpty(t, envelope.EventID)
	require.NotNil(t, envelope.Timestamp)

	var payload events.PrizeDrawnEvent
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, event, payload)
}

func TestNATSEventPublisher_LocalHandlersRunFirst(t *testing.T) {
	bus := newFakeMessageBus()
	publisher := NewNATSEventPublisher(bus, NewEventSubjectMapper("levels.completed"))

	var seen []events.EventType
	publisher.RegisterLocalHandler(events.EventTypePointsChanged, func(ctx context.Context, event events.Event) error {
		seen = append(seen, event.Type())
		return errors.New("ignored")
	})

	require.NoError(t, publisher.Publish(events.PointsChangedEvent{UserID: "2023001"}))
	require.NoError(t, publisher.Publish(events.PrizeDrawnEvent{UserID: "2023001"}))

	assert.Equal(t, []events.EventType{events.EventTypePointsChanged}, seen)
	assert.Len(t, bus.sent, 2, "a failing local handler does not block NATS")
}

func TestNATSEventPublisher_PublishErrors(t *testing.T) {
	t.Run("missing stream is ignored", func(t *testing.T) {
		bus := newFakeMessageBus()
		bus.publishErr = errors.New("nats: no response from stream")
		publisher := NewNATSEventPublisher(bus, NewEventSubjectMapper("levels.completed"))
		assert.NoError(t, publisher.Publish(events.PointsChangedEvent{}))
	})

	t.Run("other failures are returned", func(t *testing.T) {
		bus := newFakeMessageBus()
		bus.publishErr = errors.New("nats: connection closed")
		publisher := NewNATSEventPublisher(bus, NewEventSubjectMapper("levels.completed"))
		assert.Error(t, publisher.Publish(events.PointsChangedEvent{}))
	})
}

func TestEventSubjectMapper_RoundTrip(t *testing.T) {
	mapper := NewEventSubjectMapper("ctf.levels.completed")

	for _, eventType := range []events.EventType{
		events.EventTypePointsChanged,
		events.EventTypeLedgerEntryRevoked,
		events.EventTypePrizeDrawn,
		events.EventTypePrizePoolChanged,
		events.EventTypePrizeRedemptionToggled,
		events.EventTypeLevelCompletionReported,
	} {
		subject := mapper.MapEventTypeToSubject(eventType)
		assert.Equal(t, eventType, mapper.MapSubjectToEventType(subject), subject)
	}

	assert.Equal(t, "ctf.levels.completed", mapper.MapEventTypeToSubject(events.EventTypeLevelCompletionReported))
	assert.NotContains(t, mapper.GetAllSubjects(), "ctf.levels.completed", "inbound subjects are not ours to store")
}

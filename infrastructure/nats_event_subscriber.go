package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/FJNU-NISA/WelcomeSystem/domain/events"
	"github.com/FJNU-NISA/WelcomeSystem/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// MessageSubscriber delivers raw message bodies for a subject
type MessageSubscriber interface {
	Subscribe(subject string, handler func([]byte) error) error
}

// NATSEventSubscriber subscribes to NATS subjects and deserializes events for application handlers
type NATSEventSubscriber struct {
	client        MessageSubscriber
	subjectMapper *EventSubjectMapper
	handlers      map[string]LocalHandler
}

// NewNATSEventSubscriber creates a new NATS event subscriber
func NewNATSEventSubscriber(client MessageSubscriber, subjectMapper *EventSubjectMapper) *NATSEventSubscriber {
	return &NATSEventSubscriber{
		client:        client,
		subjectMapper: subjectMapper,
		handlers:      make(map[string]LocalHandler),
	}
}

// Subscribe registers a handler for a specific event type
func (s *NATSEventSubscriber) Subscribe(eventType events.EventType, handler LocalHandler) error {
	subject := s.subjectMapper.MapEventTypeToSubject(eventType)
	s.handlers[subject] = handler

	log.WithFields(log.Fields{
		"eventType": eventType,
		"subject":   subject,
	}).Info("Registering event handler for subject")

	return s.client.Subscribe(subject, func(data []byte) error {
		return s.handleMessage(subject, data)
	})
}

// handleMessage decodes a message and routes it to the subject's handler.
// Messages from other services may be bare payloads without an envelope.
func (s *NATSEventSubscriber) handleMessage(subject string, data []byte) error {
	eventType := s.subjectMapper.MapSubjectToEventType(subject)
	payload := data
	eventID := ""

	var envelope EventEnvelope
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.EventType != "" {
		eventType = events.EventType(envelope.EventType)
		payload = envelope.Payload
		eventID = envelope.EventID
	}
	observability.GetMetrics().RecordNATSMessageReceived(string(eventType))

	event, err := deserializeEvent(eventType, payload)
	if err != nil {
		log.WithFields(log.Fields{
			"subject":     subject,
			"eventType":   eventType,
			"eventId":     eventID,
			"error":       err,
			"payloadSize": len(payload),
		}).Error("Failed to deserialize event payload")
		// Redelivering a malformed message cannot succeed
		return fmt.Errorf("%w: failed to deserialize event payload: %v", ErrPermanent, err)
	}

	handler, exists := s.handlers[subject]
	if !exists {
		log.WithFields(log.Fields{
			"subject":   subject,
			"eventType": eventType,
		}).Warn("No handler registered for subject")
		return fmt.Errorf("no handler registered for subject %s", subject)
	}

	log.WithFields(log.Fields{
		"subject":   subject,
		"eventType": eventType,
		"eventId":   eventID,
	}).Debug("Calling event handler for NATS message")

	if err := handler(context.Background(), event); err != nil {
		log.WithFields(log.Fields{
			"subject":   subject,
			"eventType": eventType,
			"eventId":   eventID,
			"error":     err,
			"eventData": fmt.Sprintf("%+v", event),
		}).Error("Event handler failed")
		return err
	}

	return nil
}

// deserializeEvent decodes the payload of the inbound event types
func deserializeEvent(eventType events.EventType, payload []byte) (events.Event, error) {
	switch eventType {
	case events.EventTypeLevelCompletionReported:
		var event events.LevelCompletionReportedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		if event.UserID == "" || event.LevelID <= 0 {
			return nil, fmt.Errorf("level completion requires userId and levelId")
		}
		return event, nil
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
}

package infrastructure

import (
	"fmt"

	"github.com/FJNU-NISA/WelcomeSystem/domain/events"
)

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct {
	levelCompletionSubject string
}

// NewEventSubjectMapper creates a new event subject mapper. Level completions
// arrive on a subject owned by the level checker.
func NewEventSubjectMapper(levelCompletionSubject string) *EventSubjectMapper {
	return &EventSubjectMapper{levelCompletionSubject: levelCompletionSubject}
}

// MapEventTypeToSubject converts an event type to its NATS subject
func (m *EventSubjectMapper) MapEventTypeToSubject(eventType events.EventType) string {
	switch eventType {
	case events.EventTypePointsChanged:
		return "points.changed"
	case events.EventTypeLedgerEntryRevoked:
		return "points.revoked"
	case events.EventTypePrizeDrawn:
		return "lottery.prize_drawn"
	case events.EventTypePrizePoolChanged:
		return "prizes.pool_changed"
	case events.EventTypePrizeRedemptionToggled:
		return "prizes.redemption_toggled"
	case events.EventTypeLevelCompletionReported:
		return m.levelCompletionSubject
	default:
		return fmt.Sprintf("unknown.%s", eventType)
	}
}

// MapEventToSubject converts a domain event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	return m.MapEventTypeToSubject(event.Type())
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	switch subject {
	case "points.changed":
		return events.EventTypePointsChanged
	case "points.revoked":
		return events.EventTypeLedgerEntryRevoked
	case "lottery.prize_drawn":
		return events.EventTypePrizeDrawn
	case "prizes.pool_changed":
		return events.EventTypePrizePoolChanged
	case "prizes.redemption_toggled":
		return events.EventTypePrizeRedemptionToggled
	case m.levelCompletionSubject:
		return events.EventTypeLevelCompletionReported
	default:
		return events.EventType(subject)
	}
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"points.changed",
		"points.revoked",
		"lottery.prize_drawn",
		"prizes.pool_changed",
		"prizes.redemption_toggled",
	}
}

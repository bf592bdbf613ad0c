package stream

import (
	"encoding/json"

	"github.com/cradoe/timint/internal/lifecycle"
	"github.com/google/uuid"
)

// RegistrationCompletedTopic carries one message per approved registration.
// Consumers use it to send the congratulation email and record the audit
// trail entry without holding up the admin's request.
const RegistrationCompletedTopic = "registration.completed"

// RegistrationEvents publishes lifecycle events to Kafka.
type RegistrationEvents struct {
	stream *KafkaStream
}

func NewRegistrationEvents(stream *KafkaStream) *RegistrationEvents {
	return &RegistrationEvents{
		stream: stream,
	}
}

func (e *RegistrationEvents) RegistrationCompleted(event *lifecycle.RegistrationEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}

	message, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return e.stream.ProduceMessage(RegistrationCompletedTopic, string(message))
}

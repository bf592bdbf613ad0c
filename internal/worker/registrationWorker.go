package worker

import (
	"encoding/json"
	"log"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/cradoe/timint/internal/lifecycle"
	"github.com/cradoe/timint/internal/models"
	"github.com/cradoe/timint/internal/repository"
	"github.com/cradoe/timint/internal/stream"
)

const registrationEmailSentDescription = "Registration approval email sent"

// RegistrationWorker consumes registration.completed events and sends the
// applicant their approval email. The admin decision has already been
// committed by the time a message lands here, so every failure is log-only.
func (wk *Worker) RegistrationWorker() {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: registrationMailGroupID,
		Topic:   stream.RegistrationCompletedTopic,
	})

	if err != nil {
		log.Fatalf("Error creating consumer: %v", err)
	}
	for {
		event := consumer.Poll(100) // Poll every 100ms
		switch e := event.(type) {
		case *kafka.Message:
			message := e.Value
			log.Printf("Registration message received on %s: %s\n", e.TopicPartition, string(e.Value))

			var registration lifecycle.RegistrationEvent
			if err := json.Unmarshal(message, &registration); err != nil {
				log.Printf("Error decoding registration event: %v", err)
				continue
			}

			wk.notifyApplicant(&registration)
		case kafka.Error:
			log.Printf("Error: %v\n", e)
		default:
			// Handle other events if needed
		}
	}
}

func (wk *Worker) notifyApplicant(registration *lifecycle.RegistrationEvent) {
	emailData := map[string]any{
		"BaseURL":        wk.BaseURL,
		"TeenName":       registration.Name,
		"StartupName":    registration.CompanyName,
		"OwnershipToken": registration.OwnershipToken,
		"DashboardURL":   wk.BaseURL + "/dashboard",
	}

	err := wk.Mailer.Send(registration.Email, emailData, "registration-approved.tmpl")
	if err != nil {
		log.Printf("Error sending registration approval email: %v", err)
		return
	}

	// log operation
	go func() {
		_, err := wk.DB.Audit().Insert(&models.AuditLog{
			ApplicantID: registration.ApplicantID,
			Entity:      repository.AuditLogApplicantEntity,
			EntityId:    registration.ApplicantID,
			Description: registrationEmailSentDescription,
		})

		if err != nil {
			log.Printf("Error logging registration email action: %v", err)
		}
	}()
}

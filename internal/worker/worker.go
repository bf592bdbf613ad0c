package worker

import (
	"github.com/cradoe/timint/internal/repository"
	"github.com/cradoe/timint/internal/smtp"
	"github.com/cradoe/timint/internal/stream"
)

type Worker struct {
	KafkaStream *stream.KafkaStream
	DB          repository.Database
	Mailer      smtp.MailerInterface
	BaseURL     string
}

func New(wk *Worker) *Worker {
	return &Worker{
		KafkaStream: wk.KafkaStream,
		DB:          wk.DB,
		Mailer:      wk.Mailer,
		BaseURL:     wk.BaseURL,
	}
}

const (
	// registrationMailGroupID is used for workers that notify applicants when
	// their registration has been completed.
	registrationMailGroupID = "registration-mail-group"
)

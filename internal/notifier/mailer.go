package notifier

import (
	"context"

	"roomly/pkg/logger"
)

// Mail is a single notification addressed to one recipient.
type Mail struct {
	Recipient string
	Subject   string
	Body      string
}

// Mailer is the delivery boundary. The scheduling domain never depends
// on how mail actually leaves the system.
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

// logMailer writes notifications to the log instead of a mail
// provider. It stands in wherever real delivery is not configured.
type logMailer struct {
	log *logger.Logger
}

func NewLogMailer(log *logger.Logger) Mailer {
	return &logMailer{log: log}
}

func (m *logMailer) Send(_ context.Context, mail Mail) error {
	m.log.Info("Mail dispatched",
		"recipient", mail.Recipient,
		"subject", mail.Subject,
		"body", mail.Body,
	)
	return nil
}

package notifier

import (
	"context"
	"fmt"

	"roomly/internal/bookings/event"
	"roomly/pkg/kafka"
	"roomly/pkg/logger"
)

// Dispatcher consumes booking lifecycle events and turns each one into
// the mails it implies. Delivery errors are returned to the consumer,
// which retries transient failures and dead-letters the rest.
type Dispatcher struct {
	mailer Mailer
	log    *logger.Logger
}

func NewDispatcher(mailer Mailer, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		mailer: mailer,
		log:    log,
	}
}

// Handle is the kafka message handler for the lifecycle topic.
func (d *Dispatcher) Handle(ctx context.Context, msg kafka.Message) error {
	var ev event.Event
	if err := msg.DecodeValue(&ev); err != nil {
		return kafka.NewPermanentError("invalid event payload", err)
	}

	mails := d.mailsFor(ev)
	if len(mails) == 0 {
		d.log.Warn("No recipients for event, skipping",
			"event_type", ev.Type,
			"booking_id", ev.Booking.ID,
		)
		return nil
	}

	for _, mail := range mails {
		if err := d.mailer.Send(ctx, mail); err != nil {
			return kafka.NewTransientError("mail delivery failed", err)
		}
	}

	d.log.Debug("Event dispatched",
		"event_type", ev.Type,
		"booking_id", ev.Booking.ID,
		"mails", len(mails),
	)
	return nil
}

func (d *Dispatcher) mailsFor(ev event.Event) []Mail {
	b := ev.Booking
	window := fmt.Sprintf("%s – %s in room %s",
		b.StartTime.Format("Mon, 02 Jan 2006 15:04"),
		b.EndTime.Format("15:04"),
		b.RoomID,
	)
	if b.Description != "" {
		window = fmt.Sprintf("%s (%s)", window, b.Description)
	}

	switch ev.Type {
	case event.TypeApproved:
		return []Mail{{
			Recipient: b.RequesterID,
			Subject:   fmt.Sprintf("Booking approved: %s", b.Title),
			Body:      fmt.Sprintf("Your booking %q is confirmed for %s.", b.Title, window),
		}}

	case event.TypeRejected:
		return []Mail{{
			Recipient: b.RequesterID,
			Subject:   fmt.Sprintf("Booking rejected: %s", b.Title),
			Body:      fmt.Sprintf("Your booking %q for %s was rejected: %s", b.Title, window, ev.Reason),
		}}

	case event.TypeInvite:
		if ev.AttendeeID == "" {
			return nil
		}
		return []Mail{{
			Recipient: ev.AttendeeID,
			Subject:   fmt.Sprintf("Meeting invite: %s", b.Title),
			Body:      fmt.Sprintf("%s invited you to %q, %s.", b.RequesterID, b.Title, window),
		}}

	case event.TypeCancelledRequester:
		return []Mail{{
			Recipient: b.RequesterID,
			Subject:   fmt.Sprintf("Booking cancelled: %s", b.Title),
			Body:      fmt.Sprintf("Your booking %q for %s has been cancelled.", b.Title, window),
		}}

	case event.TypeCancelledAttendees:
		mails := make([]Mail, 0, len(ev.Attendees))
		for _, attendee := range ev.Attendees {
			mails = append(mails, Mail{
				Recipient: attendee,
				Subject:   fmt.Sprintf("Meeting cancelled: %s", b.Title),
				Body:      fmt.Sprintf("The meeting %q scheduled for %s was cancelled.", b.Title, window),
			})
		}
		return mails

	case event.TypeUpdated:
		mails := make([]Mail, 0, len(ev.Attendees))
		for _, attendee := range ev.Attendees {
			mails = append(mails, Mail{
				Recipient: attendee,
				Subject:   fmt.Sprintf("Meeting updated: %s", b.Title),
				Body:      fmt.Sprintf("The meeting %q has changed, now %s.", b.Title, window),
			})
		}
		return mails

	default:
		d.log.Warn("Unknown event type", "event_type", ev.Type)
		return nil
	}
}

package event

import (
	"context"
	"strconv"
	"time"

	"roomly/pkg/kafka"
	"roomly/pkg/model"
)

// Lifecycle event types published on the booking events topic.
const (
	TypeApproved           = "booking.approved"
	TypeRejected           = "booking.rejected"
	TypeInvite             = "booking.invite"
	TypeCancelledRequester = "booking.cancelled.requester"
	TypeCancelledAttendees = "booking.cancelled.attendees"
	TypeUpdated            = "booking.updated"
)

// Snapshot carries the booking fields notification consumers need.
// It is a copy taken at decision time, not a reference to live state.
type Snapshot struct {
	ID          int64     `json:"id"`
	RoomID      string    `json:"room_id"`
	RequesterID string    `json:"requester_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	AttendeeIDs []string  `json:"attendee_ids,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Status      string    `json:"status"`
}

type Event struct {
	Type    string   `json:"type"`
	Booking Snapshot `json:"booking"`

	// Reason is set on rejection events.
	Reason string `json:"reason,omitempty"`

	// AttendeeID is set on invite events, one event per attendee.
	AttendeeID string `json:"attendee_id,omitempty"`

	// Attendees is set on events addressed to a group of attendees.
	Attendees []string `json:"attendees,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// NewSnapshot copies the notification-relevant fields of a booking.
func NewSnapshot(b *model.Booking) Snapshot {
	attendees := make([]string, len(b.AttendeeIDs))
	copy(attendees, b.AttendeeIDs)
	return Snapshot{
		ID:          b.ID,
		RoomID:      b.RoomID,
		RequesterID: b.RequesterID,
		Title:       b.Title,
		Description: b.Description,
		AttendeeIDs: attendees,
		StartTime:   b.StartTime,
		EndTime:     b.EndTime,
		Status:      string(b.Status),
	}
}

// Publisher delivers lifecycle events to interested consumers.
// Delivery is best-effort from the caller's point of view: a failed
// publish must never undo the booking decision it describes.
type Publisher interface {
	Publish(ctx context.Context, events []Event) error
}

type kafkaPublisher struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *kafka.Producer, topic string) Publisher {
	return &kafkaPublisher{producer: producer, topic: topic}
}

// Publish sends each event keyed by booking ID so all events for one
// booking land on the same partition in order.
func (p *kafkaPublisher) Publish(ctx context.Context, events []Event) error {
	for _, ev := range events {
		msg := kafka.NewMessage().
			WithKey(strconv.FormatInt(ev.Booking.ID, 10)).
			WithValue(ev).
			WithEventType(ev.Type).
			WithSource("bookings").
			Build()
		msg.Topic = p.topic
		if err := p.producer.Publish(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

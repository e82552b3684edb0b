package events

import (
	"context"
	"fmt"
	"time"

	"barberdesk/pkg/kafka"
	"barberdesk/pkg/model"
)

const (
	EventSlotsSaved               = "slots.saved"
	EventAppointmentStatusChanged = "appointment.status_changed"

	SchemaVersion = "1"
	Source        = "agenda"
)

// Publisher announces agenda changes to other services.
type Publisher interface {
	SlotsSaved(ctx context.Context, report *model.SaveReport) error
	AppointmentStatusChanged(ctx context.Context, subject string, appt *model.Appointment, from model.AppointmentStatus) error
	Close() error
}

type SlotsSavedEvent struct {
	ReportID   string    `json:"report_id"`
	Subject    string    `json:"subject"`
	Date       string    `json:"date"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	FailedIDs  []int64   `json:"failed_ids,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type AppointmentStatusChangedEvent struct {
	AppointmentID int64                   `json:"appointment_id"`
	Subject       string                  `json:"subject"`
	Time          time.Time               `json:"time"`
	From          model.AppointmentStatus `json:"from"`
	To            model.AppointmentStatus `json:"to"`
	OccurredAt    time.Time               `json:"occurred_at"`
}

// MessagePublisher is implemented by *kafka.Producer.
type MessagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	producer MessagePublisher
	now      func() time.Time
}

func NewKafkaPublisher(producer MessagePublisher) Publisher {
	return &kafkaPublisher{producer: producer, now: time.Now}
}

func (p *kafkaPublisher) SlotsSaved(ctx context.Context, report *model.SaveReport) error {
	return p.publish(ctx, EventSlotsSaved, report.Subject, report.ID, &SlotsSavedEvent{
		ReportID:   report.ID,
		Subject:    report.Subject,
		Date:       report.Date,
		Succeeded:  report.Succeeded,
		Failed:     report.Failed,
		FailedIDs:  report.FailedIDs(),
		OccurredAt: p.now().UTC(),
	})
}

func (p *kafkaPublisher) AppointmentStatusChanged(ctx context.Context, subject string, appt *model.Appointment, from model.AppointmentStatus) error {
	return p.publish(ctx, EventAppointmentStatusChanged, subject, "", &AppointmentStatusChangedEvent{
		AppointmentID: appt.ID,
		Subject:       subject,
		Time:          appt.Time.UTC(),
		From:          from,
		To:            appt.Status,
		OccurredAt:    p.now().UTC(),
	})
}

func (p *kafkaPublisher) publish(ctx context.Context, eventType, key, correlationID string, payload any) error {
	msg, err := kafka.NewMessage().
		WithKey(key).
		WithValue(payload).
		WithEventType(eventType).
		WithCorrelationID(correlationID).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		Build()
	if err != nil {
		return fmt.Errorf("build %s event: %w", eventType, err)
	}

	if err := p.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

// NopPublisher drops every event. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) SlotsSaved(context.Context, *model.SaveReport) error { return nil }

func (NopPublisher) AppointmentStatusChanged(context.Context, string, *model.Appointment, model.AppointmentStatus) error {
	return nil
}

func (NopPublisher) Close() error { return nil }

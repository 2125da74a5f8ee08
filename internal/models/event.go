package models

import "time"

// EventTypeAppointmentCreated is the event type stamped on published
// appointment events.
const EventTypeAppointmentCreated = "appointments.created"

// Notify carries the per-channel delivery flags of an appointment event.
type Notify struct {
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
}

// Appointment is the appointment section of the wire payload.
type Appointment struct {
	AppointmentID string `json:"appointment_id"`
	UserID        string `json:"user_id"`
	Time          string `json:"time"`
	Email         string `json:"email,omitempty"`
	PhoneE164     string `json:"phone_e164,omitempty"`
}

// AppointmentCreated is the typed form of the appointments.created wire
// payload. Consumers never decode into it; they normalize the untyped map so
// that malformed payloads can still be dead-lettered verbatim.
type AppointmentCreated struct {
	EventID     string      `json:"event_id"`
	EventType   string      `json:"event_type,omitempty"`
	OccurredAt  *time.Time  `json:"occurred_at,omitempty"`
	Notify      Notify      `json:"notify"`
	Appointment Appointment `json:"appointment"`
}

// NormalizedEvent is the validated internal representation of an
// appointments.created event. EventID and AppointmentID are never empty.
// Email and PhoneE164 are empty when the payload did not carry them.
type NormalizedEvent struct {
	EventID         string `json:"event_id"`
	AppointmentID   string `json:"appointment_id"`
	UserID          string `json:"user_id"`
	AppointmentTime string `json:"appointment_time"`
	Email           string `json:"email,omitempty"`
	PhoneE164       string `json:"phone_e164,omitempty"`
	NotifyEmail     bool   `json:"notify_email"`
	NotifySMS       bool   `json:"notify_sms"`
}

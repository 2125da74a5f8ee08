package notify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ajayykmr/notifications-service/internal/models"
)

// Normalize maps a transport-shaped payload into a NormalizedEvent. It fails
// with a *ValidationError when event_id or appointment.appointment_id is
// missing or blank. Every other field degrades to its zero value.
func Normalize(raw map[string]any) (models.NormalizedEvent, error) {
	appointment, err := objectField(raw, "appointment")
	if err != nil {
		return models.NormalizedEvent{}, err
	}
	notifyFlags, err := objectField(raw, "notify")
	if err != nil {
		return models.NormalizedEvent{}, err
	}

	eventID, err := requiredString(raw["event_id"], "event_id")
	if err != nil {
		return models.NormalizedEvent{}, err
	}
	appointmentID, err := requiredString(appointment["appointment_id"], "appointment.appointment_id")
	if err != nil {
		return models.NormalizedEvent{}, err
	}

	return models.NormalizedEvent{
		EventID:         eventID,
		AppointmentID:   appointmentID,
		UserID:          stringOrEmpty(appointment["user_id"]),
		AppointmentTime: stringOrEmpty(appointment["time"]),
		Email:           optionalString(appointment["email"]),
		PhoneE164:       optionalString(appointment["phone_e164"]),
		NotifyEmail:     truthy(notifyFlags["email"]),
		NotifySMS:       truthy(notifyFlags["sms"]),
	}, nil
}

// objectField returns the nested object stored under key. A missing or falsy
// value (null, false, 0, "", [], {}) yields an empty object; any other
// non-object value is rejected.
func objectField(raw map[string]any, key string) (map[string]any, error) {
	value, ok := raw[key]
	if !ok || !truthy(value) {
		return map[string]any{}, nil
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, notAnObject(key)
	}
	return obj, nil
}

func requiredString(value any, field string) (string, error) {
	text := strings.TrimSpace(stringOrEmpty(value))
	if text == "" {
		return "", missingField(field)
	}
	return text, nil
}

func optionalString(value any) string {
	return strings.TrimSpace(stringOrEmpty(value))
}

func stringOrEmpty(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case json.Number:
		f, err := v.Float64()
		return err != nil || f != 0
	case float64:
		return v != 0
	case int:
		return v != 0
	case map[string]any:
		return len(v) > 0
	case []any:
		return len(v) > 0
	default:
		return true
	}
}

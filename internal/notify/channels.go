package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/ajayykmr/notifications-service/internal/models"
)

var errNoSender = errors.New("no sender configured")

// DecideEmail applies the email channel rules to event and, when the channel
// is requested and an address is present, sends through sender.
func DecideEmail(ctx context.Context, event models.NormalizedEvent, sender EmailSender) models.ChannelResult {
	if !event.NotifyEmail {
		return notRequested(models.ChannelEmail)
	}
	if event.Email == "" {
		return failed(models.ChannelEmail, "notify.email=true but appointment.email is missing")
	}

	subject := fmt.Sprintf("Appointment confirmed: %s", event.AppointmentTime)
	body := fmt.Sprintf("Appointment %s is confirmed for %s.", event.AppointmentID, event.AppointmentTime)

	err := invoke(func() error {
		if sender == nil {
			return errNoSender
		}
		return sender.SendEmail(ctx, event.Email, subject, body)
	})
	if err != nil {
		return failed(models.ChannelEmail, err.Error())
	}
	return sent(models.ChannelEmail)
}

// DecideSMS applies the SMS channel rules to event and, when the channel is
// requested and a phone number is present, sends through sender.
func DecideSMS(ctx context.Context, event models.NormalizedEvent, sender SMSSender) models.ChannelResult {
	if !event.NotifySMS {
		return notRequested(models.ChannelSMS)
	}
	if event.PhoneE164 == "" {
		return failed(models.ChannelSMS, "notify.sms=true but appointment.phone_e164 is missing")
	}

	message := fmt.Sprintf("Appointment %s confirmed for %s.", event.AppointmentID, event.AppointmentTime)

	err := invoke(func() error {
		if sender == nil {
			return errNoSender
		}
		return sender.SendSMS(ctx, event.PhoneE164, message)
	})
	if err != nil {
		return failed(models.ChannelSMS, err.Error())
	}
	return sent(models.ChannelSMS)
}

// invoke runs send and converts a panic into an error so one misbehaving
// sender cannot take the other channel down with it.
func invoke(send func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panicked: %v", r)
		}
	}()
	return send()
}

func notRequested(ch models.Channel) models.ChannelResult {
	return models.ChannelResult{Channel: ch, Requested: false, Success: true}
}

func sent(ch models.Channel) models.ChannelResult {
	return models.ChannelResult{Channel: ch, Requested: true, Success: true}
}

func failed(ch models.Channel, reason string) models.ChannelResult {
	return models.ChannelResult{Channel: ch, Requested: true, Success: false, Error: reason}
}

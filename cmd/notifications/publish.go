package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajayykmr/notifications-service/internal/config"
	kafkafactory "github.com/ajayykmr/notifications-service/internal/kafka/factory"
	"github.com/ajayykmr/notifications-service/internal/kafka/publisher"
	"github.com/ajayykmr/notifications-service/internal/logger"
	"github.com/ajayykmr/notifications-service/internal/models"
	"github.com/ajayykmr/notifications-service/internal/util"
)

type publishOptions struct {
	email         string
	phone         string
	notifySMS     bool
	eventID       string
	appointmentID string
	userID        string
	time          string
	topic         string
}

func newPublishCmd() *cobra.Command {
	opts := publishOptions{}
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish one appointments.created event for testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			event, err := buildEvent(opts, time.Now().UTC())
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			base, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
			if err != nil {
				return err
			}

			topic := opts.topic
			if topic == "" {
				topic = cfg.Kafka.Topic
			}

			prod, err := kafkafactory.NewProducer(cfg.Kafka, logger.Component(*base, "kafka_producer"))
			if err != nil {
				return err
			}
			defer prod.Close()

			pub := publisher.NewEventPublisher(prod, topic, logger.Component(*base, "event_publisher"))
			delivery, err := pub.PublishAppointmentCreated(cmd.Context(), event)
			if err != nil {
				return err
			}

			printPublished(cmd.OutOrStdout(), delivery.Topic, delivery.Partition, delivery.Offset, event)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.email, "email", "", "Recipient email for the appointment event")
	flags.StringVar(&opts.phone, "phone-e164", "", "Phone in E.164 format (required with --notify-sms)")
	flags.BoolVar(&opts.notifySMS, "notify-sms", false, "Set notify.sms=true in the published event")
	flags.StringVar(&opts.eventID, "event-id", "", "Event id (default: generated)")
	flags.StringVar(&opts.appointmentID, "appointment-id", "", "Appointment id (default: generated)")
	flags.StringVar(&opts.userID, "user-id", "user-demo-1", "User id for the event payload")
	flags.StringVar(&opts.time, "time", "", "Appointment time as RFC 3339 (default: now, UTC)")
	flags.StringVar(&opts.topic, "topic", "", "Override the topic (default: KAFKA_TOPIC_APPOINTMENTS_CREATED)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func buildEvent(opts publishOptions, now time.Time) (models.AppointmentCreated, error) {
	email, err := util.NormalizeEmail(opts.email)
	if err != nil {
		return models.AppointmentCreated{}, err
	}

	var phone string
	if opts.phone != "" {
		phone, err = util.NormalizePhone(opts.phone)
		if err != nil {
			return models.AppointmentCreated{}, err
		}
	}
	if opts.notifySMS && phone == "" {
		return models.AppointmentCreated{}, errors.New("--phone-e164 is required when --notify-sms is enabled")
	}

	appointmentTime := now.Format(time.RFC3339Nano)
	if opts.time != "" {
		ts, err := util.ParseRFC3339(opts.time)
		if err != nil {
			return models.AppointmentCreated{}, err
		}
		appointmentTime = ts.Format(time.RFC3339Nano)
	}

	eventID := opts.eventID
	if eventID == "" {
		eventID = util.NewEventID()
	}
	appointmentID := opts.appointmentID
	if appointmentID == "" {
		appointmentID = util.NewAppointmentID()
	}

	occurredAt := now
	return models.AppointmentCreated{
		EventID:    eventID,
		EventType:  models.EventTypeAppointmentCreated,
		OccurredAt: &occurredAt,
		Notify: models.Notify{
			Email: true,
			SMS:   opts.notifySMS,
		},
		Appointment: models.Appointment{
			AppointmentID: appointmentID,
			UserID:        opts.userID,
			Time:          appointmentTime,
			Email:         email,
			PhoneE164:     phone,
		},
	}, nil
}

func printPublished(out io.Writer, topic string, partition int32, offset int64, event models.AppointmentCreated) {
	fmt.Fprintln(out, "[PUBLISHED]")
	fmt.Fprintf(out, "topic=%s\n", topic)
	fmt.Fprintf(out, "partition=%d\n", partition)
	fmt.Fprintf(out, "offset=%d\n", offset)
	fmt.Fprintf(out, "event_id=%s\n", event.EventID)
	fmt.Fprintf(out, "notify.email=%t notify.sms=%t\n", event.Notify.Email, event.Notify.SMS)
}

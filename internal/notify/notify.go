// Package notify delivers "reservation created" events to downstream
// consumers (guest messaging, housekeeping).
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/example/bookingsync/internal/reconcile"
	"github.com/example/bookingsync/internal/reservation"
)

const (
	entityReservation = "reservation"
	actionCreated     = "created"
)

// Event is the envelope published for each created reservation.
type Event struct {
	ID         string                  `json:"id"`
	Entity     string                  `json:"entity"`
	Action     string                  `json:"action"`
	ResourceID string                  `json:"resourceId"`
	Topic      string                  `json:"topic"`
	Metadata   map[string]string       `json:"metadata"`
	Data       reservation.Reservation `json:"data"`
	Timestamp  time.Time               `json:"timestamp"`
}

func newEvent(r reservation.Reservation) Event {
	return Event{
		ID:         uuid.NewString(),
		Entity:     entityReservation,
		Action:     actionCreated,
		ResourceID: strconv.FormatInt(r.ID, 10),
		Topic:      entityReservation + "." + actionCreated,
		Metadata: map[string]string{
			"platform":          r.Platform,
			"booking_reference": r.BookingReference,
		},
		Data:      r,
		Timestamp: time.Now().UTC(),
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes events keyed by platform/reference so every event for one
// booking lands on the same partition.
type Kafka struct {
	w messageWriter
}

func NewKafka(brokers []string, topic string) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	if topic == "" {
		return nil, errors.New("kafka: topic is required")
	}
	return &Kafka{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
	}}, nil
}

func (k *Kafka) ReservationCreated(ctx context.Context, r reservation.Reservation) error {
	ev := newEvent(r)
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(r.Platform + "/" + r.BookingReference),
		Value: b,
		Headers: []kafka.Header{
			{Key: "event-id", Value: []byte(ev.ID)},
			{Key: "event-type", Value: []byte(ev.Topic)},
		},
	}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish %s: %w", ev.ID, err)
	}
	slog.Debug("reservation event published", slog.String("event_id", ev.ID), slog.Int64("id", r.ID))
	return nil
}

func (k *Kafka) Close() error { return k.w.Close() }

// Log writes the event to the structured log. Used when no broker is set.
type Log struct {
	Logger *slog.Logger
}

func (l Log) ReservationCreated(_ context.Context, r reservation.Reservation) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("reservation created",
		slog.Int64("id", r.ID),
		slog.String("platform", r.Platform),
		slog.String("ref", r.BookingReference),
		slog.String("status", string(r.Status)),
		slog.String("checkin", r.CheckinDate),
	)
	return nil
}

var (
	_ reconcile.Notifier = (*Kafka)(nil)
	_ reconcile.Notifier = Log{}
)

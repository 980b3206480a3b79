package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/example/bookingsync/internal/reservation"
)

type captureWriter struct {
	msgs []kafka.Message
	err  error
}

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	c.msgs = append(c.msgs, msgs...)
	return c.err
}

func (c *captureWriter) Close() error { return nil }

func TestKafkaPublishesCreatedEvent(t *testing.T) {
	w := &captureWriter{}
	k := &Kafka{w: w}
	r := reservation.Reservation{ID: 42, Platform: "airbnb", BookingReference: "ABC123", Status: reservation.StatusConfirmed}

	if err := k.ReservationCreated(context.Background(), r); err != nil {
		t.Fatalf("ReservationCreated: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "airbnb/ABC123" {
		t.Fatalf("unexpected key %q", msg.Key)
	}
	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.ID == "" || ev.Topic != "reservation.created" || ev.ResourceID != "42" || ev.Data.BookingReference != "ABC123" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestKafkaPublishError(t *testing.T) {
	k := &Kafka{w: &captureWriter{err: errors.New("no leader")}}
	if err := k.ReservationCreated(context.Background(), reservation.Reservation{ID: 1}); err == nil {
		t.Fatalf("expected publish error")
	}
}

func TestNewKafkaValidates(t *testing.T) {
	if _, err := NewKafka(nil, "t"); err == nil {
		t.Fatalf("expected broker validation")
	}
	if _, err := NewKafka([]string{"localhost:9092"}, ""); err == nil {
		t.Fatalf("expected topic validation")
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := Log{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	if err := n.ReservationCreated(context.Background(), reservation.Reservation{ID: 9, BookingReference: "R9"}); err != nil {
		t.Fatalf("ReservationCreated: %v", err)
	}
	if !strings.Contains(buf.String(), "ref=R9") {
		t.Fatalf("unexpected log %q", buf.String())
	}
}

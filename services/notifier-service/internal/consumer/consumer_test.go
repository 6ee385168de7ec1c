package consumer

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeInbox struct {
	claimed map[string]bool
	forgets int
}

func newFakeInbox() *fakeInbox {
	return &fakeInbox{claimed: map[string]bool{}}
}

func (f *fakeInbox) Record(_ context.Context, eventID, _ string) (bool, error) {
	if f.claimed[eventID] {
		return false, nil
	}
	f.claimed[eventID] = true
	return true, nil
}

func (f *fakeInbox) Forget(_ context.Context, eventID string) error {
	delete(f.claimed, eventID)
	f.forgets++
	return nil
}

func testMessage(id string) kafka.Message {
	return kafka.Message{
		Topic: "clinic.patient.created.v1",
		Value: []byte(`{"patient_id":"p-1","name":"Maria Silva"}`),
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(id)},
			{Key: "event_type", Value: []byte("clinic.patient.created.v1")},
		},
	}
}

func testConsumer(ib Inbox, handler Handler) *Consumer {
	return &Consumer{
		logger:     slog.Default(),
		inbox:      ib,
		handler:    handler,
		retryDelay: time.Millisecond,
	}
}

func TestProcessWithRetryRetriesSameMessage(t *testing.T) {
	ib := newFakeInbox()
	attempts := 0
	c := testConsumer(ib, func(context.Context, kafka.Message) error {
		attempts++
		if attempts < 3 {
			return errors.New("db unavailable")
		}
		return nil
	})

	if !c.processWithRetry(context.Background(), testMessage("evt-1")) {
		t.Fatal("expected retry loop to succeed")
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	// Each failure must release the dedupe claim or the retry would be
	// ignored as a duplicate.
	if ib.forgets != 2 {
		t.Fatalf("expected 2 forgets, got %d", ib.forgets)
	}
	if !ib.claimed["evt-1"] {
		t.Fatal("expected event claimed after success")
	}
}

func TestProcessWithRetryStopsOnContextDone(t *testing.T) {
	ib := newFakeInbox()
	c := testConsumer(ib, func(context.Context, kafka.Message) error {
		return errors.New("always failing")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if c.processWithRetry(ctx, testMessage("evt-2")) {
		t.Fatal("expected false with cancelled context")
	}
	if ib.claimed["evt-2"] {
		t.Fatal("expected claim released after failure")
	}
}

func TestProcessDropsDuplicates(t *testing.T) {
	ib := newFakeInbox()
	handled := 0
	c := testConsumer(ib, func(context.Context, kafka.Message) error {
		handled++
		return nil
	})

	msg := testMessage("evt-3")
	if !c.process(context.Background(), msg) {
		t.Fatal("first delivery should process")
	}
	if !c.process(context.Background(), msg) {
		t.Fatal("duplicate delivery should be acknowledged")
	}
	if handled != 1 {
		t.Fatalf("expected handler to run once, ran %d times", handled)
	}
}

package main

import (
	"context"
	"errors"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/paypadi/wallet-backend/pkg/config"
	"github.com/paypadi/wallet-backend/pkg/db/models"
	"github.com/paypadi/wallet-backend/pkg/enums"
	"github.com/paypadi/wallet-backend/pkg/logger"
)

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID

	lastLimit       int
	lastMaxAttempts int
}

func (f *fakeRepo) FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	f.lastLimit = limit
	f.lastMaxAttempts = maxAttempts
	events := f.events
	f.events = nil
	return events, nil
}

func (f *fakeRepo) MarkPublished(id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailed(id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "server-id", nil
}

type fakePublisher struct {
	results  []publishResult
	messages []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	if len(f.results) == 0 {
		return fakePublishResult{}
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher) *Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.Outbox.BatchSize = 10
	cfg.Outbox.MaxAttempts = 5
	cfg.Outbox.PollIntervalMS = 10

	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logger.New(logger.Options{ServiceName: "outbox-test"}),
		Repository: repo,
		Publisher:  pub,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return service
}

func walletEvent(id uuid.UUID) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            id,
		EventType:     enums.EventTransferCompleted,
		AggregateType: enums.AggregateLedgerEntry,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"amount_minor":100}`),
	}
}

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	first := uuid.New()
	second := uuid.New()
	repo := &fakeRepo{events: []models.OutboxEvent{walletEvent(first), walletEvent(second)}}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
			fakePublishResult{},
		},
	}
	service := newTestService(t, repo, pub)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(repo.failed); got != 1 {
		t.Fatalf("unexpected number of failed rows: %d", got)
	}
	if got := len(repo.published); got != 1 {
		t.Fatalf("unexpected number of published rows: %d", got)
	}
	if repo.failed[0] != first {
		t.Fatalf("failed row recorded wrong ID")
	}
	if repo.published[0] != second {
		t.Fatalf("published row recorded wrong ID")
	}
	if repo.lastLimit != 10 || repo.lastMaxAttempts != 5 {
		t.Fatalf("fetch used limit=%d maxAttempts=%d", repo.lastLimit, repo.lastMaxAttempts)
	}
}

func TestServicePublishAttachesEventAttributes(t *testing.T) {
	eventID := uuid.New()
	repo := &fakeRepo{events: []models.OutboxEvent{walletEvent(eventID)}}
	pub := &fakePublisher{}
	service := newTestService(t, repo, pub)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(pub.messages))
	}

	msg := pub.messages[0]
	if msg.Attributes["event_id"] != eventID.String() {
		t.Fatalf("event_id attribute = %q", msg.Attributes["event_id"])
	}
	if msg.Attributes["event_type"] != string(enums.EventTransferCompleted) {
		t.Fatalf("event_type attribute = %q", msg.Attributes["event_type"])
	}
	if string(msg.Data) != `{"amount_minor":100}` {
		t.Fatalf("payload not forwarded: %s", msg.Data)
	}
}

func TestServiceProcessBatchEmptyQueue(t *testing.T) {
	repo := &fakeRepo{}
	service := newTestService(t, repo, &fakePublisher{})

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if processed {
		t.Fatalf("expected no work")
	}
}

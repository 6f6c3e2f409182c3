package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paypadi/wallet-backend/pkg/logger"
)

type fakeRetentionRepo struct {
	lastCutoff time.Time
	deleted    int64
	err        error
}

func (f *fakeRetentionRepo) DeleteOldPublished(cutoff time.Time) (int64, error) {
	f.lastCutoff = cutoff
	return f.deleted, f.err
}

func TestOutboxRetentionUsesConfiguredWindow(t *testing.T) {
	repo := &fakeRetentionRepo{deleted: 4}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "cron-test"}),
		Repository: repo,
		Retention:  7,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	typed := job.(*outboxRetentionJob)
	frozen := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	typed.now = func() time.Time { return frozen }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	wantCutoff := frozen.Add(-7 * 24 * time.Hour)
	if !repo.lastCutoff.Equal(wantCutoff) {
		t.Fatalf("cutoff = %v, want %v", repo.lastCutoff, wantCutoff)
	}
}

func TestOutboxRetentionDefaultsTo30Days(t *testing.T) {
	repo := &fakeRetentionRepo{}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "cron-test"}),
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	typed := job.(*outboxRetentionJob)
	frozen := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	typed.now = func() time.Time { return frozen }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	wantCutoff := frozen.Add(-30 * 24 * time.Hour)
	if !repo.lastCutoff.Equal(wantCutoff) {
		t.Fatalf("cutoff = %v, want %v", repo.lastCutoff, wantCutoff)
	}
}

func TestOutboxRetentionPropagatesError(t *testing.T) {
	repo := &fakeRetentionRepo{err: errors.New("db down")}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "cron-test"}),
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected repository error to propagate")
	}
}

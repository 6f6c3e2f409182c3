package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paypadi/wallet-backend/pkg/config"
	"github.com/paypadi/wallet-backend/pkg/logger"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	HealthLive(cfg).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get(envHeader); got != "test" {
		t.Fatalf("expected env header %q, got %q", "test", got)
	}
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	makeRequest := func(dbP, redisP pinger) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
		rec := httptest.NewRecorder()
		HealthReady(cfg, logg, dbP, redisP).ServeHTTP(rec, req)
		return rec
	}

	t.Run("ready", func(t *testing.T) {
		rec := makeRequest(stubPinger{}, stubPinger{})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("database down", func(t *testing.T) {
		rec := makeRequest(stubPinger{err: errors.New("connection refused")}, stubPinger{})
		if rec.Code == http.StatusOK {
			t.Fatalf("expected failure status when database is down")
		}
	})

	t.Run("redis down", func(t *testing.T) {
		rec := makeRequest(stubPinger{}, stubPinger{err: errors.New("connection refused")})
		if rec.Code == http.StatusOK {
			t.Fatalf("expected failure status when redis is down")
		}
	})
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestReadyHidesDependencyErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	checks := map[string]Pinger{
		"postgres": pingFunc(func(context.Context) error {
			return errors.New("dial tcp 10.0.0.7:5432: connect: connection refused")
		}),
		"redis": pingFunc(func(context.Context) error { return nil }),
	}
	app := fiber.New()
	app.Get("/health/ready", NewHealthHandler("user-service", "test", checks, zap.New(core)).Ready)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	if strings.Contains(string(raw), "10.0.0.7") || strings.Contains(string(raw), "refused") {
		t.Fatalf("response leaks dependency error: %s", raw)
	}

	var body struct {
		Error struct {
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	if got := body.Error.Details["postgres"]; got != "unavailable" {
		t.Errorf("postgres = %q, want unavailable", got)
	}
	if got := body.Error.Details["redis"]; got != "ok" {
		t.Errorf("redis = %q, want ok", got)
	}

	entries := logs.FilterField(zap.String("dependency", "postgres")).All()
	if len(entries) != 1 || !strings.Contains(entries[0].ContextMap()["error"].(string), "10.0.0.7") {
		t.Errorf("expected the failure detail in the log, got %+v", entries)
	}
}

func TestReadyAllHealthy(t *testing.T) {
	app := fiber.New()
	checks := map[string]Pinger{"redis": pingFunc(func(context.Context) error { return nil })}
	app.Get("/health/ready", NewHealthHandler("user-service", "test", checks, nil).Ready)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

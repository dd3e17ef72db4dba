package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/listing-explorer/pkg/adapters/datasource"
	"github.com/ekaya-inc/listing-explorer/pkg/config"
	"github.com/ekaya-inc/listing-explorer/pkg/models"
)

func TestHealthHandler_Health_WithoutSessionManager(t *testing.T) {
	cfg := &config.Config{
		Version: "test-version",
		Env:     "test",
	}
	handler := NewHealthHandler(cfg, nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handler.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", response.Status)
	}
	if response.Sessions != nil {
		t.Error("expected nil sessions when session manager not provided")
	}
}

func TestHealthHandler_Health_WithSessionManager(t *testing.T) {
	cfg := &config.Config{
		Version: "test-version",
		Env:     "test",
	}

	sessions := datasource.NewSessionManager(datasource.SessionManagerConfig{
		TTLMinutes:      5,
		CleanupInterval: time.Hour,
	}, &seededOpener{}, zap.NewNop())
	defer sessions.Close()

	_, err := sessions.Connect(context.Background(), "browser-1", models.ConnectionDescriptor{Identifier: "duckdb:"})
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	handler := NewHealthHandler(cfg, sessions, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handler.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Sessions == nil {
		t.Fatal("expected non-nil sessions when session manager provided")
	}
	if response.Sessions.ActiveSessions != 1 {
		t.Errorf("expected 1 active session, got %d", response.Sessions.ActiveSessions)
	}
	if response.Sessions.SessionsByBackend[models.BackendDuckDB] != 1 {
		t.Errorf("expected 1 duckdb session, got %v", response.Sessions.SessionsByBackend)
	}
	if response.Sessions.TTLMinutes != 5 {
		t.Errorf("expected TTL 5 minutes, got %d", response.Sessions.TTLMinutes)
	}
}

func TestHealthHandler_Ping(t *testing.T) {
	cfg := &config.Config{
		Version: "1.2.3",
		Env:     "test",
	}
	handler := NewHealthHandler(cfg, nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()

	handler.Ping(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response PingResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", response.Status)
	}
	if response.Version != "1.2.3" {
		t.Errorf("expected version '1.2.3', got '%s'", response.Version)
	}
	if response.Service != "listing-explorer" {
		t.Errorf("expected service 'listing-explorer', got '%s'", response.Service)
	}
	if response.Environment != "test" {
		t.Errorf("expected environment 'test', got '%s'", response.Environment)
	}
	if response.GoVersion == "" {
		t.Error("expected non-empty go_version")
	}
	if response.Hostname == "" {
		t.Error("expected non-empty hostname")
	}
}

func TestHealthHandler_Metrics_WithoutSessionManager(t *testing.T) {
	cfg := &config.Config{
		Version: "test-version",
		Env:     "test",
	}
	handler := NewHealthHandler(cfg, nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	handler.Metrics(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
}

func TestHealthHandler_Metrics_WithSessionManager(t *testing.T) {
	cfg := &config.Config{
		Version: "test-version",
		Env:     "test",
	}
	sessions := datasource.NewSessionManager(datasource.SessionManagerConfig{TTLMinutes: 7}, &seededOpener{}, zap.NewNop())
	defer sessions.Close()

	handler := NewHealthHandler(cfg, sessions, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	handler.Metrics(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var stats datasource.SessionStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if stats.ActiveSessions != 0 {
		t.Errorf("expected 0 active sessions, got %d", stats.ActiveSessions)
	}
	if stats.TTLMinutes != 7 {
		t.Errorf("expected TTL 7 minutes, got %d", stats.TTLMinutes)
	}
}

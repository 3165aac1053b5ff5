package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHealthHandler_Liveness(t *testing.T) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

	if err := NewHealthHandler().Liveness(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHealthDependenciesHandler_Readiness(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     map[string]Check
		wantStatus int
		wantState  string
	}{
		{"no dependencies", nil, http.StatusOK, "ok"},
		{"all healthy", map[string]Check{"mongodb": ok, "redis": ok}, http.StatusOK, "ok"},
		{"redis down", map[string]Check{"mongodb": ok, "redis": down}, http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/health/ready", nil), rec)

			if err := NewHealthDependenciesHandler(tt.checks).Readiness(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body readinessResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tt.wantState {
				t.Errorf("status field = %q, want %q", body.Status, tt.wantState)
			}
			if dep, ok := body.Dependencies["redis"]; ok && tt.wantState == "degraded" && dep.Error == "" {
				t.Error("expected the failing dependency to carry its error")
			}
		})
	}
}

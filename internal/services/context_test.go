package services_test

import (
	"context"
	"testing"

	"wwfm/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRequestID(ctx, "req-123")
	ctx = services.WithRoute(ctx, "GET /episodes/{slug}")
	ctx = services.WithRunID(ctx, "run-1")

	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
	if route, ok := services.RouteFromContext(ctx); !ok || route != "GET /episodes/{slug}" {
		t.Fatalf("unexpected route: %v %v", route, ok)
	}
	if run, ok := services.RunIDFromContext(ctx); !ok || run != "run-1" {
		t.Fatalf("unexpected run id: %v %v", run, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRoute(ctx, "")
	if _, ok := services.RouteFromContext(ctx); ok {
		t.Fatal("expected no route value")
	}
}

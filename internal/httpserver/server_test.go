package httpserver

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"
)

func TestNewAppliesOptions(t *testing.T) {
	srv := New(8081, http.NotFoundHandler(), WithWriteTimeout(5*time.Minute))
	if srv.Addr() != ":8081" {
		t.Fatalf("unexpected addr %q", srv.Addr())
	}
	if srv.inner.WriteTimeout != 5*time.Minute {
		t.Fatalf("expected write timeout override, got %s", srv.inner.WriteTimeout)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	srv := New(0, http.NotFoundHandler())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, srv, logger) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

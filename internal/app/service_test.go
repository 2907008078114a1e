package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/signaldesk-ledger/internal/config"
)

type fakeService struct {
	name     string
	startErr error
	stopped  bool
}

func (s *fakeService) Name() string { return s.name }

func (s *fakeService) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	<-ctx.Done()
	return nil
}

func (s *fakeService) Stop(ctx context.Context) error {
	s.stopped = true
	return nil
}

func TestRunnerStopsAllServicesWhenOneFails(t *testing.T) {
	failing := &fakeService{name: "http", startErr: errors.New("listen failed")}
	waiting := &fakeService{name: "worker"}
	cleaned := false

	runner := NewRunner(failing, waiting)
	runner.OnStop(func() error {
		cleaned = true
		return nil
	})
	err := runner.Run(context.Background(), time.Second, nil)
	if err == nil || err.Error() != "listen failed" {
		t.Fatalf("expected listen failure, got %v", err)
	}
	if !failing.stopped || !waiting.stopped {
		t.Fatalf("expected every service stopped, got http=%v worker=%v", failing.stopped, waiting.stopped)
	}
	if !cleaned {
		t.Fatalf("expected cleanup hook to run")
	}
}

func TestRunnerCancelIsCleanExit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := &fakeService{name: "http"}
	done := make(chan error, 1)
	go func() {
		done <- NewRunner(svc).Run(ctx, time.Second, nil)
	}()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil on cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("runner did not exit after cancel")
	}
}

func TestBuildRunnerRejectsInvalidMode(t *testing.T) {
	if _, err := BuildRunner(&config.Config{}, "batch"); err == nil {
		t.Fatalf("expected unknown mode error")
	}
	if _, err := BuildRunner(&config.Config{}, ModeWorker); err == nil {
		t.Fatalf("expected worker mode to require queue")
	}
	if _, err := BuildRunner(nil, ModeAll); err == nil {
		t.Fatalf("expected nil config error")
	}
}

func TestParseMode(t *testing.T) {
	cases := map[string]string{
		"":       ModeAll,
		" API ":  ModeAPI,
		"worker": ModeWorker,
		"all":    ModeAll,
	}
	for raw, want := range cases {
		got, err := parseMode(raw)
		if err != nil || got != want {
			t.Fatalf("parseMode(%q) = %q, %v; want %q", raw, got, err, want)
		}
	}
	if _, err := parseMode("cron"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestRunnerTreatsSelfExitAsClean(t *testing.T) {
	quick := &quickService{}
	waiting := &fakeService{name: "worker"}
	if err := NewRunner(quick, waiting).Run(context.Background(), time.Second, nil); err != nil {
		t.Fatalf("expected clean exit, got %v", err)
	}
	if !waiting.stopped {
		t.Fatalf("remaining services should be stopped after one exits")
	}
}

type quickService struct{}

func (quickService) Name() string                    { return "quick" }
func (quickService) Start(ctx context.Context) error { return nil }
func (quickService) Stop(ctx context.Context) error  { return nil }

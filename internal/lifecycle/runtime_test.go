package lifecycle

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

type recorder struct {
	events []string
}

type testComponent struct {
	name     string
	startErr error
	stopErr  error
	rec      *recorder
	stopCall int
}

func (c *testComponent) Start(context.Context) error {
	c.rec.events = append(c.rec.events, "start:"+c.name)
	return c.startErr
}

func (c *testComponent) Stop(context.Context) error {
	c.stopCall++
	c.rec.events = append(c.rec.events, "stop:"+c.name)
	return c.stopErr
}

func TestRuntimeStartStopOrder(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	runtime := NewRuntime().
		Register("storage", &testComponent{name: "storage", rec: rec}).
		Register("metrics", &testComponent{name: "metrics", rec: rec}).
		Register("skipped", nil).
		Register("bot", &testComponent{name: "bot", rec: rec})

	if err := runtime.Start(context.Background()); err != nil {
		t.Fatalf("start runtime: %v", err)
	}
	if err := runtime.Stop(context.Background()); err != nil {
		t.Fatalf("stop runtime: %v", err)
	}

	expected := []string{
		"start:storage",
		"start:metrics",
		"start:bot",
		"stop:bot",
		"stop:metrics",
		"stop:storage",
	}
	if !reflect.DeepEqual(rec.events, expected) {
		t.Fatalf("unexpected order: got %v want %v", rec.events, expected)
	}
}

func TestRuntimeStartFailureStopsStartedComponents(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	startErr := errors.New("boom")
	first := &testComponent{name: "first", rec: rec}
	failing := &testComponent{name: "failing", rec: rec, startErr: startErr}
	last := &testComponent{name: "last", rec: rec}

	runtime := NewRuntime().
		Register("first", first).
		Register("failing", failing).
		Register("last", last)

	err := runtime.Start(context.Background())
	if !errors.Is(err, startErr) {
		t.Fatalf("unexpected start error: %v", err)
	}
	if !strings.Contains(err.Error(), "start failing") {
		t.Fatalf("error must name the component: %v", err)
	}
	if first.stopCall != 1 || failing.stopCall != 0 || last.stopCall != 0 {
		t.Fatalf("unexpected stop calls: first=%d failing=%d last=%d", first.stopCall, failing.stopCall, last.stopCall)
	}

	expected := []string{"start:first", "start:failing", "stop:first"}
	if !reflect.DeepEqual(rec.events, expected) {
		t.Fatalf("unexpected events: %v", rec.events)
	}

	if err := runtime.Stop(context.Background()); err != nil {
		t.Fatalf("stop after failed start: %v", err)
	}
	if first.stopCall != 1 {
		t.Fatalf("component stopped twice")
	}
}

func TestRuntimeStopJoinsErrors(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	errA := errors.New("a")
	errB := errors.New("b")
	runtime := NewRuntime().
		Register("a", &testComponent{name: "a", rec: rec, stopErr: errA}).
		Register("b", &testComponent{name: "b", rec: rec, stopErr: errB})

	if err := runtime.Start(context.Background()); err != nil {
		t.Fatalf("start runtime: %v", err)
	}
	err := runtime.Stop(context.Background())
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected both stop errors, got %v", err)
	}
}

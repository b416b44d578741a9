package component

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeComponent struct {
	name     string
	startErr error
	stopErr  error
	events   *[]string
}

func (f *fakeComponent) Name() string { return f.name }

func (f *fakeComponent) Start(context.Context) error {
	*f.events = append(*f.events, "start:"+f.name)
	return f.startErr
}

func (f *fakeComponent) Stop(context.Context) error {
	*f.events = append(*f.events, "stop:"+f.name)
	return f.stopErr
}

func (f *fakeComponent) Health(context.Context) Health {
	return Health{Name: f.name, Status: StatusHealthy}
}

func TestRegistry_Order(t *testing.T) {
	var events []string
	r := NewRegistry()
	for _, name := range []string{"auth", "petstore"} {
		if err := r.Register(&fakeComponent{name: name, events: &events}); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll() error = %v", err)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll() error = %v", err)
	}

	want := []string{"start:auth", "start:petstore", "stop:petstore", "stop:auth"}
	if len(events) != len(want) {
		t.Fatalf("events = %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("events[%d] = %s, want %s", i, events[i], want[i])
		}
	}
}

func TestRegistry_DuplicateName(t *testing.T) {
	var events []string
	r := NewRegistry()
	_ = r.Register(&fakeComponent{name: "a", events: &events})
	if err := r.Register(&fakeComponent{name: "a", events: &events}); err == nil {
		t.Error("expected duplicate error")
	}
}

func TestRegistry_StartFailureStopsStarted(t *testing.T) {
	var events []string
	r := NewRegistry()
	_ = r.Register(&fakeComponent{name: "a", events: &events})
	_ = r.Register(&fakeComponent{name: "b", events: &events, startErr: errors.New("boom")})

	if err := r.StartAll(context.Background()); err == nil {
		t.Fatal("expected start error")
	}
	events = events[:0]
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll() error = %v", err)
	}
	if len(events) != 1 || events[0] != "stop:a" {
		t.Errorf("events = %v, only started components should stop", events)
	}
}

func TestRegistry_StopErrorsJoined(t *testing.T) {
	var events []string
	r := NewRegistry()
	_ = r.Register(&fakeComponent{name: "a", events: &events, stopErr: errors.New("a failed")})
	_ = r.Register(&fakeComponent{name: "b", events: &events, stopErr: errors.New("b failed")})
	_ = r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if err == nil {
		t.Fatal("expected stop error")
	}
	for _, want := range []string{"a failed", "b failed"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestRegistry_HealthAndGet(t *testing.T) {
	var events []string
	r := NewRegistry()
	_ = r.Register(&fakeComponent{name: "petstore", events: &events})

	h := r.HealthAll(context.Background())
	if len(h) != 1 || h[0].Status != StatusHealthy {
		t.Errorf("HealthAll = %+v", h)
	}
	if r.Get("petstore") == nil || r.Get("missing") != nil {
		t.Error("Get returned unexpected result")
	}
}

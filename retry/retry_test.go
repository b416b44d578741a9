package retry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	limaerrors "github.com/kbukum/lima/errors"
)

type fakeProcessor struct {
	doRetry   bool
	process   bool
	doCalls   int
	procCalls int
}

func (p *fakeProcessor) DoRetry(context.Context, *Context) bool {
	p.doCalls++
	return p.doRetry
}

func (p *fakeProcessor) Process(context.Context, *Context) bool {
	p.procCalls++
	return p.process
}

type fakeSession struct {
	ok     bool
	logins int
}

func (s *fakeSession) Login(context.Context) bool {
	s.logins++
	return s.ok
}

func statusErr(code int, headers http.Header) error {
	return limaerrors.Status("failed", &limaerrors.Response{StatusCode: code, Headers: headers})
}

func lookupFor(code int, f Factory) Lookup {
	return func(status int) (Factory, bool) {
		if status == code {
			return f, true
		}
		return nil, false
	}
}

func TestMachine_Transitions(t *testing.T) {
	tests := []struct {
		name      string
		async     bool
		doRetry   bool
		process   bool
		want      bool
		wantState State
		wantProc  int
	}{
		{"sync do_retry false", false, false, false, false, StatePropagating, 0},
		{"sync do_retry true skips process", false, true, false, true, StateRetrying, 0},
		{"async do_retry false", true, false, true, false, StatePropagating, 0},
		{"async process false", true, true, false, false, StatePropagating, 1},
		{"async process true", true, true, true, true, StateRetrying, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProcessor{doRetry: tt.doRetry, process: tt.process}
			m := NewMachine(lookupFor(500, func() Processor { return p }), &Context{Async: tt.async, Attempt: 1})

			if got := m.Evaluate(context.Background(), statusErr(500, nil)); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
			if m.State() != tt.wantState {
				t.Errorf("State = %s, want %s", m.State(), tt.wantState)
			}
			if p.procCalls != tt.wantProc {
				t.Errorf("Process calls = %d, want %d", p.procCalls, tt.wantProc)
			}
		})
	}
}

func TestMachine_PropagatesWithoutEntry(t *testing.T) {
	m := NewMachine(lookupFor(429, func() Processor { return &fakeProcessor{doRetry: true} }), nil)

	if m.Evaluate(context.Background(), statusErr(500, nil)) {
		t.Error("expected no retry for unmapped status")
	}
	if m.State() != StatePropagating {
		t.Errorf("State = %s", m.State())
	}
}

func TestMachine_IgnoresNonRetryableKinds(t *testing.T) {
	p := &fakeProcessor{doRetry: true}
	m := NewMachine(func(int) (Factory, bool) { return func() Processor { return p }, true }, nil)

	for _, err := range []error{
		limaerrors.Binding("missing"),
		limaerrors.Validation("bad body", nil),
		errors.New("plain"),
	} {
		if m.Evaluate(context.Background(), err) {
			t.Errorf("Evaluate(%v) should not retry", err)
		}
	}
	if p.doCalls != 0 {
		t.Errorf("processor consulted %d times", p.doCalls)
	}
}

func TestMachine_TransportFailureStatus(t *testing.T) {
	p := &fakeProcessor{doRetry: true}
	m := NewMachine(lookupFor(limaerrors.StatusTransportFailure, func() Processor { return p }), nil)

	if !m.Evaluate(context.Background(), limaerrors.Transport(errors.New("connection refused"))) {
		t.Error("expected retry keyed on transport failure status")
	}
}

func TestMachine_ReusesProcessorPerCall(t *testing.T) {
	created := 0
	factory := func() Processor {
		created++
		return NewAutoLogin(1)
	}
	sess := &fakeSession{ok: true}
	m := NewMachine(lookupFor(401, factory), &Context{Session: sess, Attempt: 1})

	if !m.Evaluate(context.Background(), statusErr(401, nil)) {
		t.Fatal("first 401 should retry")
	}
	if m.Evaluate(context.Background(), statusErr(401, nil)) {
		t.Fatal("second 401 should propagate")
	}
	if created != 1 {
		t.Errorf("factory called %d times, want 1", created)
	}
	if m.Context().Attempt != 2 {
		t.Errorf("Attempt = %d, want 2", m.Context().Attempt)
	}
}

func TestMachine_CancelledContext(t *testing.T) {
	p := &fakeProcessor{doRetry: true}
	m := NewMachine(lookupFor(500, func() Processor { return p }), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if m.Evaluate(ctx, statusErr(500, nil)) {
		t.Error("cancelled call must not retry")
	}
}

func TestAutoLogin(t *testing.T) {
	t.Run("sync logs in during do_retry", func(t *testing.T) {
		sess := &fakeSession{ok: true}
		p := NewAutoLogin(1)
		rc := &Context{Session: sess}

		if !p.DoRetry(context.Background(), rc) {
			t.Fatal("expected retry")
		}
		if sess.logins != 1 {
			t.Errorf("logins = %d", sess.logins)
		}
		if p.DoRetry(context.Background(), rc) {
			t.Error("expected refusal after limit")
		}
	})

	t.Run("async logs in during process", func(t *testing.T) {
		sess := &fakeSession{ok: false}
		p := NewAutoLogin(1)
		rc := &Context{Session: sess, Async: true}

		if !p.DoRetry(context.Background(), rc) {
			t.Fatal("expected do_retry true")
		}
		if sess.logins != 0 {
			t.Fatal("async do_retry must not log in")
		}
		if p.Process(context.Background(), rc) {
			t.Error("failed login must not retry")
		}
	})

	t.Run("no session", func(t *testing.T) {
		if NewAutoLogin(1).DoRetry(context.Background(), &Context{}) {
			t.Error("expected refusal without session")
		}
	})
}

func TestRetryAfter(t *testing.T) {
	var waited []time.Duration
	p := NewRetryAfter(1, 10*time.Millisecond)
	p.wait = func(_ context.Context, d time.Duration) bool {
		waited = append(waited, d)
		return true
	}

	base, _ := limaerrors.Base(statusErr(429, http.Header{"Retry-After": []string{"3"}}))
	rc := &Context{Base: base}

	if !p.DoRetry(context.Background(), rc) {
		t.Fatal("expected retry")
	}
	if len(waited) != 1 || waited[0] != 3*time.Second {
		t.Errorf("waited = %v, want [3s]", waited)
	}
	if p.DoRetry(context.Background(), rc) {
		t.Error("expected refusal after one retry")
	}
}

func TestRetryAfter_AsyncWaitsInProcess(t *testing.T) {
	waits := 0
	p := NewRetryAfter(1, time.Second)
	p.wait = func(context.Context, time.Duration) bool {
		waits++
		return true
	}
	rc := &Context{Async: true}

	if !p.DoRetry(context.Background(), rc) {
		t.Fatal("expected do_retry true")
	}
	if waits != 0 {
		t.Fatal("async do_retry must not wait")
	}
	if !p.Process(context.Background(), rc) || waits != 1 {
		t.Errorf("Process waited %d times", waits)
	}
}

func TestRetryAfter_MinSleep(t *testing.T) {
	p := NewRetryAfter(1, 2*time.Second)
	if d := p.Delay(&Context{}); d != 2*time.Second {
		t.Errorf("Delay = %v, want 2s", d)
	}
}

func TestRetryAfter_CancelledWait(t *testing.T) {
	p := NewRetryAfter(1, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if p.DoRetry(ctx, &Context{}) {
		t.Error("cancelled wait must not retry")
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Second},
		{"1.5", 1500 * time.Millisecond},
		{"-1", 0},
		{"Mon, 01 Jan 2024 12:00:10 GMT", 10 * time.Second},
		{"Mon, 01 Jan 2024 11:00:00 GMT", 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		if got := ParseRetryAfter(tt.value, now); got != tt.want {
			t.Errorf("ParseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestBackoff(t *testing.T) {
	var waited []time.Duration
	p := NewBackoff(BackoffConfig{MaxRetries: 2, InitialInterval: 10 * time.Millisecond, MaxInterval: time.Second, Multiplier: 2})
	p.wait = func(_ context.Context, d time.Duration) bool {
		waited = append(waited, d)
		return true
	}
	rc := &Context{}

	for i := 0; i < 2; i++ {
		if !p.DoRetry(context.Background(), rc) {
			t.Fatalf("retry %d refused", i+1)
		}
	}
	if p.DoRetry(context.Background(), rc) {
		t.Error("expected refusal after limit")
	}
	if len(waited) != 2 {
		t.Fatalf("waited %d times", len(waited))
	}
	for _, d := range waited {
		if d <= 0 || d > time.Second {
			t.Errorf("unexpected delay %v", d)
		}
	}
}

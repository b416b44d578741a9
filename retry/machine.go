package retry

import (
	"context"

	limaerrors "github.com/kbukum/lima/errors"
)

// State is a state of the retry machine.
type State int

const (
	StateIdle State = iota
	StateEvaluating
	StateFixing
	StateRetrying
	StatePropagating
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEvaluating:
		return "evaluating"
	case StateFixing:
		return "fixing"
	case StateRetrying:
		return "retrying"
	case StatePropagating:
		return "propagating"
	default:
		return "unknown"
	}
}

// Lookup returns the retry factory registered for a status code.
type Lookup func(status int) (Factory, bool)

// Machine runs the retry decision for one logical call. It is not safe for
// concurrent use.
type Machine struct {
	lookup     Lookup
	rc         *Context
	state      State
	processors map[int]Processor
}

// NewMachine creates a machine in the idle state.
func NewMachine(lookup Lookup, rc *Context) *Machine {
	if rc == nil {
		rc = &Context{}
	}
	if rc.Values == nil {
		rc.Values = make(map[string]any)
	}
	return &Machine{
		lookup:     lookup,
		rc:         rc,
		state:      StateIdle,
		processors: make(map[int]Processor),
	}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Context returns the retry context.
func (m *Machine) Context() *Context { return m.rc }

// Evaluate decides whether the attempt that failed with err is dispatched
// again. A false result leaves the machine in StatePropagating.
func (m *Machine) Evaluate(ctx context.Context, err error) bool {
	m.state = StateEvaluating
	m.rc.Err = err

	base, ok := limaerrors.Base(err)
	if !ok || !base.Kind.Retryable() || m.lookup == nil || ctx.Err() != nil {
		return m.propagate()
	}
	m.rc.Base = base

	p, ok := m.processor(base.StatusCode)
	if !ok {
		return m.propagate()
	}
	if !p.DoRetry(ctx, m.rc) {
		return m.propagate()
	}
	if m.rc.Async {
		m.state = StateFixing
		if !p.Process(ctx, m.rc) {
			return m.propagate()
		}
	}
	m.state = StateRetrying
	m.rc.Attempt++
	return true
}

// processor returns the instance for status, creating it on first use.
func (m *Machine) processor(status int) (Processor, bool) {
	if p, ok := m.processors[status]; ok {
		return p, true
	}
	f, ok := m.lookup(status)
	if !ok || f == nil {
		return nil, false
	}
	p := f()
	if p == nil {
		return nil, false
	}
	m.processors[status] = p
	return p, true
}

func (m *Machine) propagate() bool {
	m.state = StatePropagating
	return false
}

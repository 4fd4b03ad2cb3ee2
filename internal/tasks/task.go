package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/mcx/internal/shared"
)

// State is the lifecycle position of a task.
type State int

const (
	Created State = iota
	InProgress
	Finished
	Failed
	Paused
	RetryNeeded
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case InProgress:
		return "in_progress"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	case Paused:
		return "paused"
	case RetryNeeded:
		return "retry_needed"
	default:
		return ""
	}
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == Finished || s == Failed
}

// Event reports a task state transition.
type Event struct {
	ID     string
	Name   string
	State  State
	Result any
	Err    error
}

// Task is a unit of work. Implementations supply Run only; [Execute] drives the state machine.
type Task interface {
	ID() string
	Name() string
	Run(ctx context.Context) (any, error)
}

// silencer is implemented by tasks whose transitions are internal and not reported.
type silencer interface {
	EventsDisabled() bool
}

// Base carries the identity shared by all tasks. Embed it to satisfy the ID and Name methods.
type Base struct {
	id     string
	name   string
	silent bool
}

// NewBase creates a task identity with a fresh id.
func NewBase(name string) Base {
	return Base{id: shared.GenerateID(), name: name}
}

// NewSilentBase creates a task identity whose transitions emit no events.
func NewSilentBase(name string) Base {
	b := NewBase(name)
	b.silent = true
	return b
}

func (b Base) ID() string           { return b.id }
func (b Base) Name() string         { return b.name }
func (b Base) EventsDisabled() bool { return b.silent }

// Func adapts a closure into a [Task].
type Func struct {
	Base
	fn func(ctx context.Context) (any, error)
}

// NewFunc wraps fn as a task called name.
func NewFunc(name string, fn func(ctx context.Context) (any, error)) *Func {
	return &Func{Base: NewBase(name), fn: fn}
}

// Run calls the wrapped closure.
func (f *Func) Run(ctx context.Context) (any, error) {
	return f.fn(ctx)
}

// Execute runs t with the state machine Created -> InProgress -> Finished | Failed.
//
// Each transition is published to bus unless the task disables events. A failed run returns an error
// wrapping [shared.ErrTaskFailed] and the task's own error.
func Execute(ctx context.Context, t Task, bus *Bus) (any, error) {
	silent := false
	if s, ok := t.(silencer); ok {
		silent = s.EventsDisabled()
	}

	emit := func(state State, result any, err error) {
		if silent {
			return
		}
		bus.PublishEvent(Event{ID: t.ID(), Name: t.Name(), State: state, Result: result, Err: err})
	}

	emit(InProgress, nil, nil)

	if err := ctx.Err(); err != nil {
		emit(Failed, nil, err)
		return nil, fmt.Errorf("%w: %s: %w", shared.ErrTaskFailed, t.Name(), err)
	}

	result, err := t.Run(ctx)
	if err != nil {
		emit(Failed, nil, err)
		return nil, fmt.Errorf("%w: %s: %w", shared.ErrTaskFailed, t.Name(), err)
	}

	emit(Finished, result, nil)
	return result, nil
}

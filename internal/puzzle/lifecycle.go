package puzzle

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const machineID = "puzzle-session"

// lifecycleContext travels with the statechart of one session.
type lifecycleContext struct {
	SessionID   string
	Transitions int
}

const (
	stateAwaitingSetup    statekit.StateID = "awaiting_setup"
	stateInProgress       statekit.StateID = "in_progress"
	stateAwaitingFeedback statekit.StateID = "awaiting_feedback"
	stateSolved           statekit.StateID = "solved"
	stateFailed           statekit.StateID = "failed"
	stateTerminated       statekit.StateID = "terminated"
)

const (
	eventSetup     = "SETUP"
	eventRecommend = "RECOMMEND"
	eventResolve   = "RESOLVE"
	eventSolve     = "SOLVE"
	eventFail      = "FAIL"
	eventTerminate = "TERMINATE"
)

// transitions mirrors the statechart below. The interpreter is only sent
// events listed here for its current state.
var transitions = map[statekit.StateID]map[string]statekit.StateID{
	stateAwaitingSetup: {
		eventSetup:     stateInProgress,
		eventTerminate: stateTerminated,
	},
	stateInProgress: {
		eventRecommend: stateAwaitingFeedback,
		eventTerminate: stateTerminated,
	},
	stateAwaitingFeedback: {
		eventResolve:   stateInProgress,
		eventSolve:     stateSolved,
		eventFail:      stateFailed,
		eventTerminate: stateTerminated,
	},
	stateSolved: {
		eventTerminate: stateTerminated,
	},
	stateFailed: {
		eventTerminate: stateTerminated,
	},
	stateTerminated: {},
}

var statusByState = map[statekit.StateID]Status{
	stateAwaitingSetup:    StatusAwaitingSetup,
	stateInProgress:       StatusInProgress,
	stateAwaitingFeedback: StatusAwaitingFeedback,
	stateSolved:           StatusSolved,
	stateFailed:           StatusFailed,
	stateTerminated:       StatusTerminated,
}

var stateByStatus = lo.Invert(statusByState)

func newLifecycleMachine() (*statekit.MachineConfig[*lifecycleContext], error) {
	return statekit.NewMachine[*lifecycleContext](machineID).
		WithInitial(stateAwaitingSetup).
		WithContext(&lifecycleContext{}).
		WithAction("logEntry", logLifecycleEntry).
		WithAction("countTransition", countTransition).
		State(stateAwaitingSetup).
		OnEntry("logEntry").
		On(eventSetup).Target(stateInProgress).Do("countTransition").
		On(eventTerminate).Target(stateTerminated).Do("countTransition").
		Done().
		State(stateInProgress).
		OnEntry("logEntry").
		On(eventRecommend).Target(stateAwaitingFeedback).Do("countTransition").
		On(eventTerminate).Target(stateTerminated).Do("countTransition").
		Done().
		State(stateAwaitingFeedback).
		OnEntry("logEntry").
		On(eventResolve).Target(stateInProgress).Do("countTransition").
		On(eventSolve).Target(stateSolved).Do("countTransition").
		On(eventFail).Target(stateFailed).Do("countTransition").
		On(eventTerminate).Target(stateTerminated).Do("countTransition").
		Done().
		State(stateSolved).
		OnEntry("logEntry").
		On(eventTerminate).Target(stateTerminated).Do("countTransition").
		Done().
		State(stateFailed).
		OnEntry("logEntry").
		On(eventTerminate).Target(stateTerminated).Do("countTransition").
		Done().
		State(stateTerminated).
		OnEntry("logEntry").
		Done().
		Build()
}

func logLifecycleEntry(ctx **lifecycleContext, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	log.Debug().
		Str("session", (*ctx).SessionID).
		Str("event", string(event.Type)).
		Int("transitions", (*ctx).Transitions).
		Msg("session state entered")
}

func countTransition(ctx **lifecycleContext, _ statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	(*ctx).Transitions++
}

// lifecycle wraps the statekit interpreter for one session.
type lifecycle struct {
	interp *statekit.Interpreter[*lifecycleContext]
	ctx    *lifecycleContext
}

func newLifecycle(sessionID string) (*lifecycle, error) {
	machine, err := newLifecycleMachine()
	if err != nil {
		return nil, fmt.Errorf("build session statechart: %w", err)
	}
	ctx := &lifecycleContext{SessionID: sessionID}
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **lifecycleContext) {
		*c = ctx
	})
	interp.Start()
	return &lifecycle{interp: interp, ctx: ctx}, nil
}

// restoreLifecycle rebuilds a lifecycle sitting in status.
func restoreLifecycle(sessionID string, status Status) (*lifecycle, error) {
	state, ok := stateByStatus[status]
	if !ok {
		return nil, fmt.Errorf("unknown session status %q", status)
	}
	l, err := newLifecycle(sessionID)
	if err != nil {
		return nil, err
	}
	err = l.interp.Restore(statekit.Snapshot[*lifecycleContext]{
		MachineID:    machineID,
		CurrentState: state,
		Context:      l.ctx,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("restore session statechart: %w", err)
	}
	return l, nil
}

func (l *lifecycle) state() statekit.StateID {
	return statekit.StateID(l.interp.State().Value)
}

func (l *lifecycle) status() Status {
	return statusByState[l.state()]
}

func (l *lifecycle) can(event string) bool {
	_, ok := transitions[l.state()][event]
	return ok
}

func (l *lifecycle) fire(event string) error {
	from := l.state()
	if !l.can(event) {
		return fmt.Errorf("event %s not allowed in state %s", event, from)
	}
	l.interp.Send(statekit.Event{Type: statekit.EventType(event)})
	if to := transitions[from][event]; l.state() != to {
		return fmt.Errorf("event %s left session in %s, want %s", event, l.state(), to)
	}
	return nil
}

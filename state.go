package bloom

import (
	"sync"
)

type State int

const (
	Uninitialized State = iota
	Initialized
	Destroyed
)

func (s State) String() string {
	return [...]string{
		"Uninitialized",
		"Initialized",
		"Destroyed",
	}[s]
}

// lifecycle serializes state transitions of one client handle.
// The lock is held while a transition talks to the store.
type lifecycle struct {
	mu    sync.Mutex
	state State
}

func (l *lifecycle) ready() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readyLocked()
}

func (l *lifecycle) readyLocked() error {
	switch l.state {
	case Uninitialized:
		return ErrMustInitializeFirst
	case Destroyed:
		return ErrAlreadyDestroyed
	}
	return nil
}

func (l *lifecycle) current() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *lifecycle) read(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn()
}

// initialize runs fn once, repeated calls after a success are no-ops.
func (l *lifecycle) initialize(fn func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state {
	case Initialized:
		return nil
	case Destroyed:
		return ErrAlreadyDestroyed
	}
	if err := fn(); err != nil {
		return err
	}
	l.state = Initialized
	return nil
}

// destroy moves to Destroyed before fn runs, so the handle is unusable even if fn fails.
func (l *lifecycle) destroy(fn func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.readyLocked(); err != nil {
		return err
	}
	l.state = Destroyed
	return fn()
}

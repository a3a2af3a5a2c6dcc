package tcc

import "errors"

type trapState struct {
	armed   bool
	aborted bool
	message string // diagnostic from the call that aborted
}

// Trap runs fn with the engine's abort checkpoint armed. A fatal engine
// error inside fn no longer exits the process: the failing call returns an
// ErrAbort error, later engine calls within fn fail the same way without
// reaching the engine, and Trap itself returns the abort error once fn
// returns. Without an abort, Trap returns fn's error.
//
// Only one trap can be armed per session; nesting returns ErrState. After
// an abort the engine's compilation state is unspecified and the session
// should only be closed.
func (s *Session) Trap(fn func() error) (err error) {
	if err := s.arm(); err != nil {
		return err
	}
	defer func() {
		if aerr := s.disarm(); aerr != nil {
			err = aerr
		}
	}()
	return fn()
}

// TrapValue is Trap for functions that produce a value. On abort the zero
// value is returned.
func TrapValue[T any](s *Session, fn func() (T, error)) (T, error) {
	var v T
	err := s.Trap(func() error {
		var ferr error
		v, ferr = fn()
		return ferr
	})
	if err != nil && s.Aborted(err) {
		var zero T
		return zero, err
	}
	return v, err
}

// Aborted reports whether err is an engine abort raised by this session.
func (s *Session) Aborted(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindAbort && e.Session == s
}

func (s *Session) arm() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return stateError(s, "trap on closed session")
	}
	if s.trap.armed {
		return stateError(s, "error trap already armed")
	}
	if !s.eng.Current() {
		return stateError(s, "trap: %s", errNotCurrent)
	}
	s.trap = trapState{armed: true}
	s.eng.Arm(true)
	return nil
}

// disarm returns the abort error if the engine unwound while armed.
func (s *Session) disarm() *Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	aborted := s.trap.aborted
	s.eng.Arm(false)

	var err *Error
	if aborted {
		err = s.abortError()
	}
	s.trap = trapState{}
	return err
}

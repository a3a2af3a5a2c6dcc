package tcc

import (
	"log/slog"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/p-arndt/gotcc/internal/engine"
)

// abortFallback is reported when the engine aborts without having emitted
// a diagnostic first.
const abortFallback = "engine aborted"

const errNotCurrent = "session is not the engine's current state; a newer session was created or another session was closed"

// Session owns exactly one native compiler instance.
//
// A Session is safe to share between goroutines but serializes every call;
// the engine itself is single-threaded.
type Session struct {
	id     string
	logger *slog.Logger
	sink   *sink

	mu       sync.Mutex
	eng      engine.Engine
	state    State
	settings Settings
	trap     trapState
	cleanup  runtime.Cleanup

	// callMsg is the last diagnostic emitted by the most recent engine
	// call, empty when that call emitted none.
	callMsg string
}

type sessionOptions struct {
	logger   *slog.Logger
	observer Observer
}

// Option configures a Session at construction.
type Option func(*sessionOptions)

// WithLogger sets the logger used for session events and diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *sessionOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver registers fn as the session's diagnostic observer.
func WithObserver(fn Observer) Option {
	return func(o *sessionOptions) {
		o.observer = fn
	}
}

// New creates a session backed by a fresh libtcc instance.
func New(opts ...Option) (*Session, error) {
	eng, err := openEngine()
	if err != nil {
		return nil, err
	}
	return newSession(eng, opts...), nil
}

func newSession(eng engine.Engine, opts ...Option) *Session {
	o := sessionOptions{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	id := uuid.New().String()[:12]
	logger := o.logger.With("session_id", id)

	s := &Session{
		id:     id,
		logger: logger,
		sink:   newSink(logger, o.observer),
		eng:    eng,
		settings: Settings{
			Defines: make(map[string]string),
			Flags:   make(map[Flag]bool),
		},
	}
	eng.SetErrorFunc(s.sink.record)

	// Safety net for sessions that are dropped without Close.
	s.cleanup = runtime.AddCleanup(s, func(e engine.Engine) { e.Close() }, eng)

	logger.Debug("session opened")
	return s
}

// ID identifies the session in logs and the build journal.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Settings returns a copy of the configuration applied so far.
func (s *Session) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.clone()
}

// Errors returns every diagnostic recorded so far, oldest first. The list is
// never cleared and includes warnings from calls that succeeded.
func (s *Session) Errors() []string {
	return s.sink.snapshot()
}

// SetObserver registers fn as the diagnostic observer. Only one observer may
// be registered per session.
func (s *Session) SetObserver(fn Observer) error {
	if fn == nil {
		return invalidArgument(s, "observer must not be nil")
	}
	if !s.sink.setObserver(fn) {
		return stateError(s, "diagnostic observer already registered")
	}
	return nil
}

// Close deletes the native instance. Addresses obtained from Symbol and the
// relocated image become invalid. Close is idempotent and fails while an
// error trap is armed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}
	if s.trap.armed {
		return stateError(s, "close while error trap is armed")
	}

	s.cleanup.Stop()
	s.eng.Close()
	s.state = StateClosed

	s.logger.Debug("session closed", "diagnostics", s.sink.len())
	return nil
}

// do runs one engine call. The caller holds s.mu. It refuses to touch a
// closed engine, one that already unwound inside the current trap, or one
// the native library no longer treats as its current state.
func (s *Session) do(op string, call func(engine.Engine) int) (int, error) {
	if s.state == StateClosed {
		return 0, stateError(s, "%s on closed session", op)
	}
	if s.trap.aborted {
		return 0, s.abortError()
	}
	if !s.eng.Current() {
		return 0, stateError(s, "%s: %s", op, errNotCurrent)
	}

	mark := s.sink.len()
	rc := call(s.eng)
	s.callMsg, _ = s.sink.lastSince(mark)

	if s.trap.armed && s.eng.Aborted() {
		s.trap.aborted = true
		s.trap.message = s.callMsg
		err := s.abortError()
		s.logger.Warn("engine aborted", "op", op, "message", err.Message)
		return 0, err
	}
	return rc, nil
}

// engineError builds the error for a failing engine result. The caller
// holds s.mu and has just returned from do.
func (s *Session) engineError(kind Kind, file, source string) *Error {
	msg := s.callMsg
	err := &Error{
		Kind:    kind,
		File:    file,
		Source:  source,
		Message: msg,
		Session: s,
	}
	s.logger.Debug("engine call failed", "kind", string(kind), "message", msg)
	return err
}

// abortError reports the diagnostic emitted by the call that aborted.
func (s *Session) abortError() *Error {
	msg := s.trap.message
	if msg == "" {
		msg = abortFallback
	}
	return &Error{Kind: KindAbort, Message: msg, Session: s}
}

// touch moves a fresh session into configuring.
func (s *Session) touch() {
	if s.state == StateFresh {
		s.state = StateConfiguring
	}
}

// unlinked fails once the session has produced output or been relocated.
func (s *Session) unlinked(op string) error {
	switch {
	case s.state == StateClosed:
		return stateError(s, "%s on closed session", op)
	case s.state.linked():
		return stateError(s, "%s after session reached %s", op, s.state)
	}
	return nil
}

package tcc

import (
	"unsafe"

	"github.com/p-arndt/gotcc/internal/engine"
)

// MaxArgs bounds the argument vector passed to Run.
const MaxArgs = 256

// Destination tells Relocate where the image goes. The zero value asks the
// engine how many bytes it needs without relocating anything.
type Destination struct {
	auto bool
	buf  unsafe.Pointer
	set  bool
}

// RelocateAuto lets the engine allocate and own the image memory.
var RelocateAuto = Destination{auto: true, set: true}

// RelocateInto relocates into caller memory at buf. The buffer must be at
// least the size reported by Relocate(Destination{}), executable, and must
// outlive the session.
func RelocateInto(buf unsafe.Pointer) Destination {
	return Destination{buf: buf, set: true}
}

// IsZero reports whether d is the size query destination.
func (d Destination) IsZero() bool {
	return !d.set
}

// Relocate finalizes the in-memory image. For the zero Destination it
// returns the number of bytes the image requires and leaves the session
// state untouched; otherwise the session becomes Relocated.
func (s *Session) Relocate(dst Destination) (int, error) {
	if dst.set && !dst.auto && dst.buf == nil {
		return 0, invalidArgument(s, "relocation buffer must not be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.unlinked("relocate"); err != nil {
		return 0, err
	}
	if s.state != StateSourcesAdded {
		return 0, stateError(s, "relocate before any source was added")
	}

	rc, err := s.do("relocate", func(e engine.Engine) int {
		switch {
		case dst.auto:
			return e.RelocateAuto()
		case dst.set:
			return e.Relocate(dst.buf)
		}
		return e.Relocate(nil)
	})
	if err != nil {
		return 0, err
	}
	if rc < 0 {
		return 0, s.engineError(KindRelocate, "", "")
	}
	if dst.set {
		s.state = StateRelocated
		s.logger.Debug("image relocated", "auto", dst.auto)
	}
	return rc, nil
}

// Symbol resolves name in the relocated image. A missing symbol is a normal
// outcome and yields (nil, false). The address is valid until Close.
//
// Resolving before Relocate is caller error; the engine decides the result.
func (s *Session) Symbol(name string) (unsafe.Pointer, bool) {
	if name == "" {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var addr unsafe.Pointer
	_, err := s.do("symbol", func(e engine.Engine) int {
		addr = e.Symbol(name)
		return 0
	})
	if err != nil || addr == nil {
		return nil, false
	}
	return addr, true
}

// Run calls main in the compiled image with args as argv and returns its
// exit status. The engine relocates the image on the way, so the session
// ends up Relocated even when Run fails: a negative status does not tell a
// failed relocation apart from main returning a negative value, and the
// image must not be relocated twice. Unlike a failed Relocate, a failed Run
// therefore cannot be followed by Relocate; start a new session instead.
func (s *Session) Run(args ...string) (int, error) {
	if len(args) > MaxArgs {
		return 0, invalidArgument(s, "run: %d arguments exceed the maximum of %d", len(args), MaxArgs)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateOutputWritten {
		return 0, stateError(s, "run after output was written to a file")
	}

	status, err := s.do("run", func(e engine.Engine) int {
		return e.Run(args)
	})
	if err != nil {
		return 0, err
	}
	s.state = StateRelocated
	if status < 0 {
		rerr := s.engineError(KindRun, "", "")
		rerr.Status = status
		return status, rerr
	}
	return status, nil
}

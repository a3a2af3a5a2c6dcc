package tcc

import (
	"github.com/p-arndt/gotcc/internal/engine"
)

// configure runs a configuration call. apply records the new setting and
// only runs when the engine accepted it; a negative result is reported as
// an invalid argument carrying the call's diagnostic.
func (s *Session) configure(op string, call func(engine.Engine) int, apply func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.unlinked(op); err != nil {
		return err
	}
	rc, err := s.do(op, call)
	if err != nil {
		return err
	}
	s.touch()
	if rc < 0 {
		if s.callMsg != "" {
			return invalidArgument(s, "%s", s.callMsg)
		}
		return invalidArgument(s, "engine rejected %s", op)
	}
	if apply != nil {
		apply()
	}
	return nil
}

// SetLibPath sets the directory holding the engine's runtime support
// library and its private headers.
func (s *Session) SetLibPath(path string) error {
	if path == "" {
		return invalidArgument(s, "lib path must not be empty")
	}
	return s.configure("set lib path",
		func(e engine.Engine) int { e.SetLibPath(path); return 0 },
		func() { s.settings.LibPath = path },
	)
}

// SetOptions passes a command-line style option string such as
// "-Wall -g" to the engine.
func (s *Session) SetOptions(opts string) error {
	if opts == "" {
		return invalidArgument(s, "options must not be empty")
	}
	return s.configure("set options",
		func(e engine.Engine) int { return e.SetOptions(opts) },
		func() { s.settings.Options = append(s.settings.Options, opts) },
	)
}

func (s *Session) AddIncludePath(path string) error {
	if path == "" {
		return invalidArgument(s, "include path must not be empty")
	}
	return s.configure("add include path",
		func(e engine.Engine) int { e.AddIncludePath(path); return 0 },
		func() { s.settings.IncludePaths = append(s.settings.IncludePaths, path) },
	)
}

func (s *Session) AddSysIncludePath(path string) error {
	if path == "" {
		return invalidArgument(s, "system include path must not be empty")
	}
	return s.configure("add sysinclude path",
		func(e engine.Engine) int { e.AddSysIncludePath(path); return 0 },
		func() { s.settings.SysIncludePaths = append(s.settings.SysIncludePaths, path) },
	)
}

func (s *Session) AddLibraryPath(path string) error {
	if path == "" {
		return invalidArgument(s, "library path must not be empty")
	}
	return s.configure("add library path",
		func(e engine.Engine) int { e.AddLibraryPath(path); return 0 },
		func() { s.settings.LibraryPaths = append(s.settings.LibraryPaths, path) },
	)
}

// SetFlag turns one compiler switch on or off. Flags are independent of
// each other.
func (s *Session) SetFlag(flag Flag, on bool) error {
	if !flag.Valid() {
		return invalidArgument(s, "unknown flag: %d", int(flag))
	}
	return s.configure("set flag",
		func(e engine.Engine) int { e.SetFlag(engine.Flag(flag), on); return 0 },
		func() { s.settings.Flags[flag] = on },
	)
}

// SetOutputType selects the artifact produced by OutputFile or Relocate.
// The engine compiles each source for the selected type, so the type must
// be chosen before the first AddFile, CompileString or AddLibrary. Once
// sources were added, repeating the current type is a no-op and any other
// call, including a first call on a session that never set a type, fails
// with ErrState.
func (s *Session) SetOutputType(t OutputType) error {
	if !t.Valid() {
		return invalidArgument(s, "invalid output type: %d", int(t))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.unlinked("set output type"); err != nil {
		return err
	}
	if s.state == StateSourcesAdded {
		switch s.settings.OutputType {
		case t:
			return nil
		case 0:
			return stateError(s, "output type %s must be set before the first source is added", t)
		}
		return stateError(s, "output type cannot change to %s after sources were added", t)
	}

	rc, err := s.do("set output type", func(e engine.Engine) int {
		return e.SetOutputType(int(t))
	})
	if err != nil {
		return err
	}
	if rc < 0 {
		return invalidArgument(s, "engine rejected output type %s", t)
	}
	s.settings.OutputType = t
	s.touch()
	return nil
}

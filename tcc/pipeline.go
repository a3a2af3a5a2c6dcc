package tcc

import (
	"unsafe"

	"github.com/p-arndt/gotcc/internal/engine"
)

// intake feeds source material to the engine. The session counts as having
// consumed sources once the engine was reached, even when it fails. A
// negative result becomes an error of the given kind.
func (s *Session) intake(op string, kind Kind, file, source string, call func(engine.Engine) int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.unlinked(op); err != nil {
		return err
	}
	rc, err := s.do(op, call)
	if err != nil {
		return err
	}
	s.state = StateSourcesAdded
	if rc < 0 {
		return s.engineError(kind, file, source)
	}
	return nil
}

// AddFile adds a C source, object, archive or shared library file.
func (s *Session) AddFile(path string) error {
	if path == "" {
		return invalidArgument(s, "file path must not be empty")
	}
	return s.intake("add file", KindAddFile, path, "", func(e engine.Engine) int {
		return e.AddFile(path)
	})
}

// CompileString compiles a translation unit held in memory.
func (s *Session) CompileString(src string) error {
	return s.intake("compile string", KindCompile, "", src, func(e engine.Engine) int {
		return e.CompileString(src)
	})
}

// AddLibrary links against library name, searched the way the linker
// resolves -lname.
func (s *Session) AddLibrary(name string) error {
	if name == "" {
		return invalidArgument(s, "library name must not be empty")
	}
	return s.intake("add library", KindAddLibrary, "", "", func(e engine.Engine) int {
		return e.AddLibrary(name)
	})
}

// DefineSymbol defines a preprocessor macro, as -Dname=value does. An
// empty value defines the macro as 1.
func (s *Session) DefineSymbol(name, value string) error {
	if name == "" {
		return invalidArgument(s, "macro name must not be empty")
	}
	return s.configure("define symbol",
		func(e engine.Engine) int { e.DefineSymbol(name, value); return 0 },
		func() { s.settings.Defines[name] = value },
	)
}

func (s *Session) UndefineSymbol(name string) error {
	if name == "" {
		return invalidArgument(s, "macro name must not be empty")
	}
	return s.configure("undefine symbol",
		func(e engine.Engine) int { e.UndefineSymbol(name); return 0 },
		func() { delete(s.settings.Defines, name) },
	)
}

// AddSymbol makes a host address visible to compiled code under name. The
// address must stay valid for as long as the compiled code may use it.
func (s *Session) AddSymbol(name string, addr unsafe.Pointer) error {
	if name == "" {
		return invalidArgument(s, "symbol name must not be empty")
	}
	if addr == nil {
		return invalidArgument(s, "symbol %q: address must be a non-nil pointer", name)
	}
	return s.configure("add symbol",
		func(e engine.Engine) int { e.AddSymbol(name, addr); return 0 },
		nil,
	)
}

// OutputFile writes the artifact selected by SetOutputType to path. It is
// terminal: the session accepts no further sources afterwards.
func (s *Session) OutputFile(path string) error {
	if path == "" {
		return invalidArgument(s, "output path must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.unlinked("output file"); err != nil {
		return err
	}
	if s.state != StateSourcesAdded {
		return stateError(s, "output file before any source was added")
	}
	rc, err := s.do("output file", func(e engine.Engine) int {
		return e.OutputFile(path)
	})
	if err != nil {
		return err
	}
	if rc < 0 {
		return s.engineError(KindOutputFile, "", "")
	}
	s.state = StateOutputWritten
	s.logger.Debug("output written", "path", path, "output_type", s.settings.OutputType.String())
	return nil
}

// Package tcc embeds the Tiny C Compiler (libtcc) in a Go program.
//
// A Session owns one compiler instance and walks it through
// configuration, source intake and either writing an artifact or
// relocating an in-memory image whose symbols can be resolved and whose
// main can be run:
//
//	s, err := tcc.New()
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	if err := s.SetOutputType(tcc.OutputMemory); err != nil {
//		return err
//	}
//	if err := s.CompileString("int add(int a, int b) { return a + b; }"); err != nil {
//		return err
//	}
//	if _, err := s.Relocate(tcc.RelocateAuto); err != nil {
//		return err
//	}
//	addr, ok := s.Symbol("add")
//
// The output type is fixed before the first source is added, since the
// engine compiles each unit for it; SetOutputType after intake only accepts
// the type already selected.
//
// Every diagnostic the engine emits is kept in order and available from
// Session.Errors; an Observer sees each one as it arrives. Failing calls
// return *Error values that match the Err* sentinels with errors.Is.
//
// Some engine errors are fatal and end the process. Session.Trap arms a
// checkpoint that turns such an abort into an ErrAbort error instead.
//
// libtcc keeps global state and routes every diagnostic and abort to the
// most recently created instance. Only one live session per process is
// reliable: creating a session makes any older one unusable, and closing
// any session leaves the others unusable too. Calls on such a session,
// including Trap, fail with ErrState instead of reaching the engine. Native
// calls are serialized. Builds without cgo, or with the nolibtcc tag,
// compile but New returns ErrNotBuilt.
package tcc

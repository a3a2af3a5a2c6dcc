package tcc

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes an Error.
type Kind string

const (
	KindAddFile         Kind = "add file error"
	KindCompile         Kind = "compile error"
	KindAddLibrary      Kind = "add library error"
	KindOutputFile      Kind = "output file error"
	KindRun             Kind = "run error"
	KindRelocate        Kind = "relocate error"
	KindInvalidArgument Kind = "invalid argument"
	KindState           Kind = "invalid state"
	KindAbort           Kind = "engine abort"
)

// Sentinels for errors.Is. Matching compares kinds only.
var (
	ErrAddFile         = &Error{Kind: KindAddFile}
	ErrCompile         = &Error{Kind: KindCompile}
	ErrAddLibrary      = &Error{Kind: KindAddLibrary}
	ErrOutputFile      = &Error{Kind: KindOutputFile}
	ErrRun             = &Error{Kind: KindRun}
	ErrRelocate        = &Error{Kind: KindRelocate}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrState           = &Error{Kind: KindState}
	ErrAbort           = &Error{Kind: KindAbort}
)

// ErrNotBuilt reports that the binary was built without the libtcc engine
// (cgo disabled or the nolibtcc build tag set).
var ErrNotBuilt = errors.New("tcc: libtcc engine not built into this binary")

// Error is returned by every Session operation that fails.
//
// For engine failures Message holds the last diagnostic emitted by the
// failing call, and is empty when that call emitted none; the full sequence
// stays available through Session.Errors.
type Error struct {
	Kind    Kind
	File    string // AddFile only
	Source  string // CompileString only
	Status  int    // Run only
	Message string
	Session *Session
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("tcc: ")
	b.WriteString(string(e.Kind))
	if e.File != "" {
		b.WriteString(": ")
		b.WriteString(e.File)
	}
	if e.Kind == KindRun {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Diagnostics returns the owning session's diagnostics, or nil for errors
// raised before a session existed.
func (e *Error) Diagnostics() []string {
	if e.Session == nil {
		return nil
	}
	return e.Session.Errors()
}

func invalidArgument(s *Session, format string, args ...any) *Error {
	return &Error{
		Kind:    KindInvalidArgument,
		Message: fmt.Sprintf(format, args...),
		Session: s,
	}
}

func stateError(s *Session, format string, args ...any) *Error {
	return &Error{
		Kind:    KindState,
		Message: fmt.Sprintf(format, args...),
		Session: s,
	}
}

// Package engine defines the contract between a tcc.Session and the native
// compiler instance it owns. The libtcc subpackage implements it with cgo.
package engine

import "unsafe"

// Output type codes as defined by libtcc.
const (
	OutputMemory     = 1
	OutputExe        = 2
	OutputDLL        = 3
	OutputObj        = 4
	OutputPreprocess = 5
)

// Flag selects one of the boolean compiler switches stored on the native
// state.
type Flag int

const (
	FlagVerbose Flag = iota
	FlagNoStdInc
	FlagNoStdLib
	FlagNoCommon
	FlagStaticLink
	FlagRDynamic
	FlagSymbolic
	FlagAlacarteLink

	FlagCharIsUnsigned
	FlagLeadingUnderscore
	FlagMSExtensions
	FlagDollarsInIdentifiers
	FlagMSBitfields

	FlagWarnWriteStrings
	FlagWarnUnsupported
	FlagWarnError
	FlagWarnNone
	FlagWarnImplicitFunctionDeclaration
	FlagWarnGCCCompat

	NumFlags
)

// ErrorFunc receives every diagnostic the engine emits. It is called
// synchronously from inside whichever engine call produced the message.
type ErrorFunc func(msg string)

// Engine is one native compiler instance. Integer results follow libtcc:
// negative means failure. Implementations are not safe for concurrent use.
type Engine interface {
	SetErrorFunc(fn ErrorFunc)

	SetLibPath(path string)
	SetOptions(opts string) int
	AddIncludePath(path string)
	AddSysIncludePath(path string)
	AddLibraryPath(path string)
	SetFlag(flag Flag, on bool)
	SetOutputType(code int) int

	DefineSymbol(name, value string)
	UndefineSymbol(name string)
	AddFile(path string) int
	CompileString(src string) int
	AddLibrary(name string) int
	AddSymbol(name string, addr unsafe.Pointer)
	OutputFile(path string) int

	// Relocate copies the image into dst. A nil dst only reports the
	// required size.
	Relocate(dst unsafe.Pointer) int
	RelocateAuto() int
	Symbol(name string) unsafe.Pointer
	Run(argv []string) int

	// Arm routes fatal aborts to a per-call checkpoint instead of exit(1).
	Arm(on bool)
	// Aborted reports, and clears, whether the previous call unwound to
	// the checkpoint.
	Aborted() bool

	// Current reports whether the native library routes diagnostics and
	// aborts to this instance. Calls on an instance that is not current
	// have undefined results.
	Current() bool

	// Close deletes the native instance. It is safe to call more than once.
	Close()
}

//go:build cgo && !nolibtcc

// Package libtcc implements engine.Engine on top of libtcc.
//
// The error trap needs the engine's private TCCState layout, so building
// this package requires the TinyCC source tree on the include path in
// addition to the installed library, e.g.
//
//	CGO_CFLAGS="-I/path/to/tinycc" CGO_LDFLAGS="-L/path/to/tinycc" go build ./...
//
// The field names used below match TinyCC 0.9.27.
package libtcc

/*
#cgo CFLAGS: -Wno-unused-function -Wno-unused-variable -Wno-unused-result
#cgo LDFLAGS: -ltcc -ldl -lm
#include <stdlib.h>
#include <stdint.h>
#include <setjmp.h>
#include <libtcc.h>
#include <tcc.h>

extern void gotccDiagnostic(uintptr_t handle, char *msg);

enum {
	GOTCC_VERBOSE,
	GOTCC_NOSTDINC,
	GOTCC_NOSTDLIB,
	GOTCC_NOCOMMON,
	GOTCC_STATIC_LINK,
	GOTCC_RDYNAMIC,
	GOTCC_SYMBOLIC,
	GOTCC_ALACARTE_LINK,
	GOTCC_CHAR_IS_UNSIGNED,
	GOTCC_LEADING_UNDERSCORE,
	GOTCC_MS_EXTENSIONS,
	GOTCC_DOLLARS_IN_IDENTIFIERS,
	GOTCC_MS_BITFIELDS,
	GOTCC_WARN_WRITE_STRINGS,
	GOTCC_WARN_UNSUPPORTED,
	GOTCC_WARN_ERROR,
	GOTCC_WARN_NONE,
	GOTCC_WARN_IMPLICIT_FUNCTION_DECLARATION,
	GOTCC_WARN_GCC_COMPAT,
};

typedef struct gotcc {
	TCCState *s;
	uintptr_t handle;
	int armed;
	int aborted;
} gotcc;

static void gotcc_error_func(void *opaque, const char *msg) {
	gotcc *g = (gotcc *)opaque;
	gotccDiagnostic(g->handle, (char *)msg);
}

static gotcc *gotcc_new(uintptr_t handle) {
	gotcc *g = calloc(1, sizeof(gotcc));
	if (g == NULL) {
		return NULL;
	}
	g->s = tcc_new();
	if (g->s == NULL) {
		free(g);
		return NULL;
	}
	g->handle = handle;
	tcc_set_error_func(g->s, g, gotcc_error_func);
	return g;
}

static void gotcc_delete(gotcc *g) {
	tcc_delete(g->s);
	free(g);
}

// GOTCC_GUARD points the engine's fatal-error longjmp at this C frame while
// the trap is armed, so an abort never unwinds through Go frames.
#define GOTCC_GUARD(g, stmt)                                 \
	do {                                                     \
		if (!(g)->armed) {                                   \
			stmt;                                            \
			break;                                           \
		}                                                    \
		if (setjmp((g)->s->error_jmp_buf) == 0) {            \
			(g)->s->error_set_jmp_enabled = 1;               \
			stmt;                                            \
		} else {                                             \
			(g)->aborted = 1;                                \
		}                                                    \
		(g)->s->error_set_jmp_enabled = 0;                   \
	} while (0)

static void gotcc_set_lib_path(gotcc *g, const char *path) {
	GOTCC_GUARD(g, tcc_set_lib_path(g->s, path));
}

static int gotcc_set_options(gotcc *g, const char *opts) {
	GOTCC_GUARD(g, tcc_set_options(g->s, opts));
	return g->aborted ? -1 : 0;
}

static void gotcc_add_include_path(gotcc *g, const char *path) {
	GOTCC_GUARD(g, tcc_add_include_path(g->s, path));
}

static void gotcc_add_sysinclude_path(gotcc *g, const char *path) {
	GOTCC_GUARD(g, tcc_add_sysinclude_path(g->s, path));
}

static void gotcc_add_library_path(gotcc *g, const char *path) {
	GOTCC_GUARD(g, tcc_add_library_path(g->s, path));
}

static void gotcc_define_symbol(gotcc *g, const char *name, const char *value) {
	GOTCC_GUARD(g, tcc_define_symbol(g->s, name, value));
}

static void gotcc_undefine_symbol(gotcc *g, const char *name) {
	GOTCC_GUARD(g, tcc_undefine_symbol(g->s, name));
}

static int gotcc_set_output_type(gotcc *g, int code) {
	volatile int rc = -1;
	GOTCC_GUARD(g, rc = tcc_set_output_type(g->s, code));
	return rc;
}

static int gotcc_add_file(gotcc *g, const char *path) {
	volatile int rc = -1;
	GOTCC_GUARD(g, rc = tcc_add_file(g->s, path));
	return rc;
}

static int gotcc_compile_string(gotcc *g, const char *src) {
	volatile int rc = -1;
	GOTCC_GUARD(g, rc = tcc_compile_string(g->s, src));
	return rc;
}

static int gotcc_add_library(gotcc *g, const char *name) {
	volatile int rc = -1;
	GOTCC_GUARD(g, rc = tcc_add_library(g->s, name));
	return rc;
}

static void gotcc_add_symbol(gotcc *g, const char *name, void *addr) {
	GOTCC_GUARD(g, tcc_add_symbol(g->s, name, addr));
}

static int gotcc_output_file(gotcc *g, const char *path) {
	volatile int rc = -1;
	GOTCC_GUARD(g, rc = tcc_output_file(g->s, path));
	return rc;
}

static int gotcc_relocate(gotcc *g, void *dst) {
	volatile int rc = -1;
	GOTCC_GUARD(g, rc = tcc_relocate(g->s, dst));
	return rc;
}

static int gotcc_relocate_auto(gotcc *g) {
	volatile int rc = -1;
	GOTCC_GUARD(g, rc = tcc_relocate(g->s, TCC_RELOCATE_AUTO));
	return rc;
}

static void *gotcc_get_symbol(gotcc *g, const char *name) {
	void *volatile sym = NULL;
	GOTCC_GUARD(g, sym = tcc_get_symbol(g->s, name));
	return sym;
}

static int gotcc_run(gotcc *g, int argc, char **argv) {
	volatile int rc = -1;
	GOTCC_GUARD(g, rc = tcc_run(g->s, argc, argv));
	return rc;
}

static void gotcc_set_flag(gotcc *g, int flag, int on) {
	TCCState *s = g->s;
	switch (flag) {
	case GOTCC_VERBOSE: s->verbose = on; break;
	case GOTCC_NOSTDINC: s->nostdinc = on; break;
	case GOTCC_NOSTDLIB: s->nostdlib = on; break;
	case GOTCC_NOCOMMON: s->nocommon = on; break;
	case GOTCC_STATIC_LINK: s->static_link = on; break;
	case GOTCC_RDYNAMIC: s->rdynamic = on; break;
	case GOTCC_SYMBOLIC: s->symbolic = on; break;
	case GOTCC_ALACARTE_LINK: s->alacarte_link = on; break;
	case GOTCC_CHAR_IS_UNSIGNED: s->char_is_unsigned = on; break;
	case GOTCC_LEADING_UNDERSCORE: s->leading_underscore = on; break;
	case GOTCC_MS_EXTENSIONS: s->ms_extensions = on; break;
	case GOTCC_DOLLARS_IN_IDENTIFIERS: s->dollars_in_identifiers = on; break;
	case GOTCC_MS_BITFIELDS: s->ms_bitfields = on; break;
	case GOTCC_WARN_WRITE_STRINGS: s->warn_write_strings = on; break;
	case GOTCC_WARN_UNSUPPORTED: s->warn_unsupported = on; break;
	case GOTCC_WARN_ERROR: s->warn_error = on; break;
	case GOTCC_WARN_NONE: s->warn_none = on; break;
	case GOTCC_WARN_IMPLICIT_FUNCTION_DECLARATION: s->warn_implicit_function_declaration = on; break;
	case GOTCC_WARN_GCC_COMPAT: s->warn_gcc_compat = on; break;
	}
}
*/
import "C"

import (
	"errors"
	"runtime/cgo"
	"sync"
	"unsafe"

	"github.com/p-arndt/gotcc/internal/engine"
)

// libtcc 0.9.27 keeps a process-wide current state: tcc_new makes the new
// state current, tcc_delete of any state clears it, and every diagnostic,
// error count and abort goes to the current state regardless of which
// state was passed in. The library offers no way to switch it back, so only
// the most recently created live instance is usable. nativeMu guards the
// native calls and current.
var (
	nativeMu sync.Mutex
	current  *Engine
)

var flagCodes = [engine.NumFlags]C.int{
	engine.FlagVerbose:                         C.GOTCC_VERBOSE,
	engine.FlagNoStdInc:                        C.GOTCC_NOSTDINC,
	engine.FlagNoStdLib:                        C.GOTCC_NOSTDLIB,
	engine.FlagNoCommon:                        C.GOTCC_NOCOMMON,
	engine.FlagStaticLink:                      C.GOTCC_STATIC_LINK,
	engine.FlagRDynamic:                        C.GOTCC_RDYNAMIC,
	engine.FlagSymbolic:                        C.GOTCC_SYMBOLIC,
	engine.FlagAlacarteLink:                    C.GOTCC_ALACARTE_LINK,
	engine.FlagCharIsUnsigned:                  C.GOTCC_CHAR_IS_UNSIGNED,
	engine.FlagLeadingUnderscore:               C.GOTCC_LEADING_UNDERSCORE,
	engine.FlagMSExtensions:                    C.GOTCC_MS_EXTENSIONS,
	engine.FlagDollarsInIdentifiers:            C.GOTCC_DOLLARS_IN_IDENTIFIERS,
	engine.FlagMSBitfields:                     C.GOTCC_MS_BITFIELDS,
	engine.FlagWarnWriteStrings:                C.GOTCC_WARN_WRITE_STRINGS,
	engine.FlagWarnUnsupported:                 C.GOTCC_WARN_UNSUPPORTED,
	engine.FlagWarnError:                       C.GOTCC_WARN_ERROR,
	engine.FlagWarnNone:                        C.GOTCC_WARN_NONE,
	engine.FlagWarnImplicitFunctionDeclaration: C.GOTCC_WARN_IMPLICIT_FUNCTION_DECLARATION,
	engine.FlagWarnGCCCompat:                   C.GOTCC_WARN_GCC_COMPAT,
}

// Engine owns one TCCState.
type Engine struct {
	g       *C.gotcc
	handle  cgo.Handle
	onError engine.ErrorFunc
}

var _ engine.Engine = (*Engine)(nil)

// New creates a native compiler instance with its error callback routed
// back to the returned Engine.
func New() (*Engine, error) {
	e := &Engine{}
	e.handle = cgo.NewHandle(e)

	nativeMu.Lock()
	defer nativeMu.Unlock()

	e.g = C.gotcc_new(C.uintptr_t(e.handle))
	if e.g == nil {
		current = nil
		e.handle.Delete()
		return nil, errors.New("libtcc: tcc_new failed")
	}
	current = e
	return e, nil
}

func (e *Engine) Current() bool {
	nativeMu.Lock()
	defer nativeMu.Unlock()
	return e.g != nil && current == e
}

func (e *Engine) SetErrorFunc(fn engine.ErrorFunc) {
	e.onError = fn
}

func (e *Engine) SetLibPath(path string) {
	cs := C.CString(path)
	defer C.free(unsafe.Pointer(cs))

	nativeMu.Lock()
	defer nativeMu.Unlock()
	C.gotcc_set_lib_path(e.g, cs)
}

func (e *Engine) SetOptions(opts string) int {
	cs := C.CString(opts)
	defer C.free(unsafe.Pointer(cs))

	nativeMu.Lock()
	defer nativeMu.Unlock()
	return int(C.gotcc_set_options(e.g, cs))
}

func (e *Engine) AddIncludePath(path string) {
	cs := C.CString(path)
	defer C.free(unsafe.Pointer(cs))

	nativeMu.Lock()
	defer nativeMu.Unlock()
	C.gotcc_add_include_path(e.g, cs)
}

func (e *Engine) AddSysIncludePath(path string) {
	cs := C.CString(path)
	defer C.free(unsafe.Pointer(cs))

	nativeMu.Lock()
	defer nativeMu.Unlock()
	C.gotcc_add_sysinclude_path(e.g, cs)
}

func (e *Engine) AddLibraryPath(path string) {
	cs := C.CString(path)
	defer C.free(unsafe.Pointer(cs))

	nativeMu.Lock()
	defer nativeMu.Unlock()
	C.gotcc_add_library_path(e.g, cs)
}

func (e *Engine) SetFlag(flag engine.Flag, on bool) {
	if flag < 0 || flag >= engine.NumFlags {
		return
	}
	v := C.int(0)
	if on {
		v = 1
	}

	nativeMu.Lock()
	defer nativeMu.Unlock()
	C.gotcc_set_flag(e.g, flagCodes[flag], v)
}

func (e *Engine) SetOutputType(code int) int {
	nativeMu.Lock()
	defer nativeMu.Unlock()
	return int(C.gotcc_set_output_type(e.g, C.int(code)))
}

func (e *Engine) DefineSymbol(name, value string) {
	cn := C.CString(name)
	defer C.free(unsafe.Pointer(cn))
	var cv *C.char // NULL defines the macro as 1
	if value != "" {
		cv = C.CString(value)
		defer C.free(unsafe.Pointer(cv))
	}

	nativeMu.Lock()
	defer nativeMu.Unlock()
	C.gotcc_define_symbol(e.g, cn, cv)
}

func (e *Engine) UndefineSymbol(name string) {
	cn := C.CString(name)
	defer C.free(unsafe.Pointer(cn))

	nativeMu.Lock()
	defer nativeMu.Unlock()
	C.gotcc_undefine_symbol(e.g, cn)
}

func (e *Engine) AddFile(path string) int {
	cs := C.CString(path)
	defer C.free(unsafe.Pointer(cs))

	nativeMu.Lock()
	defer nativeMu.Unlock()
	return int(C.gotcc_add_file(e.g, cs))
}

func (e *Engine) CompileString(src string) int {
	cs := C.CString(src)
	defer C.free(unsafe.Pointer(cs))

	nativeMu.Lock()
	defer nativeMu.Unlock()
	return int(C.gotcc_compile_string(e.g, cs))
}

func (e *Engine) AddLibrary(name string) int {
	cs := C.CString(name)
	defer C.free(unsafe.Pointer(cs))

	nativeMu.Lock()
	defer nativeMu.Unlock()
	return int(C.gotcc_add_library(e.g, cs))
}

func (e *Engine) AddSymbol(name string, addr unsafe.Pointer) {
	cs := C.CString(name)
	defer C.free(unsafe.Pointer(cs))

	nativeMu.Lock()
	defer nativeMu.Unlock()
	C.gotcc_add_symbol(e.g, cs, addr)
}

func (e *Engine) OutputFile(path string) int {
	cs := C.CString(path)
	defer C.free(unsafe.Pointer(cs))

	nativeMu.Lock()
	defer nativeMu.Unlock()
	return int(C.gotcc_output_file(e.g, cs))
}

func (e *Engine) Relocate(dst unsafe.Pointer) int {
	nativeMu.Lock()
	defer nativeMu.Unlock()
	return int(C.gotcc_relocate(e.g, dst))
}

func (e *Engine) RelocateAuto() int {
	nativeMu.Lock()
	defer nativeMu.Unlock()
	return int(C.gotcc_relocate_auto(e.g))
}

func (e *Engine) Symbol(name string) unsafe.Pointer {
	cs := C.CString(name)
	defer C.free(unsafe.Pointer(cs))

	nativeMu.Lock()
	defer nativeMu.Unlock()
	return C.gotcc_get_symbol(e.g, cs)
}

func (e *Engine) Run(argv []string) int {
	cargs := make([]*C.char, len(argv))
	for i, arg := range argv {
		cargs[i] = C.CString(arg)
	}
	defer func() {
		for _, cs := range cargs {
			C.free(unsafe.Pointer(cs))
		}
	}()

	var p **C.char
	if len(cargs) > 0 {
		p = &cargs[0]
	}

	nativeMu.Lock()
	defer nativeMu.Unlock()
	return int(C.gotcc_run(e.g, C.int(len(cargs)), p))
}

func (e *Engine) Arm(on bool) {
	v := C.int(0)
	if on {
		v = 1
	}
	nativeMu.Lock()
	defer nativeMu.Unlock()
	e.g.armed = v
	e.g.aborted = 0
}

func (e *Engine) Aborted() bool {
	nativeMu.Lock()
	defer nativeMu.Unlock()
	aborted := e.g.aborted != 0
	e.g.aborted = 0
	return aborted
}

// Close deletes the native state before releasing the callback handle, so
// no diagnostic can arrive for a released handle.
func (e *Engine) Close() {
	nativeMu.Lock()
	if e.g == nil {
		nativeMu.Unlock()
		return
	}
	C.gotcc_delete(e.g)
	e.g = nil
	current = nil
	nativeMu.Unlock()

	e.handle.Delete()
}

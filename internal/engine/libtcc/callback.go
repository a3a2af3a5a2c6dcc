//go:build cgo && !nolibtcc

package libtcc

/*
#include <stdint.h>
*/
import "C"

import "runtime/cgo"

// gotccDiagnostic is the engine's error function. It runs synchronously on
// the goroutine that made the engine call.
//
//export gotccDiagnostic
func gotccDiagnostic(h C.uintptr_t, msg *C.char) {
	e, ok := cgo.Handle(h).Value().(*Engine)
	if !ok || e.onError == nil {
		return
	}
	e.onError(C.GoString(msg))
}

package roottask

import (
	"reflect"
	"runtime"

	"github.com/cohesix/ninedoor/internal/ninedoor/apperr"
)

// PhaseFunc is one bootstrap phase's body.
type PhaseFunc func() error

// IsTextPtr reports whether fn resolves to a named function the Go runtime
// recognises as compiled code, the host-language analogue of guards.rs's
// is_text_ptr(addr) bound check: a nil func value or one synthesized at
// runtime (e.g. via unsafe pointer tricks) fails this check (spec §4.10
// "All indirect calls into user-supplied function pointers MUST be guarded
// by is_text_ptr(addr)").
func IsTextPtr(fn PhaseFunc) bool {
	if fn == nil {
		return false
	}
	pc := reflect.ValueOf(fn).Pointer()
	return runtime.FuncForPC(pc) != nil
}

// CallChecked invokes fn only after IsTextPtr passes; a target that fails
// the check is not invoked and CallChecked returns a Permission error.
func CallChecked(fn PhaseFunc) error {
	if !IsTextPtr(fn) {
		return apperr.New(apperr.Permission, "indirect call target rejected by text-pointer guard")
	}
	return fn()
}

package errors

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"
)

var (
	// DefaultHandler receives every error reported while views render and
	// state notifies. Nil handlers are replaced by a LogHandler on
	// slog's default logger.
	DefaultHandler Handler = &LogHandler{}

	handlerMu sync.RWMutex
)

// SetHandler installs h and returns the handler it replaces, so a caller can
// restore it with defer errors.SetHandler(errors.SetHandler(h)).
func SetHandler(h Handler) Handler {
	handlerMu.Lock()
	defer handlerMu.Unlock()
	prev := DefaultHandler
	if h == nil {
		h = &LogHandler{}
	}
	DefaultHandler = h
	return prev
}

func handler() Handler {
	handlerMu.RLock()
	defer handlerMu.RUnlock()
	return DefaultHandler
}

// Report hands err to the installed handler, stamping it when needed.
func Report(err *LoomError) {
	if err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	handler().HandleError(err)
}

// ReportAs wraps err as a LoomError of kind raised by op and reports it.
// A nil err is ignored.
func ReportAs(op string, kind ErrorKind, err error) {
	if err == nil {
		return
	}
	Report(&LoomError{Op: op, Kind: kind, Err: err})
}

// ReportPanic hands a recovered panic to the installed handler.
func ReportPanic(err *PanicError) {
	if err == nil {
		return
	}
	handler().HandlePanic(err)
}

// Recover reports a panic of the deferring function as raised by op.
//
//	defer errors.Recover("state.Graph.Trigger")
func Recover(op string) {
	if r := recover(); r != nil {
		ReportPanic(recovered(op, r))
	}
}

// RecoverWithCallback is Recover followed by callback(r). Constructors use
// the callback to turn the panic into their error result.
func RecoverWithCallback(op string, callback func(r any)) {
	if r := recover(); r != nil {
		ReportPanic(recovered(op, r))
		if callback != nil {
			callback(r)
		}
	}
}

// Guard runs fn, reporting a panic instead of propagating it. Listener loops
// run user callbacks through it.
func Guard(op string, fn func()) {
	defer Recover(op)
	fn()
}

func recovered(op string, r any) *PanicError {
	return &PanicError{
		Op:         op,
		Value:      r,
		StackTrace: CaptureStack(),
		Timestamp:  time.Now(),
	}
}

// CaptureStack returns the calling goroutine's stack, one "function\n\tfile:line"
// entry per frame. Frames of the runtime and of this package are left out,
// so a stack captured while recovering starts at the frame that panicked.
func CaptureStack() string {
	const maxDepth = 48
	var pcs [maxDepth]uintptr
	n := runtime.Callers(2, pcs[:])
	if n == 0 {
		return ""
	}

	var sb strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !internalFrame(frame.Function) {
			fmt.Fprintf(&sb, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

const packagePath = "github.com/go-drift/loom/pkg/errors."

func internalFrame(fn string) bool {
	return strings.HasPrefix(fn, "runtime.") || strings.HasPrefix(fn, packagePath)
}

package inline

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/sqlinline/pkg/token"
)

// Sentinel errors carried by warnings.
var (
	ErrResourceUnavailable = errors.New("sql resource unavailable")
	ErrImportReconcile     = errors.New("no import statement to extend")
	ErrVerify              = errors.New("rewritten source does not parse")
)

// WarningKind classifies a non-fatal transform diagnostic.
type WarningKind int

// Warning kinds.
const (
	ResourceUnavailable WarningKind = iota + 1
	ImportReconcileFailed
	VerifyFailed
)

// String returns the upper-case name used in logs and CLI output.
func (k WarningKind) String() string {
	switch k {
	case ResourceUnavailable:
		return "RESOURCE_UNAVAILABLE"
	case ImportReconcileFailed:
		return "IMPORT_RECONCILE_FAILED"
	case VerifyFailed:
		return "VERIFY_FAILED"
	default:
		return fmt.Sprintf("WarningKind(%d)", int(k))
	}
}

// Warning is a diagnostic delivered through a WarnFunc. Nothing that produces a
// Warning stops the transform; the affected call site or file is left as the
// author wrote it.
type Warning struct {
	Kind WarningKind
	File string         // file being transformed
	Path string         // SQL path as written in the call, empty for file-level warnings
	Pos  token.Position // call site, zero for file-level warnings
	Err  error
}

// WarnFunc receives warnings from a single Transform call.
type WarnFunc func(w *Warning)

func (w *Warning) Error() string {
	switch w.Kind {
	case ResourceUnavailable:
		return fmt.Sprintf("%s: left %q unchanged: %v", w.File, w.Path, w.Err)
	case ImportReconcileFailed:
		return fmt.Sprintf("%s: calls were inlined but the query function could not be imported: %v", w.File, w.Err)
	default:
		return fmt.Sprintf("%s: %v", w.File, w.Err)
	}
}

// Unwrap returns the underlying error.
func (w *Warning) Unwrap() error {
	return w.Err
}

// ResourceError reports a SQL file that could not be resolved or read.
type ResourceError struct {
	Path string // resolved path that was attempted
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrResourceUnavailable, e.Path, e.Err)
}

// Is makes errors.Is(err, ErrResourceUnavailable) hold for any ResourceError.
func (e *ResourceError) Is(target error) bool {
	return target == ErrResourceUnavailable
}

// Unwrap returns the underlying I/O or decoding error.
func (e *ResourceError) Unwrap() error {
	return e.Err
}

package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes a pipeline error for propagation and exit-code mapping.
type Kind int

const (
	// KindConfig - invalid or missing configuration; fail fast before any I/O
	KindConfig Kind = iota
	// KindStoreIntegrity - SHA-256 mismatch, schema-invalid derived file, broken store invariant
	KindStoreIntegrity
	// KindIngest - transient I/O during ingest; per-item, non-fatal to the batch
	KindIngest
	// KindTypeDetect - classification failure; downgraded to evidence type "other"
	KindTypeDetect
	// KindAnalyzer - LLM or per-type parsing failure; per-item, non-fatal to the batch
	KindAnalyzer
	// KindCorrelation - input analyses missing or malformed; fatal at case level
	KindCorrelation
	// KindPackage - output filesystem failure or partial assembly; package discarded
	KindPackage
	// KindCancelled - cooperative cancellation
	KindCancelled
	// KindInternal - unexpected internal state
	KindInternal
)

// Severity indicates how an error affects the surrounding batch or case.
type Severity int

const (
	// SeverityItem - affects a single artifact only
	SeverityItem Severity = iota
	// SeverityCase - fails the current case but not other cases
	SeverityCase
	// SeverityFatal - stops the process
	SeverityFatal
)

// Exit codes surfaced by the orchestrator. Stable; scripts depend on them.
const (
	ExitOK             = 0
	ExitInternal       = 1
	ExitBadConfig      = 2
	ExitStoreIntegrity = 3
	ExitAllFailed      = 4
	ExitPartialFailure = 5
	ExitCancelled      = 6
)

// Error is a structured pipeline error carrying its kind, severity and
// arbitrary context for logging.
type Error struct {
	Kind     Kind
	Severity Severity
	Message  string
	Cause    error
	Context  map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches on Kind so callers can use errors.Is with a kind sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithContext attaches a key/value pair for structured logging.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// DetailedString renders the error with kind, severity and context lines.
func (e *Error) DetailedString() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] [%s] %s\n", severityString(e.Severity), kindString(e.Kind), e.Message))
	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf("Caused by: %v\n", e.Cause))
	}
	if len(e.Context) > 0 {
		sb.WriteString("Context:\n")
		for k, v := range e.Context {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", k, v))
		}
	}
	return sb.String()
}

func kindString(k Kind) string {
	switch k {
	case KindConfig:
		return "CONFIG"
	case KindStoreIntegrity:
		return "STORE_INTEGRITY"
	case KindIngest:
		return "INGEST"
	case KindTypeDetect:
		return "TYPE_DETECT"
	case KindAnalyzer:
		return "ANALYZER"
	case KindCorrelation:
		return "CORRELATION"
	case KindPackage:
		return "PACKAGE"
	case KindCancelled:
		return "CANCELLED"
	default:
		return "INTERNAL"
	}
}

func severityString(s Severity) string {
	switch s {
	case SeverityItem:
		return "ITEM"
	case SeverityCase:
		return "CASE"
	default:
		return "FATAL"
	}
}

// New creates a structured error.
func New(kind Kind, severity Severity, message string) *Error {
	return &Error{Kind: kind, Severity: severity, Message: message}
}

// Wrap wraps err with kind and severity. Returns nil when err is nil.
func Wrap(err error, kind Kind, severity Severity, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Severity: severity, Message: message, Cause: err}
}

// Convenience constructors, one per taxonomy entry.

func ConfigError(message string) *Error {
	return New(KindConfig, SeverityFatal, message)
}

func ConfigErrorf(format string, args ...any) *Error {
	return New(KindConfig, SeverityFatal, fmt.Sprintf(format, args...))
}

func StoreIntegrityError(err error, message string) *Error {
	return Wrap(err, KindStoreIntegrity, SeverityItem, message)
}

func StoreIntegrityErrorf(err error, format string, args ...any) *Error {
	return Wrap(err, KindStoreIntegrity, SeverityItem, fmt.Sprintf(format, args...))
}

func IngestError(err error, message string) *Error {
	return Wrap(err, KindIngest, SeverityItem, message)
}

func AnalyzerError(err error, message string) *Error {
	return Wrap(err, KindAnalyzer, SeverityItem, message)
}

func AnalyzerErrorf(err error, format string, args ...any) *Error {
	return Wrap(err, KindAnalyzer, SeverityItem, fmt.Sprintf(format, args...))
}

func CorrelationError(err error, message string) *Error {
	return Wrap(err, KindCorrelation, SeverityCase, message)
}

func PackageError(err error, message string) *Error {
	return Wrap(err, KindPackage, SeverityCase, message)
}

func Cancelled(message string) *Error {
	return New(KindCancelled, SeverityFatal, message)
}

func InternalErrorf(format string, args ...any) *Error {
	return New(KindInternal, SeverityFatal, fmt.Sprintf(format, args...))
}

// IsKind reports whether err (or anything it wraps) carries the given kind.
func IsKind(err error, kind Kind) bool {
	for e := err; e != nil; {
		if se, ok := e.(*Error); ok && se.Kind == kind {
			return true
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		e = u.Unwrap()
	}
	return false
}

// Batch outcome sentinels used by the orchestrator to signal that the run
// finished but some or all items failed.
var (
	ErrAllFailed      = errors.New("all items failed")
	ErrPartialFailure = errors.New("some items failed")
)

// AllFailed wraps the all-items-failed sentinel for a batch run.
func AllFailed(failed int) *Error {
	return Wrap(ErrAllFailed, KindInternal, SeverityFatal,
		fmt.Sprintf("all %d items failed", failed))
}

// PartialFailure wraps the partial-failure sentinel for a batch run.
func PartialFailure(failed, attempted int) *Error {
	return Wrap(ErrPartialFailure, KindInternal, SeverityCase,
		fmt.Sprintf("%d of %d items failed", failed, attempted))
}

// ExitCode maps an error to the orchestrator's stable exit codes.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch {
	case IsKind(err, KindConfig):
		return ExitBadConfig
	case IsKind(err, KindStoreIntegrity):
		return ExitStoreIntegrity
	case IsKind(err, KindCancelled):
		return ExitCancelled
	case errors.Is(err, ErrAllFailed):
		return ExitAllFailed
	case errors.Is(err, ErrPartialFailure):
		return ExitPartialFailure
	default:
		return ExitInternal
	}
}

package caos

import (
	"errors"

	"github.com/psilLang/caos/pkg/catalog"
)

// Catalog tags diagnostics are rendered from.
const (
	compileTag  = "caos_compile"
	runtimeTag  = "caos_runtime"
	locationTag = "caos_location"
)

// CompileCode indexes the caos_compile catalog array.
type CompileCode int

const (
	CompUnknownCommand CompileCode = iota
	CompUnknownSub
	CompExpected
	CompBadLiteral
	CompUnbalanced
	CompUnterminated
	CompUndefinedLabel
	CompDuplicateLabel
	CompByteRange
	CompUnexpectedEnd
	CompReturnInBlock
	CompSlotName
	CompLabelInBlock
	CompSection
	CompByteLength
)

// CompileError reports why a script was rejected. No unit is produced.
type CompileError struct {
	Code   CompileCode
	Args   []any
	Token  string
	Offset int
	Line   int
	Column int

	catalog catalog.Catalog
}

func (e *CompileError) Error() string {
	msg := catalog.Format(e.catalog, compileTag, int(e.Code), e.Args...)
	return catalog.Format(e.catalog, locationTag, 2, msg, e.Offset, e.Line, e.Column)
}

// ErrorCode indexes the caos_runtime catalog array.
type ErrorCode int

const (
	ErrInvalidAgent ErrorCode = iota
	ErrDivideByZero
	ErrIndexRange
	ErrSubCommand
	ErrWrongType
	ErrNegative
	ErrStreamClosed
	ErrBadOpcode
	ErrCorrupt
	ErrStackUnderflow
	ErrSlotRange
	ErrAgentCompare
	ErrHost
	ErrNesting
)

// RunError is a runtime fault. The context that raised it refuses to run
// until it is stopped or restarted.
type RunError struct {
	Code ErrorCode
	Args []any

	// Op is the name of the command executing when the fault was raised,
	// IP the address of its opcode.
	Op           string
	IP           int
	SourceOffset int

	// Err is the underlying cause for ErrHost and ErrCorrupt.
	Err error

	catalog catalog.Catalog
}

// NewRunError returns a fault for a handler to return. The context fills
// in the location when it is raised.
func NewRunError(code ErrorCode, args ...any) *RunError {
	return &RunError{Code: code, Args: args, SourceOffset: -1}
}

func (e *RunError) Error() string {
	msg := catalog.Format(e.catalog, runtimeTag, int(e.Code), e.Args...)
	if e.Op == "" {
		return msg
	}
	if e.SourceOffset >= 0 {
		return catalog.Format(e.catalog, locationTag, 0, msg, e.Op, e.IP, e.SourceOffset)
	}
	return catalog.Format(e.catalog, locationTag, 1, msg, e.Op, e.IP)
}

func (e *RunError) Unwrap() error { return e.Err }

// IsCode reports whether err is a RunError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var re *RunError
	return errors.As(err, &re) && re.Code == code
}

// IsCompileCode reports whether err is a CompileError with the given code.
func IsCompileCode(err error, code CompileCode) bool {
	var ce *CompileError
	return errors.As(err, &ce) && ce.Code == code
}

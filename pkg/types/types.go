// Package types defines the runtime values scripts manipulate.
// Every value that can live in a slot or travel as an operand implements
// the Value interface.
package types

import (
	"fmt"
	"strconv"
)

// Value is the interface all script values implement.
type Value interface {
	// String returns the text form used by outv/vtos
	String() string
	// Type returns the type name for error messages
	Type() string
	// Equal checks equality with another value
	Equal(other Value) bool
}

// Integer is a 32-bit script integer.
type Integer int32

func (n Integer) String() string { return strconv.FormatInt(int64(n), 10) }
func (n Integer) Type() string   { return "integer" }

func (n Integer) Equal(other Value) bool {
	if o, ok := other.(Integer); ok {
		return n == o
	}
	return false
}

// Float is a 32-bit script float.
type Float float32

func (f Float) String() string {
	// Whole numbers print without a fraction, matching outv on integers
	if f == Float(int32(f)) {
		return fmt.Sprintf("%d", int32(f))
	}
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

func (f Float) Type() string { return "float" }

func (f Float) Equal(other Value) bool {
	if o, ok := other.(Float); ok {
		return f == o
	}
	return false
}

// String is a script string.
type String string

func (s String) String() string { return string(s) }
func (s String) Type() string   { return "string" }

func (s String) Equal(other Value) bool {
	if o, ok := other.(String); ok {
		return s == o
	}
	return false
}

// Handle wraps an agent reference. A Handle with a nil Agent is NULL.
type Handle struct {
	Agent Agent
}

// Null is the empty agent reference.
var Null = Handle{}

func (h Handle) String() string {
	if h.Agent == nil {
		return "NULL"
	}
	return fmt.Sprintf("agent#%d", h.Agent.UNID())
}

func (h Handle) Type() string { return "agent" }

func (h Handle) Equal(other Value) bool {
	if o, ok := other.(Handle); ok {
		return h.Agent == o.Agent
	}
	return false
}

// IsNull reports whether the handle points nowhere.
func (h Handle) IsNull() bool { return h.Agent == nil }

// Numeric reports whether v is an Integer or Float. An unset slot (nil)
// counts as the integer zero.
func Numeric(v Value) bool {
	switch v.(type) {
	case nil, Integer, Float:
		return true
	}
	return false
}

// ToInt converts a numeric value to an integer, truncating floats toward zero.
func ToInt(v Value) (int32, bool) {
	switch n := v.(type) {
	case nil:
		return 0, true
	case Integer:
		return int32(n), true
	case Float:
		return int32(n), true
	}
	return 0, false
}

// ToFloat converts a numeric value to a float.
func ToFloat(v Value) (float32, bool) {
	switch n := v.(type) {
	case nil:
		return 0, true
	case Integer:
		return float32(n), true
	case Float:
		return float32(n), true
	}
	return 0, false
}

// ToFloat64 converts a numeric value to a float64. Integers convert
// exactly.
func ToFloat64(v Value) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, true
	case Integer:
		return float64(n), true
	case Float:
		return float64(n), true
	}
	return 0, false
}

// TypeName returns v.Type(), or "integer" for an unset slot.
func TypeName(v Value) string {
	if v == nil {
		return "integer"
	}
	return v.Type()
}

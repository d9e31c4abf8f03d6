package bytecode

import "fmt"

// Tag identifies the form of an encoded operand.
type Tag byte

const (
	TagInvalid Tag = iota
	TagInt         // int32 literal
	TagFloat       // float32 literal
	TagString      // string literal
	TagNumber      // numeric producer call
	TagText        // string producer call
	TagAgent       // agent producer call
	TagVariant     // generic producer call
	TagVar         // variable accessor
)

var tagNames = [...]string{
	TagInvalid: "invalid",
	TagInt:     "int",
	TagFloat:   "float",
	TagString:  "string",
	TagNumber:  "number-call",
	TagText:    "string-call",
	TagAgent:   "agent-call",
	TagVariant: "variant-call",
	TagVar:     "variable",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return fmt.Sprintf("tag(%d)", byte(t))
}

// Literal reports whether the tag carries an inline value.
func (t Tag) Literal() bool {
	return t == TagInt || t == TagFloat || t == TagString
}

// Comparator bytes inside a condition chain.
const (
	CmpEQ byte = iota
	CmpNE
	CmpGT
	CmpGE
	CmpLT
	CmpLE
)

var cmpNames = [...]string{"=", "<>", ">", ">=", "<", "<="}

// ComparatorName returns the source spelling of a comparator byte.
func ComparatorName(c byte) string {
	if int(c) < len(cmpNames) {
		return cmpNames[c]
	}
	return "?"
}

// Logic bytes linking condition clauses.
const (
	LogicEnd byte = iota
	LogicAnd
	LogicOr
)

// Operand is one decoded tagged operand. For literal tags the matching
// value field is set; for call and variable tags Op holds the producer's
// ordinal and the producer's own operands follow in the stream.
type Operand struct {
	Tag   Tag
	Int   int32
	Float float32
	Str   string
	Op    uint16
}

func (o Operand) String() string {
	switch o.Tag {
	case TagInt:
		return fmt.Sprintf("%d", o.Int)
	case TagFloat:
		return fmt.Sprintf("%g", o.Float)
	case TagString:
		return fmt.Sprintf("%q", o.Str)
	case TagNumber, TagText, TagAgent, TagVariant, TagVar:
		return fmt.Sprintf("%s#%d", o.Tag, o.Op)
	}
	return o.Tag.String()
}

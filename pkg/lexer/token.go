package lexer

import "fmt"

// Kind classifies a token.
type Kind int

const (
	EOF Kind = iota
	Error
	Symbol
	Integer
	Float
	String
	ByteString
	Comparator
	Logical
)

var kindNames = [...]string{
	EOF:        "end of script",
	Error:      "error",
	Symbol:     "symbol",
	Integer:    "integer",
	Float:      "float",
	String:     "string",
	ByteString: "byte-string",
	Comparator: "comparator",
	Logical:    "logical operator",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Comparison is the decoded value of a Comparator token.
type Comparison int

const (
	EQ Comparison = iota
	NE
	GT
	GE
	LT
	LE
)

// Logic is the decoded value of a Logical token.
type Logic int

const (
	And Logic = iota
	Or
)

// Token is one lexical unit. Only the decoded field matching Kind is set.
type Token struct {
	Kind Kind
	Raw  string

	Int   int32
	Float float32
	Text  string // decoded String literal, lower-cased Symbol
	Bytes []int
	Cmp   Comparison
	Logic Logic

	// Err describes why an Error token was produced
	Err string

	Offset int
	Line   int
	Column int
}

func (t Token) String() string {
	switch t.Kind {
	case EOF:
		return "<eof>"
	case Error:
		return fmt.Sprintf("<error %s: %q>", t.Err, t.Raw)
	}
	return t.Raw
}

var comparatorWords = map[string]Comparison{
	"=":  EQ,
	"eq": EQ,
	"<>": NE,
	"ne": NE,
	">":  GT,
	"gt": GT,
	">=": GE,
	"ge": GE,
	"<":  LT,
	"lt": LT,
	"<=": LE,
	"le": LE,
}

var logicWords = map[string]Logic{
	"and": And,
	"or":  Or,
}

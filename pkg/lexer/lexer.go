// Package lexer turns script text into typed tokens. Token rules are
// defined with participle's simple lexer; this package decodes literals,
// folds word operators, and offers a single token of backup for the
// compiler's condition parser.
package lexer

import (
	"errors"
	"strconv"
	"strings"

	plexer "github.com/alecthomas/participle/v2/lexer"
)

// Token rules, tried in order. The Bad* rules catch malformed literals so
// they surface as error tokens rather than as a run of unrelated tokens.
var scriptLexer = plexer.MustSimple([]plexer.SimpleRule{
	{Name: "Comment", Pattern: `\*[^\n]*`},
	{Name: "Whitespace", Pattern: `\s+`},

	{Name: "String", Pattern: `"(\\.|[^"\\\n])*"`},
	{Name: "BadString", Pattern: `"[^\n]*`},

	{Name: "BadNumber", Pattern: `-?\d+(\.\d*)?[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Float", Pattern: `-?(\d+\.\d*|\.\d+)`},
	{Name: "Int", Pattern: `-?\d+`},

	{Name: "Bytes", Pattern: `\[(\s*-?\d+)*\s*\]`},
	{Name: "BadBytes", Pattern: `\[[^\]\n]*\]?`},

	{Name: "Comparator", Pattern: `<>|<=|>=|=|<|>`},
	{Name: "Symbol", Pattern: `[A-Za-z_][A-Za-z0-9_]*[:+]?`},
})

var ruleNames = func() map[plexer.TokenType]string {
	names := make(map[plexer.TokenType]string)
	for name, typ := range scriptLexer.Symbols() {
		names[typ] = name
	}
	return names
}()

// Lexer is a forward-only token stream over one script.
type Lexer struct {
	src    plexer.Lexer
	prev   Token
	backed bool
	failed *Token
}

// New returns a lexer over text.
func New(text string) *Lexer {
	l := &Lexer{}
	src, err := scriptLexer.LexString("", text)
	if err != nil {
		tok := errorToken(err, "", "unreadable script")
		l.failed = &tok
		return l
	}
	l.src = src
	return l
}

// Next returns the next token. After EOF or an Error token every further
// call returns the same token.
func (l *Lexer) Next() Token {
	if l.backed {
		l.backed = false
		return l.prev
	}
	if l.failed != nil {
		l.prev = *l.failed
		return l.prev
	}
	l.prev = l.scan()
	if l.prev.Kind == Error || l.prev.Kind == EOF {
		t := l.prev
		l.failed = &t
	}
	return l.prev
}

// Backup pushes the last token back so the next call to Next returns it
// again. Only one token of backup is supported.
func (l *Lexer) Backup() {
	l.backed = true
}

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() Token {
	t := l.Next()
	l.Backup()
	return t
}

func (l *Lexer) scan() Token {
	for {
		raw, err := l.src.Next()
		if err != nil {
			return errorToken(err, "", "invalid input")
		}
		if raw.EOF() {
			return Token{Kind: EOF, Offset: raw.Pos.Offset, Line: raw.Pos.Line, Column: raw.Pos.Column}
		}
		rule := ruleNames[raw.Type]
		if rule == "Whitespace" || rule == "Comment" {
			continue
		}
		tok := Token{Raw: raw.Value, Offset: raw.Pos.Offset, Line: raw.Pos.Line, Column: raw.Pos.Column}
		decode(&tok, rule)
		return tok
	}
}

func decode(tok *Token, rule string) {
	switch rule {
	case "String":
		text, ok := unquote(tok.Raw)
		if !ok {
			tok.fail("bad escape in string")
			return
		}
		tok.Kind = String
		tok.Text = text
	case "BadString":
		tok.fail("unterminated string")
	case "BadNumber":
		tok.fail("malformed number")
	case "Float":
		f, err := strconv.ParseFloat(tok.Raw, 32)
		if err != nil {
			tok.fail("float out of range")
			return
		}
		tok.Kind = Float
		tok.Float = float32(f)
	case "Int":
		n, err := strconv.ParseInt(tok.Raw, 10, 32)
		if err != nil {
			tok.fail("integer out of range")
			return
		}
		tok.Kind = Integer
		tok.Int = int32(n)
	case "Bytes":
		fields := strings.Fields(strings.Trim(tok.Raw, "[]"))
		tok.Bytes = make([]int, 0, len(fields))
		for _, f := range fields {
			n, err := strconv.Atoi(f)
			if err != nil {
				tok.fail("byte-string value too large")
				return
			}
			tok.Bytes = append(tok.Bytes, n)
		}
		tok.Kind = ByteString
	case "BadBytes":
		tok.fail("malformed byte-string")
	case "Comparator":
		tok.Kind = Comparator
		tok.Cmp = comparatorWords[tok.Raw]
	case "Symbol":
		word := strings.ToLower(tok.Raw)
		if cmp, ok := comparatorWords[word]; ok {
			tok.Kind = Comparator
			tok.Cmp = cmp
			return
		}
		if logic, ok := logicWords[word]; ok {
			tok.Kind = Logical
			tok.Logic = logic
			return
		}
		tok.Kind = Symbol
		tok.Text = word
	default:
		tok.fail("unknown token")
	}
}

func (t *Token) fail(reason string) {
	t.Kind = Error
	t.Err = reason
}

func errorToken(err error, raw, fallback string) Token {
	tok := Token{Kind: Error, Raw: raw, Err: fallback}
	var lerr *plexer.Error
	if errors.As(err, &lerr) {
		tok.Err = lerr.Msg
		tok.Offset = lerr.Pos.Offset
		tok.Line = lerr.Pos.Line
		tok.Column = lerr.Pos.Column
	}
	return tok
}

// unquote decodes a double-quoted literal with \n \t \r \" \\ escapes.
// NUL bytes are rejected since compiled strings are NUL-terminated.
func unquote(raw string) (string, bool) {
	body := raw[1 : len(raw)-1]
	if strings.IndexByte(body, 0) >= 0 {
		return "", false
	}
	if !strings.Contains(body, `\`) {
		return body, true
	}
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", false
		}
		switch body[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '"':
			sb.WriteByte('"')
		case '\\':
			sb.WriteByte('\\')
		default:
			return "", false
		}
	}
	return sb.String(), true
}

package caos

import (
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/psilLang/caos/pkg/bytecode"
	"github.com/psilLang/caos/pkg/lexer"
	"github.com/psilLang/caos/pkg/types"
)

// File is a compiled install file: the install script, event scripts
// keyed by classifier, and an optional removal script.
type File struct {
	Install *bytecode.Unit
	Scripts []*bytecode.Unit
	Remove  *bytecode.Unit
}

type section struct {
	class      types.Classifier
	start, end int
}

// CompileFile compiles an install file. Text outside any
// `scrp f g s e ... endm` section forms the install script; text after
// `rscr` forms the removal script. Every section is compiled and all
// failures are reported together; no units are returned on failure.
func (l *Language) CompileFile(text string) (*File, error) {
	install, scripts, remove, err := l.splitFile(text)
	if err != nil {
		return nil, err
	}

	var result *multierror.Error
	f := &File{}
	compile := func(s section) *bytecode.Unit {
		u, err := l.CompileClassified(text[s.start:s.end], s.class)
		if err != nil {
			result = multierror.Append(result, rebase(err, text, s.start))
		}
		return u
	}

	if script := blankExcept(text, install); lexer.New(script).Peek().Kind != lexer.EOF {
		u, err := l.Compile(script)
		if err != nil {
			result = multierror.Append(result, err)
		}
		f.Install = u
	}
	for _, s := range scripts {
		if u := compile(s); u != nil {
			f.Scripts = append(f.Scripts, u)
		}
	}
	if remove != nil {
		f.Remove = compile(*remove)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return f, nil
}

// blankExcept replaces everything outside keep with spaces, preserving
// line breaks so offsets and positions still refer to text.
func blankExcept(text string, keep []section) string {
	out := []byte(text)
	next := 0
	blank := func(from, to int) {
		for i := from; i < to; i++ {
			if out[i] != '\n' {
				out[i] = ' '
			}
		}
	}
	for _, k := range keep {
		blank(next, k.start)
		next = k.end
	}
	blank(next, len(out))
	return string(out)
}

func (l *Language) splitFile(text string) (install, scripts []section, remove *section, err error) {
	fail := func(tok lexer.Token, args ...any) error {
		return &CompileError{
			Code: CompSection, Args: args, Token: tok.Raw,
			Offset: tok.Offset, Line: tok.Line, Column: tok.Column,
			catalog: l.catalog,
		}
	}

	lex := lexer.New(text)
	outside := 0
	var open *section
	var openTok lexer.Token
	for {
		tok := lex.Next()
		if tok.Kind == lexer.EOF {
			break
		}
		if tok.Kind == lexer.Error {
			return nil, nil, nil, (&compiler{lang: l}).badLiteral(tok)
		}
		if tok.Kind != lexer.Symbol {
			continue
		}
		switch tok.Text {
		case "scrp":
			if open != nil || remove != nil {
				return nil, nil, nil, fail(tok, tok.Text)
			}
			var parts [4]int32
			end := tok.Offset + len(tok.Raw)
			for i := range parts {
				n := lex.Next()
				if n.Kind != lexer.Integer {
					return nil, nil, nil, (&compiler{lang: l}).unexpected(n, "integer")
				}
				parts[i] = n.Int
				end = n.Offset + len(n.Raw)
			}
			install = append(install, section{start: outside, end: tok.Offset})
			open = &section{class: types.NewClassifier(parts[0], parts[1], parts[2], parts[3]), start: end}
			openTok = tok
		case "endm":
			if open == nil {
				return nil, nil, nil, fail(tok, tok.Text)
			}
			open.end = tok.Offset
			scripts = append(scripts, *open)
			open = nil
			outside = tok.Offset + len(tok.Raw)
		case "rscr":
			if open != nil || remove != nil {
				return nil, nil, nil, fail(tok, tok.Text)
			}
			install = append(install, section{start: outside, end: tok.Offset})
			remove = &section{start: tok.Offset + len(tok.Raw), end: len(text)}
			outside = len(text)
		}
	}
	if open != nil {
		return nil, nil, nil, (&compiler{lang: l}).errorAt(openTok, CompUnterminated, openTok.Text)
	}
	if outside < len(text) {
		install = append(install, section{start: outside, end: len(text)})
	}
	return install, scripts, remove, nil
}

// rebase moves a section-relative compile error to file coordinates.
func rebase(err error, text string, base int) error {
	ce, ok := err.(*CompileError)
	if !ok {
		return err
	}
	moved := *ce
	moved.Offset += base
	moved.Line, moved.Column = position(text, moved.Offset)
	return &moved
}

func position(text string, offset int) (line, column int) {
	if offset > len(text) {
		offset = len(text)
	}
	before := text[:offset]
	line = strings.Count(before, "\n") + 1
	column = offset - strings.LastIndexByte(before, '\n')
	return line, column
}

package caos

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psilLang/caos/pkg/bytecode"
	"github.com/psilLang/caos/pkg/types"
)

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		script string
		code   CompileCode
	}{
		{"unknown command", "frob 1", CompUnknownCommand},
		{"unknown sub-command", "new: blob 1 2 3", CompUnknownSub},
		{"literal where a command goes", "5", CompExpected},
		{"string for a number", `setv va00 "x"`, CompExpected},
		{"number for a string", "outs 5", CompExpected},
		{"not a variable", "setv rand 1", CompExpected},
		{"bad slot", "setv va1x 1", CompSlotName},
		{"malformed number", "setv va00 12ab", CompBadLiteral},
		{"unterminated string", `outs "abc`, CompBadLiteral},
		{"endi alone", "endi", CompUnbalanced},
		{"else twice", "doif 1 = 1 else else endi", CompUnbalanced},
		{"mismatched close", "doif 1 = 1 repe", CompUnbalanced},
		{"elif after else", "doif 1 = 1 else elif 1 = 2 endi", CompUnbalanced},
		{"unclosed doif", "doif 1 = 1 outs \"x\"", CompUnterminated},
		{"unclosed loop", "loop", CompUnterminated},
		{"undefined label", "gsub nowhere", CompUndefinedLabel},
		{"duplicate label", "subr a retn subr a retn", CompDuplicateLabel},
		{"retn in loop", "subr a loop retn ever", CompReturnInBlock},
		{"retn in enum", "subr a enum 1 0 0 retn next", CompReturnInBlock},
		{"subr in block", "doif 1 = 1 subr a endi", CompLabelInBlock},
		{"missing comparator", "doif 1 1 endi", CompExpected},
		{"truncated", "setv va00", CompUnexpectedEnd},
		{"truncated condition", "doif 1 =", CompUnexpectedEnd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, err := NewLanguage().Compile(tt.script)
			require.Error(t, err)
			assert.Nil(t, unit, "no partial unit on failure")
			assert.True(t, IsCompileCode(err, tt.code), "got %v", err)
		})
	}
}

func TestUndefinedLabelIsNamed(t *testing.T) {
	_, err := NewLanguage().Compile("gsub first stop subr second retn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"first"`)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, ce.Line)
	assert.Equal(t, 6, ce.Column)
}

func TestCompileErrorPosition(t *testing.T) {
	_, err := NewLanguage().Compile("setv va00 1\n  frob")
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 14, ce.Offset)
	assert.Equal(t, 2, ce.Line)
	assert.Equal(t, 3, ce.Column)
	assert.Equal(t, "frob", ce.Token)
	assert.Contains(t, err.Error(), "line 2, column 3")
}

func TestRetnInsideConditionalIsAllowed(t *testing.T) {
	_, out, err := run(t, newTestWorld(), nil, "gsub s outs \"b\" stop subr s doif 1 = 1 outs \"a\" retn endi outs \"x\" retn")
	require.NoError(t, err)
	assert.Equal(t, "ab", out)
}

func TestForwardAndBackwardLabels(t *testing.T) {
	_, out, err := run(t, newTestWorld(), nil, `subr early outs "e" retn
		gsub late gsub early stop
		subr late outs "l" retn`)
	require.NoError(t, err)
	assert.Equal(t, "", out, "the leading subr ends the script")

	_, out, err = run(t, newTestWorld(), nil, `gsub late gsub early stop
		subr early outs "e" retn
		subr late outs "l" retn`)
	require.NoError(t, err)
	assert.Equal(t, "le", out)
}

func TestImplicitTerminator(t *testing.T) {
	lang := NewLanguage()
	unit, err := lang.Compile("")
	require.NoError(t, err)

	stop, _ := lang.Lookup(KindCommand, "stop")
	r := bytecode.NewReader(unit.Code())
	op, err := r.Op()
	require.NoError(t, err)
	assert.Equal(t, stop.ID(), op)
	assert.True(t, r.AtEnd())
}

func TestSourceMap(t *testing.T) {
	lang := NewLanguage()
	unit, err := lang.Compile("setv va00 1\nouts \"x\"")
	require.NoError(t, err)

	off, ok := unit.SourceOffset(0)
	require.True(t, ok)
	assert.Equal(t, 0, off)

	entries := unit.SourceMap().Entries()
	require.GreaterOrEqual(t, len(entries), 2)
	assert.Equal(t, uint32(12), entries[1].Offset)
}

func TestByteStringOperands(t *testing.T) {
	lang := NewLanguage()
	var got []byte
	lang.MustRegister(KindCommand, Descriptor{
		Name:   "tone",
		Params: []Param{ParamBytes},
		Exec: func(c *Context) error {
			b, err := c.Bytes()
			got = b
			return err
		},
	})

	unit, err := lang.Compile("tone [0 12 255]")
	require.NoError(t, err)
	c := NewContext(lang, nil)
	c.Start(unit, nil, nil, nil, nil)
	require.NoError(t, c.Step(-1))
	assert.Equal(t, []byte{0, 12, 255}, got)

	_, err = lang.Compile("tone [256]")
	assert.True(t, IsCompileCode(err, CompByteRange))
	_, err = lang.Compile("tone 5")
	assert.True(t, IsCompileCode(err, CompExpected))

	long := "tone [" + strings.Repeat("1 ", bytecode.MaxBytes+2) + "] outs \"x\""
	unit, err = lang.Compile(long)
	assert.Nil(t, unit)
	assert.True(t, IsCompileCode(err, CompByteLength), "got %v", err)

	_, err = lang.Compile("tone [" + strings.Repeat("7 ", bytecode.MaxBytes) + "]")
	require.NoError(t, err)
}

func TestDisassemble(t *testing.T) {
	lang := NewLanguage()
	unit, err := lang.Compile(`doif va00 = 5 and targ <> null outs "y" else new: simp 1 2 avar ownr 3 endi gsub s subr s retn`)
	require.NoError(t, err)

	text, err := lang.Disassemble(unit)
	require.NoError(t, err)
	for _, want := range []string{
		"doif va00 = 5 and targ <> null @",
		`outs "y"`,
		"new: simp 1 2 avar ownr 3",
		"endi",
		"gsub @",
		"retn",
		"stop",
	} {
		assert.Contains(t, text, want)
	}
	lines := strings.Split(strings.TrimSpace(text), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "0000  doif"))
}

func TestCompileFile(t *testing.T) {
	lang := NewLanguage()
	file, err := lang.CompileFile(`* install
new: simp 2 1 1
scrp 2 1 1 9
	outs "hello"
endm
setv game "installed" 1
scrp 2 0 0 1 outs "any" endm
rscr
outs "bye"`)
	require.NoError(t, err)

	require.NotNil(t, file.Install)
	require.Len(t, file.Scripts, 2)
	assert.Equal(t, types.NewClassifier(2, 1, 1, 9), file.Scripts[0].Classifier())
	assert.Equal(t, types.NewClassifier(2, 0, 0, 1), file.Scripts[1].Classifier())
	require.NotNil(t, file.Remove)
	assert.Contains(t, file.Remove.Source(), `outs "bye"`)

	w := newTestWorld()
	c := NewContext(lang, w)
	c.Start(file.Install, nil, nil, nil, nil)
	require.NoError(t, c.Step(-1))
	assert.Len(t, w.agents, 1)
	assert.Equal(t, types.Integer(1), *w.GameVar("installed"))
}

func TestCompileFileErrors(t *testing.T) {
	lang := NewLanguage()

	_, err := lang.CompileFile("scrp 1 2 3 4 frob endm\nscrp 1 2 3 5 blah endm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"frob"`)
	assert.Contains(t, err.Error(), `"blah"`)
	assert.Contains(t, err.Error(), "line 2", "errors are reported in file coordinates")

	_, err = lang.CompileFile("scrp 1 2 3 4 outs \"x\"")
	assert.True(t, IsCompileCode(err, CompUnterminated))

	_, err = lang.CompileFile("endm")
	assert.True(t, IsCompileCode(err, CompSection))

	_, err = lang.CompileFile("scrp 1 2 x 4 endm")
	assert.True(t, IsCompileCode(err, CompExpected))
}

func TestPersistedUnitsSurviveSameLanguage(t *testing.T) {
	lang := NewLanguage()
	unit, err := lang.CompileClassified("setv va00 2 mulv va00 21 outv va00", types.NewClassifier(1, 2, 3, 4))
	require.NoError(t, err)

	data, err := bytecode.Marshal(unit)
	require.NoError(t, err)
	back, err := bytecode.Unmarshal(data, NewLanguage().Recompiler())
	require.NoError(t, err)
	assert.Equal(t, unit.Code(), back.Code())
	assert.Equal(t, unit.Classifier(), back.Classifier())

	var out strings.Builder
	c := NewContext(lang, nil)
	c.SetOutput(&out)
	c.Start(back, nil, nil, nil, nil)
	require.NoError(t, c.Step(-1))
	assert.Equal(t, "42", out.String())
}

func TestPersistedUnitsRejectTableDrift(t *testing.T) {
	foo := func(params ...Param) *Language {
		l := NewLanguage()
		l.MustRegister(KindCommand, Descriptor{Name: "foo", Params: params, Exec: func(c *Context) error {
			for range params {
				if _, err := c.Int(); err != nil {
					return err
				}
			}
			return nil
		}})
		return l
	}
	a := foo(ParamNumber)
	b := foo(ParamNumber, ParamNumber)

	unit, err := a.Compile("foo 1")
	require.NoError(t, err)
	data, err := bytecode.Marshal(unit)
	require.NoError(t, err)

	_, err = bytecode.Unmarshal(data, b.Recompiler())
	require.Error(t, err)
	assert.True(t, errors.Is(err, bytecode.ErrTableDrift))
}

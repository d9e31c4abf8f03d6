package caos

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psilLang/caos/pkg/bytecode"
	"github.com/psilLang/caos/pkg/catalog"
	"github.com/psilLang/caos/pkg/types"
)

func TestArithmeticOutput(t *testing.T) {
	_, out, err := run(t, newTestWorld(), nil, "setv va00 5 addv va00 3 outv va00")
	require.NoError(t, err)
	assert.Equal(t, "8", out)
}

func TestScripts(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"int division truncates", "setv va00 7 divv va00 2 outv va00", "3"},
		{"float promotes", "setv va00 7 divv va00 2.0 outv va00", "3.5"},
		{"mod", "setv va00 7 modv va00 3 outv va00", "1"},
		{"neg abs", "setv va00 4 negv va00 outv va00 absv va00 outv va00", "-44"},
		{"bitwise", "setv va00 12 andv va00 10 outv va00 orrv va00 1 outv va00", "89"},
		{"unset slot is zero", "addv va07 2 outv va07", "2"},
		{"strings", `sets va00 "ab" adds va00 "cd" outs va00 outv strl va00`, "abcd4"},
		{"subs", `outs subs "norn" 2 2`, "or"},
		{"char", `outv char "abc" 3`, "99"},
		{"case", `outs uppa "ab" outs lowa "CD"`, "ABcd"},
		{"vtos", `outs vtos 2.5`, "2.5"},
		{"stoi", `outv stoi " -42x"`, "-42"},
		{"ftoi itof", `outv ftoi 2.9 outv itof 3`, "23"},
		{"sqrt abso", `outv sqrt 16 outv abso -3`, "43"},
		{"outx", `outx "a\"b"`, `"a\"b"`},
		{"read", `outs read "agent_names" 1`, "Grendel"},
		{"game var", `setv game "g" 3 addv game "g" 1 outv game "g"`, "4"},

		{"doif true", "doif 1 = 1 outs \"y\" endi", "y"},
		{"doif false", "doif 1 = 2 outs \"y\" endi outs \"n\"", "n"},
		{"elif", "setv va00 2 doif va00 = 1 outs \"a\" elif va00 = 2 outs \"b\" else outs \"c\" endi", "b"},
		{"else", "setv va00 3 doif va00 = 1 outs \"a\" elif va00 = 2 outs \"b\" else outs \"c\" endi", "c"},
		{"first branch", "setv va00 1 doif va00 = 1 outs \"a\" elif va00 = 1 outs \"b\" else outs \"c\" endi", "a"},
		{"nested", "doif 1 = 1 doif 2 = 3 outs \"x\" else outs \"y\" endi outs \"z\" endi", "yz"},

		{"or then and folds left", "doif 1 = 1 or 1 = 2 and 1 = 2 outs \"t\" else outs \"f\" endi", "f"},
		{"and then or folds left", "doif 1 = 2 and 1 = 2 or 1 = 1 outs \"t\" else outs \"f\" endi", "t"},
		{"int float compare", "doif 1 = 1.0 and 1 < 1.5 outs \"t\" endi", "t"},
		{"int float compare past 2^24", "doif 16777217 = 16777216.0 outs \"eq\" else outs \"ne\" endi", "ne"},
		{"int above float past 2^24", "doif 16777217 > 16777216.0 outs \"t\" endi", "t"},
		{"string compare", `doif "abc" < "abd" and "x" eq "x" outs "t" endi`, "t"},
		{"null compare", "doif targ = null outs \"t\" endi", "t"},

		{"reps", "reps 3 outs \"x\" repe", "xxx"},
		{"reps zero", "reps 0 outs \"x\" repe outs \"done\"", "done"},
		{"nested reps", "reps 2 reps 3 addv va00 1 repe repe outv va00", "6"},
		{"loop untl", "loop addv va00 1 untl va00 >= 4 outv va00", "4"},
		{"loop ever", "loop addv va00 1 doif va00 = 3 outv va00 stop endi ever", "3"},

		{"gsub retn", "gsub twice outs \"!\" stop subr twice outs \"a\" outs \"a\" retn", "aa!"},
		{"gsub from loop", "reps 2 gsub hi repe stop subr hi outs \"h\" retn", "hh"},
		{"fall into subr stops", "outs \"a\" subr tail outs \"b\"", "a"},

		{"nested caos", `outs caos "outs \"hi\""`, "hi"},
		{"nested caos shares game vars", `setv game "n" 5 outs caos "outv game \"n\""`, "5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := run(t, newTestWorld(), nil, tt.script)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name   string
		script string
		code   ErrorCode
	}{
		{"divide by zero", "setv va00 1 divv va00 0", ErrDivideByZero},
		{"float divide by zero", "setv va00 1.5 divv va00 0", ErrDivideByZero},
		{"mod by zero", "setv va00 1 modv va00 0", ErrDivideByZero},
		{"no targ", "outv unid", ErrInvalidAgent},
		{"no owner slot", "setv mv00 1", ErrInvalidAgent},
		{"subs out of range", `outs subs "abc" 3 5`, ErrIndexRange},
		{"char out of range", `outv char "abc" 0`, ErrIndexRange},
		{"negative reps", "reps -1 repe", ErrNegative},
		{"negative wait", "wait -2", ErrNegative},
		{"sqrt negative", "outv sqrt -1", ErrNegative},
		{"wrong type compare", `doif "a" = 1 endi`, ErrWrongType},
		{"string into number", `sets va00 "x" addv va00 1`, ErrWrongType},
		{"float into bitwise", "setv va00 1.5 andv va00 1", ErrWrongType},
		{"agent ordering", "doif null > null endi", ErrAgentCompare},
		{"avar on null", "setv avar null 1 0", ErrInvalidAgent},
		{"input closed", "innl va00", ErrStreamClosed},
		{"no world", "new: simp 1 2 3", ErrHost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lang := NewLanguage()
			unit, err := lang.Compile(tt.script)
			require.NoError(t, err)

			var host Host = newTestWorld()
			if tt.code == ErrHost {
				host = NewNullHost()
			}
			c := NewContext(lang, host)
			c.SetOutput(&strings.Builder{})
			c.Start(unit, nil, nil, nil, nil)
			err = c.Step(-1)
			require.Error(t, err)
			assert.True(t, IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestFaultIsSticky(t *testing.T) {
	lang := NewLanguage()
	unit, err := lang.Compile("setv va00 1 divv va00 0 setv va00 9")
	require.NoError(t, err)

	c := NewContext(lang, newTestWorld())
	c.Start(unit, nil, nil, nil, nil)
	first := c.Step(-1)
	require.Error(t, first)

	var re *RunError
	require.ErrorAs(t, first, &re)
	assert.Equal(t, "divv", re.Op)
	assert.Equal(t, 12, re.SourceOffset)
	assert.Contains(t, first.Error(), "division by zero")
	assert.Contains(t, first.Error(), "divv")

	assert.Same(t, first, c.Step(1), "a faulted context keeps returning its fault")
	assert.Equal(t, types.Integer(1), c.Var(0))
	assert.True(t, unit.InUse(), "a faulted context holds its unit until stopped")

	c.Stop()
	assert.False(t, unit.InUse())
	assert.NoError(t, c.Fault())
	assert.NoError(t, c.Step(1))
}

func TestDiagnosticsWithoutCatalogEntry(t *testing.T) {
	lang := NewLanguage()
	unit, err := lang.Compile("setv va00 1 divv va00 0")
	require.NoError(t, err)

	c := NewContext(lang, &NullHost{Strings: catalog.New()})
	c.Start(unit, nil, nil, nil, nil)
	err = c.Step(-1)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrDivideByZero))
	assert.Contains(t, err.Error(), "caos_runtime #1")
}

func TestEnumerationVisitsMatches(t *testing.T) {
	w := newTestWorld()
	owner := w.add(1, 1, 1)
	w.add(2, 1, 1)
	w.add(2, 2, 1)
	w.add(3, 1, 1)

	c, out, err := run(t, w, owner, "enum 2 0 0 outv unid outs \" \" next outv unid")
	require.NoError(t, err)
	assert.Equal(t, "2 3 1", out, "targ is restored after the loop")
	assert.Same(t, owner, c.Targ())

	ints, agents := c.StackDepth()
	assert.Zero(t, ints)
	assert.Zero(t, agents)
}

func TestEnumerationWithNoMatches(t *testing.T) {
	w := newTestWorld()
	owner := w.add(1, 1, 1)

	c, out, err := run(t, w, owner, "enum 9 0 0 outs \"body\" next outs \"after\"")
	require.NoError(t, err)
	assert.Equal(t, "after", out)
	assert.Same(t, owner, c.Targ())
	ints, agents := c.StackDepth()
	assert.Zero(t, ints)
	assert.Zero(t, agents)
}

func TestEnumerationSkipsAgentsKilledInBody(t *testing.T) {
	w := newTestWorld()
	w.add(2, 0, 1)
	w.add(2, 0, 1)
	w.add(2, 0, 1)

	_, out, err := run(t, w, nil, "enum 2 0 0 addv va00 unid doif unid = 1 kill agnt 2 endi next outv va00")
	require.NoError(t, err)
	assert.Equal(t, "4", out)
}

func TestEseeUsesOwner(t *testing.T) {
	w := newTestWorld()
	owner := w.add(2, 0, 0)
	w.add(2, 0, 0)

	_, out, err := run(t, w, owner, "esee 2 0 0 outv unid next")
	require.NoError(t, err)
	assert.Equal(t, "2", out)

	_, _, err = run(t, w, nil, "esee 2 0 0 next")
	assert.True(t, IsCode(err, ErrInvalidAgent))
}

func TestAgentVariablesAndProducers(t *testing.T) {
	w := newTestWorld()
	owner := w.add(4, 1, 2)
	other := w.add(5, 0, 0)

	c, out, err := run(t, w, owner, `setv mv03 7 targ agnt 2 setv ov01 9 seta va00 ownr
		outv fmly outv spcs outv totl 0 0 0 mvto 1.5 2 outv posx
		setv name "mood" 3 setv avar va00 5 2`)
	require.NoError(t, err)
	assert.Equal(t, "5021.5", out)
	assert.Equal(t, types.Integer(7), owner.slots[3])
	assert.Equal(t, types.Integer(9), other.slots[1])
	assert.Equal(t, types.Integer(2), owner.slots[5])
	assert.Equal(t, types.Integer(3), *owner.Named("mood"))
	assert.Equal(t, types.Handle{Agent: owner}, c.Var(0))
	assert.Equal(t, float32(2), other.y)
}

func TestMessages(t *testing.T) {
	w := newTestWorld()
	owner := w.add(1, 0, 0)
	to := w.add(2, 0, 0)

	_, _, err := run(t, w, owner, `mesg writ agnt 2 12 mesg wrt+ agnt 2 13 "hi" 4 20`)
	require.NoError(t, err)
	require.Len(t, w.sent, 2)
	assert.Equal(t, Message{From: owner, To: to, Event: 12}, w.sent[0])
	assert.Equal(t, Message{From: owner, To: to, Event: 13, P1: types.String("hi"), P2: types.Integer(4), Delay: 20}, w.sent[1])

	_, _, err = run(t, w, owner, "mesg writ null 1")
	assert.True(t, IsCode(err, ErrInvalidAgent))
}

func TestParametersAndRoles(t *testing.T) {
	lang := NewLanguage()
	unit, err := lang.Compile("outv _p1_ outs _p2_ doif from = null outs \"!\" endi")
	require.NoError(t, err)

	var out strings.Builder
	c := NewContext(lang, newTestWorld())
	c.SetOutput(&out)
	c.Start(unit, nil, nil, types.Integer(3), types.String("x"))
	require.NoError(t, c.Step(-1))
	assert.Equal(t, "3x!", out.String())
}

func TestWaitResumesOncePerStep(t *testing.T) {
	lang := NewLanguage()
	unit, err := lang.Compile("wait 2 outs \"x\"")
	require.NoError(t, err)

	var out strings.Builder
	c := NewContext(lang, newTestWorld())
	c.SetOutput(&out)
	c.Start(unit, nil, nil, nil, nil)

	require.NoError(t, c.Step(100))
	assert.Equal(t, Blocking, c.State())
	require.NoError(t, c.Step(100))
	assert.Equal(t, Blocking, c.State())
	assert.Empty(t, out.String())

	require.NoError(t, c.Step(100))
	assert.Equal(t, "x", out.String())
	assert.Equal(t, Finished, c.State())
	assert.False(t, unit.InUse())
}

func TestStepQuota(t *testing.T) {
	lang := NewLanguage()
	unit, err := lang.Compile("setv va00 1 setv va00 2 setv va00 3")
	require.NoError(t, err)

	c := NewContext(lang, newTestWorld())
	c.Start(unit, nil, nil, nil, nil)
	require.NoError(t, c.Step(2))
	assert.Equal(t, types.Integer(2), c.Var(0))
	assert.True(t, c.Running())
	require.NoError(t, c.Step(2))
	assert.Equal(t, types.Integer(3), c.Var(0))
	assert.False(t, c.Running())
}

func TestFastModeDoesNotCount(t *testing.T) {
	lang := NewLanguage()
	unit, err := lang.Compile("inst setv va00 1 setv va00 2 slow setv va00 3")
	require.NoError(t, err)

	c := NewContext(lang, newTestWorld())
	c.Start(unit, nil, nil, nil, nil)
	require.NoError(t, c.Step(1))
	assert.Equal(t, types.Integer(2), c.Var(0))
	assert.False(t, c.Fast())
}

func TestBlockingEndsFastMode(t *testing.T) {
	lang := NewLanguage()
	unit, err := lang.Compile("inst wait 1 setv va00 1 setv va00 2")
	require.NoError(t, err)

	c := NewContext(lang, newTestWorld())
	c.Start(unit, nil, nil, nil, nil)
	require.NoError(t, c.Step(1))
	assert.Equal(t, Blocking, c.State())
	assert.False(t, c.Fast())

	require.NoError(t, c.Step(2))
	assert.Equal(t, types.Integer(1), c.Var(0), "the resume uses one unit of quota")
}

func TestCompoundConstructionTakesATick(t *testing.T) {
	w := newTestWorld()
	owner := w.add(1, 0, 0)
	lang := NewLanguage()
	unit, err := lang.Compile("new: comp 2 3 4 outv gnus lock")
	require.NoError(t, err)

	var out strings.Builder
	c := NewContext(lang, w)
	c.SetOutput(&out)
	c.Start(unit, owner, nil, nil, nil)

	require.NoError(t, c.Step(10))
	assert.Equal(t, Blocking, c.State())
	assert.Same(t, owner, c.Targ())
	assert.Len(t, w.agents, 1)

	require.NoError(t, c.Step(10))
	assert.Equal(t, "3", out.String())
	assert.Len(t, w.agents, 2)
	assert.True(t, c.Locked())
}

func TestSubCommandIndexOutOfRange(t *testing.T) {
	lang := NewLanguage()
	d, ok := lang.Lookup(KindCommand, "new:")
	require.True(t, ok)

	w := bytecode.NewWriter()
	w.Op(d.ID())
	w.Op(uint16(len(d.Sub)))
	unit := bytecode.NewUnit(w.Code(), nil, "", types.Classifier{})

	c := NewContext(lang, newTestWorld())
	c.Start(unit, nil, nil, nil, nil)
	err := c.Step(1)
	assert.True(t, IsCode(err, ErrSubCommand), "got %v", err)
}

func TestCorruptCode(t *testing.T) {
	lang := NewLanguage()
	unit := bytecode.NewUnit([]byte{0xff, 0xff}, nil, "", types.Classifier{})
	c := NewContext(lang, newTestWorld())
	c.Start(unit, nil, nil, nil, nil)
	assert.True(t, IsCode(c.Step(1), ErrBadOpcode))

	unit = bytecode.NewUnit([]byte{0x00}, nil, "", types.Classifier{})
	c.Start(unit, nil, nil, nil, nil)
	assert.True(t, IsCode(c.Step(1), ErrCorrupt))
}

func TestInputStream(t *testing.T) {
	lang := NewLanguage()
	unit, err := lang.Compile("innl va00 innl va01 outs va01 outs va00 outv inok innl va02 outv inok")
	require.NoError(t, err)

	var out strings.Builder
	c := NewContext(lang, newTestWorld())
	c.SetOutput(&out)
	c.SetInput(strings.NewReader("first\r\nsecond\nthird"))
	c.Start(unit, nil, nil, nil, nil)
	require.NoError(t, c.Step(-1))
	assert.Equal(t, "secondfirst10", out.String())
	assert.Equal(t, types.String("third"), c.Var(2))
}

func TestDebugStream(t *testing.T) {
	lang := NewLanguage()
	unit, err := lang.Compile(`dbg: outs "v=" dbg: outv 4 dbg: flsh`)
	require.NoError(t, err)

	var dbg strings.Builder
	c := NewContext(lang, newTestWorld())
	c.SetDebug(&dbg)
	c.Start(unit, nil, nil, nil, nil)
	require.NoError(t, c.Step(-1))
	assert.Equal(t, "v=4", dbg.String())

	c.SetDebug(nil)
	c.Start(unit, nil, nil, nil, nil)
	assert.NoError(t, c.Step(-1), "debug output without a stream is dropped")
}

func TestNestedCaosReportsFailuresAsText(t *testing.T) {
	_, out, err := run(t, newTestWorld(), nil, `outs caos "frob"`)
	require.NoError(t, err)
	assert.Contains(t, out, `unknown command "frob"`)

	_, out, err = run(t, newTestWorld(), nil, `outs caos "outs \"a\" setv va00 1 divv va00 0"`)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "a"))
	assert.Contains(t, out, "division by zero")

	_, out, err = run(t, newTestWorld(), nil, `setv va00 1 outs caos "setv va00 2 outv va00" outv va00`)
	require.NoError(t, err)
	assert.Equal(t, "21", out, "nested scripts get their own variables")
}

func TestUnitHeldWhileRunning(t *testing.T) {
	lang := NewLanguage()
	unit, err := lang.Compile("wait 1")
	require.NoError(t, err)

	a := NewContext(lang, newTestWorld())
	b := NewContext(lang, newTestWorld())
	a.Start(unit, nil, nil, nil, nil)
	b.Start(unit, nil, nil, nil, nil)
	assert.Equal(t, int32(2), unit.RefCount())

	require.NoError(t, a.Step(1))
	a.Stop()
	a.Stop()
	assert.Equal(t, int32(1), unit.RefCount())

	require.NoError(t, b.Step(5))
	require.NoError(t, b.Step(5))
	assert.False(t, b.Running())
	assert.Equal(t, int32(0), unit.RefCount())
}

func TestNestedCaosDepthIsBounded(t *testing.T) {
	_, out, err := run(t, newTestWorld(), nil, `sets game "r" "outs \"x\" outs caos game \"r\"" outs caos game "r"`)
	require.NoError(t, err)
	assert.Equal(t, MaxNesting, strings.Count(out, "x"))
	assert.Contains(t, out, "caos nesting deeper than 8")
}

func TestLoopsLeaveStacksBalanced(t *testing.T) {
	w := newTestWorld()
	owner := w.add(1, 1, 1)
	w.add(2, 1, 1)
	for _, script := range []string{
		"reps 3 addv va00 1 repe",
		"reps 0 addv va00 1 repe",
		"reps 2 reps 2 enum 2 0 0 addv va00 1 next repe repe",
		"loop addv va00 1 untl va00 = 3",
		"reps 2 gsub s repe stop subr s enum 9 0 0 next retn",
		"esee 0 0 0 next",
	} {
		c, _, err := run(t, w, owner, script)
		require.NoError(t, err, script)
		ints, agents := c.StackDepth()
		assert.Zero(t, ints, script)
		assert.Zero(t, agents, script)
	}
}

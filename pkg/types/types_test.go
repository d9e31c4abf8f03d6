package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubAgent struct {
	id    int32
	class Classifier
}

func (a *stubAgent) UNID() int32                  { return a.id }
func (a *stubAgent) Alive() bool                  { return true }
func (a *stubAgent) Classifier() Classifier       { return a.class }
func (a *stubAgent) Slot(int) *Value              { return nil }
func (a *stubAgent) Named(string) *Value          { return nil }
func (a *stubAgent) Position() (float32, float32) { return 0, 0 }

func TestValueStrings(t *testing.T) {
	assert.Equal(t, "8", Integer(8).String())
	assert.Equal(t, "3", Float(3).String())
	assert.Equal(t, "2.5", Float(2.5).String())
	assert.Equal(t, "-0.25", Float(-0.25).String())
	assert.Equal(t, "hi", String("hi").String())
	assert.Equal(t, "NULL", Null.String())
	assert.Equal(t, "agent#7", Handle{&stubAgent{id: 7}}.String())
}

func TestEqual(t *testing.T) {
	a := &stubAgent{id: 1}
	b := &stubAgent{id: 1}

	assert.True(t, Integer(1).Equal(Integer(1)))
	assert.False(t, Integer(1).Equal(Float(1)))
	assert.True(t, String("x").Equal(String("x")))
	assert.True(t, Handle{a}.Equal(Handle{a}))
	assert.False(t, Handle{a}.Equal(Handle{b}), "agents compare by identity")
	assert.True(t, Null.Equal(Handle{}))
}

func TestConversions(t *testing.T) {
	n, ok := ToInt(Float(-2.7))
	assert.True(t, ok)
	assert.Equal(t, int32(-2), n)

	n, ok = ToInt(nil)
	assert.True(t, ok)
	assert.Equal(t, int32(0), n)

	_, ok = ToInt(String("1"))
	assert.False(t, ok)

	f, ok := ToFloat(Integer(3))
	assert.True(t, ok)
	assert.Equal(t, float32(3), f)

	d, ok := ToFloat64(Integer(16777217))
	assert.True(t, ok)
	assert.Equal(t, float64(16777217), d)

	assert.True(t, Numeric(nil))
	assert.False(t, Numeric(Null))
	assert.Equal(t, "integer", TypeName(nil))
	assert.Equal(t, "string", TypeName(String("")))
}

func TestClassifierMatches(t *testing.T) {
	norn := NewClassifier(4, 1, 1, 0)
	assert.True(t, NewClassifier(0, 0, 0, 9).Matches(norn))
	assert.True(t, NewClassifier(4, 0, 0, 0).Matches(norn))
	assert.True(t, NewClassifier(4, 1, 1, 0).Matches(norn))
	assert.False(t, NewClassifier(4, 2, 0, 0).Matches(norn))
	assert.Equal(t, NewClassifier(4, 1, 1, 0), NewClassifier(4, 1, 1, 12).Kind())
	assert.Equal(t, "4 1 1 0", norn.String())
}

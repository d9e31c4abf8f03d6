package scriptorium

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psilLang/caos/pkg/bytecode"
	"github.com/psilLang/caos/pkg/types"
)

func unit(f, g, s, e int32) *bytecode.Unit {
	return bytecode.NewUnit([]byte{0, 0}, nil, "", types.NewClassifier(f, g, s, e))
}

func TestFindFallsBack(t *testing.T) {
	s := New()
	exact := unit(2, 3, 4, 9)
	genus := unit(2, 3, 0, 9)
	wild := unit(0, 0, 0, 9)
	s.Install(exact)
	s.Install(genus)
	s.Install(wild)

	tests := []struct {
		class types.Classifier
		want  *bytecode.Unit
	}{
		{types.NewClassifier(2, 3, 4, 9), exact},
		{types.NewClassifier(2, 3, 5, 9), genus},
		{types.NewClassifier(2, 7, 5, 9), wild},
		{types.NewClassifier(8, 1, 1, 9), wild},
	}
	for _, tt := range tests {
		got, ok := s.Find(tt.class)
		require.True(t, ok, tt.class.String())
		assert.Same(t, tt.want, got, tt.class.String())
	}

	_, ok := s.Find(types.NewClassifier(2, 3, 4, 1))
	assert.False(t, ok, "the event never falls back")
}

func TestReinstallKeepsRunningUnitAlive(t *testing.T) {
	s := New()
	old := unit(1, 1, 1, 1)
	assert.Nil(t, s.Install(old))

	ref := old.Acquire()
	replacement := unit(1, 1, 1, 1)
	assert.Same(t, old, s.Install(replacement))
	assert.True(t, old.InUse())

	got, _ := s.Find(types.NewClassifier(1, 1, 1, 1))
	assert.Same(t, replacement, got)
	ref.Release()
	assert.False(t, old.InUse())
}

func TestInstallAllIsAtomic(t *testing.T) {
	s := New()
	err := s.InstallAll([]*bytecode.Unit{unit(1, 0, 0, 1), unit(1, 0, 0, 1), nil, unit(-1, 0, 0, 2)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 errors occurred")
	assert.Zero(t, s.Len())

	require.NoError(t, s.InstallAll([]*bytecode.Unit{unit(1, 0, 0, 2), unit(1, 0, 0, 1)}))
	units := s.Units()
	require.Len(t, units, 2)
	assert.Equal(t, int32(1), units[0].Classifier().Event)
}

func TestRemove(t *testing.T) {
	s := New()
	u := unit(1, 2, 3, 4)
	s.Install(u)
	assert.Same(t, u, s.Remove(types.NewClassifier(1, 2, 3, 4)))
	assert.Nil(t, s.Remove(types.NewClassifier(1, 2, 3, 4)))
	assert.Zero(t, s.Len())
}

package bytecode

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/psilLang/caos/pkg/types"
)

// MapEntry records that code from Addr onwards came from source Offset.
type MapEntry struct {
	Addr   uint32 `cbor:"1,keyasint"`
	Offset uint32 `cbor:"2,keyasint"`
}

// SourceMap maps code addresses back to source offsets for diagnostics.
// Entries are appended in increasing address order only.
type SourceMap struct {
	entries []MapEntry
}

// Add records a mapping. Entries at or below the last address are ignored.
func (m *SourceMap) Add(addr, offset int) {
	if n := len(m.entries); n > 0 && int(m.entries[n-1].Addr) >= addr {
		return
	}
	m.entries = append(m.entries, MapEntry{Addr: uint32(addr), Offset: uint32(offset)})
}

// Lookup returns the source offset for the instruction covering addr.
func (m *SourceMap) Lookup(addr int) (int, bool) {
	if m == nil || len(m.entries) == 0 {
		return 0, false
	}
	i := sort.Search(len(m.entries), func(i int) bool {
		return int(m.entries[i].Addr) > addr
	})
	if i == 0 {
		return 0, false
	}
	return int(m.entries[i-1].Offset), true
}

// Entries returns a copy of the mapping.
func (m *SourceMap) Entries() []MapEntry {
	if m == nil {
		return nil
	}
	return append([]MapEntry(nil), m.entries...)
}

// Len returns the number of entries.
func (m *SourceMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Unit is a compiled script. Its code never changes after construction;
// only the in-use count moves, so one unit can back any number of running
// contexts at once.
type Unit struct {
	code   []byte
	smap   *SourceMap
	source string
	class  types.Classifier

	refs atomic.Int32
}

// NewUnit wraps compiled code. smap and source may be empty.
func NewUnit(code []byte, smap *SourceMap, source string, class types.Classifier) *Unit {
	return &Unit{code: code, smap: smap, source: source, class: class}
}

// Code returns the instruction bytes. Callers must not modify them.
func (u *Unit) Code() []byte { return u.code }

// Len returns the code length in bytes.
func (u *Unit) Len() int { return len(u.code) }

// Classifier returns the event key the unit answers.
func (u *Unit) Classifier() types.Classifier { return u.class }

// Source returns the text the unit was compiled from, if kept.
func (u *Unit) Source() string { return u.source }

// SourceMap returns the address map, or nil.
func (u *Unit) SourceMap() *SourceMap { return u.smap }

// SourceOffset maps a code address back to the source.
func (u *Unit) SourceOffset(addr int) (int, bool) {
	return u.smap.Lookup(addr)
}

// Lock marks the unit as in use by one more holder.
func (u *Unit) Lock() {
	u.refs.Add(1)
}

// Unlock releases one Lock. Unlocking an unlocked unit panics, like
// unlocking an unlocked sync.Mutex.
func (u *Unit) Unlock() {
	if u.refs.Add(-1) < 0 {
		panic("bytecode: unlock of unit that is not in use")
	}
}

// RefCount returns the number of current holders.
func (u *Unit) RefCount() int32 { return u.refs.Load() }

// InUse reports whether any holder has the unit locked.
func (u *Unit) InUse() bool { return u.refs.Load() > 0 }

// Ref is a shared-ownership handle on a unit. Release drops the hold
// exactly once no matter how often it is called.
type Ref struct {
	unit *Unit
	once sync.Once
}

// Acquire locks the unit and returns a handle that unlocks it on Release.
func (u *Unit) Acquire() *Ref {
	u.Lock()
	return &Ref{unit: u}
}

// Unit returns the held unit.
func (r *Ref) Unit() *Unit { return r.unit }

// Release gives the hold back.
func (r *Ref) Release() {
	if r == nil {
		return
	}
	r.once.Do(r.unit.Unlock)
}

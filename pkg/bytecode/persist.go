package bytecode

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/psilLang/caos/pkg/types"
)

// FormatVersion is written into every persisted unit.
const FormatVersion = 1

// ErrTableDrift means the stored bytes no longer match what the current
// language compiles the stored source to. Loading must stop.
var ErrTableDrift = errors.New("bytecode: opcode table changed since unit was saved")

// persisted is the on-disk form of a Unit.
type persisted struct {
	Version    uint16           `cbor:"1,keyasint"`
	Classifier types.Classifier `cbor:"2,keyasint"`
	RefCount   int32            `cbor:"3,keyasint"`
	Length     uint32           `cbor:"4,keyasint"`
	Code       []byte           `cbor:"5,keyasint"`
	Source     string           `cbor:"6,keyasint,omitempty"`
	SourceMap  []MapEntry       `cbor:"7,keyasint,omitempty"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Recompiler compiles source text under the current language.
type Recompiler func(source string, class types.Classifier) (*Unit, error)

// Marshal serializes a unit.
func Marshal(u *Unit) ([]byte, error) {
	p := persisted{
		Version:    FormatVersion,
		Classifier: u.class,
		RefCount:   u.RefCount(),
		Length:     uint32(len(u.code)),
		Code:       u.code,
		Source:     u.source,
		SourceMap:  u.smap.Entries(),
	}
	return cborEncMode.Marshal(p)
}

// Unmarshal restores a unit. When the unit carries source and recompile
// is non-nil the source is compiled afresh and the new bytes replace the
// stored ones, provided the lengths agree; a failed or differently sized
// recompile is reported as ErrTableDrift. The restored unit starts with no
// holders; the saved count is informational only.
func Unmarshal(data []byte, recompile Recompiler) (*Unit, error) {
	var p persisted
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal unit: %w", err)
	}
	if p.Version != FormatVersion {
		return nil, fmt.Errorf("bytecode: unsupported format version %d", p.Version)
	}
	if int(p.Length) != len(p.Code) {
		return nil, fmt.Errorf("%w: header says %d bytes, found %d", ErrTruncated, p.Length, len(p.Code))
	}

	if p.Source == "" || recompile == nil {
		smap := &SourceMap{entries: p.SourceMap}
		return NewUnit(p.Code, smap, p.Source, p.Classifier), nil
	}

	fresh, err := recompile(p.Source, p.Classifier)
	if err != nil {
		return nil, fmt.Errorf("%w: recompiling %s: %v", ErrTableDrift, p.Classifier, err)
	}
	if fresh.Len() != int(p.Length) {
		return nil, fmt.Errorf("%w: %s compiled to %d bytes, saved as %d", ErrTableDrift, p.Classifier, fresh.Len(), p.Length)
	}
	return NewUnit(fresh.code, fresh.smap, p.Source, p.Classifier), nil
}

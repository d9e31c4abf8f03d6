// Package caos implements the agent scripting language: the Language
// registry of commands and expressions, the single-pass compiler, and the
// cooperative virtual machine that runs compiled units a few instructions
// at a time.
package caos

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/psilLang/caos/pkg/catalog"
	"github.com/psilLang/caos/pkg/types"
)

// ErrSealed is returned when registering into a language already in use.
var ErrSealed = errors.New("caos: language is sealed")

// Kind selects which table a descriptor lives in. Each table has its own
// ordinal space; the operand tag says which table an ordinal belongs to.
type Kind uint8

const (
	KindCommand  Kind = iota
	KindNumber        // integer or float producer
	KindString        // string producer
	KindAgent         // agent producer
	KindVariant       // producer of any value type
	KindVariable      // variable accessor
	numKinds
)

var kindNames = [...]string{"command", "number", "string", "agent", "variant", "variable"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Param is one slot of a descriptor's operand signature.
type Param uint8

const (
	ParamSub       Param = iota + 1 // nested command name, must be the only param
	ParamNumber                     // numeric rvalue
	ParamGeneric                    // any rvalue
	ParamVariable                   // variable reference
	ParamString                     // string rvalue
	ParamAgent                      // agent rvalue
	ParamBytes                      // bracketed byte-string
	ParamCondition                  // comparison chain
	ParamLabel                      // subroutine name
	ParamAddr                       // jump address filled in by block handling
)

var paramNames = map[Param]string{
	ParamSub:       "sub-command",
	ParamNumber:    "number",
	ParamGeneric:   "value",
	ParamVariable:  "variable",
	ParamString:    "string",
	ParamAgent:     "agent",
	ParamBytes:     "byte-string",
	ParamCondition: "condition",
	ParamLabel:     "label",
	ParamAddr:      "address",
}

func (p Param) String() string {
	if s, ok := paramNames[p]; ok {
		return s
	}
	return fmt.Sprintf("param(%d)", p)
}

// BlockKind names a nesting construct.
type BlockKind uint8

const (
	BlockNone BlockKind = iota
	BlockConditional
	BlockLoop
	BlockEnumeration
	BlockRepeat
)

var blockNames = [...]string{"none", "conditional", "loop", "enumeration", "repeat"}

func (b BlockKind) String() string {
	if int(b) < len(blockNames) {
		return blockNames[b]
	}
	return fmt.Sprintf("block(%d)", b)
}

// Role is the structural part a command plays for the compiler.
type Role uint8

const (
	RoleNone        Role = iota
	RoleOpen             // starts a block
	RoleAlternative      // elif: closes a branch and tests again
	RoleElse             // else: closes a branch unconditionally
	RoleClose            // ends a block
	RoleLabel            // defines a subroutine label
	RoleReturn           // returns from a subroutine
	RoleTerminate        // ends the script; appended implicitly
)

// Special tags a command that needs block handling in the compiler.
type Special struct {
	Role  Role
	Block BlockKind
}

// Handler executes a command.
type Handler func(c *Context) error

// Producer evaluates an rvalue.
type Producer func(c *Context) (types.Value, error)

// Accessor resolves a variable to its storage.
type Accessor func(c *Context) (*types.Value, error)

// Descriptor is one entry of the language: the compiler reads Name, Params,
// Special and Sub; the VM calls Exec, Eval or Access. Both sides find it by
// the ordinal the Language assigned at registration.
type Descriptor struct {
	Name    string
	Params  []Param
	Special Special

	// Slotted variables are spelled as the two-letter Name followed by a
	// two-digit slot number, e.g. va00..va99.
	Slotted bool

	// Sub is the nested table selected by a ParamSub operand.
	Sub []Descriptor

	Exec   Handler
	Eval   Producer
	Access Accessor

	kind Kind
	id   uint16
}

// ID returns the ordinal assigned at registration.
func (d *Descriptor) ID() uint16 { return d.id }

// Kind returns the table the descriptor lives in.
func (d *Descriptor) Kind() Kind { return d.kind }

type table struct {
	byID   []*Descriptor
	byName map[string]*Descriptor
}

// Language is the single source of truth for the vocabulary. Register
// every extension before the first Compile; compiling seals it so
// ordinals can no longer move.
type Language struct {
	mu         sync.RWMutex
	tables     [numKinds]table
	terminator *Descriptor
	sealed     bool
	catalog    catalog.Catalog
}

// Option configures a Language.
type Option func(*Language)

// WithCatalog sets the catalog compile diagnostics are rendered with.
func WithCatalog(c catalog.Catalog) Option {
	return func(l *Language) {
		l.catalog = c
	}
}

// Bare returns a language with no vocabulary at all.
func Bare(opts ...Option) *Language {
	l := &Language{catalog: catalog.Default()}
	for k := range l.tables {
		l.tables[k].byName = make(map[string]*Descriptor)
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewLanguage returns a language with the core vocabulary registered.
func NewLanguage(opts ...Option) *Language {
	l := Bare(opts...)
	registerCore(l)
	return l
}

// Catalog returns the catalog used for compile diagnostics.
func (l *Language) Catalog() catalog.Catalog { return l.catalog }

// Seal stops further registration.
func (l *Language) Seal() {
	l.mu.Lock()
	l.sealed = true
	l.mu.Unlock()
}

// Sealed reports whether the language accepts registrations.
func (l *Language) Sealed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sealed
}

// Register adds a descriptor to the table for kind and returns its
// ordinal. The compiler signature and the VM handler are recorded together
// so the two can never disagree.
func (l *Language) Register(kind Kind, d Descriptor) (uint16, error) {
	if kind >= numKinds {
		return 0, fmt.Errorf("caos: register %q: bad kind %d", d.Name, kind)
	}
	d.Name = strings.ToLower(d.Name)
	if err := validate(kind, &d, false); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sealed {
		return 0, fmt.Errorf("%w: cannot register %s %q", ErrSealed, kind, d.Name)
	}
	t := &l.tables[kind]
	if _, dup := t.byName[d.Name]; dup {
		return 0, fmt.Errorf("caos: %s %q registered twice", kind, d.Name)
	}
	if len(t.byID) > 0xFFFF {
		return 0, fmt.Errorf("caos: %s table full", kind)
	}

	desc := d
	desc.kind = kind
	desc.id = uint16(len(t.byID))
	desc.Sub = make([]Descriptor, len(d.Sub))
	for i, sub := range d.Sub {
		sub.Name = strings.ToLower(sub.Name)
		sub.kind = kind
		sub.id = uint16(i)
		desc.Sub[i] = sub
	}
	t.byID = append(t.byID, &desc)
	t.byName[desc.Name] = &desc
	if desc.Special.Role == RoleTerminate && l.terminator == nil {
		l.terminator = &desc
	}
	return desc.id, nil
}

// MustRegister is Register that panics on error, for static vocabularies.
func (l *Language) MustRegister(kind Kind, d Descriptor) uint16 {
	id, err := l.Register(kind, d)
	if err != nil {
		panic(err)
	}
	return id
}

func validate(kind Kind, d *Descriptor, nested bool) error {
	if d.Name == "" {
		return fmt.Errorf("caos: %s with empty name", kind)
	}
	if len(d.Sub) > 0 {
		if nested {
			return fmt.Errorf("caos: %q: sub-commands cannot nest", d.Name)
		}
		if len(d.Params) != 1 || d.Params[0] != ParamSub {
			return fmt.Errorf("caos: %q: a sub-table needs exactly one ParamSub", d.Name)
		}
		if d.Special.Role != RoleNone {
			return fmt.Errorf("caos: %q: a sub-table cannot have block handling", d.Name)
		}
		seen := make(map[string]bool)
		for i := range d.Sub {
			sub := &d.Sub[i]
			sub.Name = strings.ToLower(sub.Name)
			if seen[sub.Name] {
				return fmt.Errorf("caos: %q: sub-command %q twice", d.Name, sub.Name)
			}
			seen[sub.Name] = true
			if err := validate(kind, sub, true); err != nil {
				return err
			}
		}
		return nil
	}

	for _, p := range d.Params {
		if p == ParamSub {
			return fmt.Errorf("caos: %q: ParamSub without a sub-table", d.Name)
		}
		if p < ParamSub || p > ParamAddr {
			return fmt.Errorf("caos: %q: unknown param %d", d.Name, p)
		}
	}

	switch kind {
	case KindCommand:
		if d.Exec == nil {
			return fmt.Errorf("caos: command %q has no handler", d.Name)
		}
	case KindVariable:
		if d.Access == nil {
			return fmt.Errorf("caos: variable %q has no accessor", d.Name)
		}
	default:
		if d.Eval == nil {
			return fmt.Errorf("caos: %s %q has no producer", kind, d.Name)
		}
	}
	if d.Slotted && (kind != KindVariable || len(d.Name) != 2) {
		return fmt.Errorf("caos: %q: only two-letter variables can be slotted", d.Name)
	}
	if kind != KindCommand && d.Special.Role != RoleNone {
		return fmt.Errorf("caos: %q: only commands take part in blocks", d.Name)
	}
	return validateSpecial(d)
}

// validateSpecial checks that block commands carry the jump addresses the
// compiler will patch.
func validateSpecial(d *Descriptor) error {
	addrs := 0
	for _, p := range d.Params {
		if p == ParamAddr {
			addrs++
		}
	}
	want := -1
	switch d.Special.Role {
	case RoleNone, RoleReturn, RoleTerminate, RoleLabel:
		want = 0
	case RoleOpen:
		switch d.Special.Block {
		case BlockLoop:
			want = 0
		case BlockConditional, BlockRepeat, BlockEnumeration:
			want = 1
		default:
			return fmt.Errorf("caos: %q opens no block kind", d.Name)
		}
	case RoleAlternative, RoleElse:
		want = 1
	case RoleClose:
		switch d.Special.Block {
		case BlockConditional:
			want = 0
		case BlockLoop, BlockRepeat, BlockEnumeration:
			want = 1
		default:
			return fmt.Errorf("caos: %q closes no block kind", d.Name)
		}
	}
	if addrs != want {
		return fmt.Errorf("caos: %q needs %d address params, has %d", d.Name, want, addrs)
	}
	if (d.Special.Role == RoleLabel || d.Special.Role == RoleTerminate) && len(d.Params) != 0 {
		return fmt.Errorf("caos: %q cannot take operands", d.Name)
	}
	return nil
}

// Lookup finds a descriptor by name.
func (l *Language) Lookup(kind Kind, name string) (*Descriptor, bool) {
	if kind >= numKinds {
		return nil, false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.tables[kind].byName[name]
	return d, ok
}

// lookupVariable resolves a variable spelling, including slotted forms,
// returning the slot number or -1.
func (l *Language) lookupVariable(name string) (*Descriptor, int, bool) {
	if d, ok := l.Lookup(KindVariable, name); ok && !d.Slotted {
		return d, -1, true
	}
	if len(name) != 4 || name[2] < '0' || name[2] > '9' || name[3] < '0' || name[3] > '9' {
		return nil, -1, false
	}
	d, ok := l.Lookup(KindVariable, name[:2])
	if !ok || !d.Slotted {
		return nil, -1, false
	}
	return d, int(name[2]-'0')*10 + int(name[3]-'0'), true
}

// Descriptor finds a descriptor by ordinal.
func (l *Language) Descriptor(kind Kind, id uint16) (*Descriptor, bool) {
	if kind >= numKinds {
		return nil, false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	t := l.tables[kind].byID
	if int(id) >= len(t) {
		return nil, false
	}
	return t[id], true
}

// Names returns every registered name of kind in ordinal order.
func (l *Language) Names(kind Kind) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.tables[kind].byID))
	for _, d := range l.tables[kind].byID {
		names = append(names, d.Name)
	}
	return names
}

func (l *Language) terminatorDescriptor() *Descriptor {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.terminator
}

// subCommand finds a sub-command by name.
func (d *Descriptor) subCommand(name string) (*Descriptor, bool) {
	for i := range d.Sub {
		if d.Sub[i].Name == name {
			return &d.Sub[i], true
		}
	}
	return nil, false
}

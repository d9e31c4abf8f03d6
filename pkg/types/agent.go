package types

import "fmt"

// SlotCount is the number of numbered slots on a context or an agent.
const SlotCount = 100

// Classifier is the four-integer key (family, genus, species, event)
// selecting which script answers which event. Zero acts as a wildcard
// when matching agents.
type Classifier struct {
	Family  int32 `cbor:"1,keyasint" toml:"family"`
	Genus   int32 `cbor:"2,keyasint" toml:"genus"`
	Species int32 `cbor:"3,keyasint" toml:"species"`
	Event   int32 `cbor:"4,keyasint" toml:"event"`
}

// NewClassifier builds a classifier from its four parts.
func NewClassifier(family, genus, species, event int32) Classifier {
	return Classifier{Family: family, Genus: genus, Species: species, Event: event}
}

func (c Classifier) String() string {
	return fmt.Sprintf("%d %d %d %d", c.Family, c.Genus, c.Species, c.Event)
}

// Kind returns the classifier with the event cleared, i.e. the agent
// classification part only.
func (c Classifier) Kind() Classifier {
	c.Event = 0
	return c
}

// Matches reports whether an agent classified as other falls under c,
// treating zero fields in c as wildcards. The event is ignored.
func (c Classifier) Matches(other Classifier) bool {
	if c.Family != 0 && c.Family != other.Family {
		return false
	}
	if c.Genus != 0 && c.Genus != other.Genus {
		return false
	}
	if c.Species != 0 && c.Species != other.Species {
		return false
	}
	return true
}

// Agent is a live entity in the host world that scripts can reference.
// The runtime only needs identity, validity, classification, and access to
// the agent's slots; everything else stays with the host.
type Agent interface {
	// UNID returns the agent's unique id
	UNID() int32
	// Alive reports whether the agent still exists in the world
	Alive() bool
	// Classifier returns the agent's family/genus/species (event is zero)
	Classifier() Classifier
	// Slot returns a pointer to numbered object slot i, 0 <= i < SlotCount
	Slot(i int) *Value
	// Named returns a pointer to the named variable key, creating it if needed
	Named(key string) *Value
	// Position returns the agent's world coordinates
	Position() (x, y float32)
}

// Package scriptorium holds the installed event scripts of a world, keyed
// by classifier.
package scriptorium

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/psilLang/caos/pkg/bytecode"
	"github.com/psilLang/caos/pkg/types"
)

// Scriptorium maps classifiers to units. Reinstalling a classifier
// replaces its unit; contexts already running the old unit keep it alive
// through their own reference.
type Scriptorium struct {
	mu      sync.RWMutex
	scripts map[types.Classifier]*bytecode.Unit
}

func New() *Scriptorium {
	return &Scriptorium{scripts: make(map[types.Classifier]*bytecode.Unit)}
}

// Install stores u under its classifier and returns the unit it replaced.
func (s *Scriptorium) Install(u *bytecode.Unit) *bytecode.Unit {
	s.mu.Lock()
	defer s.mu.Unlock()
	class := u.Classifier()
	old := s.scripts[class]
	s.scripts[class] = u
	return old
}

// InstallAll installs a batch. Every unit is checked first; if any is
// unusable nothing is installed and all problems are reported together.
func (s *Scriptorium) InstallAll(units []*bytecode.Unit) error {
	var result *multierror.Error
	seen := make(map[types.Classifier]bool)
	for i, u := range units {
		if u == nil {
			result = multierror.Append(result, fmt.Errorf("script %d: no unit", i))
			continue
		}
		class := u.Classifier()
		if class.Event < 0 || class.Family < 0 || class.Genus < 0 || class.Species < 0 {
			result = multierror.Append(result, fmt.Errorf("script %s: negative classifier", class))
		}
		if seen[class] {
			result = multierror.Append(result, fmt.Errorf("script %s: installed twice in one batch", class))
		}
		seen[class] = true
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}
	for _, u := range units {
		s.Install(u)
	}
	return nil
}

// Find returns the script for class, falling back to progressively more
// general classifiers: species, then genus, then family set to zero.
func (s *Scriptorium) Find(class types.Classifier) (*bytecode.Unit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range fallbacks(class) {
		if u, ok := s.scripts[c]; ok {
			return u, true
		}
	}
	return nil, false
}

func fallbacks(c types.Classifier) []types.Classifier {
	out := []types.Classifier{c}
	if c.Species != 0 {
		c.Species = 0
		out = append(out, c)
	}
	if c.Genus != 0 {
		c.Genus = 0
		out = append(out, c)
	}
	if c.Family != 0 {
		c.Family = 0
		out = append(out, c)
	}
	return out
}

// Remove deletes the exact classifier and returns the removed unit.
func (s *Scriptorium) Remove(class types.Classifier) *bytecode.Unit {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.scripts[class]
	delete(s.scripts, class)
	return old
}

func (s *Scriptorium) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scripts)
}

// Units returns the installed units ordered by classifier.
func (s *Scriptorium) Units() []*bytecode.Unit {
	s.mu.RLock()
	units := make([]*bytecode.Unit, 0, len(s.scripts))
	for _, u := range s.scripts {
		units = append(units, u)
	}
	s.mu.RUnlock()
	sort.Slice(units, func(i, j int) bool {
		return less(units[i].Classifier(), units[j].Classifier())
	})
	return units
}

func less(a, b types.Classifier) bool {
	switch {
	case a.Family != b.Family:
		return a.Family < b.Family
	case a.Genus != b.Genus:
		return a.Genus < b.Genus
	case a.Species != b.Species:
		return a.Species < b.Species
	}
	return a.Event < b.Event
}

// Package state holds what every unit has accumulated during one pass.
//
// A unit receives contributions until its plugin entry finalizes it.
// Finalize hands out an ordered snapshot and locks the unit: later
// contributions and a second finalize are rejected with typed errors.
// The store is safe for concurrent use; contributions to different units
// never contend on the same lock.
package state

import (
	"errors"
	"sort"
	"sync"

	"autoplugin/internal/marker"
	"autoplugin/internal/source"
	"autoplugin/internal/target"
)

// Unit identifies one source unit: a package directory or a file path.
type Unit string

var (
	ErrDuplicate               = errors.New("duplicate attribute")
	ErrPluginAlreadyRegistered = errors.New("plugin already registered above, move plugin fn to the bottom of the file")
	ErrAlreadyFinalized        = errors.New("plugin entry already declared for this unit")
)

// ContributeError is returned by Contribute. First is the site of the
// earlier equal spec for ErrDuplicate and the plugin entry site for
// ErrPluginAlreadyRegistered.
type ContributeError struct {
	Unit  Unit
	Spec  target.Spec
	First source.Span
	Err   error
}

func (e *ContributeError) Error() string { return e.Err.Error() }
func (e *ContributeError) Unwrap() error { return e.Err }

// FinalizeError is returned by a second Finalize of the same unit. First
// is the site of the entry that finalized it.
type FinalizeError struct {
	Unit  Unit
	First source.Span
}

func (e *FinalizeError) Error() string { return ErrAlreadyFinalized.Error() }
func (e *FinalizeError) Unwrap() error { return ErrAlreadyFinalized }

// CategorySpecs is one category of a snapshot, specs sorted by key.
type CategorySpecs struct {
	Category marker.Category
	Specs    []target.Spec
}

// Snapshot is the ordered content of a unit: every category in emission
// order, empty ones included.
type Snapshot struct {
	Unit       Unit
	Categories []CategorySpecs
}

// Len counts specs over all categories.
func (s Snapshot) Len() int {
	n := 0
	for _, c := range s.Categories {
		n += len(c.Specs)
	}
	return n
}

type stored struct {
	spec target.Spec
	site source.Span
}

type unitState struct {
	mu        sync.Mutex
	finalized bool
	entrySite source.Span
	sets      [len(marker.Categories)]map[string]stored
}

// Store maps units to their accumulated state.
type Store struct {
	mu    sync.Mutex
	units map[Unit]*unitState
}

func New() *Store {
	return &Store{units: make(map[Unit]*unitState)}
}

// unit returns the state of u, creating it on first use.
func (s *Store) unit(u Unit) *unitState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.units[u]
	if !ok {
		st = &unitState{}
		s.units[u] = st
	}
	return st
}

func (s *Store) lookup(u Unit) (*unitState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.units[u]
	return st, ok
}

// Contribute adds spec to the unit's set for its category. site is the
// marker that produced it.
func (s *Store) Contribute(u Unit, spec target.Spec, site source.Span) error {
	st := s.unit(u)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.finalized {
		return &ContributeError{Unit: u, Spec: spec, First: st.entrySite, Err: ErrPluginAlreadyRegistered}
	}
	set := st.sets[spec.Category]
	if set == nil {
		set = make(map[string]stored)
		st.sets[spec.Category] = set
	}
	key := spec.Key()
	if prev, dup := set[key]; dup {
		return &ContributeError{Unit: u, Spec: spec, First: prev.site, Err: ErrDuplicate}
	}
	set[key] = stored{spec: spec, site: site}
	return nil
}

// Finalize locks the unit and returns its snapshot. site is the plugin
// entry that triggered it.
func (s *Store) Finalize(u Unit, site source.Span) (Snapshot, error) {
	st := s.unit(u)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.finalized {
		return Snapshot{}, &FinalizeError{Unit: u, First: st.entrySite}
	}
	st.finalized = true
	st.entrySite = site
	return st.snapshot(u), nil
}

// Peek returns the current content of a unit without changing it.
func (s *Store) Peek(u Unit) (Snapshot, bool) {
	st, ok := s.lookup(u)
	if !ok {
		return Snapshot{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.snapshot(u), true
}

// Finalized reports whether u has been finalized.
func (s *Store) Finalized(u Unit) bool {
	st, ok := s.lookup(u)
	if !ok {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.finalized
}

// Units lists every unit the store has seen, sorted.
func (s *Store) Units() []Unit {
	s.mu.Lock()
	units := make([]Unit, 0, len(s.units))
	for u := range s.units {
		units = append(units, u)
	}
	s.mu.Unlock()
	sort.Slice(units, func(i, j int) bool { return units[i] < units[j] })
	return units
}

// Unfinalized lists the units that were never finalized, sorted.
func (s *Store) Unfinalized() []Unit {
	var out []Unit
	for _, u := range s.Units() {
		if !s.Finalized(u) {
			out = append(out, u)
		}
	}
	return out
}

// Site returns where spec was contributed to u.
func (s *Store) Site(u Unit, spec target.Spec) (source.Span, bool) {
	st, ok := s.lookup(u)
	if !ok {
		return source.Span{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	prev, ok := st.sets[spec.Category][spec.Key()]
	return prev.site, ok
}

func (st *unitState) snapshot(u Unit) Snapshot {
	snap := Snapshot{Unit: u, Categories: make([]CategorySpecs, 0, len(marker.Categories))}
	for _, cat := range marker.Categories {
		set := st.sets[cat]
		specs := make([]target.Spec, 0, len(set))
		for _, e := range set {
			specs = append(specs, e.spec)
		}
		sort.Slice(specs, func(i, j int) bool { return specs[i].Key() < specs[j].Key() })
		snap.Categories = append(snap.Categories, CategorySpecs{Category: cat, Specs: specs})
	}
	return snap
}

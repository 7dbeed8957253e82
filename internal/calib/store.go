// Package calib holds per-edge quantization scales and tensor layouts.
//
// Entries are keyed by ir.EdgeID: real edges use their "from->to" identity
// and weight tensors use the synthetic "op#weights" and "op#bias" keys. The
// store is safe for concurrent use; getters and map snapshots take a shared
// lock only.
package calib

import (
	"maps"
	"sync"

	"github.com/specialistvlad/infergraph/internal/gerr"
	"github.com/specialistvlad/infergraph/internal/ir"
)

// Scale is a quantization scale vector, one value per channel or a single
// value for the whole tensor.
type Scale struct {
	Values []float32
	IsBias bool
}

func (s Scale) clone() Scale {
	return Scale{Values: append([]float32(nil), s.Values...), IsBias: s.IsBias}
}

// Store maps edges to their scale and layout.
type Store struct {
	mu     sync.RWMutex
	scale  map[ir.EdgeID]Scale
	layout map[ir.EdgeID]Layout
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		scale:  make(map[ir.EdgeID]Scale),
		layout: make(map[ir.EdgeID]Layout),
	}
}

// SetScale records the scale vector of id. An empty vector is a
// SizeMismatch.
func (s *Store) SetScale(id ir.EdgeID, values []float32, isBias bool) error {
	if len(values) == 0 {
		return gerr.New(gerr.SizeMismatch, "scale for %s is empty", id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scale[id] = Scale{Values: append([]float32(nil), values...), IsBias: isBias}
	return nil
}

// SetLayout records the layout of id.
func (s *Store) SetLayout(id ir.EdgeID, l Layout) error {
	if l == Invalid {
		return gerr.New(gerr.TypeMismatch, "layout for %s is invalid", id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layout[id] = l
	return nil
}

// Scale returns the scale of id.
func (s *Store) Scale(id ir.EdgeID) (Scale, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scale[id]
	if !ok {
		return Scale{}, false
	}
	return sc.clone(), true
}

// Layout returns the layout of id, or Invalid.
func (s *Store) Layout(id ir.EdgeID) (Layout, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.layout[id]
	return l, ok
}

// ScaleMap returns a snapshot of every scale.
func (s *Store) ScaleMap() map[ir.EdgeID]Scale {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[ir.EdgeID]Scale, len(s.scale))
	for id, sc := range s.scale {
		out[id] = sc.clone()
	}
	return out
}

// LayoutMap returns a snapshot of every layout.
func (s *Store) LayoutMap() map[ir.EdgeID]Layout {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.layout)
}

// Rename moves entries from old to new IDs. Entries whose old ID is not in
// renames are left alone.
func (s *Store) Rename(renames map[ir.EdgeID]ir.EdgeID) {
	if len(renames) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for oldID, newID := range renames {
		if sc, ok := s.scale[oldID]; ok {
			delete(s.scale, oldID)
			s.scale[newID] = sc
		}
		if l, ok := s.layout[oldID]; ok {
			delete(s.layout, oldID)
			s.layout[newID] = l
		}
	}
}

// Retain drops the entries of real edges for which keep returns false.
// Synthetic weight keys are kept while their op exists.
func (s *Store) Retain(keep func(ir.EdgeID) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.DeleteFunc(s.scale, func(id ir.EdgeID, _ Scale) bool { return !keep(id) })
	maps.DeleteFunc(s.layout, func(id ir.EdgeID, _ Layout) bool { return !keep(id) })
}

// CheckChannels reports a SizeMismatch if the per-channel scale of id does
// not have n entries. A single-value scale applies to every channel.
func (s *Store) CheckChannels(id ir.EdgeID, n int) error {
	sc, ok := s.Scale(id)
	if !ok {
		return gerr.New(gerr.NotFound, "no scale for %s", id)
	}
	if len(sc.Values) != 1 && len(sc.Values) != n {
		return gerr.New(gerr.SizeMismatch, "scale for %s has %d values, want %d", id, len(sc.Values), n)
	}
	return nil
}

// Clone returns an independent copy of s.
func (s *Store) Clone() *Store {
	return &Store{scale: s.ScaleMap(), layout: s.LayoutMap()}
}

// Reset drops every entry.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.scale)
	clear(s.layout)
}

// Len returns the number of scale and layout entries.
func (s *Store) Len() (scales, layouts int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scale), len(s.layout)
}

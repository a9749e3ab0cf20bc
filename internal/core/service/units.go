package service

import (
	"sync"

	"github.com/yndnr/snapcoord/internal/core/domain"
)

// UnitSet is a UnitRegistry backed by a configured list. An empty set
// accepts every unit.
type UnitSet struct {
	mu    sync.RWMutex
	units map[domain.LogicalUnit]struct{}
}

// NewUnitSet creates a registry holding units.
func NewUnitSet(units ...domain.LogicalUnit) *UnitSet {
	s := &UnitSet{}
	s.Replace(units)
	return s
}

// Known implements UnitRegistry.
func (s *UnitSet) Known(u domain.LogicalUnit) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.units) == 0 {
		return true
	}
	_, ok := s.units[u]
	return ok
}

// Replace swaps the registered units.
func (s *UnitSet) Replace(units []domain.LogicalUnit) {
	m := make(map[domain.LogicalUnit]struct{}, len(units))
	for _, u := range units {
		m[u] = struct{}{}
	}
	s.mu.Lock()
	s.units = m
	s.mu.Unlock()
}

// Units returns the registered units.
func (s *UnitSet) Units() []domain.LogicalUnit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.LogicalUnit, 0, len(s.units))
	for u := range s.units {
		out = append(out, u)
	}
	return out
}

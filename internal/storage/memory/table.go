package memory

import (
	"sort"
	"sync"

	"github.com/yndnr/snapcoord/internal/core/domain"
	"github.com/yndnr/snapcoord/pkg/cmap"
)

// Table stores at most one live session per scope and refuses conflicting scopes.
type Table struct {
	// mu guards all and serializes inserts.
	mu  sync.Mutex
	all *domain.Session

	units *cmap.Map[domain.LogicalUnit, *domain.Session]
}

// Option configures the Table.
type Option func(*tableOptions)

type tableOptions struct {
	shards int
}

// WithShardCount sets the number of per-unit shards.
func WithShardCount(n int) Option {
	return func(o *tableOptions) {
		o.shards = n
	}
}

// NewTable creates an empty session table.
func NewTable(opts ...Option) *Table {
	o := tableOptions{shards: cmap.DefaultShardCount}
	for _, opt := range opts {
		opt(&o)
	}
	return &Table{
		units: cmap.New[domain.LogicalUnit, *domain.Session](unitKey, cmap.WithShardCount(o.shards)),
	}
}

// unitKey is three bytes. murmur3's four-byte block loop reads through
// unsafe pointers that the race detector's checkptr rejects, so shard keys
// stay shorter than one block.
func unitKey(u domain.LogicalUnit) []byte {
	return []byte{u.Target, byte(u.Lun >> 8), byte(u.Lun)}
}

// Insert adds s under its scope. It returns ErrScopeConflict, and stores
// nothing, when a live session's scope conflicts with s.Scope.
func (t *Table) Insert(s *domain.Session) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.all != nil {
		return domain.ErrScopeConflict.WithDetailsf("%s: all-units session %s is live", s.Scope, t.all.ID)
	}

	if s.Scope.IsAll() {
		if n := t.units.Count(); n > 0 {
			return domain.ErrScopeConflict.WithDetailsf("all-units: %d unit sessions are live", n)
		}
		t.all = s
		return nil
	}

	if existing, loaded := t.units.GetOrSet(s.Scope.Unit, s); loaded {
		return domain.ErrScopeConflict.WithDetailsf("%s: session %s is live", s.Scope, existing.ID)
	}
	return nil
}

// Get returns the session stored for exactly scope.
func (t *Table) Get(scope domain.Scope) (*domain.Session, bool) {
	if scope.IsAll() {
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.all, t.all != nil
	}
	return t.units.Get(scope.Unit)
}

// Governing returns the session that covers unit u: the aggregate session
// when one is live, otherwise the session for PerUnit(u).
func (t *Table) Governing(u domain.LogicalUnit) (*domain.Session, bool) {
	if s, ok := t.Get(domain.AllUnits()); ok {
		return s, true
	}
	return t.units.Get(u)
}

// Remove deletes s if it is still the stored session for its scope.
func (t *Table) Remove(s *domain.Session) bool {
	if s.Scope.IsAll() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.all != s {
			return false
		}
		t.all = nil
		return true
	}
	return t.units.DeleteIf(s.Scope.Unit, func(cur *domain.Session) bool { return cur == s })
}

// UnitSessions returns the live per-unit sessions, oldest first.
func (t *Table) UnitSessions() []*domain.Session {
	out := t.units.Values()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// List returns every live session, the aggregate one first.
func (t *Table) List() []*domain.Session {
	units := t.UnitSessions()
	if s, ok := t.Get(domain.AllUnits()); ok {
		return append([]*domain.Session{s}, units...)
	}
	return units
}

// Len returns the number of live sessions.
func (t *Table) Len() int {
	n := t.units.Count()
	t.mu.Lock()
	if t.all != nil {
		n++
	}
	t.mu.Unlock()
	return n
}

// Drain removes and returns every session.
func (t *Table) Drain() []*domain.Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := t.units.Drain()
	if t.all != nil {
		out = append(out, t.all)
		t.all = nil
	}
	return out
}

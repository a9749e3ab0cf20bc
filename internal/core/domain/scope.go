package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxLun is the largest LUN expressible in virtio-scsi single-level addressing.
const MaxLun = 0x3FFF

// MaxAgentLun is the largest LUN the agent buffer's 8-bit field can carry.
const MaxAgentLun = 0xFF

// LogicalUnit identifies one virtual block device instance.
type LogicalUnit struct {
	Target uint8  `json:"target"`
	Lun    uint16 `json:"lun"`
}

// String returns the unit as "target:lun".
func (u LogicalUnit) String() string {
	return fmt.Sprintf("%d:%d", u.Target, u.Lun)
}

// Validate checks that the LUN fits the flat addressing range.
func (u LogicalUnit) Validate() error {
	if u.Lun > MaxLun {
		return ErrInvalidDevice.WithDetailsf("lun %d out of range", u.Lun)
	}
	return nil
}

// AgentAddressable reports whether the agent can name u in a call.
// Units beyond MaxAgentLun cannot take part in per-unit snapshots.
func (u LogicalUnit) AgentAddressable() bool {
	return u.Lun <= MaxAgentLun
}

// ParseLogicalUnit parses a "target:lun" string.
func ParseLogicalUnit(s string) (LogicalUnit, error) {
	t, l, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return LogicalUnit{}, ErrInvalidArgument.WithDetailsf("unit %q: want target:lun", s)
	}
	target, err := strconv.ParseUint(t, 10, 8)
	if err != nil {
		return LogicalUnit{}, ErrInvalidArgument.WithDetailsf("unit %q: bad target", s).WithCause(err)
	}
	lun, err := strconv.ParseUint(l, 10, 16)
	if err != nil {
		return LogicalUnit{}, ErrInvalidArgument.WithDetailsf("unit %q: bad lun", s).WithCause(err)
	}
	u := LogicalUnit{Target: uint8(target), Lun: uint16(lun)}
	if err := u.Validate(); err != nil {
		return LogicalUnit{}, err
	}
	return u, nil
}

// ScopeKind distinguishes single-unit from aggregate snapshots.
type ScopeKind uint8

const (
	// ScopePerUnit covers exactly one logical unit.
	ScopePerUnit ScopeKind = iota + 1
	// ScopeAllUnits covers every unit attached to the controller.
	ScopeAllUnits
)

// String returns the kind name.
func (k ScopeKind) String() string {
	switch k {
	case ScopePerUnit:
		return "per-unit"
	case ScopeAllUnits:
		return "all-units"
	default:
		return "unknown"
	}
}

// Scope names the set of units a snapshot covers.
//
// Unit is meaningful only when Kind is ScopePerUnit; AllUnits scopes always
// carry the zero unit so that scopes compare with ==.
type Scope struct {
	Kind ScopeKind
	Unit LogicalUnit
}

// PerUnit returns the scope for a single unit.
func PerUnit(u LogicalUnit) Scope {
	return Scope{Kind: ScopePerUnit, Unit: u}
}

// AllUnits returns the aggregate scope.
func AllUnits() Scope {
	return Scope{Kind: ScopeAllUnits}
}

// IsAll reports whether s is the aggregate scope.
func (s Scope) IsAll() bool {
	return s.Kind == ScopeAllUnits
}

// Conflicts reports whether s and o may not have live sessions at the same time.
func (s Scope) Conflicts(o Scope) bool {
	if s == o {
		return true
	}
	return s.IsAll() || o.IsAll()
}

// Covers reports whether a session on s includes unit u.
func (s Scope) Covers(u LogicalUnit) bool {
	return s.IsAll() || s.Unit == u
}

// String returns "unit 1:2" or "all-units".
func (s Scope) String() string {
	if s.IsAll() {
		return "all-units"
	}
	return "unit " + s.Unit.String()
}

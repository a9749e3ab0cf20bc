package wire

import "github.com/yndnr/snapcoord/internal/core/domain"

// EventKind tags a decoded host lifecycle event.
type EventKind uint8

const (
	EventStart EventKind = iota + 1
	EventComplete
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// HostEvent is a host lifecycle message resolved to a scope.
type HostEvent struct {
	Kind        EventKind
	Scope       domain.Scope
	Correlation uint64
	// Result is the completion subtype: zero for success.
	Result uint32
}

// Failed reports whether a completion event carries a backend failure.
func (e HostEvent) Failed() bool {
	return e.Kind == EventComplete && e.Result != 0
}

// ParseHostEvent classifies a control request from the host. Event families
// whose feature bit was not negotiated are rejected.
func ParseHostEvent(r ControlRequest, features Features) (HostEvent, error) {
	ev := HostEvent{Correlation: r.Data}

	switch r.Type {
	case EventSnapshotStart, EventSnapshotComplete:
		if !features.Has(FeatureSnapshot) {
			return HostEvent{}, domain.ErrUnsupportedFeature.WithDetailsf("event %d", r.Type)
		}
		u, err := DecodeLun(r.Lun)
		if err != nil {
			return HostEvent{}, err
		}
		ev.Scope = domain.PerUnit(u)
	case EventAllDiskSnapshotStart, EventAllDiskSnapshotComplete:
		if !features.Has(FeatureAllDiskSnapshot) {
			return HostEvent{}, domain.ErrUnsupportedFeature.WithDetailsf("event %d", r.Type)
		}
		ev.Scope = domain.AllUnits()
	default:
		return HostEvent{}, domain.ErrInvalidRequest.WithDetailsf("unknown control type %#x", r.Type)
	}

	switch r.Type {
	case EventSnapshotStart, EventAllDiskSnapshotStart:
		ev.Kind = EventStart
	default:
		ev.Kind = EventComplete
		ev.Result = r.Subtype
	}
	return ev, nil
}

// Request converts the event back into its wire form. Used by host emulators.
func (e HostEvent) Request() ControlRequest {
	r := ControlRequest{Data: e.Correlation}
	switch {
	case e.Kind == EventStart && e.Scope.IsAll():
		r.Type = EventAllDiskSnapshotStart
	case e.Kind == EventStart:
		r.Type = EventSnapshotStart
	case e.Scope.IsAll():
		r.Type = EventAllDiskSnapshotComplete
	default:
		r.Type = EventSnapshotComplete
	}
	if e.Kind == EventComplete {
		r.Subtype = e.Result
	}
	if !e.Scope.IsAll() {
		r.Lun = EncodeLun(e.Scope.Unit)
	}
	return r
}

// CallKind tags a decoded agent control call.
type CallKind uint8

const (
	CallPickup CallKind = iota + 1
	CallPickupAll
	CallVote
	CallDiscard
)

func (k CallKind) String() string {
	switch k {
	case CallPickup:
		return "pickup"
	case CallPickupAll:
		return "pickup-all"
	case CallVote:
		return "vote"
	case CallDiscard:
		return "discard"
	default:
		return "unknown"
	}
}

// CallKindOf maps an agent control code to its call kind.
func CallKindOf(code uint32) (CallKind, bool) {
	switch code {
	case IoctlSnapshotRequested:
		return CallPickup, true
	case IoctlAllDiskSnapshotRequested:
		return CallPickupAll, true
	case IoctlSnapshotCanProceed:
		return CallVote, true
	case IoctlSnapshotDiscard:
		return CallDiscard, true
	default:
		return 0, false
	}
}

// ControlCode returns the IOCTL for k.
func (k CallKind) ControlCode() uint32 {
	switch k {
	case CallPickup:
		return IoctlSnapshotRequested
	case CallPickupAll:
		return IoctlAllDiskSnapshotRequested
	case CallVote:
		return IoctlSnapshotCanProceed
	case CallDiscard:
		return IoctlSnapshotDiscard
	default:
		return 0
	}
}

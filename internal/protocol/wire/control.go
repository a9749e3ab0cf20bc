package wire

import (
	"encoding/binary"

	"github.com/yndnr/snapcoord/internal/core/domain"
)

// Fixed sizes of the control queue structures.
const (
	ControlRequestSize  = 24
	ControlResponseSize = 1
)

// Control queue response codes.
const (
	ResponseOK       uint8 = 0
	ResponseRejected uint8 = 1
)

// ControlRequest is a packed control queue message.
//
//	type    u32  event code or TypeGoogle
//	subtype u32  report subtype, or the result of a completion event
//	lun     [8]  virtio-scsi single level LUN
//	data    u64  correlation value, report status or driver version
type ControlRequest struct {
	Type    uint32
	Subtype uint32
	Lun     [8]byte
	Data    uint64
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (r ControlRequest) MarshalBinary() ([]byte, error) {
	return r.AppendBinary(make([]byte, 0, ControlRequestSize))
}

// AppendBinary appends the encoded request to b.
func (r ControlRequest) AppendBinary(b []byte) ([]byte, error) {
	b = binary.LittleEndian.AppendUint32(b, r.Type)
	b = binary.LittleEndian.AppendUint32(b, r.Subtype)
	b = append(b, r.Lun[:]...)
	b = binary.LittleEndian.AppendUint64(b, r.Data)
	return b, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. Bytes past the
// fixed layout are ignored.
func (r *ControlRequest) UnmarshalBinary(b []byte) error {
	if len(b) < ControlRequestSize {
		return domain.ErrMalformedMessage.WithDetailsf("control request: %d bytes, want %d", len(b), ControlRequestSize)
	}
	r.Type = binary.LittleEndian.Uint32(b[0:4])
	r.Subtype = binary.LittleEndian.Uint32(b[4:8])
	copy(r.Lun[:], b[8:16])
	r.Data = binary.LittleEndian.Uint64(b[16:24])
	return nil
}

// DecodeControlRequest is a convenience wrapper around UnmarshalBinary.
func DecodeControlRequest(b []byte) (ControlRequest, error) {
	var r ControlRequest
	err := r.UnmarshalBinary(b)
	return r, err
}

// ControlResponse is the single byte reply to a control queue message.
type ControlResponse struct {
	Response uint8
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (r ControlResponse) MarshalBinary() ([]byte, error) {
	return []byte{r.Response}, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (r *ControlResponse) UnmarshalBinary(b []byte) error {
	if len(b) < ControlResponseSize {
		return domain.ErrMalformedMessage.WithDetails("control response: empty")
	}
	r.Response = b[0]
	return nil
}

// SnapshotReadyReport builds the guest-to-host report for a scope.
func SnapshotReadyReport(scope domain.Scope, status ReportStatus) ControlRequest {
	r := ControlRequest{
		Type:    TypeGoogle,
		Subtype: SubtypeReportSnapshotReady,
		Data:    uint64(status),
	}
	if !scope.IsAll() {
		r.Lun = EncodeLun(scope.Unit)
	}
	return r
}

// DriverVersionReport builds the start-up driver version report.
func DriverVersionReport(version uint64) ControlRequest {
	return ControlRequest{
		Type:    TypeGoogle,
		Subtype: SubtypeReportDriverVersion,
		Data:    version,
	}
}

// ReportScope returns the scope a snapshot-ready report addresses. A zero
// LUN addresses every unit.
func (r ControlRequest) ReportScope() (domain.Scope, error) {
	if IsZeroLun(r.Lun) {
		return domain.AllUnits(), nil
	}
	u, err := DecodeLun(r.Lun)
	if err != nil {
		return domain.Scope{}, err
	}
	return domain.PerUnit(u), nil
}

package wire

import (
	"encoding/binary"

	"github.com/yndnr/snapcoord/internal/core/domain"
)

// Fixed sizes of the agent structures.
const (
	IoControlHeaderSize = 28
	AgentPayloadSize    = 10
	AgentBufferSize     = IoControlHeaderSize + AgentPayloadSize
)

// IoControlHeader mirrors SRB_IO_CONTROL.
type IoControlHeader struct {
	HeaderLength uint32
	Signature    [8]byte
	Timeout      uint32 // seconds
	ControlCode  uint32
	ReturnCode   uint32
	Length       uint32 // payload bytes after the header
}

// SignatureOK reports whether the header carries the agent signature.
func (h IoControlHeader) SignatureOK() bool {
	return string(h.Signature[:]) == Signature
}

// AppendBinary appends the encoded header to b.
func (h IoControlHeader) AppendBinary(b []byte) ([]byte, error) {
	b = binary.LittleEndian.AppendUint32(b, h.HeaderLength)
	b = append(b, h.Signature[:]...)
	b = binary.LittleEndian.AppendUint32(b, h.Timeout)
	b = binary.LittleEndian.AppendUint32(b, h.ControlCode)
	b = binary.LittleEndian.AppendUint32(b, h.ReturnCode)
	b = binary.LittleEndian.AppendUint32(b, h.Length)
	return b, nil
}

// UnmarshalBinary decodes the header from the first IoControlHeaderSize bytes.
func (h *IoControlHeader) UnmarshalBinary(b []byte) error {
	if len(b) < IoControlHeaderSize {
		return domain.ErrMalformedMessage.WithDetailsf("control header: %d bytes, want %d", len(b), IoControlHeaderSize)
	}
	h.HeaderLength = binary.LittleEndian.Uint32(b[0:4])
	copy(h.Signature[:], b[4:12])
	h.Timeout = binary.LittleEndian.Uint32(b[12:16])
	h.ControlCode = binary.LittleEndian.Uint32(b[16:20])
	h.ReturnCode = binary.LittleEndian.Uint32(b[20:24])
	h.Length = binary.LittleEndian.Uint32(b[24:28])
	return nil
}

// AgentBuffer mirrors SRB_VSS_BUFFER without padding.
type AgentBuffer struct {
	Header IoControlHeader
	Target uint8
	Lun    uint8
	Status uint64
}

// NewAgentBuffer returns a well-formed request for code.
func NewAgentBuffer(code uint32, unit domain.LogicalUnit, status AgentStatus) AgentBuffer {
	b := AgentBuffer{
		Header: IoControlHeader{
			HeaderLength: IoControlHeaderSize,
			ControlCode:  code,
			Length:       AgentPayloadSize,
		},
		Target: unit.Target,
		Lun:    uint8(unit.Lun),
		Status: uint64(status),
	}
	copy(b.Header.Signature[:], Signature)
	return b
}

// Unit returns the addressed logical unit.
func (b AgentBuffer) Unit() domain.LogicalUnit {
	return domain.LogicalUnit{Target: b.Target, Lun: uint16(b.Lun)}
}

// SetStatus writes s to both Status and the header return code.
func (b *AgentBuffer) SetStatus(s AgentStatus) {
	b.Status = uint64(s)
	b.Header.ReturnCode = uint32(s)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (b AgentBuffer) MarshalBinary() ([]byte, error) {
	out, _ := b.Header.AppendBinary(make([]byte, 0, AgentBufferSize))
	out = append(out, b.Target, b.Lun)
	out = binary.LittleEndian.AppendUint64(out, b.Status)
	return out, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. Bytes past the
// fixed layout are ignored.
func (b *AgentBuffer) UnmarshalBinary(data []byte) error {
	if len(data) < AgentBufferSize {
		return domain.ErrMalformedMessage.WithDetailsf("agent buffer: %d bytes, want %d", len(data), AgentBufferSize)
	}
	if err := b.Header.UnmarshalBinary(data); err != nil {
		return err
	}
	p := data[IoControlHeaderSize:]
	b.Target = p[0]
	b.Lun = p[1]
	b.Status = binary.LittleEndian.Uint64(p[2:10])
	return nil
}

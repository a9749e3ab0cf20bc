package wire

import "github.com/yndnr/snapcoord/internal/core/domain"

const (
	lunAddressTag  = 0x01
	lunFlatSpace   = 0x40
	lunFlatSpaceHi = 0xC0
)

// EncodeLun returns the virtio-scsi single level address of u:
// {1, target, 0x40 | lun>>8, lun & 0xff, 0, 0, 0, 0}.
func EncodeLun(u domain.LogicalUnit) [8]byte {
	var l [8]byte
	l[0] = lunAddressTag
	l[1] = u.Target
	l[2] = byte(u.Lun>>8)&0x3F | lunFlatSpace
	l[3] = byte(u.Lun)
	return l
}

// DecodeLun parses a virtio-scsi single level address.
func DecodeLun(l [8]byte) (domain.LogicalUnit, error) {
	if l[0] != lunAddressTag {
		return domain.LogicalUnit{}, domain.ErrMalformedMessage.WithDetailsf("lun: address tag %#x", l[0])
	}
	if l[2]&lunFlatSpaceHi != lunFlatSpace {
		return domain.LogicalUnit{}, domain.ErrMalformedMessage.WithDetailsf("lun: addressing method %#x", l[2]>>6)
	}
	return domain.LogicalUnit{
		Target: l[1],
		Lun:    uint16(l[2]&0x3F)<<8 | uint16(l[3]),
	}, nil
}

// IsZeroLun reports whether l is the all-zero address used by aggregate events.
func IsZeroLun(l [8]byte) bool {
	return l == [8]byte{}
}

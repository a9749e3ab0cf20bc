// Package wire implements the byte-exact layouts exchanged with the host
// control queue and with the guest snapshot agent.
//
// Every multi-byte field is little-endian and structures carry no padding.
package wire

// Signature is the SRB_IO_CONTROL signature every agent buffer must carry.
const Signature = "GOOOGVSS"

// Feature bits negotiated with the host.
const (
	FeatureAllDiskSnapshot     = 21
	FeatureSnapshot            = 22
	FeatureReportDriverVersion = 23
)

// Features is a negotiated virtio feature bitmap.
type Features uint64

// Has reports whether bit is set.
func (f Features) Has(bit uint) bool {
	return f&(1<<bit) != 0
}

// With returns f with bit set.
func (f Features) With(bit uint) Features {
	return f | 1<<bit
}

// Control queue type and subtypes for guest-to-host reports.
const (
	TypeGoogle uint32 = 0x80000000

	SubtypeReportDriverVersion uint32 = 0
	SubtypeReportSnapshotReady uint32 = 1
)

// Host-to-guest lifecycle event codes, carried in the request type field.
const (
	EventSnapshotStart           uint32 = 100
	EventSnapshotComplete        uint32 = 101
	EventAllDiskSnapshotStart    uint32 = 102
	EventAllDiskSnapshotComplete uint32 = 103
)

// ReportStatus is the data value of a snapshot-ready report.
type ReportStatus uint64

const (
	ReportPrepareComplete    ReportStatus = 0
	ReportPrepareUnavailable ReportStatus = 1
	ReportPrepareError       ReportStatus = 2
	ReportComplete           ReportStatus = 3
	ReportError              ReportStatus = 4
)

var reportStatusNames = [...]string{
	"prepare-complete",
	"prepare-unavailable",
	"prepare-error",
	"complete",
	"error",
}

func (s ReportStatus) String() string {
	if s < ReportStatus(len(reportStatusNames)) {
		return reportStatusNames[s]
	}
	return "unknown"
}

// AgentStatus is returned to the agent in both Status and ReturnCode.
type AgentStatus uint64

const (
	StatusSucceeded      AgentStatus = 0x00
	StatusBackendFailed  AgentStatus = 0x01
	StatusInvalidDevice  AgentStatus = 0x02
	StatusInvalidRequest AgentStatus = 0x03
	StatusCancelled      AgentStatus = 0x04
)

var agentStatusNames = [...]string{
	"succeeded",
	"backend-failed",
	"invalid-device",
	"invalid-request",
	"cancelled",
}

func (s AgentStatus) String() string {
	if s < AgentStatus(len(agentStatusNames)) {
		return agentStatusNames[s]
	}
	return "unknown"
}

// Driver IOCTL function numbers.
const (
	FunctionSnapshotRequested        = 0xE000
	FunctionSnapshotCanProceed       = 0xE010
	FunctionSnapshotDiscard          = 0xE020
	FunctionAllDiskSnapshotRequested = 0xE030
)

const (
	deviceTypeVSS = 0x8FF
	methodNeither = 3
	fileAnyAccess = 0
)

// Agent control codes. The agent's CTL_CODE macro passes the function
// number in the device-type slot, so the function lands in the high word
// and 0x8FF in the function bits.
const (
	IoctlSnapshotRequested        uint32 = FunctionSnapshotRequested<<16 | fileAnyAccess<<14 | deviceTypeVSS<<2 | methodNeither
	IoctlSnapshotCanProceed       uint32 = FunctionSnapshotCanProceed<<16 | fileAnyAccess<<14 | deviceTypeVSS<<2 | methodNeither
	IoctlSnapshotDiscard          uint32 = FunctionSnapshotDiscard<<16 | fileAnyAccess<<14 | deviceTypeVSS<<2 | methodNeither
	IoctlAllDiskSnapshotRequested uint32 = FunctionAllDiskSnapshotRequested<<16 | fileAnyAccess<<14 | deviceTypeVSS<<2 | methodNeither
)

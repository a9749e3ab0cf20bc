package config

import (
	"fmt"
	"sort"

	"github.com/yndnr/snapcoord/internal/core/domain"
	"github.com/yndnr/snapcoord/internal/protocol/wire"
)

var featureBits = map[string]uint{
	"snapshot":              wire.FeatureSnapshot,
	"all_disk_snapshot":     wire.FeatureAllDiskSnapshot,
	"report_driver_version": wire.FeatureReportDriverVersion,
}

// FeatureNames returns every known feature name, sorted.
func FeatureNames() []string {
	names := make([]string, 0, len(featureBits))
	for name := range featureBits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FeatureBits converts the configured feature names into a bitmap.
func (d *DeviceSection) FeatureBits() (wire.Features, error) {
	var f wire.Features
	for _, name := range d.Features {
		bit, ok := featureBits[name]
		if !ok {
			return 0, fmt.Errorf("device.features: unknown feature %q", name)
		}
		f = f.With(bit)
	}
	return f, nil
}

// LogicalUnits converts the configured units, validating each.
func (d *DeviceSection) LogicalUnits() ([]domain.LogicalUnit, error) {
	out := make([]domain.LogicalUnit, 0, len(d.Units))
	for i, u := range d.Units {
		if u.Target < 0 || u.Target > 0xFF {
			return nil, fmt.Errorf("device.units[%d]: target %d out of range", i, u.Target)
		}
		if u.Lun < 0 || u.Lun > domain.MaxAgentLun {
			return nil, fmt.Errorf("device.units[%d]: lun %d out of range (agent addresses 0-%d)", i, u.Lun, domain.MaxAgentLun)
		}
		out = append(out, domain.LogicalUnit{Target: uint8(u.Target), Lun: uint16(u.Lun)})
	}
	return out, nil
}

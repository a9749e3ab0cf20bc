package domain

import (
	"errors"
	"testing"
)

func TestScope_Conflicts(t *testing.T) {
	u12 := PerUnit(LogicalUnit{Target: 1, Lun: 2})
	u13 := PerUnit(LogicalUnit{Target: 1, Lun: 3})
	all := AllUnits()

	tests := []struct {
		name string
		a, b Scope
		want bool
	}{
		{"same unit", u12, u12, true},
		{"different units", u12, u13, false},
		{"all vs unit", all, u12, true},
		{"unit vs all", u13, all, true},
		{"all vs all", all, all, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Conflicts(tt.b); got != tt.want {
				t.Errorf("%s.Conflicts(%s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestScope_Covers(t *testing.T) {
	u := LogicalUnit{Target: 4, Lun: 7}
	if !AllUnits().Covers(u) {
		t.Error("all-units should cover every unit")
	}
	if !PerUnit(u).Covers(u) {
		t.Error("per-unit should cover its own unit")
	}
	if PerUnit(u).Covers(LogicalUnit{Target: 4, Lun: 8}) {
		t.Error("per-unit should not cover another unit")
	}
}

func TestScope_String(t *testing.T) {
	if got := PerUnit(LogicalUnit{Target: 1, Lun: 2}).String(); got != "unit 1:2" {
		t.Errorf("String() = %q", got)
	}
	if got := AllUnits().String(); got != "all-units" {
		t.Errorf("String() = %q", got)
	}
}

func TestParseLogicalUnit(t *testing.T) {
	tests := []struct {
		in      string
		want    LogicalUnit
		wantErr bool
	}{
		{"1:2", LogicalUnit{Target: 1, Lun: 2}, false},
		{" 0:16383 ", LogicalUnit{Target: 0, Lun: MaxLun}, false},
		{"1:16384", LogicalUnit{}, true},
		{"256:0", LogicalUnit{}, true},
		{"12", LogicalUnit{}, true},
		{"a:b", LogicalUnit{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogicalUnit(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLogicalUnit(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLogicalUnit(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLogicalUnit_Validate(t *testing.T) {
	err := LogicalUnit{Target: 1, Lun: MaxLun + 1}.Validate()
	if !errors.Is(err, ErrInvalidDevice) {
		t.Errorf("Validate() error = %v, want ErrInvalidDevice", err)
	}
}

func TestLogicalUnit_AgentAddressable(t *testing.T) {
	tests := []struct {
		unit LogicalUnit
		want bool
	}{
		{LogicalUnit{Target: 1, Lun: 2}, true},
		{LogicalUnit{Target: 1, Lun: MaxAgentLun}, true},
		{LogicalUnit{Target: 1, Lun: 258}, false},
		{LogicalUnit{Target: 0, Lun: MaxLun}, false},
	}

	for _, tt := range tests {
		if got := tt.unit.AgentAddressable(); got != tt.want {
			t.Errorf("%s.AgentAddressable() = %v, want %v", tt.unit, got, tt.want)
		}
	}
}

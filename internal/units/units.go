// Package units provides shared constants and conversions for length,
// magnetic field and momentum units. The core works in cm, tesla and GeV/c.
package units

import "strings"

// Length units
const (
	CM = "cm"
	MM = "mm"
	M  = "m"
)

// Field units
const (
	Tesla     = "T"
	Kilogauss = "kG"
	Gauss     = "G"
)

// Momentum units
const (
	GeV = "GeV"
	MeV = "MeV"
)

// ValidLengthUnits contains all valid length unit values
var ValidLengthUnits = []string{CM, MM, M}

// ValidFieldUnits contains all valid field unit values
var ValidFieldUnits = []string{Tesla, Kilogauss, Gauss}

// ValidMomentumUnits contains all valid momentum unit values
var ValidMomentumUnits = []string{GeV, MeV}

func contains(valid []string, unit string) bool {
	for _, v := range valid {
		if unit == v {
			return true
		}
	}
	return false
}

// IsValidLength checks if the given unit is a known length unit
func IsValidLength(unit string) bool { return contains(ValidLengthUnits, unit) }

// IsValidField checks if the given unit is a known field unit
func IsValidField(unit string) bool { return contains(ValidFieldUnits, unit) }

// IsValidMomentum checks if the given unit is a known momentum unit
func IsValidMomentum(unit string) bool { return contains(ValidMomentumUnits, unit) }

// ValidLengthString returns a comma-separated list for error messages
func ValidLengthString() string { return strings.Join(ValidLengthUnits, ", ") }

// ValidFieldString returns a comma-separated list for error messages
func ValidFieldString() string { return strings.Join(ValidFieldUnits, ", ") }

// ValidMomentumString returns a comma-separated list for error messages
func ValidMomentumString() string { return strings.Join(ValidMomentumUnits, ", ") }

// LengthToCM converts a length in the given unit to centimetres.
// Unknown units are returned unchanged.
func LengthToCM(v float64, unit string) float64 {
	switch unit {
	case MM:
		return v * 0.1
	case M:
		return v * 100
	default:
		return v
	}
}

// FieldToTesla converts a field value in the given unit to tesla.
// Unknown units are returned unchanged.
func FieldToTesla(v float64, unit string) float64 {
	switch unit {
	case Kilogauss:
		return v * 0.1
	case Gauss:
		return v * 1e-4
	default:
		return v
	}
}

// MomentumToGeV converts a momentum in the given unit to GeV/c.
// Unknown units are returned unchanged.
func MomentumToGeV(v float64, unit string) float64 {
	if unit == MeV {
		return v * 1e-3
	}
	return v
}

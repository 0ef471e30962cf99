package enums

import "fmt"

// DebtResolution records the outcome of a per-pump debt check at
// delivery time. collected means the driver recovered the pump,
// missing means the client kept it and the debt stays open.
type DebtResolution string

const (
	DebtResolutionCollected DebtResolution = "collected"
	DebtResolutionMissing   DebtResolution = "missing"
)

var validDebtResolutions = []DebtResolution{
	DebtResolutionCollected,
	DebtResolutionMissing,
}

// IsValid reports whether the value is a known DebtResolution.
func (d DebtResolution) IsValid() bool {
	for _, candidate := range validDebtResolutions {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDebtResolution converts raw input into a DebtResolution.
func ParseDebtResolution(value string) (DebtResolution, error) {
	for _, candidate := range validDebtResolutions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid debt resolution %q", value)
}

package enums

import "fmt"

// PumpStatus tracks where a pump physically sits in the custody chain.
type PumpStatus string

const (
	PumpStatusAvailable   PumpStatus = "available"
	PumpStatusWithDriver  PumpStatus = "with_driver"
	PumpStatusWithClient  PumpStatus = "with_client"
	PumpStatusMaintenance PumpStatus = "maintenance"
	PumpStatusExpired     PumpStatus = "expired"
)

var validPumpStatuses = []PumpStatus{
	PumpStatusAvailable,
	PumpStatusWithDriver,
	PumpStatusWithClient,
	PumpStatusMaintenance,
	PumpStatusExpired,
}

// String implements fmt.Stringer.
func (p PumpStatus) String() string {
	return string(p)
}

// IsValid reports whether the value matches the canonical pump status enum.
func (p PumpStatus) IsValid() bool {
	for _, candidate := range validPumpStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePumpStatus converts the raw string to PumpStatus.
func ParsePumpStatus(value string) (PumpStatus, error) {
	for _, candidate := range validPumpStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pump status %q", value)
}

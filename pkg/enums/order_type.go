package enums

import "fmt"

// OrderType distinguishes the outbound delivery leg from the return leg.
type OrderType string

const (
	OrderTypeDelivery OrderType = "delivery"
	OrderTypeReturn   OrderType = "return"
)

var validOrderTypes = []OrderType{
	OrderTypeDelivery,
	OrderTypeReturn,
}

// IsValid reports whether the value is a known OrderType.
func (o OrderType) IsValid() bool {
	for _, candidate := range validOrderTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderType converts raw input into an OrderType.
func ParseOrderType(value string) (OrderType, error) {
	for _, candidate := range validOrderTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order type %q", value)
}

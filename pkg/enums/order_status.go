package enums

import "fmt"

// OrderStatus is the lifecycle state of a delivery order. Delivery legs
// move created -> picked_up -> delivered -> received_by_client, return
// legs move return_requested -> returned_to_pharmacy ->
// received_by_pharmacy. cancelled is terminal.
type OrderStatus string

const (
	OrderStatusCreated          OrderStatus = "created"
	OrderStatusPickedUp         OrderStatus = "picked_up"
	OrderStatusDelivered        OrderStatus = "delivered"
	OrderStatusReceivedByClient OrderStatus = "received_by_client"
	OrderStatusCancelled        OrderStatus = "cancelled"

	OrderStatusReturnRequested    OrderStatus = "return_requested"
	OrderStatusReturnedToPharmacy OrderStatus = "returned_to_pharmacy"
	OrderStatusReceivedByPharmacy OrderStatus = "received_by_pharmacy"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusCreated,
	OrderStatusPickedUp,
	OrderStatusDelivered,
	OrderStatusReceivedByClient,
	OrderStatusCancelled,
	OrderStatusReturnRequested,
	OrderStatusReturnedToPharmacy,
	OrderStatusReceivedByPharmacy,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether an order in this status can still move.
func (o OrderStatus) IsTerminal() bool {
	switch o {
	case OrderStatusReceivedByClient, OrderStatusCancelled, OrderStatusReceivedByPharmacy:
		return true
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

package enums

// OutboxStatus is the publish lifecycle of an outbox row.
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusPublishing OutboxStatus = "publishing"
	OutboxStatusPublished  OutboxStatus = "published"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// OutboxEventType names the domain events written to the outbox and
// published on the custody topic.
type OutboxEventType string

const (
	OutboxEventOrderCreated    OutboxEventType = "order.created"
	OutboxEventOrderPickedUp   OutboxEventType = "order.picked_up"
	OutboxEventOrderDelivered  OutboxEventType = "order.delivered"
	OutboxEventOrderCanceled   OutboxEventType = "order.canceled"
	OutboxEventReturnRequested OutboxEventType = "return.requested"
	OutboxEventReturnPickedUp  OutboxEventType = "return.picked_up"
	OutboxEventReturnCompleted OutboxEventType = "return.completed"
	OutboxEventUserRegistered  OutboxEventType = "user.registered"
)

var validOutboxEventTypes = []OutboxEventType{
	OutboxEventOrderCreated,
	OutboxEventOrderPickedUp,
	OutboxEventOrderDelivered,
	OutboxEventOrderCanceled,
	OutboxEventReturnRequested,
	OutboxEventReturnPickedUp,
	OutboxEventReturnCompleted,
	OutboxEventUserRegistered,
}

// IsValid reports whether the value is a known OutboxEventType.
func (o OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

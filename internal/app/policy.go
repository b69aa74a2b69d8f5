package app

import "github.com/dkeye/Vision/internal/domain"

type DeliveryAction int

const (
	DropMessage DeliveryAction = iota
	KickClient
)

// Policy decides what to do when a signaling delivery to a client fails
// (backpressure or closed transport).
type Policy interface {
	OnDeliveryFailure(role domain.Role) DeliveryAction
}

// SimplePolicy kicks dead subscribers so fan-out stays clean; deliveries to
// publishers are best-effort since the publisher drives its own negotiation.
type SimplePolicy struct{}

func (SimplePolicy) OnDeliveryFailure(role domain.Role) DeliveryAction {
	if role == domain.RoleSubscriber {
		return KickClient
	}
	return DropMessage
}

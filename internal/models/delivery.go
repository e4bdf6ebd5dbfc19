package models

import (
	"time"
)

// DeliveryStatus is the state of the delivery paired with an order
type DeliveryStatus string

const (
	DeliveryPending    DeliveryStatus = "PENDING"
	DeliveryDispatched DeliveryStatus = "DISPATCHED"
	DeliveryDelivered  DeliveryStatus = "DELIVERED"
	DeliveryFailed     DeliveryStatus = "FAILED"
)

// Terminal reports whether no transition leaves the status.
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryDelivered || s == DeliveryFailed
}

type Delivery struct {
	ID        string         `json:"id" bson:"_id" gorm:"primaryKey;size:24"`
	OrderID   string         `json:"order" bson:"order" gorm:"column:order_id;size:24;not null;uniqueIndex"`
	RiderID   *string        `json:"rider,omitempty" bson:"rider,omitempty" gorm:"column:rider_id;size:24;index"`
	Status    DeliveryStatus `json:"status" bson:"status" gorm:"not null;index"`
	CreatedAt time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// AssignedTo reports whether riderID holds the delivery.
func (d *Delivery) AssignedTo(riderID string) bool {
	return d.RiderID != nil && *d.RiderID == riderID
}

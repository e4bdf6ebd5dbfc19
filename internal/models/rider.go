package models

import (
	"time"
)

// RiderStatus is the administrative state of a rider account
type RiderStatus string

const (
	RiderPending  RiderStatus = "PENDING"
	RiderApproved RiderStatus = "APPROVED"
	RiderDisabled RiderStatus = "DISABLED"
)

// Availability tells whether a rider can be handed a delivery.
// BUSY is owned by the delivery lifecycle and cannot be set by the rider.
type Availability string

const (
	Unavailable Availability = "UNAVAILABLE"
	Available   Availability = "AVAILABLE"
	Busy        Availability = "BUSY"
)

// AvailabilityFromCode maps the rider self-service code to an availability.
// Only "1" means AVAILABLE, everything else falls back to UNAVAILABLE.
func AvailabilityFromCode(code string) Availability {
	if code == "1" {
		return Available
	}
	return Unavailable
}

type Rider struct {
	ID           string       `json:"id" bson:"_id" gorm:"primaryKey;size:24"`
	Email        string       `json:"email" bson:"email" gorm:"uniqueIndex;not null"`
	Firstname    string       `json:"firstname" bson:"firstname" gorm:"not null"`
	Lastname     string       `json:"lastname" bson:"lastname" gorm:"not null"`
	Tel          string       `json:"tel" bson:"tel" gorm:"uniqueIndex;not null"`
	Address      string       `json:"address" bson:"address" gorm:"not null"`
	Deliveries   int          `json:"deliveries" bson:"deliveries" gorm:"not null;default:0"`
	PasswordHash string       `json:"-" bson:"password" gorm:"column:password;not null"`
	Status       RiderStatus  `json:"status" bson:"status" gorm:"not null;default:'PENDING';index"`
	Availability Availability `json:"availability" bson:"availability" gorm:"not null;default:'UNAVAILABLE'"`
	ApprovedBy   *string      `json:"approvedBy,omitempty" bson:"approvedBy,omitempty" gorm:"size:24"`
	ApprovedOn   *time.Time   `json:"approvedOn,omitempty" bson:"approvedOn,omitempty"`
	CreatedAt    time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt" bson:"updatedAt"`
}

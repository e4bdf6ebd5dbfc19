package models

import (
	"time"
)

// Order is one food line bought by a user. PricePaidInCents is captured when the
// order is created and never recomputed from the catalog.
type Order struct {
	ID               string    `json:"id" bson:"_id" gorm:"primaryKey;size:24"`
	FoodID           string    `json:"food" bson:"food" gorm:"column:food_id;size:24;not null;index"`
	Quantity         int       `json:"quantity" bson:"quantity" gorm:"not null"`
	OrderBy          string    `json:"orderBy" bson:"orderBy" gorm:"size:24;not null;index"`
	PricePaidInCents int64     `json:"pricePaidInCents" bson:"pricePaidInCents" gorm:"not null"`
	DeliveryAddress  string    `json:"deliveryAddress" bson:"deliveryAddress" gorm:"not null"`
	Food             *Food     `json:"foodDetails,omitempty" bson:"-" gorm:"-"`
	CreatedAt        time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt" bson:"updatedAt"`
}

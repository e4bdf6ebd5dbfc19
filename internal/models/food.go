package models

import (
	"time"
)

// Food is a catalog item. Stock is never negative; only order creation decrements it.
type Food struct {
	ID                 string    `json:"id" bson:"_id" gorm:"primaryKey;size:24"`
	Name               string    `json:"name" bson:"name" gorm:"uniqueIndex;not null"`
	Category           string    `json:"category" bson:"category" gorm:"not null"`
	Stock              int       `json:"stock" bson:"stock" gorm:"not null;default:0"`
	PriceInCents       int64     `json:"priceInCents" bson:"priceInCents" gorm:"not null"`
	DiscountPercentage float64   `json:"discountPercentage" bson:"discountPercentage" gorm:"not null;default:0"`
	Images             []string  `json:"images" bson:"images" gorm:"serializer:json"`
	CreatedBy          string    `json:"createdBy,omitempty" bson:"createdBy,omitempty" gorm:"size:24"`
	LastUpdatedBy      string    `json:"lastUpdatedBy,omitempty" bson:"lastUpdatedBy,omitempty" gorm:"size:24"`
	CreatedAt          time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Public hides the admin references from catalog readers.
func (f Food) Public() Food {
	f.CreatedBy = ""
	f.LastUpdatedBy = ""
	return f
}

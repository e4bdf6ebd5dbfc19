package models

import (
	"time"
)

// Admin is a back-office account that manages the catalog and approves riders.
type Admin struct {
	ID           string    `json:"id" bson:"_id" gorm:"primaryKey;size:24"`
	Email        string    `json:"email" bson:"email" gorm:"uniqueIndex;not null"`
	Firstname    string    `json:"firstname" bson:"firstname" gorm:"not null"`
	Lastname     string    `json:"lastname" bson:"lastname" gorm:"not null"`
	Tel          string    `json:"tel,omitempty" bson:"tel,omitempty"`
	PasswordHash string    `json:"-" bson:"password" gorm:"column:password;not null"`
	ProfilePhoto string    `json:"profilePhoto,omitempty" bson:"profilePhoto,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// User is a customer account that places orders.
type User struct {
	ID           string    `json:"id" bson:"_id" gorm:"primaryKey;size:24"`
	Email        string    `json:"email" bson:"email" gorm:"uniqueIndex;not null"`
	Firstname    string    `json:"firstname" bson:"firstname" gorm:"not null"`
	Lastname     string    `json:"lastname" bson:"lastname" gorm:"not null"`
	Tel          string    `json:"tel" bson:"tel" gorm:"uniqueIndex;not null"`
	Address      string    `json:"address" bson:"address" gorm:"not null"`
	Orders       int       `json:"orders" bson:"orders" gorm:"not null;default:0"`
	PasswordHash string    `json:"-" bson:"password" gorm:"column:password;not null"`
	ProfilePhoto string    `json:"profilePhoto,omitempty" bson:"profilePhoto,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

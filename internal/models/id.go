package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewID returns a fresh 24 character hex identifier. Every backend uses the same
// ObjectID shaped ids so request validation does not depend on the store.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// IsID reports whether s has the shape of an identifier produced by NewID.
func IsID(s string) bool {
	return primitive.IsValidObjectID(s)
}

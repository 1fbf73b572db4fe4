package entity

import (
	"net/http"
	"qreward/lib/validate"
	"time"
)

// User is an operator API identity. The presentation layer and dashboard
// call the engine with the user's Bearer token; end customers are never
// represented here (redemption is a public, unauthenticated route).
type User struct {
	Username     string    `json:"username" bson:"username" validate:"required"`
	Name         string    `json:"name" bson:"name" validate:"omitempty"`
	Email        string    `json:"email" bson:"email" validate:"omitempty"`
	Token        string    `json:"token" bson:"token" validate:"required,min=1"`
	RegisteredAt time.Time `json:"registered_at" bson:"registered_at"`
}

func (u *User) Bind(_ *http.Request) error {
	return validate.Struct(u)
}

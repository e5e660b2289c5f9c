package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash *string   `json:"-"`
	Name         string    `json:"name"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UnknownIP marks requests whose address could not be resolved. It is never
// used as a linking key since unrelated visitors share it.
const UnknownIP = "unknown"

// Caller is the identity resolved for an inbound request. A nil UserID means
// the request is anonymous and IP is the only correlation key.
type Caller struct {
	UserID  *uuid.UUID
	Email   string
	IsAdmin bool
	IP      string
}

func (c Caller) Anonymous() bool { return c.UserID == nil }

type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Name     string `json:"name" binding:"max=100"`
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SubscribeRequest struct {
	Email string `json:"email" binding:"required,email,max=254"`
}

type Subscriber struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	SubscribedAt time.Time `json:"subscribedAt"`
	IsActive     bool      `json:"isActive"`
}

// SubscribeOutcome tells the caller which branch a subscribe request took.
type SubscribeOutcome string

const (
	SubscribeCreated     SubscribeOutcome = "subscribed"
	SubscribeReactivated SubscribeOutcome = "reactivated"
	SubscribeExisting    SubscribeOutcome = "already_subscribed"
)

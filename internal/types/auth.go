// Package types provides type definitions for structured data exchanged with the resume tailor backend.
package types

import (
	"github.com/go-playground/validator/v10"
)

// MinPasswordLength mirrors the identity provider's minimum password length.
const MinPasswordLength = 6

// Credentials represents an email/password pair used for sign-in and sign-up.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// User represents the authenticated identity returned by the identity provider.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Validate validates the Credentials using the validator.
func (c *Credentials) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

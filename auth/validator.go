package auth

import (
	"github.com/go-playground/validator/v10"

	"term-chatroom/errors"
)

var validate = validator.New()

// RegisterRequest carries the credential pair for account creation.
// Usernames double as the chat identity, so they stay short and plain.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,alphanum,min=3,max=32"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// ValidateRegister checks business rules before any expensive
// cryptographic operation runs.
func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			if fieldErr.Field() == "Username" {
				return errors.ErrInvalidUsername
			}
		}
		return errors.ErrInvalidPassword
	}
	return nil
}

package auth

import (
	"github.com/farmlinker/farmlinker-backend/internal/users"
)

// RegisterRequest is the account signup payload.
type RegisterRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=6,max=256"`
	Role        string  `json:"role,omitempty" validate:"omitempty,oneof=buyer seller both"`
	Phone       *string `json:"phone,omitempty"`
	Address     *string `json:"address,omitempty"`
	County      *string `json:"county,omitempty"`
	IDNumber    *string `json:"id_number,omitempty"`
	MpesaNumber *string `json:"mpesa_number,omitempty"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the authenticated user and its bearer token.
type LoginResponse struct {
	User  *users.UserDTO `json:"user"`
	Token string         `json:"token"`
}

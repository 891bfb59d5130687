package dto

import "taskloop-sync/internal/domain"

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// TokenResponse is returned by login and register.
type TokenResponse struct {
	Token string `json:"token" validate:"required"`
}

// UserPayload is returned by GET /auth/me.
type UserPayload struct {
	ID        int64  `json:"id" validate:"gt=0"`
	Username  string `json:"username" validate:"required"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (p UserPayload) ToDomain() (*domain.User, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	return &domain.User{
		ID:        p.ID,
		Username:  p.Username,
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
	}, nil
}

func FromUser(u domain.User) UserPayload {
	return UserPayload{ID: u.ID, Username: u.Username, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
}

// ErrorBody is the error shape returned by the API and by the bridge.
type ErrorBody struct {
	Detail string `json:"detail,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (b ErrorBody) Message() string {
	if b.Detail != "" {
		return b.Detail
	}
	return b.Error
}

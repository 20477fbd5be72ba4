package domain

import "time"

// UserMetadata is the free-form data an identity carries from sign-up.
type UserMetadata struct {
	FullName string `json:"full_name,omitempty"`
	OrgID    string `json:"org_id,omitempty"`
}

type User struct {
	ID        string       `json:"id"`
	Email     string       `json:"email" validate:"required,email"`
	Password  string       `json:"password,omitempty"` // Save to DB but omit from responses when empty
	Metadata  UserMetadata `json:"user_metadata"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Public returns a copy without the password hash.
func (u *User) Public() *User {
	cp := *u
	cp.Password = ""
	return &cp
}

type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"max=120"`
	OrgID    string `json:"org_id" validate:"required"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignInResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// User represents an account in the system
type User struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Email          string    `db:"email" json:"email"`
	PasswordHashed string    `db:"password_hashed" json:"-"` // "-" hides from JSON output
	AvatarURL      *string   `db:"avatar_url" json:"avatar_url"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// UserSummary is the author/viewer projection attached to posts and comments.
// Avatar is optional; Initials is always filled so clients have a fallback.
type UserSummary struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Initials  string  `json:"initials"`
}

// Summary projects the user into a UserSummary.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		Initials:  Initials(u.Name),
	}
}

// Initials returns up to two upper-case initials for a display name.
// An empty name yields "?".
func Initials(name string) string {
	var out []rune
	for _, word := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(word)
		out = append(out, unicode.ToUpper(r))
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}

// DefaultAvatarURL builds the generated avatar used when a user has none.
func DefaultAvatarURL(email string) string {
	return fmt.Sprintf("%s/%s", AvatarServiceURL, strings.ToLower(strings.TrimSpace(email)))
}

// AvatarServiceURL generates deterministic gradient avatars from a seed.
const AvatarServiceURL = "https://avatar.vercel.sh"

// SignupRequest represents the data needed to register a new user
type SignupRequest struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
	AcceptTerms     bool   `json:"accept_terms" validate:"required"`
}

// LoginRequest represents the data needed to log in
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Per-field messages shown next to the signup and login forms.
var signupMessages = map[string]map[string]string{
	"name": {
		"required": "Name is required",
	},
	"email": {
		"required": "Email is required",
		"email":    "Email is invalid",
	},
	"password": {
		"required": "Password is required",
		"min":      "Password must be at least 8 characters",
	},
	"confirm_password": {
		"eqfield": "Passwords do not match",
	},
	"accept_terms": {
		"required": "You must accept the terms and conditions",
	},
}

// Validate checks the signup form.
func (r *SignupRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	return validateStruct(r, signupMessages)
}

// Validate checks the login form.
func (r *LoginRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	return validateStruct(r, signupMessages)
}

var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailExists is returned when attempting to create a user with a taken email
	ErrEmailExists = errors.New("email already registered")

	// ErrInvalidCredentials is returned when login credentials are incorrect
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAuthRequired is returned when an operation needs a signed-in viewer
	ErrAuthRequired = errors.New("authentication required")
)

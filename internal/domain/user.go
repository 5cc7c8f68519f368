package domain

import "time"

// User is the signed-in customer's identity as returned by the backend.
type User struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Avatar    *Avatar `json:"avatar,omitempty"`
}

// Avatar is the user's profile image.
type Avatar struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// AuthResult is what login and signup report to the UI. Error is a
// user-facing sentence and is empty on success.
type AuthResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Session is a read-only snapshot of the client session.
type Session struct {
	Authenticated        bool       `json:"authenticated"`
	User                 *User      `json:"user,omitempty"`
	AccessTokenExpiresAt *time.Time `json:"access_token_expires_at,omitempty"`
}

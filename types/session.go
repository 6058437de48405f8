package types

import "time"

// Session maps an opaque bearer token to the user it authenticates.
// A user may hold any number of live sessions at once; logging in never
// invalidates earlier tokens.
type Session struct {
	// Token is the opaque, unguessable bearer credential. It is the
	// primary key of the session and is never serialized.
	Token string `json:"-" db:"token"`

	// UserID identifies the user this session authenticates.
	UserID string `json:"-" db:"user_id"`

	// CreatedAt is the timestamp when the session was issued.
	CreatedAt time.Time `json:"-" db:"created_at"`

	// ExpiresAt is the optional expiry of the session. Nil means the
	// session never expires, which is the default policy.
	ExpiresAt *time.Time `json:"-" db:"expires_at"`
}

package types

import "time"

// User represents an account in the system.
// Its wire shape is {id, email, goal}; credential material is never serialized.
type User struct {
	// ID is the unique, immutable identifier of the user.
	ID string `json:"id" db:"id"`

	// Email is the user's email address, stored lowercase.
	// Uniqueness is enforced at the storage layer.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt digest of the user's password.
	// It is nil for provisioned placeholder accounts that have not been
	// claimed yet, and is never exposed in API responses.
	PasswordHash *string `json:"-" db:"password_hash"`

	// Goal is the dietary goal chosen by the user after registration.
	// It serializes as null until the user sets one.
	Goal *string `json:"goal" db:"goal"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"-" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}

// HasPassword reports whether the account has been claimed with a password.
// Placeholder accounts exist without one and can be claimed by the first
// successful registration at their email address.
func (u User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

package services

import "errors"

// ErrInvalidInput is returned for malformed or missing client data.
var ErrInvalidInput = errors.New("invalid input")

// ErrEmailTaken is returned when registering an email that already has an
// active account.
var ErrEmailTaken = errors.New("user already exists")

// ErrInvalidCredentials is returned on any login failure. Unknown email,
// a passwordless placeholder account, and a wrong password all map to this
// one error so responses never reveal whether an account exists.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Package identity abstracts the hosted identity provider that issues
// opaque user identifiers after credential registration and verification.
package identity

import "context"

// Provider is the identity provider interface. Implementations return the
// provider's stable opaque user identifier; error messages from the
// provider are passed through verbatim.
type Provider interface {
	// Register creates an account for the given credentials and returns
	// the new user identifier.
	Register(ctx context.Context, email, password, displayName string) (string, error)

	// Login verifies the credentials and returns the user identifier.
	Login(ctx context.Context, email, password string) (string, error)

	// Logout ends the provider-side session, where one exists.
	Logout(ctx context.Context) error

	// ResetPassword starts the provider's credential reset flow for email.
	ResetPassword(ctx context.Context, email string) error
}

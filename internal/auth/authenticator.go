package auth

import (
	"context"

	"github.com/mmynk/receiptsplit/internal/models"
)

// Authenticator verifies who is calling. Services depend on this rather than
// on a particular credential scheme.
type Authenticator interface {
	// Register creates an account for email and returns the new user.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate returns the user whose credential matches.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential reports whether a credential is acceptable to store.
	ValidateCredential(credential string) error
}

// Package auth issues and checks the credentials that identify a requester.
package auth

import (
	"context"

	"github.com/mmynk/splitledger/internal/models"
)

// Authenticator registers accounts and verifies their credentials.
// The engines never see credentials; they only receive the requester ID
// that a verified token carries.
type Authenticator interface {
	// Register creates an account for email with the given username.
	Register(ctx context.Context, email, username, credential string) (*models.User, error)

	// Authenticate returns the account matching email and credential.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential rejects credentials that may not be stored.
	ValidateCredential(credential string) error
}

package auth

import (
	"errors"

	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"
)

// GoogleProfile is what a verified Google ID token tells us about the account.
type GoogleProfile struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// GoogleVerifier checks a Google ID token.
type GoogleVerifier interface {
	Verify(idToken string) (*GoogleProfile, error)
}

// IDTokenVerifier verifies Google ID tokens against Google's signing keys for one client ID.
type IDTokenVerifier struct {
	clientID string
	verifier googleAuthIDTokenVerifier.Verifier
}

// NewIDTokenVerifier creates a verifier for the OAuth client ID.
func NewIDTokenVerifier(clientID string) *IDTokenVerifier {
	return &IDTokenVerifier{clientID: clientID}
}

// Verify validates signature, audience and expiry, then decodes the claims.
func (v *IDTokenVerifier) Verify(idToken string) (*GoogleProfile, error) {
	if v.clientID == "" {
		return nil, errors.New("google sign-in not configured")
	}
	if err := v.verifier.VerifyIDToken(idToken, []string{v.clientID}); err != nil {
		return nil, err
	}
	claims, err := googleAuthIDTokenVerifier.Decode(idToken)
	if err != nil {
		return nil, err
	}
	if claims.Email == "" || claims.Sub == "" {
		return nil, errors.New("google token without email")
	}
	return &GoogleProfile{Subject: claims.Sub, Email: claims.Email, EmailVerified: claims.EmailVerified, Name: claims.Name}, nil
}

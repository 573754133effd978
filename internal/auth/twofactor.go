package auth

import (
	"fmt"

	"github.com/pquerna/otp/totp"
)

// TOTP issues and checks time-based one-time passwords for two-factor sign-in.
type TOTP struct {
	issuer string
}

// NewTOTP creates a TOTP helper; issuer is shown in authenticator apps.
func NewTOTP(issuer string) *TOTP {
	return &TOTP{issuer: issuer}
}

// Generate creates a new secret for account and its otpauth:// URL.
func (t *TOTP) Generate(account string) (secret, url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      t.issuer,
		AccountName: account,
	})
	if err != nil {
		return "", "", fmt.Errorf("generate totp secret: %w", err)
	}
	return key.Secret(), key.URL(), nil
}

// Validate checks a code against secret at the current time.
func (t *TOTP) Validate(code, secret string) bool {
	if secret == "" || code == "" {
		return false
	}
	return totp.Validate(code, secret)
}

package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const quoteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateToken returns a URL-safe random token of 43 characters (32 random bytes).
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateQuoteNumber returns a quote number like DEV-20260115-K3M9QX.
// Uniqueness is enforced by the registrations table, not here.
func GenerateQuoteNumber(now time.Time) (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(quoteAlphabet)))
	for i := 0; i < 6; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(quoteAlphabet[n.Int64()])
	}
	return fmt.Sprintf("DEV-%s-%s", now.UTC().Format("20060102"), sb.String()), nil
}

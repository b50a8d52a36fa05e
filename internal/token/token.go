// Package token generates the opaque secrets that domain owners publish to
// prove control of a domain.
package token

import (
	"crypto/rand"
	"strings"
)

// Prefix is the fixed human-readable prefix of every verification token.
const Prefix = "verify-domain-"

// alphabet is the URL- and DNS-safe symbol set for the random suffix.
// 64 symbols, so each byte of entropy maps to exactly one symbol.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

// suffixLen gives 64^20 = 2^120 combinations, collision-negligible.
const suffixLen = 20

// Generate returns a new verification token: the fixed prefix plus a
// cryptographically random URL-safe suffix. A failing entropy source is not
// recoverable per-call, so Generate panics rather than returning an error.
func Generate() string {
	b := make([]byte, suffixLen)
	if _, err := rand.Read(b); err != nil {
		panic("token: crypto/rand unavailable: " + err.Error())
	}

	var sb strings.Builder
	sb.Grow(len(Prefix) + suffixLen)
	sb.WriteString(Prefix)
	for _, c := range b {
		sb.WriteByte(alphabet[c&63])
	}
	return sb.String()
}

package token_test

import (
	"strings"
	"testing"

	"github.com/domainverify/domainverify/internal/token"
)

func TestGenerate_format(t *testing.T) {
	tok := token.Generate()
	if !strings.HasPrefix(tok, token.Prefix) {
		t.Errorf("token %q missing prefix %q", tok, token.Prefix)
	}
	if len(tok) < len(token.Prefix)+20 {
		t.Errorf("token too short: %d chars", len(tok))
	}
	for _, r := range strings.TrimPrefix(tok, token.Prefix) {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			t.Errorf("token contains non-URL-safe rune %q", r)
		}
	}
}

func TestGenerate_distinct(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		tok := token.Generate()
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token generated: %q", tok)
		}
		seen[tok] = struct{}{}
	}
}

package challenge

import (
	"context"
	"net"
)

// TXTHostPrefix is the subdomain label under which the verification TXT
// record must be published.
const TXTHostPrefix = "_domainverify."

// TXTHost returns the DNS name queried for the given domain.
func TXTHost(domain string) string {
	return TXTHostPrefix + domain
}

// txtResolver is the subset of *net.Resolver used by DNSChecker.
// net.Resolver concatenates the character-strings of each TXT record, so
// one returned string is one complete record value.
type txtResolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// DNSChecker verifies ownership by looking for a TXT record whose value is
// exactly the verification token.
type DNSChecker struct {
	resolver txtResolver
}

// NewDNSChecker creates a DNSChecker. Pass nil to use the default resolver.
func NewDNSChecker(resolver txtResolver) *DNSChecker {
	if resolver == nil {
		resolver = &net.Resolver{}
	}
	return &DNSChecker{resolver: resolver}
}

// Check resolves TXT records at _domainverify.<domain> and reports whether
// any record equals token byte-for-byte. NXDOMAIN, SERVFAIL and timeouts
// all read as false.
func (c *DNSChecker) Check(ctx context.Context, domain, token string) bool {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	txts, err := c.resolver.LookupTXT(ctx, TXTHost(domain))
	if err != nil {
		return false
	}
	for _, txt := range txts {
		if txt == token {
			return true
		}
	}
	return false
}

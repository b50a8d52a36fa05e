// Package challenge implements the out-of-band proof checks a domain owner
// can satisfy: a DNS TXT record or a hosted file. Every checker collapses
// lookup and transport failures to "proof not found"; from the caller's
// point of view a missing record and a network error are the same outcome.
package challenge

import (
	"context"
	"fmt"
	"time"
)

// Method identifies how ownership proof is published and checked.
type Method string

const (
	MethodDNS  Method = "dns"
	MethodFile Method = "file"
)

// Valid reports whether m is one of the known challenge methods.
func (m Method) Valid() bool {
	return m == MethodDNS || m == MethodFile
}

// checkTimeout bounds a single DNS lookup or HTTP fetch so a slow target
// cannot stall the check request.
const checkTimeout = 5 * time.Second

// Checker performs the external proof check for one challenge method.
type Checker interface {
	// Check reports whether the token has been published for domain.
	// It never returns an error; any failure reads as proof-not-found.
	Check(ctx context.Context, domain, token string) bool
}

// Set holds one checker per method, built once at startup.
type Set struct {
	dns  Checker
	file Checker
}

// NewSet creates a Set with the production DNS and file checkers.
func NewSet() *Set {
	return &Set{dns: NewDNSChecker(nil), file: NewFileChecker(nil)}
}

// NewSetWith creates a Set from explicit checkers, for tests.
func NewSetWith(dns, file Checker) *Set {
	return &Set{dns: dns, file: file}
}

// For returns the checker for the given method.
func (s *Set) For(m Method) (Checker, error) {
	switch m {
	case MethodDNS:
		return s.dns, nil
	case MethodFile:
		return s.file, nil
	default:
		return nil, fmt.Errorf("unknown challenge method %q", m)
	}
}

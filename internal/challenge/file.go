package challenge

import (
	"context"
	"io"
	"net/http"
	"strings"
)

// WellKnownPath is the path of the hosted proof file.
const WellKnownPath = "/domain-verification.txt"

// userAgent identifies our fetches to the target server.
const userAgent = "DomainVerify/1.0"

// maxBodySize caps how much of the proof file we read. Tokens are short;
// anything past 4 KiB cannot match.
const maxBodySize = 4 << 10

// httpDoer is the subset of *http.Client used by FileChecker.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// FileChecker verifies ownership by fetching a well-known file over HTTPS
// and comparing its contents to the verification token.
type FileChecker struct {
	client httpDoer
}

// NewFileChecker creates a FileChecker. Pass nil to use a default client
// with a bounded timeout.
func NewFileChecker(client httpDoer) *FileChecker {
	if client == nil {
		client = &http.Client{Timeout: checkTimeout}
	}
	return &FileChecker{client: client}
}

// Check fetches https://<domain>/domain-verification.txt and reports whether
// the body equals token, with surrounding whitespace trimmed on both sides.
// Transport errors, TLS failures and non-2xx statuses all read as false.
func (c *FileChecker) Check(ctx context.Context, domain, token string) bool {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	url := "https://" + domain + WellKnownPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(body)) == strings.TrimSpace(token)
}

// Package client is the Go SDK for the domain verification API.
//
// It covers the full ownership-proof lifecycle: starting a verification,
// publishing the returned token, asking the server to check for it, and
// managing webhook subscriptions for the results.
//
// # Verifying a domain
//
//	c := client.New("https://verify.example.io", client.WithAPIKey(key))
//
//	v, err := c.CreateVerification(ctx, "example.com", "dns")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("publish TXT %s at _domainverify.%s\n", v.Token, v.Domain)
//
//	// ... once the record is live ...
//	v, err = c.CheckVerification(ctx, v.ID)
//	fmt.Println(v.Status) // "verified" or "failed"
//
// A failed check is not terminal: publish the proof and check again. Once a
// record reaches "verified" it stays verified; further checks are no-ops.
//
// # File-based proof
//
// Pass "file" as the method and serve the token at
// https://<domain>/domain-verification.txt instead of publishing DNS.
//
// # Webhooks
//
// Organizations can subscribe to verification outcomes instead of polling:
//
//	res, err := c.CreateWebhook(ctx, "https://app.example.com/hooks",
//	    []string{"verification.completed", "verification.failed"})
//	// res.Secret signs every delivery (X-DomainVerify-Signature, HMAC-SHA256).
//	// It is shown once; store it.
//
// # Authentication
//
// WithAPIKey suits servers and CI. WithSessionToken plus WithOrganization
// suits tooling acting on behalf of a dashboard user. With neither, requests
// run in the anonymous scope, which sees only records created anonymously.
package client

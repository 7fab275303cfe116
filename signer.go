package azstore

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// TokenProvider resolves a bearer token for an audience. The audience is the
// scheme and host of the request target only, never path or query. The
// provider is invoked synchronously and may itself block or perform IO;
// callers needing cancellation implement it inside the provider.
type TokenProvider func(audience string) (string, error)

// Credentials is the authentication context attached to a client. Exactly one
// variant is populated:
//
//   - shared key: AccountName and the base64-encoded AccountKey, with
//     DevelopmentStorage marking the local emulator
//   - token: TokenProvider alone
//
// The signer dispatches on which variant is present. Credentials are treated
// as immutable for their lifetime and are safe to share across goroutines.
type Credentials struct {
	AccountName        string
	AccountKey         string
	DevelopmentStorage bool
	TokenProvider      TokenProvider
}

// SharedKeyCredentials builds a shared-key credential.
func SharedKeyCredentials(accountName, accountKey string) Credentials {
	return Credentials{AccountName: accountName, AccountKey: accountKey}
}

// DevelopmentCredentials builds a shared-key credential targeting the local
// storage emulator with its well-known account and key.
func DevelopmentCredentials() Credentials {
	return Credentials{
		AccountName:        developmentAccountName,
		AccountKey:         developmentAccountKey,
		DevelopmentStorage: true,
	}
}

// TokenCredentials builds a token-based credential.
func TokenCredentials(provider TokenProvider) Credentials {
	return Credentials{TokenProvider: provider}
}

// developmentAccountKey is the emulator's published well-known key.
const developmentAccountKey = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="

// hasSharedKey reports whether the shared-key variant is populated.
func (c Credentials) hasSharedKey() bool {
	return c.AccountName != "" && c.AccountKey != ""
}

// hasToken reports whether the token variant is populated.
func (c Credentials) hasToken() bool {
	return c.TokenProvider != nil
}

// Authorize computes the Authorization header for req targeting u and attaches
// it. Shared-key credentials sign the canonical string-to-sign with
// HMAC-SHA256; token credentials resolve a bearer token for the target's
// scheme+host. Credentials matching neither variant fail fast with
// ErrCredentialConfig before any network call: a request is never sent
// unauthenticated.
//
// Headers that participate in signing must not change after Authorize.
func (c Credentials) Authorize(req *Request, u *url.URL) error {
	switch {
	case c.hasSharedKey():
		return c.authorizeSharedKey(req)
	case c.hasToken():
		return c.authorizeToken(req, u)
	default:
		return fmt.Errorf("authorize: %w", ErrCredentialConfig)
	}
}

func (c Credentials) authorizeSharedKey(req *Request) error {
	key, err := base64.StdEncoding.DecodeString(c.AccountKey)
	if err != nil {
		return fmt.Errorf("authorize: decode account key: %w", err)
	}

	toSign := c.stringToSign(req)
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(toSign))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req.AddHeader("Authorization", fmt.Sprintf("SharedKey %s:%s", PrimaryAccountName(c.AccountName), signature))
	return nil
}

func (c Credentials) authorizeToken(req *Request, u *url.URL) error {
	token, err := c.TokenProvider(Audience(u))
	if err != nil {
		return fmt.Errorf("authorize: %w: %w", ErrTokenProvider, err)
	}
	if token == "" {
		return fmt.Errorf("authorize: empty token: %w", ErrTokenProvider)
	}
	req.AddHeader("Authorization", "Bearer "+token)
	return nil
}

// stringToSign assembles the newline-joined signing input. The slot order is
// fixed by the authentication scheme; the service rebuilds the same string
// and compares signatures byte-for-byte, so the slots must never be
// reordered. Each standard-header slot carries the literal header value or
// the empty string — an absent Content-Length stays empty, never "0".
func (c Credentials) stringToSign(req *Request) string {
	h := req.Headers()
	slots := []string{
		strings.ToUpper(string(req.Method())),
		h.Get("Content-Encoding"),
		h.Get("Content-Language"),
		h.Get("Content-Length"),
		h.Get("Content-MD5"),
		h.Get("Content-Type"),
		h.Get("Date"),
		h.Get("If-Modified-Since"),
		h.Get("If-Match"),
		h.Get("If-None-Match"),
		h.Get("If-Unmodified-Since"),
		h.Get("Range"),
		CanonicalizedHeaders(h),
		CanonicalizedResource(c.AccountName, req.Path(), req.Query(), c.DevelopmentStorage),
	}
	return strings.Join(slots, "\n")
}

// Audience reduces a request target to the scheme+host identity a bearer
// token must be valid for. Path, query, fragment and userinfo are stripped.
func Audience(u *url.URL) string {
	return (&url.URL{Scheme: u.Scheme, Host: u.Host}).String()
}

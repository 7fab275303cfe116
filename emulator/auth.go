package emulator

import (
	"crypto/hmac"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sagarc03/azstore"
	"github.com/sagarc03/azstore/credentials"
)

// ErrUnauthorized is returned when SharedKey verification fails.
var ErrUnauthorized = errors.New("unauthorized")

// authMiddleware enforces SharedKey authentication against the configured key
// store. A nil store disables authentication.
func (e *Emulator) authMiddleware() func(http.Handler) http.Handler {
	if e.keys == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := e.verifySharedKey(r); err != nil {
				e.logger.Debug("request rejected", "path", r.URL.Path, "err", err)
				writeError(w, http.StatusForbidden, "AuthenticationFailed",
					"Server failed to authenticate the request. Make sure the value of Authorization header is formed correctly including the signature.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// verifySharedKey recomputes the request's SharedKey authorization from the
// incoming wire form and compares it against the presented header. The same
// signing code the client uses produces the expected value, so the two sides
// can never drift apart.
func (e *Emulator) verifySharedKey(r *http.Request) error {
	presented := r.Header.Get("Authorization")
	if presented == "" {
		return fmt.Errorf("verify: missing authorization header: %w", ErrUnauthorized)
	}

	account, err := parseSharedKeyAccount(presented)
	if err != nil {
		return err
	}

	key, err := e.keys.Lookup(account)
	if err != nil {
		if errors.Is(err, credentials.ErrAccountNotFound) {
			return fmt.Errorf("verify: unknown account %s: %w", account, ErrUnauthorized)
		}
		return fmt.Errorf("verify: %w", err)
	}

	expected, err := e.expectedAuthorization(r, account, key)
	if err != nil {
		return err
	}

	if !hmac.Equal([]byte(presented), []byte(expected)) {
		return fmt.Errorf("verify: signature mismatch: %w", ErrUnauthorized)
	}
	return nil
}

// parseSharedKeyAccount extracts the account name from a
// "SharedKey account:signature" authorization value.
func parseSharedKeyAccount(header string) (string, error) {
	rest, ok := strings.CutPrefix(header, "SharedKey ")
	if !ok {
		return "", fmt.Errorf("verify: not a SharedKey authorization: %w", ErrUnauthorized)
	}
	account, _, ok := strings.Cut(rest, ":")
	if !ok || account == "" {
		return "", fmt.Errorf("verify: malformed SharedKey authorization: %w", ErrUnauthorized)
	}
	return account, nil
}

// expectedAuthorization rebuilds the signing input from the wire request and
// signs it with the account's key.
func (e *Emulator) expectedAuthorization(r *http.Request, account, key string) (string, error) {
	// The account path segment is part of the emulator URL shape, not of the
	// resource path the client signed.
	path := strings.TrimPrefix(r.URL.Path, "/"+e.account)

	req := azstore.NewRequest().
		SetMethod(azstore.Method(r.Method)).
		SetPath(path)

	for _, p := range wireQuery(r.URL.RawQuery) {
		req.AddParam(azstore.LocationQuery, p.Key, p.Value)
	}
	for name, values := range r.Header {
		if strings.EqualFold(name, "Authorization") || len(values) == 0 {
			continue
		}
		// The transport stamps "Content-Length: 0" on bodyless requests; the
		// client signs an empty slot in that case, so the header value is
		// taken from r.ContentLength below instead of the wire header.
		if strings.EqualFold(name, "Content-Length") {
			continue
		}
		req.AddHeader(name, values[0])
	}
	if r.ContentLength > 0 && req.Headers().Get("Content-Length") == "" {
		req.AddHeader("Content-Length", fmt.Sprintf("%d", r.ContentLength))
	}

	creds := azstore.Credentials{
		AccountName:        account,
		AccountKey:         key,
		DevelopmentStorage: account == e.account,
	}
	if err := creds.Authorize(req, r.URL); err != nil {
		return "", fmt.Errorf("verify: %w", err)
	}
	return req.Headers().Get("Authorization"), nil
}

// wireQuery decodes a raw query string into ordered pairs, preserving
// duplicates. Undecodable components keep their raw form; they still compare
// consistently because the client escapes the same way.
func wireQuery(rawQuery string) []azstore.QueryParam {
	if rawQuery == "" {
		return nil
	}
	var out []azstore.QueryParam
	for _, piece := range strings.Split(rawQuery, "&") {
		k, v, _ := strings.Cut(piece, "=")
		if dk, err := url.QueryUnescape(k); err == nil {
			k = dk
		}
		if dv, err := url.QueryUnescape(v); err == nil {
			v = dv
		}
		out = append(out, azstore.QueryParam{Key: k, Value: v})
	}
	return out
}

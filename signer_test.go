package azstore_test

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/azstore"
)

const fixedDate = "Fri, 16 May 2014 10:20:00 GMT"

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestAuthorize_SharedKeyGolden(t *testing.T) {
	// Reference signatures computed independently with the documented
	// algorithm over account devstoreaccount1 / key "key1".
	tt := []struct {
		Name  string
		Creds azstore.Credentials
		Build func() *azstore.Request
		Want  string
	}{
		{
			Name:  "put queue",
			Creds: azstore.SharedKeyCredentials("devstoreaccount1", "key1"),
			Build: func() *azstore.Request {
				return azstore.NewRequest().
					SetMethod(azstore.MethodPut).
					SetPath("/queue1").
					AddHeader("x-ms-date", fixedDate)
			},
			Want: "SharedKey devstoreaccount1:wx8cyOEMzS4gPrytBTBTghmqU0gVwM6sxvoPaRll2Tk=",
		},
		{
			Name: "put queue against development storage",
			Creds: azstore.Credentials{
				AccountName:        "devstoreaccount1",
				AccountKey:         "key1",
				DevelopmentStorage: true,
			},
			Build: func() *azstore.Request {
				return azstore.NewRequest().
					SetMethod(azstore.MethodPut).
					SetPath("/queue1").
					AddHeader("x-ms-date", fixedDate)
			},
			Want: "SharedKey devstoreaccount1:Jct3IJkjQI3Y67uCiOy5PXHgcq+DIClsXoKfuukA3Gc=",
		},
		{
			Name:  "get messages with query",
			Creds: azstore.SharedKeyCredentials("devstoreaccount1", "key1"),
			Build: func() *azstore.Request {
				return azstore.NewRequest().
					SetMethod(azstore.MethodGet).
					SetPath("/queue1/messages").
					AddParam(azstore.LocationQuery, "visibilitytimeout", 30).
					AddParam(azstore.LocationQuery, "numofmessages", 5).
					AddHeader("x-ms-date", fixedDate)
			},
			Want: "SharedKey devstoreaccount1:CVCLsXuqDJF2L3YOaBdzXAmCELFgbUrYIp/D7HR4wFQ=",
		},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			req := tc.Build()
			err := tc.Creds.Authorize(req, mustURL(t, "https://devstoreaccount1.queue.core.windows.net/queue1"))
			require.NoError(t, err)
			assert.Equal(t, tc.Want, req.Headers().Get("Authorization"))
		})
	}
}

func TestAuthorize_SecondaryAccountSignsAsPrimary(t *testing.T) {
	req := azstore.NewRequest().
		SetMethod(azstore.MethodPut).
		SetPath("/queue1").
		AddHeader("x-ms-date", fixedDate)

	err := azstore.SharedKeyCredentials("devstoreaccount1-secondary", "key1").
		Authorize(req, mustURL(t, "https://devstoreaccount1-secondary.queue.core.windows.net"))
	require.NoError(t, err)

	// Canonical resource and header prefix both use the primary identity, so
	// the result is identical to signing against the primary endpoint.
	assert.Equal(t,
		"SharedKey devstoreaccount1:wx8cyOEMzS4gPrytBTBTghmqU0gVwM6sxvoPaRll2Tk=",
		req.Headers().Get("Authorization"))
}

func TestAuthorize_MissingBodyLeavesContentLengthSlotEmpty(t *testing.T) {
	// Two requests that differ only in Content-Length "" vs "0" must sign
	// differently: the empty slot is the correct one when no body is set.
	withEmpty := azstore.NewRequest().
		SetMethod(azstore.MethodPut).
		SetPath("/queue1").
		AddHeader("x-ms-date", fixedDate)

	withZero := azstore.NewRequest().
		SetMethod(azstore.MethodPut).
		SetPath("/queue1").
		AddHeader("x-ms-date", fixedDate).
		AddHeader("Content-Length", "0")

	creds := azstore.SharedKeyCredentials("devstoreaccount1", "key1")
	u := mustURL(t, "http://127.0.0.1:10001")

	require.NoError(t, creds.Authorize(withEmpty, u))
	require.NoError(t, creds.Authorize(withZero, u))

	assert.Equal(t,
		"SharedKey devstoreaccount1:wx8cyOEMzS4gPrytBTBTghmqU0gVwM6sxvoPaRll2Tk=",
		withEmpty.Headers().Get("Authorization"))
	assert.NotEqual(t,
		withEmpty.Headers().Get("Authorization"),
		withZero.Headers().Get("Authorization"))
}

func TestAuthorize_InvalidAccountKey(t *testing.T) {
	req := azstore.NewRequest().SetMethod(azstore.MethodGet).SetPath("/c")
	err := azstore.SharedKeyCredentials("acct", "not base64!!!").
		Authorize(req, mustURL(t, "https://acct.blob.core.windows.net"))
	assert.Error(t, err)
}

func TestAuthorize_Token(t *testing.T) {
	var gotAudience string
	creds := azstore.TokenCredentials(func(audience string) (string, error) {
		gotAudience = audience
		return "tok-123", nil
	})

	req := azstore.NewRequest().SetMethod(azstore.MethodGet).SetPath("/container/blob.txt")
	target := mustURL(t, "https://acct.blob.core.windows.net/container/blob.txt?comp=metadata#frag")

	require.NoError(t, creds.Authorize(req, target))
	assert.Equal(t, "https://acct.blob.core.windows.net", gotAudience)
	assert.Equal(t, "Bearer tok-123", req.Headers().Get("Authorization"))
}

func TestAuthorize_TokenProviderFailure(t *testing.T) {
	boom := errors.New("boom")
	creds := azstore.TokenCredentials(func(string) (string, error) { return "", boom })

	req := azstore.NewRequest().SetMethod(azstore.MethodGet).SetPath("/c")
	err := creds.Authorize(req, mustURL(t, "https://acct.blob.core.windows.net"))
	assert.ErrorIs(t, err, azstore.ErrTokenProvider)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, req.Headers().Get("Authorization"))
}

func TestAuthorize_EmptyTokenRejected(t *testing.T) {
	creds := azstore.TokenCredentials(func(string) (string, error) { return "", nil })
	req := azstore.NewRequest().SetMethod(azstore.MethodGet).SetPath("/c")
	err := creds.Authorize(req, mustURL(t, "https://acct.blob.core.windows.net"))
	assert.ErrorIs(t, err, azstore.ErrTokenProvider)
}

func TestAuthorize_NoVariantFailsFast(t *testing.T) {
	req := azstore.NewRequest().SetMethod(azstore.MethodGet).SetPath("/c")
	err := azstore.Credentials{}.Authorize(req, mustURL(t, "https://acct.blob.core.windows.net"))
	assert.ErrorIs(t, err, azstore.ErrCredentialConfig)
}

func TestAudience(t *testing.T) {
	tt := []struct {
		Name string
		URL  string
		Want string
	}{
		{Name: "strips path", URL: "https://acct.blob.core.windows.net/c/b.txt", Want: "https://acct.blob.core.windows.net"},
		{Name: "strips query", URL: "https://acct.queue.core.windows.net/q?comp=list", Want: "https://acct.queue.core.windows.net"},
		{Name: "keeps port", URL: "http://127.0.0.1:10001/devstoreaccount1/q", Want: "http://127.0.0.1:10001"},
	}
	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Want, azstore.Audience(mustURL(t, tc.URL)))
		})
	}
}

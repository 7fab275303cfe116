package azstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/azstore"
)

func TestRequest_SetOnceSemantics(t *testing.T) {
	req := azstore.NewRequest().
		SetMethod(azstore.MethodPut).
		SetMethod(azstore.MethodDelete).
		SetPath("/queue1").
		SetPath("/other")

	assert.Equal(t, azstore.MethodPut, req.Method())
	assert.Equal(t, "/queue1", req.Path())
}

func TestRequest_AddHeaderOverwrites(t *testing.T) {
	req := azstore.NewRequest().
		AddHeader("x-ms-version", "2017-04-17").
		AddHeader("X-MS-Version", "2018-03-28")

	assert.Equal(t, 1, req.Headers().Len())
	assert.Equal(t, "2018-03-28", req.Headers().Get("x-ms-version"))
}

func TestRequest_AddMetadataHeaders(t *testing.T) {
	req := azstore.NewRequest().AddMetadataHeaders(map[string]string{"foo": "bar"})

	assert.Equal(t, 1, req.Headers().Len())
	assert.Equal(t, "bar", req.Headers().Get("x-ms-meta-foo"))
}

func TestRequest_SetBodySetsContentLength(t *testing.T) {
	req := azstore.NewRequest().SetBody([]byte("hello queue"))

	body, ok := req.Body()
	require.True(t, ok)
	assert.Equal(t, []byte("hello queue"), body)
	assert.Equal(t, "11", req.Headers().Get("Content-Length"))

	// empty body still carries an explicit zero length
	empty := azstore.NewRequest().SetBody(nil)
	assert.Equal(t, "0", empty.Headers().Get("Content-Length"))
}

func TestRequest_AddContentMD5(t *testing.T) {
	req := azstore.NewRequest().SetBody([]byte("message text"))
	require.NoError(t, req.AddContentMD5())
	// base64 of md5("message text")
	assert.Equal(t, "gFUH2XKs9MQ+FCtyOCKB8A==", req.Headers().Get("Content-MD5"))
}

func TestRequest_AddContentMD5WithoutBody(t *testing.T) {
	err := azstore.NewRequest().AddContentMD5()
	assert.ErrorIs(t, err, azstore.ErrInvalidState)
}

func TestRequest_AddParamQueryKeepsOrderAndDuplicates(t *testing.T) {
	req := azstore.NewRequest().
		AddParam(azstore.LocationQuery, "comp", "list").
		AddParam(azstore.LocationQuery, "include", "metadata").
		AddParam(azstore.LocationQuery, "include", "snapshots")

	assert.Equal(t, []azstore.QueryParam{
		{Key: "comp", Value: "list"},
		{Key: "include", Value: "metadata"},
		{Key: "include", Value: "snapshots"},
	}, req.Query())
}

func TestRequest_AddParamHeader(t *testing.T) {
	req := azstore.NewRequest().AddParam(azstore.LocationHeader, "x-ms-lease-id", "abc")
	assert.Equal(t, "abc", req.Headers().Get("x-ms-lease-id"))
}

func TestRequest_AddParamUnknownLocationAccumulates(t *testing.T) {
	req := azstore.NewRequest().
		AddParam("batch", "op", "1").
		AddParam("batch", "op", "2")

	assert.Equal(t, []azstore.QueryParam{
		{Key: "op", Value: "1"},
		{Key: "op", Value: "2"},
	}, req.ExtraParams("batch"))
}

func TestRequest_AddParamIf(t *testing.T) {
	req := azstore.NewRequest().
		AddParamIf(false, azstore.LocationQuery, "visibilitytimeout", 0).
		AddParamIf(true, azstore.LocationQuery, "timeout", 30)

	assert.Equal(t, []azstore.QueryParam{{Key: "timeout", Value: "30"}}, req.Query())
	assert.Equal(t, 0, req.Headers().Len())
}

func TestRequest_AddOptionalParams(t *testing.T) {
	locations := map[string]azstore.ParamLocation{
		"timeout":                azstore.LocationQuery,
		"x-ms-client-request-id": azstore.LocationHeader,
	}

	req := azstore.NewRequest().AddOptionalParams(locations, []azstore.OptionalParam{
		{Name: "timeout", Value: 10},
		{Name: "x-ms-client-request-id", Value: "req-1"},
		{Name: "unknown-parameter", Value: "dropped"},
	})

	assert.Equal(t, []azstore.QueryParam{{Key: "timeout", Value: "10"}}, req.Query())
	assert.Equal(t, "req-1", req.Headers().Get("x-ms-client-request-id"))
	assert.Equal(t, 1, req.Headers().Len())
}

func TestRequest_RemoveEmptyHeaders(t *testing.T) {
	req := azstore.NewRequest().
		AddHeader("If-Match", "").
		AddHeader("ETag", "abc").
		RemoveEmptyHeaders()

	assert.Equal(t, 1, req.Headers().Len())
	assert.Equal(t, "abc", req.Headers().Get("ETag"))
	assert.False(t, req.Headers().Has("If-Match"))
}

func TestFilterNonEmptyQueryValues(t *testing.T) {
	in := []azstore.QueryParam{
		{Key: "prefix", Value: "logs/"},
		{Key: "marker", Value: ""},
		{Key: "maxresults", Value: "50"},
	}
	assert.Equal(t, []azstore.QueryParam{
		{Key: "prefix", Value: "logs/"},
		{Key: "maxresults", Value: "50"},
	}, azstore.FilterNonEmptyQueryValues(in))
}

func TestHeaders_CaseInsensitiveLookupPreservesWireCasing(t *testing.T) {
	h := azstore.NewHeaders()
	h.Set("Content-Type", "application/xml")

	assert.Equal(t, "application/xml", h.Get("content-type"))
	assert.Equal(t, []string{"Content-Type"}, h.Names())

	// overwrite through a differently cased name keeps one entry
	h.Set("CONTENT-TYPE", "text/plain")
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, "text/plain", h.Get("Content-Type"))
}

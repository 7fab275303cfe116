package blob_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/azstore"
	"github.com/sagarc03/azstore/blob"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   string
}

// fakeService records the last request and replies with a canned response.
type fakeService struct {
	status      int
	contentType string
	body        string
	header      map[string]string
	last        *recordedRequest
}

func (f *fakeService) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.last = &recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   string(body),
		}
		if f.contentType != "" {
			w.Header().Set("Content-Type", f.contentType)
		}
		for k, v := range f.header {
			w.Header().Set(k, v)
		}
		status := f.status
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(f.body))
	}
}

func newTestClient(t *testing.T, fake *fakeService) (*blob.Client, func()) {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	core, err := azstore.New(
		azstore.SharedKeyCredentials("acct", "a2V5"),
		azstore.WithEndpoint(srv.URL),
	)
	require.NoError(t, err)
	return blob.New(core), srv.Close
}

func TestCreateContainer(t *testing.T) {
	fake := &fakeService{status: http.StatusCreated}
	client, done := newTestClient(t, fake)
	defer done()

	err := client.CreateContainer(context.Background(), "data", blob.CreateContainerOptions{
		Access:   blob.AccessBlob,
		Metadata: map[string]string{"team": "infra"},
	})
	require.NoError(t, err)

	require.NotNil(t, fake.last)
	assert.Equal(t, http.MethodPut, fake.last.Method)
	assert.Equal(t, "/data", fake.last.Path)
	assert.Equal(t, "container", fake.last.Query.Get("restype"))
	assert.Equal(t, "blob", fake.last.Header.Get("x-ms-blob-public-access"))
	assert.Equal(t, "infra", fake.last.Header.Get("x-ms-meta-team"))
}

func TestCreateContainer_PrivateOmitsAccessHeader(t *testing.T) {
	fake := &fakeService{status: http.StatusCreated}
	client, done := newTestClient(t, fake)
	defer done()

	require.NoError(t, client.CreateContainer(context.Background(), "data", blob.CreateContainerOptions{}))
	assert.Empty(t, fake.last.Header.Values("x-ms-blob-public-access"))
}

func TestDeleteContainer_NotFound(t *testing.T) {
	fake := &fakeService{
		status:      http.StatusNotFound,
		contentType: "application/xml",
		body:        `<Error><Code>ContainerNotFound</Code><Message>missing</Message></Error>`,
	}
	client, done := newTestClient(t, fake)
	defer done()

	err := client.DeleteContainer(context.Background(), "gone", "")
	assert.True(t, blob.IsNotFound(err))
}

func TestListContainers(t *testing.T) {
	fake := &fakeService{
		contentType: "application/xml",
		body: `<?xml version="1.0" encoding="utf-8"?>
<EnumerationResults>
  <Prefix>da</Prefix>
  <Containers>
    <Container>
      <Name>data</Name>
      <Properties><Etag>"0x1"</Etag><LeaseState>available</LeaseState></Properties>
    </Container>
    <Container><Name>data-archive</Name></Container>
  </Containers>
  <NextMarker>data-archive</NextMarker>
</EnumerationResults>`,
	}
	client, done := newTestClient(t, fake)
	defer done()

	result, err := client.ListContainers(context.Background(), blob.ListContainersOptions{Prefix: "da", MaxResults: 2})
	require.NoError(t, err)

	assert.Equal(t, "list", fake.last.Query.Get("comp"))
	assert.Equal(t, "da", fake.last.Query.Get("prefix"))
	assert.Equal(t, "2", fake.last.Query.Get("maxresults"))

	require.Len(t, result.Containers, 2)
	assert.Equal(t, "data", result.Containers[0].Name)
	assert.Equal(t, "available", result.Containers[0].Properties.LeaseState)
	assert.Equal(t, "data-archive", result.NextMarker)
}

func TestContainerAccess(t *testing.T) {
	fake := &fakeService{header: map[string]string{"x-ms-blob-public-access": "container"}}
	client, done := newTestClient(t, fake)
	defer done()

	access, err := client.GetContainerAccess(context.Background(), "data")
	require.NoError(t, err)
	assert.Equal(t, blob.AccessContainer, access)
	assert.Equal(t, "acl", fake.last.Query.Get("comp"))
}

func TestAcquireLease(t *testing.T) {
	fake := &fakeService{
		status: http.StatusCreated,
		header: map[string]string{"x-ms-lease-id": "lease-1"},
	}
	client, done := newTestClient(t, fake)
	defer done()

	leaseID, err := client.AcquireLease(context.Background(), "data", 30, "")
	require.NoError(t, err)
	assert.Equal(t, "lease-1", leaseID)

	assert.Equal(t, "lease", fake.last.Query.Get("comp"))
	assert.Equal(t, "acquire", fake.last.Header.Get("x-ms-lease-action"))
	assert.Equal(t, "30", fake.last.Header.Get("x-ms-lease-duration"))
	assert.Empty(t, fake.last.Header.Values("x-ms-proposed-lease-id"))
}

func TestAcquireLease_Proposed(t *testing.T) {
	fake := &fakeService{
		status: http.StatusCreated,
		header: map[string]string{"x-ms-lease-id": "my-lease"},
	}
	client, done := newTestClient(t, fake)
	defer done()

	leaseID, err := client.AcquireLease(context.Background(), "data", blob.LeaseInfiniteDuration, "my-lease")
	require.NoError(t, err)
	assert.Equal(t, "my-lease", leaseID)
	assert.Equal(t, "-1", fake.last.Header.Get("x-ms-lease-duration"))
	assert.Equal(t, "my-lease", fake.last.Header.Get("x-ms-proposed-lease-id"))
}

func TestRenewAndReleaseLease(t *testing.T) {
	fake := &fakeService{status: http.StatusOK}
	client, done := newTestClient(t, fake)
	defer done()

	require.NoError(t, client.RenewLease(context.Background(), "data", "lease-1"))
	assert.Equal(t, "renew", fake.last.Header.Get("x-ms-lease-action"))
	assert.Equal(t, "lease-1", fake.last.Header.Get("x-ms-lease-id"))

	require.NoError(t, client.ReleaseLease(context.Background(), "data", "lease-1"))
	assert.Equal(t, "release", fake.last.Header.Get("x-ms-lease-action"))
}

func TestBreakLease(t *testing.T) {
	fake := &fakeService{
		status: http.StatusAccepted,
		header: map[string]string{"x-ms-lease-time": "12"},
	}
	client, done := newTestClient(t, fake)
	defer done()

	remaining, err := client.BreakLease(context.Background(), "data", 15)
	require.NoError(t, err)
	assert.Equal(t, 12, remaining)
	assert.Equal(t, "break", fake.last.Header.Get("x-ms-lease-action"))
	assert.Equal(t, "15", fake.last.Header.Get("x-ms-lease-break-period"))
}

func TestChangeLease(t *testing.T) {
	fake := &fakeService{
		status: http.StatusOK,
		header: map[string]string{"x-ms-lease-id": "lease-2"},
	}
	client, done := newTestClient(t, fake)
	defer done()

	leaseID, err := client.ChangeLease(context.Background(), "data", "lease-1", "lease-2")
	require.NoError(t, err)
	assert.Equal(t, "lease-2", leaseID)
	assert.Equal(t, "change", fake.last.Header.Get("x-ms-lease-action"))
	assert.Equal(t, "lease-1", fake.last.Header.Get("x-ms-lease-id"))
	assert.Equal(t, "lease-2", fake.last.Header.Get("x-ms-proposed-lease-id"))
}

func TestPut(t *testing.T) {
	fake := &fakeService{status: http.StatusCreated}
	client, done := newTestClient(t, fake)
	defer done()

	err := client.Put(context.Background(), "data", "report.txt", []byte("hello"), blob.PutOptions{
		ContentType: "text/plain",
		ContentMD5:  true,
		Metadata:    map[string]string{"origin": "cli"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, fake.last.Method)
	assert.Equal(t, "/data/report.txt", fake.last.Path)
	assert.Equal(t, "BlockBlob", fake.last.Header.Get("x-ms-blob-type"))
	assert.Equal(t, "text/plain", fake.last.Header.Get("Content-Type"))
	assert.Equal(t, "cli", fake.last.Header.Get("x-ms-meta-origin"))
	// md5("hello") base64 encoded
	assert.Equal(t, "XUFAKrxLKna5cZ2REBfFkg==", fake.last.Header.Get("Content-MD5"))
	assert.Equal(t, "hello", fake.last.Body)
}

func TestGet(t *testing.T) {
	fake := &fakeService{
		status:      http.StatusOK,
		contentType: "text/plain",
		body:        "hello",
		header: map[string]string{
			"Etag":            `"0x8D1"`,
			"x-ms-request-id": "req-9",
		},
	}
	client, done := newTestClient(t, fake)
	defer done()

	result, err := client.Get(context.Background(), "data", "report.txt", blob.GetOptions{})
	require.NoError(t, err)

	assert.Equal(t, []byte("hello"), result.Content)
	assert.Equal(t, "text/plain", result.ContentType)
	assert.Equal(t, `"0x8D1"`, result.ETag)
	assert.Equal(t, "req-9", result.RequestID)
}

func TestGet_Range(t *testing.T) {
	fake := &fakeService{status: http.StatusPartialContent, contentType: "text/plain", body: "ell"}
	client, done := newTestClient(t, fake)
	defer done()

	result, err := client.Get(context.Background(), "data", "report.txt", blob.GetOptions{Range: "bytes=1-3"})
	require.NoError(t, err)
	assert.Equal(t, []byte("ell"), result.Content)
	assert.Equal(t, "bytes=1-3", fake.last.Header.Get("Range"))
}

func TestDelete_WithLease(t *testing.T) {
	fake := &fakeService{status: http.StatusAccepted}
	client, done := newTestClient(t, fake)
	defer done()

	err := client.Delete(context.Background(), "data", "report.txt", blob.DeleteOptions{
		LeaseID:         "lease-1",
		DeleteSnapshots: "include",
	})
	require.NoError(t, err)
	assert.Equal(t, "lease-1", fake.last.Header.Get("x-ms-lease-id"))
	assert.Equal(t, "include", fake.last.Header.Get("x-ms-delete-snapshots"))
}

func TestGetProperties(t *testing.T) {
	fake := &fakeService{
		status:      http.StatusOK,
		contentType: "text/plain",
		header: map[string]string{
			"Content-Length":    "5",
			"Etag":              `"0x8D1"`,
			"x-ms-lease-status": "unlocked",
			"x-ms-lease-state":  "available",
			"x-ms-meta-origin":  "cli",
		},
	}
	client, done := newTestClient(t, fake)
	defer done()

	props, err := client.GetProperties(context.Background(), "data", "report.txt")
	require.NoError(t, err)

	assert.Equal(t, http.MethodHead, fake.last.Method)
	assert.Equal(t, "text/plain", props.ContentType)
	assert.Equal(t, int64(5), props.ContentLength)
	assert.Equal(t, "unlocked", props.LeaseStatus)
	assert.Equal(t, map[string]string{"origin": "cli"}, props.Metadata)
}

func TestList(t *testing.T) {
	fake := &fakeService{
		contentType: "application/xml",
		body: `<?xml version="1.0" encoding="utf-8"?>
<EnumerationResults>
  <Blobs>
    <Blob>
      <Name>report.txt</Name>
      <Properties>
        <Content-Length>5</Content-Length>
        <Content-Type>text/plain</Content-Type>
        <BlobType>BlockBlob</BlobType>
      </Properties>
    </Blob>
  </Blobs>
  <NextMarker/>
</EnumerationResults>`,
	}
	client, done := newTestClient(t, fake)
	defer done()

	result, err := client.List(context.Background(), "data", blob.ListBlobsOptions{Prefix: "rep", Delimiter: "/"})
	require.NoError(t, err)

	assert.Equal(t, "container", fake.last.Query.Get("restype"))
	assert.Equal(t, "list", fake.last.Query.Get("comp"))
	assert.Equal(t, "rep", fake.last.Query.Get("prefix"))
	assert.Equal(t, "/", fake.last.Query.Get("delimiter"))

	require.Len(t, result.Blobs, 1)
	assert.Equal(t, "report.txt", result.Blobs[0].Name)
	assert.Equal(t, int64(5), result.Blobs[0].Properties.ContentLength)
	assert.Equal(t, "BlockBlob", result.Blobs[0].Properties.BlobType)
}

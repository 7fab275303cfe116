package emulator_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/azstore"
	"github.com/sagarc03/azstore/blob"
	"github.com/sagarc03/azstore/credentials"
	"github.com/sagarc03/azstore/emulator"
	"github.com/sagarc03/azstore/queue"
)

// devKeys resolves the well-known development account.
func devKeys() credentials.Store {
	creds := azstore.DevelopmentCredentials()
	return credentials.NewMapStore(map[string]string{
		creds.AccountName: creds.AccountKey,
	})
}

// newQueueClient starts an emulator queue endpoint and returns a real signed
// client against it.
func newQueueClient(t *testing.T) *queue.Client {
	t.Helper()
	em := emulator.New(emulator.Config{Keys: devKeys()})
	srv := httptest.NewServer(em.QueueRouter())
	t.Cleanup(srv.Close)

	core, err := azstore.New(
		azstore.DevelopmentCredentials(),
		azstore.WithEndpoint(srv.URL+"/"+emulator.DefaultAccount),
	)
	require.NoError(t, err)
	return queue.New(core)
}

func newBlobClient(t *testing.T) *blob.Client {
	t.Helper()
	em := emulator.New(emulator.Config{Keys: devKeys()})
	srv := httptest.NewServer(em.BlobRouter())
	t.Cleanup(srv.Close)

	core, err := azstore.New(
		azstore.DevelopmentCredentials(),
		azstore.WithEndpoint(srv.URL+"/"+emulator.DefaultAccount),
	)
	require.NoError(t, err)
	return blob.New(core)
}

func TestQueueRoundTrip(t *testing.T) {
	client := newQueueClient(t)
	ctx := context.Background()

	require.NoError(t, client.Create(ctx, "tasks", queue.CreateOptions{
		Metadata: map[string]string{"owner": "ops"},
	}))

	// creating again with identical metadata is a no-op
	require.NoError(t, client.Create(ctx, "tasks", queue.CreateOptions{
		Metadata: map[string]string{"owner": "ops"},
	}))

	// differing metadata conflicts
	err := client.Create(ctx, "tasks", queue.CreateOptions{
		Metadata: map[string]string{"owner": "dev"},
	})
	var svcErr *azstore.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusConflict, svcErr.Status)
	assert.Equal(t, "QueueAlreadyExists", svcErr.Code)

	meta, err := client.GetMetadata(ctx, "tasks")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"owner": "ops"}, meta.UserDefined)

	list, err := client.List(ctx, queue.ListOptions{IncludeMetadata: true})
	require.NoError(t, err)
	require.Len(t, list.Queues, 1)
	assert.Equal(t, "tasks", list.Queues[0].Name)
	assert.Equal(t, map[string]string{"owner": "ops"}, list.Queues[0].Metadata)
}

func TestQueueMessageLifecycle(t *testing.T) {
	client := newQueueClient(t)
	ctx := context.Background()

	require.NoError(t, client.Create(ctx, "jobs", queue.CreateOptions{}))
	require.NoError(t, client.PutMessage(ctx, "jobs", "first", queue.PutMessageOptions{}))
	require.NoError(t, client.PutMessage(ctx, "jobs", "second", queue.PutMessageOptions{}))

	peeked, err := client.PeekMessages(ctx, "jobs", 5)
	require.NoError(t, err)
	require.Len(t, peeked, 2)
	assert.Empty(t, peeked[0].PopReceipt)

	got, err := client.GetMessages(ctx, "jobs", queue.GetMessagesOptions{NumOfMessages: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "first", got[0].Text)
	assert.NotEmpty(t, got[0].PopReceipt)
	assert.Equal(t, 1, got[0].DequeueCount)

	// dequeued message is invisible; only the second remains
	remaining, err := client.GetMessages(ctx, "jobs", queue.GetMessagesOptions{NumOfMessages: 5})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "second", remaining[0].Text)

	updated, err := client.UpdateMessage(ctx, "jobs", got[0].ID, got[0].PopReceipt, "first-edited", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, updated.PopReceipt)
	assert.NotEqual(t, got[0].PopReceipt, updated.PopReceipt)

	require.NoError(t, client.DeleteMessage(ctx, "jobs", got[0].ID, updated.PopReceipt))

	// stale pop receipt is rejected
	err = client.DeleteMessage(ctx, "jobs", remaining[0].ID, "stale")
	var staleErr *azstore.ServiceError
	require.ErrorAs(t, err, &staleErr)
	assert.Equal(t, http.StatusBadRequest, staleErr.Status)

	require.NoError(t, client.ClearMessages(ctx, "jobs"))
	empty, err := client.PeekMessages(ctx, "jobs", 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestQueueAuthRejectsWrongKey(t *testing.T) {
	em := emulator.New(emulator.Config{Keys: devKeys()})
	srv := httptest.NewServer(em.QueueRouter())
	defer srv.Close()

	creds := azstore.Credentials{
		AccountName:        emulator.DefaultAccount,
		AccountKey:         "d3Jvbmcta2V5",
		DevelopmentStorage: true,
	}
	core, err := azstore.New(creds, azstore.WithEndpoint(srv.URL+"/"+emulator.DefaultAccount))
	require.NoError(t, err)

	err = queue.New(core).Create(context.Background(), "tasks", queue.CreateOptions{})
	var svcErr *azstore.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusForbidden, svcErr.Status)
	assert.Equal(t, "AuthenticationFailed", svcErr.Code)
}

func TestBlobRoundTrip(t *testing.T) {
	client := newBlobClient(t)
	ctx := context.Background()

	require.NoError(t, client.CreateContainer(ctx, "data", blob.CreateContainerOptions{
		Metadata: map[string]string{"team": "infra"},
	}))

	require.NoError(t, client.Put(ctx, "data", "reports/q1.txt", []byte("hello world"), blob.PutOptions{
		ContentType: "text/plain",
		ContentMD5:  true,
		Metadata:    map[string]string{"origin": "test"},
	}))

	got, err := client.Get(ctx, "data", "reports/q1.txt", blob.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), got.Content)
	assert.Equal(t, "text/plain", got.ContentType)
	assert.NotEmpty(t, got.ETag)

	ranged, err := client.Get(ctx, "data", "reports/q1.txt", blob.GetOptions{Range: "bytes=0-4"})
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), ranged.Content)

	props, err := client.GetProperties(ctx, "data", "reports/q1.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(11), props.ContentLength)
	assert.Equal(t, map[string]string{"origin": "test"}, props.Metadata)

	list, err := client.List(ctx, "data", blob.ListBlobsOptions{Prefix: "reports/"})
	require.NoError(t, err)
	require.Len(t, list.Blobs, 1)
	assert.Equal(t, "reports/q1.txt", list.Blobs[0].Name)

	require.NoError(t, client.Delete(ctx, "data", "reports/q1.txt", blob.DeleteOptions{}))
	_, err = client.Get(ctx, "data", "reports/q1.txt", blob.GetOptions{})
	assert.True(t, blob.IsNotFound(err))
}

func TestBlobConditionalPut(t *testing.T) {
	client := newBlobClient(t)
	ctx := context.Background()

	require.NoError(t, client.CreateContainer(ctx, "data", blob.CreateContainerOptions{}))
	require.NoError(t, client.Put(ctx, "data", "a.txt", []byte("v1"), blob.PutOptions{}))

	// If-None-Match * refuses to overwrite
	err := client.Put(ctx, "data", "a.txt", []byte("v2"), blob.PutOptions{IfNoneMatch: "*"})
	var svcErr *azstore.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "BlobAlreadyExists", svcErr.Code)

	// If-Match with the current etag succeeds
	got, err := client.Get(ctx, "data", "a.txt", blob.GetOptions{})
	require.NoError(t, err)
	require.NoError(t, client.Put(ctx, "data", "a.txt", []byte("v2"), blob.PutOptions{IfMatch: got.ETag}))

	// If-Match with a stale etag fails
	err = client.Put(ctx, "data", "a.txt", []byte("v3"), blob.PutOptions{IfMatch: got.ETag})
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusPreconditionFailed, svcErr.Status)
}

func TestContainerLeaseLifecycle(t *testing.T) {
	client := newBlobClient(t)
	ctx := context.Background()

	require.NoError(t, client.CreateContainer(ctx, "locked", blob.CreateContainerOptions{}))

	leaseID, err := client.AcquireLease(ctx, "locked", blob.LeaseInfiniteDuration, "")
	require.NoError(t, err)
	require.NotEmpty(t, leaseID)

	// a second acquire conflicts
	_, err = client.AcquireLease(ctx, "locked", 30, "")
	var svcErr *azstore.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "LeaseAlreadyPresent", svcErr.Code)

	// writes without the lease id are refused
	err = client.Put(ctx, "locked", "a.txt", []byte("x"), blob.PutOptions{})
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusPreconditionFailed, svcErr.Status)

	// writes with the lease id succeed
	require.NoError(t, client.Put(ctx, "locked", "a.txt", []byte("x"), blob.PutOptions{LeaseID: leaseID}))

	newID, err := client.ChangeLease(ctx, "locked", leaseID, "11111111-2222-3333-4444-555555555555")
	require.NoError(t, err)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", newID)

	require.NoError(t, client.RenewLease(ctx, "locked", newID))
	require.NoError(t, client.ReleaseLease(ctx, "locked", newID))

	// released: unauthenticated-by-lease writes work again
	require.NoError(t, client.Put(ctx, "locked", "b.txt", []byte("y"), blob.PutOptions{}))
}

func TestBreakLease(t *testing.T) {
	client := newBlobClient(t)
	ctx := context.Background()

	require.NoError(t, client.CreateContainer(ctx, "locked", blob.CreateContainerOptions{}))
	_, err := client.AcquireLease(ctx, "locked", 60, "")
	require.NoError(t, err)

	remaining, err := client.BreakLease(ctx, "locked", 15)
	require.NoError(t, err)
	assert.Equal(t, 15, remaining)

	// breaking a broken lease again still conflicts once fully broken is
	// reached, but within the break window the lease counts as held
	_, err = client.AcquireLease(ctx, "locked", 30, "")
	var svcErr *azstore.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "LeaseAlreadyPresent", svcErr.Code)
}

func TestContainerLifecycle(t *testing.T) {
	client := newBlobClient(t)
	ctx := context.Background()

	require.NoError(t, client.CreateContainer(ctx, "one", blob.CreateContainerOptions{Access: blob.AccessBlob}))
	require.NoError(t, client.CreateContainer(ctx, "two", blob.CreateContainerOptions{}))

	err := client.CreateContainer(ctx, "one", blob.CreateContainerOptions{})
	var svcErr *azstore.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "ContainerAlreadyExists", svcErr.Code)

	access, err := client.GetContainerAccess(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, blob.AccessBlob, access)

	require.NoError(t, client.SetContainerMetadata(ctx, "two", map[string]string{"env": "ci"}))
	meta, err := client.GetContainerMetadata(ctx, "two")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"env": "ci"}, meta)

	list, err := client.ListContainers(ctx, blob.ListContainersOptions{})
	require.NoError(t, err)
	assert.Len(t, list.Containers, 2)

	require.NoError(t, client.DeleteContainer(ctx, "one", ""))
	list, err = client.ListContainers(ctx, blob.ListContainersOptions{})
	require.NoError(t, err)
	require.Len(t, list.Containers, 1)
	assert.Equal(t, "two", list.Containers[0].Name)
}

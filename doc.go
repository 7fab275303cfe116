// Package azstore is a client library for the Azure Storage REST API,
// covering containers, blobs, queues and container leasing.
//
// The package centres on the request signing and canonicalization engine the
// SharedKey authentication scheme requires: building the byte-exact canonical
// string the service recomputes, signing it with HMAC-SHA256 over the
// decoded account key, and attaching the result (or a bearer token) to
// outgoing requests.
//
// # Key Components
//
//   - Request: accumulates method, path, query parameters, headers and body
//   - CanonicalizedHeaders / CanonicalizedResource: pure canonical string
//     construction
//   - Credentials: shared-key or token-provider authentication context
//   - Client: resolves endpoints, signs, dispatches and normalizes responses
//
// # Example Usage
//
//	client, err := azstore.New(azstore.SharedKeyCredentials(account, key))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	req := azstore.NewRequest().
//	    SetMethod(azstore.MethodPut).
//	    SetPath("/myqueue").
//	    AddMetadataHeaders(map[string]string{"owner": "ops"})
//
//	resp, err := client.Do(ctx, req, azstore.ServiceQueue)
//	if err != nil {
//	    return err
//	}
//	if err := client.DecodeSuccess(resp, nil); err != nil {
//	    return err // *azstore.ServiceError on 4xx/5xx
//	}
//
// See the queue and blob packages for the per-resource operation layer and
// the emulator package for an in-process test server.
package azstore

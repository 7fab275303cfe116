// Package blob implements the blob service operations: container lifecycle,
// container leasing, and block blob upload/download. Like the queue package,
// each operation assembles a request and hands it to the core client for
// signing and dispatch.
package blob

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sagarc03/azstore"
)

// Client performs blob service operations through a core client.
type Client struct {
	core *azstore.Client
}

// New wraps a core client.
func New(core *azstore.Client) *Client {
	return &Client{core: core}
}

// CreateContainer creates a container. A 409 ServiceError means the name is
// already taken.
func (c *Client) CreateContainer(ctx context.Context, name string, opts CreateContainerOptions) error {
	req := azstore.NewRequest().
		SetMethod(azstore.MethodPut).
		SetPath("/"+name).
		AddParam(azstore.LocationQuery, "restype", "container").
		AddMetadataHeaders(opts.Metadata).
		AddParamIf(opts.Access != AccessPrivate, azstore.LocationHeader, "x-ms-blob-public-access", string(opts.Access)).
		AddParamIf(opts.Timeout > 0, azstore.LocationQuery, "timeout", opts.Timeout)

	resp, err := c.core.Do(ctx, req, azstore.ServiceBlob)
	if err != nil {
		return fmt.Errorf("create container %s: %w", name, err)
	}
	if err := c.core.DecodeSuccess(resp, nil); err != nil {
		return fmt.Errorf("create container %s: %w", name, err)
	}
	return nil
}

// DeleteContainer removes a container and everything in it. A held lease must
// be passed as leaseID or the service refuses with 412.
func (c *Client) DeleteContainer(ctx context.Context, name, leaseID string) error {
	req := azstore.NewRequest().
		SetMethod(azstore.MethodDelete).
		SetPath("/"+name).
		AddParam(azstore.LocationQuery, "restype", "container").
		AddParamIf(leaseID != "", azstore.LocationHeader, "x-ms-lease-id", leaseID)

	resp, err := c.core.Do(ctx, req, azstore.ServiceBlob)
	if err != nil {
		return fmt.Errorf("delete container %s: %w", name, err)
	}
	if err := c.core.DecodeSuccess(resp, nil); err != nil {
		return fmt.Errorf("delete container %s: %w", name, err)
	}
	return nil
}

// ListContainers returns one page of containers under the account.
func (c *Client) ListContainers(ctx context.Context, opts ListContainersOptions) (ListContainersResult, error) {
	req := azstore.NewRequest().
		SetMethod(azstore.MethodGet).
		SetPath("/").
		AddParam(azstore.LocationQuery, "comp", "list").
		AddParamIf(opts.Prefix != "", azstore.LocationQuery, "prefix", opts.Prefix).
		AddParamIf(opts.Marker != "", azstore.LocationQuery, "marker", opts.Marker).
		AddParamIf(opts.MaxResults > 0, azstore.LocationQuery, "maxresults", opts.MaxResults).
		AddParamIf(opts.IncludeMetadata, azstore.LocationQuery, "include", "metadata").
		AddParamIf(opts.Timeout > 0, azstore.LocationQuery, "timeout", opts.Timeout)

	resp, err := c.core.Do(ctx, req, azstore.ServiceBlob)
	if err != nil {
		return ListContainersResult{}, fmt.Errorf("list containers: %w", err)
	}

	var result ListContainersResult
	if err := c.core.DecodeSuccess(resp, &result); err != nil {
		return ListContainersResult{}, fmt.Errorf("list containers: %w", err)
	}
	return result, nil
}

// GetContainerMetadata returns a container's user metadata.
func (c *Client) GetContainerMetadata(ctx context.Context, name string) (map[string]string, error) {
	req := azstore.NewRequest().
		SetMethod(azstore.MethodGet).
		SetPath("/"+name).
		AddParam(azstore.LocationQuery, "restype", "container").
		AddParam(azstore.LocationQuery, "comp", "metadata")

	resp, err := c.core.Do(ctx, req, azstore.ServiceBlob)
	if err != nil {
		return nil, fmt.Errorf("get container metadata %s: %w", name, err)
	}
	if err := c.core.DecodeSuccess(resp, nil); err != nil {
		return nil, fmt.Errorf("get container metadata %s: %w", name, err)
	}
	return metadataFromHeaders(resp.Header), nil
}

// SetContainerMetadata replaces a container's user metadata.
func (c *Client) SetContainerMetadata(ctx context.Context, name string, metadata map[string]string) error {
	req := azstore.NewRequest().
		SetMethod(azstore.MethodPut).
		SetPath("/"+name).
		AddParam(azstore.LocationQuery, "restype", "container").
		AddParam(azstore.LocationQuery, "comp", "metadata").
		AddMetadataHeaders(metadata)

	resp, err := c.core.Do(ctx, req, azstore.ServiceBlob)
	if err != nil {
		return fmt.Errorf("set container metadata %s: %w", name, err)
	}
	if err := c.core.DecodeSuccess(resp, nil); err != nil {
		return fmt.Errorf("set container metadata %s: %w", name, err)
	}
	return nil
}

// GetContainerAccess returns a container's public access level.
func (c *Client) GetContainerAccess(ctx context.Context, name string) (ContainerAccess, error) {
	req := azstore.NewRequest().
		SetMethod(azstore.MethodGet).
		SetPath("/"+name).
		AddParam(azstore.LocationQuery, "restype", "container").
		AddParam(azstore.LocationQuery, "comp", "acl")

	resp, err := c.core.Do(ctx, req, azstore.ServiceBlob)
	if err != nil {
		return AccessPrivate, fmt.Errorf("get container access %s: %w", name, err)
	}
	if err := c.core.DecodeSuccess(resp, nil); err != nil {
		return AccessPrivate, fmt.Errorf("get container access %s: %w", name, err)
	}
	return ContainerAccess(resp.Header.Get("x-ms-blob-public-access")), nil
}

// SetContainerAccess sets a container's public access level. AccessPrivate
// clears public access by omitting the header.
func (c *Client) SetContainerAccess(ctx context.Context, name string, access ContainerAccess) error {
	req := azstore.NewRequest().
		SetMethod(azstore.MethodPut).
		SetPath("/"+name).
		AddParam(azstore.LocationQuery, "restype", "container").
		AddParam(azstore.LocationQuery, "comp", "acl").
		AddParamIf(access != AccessPrivate, azstore.LocationHeader, "x-ms-blob-public-access", string(access))

	resp, err := c.core.Do(ctx, req, azstore.ServiceBlob)
	if err != nil {
		return fmt.Errorf("set container access %s: %w", name, err)
	}
	if err := c.core.DecodeSuccess(resp, nil); err != nil {
		return fmt.Errorf("set container access %s: %w", name, err)
	}
	return nil
}

// metadataFromHeaders lifts x-ms-meta-* response headers into a plain map.
func metadataFromHeaders(h http.Header) map[string]string {
	out := make(map[string]string)
	for header, values := range h {
		lower := strings.ToLower(header)
		if strings.HasPrefix(lower, "x-ms-meta-") && len(values) > 0 {
			out[strings.TrimPrefix(lower, "x-ms-meta-")] = values[0]
		}
	}
	return out
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	var svcErr *azstore.ServiceError
	if !errors.As(err, &svcErr) {
		return false
	}
	return svcErr.Status == http.StatusNotFound
}

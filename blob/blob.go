package blob

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sagarc03/azstore"
)

// Put uploads content as a block blob, replacing any existing blob of the
// same name unless a conditional header says otherwise.
func (c *Client) Put(ctx context.Context, container, name string, content []byte, opts PutOptions) error {
	req := azstore.NewRequest().
		SetMethod(azstore.MethodPut).
		SetPath("/"+container+"/"+name).
		AddHeader("x-ms-blob-type", "BlockBlob").
		AddMetadataHeaders(opts.Metadata).
		AddParamIf(opts.ContentType != "", azstore.LocationHeader, "Content-Type", opts.ContentType).
		AddParamIf(opts.LeaseID != "", azstore.LocationHeader, headerLeaseID, opts.LeaseID).
		AddParamIf(opts.IfMatch != "", azstore.LocationHeader, "If-Match", opts.IfMatch).
		AddParamIf(opts.IfNoneMatch != "", azstore.LocationHeader, "If-None-Match", opts.IfNoneMatch).
		AddParamIf(opts.Timeout > 0, azstore.LocationQuery, "timeout", opts.Timeout).
		SetBody(content)

	if opts.ContentMD5 {
		if err := req.AddContentMD5(); err != nil {
			return fmt.Errorf("put blob %s/%s: %w", container, name, err)
		}
	}

	resp, err := c.core.Do(ctx, req, azstore.ServiceBlob)
	if err != nil {
		return fmt.Errorf("put blob %s/%s: %w", container, name, err)
	}
	if err := c.core.DecodeSuccess(resp, nil); err != nil {
		return fmt.Errorf("put blob %s/%s: %w", container, name, err)
	}
	return nil
}

// Get downloads a blob, or a byte range of it when opts.Range is set.
func (c *Client) Get(ctx context.Context, container, name string, opts GetOptions) (GetResult, error) {
	req := azstore.NewRequest().
		SetMethod(azstore.MethodGet).
		SetPath("/"+container+"/"+name).
		AddParamIf(opts.Range != "", azstore.LocationHeader, "Range", opts.Range).
		AddParamIf(opts.LeaseID != "", azstore.LocationHeader, headerLeaseID, opts.LeaseID).
		AddParamIf(opts.IfMatch != "", azstore.LocationHeader, "If-Match", opts.IfMatch).
		AddParamIf(opts.Timeout > 0, azstore.LocationQuery, "timeout", opts.Timeout)

	resp, err := c.core.Do(ctx, req, azstore.ServiceBlob)
	if err != nil {
		return GetResult{}, fmt.Errorf("get blob %s/%s: %w", container, name, err)
	}

	var content []byte
	if err := c.core.DecodeSuccess(resp, &content); err != nil {
		return GetResult{}, fmt.Errorf("get blob %s/%s: %w", container, name, err)
	}

	length, _ := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	return GetResult{
		Content:       content,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: length,
		ETag:          resp.Header.Get("Etag"),
		RequestID:     resp.Meta().RequestID,
	}, nil
}

// Delete removes a blob. DeleteSnapshots controls snapshot handling when the
// blob has any.
func (c *Client) Delete(ctx context.Context, container, name string, opts DeleteOptions) error {
	req := azstore.NewRequest().
		SetMethod(azstore.MethodDelete).
		SetPath("/"+container+"/"+name).
		AddParamIf(opts.LeaseID != "", azstore.LocationHeader, headerLeaseID, opts.LeaseID).
		AddParamIf(opts.DeleteSnapshots != "", azstore.LocationHeader, "x-ms-delete-snapshots", opts.DeleteSnapshots).
		AddParamIf(opts.Timeout > 0, azstore.LocationQuery, "timeout", opts.Timeout)

	resp, err := c.core.Do(ctx, req, azstore.ServiceBlob)
	if err != nil {
		return fmt.Errorf("delete blob %s/%s: %w", container, name, err)
	}
	if err := c.core.DecodeSuccess(resp, nil); err != nil {
		return fmt.Errorf("delete blob %s/%s: %w", container, name, err)
	}
	return nil
}

// GetProperties fetches a blob's properties and metadata with a HEAD request.
func (c *Client) GetProperties(ctx context.Context, container, name string) (PropertiesResult, error) {
	req := azstore.NewRequest().
		SetMethod(azstore.MethodHead).
		SetPath("/" + container + "/" + name)

	resp, err := c.core.Do(ctx, req, azstore.ServiceBlob)
	if err != nil {
		return PropertiesResult{}, fmt.Errorf("get blob properties %s/%s: %w", container, name, err)
	}
	if err := c.core.DecodeSuccess(resp, nil); err != nil {
		return PropertiesResult{}, fmt.Errorf("get blob properties %s/%s: %w", container, name, err)
	}

	length, _ := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	return PropertiesResult{
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: length,
		ETag:          resp.Header.Get("Etag"),
		LeaseStatus:   resp.Header.Get("x-ms-lease-status"),
		LeaseState:    resp.Header.Get("x-ms-lease-state"),
		Metadata:      metadataFromHeaders(resp.Header),
	}, nil
}

// SetProperties updates a blob's system properties.
func (c *Client) SetProperties(ctx context.Context, container, name, contentType string) error {
	req := azstore.NewRequest().
		SetMethod(azstore.MethodPut).
		SetPath("/"+container+"/"+name).
		AddParam(azstore.LocationQuery, "comp", "properties").
		AddParamIf(contentType != "", azstore.LocationHeader, "x-ms-blob-content-type", contentType)

	resp, err := c.core.Do(ctx, req, azstore.ServiceBlob)
	if err != nil {
		return fmt.Errorf("set blob properties %s/%s: %w", container, name, err)
	}
	if err := c.core.DecodeSuccess(resp, nil); err != nil {
		return fmt.Errorf("set blob properties %s/%s: %w", container, name, err)
	}
	return nil
}

// List returns one page of blobs within a container.
func (c *Client) List(ctx context.Context, container string, opts ListBlobsOptions) (ListBlobsResult, error) {
	req := azstore.NewRequest().
		SetMethod(azstore.MethodGet).
		SetPath("/"+container).
		AddParam(azstore.LocationQuery, "restype", "container").
		AddParam(azstore.LocationQuery, "comp", "list").
		AddParamIf(opts.Prefix != "", azstore.LocationQuery, "prefix", opts.Prefix).
		AddParamIf(opts.Delimiter != "", azstore.LocationQuery, "delimiter", opts.Delimiter).
		AddParamIf(opts.Marker != "", azstore.LocationQuery, "marker", opts.Marker).
		AddParamIf(opts.MaxResults > 0, azstore.LocationQuery, "maxresults", opts.MaxResults).
		AddParamIf(opts.Timeout > 0, azstore.LocationQuery, "timeout", opts.Timeout)

	resp, err := c.core.Do(ctx, req, azstore.ServiceBlob)
	if err != nil {
		return ListBlobsResult{}, fmt.Errorf("list blobs %s: %w", container, err)
	}

	var result ListBlobsResult
	if err := c.core.DecodeSuccess(resp, &result); err != nil {
		return ListBlobsResult{}, fmt.Errorf("list blobs %s: %w", container, err)
	}
	return result, nil
}

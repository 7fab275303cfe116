// Package queue implements the queue service operations: queue lifecycle,
// metadata, and message enqueue/dequeue/peek/update/delete. Every operation
// is thin glue: it accumulates method, path, headers and query parameters
// onto a request and hands it to the core client for signing and dispatch.
package queue

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/sagarc03/azstore"
)

// Client performs queue service operations through a core client.
type Client struct {
	core *azstore.Client
}

// New wraps a core client.
func New(core *azstore.Client) *Client {
	return &Client{core: core}
}

// optional parameter routing shared by the message operations
var messageParamLocations = map[string]azstore.ParamLocation{
	"visibilitytimeout":      azstore.LocationQuery,
	"messagettl":             azstore.LocationQuery,
	"numofmessages":          azstore.LocationQuery,
	"timeout":                azstore.LocationQuery,
	"x-ms-client-request-id": azstore.LocationHeader,
}

// Create creates a queue. Creating an existing queue with identical metadata
// is a service-level no-op (204); differing metadata yields a 409
// ServiceError.
func (c *Client) Create(ctx context.Context, name string, opts CreateOptions) error {
	req := azstore.NewRequest().
		SetMethod(azstore.MethodPut).
		SetPath("/" + name).
		AddMetadataHeaders(opts.Metadata).
		AddParamIf(opts.Timeout > 0, azstore.LocationQuery, "timeout", opts.Timeout)

	resp, err := c.core.Do(ctx, req, azstore.ServiceQueue)
	if err != nil {
		return fmt.Errorf("create queue %s: %w", name, err)
	}
	if err := c.core.DecodeSuccess(resp, nil); err != nil {
		return fmt.Errorf("create queue %s: %w", name, err)
	}
	return nil
}

// Delete removes a queue and all its messages.
func (c *Client) Delete(ctx context.Context, name string) error {
	req := azstore.NewRequest().
		SetMethod(azstore.MethodDelete).
		SetPath("/" + name)

	resp, err := c.core.Do(ctx, req, azstore.ServiceQueue)
	if err != nil {
		return fmt.Errorf("delete queue %s: %w", name, err)
	}
	if err := c.core.DecodeSuccess(resp, nil); err != nil {
		return fmt.Errorf("delete queue %s: %w", name, err)
	}
	return nil
}

// List returns one page of queues under the account.
func (c *Client) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	req := azstore.NewRequest().
		SetMethod(azstore.MethodGet).
		SetPath("/").
		AddParam(azstore.LocationQuery, "comp", "list").
		AddParamIf(opts.Prefix != "", azstore.LocationQuery, "prefix", opts.Prefix).
		AddParamIf(opts.Marker != "", azstore.LocationQuery, "marker", opts.Marker).
		AddParamIf(opts.MaxResults > 0, azstore.LocationQuery, "maxresults", opts.MaxResults).
		AddParamIf(opts.IncludeMetadata, azstore.LocationQuery, "include", "metadata").
		AddParamIf(opts.Timeout > 0, azstore.LocationQuery, "timeout", opts.Timeout)

	resp, err := c.core.Do(ctx, req, azstore.ServiceQueue)
	if err != nil {
		return ListResult{}, fmt.Errorf("list queues: %w", err)
	}

	var envelope listEnvelope
	if err := c.core.DecodeSuccess(resp, &envelope); err != nil {
		return ListResult{}, fmt.Errorf("list queues: %w", err)
	}

	result := ListResult{
		Prefix:     envelope.Prefix,
		Marker:     envelope.Marker,
		NextMarker: envelope.NextMarker,
		MaxResults: envelope.MaxResults,
		Queues:     make([]Queue, 0, len(envelope.Queues)),
	}
	for _, q := range envelope.Queues {
		result.Queues = append(result.Queues, Queue{Name: q.Name, Metadata: q.Metadata})
	}
	return result, nil
}

// GetMetadata returns a queue's user metadata and approximate message count.
func (c *Client) GetMetadata(ctx context.Context, name string) (Metadata, error) {
	req := azstore.NewRequest().
		SetMethod(azstore.MethodGet).
		SetPath("/" + name).
		AddParam(azstore.LocationQuery, "comp", "metadata")

	resp, err := c.core.Do(ctx, req, azstore.ServiceQueue)
	if err != nil {
		return Metadata{}, fmt.Errorf("get queue metadata %s: %w", name, err)
	}
	if err := c.core.DecodeSuccess(resp, nil); err != nil {
		return Metadata{}, fmt.Errorf("get queue metadata %s: %w", name, err)
	}

	meta := Metadata{UserDefined: make(map[string]string)}
	if v := resp.Header.Get("x-ms-approximate-messages-count"); v != "" {
		if n, convErr := strconv.Atoi(v); convErr == nil {
			meta.ApproximateMessageCount = n
		}
	}
	for header, values := range resp.Header {
		lower := strings.ToLower(header)
		if strings.HasPrefix(lower, "x-ms-meta-") && len(values) > 0 {
			meta.UserDefined[strings.TrimPrefix(lower, "x-ms-meta-")] = values[0]
		}
	}
	return meta, nil
}

// SetMetadata replaces a queue's user metadata.
func (c *Client) SetMetadata(ctx context.Context, name string, metadata map[string]string) error {
	req := azstore.NewRequest().
		SetMethod(azstore.MethodPut).
		SetPath("/" + name).
		AddParam(azstore.LocationQuery, "comp", "metadata").
		AddMetadataHeaders(metadata)

	resp, err := c.core.Do(ctx, req, azstore.ServiceQueue)
	if err != nil {
		return fmt.Errorf("set queue metadata %s: %w", name, err)
	}
	if err := c.core.DecodeSuccess(resp, nil); err != nil {
		return fmt.Errorf("set queue metadata %s: %w", name, err)
	}
	return nil
}

// PutMessage enqueues a message. Default-valued options never reach the
// wire: visibilitytimeout=0 in particular must be omitted.
func (c *Client) PutMessage(ctx context.Context, name, text string, opts PutMessageOptions) error {
	body, err := azstore.XMLCodec{}.Encode(putMessageBody{Text: text})
	if err != nil {
		return fmt.Errorf("put message %s: %w", name, err)
	}

	req := azstore.NewRequest().
		SetMethod(azstore.MethodPost).
		SetPath("/" + name + "/messages").
		AddOptionalParams(messageParamLocations, nonZero(
			azstore.OptionalParam{Name: "visibilitytimeout", Value: opts.VisibilityTimeout},
			azstore.OptionalParam{Name: "messagettl", Value: opts.MessageTTL},
			azstore.OptionalParam{Name: "timeout", Value: opts.Timeout},
		)).
		SetBody(body)

	resp, err := c.core.Do(ctx, req, azstore.ServiceQueue)
	if err != nil {
		return fmt.Errorf("put message %s: %w", name, err)
	}
	if err := c.core.DecodeSuccess(resp, nil); err != nil {
		return fmt.Errorf("put message %s: %w", name, err)
	}
	return nil
}

// GetMessages dequeues up to NumOfMessages messages, making them invisible
// for the visibility timeout.
func (c *Client) GetMessages(ctx context.Context, name string, opts GetMessagesOptions) ([]Message, error) {
	req := azstore.NewRequest().
		SetMethod(azstore.MethodGet).
		SetPath("/" + name + "/messages").
		AddOptionalParams(messageParamLocations, nonZero(
			azstore.OptionalParam{Name: "numofmessages", Value: opts.NumOfMessages},
			azstore.OptionalParam{Name: "visibilitytimeout", Value: opts.VisibilityTimeout},
			azstore.OptionalParam{Name: "timeout", Value: opts.Timeout},
		))

	return c.fetchMessages(ctx, req, name)
}

// PeekMessages reads messages without changing their visibility. Peeked
// messages carry no pop receipt.
func (c *Client) PeekMessages(ctx context.Context, name string, numOfMessages int) ([]Message, error) {
	req := azstore.NewRequest().
		SetMethod(azstore.MethodGet).
		SetPath("/"+name+"/messages").
		AddParam(azstore.LocationQuery, "peekonly", "true").
		AddParamIf(numOfMessages > 0, azstore.LocationQuery, "numofmessages", numOfMessages)

	return c.fetchMessages(ctx, req, name)
}

func (c *Client) fetchMessages(ctx context.Context, req *azstore.Request, name string) ([]Message, error) {
	resp, err := c.core.Do(ctx, req, azstore.ServiceQueue)
	if err != nil {
		return nil, fmt.Errorf("get messages %s: %w", name, err)
	}

	var list messageList
	if err := c.core.DecodeSuccess(resp, &list); err != nil {
		return nil, fmt.Errorf("get messages %s: %w", name, err)
	}
	return list.Messages, nil
}

// UpdateMessage changes a dequeued message's text and visibility, returning
// the renewed pop receipt.
func (c *Client) UpdateMessage(ctx context.Context, name, messageID, popReceipt, text string, visibilityTimeout int) (UpdateResult, error) {
	body, err := azstore.XMLCodec{}.Encode(putMessageBody{Text: text})
	if err != nil {
		return UpdateResult{}, fmt.Errorf("update message %s: %w", name, err)
	}

	req := azstore.NewRequest().
		SetMethod(azstore.MethodPut).
		SetPath("/"+name+"/messages/"+messageID).
		AddParam(azstore.LocationQuery, "popreceipt", popReceipt).
		AddParam(azstore.LocationQuery, "visibilitytimeout", visibilityTimeout).
		SetBody(body)

	resp, err := c.core.Do(ctx, req, azstore.ServiceQueue)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("update message %s: %w", name, err)
	}
	if err := c.core.DecodeSuccess(resp, nil); err != nil {
		return UpdateResult{}, fmt.Errorf("update message %s: %w", name, err)
	}
	return UpdateResult{
		PopReceipt:      resp.Header.Get("x-ms-popreceipt"),
		TimeNextVisible: resp.Header.Get("x-ms-time-next-visible"),
	}, nil
}

// DeleteMessage removes a dequeued message using its pop receipt.
func (c *Client) DeleteMessage(ctx context.Context, name, messageID, popReceipt string) error {
	req := azstore.NewRequest().
		SetMethod(azstore.MethodDelete).
		SetPath("/"+name+"/messages/"+messageID).
		AddParam(azstore.LocationQuery, "popreceipt", popReceipt)

	resp, err := c.core.Do(ctx, req, azstore.ServiceQueue)
	if err != nil {
		return fmt.Errorf("delete message %s: %w", name, err)
	}
	if err := c.core.DecodeSuccess(resp, nil); err != nil {
		return fmt.Errorf("delete message %s: %w", name, err)
	}
	return nil
}

// ClearMessages deletes every message in the queue.
func (c *Client) ClearMessages(ctx context.Context, name string) error {
	req := azstore.NewRequest().
		SetMethod(azstore.MethodDelete).
		SetPath("/" + name + "/messages")

	resp, err := c.core.Do(ctx, req, azstore.ServiceQueue)
	if err != nil {
		return fmt.Errorf("clear messages %s: %w", name, err)
	}
	if err := c.core.DecodeSuccess(resp, nil); err != nil {
		return fmt.Errorf("clear messages %s: %w", name, err)
	}
	return nil
}

// nonZero keeps only parameters whose value is a non-zero int or non-empty
// string, so default-valued options never reach the wire.
func nonZero(params ...azstore.OptionalParam) []azstore.OptionalParam {
	out := make([]azstore.OptionalParam, 0, len(params))
	for _, p := range params {
		switch v := p.Value.(type) {
		case int:
			if v == 0 {
				continue
			}
		case string:
			if v == "" {
				continue
			}
		}
		out = append(out, p)
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

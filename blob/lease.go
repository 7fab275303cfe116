package blob

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sagarc03/azstore"
)

// Lease actions and header names as defined by the service's lease protocol.
const (
	leaseActionAcquire = "acquire"
	leaseActionRenew   = "renew"
	leaseActionRelease = "release"
	leaseActionBreak   = "break"
	leaseActionChange  = "change"

	headerLeaseAction     = "x-ms-lease-action"
	headerLeaseID         = "x-ms-lease-id"
	headerLeaseDuration   = "x-ms-lease-duration"
	headerLeaseBreak      = "x-ms-lease-break-period"
	headerProposedLeaseID = "x-ms-proposed-lease-id"
	headerLeaseTime       = "x-ms-lease-time"
)

// LeaseInfiniteDuration requests a lease that never expires on its own.
const LeaseInfiniteDuration = -1

// AcquireLease takes a container lease for duration seconds (15 to 60, or
// LeaseInfiniteDuration). proposedID may be empty, in which case the service
// assigns the lease ID.
func (c *Client) AcquireLease(ctx context.Context, container string, duration int, proposedID string) (string, error) {
	req := leaseRequest(container, leaseActionAcquire).
		AddHeader(headerLeaseDuration, strconv.Itoa(duration)).
		AddParamIf(proposedID != "", azstore.LocationHeader, headerProposedLeaseID, proposedID)

	resp, err := c.core.Do(ctx, req, azstore.ServiceBlob)
	if err != nil {
		return "", fmt.Errorf("acquire lease %s: %w", container, err)
	}
	if err := c.core.DecodeSuccess(resp, nil); err != nil {
		return "", fmt.Errorf("acquire lease %s: %w", container, err)
	}
	return resp.Header.Get(headerLeaseID), nil
}

// RenewLease extends a held lease for its original duration.
func (c *Client) RenewLease(ctx context.Context, container, leaseID string) error {
	req := leaseRequest(container, leaseActionRenew).
		AddHeader(headerLeaseID, leaseID)

	resp, err := c.core.Do(ctx, req, azstore.ServiceBlob)
	if err != nil {
		return fmt.Errorf("renew lease %s: %w", container, err)
	}
	if err := c.core.DecodeSuccess(resp, nil); err != nil {
		return fmt.Errorf("renew lease %s: %w", container, err)
	}
	return nil
}

// ReleaseLease frees a held lease immediately.
func (c *Client) ReleaseLease(ctx context.Context, container, leaseID string) error {
	req := leaseRequest(container, leaseActionRelease).
		AddHeader(headerLeaseID, leaseID)

	resp, err := c.core.Do(ctx, req, azstore.ServiceBlob)
	if err != nil {
		return fmt.Errorf("release lease %s: %w", container, err)
	}
	if err := c.core.DecodeSuccess(resp, nil); err != nil {
		return fmt.Errorf("release lease %s: %w", container, err)
	}
	return nil
}

// BreakLease ends a lease without its ID. breakPeriod is the grace window in
// seconds; pass 0 to let the remaining lease time apply. Returns the seconds
// until the lease is fully broken.
func (c *Client) BreakLease(ctx context.Context, container string, breakPeriod int) (int, error) {
	req := leaseRequest(container, leaseActionBreak).
		AddParamIf(breakPeriod > 0, azstore.LocationHeader, headerLeaseBreak, strconv.Itoa(breakPeriod))

	resp, err := c.core.Do(ctx, req, azstore.ServiceBlob)
	if err != nil {
		return 0, fmt.Errorf("break lease %s: %w", container, err)
	}
	if err := c.core.DecodeSuccess(resp, nil); err != nil {
		return 0, fmt.Errorf("break lease %s: %w", container, err)
	}

	remaining, convErr := strconv.Atoi(resp.Header.Get(headerLeaseTime))
	if convErr != nil {
		return 0, nil
	}
	return remaining, nil
}

// ChangeLease swaps a held lease's ID for proposedID.
func (c *Client) ChangeLease(ctx context.Context, container, leaseID, proposedID string) (string, error) {
	req := leaseRequest(container, leaseActionChange).
		AddHeader(headerLeaseID, leaseID).
		AddHeader(headerProposedLeaseID, proposedID)

	resp, err := c.core.Do(ctx, req, azstore.ServiceBlob)
	if err != nil {
		return "", fmt.Errorf("change lease %s: %w", container, err)
	}
	if err := c.core.DecodeSuccess(resp, nil); err != nil {
		return "", fmt.Errorf("change lease %s: %w", container, err)
	}
	return resp.Header.Get(headerLeaseID), nil
}

func leaseRequest(container, action string) *azstore.Request {
	return azstore.NewRequest().
		SetMethod(azstore.MethodPut).
		SetPath("/"+container).
		AddParam(azstore.LocationQuery, "restype", "container").
		AddParam(azstore.LocationQuery, "comp", "lease").
		AddHeader(headerLeaseAction, action)
}

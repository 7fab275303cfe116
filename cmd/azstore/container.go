package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/azstore/blob"
)

var (
	containerAccess     string
	containerListPrefix string
	containerListMarker string
	containerListMax    int
	containerLeaseID    string
	leaseDuration       int
	leaseProposedID     string
	leaseBreakPeriod    int
)

var containerCmd = &cobra.Command{
	Use:   "container",
	Short: "Manage blob containers",
}

var containerCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a container",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		access, err := parseAccess(containerAccess)
		if err != nil {
			return err
		}
		c, err := blobClient()
		if err != nil {
			return err
		}
		if err := c.CreateContainer(context.Background(), args[0], blob.CreateContainerOptions{Access: access}); err != nil {
			return err
		}
		newFormatter().ok(os.Stdout, "Created container: %s", args[0])
		return nil
	},
}

var containerDeleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a container",
	Args:    cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		c, err := blobClient()
		if err != nil {
			return err
		}
		if err := c.DeleteContainer(context.Background(), args[0], containerLeaseID); err != nil {
			return err
		}
		newFormatter().ok(os.Stdout, "Deleted container: %s", args[0])
		return nil
	},
}

var containerListCmd = &cobra.Command{
	Use:   "list [prefix]",
	Short: "List containers",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		prefix := containerListPrefix
		if len(args) > 0 {
			prefix = args[0]
		}

		c, err := blobClient()
		if err != nil {
			return err
		}
		result, err := c.ListContainers(context.Background(), blob.ListContainersOptions{
			Prefix:     prefix,
			Marker:     containerListMarker,
			MaxResults: containerListMax,
		})
		if err != nil {
			return err
		}
		return newFormatter().containerList(os.Stdout, &result)
	},
}

var leaseCmd = &cobra.Command{
	Use:   "lease",
	Short: "Manage container leases",
	Long: `Manage container leases.

A lease grants exclusive write and delete access to a container. Writes
without the lease ID are rejected while a lease is active.`,
}

var leaseAcquireCmd = &cobra.Command{
	Use:   "acquire <container>",
	Short: "Acquire a lease on a container",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		c, err := blobClient()
		if err != nil {
			return err
		}
		id, err := c.AcquireLease(context.Background(), args[0], leaseDuration, leaseProposedID)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var leaseRenewCmd = &cobra.Command{
	Use:   "renew <container> <lease-id>",
	Short: "Renew a lease",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		c, err := blobClient()
		if err != nil {
			return err
		}
		if err := c.RenewLease(context.Background(), args[0], args[1]); err != nil {
			return err
		}
		newFormatter().ok(os.Stdout, "Renewed lease on %s", args[0])
		return nil
	},
}

var leaseReleaseCmd = &cobra.Command{
	Use:   "release <container> <lease-id>",
	Short: "Release a lease",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		c, err := blobClient()
		if err != nil {
			return err
		}
		if err := c.ReleaseLease(context.Background(), args[0], args[1]); err != nil {
			return err
		}
		newFormatter().ok(os.Stdout, "Released lease on %s", args[0])
		return nil
	},
}

var leaseBreakCmd = &cobra.Command{
	Use:   "break <container>",
	Short: "Break a lease without its ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		c, err := blobClient()
		if err != nil {
			return err
		}
		remaining, err := c.BreakLease(context.Background(), args[0], leaseBreakPeriod)
		if err != nil {
			return err
		}
		newFormatter().ok(os.Stdout, "Lease breaks in %d second(s)", remaining)
		return nil
	},
}

func init() {
	containerCreateCmd.Flags().StringVar(&containerAccess, "access", "private", "public access level: private, blob, container")
	containerDeleteCmd.Flags().StringVar(&containerLeaseID, "lease-id", "", "active lease ID")
	containerListCmd.Flags().StringVar(&containerListPrefix, "prefix", "", "filter by name prefix")
	containerListCmd.Flags().StringVar(&containerListMarker, "marker", "", "pagination marker")
	containerListCmd.Flags().IntVarP(&containerListMax, "limit", "l", 0, "max results per page")

	leaseAcquireCmd.Flags().IntVar(&leaseDuration, "duration", blob.LeaseInfiniteDuration, "lease duration in seconds (15-60, or -1 for infinite)")
	leaseAcquireCmd.Flags().StringVar(&leaseProposedID, "proposed-id", "", "proposed lease ID")
	leaseBreakCmd.Flags().IntVar(&leaseBreakPeriod, "period", 0, "seconds before the break completes")

	leaseCmd.AddCommand(leaseAcquireCmd)
	leaseCmd.AddCommand(leaseRenewCmd)
	leaseCmd.AddCommand(leaseReleaseCmd)
	leaseCmd.AddCommand(leaseBreakCmd)

	containerCmd.AddCommand(containerCreateCmd)
	containerCmd.AddCommand(containerDeleteCmd)
	containerCmd.AddCommand(containerListCmd)
	containerCmd.AddCommand(leaseCmd)
}

func parseAccess(s string) (blob.ContainerAccess, error) {
	switch s {
	case "", "private":
		return blob.AccessPrivate, nil
	case "blob":
		return blob.AccessBlob, nil
	case "container":
		return blob.AccessContainer, nil
	default:
		return "", fmt.Errorf("invalid access level %q: use private, blob, or container", s)
	}
}

func blobClient() (*blob.Client, error) {
	core, err := coreClient()
	if err != nil {
		return nil, err
	}
	return blob.New(core), nil
}

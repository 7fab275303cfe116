package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/azstore/queue"
)

var (
	queueListPrefix  string
	queueListMarker  string
	queueListMax     int
	queueListMeta    bool
	msgTTL           int
	msgVisibility    int
	msgCount         int
	msgDeleteID      string
	msgDeleteReceipt string
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Manage queues and messages",
}

var queueCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		c, err := queueClient()
		if err != nil {
			return err
		}
		if err := c.Create(context.Background(), args[0], queue.CreateOptions{}); err != nil {
			return err
		}
		newFormatter().ok(os.Stdout, "Created queue: %s", args[0])
		return nil
	},
}

var queueDeleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a queue",
	Args:    cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		c, err := queueClient()
		if err != nil {
			return err
		}
		if err := c.Delete(context.Background(), args[0]); err != nil {
			return err
		}
		newFormatter().ok(os.Stdout, "Deleted queue: %s", args[0])
		return nil
	},
}

var queueListCmd = &cobra.Command{
	Use:   "list [prefix]",
	Short: "List queues",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		prefix := queueListPrefix
		if len(args) > 0 {
			prefix = args[0]
		}

		c, err := queueClient()
		if err != nil {
			return err
		}
		result, err := c.List(context.Background(), queue.ListOptions{
			Prefix:          prefix,
			Marker:          queueListMarker,
			MaxResults:      queueListMax,
			IncludeMetadata: queueListMeta,
		})
		if err != nil {
			return err
		}
		return newFormatter().queueList(os.Stdout, &result)
	},
}

var queueStatCmd = &cobra.Command{
	Use:   "stat <name>",
	Short: "Show queue metadata and approximate message count",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		c, err := queueClient()
		if err != nil {
			return err
		}
		meta, err := c.GetMetadata(context.Background(), args[0])
		if err != nil {
			return err
		}
		return newFormatter().queueStat(os.Stdout, args[0], meta)
	},
}

var queuePutCmd = &cobra.Command{
	Use:   "put <name> <text>",
	Short: "Enqueue a message",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		c, err := queueClient()
		if err != nil {
			return err
		}
		opts := queue.PutMessageOptions{
			VisibilityTimeout: msgVisibility,
			MessageTTL:        msgTTL,
		}
		if err := c.PutMessage(context.Background(), args[0], args[1], opts); err != nil {
			return err
		}
		newFormatter().ok(os.Stdout, "Enqueued message on %s", args[0])
		return nil
	},
}

var queueGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Dequeue messages",
	Long: `Dequeue messages from a queue.

Dequeued messages become invisible for the visibility timeout and carry
a pop receipt; use 'queue delete-message' with the receipt to remove
them permanently.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		c, err := queueClient()
		if err != nil {
			return err
		}
		msgs, err := c.GetMessages(context.Background(), args[0], queue.GetMessagesOptions{
			NumOfMessages:     msgCount,
			VisibilityTimeout: msgVisibility,
		})
		if err != nil {
			return err
		}
		return newFormatter().messages(os.Stdout, msgs)
	},
}

var queuePeekCmd = &cobra.Command{
	Use:   "peek <name>",
	Short: "Peek messages without dequeuing them",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		c, err := queueClient()
		if err != nil {
			return err
		}
		msgs, err := c.PeekMessages(context.Background(), args[0], msgCount)
		if err != nil {
			return err
		}
		return newFormatter().messages(os.Stdout, msgs)
	},
}

var queueDeleteMessageCmd = &cobra.Command{
	Use:   "delete-message <name>",
	Short: "Delete a dequeued message using its pop receipt",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		if msgDeleteID == "" || msgDeleteReceipt == "" {
			return fmt.Errorf("both --id and --receipt are required")
		}
		c, err := queueClient()
		if err != nil {
			return err
		}
		if err := c.DeleteMessage(context.Background(), args[0], msgDeleteID, msgDeleteReceipt); err != nil {
			return err
		}
		newFormatter().ok(os.Stdout, "Deleted message %s", msgDeleteID)
		return nil
	},
}

var queueClearCmd = &cobra.Command{
	Use:   "clear <name>",
	Short: "Delete all messages in a queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		c, err := queueClient()
		if err != nil {
			return err
		}
		if err := c.ClearMessages(context.Background(), args[0]); err != nil {
			return err
		}
		newFormatter().ok(os.Stdout, "Cleared queue: %s", args[0])
		return nil
	},
}

func init() {
	queueListCmd.Flags().StringVar(&queueListPrefix, "prefix", "", "filter by name prefix")
	queueListCmd.Flags().StringVar(&queueListMarker, "marker", "", "pagination marker")
	queueListCmd.Flags().IntVarP(&queueListMax, "limit", "l", 0, "max results per page")
	queueListCmd.Flags().BoolVar(&queueListMeta, "metadata", false, "include queue metadata")

	queuePutCmd.Flags().IntVar(&msgTTL, "ttl", 0, "message time-to-live in seconds (default: 7 days)")
	queuePutCmd.Flags().IntVar(&msgVisibility, "visibility", 0, "initial invisibility in seconds")

	queueGetCmd.Flags().IntVarP(&msgCount, "count", "n", 1, "number of messages (max: 32)")
	queueGetCmd.Flags().IntVar(&msgVisibility, "visibility", 0, "visibility timeout in seconds (default: 30)")
	queuePeekCmd.Flags().IntVarP(&msgCount, "count", "n", 1, "number of messages (max: 32)")

	queueDeleteMessageCmd.Flags().StringVar(&msgDeleteID, "id", "", "message ID")
	queueDeleteMessageCmd.Flags().StringVar(&msgDeleteReceipt, "receipt", "", "pop receipt from a previous get")

	queueCmd.AddCommand(queueCreateCmd)
	queueCmd.AddCommand(queueDeleteCmd)
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueStatCmd)
	queueCmd.AddCommand(queuePutCmd)
	queueCmd.AddCommand(queueGetCmd)
	queueCmd.AddCommand(queuePeekCmd)
	queueCmd.AddCommand(queueDeleteMessageCmd)
	queueCmd.AddCommand(queueClearCmd)
}

func queueClient() (*queue.Client, error) {
	core, err := coreClient()
	if err != nil {
		return nil, err
	}
	return queue.New(core), nil
}

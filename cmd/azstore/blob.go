package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sagarc03/azstore/blob"
)

var (
	uploadContentType string
	uploadMD5         bool
	uploadLeaseID     string
	downloadOutput    string
	downloadRange     string
	blobDeleteLeaseID string
	blobListPrefix    string
	blobListDelimiter string
	blobListMarker    string
	blobListMax       int
)

var blobCmd = &cobra.Command{
	Use:   "blob",
	Short: "Upload, download and manage blobs",
}

var blobUploadCmd = &cobra.Command{
	Use:   "upload <container> <file> [name]",
	Short: "Upload a file as a block blob",
	Long: `Upload a local file as a block blob.

If no blob name is given, the file's base name is used.

Examples:
  azstore blob upload pics photo.jpg
  azstore blob upload pics photo.jpg 2026/photo.jpg --md5`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(_ *cobra.Command, args []string) error {
		container, localPath := args[0], args[1]
		name := filepath.Base(localPath)
		if len(args) > 2 {
			name = args[2]
		}

		content, err := os.ReadFile(localPath) //nolint:gosec // Path from user input is intentional for CLI
		if err != nil {
			return fmt.Errorf("read %s: %w", localPath, err)
		}

		c, err := blobClient()
		if err != nil {
			return err
		}
		opts := blob.PutOptions{
			ContentType: uploadContentType,
			ContentMD5:  uploadMD5,
			LeaseID:     uploadLeaseID,
		}
		if err := c.Put(context.Background(), container, name, content, opts); err != nil {
			return err
		}
		newFormatter().ok(os.Stdout, "Uploaded: %s/%s (%s)", container, name, formatSize(int64(len(content))))
		return nil
	},
}

var blobDownloadCmd = &cobra.Command{
	Use:   "download <container> <name>",
	Short: "Download a blob",
	Long: `Download a blob to a local file.

By default the blob's base name is used as the output file; use -o to
change it, or '-o -' to write to stdout.`,
	Args: cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		container, name := args[0], args[1]

		c, err := blobClient()
		if err != nil {
			return err
		}
		result, err := c.Get(context.Background(), container, name, blob.GetOptions{Range: downloadRange})
		if err != nil {
			return err
		}

		out := downloadOutput
		if out == "" {
			out = filepath.Base(name)
		}
		if out == "-" {
			_, err = os.Stdout.Write(result.Content)
			return err
		}

		if err := os.WriteFile(out, result.Content, 0o644); err != nil { //nolint:gosec // Downloaded content is not sensitive by default
			return fmt.Errorf("write %s: %w", out, err)
		}
		newFormatter().ok(os.Stdout, "Downloaded: %s/%s -> %s (%s)", container, name, out, formatSize(int64(len(result.Content))))
		return nil
	},
}

var blobDeleteCmd = &cobra.Command{
	Use:     "delete <container> <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a blob",
	Args:    cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		c, err := blobClient()
		if err != nil {
			return err
		}
		if err := c.Delete(context.Background(), args[0], args[1], blob.DeleteOptions{LeaseID: blobDeleteLeaseID}); err != nil {
			return err
		}
		newFormatter().ok(os.Stdout, "Deleted: %s/%s", args[0], args[1])
		return nil
	},
}

var blobListCmd = &cobra.Command{
	Use:   "list <container> [prefix]",
	Short: "List blobs in a container",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(_ *cobra.Command, args []string) error {
		prefix := blobListPrefix
		if len(args) > 1 {
			prefix = args[1]
		}

		c, err := blobClient()
		if err != nil {
			return err
		}
		result, err := c.List(context.Background(), args[0], blob.ListBlobsOptions{
			Prefix:     prefix,
			Delimiter:  blobListDelimiter,
			Marker:     blobListMarker,
			MaxResults: blobListMax,
		})
		if err != nil {
			return err
		}
		return newFormatter().blobList(os.Stdout, &result)
	},
}

var blobStatCmd = &cobra.Command{
	Use:   "stat <container> <name>",
	Short: "Show blob properties",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		c, err := blobClient()
		if err != nil {
			return err
		}
		props, err := c.GetProperties(context.Background(), args[0], args[1])
		if err != nil {
			return err
		}
		return newFormatter().blobStat(os.Stdout, args[0], args[1], props)
	},
}

func init() {
	blobUploadCmd.Flags().StringVarP(&uploadContentType, "content-type", "t", "", "content type (default: application/octet-stream)")
	blobUploadCmd.Flags().BoolVar(&uploadMD5, "md5", false, "attach a Content-MD5 integrity header")
	blobUploadCmd.Flags().StringVar(&uploadLeaseID, "lease-id", "", "active container lease ID")

	blobDownloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "output file ('-' for stdout)")
	blobDownloadCmd.Flags().StringVar(&downloadRange, "range", "", "byte range, e.g. bytes=0-1023")

	blobDeleteCmd.Flags().StringVar(&blobDeleteLeaseID, "lease-id", "", "active container lease ID")

	blobListCmd.Flags().StringVar(&blobListPrefix, "prefix", "", "filter by name prefix")
	blobListCmd.Flags().StringVar(&blobListDelimiter, "delimiter", "", "group names by delimiter, e.g. /")
	blobListCmd.Flags().StringVar(&blobListMarker, "marker", "", "pagination marker")
	blobListCmd.Flags().IntVarP(&blobListMax, "limit", "l", 0, "max results per page")

	blobCmd.AddCommand(blobUploadCmd)
	blobCmd.AddCommand(blobDownloadCmd)
	blobCmd.AddCommand(blobDeleteCmd)
	blobCmd.AddCommand(blobListCmd)
	blobCmd.AddCommand(blobStatCmd)
}

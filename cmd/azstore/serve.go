package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sagarc03/azstore"
	"github.com/sagarc03/azstore/config"
	"github.com/sagarc03/azstore/credentials"
	"github.com/sagarc03/azstore/emulator"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local storage emulator",
	Long: `Start an in-memory emulator serving the blob and queue wire surfaces
on separate ports, with SharedKey authentication against the configured
account keys. The development account is always available with its
well-known key.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("blob-port", 10000, "blob service port")
	serveCmd.Flags().Int("queue-port", 10001, "queue service port")
	serveCmd.Flags().String("keys-file", "", "JSON file with additional account keys")
}

func runServe(cmd *cobra.Command, args []string) error {
	var files []string
	if cfgFile != "" {
		files = []string{cfgFile}
	}
	cfg, err := config.Load(files, cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	keys, err := emulatorKeys(cfg)
	if err != nil {
		return fmt.Errorf("load account keys: %w", err)
	}

	em := emulator.New(emulator.Config{
		Keys:   keys,
		CORS:   cfg.Emulator.CORS,
		Logger: slog.Default(),
	})

	blobServer := emulatorServer(cfg.Emulator.BlobPort, em.BlobRouter())
	queueServer := emulatorServer(cfg.Emulator.QueuePort, em.QueueRouter())

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down emulator...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := blobServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("blob server shutdown error", "err", err)
		}
		if err := queueServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("queue server shutdown error", "err", err)
		}
		cancel()
	}()

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting blob endpoint", "addr", blobServer.Addr)
		if err := blobServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("blob server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		slog.Info("starting queue endpoint", "addr", queueServer.Addr)
		if err := queueServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("queue server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func emulatorServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// emulatorKeys builds the key store: configured keys plus the development
// account's well-known key.
func emulatorKeys(cfg *config.Config) (credentials.Store, error) {
	keys := make(map[string]string)

	dev := azstore.DevelopmentCredentials()
	keys[dev.AccountName] = dev.AccountKey

	for _, p := range cfg.Keys.Inline {
		if p.Account != "" && p.Key != "" {
			keys[p.Account] = p.Key
		}
	}
	if cfg.Keys.File != "" {
		fileKeys, err := credentials.LoadKeysFromFile(cfg.Keys.File)
		if err != nil {
			return nil, err
		}
		for k, v := range fileKeys {
			keys[k] = v
		}
	}

	return credentials.NewMapStore(keys), nil
}

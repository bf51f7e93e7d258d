package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sentinel/internal/server"
)

var (
	serveAddr   string
	serveConfig string
	serveStore  string
	serveChain  string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "HTTP listen address")
	serveCmd.Flags().StringVar(&serveConfig, "config", "", "Path to config YAML")
	serveCmd.Flags().StringVar(&serveStore, "store", "", "Path to operational event store (SQLite)")
	serveCmd.Flags().StringVar(&serveChain, "audit-chain", "", "Path to audit chain JSONL file")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP analysis server",
	Long:  "Runs Sentinel as an HTTP service.\nCallers POST actions to /v1/analyze and receive the enforcement decision.\nSupports hot-reload of the config file.",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	srv, err := server.New(server.Config{
		Addr:       serveAddr,
		ConfigPath: serveConfig,
		StorePath:  serveStore,
		ChainPath:  serveChain,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start hot-reload watcher for the config file
	if serveConfig != "" {
		reloader, err := server.NewReloader(srv, serveConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: hot-reload disabled: %v\n", err)
		} else {
			go reloader.Run(ctx)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down sentinel...")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
		}
	}()

	fmt.Fprintf(os.Stderr, "sentinel listening on %s\n", serveAddr)
	if serveConfig != "" {
		fmt.Fprintf(os.Stderr, "Config: %s (hot-reload enabled)\n", serveConfig)
	}
	if serveStore != "" {
		fmt.Fprintf(os.Stderr, "Event store: %s\n", serveStore)
	}
	if serveChain != "" {
		fmt.Fprintf(os.Stderr, "Audit chain: %s\n", serveChain)
	}
	fmt.Fprintln(os.Stderr)

	if err := srv.Serve(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

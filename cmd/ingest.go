package cmd

import (
	"context"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lyceum-ai/lyceum/internal/app"
	"github.com/lyceum-ai/lyceum/internal/config"
)

var ingestAccessTarget string

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Index a document from the command line",
	Long: `Ingest reads a local file, extracts its text, and commits it to the
vector index under the given access target. Useful for bulk-loading course
material without going through the HTTP API.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(args[0])
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestAccessTarget, "access-target", "admin_only",
		"access target for the document (public, all_students, level_1..level_4, admin_only)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(path string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg)

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		return fmt.Errorf("cannot determine content type of %s", path)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	docID, err := a.Pipeline.Ingest(ctx, content, contentType, filepath.Base(path), ingestAccessTarget)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", path, err)
	}

	fmt.Printf("indexed %s as %s (access_target=%s)\n", path, docID, ingestAccessTarget)
	return nil
}

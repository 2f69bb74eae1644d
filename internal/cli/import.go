package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mailsift/mailsift/internal/config"
	"github.com/mailsift/mailsift/internal/service"
)

// ImportCmd returns the import command
func ImportCmd() *cobra.Command {
	var (
		autoClassify bool
		noArchive    bool
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import messages from a JSONL file",
		Long:  "Parses message records from a newline-delimited JSON file and stores each one.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			app, err := NewApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open import file: %w", err)
			}
			defer file.Close()

			opts := service.ImportOptions{AutoClassify: autoClassify}
			if !noArchive {
				opts.ArchiveKey = fmt.Sprintf("imports/%s-%s",
					time.Now().UTC().Format("20060102T150405Z"), filepath.Base(args[0]))
			}

			result, err := app.Messages.ImportFromJSONL(ctx, file, opts)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			fmt.Printf("Imported %d messages (%d failed)\n", result.Imported, result.Failed)
			for _, failure := range result.Failures {
				fmt.Printf("  %s: %s\n", failure.MessageID, failure.Error)
			}
			if autoClassify {
				fmt.Println("Classification jobs queued; run 'serve' to process them.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&autoClassify, "auto-classify", false, "Queue a classification job for every imported message")
	cmd.Flags().BoolVar(&noArchive, "no-archive", false, "Skip archiving the raw payload to object storage")

	return cmd
}

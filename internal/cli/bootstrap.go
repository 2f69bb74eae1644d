package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mailsift/mailsift/internal/config"
)

// BootstrapCmd returns the bootstrap command
func BootstrapCmd() *cobra.Command {
	var (
		categoriesPath string
		messagesPath   string
		autoClassify   bool
	)

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Seed categories and messages from sample JSONL files",
		Long:  "Loads categories, imports messages, and optionally classifies everything imported.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if categoriesPath == "" {
				categoriesPath = cfg.SampleCategoriesPath
			}
			if messagesPath == "" {
				messagesPath = cfg.SampleMessagesPath
			}

			app, err := NewApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Bootstrap.Run(ctx, categoriesPath, messagesPath, autoClassify)
			if err != nil {
				return fmt.Errorf("bootstrap failed: %w", err)
			}

			fmt.Printf("Categories: %d created, %d skipped\n", result.CategoriesCreated, result.CategoriesSkipped)
			fmt.Printf("Messages imported: %d\n", result.MessagesImported)
			if result.Classification != nil {
				fmt.Printf("Classified: %d succeeded, %d failed\n",
					result.Classification.Succeeded, result.Classification.Failed)
				for _, failure := range result.Classification.Failures {
					fmt.Printf("  %s: %s\n", failure.MessageID, failure.Error)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&categoriesPath, "categories", "", "Path to the categories JSONL file")
	cmd.Flags().StringVar(&messagesPath, "messages", "", "Path to the messages JSONL file")
	cmd.Flags().BoolVar(&autoClassify, "classify", false, "Classify all messages after import")

	return cmd
}

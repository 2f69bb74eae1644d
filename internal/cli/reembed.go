package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mailsift/mailsift/internal/config"
)

// ReembedCmd returns the reembed command. It regenerates stored vectors for
// categories and messages, which is needed after switching embedding models
// or after imports that skipped embedding generation.
func ReembedCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "reembed",
		Short: "Regenerate embeddings for categories and messages",
		Long:  "Regenerate stored embedding vectors. By default only rows without an embedding are processed; --all regenerates every row.",
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

			if app.Embeddings == nil {
				return fmt.Errorf("reembed requires MAILSIFT_OPENAI_API_KEY")
			}

			categoriesDone, err := reembedCategories(ctx, app, all)
			if err != nil {
				return err
			}

			messagesDone, err := reembedMessages(ctx, app, all)
			if err != nil {
				return err
			}

			fmt.Printf("Re-embedded %d categories and %d messages\n", categoriesDone, messagesDone)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Regenerate embeddings even for rows that already have one")

	return cmd
}

func reembedCategories(ctx context.Context, app *App, all bool) (int, error) {
	categories, err := app.Categories.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list categories: %w", err)
	}

	done := 0
	for _, c := range categories {
		if !all && c.HasEmbedding() {
			continue
		}
		if err := app.Embeddings.EmbedCategory(ctx, c.ID); err != nil {
			return done, fmt.Errorf("failed to embed category %d: %w", c.ID, err)
		}
		done++
	}
	return done, nil
}

func reembedMessages(ctx context.Context, app *App, all bool) (int, error) {
	ids, err := app.MessageRepo.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list messages: %w", err)
	}

	done := 0
	for _, id := range ids {
		if !all {
			message, err := app.MessageRepo.GetByID(ctx, id)
			if err != nil {
				return done, err
			}
			if message.HasEmbedding() {
				continue
			}
		}
		if err := app.Embeddings.EmbedMessage(ctx, id); err != nil {
			return done, fmt.Errorf("failed to embed message %s: %w", id, err)
		}
		done++
	}
	return done, nil
}

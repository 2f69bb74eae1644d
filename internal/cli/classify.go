package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mailsift/mailsift/internal/config"
	"github.com/mailsift/mailsift/internal/service"
)

// ClassifyCmd returns the classify command
func ClassifyCmd() *cobra.Command {
	var (
		noAssign  bool
		strategy  string
		topN      int
		threshold float64
	)

	cmd := &cobra.Command{
		Use:   "classify <message-id>",
		Short: "Classify a message into categories",
		Long:  "Runs the configured classification strategy for one message and persists the resulting assignments unless --no-assign is set.",
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

			params := service.ClassifyParams{
				Assign:   !noAssign,
				Strategy: strategy,
				TopN:     topN,
			}
			if cmd.Flags().Changed("threshold") {
				params.Threshold = &threshold
			}

			result, err := app.Classification.ClassifyByID(ctx, args[0], params)
			if err != nil {
				return fmt.Errorf("classification failed: %w", err)
			}

			printClassification(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noAssign, "no-assign", false, "Preview matches without persisting assignments")
	cmd.Flags().StringVar(&strategy, "strategy", "", "Strategy to use (embedding|llm); empty uses the configured default")
	cmd.Flags().IntVar(&topN, "top-n", 0, "Maximum number of categories to assign")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum score for a category to qualify")

	return cmd
}

// ClassifyAllCmd returns the classify-all command
func ClassifyAllCmd() *cobra.Command {
	var (
		noAssign  bool
		strategy  string
		topN      int
		threshold float64
	)

	cmd := &cobra.Command{
		Use:   "classify-all",
		Short: "Classify every stored message",
		Long:  "Runs classification over all messages sequentially. Failures are reported per message and do not stop the run.",
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

			params := service.ClassifyParams{
				Assign:   !noAssign,
				Strategy: strategy,
				TopN:     topN,
			}
			if cmd.Flags().Changed("threshold") {
				params.Threshold = &threshold
			}

			result, err := app.Classification.ClassifyAll(ctx, params)
			if err != nil {
				return fmt.Errorf("batch classification failed: %w", err)
			}

			fmt.Printf("Processed %d messages: %d succeeded, %d failed\n",
				result.Processed, result.Succeeded, result.Failed)
			for _, failure := range result.Failures {
				fmt.Printf("  %s: %s\n", failure.MessageID, failure.Error)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noAssign, "no-assign", false, "Preview matches without persisting assignments")
	cmd.Flags().StringVar(&strategy, "strategy", "", "Strategy to use (embedding|llm); empty uses the configured default")
	cmd.Flags().IntVar(&topN, "top-n", 0, "Maximum number of categories to assign per message")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum score for a category to qualify")

	return cmd
}

func printClassification(result *service.ClassificationResult) {
	if len(result.Matches) == 0 {
		fmt.Printf("Message %s: no categories matched (strategy %s)\n", result.Message.ID, result.Strategy)
		return
	}

	verb := "previewed"
	if result.Assigned {
		verb = "assigned"
	}
	fmt.Printf("Message %s: %d categories %s (strategy %s)\n",
		result.Message.ID, len(result.Matches), verb, result.Strategy)
	for _, match := range result.Matches {
		fmt.Printf("  %s (score %.4f)\n", match.Category.Name, match.Score)
		fmt.Printf("    %s\n", match.Explanation)
	}
}

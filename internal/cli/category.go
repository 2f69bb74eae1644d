package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mailsift/mailsift/internal/config"
	"github.com/mailsift/mailsift/internal/service"
)

// CategoryCmd returns the category command and its subcommands
func CategoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage categories",
		Long:  "Create, list, and delete the categories messages are classified into",
	}

	cmd.AddCommand(categoryAddCmd())
	cmd.AddCommand(categoryListCmd())
	cmd.AddCommand(categoryDeleteCmd())

	return cmd
}

func categoryAddCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a new category",
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

			category, err := app.Categories.Create(ctx, service.CreateCategoryInput{
				Name:        args[0],
				Description: description,
			})
			if err != nil {
				return fmt.Errorf("failed to create category: %w", err)
			}

			fmt.Printf("Created category '%s' (id: %d)\n", category.Name, category.ID)
			if len(category.Embedding) == 0 {
				fmt.Println("Warning: no embedding generated; embedding classification will skip this category.")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "What kind of messages belong in this category")

	return cmd
}

func categoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
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

			categories, err := app.Categories.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list categories: %w", err)
			}

			if len(categories) == 0 {
				fmt.Println("No categories found.")
				return nil
			}

			for _, c := range categories {
				marker := " "
				if len(c.Embedding) > 0 {
					marker = "*"
				}
				fmt.Printf("%s %d. %s", marker, c.ID, c.Name)
				if c.Description != "" {
					fmt.Printf(" - %s", c.Description)
				}
				fmt.Println()
			}
			fmt.Println("\n* = has embedding")
			return nil
		},
	}
}

func categoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category and its assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid category id %q", args[0])
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			app, err := NewApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Categories.Delete(ctx, id); err != nil {
				return fmt.Errorf("failed to delete category: %w", err)
			}

			fmt.Printf("Deleted category %d\n", id)
			return nil
		},
	}
}

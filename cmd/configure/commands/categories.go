package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dkrasner/taskmind/internal/config"
	"github.com/dkrasner/taskmind/internal/database"
)

// NewCategoriesCmd creates the categories command
func NewCategoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage task categories",
	}

	cmd.AddCommand(newCategoriesListCmd())
	cmd.AddCommand(newCategoriesSeedCmd())

	return cmd
}

func newCategoriesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, cleanup, err := openCategoryRepo()
			if err != nil {
				return err
			}
			defer cleanup()

			categories, err := repo.List(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list categories: %w", err)
			}

			if len(categories) == 0 {
				fmt.Println("No categories found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCOLOR\tUSAGE\tID")
			for _, c := range categories {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", c.Name, c.Color, c.UsageFrequency, c.ID)
			}
			return w.Flush()
		},
	}
}

func newCategoriesSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default category set",
		Long:  "Create the standard categories (Work, Home, Health, Learning, Personal) if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, cleanup, err := openCategoryRepo()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := context.Background()
			for _, name := range []string{"Work", "Home", "Health", "Learning", "Personal"} {
				category, err := repo.GetOrCreate(ctx, name)
				if err != nil {
					return fmt.Errorf("failed to create category %s: %w", name, err)
				}
				fmt.Printf("✓ %s (%s)\n", category.Name, category.ID)
			}
			return nil
		},
	}
}

func openCategoryRepo() (*database.CategoryRepository, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}

	if err := db.Migrate(context.Background()); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return database.NewCategoryRepository(db), cleanup, nil
}

// Package cli provides the Cobra-based admin CLI for the product catalog.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/Pesokrava/product_catalog/internal/config"
	"github.com/Pesokrava/product_catalog/internal/pkg/database"
	"github.com/Pesokrava/product_catalog/internal/pkg/logger"
	"github.com/Pesokrava/product_catalog/internal/pkg/validator"
	"github.com/Pesokrava/product_catalog/internal/repository"
	"github.com/Pesokrava/product_catalog/internal/usecase/product"
)

type app struct {
	cfg *config.Config
	log *logger.Logger
	out io.Writer
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the catalogctl command tree. Configuration comes from the
// same environment variables as the API.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "catalogctl",
		Short:        "Administer the product catalog",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logger.NewWithWriter(cmd.ErrOrStderr())
			a.out = cmd.OutOrStdout()
			return nil
		},
	}

	root.AddCommand(a.migrateCmd(), a.seedCmd())
	return root
}

func (a *app) migrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDB(cmd.Context(), func(ctx context.Context, db *sqlx.DB) error {
				if err := database.RunMigrations(ctx, db); err != nil {
					return err
				}
				return a.printVersion(ctx, db)
			})
		},
	}

	var steps int
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Revert applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDB(cmd.Context(), func(ctx context.Context, db *sqlx.DB) error {
				if err := database.RollbackMigrations(ctx, db, steps); err != nil {
					return err
				}
				return a.printVersion(ctx, db)
			})
		},
	}
	downCmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to revert")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDB(cmd.Context(), a.printVersion)
		},
	}

	migrateCmd.AddCommand(upCmd, downCmd, versionCmd)
	return migrateCmd
}

func (a *app) withDB(ctx context.Context, fn func(ctx context.Context, db *sqlx.DB) error) error {
	if a.cfg.Store.Driver != config.StoreDriverPostgres {
		return fmt.Errorf("migrations require STORE_DRIVER=%s, got %q", config.StoreDriverPostgres, a.cfg.Store.Driver)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := database.NewPostgresDB(a.cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(ctx, db)
}

func (a *app) printVersion(ctx context.Context, db *sqlx.DB) error {
	version, dirty, err := database.MigrationVersion(ctx, db)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "schema version %d (dirty=%t)\n", version, dirty)
	return nil
}

func (a *app) seedCmd() *cobra.Command {
	var file string

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Create products from a JSON file",
		Long: "Reads a JSON array of products ({name, price, stockQuantity, categoryImageUrl}) and creates each one\n" +
			"through the catalog service, so the same validation rules as the API apply.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			requests, err := loadSeedFile(file)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			store, closeStore, err := repository.OpenProductStore(ctx, a.cfg, a.log)
			if err != nil {
				return err
			}
			defer closeStore()

			return a.seed(ctx, product.NewService(store, nil, nil, a.log), requests)
		},
	}
	seedCmd.Flags().StringVarP(&file, "file", "f", "", "path to the products JSON file")
	_ = seedCmd.MarkFlagRequired("file")

	return seedCmd
}

func loadSeedFile(path string) ([]product.ProductRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var requests []product.ProductRequest
	if err := json.Unmarshal(data, &requests); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if err := validator.Get().Var(requests, "required,min=1"); err != nil {
		return nil, errors.New("seed file contains no products")
	}

	return requests, nil
}

func (a *app) seed(ctx context.Context, service *product.Service, requests []product.ProductRequest) error {
	var created, skipped int

	for i, req := range requests {
		res, err := service.Create(ctx, req)
		if err != nil {
			return fmt.Errorf("product #%d (%q): %w", i+1, req.Name, err)
		}
		if res.IsFailure() {
			skipped++
			fmt.Fprintf(a.out, "skipped #%d %q: %s\n", i+1, req.Name, res.Message())
			continue
		}

		created++
		p := res.Value()
		fmt.Fprintf(a.out, "created %s %q price=%s\n", p.ID, p.Name, p.Price)
	}

	fmt.Fprintf(a.out, "%d created, %d skipped\n", created, skipped)
	return nil
}

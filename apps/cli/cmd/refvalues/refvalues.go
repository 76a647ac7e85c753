package refvaluescmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	authoritylocal "github.com/veritest-io/veritest-saas/platform/go/authority/local"
	"github.com/veritest-io/veritest-saas/platform/go/gcp"
	"github.com/veritest-io/veritest-saas/platform/go/persistence"
)

// Command groups reference value helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refvalues",
		Short: "Reference value utilities (seed global defaults, initialize a tenant)",
	}

	cmd.AddCommand(seedGlobalCommand())
	cmd.AddCommand(initCommand())
	return cmd
}

func seedGlobalCommand() *cobra.Command {
	var databaseURL string

	c := &cobra.Command{
		Use:   "seed-global",
		Short: "Seed the global reference value catalogue (status, severity, priority, reproducibility, resolution)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			auth, cleanup, err := buildLocalAuthority(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := auth.SeedGlobalDefaults(ctx); err != nil {
				return fmt.Errorf("seed global defaults: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "global reference values seeded")
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string for the key counter")
	_ = c.MarkFlagRequired("database-url")
	return c
}

func initCommand() *cobra.Command {
	var (
		databaseURL    string
		organizationID string
	)

	c := &cobra.Command{
		Use:   "init",
		Short: "Initialize a tenant's reference value sets from the seed defaults (idempotent)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			auth, cleanup, err := buildLocalAuthority(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := auth.InitializeReferenceValues(ctx, organizationID); err != nil {
				return fmt.Errorf("initialize reference values: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "reference values initialized for %s\n", organizationID)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string for the key counter")
	c.Flags().StringVar(&organizationID, "org", "", "Organization id to initialize")
	_ = c.MarkFlagRequired("database-url")
	_ = c.MarkFlagRequired("org")
	return c
}

// buildLocalAuthority wires the dev authority the commands run against.
// The returned cleanup closes the Firestore client and the pool.
func buildLocalAuthority(ctx context.Context, databaseURL string) (*authoritylocal.Authority, func(), error) {
	_, fsClient, err := gcp.InitFirestore(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("init firestore: %w", err)
	}

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
	if err != nil {
		fsClient.Close()
		return nil, nil, fmt.Errorf("init pool: %w", err)
	}

	counter, err := persistence.NewKeyCounter(ctx, pool)
	if err != nil {
		persistence.ClosePool(pool)
		fsClient.Close()
		return nil, nil, fmt.Errorf("init key counter: %w", err)
	}

	auth, err := authoritylocal.New(fsClient, counter, zap.NewNop())
	if err != nil {
		persistence.ClosePool(pool)
		fsClient.Close()
		return nil, nil, fmt.Errorf("init local authority: %w", err)
	}

	cleanup := func() {
		persistence.ClosePool(pool)
		fsClient.Close()
	}
	return auth, cleanup, nil
}

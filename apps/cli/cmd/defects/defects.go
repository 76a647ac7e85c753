package defectscmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veritest-io/veritest-saas/platform/go/authority"
	authoritylocal "github.com/veritest-io/veritest-saas/platform/go/authority/local"
	"github.com/veritest-io/veritest-saas/platform/go/gcp"
	"github.com/veritest-io/veritest-saas/platform/go/persistence"
)

// Command groups defect helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "defects",
		Short: "Defect utilities (bulk export)",
	}

	cmd.AddCommand(exportCommand())
	return cmd
}

func exportCommand() *cobra.Command {
	var (
		databaseURL    string
		organizationID string
		projectID      string
		format         string
		status         string
		severity       string
		priority       string
		out            string
	)

	c := &cobra.Command{
		Use:   "export",
		Short: "Export defects for an organization (optionally a single project) as json or csv",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			_, fsClient, err := gcp.InitFirestore(ctx)
			if err != nil {
				return fmt.Errorf("init firestore: %w", err)
			}
			defer fsClient.Close()

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			counter, err := persistence.NewKeyCounter(ctx, pool)
			if err != nil {
				return fmt.Errorf("init key counter: %w", err)
			}

			auth, err := authoritylocal.New(fsClient, counter, zap.NewNop())
			if err != nil {
				return fmt.Errorf("init local authority: %w", err)
			}

			req := authority.ExportRequest{
				OrganizationID: organizationID,
				Filter: authority.Filter{
					Status:   status,
					Severity: severity,
					Priority: priority,
				},
				Format: format,
			}
			if projectID != "" {
				req.ProjectID = &projectID
			}

			result, err := auth.ExportDefects(ctx, req)
			if err != nil {
				return fmt.Errorf("export defects: %w", err)
			}

			if out == "" {
				out = result.FileName
			}
			if err := os.WriteFile(out, result.Content, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s\n", result.RecordCount, out)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string for the key counter")
	c.Flags().StringVar(&organizationID, "org", "", "Organization id to export")
	c.Flags().StringVar(&projectID, "project", "", "Restrict the export to one project")
	c.Flags().StringVar(&format, "format", "json", "Export format: json or csv")
	c.Flags().StringVar(&status, "status", "", "Filter by status")
	c.Flags().StringVar(&severity, "severity", "", "Filter by severity")
	c.Flags().StringVar(&priority, "priority", "", "Filter by priority")
	c.Flags().StringVar(&out, "out", "", "Output file (defaults to the generated file name)")
	_ = c.MarkFlagRequired("database-url")
	_ = c.MarkFlagRequired("org")
	return c
}

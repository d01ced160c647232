// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/canonical/schema-tenancy/internal/db"
	"github.com/canonical/schema-tenancy/internal/logging"
	"github.com/canonical/schema-tenancy/internal/monitoring"
	"github.com/canonical/schema-tenancy/internal/storage"
	"github.com/canonical/schema-tenancy/internal/tracing"
	"github.com/canonical/schema-tenancy/pkg/organizations"
)

var tenantsCmd = &cobra.Command{
	Use:   "tenants",
	Short: "Inspect and manage tenant schemas",
}

type tenantRow struct {
	OrganizationID string `json:"organizationId,omitempty"`
	Name           string `json:"name,omitempty"`
	SchemaName     string `json:"schemaName"`
	CreatedBy      string `json:"createdBy,omitempty"`
	Registered     bool   `json:"registered"`
	SchemaExists   bool   `json:"schemaExists"`
}

var listTenantsCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered organizations and tenant schemas",
	Long:  `List registered organizations together with the tenant schemas found in the database, flagging registry rows without a schema and schemas without a registry row`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, closeDB, err := tenantStorage(cmd)
		if err != nil {
			return err
		}
		defer closeDB()

		ctx := cmd.Context()

		orgs, err := s.ListOrganizations(ctx)
		if err != nil {
			return err
		}

		schemas, err := s.ListTenantSchemas(ctx)
		if err != nil {
			return err
		}

		existing := make(map[string]bool, len(schemas))
		for _, name := range schemas {
			existing[name] = true
		}

		rows := make([]tenantRow, 0, len(schemas))
		for _, o := range orgs {
			rows = append(rows, tenantRow{
				OrganizationID: o.ID,
				Name:           o.Name,
				SchemaName:     o.SchemaName,
				CreatedBy:      o.CreatedBy,
				Registered:     true,
				SchemaExists:   existing[o.SchemaName],
			})
			delete(existing, o.SchemaName)
		}

		for _, name := range schemas {
			if existing[name] {
				rows = append(rows, tenantRow{SchemaName: name, SchemaExists: true})
			}
		}

		if format, _ := cmd.Flags().GetString("format"); format == "json" {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(rows)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ORGANIZATION\tNAME\tSCHEMA\tOWNER\tSTATE")
		for _, r := range rows {
			state := "ok"
			switch {
			case !r.Registered:
				state = "orphan schema"
			case !r.SchemaExists:
				state = "missing schema"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.OrganizationID, r.Name, r.SchemaName, r.CreatedBy, state)
		}

		return w.Flush()
	},
}

var dropTenantCmd = &cobra.Command{
	Use:   "drop [organization-id]",
	Short: "Drop an organization and its tenant schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, closeDB, err := tenantStorage(cmd)
		if err != nil {
			return err
		}
		defer closeDB()

		ctx := cmd.Context()

		org, err := s.GetOrganizationByID(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to find organization %s: %w", args[0], err)
		}

		svc := organizations.NewService(
			s.Storage,
			s.db,
			validator.New(),
			organizations.DefaultProvisionAttempts,
			s.tracer,
			s.monitor,
			s.logger,
		)

		// acting on behalf of the owner, the only user allowed to delete it
		if err := svc.Delete(ctx, org.CreatedBy, org.ID); err != nil {
			return fmt.Errorf("failed to drop organization %s: %w", org.ID, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Organization %s dropped together with schema %s\n", org.ID, org.SchemaName)

		return nil
	},
}

type cliStorage struct {
	*storage.Storage

	db *db.DBClient

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func tenantStorage(cmd *cobra.Command) (*cliStorage, func(), error) {
	dsn, _ := cmd.Flags().GetString("dsn")
	level, _ := cmd.Flags().GetString("log-level")

	logger := logging.NewLogger(level)
	tracer := tracing.NewNoopTracer()
	monitor := monitoring.NewNoopMonitor("schema-tenancy", logger)

	dbClient, err := db.NewDBClient(db.Config{DSN: dsn, MaxConns: 2}, tracer, monitor, logger)
	if err != nil {
		return nil, nil, err
	}

	s := storage.NewStorage(dbClient, tracer, monitor, logger)

	c := &cliStorage{
		Storage: s,
		db:      dbClient,
		tracer:  tracer,
		monitor: monitor,
		logger:  logger,
	}

	return c, func() {
		_ = logger.Sync()
		dbClient.Close()
	}, nil
}

func init() {
	tenantsCmd.PersistentFlags().String("dsn", "", "PostgreSQL DSN connection string")
	tenantsCmd.PersistentFlags().String("log-level", "error", "log level of the command")
	_ = tenantsCmd.MarkPersistentFlagRequired("dsn")

	listTenantsCmd.Flags().StringP("format", "f", "text", "Output format (text or json)")

	tenantsCmd.AddCommand(listTenantsCmd)
	tenantsCmd.AddCommand(dropTenantCmd)

	rootCmd.AddCommand(tenantsCmd)
}

package admin

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/studyhall-hq/studyhall/internal/config"
	"github.com/studyhall-hq/studyhall/internal/database"
	"github.com/studyhall-hq/studyhall/internal/domain"
	"github.com/studyhall-hq/studyhall/internal/repository"
	"github.com/studyhall-hq/studyhall/internal/service"
)

func TenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
		Long:  "Register and list tenant accounts",
	}

	cmd.AddCommand(TenantCreateCmd())
	cmd.AddCommand(TenantListCmd())

	return cmd
}

func TenantCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <external-identity>",
		Short: "Register a tenant",
		Long:  "Register the tenant behind an external identity, creating it on first use",
		Args:  cobra.ExactArgs(1),
		RunE:  runTenantCreate,
	}

	cmd.Flags().StringP("email", "e", "", "Tenant email")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runTenantCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	externalIdentity := args[0]
	email, _ := cmd.Flags().GetString("email")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	tenantSvc := service.NewTenantService(repository.NewTenantRepository(pool))

	result, err := tenantSvc.Sync(ctx, domain.ServiceIdentity(), service.SyncInput{
		ExternalIdentity: externalIdentity,
		Email:            email,
	})
	if err != nil {
		return fmt.Errorf("failed to register tenant: %w", err)
	}

	tenant := result.Tenant
	if outputFormat == "json" {
		return printJSON(map[string]any{
			"id":                tenant.ID,
			"external_identity": tenant.ExternalIdentity,
			"email":             tenant.Email,
			"created":           result.Created,
			"created_at":        tenant.CreatedAt,
		})
	}

	if result.Created {
		fmt.Printf("Tenant created: %s (%s)\n", tenant.ExternalIdentity, tenant.ID)
	} else {
		fmt.Printf("Tenant already registered: %s (%s)\n", tenant.ExternalIdentity, tenant.ID)
	}
	return nil
}

func TenantListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all tenants",
		Long:  "List all tenant accounts in the system",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runTenantList(outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runTenantList(outputFormat string) error {
	ctx := context.Background()

	pool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	tenantSvc := service.NewTenantService(repository.NewTenantRepository(pool))

	tenants, err := tenantSvc.List(ctx, domain.ServiceIdentity())
	if err != nil {
		return fmt.Errorf("failed to list tenants: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]any, len(tenants))
		for i, tenant := range tenants {
			data[i] = map[string]any{
				"id":                tenant.ID,
				"external_identity": tenant.ExternalIdentity,
				"email":             tenant.Email,
				"display_name":      tenant.DisplayName,
				"course_tag":        tenant.CourseTag,
				"onboarding_state":  tenant.Onboarding,
				"created_at":        tenant.CreatedAt,
			}
		}
		return printJSON(data)
	}

	if len(tenants) == 0 {
		fmt.Println("No tenants found")
		return nil
	}
	fmt.Println("Tenants:")
	for _, tenant := range tenants {
		course := "-"
		if tenant.CourseTag != nil {
			course = *tenant.CourseTag
		}
		fmt.Printf("  %s: %s (course: %s, created: %s)\n",
			tenant.ID, tenant.ExternalIdentity, course, tenant.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// openPool loads configuration and connects to the database for a
// one-shot admin command. The caller owns the returned pool.
func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return database.Connect(ctx, cfg.DatabaseURL)
}

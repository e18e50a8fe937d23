package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/studyhall-hq/studyhall/internal/domain"
	"github.com/studyhall-hq/studyhall/internal/pagination"
	"github.com/studyhall-hq/studyhall/internal/repository"
	"github.com/studyhall-hq/studyhall/internal/service"
)

// resolveTenantID accepts either a tenant UUID or an external identity.
// UUIDs are tried first so the lookup stays unambiguous.
func resolveTenantID(ctx context.Context, tenants *repository.TenantRepository, ref string) (string, error) {
	if _, err := uuid.Parse(ref); err == nil {
		tenant, err := tenants.GetByID(ctx, ref)
		if err != nil {
			return "", fmt.Errorf("tenant not found: %s", ref)
		}
		return tenant.ID, nil
	}

	tenant, err := tenants.GetByExternalIdentity(ctx, ref)
	if errors.Is(err, domain.ErrTenantNotFound) {
		return "", fmt.Errorf("tenant not found: %s", ref)
	}
	if err != nil {
		return "", err
	}
	return tenant.ID, nil
}

func APIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
		Long:  "Issue, list, and revoke tenant and service keys",
	}
	cmd.AddCommand(APIKeyCreateCmd(), APIKeyListCmd(), APIKeyRevokeCmd())
	return cmd
}

func APIKeyCreateCmd() *cobra.Command {
	var (
		tenantRef  string
		name       string
		serviceKey bool
		output     string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a new API key",
		Long:  "Issue a key bound to a tenant, or a service key with --service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAPIKeyCreate(tenantRef, name, output, serviceKey)
		},
	}

	cmd.Flags().StringVarP(&tenantRef, "tenant", "t", "", "Tenant ID or external identity")
	cmd.Flags().StringVarP(&name, "name", "n", "", "API key name (required)")
	cmd.Flags().BoolVar(&serviceKey, "service", false, "Create a service key instead of a tenant key")
	cmd.Flags().StringVar(&output, "output", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("name")

	return cmd
}

type createdKeyOutput struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	TenantID string `json:"tenant_id,omitempty"`
	Token    string `json:"token"`
}

func runAPIKeyCreate(tenantRef, name, output string, serviceKey bool) error {
	if !serviceKey && tenantRef == "" {
		return fmt.Errorf("either --tenant or --service is required")
	}

	ctx := context.Background()
	pool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	tenantRepo := repository.NewTenantRepository(pool)
	authSvc := service.NewAuthService(tenantRepo, repository.NewAPIKeyRepository(pool), &service.DefaultUUIDGenerator{})

	out := createdKeyOutput{Name: name, Role: string(domain.KeyRoleService)}
	if serviceKey {
		out.Token, err = authSvc.CreateServiceKey(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to create service key: %w", err)
		}
	} else {
		out.TenantID, err = resolveTenantID(ctx, tenantRepo, tenantRef)
		if err != nil {
			return err
		}
		out.Role = string(domain.KeyRoleTenant)
		out.Token, err = authSvc.CreateTenantKey(ctx, out.TenantID, name)
		if err != nil {
			return fmt.Errorf("failed to create API key: %w", err)
		}
	}

	if output == "json" {
		return printJSON(out)
	}

	if out.TenantID != "" {
		fmt.Printf("API key created for tenant %s\n", out.TenantID)
	} else {
		fmt.Println("Service key created")
	}
	fmt.Printf("Key Name: %s\n", name)
	fmt.Printf("Token: %s\n", out.Token)
	fmt.Println("\n⚠️  Store this token somewhere safe. It cannot be shown again.")
	return nil
}

func APIKeyListCmd() *cobra.Command {
	var (
		tenantRef string
		output    string
		limit     int
		cursor    string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a tenant's API keys",
		Long:  "List every key issued to a tenant, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAPIKeyList(tenantRef, output, limit, cursor)
		},
	}

	cmd.Flags().StringVarP(&tenantRef, "tenant", "t", "", "Tenant ID or external identity (required)")
	cmd.Flags().StringVar(&output, "output", "text", "Output format (text or json)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Page size")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Resume listing from this cursor")
	cmd.MarkFlagRequired("tenant")

	return cmd
}

type listedKey struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	TenantID  *string        `json:"tenant_id"`
	Role      domain.KeyRole `json:"role"`
	CreatedAt time.Time      `json:"created_at"`
	RevokedAt *time.Time     `json:"revoked_at"`
	Revoked   bool           `json:"revoked"`
}

type keyListOutput struct {
	Items   []listedKey `json:"items"`
	Cursor  string      `json:"cursor"`
	HasMore bool        `json:"has_more"`
}

func runAPIKeyList(tenantRef, output string, limit int, cursorStr string) error {
	ctx := context.Background()

	pool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	tenantID, err := resolveTenantID(ctx, repository.NewTenantRepository(pool), tenantRef)
	if err != nil {
		return err
	}

	cursor, _ := pagination.Decode(cursorStr)
	result, err := repository.NewAPIKeyRepository(pool).ListByTenantWithCursor(ctx, tenantID, cursor, limit)
	if err != nil {
		return fmt.Errorf("failed to list API keys: %w", err)
	}

	if output == "json" {
		page := keyListOutput{
			Items:   make([]listedKey, 0, len(result.Items)),
			Cursor:  result.NextCursor,
			HasMore: result.HasMore,
		}
		for _, key := range result.Items {
			page.Items = append(page.Items, listedKey{
				ID:        key.ID,
				Name:      key.Name,
				TenantID:  key.TenantID,
				Role:      key.Role,
				CreatedAt: key.CreatedAt,
				RevokedAt: key.RevokedAt,
				Revoked:   key.IsRevoked(),
			})
		}
		return printJSON(page)
	}

	if len(result.Items) == 0 {
		fmt.Printf("No API keys found for tenant %s\n", tenantID)
		return nil
	}
	fmt.Printf("API keys for tenant %s:\n", tenantID)
	for _, key := range result.Items {
		status := "active"
		if key.IsRevoked() {
			status = "revoked"
		}
		fmt.Printf("  %s: %s (%s, created: %s)\n", key.ID, key.Name, status, key.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	if result.HasMore && result.NextCursor != "" {
		fmt.Printf("\nMore results available. Use --cursor %s\n", result.NextCursor)
	}
	return nil
}

func APIKeyRevokeCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Long:  "Revoke the key with the given ID so it no longer authenticates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAPIKeyRevoke(args[0], output)
		},
	}

	cmd.Flags().StringVar(&output, "output", "text", "Output format (text or json)")

	return cmd
}

func runAPIKeyRevoke(keyID, output string) error {
	ctx := context.Background()

	pool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := repository.NewAPIKeyRepository(pool).Revoke(ctx, keyID); err != nil {
		return fmt.Errorf("failed to revoke API key: %w", err)
	}

	if output == "json" {
		return printJSON(map[string]any{
			"id":      keyID,
			"revoked": true,
		})
	}
	fmt.Printf("API key %s revoked\n", keyID)
	return nil
}

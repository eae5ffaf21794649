package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hongminglow/deepsea-be/internal/auth"
	"github.com/hongminglow/deepsea-be/internal/models"
	"github.com/hongminglow/deepsea-be/internal/storage"
)

type adminOptions struct {
	Username string
	Password string
	Email    string
	Role     string
}

func (o *adminOptions) applyEnv() {
	fill := func(dst *string, key, def string) {
		if *dst != "" {
			return
		}
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
			return
		}
		*dst = def
	}
	fill(&o.Username, "ADMIN_USERNAME", "admin")
	fill(&o.Password, "ADMIN_PASSWORD", "")
	fill(&o.Role, "ADMIN_ROLE", models.DefaultAdminRole)
	fill(&o.Email, "ADMIN_EMAIL", o.Username+"@deepsea.local")
}

func (o adminOptions) validate() error {
	var problems []string
	if o.Username == "" {
		problems = append(problems, "username is required")
	}
	if len(o.Password) < 6 {
		problems = append(problems, "password is required (at least 6 characters); set --password or ADMIN_PASSWORD")
	}
	if o.Role == "" {
		problems = append(problems, "role is required")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// seedPermissions upserts the full permission catalogue.
func seedPermissions(ctx context.Context, store storage.AdminBootstrap) (int, error) {
	n, err := store.UpsertPermissions(ctx, auth.AllPermissions)
	if err != nil {
		return 0, fmt.Errorf("seed permissions: %w", err)
	}
	return n, nil
}

// createAdmin seeds permissions, then upserts the admin and grants it every
// permission through role.
func createAdmin(ctx context.Context, store storage.AdminBootstrap, o adminOptions) (models.User, error) {
	if err := o.validate(); err != nil {
		return models.User{}, err
	}
	if _, err := seedPermissions(ctx, store); err != nil {
		return models.User{}, err
	}
	hash, err := auth.HashPassword(o.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := store.BootstrapAdmin(ctx, models.User{
		Username:     o.Username,
		Email:        o.Email,
		PasswordHash: hash,
		IsActive:     true,
		IsVerified:   true,
	}, o.Role)
	if errors.Is(err, storage.ErrAlreadyExists) {
		return models.User{}, fmt.Errorf("email %s already belongs to another user", o.Email)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("bootstrap admin: %w", err)
	}
	return user, nil
}

func seedPermissionsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-permissions",
		Short: "Insert any missing permission codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			store, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := seedPermissions(ctx, store)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d new permission(s), %d total\n", n, len(auth.AllPermissions))
			return nil
		},
	}
}

func createAdminCmd(g *globals) *cobra.Command {
	var o adminOptions
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create or reset the administrator account",
		Long: `Create or reset the administrator account.

Upserts the user, ensures the role exists, grants it every permission and
assigns it to the user in one transaction. Flags fall back to ADMIN_USERNAME,
ADMIN_PASSWORD, ADMIN_EMAIL and ADMIN_ROLE.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o.applyEnv()
			if err := o.validate(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			store, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			user, err := createAdmin(ctx, store, o)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %q ready (id=%d, role=%s)\n", user.Username, user.ID, o.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&o.Username, "username", "", "admin username (env ADMIN_USERNAME, default admin)")
	cmd.Flags().StringVar(&o.Password, "password", "", "admin password (env ADMIN_PASSWORD, required)")
	cmd.Flags().StringVar(&o.Email, "email", "", "admin email (env ADMIN_EMAIL)")
	cmd.Flags().StringVar(&o.Role, "role", "", "role granted every permission (env ADMIN_ROLE, default admin)")
	return cmd
}

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"barangay/backend/internal/auth"
	"barangay/backend/internal/models"
	"barangay/backend/internal/storage"

	"github.com/spf13/cobra"
)

var (
	userFullName string
	userRole     string
)

func newSeedAdminCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-admin <username> <password>",
		Short: "Create the first super administrator",
		Long: `Create a SUPERADMIN account. Does nothing when the username already exists.

Examples:
  admin seed-admin captain 'a-long-passphrase' --full-name "Kapitan Santos"`,
		Args: cobra.ExactArgs(2),
		RunE: withDeps(func(ctx context.Context, d *deps, args []string) error {
			created, err := createUser(ctx, d, args[0], args[1], userFullName, models.RoleSuperAdmin)
			if errors.Is(err, storage.ErrDuplicate) {
				fmt.Printf("User %s already exists, nothing to do.\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("Super administrator %s created (id %s).\n", created.Username, created.ID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&userFullName, "full-name", "", "Display name shown in audit logs")
	return cmd
}

func newCreateUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-user <username> <password>",
		Short: "Create a portal account",
		Args:  cobra.ExactArgs(2),
		RunE: withDeps(func(ctx context.Context, d *deps, args []string) error {
			role := models.Role(strings.ToUpper(userRole))
			if !role.IsValid() {
				return fmt.Errorf("unknown role %q", userRole)
			}
			created, err := createUser(ctx, d, args[0], args[1], userFullName, role)
			if err != nil {
				return err
			}
			fmt.Printf("User %s (%s) created with id %s.\n", created.Username, created.Role, created.ID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&userFullName, "full-name", "", "Display name shown in audit logs")
	cmd.Flags().StringVar(&userRole, "role", string(models.RoleOfficial), "RESIDENT, OFFICIAL or SUPERADMIN")
	return cmd
}

func createUser(ctx context.Context, d *deps, username, password, fullName string, role models.Role) (*models.User, error) {
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:     strings.TrimSpace(username),
		PasswordHash: hash,
		FullName:     strings.TrimSpace(fullName),
		Role:         role,
	}
	if err := d.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	d.audit.Log(ctx, models.ActionUserCreated, models.CategoryUserManagement, cliActor,
		fmt.Sprintf("Created %s account %q", user.Role, user.Username), models.LogMetadata{UserID: user.ID, Target: user.Username})
	return user, nil
}

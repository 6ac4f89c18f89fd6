package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/pyae198022/ShopHub/internal/auth"
	"github.com/pyae198022/ShopHub/internal/models"
	"github.com/pyae198022/ShopHub/internal/store"
	"github.com/spf13/cobra"
)

var addUserCmd = &cobra.Command{
	Use:   "add-user",
	Short: "Create a customer or admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		admin, _ := cmd.Flags().GetBool("admin")

		_, db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		u, err := addUser(cmd.Context(), db, email, password, admin)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "User '%s' created successfully (role: %s).\n", u.Email, u.Role)
		return nil
	},
}

func init() {
	addUserCmd.Flags().String("email", "", "Email address for the new user")
	addUserCmd.Flags().String("password", "", "Password for the new user")
	addUserCmd.Flags().Bool("admin", false, "Grant the admin role")
	addUserCmd.MarkFlagRequired("email")
	addUserCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(addUserCmd)
}

func addUser(ctx context.Context, db *store.Store, email, password string, admin bool) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &models.User{Email: email, Name: email, Password: hashed, Role: models.RoleCustomer}
	if admin {
		u.Role = models.RoleAdmin
	}
	if err := db.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

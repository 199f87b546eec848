package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"appraisal/internal/domain/auth"
	"appraisal/internal/platform/config"
)

// tokenCmd mints a bearer token. Identity is owned by an external provider
// in production; this exists for local use and operational scripts.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a signed bearer token for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		userID, _ := cmd.Flags().GetString("user")
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if userID == "" {
			return fmt.Errorf("--user is required")
		}
		if !auth.ValidRole(role) {
			return fmt.Errorf("unknown role %q, want one of %v", role, auth.Roles)
		}
		if cfg.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required")
		}
		if ttl <= 0 {
			ttl = cfg.TokenTTL
		}
		token, err := auth.GenerateToken(cfg.JWTSecret, auth.Claims{UserID: userID, RoleName: role}, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("user", "", "user id to embed in the token")
	tokenCmd.Flags().String("role", "employee", "role: employee, manager or hr")
	tokenCmd.Flags().Duration("ttl", 0, "token lifetime, defaults to TOKEN_TTL")
}

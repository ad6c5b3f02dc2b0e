package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/harshitk99/excali-new/internal/config"
	"github.com/harshitk99/excali-new/internal/repositories"
	"github.com/harshitk99/excali-new/internal/utils"
)

var errDenylistDisabled = errors.New("REDIS_ADDR is not set, token revocation is unavailable")

func newTokenCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint or revoke access tokens",
	}
	cmd.AddCommand(newTokenMintCmd(v), newTokenRevokeCmd(v))
	return cmd
}

func newTokenMintCmd(v *viper.Viper) *cobra.Command {
	var (
		userID string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Print a signed token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				return fmt.Errorf("--ttl must be positive, got %s", ttl)
			}
			token, err := utils.GenerateToken(cfg.JWTSecret, userID, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to embed in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newTokenRevokeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <token>",
		Short: "Deny a token until it expires",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			if cfg.RedisAddr == "" {
				return errDenylistDisabled
			}
			token := args[0]
			expiry, err := utils.TokenExpiry(token)
			if err != nil {
				return err
			}
			ttl := time.Until(expiry)
			if ttl <= 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "token already expired")
				return err
			}

			tokens := repositories.NewTokenDenylist(repositories.NewRedisClient(cfg.RedisAddr))
			defer tokens.Close()
			if err := tokens.Revoke(cmd.Context(), token, ttl); err != nil {
				return fmt.Errorf("failed to revoke token: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "revoked until %s\n", expiry.UTC().Format(time.RFC3339))
			return err
		},
	}
}

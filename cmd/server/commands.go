package main

import (
	"fmt"
	"strings"

	"github.com/diewo77/gst-ledger/internal/auth"
	"github.com/diewo77/gst-ledger/internal/db"
	"github.com/diewo77/gst-ledger/internal/gate"
	"github.com/diewo77/gst-ledger/internal/logger"
	"github.com/diewo77/gst-ledger/internal/services"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		dbConn, err := connect()
		if err != nil {
			return err
		}
		if err := migrateDB(dbConn, dir); err != nil {
			return err
		}
		log := logger.WithComponent("db")
		log.Info().Msg("migrations completed successfully")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the demo organization, GSTIN profiles and clients",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbConn, err := connect()
		if err != nil {
			return err
		}
		if err := db.Seed(dbConn); err != nil {
			return err
		}
		log := logger.WithComponent("db")
		log.Info().Msg("seeding completed successfully")
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep-overdue",
	Short: "Mark PENDING invoices past their due date as OVERDUE once",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbConn, err := connect()
		if err != nil {
			return err
		}
		sweeper := services.NewOverdueSweeper(dbConn, services.WithLocation(cfg.Ledger.Location()))
		n, err := sweeper.Sweep(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d invoice(s) marked overdue\n", n)
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for an organization user",
	Example: `  # full access for user 1 of organization 1
  gst-ledger token --org 1 --user 1

  # read-only access
  gst-ledger token --org 1 --user 2 --caps invoice:view,invoice:list,payment:list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		org, _ := cmd.Flags().GetUint("org")
		user, _ := cmd.Flags().GetUint("user")
		caps, _ := cmd.Flags().GetString("caps")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		tokens, err := auth.NewTokens(secretOr(cfg.Auth.JWTSecret, devJWTSecret, "JWT_SECRET"), cfg.Auth.Issuer, ttl)
		if err != nil {
			return err
		}
		raw, err := tokens.Issue(auth.Principal{
			Subject:      auth.Subject{OrganizationID: org, UserID: user},
			Capabilities: gate.ParseCapabilities(strings.Split(caps, ",")),
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), raw)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd, seedCmd, sweepCmd, tokenCmd)

	migrateCmd.Flags().String("dir", db.DefaultMigrationsDir, "Directory of the versioned SQL migrations")

	tokenCmd.Flags().Uint("org", 0, "Organization id")
	tokenCmd.Flags().Uint("user", 0, "User id")
	tokenCmd.Flags().String("caps", string(gate.PermissionAll), "Comma-separated capabilities (resource:action)")
	tokenCmd.Flags().Duration("ttl", auth.DefaultTokenTTL, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("org")
	_ = tokenCmd.MarkFlagRequired("user")
}

// Command deepseactl runs migrations and seeds the permission catalogue and
// the first administrator.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hongminglow/deepsea-be/internal/config"
	"github.com/hongminglow/deepsea-be/internal/storage/postgres"
)

const commandTimeout = time.Minute

// globals are resolved once in PersistentPreRunE.
type globals struct {
	databaseURL string
	logger      *slog.Logger
}

func main() {
	_ = godotenv.Load()

	g := &globals{}
	rootCmd := &cobra.Command{
		Use:           "deepseactl",
		Short:         "Administer the deepsea directory backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.resolve(cmd)
		},
	}
	rootCmd.PersistentFlags().StringVar(&g.databaseURL, "database-url", "", "Postgres URL (default: DATABASE_URL or DB_* settings)")

	rootCmd.AddCommand(
		migrateCmd(g),
		seedPermissionsCmd(g),
		createAdminCmd(g),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func (g *globals) resolve(cmd *cobra.Command) error {
	cfg, err := config.LoadUnvalidated()
	if err != nil {
		return err
	}
	g.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelInfo}))
	if g.databaseURL == "" {
		g.databaseURL = cfg.DatabaseURL()
	}
	return nil
}

func (g *globals) open(ctx context.Context) (*postgres.Store, error) {
	return postgres.Open(ctx, g.databaseURL, postgres.Options{MaxConns: 2, AcquireTimeout: 5 * time.Second})
}

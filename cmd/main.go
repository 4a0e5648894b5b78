package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Maahivarma/Exam-portal/internal/auth"
	"github.com/Maahivarma/Exam-portal/internal/config"
	"github.com/Maahivarma/Exam-portal/internal/server"
	"github.com/Maahivarma/Exam-portal/internal/store/postgres"
	"github.com/Maahivarma/Exam-portal/internal/telemetry"
)

var rootCmd = &cobra.Command{
	Use:          "exam-portal",
	Short:        "Timed assessment platform with AI question generation",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and gRPC servers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, os.Interrupt)
		defer stop()

		s, err := server.Init(ctx, c)
		if err != nil {
			return err
		}

		errc := make(chan error, 1)
		go func() { errc <- s.Start(ctx) }()

		select {
		case <-ctx.Done():
		case err = <-errc:
		}

		s.Shutdown()
		return err
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the postgres schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		st, err := postgres.Connect(ctx, c.Postgres)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		if seed, _ := cmd.Flags().GetBool("seed"); seed {
			return st.Seed(ctx)
		}
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Mint a bearer token for the HR endpoints",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		a, err := auth.New(c.Auth)
		if err != nil {
			return err
		}

		role, _ := cmd.Flags().GetString("role")
		tok, err := a.Mint(args[0], role)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the config file (overrides CONFIG_PATH env var)")

	migrateCmd.Flags().Bool("seed", false, "Also load the demo companies and tests")
	tokenCmd.Flags().String("role", auth.RoleHR, "Role claim of the token")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// loadConfig reads the file named by --config, then CONFIG_PATH. Without either, defaults and env apply.
func loadConfig(cmd *cobra.Command) (server.Config, error) {
	c := server.DefaultConfig()

	p, _ := cmd.Flags().GetString("config")
	if p == "" {
		p = os.Getenv("CONFIG_PATH")
	}

	if err := config.Load(p, &c); err != nil {
		return c, fmt.Errorf("load config: %w", err)
	}

	if err := telemetry.SetupLogger(c.Log); err != nil {
		return c, fmt.Errorf("setup logger: %w", err)
	}

	return c, nil
}

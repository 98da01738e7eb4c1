package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dropDatabas3/widgetauth/internal/bootstrap"
	"github.com/dropDatabas3/widgetauth/internal/config"
	"github.com/dropDatabas3/widgetauth/internal/http/server"
	"github.com/dropDatabas3/widgetauth/internal/observability/logger"
	"github.com/dropDatabas3/widgetauth/internal/security/password"
	"github.com/dropDatabas3/widgetauth/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version se setea con -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}

	var (
		configPath = envOr("WIDGETAUTH_CONFIG", "config.yaml")
		driver     string
	)

	root := &cobra.Command{
		Use:           "widgetauth",
		Short:         "Servidor OAuth2 (implicit + client_credentials) para widgets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", configPath, "archivo YAML de configuración (env WIDGETAUTH_CONFIG)")
	root.PersistentFlags().StringVar(&driver, "store", "", "driver del store: remote | memory (pisa store.driver)")

	load := func() (*config.Config, error) {
		if driver != "" {
			os.Setenv("WIDGETAUTH_STORE_DRIVER", driver)
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "widgetauth"})
		return cfg, nil
	}

	// serve
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := server.BuildHandler(ctx, cfg, server.Options{Version: version})
			if err != nil {
				return fmt.Errorf("wiring: %w", err)
			}
			defer app.Close()

			// el store en memoria arranca vacío: se siembra con los datos de bootstrap
			if cfg.Store.Driver == "memory" {
				if _, err := seed(ctx, cfg, app.Store); err != nil {
					return err
				}
			}

			logger.L().Info("widgetauth listening",
				logger.String("addr", cfg.Server.Addr),
				logger.String("store", cfg.Store.Driver),
				logger.String("cache", cfg.Cache.Kind),
				logger.String("version", version))
			return server.Run(ctx, cfg.Server.Addr, app.Handler, cfg.Server.ShutdownTimeout)
		},
	}

	// seed
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Crea la cuenta root y el cliente site si no existen",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			st, err := server.OpenStore(ctx, cfg)
			if err != nil {
				return err
			}
			res, err := seed(ctx, cfg, st)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "root: %s\nsite: %s\n",
				outcome(res.RootCreated, res.RootExists), outcome(res.SiteCreated, res.SiteExists))
			return nil
		},
	}

	// hash
	hashCmd := &cobra.Command{
		Use:   "hash <secret>",
		Short: "Imprime el hash argon2id de un secreto (para cargar cuentas/clientes a mano)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := password.Hash(password.Default, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}

	// version
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Imprime la versión",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	root.AddCommand(serveCmd, seedCmd, hashCmd, versionCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

func seed(ctx context.Context, cfg *config.Config, st store.Store) (bootstrap.Result, error) {
	b := cfg.Bootstrap
	return bootstrap.Seed(ctx, store.NewAccounts(st), store.NewClients(st), bootstrap.Config{
		RootUsername: b.RootUsername,
		RootPassword: b.RootPassword,
		SiteKey:      b.SiteKey,
		SiteSecret:   b.SiteSecret,
		SiteRedirect: b.SiteRedirect,
	})
}

func outcome(created, exists bool) string {
	switch {
	case created:
		return "created"
	case exists:
		return "exists"
	default:
		return "skipped"
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/printdesk/internal/app"
	"github.com/dropDatabas3/printdesk/internal/bootstrap"
	"github.com/dropDatabas3/printdesk/internal/config"
	"github.com/dropDatabas3/printdesk/internal/observability/logger"
	"github.com/dropDatabas3/printdesk/internal/security/password"
	"github.com/dropDatabas3/printdesk/internal/setup"
)

// version se pisa con -ldflags "-X main.version=..."
var version = "dev"

func main() {
	var (
		cfgPath = envOr("CONFIG_PATH", "")
		cfg     *config.Config
	)

	root := &cobra.Command{
		Use:           "printdesk",
		Short:         "Backend de PrintDesk (auth, staff y provisioning del admin)",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			c, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if c.App.Version == "" {
				c.App.Version = version
			}
			logger.Init(logger.Config{
				Env:         c.App.Env,
				Level:       c.Log.Level,
				ServiceName: c.App.Name,
				Version:     c.App.Version,
			})
			cfg = c
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", cfgPath, "Archivo YAML de configuración (env CONFIG_PATH)")

	root.AddCommand(
		serveCmd(&cfg),
		provisionCmd(&cfg),
		migrateCmd(&cfg),
		versionCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func serveCmd(cfg **config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP (dispara el setup si está habilitado)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := *cfg
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			log := logger.L()

			a, err := app.Build(ctx, c)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					log.Warn("cleanup failed", logger.Err(err))
				}
			}()

			if a.Trigger != nil {
				a.Trigger.Fire(ctx)
			}

			srv := &http.Server{
				Addr:              c.Server.Addr,
				Handler:           a.Handler,
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("server listening", logger.String("addr", c.Server.Addr), logger.Driver(a.Store.Name()))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			log.Info("shutting down")
			sctx, cancel := context.WithTimeout(context.Background(), config.Duration(c.Server.ShutdownTimeout, 15*time.Second))
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				log.Warn("graceful shutdown failed", logger.Err(err))
			}
			if a.Trigger != nil && a.Trigger.State().Phase == setup.PhaseRunning {
				if _, err := a.Trigger.Wait(sctx); err != nil {
					log.Warn("setup still running at shutdown", logger.Err(err))
				}
			}
			return nil
		},
	}
}

func provisionCmd(cfg **config.Config) *cobra.Command {
	var (
		email        string
		fullName     string
		prompt       bool
		noRepair     bool
		noFinalCheck bool
	)
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Asegura el admin por defecto de forma sincrónica e imprime el resultado",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := *cfg
			ctx := cmd.Context()

			if email != "" {
				c.Setup.AdminEmail = email
			}
			if fullName != "" {
				c.Setup.AdminFullName = fullName
			}
			if noRepair {
				off := false
				c.Setup.RepairPassword = &off
			}
			if noFinalCheck {
				off := false
				c.Setup.FinalCheck = &off
			}
			if prompt {
				pp := c.Security.PasswordPolicy
				e, p, err := bootstrap.Prompt{
					Out: cmd.ErrOrStderr(),
					Policy: password.Policy{
						MinLength:     pp.MinLength,
						RequireUpper:  pp.RequireUpper,
						RequireLower:  pp.RequireLower,
						RequireDigit:  pp.RequireDigit,
						RequireSymbol: pp.RequireSymbol,
					},
				}.AdminCredentials(c.Setup.AdminEmail)
				if err != nil {
					return err
				}
				c.Setup.AdminEmail, c.Setup.AdminPassword = e, p
			}
			if strings.TrimSpace(c.Setup.AdminEmail) == "" || c.Setup.AdminPassword == "" {
				return errors.New("admin email and password are required (setup.admin_email/SETUP_ADMIN_EMAIL, SETUP_ADMIN_PASSWORD or --prompt-password)")
			}

			conn, err := app.OpenStore(ctx, c)
			if err != nil {
				return err
			}
			defer conn.Close()

			trigger := setup.NewTrigger(app.NewProvisioner(c, conn, nil), setup.Config{
				Input:     app.ProvisionInput(c),
				Timeout:   config.Duration(c.Setup.Timeout, 30*time.Second),
				Notifiers: app.Notifiers(ctx, c),
			})
			st, err := trigger.Run(ctx)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(st.Outcome); err != nil {
				return err
			}
			if st.Outcome == nil || !st.Outcome.Success {
				return errors.New("provisioning failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email del admin (pisa setup.admin_email)")
	cmd.Flags().StringVar(&fullName, "full-name", "", "Nombre del admin (pisa setup.admin_full_name)")
	cmd.Flags().BoolVar(&prompt, "prompt-password", false, "Pedir el password por terminal en vez de leerlo de config")
	cmd.Flags().BoolVar(&noRepair, "no-repair", false, "No reparar el password de una cuenta existente")
	cmd.Flags().BoolVar(&noFinalCheck, "no-final-check", false, "Omitir el login de verificación final")
	return cmd
}

func migrateCmd(cfg **config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones SQL embebidas (driver postgres)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := *cfg
			ctx := cmd.Context()

			conn, err := app.OpenStore(ctx, c)
			if err != nil {
				return err
			}
			defer conn.Close()

			res, err := app.Migrate(ctx, conn)
			if errors.Is(err, app.ErrNotMigratable) {
				fmt.Fprintf(cmd.OutOrStdout(), "driver %s has no migrations\n", conn.Name())
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied=%d skipped=%d duration=%s\n", len(res.Applied), len(res.Skipped), res.Duration)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Imprime la versión",
		// sin config: no pasa por PersistentPreRunE
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

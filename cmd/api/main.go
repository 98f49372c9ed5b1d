package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medivault/internal/adapters/auth/jwt"
	"medivault/internal/adapters/auth/remote"
	"medivault/internal/adapters/delivery/devlog"
	"medivault/internal/adapters/delivery/sendgrid"
	"medivault/internal/adapters/delivery/twilio"
	pg "medivault/internal/adapters/storage/postgres"
	"medivault/internal/config"
	"medivault/internal/domain/otp"
	"medivault/internal/platform/logger"
	"medivault/internal/ports/auth"
	"medivault/internal/router"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

//	@title						MediVault API
//	@version					1.0
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
func main() {
	rootCmd := &cobra.Command{
		Use:           "medivault",
		Short:         "MediVault record-access API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before the environment")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, logger.Logger, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(logger.Options{
		Level:  cfg.LogLevel,
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})
	return cfg, log, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, log)
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		p, err := pg.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return err
		}
		defer p.Close()
		pool = p

		if cfg.DBAutoMigrate {
			applied, err := pg.Migrate(ctx, pool)
			if err != nil {
				return err
			}
			log.Info("migrations applied", map[string]any{"applied": applied})
		}
	} else {
		log.Warn("DATABASE_URL empty, using in-memory stores", nil)
	}

	verifier, err := newVerifier(cfg)
	if err != nil {
		return err
	}
	sender, err := newSender(cfg, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: router.NewRouter(router.Options{
			AuthVerifier:     verifier,
			Pool:             pool,
			Sender:           sender,
			Logger:           log,
			OTPTTL:           cfg.OTPTTL,
			OTPMaxAttempts:   cfg.OTPMaxAttempts,
			OTPAttemptWindow: cfg.OTPAttemptWindow,
			GrantTTL:         cfg.AccessGrantTTL,
		}),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{
			"addr":     srv.Addr,
			"env":      cfg.Env,
			"auth":     cfg.AuthMode,
			"delivery": cfg.DeliveryChannel,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// nil => modo dev (headers X-Debug-*); config ya validó que ENV=development.
func newVerifier(cfg *config.Config) (auth.AuthVerifier, error) {
	switch cfg.AuthMode {
	case config.AuthModeJWT:
		return jwt.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	case config.AuthModeRemote:
		return remote.NewVerifier(remote.Config{
			BaseURL: cfg.AuthServiceURL,
			APIKey:  cfg.AuthServiceAPIKey,
		})
	default:
		return nil, nil
	}
}

func newSender(cfg *config.Config, log logger.Logger) (otp.Sender, error) {
	switch cfg.DeliveryChannel {
	case config.ChannelEmail:
		return sendgrid.New(sendgrid.Config{
			APIKey:    cfg.SendGridAPIKey,
			BaseURL:   cfg.SendGridBaseURL,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		})
	case config.ChannelSMS:
		return twilio.New(twilio.Config{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			From:       cfg.TwilioFrom,
		})
	default:
		return devlog.New(log), nil
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required for migrate")
			}

			ctx := cmd.Context()
			pool, err := pg.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := pg.Migrate(ctx, pool)
			if err != nil {
				return err
			}
			log.Info("migrations applied", map[string]any{"applied": applied})
			return nil
		},
	}
}

// tokenCmd firma un JWT con JWT_SECRET para probar AUTH_MODE=jwt en local.
func tokenCmd() *cobra.Command {
	var (
		userID string
		email  string
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a development JWT",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !auth.Role(role).Valid() {
				return fmt.Errorf("unknown role %q", role)
			}
			v, err := jwt.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
			if err != nil {
				return err
			}
			tok, err := v.Sign(auth.Claims{UserID: userID, Email: email, Role: auth.Role(role)}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "subject (user id)")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&role, "role", string(auth.RolePatient), "patient|doctor|hospital_admin")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

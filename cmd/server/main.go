package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aimtrainer/backend/internal/auth"
	"aimtrainer/backend/internal/config"
	"aimtrainer/backend/internal/database"
	"aimtrainer/backend/internal/handler"
	"aimtrainer/backend/internal/hub"
	"aimtrainer/backend/internal/logging"
	"aimtrainer/backend/internal/party"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	// Swagger imports
	_ "aimtrainer/backend/docs" // This is important for swag to find the generated docs
)

const shutdownTimeout = 5 * time.Second

// @title           Aim Trainer API
// @version         1.0
// @description     REST surface of the aim trainer party service. Live party traffic runs over the /ws websocket.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := newCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, eris.ToString(err, false))
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Party coordination server for the aim trainer.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.BindFlags(v, cmd.Flags()); err != nil {
				return err
			}
			cfg, err := config.LoadConfig(v, ".")
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, v.ConfigFileUsed())
		},
	}

	fs := cmd.Flags()
	fs.StringP("bind", "b", "0.0.0.0", "address to bind to (env: BIND)")
	fs.IntP("port", "p", 8080, "port to listen on (env: PORT)")
	fs.String("log-level", "info", "debug, info, warn or error (env: LOG_LEVEL)")
	fs.String("log-format", "json", "json or pretty (env: LOG_FORMAT)")
	fs.String("database-url", "", "postgres DSN; results and accounts are disabled without one (env: DATABASE_URL)")
	fs.String("jwt-secret", "", "secret used to sign and verify tokens (env: JWT_SECRET)")
	fs.Duration("disconnect-grace", 30*time.Second, "how long a dropped member keeps their seat (env: DISCONNECT_GRACE)")
	fs.Duration("spectator-delay", 2*time.Second, "delay applied to game updates sent to spectators (env: SPECTATOR_DELAY)")

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}

func serve(ctx context.Context, cfg *config.Config, configFile string) error {
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if configFile == "" {
		log.Warn().Msg("no .env file found, using environment variables and flags")
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	resolver := auth.IdentityResolver{Secret: cfg.JWTSecret}
	var store party.ResultStore = party.NopStore{}
	var results *database.ResultRepository

	if cfg.DatabaseURL != "" {
		if err := database.Connect(cfg.DatabaseURL, log); err != nil {
			return err
		}
		results = database.NewResultRepository(database.DB)
		store = results
		resolver.Lookup = lookupUser
	} else {
		log.Warn().Msg("DATABASE_URL not set, accounts and result history are disabled")
	}

	h := hub.NewHub(log)
	engine := party.NewEngine(h,
		party.WithSettings(party.Settings{
			DisconnectGrace:           cfg.DisconnectGrace,
			CountdownSeconds:          cfg.CountdownSeconds,
			ChallengeCountdownSeconds: cfg.ChallengeCountdownSeconds,
			SpectatorDelay:            cfg.SpectatorDelay,
			MaxSpectators:             cfg.MaxSpectators,
		}),
		party.WithStore(store),
		party.WithLogger(log),
	)
	defer engine.Close()

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: handler.NewRouter(handler.Deps{
			Engine:   engine,
			Hub:      h,
			Resolver: resolver,
			Results:  results,
			Origins:  cfg.Origins(),
			Log:      log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		log.Info().Msgf("Swagger UI is available at http://%s/swagger/index.html", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- eris.Wrap(err, "server stopped")
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "graceful shutdown failed")
	}
	return nil
}

func lookupUser(userID uint) (auth.UserProfile, error) {
	user, err := database.UserProfile(database.DB, userID)
	if err != nil {
		return auth.UserProfile{}, err
	}
	return auth.UserProfile{Nickname: user.Nickname, Level: user.Level}, nil
}

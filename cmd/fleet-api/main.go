package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lagoalabs/aquafleet/internal/cities"
	"github.com/lagoalabs/aquafleet/internal/config"
	"github.com/lagoalabs/aquafleet/internal/database"
	"github.com/lagoalabs/aquafleet/internal/equipment"
	"github.com/lagoalabs/aquafleet/internal/logging"
	"github.com/lagoalabs/aquafleet/internal/models"
	"github.com/lagoalabs/aquafleet/internal/server"
	"github.com/lagoalabs/aquafleet/internal/users"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "fleet-api",
		Short: "Equipment fleet management backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", defaults.GetString("log.format"), "Log format (json, console)")
	cmd.PersistentFlags().Int("store-timeout-seconds", defaults.GetInt("store.timeout_seconds"), "Per-operation store timeout in seconds")
	cmd.PersistentFlags().Int("cache-ttl-seconds", defaults.GetInt("http.cache_ttl_seconds"), "GET response cache TTL in seconds (0 disables)")
	cmd.PersistentFlags().Float64("rate-limit-per-second", defaults.GetFloat64("http.rate_limit_per_second"), "Per-IP request rate limit (0 disables)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.format", "log-format")
	bindFlag(cmd, "store.timeout_seconds", "store-timeout-seconds")
	bindFlag(cmd, "http.cache_ttl_seconds", "cache-ttl-seconds")
	bindFlag(cmd, "http.rate_limit_per_second", "rate-limit-per-second")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}
	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	cityResolver, err := cities.NewResolver(cities.ResolverConfig{
		Database:     db,
		Logger:       logger,
		StoreTimeout: appConfig.StoreTimeout,
	})
	if err != nil {
		return err
	}

	equipmentService, err := equipment.NewService(equipment.ServiceConfig{
		Database:     db,
		Cities:       cityResolver,
		Clock:        time.Now,
		Logger:       logger,
		StoreTimeout: appConfig.StoreTimeout,
	})
	if err != nil {
		return err
	}

	modelService, err := models.NewService(models.ServiceConfig{
		Database:     db,
		Logger:       logger,
		StoreTimeout: appConfig.StoreTimeout,
	})
	if err != nil {
		return err
	}

	userService, err := users.NewService(users.ServiceConfig{
		Database:     db,
		Logger:       logger,
		StoreTimeout: appConfig.StoreTimeout,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Cities:       cityResolver,
		Equipment:    equipmentService,
		Models:       modelService,
		Users:        userService,
		Logger:       logger,
		ListCacheTTL: appConfig.ListCacheTTL,
		RateLimit:    appConfig.RateLimitPerSec,
		RateBurst:    appConfig.RateLimitBurst,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

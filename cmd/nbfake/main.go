package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/neverbounce-go/internal/fakeapi"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("nbfake exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// ── Configuration ─────────────────────────────────────────────────────────
	viper.SetConfigName("nbfake")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("nbfake.port", 8090)
	viper.SetDefault("nbfake.api_key", "test_key")
	viper.SetDefault("nbfake.api_secret", "test_secret")
	viper.SetDefault("nbfake.token_ttl_seconds", 3600)
	viper.SetDefault("nbfake.credits", 1000)
	viper.SetDefault("nbfake.rate_limit_rps", 0)
	viper.SetDefault("nbfake.rate_limit_burst", 0)
	viper.SetDefault("nbfake.debug_routes", false)
	viper.SetDefault("nbfake.expire_every_seconds", 0)

	if err := viper.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgNotFound) {
			return fmt.Errorf("read config: %w", err)
		}
		logger.Warn("no config file found, using defaults and env vars")
	}

	port := viper.GetInt("nbfake.port")
	expireEvery := time.Duration(viper.GetInt("nbfake.expire_every_seconds")) * time.Second

	gin.SetMode(gin.ReleaseMode)
	srv, err := fakeapi.New(fakeapi.Config{
		Credentials: map[string]string{
			viper.GetString("nbfake.api_key"): viper.GetString("nbfake.api_secret"),
		},
		TokenTTL:       time.Duration(viper.GetInt("nbfake.token_ttl_seconds")) * time.Second,
		Credits:        viper.GetInt64("nbfake.credits"),
		RateLimitRPS:   viper.GetInt("nbfake.rate_limit_rps"),
		RateLimitBurst: viper.GetInt("nbfake.rate_limit_burst"),
		DebugRoutes:    viper.GetBool("nbfake.debug_routes"),
	}, logger)
	if err != nil {
		return fmt.Errorf("build fake api: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Periodic key rotation forces clients through the expired-token path.
	if expireEvery > 0 {
		go expireLoop(ctx, srv, expireEvery, logger)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("nbfake listening",
			zap.Int("port", port),
			zap.Duration("expire_every", expireEvery),
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP serve error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ──────────────────────────────────────────────────────
	<-quit
	logger.Info("shutting down nbfake...")
	cancel()

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		logger.Error("HTTP shutdown", zap.Error(err))
	}

	logger.Info("nbfake stopped", zap.Int64("single_checks", srv.SingleChecks()))
	return nil
}

func expireLoop(ctx context.Context, srv *fakeapi.Server, every time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := srv.ExpireTokens(); err != nil {
				logger.Error("expire tokens", zap.Error(err))
				continue
			}
			logger.Info("access tokens expired")
		}
	}
}

// fake-authapi serves the warehouse Auth API from memory for local development.
// Usage: fake-authapi [-addr :8000] [-password secret123]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goGate/internal/fakeapi"
	"github.com/MrEthical07/goGate/internal/rate"
	"github.com/MrEthical07/goGate/session"
)

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	password := flag.String("password", "password123", "password of every seeded account")
	ttl := flag.Duration("token-ttl", 2*time.Hour, "api token lifetime")
	debug := flag.Bool("debug", false, "log every request")
	redisAddr := flag.String("redis-addr", os.Getenv("FAKE_AUTHAPI_REDIS"), "Redis address of the login throttle; empty disables it")
	maxAttempts := flag.Int("max-attempts", 5, "failed logins allowed per minute")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var limiter *rate.Limiter
	if *redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
		defer rdb.Close()
		limiter = rate.New(rdb, rate.Config{MaxAttempts: *maxAttempts, Cooldown: time.Minute, EnableIPThrottle: true, Prefix: "fake-authapi"})
	}

	if err := run(*addr, *password, *ttl, limiter, logger); err != nil {
		logger.Error("fake-authapi stopped", "error", err)
		os.Exit(1)
	}
}

func run(addr, password string, ttl time.Duration, limiter *rate.Limiter, logger *slog.Logger) error {
	secret := []byte(os.Getenv("FAKE_AUTHAPI_SECRET"))
	if len(secret) == 0 {
		secret = []byte("fake-authapi-development-secret")
	}

	api, err := fakeapi.New(fakeapi.Config{Secret: secret, TokenTTL: ttl, Issuer: "fake-authapi", Logger: logger, Limiter: limiter})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	if err := seed(api, password, logger); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           api,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func seed(api *fakeapi.Server, password string, logger *slog.Logger) error {
	verified := &session.Timestamp{Time: time.Now().UTC().Add(-24 * time.Hour)}
	users := []session.User{
		{Name: "Ada", Surname: "Admin", Email: "admin@wms.test", EmailVerifiedAt: verified, IsSuperAdmin: true, HasProduction: true, Permissions: []string{"*"}},
		{Name: "Wes", Surname: "Lead", Email: "lead@wms.test", EmailVerifiedAt: verified, IsWarehouseAdmin: true, IsWarehouseOperator: true, Permissions: []string{"view.rfid.*", "view.batch-picking"}},
		{Name: "Otto", Surname: "Operator", Email: "operator@wms.test", EmailVerifiedAt: verified, IsWarehouseOperator: true},
		{Name: "Nina", Surname: "New", Email: "new@wms.test", IsWarehouseAdmin: true},
	}
	for _, u := range users {
		stored, err := api.AddUser(u, password)
		if err != nil {
			return fmt.Errorf("seeding %s: %w", u.Email, err)
		}
		logger.Info("seeded account", "id", stored.ID, "email", stored.Email)
	}
	return nil
}

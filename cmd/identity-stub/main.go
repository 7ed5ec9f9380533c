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

	"github.com/google/uuid"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/MrEthical07/goSession/internal/identitystub"
	"github.com/MrEthical07/goSession/jwt"
)

type config struct {
	Addr       string        `yaml:"addr" env:"STUB_ADDR" env-default:":8000"`
	SigningKey string        `yaml:"signing_key" env:"STUB_SIGNING_KEY" env-default:"identity-stub-dev-signing-key"`
	AccessTTL  time.Duration `yaml:"access_ttl" env:"STUB_ACCESS_TTL" env-default:"5m"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" env:"STUB_REFRESH_TTL" env-default:"24h"`
	UserEmail  string        `yaml:"user_email" env:"STUB_USER_EMAIL" env-default:"john@mail.com"`
	UserName   string        `yaml:"user_name" env:"STUB_USER_NAME" env-default:"John"`
	UserPass   string        `yaml:"user_password" env:"STUB_USER_PASSWORD" env-default:"1234"`
}

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(slog.String("component", "identity-stub"))

	var cfg config
	var err error
	if *configPath != "" {
		err = cleanenv.ReadConfig(*configPath, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	iss, err := jwt.NewIssuer(jwt.IssuerConfig{
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte(cfg.SigningKey),
		Issuer:        "identity-stub",
	}, uuid.NewString)
	if err != nil {
		logger.Error("issuer setup failed", slog.Any("error", err))
		os.Exit(1)
	}

	stub, err := identitystub.New(identitystub.Options{
		Issuer: iss,
		Logger: logger,
		Users: []identitystub.User{{
			ID:       uuid.NewString(),
			Name:     cfg.UserName,
			Email:    cfg.UserEmail,
			Password: cfg.UserPass,
		}},
	})
	if err != nil {
		logger.Error("stub setup failed", slog.Any("error", err))
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           stub.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("identity stub listening", slog.String("addr", cfg.Addr), slog.String("user", cfg.UserEmail))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", slog.Any("error", err))
	}
}

package main

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/nerrad567/preflight/internal/api"
	"github.com/nerrad567/preflight/internal/infrastructure/config"
)

const defaultTokenTTL = 24 * time.Hour

// runToken prints a bearer token for the API, signed with the configured
// JWT secret.
//
//	preflight token [-config path] [-subject name] [-ttl 24h]
func runToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(out)
	configPath := fs.String("config", config.Path(), "config file")
	subject := fs.String("subject", "operator", "token subject")
	ttl := fs.Duration("ttl", defaultTokenTTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Security.JWT.Secret == "" {
		return fmt.Errorf("security.jwt.secret is not set")
	}

	token, err := api.NewToken(cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer, *subject, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}

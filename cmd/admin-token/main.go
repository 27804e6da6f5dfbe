package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"token-metadata.backend/internal/config"
	"token-metadata.backend/pkg/jwt"
)

type adminTokenDeps struct {
	loadEnv func() error
	loadCfg func() *config.Config
	now     func() time.Time
	out     io.Writer
}

func defaultAdminTokenDeps() adminTokenDeps {
	return adminTokenDeps{
		loadEnv: func() error { return godotenv.Load() },
		loadCfg: config.Load,
		now:     time.Now,
		out:     os.Stdout,
	}
}

func resolveSubject(input string, now time.Time) string {
	if input != "" {
		return input
	}
	return fmt.Sprintf("ops-%s", now.Format("20060102-150405"))
}

func runAdminToken(args []string, deps adminTokenDeps) error {
	def := defaultAdminTokenDeps()
	if deps.loadEnv == nil {
		deps.loadEnv = def.loadEnv
	}
	if deps.loadCfg == nil {
		deps.loadCfg = def.loadCfg
	}
	if deps.now == nil {
		deps.now = def.now
	}
	if deps.out == nil {
		deps.out = def.out
	}

	fs := flag.NewFlagSet("admin-token", flag.ContinueOnError)
	subjectFlag := fs.String("subject", "", "operator name recorded in the token (optional)")
	ttlFlag := fs.Duration("ttl", 0, "token lifetime, defaults to JWT_ACCESS_EXPIRY")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *ttlFlag < 0 {
		return fmt.Errorf("--ttl must not be negative")
	}

	if err := deps.loadEnv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := deps.loadCfg()
	if cfg.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is not configured")
	}

	ttl := cfg.JWT.AccessExpiry
	if *ttlFlag > 0 {
		ttl = *ttlFlag
	}
	subject := resolveSubject(*subjectFlag, deps.now())

	token, err := jwt.NewJWTService(cfg.JWT.Secret, ttl).GenerateAdminToken(subject)
	if err != nil {
		return fmt.Errorf("failed to sign admin token: %w", err)
	}

	_, _ = fmt.Fprintf(deps.out, "subject=%s\n", subject)
	_, _ = fmt.Fprintf(deps.out, "expires_in=%s\n", ttl)
	_, _ = fmt.Fprintf(deps.out, "ADMIN_TOKEN=%s\n", token)
	return nil
}

func main() {
	if err := runAdminToken(os.Args[1:], defaultAdminTokenDeps()); err != nil {
		log.Fatal(err)
	}
}

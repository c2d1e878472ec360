package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"rollcall/internal/auth"
	"rollcall/internal/config"
)

// issuetoken prints an access token, e.g. for staff using the report endpoints.
func main() {
	subject := flag.String("subject", "", "token subject, e.g. a staff e-mail")
	role := flag.String("role", auth.RoleStaff, "token role: staff or device")
	ttl := flag.Duration("ttl", 12*time.Hour, "access token lifetime")
	flag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "-subject is required")
		os.Exit(2)
	}
	if *role != auth.RoleStaff && *role != auth.RoleDevice {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}

	signer := auth.Signer{Key: cfg.JWTSigningKey, Issuer: cfg.JWTIssuer, AccessTTL: *ttl, RefreshTTL: *ttl}
	tokens, err := signer.Issue(*subject, *role)
	if err != nil {
		slog.Error("token issue failed", "error", err)
		os.Exit(1)
	}
	fmt.Println(tokens.AccessToken)
}

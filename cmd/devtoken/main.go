// Command devtoken mints a bearer token for calling the API locally.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/oauth2"

	"moneycoach/internal/cli"
	"moneycoach/internal/config"
	"moneycoach/internal/middleware/auth"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()

	user := os.Getenv("DEVTOKEN_USER")
	if user == "" {
		user = "dev-user"
	}
	ttl := 24 * time.Hour
	if v := os.Getenv("DEVTOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid DEVTOKEN_TTL %q", v)
		}
		ttl = d
	}
	// Without a file the raw token goes to stdout.
	outFile := os.Getenv("DEVTOKEN_FILE")
	if len(cfg.JWTSecret) < 32 {
		log.Fatalf("AUTH_JWT_SECRET must be set and at least 32 bytes")
	}

	signed, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer, nil).Issue(user, ttl)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}

	if outFile == "" {
		fmt.Println(signed)
		return
	}

	tok := &oauth2.Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(ttl),
	}
	f, err := os.OpenFile(outFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		log.Fatalf("open token file: %v", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		log.Fatalf("write token: %v", err)
	}
	fmt.Printf("Saved token for %s to %s\n", user, outFile)
}

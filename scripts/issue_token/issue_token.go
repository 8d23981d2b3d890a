package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"coldchain/compliance/internal/auth"
	"coldchain/compliance/internal/config"
)

// Issues a bearer token for local testing. Production tokens come from the
// dashboard's identity provider.
func main() {
	sub := flag.String("sub", "", "token subject, e.g. ops@example.com")
	role := flag.String("role", "staff", "admin, staff or customer")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	token, err := auth.NewJWT([]byte(cfg.JWTSecret)).GenerateToken(*sub, auth.Role(*role), *ttl)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token)
}

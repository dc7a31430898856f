// Command callertoken mints caller bearer tokens for the task API. The
// secret must match the server's AUTH_SECRET.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"mediacore/internal/middleware"
)

func main() {
	var (
		callerFlag string
		secretFlag string
		ttlFlag    time.Duration
	)
	flag.StringVar(&callerFlag, "caller", "", "caller id to embed in the token")
	flag.StringVar(&secretFlag, "secret", "", "signing secret (falls back to AUTH_SECRET)")
	flag.DurationVar(&ttlFlag, "ttl", 30*24*time.Hour, "token lifetime")
	flag.Parse()

	callerID := strings.TrimSpace(callerFlag)
	if callerID == "" {
		fmt.Fprintln(os.Stderr, "-caller is required")
		os.Exit(1)
	}
	secret := strings.TrimSpace(secretFlag)
	if secret == "" {
		secret = strings.TrimSpace(os.Getenv("AUTH_SECRET"))
	}
	if secret == "" {
		fmt.Fprintln(os.Stderr, "signing secret is required via -secret or AUTH_SECRET")
		os.Exit(1)
	}

	token, err := middleware.SignCallerToken(secret, middleware.CallerClaims{
		Sub:    callerID,
		Exp:    time.Now().Add(ttlFlag).Unix(),
		Issuer: "callertoken",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

// tokengen mints operator tokens for the /admin API using the same secret
// and TTL the server reads from the environment.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/spec-kit/autoresolve/internal/auth"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	_ = godotenv.Load()

	var operator, secret string
	var ttl int
	flagSet := pflag.NewFlagSet("tokengen", pflag.ContinueOnError)
	flagSet.StringVarP(&operator, "operator", "o", "", "operator name recorded in the token")
	flagSet.StringVar(&secret, "secret", os.Getenv("ADMIN_JWT_SECRET"), "signing secret (default $ADMIN_JWT_SECRET)")
	flagSet.IntVar(&ttl, "ttl-minutes", 60, "token lifetime in minutes")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if operator == "" {
		return errors.New("--operator is required")
	}
	if secret == "" {
		return errors.New("no signing secret: set ADMIN_JWT_SECRET or pass --secret")
	}

	token, expires, err := auth.NewTokenManager(secret, ttl).GenerateToken(operator)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	fmt.Fprintf(os.Stderr, "expires %s\n", expires.Format(time.RFC3339))
	return nil
}

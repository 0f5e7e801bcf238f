package config

import (
	"flag"
	"os"
	"time"

	"github.com/emsuite/authcore/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-s string   access-token signing key
//	-i string   token issuer
//	-a string   token audience
//	-t int      access token TTL, minutes
//	-r int      refresh token TTL, hours
//	-n int      transaction retry count
//	-x int      exception log cap, rows
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration
// flags are accepted as integers and converted to time.Duration values.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-s", "-i", "-a", "-t", "-r", "-n", "-x"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SigningKey, "s", config.SigningKey, "access-token signing key")
	fs.StringVar(&config.Issuer, "i", config.Issuer, "token issuer")
	fs.StringVar(&config.Audience, "a", config.Audience, "token audience")

	accessTTL := fs.Int("t", int(config.AccessTokenTTL.Minutes()), "access token TTL (in minutes)")
	refreshTTL := fs.Int("r", int(config.RefreshTokenTTL.Hours()), "refresh token TTL (in hours)")

	fs.IntVar(&config.TxRetryCount, "n", config.TxRetryCount, "max commit attempts per transactional write")
	fs.IntVar(&config.ExceptionLogCap, "x", config.ExceptionLogCap, "retained exception log rows")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenTTL = time.Duration(*accessTTL) * time.Minute
	config.RefreshTokenTTL = time.Duration(*refreshTTL) * time.Hour
}

package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/profilekeeper/internal/flagx"
)

var knownFlags = []string{
	"-a", "-n", "-d", "-s", "-i", "-o", "-t",
	"-u", "-p", "-b", "-g", "-e", "-r", "-l", "-w",
}

// parseFlags overlays Config with command-line flags.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-n string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-i string   JWT issuer
//	-o string   JWT audience
//	-t int      access token validity, minutes
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-r string   Redis URL for token revocation
//	-l string   log format: text, json or zap
//	-w string   password scheme: hmac-sha512 or argon2id
//
// Flags not listed here are ignored so that -c/-config can share the command line.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port")
	fs.StringVar(&config.GRPCAddr, "n", config.GRPCAddr, "gRPC address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.Issuer, "i", config.Issuer, "token issuer")
	fs.StringVar(&config.Audience, "o", config.Audience, "token audience")

	validity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.RedisURL, "r", config.RedisURL, "Redis URL")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format")
	fs.StringVar(&config.PasswordScheme, "w", config.PasswordScheme, "password scheme")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	config.AccessTokenValidityDuration = time.Duration(*validity) * time.Minute
	return nil
}

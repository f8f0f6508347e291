package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/profilekeeper/internal/flagx"
	"github.com/dmitrijs2005/profilekeeper/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept both "15m"
// style strings and integer nanoseconds.
type JsonConfig struct {
	HTTPAddr                    string         `json:"http_addr"`
	GRPCAddr                    string         `json:"grpc_addr"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	Issuer                      string         `json:"issuer"`
	Audience                    string         `json:"audience"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	S3RootUser                  string         `json:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket"`
	S3Region                    string         `json:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint"`
	RedisURL                    string         `json:"redis_url"`
	LogFormat                   string         `json:"log_format"`
	PasswordScheme              string         `json:"password_scheme"`
}

// parseJson overlays Config with the file named by -c/-config. Keys missing
// from the file keep their current values. No flag means nothing is loaded.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	overlay(&config.HTTPAddr, c.HTTPAddr)
	overlay(&config.GRPCAddr, c.GRPCAddr)
	overlay(&config.DatabaseDSN, c.DatabaseDSN)
	overlay(&config.SecretKey, c.SecretKey)
	overlay(&config.Issuer, c.Issuer)
	overlay(&config.Audience, c.Audience)
	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	overlay(&config.S3RootUser, c.S3RootUser)
	overlay(&config.S3RootPassword, c.S3RootPassword)
	overlay(&config.S3Bucket, c.S3Bucket)
	overlay(&config.S3Region, c.S3Region)
	overlay(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	overlay(&config.RedisURL, c.RedisURL)
	overlay(&config.LogFormat, c.LogFormat)
	overlay(&config.PasswordScheme, c.PasswordScheme)

	return nil
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

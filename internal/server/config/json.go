package config

import (
	"encoding/json"
	"os"

	"github.com/emsuite/authcore/internal/flagx"
	"github.com/emsuite/authcore/internal/timex"
)

// JsonConfig is the JSON-file shape of Config. Interval fields use
// timex.Duration, which accepts both string values such as "1h" and integer
// nanoseconds. After unmarshalling, its fields are copied into the runtime
// Config struct.
type JsonConfig struct {
	DatabaseDSN     string         `json:"database_dsn"`
	SigningKey      string         `json:"signing_key"`
	Issuer          string         `json:"issuer"`
	Audience        string         `json:"audience"`
	AccessTokenTTL  timex.Duration `json:"access_token_ttl"`
	RefreshTokenTTL timex.Duration `json:"refresh_token_ttl"`
	TxRetryCount    int            `json:"tx_retry_count"`
	TxRetryBackoff  timex.Duration `json:"tx_retry_backoff"`
	ExceptionLogCap int            `json:"exception_log_cap"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config. The file path comes from the -c or -config command-line flags;
// when neither is set, no JSON file is loaded. An unreadable or invalid
// file panics: a config file that is present but broken must not be half
// applied.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.DatabaseDSN = c.DatabaseDSN
	config.SigningKey = c.SigningKey
	config.Issuer = c.Issuer
	config.Audience = c.Audience
	config.AccessTokenTTL = c.AccessTokenTTL.Duration
	config.RefreshTokenTTL = c.RefreshTokenTTL.Duration
	config.TxRetryCount = c.TxRetryCount
	config.TxRetryBackoff = c.TxRetryBackoff.Duration
	config.ExceptionLogCap = c.ExceptionLogCap
}

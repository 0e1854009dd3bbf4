package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"host":          "lookup_api.host",
	"port":          "lookup_api.port",
	"metrics-addr":  "lookup_api.metrics_addr",
	"audit-lookups": "lookup_api.audit_lookups",
}

// LoadConfig resolves configuration with flags > environment > file > defaults.
// flags may be nil; only flags the user actually set take effect.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*LookupAPIConfig, error) {
	v := viper.New()

	d := DefaultLookupAPIConfig()
	v.SetDefault("lookup_api.host", d.Host)
	v.SetDefault("lookup_api.port", d.Port)
	v.SetDefault("lookup_api.max_connections", d.MaxConnections)
	v.SetDefault("lookup_api.request_timeout", d.RequestTimeout.String())
	v.SetDefault("lookup_api.max_batch_size", d.MaxBatchSize)
	v.SetDefault("lookup_api.metrics_addr", d.MetricsAddr)
	v.SetDefault("lookup_api.audit_lookups", d.AuditLookups)

	// UKPC_LOOKUP_API_PORT -> lookup_api.port
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	cfg := &LookupAPIConfig{
		Host:           v.GetString("lookup_api.host"),
		Port:           v.GetInt("lookup_api.port"),
		MaxConnections: v.GetInt("lookup_api.max_connections"),
		RequestTimeout: v.GetDuration("lookup_api.request_timeout"),
		MaxBatchSize:   v.GetInt("lookup_api.max_batch_size"),
		MetricsAddr:    v.GetString("lookup_api.metrics_addr"),
		AuditLookups:   v.GetBool("lookup_api.audit_lookups"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *LookupAPIConfig) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.MaxConnections <= 0 {
		return fmt.Errorf("max_connections must be positive, got %d", cfg.MaxConnections)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.RequestTimeout)
	}
	if cfg.MaxBatchSize <= 0 {
		return fmt.Errorf("max_batch_size must be positive, got %d", cfg.MaxBatchSize)
	}
	return nil
}

// validateNoSecretsInConfig keeps HMAC secrets environment-only.
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.InConfig("hmac_secret") || v.InConfig("lookup_api.hmac_secret") {
		return fmt.Errorf("HMAC secrets not allowed in config files (use %s_HMAC_SECRET environment variable)", EnvPrefix)
	}
	return nil
}

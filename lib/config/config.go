// Package config loads and validates the JSON configuration document shared
// by the authorization client, the sudo policy adapter, and the PAM account
// adapter.
package config

import (
	"os"
	"strings"

	"github.com/gravitational/trace"
	"github.com/spf13/viper"
)

// EnvConfigPath overrides the default configuration path. Intended for
// testing only — production deployments rely on the default path.
const EnvConfigPath = "SGNL_CONFIG_PATH"

// DefaultConfigPath is used when neither an explicit path nor
// SGNL_CONFIG_PATH is set.
const DefaultConfigPath = "/etc/sgnl/config.json"

// Command attribute choices for the sudo adapter's command_info construction.
const (
	CommandAttributeID          = "id"
	CommandAttributeName        = "name"
	CommandAttributeDisplayName = "displayName"
)

// HTTPConfig holds the authorization client's transport settings.
type HTTPConfig struct {
	TimeoutSeconds        int
	ConnectTimeoutSeconds int
	SSLVerifyPeer         bool
	SSLVerifyHost         bool
	UserAgent             string
}

// SudoConfig holds settings specific to the sudo-style policy adapter.
type SudoConfig struct {
	AccessMsg        bool
	CommandAttribute string
	BatchEvaluation  bool
}

// LoggingConfig holds settings for lib/sgnllog.
type LoggingConfig struct {
	Debug bool
	Level string
}

// RetryConfig holds the authorization client's retry/backoff settings.
// Exposed by the schema, wired into lib/authzclient (see SPEC_FULL.md §4.4).
type RetryConfig struct {
	Count   int
	DelayMS int
}

// Config is the fully resolved, validated configuration document.
type Config struct {
	Tenant   string
	APIURL   string
	APIToken string
	HTTP     HTTPConfig
	Logging  LoggingConfig
	Sudo     SudoConfig
	Retry    RetryConfig
}

// String redacts APIToken so the config never leaks into logs via %v/%s.
func (c Config) String() string {
	redacted := "<empty>"
	if c.APIToken != "" {
		redacted = "<redacted>"
	}
	return "Config{Tenant:" + c.Tenant + " APIURL:" + c.APIURL +
		" APIToken:" + redacted + " Sudo.CommandAttribute:" + c.Sudo.CommandAttribute + "}"
}

// Options controls how Load discovers and validates the configuration file.
type Options struct {
	// ConfigPath, if set, is used verbatim. Otherwise SGNL_CONFIG_PATH and
	// then DefaultConfigPath are tried in order.
	ConfigPath string
	// StrictValidation is not consulted by Load: a missing optional key
	// always falls back to its default, with or without it. The two
	// required keys (api_url, api_token) are always enforced.
	StrictValidation bool
}

// DefaultOptions mirrors the C original's SGNL_CONFIG_DEFAULT_OPTIONS.
func DefaultOptions() Options {
	return Options{StrictValidation: true}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.timeout", 10)
	v.SetDefault("http.connect_timeout", 3)
	v.SetDefault("http.ssl_verify_peer", true)
	v.SetDefault("http.ssl_verify_host", true)
	v.SetDefault("http.user_agent", "SGNL-Client/1.0")
	v.SetDefault("log_level", "info")
	v.SetDefault("debug", false)
	v.SetDefault("sudo.access_msg", true)
	v.SetDefault("sudo.command_attribute", CommandAttributeID)
	v.SetDefault("sudo.batch_evaluation", false)
	v.SetDefault("retry_count", 2)
	v.SetDefault("retry_delay_ms", 1000)
}

// resolvePath implements the §4.1 discovery order: explicit argument,
// SGNL_CONFIG_PATH, then DefaultConfigPath.
func resolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultConfigPath
}

// flexBool accepts a JSON boolean or the strings "true"/"1", matching the
// C original's SGNL_SAFE_STRNCPY-then-strcmp boolean parsing
// (original_source/src/c/common/config.c apply_config_values).
func flexBool(v *viper.Viper, key string, fallback bool) bool {
	raw := v.Get(key)
	switch t := raw.(type) {
	case nil:
		return fallback
	case bool:
		return t
	case string:
		return t == "true" || t == "1"
	default:
		return fallback
	}
}

// Load reads, parses, defaults, and validates the configuration document.
func Load(opts Options) (Config, error) {
	path := resolvePath(opts.ConfigPath)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Config{}, trace.NotFound("configuration file not found: %s", path)
		}
		return Config{}, trace.Wrap(err, "stat configuration file %s", path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, trace.BadParameter("invalid JSON in configuration file %s: %v", path, err)
	}

	cfg := Config{
		Tenant:   v.GetString("tenant"),
		APIURL:   v.GetString("api_url"),
		APIToken: v.GetString("api_token"),
		HTTP: HTTPConfig{
			TimeoutSeconds:        v.GetInt("http.timeout"),
			ConnectTimeoutSeconds: v.GetInt("http.connect_timeout"),
			SSLVerifyPeer:         flexBool(v, "http.ssl_verify_peer", true),
			SSLVerifyHost:         flexBool(v, "http.ssl_verify_host", true),
			UserAgent:             v.GetString("http.user_agent"),
		},
		Logging: LoggingConfig{
			Debug: flexBool(v, "debug", false),
			Level: v.GetString("log_level"),
		},
		Sudo: SudoConfig{
			AccessMsg:        flexBool(v, "sudo.access_msg", true),
			CommandAttribute: v.GetString("sudo.command_attribute"),
			BatchEvaluation:  flexBool(v, "sudo.batch_evaluation", false),
		},
		Retry: RetryConfig{
			Count:   v.GetInt("retry_count"),
			DelayMS: v.GetInt("retry_delay_ms"),
		},
	}

	// api_token legacy alias, second preference.
	if cfg.APIToken == "" {
		cfg.APIToken = v.GetString("protected_system_token")
	}

	// timeout_seconds (top-level) overrides http.timeout when present,
	// matching the C original's apply_config_values ordering (it is parsed
	// after the http block and unconditionally overwrites).
	if v.IsSet("timeout_seconds") {
		cfg.HTTP.TimeoutSeconds = v.GetInt("timeout_seconds")
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// validate enforces the required-field and bounds rules. api_url and
// api_token are mandatory regardless of Options.StrictValidation — that
// flag only ever controlled *optional* keys, and setDefaults already
// guarantees every optional key has a value, so there is nothing left
// for StrictValidation to gate once defaults have been applied.
func validate(cfg Config) error {
	if strings.TrimSpace(cfg.APIURL) == "" {
		return trace.BadParameter("missing required configuration field: api_url")
	}
	if strings.TrimSpace(cfg.APIToken) == "" {
		return trace.BadParameter("missing required configuration field: api_token")
	}
	if cfg.HTTP.TimeoutSeconds < 1 || cfg.HTTP.TimeoutSeconds > 300 {
		return trace.BadParameter("timeout_seconds out of range [1,300]: %d", cfg.HTTP.TimeoutSeconds)
	}
	if cfg.HTTP.ConnectTimeoutSeconds < 1 || cfg.HTTP.ConnectTimeoutSeconds > 60 {
		return trace.BadParameter("connect_timeout out of range [1,60]: %d", cfg.HTTP.ConnectTimeoutSeconds)
	}
	switch cfg.Sudo.CommandAttribute {
	case CommandAttributeID, CommandAttributeName, CommandAttributeDisplayName:
	default:
		return trace.BadParameter("invalid sudo.command_attribute: %q", cfg.Sudo.CommandAttribute)
	}
	return nil
}

package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv   = "DOMAINVET_CONFIG"
	dataDirEnv      = "DOMAINVET_DATA_DIR"
	dnsServerEnv    = "DOMAINVET_DNS_SERVER"
	secondaryURLEnv = "DOMAINVET_SECONDARY_URL"
	logLevelEnv     = "DOMAINVET_LOG_LEVEL"
)

// Duration wraps time.Duration so YAML values like "60s" parse directly.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std converts back to the standard library type.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds high-level settings required across the application.
type Config struct {
	DataDir      string             `yaml:"dataDir"`
	Logging      LoggingConfig      `yaml:"logging"`
	Pipeline     PipelineConfig     `yaml:"pipeline"`
	Verification VerificationConfig `yaml:"verification"`
	RDAP         RDAPConfig         `yaml:"rdap"`
	Secondary    SecondaryConfig    `yaml:"secondary"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// PipelineConfig tunes the orchestrator and the resolver chain.
type PipelineConfig struct {
	Concurrency      int      `yaml:"concurrency"`
	ResolverTimeout  Duration `yaml:"resolverTimeout"`
	RetryAttempts    int      `yaml:"retryAttempts"`
	RetryBaseDelay   Duration `yaml:"retryBaseDelay"`
	SkipVerification bool     `yaml:"skipVerification"`
	Chain            []string `yaml:"chain"`
}

// VerificationConfig tunes the TXT challenge issuer and poller.
type VerificationConfig struct {
	PollInterval Duration `yaml:"pollInterval"`
	MaxAttempts  int      `yaml:"maxAttempts"`
	// MaxAge bounds wall-clock wait; zero means maxAttempts * pollInterval.
	MaxAge      Duration `yaml:"maxAge"`
	DNSServer   string   `yaml:"dnsServer"`
	DNSTimeout  Duration `yaml:"dnsTimeout"`
	TokenPrefix string   `yaml:"tokenPrefix"`
}

// EffectiveMaxAge resolves the wall-clock ceiling for a challenge,
// derived from the poll interval actually in effect when no explicit
// maxAge is configured.
func (v VerificationConfig) EffectiveMaxAge(interval time.Duration) time.Duration {
	if v.MaxAge > 0 {
		return v.MaxAge.Std()
	}
	if interval <= 0 {
		interval = v.PollInterval.Std()
	}
	return time.Duration(v.MaxAttempts) * interval
}

// RDAPConfig maps TLDs to registry RDAP endpoint templates. Templates
// contain a %s placeholder for the domain name.
type RDAPConfig struct {
	Endpoints map[string]string `yaml:"endpoints"`
}

// SecondaryConfig describes the web-sourced WHOIS fallback.
type SecondaryConfig struct {
	BaseURL string `yaml:"baseURL"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(dataDirEnv); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(dnsServerEnv); v != "" {
		c.Verification.DNSServer = v
	}
	if v := os.Getenv(secondaryURLEnv); v != "" {
		c.Secondary.BaseURL = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.DataDir != "" {
		base.DataDir = override.DataDir
	}
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Pipeline.Concurrency > 0 {
		base.Pipeline.Concurrency = override.Pipeline.Concurrency
	}
	if override.Pipeline.ResolverTimeout > 0 {
		base.Pipeline.ResolverTimeout = override.Pipeline.ResolverTimeout
	}
	if override.Pipeline.RetryAttempts > 0 {
		base.Pipeline.RetryAttempts = override.Pipeline.RetryAttempts
	}
	if override.Pipeline.RetryBaseDelay > 0 {
		base.Pipeline.RetryBaseDelay = override.Pipeline.RetryBaseDelay
	}
	if override.Pipeline.SkipVerification {
		base.Pipeline.SkipVerification = true
	}
	if len(override.Pipeline.Chain) > 0 {
		base.Pipeline.Chain = override.Pipeline.Chain
	}

	if override.Verification.PollInterval > 0 {
		base.Verification.PollInterval = override.Verification.PollInterval
	}
	if override.Verification.MaxAttempts > 0 {
		base.Verification.MaxAttempts = override.Verification.MaxAttempts
	}
	if override.Verification.MaxAge > 0 {
		base.Verification.MaxAge = override.Verification.MaxAge
	}
	if override.Verification.DNSServer != "" {
		base.Verification.DNSServer = override.Verification.DNSServer
	}
	if override.Verification.DNSTimeout > 0 {
		base.Verification.DNSTimeout = override.Verification.DNSTimeout
	}
	if override.Verification.TokenPrefix != "" {
		base.Verification.TokenPrefix = override.Verification.TokenPrefix
	}

	if len(override.RDAP.Endpoints) > 0 {
		base.RDAP.Endpoints = override.RDAP.Endpoints
	}
	if override.Secondary.BaseURL != "" {
		base.Secondary.BaseURL = override.Secondary.BaseURL
	}

	return base
}

func defaultConfig() Config {
	return Config{
		DataDir: "./data",
		Logging: LoggingConfig{Level: "info"},
		Pipeline: PipelineConfig{
			Concurrency:     5,
			ResolverTimeout: Duration(30 * time.Second),
			RetryAttempts:   2,
			RetryBaseDelay:  Duration(2 * time.Second),
			Chain:           []string{"rdap", "webwhois"},
		},
		Verification: VerificationConfig{
			PollInterval: Duration(60 * time.Second),
			MaxAttempts:  10,
			DNSServer:    "1.1.1.1:53",
			DNSTimeout:   Duration(5 * time.Second),
			TokenPrefix:  "mv-",
		},
		RDAP: RDAPConfig{
			Endpoints: map[string]string{
				".com": "https://rdap.verisign.com/com/v1/domain/%s",
				".net": "https://rdap.verisign.com/net/v1/domain/%s",
				".org": "https://rdap.publicinterestregistry.org/rdap/domain/%s",
				".nl":  "https://rdap.sidn.nl/domain/%s",
			},
		},
		Secondary: SecondaryConfig{BaseURL: "https://who.is/whois/"},
	}
}

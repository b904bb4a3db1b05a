package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DNSConfig defines the UDP/TCP listener configuration for the authoritative responder.
type DNSConfig struct {
	BindAddr    string        // listener address, format "host:port", default ":53"
	ReadTimeout time.Duration // per-datagram/connection read deadline on TCP
	TTL         uint32        // TTL applied to synthesized resource records, in seconds
}

// CatalogueConfig defines the domain catalogue store connection.
type CatalogueConfig struct {
	Driver          string        // "postgres" or "memory"
	DSN             string        // postgres connection string
	MaxOpenConns    int           // max open connections, default 25
	MaxIdleConns    int           // max idle connections, default 5
	ConnMaxLifetime time.Duration // connection max lifetime, default 5m
}

// UpstreamConfig defines the control-plane client the Synchroniser polls.
type UpstreamConfig struct {
	BaseURL      string        // upstream REST base URL
	APIKey       string        // bearer token sent to upstream
	PollInterval time.Duration // reconciliation period, default 5m
	Timeout      time.Duration // per-request timeout, default 10s
}

// VerifierConfig defines the background lifecycle verifier.
type VerifierConfig struct {
	Interval        time.Duration // tick period, default 1m
	LookupTimeout   time.Duration // per-domain NS lookup timeout, default 5s
	MaxRetries      int           // bounded retries per tick, default 2
	GracePeriod     time.Duration // Verified -> Grace -> Disabled window, default 72h
	MaxConcurrency  int64         // bounded concurrent lookups per tick, default 16
	Resolvers       []string      // recursive resolvers queried for NS, "host:port"
}

// ZoneDefaultsConfig carries the per-domain record attributes the
// Synchroniser applies when it upserts a domain the upstream control-plane
// only describes by name and flags (see internal/upstream.Record) — the
// address pool and mail-host template are a deployment-wide policy, not
// something upstream provides per domain.
type ZoneDefaultsConfig struct {
	DefaultAddress       string   // apex A target for ordinary domains
	DiscordAddress       string   // apex A target for discord-flagged domains
	MailHostTemplate     string   // e.g. "mail.{domain}"
	DiscordMailHostSuffix string  // appended fragment for discord-flagged domains, e.g. "discord.example.test"
	MXPriority           uint16   // MX preference applied to every synthesized MX record
	Nameservers          []string // authoritative NS list, in declared order
	AutoDiscoveryEnabled bool     // loaded from configuration but read by no component; this core never creates domains from the wire
}

// AdminConfig defines the administrative HTTP surface.
type AdminConfig struct {
	BindAddr       string   // listener address, default ":8081"
	APIKey         string   // static API key required in the X-API-Key header on all /api/v1 routes
	AllowedOrigins []string // CORS allow-list
}

// LogConfig defines the structured logging behavior.
type LogConfig struct {
	Level       string // debug, info, warn, error
	Development bool   // enables colorized console output and stack traces
	FilePath    string // rotated log file path; empty disables file output
}

// Config is the root configuration object for the catalogdns process.
type Config struct {
	DNS       DNSConfig
	Catalogue CatalogueConfig
	Upstream  UpstreamConfig
	Verifier  VerifierConfig
	Zone      ZoneDefaultsConfig
	Admin     AdminConfig
	Log       LogConfig
}

// Load reads configuration from environment variables and an optional .env file.
//
// Precedence (highest to lowest):
//  1. process environment variables
//  2. .env file, if present
//  3. built-in defaults
//
// Environment variable prefix: CATALOGDNS_
// e.g. CATALOGDNS_DNS_BIND_ADDR, CATALOGDNS_ADMIN_API_KEY
func Load() (*Config, error) {
	loadEnvFile()

	viper.SetEnvPrefix("catalogdns")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("dns.bind_addr", ":53")
	viper.SetDefault("dns.read_timeout", "10s")
	viper.SetDefault("dns.ttl", 300)

	viper.SetDefault("catalogue.driver", "memory")
	viper.SetDefault("catalogue.dsn", "")
	viper.SetDefault("catalogue.max_open_conns", 25)
	viper.SetDefault("catalogue.max_idle_conns", 5)
	viper.SetDefault("catalogue.conn_max_lifetime", "5m")

	viper.SetDefault("upstream.base_url", "")
	viper.SetDefault("upstream.api_key", "")
	viper.SetDefault("upstream.poll_interval", "5m")
	viper.SetDefault("upstream.timeout", "10s")

	viper.SetDefault("verifier.interval", "1m")
	viper.SetDefault("verifier.lookup_timeout", "5s")
	viper.SetDefault("verifier.max_retries", 2)
	viper.SetDefault("verifier.grace_period", "72h")
	viper.SetDefault("verifier.max_concurrency", 16)
	viper.SetDefault("verifier.resolvers", "8.8.8.8:53")

	viper.SetDefault("zone.default_address", "")
	viper.SetDefault("zone.discord_address", "")
	viper.SetDefault("zone.mail_host_template", "mail.{domain}")
	viper.SetDefault("zone.discord_mail_host_suffix", "")
	viper.SetDefault("zone.mx_priority", 10)
	viper.SetDefault("zone.nameservers", "")
	viper.SetDefault("zone.auto_discovery_enabled", false)

	viper.SetDefault("admin.bind_addr", ":8081")
	viper.SetDefault("admin.api_key", "")
	viper.SetDefault("admin.allowed_origins", "*")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("log.file_path", "")

	readTimeout, err := time.ParseDuration(viper.GetString("dns.read_timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid dns.read_timeout: %w", err)
	}

	connMaxLifetime, err := time.ParseDuration(viper.GetString("catalogue.conn_max_lifetime"))
	if err != nil {
		connMaxLifetime = 5 * time.Minute
	}

	pollInterval, err := time.ParseDuration(viper.GetString("upstream.poll_interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid upstream.poll_interval: %w", err)
	}

	upstreamTimeout, err := time.ParseDuration(viper.GetString("upstream.timeout"))
	if err != nil {
		upstreamTimeout = 10 * time.Second
	}

	verifierInterval, err := time.ParseDuration(viper.GetString("verifier.interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid verifier.interval: %w", err)
	}

	lookupTimeout, err := time.ParseDuration(viper.GetString("verifier.lookup_timeout"))
	if err != nil {
		lookupTimeout = 5 * time.Second
	}

	gracePeriod, err := time.ParseDuration(viper.GetString("verifier.grace_period"))
	if err != nil {
		gracePeriod = 72 * time.Hour
	}

	maxRetries := viper.GetInt("verifier.max_retries")
	if maxRetries <= 0 {
		maxRetries = 2
	}

	maxConcurrency := viper.GetInt64("verifier.max_concurrency")
	if maxConcurrency <= 0 {
		maxConcurrency = 16
	}

	corsOrigins := parseList(viper.GetString("admin.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	adminAPIKey := viper.GetString("admin.api_key")
	if adminAPIKey == "" {
		return nil, fmt.Errorf("SECURITY ERROR: admin API key must be set via CATALOGDNS_ADMIN_API_KEY")
	}

	cfg := &Config{
		DNS: DNSConfig{
			BindAddr:    viper.GetString("dns.bind_addr"),
			ReadTimeout: readTimeout,
			TTL:         uint32(viper.GetInt("dns.ttl")),
		},
		Catalogue: CatalogueConfig{
			Driver:          strings.ToLower(viper.GetString("catalogue.driver")),
			DSN:             viper.GetString("catalogue.dsn"),
			MaxOpenConns:    viper.GetInt("catalogue.max_open_conns"),
			MaxIdleConns:    viper.GetInt("catalogue.max_idle_conns"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Upstream: UpstreamConfig{
			BaseURL:      viper.GetString("upstream.base_url"),
			APIKey:       viper.GetString("upstream.api_key"),
			PollInterval: pollInterval,
			Timeout:      upstreamTimeout,
		},
		Verifier: VerifierConfig{
			Interval:       verifierInterval,
			LookupTimeout:  lookupTimeout,
			MaxRetries:     maxRetries,
			GracePeriod:    gracePeriod,
			MaxConcurrency: maxConcurrency,
			Resolvers:      parseList(viper.GetString("verifier.resolvers")),
		},
		Zone: ZoneDefaultsConfig{
			DefaultAddress:        viper.GetString("zone.default_address"),
			DiscordAddress:        viper.GetString("zone.discord_address"),
			MailHostTemplate:      viper.GetString("zone.mail_host_template"),
			DiscordMailHostSuffix: viper.GetString("zone.discord_mail_host_suffix"),
			MXPriority:            uint16(viper.GetInt("zone.mx_priority")),
			Nameservers:           parseList(viper.GetString("zone.nameservers")),
			AutoDiscoveryEnabled:  viper.GetBool("zone.auto_discovery_enabled"),
		},
		Admin: AdminConfig{
			BindAddr:       viper.GetString("admin.bind_addr"),
			APIKey:         adminAPIKey,
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
			FilePath:    viper.GetString("log.file_path"),
		},
	}

	if cfg.Catalogue.Driver == "postgres" && cfg.Catalogue.DSN == "" {
		return nil, fmt.Errorf("catalogue.dsn must be set when catalogue.driver is postgres")
	}

	return cfg, nil
}

// parseList splits a comma-separated string into a trimmed slice.
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile loads an optional .env file, checking the working directory
// then its parent (for running from a cmd/ subdirectory).
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}

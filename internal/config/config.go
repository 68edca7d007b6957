// Package config provides YAML-based configuration loading for Kiwi.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Kiwi configuration, loaded from kiwi.yaml.
type Config struct {
	App           AppConfig           `yaml:"app"`
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	HTTP          HTTPConfig          `yaml:"http"`
	Hyperplanning HyperplanningConfig `yaml:"hyperplanning"`
	Mail          MailConfig          `yaml:"mail"`
	Spotify       SpotifyConfig       `yaml:"spotify"`
	Notify        NotifyConfig        `yaml:"notify"`
}

// AppConfig names the running application.
type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	WebDir      string   `yaml:"web_dir"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// DatabaseConfig selects and addresses the relational store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // sqlite or mysql
	Path     string `yaml:"path"`   // sqlite file
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Debug    bool   `yaml:"debug"`
}

// HTTPConfig applies to outbound calls to external services.
type HTTPConfig struct {
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

// HyperplanningConfig points at the course calendar feed.
type HyperplanningConfig struct {
	URL      string `yaml:"url"`
	Timezone string `yaml:"timezone"`
}

// MailConfig addresses the local IMAP/SMTP bridge.
type MailConfig struct {
	IMAPHost    string `yaml:"imap_host"`
	IMAPPort    int    `yaml:"imap_port"`
	SMTPHost    string `yaml:"smtp_host"`
	SMTPPort    int    `yaml:"smtp_port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	InsecureTLS bool   `yaml:"insecure_tls"`
}

// SpotifyConfig holds the OAuth application credentials.
type SpotifyConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURI  string   `yaml:"redirect_uri"`
	Scopes       []string `yaml:"scopes"`
}

// NotifyConfig lists chat webhooks for the daily digest.
type NotifyConfig struct {
	SlackWebhookURL   string `yaml:"slack_webhook_url"`
	DiscordWebhookURL string `yaml:"discord_webhook_url"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references and unmarshals YAML bytes into a
// validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "AutoDesk Kiwi API"
	}
	if c.App.Version == "" {
		c.App.Version = "1.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.WebDir == "" {
		c.Server.WebDir = "web"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{
			"http://127.0.0.1:5500",
			"http://localhost:5500",
			"http://127.0.0.1:5173",
			"http://localhost:5173",
			"http://127.0.0.1:8000",
			"http://localhost:8000",
		}
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Database.Name == "" {
		c.Database.Name = "kiwi"
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = "AutoDeskKiwi/1.0 (kiwi-app-local-dev)"
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = 12 * time.Second
	}
	if c.Hyperplanning.Timezone == "" {
		c.Hyperplanning.Timezone = "Europe/Paris"
	}
	if c.Mail.IMAPHost == "" {
		c.Mail.IMAPHost = "127.0.0.1"
	}
	if c.Mail.IMAPPort == 0 {
		c.Mail.IMAPPort = 1143
	}
	if c.Mail.SMTPHost == "" {
		c.Mail.SMTPHost = "127.0.0.1"
	}
	if c.Mail.SMTPPort == 0 {
		c.Mail.SMTPPort = 1025
	}
	if c.Spotify.RedirectURI == "" {
		c.Spotify.RedirectURI = "http://localhost:8000/spotify/callback"
	}
	if len(c.Spotify.Scopes) == 0 {
		c.Spotify.Scopes = []string{
			"user-read-playback-state",
			"user-modify-playback-state",
			"user-read-currently-playing",
			"user-read-recently-played",
		}
	}
}

// validate checks that all fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (sqlite, mysql)", c.Database.Driver))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.HTTP.Timeout < 0 {
		errs = append(errs, "http.timeout must be positive")
	}
	if _, err := time.LoadLocation(c.Hyperplanning.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("hyperplanning.timezone %q: %v", c.Hyperplanning.Timezone, err))
	}
	if c.Mail.IMAPPort < 1 || c.Mail.IMAPPort > 65535 {
		errs = append(errs, fmt.Sprintf("mail.imap_port %d out of range", c.Mail.IMAPPort))
	}
	if c.Mail.SMTPPort < 1 || c.Mail.SMTPPort > 65535 {
		errs = append(errs, fmt.Sprintf("mail.smtp_port %d out of range", c.Mail.SMTPPort))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// MailConfigured reports whether IMAP/SMTP credentials are present.
func (c *Config) MailConfigured() bool {
	return c.Mail.User != "" && c.Mail.Password != ""
}

// SpotifyConfigured reports whether OAuth client credentials are present.
func (c *Config) SpotifyConfigured() bool {
	return c.Spotify.ClientID != "" && c.Spotify.ClientSecret != ""
}

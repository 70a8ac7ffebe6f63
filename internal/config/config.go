// Package config loads server settings from CTF_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/isepctf/ctfportal/internal/services/contact"
)

// Prefix is prepended to every variable name, e.g. CTF_PORT
const Prefix = "CTF"

// Server is the complete server configuration
type Server struct {
	Host string `default:""`
	Port int    `default:"8080"`

	StorageType string `split_words:"true" default:"memory"`
	RedisURL    string `split_words:"true"`

	SessionDuration   time.Duration `split_words:"true" default:"24h"`
	CountdownDuration time.Duration `split_words:"true" default:"168h"`
	// BcryptCost of zero leaves the library default
	BcryptCost int `split_words:"true"`

	LogLevel  string `split_words:"true" default:"info"`
	StaticDir string `split_words:"true"`

	Admin Admin
	SMTP  SMTP
}

// Admin describes the optional bootstrap administrator. Nothing is created
// unless all three fields are set.
type Admin struct {
	Username string
	Email    string
	Password string
}

// Enabled reports whether a bootstrap admin was configured
func (a Admin) Enabled() bool {
	return a.Username != "" && a.Email != "" && a.Password != ""
}

// SMTP configures contact form delivery. An empty host logs messages instead.
type SMTP struct {
	Host     string
	Port     int `default:"587"`
	Username string
	Password string
	From     string
	To       string
}

// Enabled reports whether contact mail should go through SMTP
func (s SMTP) Enabled() bool {
	return s.Host != ""
}

// Mailer converts the settings into the contact service's SMTP config
func (s SMTP) Mailer() contact.SMTPConfig {
	return contact.SMTPConfig{
		Host:     s.Host,
		Port:     s.Port,
		Username: s.Username,
		Password: s.Password,
		From:     s.From,
		To:       s.To,
	}
}

// Load reads the configuration from the environment
func Load() (Server, error) {
	var cfg Server
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Server{}, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate checks combinations that envconfig cannot express
func (c Server) Validate() error {
	switch c.StorageType {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			return errors.New("CTF_REDIS_URL required when CTF_STORAGE_TYPE=redis")
		}
	default:
		return fmt.Errorf("invalid CTF_STORAGE_TYPE %q: must be memory or redis", c.StorageType)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid CTF_PORT %d", c.Port)
	}
	if c.CountdownDuration <= 0 {
		return errors.New("CTF_COUNTDOWN_DURATION must be positive")
	}
	if c.SMTP.Enabled() && (c.SMTP.From == "" || c.SMTP.To == "") {
		return errors.New("CTF_SMTP_FROM and CTF_SMTP_TO required when CTF_SMTP_HOST is set")
	}
	return nil
}

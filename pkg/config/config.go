// Package config reads the indexer's environment configuration.
//
// Every setting comes from an environment variable so the same binary runs
// unchanged under a scheduler, in a container or from a shell. Reads go
// through an [Env] so tests can supply a fixed map.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/skillindex/pkg/errors"
	"github.com/matzehuels/skillindex/pkg/integrations/github"
	"github.com/matzehuels/skillindex/pkg/scoring"
)

// Environment variable names.
const (
	EnvAppID          = "GITHUB_APP_ID"
	EnvInstallationID = "GITHUB_APP_INSTALLATION_ID"
	EnvPrivateKey     = "GITHUB_APP_PRIVATE_KEY"
	EnvToken          = "GITHUB_TOKEN"
	EnvAPIURL         = "GITHUB_API_URL"
	EnvRawURL         = "GITHUB_RAW_URL"
	EnvDatabaseURL    = "DATABASE_URL"
	EnvRedisURL       = "REDIS_URL"
	EnvPublishers     = "SKILLINDEX_PUBLISHERS"
	EnvSearchDelay    = "SKILLINDEX_SEARCH_DELAY"
	EnvLogScoring     = "USE_LOG_SCORING"
)

// Env looks up environment variables.
type Env interface {
	Getenv(key string) string
}

// OSEnv reads the process environment.
type OSEnv struct{}

func (OSEnv) Getenv(key string) string { return os.Getenv(key) }

// MapEnv serves variables from a map.
type MapEnv map[string]string

func (m MapEnv) Getenv(key string) string { return m[key] }

// Config is the environment configuration of one process.
type Config struct {
	AppID          string
	InstallationID string
	PrivateKey     string
	Token          string

	APIURL string
	RawURL string

	DatabaseURL    string
	RedisURL       string
	PublishersPath string

	// SearchDelay is zero when unset, which selects the client default.
	SearchDelay time.Duration

	env Env
}

// Load reads the configuration from env. A nil env reads the process
// environment.
func Load(env Env) (*Config, error) {
	if env == nil {
		env = OSEnv{}
	}
	get := func(key string) string { return strings.TrimSpace(env.Getenv(key)) }

	c := &Config{
		AppID:          get(EnvAppID),
		InstallationID: get(EnvInstallationID),
		// Keys may carry significant trailing newlines.
		PrivateKey:     env.Getenv(EnvPrivateKey),
		Token:          get(EnvToken),
		APIURL:         get(EnvAPIURL),
		RawURL:         get(EnvRawURL),
		DatabaseURL:    get(EnvDatabaseURL),
		RedisURL:       get(EnvRedisURL),
		PublishersPath: get(EnvPublishers),
		env:            env,
	}

	for name, u := range map[string]string{EnvAPIURL: c.APIURL, EnvRawURL: c.RawURL} {
		if u == "" {
			continue
		}
		if err := errors.ValidateURL(u); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s", name)
		}
	}

	if raw := get(EnvSearchDelay); raw != "" {
		d, err := parseDelay(raw)
		if err != nil {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "%s: invalid delay %q", EnvSearchDelay, raw)
		}
		c.SearchDelay = d
	}
	return c, nil
}

// parseDelay accepts a Go duration or a whole number of milliseconds.
// Zero disables pacing and is returned as a negative delay.
func parseDelay(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		ms, convErr := strconv.Atoi(s)
		if convErr != nil {
			return 0, err
		}
		d = time.Duration(ms) * time.Millisecond
	}
	if d < 0 {
		return 0, errors.New(errors.ErrCodeInvalidConfig, "negative delay")
	}
	if d == 0 {
		return -1, nil
	}
	return d, nil
}

// ScoringFormula reads USE_LOG_SCORING on every call so a long-lived serve
// process picks up a changed environment without restarting.
func (c *Config) ScoringFormula() scoring.Formula {
	v, _ := strconv.ParseBool(strings.TrimSpace(c.env.Getenv(EnvLogScoring)))
	if v {
		return scoring.Logarithmic
	}
	return scoring.Linear
}

// HasApp reports whether all three GitHub App settings are present.
func (c *Config) HasApp() bool {
	return c.AppID != "" && c.InstallationID != "" && strings.TrimSpace(c.PrivateKey) != ""
}

// Credentials returns the credential manager configuration.
func (c *Config) Credentials(logger *log.Logger) github.CredentialConfig {
	return github.CredentialConfig{
		AppID:          c.AppID,
		InstallationID: c.InstallationID,
		PrivateKey:     c.PrivateKey,
		StaticToken:    c.Token,
		APIURL:         c.APIURL,
		Logger:         logger,
	}
}

// GitHubOptions returns client options without credentials or cache.
func (c *Config) GitHubOptions() github.Options {
	return github.Options{
		APIURL:      c.APIURL,
		RawURL:      c.RawURL,
		SearchDelay: c.SearchDelay,
	}
}

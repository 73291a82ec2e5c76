// Package config builds the gate's configuration once at process start.
// Values resolve as DAILYGATE_* env > config.json > defaults, and the
// resulting *Config is passed explicitly to every component.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const configFile = "config.json"

// Defaults
const (
	DefaultGraphQLURL     = "https://leetcode.com/graphql"
	DefaultLoginURL       = "https://leetcode.com/accounts/login/"
	DefaultProblemsURL    = "https://leetcode.com/problemset/"
	DefaultDailyURL       = "https://leetcode.com/problemset/all/?listId=wpwgkgt"
	DefaultCookieName     = "LEETCODE_SESSION"
	DefaultCookieDomain   = ".leetcode.com"
	DefaultKeyringService = "DailyGate.LeetCode"
	DefaultTimezone       = "Local"
	DefaultPollInterval   = 30 * time.Second
	DefaultInitialDelay   = time.Second
	DefaultRequestTimeout = 15 * time.Second
	DefaultFetchLimit     = 20
)

// Credential backends
const (
	BackendKeyring = "keyring"
	BackendFile    = "file"
)

// File is the on-disk shape of config.json. Durations are Go duration strings.
type File struct {
	Username          string `json:"username,omitempty"`
	GraphQLURL        string `json:"graphql_url,omitempty"`
	LoginURL          string `json:"login_url,omitempty"`
	CookieName        string `json:"cookie_name,omitempty"`
	CookieDomain      string `json:"cookie_domain,omitempty"`
	KeyringService    string `json:"keyring_service,omitempty"`
	CredentialBackend string `json:"credential_backend,omitempty"`
	StatePath         string `json:"state_path,omitempty"`
	LogPath           string `json:"log_path,omitempty"`
	Timezone          string `json:"timezone,omitempty"`
	PollInterval      string `json:"poll_interval,omitempty"`
	InitialDelay      string `json:"initial_delay,omitempty"`
	RequestTimeout    string `json:"request_timeout,omitempty"`
	FetchLimit        int    `json:"fetch_limit,omitempty"`
}

// Config is the resolved configuration
type Config struct {
	Username          string         `json:"username"`
	GraphQLURL        string         `json:"graphql_url"`
	LoginURL          string         `json:"login_url"`
	ProblemsURL       string         `json:"problems_url"`
	DailyURL          string         `json:"daily_url"`
	CookieName        string         `json:"cookie_name"`
	CookieDomain      string         `json:"cookie_domain"`
	KeyringService    string         `json:"keyring_service"`
	KeyringAccount    string         `json:"keyring_account"`
	CredentialBackend string         `json:"credential_backend"`
	Dir               string         `json:"dir"`
	StatePath         string         `json:"state_path"`
	LogPath           string         `json:"log_path"`
	DebugLogPath      string         `json:"debug_log_path"`
	LockPath          string         `json:"lock_path"`
	CredentialPath    string         `json:"credential_path"`
	Timezone          string         `json:"timezone"`
	Location          *time.Location `json:"-"`
	PollInterval      time.Duration  `json:"poll_interval"`
	InitialDelay      time.Duration  `json:"initial_delay"`
	RequestTimeout    time.Duration  `json:"request_timeout"`
	FetchLimit        int            `json:"fetch_limit"`
}

// Dir returns ~/.config/dailygate, or $DAILYGATE_HOME when set.
func Dir() (string, error) {
	if v := os.Getenv("DAILYGATE_HOME"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config", "dailygate"), nil
}

// DefaultPath returns the default location of config.json
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Defaults returns a config rooted at dir with every default applied
func Defaults(dir string) *Config {
	return &Config{
		GraphQLURL:        DefaultGraphQLURL,
		LoginURL:          DefaultLoginURL,
		ProblemsURL:       DefaultProblemsURL,
		DailyURL:          DefaultDailyURL,
		CookieName:        DefaultCookieName,
		CookieDomain:      DefaultCookieDomain,
		KeyringService:    DefaultKeyringService,
		KeyringAccount:    DefaultCookieName,
		CredentialBackend: BackendKeyring,
		Dir:               dir,
		StatePath:         filepath.Join(dir, "state.json"),
		LogPath:           filepath.Join(dir, "gate.log"),
		DebugLogPath:      filepath.Join(dir, "debug.log"),
		LockPath:          filepath.Join(dir, "gate.lock"),
		CredentialPath:    filepath.Join(dir, "credential"),
		Timezone:          DefaultTimezone,
		Location:          time.Local,
		PollInterval:      DefaultPollInterval,
		InitialDelay:      DefaultInitialDelay,
		RequestTimeout:    DefaultRequestTimeout,
		FetchLimit:        DefaultFetchLimit,
	}
}

// ReadFile reads config.json. A missing file yields an empty File.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, err
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}

// WriteFile writes config.json using atomic write (temp file + rename)
func WriteFile(path string, f *File) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "config-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}

// Load resolves the configuration. An empty path means DefaultPath().
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if v := os.Getenv("DAILYGATE_HOME"); v != "" {
		dir = v
	}
	cfg := Defaults(dir)
	if err := cfg.apply(f); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.resolveLocation(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) apply(f *File) error {
	setString(&c.Username, f.Username)
	setString(&c.GraphQLURL, f.GraphQLURL)
	setString(&c.LoginURL, f.LoginURL)
	setString(&c.CookieName, f.CookieName)
	setString(&c.CookieDomain, f.CookieDomain)
	setString(&c.KeyringService, f.KeyringService)
	setString(&c.CredentialBackend, f.CredentialBackend)
	setString(&c.StatePath, f.StatePath)
	setString(&c.LogPath, f.LogPath)
	setString(&c.Timezone, f.Timezone)
	if f.CookieName != "" {
		c.KeyringAccount = f.CookieName
	}
	if f.FetchLimit > 0 {
		c.FetchLimit = f.FetchLimit
	}

	for _, d := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"poll_interval", f.PollInterval, &c.PollInterval},
		{"initial_delay", f.InitialDelay, &c.InitialDelay},
		{"request_timeout", f.RequestTimeout, &c.RequestTimeout},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config %s: %w", d.name, err)
		}
		*d.dst = v
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Username, os.Getenv("DAILYGATE_USERNAME"))
	setString(&c.GraphQLURL, os.Getenv("DAILYGATE_GRAPHQL_URL"))
	setString(&c.CredentialBackend, os.Getenv("DAILYGATE_CREDENTIAL_BACKEND"))
	setString(&c.StatePath, os.Getenv("DAILYGATE_STATE_PATH"))
	setString(&c.LogPath, os.Getenv("DAILYGATE_LOG_PATH"))
	setString(&c.Timezone, os.Getenv("DAILYGATE_TIMEZONE"))

	if v := os.Getenv("DAILYGATE_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DAILYGATE_POLL_INTERVAL: %w", err)
		}
		c.PollInterval = d
	}
	if v := os.Getenv("DAILYGATE_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DAILYGATE_REQUEST_TIMEOUT: %w", err)
		}
		c.RequestTimeout = d
	}
	if v := os.Getenv("DAILYGATE_FETCH_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DAILYGATE_FETCH_LIMIT: %w", err)
		}
		c.FetchLimit = n
	}
	return nil
}

func (c *Config) resolveLocation() error {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	c.Location = loc
	return nil
}

// Validate checks the values the gate cannot run without
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Username) == "" {
		errs = append(errs, errors.New("username is not set (config.json \"username\" or DAILYGATE_USERNAME)"))
	}
	if c.GraphQLURL == "" {
		errs = append(errs, errors.New("graphql_url is empty"))
	}
	if c.Location == nil {
		errs = append(errs, errors.New("timezone is not resolved"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive, got %v", c.PollInterval))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout must be positive, got %v", c.RequestTimeout))
	}
	if c.InitialDelay < 0 {
		errs = append(errs, fmt.Errorf("initial_delay must not be negative, got %v", c.InitialDelay))
	}
	if c.FetchLimit <= 0 {
		errs = append(errs, fmt.Errorf("fetch_limit must be positive, got %d", c.FetchLimit))
	}
	switch c.CredentialBackend {
	case BackendKeyring, BackendFile:
	default:
		errs = append(errs, fmt.Errorf("credential_backend must be %q or %q, got %q", BackendKeyring, BackendFile, c.CredentialBackend))
	}
	return errors.Join(errs...)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

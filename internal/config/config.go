// Package config resolves Ambari connection settings from a YAML source
// file, the process environment, and built-in defaults.
//
// Every key is resolved independently through the same three-tier order:
// environment variable first, then the file value, then the default. The
// environment never bleeds across keys, so setting AMBARI_HOST does not
// change how the port or credentials resolve.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default connection values, applied when neither the environment nor the
// source file provides a key.
const (
	DefaultHostname = "localhost"
	DefaultPort     = 8443
	DefaultUsername = "admin"
	DefaultPassword = "admin"
	DefaultProtocol = "http"

	defaultRequestTimeout = 30 * time.Second
)

// Environment variable names, one per resolved key.
const (
	EnvHostname         = "AMBARI_HOST"
	EnvPort             = "AMBARI_PORT"
	EnvUsername         = "AMBARI_USER"
	EnvPassword         = "AMBARI_PASSWORD"
	EnvProtocol         = "AMBARI_PROTOCOL"
	EnvValidateSSL      = "AMBARI_VALIDATE_SSL"
	EnvSSHUser          = "AMBARI_SSH_USER"
	EnvSSHPassword      = "AMBARI_SSH_PASSWORD"
	EnvIncludeUnhealthy = "AMBARI_INCLUDE_UNHEALTHY"
	EnvRequestTimeout   = "AMBARI_REQUEST_TIMEOUT"
)

// Config holds the resolved Ambari connection settings. Immutable once
// resolved; built exactly once per run by Load.
type Config struct {
	Hostname    string
	Port        int
	Username    string
	Password    string
	Protocol    string
	ValidateSSL bool

	// SSH overrides forwarded to every discovered host when non-empty.
	SSHUser     string
	SSHPassword string

	// IncludeUnhealthy keeps hosts whose status is not HEALTHY in the
	// discovered set. Off by default.
	IncludeUnhealthy bool

	// RequestTimeout bounds every individual Ambari API call.
	RequestTimeout time.Duration
}

// BaseURL returns the scheme://host:port prefix for API requests.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d", c.Protocol, c.Hostname, c.Port)
}

// ResolutionError reports an unreadable or malformed configuration source.
type ResolutionError struct {
	Path string
	Err  error
}

func (e *ResolutionError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config resolution: %v", e.Err)
	}
	return fmt.Sprintf("config resolution: %s: %v", e.Path, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// fileConfig mirrors the keys recognized in an ambari inventory source file.
// Pointer fields distinguish "absent" from zero values.
type fileConfig struct {
	Plugin           string `yaml:"plugin"`
	Hostname         string `yaml:"hostname"`
	Port             *int   `yaml:"port"`
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	Protocol         string `yaml:"protocol"`
	ValidateSSL      *bool  `yaml:"validate_ssl"`
	AnsibleUser      string `yaml:"ansible_user"`
	AnsibleSSHPass   string `yaml:"ansible_ssh_pass"`
	IncludeUnhealthy *bool  `yaml:"include_unhealthy"`
	RequestTimeout   string `yaml:"request_timeout"`
}

// VerifyFile reports whether path is an inventory source this plugin claims
// ownership of. Only the double suffix is accepted, so an unrelated
// inventory.yml is never parsed by mistake.
func VerifyFile(path string) bool {
	return strings.HasSuffix(path, ".ambari.yml") || strings.HasSuffix(path, ".ambari.yaml")
}

// Load resolves a complete Config from the source file at path and the
// process environment. An empty path skips the file tier entirely and
// resolves from environment and defaults alone.
func Load(path string) (*Config, error) {
	var file fileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &ResolutionError{Path: path, Err: err}
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, &ResolutionError{Path: path, Err: err}
		}
	}

	cfg := &Config{
		Hostname:    resolveString(EnvHostname, file.Hostname, DefaultHostname),
		Username:    resolveString(EnvUsername, file.Username, DefaultUsername),
		Password:    resolveString(EnvPassword, file.Password, DefaultPassword),
		Protocol:    resolveString(EnvProtocol, file.Protocol, DefaultProtocol),
		SSHUser:     resolveString(EnvSSHUser, file.AnsibleUser, ""),
		SSHPassword: resolveString(EnvSSHPassword, file.AnsibleSSHPass, ""),
	}

	port, err := resolveInt(EnvPort, file.Port, DefaultPort)
	if err != nil {
		return nil, &ResolutionError{Path: path, Err: err}
	}
	cfg.Port = port

	validateSSL, err := resolveBool(EnvValidateSSL, file.ValidateSSL, false)
	if err != nil {
		return nil, &ResolutionError{Path: path, Err: err}
	}
	cfg.ValidateSSL = validateSSL

	includeUnhealthy, err := resolveBool(EnvIncludeUnhealthy, file.IncludeUnhealthy, false)
	if err != nil {
		return nil, &ResolutionError{Path: path, Err: err}
	}
	cfg.IncludeUnhealthy = includeUnhealthy

	timeout, err := resolveDuration(EnvRequestTimeout, file.RequestTimeout, defaultRequestTimeout)
	if err != nil {
		return nil, &ResolutionError{Path: path, Err: err}
	}
	cfg.RequestTimeout = timeout

	if cfg.Protocol != "http" && cfg.Protocol != "https" {
		return nil, &ResolutionError{Path: path, Err: fmt.Errorf("protocol must be http or https, got %q", cfg.Protocol)}
	}

	return cfg, nil
}

// resolveString returns the first present value among the environment
// variable envKey, the file value, and the default.
func resolveString(envKey, fileValue, defaultValue string) string {
	if value := os.Getenv(envKey); value != "" {
		return value
	}
	if fileValue != "" {
		return fileValue
	}
	return defaultValue
}

// resolveInt resolves an integer key; a malformed environment value is an
// error, never silently ignored.
func resolveInt(envKey string, fileValue *int, defaultValue int) (int, error) {
	if value := os.Getenv(envKey); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", envKey, err)
		}
		return n, nil
	}
	if fileValue != nil {
		return *fileValue, nil
	}
	return defaultValue, nil
}

func resolveBool(envKey string, fileValue *bool, defaultValue bool) (bool, error) {
	if value := os.Getenv(envKey); value != "" {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("%s: %w", envKey, err)
		}
		return b, nil
	}
	if fileValue != nil {
		return *fileValue, nil
	}
	return defaultValue, nil
}

func resolveDuration(envKey, fileValue string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(envKey); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", envKey, err)
		}
		return d, nil
	}
	if fileValue != "" {
		d, err := time.ParseDuration(fileValue)
		if err != nil {
			return 0, fmt.Errorf("request_timeout: %w", err)
		}
		return d, nil
	}
	return defaultValue, nil
}

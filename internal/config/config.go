// Package config provides configuration management for vinput.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/BurntSushi/toml"
)

// Config represents the application configuration
type Config struct {
	Backend   BackendConfig   `toml:"backend"`
	Translate TranslateConfig `toml:"translate"`
	Agent     AgentConfig     `toml:"agent"`
	Journal   JournalConfig   `toml:"journal"`
	Script    ScriptConfig    `toml:"script"`
}

// BackendConfig selects the injection backend
type BackendConfig struct {
	// Name is "native" or "dryrun"
	Name string `toml:"name"`

	// Display is the X server to connect to. Empty means $DISPLAY.
	Display string `toml:"display"`
}

// TranslateConfig tunes event translation
type TranslateConfig struct {
	// MaxWheelNotches caps wheel events expanded into button presses, 0 disables the cap
	MaxWheelNotches uint64 `toml:"max_wheel_notches"`
}

// AgentConfig configures the network service started with -serve
type AgentConfig struct {
	// ListenAddr is the HTTP/WebSocket listen address (e.g. ":18080")
	ListenAddr string `toml:"listen_addr"`

	// Token is an optional bearer token required by the HTTP API
	Token string `toml:"token"`

	// UDPPort is the port for binary event packets, 0 disables the listener
	UDPPort int `toml:"udp_port"`

	// RemoteAddr is the agent addressed by -send when the flag names none,
	// as udp://host:port or ws://host:port
	RemoteAddr string `toml:"remote_addr"`

	// Verbose logs every injected event
	Verbose bool `toml:"verbose"`
}

// JournalConfig configures the injection journal
type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// ScriptConfig configures the Lua runner
type ScriptConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

const (
	BackendNative = "native"
	BackendDryRun = "dryrun"
)

var (
	ErrUnknownBackend = errors.New("unknown backend")
	ErrInvalidPort    = errors.New("invalid port")
	ErrInvalidTimeout = errors.New("invalid script timeout")
)

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			Name: BackendNative,
		},
		Translate: TranslateConfig{
			MaxWheelNotches: 1000,
		},
		Agent: AgentConfig{
			ListenAddr: ":18080",
			UDPPort:    18081,
		},
		Journal: JournalConfig{
			Enabled: false,
		},
		Script: ScriptConfig{
			TimeoutSeconds: 30,
		},
	}
}

// Validate checks values that cannot be fixed up silently
func (c *Config) Validate() error {
	switch c.Backend.Name {
	case BackendNative, BackendDryRun:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend.Name)
	}
	if c.Agent.UDPPort < 0 || c.Agent.UDPPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Agent.UDPPort)
	}
	if c.Script.TimeoutSeconds < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTimeout, c.Script.TimeoutSeconds)
	}
	return nil
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
	onChanged  func()
}

// NewManager creates a configuration manager for the per-user config file
func NewManager() (*Manager, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return NewManagerAt(filepath.Join(dir, "config.toml")), nil
}

// NewManagerAt creates a configuration manager for the file at path
func NewManagerAt(path string) *Manager {
	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}
}

// Dir returns the per-user configuration directory, creating it if needed
func Dir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "vinput")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "vinput")
	default:
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			base = filepath.Join(home, ".config")
		}
		configDir = filepath.Join(base, "vinput")
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// Path returns the configuration file path
func (m *Manager) Path() string {
	return m.configPath
}

// Load reads the configuration from disk. A missing file leaves the defaults in place.
func (m *Manager) Load() error {
	m.mu.Lock()
	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		m.mu.Unlock()
		return nil
	}

	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(m.configPath, cfg); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		m.mu.Unlock()
		return err
	}
	m.config = cfg
	onChanged := m.onChanged
	m.mu.Unlock()

	if onChanged != nil {
		onChanged()
	}
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m.config); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return err
	}

	log.Printf("Config: Saving configuration to %s (%d bytes)", m.configPath, buf.Len())
	return os.WriteFile(m.configPath, buf.Bytes(), 0644)
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.config
}

// Set replaces the configuration after validating it
func (m *Manager) Set(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.config = &cfg
	onChanged := m.onChanged
	m.mu.Unlock()
	if onChanged != nil {
		onChanged()
	}
	return nil
}

// RegisterChangeCallback registers a function to be called when config changes
func (m *Manager) RegisterChangeCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = fn
}

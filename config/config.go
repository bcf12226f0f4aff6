// Package config persists the hookbench listener configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// File represents the YAML config structure.
type File struct {
	Host          string `yaml:"host,omitempty"`
	Dashboard     bool   `yaml:"dashboard,omitempty"`
	DashboardPort int    `yaml:"dashboard_port,omitempty"`
	MetricsPort   int    `yaml:"metrics_port,omitempty"`
	RateLimit     int    `yaml:"rate_limit,omitempty"`
	RateBurst     int    `yaml:"rate_burst,omitempty"`
	MaxEntries    int    `yaml:"max_entries,omitempty"`
	Ports         []int  `yaml:"ports"`
}

// Manager handles loading and saving the config file.
type Manager struct {
	mu       sync.Mutex
	filePath string
}

// NewManager creates a config manager for the given path.
func NewManager(filePath string) *Manager {
	return &Manager{filePath: filePath}
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".hookbench", "hookbench.yaml")
}

// FilePath returns the config file path.
func (m *Manager) FilePath() string {
	return m.filePath
}

// Load reads the config file.
func (m *Manager) Load() (*File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked()
}

// Save writes the config file.
func (m *Manager) Save(cfg *File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(cfg)
}

// AddPort adds a port to the config and saves. Adding a port that is already
// present is a no-op. A missing config file starts from an empty one.
func (m *Manager) AddPort(port int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, err := m.loadLocked()
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		cfg = &File{}
	}

	for _, p := range cfg.Ports {
		if p == port {
			return nil
		}
	}
	cfg.Ports = append(cfg.Ports, port)
	return m.saveLocked(cfg)
}

// RemovePort removes a port from the config and saves.
func (m *Manager) RemovePort(port int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, err := m.loadLocked()
	if err != nil {
		return err
	}

	for i, p := range cfg.Ports {
		if p == port {
			cfg.Ports = append(cfg.Ports[:i], cfg.Ports[i+1:]...)
			break
		}
	}
	return m.saveLocked(cfg)
}

func (m *Manager) loadLocked() (*File, error) {
	data, err := os.ReadFile(m.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg File
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

func (m *Manager) saveLocked(cfg *File) error {
	dir := filepath.Dir(m.filePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically using temp file + rename
	tmpPath := m.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if err := os.Rename(tmpPath, m.filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// Package config stores named serial line profiles
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"serialtool/pkg/serial"
)

// ErrNotFound is returned when a named profile does not exist
var ErrNotFound = errors.New("profile not found")

const (
	storageVersion = "1.0"
	configFileName = "configs.json"
)

// ConfigManager interface defines the contract for profile operations
type ConfigManager interface {
	SaveConfig(name string, settings serial.LineSettings) error
	LoadConfig(name string) (serial.LineSettings, error)
	ListConfigs() ([]ConfigInfo, error)
	DeleteConfig(name string) error
	ConfigExists(name string) bool
}

// ConfigInfo contains a saved profile and its metadata
type ConfigInfo struct {
	Name        string              `json:"name"`
	Settings    serial.LineSettings `json:"settings"`
	CreatedAt   time.Time           `json:"created_at"`
	LastUsedAt  time.Time           `json:"last_used_at"`
	Description string              `json:"description,omitempty"`
}

// Validate checks if the profile is valid. The port may be empty.
func (c ConfigInfo) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("configuration name cannot be empty")
	}

	if err := c.Settings.ValidateLine(); err != nil {
		return fmt.Errorf("invalid line settings: %w", err)
	}

	if c.CreatedAt.IsZero() {
		return fmt.Errorf("created_at timestamp cannot be zero")
	}

	return nil
}

// ConfigStorage represents the on-disk format
type ConfigStorage struct {
	Configs map[string]ConfigInfo `json:"configs"`
	Version string                `json:"version"`
}

// FileConfigManager implements ConfigManager with a JSON file
type FileConfigManager struct {
	configDir  string
	configFile string
}

// DefaultDir returns ~/.serialtool, or .serialtool when there is no home
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".serialtool"
	}
	return filepath.Join(home, ".serialtool")
}

// NewFileConfigManager creates a file-based manager rooted at configDir.
// An empty configDir selects DefaultDir.
func NewFileConfigManager(configDir string) *FileConfigManager {
	if configDir == "" {
		configDir = DefaultDir()
	}
	return &FileConfigManager{
		configDir:  configDir,
		configFile: configFileName,
	}
}

// Initialize creates the configuration directory and an empty store if needed
func (fcm *FileConfigManager) Initialize() error {
	if err := os.MkdirAll(fcm.configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := fcm.GetConfigPath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		storage := ConfigStorage{
			Configs: make(map[string]ConfigInfo),
			Version: storageVersion,
		}

		if err := fcm.saveStorage(storage); err != nil {
			return fmt.Errorf("failed to initialize config file: %w", err)
		}
	}

	return nil
}

// SaveConfig saves settings under name, replacing any existing profile
// but keeping its creation time and description
func (fcm *FileConfigManager) SaveConfig(name string, settings serial.LineSettings) error {
	if name == "" {
		return fmt.Errorf("configuration name cannot be empty")
	}

	if err := settings.ValidateLine(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := fcm.Initialize(); err != nil {
		return err
	}

	storage, err := fcm.loadStorage()
	if err != nil {
		return fmt.Errorf("failed to load existing configurations: %w", err)
	}

	now := time.Now()
	info := ConfigInfo{
		Name:       name,
		Settings:   settings,
		CreatedAt:  now,
		LastUsedAt: now,
	}

	if existing, exists := storage.Configs[name]; exists {
		info.CreatedAt = existing.CreatedAt
		info.Description = existing.Description
	}

	storage.Configs[name] = info

	if err := fcm.saveStorage(storage); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	return nil
}

// LoadConfig loads a profile by name and records its use
func (fcm *FileConfigManager) LoadConfig(name string) (serial.LineSettings, error) {
	if name == "" {
		return serial.LineSettings{}, fmt.Errorf("configuration name cannot be empty")
	}

	storage, err := fcm.loadStorage()
	if err != nil {
		return serial.LineSettings{}, fmt.Errorf("failed to load configurations: %w", err)
	}

	info, exists := storage.Configs[name]
	if !exists {
		return serial.LineSettings{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	info.LastUsedAt = time.Now()
	storage.Configs[name] = info

	// Last-used bookkeeping is not worth failing a load over.
	_ = fcm.saveStorage(storage)

	return info.Settings, nil
}

// GetConfig returns a profile with its metadata
func (fcm *FileConfigManager) GetConfig(name string) (ConfigInfo, error) {
	storage, err := fcm.loadStorage()
	if err != nil {
		return ConfigInfo{}, fmt.Errorf("failed to load configurations: %w", err)
	}

	info, exists := storage.Configs[name]
	if !exists {
		return ConfigInfo{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return info, nil
}

// ListConfigs returns all profiles sorted by name
func (fcm *FileConfigManager) ListConfigs() ([]ConfigInfo, error) {
	storage, err := fcm.loadStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to load configurations: %w", err)
	}

	configs := make([]ConfigInfo, 0, len(storage.Configs))
	for _, info := range storage.Configs {
		configs = append(configs, info)
	}
	slices.SortFunc(configs, func(a, b ConfigInfo) int {
		return strings.Compare(a.Name, b.Name)
	})

	return configs, nil
}

// DeleteConfig deletes a profile by name
func (fcm *FileConfigManager) DeleteConfig(name string) error {
	if name == "" {
		return fmt.Errorf("configuration name cannot be empty")
	}

	storage, err := fcm.loadStorage()
	if err != nil {
		return fmt.Errorf("failed to load configurations: %w", err)
	}

	if _, exists := storage.Configs[name]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	delete(storage.Configs, name)

	if err := fcm.saveStorage(storage); err != nil {
		return fmt.Errorf("failed to save configurations after deletion: %w", err)
	}

	return nil
}

// ConfigExists checks if a profile with the given name exists
func (fcm *FileConfigManager) ConfigExists(name string) bool {
	if name == "" {
		return false
	}

	storage, err := fcm.loadStorage()
	if err != nil {
		return false
	}

	_, exists := storage.Configs[name]
	return exists
}

// SetConfigDescription sets the description of a profile
func (fcm *FileConfigManager) SetConfigDescription(name, description string) error {
	if name == "" {
		return fmt.Errorf("configuration name cannot be empty")
	}

	storage, err := fcm.loadStorage()
	if err != nil {
		return fmt.Errorf("failed to load configurations: %w", err)
	}

	info, exists := storage.Configs[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	info.Description = description
	storage.Configs[name] = info

	if err := fcm.saveStorage(storage); err != nil {
		return fmt.Errorf("failed to save configuration description: %w", err)
	}

	return nil
}

// GetConfigPath returns the full path to the configuration file
func (fcm *FileConfigManager) GetConfigPath() string {
	return filepath.Join(fcm.configDir, fcm.configFile)
}

// loadStorage loads the store, treating a missing file as empty
func (fcm *FileConfigManager) loadStorage() (ConfigStorage, error) {
	data, err := os.ReadFile(fcm.GetConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return ConfigStorage{
				Configs: make(map[string]ConfigInfo),
				Version: storageVersion,
			}, nil
		}
		return ConfigStorage{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var storage ConfigStorage
	if err := json.Unmarshal(data, &storage); err != nil {
		return ConfigStorage{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	if storage.Configs == nil {
		storage.Configs = make(map[string]ConfigInfo)
	}

	return storage, nil
}

// saveStorage writes the store through a temp file and rename
func (fcm *FileConfigManager) saveStorage(storage ConfigStorage) error {
	configPath := fcm.GetConfigPath()

	data, err := json.MarshalIndent(storage, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config data: %w", err)
	}

	tempPath := configPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temporary config file: %w", err)
	}

	return nil
}

// Package config is the translator's on-disk configuration: a TOML file
// read with sensible defaults when absent.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config holds translator-level settings: which host ABI to target, how the
// register allocator should deviate from its default mapping, and how the
// emitter prefers to encode branches.
type Config struct {
	// Target settings
	Target struct {
		OS            string `toml:"os"`              // "linux" or "windows"; empty means runtime.GOOS
		PreferShortJz bool   `toml:"prefer_short_jmp"` // emit 2-byte short jumps when a fixup's span allows it
	} `toml:"target"`

	// RegAlloc settings
	RegAlloc struct {
		SpillSlotBytes int      `toml:"spill_slot_bytes"` // per-slot stack reservation, 8 unless overridden
		PinnedPhys     []string `toml:"pinned_physical"`  // host register names withheld from the guest mapping (their guests spill)
	} `toml:"regalloc"`

	// Diagnostics settings
	Diagnostics struct {
		DumpEmittedHex bool   `toml:"dump_emitted_hex"`
		DumpFile       string `toml:"dump_file"`
	} `toml:"diagnostics"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Target.OS = ""
	cfg.Target.PreferShortJz = true

	cfg.RegAlloc.SpillSlotBytes = 8
	cfg.RegAlloc.PinnedPhys = nil

	cfg.Diagnostics.DumpEmittedHex = false
	cfg.Diagnostics.DumpFile = "translator.hex"

	return cfg
}

// ResolvedOS returns Target.OS if set, otherwise the host's runtime.GOOS.
func (c *Config) ResolvedOS() string {
	if c.Target.OS != "" {
		return c.Target.OS
	}
	return runtime.GOOS
}

// GetConfigPath returns the platform-specific config file path.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "armjit")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "armjit")

	default:
		return "config.toml"
	}

	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "config.toml"
	}

	return filepath.Join(configDir, "config.toml")
}

// Load loads configuration from the default config file.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the specified file, falling back to
// defaults when the file doesn't exist.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the specified file.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

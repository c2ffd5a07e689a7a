// Package config loads the PicoFDC drive profile: which coprocessor
// transport to talk to (or a raw image file for offline work), the
// serial port, and the timing/cache knobs that tune the flux and
// sector-cache layers.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

//go:embed picofdc.toml
var defaultConfigData []byte

// Global state for the selected profile, set by Initialize.
var (
	ProfileName        string
	Transport          string
	Port               string
	ImagePath          string
	TickCell           int
	IdleTimeoutSeconds int
	CacheCapacity      int
)

// Config is the entire TOML configuration structure.
type Config struct {
	Default string    `toml:"default"`
	Profile []Profile `toml:"profile"`
}

// Profile describes one way to reach a drive: a coprocessor transport
// plus a serial port, or a raw .img file for offline work.
type Profile struct {
	Name               string `toml:"name"`
	Transport          string `toml:"transport"` // greaseweazle | kryoflux | supercardpro | image
	Port               string `toml:"port"`
	ImagePath          string `toml:"image_path"`
	TickCell           int    `toml:"tick_cell"`
	IdleTimeoutSeconds int    `toml:"idle_timeout_seconds"`
	CacheCapacity      int    `toml:"cache_capacity"`
}

// configPath determines the config file path based on the operating
// system, matching the teacher's config directory resolution.
func configPath() (string, error) {
	var configDir string
	var err error

	switch runtime.GOOS {
	case "windows":
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "picofdc")
	default:
		configDir, err = os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine user home directory: %w", err)
		}
	}

	return filepath.Join(configDir, ".picofdc"), nil
}

// Initialize loads and validates the configuration file, creating it
// from the embedded default on first run.
func Initialize() error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory %s: %w", dir, err)
		}
		if err := os.WriteFile(path, defaultConfigData, 0644); err != nil {
			return fmt.Errorf("failed to create default config file at %s: %w", path, err)
		}
	}

	var conf Config
	if _, err := toml.DecodeFile(path, &conf); err != nil {
		return fmt.Errorf("failed to parse TOML config at %s: %w", path, err)
	}
	return applyConfig(conf)
}

func applyConfig(conf Config) error {
	if conf.Default == "" {
		return errors.New("`default` key is missing or empty in config")
	}

	var found *Profile
	for i := range conf.Profile {
		if conf.Profile[i].Name == conf.Default {
			found = &conf.Profile[i]
			break
		}
	}
	if found == nil {
		return fmt.Errorf("default profile %q not found in profile array", conf.Default)
	}

	if err := validateProfile(found); err != nil {
		return err
	}

	ProfileName = found.Name
	Transport = found.Transport
	Port = found.Port
	ImagePath = found.ImagePath
	TickCell = found.TickCell
	IdleTimeoutSeconds = found.IdleTimeoutSeconds
	CacheCapacity = found.CacheCapacity
	return nil
}

func validateProfile(p *Profile) error {
	switch p.Transport {
	case "greaseweazle", "kryoflux", "supercardpro":
		if p.Port == "" {
			return fmt.Errorf("profile %q uses transport %q but has no port", p.Name, p.Transport)
		}
	case "image":
		if p.ImagePath == "" {
			return fmt.Errorf("profile %q uses transport \"image\" but has no image_path", p.Name)
		}
	default:
		return fmt.Errorf("profile %q has unknown transport %q", p.Name, p.Transport)
	}
	if p.TickCell <= 0 {
		return fmt.Errorf("profile %q has invalid tick_cell: %d (must be positive)", p.Name, p.TickCell)
	}
	if p.CacheCapacity <= 0 {
		return fmt.Errorf("profile %q has invalid cache_capacity: %d (must be positive)", p.Name, p.CacheCapacity)
	}
	return nil
}

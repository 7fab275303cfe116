package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Profile errors.
var (
	ErrNoProfiles      = errors.New("no profiles configured")
	ErrProfileNotFound = errors.New("profile not found")
	ErrProfileExists   = errors.New("profile already exists")
)

// Profile holds connection settings for a single storage account.
type Profile struct {
	Name        string `yaml:"name"`
	Account     string `yaml:"account,omitempty"`
	Key         string `yaml:"key,omitempty"`
	Endpoint    string `yaml:"endpoint,omitempty"`
	Development bool   `yaml:"development,omitempty"` // target the local emulator
	Default     bool   `yaml:"default,omitempty"`
}

// ProfileFile holds the full config file structure with multiple profiles.
type ProfileFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// GetProfile returns the profile by name.
// If name is empty, returns the default profile.
func (c *ProfileFile) GetProfile(name string) (*Profile, error) {
	if len(c.Profiles) == 0 {
		return nil, ErrNoProfiles
	}

	if name == "" {
		return c.GetDefaultProfile()
	}

	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			return &c.Profiles[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
}

// GetDefaultProfile returns the default profile.
// If no profile is marked as default, returns the first profile.
func (c *ProfileFile) GetDefaultProfile() (*Profile, error) {
	if len(c.Profiles) == 0 {
		return nil, ErrNoProfiles
	}

	for i := range c.Profiles {
		if c.Profiles[i].Default {
			return &c.Profiles[i], nil
		}
	}

	return &c.Profiles[0], nil
}

// AddProfile adds a new profile. Returns ErrProfileExists if a profile
// with the same name already exists. Use UpdateProfile to modify an existing profile.
func (c *ProfileFile) AddProfile(p Profile) error {
	for i := range c.Profiles {
		if c.Profiles[i].Name == p.Name {
			return fmt.Errorf("%w: %s", ErrProfileExists, p.Name)
		}
	}
	c.Profiles = append(c.Profiles, p)
	return nil
}

// UpdateProfile updates an existing profile. Returns ErrProfileNotFound
// if the profile doesn't exist. Use AddProfile to create a new profile.
func (c *ProfileFile) UpdateProfile(p Profile) error {
	for i := range c.Profiles {
		if c.Profiles[i].Name == p.Name {
			c.Profiles[i] = p
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrProfileNotFound, p.Name)
}

// RemoveProfile removes a profile by name.
func (c *ProfileFile) RemoveProfile(name string) error {
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			c.Profiles = append(c.Profiles[:i], c.Profiles[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
}

// SetDefault sets the default profile by name.
// Clears the default flag from all other profiles.
func (c *ProfileFile) SetDefault(name string) error {
	found := false
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			c.Profiles[i].Default = true
			found = true
		} else {
			c.Profiles[i].Default = false
		}
	}

	if !found {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	return nil
}

// ProfileNames returns a list of all profile names.
func (c *ProfileFile) ProfileNames() []string {
	names := make([]string, len(c.Profiles))
	for i := range c.Profiles {
		names[i] = c.Profiles[i].Name
	}
	return names
}

// Save writes the profiles to the specified path.
// Creates the parent directory if it doesn't exist.
func (c *ProfileFile) Save(path string) error {
	cleanPath := filepath.Clean(path)

	dir := filepath.Dir(cleanPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(cleanPath, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// LoadProfileFile loads the profile file from the specified path.
func LoadProfileFile(path string) (*ProfileFile, error) {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath) //#nosec G304 -- path is user-provided config file
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg ProfileFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return &cfg, nil
}

// DefaultProfilePath returns the default profile file path (~/.azstore/config.yaml).
func DefaultProfilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".azstore", "config.yaml")
}

// ProfileFromEnv returns the profile name from AZSTORE_PROFILE.
func ProfileFromEnv() string {
	return os.Getenv("AZSTORE_PROFILE")
}

// ProfilePathFromEnv returns the profile file path from AZSTORE_CONFIG.
func ProfilePathFromEnv() string {
	return os.Getenv("AZSTORE_CONFIG")
}

// EnvProfile builds a profile from environment variables. Empty fields mean
// the variable was not set.
func EnvProfile() Profile {
	return Profile{
		Account:  os.Getenv("AZSTORE_ACCOUNT"),
		Key:      os.Getenv("AZSTORE_KEY"),
		Endpoint: os.Getenv("AZSTORE_ENDPOINT"),
	}
}

// MergeProfiles merges profiles, with later profiles taking precedence.
// Empty strings in later profiles do not override earlier values.
func MergeProfiles(profiles ...*Profile) *Profile {
	result := &Profile{}
	for _, p := range profiles {
		if p == nil {
			continue
		}
		if p.Name != "" {
			result.Name = p.Name
		}
		if p.Account != "" {
			result.Account = p.Account
		}
		if p.Key != "" {
			result.Key = p.Key
		}
		if p.Endpoint != "" {
			result.Endpoint = p.Endpoint
		}
		if p.Development {
			result.Development = true
		}
	}
	return result
}

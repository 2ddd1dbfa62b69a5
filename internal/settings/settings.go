// Package settings persists user preferences to a YAML file. It is a
// collaborator of the session, not part of it: the session receives
// resolved values and never touches the file.
package settings

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	settingsDirPerm  = fs.FileMode(0o700)
	settingsFilePerm = fs.FileMode(0o600)
)

// Settings holds user-tunable preferences.
type Settings struct {
	// SelectAllThreshold asks for confirmation before select-all when the
	// eligible photo count exceeds it. Zero disables the confirmation.
	SelectAllThreshold int `yaml:"select_all_threshold"`

	// PageSize is the number of photos requested per listing page.
	PageSize int `yaml:"page_size"`

	// ResumeLastAlbum re-enters the last open album on startup.
	ResumeLastAlbum bool `yaml:"resume_last_album"`
}

// Default returns the settings used when no file exists yet.
func Default() Settings {
	return Settings{
		SelectAllThreshold: 200,
		PageSize:           100,
		ResumeLastAlbum:    true,
	}
}

// Load reads settings from path. A missing file is not an error: defaults
// are returned so first-run works without any setup.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("reading settings: %w", err)
	}

	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parsing settings: %w", err)
	}

	if err := s.validate(); err != nil {
		return Settings{}, fmt.Errorf("validating settings: %w", err)
	}

	return s, nil
}

// Save writes settings to path, creating the directory if needed.
func Save(path string, s Settings) error {
	if err := s.validate(); err != nil {
		return fmt.Errorf("validating settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), settingsDirPerm); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	if err := os.WriteFile(path, data, settingsFilePerm); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}

	return nil
}

func (s Settings) validate() error {
	if s.SelectAllThreshold < 0 {
		return fmt.Errorf("select_all_threshold must not be negative")
	}

	if s.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive")
	}

	return nil
}

// ABOUTME: Settings loading with global + project YAML config merge
// ABOUTME: Project values override global ones; defaults fill whatever neither file sets

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied after merging.
const (
	DefaultViewport = 10
	DefaultDebounce = "300ms"
)

// Settings holds the merged configuration.
type Settings struct {
	Viewport   int    `yaml:"viewport,omitempty"`
	Debounce   string `yaml:"debounce,omitempty"`
	ShowHidden bool   `yaml:"show_hidden,omitempty"`
	DryRun     bool   `yaml:"dry_run,omitempty"`
	Match      string `yaml:"match,omitempty"`
}

// Load reads and merges global and project-local settings.
// Project settings override global settings. Missing files are not errors.
func Load(projectRoot string) (*Settings, error) {
	global, err := loadFile(GlobalConfigFile())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading global config: %w", err)
	}

	project, err := loadFile(ProjectConfigFile(projectRoot))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return finish(merge(global, project))
}

// LoadFile reads settings from one explicit file, which must exist.
func LoadFile(path string) (*Settings, error) {
	s, err := loadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return finish(s)
}

// finish expands env vars, applies defaults and validates.
func finish(s *Settings) (*Settings, error) {
	ResolveEnvVars(s)
	if s.Viewport == 0 {
		s.Viewport = DefaultViewport
	}
	if s.Debounce == "" {
		s.Debounce = DefaultDebounce
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate reports settings no session could be launched with.
func (s *Settings) Validate() error {
	if s.Viewport < 1 {
		return fmt.Errorf("viewport must be at least 1, got %d", s.Viewport)
	}
	if _, err := s.DebounceDuration(); err != nil {
		return err
	}
	return nil
}

// DebounceDuration parses the debounce window.
func (s *Settings) DebounceDuration() (time.Duration, error) {
	d, err := time.ParseDuration(s.Debounce)
	if err != nil {
		return 0, fmt.Errorf("parsing debounce %q: %w", s.Debounce, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("debounce must not be negative, got %s", d)
	}
	return d, nil
}

// loadFile reads a Settings from a YAML file. Returns zero Settings if file
// does not exist.
func loadFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Settings{}, err
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &s, nil
}

// merge overlays project settings onto global settings.
// Non-zero project values override global values.
func merge(global, project *Settings) *Settings {
	if global == nil {
		global = &Settings{}
	}
	if project == nil {
		return global
	}

	result := *global

	if project.Viewport != 0 {
		result.Viewport = project.Viewport
	}
	if project.Debounce != "" {
		result.Debounce = project.Debounce
	}
	if project.ShowHidden {
		result.ShowHidden = true
	}
	if project.DryRun {
		result.DryRun = true
	}
	if project.Match != "" {
		result.Match = project.Match
	}

	return &result
}

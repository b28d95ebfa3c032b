package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/caarlos0/env/v11"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"gopkg.in/yaml.v3"
)

// FileName is the optional project configuration file.
const FileName = "loom.yaml"

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config represents the optional loom.yaml configuration.
type Config struct {
	Name     string `yaml:"name,omitempty"`
	LogLevel string `yaml:"log_level,omitempty"`
	Color    string `yaml:"color,omitempty"`
	// State is the initial App state.
	State map[string]any `yaml:"state,omitempty"`
	// StateFile names a YAML file merged over State.
	StateFile string `yaml:"state_file,omitempty"`
	// Components maps component names to description files, relative to
	// the project root.
	Components map[string]string `yaml:"components,omitempty"`
}

// loomEnv holds the environment overrides.
type loomEnv struct {
	LogLevel  string `env:"LOOM_LOG_LEVEL"`
	Color     string `env:"LOOM_COLOR"`
	StateFile string `env:"LOOM_STATE"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Root       string
	ModulePath string
	AppName    string
	LogLevel   slog.Level
	Color      string
	State      map[string]any
	// Components maps component names to absolute description paths.
	Components map[string]string
}

// ComponentNames returns the configured component names, sorted.
func (r *Resolved) ComponentNames() []string {
	names := make([]string, 0, len(r.Components))
	for name := range r.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadOptional reads loom.yaml if present.
func LoadOptional(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	return &cfg, nil
}

// Resolve loads loom.yaml (if present), applies the LOOM_* environment
// overrides and resolves defaults.
func Resolve(dir string) (*Resolved, error) {
	modulePath, err := modulePath(dir)
	if err != nil {
		return nil, err
	}

	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	appName := strings.TrimSpace(cfg.Name)
	if appName == "" {
		appName = defaultAppName(modulePath, dir)
	}

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	color := strings.ToLower(strings.TrimSpace(cfg.Color))
	switch color {
	case "":
		color = ColorAuto
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return nil, fmt.Errorf("color must be auto, always or never (got %q)", cfg.Color)
	}

	state := make(map[string]any, len(cfg.State))
	for k, v := range cfg.State {
		state[k] = v
	}
	if cfg.StateFile != "" {
		extra, err := LoadState(resolvePath(dir, cfg.StateFile))
		if err != nil {
			return nil, err
		}
		for k, v := range extra {
			state[k] = v
		}
	}

	components := make(map[string]string, len(cfg.Components))
	for name, path := range cfg.Components {
		components[name] = resolvePath(dir, path)
	}

	return &Resolved{
		Root:       dir,
		ModulePath: modulePath,
		AppName:    appName,
		LogLevel:   level,
		Color:      color,
		State:      state,
		Components: components,
	}, nil
}

// LoadState reads a YAML mapping of state values.
func LoadState(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	var state map[string]any
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", path, err)
	}
	return state, nil
}

// FindProjectRoot walks up from the current directory to find loom.yaml
// or go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, marker := range []string{FileName, "go.mod"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a loom project (no %s or go.mod found)", FileName)
		}
		dir = parent
	}
}

func applyEnv(cfg *Config) error {
	var raw loomEnv
	if err := env.Parse(&raw); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if raw.LogLevel != "" {
		cfg.LogLevel = raw.LogLevel
	}
	if raw.Color != "" {
		cfg.Color = raw.Color
	}
	if raw.StateFile != "" {
		cfg.StateFile = raw.StateFile
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelWarn, nil
	}
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", s, err)
	}
	return level, nil
}

func resolvePath(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// modulePath returns the module path of dir's go.mod, or "" when there is
// none. A description project does not need to be a Go module.
func modulePath(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("could not determine module path from go.mod")
	}
	return path, nil
}

func defaultAppName(modulePath, dir string) string {
	base := filepath.Base(dir)
	if modulePath != "" {
		if modName, _, ok := module.SplitPathVersion(modulePath); ok {
			parts := strings.Split(modName, "/")
			base = parts[len(parts)-1]
		}
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "loom_app"
	}
	return base
}

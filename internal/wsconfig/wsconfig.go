// Package wsconfig loads the workspace configuration the core engine needs:
// workspace_root, alias_map, and ignored_paths. Each Load opens a fresh
// viper.New() instance rather than touching viper's global state, avoiding
// cross-call races a shared instance would introduce.
package wsconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the fully-loaded, ready-to-use workspace configuration.
type Config struct {
	WorkspaceRoot string            `mapstructure:"workspace_root" yaml:"workspace_root" json:"workspace_root"`
	AliasMap      map[string]string `mapstructure:"alias_map" yaml:"alias_map" json:"alias_map"`
	IgnoredPaths  []string          `mapstructure:"ignored_paths" yaml:"ignored_paths" json:"ignored_paths"`
	IncludeTypes  bool              `mapstructure:"include_types" yaml:"include_types" json:"include_types"`
	DefaultBranch string            `mapstructure:"default_branch" yaml:"default_branch" json:"default_branch"`

	// ignoreMatcher is compiled from IgnoredPaths by Load and isn't part of
	// the serialized shape.
	ignoreMatcher *ignore.GitIgnore
}

// Load reads configPath (YAML or JSON, viper infers from extension) into a
// Config using a fresh viper.New() instance, never the package-global
// viper.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading workspace config %s: %w", configPath, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing workspace config %s: %w", configPath, err)
	}
	if cfg.WorkspaceRoot == "" {
		cfg.WorkspaceRoot = filepath.Dir(configPath)
	}
	if cfg.DefaultBranch == "" {
		cfg.DefaultBranch = "main"
	}
	if err := cfg.compileIgnoreMatcher(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadAliasMapYAML loads a standalone alias-map document (the
// tsconfig-paths subset the Module Resolver consumes) via yaml.v3, separate
// from the main config file so a project can keep its path aliases in its
// own tsconfig-derived file without duplicating it into workspace config
// YAML.
func LoadAliasMapYAML(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading alias map %s: %w", path, err)
	}
	var aliasMap map[string]string
	if err := yaml.Unmarshal(raw, &aliasMap); err != nil {
		return nil, fmt.Errorf("parsing alias map %s: %w", path, err)
	}
	return aliasMap, nil
}

func (c *Config) compileIgnoreMatcher() error {
	if len(c.IgnoredPaths) == 0 {
		return nil
	}
	c.ignoreMatcher = ignore.CompileIgnoreLines(c.IgnoredPaths...)
	return nil
}

// IsIgnored reports whether relPath matches one of the configured
// ignored_paths gitignore-style patterns. Every pattern is also tried as a
// doublestar glob, since go-gitignore's semantics diverge slightly from
// doublestar's for "**" patterns.
func (c *Config) IsIgnored(relPath string) bool {
	if c.ignoreMatcher != nil && c.ignoreMatcher.MatchesPath(relPath) {
		return true
	}
	for _, pattern := range c.IgnoredPaths {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}
	}
	return false
}

// ProjectIgnore is a per-project .affectedignore file: a JSON array of
// doublestar patterns any discoverer's projects can carry.
type ProjectIgnore struct {
	Patterns []string
}

// LoadProjectIgnore reads <projectRoot>/.affectedignore if present; a
// missing file is not an error, it just means no project-local ignores.
func LoadProjectIgnore(projectRoot string) (*ProjectIgnore, error) {
	path := filepath.Join(projectRoot, ".affectedignore")
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &ProjectIgnore{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var patterns []string
	if err := json.Unmarshal(raw, &patterns); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &ProjectIgnore{Patterns: patterns}, nil
}

// Matches reports whether relPath (relative to the project root) matches
// any of the project's ignore patterns.
func (p *ProjectIgnore) Matches(relPath string) bool {
	for _, pattern := range p.Patterns {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}
	}
	return false
}

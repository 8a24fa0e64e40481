// Package config handles parsing and writing of svnscm configuration files (.svnscm.toml).
package config

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"github.com/bolasblack/svnscm/internal/util"
)

// Layout describes where branches live relative to the repository root.
type Layout struct {
	Trunk    string   `toml:"trunk,omitempty" json:"trunk,omitempty" jsonschema:"description=Relative path of the trunk (empty disables)"`
	Branches []string `toml:"branches,omitempty" json:"branches,omitempty" jsonschema:"description=Relative paths holding branches"`
	Tags     []string `toml:"tags,omitempty" json:"tags,omitempty" jsonschema:"description=Relative paths holding tags"`
}

// Config represents the svnscm configuration (after processing).
// This is the final merged config handed to repositories.
type Config struct {
	SvnPath string `toml:"svn_path,omitempty" json:"svn_path,omitempty" jsonschema:"description=Path of the svn executable"`

	Autorefresh                 bool            `toml:"autorefresh" json:"autorefresh" jsonschema:"description=Refresh status when files change"`
	RemoteChangesCheckFrequency int             `toml:"remote_changes_check_frequency" json:"remote_changes_check_frequency" jsonschema:"minimum=0,description=Seconds between remote change checks (0 disables)"`
	CombineExternalIfSameServer bool            `toml:"combine_external_if_same_server,omitempty" json:"combine_external_if_same_server,omitempty" jsonschema:"description=Treat externals from the same repository as part of the parent"`
	HideUnversioned             bool            `toml:"hide_unversioned,omitempty" json:"hide_unversioned,omitempty" jsonschema:"description=Drop unversioned conflict artifacts from the unversioned group"`
	CountUnversioned            bool            `toml:"count_unversioned,omitempty" json:"count_unversioned,omitempty" jsonschema:"description=Include unversioned files in the change count"`
	CountIgnoreOnCommit         bool            `toml:"count_ignore_on_commit,omitempty" json:"count_ignore_on_commit,omitempty" jsonschema:"description=Count changelists listed in ignore_on_commit"`
	IgnoreOnCommit              []string        `toml:"ignore_on_commit,omitempty" json:"ignore_on_commit,omitempty" jsonschema:"description=Changelists excluded from commits and from the change count"`
	FilesExclude                map[string]bool `toml:"files_exclude,omitempty" json:"files_exclude,omitempty" jsonschema:"description=Glob patterns hidden from status (false re-includes)"`
	Encoding                    string          `toml:"encoding,omitempty" json:"encoding,omitempty" jsonschema:"description=Fallback charset for svn output that is not UTF-8"`
	LogLevel                    string          `toml:"log_level,omitempty" json:"log_level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,description=Log level"`
	Layout                      Layout          `toml:"layout,omitempty" json:"layout,omitempty" jsonschema:"description=Branch layout of the repository"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SvnPath:                     "svn",
		Autorefresh:                 true,
		RemoteChangesCheckFrequency: 300,
		IgnoreOnCommit:              []string{"ignore-on-commit"},
		Encoding:                    "windows-1252",
		LogLevel:                    "warn",
		Layout: Layout{
			Trunk:    "trunk",
			Branches: []string{"branches"},
			Tags:     []string{"tags"},
		},
	}
}

// RemoteCheckInterval returns the poll interval, zero when disabled.
func (c *Config) RemoteCheckInterval() time.Duration {
	if c.RemoteChangesCheckFrequency <= 0 {
		return 0
	}
	return time.Duration(c.RemoteChangesCheckFrequency) * time.Second
}

// IsIgnoredOnCommit reports whether a changelist is in ignore_on_commit.
func (c *Config) IsIgnoredOnCommit(changelist string) bool {
	for _, name := range c.IgnoreOnCommit {
		if name == changelist {
			return true
		}
	}
	return false
}

// Validate checks the config for values svnscm cannot act on.
func (c *Config) Validate() error {
	if c.RemoteChangesCheckFrequency < 0 {
		return fmt.Errorf("remote_changes_check_frequency must not be negative, got %d", c.RemoteChangesCheckFrequency)
	}
	for pattern := range c.FilesExclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("files_exclude: invalid glob %q", pattern)
		}
	}
	return nil
}

// ExcludeMatcher returns a matcher for the files_exclude globs.
func (c *Config) ExcludeMatcher() *ExcludeMatcher {
	return NewExcludeMatcher(c.FilesExclude)
}

// ExcludeMatcher decides whether a working-copy relative path is hidden.
// A path is excluded when it matches an enabled pattern and no disabled one.
type ExcludeMatcher struct {
	include []string
	exclude []string
}

// NewExcludeMatcher builds a matcher from a glob→enabled map.
func NewExcludeMatcher(patterns map[string]bool) *ExcludeMatcher {
	m := &ExcludeMatcher{}
	for pattern, enabled := range patterns {
		if enabled {
			m.exclude = append(m.exclude, pattern)
		} else {
			m.include = append(m.include, pattern)
		}
	}
	sort.Strings(m.exclude)
	sort.Strings(m.include)
	return m
}

// Match reports whether relPath should be dropped. Separators are
// normalized to "/" before matching; patterns see dotfiles like any other name.
func (m *ExcludeMatcher) Match(relPath string) bool {
	if m == nil || len(m.exclude) == 0 {
		return false
	}
	p := filepath.ToSlash(relPath)
	p = strings.TrimPrefix(p, "./")

	matched := false
	for _, pattern := range m.exclude {
		if ok, _ := doublestar.Match(pattern, p); ok {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for _, pattern := range m.include {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return false
		}
	}
	return true
}

// rawConfig is an intermediate type for decoding TOML where "unset" must be
// distinguishable from the zero value.
type rawConfig struct {
	Includes                    []string        `toml:"includes,omitempty"`
	SvnPath                     string          `toml:"svn_path,omitempty"`
	Autorefresh                 *bool           `toml:"autorefresh,omitempty"`
	RemoteChangesCheckFrequency *int            `toml:"remote_changes_check_frequency,omitempty"`
	CombineExternalIfSameServer *bool           `toml:"combine_external_if_same_server,omitempty"`
	HideUnversioned             *bool           `toml:"hide_unversioned,omitempty"`
	CountUnversioned            *bool           `toml:"count_unversioned,omitempty"`
	CountIgnoreOnCommit         *bool           `toml:"count_ignore_on_commit,omitempty"`
	IgnoreOnCommit              []string        `toml:"ignore_on_commit,omitempty"`
	FilesExclude                map[string]bool `toml:"files_exclude,omitempty"`
	Encoding                    string          `toml:"encoding,omitempty"`
	LogLevel                    string          `toml:"log_level,omitempty"`
	Layout                      *rawLayout      `toml:"layout,omitempty"`
}

type rawLayout struct {
	Trunk    *string  `toml:"trunk,omitempty"`
	Branches []string `toml:"branches,omitempty"`
	Tags     []string `toml:"tags,omitempty"`
}

// SchemaConfig is the exported type for JSON schema generation.
// It represents what users can write in .svnscm.toml files.
type SchemaConfig struct {
	Includes []string `toml:"includes,omitempty" json:"includes,omitempty" jsonschema:"description=Other config files to include and merge (supports glob patterns)"`
	Config
}

// LoadConfig reads and parses a configuration file from the given path.
// Supports includes directive for composable configuration.
// Missing fields keep the values of DefaultConfig.
func LoadConfig(env *util.Env, path string) (Config, error) {
	cfg, err := LoadWithIncludes(env, path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadForWorkingCopy loads <root>/.svnscm.toml, returning defaults when absent.
func LoadForWorkingCopy(env *util.Env, root string) (Config, error) {
	path := filepath.Join(root, util.ConfigFilename)
	exists, err := afero.Exists(env.Fs, path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !exists {
		return DefaultConfig(), nil
	}
	return LoadConfig(env, path)
}

// applyRaw overlays the set fields of raw onto cfg.
func applyRaw(cfg Config, raw rawConfig) Config {
	if raw.SvnPath != "" {
		cfg.SvnPath = raw.SvnPath
	}
	if raw.Autorefresh != nil {
		cfg.Autorefresh = *raw.Autorefresh
	}
	if raw.RemoteChangesCheckFrequency != nil {
		cfg.RemoteChangesCheckFrequency = *raw.RemoteChangesCheckFrequency
	}
	if raw.CombineExternalIfSameServer != nil {
		cfg.CombineExternalIfSameServer = *raw.CombineExternalIfSameServer
	}
	if raw.HideUnversioned != nil {
		cfg.HideUnversioned = *raw.HideUnversioned
	}
	if raw.CountUnversioned != nil {
		cfg.CountUnversioned = *raw.CountUnversioned
	}
	if raw.CountIgnoreOnCommit != nil {
		cfg.CountIgnoreOnCommit = *raw.CountIgnoreOnCommit
	}
	if raw.IgnoreOnCommit != nil {
		cfg.IgnoreOnCommit = raw.IgnoreOnCommit
	}
	if len(raw.FilesExclude) > 0 {
		cfg.FilesExclude = make(map[string]bool, len(raw.FilesExclude))
		for k, v := range raw.FilesExclude {
			cfg.FilesExclude[k] = v
		}
	}
	if raw.Encoding != "" {
		cfg.Encoding = raw.Encoding
	}
	if raw.LogLevel != "" {
		cfg.LogLevel = raw.LogLevel
	}
	if raw.Layout != nil {
		if raw.Layout.Trunk != nil {
			cfg.Layout.Trunk = *raw.Layout.Trunk
		}
		if raw.Layout.Branches != nil {
			cfg.Layout.Branches = raw.Layout.Branches
		}
		if raw.Layout.Tags != nil {
			cfg.Layout.Tags = raw.Layout.Tags
		}
	}
	return cfg
}

// SchemaComment is the TOML comment that references the JSON Schema for editor autocomplete.
const SchemaComment = "#:schema https://raw.githubusercontent.com/bolasblack/svnscm/refs/heads/master/svnscm-config.schema.json\n\n"

// SaveConfig writes the configuration to the given path with schema comment header.
func SaveConfig(env *util.Env, path string, cfg Config) error {
	var buf bytes.Buffer
	buf.WriteString(SchemaComment)
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := afero.WriteFile(env.Fs, path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

package config

import (
	"fmt"
	"path/filepath"
	"sort"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"github.com/bolasblack/svnscm/internal/util"
)

// LoadWithIncludes loads config with includes support, on top of DefaultConfig.
// It processes includes recursively, merging configs in the order they are specified.
func LoadWithIncludes(env *util.Env, path string) (Config, error) {
	raw, err := loadWithIncludes(env, path, make(map[string]bool))
	if err != nil {
		return Config{}, err
	}
	return applyRaw(DefaultConfig(), raw), nil
}

// loadWithIncludes is the internal recursive implementation.
func loadWithIncludes(env *util.Env, path string, visited map[string]bool) (rawConfig, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return rawConfig{}, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	if visited[absPath] {
		return rawConfig{}, fmt.Errorf("circular include detected: %s", path)
	}
	visited[absPath] = true

	data, err := afero.ReadFile(env.Fs, absPath)
	if err != nil {
		return rawConfig{}, err
	}

	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return rawConfig{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	baseDir := filepath.Dir(absPath)

	// Includes first (depth-first), current file merged on top.
	var merged rawConfig
	for _, includePattern := range raw.Includes {
		resolvedPattern := includePattern
		if !filepath.IsAbs(includePattern) {
			resolvedPattern = filepath.Join(baseDir, includePattern)
		}

		matchedFiles, err := expandGlob(env.Fs, resolvedPattern)
		if err != nil {
			return rawConfig{}, fmt.Errorf("failed to expand glob %s: %w", includePattern, err)
		}

		for _, includePath := range matchedFiles {
			included, err := loadWithIncludes(env, includePath, visited)
			if err != nil {
				return rawConfig{}, fmt.Errorf("failed to load include %s: %w", includePath, err)
			}
			merged = mergeRaw(merged, included)
		}
	}

	raw.Includes = nil
	return mergeRaw(merged, raw), nil
}

// isGlobPattern checks if the pattern contains glob special characters.
func isGlobPattern(pattern string) bool {
	for _, c := range pattern {
		switch c {
		case '*', '?', '[':
			return true
		}
	}
	return false
}

// expandGlob expands a glob pattern and returns sorted matched files.
// For literal paths (no glob characters), returns error if file doesn't exist.
// For glob patterns, returns empty slice if no files match.
func expandGlob(fs afero.Fs, pattern string) ([]string, error) {
	if !isGlobPattern(pattern) {
		if _, err := fs.Stat(pattern); err != nil {
			return nil, err
		}
		return []string{pattern}, nil
	}

	matches, err := afero.Glob(fs, pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// mergeRaw merges overlay into base.
// Scalars: overlay wins if set. Lists: append. Maps: overlay wins per key.
func mergeRaw(base, overlay rawConfig) rawConfig {
	result := base

	if overlay.SvnPath != "" {
		result.SvnPath = overlay.SvnPath
	}
	if overlay.Autorefresh != nil {
		result.Autorefresh = overlay.Autorefresh
	}
	if overlay.RemoteChangesCheckFrequency != nil {
		result.RemoteChangesCheckFrequency = overlay.RemoteChangesCheckFrequency
	}
	if overlay.CombineExternalIfSameServer != nil {
		result.CombineExternalIfSameServer = overlay.CombineExternalIfSameServer
	}
	if overlay.HideUnversioned != nil {
		result.HideUnversioned = overlay.HideUnversioned
	}
	if overlay.CountUnversioned != nil {
		result.CountUnversioned = overlay.CountUnversioned
	}
	if overlay.CountIgnoreOnCommit != nil {
		result.CountIgnoreOnCommit = overlay.CountIgnoreOnCommit
	}
	if overlay.Encoding != "" {
		result.Encoding = overlay.Encoding
	}
	if overlay.LogLevel != "" {
		result.LogLevel = overlay.LogLevel
	}

	if len(overlay.IgnoreOnCommit) > 0 {
		result.IgnoreOnCommit = append(append([]string{}, result.IgnoreOnCommit...), overlay.IgnoreOnCommit...)
	}

	if len(overlay.FilesExclude) > 0 {
		files := make(map[string]bool, len(result.FilesExclude)+len(overlay.FilesExclude))
		for k, v := range result.FilesExclude {
			files[k] = v
		}
		for k, v := range overlay.FilesExclude {
			files[k] = v
		}
		result.FilesExclude = files
	}

	if overlay.Layout != nil {
		layout := rawLayout{}
		if result.Layout != nil {
			layout = *result.Layout
		}
		if overlay.Layout.Trunk != nil {
			layout.Trunk = overlay.Layout.Trunk
		}
		if len(overlay.Layout.Branches) > 0 {
			layout.Branches = append(append([]string{}, layout.Branches...), overlay.Layout.Branches...)
		}
		if len(overlay.Layout.Tags) > 0 {
			layout.Tags = append(append([]string{}, layout.Tags...), overlay.Layout.Tags...)
		}
		result.Layout = &layout
	}

	return result
}

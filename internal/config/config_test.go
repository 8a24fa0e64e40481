package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/bolasblack/svnscm/internal/util"
)

// newTestEnv creates a test environment with in-memory filesystem.
func newTestEnv(t *testing.T) (*util.Env, afero.Fs) {
	t.Helper()
	memFs := afero.NewMemMapFs()
	env := &util.Env{Fs: memFs}
	return env, memFs
}

func TestLoadConfig(t *testing.T) {
	content := `
svn_path = "/usr/local/bin/svn"
autorefresh = false
remote_changes_check_frequency = 60
hide_unversioned = true
count_unversioned = true
ignore_on_commit = ["later", "wip"]

[files_exclude]
"**/*.tmp" = true
"**/keep.tmp" = false

[layout]
trunk = "main"
branches = ["branches", "feature"]
`
	env, memFs := newTestEnv(t)
	path := "/wc/.svnscm.toml"
	if err := afero.WriteFile(memFs, path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	cfg, err := LoadConfig(env, path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.SvnPath != "/usr/local/bin/svn" {
		t.Errorf("expected svn_path override, got %q", cfg.SvnPath)
	}
	if cfg.Autorefresh {
		t.Error("expected autorefresh false")
	}
	if cfg.RemoteCheckInterval() != time.Minute {
		t.Errorf("expected 1m interval, got %v", cfg.RemoteCheckInterval())
	}
	if !cfg.HideUnversioned || !cfg.CountUnversioned {
		t.Error("expected hide_unversioned and count_unversioned set")
	}
	if cfg.CountIgnoreOnCommit {
		t.Error("count_ignore_on_commit should keep its default")
	}
	if !cfg.IsIgnoredOnCommit("wip") || cfg.IsIgnoredOnCommit("ignore-on-commit") {
		t.Errorf("ignore_on_commit should replace the default list, got %v", cfg.IgnoreOnCommit)
	}
	if cfg.Layout.Trunk != "main" || len(cfg.Layout.Branches) != 2 {
		t.Errorf("unexpected layout: %+v", cfg.Layout)
	}
	if len(cfg.Layout.Tags) != 1 || cfg.Layout.Tags[0] != "tags" {
		t.Errorf("tags should keep the default, got %v", cfg.Layout.Tags)
	}
	if cfg.Encoding != "windows-1252" {
		t.Errorf("encoding should keep default, got %q", cfg.Encoding)
	}
}

func TestLoadConfigNotFound(t *testing.T) {
	env, _ := newTestEnv(t)
	_, err := LoadConfig(env, "/nonexistent/path/.svnscm.toml")
	if err == nil {
		t.Error("expected error for nonexistent file, got nil")
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"bad toml", "autorefresh = ", "failed to parse"},
		{"negative interval", "remote_changes_check_frequency = -1", "must not be negative"},
		{"bad glob", "[files_exclude]\n\"[abc\" = true", "invalid glob"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, memFs := newTestEnv(t)
			_ = afero.WriteFile(memFs, "/wc/.svnscm.toml", []byte(tt.content), 0644)
			_, err := LoadConfig(env, "/wc/.svnscm.toml")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error containing %q, got %v", tt.wantMsg, err)
			}
		})
	}
}

func TestLoadForWorkingCopy(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		env, _ := newTestEnv(t)
		cfg, err := LoadForWorkingCopy(env, "/wc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		def := DefaultConfig()
		if cfg.RemoteChangesCheckFrequency != def.RemoteChangesCheckFrequency || !cfg.Autorefresh {
			t.Errorf("expected defaults, got %+v", cfg)
		}
	})

	t.Run("existing file is loaded", func(t *testing.T) {
		env, memFs := newTestEnv(t)
		_ = afero.WriteFile(memFs, "/wc/.svnscm.toml", []byte("remote_changes_check_frequency = 0"), 0644)
		cfg, err := LoadForWorkingCopy(env, "/wc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.RemoteCheckInterval() != 0 {
			t.Errorf("expected polling disabled, got %v", cfg.RemoteCheckInterval())
		}
	})
}

func TestExcludeMatcher(t *testing.T) {
	m := NewExcludeMatcher(map[string]bool{
		"**/*.tmp":         true,
		"**/.DS_Store":     true,
		"build/**":         true,
		"**/important.tmp": false,
	})

	tests := []struct {
		path string
		want bool
	}{
		{"a.tmp", true},
		{"src/deep/b.tmp", true},
		{".DS_Store", true},
		{"docs/.DS_Store", true},
		{"build/out/x.o", true},
		{"src/important.tmp", false},
		{"src/main.go", false},
		{"./notes.tmp", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := m.Match(tt.path); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestExcludeMatcherEmpty(t *testing.T) {
	var nilMatcher *ExcludeMatcher
	if nilMatcher.Match("anything") {
		t.Error("nil matcher must not exclude")
	}
	if NewExcludeMatcher(nil).Match("anything") {
		t.Error("empty matcher must not exclude")
	}
	if NewExcludeMatcher(map[string]bool{"*.go": false}).Match("a.go") {
		t.Error("only-negated patterns must not exclude")
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	env, memFs := newTestEnv(t)
	cfg := DefaultConfig()
	cfg.HideUnversioned = true
	cfg.FilesExclude = map[string]bool{"**/*.bak": true}

	if err := SaveConfig(env, "/wc/.svnscm.toml", cfg); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	data, _ := afero.ReadFile(memFs, "/wc/.svnscm.toml")
	if !strings.HasPrefix(string(data), SchemaComment) {
		t.Error("expected schema comment prefix")
	}

	loaded, err := LoadConfig(env, "/wc/.svnscm.toml")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !loaded.HideUnversioned || !loaded.FilesExclude["**/*.bak"] {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
}

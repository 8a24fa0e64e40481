package config

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestLoadWithIncludes_SimpleInclude(t *testing.T) {
	env, memFs := newTestEnv(t)

	baseContent := `
hide_unversioned = true
remote_changes_check_frequency = 30
`
	if err := afero.WriteFile(memFs, "/wc/.svnscm.base.toml", []byte(baseContent), 0644); err != nil {
		t.Fatalf("failed to write base file: %v", err)
	}

	mainContent := `
includes = [".svnscm.base.toml"]
remote_changes_check_frequency = 90
`
	if err := afero.WriteFile(memFs, "/wc/.svnscm.toml", []byte(mainContent), 0644); err != nil {
		t.Fatalf("failed to write main file: %v", err)
	}

	cfg, err := LoadWithIncludes(env, "/wc/.svnscm.toml")
	if err != nil {
		t.Fatalf("LoadWithIncludes failed: %v", err)
	}

	if cfg.RemoteChangesCheckFrequency != 90 {
		t.Errorf("main config should win, got %d", cfg.RemoteChangesCheckFrequency)
	}
	if !cfg.HideUnversioned {
		t.Error("included hide_unversioned should be preserved")
	}
}

func TestLoadWithIncludes_ListsAppendMapsMerge(t *testing.T) {
	env, memFs := newTestEnv(t)

	_ = afero.WriteFile(memFs, "/wc/.svnscm.team.toml", []byte(`
ignore_on_commit = ["team"]
[files_exclude]
"**/*.log" = true
"**/*.tmp" = true
[layout]
branches = ["branches"]
`), 0644)
	_ = afero.WriteFile(memFs, "/wc/.svnscm.toml", []byte(`
includes = [".svnscm.team.toml"]
ignore_on_commit = ["mine"]
[files_exclude]
"**/*.tmp" = false
[layout]
branches = ["users"]
`), 0644)

	cfg, err := LoadWithIncludes(env, "/wc/.svnscm.toml")
	if err != nil {
		t.Fatalf("LoadWithIncludes failed: %v", err)
	}

	if strings.Join(cfg.IgnoreOnCommit, ",") != "team,mine" {
		t.Errorf("expected appended ignore_on_commit, got %v", cfg.IgnoreOnCommit)
	}
	if !cfg.FilesExclude["**/*.log"] || cfg.FilesExclude["**/*.tmp"] {
		t.Errorf("expected merged files_exclude with overlay winning, got %v", cfg.FilesExclude)
	}
	if strings.Join(cfg.Layout.Branches, ",") != "branches,users" {
		t.Errorf("expected appended branches, got %v", cfg.Layout.Branches)
	}
}

func TestLoadWithIncludes_GlobPattern(t *testing.T) {
	env, memFs := newTestEnv(t)

	_ = afero.WriteFile(memFs, "/wc/.svnscm.a.toml", []byte(`ignore_on_commit = ["a"]`), 0644)
	_ = afero.WriteFile(memFs, "/wc/.svnscm.b.toml", []byte(`ignore_on_commit = ["b"]`), 0644)
	_ = afero.WriteFile(memFs, "/wc/.svnscm.toml", []byte(`includes = [".svnscm.*.toml"]`), 0644)

	cfg, err := LoadWithIncludes(env, "/wc/.svnscm.toml")
	if err != nil {
		t.Fatalf("LoadWithIncludes failed: %v", err)
	}
	if strings.Join(cfg.IgnoreOnCommit, ",") != "a,b" {
		t.Errorf("expected sorted glob includes a,b, got %v", cfg.IgnoreOnCommit)
	}
}

func TestLoadWithIncludes_EmptyGlobIsOK(t *testing.T) {
	env, memFs := newTestEnv(t)
	_ = afero.WriteFile(memFs, "/wc/.svnscm.toml", []byte(`includes = ["missing-*.toml"]`), 0644)

	if _, err := LoadWithIncludes(env, "/wc/.svnscm.toml"); err != nil {
		t.Errorf("empty glob should not fail, got %v", err)
	}
}

func TestLoadWithIncludes_MissingLiteralInclude(t *testing.T) {
	env, memFs := newTestEnv(t)
	_ = afero.WriteFile(memFs, "/wc/.svnscm.toml", []byte(`includes = ["missing.toml"]`), 0644)

	if _, err := LoadWithIncludes(env, "/wc/.svnscm.toml"); err == nil {
		t.Error("expected error for missing literal include")
	}
}

func TestLoadWithIncludes_Circular(t *testing.T) {
	env, memFs := newTestEnv(t)
	_ = afero.WriteFile(memFs, "/wc/a.toml", []byte(`includes = ["b.toml"]`), 0644)
	_ = afero.WriteFile(memFs, "/wc/b.toml", []byte(`includes = ["a.toml"]`), 0644)

	_, err := LoadWithIncludes(env, "/wc/a.toml")
	if err == nil || !strings.Contains(err.Error(), "circular include") {
		t.Errorf("expected circular include error, got %v", err)
	}
}

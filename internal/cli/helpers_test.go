package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bolasblack/svnscm/internal/svn"
	"github.com/bolasblack/svnscm/internal/util"
)

const (
	statusKey   = "svn stat --xml --no-ignore --ignore-externals --non-interactive"
	rootInfoKey = "svn info --xml . --non-interactive"
	testHome    = "/home/test"
)

const rootInfo = `<info><entry kind="dir" path="." revision="7">
<url>https://svn.example.com/repo/trunk</url>
<repository><root>https://svn.example.com/repo</root><uuid>uuid-1</uuid></repository>
<wc-info><wcroot-abspath>/wc</wcroot-abspath></wc-info>
</entry></info>`

func statusXML(entries ...string) []byte {
	var b strings.Builder
	b.WriteString(`<status><target path=".">`)
	for _, e := range entries {
		b.WriteString(e)
	}
	b.WriteString(`</target></status>`)
	return []byte(b.String())
}

func entry(path, item string) string {
	return fmt.Sprintf(`<entry path=%q><wc-status item=%q props="none"></wc-status></entry>`, path, item)
}

// useTestDeps points the commands at an in-memory working copy at /wc.
func useTestDeps(t *testing.T, m *util.MockCommandRunner) *cliDeps {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/wc/.svn", 0o755))
	require.NoError(t, fs.MkdirAll("/elsewhere", 0o755))

	deps := &cliDeps{
		Env:    &util.Env{Fs: fs, Cmd: m},
		Home:   testHome,
		Logger: zap.NewNop(),
	}
	origDeps, origInteractive := newCLIDeps, isInteractive
	newCLIDeps = func() (*cliDeps, error) { return deps, nil }
	isInteractive = func() bool { return false }
	t.Cleanup(func() {
		newCLIDeps = origDeps
		isInteractive = origInteractive
	})
	return deps
}

// executeCommand runs the root command with args after resetting every
// flag to its default.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestAbsPaths(t *testing.T) {
	tests := []struct {
		name  string
		cwd   string
		paths []string
		want  []string
	}{
		{name: "relative", cwd: "/wc/src", paths: []string{"a.go", "../b.go"}, want: []string{"/wc/src/a.go", "/wc/b.go"}},
		{name: "absolute kept", cwd: "/wc", paths: []string{"/other//c.go"}, want: []string{"/other/c.go"}},
		{name: "empty", cwd: "/wc", paths: nil, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, absPaths(tt.cwd, tt.paths))
		})
	}
}

func TestFormatError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "svn stderr is formatted",
			err: fmt.Errorf("wrapped: %w", &svn.Error{
				Args:   []string{"update"},
				Code:   svn.CodeRepositoryIsLocked,
				Stderr: "svn: E155004: Working copy '/wc' locked.\n",
			}),
			want: "Error: Working copy '/wc' locked.",
		},
		{
			name: "missing binary",
			err:  &svn.Error{Args: []string{"--version"}, Err: svn.ErrSvnNotFound},
			want: "Error: svn executable not found, install Subversion or set svn_path in .svnscm.toml",
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: "Error: boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatError(tt.err))
		})
	}
}

func TestValidateFormat(t *testing.T) {
	for _, f := range []string{FormatText, FormatJSON, FormatYAML} {
		assert.NoError(t, validateFormat(f))
	}
	assert.Error(t, validateFormat("xml"))
}

func TestProgressReporter(t *testing.T) {
	var buf bytes.Buffer
	p := &progressReporter{w: &buf}
	done := p.Begin("Update")
	done()
	assert.Equal(t, "→ Update...\n", buf.String())
}

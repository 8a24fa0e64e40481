package scm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bolasblack/svnscm/internal/config"
	"github.com/bolasblack/svnscm/internal/svn"
	"github.com/bolasblack/svnscm/internal/util"
)

const (
	testRoot        = "/wc"
	statusKey       = "svn stat --xml --no-ignore --ignore-externals --non-interactive"
	statusRemoteKey = "svn stat --xml --show-updates --no-ignore --ignore-externals --non-interactive"
	statusExtKey    = "svn stat --xml --no-ignore --non-interactive"
	rootInfoKey     = "svn info --xml . --non-interactive"
)

func infoXML(url, uuid string) string {
	return fmt.Sprintf(`<info><entry kind="dir" path="." revision="1">
<url>%s</url>
<repository><root>https://svn.example.com/repo</root><uuid>%s</uuid></repository>
<wc-info><wcroot-abspath>/wc</wcroot-abspath></wc-info>
</entry></info>`, url, uuid)
}

var rootInfo = infoXML("https://svn.example.com/repo/trunk", "uuid-parent")

// entry renders one status entry. extra is spliced into wc-status.
func entry(path, item, props, extra string) string {
	return fmt.Sprintf(`<entry path=%q><wc-status item=%q props=%q %s></wc-status></entry>`, path, item, props, extra)
}

func statusXML(entries ...string) string {
	return `<status><target path=".">` + strings.Join(entries, "\n") + `</target></status>`
}

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.RemoteChangesCheckFrequency = 0
	return cfg
}

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) Waits() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

type progressRecorder struct {
	mu    sync.Mutex
	begun []Operation
	ended []Operation
}

func (p *progressRecorder) Begin(op Operation) func() {
	p.mu.Lock()
	p.begun = append(p.begun, op)
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		p.ended = append(p.ended, op)
		p.mu.Unlock()
	}
}

type fixture struct {
	repo    *Repository
	cmd     *util.MockCommandRunner
	sleeper *sleepRecorder
}

// newFixture builds a repository on a mock runner that already answers
// `svn info` for the root.
func newFixture(t *testing.T, cfg config.Config, opts ...func(*Options)) *fixture {
	t.Helper()
	m := util.NewMockCommandRunner().ExpectSuccess(rootInfoKey, []byte(rootInfo))
	sleeper := &sleepRecorder{}
	o := Options{
		Base:   svn.NewBaseRepository(svn.New(m), testRoot),
		Config: cfg,
		Sleep:  sleeper.Sleep,
	}
	for _, opt := range opts {
		opt(&o)
	}
	repo, err := NewRepository(o)
	require.NoError(t, err)
	t.Cleanup(repo.Close)
	return &fixture{repo: repo, cmd: m, sleeper: sleeper}
}

func relPaths(g ResourceGroup) []string {
	out := make([]string, 0, len(g.Resources))
	for _, r := range g.Resources {
		out = append(out, r.RelPath)
	}
	return out
}

func lockedStderr() string {
	return "svn: E155004: Working copy '/wc' locked.\nsvn: E155004: '/wc' is already locked.\n"
}

func authStderr() string {
	return "svn: E170001: Authorization failed\n"
}

func resultOf(stdout []byte) util.Result {
	return util.Result{Stdout: stdout}
}
